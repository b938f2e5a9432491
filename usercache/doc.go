// Package usercache provides the cache-backed implementation of users.Service.
//
// # Overview
//
// CachedService wraps a users.Store. Lookups read through the cache, mutations
// go straight to the store and, when they succeed, clear the whole "aboutUser"
// namespace. Keyword search and the user count are never cached here.
//
// # Basic Usage
//
//	cacheService, err := cache.NewCacheService(cache.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//
//	svc := usercache.New(store, cacheService, usercache.WithLogger(logger))
//
//	user, err := svc.GetUserByID(ctx, 1)   // store hit, cached under "user_1"
//	user, err = svc.GetUserByID(ctx, 1)    // served from cache
//	_, err = svc.EditUser(ctx, user)       // clears the namespace
//
// # Keys
//
//   - GetUserByID: "user_" followed by the id
//   - GetAllUsers: the serialized default identity, "GetAllUsers"
//   - SelectNowIDs: the serialized default identity, "SelectNowIDs"
//
// # Cached vs Pass-through Operations
//
// Cached: GetUserByID, GetAllUsers, SelectNowIDs.
//
// Pass-through: InsertUser, DeleteUser and EditUser (followed by a namespace
// clear on success), FindUsers, SelectUsersCount.
//
// # Absent Records
//
// A lookup that finds nothing is cached as a nil *users.User, the same way a
// present record would be. A row created by a writer that bypasses this
// service stays invisible to GetUserByID until the next mutation through the
// service clears the namespace.
//
// # Errors
//
// Store errors are returned unchanged and never trigger invalidation. When a
// mutation succeeds but the namespace cannot be cleared, the mutation result is
// returned together with a go-errors error in the external category carrying
// the InvalidationFailedCode text code.
package usercache
