// Package cache provides the namespaced cache abstraction and key serialization
// used by the user data-access layer.
//
// # Overview
//
// The package exports two interfaces and their default implementations:
//
//   - CacheService: namespaced read-through caching with whole-namespace invalidation
//   - KeySerializer: builds stable cache keys from method names and arguments
//
// NewCacheService returns either the in-memory sturdyc backend or the Redis
// backend depending on Config.Backend.
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//
//	user, err := cache.GetOrFetch(ctx, svc, "aboutUser", "user_1", func(ctx context.Context) (*users.User, error) {
//		return store.SelectByPrimaryKey(ctx, 1)
//	})
//
// # Namespaces
//
// Every namespace carries a version token that is part of each entry key.
// ClearNamespace replaces the token before reclaiming entries, so a fetch that
// was in flight when the namespace was cleared writes its result under a key
// nobody reads anymore. Readers never observe data older than the last clear
// that completed before their read started.
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection to handle various Go types:
//
//   - Function pointers: Uses %p formatting for stability within a process
//   - Basic types: Direct string representation
//   - Slices/arrays: Recursive serialization of elements
//   - Maps: Sorted key-value pairs for deterministic output
//   - Structs: Exported fields with name:value pairs
//   - Complex types: JSON fallback
//
// Segments longer than 128 bytes are replaced by their xxhash digest so that
// free-text arguments keep keys short. A call without arguments serializes to
// the bare method name.
//
// Function pointers are stable only within a single process lifetime. With the
// Redis backend keys are shared across processes, so only pass arguments with a
// stable textual form.
package cache
