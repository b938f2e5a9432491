package usercache

import (
	"context"
	"io"
	"slices"
	"strconv"
	"sync/atomic"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-user-cache/cache"
	"github.com/goliatone/go-user-cache/users"
	"github.com/sirupsen/logrus"
)

const (
	// Namespace groups every entry written by CachedService.
	Namespace = "aboutUser"

	// InvalidationFailedCode tags errors returned when a mutation succeeded
	// but the namespace could not be cleared.
	InvalidationFailedCode = "CACHE_INVALIDATION_FAILED"

	userKeyPrefix = "user_"
)

var _ users.Service = (*CachedService)(nil)

// Stats is a snapshot of the read-through counters.
type Stats struct {
	Hits          int64
	Misses        int64
	Invalidations int64
}

// CachedService decorates a users.Store with read-through caching for lookups
// and namespace invalidation for mutations.
type CachedService struct {
	store         users.Store
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	logger        logrus.FieldLogger

	reads         atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
}

// Option configures a CachedService.
type Option func(*CachedService)

// WithKeySerializer overrides how default operation keys are built.
func WithKeySerializer(serializer cache.KeySerializer) Option {
	return func(s *CachedService) {
		if serializer != nil {
			s.keySerializer = serializer
		}
	}
}

// WithLogger sets the logger used for cache events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *CachedService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New wraps store with the given cache service.
func New(store users.Store, cacheService cache.CacheService, opts ...Option) *CachedService {
	s := &CachedService{
		store:         store,
		cache:         cacheService,
		keySerializer: cache.NewDefaultKeySerializer(),
		logger:        discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserKey is the cache key of a single-record lookup.
func UserKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

// GetUserByID returns the user with the given id, or nil when the store has none.
// Absent results are cached like present ones.
func (s *CachedService) GetUserByID(ctx context.Context, id int64) (*users.User, error) {
	return readThrough(ctx, s, "GetUserByID", UserKey(id), (*users.User).Clone, func(ctx context.Context) (*users.User, error) {
		return s.store.SelectByPrimaryKey(ctx, id)
	})
}

// GetAllUsers returns every user.
func (s *CachedService) GetAllUsers(ctx context.Context) ([]*users.User, error) {
	return readThrough(ctx, s, "GetAllUsers", s.keySerializer.SerializeKey("GetAllUsers"), users.CloneAll, s.store.SelectAll)
}

// SelectNowIDs returns the ids of every user.
func (s *CachedService) SelectNowIDs(ctx context.Context) ([]int64, error) {
	return readThrough(ctx, s, "SelectNowIDs", s.keySerializer.SerializeKey("SelectNowIDs"), slices.Clone[[]int64], s.store.SelectIDs)
}

// InsertUser stores user, which receives its assigned ID, and clears the namespace.
func (s *CachedService) InsertUser(ctx context.Context, user *users.User) (*users.User, error) {
	if err := s.store.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, s.invalidate(ctx, "InsertUser")
}

// DeleteUser removes the user and clears the namespace. It returns the number of rows deleted.
func (s *CachedService) DeleteUser(ctx context.Context, id int64) (int64, error) {
	affected, err := s.store.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	return affected, s.invalidate(ctx, "DeleteUser")
}

// EditUser updates the user and clears the namespace. It returns the number of rows updated.
func (s *CachedService) EditUser(ctx context.Context, user *users.User) (int64, error) {
	affected, err := s.store.Update(ctx, user)
	if err != nil {
		return 0, err
	}
	return affected, s.invalidate(ctx, "EditUser")
}

// FindUsers runs a keyword search. Results are never cached.
func (s *CachedService) FindUsers(ctx context.Context, keyword string) ([]*users.User, error) {
	return s.store.Find(ctx, keyword)
}

// SelectUsersCount returns the number of users. The count is not cached here;
// see countcache for the caller-side cache.
func (s *CachedService) SelectUsersCount(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// Stats returns the counters accumulated since the service was created.
func (s *CachedService) Stats() Stats {
	reads := s.reads.Load()
	misses := s.misses.Load()
	return Stats{
		Hits:          reads - misses,
		Misses:        misses,
		Invalidations: s.invalidations.Load(),
	}
}

// readThrough hands callers a copy made by clone, so changes to a returned
// value never reach the cached one.
func readThrough[T any](ctx context.Context, s *CachedService, operation, key string, clone func(T) T, fetch cache.FetchFn[T]) (T, error) {
	s.reads.Add(1)

	var missed atomic.Bool
	result, err := cache.GetOrFetch(ctx, s.cache, Namespace, key, func(ctx context.Context) (T, error) {
		missed.Store(true)
		s.misses.Add(1)
		return fetch(ctx)
	})

	if err != nil {
		return result, err
	}

	s.logger.WithFields(logrus.Fields{
		"operation": operation,
		"namespace": Namespace,
		"key":       key,
		"hit":       !missed.Load(),
	}).Debug("user cache read")
	return clone(result), nil
}

func (s *CachedService) invalidate(ctx context.Context, operation string) error {
	if err := s.cache.ClearNamespace(ctx, Namespace); err != nil {
		s.logger.WithFields(logrus.Fields{
			"operation": operation,
			"namespace": Namespace,
		}).WithError(err).Error("namespace invalidation failed")

		return goerrors.Wrap(err, goerrors.CategoryExternal, operation+": cache invalidation failed").
			WithTextCode(InvalidationFailedCode).
			WithMetadata(map[string]any{"namespace": Namespace})
	}

	s.invalidations.Add(1)
	return nil
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
