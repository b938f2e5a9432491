package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidResultType is returned when a cached value cannot be asserted to the requested type.
var ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

// KeySerializer builds a cache key from a method name + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes namespaced read-through caching. Every entry lives in a
// namespace; ClearNamespace drops all entries of a namespace at once, including
// values written by fetches that were still in flight when it was called.
type CacheService interface {
	GetOrFetch(ctx context.Context, namespace, key string, fetchFn any) (any, error)
	// Get decodes the cached value into dest, a non-nil pointer. It reports false on a miss.
	Get(ctx context.Context, namespace, key string, dest any) (bool, error)
	Set(ctx context.Context, namespace, key string, value any) error
	// SetWithTTL stores value with an explicit time-to-live instead of the backend default.
	SetWithTTL(ctx context.Context, namespace, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, namespace, key string) error
	ClearNamespace(ctx context.Context, namespace string) error
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, namespace, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T

	result, err := service.GetOrFetch(ctx, namespace, key, fetchFn)
	if err != nil {
		return zero, err
	}

	// a nil interface is a valid cached result for pointer, slice and interface types
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %T", ErrInvalidResultType, result, zero)
	}
	return typed, nil
}

// Get is the generic counterpart of CacheService.Get.
func Get[T any](ctx context.Context, service CacheService, namespace, key string) (T, bool, error) {
	var value T
	found, err := service.Get(ctx, namespace, key, &value)
	if err != nil || !found {
		var zero T
		return zero, false, err
	}
	return value, true, nil
}
