package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// SturdycService is the in-memory cache backend.
//
// Every namespace owns a random version token that is part of each entry key.
// ClearNamespace swaps the token before deleting entries, so a fetch that read
// the old token and completes after the clear stores its value under a key no
// reader will ever build again.
type SturdycService struct {
	client *sturdyc.Client[any]
	tokens *xsync.MapOf[string, string]
	now    func() time.Time
}

// expiringValue wraps entries written through SetWithTTL.
type expiringValue struct {
	value     any
	expiresAt time.Time
}

// NewSturdycService creates a new sturdyc cache service adapter.
// It validates the configuration and initializes a sturdyc client with the provided settings.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycService{
		client: client,
		tokens: xsync.NewMapOf[string, string](),
		now:    time.Now,
	}, nil
}

func (s *SturdycService) namespaceToken(namespace string) string {
	token, _ := s.tokens.LoadOrCompute(namespace, uuid.NewString)
	return token
}

func (s *SturdycService) entryKey(namespace, key string) string {
	return namespace + keySeparator + s.namespaceToken(namespace) + keySeparator + key
}

// lookup returns a live entry, dropping it first when its explicit TTL elapsed.
func (s *SturdycService) lookup(entryKey string) (any, bool) {
	value, ok := s.client.Get(entryKey)
	if !ok {
		return nil, false
	}

	if ev, isExpiring := value.(expiringValue); isExpiring {
		if !s.now().Before(ev.expiresAt) {
			s.client.Delete(entryKey)
			return nil, false
		}
		return ev.value, true
	}
	return value, true
}

func unwrap(value any) any {
	if ev, ok := value.(expiringValue); ok {
		return ev.value
	}
	return value
}

// GetOrFetch implements cache.CacheService.GetOrFetch.
// Concurrent misses for the same key share a single fetchFn call. Every read
// goes through the sturdyc client so early refreshes, when configured, fire
// on hits.
func (s *SturdycService) GetOrFetch(ctx context.Context, namespace, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	entryKey := s.entryKey(namespace, key)
	fetch := func(ctx context.Context) (any, error) {
		return callFetchFunctionWithReflection(ctx, fetchFn)
	}

	result, err := s.client.GetOrFetch(ctx, entryKey, fetch)
	if err != nil {
		return nil, err
	}

	if ev, ok := result.(expiringValue); ok && !s.now().Before(ev.expiresAt) {
		s.client.Delete(entryKey)
		if result, err = s.client.GetOrFetch(ctx, entryKey, fetch); err != nil {
			return nil, err
		}
	}
	return unwrap(result), nil
}

// Get implements cache.CacheService.Get.
func (s *SturdycService) Get(ctx context.Context, namespace, key string, dest any) (bool, error) {
	value, ok := s.lookup(s.entryKey(namespace, key))
	if !ok {
		return false, nil
	}
	if err := assign(dest, value); err != nil {
		return false, err
	}
	return true, nil
}

// Set implements cache.CacheService.Set.
func (s *SturdycService) Set(ctx context.Context, namespace, key string, value any) error {
	s.client.Set(s.entryKey(namespace, key), value)
	return nil
}

// SetWithTTL implements cache.CacheService.SetWithTTL. A non-positive ttl behaves like Set.
func (s *SturdycService) SetWithTTL(ctx context.Context, namespace, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Set(ctx, namespace, key, value)
	}
	s.client.Set(s.entryKey(namespace, key), expiringValue{value: value, expiresAt: s.now().Add(ttl)})
	return nil
}

// Delete implements cache.CacheService.Delete.
func (s *SturdycService) Delete(ctx context.Context, namespace, key string) error {
	s.client.Delete(s.entryKey(namespace, key))
	return nil
}

// ClearNamespace implements cache.CacheService.ClearNamespace.
// The token swap is what invalidates; the scan only reclaims memory.
func (s *SturdycService) ClearNamespace(ctx context.Context, namespace string) error {
	s.tokens.Store(namespace, uuid.NewString())

	prefix := namespace + keySeparator
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}
