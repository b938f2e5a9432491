package di

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/go-user-cache/cache"
	"github.com/goliatone/go-user-cache/pkg/config"
	"github.com/goliatone/go-user-cache/pkg/countcache"
)

func TestNewContainer(t *testing.T) {
	cfg := cache.Config{
		Backend:            cache.BackendMemory,
		Capacity:           1000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &cache.EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		MissingRecordStorage: true,
	}

	container, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	if container.CacheService() == nil {
		t.Error("Container should have a non-nil cache service")
	}
	if container.KeySerializer() == nil {
		t.Error("Container should have a non-nil key serializer")
	}

	stored := container.Config()
	if stored.Capacity != cfg.Capacity {
		t.Errorf("Expected capacity %d, got %d", cfg.Capacity, stored.Capacity)
	}
	if stored.TTL != cfg.TTL {
		t.Errorf("Expected TTL %v, got %v", cfg.TTL, stored.TTL)
	}
	if err := container.Close(); err != nil {
		t.Errorf("Close() on the memory backend should be a no-op, got %v", err)
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	cfg := container.Config()
	def := cache.DefaultConfig()
	if cfg.Backend != def.Backend || cfg.Capacity != def.Capacity || cfg.TTL != def.TTL {
		t.Errorf("Expected default configuration, got %+v", cfg)
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	invalid := cache.DefaultConfig()
	invalid.Capacity = 0

	container, err := NewContainer(invalid)
	if err == nil {
		t.Error("NewContainer() should fail with invalid config")
	}
	if container != nil {
		t.Error("NewContainer() should not return a container on failure")
	}
}

func TestNewContainer_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := cache.DefaultConfig()
	cfg.Backend = cache.BackendRedis
	cfg.Redis.Addr = mr.Addr()

	container, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	ctx := context.Background()
	if err := container.CacheService().Set(ctx, "ns", "k", "v"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if len(mr.Keys()) == 0 {
		t.Error("Expected the container to write through to redis")
	}

	if err := container.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
}

func TestNewContainerFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Count.TTL = 10 * time.Minute

	container, err := NewContainerFromConfig(&cfg, nil)
	if err != nil {
		t.Fatalf("NewContainerFromConfig() failed: %v", err)
	}

	counts := container.NewCountCache(countFunc(func(ctx context.Context) (int64, error) { return 1, nil }))
	if counts.TTL() != 10*time.Minute {
		t.Errorf("Expected count ttl from config, got %v", counts.TTL())
	}
	if counts.Key() != "SelectUsersCount::10m0s" {
		t.Errorf("Expected the count key to carry the ttl, got %q", counts.Key())
	}
}

type upperSerializer struct{ cache.KeySerializer }

func (u upperSerializer) SerializeKey(method string, args ...any) string {
	return strings.ToUpper(u.KeySerializer.SerializeKey(method, args...))
}

func TestContainerSharesKeySerializerWithCountCache(t *testing.T) {
	container, err := NewContainer(cache.DefaultConfig(),
		WithKeySerializer(upperSerializer{cache.NewDefaultKeySerializer()}),
		WithCountTTL(90*time.Second),
	)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	counts := container.NewCountCache(countFunc(func(ctx context.Context) (int64, error) { return 6, nil }))
	if counts.Key() != "SELECTUSERSCOUNT::1M30S" {
		t.Errorf("Expected the container serializer to build the count key, got %q", counts.Key())
	}

	ctx := context.Background()
	if _, err := counts.Count(ctx); err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	total, found, err := cache.Get[int64](ctx, container.CacheService(), countcache.Namespace, counts.Key())
	if err != nil || !found || total != 6 {
		t.Errorf("Expected the count under the serialized key, got %d found=%v err=%v", total, found, err)
	}
}

func TestContainerSingletonBehavior(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	if container.CacheService() != container.CacheService() {
		t.Error("CacheService() should return the same instance")
	}
	if container.KeySerializer() != container.KeySerializer() {
		t.Error("KeySerializer() should return the same instance")
	}
}

func TestKeySerializerIntegration(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	keySerializer := container.KeySerializer()

	testCases := []struct {
		name     string
		method   string
		args     []any
		expected string
	}{
		{name: "no args", method: "GetAllUsers", args: []any{}, expected: "GetAllUsers"},
		{name: "single id", method: "GetUserByID", args: []any{int64(7)}, expected: "GetUserByID::7"},
		{name: "multiple args", method: "FindUsers", args: []any{"ada", 10, true}, expected: "FindUsers::ada::10::true"},
		{name: "nil arg", method: "SelectNowIDs", args: []any{nil}, expected: "SelectNowIDs::nil"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := keySerializer.SerializeKey(tc.method, tc.args...)
			if result != tc.expected {
				t.Errorf("Expected key %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestCacheServiceIntegration(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	cacheService := container.CacheService()
	ctx := context.Background()

	fetchFn := func(ctx context.Context) (string, error) {
		return "test-value", nil
	}

	result, err := cacheService.GetOrFetch(ctx, "test-ns", "test-key", fetchFn)
	if err != nil {
		t.Fatalf("GetOrFetch() failed: %v", err)
	}
	if result != "test-value" {
		t.Errorf("Expected value %q, got %q", "test-value", result)
	}

	if err := cacheService.Delete(ctx, "test-ns", "test-key"); err != nil {
		t.Errorf("Delete() failed: %v", err)
	}

	var value string
	found, err := cacheService.Get(ctx, "test-ns", "test-key", &value)
	if err != nil || found {
		t.Errorf("Expected a miss after Delete(), got found=%v err=%v", found, err)
	}
}

type countFunc func(ctx context.Context) (int64, error)

func (f countFunc) SelectUsersCount(ctx context.Context) (int64, error) { return f(ctx) }

var _ countcache.Counter = countFunc(nil)
