package cacheinfra

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// RedisService is the Redis cache backend. Values are msgpack encoded.
//
// Layout per namespace:
//
//	<ns>~token              current version token
//	<ns>~keys               set of entry keys written under any token
//	<ns>:<token>:<key>      entries
//
// ClearNamespace rotates the token and then deletes every indexed entry.
type RedisService struct {
	client   redis.UniversalClient
	entryTTL time.Duration
	logger   logrus.FieldLogger
}

// NewRedisService builds a Redis backend from cfg.Redis.
func NewRedisService(cfg Config, logger logrus.FieldLogger) (*RedisService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	return NewRedisServiceWithClient(client, cfg.Redis.EntryTTL, logger), nil
}

// NewRedisServiceWithClient wraps an existing client.
func NewRedisServiceWithClient(client redis.UniversalClient, entryTTL time.Duration, logger logrus.FieldLogger) *RedisService {
	if logger == nil {
		logger = discardLogger()
	}
	return &RedisService{client: client, entryTTL: entryTTL, logger: logger}
}

// Ping checks connectivity with the server.
func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisService) Close() error {
	return s.client.Close()
}

func tokenKey(namespace string) string { return namespace + "~token" }

func indexKey(namespace string) string { return namespace + "~keys" }

func redisEntryKey(namespace, token, key string) string {
	return namespace + ":" + token + ":" + key
}

func (s *RedisService) namespaceToken(ctx context.Context, namespace string) (string, error) {
	token, err := s.client.Get(ctx, tokenKey(namespace)).Result()
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", err
	}

	// first writer wins, everybody re-reads the winner
	if err := s.client.SetNX(ctx, tokenKey(namespace), uuid.NewString(), 0).Err(); err != nil {
		return "", err
	}
	return s.client.Get(ctx, tokenKey(namespace)).Result()
}

func (s *RedisService) entryKey(ctx context.Context, namespace, key string) (string, error) {
	token, err := s.namespaceToken(ctx, namespace)
	if err != nil {
		return "", err
	}
	return redisEntryKey(namespace, token, key), nil
}

func (s *RedisService) store(ctx context.Context, namespace, entryKey string, value any, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entryKey, data, ttl)
		pipe.SAdd(ctx, indexKey(namespace), entryKey)
		return nil
	})
	return err
}

func decodeAs(data []byte, typ reflect.Type) (any, error) {
	ptr := reflect.New(typ)
	if err := msgpack.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

// GetOrFetch implements cache.CacheService.GetOrFetch. Redis failures never
// fail the read: the value is fetched from the source and the error is logged.
func (s *RedisService) GetOrFetch(ctx context.Context, namespace, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{"namespace": namespace, "key": key})

	entryKey, err := s.entryKey(ctx, namespace, key)
	if err != nil {
		log.WithError(err).Warn("cache token unavailable, reading through")
		return callFetchFunctionWithReflection(ctx, fetchFn)
	}

	data, err := s.client.Get(ctx, entryKey).Bytes()
	switch {
	case err == nil:
		value, decodeErr := decodeAs(data, fetchResultType(fetchFn))
		if decodeErr == nil {
			return value, nil
		}
		log.WithError(decodeErr).Warn("discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		log.WithError(err).Warn("cache read failed, reading through")
		return callFetchFunctionWithReflection(ctx, fetchFn)
	}

	result, err := callFetchFunctionWithReflection(ctx, fetchFn)
	if err != nil {
		return nil, err
	}

	if err := s.store(ctx, namespace, entryKey, result, s.entryTTL); err != nil {
		log.WithError(err).Warn("cache populate failed")
	}
	return result, nil
}

// Get implements cache.CacheService.Get.
func (s *RedisService) Get(ctx context.Context, namespace, key string, dest any) (bool, error) {
	entryKey, err := s.entryKey(ctx, namespace, key)
	if err != nil {
		return false, err
	}

	data, err := s.client.Get(ctx, entryKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := msgpack.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set implements cache.CacheService.Set.
func (s *RedisService) Set(ctx context.Context, namespace, key string, value any) error {
	return s.SetWithTTL(ctx, namespace, key, value, s.entryTTL)
}

// SetWithTTL implements cache.CacheService.SetWithTTL. A non-positive ttl uses the entry default.
func (s *RedisService) SetWithTTL(ctx context.Context, namespace, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.entryTTL
	}

	entryKey, err := s.entryKey(ctx, namespace, key)
	if err != nil {
		return err
	}
	return s.store(ctx, namespace, entryKey, value, ttl)
}

// Delete implements cache.CacheService.Delete.
func (s *RedisService) Delete(ctx context.Context, namespace, key string) error {
	entryKey, err := s.entryKey(ctx, namespace, key)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, entryKey)
		pipe.SRem(ctx, indexKey(namespace), entryKey)
		return nil
	})
	return err
}

// ClearNamespace implements cache.CacheService.ClearNamespace. Once the token
// is rotated the namespace is invalidated; failures while reclaiming the old
// entries are only logged since those entries are already unreachable.
func (s *RedisService) ClearNamespace(ctx context.Context, namespace string) error {
	if err := s.client.Set(ctx, tokenKey(namespace), uuid.NewString(), 0).Err(); err != nil {
		return err
	}

	log := s.logger.WithField("namespace", namespace)

	keys, err := s.client.SMembers(ctx, indexKey(namespace)).Result()
	if err != nil {
		log.WithError(err).Warn("cannot list namespace entries")
		return nil
	}

	keys = append(keys, indexKey(namespace))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		log.WithError(err).Warn("cannot delete namespace entries")
	}
	return nil
}
