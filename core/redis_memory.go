package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisNamespace prefixes every key written by RedisMemory.
const DefaultRedisNamespace = "storefront"

// RedisMemory implements Memory on top of Redis so short-lived state
// (one-time login codes) survives restarts and is shared between replicas.
type RedisMemory struct {
	client    *redis.Client
	namespace string
	logger    Logger
}

// RedisMemoryOptions configures the Redis-backed memory
type RedisMemoryOptions struct {
	RedisURL  string
	Namespace string
	Logger    Logger
}

// NewRedisMemory parses the URL, connects and pings the server.
func NewRedisMemory(opts RedisMemoryOptions) (*RedisMemory, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &NoOpLogger{}
	}

	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", ErrInvalidConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		logger.Error("Failed to parse Redis URL", map[string]interface{}{
			"error":      err,
			"error_type": fmt.Sprintf("%T", err),
		})
		return nil, fmt.Errorf("invalid Redis URL: %w", ErrInvalidConfiguration)
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", map[string]interface{}{
			"error":      err,
			"error_type": fmt.Sprintf("%T", err),
			"db":         redisOpt.DB,
		})
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis DB %d: %w", redisOpt.DB, ErrConnectionFailed)
	}

	rm := NewRedisMemoryFromClient(client, opts.Namespace, logger)
	logger.Info("Redis memory connected", map[string]interface{}{
		"db":        redisOpt.DB,
		"namespace": rm.namespace,
	})
	return rm, nil
}

// NewRedisMemoryFromClient wraps an existing client.
func NewRedisMemoryFromClient(client *redis.Client, namespace string, logger Logger) *RedisMemory {
	if namespace == "" {
		namespace = DefaultRedisNamespace
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &RedisMemory{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (r *RedisMemory) formatKey(key string) string {
	return r.namespace + ":" + key
}

// Get returns "" with no error for a missing key, matching MemoryStore.
func (r *RedisMemory) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.formatKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		r.logger.Error("Redis get failed", map[string]interface{}{
			"operation": "memory_get",
			"key":       key,
			"error":     err,
		})
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisMemory) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.formatKey(key), value, ttl).Err(); err != nil {
		r.logger.Error("Redis set failed", map[string]interface{}{
			"operation": "memory_set",
			"key":       key,
			"error":     err,
		})
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisMemory) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.formatKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (r *RedisMemory) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.formatKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

// HealthCheck pings the server.
func (r *RedisMemory) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check: %w", ErrConnectionFailed)
	}
	return nil
}

// Close closes the underlying connection pool.
func (r *RedisMemory) Close() error {
	return r.client.Close()
}

// NewMemory builds the Memory backend selected by the config.
func NewMemory(cfg MemoryConfig, logger Logger) (Memory, error) {
	switch cfg.Provider {
	case "redis":
		rm, err := NewRedisMemory(RedisMemoryOptions{
			RedisURL: cfg.RedisURL,
			Logger:   ComponentLogger(logger, "memory"),
		})
		if err != nil {
			return nil, err
		}
		return rm, nil
	case "", "inmemory":
		m := NewMemoryStore()
		m.SetLogger(ComponentLogger(logger, "memory"))
		return m, nil
	default:
		return nil, fmt.Errorf("unknown memory provider %q: %w", cfg.Provider, ErrInvalidConfiguration)
	}
}
