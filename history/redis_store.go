package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-based implementation of Store. Suitable when
// multiple hosts share one learning cache. Each entry is a hash keyed by
// (origin, normalized target); the success counter uses HIncrBy so that
// concurrent upserts stay monotonic, selector and timestamp are
// last-writer-wins.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a new Redis-based history store.
func NewRedisStore(config StoreConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
		PoolSize: config.Redis.PoolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := config.Redis.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "webpilot:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "history:",
	}, nil
}

func (s *RedisStore) entryKey(origin, target string) string {
	return s.keyPrefix + key(origin, target)
}

// Get returns the entry for (origin, target), or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, origin, target string) (*Entry, error) {
	fields, err := s.client.HGetAll(ctx, s.entryKey(origin, target)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history entry: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	count, _ := strconv.ParseInt(fields["success_count"], 10, 64)
	lastSuccess, _ := time.Parse(time.RFC3339Nano, fields["last_success"])

	return &Entry{
		Origin:       origin,
		Target:       NormalizeTarget(target),
		Selector:     fields["selector"],
		SuccessCount: count,
		LastSuccess:  lastSuccess,
	}, nil
}

// Upsert records a successful selector use.
func (s *RedisStore) Upsert(ctx context.Context, origin, target, selector string) error {
	if origin == "" || target == "" || selector == "" {
		return ErrInvalidInput
	}

	k := s.entryKey(origin, target)
	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, k, "success_count", 1)
	pipe.HSet(ctx, k,
		"selector", selector,
		"last_success", time.Now().Format(time.RFC3339Nano),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert history entry: %w", err)
	}
	return nil
}

// Ping checks if the store is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
