// Package redisstore keeps the save blobs in a single Redis hash so that
// a save can live on a shared host. It enforces the same byte quota as the
// SQLite store.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sskkslay-netizen/Bst/internal/domain"
)

// Config selects the Redis node and the hash holding the blobs.
type Config struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	// Hash is the key of the hash that stores every blob.
	Hash     string `toml:"hash"`
	MaxBytes int    `toml:"max_bytes"`
}

// DefaultConfig returns a local single-node config.
func DefaultConfig() Config {
	return Config{
		Addr:     "127.0.0.1:6379",
		Hash:     "bst:save",
		MaxBytes: 5 << 20,
	}
}

// Store is a BlobStore backed by Redis.
type Store struct {
	client   *redis.Client
	hash     string
	maxBytes int
}

// setScript measures every other field and writes only when the total
// stays within the quota. It returns the new total or -1 on rejection.
var setScript = redis.NewScript(`
local total = string.len(ARGV[1]) + string.len(ARGV[2])
for _, f in ipairs(redis.call('HKEYS', KEYS[1])) do
	if f ~= ARGV[1] then
		total = total + string.len(f) + redis.call('HSTRLEN', KEYS[1], f)
	end
end
local limit = tonumber(ARGV[3])
if limit > 0 and total > limit then
	return -1
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return total
`)

// Open connects and pings the server.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Hash == "" {
		cfg.Hash = DefaultConfig().Hash
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return &Store{client: client, hash: cfg.Hash, maxBytes: cfg.MaxBytes}, nil
}

// Get returns the blob stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.HGet(ctx, s.hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget %s: %w", key, err)
	}
	return val, true, nil
}

// Set writes the blob, rejecting it with ErrQuotaExceeded when the hash
// would grow past the quota.
func (s *Store) Set(ctx context.Context, key, value string) error {
	total, err := setScript.Run(ctx, s.client, []string{s.hash}, key, value, s.maxBytes).Int()
	if err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	if total < 0 {
		return fmt.Errorf("set %s (limit %d bytes): %w", key, s.maxBytes, domain.ErrQuotaExceeded)
	}
	return nil
}

// Delete removes a blob.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.HDel(ctx, s.hash, key).Err()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
