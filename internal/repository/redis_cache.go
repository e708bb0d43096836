package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/blip-health/blipgate/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisCacheStore shares cached responses between gateway instances. Keys are
// hashed so raw credentials never appear in the redis keyspace.
type RedisCacheStore struct {
	client *RedisClient
	prefix string
}

func NewRedisCacheStore(client *RedisClient, prefix string) *RedisCacheStore {
	if prefix == "" {
		prefix = "blipgate:cache:"
	}
	return &RedisCacheStore{client: client, prefix: prefix}
}

func (s *RedisCacheStore) Get(ctx context.Context, key string) (*model.CacheEntry, bool, error) {
	raw, err := s.client.Client.Get(ctx, s.storageKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entry model.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, err
	}
	opened, ok := openEntry(&entry, key)
	return opened, ok, nil
}

func (s *RedisCacheStore) Set(ctx context.Context, entry *model.CacheEntry, ttl time.Duration) error {
	payload, err := json.Marshal(sealEntry(entry))
	if err != nil {
		return err
	}
	return s.client.Client.Set(ctx, s.storageKey(entry.Key), payload, ttl).Err()
}

func (s *RedisCacheStore) storageKey(key string) string {
	return s.prefix + hashCacheKey(key)
}
