package repository

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/blip-health/blipgate/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := &RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleEntry(key string, at time.Time) *model.CacheEntry {
	return &model.CacheEntry{
		Key:        key,
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"id":1}`),
		InsertedAt: at,
	}
}

func TestRedisCacheStoreRoundTripAndSegmentation(t *testing.T) {
	mr, client := newMiniRedis(t)
	store := NewRedisCacheStore(client, "test:")
	ctx := context.Background()

	keyA := model.CacheKey("/hospitals/1", "Basic alice")
	keyB := model.CacheKey("/hospitals/1", "Basic bob")
	require.NoError(t, store.Set(ctx, sampleEntry(keyA, time.Now()), time.Minute))

	got, ok, err := store.Get(ctx, keyA)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"id":1}`, string(got.Body))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))

	_, ok, err = store.Get(ctx, keyB)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, keyA, got.Key)
	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "alice")
		v, err := mr.Get(k)
		require.NoError(t, err)
		assert.NotContains(t, v, "alice")
	}

	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Get(ctx, keyA)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLevelDBCacheStoreExpiry(t *testing.T) {
	store, err := NewLevelDBCacheStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	key := model.CacheKey("/notes", "Bearer t")
	require.NoError(t, store.Set(ctx, sampleEntry(key, now), 30*time.Second))
	require.NoError(t, store.Set(ctx, sampleEntry("old", now.Add(-time.Hour)), 30*time.Second))

	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, got.StatusCode)

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	now = now.Add(31 * time.Second)
	_, ok, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLevelDBCacheStoreKeepsCredentialsOffDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLevelDBCacheStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	const credential = "Basic c2VjcmV0OnB3"
	key := model.CacheKey("/patients/3", credential)
	require.NoError(t, store.Set(ctx, sampleEntry(key, time.Now()), time.Minute))

	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, key, got.Key)

	_, ok, err = store.Get(ctx, model.CacheKey("/patients/3", "Basic b3RoZXI6cHc="))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Close())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		require.NoError(t, err)
		assert.False(t, bytes.Contains(data, []byte(credential)), "credential found in %s", f.Name())
	}
}
