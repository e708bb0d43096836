package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/blip-health/blipgate/internal/model"
	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDBCacheStore keeps cached responses on local disk so a restarted
// single-node gateway does not start cold. Neither the LevelDB key nor the
// stored record holds the raw cache key, which embeds the caller's credential.
type LevelDBCacheStore struct {
	db  *leveldb.DB
	now func() time.Time
}

type leveldbRecord struct {
	Entry     *model.CacheEntry `json:"entry"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func NewLevelDBCacheStore(path string) (*LevelDBCacheStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBCacheStore{db: db, now: time.Now}, nil
}

func (s *LevelDBCacheStore) Close() error {
	return s.db.Close()
}

func (s *LevelDBCacheStore) Get(ctx context.Context, key string) (*model.CacheEntry, bool, error) {
	dbKey := []byte(hashCacheKey(key))
	raw, err := s.db.Get(dbKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rec leveldbRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, err
	}
	if rec.Entry == nil || !s.now().Before(rec.ExpiresAt) {
		_ = s.db.Delete(dbKey, nil)
		return nil, false, nil
	}
	entry, ok := openEntry(rec.Entry, key)
	return entry, ok, nil
}

func (s *LevelDBCacheStore) Set(ctx context.Context, entry *model.CacheEntry, ttl time.Duration) error {
	payload, err := json.Marshal(leveldbRecord{Entry: sealEntry(entry), ExpiresAt: entry.InsertedAt.Add(ttl)})
	if err != nil {
		return err
	}
	return s.db.Put([]byte(hashCacheKey(entry.Key)), payload, nil)
}

// Sweep deletes expired records and returns how many were removed.
func (s *LevelDBCacheStore) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(nil, nil)
	for iter.Next() {
		if ctx.Err() != nil {
			break
		}
		var rec leveldbRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil || !now.Before(rec.ExpiresAt) {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			batch.Delete(key)
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return 0, err
	}
	if batch.Len() == 0 {
		return 0, nil
	}
	return batch.Len(), s.db.Write(batch, nil)
}
