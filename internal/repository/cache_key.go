package repository

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/blip-health/blipgate/internal/model"
)

// Cache keys embed the caller's Authorization value. Stores only ever persist
// its digest, both as the storage key and inside the stored entry.
func hashCacheKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// sealEntry returns a copy of entry safe to persist.
func sealEntry(entry *model.CacheEntry) *model.CacheEntry {
	sealed := *entry
	sealed.Key = hashCacheKey(entry.Key)
	return &sealed
}

// openEntry restores the caller's key on an entry read back from storage. It
// reports false when the stored digest belongs to a different key.
func openEntry(entry *model.CacheEntry, key string) (*model.CacheEntry, bool) {
	if entry == nil || entry.Key != hashCacheKey(key) {
		return nil, false
	}
	entry.Key = key
	return entry, true
}
