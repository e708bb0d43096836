package model

import (
	"net/http"
	"time"
)

// CacheEntry is a fully buffered upstream response held by the response cache.
type CacheEntry struct {
	Key        string      `json:"key"`
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	InsertedAt time.Time   `json:"inserted_at"`
}

func (e *CacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	return !now.Before(e.InsertedAt.Add(ttl))
}

// CacheKey segments the cache per caller: the same path fetched with two
// different credentials never shares an entry. NUL cannot occur in a request
// path or header value, so the split point is unambiguous.
func CacheKey(path, authorization string) string {
	return path + "\x00" + authorization
}
