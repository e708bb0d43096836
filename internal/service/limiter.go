package service

import (
	"crypto/sha256"
	"sync"

	"golang.org/x/time/rate"
)

const maxTrackedCredentials = 10000

// CredentialLimiter keeps one token bucket per Authorization value.
type CredentialLimiter struct {
	mu       sync.Mutex
	limiters map[[sha256.Size]byte]*rate.Limiter // Key: sha256(credential)
	limit    rate.Limit
	burst    int
}

// NewCredentialLimiter returns nil when qps <= 0; a nil limiter allows everything.
func NewCredentialLimiter(qps float64, burst int) *CredentialLimiter {
	if qps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &CredentialLimiter{
		limiters: make(map[[sha256.Size]byte]*rate.Limiter),
		limit:    rate.Limit(qps),
		burst:    burst,
	}
}

func (l *CredentialLimiter) Allow(credential string) bool {
	if l == nil {
		return true
	}
	return l.limiterFor(credential).Allow()
}

func (l *CredentialLimiter) limiterFor(credential string) *rate.Limiter {
	key := sha256.Sum256([]byte(credential))

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	// 简单兜底: 凭证过多时整体重置, 避免内存无限增长
	if len(l.limiters) >= maxTrackedCredentials {
		l.limiters = make(map[[sha256.Size]byte]*rate.Limiter)
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters[key] = lim
	return lim
}
