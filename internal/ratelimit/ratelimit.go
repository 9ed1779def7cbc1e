// Package ratelimit provides an in-memory token-bucket limiter keyed by
// caller identity, used to shield the backend from request floods. Approach
// combinations amplify one client request into many backend calls, so the
// limit applies at the gateway edge.
package ratelimit

import (
	"net/http"
	"sync"
	"time"
)

// Bucket is a single token-bucket limiter.
type Bucket struct {
	mu         sync.Mutex
	rate       float64 // tokens added per second
	burst      float64 // maximum token capacity
	tokens     float64
	lastRefill time.Time
}

// NewBucket creates a Bucket allowing ratePerSecond requests/s with the
// given burst capacity. A non-positive burst defaults to the rate.
func NewBucket(ratePerSecond, burst float64) *Bucket {
	if burst <= 0 {
		burst = ratePerSecond
	}
	return &Bucket{
		rate:       ratePerSecond,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token and reports whether the request is permitted.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens--
		return true
	}
	return false
}

// Store maintains one bucket per caller key, all sharing the same
// rate/burst settings.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket
	rate    float64
	burst   float64
}

// NewStore creates an empty Store.
func NewStore(ratePerSecond, burst float64) *Store {
	return &Store{
		buckets: make(map[string]*Bucket),
		rate:    ratePerSecond,
		burst:   burst,
	}
}

// Allow checks (and lazily creates) the bucket for key.
func (s *Store) Allow(key string) bool {
	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()
	if ok {
		return b.Allow()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.buckets[key]; ok {
		return b.Allow()
	}
	b = NewBucket(s.rate, s.burst)
	s.buckets[key] = b
	return b.Allow()
}

// KeyFunc derives the limiter key for a request, typically the bearer
// token or the remote address.
type KeyFunc func(r *http.Request) string

// Middleware rejects requests over the per-key limit with 429. A nil store
// disables limiting.
func Middleware(store *Store, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || store.Allow(key(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`))
		})
	}
}
