package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// RateLimiter is an in-process fixed-window limiter used when Redis is not configured.
type RateLimiter struct {
	limit   int
	window  time.Duration
	keyFunc KeyFunc
	now     func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	count     int
	resetTime time.Time
}

func NewRateLimiter(limit int, window time.Duration, keyFunc KeyFunc) *RateLimiter {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	return &RateLimiter{
		limit:    limit,
		window:   window,
		keyFunc:  keyFunc,
		now:      time.Now,
		visitors: map[string]*visitor{},
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(rl.keyFunc(r)) {
				w.Header().Set("Retry-After", retryAfter(rl.window))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v := rl.visitors[key]
	if v == nil || now.After(v.resetTime) {
		rl.visitors[key] = &visitor{count: 1, resetTime: now.Add(rl.window)}
		rl.sweep(now)
		return true
	}
	if v.count >= rl.limit {
		return false
	}
	v.count++
	return true
}

// sweep drops expired buckets once the map grows past a small bound.
func (rl *RateLimiter) sweep(now time.Time) {
	if len(rl.visitors) < 1024 {
		return
	}
	for k, v := range rl.visitors {
		if now.After(v.resetTime) {
			delete(rl.visitors, k)
		}
	}
}

// ClientIP keys by the first X-Forwarded-For hop, falling back to the peer address.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		parts := strings.Split(ip, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
