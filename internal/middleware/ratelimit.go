package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RealIP returns the host part of the client address. Forwarding headers are
// only honoured through ProxyHeaders.
func RealIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ProxyHeaders rewrites RemoteAddr from CF-Connecting-IP or the first hop of
// X-Forwarded-For. Mount it only when the service sits behind a proxy that
// sets those headers; otherwise any client could pick its own address and
// slip past the rate limits.
func ProxyHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("CF-Connecting-IP")
		if ip == "" {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				ip = strings.TrimSpace(first)
			}
		}
		if ip != "" {
			r.RemoteAddr = net.JoinHostPort(ip, "0")
		}
		next.ServeHTTP(w, r)
	})
}

// ByIP keys a rate limit on the client address.
func ByIP(r *http.Request) string {
	return RealIP(r)
}

// ByIPAndPath keys a rate limit on the client address and request path, so
// one noisy endpoint does not starve another.
func ByIPAndPath(r *http.Request) string {
	return RealIP(r) + " " + r.URL.Path
}

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests per key in fixed windows, in memory.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow reports whether key is still under limit for the current window.
func (rl *RateLimiter) Allow(key string, limit int, period time.Duration) bool {
	_, ok := rl.allow(key, limit, period)
	return ok
}

func (rl *RateLimiter) allow(key string, limit int, period time.Duration) (time.Time, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(period)}
		rl.windows[key] = w
		return w.resetAt, true
	}
	w.count++
	return w.resetAt, w.count <= limit
}

// Cleanup drops windows that have already expired.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		if now.After(w.resetAt) {
			delete(rl.windows, key)
		}
	}
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// RateLimit returns middleware that answers 429 once keyFunc's key exceeds
// limit requests within period.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, period time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resetAt, ok := limiter.allow(keyFunc(r), limit, period)
			if !ok {
				secs := int(resetAt.Sub(limiter.now()).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
