package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		if !rl.Allow("pin", 3, time.Minute) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("pin", 3, time.Minute) {
		t.Error("4th request should be denied")
	}
	if !rl.Allow("other", 3, time.Minute) {
		t.Error("separate key should have its own window")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("k", 1, time.Minute)
	if rl.Allow("k", 1, time.Minute) {
		t.Fatal("second request in window should be denied")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("k", 1, time.Minute) {
		t.Error("request after window should be allowed")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("expired", 5, time.Second)
	rl.Allow("active", 5, time.Hour)

	now = now.Add(time.Minute)
	rl.Cleanup()

	if got := rl.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1", got)
	}
	if _, ok := rl.windows["active"]; !ok {
		t.Error("active window should survive cleanup")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	handler := RateLimit(rl, ByIP, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/role", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/role", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("3rd request: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		trust   bool
		want    string
	}{
		{"cloudflare untrusted", map[string]string{"CF-Connecting-IP": "1.1.1.1"}, "3.3.3.3:1234", false, "3.3.3.3"},
		{"forwarded untrusted", map[string]string{"X-Forwarded-For": "2.2.2.2"}, "3.3.3.3:1234", false, "3.3.3.3"},
		{"cloudflare behind proxy", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, "3.3.3.3:1234", true, "1.1.1.1"},
		{"forwarded chain behind proxy", map[string]string{"X-Forwarded-For": "2.2.2.2, 10.0.0.1"}, "3.3.3.3:1234", true, "2.2.2.2"},
		{"ipv6 behind proxy", map[string]string{"X-Forwarded-For": "2001:db8::1"}, "3.3.3.3:1234", true, "2001:db8::1"},
		{"no headers behind proxy", nil, "3.3.3.3:1234", true, "3.3.3.3"},
		{"remote without port", nil, "3.3.3.3", false, "3.3.3.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			var got string
			var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = RealIP(r)
			})
			if tt.trust {
				h = ProxyHeaders(h)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("RealIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitIgnoresSpoofedForwarding(t *testing.T) {
	rl := NewRateLimiter()
	handler := RateLimit(rl, ByIP, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/api/role", nil)
		req.RemoteAddr = "5.5.5.5:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request: status = %d, want 429", last)
	}
}

func TestByIPAndPath(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/suggestions/rules", nil)
	req.RemoteAddr = "9.9.9.9:80"
	if got := ByIPAndPath(req); got != "9.9.9.9 /api/suggestions/rules" {
		t.Errorf("ByIPAndPath = %q", got)
	}
}
