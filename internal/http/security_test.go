package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name     string
		remote   string
		xff      string
		expected string
	}{
		{"direct client", "203.0.113.5:4000", "", "203.0.113.5"},
		{"untrusted peer cannot spoof", "203.0.113.5:4000", "1.2.3.4", "203.0.113.5"},
		{"trusted proxy forwards", "10.0.0.2:4000", "198.51.100.7, 10.0.0.2", "198.51.100.7"},
		{"trusted proxy with garbage header", "127.0.0.1:4000", "not-an-ip", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(r); got != tt.expected {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	m := &securityMetrics{}
	if detectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/transactions?q=market", nil), m) {
		t.Error("normal request flagged")
	}
	if !detectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/.env", nil), m) {
		t.Error("probe not flagged")
	}
	if !detectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/transactions?q=1%20UNION%20SELECT", nil), m) {
		t.Error("injection not flagged")
	}
	if m.suspiciousRequests != 2 {
		t.Errorf("suspiciousRequests = %d, want 2", m.suspiciousRequests)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := &rateLimiter{
		clients: make(map[string]*clientInfo),
		limit:   2,
		window:  time.Minute,
		now:     func() time.Time { return now },
	}
	m := &securityMetrics{}

	if !rl.allow("a", m) || !rl.allow("a", m) {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a", m) {
		t.Fatal("third request should be limited")
	}
	if !rl.allow("b", m) {
		t.Fatal("other clients are independent")
	}
	if m.rateLimitHits != 1 {
		t.Fatalf("rateLimitHits = %d", m.rateLimitHits)
	}

	now = now.Add(2 * time.Minute)
	if !rl.allow("a", m) {
		t.Fatal("new window should reset the count")
	}

	now = now.Add(time.Hour)
	if removed := rl.cleanupStaleEntries(); removed != 2 {
		t.Fatalf("expected both clients cleaned, got %d", removed)
	}
}

func TestRateLimiterRetryAfter(t *testing.T) {
	tests := []struct {
		window time.Duration
		want   string
	}{
		{time.Minute, "60"},
		{15 * time.Second, "15"},
		{1500 * time.Millisecond, "2"},
		{100 * time.Millisecond, "1"},
		{0, "1"},
	}
	for _, tt := range tests {
		rl := &rateLimiter{window: tt.window}
		if got := rl.retryAfter(); got != tt.want {
			t.Errorf("retryAfter() with window %v = %q, want %q", tt.window, got, tt.want)
		}
	}
}
