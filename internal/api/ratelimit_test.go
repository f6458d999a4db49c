package api

import (
	"net/http/httptest"
	"testing"
	"time"
)

// TestIPRateLimiterAllow enforces the per-IP budget
func TestIPRateLimiterAllow(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             2,
		CleanupInterval:   time.Minute,
	})
	defer rl.Stop()

	if !rl.Allow("10.0.0.1") {
		t.Error("Expected first request to pass")
	}
	if !rl.Allow("10.0.0.1") {
		t.Error("Expected burst request to pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("Expected third request to be rejected")
	}

	// A different IP has its own budget.
	if !rl.Allow("10.0.0.2") {
		t.Error("Expected a fresh IP to pass")
	}

	stats := rl.GetStats()
	if stats["allowed"] != 3 || stats["rejected"] != 1 {
		t.Errorf("Expected 3 allowed / 1 rejected, got %d / %d", stats["allowed"], stats["rejected"])
	}
}

// TestWebSocketRateLimiter caps concurrent connections per IP
func TestWebSocketRateLimiter(t *testing.T) {
	wrl := NewWebSocketRateLimiter(2)

	if !wrl.Allow("10.0.0.1") || !wrl.Allow("10.0.0.1") {
		t.Fatal("Expected two connections to fit")
	}
	if wrl.Allow("10.0.0.1") {
		t.Error("Expected the third connection to be rejected")
	}
	if got := wrl.GetConnectionCount("10.0.0.1"); got != 2 {
		t.Errorf("Expected 2 connections, got %d", got)
	}

	wrl.Release("10.0.0.1")
	if !wrl.Allow("10.0.0.1") {
		t.Error("Expected a slot after release")
	}
}

// TestGetClientIP resolves the client address through proxy headers
func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{"remote addr", "192.0.2.1:39000", "", "", "192.0.2.1"},
		{"x-forwarded-for", "10.0.0.1:80", "203.0.113.9", "", "203.0.113.9"},
		{"x-forwarded-for chain", "10.0.0.1:80", "203.0.113.9, 10.0.0.2", "", "203.0.113.9"},
		{"x-real-ip", "10.0.0.1:80", "", "203.0.113.7", "203.0.113.7"},
		{"xff wins over real-ip", "10.0.0.1:80", "203.0.113.9", "203.0.113.7", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/healthz", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

// TestIsAllowedOrigin accepts local and headerless clients only
func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8080", true},
		{"https://dashboard.example.com", false},
		{"http://evil.test", false},
	}
	for _, tt := range tests {
		if got := IsAllowedOrigin(tt.origin); got != tt.want {
			t.Errorf("IsAllowedOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
