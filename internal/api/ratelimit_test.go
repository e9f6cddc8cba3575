package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		desc       string
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{"forwarded chain", "10.0.0.1:4321", "1.2.3.4, 5.6.7.8", "", "1.2.3.4"},
		{"real ip fallback", "10.0.0.1:4321", "", "9.9.9.9", "9.9.9.9"},
		{"remote addr host", "10.0.0.1:4321", "", "", "10.0.0.1"},
		{"remote addr without port", "10.0.0.2", "", "", "10.0.0.2"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/summary", nil)
		req.RemoteAddr = tc.remoteAddr
		if tc.xff != "" {
			req.Header.Set("X-Forwarded-For", tc.xff)
		}
		if tc.realIP != "" {
			req.Header.Set("X-Real-IP", tc.realIP)
		}
		if got := clientIP(req); got != tc.want {
			t.Fatalf("%s: clientIP = %q, want %q", tc.desc, got, tc.want)
		}
	}
}

func TestIPLimiterBurst(t *testing.T) {
	l := &ipLimiter{
		entries: make(map[string]*ipLimiterEntry),
		rps:     rate.Limit(1),
		burst:   2,
		ttl:     time.Minute,
	}
	if !l.allow("a") || !l.allow("a") {
		t.Fatal("requests within the burst should be allowed")
	}
	if l.allow("a") {
		t.Fatal("request beyond the burst should be limited")
	}
	if !l.allow("b") {
		t.Fatal("limits are tracked per client")
	}
}
