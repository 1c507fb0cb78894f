package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"oims/pkg/logger"
)

func discardLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT, Output: io.Discard})
}

func TestClientRateLimiter_Allow(t *testing.T) {
	limiter := NewClientRateLimiter(3, time.Minute, DefaultClientKeyExtractor, discardLogger())
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Error("request over the limit should be rejected")
	}

	// Other clients keep their own budget.
	if !limiter.Allow("10.0.0.2") {
		t.Error("a different client must not share the exhausted bucket")
	}
}

func TestClientRateLimiter_EmptyKeyAlwaysAllowed(t *testing.T) {
	limiter := NewClientRateLimiter(1, time.Minute, DefaultClientKeyExtractor, discardLogger())
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		if !limiter.Allow("") {
			t.Fatal("requests without a client key must never be limited")
		}
	}
}

func TestClientRateLimit_Middleware(t *testing.T) {
	limiter := NewClientRateLimiter(1, time.Minute, DefaultClientKeyExtractor, discardLogger())
	defer limiter.Stop()

	handler := ClientRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/booking-requests", nil)
		req.RemoteAddr = "10.0.0.9:4521"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(); code != http.StatusOK {
		t.Fatalf("first request returned %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Errorf("second request returned %d, want 429", code)
	}
}

func TestDefaultClientKeyExtractor(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{
			name:       "remote addr host",
			remoteAddr: "192.168.1.5:51234",
			want:       "192.168.1.5",
		},
		{
			name:       "forwarded-for wins",
			remoteAddr: "10.0.0.1:80",
			forwarded:  "203.0.113.7",
			want:       "203.0.113.7",
		},
		{
			name:       "first forwarded hop",
			remoteAddr: "10.0.0.1:80",
			forwarded:  "203.0.113.7, 10.0.0.2, 10.0.0.3",
			want:       "203.0.113.7",
		},
		{
			name:       "unparseable remote addr passes through",
			remoteAddr: "not-an-addr",
			want:       "not-an-addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := DefaultClientKeyExtractor(req); got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
		})
	}
}
