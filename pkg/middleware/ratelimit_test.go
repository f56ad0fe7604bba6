package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newRateLimitTestStore(rps float64, burst int) (*visitorStore, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newVisitorStore(rps, burst, visitorTTL)
	s.now = func() time.Time { return now }
	return s, &now
}

func limitedHandler(s *visitorStore) http.Handler {
	return rateLimit(s, slog.New(slog.NewTextHandler(io.Discard, nil)))(okHandler())
}

func sendFrom(h http.Handler, remote, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/games/1/purchase", nil)
	req.RemoteAddr = remote
	if userID != "" {
		req = req.WithContext(WithClaims(req.Context(), &Claims{UserID: userID}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_BurstThen429(t *testing.T) {
	s, now := newRateLimitTestStore(1, 2)
	h := limitedHandler(s)

	assert.Equal(t, http.StatusOK, sendFrom(h, "10.0.0.1:1234", "").Code)
	assert.Equal(t, http.StatusOK, sendFrom(h, "10.0.0.1:1234", "").Code)

	rec := sendFrom(h, "10.0.0.1:1234", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	*now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, sendFrom(h, "10.0.0.1:1234", "").Code)
}

func TestRateLimit_KeysByUserBeforeIP(t *testing.T) {
	s, _ := newRateLimitTestStore(1, 1)
	h := limitedHandler(s)

	assert.Equal(t, http.StatusOK, sendFrom(h, "10.0.0.1:1234", "user-1").Code)
	assert.Equal(t, http.StatusOK, sendFrom(h, "10.0.0.1:1234", "user-2").Code)
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(h, "10.0.0.9:1234", "user-1").Code)
	assert.Equal(t, http.StatusOK, sendFrom(h, "10.0.0.1:1234", "").Code)
}

func TestRateLimit_EvictsIdleCallers(t *testing.T) {
	s, now := newRateLimitTestStore(1, 1)
	h := limitedHandler(s)

	sendFrom(h, "10.0.0.1:1234", "")
	sendFrom(h, "10.0.0.2:1234", "")
	assert.Equal(t, 2, s.len())

	*now = now.Add(visitorTTL + time.Second)
	sendFrom(h, "10.0.0.3:1234", "")
	assert.Equal(t, 1, s.len())
}

func TestRateLimit_DisabledWithZeroRate(t *testing.T) {
	s, _ := newRateLimitTestStore(0, 0)
	h := limitedHandler(s)

	for range 5 {
		assert.Equal(t, http.StatusOK, sendFrom(h, "10.0.0.1:1234", "").Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.2:80", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.4"}, remote: "10.0.0.2:80", want: "198.51.100.4"},
		{name: "bad forwarded falls through", headers: map[string]string{"X-Forwarded-For": "garbage"}, remote: "10.0.0.2:80", want: "10.0.0.2"},
		{name: "remote without port", remote: "10.0.0.2", want: "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
