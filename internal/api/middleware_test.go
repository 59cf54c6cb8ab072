package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quill-ai/quill/internal/log"
)

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(log.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}

func TestLoggingWriterPreservesFlusher(t *testing.T) {
	rec := httptest.NewRecorder()
	lw := &loggingWriter{w: rec}

	var _ http.Flusher = lw
	lw.Flush()
	assert.True(t, rec.Flushed)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(0, 2)

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))

	// Separate bucket per IP.
	assert.True(t, rl.allow("10.0.0.2"))
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	rl := newRateLimiter(1, 1)
	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"))

	rl.mu.Lock()
	rl.buckets["10.0.0.1"].lastSeen = time.Now().Add(-bucketTTL - time.Minute)
	rl.sweep(time.Now())
	_, stale := rl.buckets["10.0.0.1"]
	_, live := rl.buckets["10.0.0.2"]
	rl.mu.Unlock()

	assert.False(t, stale, "idle bucket should be evicted")
	assert.True(t, live, "recently seen bucket should survive the sweep")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Real-IP", "203.0.113.7")
	req.Header.Set("X-Forwarded-For", "203.0.113.8, 10.0.0.1")

	assert.Equal(t, "192.0.2.1", clientIP(req, false))
	assert.Equal(t, "203.0.113.7", clientIP(req, true))

	req.Header.Del("X-Real-IP")
	assert.Equal(t, "203.0.113.8", clientIP(req, true))

	req.Header.Set("X-Forwarded-For", "not-an-ip")
	assert.Equal(t, "192.0.2.1", clientIP(req, true))
}
