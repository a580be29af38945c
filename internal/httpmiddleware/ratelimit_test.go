package httpmiddleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTokenBucketRefills(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	l := NewTokenBucket(2, 60)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _, _ := l.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	ok, retry, _ := l.Allow(ctx, "1.2.3.4")
	if ok {
		t.Fatal("third request should be limited")
	}
	if retry != time.Second {
		t.Fatalf("retry = %s, want 1s", retry)
	}
	if ok, _, _ := l.Allow(ctx, "5.6.7.8"); !ok {
		t.Fatal("other clients have their own bucket")
	}

	now = now.Add(2 * time.Second)
	if ok, _, _ := l.Allow(ctx, "1.2.3.4"); !ok {
		t.Fatal("bucket should refill after two seconds")
	}
}

type stubLimiter struct {
	ok  bool
	err error
}

func (s stubLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return s.ok, 30 * time.Second, s.err
}

func serve(l Limiter) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(RequestID(), RateLimit(l))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	if w := serve(stubLimiter{ok: true}); w.Code != http.StatusOK {
		t.Fatalf("allowed request got %d", w.Code)
	}
	w := serve(stubLimiter{})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("limited request got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("Retry-After = %q", got)
	}
	if w := serve(stubLimiter{err: errors.New("redis down")}); w.Code != http.StatusOK {
		t.Fatalf("limiter failure should fail open, got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	w := serve(stubLimiter{ok: true})
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("response should carry a request id")
	}

	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != "1b4e28ba-2fa1-11d2-883f-0016d3cca427" {
		t.Fatalf("request id not echoed: %q", rec.Body.String())
	}
}
