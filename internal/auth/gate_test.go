package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"absensi/internal/store"
)

type stubVerifier struct {
	ok    bool
	err   error
	calls int
}

func (s *stubVerifier) VerifyAuthToken(context.Context, string) (bool, error) {
	s.calls++
	return s.ok, s.err
}

func TestDecide(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name      string
		public    bool
		verifier  *stubVerifier
		allowed   bool
		wantCalls int
	}{
		{"public skips lookup", true, &stubVerifier{}, true, 0},
		{"valid token", false, &stubVerifier{ok: true}, true, 1},
		{"invalid token", false, &stubVerifier{}, false, 1},
		{"store outage looks like denial", false, &stubVerifier{err: store.ErrUnavailable}, false, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewGate(tc.verifier).Decide(ctx, tc.public, "tok")
			if d.Allowed != tc.allowed {
				t.Fatalf("allowed = %v, want %v", d.Allowed, tc.allowed)
			}
			if !d.Allowed && d.Reason != ReasonDenied {
				t.Fatalf("reason = %q", d.Reason)
			}
			if tc.verifier.calls != tc.wantCalls {
				t.Fatalf("verifier calls = %d, want %d", tc.verifier.calls, tc.wantCalls)
			}
		})
	}
}

func newGatedRouter(t *testing.T) (*gin.Engine, *Authority) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	kv := store.NewMemory()
	a := NewAuthority(kv, nil, AuthorityConfig{AuthTTL: time.Hour})
	g := NewGate(a)

	r := gin.New()
	r.GET("/ping", g.Guard(true), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/absen", g.Guard(false), func(c *gin.Context) {
		var body struct {
			ID string `json:"id"`
		}
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.String(http.StatusOK, body.ID)
	})
	return r, a
}

func TestGuardMiddleware(t *testing.T) {
	r, a := newGatedRouter(t)
	tok, err := a.IssueAuthToken(context.Background())
	if err != nil {
		t.Fatalf("IssueAuthToken: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("public route: %d", w.Code)
	}

	body, _ := json.Marshal(map[string]string{"auth_token": tok, "id": "7"})
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/absen", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "7" {
		t.Fatalf("gated route with token: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/absen", bytes.NewReader([]byte(`{"id":"7"}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("gated route without token: %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error_code"] != "ACCESS_DENIED" {
		t.Fatalf("unexpected body %v", resp)
	}
}

func TestGuardAcceptsHeaderToken(t *testing.T) {
	r, a := newGatedRouter(t)
	tok, _ := a.IssueAuthToken(context.Background())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/absen", bytes.NewReader([]byte(`{"id":"9"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, tok)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("header token: %d", w.Code)
	}
}
