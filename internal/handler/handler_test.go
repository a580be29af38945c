package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"absensi/internal/attendance"
	"absensi/internal/auth"
	"absensi/internal/password"
	"absensi/internal/rollup"
	"absensi/internal/sheets"
	"absensi/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	kv     *store.Memory
	sheets *sheets.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	wib := time.FixedZone("WIB", 7*3600)
	now := time.Date(2024, 3, 4, 6, 45, 0, 0, wib)

	kv := store.NewMemory()
	repo := attendance.NewRepository(kv)
	cfg := rollup.Config{DailySheet: "HARIAN", WeeklySheet: "MINGGUAN", MonthlySheet: "BULANAN", WeeklyDays: 5, MonthlyDays: 22}
	mem := sheets.NewMemory(cfg.Specs()...)
	agg := rollup.NewAggregator(mem, cfg)
	hasher := password.New(password.Params{MemoryKiB: 64, Time: 1, Threads: 1})
	svc := attendance.NewService(repo, hasher, agg, agg, attendance.Options{
		Location: wib,
		Now:      func() time.Time { return now },
	})
	authority := auth.NewAuthority(kv, repo, auth.AuthorityConfig{TokenLength: 40, AuthTTL: time.Hour, SessionTTL: time.Hour})

	h := New(Deps{
		Service:   svc,
		Authority: authority,
		Cookie:    auth.CookiePolicy{SameSite: http.SameSiteStrictMode, MaxAge: time.Hour},
		Summaries: agg,
		Health:    map[string]Pinger{"redis": kv, "sheets": mem},
	})
	r := gin.New()
	h.Register(r)
	return &testServer{router: r, kv: kv, sheets: mem}
}

type reply struct {
	StatusCode int             `json:"status_code"`
	OK         bool            `json:"ok"`
	ErrorCode  string          `json:"error_code"`
	Message    string          `json:"message"`
	Result     json.RawMessage `json:"result"`
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, reply) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var out reply
	if w.Header().Get("Content-Type") != xlsxContentType {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func (s *testServer) deviceToken(t *testing.T) string {
	t.Helper()
	_, out := s.do(t, http.MethodPost, "/generateAuthToken", nil)
	var tok string
	if err := json.Unmarshal(out.Result, &tok); err != nil || tok == "" {
		t.Fatalf("no device token in %+v", out)
	}
	return tok
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	return nil
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)
	w, out := s.do(t, http.MethodGet, "/ping", nil)
	if w.Code != http.StatusOK || !out.OK || out.Message != "Pong!" {
		t.Fatalf("ping: %d %+v", w.Code, out)
	}
	if w, _ := s.do(t, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
}

func TestGatedRouteWithoutToken(t *testing.T) {
	s := newTestServer(t)
	for _, body := range []any{nil, map[string]string{"auth_token": "forged"}} {
		w, out := s.do(t, http.MethodPost, "/getAllUser", body)
		if w.Code != http.StatusUnauthorized || out.ErrorCode != CodeAccessDenied || out.OK {
			t.Fatalf("want 401 ACCESS_DENIED, got %d %+v", w.Code, out)
		}
	}
}

func TestAccountFlow(t *testing.T) {
	s := newTestServer(t)
	tok := s.deviceToken(t)

	w, out := s.do(t, http.MethodPost, "/register", map[string]string{
		"auth_token": tok, "nama": "Ani", "jabatan": "siswa", "id": "7", "password": "rahasia",
	})
	if w.Code != http.StatusOK || !out.OK || string(out.Result) != `{"user_id":"7"}` {
		t.Fatalf("register: %d %+v", w.Code, out)
	}

	w, out = s.do(t, http.MethodPost, "/signIn", map[string]string{"auth_token": tok, "id": "7", "password": "salah"})
	if w.Code != http.StatusUnauthorized || out.ErrorCode != CodeUnauthorized {
		t.Fatalf("bad password: %d %+v", w.Code, out)
	}

	w, out = s.do(t, http.MethodPost, "/signIn", map[string]string{"auth_token": tok, "id": "7", "password": "rahasia"})
	if w.Code != http.StatusOK || !out.OK {
		t.Fatalf("signIn: %d %+v", w.Code, out)
	}
	session := sessionCookie(w)
	if session == nil || session.Value == "" || !session.HttpOnly {
		t.Fatalf("signIn should set an http-only session cookie, got %+v", session)
	}

	w, out = s.do(t, http.MethodPost, "/absen", map[string]string{"auth_token": tok, "id": "7"})
	if w.Code != http.StatusOK {
		t.Fatalf("absen: %d %+v", w.Code, out)
	}
	var rec attendance.Record
	if err := json.Unmarshal(out.Result, &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Status != attendance.StatusOnTime || rec.Timestamp != "2024-03-04 06:45 GMT+7" {
		t.Fatalf("unexpected record %+v", rec)
	}

	w, out = s.do(t, http.MethodPost, "/verify", map[string]string{"auth_token": tok}, session)
	var history []attendance.Record
	if err := json.Unmarshal(out.Result, &history); err != nil || w.Code != http.StatusOK || len(history) != 1 {
		t.Fatalf("verify: %d %+v", w.Code, out)
	}

	w, out = s.do(t, http.MethodPost, "/getAllUser", map[string]string{"auth_token": tok})
	var accounts []attendance.Account
	if err := json.Unmarshal(out.Result, &accounts); err != nil || len(accounts) != 1 {
		t.Fatalf("getAllUser: %d %+v", w.Code, out)
	}
	if accounts[0].Password != "" {
		t.Fatal("listing must not expose password credentials")
	}

	if w, _ := s.do(t, http.MethodPost, "/signOut", map[string]string{"auth_token": tok}, session); w.Code != http.StatusOK {
		t.Fatalf("signOut: %d", w.Code)
	}
	w, out = s.do(t, http.MethodPost, "/verify", map[string]string{"auth_token": tok}, session)
	if w.Code != http.StatusUnauthorized || out.ErrorCode != CodeAccessDenied {
		t.Fatalf("verify after signOut: %d %+v", w.Code, out)
	}

	w, _ = s.do(t, http.MethodPost, "/removeUser", map[string]string{"auth_token": tok, "id": "7"})
	if w.Code != http.StatusOK {
		t.Fatalf("removeUser: %d", w.Code)
	}
	w, out = s.do(t, http.MethodPost, "/removeUser", map[string]string{"auth_token": tok, "id": "7"})
	if w.Code != http.StatusNotFound || out.ErrorCode != CodeNotFound {
		t.Fatalf("second removeUser: %d %+v", w.Code, out)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	tok := s.deviceToken(t)
	w, out := s.do(t, http.MethodPost, "/register", map[string]string{"auth_token": tok, "nama": "Ani", "jabatan": "kepala"})
	if w.Code != http.StatusBadRequest || out.ErrorCode != CodeBadRequest {
		t.Fatalf("bad role: %d %+v", w.Code, out)
	}
	w, _ = s.do(t, http.MethodPost, "/absen", map[string]string{"auth_token": tok, "id": "missing"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("absen for unknown account: %d", w.Code)
	}
}

func TestSetTimes(t *testing.T) {
	s := newTestServer(t)
	tok := s.deviceToken(t)
	w, out := s.do(t, http.MethodPost, "/setTimes", map[string]string{"auth_token": tok, "start": "06:00", "end": "14:00"})
	if w.Code != http.StatusOK || string(out.Result) != `{"times":"06:00|14:00"}` {
		t.Fatalf("setTimes: %d %+v", w.Code, out)
	}
	if w, _ := s.do(t, http.MethodPost, "/setTimes", map[string]string{"auth_token": tok, "start": "14:00", "end": "06:00"}); w.Code != http.StatusBadRequest {
		t.Fatalf("inverted window: %d", w.Code)
	}
	w, out = s.do(t, http.MethodPost, "/setTimes", map[string]string{"auth_token": tok, "start": "07:00junk", "end": "15:00"})
	if w.Code != http.StatusBadRequest || out.ErrorCode != CodeBadRequest {
		t.Fatalf("trailing text in start: %d %+v", w.Code, out)
	}
}

func TestExportSummary(t *testing.T) {
	s := newTestServer(t)
	tok := s.deviceToken(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/summaries/weekly.xlsx", nil)
	req.Header.Set(auth.TokenHeader, tok)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != xlsxContentType || w.Body.Len() == 0 {
		t.Fatalf("export: %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/summaries/yearly.xlsx", nil)
	req.Header.Set(auth.TokenHeader, tok)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var out reply
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusNotFound || out.ErrorCode != "NOT_FOUND" {
		t.Fatalf("unknown tier: %d %+v", w.Code, out)
	}
}

func TestMissingSheetIsNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fail(c, fmt.Errorf("open BULANAN: %w", sheets.ErrSheetNotFound))

	var out reply
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusNotFound || out.ErrorCode != "NOT_FOUND" || out.OK {
		t.Fatalf("missing sheet: %d %+v", w.Code, out)
	}
}
