// Package handler exposes the attendance service over HTTP.
package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"absensi/internal/attendance"
	"absensi/internal/auth"
	"absensi/internal/rollup"
	"absensi/internal/sheets"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Pinger is a dependency reported by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SummarySource hands out the summary sheet for a tier.
type SummarySource interface {
	Sheet(ctx context.Context, tier string) (sheets.Sheet, error)
}

// Handler serves the attendance routes.
type Handler struct {
	svc       *attendance.Service
	authority *auth.Authority
	gate      *auth.Gate
	cookie    auth.CookiePolicy
	summaries SummarySource
	health    map[string]Pinger
}

// Deps collects what the handler needs.
type Deps struct {
	Service   *attendance.Service
	Authority *auth.Authority
	Cookie    auth.CookiePolicy
	Summaries SummarySource
	Health    map[string]Pinger
}

// New builds a handler. The gate checks device tokens with the authority.
func New(d Deps) *Handler {
	return &Handler{
		svc:       d.Service,
		authority: d.Authority,
		gate:      auth.NewGate(d.Authority),
		cookie:    d.Cookie,
		summaries: d.Summaries,
		health:    d.Health,
	}
}

type route struct {
	method  string
	path    string
	public  bool
	handler gin.HandlerFunc
}

func (h *Handler) routes() []route {
	return []route{
		{http.MethodGet, "/ping", true, h.ping},
		{http.MethodPost, "/generateAuthToken", true, h.generateAuthToken},
		{http.MethodGet, "/healthz", true, h.healthz},
		{http.MethodGet, "/metrics", true, gin.WrapH(promhttp.Handler())},

		{http.MethodPost, "/signIn", false, h.signIn},
		{http.MethodPost, "/signOut", false, h.signOut},
		{http.MethodPost, "/register", false, h.register},
		{http.MethodPost, "/removeUser", false, h.removeUser},
		{http.MethodPost, "/getAllUser", false, h.getAllUser},
		{http.MethodPost, "/verify", false, h.verify},
		{http.MethodPost, "/absen", false, h.absen},
		{http.MethodPost, "/setTimes", false, h.setTimes},
		{http.MethodGet, "/v1/summaries/:file", false, h.exportSummary},
	}
}

// Register mounts every route on r behind the access gate.
func (h *Handler) Register(r gin.IRoutes) {
	for _, rt := range h.routes() {
		r.Handle(rt.method, rt.path, h.gate.Guard(rt.public), rt.handler)
	}
}

// bind decodes the JSON body, which the gate may already have read. An
// empty body leaves v untouched.
func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindBodyWith(v, binding.JSON); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *Handler) ping(c *gin.Context) {
	c.JSON(http.StatusOK, envelope{StatusCode: http.StatusOK, OK: true, Message: "Pong!"})
}

func (h *Handler) generateAuthToken(c *gin.Context) {
	tok, err := h.authority.IssueAuthToken(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, tok)
}

func (h *Handler) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	status := http.StatusOK
	out := gin.H{"status": "ok"}
	for name, p := range h.health {
		healthy := p.Ping(ctx) == nil
		out[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			out["status"] = "degraded"
		}
	}
	c.JSON(status, out)
}

func (h *Handler) signIn(c *gin.Context) {
	var req struct {
		ID       string `json:"id"`
		Password string `json:"password"`
	}
	if err := bind(c, &req); err != nil {
		reject(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	acc, err := h.svc.Authenticate(c.Request.Context(), req.ID, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	tok, err := h.authority.IssueSession(c.Request.Context(), acc.ID)
	if err != nil {
		fail(c, err)
		return
	}
	h.cookie.SetSession(c, tok)
	respond(c, acc.History)
}

func (h *Handler) signOut(c *gin.Context) {
	if err := h.authority.RevokeSession(c.Request.Context(), auth.SessionToken(c)); err != nil {
		fail(c, err)
		return
	}
	h.cookie.ClearSession(c)
	respond(c, nil)
}

func (h *Handler) register(c *gin.Context) {
	var req struct {
		Name     string `json:"nama"`
		Role     string `json:"jabatan"`
		ID       string `json:"id"`
		Password string `json:"password"`
	}
	if err := bind(c, &req); err != nil {
		reject(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	acc, err := h.svc.Register(c.Request.Context(), attendance.RegisterInput{
		ID:       req.ID,
		Name:     req.Name,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, gin.H{"user_id": acc.ID})
}

func (h *Handler) removeUser(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := bind(c, &req); err != nil {
		reject(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if err := h.svc.Remove(c.Request.Context(), req.ID); err != nil {
		fail(c, err)
		return
	}
	respond(c, nil)
}

func (h *Handler) getAllUser(c *gin.Context) {
	accounts, err := h.svc.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if accounts == nil {
		accounts = []attendance.Account{}
	}
	for i := range accounts {
		accounts[i].Password = ""
	}
	respond(c, accounts)
}

func (h *Handler) verify(c *gin.Context) {
	acc, ok, err := h.authority.ResolveSession(c.Request.Context(), auth.SessionToken(c))
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		reject(c, http.StatusUnauthorized, CodeAccessDenied, auth.ErrAccessDenied.Error())
		return
	}
	respond(c, acc.History)
}

func (h *Handler) absen(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := bind(c, &req); err != nil {
		reject(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	rec, err := h.svc.ClockIn(c.Request.Context(), req.ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, rec)
}

func (h *Handler) setTimes(c *gin.Context) {
	var req struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := bind(c, &req); err != nil {
		reject(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	w, err := h.svc.SetWindow(c.Request.Context(), req.Start, req.End)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, gin.H{"times": w.String()})
}

// exportSummary serves /v1/summaries/weekly.xlsx and monthly.xlsx.
func (h *Handler) exportSummary(c *gin.Context) {
	tier, ok := strings.CutSuffix(c.Param("file"), ".xlsx")
	if !ok || (tier != rollup.TierWeekly && tier != rollup.TierMonthly) {
		reject(c, http.StatusNotFound, CodeNoSheet, "unknown summary "+c.Param("file"))
		return
	}
	sh, err := h.summaries.Sheet(c.Request.Context(), tier)
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := sheets.Export(c.Request.Context(), sh, rollup.SummaryHeader, &buf); err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+tier+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
