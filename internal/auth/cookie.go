package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "access_token"

// CookiePolicy controls how the session cookie is delivered. The cookie is
// always http-only and scoped to Domain.
type CookiePolicy struct {
	Domain   string
	SameSite http.SameSite
	Secure   bool
	MaxAge   time.Duration
}

// ParseSameSite maps strict, lax and none onto http.SameSite, defaulting to strict.
func ParseSameSite(s string) http.SameSite {
	switch s {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

// SetSession writes the session cookie.
func (p CookiePolicy) SetSession(c *gin.Context, token string) {
	c.SetSameSite(p.SameSite)
	c.SetCookie(SessionCookie, token, int(p.MaxAge/time.Second), "/", p.Domain, p.Secure, true)
}

// ClearSession expires the session cookie on the client.
func (p CookiePolicy) ClearSession(c *gin.Context) {
	c.SetSameSite(p.SameSite)
	c.SetCookie(SessionCookie, "", -1, "/", p.Domain, p.Secure, true)
}

// SessionToken reads the session token from the request cookie.
func SessionToken(c *gin.Context) string {
	tok, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return tok
}
