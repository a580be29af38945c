package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"absensi/internal/metrics"
)

// TokenHeader may carry the device token on requests without a JSON body.
const TokenHeader = "X-Auth-Token"

type tokenBody struct {
	AuthToken string `json:"auth_token"`
}

// DeviceToken extracts the device token from the header or the auth_token
// field of the JSON body. The body is cached so handlers can bind it again
// with ShouldBindBodyWith.
func DeviceToken(c *gin.Context) string {
	if tok := c.GetHeader(TokenHeader); tok != "" {
		return tok
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return ""
	}
	var body tokenBody
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		return ""
	}
	return body.AuthToken
}

// Guard returns middleware enforcing the gate for a route marked public or not.
func (g *Gate) Guard(public bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if !public {
			token = DeviceToken(c)
		}
		d := g.Decide(c.Request.Context(), public, token)
		if !d.Allowed {
			metrics.GateDenials.Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status_code": http.StatusUnauthorized,
				"ok":          false,
				"error_code":  "ACCESS_DENIED",
				"message":     ErrAccessDenied.Error(),
			})
			return
		}
		c.Next()
	}
}
