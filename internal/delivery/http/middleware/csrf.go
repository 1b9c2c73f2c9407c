package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"go-freelance-backend/internal/delivery/http/response"
	"go-freelance-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

const (
	CSRFTokenCookieName = "csrf_token"
	CSRFTokenHeaderName = "X-CSRF-Token"
	// 32 bytes = 64 hex chars
	CSRFTokenLength = 32
	CSRFTokenExpiry = 24 * time.Hour
)

func generateCSRFToken() (string, error) {
	b := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CSRFMiddleware implements the double-submit cookie pattern for browsers
// that authenticate with the auth_token cookie. Every response carries a
// readable csrf_token cookie; mutating requests must echo it in the
// X-CSRF-Token header. Requests with an Authorization header are not
// cookie-authenticated and skip the check.
func CSRFMiddleware(secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		csrfCookie, err := c.Cookie(CSRFTokenCookieName)
		if err != nil || csrfCookie == "" {
			newToken, err := generateCSRFToken()
			if err != nil {
				response.Abort(c, http.StatusInternalServerError, "Failed to generate security token")
				return
			}
			// HttpOnly off so the web client can read it
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CSRFTokenCookieName, newToken, int(CSRFTokenExpiry.Seconds()), "/", "", secureCookies, false)
			csrfCookie = newToken
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "" {
			c.Next()
			return
		}
		if _, err := c.Cookie(AuthCookie); err != nil {
			// Not cookie-authenticated; AuthMiddleware rejects it if needed
			c.Next()
			return
		}

		headerToken := c.GetHeader(CSRFTokenHeaderName)
		if headerToken == "" {
			rejectCSRF(c, "Missing CSRF token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(headerToken), []byte(csrfCookie)) != 1 {
			rejectCSRF(c, "Invalid CSRF token")
			return
		}

		c.Next()
	}
}

func rejectCSRF(c *gin.Context, message string) {
	security.DefaultLogger().LogAccessDenied(c.Request.Context(), security.EventCSRFViolation,
		"", c.ClientIP(), response.RequestID(c), c.FullPath())
	response.Abort(c, http.StatusForbidden, message)
}
