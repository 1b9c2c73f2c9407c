package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware sets the baseline browser hardening headers.
// iconOrigins are extra image sources, such as the public icon bucket.
func SecurityHeadersMiddleware(iconOrigins ...string) gin.HandlerFunc {
	imgSrc := []string{"'self'", "data:", "https://*.googleusercontent.com"}
	for _, o := range iconOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			imgSrc = append(imgSrc, o)
		}
	}
	csp := "default-src 'self'; " +
		"img-src " + strings.Join(imgSrc, " ") + "; " +
		"frame-ancestors 'none'; " +
		"base-uri 'self'"

	return func(c *gin.Context) {
		c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		c.Header("Content-Security-Policy", csp)

		if c.GetHeader("Authorization") != "" || c.GetHeader("Cookie") != "" {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
			c.Header("Pragma", "no-cache")
		}

		c.Next()
	}
}
