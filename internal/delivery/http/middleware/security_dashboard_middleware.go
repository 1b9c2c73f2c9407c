package middleware

import (
	"net"
	"net/http"
	"strings"

	"go-freelance-backend/internal/delivery/http/response"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/logger"
	"go-freelance-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// SecurityIPAllowlistMiddleware admits only clients whose IP matches one of
// allowed, given as plain addresses or CIDR ranges. An empty list admits
// everyone.
func SecurityIPAllowlistMiddleware(allowed []string) gin.HandlerFunc {
	var nets []*net.IPNet
	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			if strings.Contains(entry, ":") {
				entry += "/128"
			} else {
				entry += "/32"
			}
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Log.Warn("Ignoring invalid allowlist entry", "entry", entry, "error", err)
			continue
		}
		nets = append(nets, n)
	}

	return func(c *gin.Context) {
		if len(nets) == 0 {
			c.Next()
			return
		}

		ip := net.ParseIP(c.ClientIP())
		for _, n := range nets {
			if ip != nil && n.Contains(ip) {
				c.Next()
				return
			}
		}

		security.DefaultLogger().LogAccessDenied(c.Request.Context(), security.EventUnauthorizedAccess,
			c.GetString(string(domain.KeyUserID)), c.ClientIP(), response.RequestID(c), c.FullPath())
		response.Abort(c, http.StatusForbidden, "Access denied")
	}
}

// SecurityAuditMiddleware logs every dashboard request once it completes.
func SecurityAuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		security.DefaultLogger().Log(c.Request.Context(), security.SecurityEvent{
			Event:        security.EventDashboardAccess,
			SubjectType:  "user_id",
			SubjectValue: security.HashValue(c.GetString(string(domain.KeyUserID))),
			IP:           c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			RequestID:    response.RequestID(c),
			Details: map[string]any{
				"method":      c.Request.Method,
				"path":        c.Request.URL.Path,
				"status_code": c.Writer.Status(),
			},
		})
	}
}
