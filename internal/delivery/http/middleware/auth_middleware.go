package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go-freelance-backend/internal/delivery/http/response"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/auth"
	"go-freelance-backend/pkg/logger"
	"go-freelance-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// AuthCookie carries the app token for browser clients.
const AuthCookie = "auth_token"

// AuthMiddleware verifies the bearer token (or auth_token cookie) and puts
// the caller's uid, email, name and profile role on the context. Users who
// have not picked a role yet get an empty role.
func AuthMiddleware(jwtSecret string, jwks *auth.Provider, profiles domain.ProfileRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string
		if header := c.GetHeader("Authorization"); header != "" {
			tokenString = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		} else if cookie, err := c.Cookie(AuthCookie); err == nil {
			tokenString = cookie
		}

		if tokenString == "" {
			response.Abort(c, http.StatusUnauthorized, "Authorization header or auth_token cookie required")
			return
		}

		claims, err := auth.ParseToken(tokenString, jwtSecret, jwks)
		if err != nil {
			logger.Log.Debug("Token validation failed", "error", err)
			security.DefaultLogger().Log(c.Request.Context(), security.SecurityEvent{
				Event:     security.EventTokenRejected,
				IP:        c.ClientIP(),
				UserAgent: c.Request.UserAgent(),
				RequestID: response.RequestID(c),
				Details:   map[string]any{"endpoint": c.FullPath()},
			})
			response.Abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		// The stored profile is the source of truth for the role
		var role domain.Role
		profile, err := profiles.GetByID(c.Request.Context(), claims.Subject)
		switch {
		case err == nil:
			role = profile.Role
		case !errors.Is(err, domain.ErrNotFound):
			logger.Log.Error("Failed to load profile for token", "uid", claims.Subject, "error", err)
			response.Abort(c, http.StatusInternalServerError, "Failed to load user")
			return
		}

		c.Set(string(domain.KeyUserID), claims.Subject)
		c.Set(string(domain.KeyUserEmail), claims.Email)
		c.Set(string(domain.KeyUserName), claims.Name)
		c.Set(string(domain.KeyUserRole), string(role))

		c.Next()
	}
}

// RequireRole rejects callers whose profile role is not one of roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := domain.Role(c.GetString(string(domain.KeyUserRole)))
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		security.DefaultLogger().LogAccessDenied(c.Request.Context(), security.EventUnauthorizedAccess,
			c.GetString(string(domain.KeyUserID)), c.ClientIP(), response.RequestID(c), c.FullPath())
		response.Abort(c, http.StatusForbidden, "You do not have access to this resource")
	}
}

// ActorFrom returns the authenticated caller set by AuthMiddleware.
func ActorFrom(c *gin.Context) domain.Actor {
	return domain.Actor{
		UID:  c.GetString(string(domain.KeyUserID)),
		Role: domain.Role(c.GetString(string(domain.KeyUserRole))),
	}
}

// IdentityFrom returns the identity claims set by AuthMiddleware.
func IdentityFrom(c *gin.Context) domain.Identity {
	return domain.Identity{
		UID:         c.GetString(string(domain.KeyUserID)),
		DisplayName: c.GetString(string(domain.KeyUserName)),
		Email:       c.GetString(string(domain.KeyUserEmail)),
	}
}
