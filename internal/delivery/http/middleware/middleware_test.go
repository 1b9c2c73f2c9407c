package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-freelance-backend/internal/delivery/http/middleware"
	"go-freelance-backend/internal/delivery/http/response"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/internal/repository/document"
	"go-freelance-backend/internal/repository/memory"
	"go-freelance-backend/pkg/apperror"
	"go-freelance-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"uid": c.GetString(string(domain.KeyUserID)), "role": c.GetString(string(domain.KeyUserRole))})
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCSRFMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CSRFMiddleware(false))
	r.GET("/jobs", ok)
	r.POST("/jobs", ok)

	t.Run("Should pass reads and hand out a token cookie", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/jobs", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var found bool
		for _, cookie := range w.Result().Cookies() {
			if cookie.Name == middleware.CSRFTokenCookieName {
				found = true
				assert.Len(t, cookie.Value, middleware.CSRFTokenLength*2)
			}
		}
		assert.True(t, found)
	})

	t.Run("Should require the header for cookie-authenticated writes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
		req.AddCookie(&http.Cookie{Name: middleware.AuthCookie, Value: "token"})
		req.AddCookie(&http.Cookie{Name: middleware.CSRFTokenCookieName, Value: "abc"})

		w := serve(r, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Missing CSRF token", decode(t, w).Message)
	})

	t.Run("Should reject a header that does not match the cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
		req.AddCookie(&http.Cookie{Name: middleware.AuthCookie, Value: "token"})
		req.AddCookie(&http.Cookie{Name: middleware.CSRFTokenCookieName, Value: "abc"})
		req.Header.Set(middleware.CSRFTokenHeaderName, "xyz")

		w := serve(r, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Invalid CSRF token", decode(t, w).Message)
	})

	t.Run("Should accept a matching header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
		req.AddCookie(&http.Cookie{Name: middleware.AuthCookie, Value: "token"})
		req.AddCookie(&http.Cookie{Name: middleware.CSRFTokenCookieName, Value: "abc"})
		req.Header.Set(middleware.CSRFTokenHeaderName, "abc")

		assert.Equal(t, http.StatusOK, serve(r, req).Code)
	})

	t.Run("Should skip bearer and anonymous writes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
		req.Header.Set("Authorization", "Bearer token")
		req.AddCookie(&http.Cookie{Name: middleware.AuthCookie, Value: "token"})
		assert.Equal(t, http.StatusOK, serve(r, req).Code)

		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodPost, "/jobs", nil)).Code)
	})
}

func TestAuthMiddleware(t *testing.T) {
	ctx := context.Background()
	profiles := document.NewProfileRepository(memory.NewTreeStore())
	require.NoError(t, profiles.Create(ctx, &domain.UserProfile{UID: "client-1", Name: "Ann", Role: domain.RoleClient}))

	r := gin.New()
	r.Use(middleware.AuthMiddleware(testSecret, nil, profiles))
	r.GET("/me", ok)

	t.Run("Should require a token", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, decode(t, w).Success)
	})

	t.Run("Should reject tokens signed with another secret", func(t *testing.T) {
		token, err := auth.SignToken("other-secret", "client-1", "ann@example.com", "Ann", 5)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		w := serve(r, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid token", decode(t, w).Message)
	})

	t.Run("Should take the role from the stored profile", func(t *testing.T) {
		token, err := auth.SignToken(testSecret, "client-1", "ann@example.com", "Ann", 5)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		w := serve(r, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"uid":"client-1","role":"Client"}`, w.Body.String())
	})

	t.Run("Should accept the cookie and leave unregistered users without a role", func(t *testing.T) {
		token, err := auth.SignToken(testSecret, "new-user", "", "", 5)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: middleware.AuthCookie, Value: token})

		w := serve(r, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"uid":"new-user","role":""}`, w.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	withRole := func(role domain.Role) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Set(string(domain.KeyUserID), "u1")
			c.Set(string(domain.KeyUserRole), string(role))
		})
		r.GET("/admin", middleware.RequireRole(domain.RoleAdmin, domain.RoleClient), ok)
		return r
	}

	t.Run("Should admit listed roles", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(withRole(domain.RoleClient), httptest.NewRequest(http.MethodGet, "/admin", nil)).Code)
	})

	t.Run("Should refuse other roles", func(t *testing.T) {
		for _, role := range []domain.Role{domain.RoleFreelancer, ""} {
			w := serve(withRole(role), httptest.NewRequest(http.MethodGet, "/admin", nil))
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, "You do not have access to this resource", decode(t, w).Message)
		}
	})
}

func TestSecurityIPAllowlistMiddleware(t *testing.T) {
	request := func(allowed []string, remote string) int {
		r := gin.New()
		r.GET("/stats", middleware.SecurityIPAllowlistMiddleware(allowed), ok)
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		req.RemoteAddr = remote
		return serve(r, req).Code
	}

	t.Run("Should admit everyone without a list", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, request(nil, "203.0.113.9:1234"))
	})

	t.Run("Should match addresses and ranges", func(t *testing.T) {
		allowed := []string{"10.0.0.0/8", " 192.168.1.7 ", "not-an-ip"}
		assert.Equal(t, http.StatusOK, request(allowed, "10.20.30.40:1234"))
		assert.Equal(t, http.StatusOK, request(allowed, "192.168.1.7:1234"))
		assert.Equal(t, http.StatusForbidden, request(allowed, "192.168.1.8:1234"))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/jobs", middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Limit:     2,
		Window:    time.Minute,
		KeyPrefix: "rl:test:" + t.Name() + ":",
	}), ok)

	var codes []int
	for range 3 {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/jobs", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler())
	r.GET("/conflict", func(c *gin.Context) {
		c.Error(apperror.Conflict("Milestone must be Done before it can be paid"))
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Error(errors.New("pq: connection reset"))
	})

	t.Run("Should answer with the app error code and message", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/conflict", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-42")

		w := serve(r, req)
		assert.Equal(t, http.StatusConflict, w.Code)
		body := decode(t, w)
		assert.False(t, body.Success)
		assert.Equal(t, "Milestone must be Done before it can be paid", body.Message)
		assert.Equal(t, "req-42", body.RequestID)
	})

	t.Run("Should hide unexpected errors", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.NotContains(t, body.Message, "pq")
		assert.NotEmpty(t, body.RequestID)
	})
}
