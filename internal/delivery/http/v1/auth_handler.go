package v1

import (
	"net/http"
	"strings"

	"go-freelance-backend/internal/delivery/http/middleware"
	"go-freelance-backend/internal/delivery/http/response"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"
	"go-freelance-backend/pkg/auth"
	"go-freelance-backend/pkg/logger"
	"go-freelance-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

const oauthStateCookie = "oauth_state"

// AuthSettings is the slice of configuration the auth routes need.
type AuthSettings struct {
	JWTSecret     string
	JWTExpiresMin int
	SecureCookies bool
}

type AuthHandler struct {
	google    *auth.GoogleProvider
	sessionUC domain.SessionUsecase
	profileUC domain.ProfileUsecase
	settings  AuthSettings
	audit     *security.SecurityLogger
}

type RegisterRequest struct {
	Role domain.Role `json:"role" binding:"required"`
}

func NewAuthHandler(public, protected *gin.RouterGroup, authLimit gin.HandlerFunc, google *auth.GoogleProvider, sessionUC domain.SessionUsecase, profileUC domain.ProfileUsecase, settings AuthSettings) {
	handler := &AuthHandler{
		google:    google,
		sessionUC: sessionUC,
		profileUC: profileUC,
		settings:  settings,
		audit:     security.DefaultLogger(),
	}

	publicAuth := public.Group("/auth", authLimit)
	{
		publicAuth.GET("/google", handler.GoogleStart)
		publicAuth.GET("/google/callback", handler.GoogleCallback)
	}

	protectedAuth := protected.Group("/auth")
	{
		protectedAuth.GET("/me", handler.Me)
		protectedAuth.POST("/register", handler.Register)
		protectedAuth.POST("/logout", handler.Logout)
	}
}

// GoogleStart godoc
// @Summary      Start Google sign-in
// @Description  Redirects to Google's consent screen
// @Tags         auth
// @Success      307
// @Failure      503  {object}  response.Response
// @Router       /auth/google [get]
func (h *AuthHandler) GoogleStart(c *gin.Context) {
	if !h.google.Configured() {
		c.Error(apperror.New(http.StatusServiceUnavailable, "Google sign-in is not configured", nil))
		return
	}
	state := auth.RandomState()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.settings.SecureCookies, true)
	c.Redirect(http.StatusTemporaryRedirect, h.google.AuthCodeURL(state))
}

// GoogleCallback godoc
// @Summary      Finish Google sign-in
// @Description  Exchanges the code, stores the session and issues the app token as JSON and as the auth_token cookie
// @Tags         auth
// @Produce      json
// @Param        code   query     string  true  "Authorization code"
// @Param        state  query     string  true  "OAuth state"
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Router       /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if !h.google.Configured() {
		c.Error(apperror.New(http.StatusServiceUnavailable, "Google sign-in is not configured", nil))
		return
	}

	expected, err := c.Cookie(oauthStateCookie)
	if err != nil || expected == "" || c.Query("state") != expected {
		h.loginFailed(c, "state_mismatch")
		c.Error(apperror.Unauthorized("Invalid OAuth state"))
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.settings.SecureCookies, true)

	code := c.Query("code")
	if code == "" {
		c.Error(apperror.BadRequest("Missing authorization code"))
		return
	}

	user, err := h.google.Exchange(c.Request.Context(), code)
	if err != nil {
		logger.Log.Warn("Google exchange failed", "error", err)
		h.loginFailed(c, "exchange_failed")
		c.Error(apperror.Unauthorized("Google sign-in failed"))
		return
	}

	identity := domain.Identity{UID: user.ID, DisplayName: user.Name, Email: user.Email}
	token, err := auth.SignToken(h.settings.JWTSecret, identity.UID, identity.Email, identity.DisplayName, h.settings.JWTExpiresMin)
	if err != nil {
		c.Error(apperror.Internal(err))
		return
	}

	session, err := h.sessionUC.SignIn(c.Request.Context(), identity)
	if err != nil {
		c.Error(err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookie, token, h.settings.JWTExpiresMin*60, "/", "", h.settings.SecureCookies, true)
	h.audit.LogLoginSuccess(c.Request.Context(), identity.Email, c.ClientIP(), c.Request.UserAgent(), response.RequestID(c))

	response.Success(c, http.StatusOK, "Signed in", gin.H{
		"token":   token,
		"user":    identity,
		"session": session,
	})
}

// Me godoc
// @Summary      Current user
// @Description  Identity, profile (null until a role is picked) and session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/me [get]
// @Security     BearerAuth
func (h *AuthHandler) Me(c *gin.Context) {
	identity := middleware.IdentityFrom(c)

	var profile *domain.UserProfile
	p, err := h.profileUC.GetProfile(c.Request.Context(), identity.UID)
	switch {
	case err == nil:
		profile = p
	case apperror.CodeOf(err) != http.StatusNotFound:
		c.Error(err)
		return
	}

	session, err := h.sessionUC.GetSession(c.Request.Context(), identity.UID)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "User profile", gin.H{
		"user":    identity,
		"profile": profile,
		"session": session,
	})
}

// Register godoc
// @Summary      Pick a role
// @Description  Creates the profile on first sign-in. The role cannot be changed later.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        register  body      RegisterRequest  true  "Client or Freelancer"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /auth/register [post]
// @Security     BearerAuth
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body: " + err.Error()))
		return
	}

	role := domain.Role(strings.TrimSpace(string(req.Role)))
	profile, err := h.profileUC.Register(c.Request.Context(), middleware.IdentityFrom(c), role)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Profile registered", profile)
}

// Logout godoc
// @Summary      Sign out
// @Description  Clears the stored session and the auth_token cookie
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
// @Security     BearerAuth
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := middleware.ActorFrom(c).UID
	if err := h.sessionUC.SignOut(c.Request.Context(), uid); err != nil {
		c.Error(apperror.Wrap(err))
		return
	}
	h.audit.LogUserEvent(c.Request.Context(), security.EventLogout, uid, nil)

	c.SetCookie(middleware.AuthCookie, "", -1, "/", "", h.settings.SecureCookies, true)
	response.Success(c, http.StatusOK, "Signed out", nil)
}

func (h *AuthHandler) loginFailed(c *gin.Context, reason string) {
	h.audit.LogLoginFailed(c.Request.Context(), c.ClientIP(), c.Request.UserAgent(), response.RequestID(c), reason)
}
