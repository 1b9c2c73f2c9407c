package v1

import (
	"net/http"

	"go-freelance-backend/internal/delivery/http/middleware"
	"go-freelance-backend/internal/delivery/http/response"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionUC domain.SessionUsecase
}

type NavigationRequest struct {
	Path string `json:"path" binding:"required"`
}

func NewSessionHandler(protected *gin.RouterGroup, sessionUC domain.SessionUsecase) {
	handler := &SessionHandler{sessionUC: sessionUC}

	session := protected.Group("/session")
	{
		session.GET("", handler.Get)
		session.GET("/navigation", handler.Navigation)
		session.POST("/navigation", handler.RecordNavigation)
	}
}

// GetSession godoc
// @Summary      Get my session
// @Description  Identity and role stored at sign-in
// @Tags         session
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /session [get]
// @Security     BearerAuth
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessionUC.GetSession(c.Request.Context(), middleware.ActorFrom(c).UID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Session", session)
}

// Navigation godoc
// @Summary      Recent navigation
// @Description  Most recent first
// @Tags         session
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /session/navigation [get]
// @Security     BearerAuth
func (h *SessionHandler) Navigation(c *gin.Context) {
	entries, err := h.sessionUC.Navigation(c.Request.Context(), middleware.ActorFrom(c).UID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Navigation", entries)
}

// RecordNavigation godoc
// @Summary      Record a navigation
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        navigation  body      NavigationRequest  true  "Visited path"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /session/navigation [post]
// @Security     BearerAuth
func (h *SessionHandler) RecordNavigation(c *gin.Context) {
	var req NavigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body: " + err.Error()))
		return
	}

	entries, err := h.sessionUC.RecordNavigation(c.Request.Context(), middleware.ActorFrom(c).UID, req.Path)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Navigation recorded", entries)
}
