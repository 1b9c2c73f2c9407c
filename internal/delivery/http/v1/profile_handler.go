package v1

import (
	"io"
	"net/http"

	"go-freelance-backend/internal/delivery/http/middleware"
	"go-freelance-backend/internal/delivery/http/response"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/internal/usecase"
	"go-freelance-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileUC domain.ProfileUsecase
}

func NewProfileHandler(protected *gin.RouterGroup, uploadLimit gin.HandlerFunc, profileUC domain.ProfileUsecase) {
	handler := &ProfileHandler{profileUC: profileUC}

	profile := protected.Group("/profile")
	{
		profile.GET("", handler.GetMine)
		profile.PUT("", handler.Update)
		profile.POST("/icon", uploadLimit, handler.UploadIcon)
	}

	protected.GET("/profiles/:uid", handler.GetByID)
	protected.GET("/admin/users", middleware.RequireRole(domain.RoleAdmin), handler.ListUsers)
}

// GetProfile godoc
// @Summary      Get my profile
// @Tags         profile
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /profile [get]
// @Security     BearerAuth
func (h *ProfileHandler) GetMine(c *gin.Context) {
	profile, err := h.profileUC.GetProfile(c.Request.Context(), middleware.ActorFrom(c).UID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Profile", profile)
}

// UpdateProfile godoc
// @Summary      Update my profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        profile  body      domain.ProfileInput  true  "Profile fields"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /profile [put]
// @Security     BearerAuth
func (h *ProfileHandler) Update(c *gin.Context) {
	var input domain.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(apperror.BadRequest("Invalid request body: " + err.Error()))
		return
	}

	profile, err := h.profileUC.UpdateProfile(c.Request.Context(), middleware.ActorFrom(c).UID, input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Profile updated", profile)
}

// UploadIcon godoc
// @Summary      Upload a profile picture
// @Description  PNG or JPEG up to 5MB; stored scaled to 256px as JPEG
// @Tags         profile
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Image file"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /profile/icon [post]
// @Security     BearerAuth
func (h *ProfileHandler) UploadIcon(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.Error(apperror.BadRequest("File is required"))
		return
	}
	if fileHeader.Size > usecase.MaxIconUploadBytes {
		c.Error(apperror.BadRequest("Icon file exceeds 5MB"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.Error(apperror.Internal(err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, usecase.MaxIconUploadBytes+1))
	if err != nil {
		c.Error(apperror.Internal(err))
		return
	}

	profile, err := h.profileUC.UploadIcon(c.Request.Context(), middleware.ActorFrom(c).UID, data)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Icon uploaded", profile)
}

// GetUserProfile godoc
// @Summary      Get a user's profile
// @Tags         profile
// @Produce      json
// @Param        uid  path      string  true  "User UID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /profiles/{uid} [get]
// @Security     BearerAuth
func (h *ProfileHandler) GetByID(c *gin.Context) {
	profile, err := h.profileUC.GetProfile(c.Request.Context(), c.Param("uid"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Profile", profile)
}

// ListUsers godoc
// @Summary      List users by role
// @Tags         admin
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /admin/users [get]
// @Security     BearerAuth
func (h *ProfileHandler) ListUsers(c *gin.Context) {
	dir, err := h.profileUC.ListUsers(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "User directory", dir)
}
