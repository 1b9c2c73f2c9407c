package v1

import (
	"context"
	"net/http"

	"go-freelance-backend/internal/delivery/http/middleware"
	"go-freelance-backend/internal/delivery/http/response"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type ApplicationHandler struct {
	appUC domain.ApplicationUsecase
}

func NewApplicationHandler(protected *gin.RouterGroup, appUC domain.ApplicationUsecase) {
	handler := &ApplicationHandler{appUC: appUC}

	jobs := protected.Group("/jobs/:id")
	{
		jobs.POST("/applications", middleware.RequireRole(domain.RoleFreelancer), handler.Apply)
		jobs.GET("/applications", middleware.RequireRole(domain.RoleClient, domain.RoleAdmin), handler.ListByJob)
		jobs.POST("/applications/:uid/accept", middleware.RequireRole(domain.RoleClient), handler.Accept)
		jobs.POST("/applications/:uid/reject", middleware.RequireRole(domain.RoleClient), handler.Reject)
	}

	freelancers := protected.Group("/freelancers/me", middleware.RequireRole(domain.RoleFreelancer))
	{
		freelancers.GET("/applications", handler.ListMine)
		freelancers.GET("/contracts", handler.ListContracts)
		freelancers.GET("/contracts/stream", handler.StreamContracts)
	}
}

// Apply godoc
// @Summary      Apply to a job
// @Description  Freelancers apply once per job
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        id           path      string                   true  "Job ID"
// @Param        application  body      domain.ApplicationInput  true  "Application JSON"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /jobs/{id}/applications [post]
// @Security     BearerAuth
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var input domain.ApplicationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(apperror.BadRequest("Invalid request body: " + err.Error()))
		return
	}

	app, err := h.appUC.Apply(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Application submitted", app)
}

// ListApplications godoc
// @Summary      List applications for a job
// @Description  Job owner or admin
// @Tags         applications
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /jobs/{id}/applications [get]
// @Security     BearerAuth
func (h *ApplicationHandler) ListByJob(c *gin.Context) {
	apps, err := h.appUC.ListByJob(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Application list", apps)
}

// AcceptApplicant godoc
// @Summary      Accept an applicant
// @Description  Accepts one pending applicant and rejects every other pending applicant of the job
// @Tags         applications
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Param        uid  path      string  true  "Applicant UID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /jobs/{id}/applications/{uid}/accept [post]
// @Security     BearerAuth
func (h *ApplicationHandler) Accept(c *gin.Context) {
	app, err := h.appUC.AcceptApplicant(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), c.Param("uid"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Applicant accepted", app)
}

// RejectApplicant godoc
// @Summary      Reject an applicant
// @Tags         applications
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Param        uid  path      string  true  "Applicant UID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /jobs/{id}/applications/{uid}/reject [post]
// @Security     BearerAuth
func (h *ApplicationHandler) Reject(c *gin.Context) {
	app, err := h.appUC.RejectApplicant(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), c.Param("uid"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Applicant rejected", app)
}

// ListMyApplications godoc
// @Summary      List my applications
// @Tags         freelancers
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /freelancers/me/applications [get]
// @Security     BearerAuth
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	apps, err := h.appUC.ListMine(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Application list", apps)
}

// ListContracts godoc
// @Summary      List my contracts
// @Description  Accepted applications with their milestone ledgers
// @Tags         freelancers
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /freelancers/me/contracts [get]
// @Security     BearerAuth
func (h *ApplicationHandler) ListContracts(c *gin.Context) {
	apps, err := h.appUC.ListContracts(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Contract list", apps)
}

// StreamContracts godoc
// @Summary      Stream my contracts
// @Description  Server-sent events; every "snapshot" event carries the full contract list
// @Tags         freelancers
// @Produce      text/event-stream
// @Router       /freelancers/me/contracts/stream [get]
// @Security     BearerAuth
func (h *ApplicationHandler) StreamContracts(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	streamSnapshots(c, func(ctx context.Context, fn func([]domain.Application, error)) (domain.Unsubscribe, error) {
		return h.appUC.WatchContracts(ctx, actor, fn)
	})
}
