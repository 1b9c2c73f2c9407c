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

type JobHandler struct {
	jobUC domain.JobUsecase
}

func NewJobHandler(protected *gin.RouterGroup, jobUC domain.JobUsecase) {
	handler := &JobHandler{jobUC: jobUC}

	jobs := protected.Group("/jobs")
	{
		jobs.GET("", handler.List)
		jobs.GET("/:id", handler.GetDetails)
		jobs.POST("", middleware.RequireRole(domain.RoleClient), handler.Create)
		jobs.PUT("/:id", middleware.RequireRole(domain.RoleClient), handler.Update)
		jobs.DELETE("/:id", middleware.RequireRole(domain.RoleClient), handler.Delete)
	}

	clients := protected.Group("/clients/me", middleware.RequireRole(domain.RoleClient))
	{
		clients.GET("/jobs", handler.ListMine)
		clients.GET("/jobs/stream", handler.StreamMine)
	}
}

// CreateJob godoc
// @Summary      Post a job
// @Description  Create a job with 1 to MAX_MILESTONES milestones (Client only). Budget and amounts accept numbers or numeric strings.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        job  body      domain.JobInput  true  "Job JSON"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /jobs [post]
// @Security     BearerAuth
func (h *JobHandler) Create(c *gin.Context) {
	var input domain.JobInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(apperror.BadRequest("Invalid request body: " + err.Error()))
		return
	}

	job, err := h.jobUC.CreateJob(c.Request.Context(), middleware.ActorFrom(c), input)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "Job created", job)
}

// ListJobs godoc
// @Summary      List jobs
// @Description  All posted jobs, newest first
// @Tags         jobs
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /jobs [get]
// @Security     BearerAuth
func (h *JobHandler) List(c *gin.Context) {
	jobs, err := h.jobUC.ListJobs(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Job list", jobs)
}

// GetJob godoc
// @Summary      Get job details
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /jobs/{id} [get]
// @Security     BearerAuth
func (h *JobHandler) GetDetails(c *gin.Context) {
	job, err := h.jobUC.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Job details", job)
}

// UpdateJob godoc
// @Summary      Update a job
// @Description  Overwrite a job the caller owns
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id   path      string           true  "Job ID"
// @Param        job  body      domain.JobInput  true  "Job JSON"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /jobs/{id} [put]
// @Security     BearerAuth
func (h *JobHandler) Update(c *gin.Context) {
	var input domain.JobInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(apperror.BadRequest("Invalid request body: " + err.Error()))
		return
	}

	job, err := h.jobUC.UpdateJob(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Job updated", job)
}

// DeleteJob godoc
// @Summary      Delete a job
// @Description  Remove a job with its applications and contracts. Deleting a missing job succeeds.
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /jobs/{id} [delete]
// @Security     BearerAuth
func (h *JobHandler) Delete(c *gin.Context) {
	if err := h.jobUC.DeleteJob(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Job deleted", nil)
}

// ListClientJobs godoc
// @Summary      List my jobs
// @Description  Jobs posted by the calling client
// @Tags         clients
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /clients/me/jobs [get]
// @Security     BearerAuth
func (h *JobHandler) ListMine(c *gin.Context) {
	jobs, err := h.jobUC.ListJobsForClient(c.Request.Context(), middleware.ActorFrom(c).UID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Client job list", jobs)
}

// StreamClientJobs godoc
// @Summary      Stream my jobs
// @Description  Server-sent events; every "snapshot" event carries the full job list
// @Tags         clients
// @Produce      text/event-stream
// @Router       /clients/me/jobs/stream [get]
// @Security     BearerAuth
func (h *JobHandler) StreamMine(c *gin.Context) {
	uid := middleware.ActorFrom(c).UID
	streamSnapshots(c, func(ctx context.Context, fn func([]domain.Job, error)) (domain.Unsubscribe, error) {
		return h.jobUC.WatchJobsForClient(ctx, uid, fn)
	})
}
