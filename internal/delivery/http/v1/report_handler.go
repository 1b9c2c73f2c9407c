package v1

import (
	"net/http"

	"go-freelance-backend/internal/delivery/http/middleware"
	"go-freelance-backend/internal/delivery/http/response"
	"go-freelance-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportUC domain.ReportUsecase
}

func NewReportHandler(protected *gin.RouterGroup, reportUC domain.ReportUsecase) {
	handler := &ReportHandler{reportUC: reportUC}

	reports := protected.Group("/reports")
	{
		reports.GET("/client", middleware.RequireRole(domain.RoleClient), handler.Client)
		reports.GET("/freelancer", middleware.RequireRole(domain.RoleFreelancer), handler.Freelancer)
		reports.GET("/admin", middleware.RequireRole(domain.RoleAdmin), handler.Admin)
		reports.GET("/admin/export", middleware.RequireRole(domain.RoleAdmin), handler.Export)
	}
}

// ClientReport godoc
// @Summary      Client statistics
// @Tags         reports
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /reports/client [get]
// @Security     BearerAuth
func (h *ReportHandler) Client(c *gin.Context) {
	stats, err := h.reportUC.ClientReport(c.Request.Context(), middleware.ActorFrom(c).UID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Client report", stats)
}

// FreelancerReport godoc
// @Summary      Freelancer statistics
// @Tags         reports
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /reports/freelancer [get]
// @Security     BearerAuth
func (h *ReportHandler) Freelancer(c *gin.Context) {
	stats, err := h.reportUC.FreelancerReport(c.Request.Context(), middleware.ActorFrom(c).UID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Freelancer report", stats)
}

// AdminReport godoc
// @Summary      Platform statistics
// @Tags         reports
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /reports/admin [get]
// @Security     BearerAuth
func (h *ReportHandler) Admin(c *gin.Context) {
	stats, err := h.reportUC.AdminReport(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Platform report", stats)
}

// ExportLedger godoc
// @Summary      Export the contract ledger
// @Description  One row per milestone of every job, as xlsx (default) or csv
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      text/csv
// @Param        format  query     string  false  "xlsx or csv"
// @Success      200
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /reports/admin/export [get]
// @Security     BearerAuth
func (h *ReportHandler) Export(c *gin.Context) {
	file, err := h.reportUC.ExportLedger(c.Request.Context(), middleware.ActorFrom(c), c.Query("format"))
	if err != nil {
		c.Error(err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
