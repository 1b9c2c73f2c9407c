package security

import (
	"net/http"
	"strconv"
	"strings"

	"go-freelance-backend/internal/delivery/http/middleware"
	"go-freelance-backend/internal/delivery/http/response"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// SecurityDashboardHandler serves recent audit events to admins.
type SecurityDashboardHandler struct {
	usecase domain.SecurityDashboardUsecase
}

func NewSecurityDashboardHandler(usecase domain.SecurityDashboardUsecase) *SecurityDashboardHandler {
	return &SecurityDashboardHandler{usecase: usecase}
}

// RegisterRoutes mounts the dashboard under router, which must already run
// AuthMiddleware. allowedIPs, when non-empty, restricts access to those
// addresses or CIDR ranges.
func (h *SecurityDashboardHandler) RegisterRoutes(router *gin.RouterGroup, allowedIPs []string) {
	dashboard := router.Group("/admin/security",
		middleware.SecurityIPAllowlistMiddleware(allowedIPs),
		middleware.RequireRole(domain.RoleAdmin),
		middleware.SecurityAuditMiddleware(),
	)
	{
		dashboard.GET("/stats", h.GetStats)
		dashboard.GET("/events", h.ListEvents)
		dashboard.GET("/heatmap", h.GetHeatmap)
	}
}

// GetStats godoc
// @Summary      Security statistics
// @Description  Counts over the recent audit events, cached for a minute
// @Tags         security
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /admin/security/stats [get]
// @Security     BearerAuth
func (h *SecurityDashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.usecase.GetStats(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Security stats", stats)
}

// ListEvents godoc
// @Summary      Recent security events
// @Description  Newest first. event_types and severities take comma-separated values.
// @Tags         security
// @Produce      json
// @Param        event_types  query     string  false  "e.g. login_failed,csrf_violation"
// @Param        severities   query     string  false  "e.g. HIGH,CRITICAL"
// @Param        ip           query     string  false  "Exact client IP"
// @Param        limit        query     int     false  "Page size (max 200)"
// @Param        offset       query     int     false  "Offset"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /admin/security/events [get]
// @Security     BearerAuth
func (h *SecurityDashboardHandler) ListEvents(c *gin.Context) {
	filter := domain.SecurityEventFilter{
		EventTypes: splitList(c.Query("event_types")),
		Severities: splitList(strings.ToUpper(c.Query("severities"))),
		SearchIP:   strings.TrimSpace(c.Query("ip")),
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filter.Offset = v
	}

	events, total, err := h.usecase.ListEvents(c.Request.Context(), middleware.ActorFrom(c), filter)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Security events", gin.H{
		"events": events,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetHeatmap godoc
// @Summary      Authentication failure heatmap
// @Description  Hourly failed sign-ins and rejected tokens
// @Tags         security
// @Produce      json
// @Param        hours  query     int  false  "Hours to cover (default 24, max 168)"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /admin/security/heatmap [get]
// @Security     BearerAuth
func (h *SecurityDashboardHandler) GetHeatmap(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil {
		c.Error(apperror.BadRequest("hours must be a number"))
		return
	}

	data, err := h.usecase.GetAuthFailureHeatmap(c.Request.Context(), middleware.ActorFrom(c), hours)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Authentication failures", data)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
