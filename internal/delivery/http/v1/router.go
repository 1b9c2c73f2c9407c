package v1

import (
	"net/http"
	"time"

	"go-freelance-backend/internal/delivery/http/middleware"
	"go-freelance-backend/internal/delivery/http/response"
	securityhttp "go-freelance-backend/internal/delivery/http/security"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/internal/usecase"
	"go-freelance-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	JobUC         domain.JobUsecase
	ApplicationUC domain.ApplicationUsecase
	MilestoneUC   domain.MilestoneUsecase
	ReportUC      domain.ReportUsecase
	ProfileUC     domain.ProfileUsecase
	SessionUC     domain.SessionUsecase
	HealthUC      usecase.HealthUsecase
	SecurityUC    domain.SecurityDashboardUsecase
	Profiles      domain.ProfileRepository
	JWKSProvider  *auth.Provider
	Google        *auth.GoogleProvider
	Auth          AuthSettings
	FrontendURL   string
	// Origin of uploaded icons when they live in a bucket
	IconOrigin string
	// Addresses or CIDRs allowed on the security dashboard; empty allows all
	SecurityAllowedIPs []string
	// Global per-IP limit; zero disables it
	RateLimit       int
	RateLimitWindow time.Duration
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// CORS must be first
	r.Use(middleware.CORSMiddleware(deps.FrontendURL))
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeadersMiddleware(deps.IconOrigin))
	r.Use(middleware.ErrorHandler())
	if deps.RateLimit > 0 {
		r.Use(middleware.RateLimitMiddleware(middleware.DefaultRateLimitConfig(deps.RateLimit, deps.RateLimitWindow)))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")

	v1.GET("/health", func(c *gin.Context) {
		if deps.HealthUC == nil {
			response.Success(c, http.StatusOK, "System operational", nil)
			return
		}
		status, healthy := deps.HealthUC.Check(c.Request.Context())
		if !healthy {
			response.Error(c, http.StatusServiceUnavailable, "System degraded", status)
			return
		}
		response.Success(c, http.StatusOK, "System operational", status)
	})

	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	public := v1.Group("")
	protected := v1.Group("")
	protected.Use(middleware.CSRFMiddleware(deps.Auth.SecureCookies))
	protected.Use(middleware.AuthMiddleware(deps.Auth.JWTSecret, deps.JWKSProvider, deps.Profiles))
	{
		authLimit := middleware.RateLimitMiddleware(middleware.AuthRateLimitConfig())
		uploadLimit := middleware.RateLimitMiddleware(middleware.UploadRateLimitConfig())
		paymentLimit := middleware.RateLimitMiddleware(middleware.PaymentRateLimitConfig())

		NewAuthHandler(public, protected, authLimit, deps.Google, deps.SessionUC, deps.ProfileUC, deps.Auth)
		NewSessionHandler(protected, deps.SessionUC)
		NewProfileHandler(protected, uploadLimit, deps.ProfileUC)
		NewJobHandler(protected, deps.JobUC)
		NewApplicationHandler(protected, deps.ApplicationUC)
		NewMilestoneHandler(protected, paymentLimit, deps.MilestoneUC)
		NewReportHandler(protected, deps.ReportUC)
		if deps.SecurityUC != nil {
			securityhttp.NewSecurityDashboardHandler(deps.SecurityUC).RegisterRoutes(protected, deps.SecurityAllowedIPs)
		}
	}

	return r
}
