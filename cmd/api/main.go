package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-freelance-backend/config"
	_ "go-freelance-backend/docs" // Swagger spec
	"go-freelance-backend/internal/app"
	v1 "go-freelance-backend/internal/delivery/http/v1"
	"go-freelance-backend/pkg/auth"
	"go-freelance-backend/pkg/logger"
	"go-freelance-backend/pkg/security"
)

// @title           Freelance Marketplace API
// @version         1.0
// @description     Jobs, applications, milestone contracts and payments for clients and freelancers.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting freelance backend", "port", cfg.Port, "store", cfg.StoreDriver)

	audit := security.NewSecurityLogger("freelance-backend", cfg.Environment)
	security.InitSecurityLogger(audit)
	defer audit.Sync()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Setup Stores
	stores, err := app.OpenStores(rootCtx, cfg)
	if err != nil {
		logger.Log.Error("Failed to open stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	// 4. Setup Repositories and UseCases
	repos := app.NewRepositories(stores.Tree)
	ucs := app.NewUsecases(cfg, stores, repos)

	// 5. Setup Auth Providers
	var jwksProvider *auth.Provider
	if cfg.JWKSUrl != "" {
		jwksProvider = auth.NewProvider(cfg.JWKSUrl)
	}
	google := auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	if !google.Configured() {
		logger.Log.Warn("Google OAuth not configured - sign-in is unavailable")
	}

	// 6. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		JobUC:         ucs.Jobs,
		ApplicationUC: ucs.Applications,
		MilestoneUC:   ucs.Milestones,
		ReportUC:      ucs.Reports,
		ProfileUC:     ucs.Profiles,
		SessionUC:     ucs.Sessions,
		HealthUC:      ucs.Health,
		SecurityUC:    ucs.Security,
		Profiles:      repos.Profiles,
		JWKSProvider:  jwksProvider,
		Google:        google,
		Auth: v1.AuthSettings{
			JWTSecret:     cfg.JWTSecret,
			JWTExpiresMin: cfg.JWTExpiresMin,
			SecureCookies: cfg.SecureCookies,
		},
		FrontendURL:        cfg.FrontendURL,
		IconOrigin:         cfg.IconPublicBaseURL,
		SecurityAllowedIPs: cfg.SecurityAllowedIPs,
		RateLimit:          cfg.RateLimitGlobalThreshold,
		RateLimitWindow:    app.RateLimitWindow(cfg),
	})

	// 7. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts derive from rootCtx so stop() ends event streams
		BaseContext: func(net.Listener) context.Context { return rootCtx },
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
			stop()
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-rootCtx.Done():
	}
	logger.Log.Info("Shutting down server...")

	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
