package config

import (
	"os"
	"strconv"
	"strings"

	"go-freelance-backend/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Port        string
	LogLevel    string
	Environment string
	FrontendURL string
	// Set cookies with the Secure flag; on when the frontend is served over https
	SecureCookies bool
	// Store configuration
	StoreDriver string
	DBUrl       string
	// Redis configuration
	RedisURL      string
	RedisPassword string
	// Auth configuration
	JWTSecret          string
	JWTExpiresMin      int
	JWKSUrl            string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	// Icon object storage; icons are inlined on profiles when unset
	S3Provider        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Endpoint        string
	IconBucket        string
	IconPublicBaseURL string
	// SMTP relay for payment receipts; receipts are skipped when unset
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromEmail string
	// Marketplace rules
	MaxMilestones        int
	WorkflowStepAttempts int
	// Security dashboard
	SecurityAllowedIPs   []string
	SecurityEventLogSize int
	// Rate limiting
	RateLimitWindowSeconds   int
	RateLimitGlobalThreshold int
}

func LoadConfig() (*Config, error) {
	// Only present locally; production reads the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),
		Environment: environment(),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		DBUrl:       getEnv("DATABASE_URL", ""),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTExpiresMin:      getEnvInt("JWT_EXPIRES_MIN", 60*24),
		JWKSUrl:            getEnv("JWKS_URL", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/v1/auth/google/callback"),

		S3Provider:        strings.ToLower(getEnv("S3_PROVIDER", "aws")),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		IconBucket:        getEnv("ICON_BUCKET", ""),
		IconPublicBaseURL: getEnv("ICON_PUBLIC_BASE_URL", ""),

		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPFromEmail: getEnv("SMTP_FROM_EMAIL", ""),

		MaxMilestones:        getEnvInt("MAX_MILESTONES", 3),
		WorkflowStepAttempts: getEnvInt("WORKFLOW_STEP_ATTEMPTS", 1),

		SecurityAllowedIPs:   splitEnv("SECURITY_ALLOWED_IPS"),
		SecurityEventLogSize: getEnvInt("SECURITY_EVENT_LOG_SIZE", 1000),

		RateLimitWindowSeconds:   getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),    // 1 minute window
		RateLimitGlobalThreshold: getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 100), // 100 requests per window
	}

	cfg.SecureCookies = strings.HasPrefix(cfg.FrontendURL, "https://")

	if cfg.StoreDriver == StorePostgres && cfg.DBUrl == "" {
		logger.Log.Warn("DATABASE_URL is missing; the postgres store cannot connect")
	}
	if cfg.RedisURL == "" {
		logger.Log.Warn("REDIS_URL not configured; sessions, wallets and rate limits stay in memory")
	}
	if cfg.JWTSecret == "" {
		logger.Log.Warn("JWT_SECRET not configured; app tokens cannot be issued")
	}
	if cfg.MaxMilestones < 1 {
		cfg.MaxMilestones = 3
	}
	if cfg.WorkflowStepAttempts < 1 {
		cfg.WorkflowStepAttempts = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func environment() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	if os.Getenv("GIN_MODE") == "release" {
		return "production"
	}
	return "development"
}

func splitEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
