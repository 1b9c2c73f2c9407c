// Package app opens the stores named by the configuration and assembles the
// usecases on top of them.
package app

import (
	"context"
	"fmt"
	"time"

	"go-freelance-backend/config"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/internal/repository/document"
	"go-freelance-backend/internal/repository/memory"
	"go-freelance-backend/internal/repository/postgres"
	redisrepo "go-freelance-backend/internal/repository/redis"
	"go-freelance-backend/internal/repository/tree"
	"go-freelance-backend/internal/usecase"
	"go-freelance-backend/pkg/database"
	"go-freelance-backend/pkg/email"
	"go-freelance-backend/pkg/logger"
	"go-freelance-backend/pkg/redis"
	"go-freelance-backend/pkg/security"
	"go-freelance-backend/pkg/storage"
	"go-freelance-backend/pkg/validation"
)

// Stores is the storage layer: the shared document tree plus the per-user
// local store.
type Stores struct {
	Tree     domain.TreeStore
	Sessions domain.SessionStore
	Wallets  domain.WalletStore
	// Nil keeps icons inline on the profile
	Icons domain.IconStore
	// Nil skips payment receipts
	Mailer domain.ReceiptMailer
	// Recent audit events, fed by the security logger
	SecurityEvents interface {
		domain.SecurityEventStore
		security.EventSink
	}
	Checks map[string]usecase.Pinger

	closers []func()
}

func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// OpenStores connects redis when REDIS_URL is set and the tree driver
// selected by STORE_DRIVER. Subscriptions stay live until ctx ends.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	stores := &Stores{Checks: map[string]usecase.Pinger{}}

	var notifier tree.Notifier
	if cfg.RedisURL != "" {
		if err := redis.Initialize(redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword}); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		stores.closers = append(stores.closers, func() { _ = redis.Close() })

		local := redisrepo.NewLocalStore(redis.Client())
		stores.Sessions, stores.Wallets = local, local
		stores.Checks["redis"] = redis.Pinger{}
		notifier = redisrepo.NewChangeNotifier(redis.Client())
		stores.SecurityEvents = redisrepo.NewSecurityEventLog(redis.Client(), cfg.SecurityEventLogSize)
	} else {
		local := memory.NewLocalStore()
		stores.Sessions, stores.Wallets = local, local
		stores.SecurityEvents = security.NewMemoryEventLog(cfg.SecurityEventLogSize)
	}
	security.DefaultLogger().AddSink(stores.SecurityEvents)

	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		stores.closers = append(stores.closers, pool.Close)

		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			stores.Close()
			return nil, err
		}
		ts, err := postgres.NewTreeStore(ctx, pool, notifier)
		if err != nil {
			stores.Close()
			return nil, err
		}
		stores.Tree = ts
		stores.Checks["database"] = ts
	case config.StoreMemory:
		ts := memory.NewTreeStore()
		stores.Tree = ts
		stores.Checks["store"] = ts
	default:
		stores.Close()
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	s3cfg := storage.S3Config{
		Provider:        storage.S3Provider(cfg.S3Provider),
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Region:          cfg.S3Region,
		Bucket:          cfg.IconBucket,
		Endpoint:        cfg.S3Endpoint,
		PublicBaseURL:   cfg.IconPublicBaseURL,
	}
	if s3cfg.Configured() {
		icons, err := storage.NewIconBucket(ctx, s3cfg)
		if err != nil {
			stores.Close()
			return nil, err
		}
		stores.Icons = icons
		stores.Checks["icons"] = icons
	}

	mailer := email.NewMailer(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFromEmail,
	})
	if mailer.Configured() {
		stores.Mailer = mailer
	}

	logger.Log.Info("Stores ready", "driver", cfg.StoreDriver, "redis", cfg.RedisURL != "", "icons", stores.Icons != nil, "receipts", stores.Mailer != nil)
	return stores, nil
}

// Repositories over the document tree.
type Repositories struct {
	Jobs         domain.JobRepository
	Applications domain.ApplicationRepository
	Profiles     domain.ProfileRepository
}

func NewRepositories(store domain.TreeStore) Repositories {
	return Repositories{
		Jobs:         document.NewJobRepository(store),
		Applications: document.NewApplicationRepository(store),
		Profiles:     document.NewProfileRepository(store),
	}
}

type Usecases struct {
	Jobs         domain.JobUsecase
	Applications domain.ApplicationUsecase
	Milestones   domain.MilestoneUsecase
	Reports      domain.ReportUsecase
	Profiles     domain.ProfileUsecase
	Sessions     domain.SessionUsecase
	Health       usecase.HealthUsecase
	Security     domain.SecurityDashboardUsecase
}

func NewUsecases(cfg *config.Config, stores *Stores, repos Repositories) Usecases {
	validate := validation.New()
	return Usecases{
		Jobs:         usecase.NewJobUsecase(repos.Jobs, repos.Applications, validate, cfg.MaxMilestones),
		Applications: usecase.NewApplicationUsecase(repos.Applications, repos.Jobs, repos.Profiles, validate, cfg.WorkflowStepAttempts),
		Milestones:   usecase.NewMilestoneUsecase(repos.Applications, repos.Jobs, repos.Profiles, stores.Wallets, stores.Mailer, cfg.WorkflowStepAttempts),
		Reports:      usecase.NewReportUsecase(repos.Jobs, repos.Applications, repos.Profiles),
		Profiles:     usecase.NewProfileUsecase(repos.Profiles, stores.Sessions, stores.Icons, validate),
		Sessions:     usecase.NewSessionUsecase(stores.Sessions, repos.Profiles),
		Health:       usecase.NewHealthUsecase(stores.Checks),
		Security:     usecase.NewSecurityDashboardUsecase(stores.SecurityEvents),
	}
}

// RateLimitWindow converts the configured window to a duration.
func RateLimitWindow(cfg *config.Config) time.Duration {
	return time.Duration(cfg.RateLimitWindowSeconds) * time.Second
}

// Migrate creates the postgres schema without opening the rest of the stores.
func Migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.StoreDriver != config.StorePostgres {
		return fmt.Errorf("STORE_DRIVER is %q, nothing to migrate", cfg.StoreDriver)
	}
	pool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	return postgres.EnsureSchema(ctx, pool)
}
