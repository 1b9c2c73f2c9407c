package usecase

import (
	"context"
	"time"
)

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthUsecase interface {
	Check(ctx context.Context) (map[string]string, bool)
}

type healthUsecase struct {
	checks map[string]Pinger
}

// NewHealthUsecase probes every named dependency; nil entries are skipped.
func NewHealthUsecase(checks map[string]Pinger) HealthUsecase {
	live := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			live[name] = p
		}
	}
	return &healthUsecase{checks: live}
}

func (u *healthUsecase) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	healthy := true
	result := map[string]string{"status": "ok"}
	for name, p := range u.checks {
		if err := p.Ping(ctx); err != nil {
			result[name] = "down: " + err.Error()
			healthy = false
			continue
		}
		result[name] = "up"
	}
	if !healthy {
		result["status"] = "degraded"
	}
	return result, healthy
}
