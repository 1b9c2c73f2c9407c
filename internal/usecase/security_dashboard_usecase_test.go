package usecase_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/internal/usecase"
	"go-freelance-backend/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dashNow = time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

func event(kind security.EventType, ip string, ago time.Duration) security.SecurityEvent {
	return security.SecurityEvent{
		Timestamp: dashNow.Add(-ago),
		Event:     kind,
		Severity:  security.GetSeverity(kind),
		IP:        ip,
	}
}

func TestSecurityStats(t *testing.T) {
	t.Run("Should count recent events by kind and source", func(t *testing.T) {
		events := []security.SecurityEvent{
			event(security.EventLoginFailed, "10.0.0.1", time.Hour),
			event(security.EventLoginFailed, "10.0.0.1", 2*time.Hour),
			event(security.EventCSRFViolation, "10.0.0.2", time.Hour),
			event(security.EventPaymentFailed, "", time.Minute),
			event(security.EventWorkflowRollback, "", time.Minute),
			event(security.EventLoginFailed, "10.0.0.3", 48*time.Hour),
		}

		stats := usecase.SecurityStats(events, dashNow)
		assert.Equal(t, int64(6), stats.TotalEvents)
		assert.Equal(t, int64(2), stats.FailedLogins24h)
		assert.Equal(t, int64(1), stats.BlockedAttempts24h)
		assert.Equal(t, int64(1), stats.PaymentFailures24h)
		assert.Equal(t, int64(1), stats.CriticalEvents24h)
		assert.Equal(t, int64(3), stats.EventsByType[string(security.EventLoginFailed)])

		require.Len(t, stats.TopIPs, 3)
		top := stats.TopIPs[0]
		assert.Equal(t, "10.0.0.1", top.IP)
		assert.Equal(t, int64(2), top.FailedLogins)
		assert.Equal(t, dashNow.Add(-time.Hour), top.LastSeen)
		assert.Equal(t, "HIGH", stats.TopIPs[1].HighestSeverity)

		require.NotNil(t, stats.OldestEvent)
		assert.Equal(t, dashNow.Add(-48*time.Hour), *stats.OldestEvent)
	})

	t.Run("Should keep only the busiest sources", func(t *testing.T) {
		var events []security.SecurityEvent
		for i := 0; i < 15; i++ {
			events = append(events, event(security.EventTokenRejected, fmt.Sprintf("10.0.1.%d", i), time.Minute))
		}
		stats := usecase.SecurityStats(events, dashNow)
		assert.Len(t, stats.TopIPs, 10)
	})
}

func TestFilterSecurityEvents(t *testing.T) {
	events := []security.SecurityEvent{
		event(security.EventLoginFailed, "10.0.0.1", time.Minute),
		event(security.EventCSRFViolation, "10.0.0.1", time.Minute),
		event(security.EventLoginFailed, "10.0.0.2", time.Minute),
	}

	t.Run("Should keep events matching every set field", func(t *testing.T) {
		got := usecase.FilterSecurityEvents(events, domain.SecurityEventFilter{
			EventTypes: []string{"login_failed"},
			SearchIP:   "10.0.0.2",
		})
		require.Len(t, got, 1)
		assert.Equal(t, "10.0.0.2", got[0].IP)

		got = usecase.FilterSecurityEvents(events, domain.SecurityEventFilter{Severities: []string{"HIGH"}})
		require.Len(t, got, 1)
		assert.Equal(t, security.EventCSRFViolation, got[0].Event)

		assert.Len(t, usecase.FilterSecurityEvents(events, domain.SecurityEventFilter{}), 3)
	})
}

func TestAuthFailureHeatmap(t *testing.T) {
	t.Run("Should bucket failures by hour, oldest first", func(t *testing.T) {
		events := []security.SecurityEvent{
			event(security.EventLoginFailed, "", 10*time.Minute),
			event(security.EventTokenRejected, "", 20*time.Minute),
			event(security.EventLoginFailed, "", 2*time.Hour),
			event(security.EventCSRFViolation, "", 10*time.Minute),
			event(security.EventLoginFailed, "", 30*time.Hour),
		}

		data := usecase.AuthFailureHeatmap(events, dashNow, 24)
		require.Len(t, data.Buckets, 24)
		assert.Equal(t, "hour", data.BucketSize)

		last := data.Buckets[23]
		assert.Equal(t, time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC), last.Timestamp)
		assert.Equal(t, int64(2), last.Count)
		assert.Equal(t, int64(1), last.BySeverity["WARN"])
		assert.Equal(t, int64(1), data.Buckets[21].Count)
		assert.Equal(t, int64(2), data.MaxCount)
	})
}

func TestSecurityDashboardUsecase(t *testing.T) {
	ctx := context.Background()

	newDashboard := func(n int) (domain.SecurityDashboardUsecase, *security.MemoryEventLog) {
		log := security.NewMemoryEventLog(100)
		for i := 0; i < n; i++ {
			_ = log.Record(ctx, security.SecurityEvent{
				Timestamp: time.Now().Add(-time.Duration(n-i) * time.Minute),
				Event:     security.EventLoginFailed,
				Severity:  security.SeverityMEDIUM,
				IP:        fmt.Sprintf("10.0.0.%d", i),
			})
		}
		return usecase.NewSecurityDashboardUsecase(log), log
	}

	t.Run("Should refuse non-admins", func(t *testing.T) {
		uc, _ := newDashboard(0)

		_, err := uc.GetStats(ctx, client)
		assertCode(t, err, http.StatusForbidden)
		_, _, err = uc.ListEvents(ctx, client, domain.SecurityEventFilter{})
		assertCode(t, err, http.StatusForbidden)
		_, err = uc.GetAuthFailureHeatmap(ctx, client, 24)
		assertCode(t, err, http.StatusForbidden)
	})

	t.Run("Should page through the newest events", func(t *testing.T) {
		uc, _ := newDashboard(5)

		page, total, err := uc.ListEvents(ctx, admin, domain.SecurityEventFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, page, 2)
		assert.Equal(t, "10.0.0.3", page[0].IP)

		page, total, err = uc.ListEvents(ctx, admin, domain.SecurityEventFilter{Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Empty(t, page)
	})

	t.Run("Should cache stats for a minute", func(t *testing.T) {
		uc, log := newDashboard(2)

		first, err := uc.GetStats(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, int64(2), first.TotalEvents)

		_ = log.Record(ctx, security.SecurityEvent{Event: security.EventLogout, Timestamp: time.Now()})
		again, err := uc.GetStats(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, int64(2), again.TotalEvents)
	})

	t.Run("Should clamp the heatmap window", func(t *testing.T) {
		uc, _ := newDashboard(0)

		data, err := uc.GetAuthFailureHeatmap(ctx, admin, 0)
		require.NoError(t, err)
		assert.Len(t, data.Buckets, 24)

		data, err = uc.GetAuthFailureHeatmap(ctx, admin, 1000)
		require.NoError(t, err)
		assert.Len(t, data.Buckets, 168)
	})
}
