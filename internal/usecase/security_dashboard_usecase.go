package usecase

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"
	"go-freelance-backend/pkg/security"
)

const (
	topIPCount       = 10
	maxHeatmapHours  = 7 * 24
	maxEventPageSize = 200
)

type securityDashboardUsecase struct {
	events domain.SecurityEventStore
	now    func() time.Time

	// Stats are cached for statsCacheTTL
	statsCache    *domain.SecurityDashboardStats
	statsCacheAt  time.Time
	statsCacheTTL time.Duration
	statsMutex    sync.RWMutex
}

func NewSecurityDashboardUsecase(events domain.SecurityEventStore) domain.SecurityDashboardUsecase {
	return &securityDashboardUsecase{
		events:        events,
		now:           time.Now,
		statsCacheTTL: time.Minute,
	}
}

func requireAdmin(actor domain.Actor) error {
	if actor.Role != domain.RoleAdmin {
		return apperror.Forbidden("Only admins can view security events")
	}
	return nil
}

func (u *securityDashboardUsecase) GetStats(ctx context.Context, actor domain.Actor) (*domain.SecurityDashboardStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	u.statsMutex.RLock()
	if u.statsCache != nil && u.now().Sub(u.statsCacheAt) < u.statsCacheTTL {
		stats := u.statsCache
		u.statsMutex.RUnlock()
		return stats, nil
	}
	u.statsMutex.RUnlock()

	events, err := u.events.Recent(ctx, 0)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	stats := SecurityStats(events, u.now())

	u.statsMutex.Lock()
	u.statsCache = stats
	u.statsCacheAt = u.now()
	u.statsMutex.Unlock()
	return stats, nil
}

// SecurityStats summarises events as seen at now.
func SecurityStats(events []security.SecurityEvent, now time.Time) *domain.SecurityDashboardStats {
	stats := &domain.SecurityDashboardStats{
		TotalEvents:      int64(len(events)),
		EventsBySeverity: map[string]int64{},
		EventsByType:     map[string]int64{},
		TopIPs:           []domain.IPSummary{},
	}
	dayAgo := now.Add(-24 * time.Hour)
	byIP := map[string]*domain.IPSummary{}

	for _, ev := range events {
		stats.EventsBySeverity[string(ev.Severity)]++
		stats.EventsByType[string(ev.Event)]++
		if stats.OldestEvent == nil || ev.Timestamp.Before(*stats.OldestEvent) {
			ts := ev.Timestamp
			stats.OldestEvent = &ts
		}

		if ev.IP != "" {
			s, ok := byIP[ev.IP]
			if !ok {
				s = &domain.IPSummary{IP: ev.IP, HighestSeverity: string(security.SeverityINFO)}
				byIP[ev.IP] = s
			}
			s.EventCount++
			if ev.Event == security.EventLoginFailed {
				s.FailedLogins++
			}
			if ev.Timestamp.After(s.LastSeen) {
				s.LastSeen = ev.Timestamp
			}
			s.HighestSeverity = string(security.HigherSeverity(security.Severity(s.HighestSeverity), ev.Severity))
		}

		if ev.Timestamp.Before(dayAgo) {
			continue
		}
		switch ev.Event {
		case security.EventLoginFailed:
			stats.FailedLogins24h++
		case security.EventRateLimitTriggered, security.EventCSRFViolation, security.EventUnauthorizedAccess, security.EventTokenRejected:
			stats.BlockedAttempts24h++
		case security.EventPaymentFailed:
			stats.PaymentFailures24h++
		}
		if ev.Severity == security.SeverityCRITICAL {
			stats.CriticalEvents24h++
		}
	}

	for _, s := range byIP {
		stats.TopIPs = append(stats.TopIPs, *s)
	}
	sort.Slice(stats.TopIPs, func(i, j int) bool {
		a, b := stats.TopIPs[i], stats.TopIPs[j]
		if a.EventCount != b.EventCount {
			return a.EventCount > b.EventCount
		}
		return a.IP < b.IP
	})
	if len(stats.TopIPs) > topIPCount {
		stats.TopIPs = stats.TopIPs[:topIPCount]
	}
	return stats
}

func (u *securityDashboardUsecase) ListEvents(ctx context.Context, actor domain.Actor, filter domain.SecurityEventFilter) ([]security.SecurityEvent, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	if filter.Limit <= 0 || filter.Limit > maxEventPageSize {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	events, err := u.events.Recent(ctx, 0)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}

	matched := FilterSecurityEvents(events, filter)
	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []security.SecurityEvent{}, total, nil
	}
	end := min(filter.Offset+filter.Limit, len(matched))
	return matched[filter.Offset:end], total, nil
}

// FilterSecurityEvents keeps the events matching every set field of filter,
// in their original order. Limit and Offset are ignored.
func FilterSecurityEvents(events []security.SecurityEvent, filter domain.SecurityEventFilter) []security.SecurityEvent {
	out := make([]security.SecurityEvent, 0, len(events))
	for _, ev := range events {
		if len(filter.EventTypes) > 0 && !slices.Contains(filter.EventTypes, string(ev.Event)) {
			continue
		}
		if len(filter.Severities) > 0 && !slices.Contains(filter.Severities, string(ev.Severity)) {
			continue
		}
		if filter.SearchIP != "" && ev.IP != filter.SearchIP {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (u *securityDashboardUsecase) GetAuthFailureHeatmap(ctx context.Context, actor domain.Actor, hours int) (*domain.HeatmapData, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if hours <= 0 {
		hours = 24
	}
	hours = min(hours, maxHeatmapHours)

	events, err := u.events.Recent(ctx, 0)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return AuthFailureHeatmap(events, u.now(), hours), nil
}

// AuthFailureHeatmap buckets failed sign-ins and rejected tokens by hour for
// the hours leading up to now, oldest bucket first.
func AuthFailureHeatmap(events []security.SecurityEvent, now time.Time, hours int) *domain.HeatmapData {
	end := now.Truncate(time.Hour).Add(time.Hour)
	start := end.Add(-time.Duration(hours) * time.Hour)

	data := &domain.HeatmapData{
		Buckets:    make([]domain.HeatmapBucket, hours),
		BucketSize: "hour",
	}
	for i := range data.Buckets {
		data.Buckets[i] = domain.HeatmapBucket{
			Timestamp:  start.Add(time.Duration(i) * time.Hour),
			BySeverity: map[string]int64{},
		}
	}

	for _, ev := range events {
		if ev.Event != security.EventLoginFailed && ev.Event != security.EventTokenRejected {
			continue
		}
		if ev.Timestamp.Before(start) || !ev.Timestamp.Before(end) {
			continue
		}
		b := &data.Buckets[int(ev.Timestamp.Sub(start)/time.Hour)]
		b.Count++
		b.BySeverity[string(ev.Severity)]++
		data.MaxCount = max(data.MaxCount, b.Count)
	}
	return data
}
