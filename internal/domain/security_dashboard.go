package domain

import (
	"context"
	"time"

	"go-freelance-backend/pkg/security"
)

// SecurityDashboardStats aggregates the recent audit events.
type SecurityDashboardStats struct {
	TotalEvents        int64            `json:"totalEvents"`
	EventsBySeverity   map[string]int64 `json:"eventsBySeverity"`
	EventsByType       map[string]int64 `json:"eventsByType"`
	TopIPs             []IPSummary      `json:"topIps"`
	FailedLogins24h    int64            `json:"failedLogins24h"`
	BlockedAttempts24h int64            `json:"blockedAttempts24h"`
	PaymentFailures24h int64            `json:"paymentFailures24h"`
	CriticalEvents24h  int64            `json:"criticalEvents24h"`
	OldestEvent        *time.Time       `json:"oldestEvent,omitempty"`
}

// IPSummary represents aggregated stats for an IP address
type IPSummary struct {
	IP              string    `json:"ip"`
	EventCount      int64     `json:"eventCount"`
	FailedLogins    int64     `json:"failedLogins"`
	LastSeen        time.Time `json:"lastSeen"`
	HighestSeverity string    `json:"highestSeverity"`
}

// SecurityEventFilter narrows the event list. Empty fields match everything.
type SecurityEventFilter struct {
	EventTypes []string `form:"event_types"`
	Severities []string `form:"severities"`
	SearchIP   string   `form:"ip"`
	Limit      int      `form:"limit"`
	Offset     int      `form:"offset"`
}

// HeatmapData is hourly counts of failed sign-ins and rejected tokens.
type HeatmapData struct {
	Buckets    []HeatmapBucket `json:"buckets"`
	MaxCount   int64           `json:"maxCount"`
	BucketSize string          `json:"bucketSize"`
}

type HeatmapBucket struct {
	Timestamp  time.Time        `json:"timestamp"`
	Count      int64            `json:"count"`
	BySeverity map[string]int64 `json:"bySeverity,omitempty"`
}

// SecurityEventStore is the recent-events log the audit logger feeds.
type SecurityEventStore interface {
	Recent(ctx context.Context, limit int) ([]security.SecurityEvent, error)
}

// SecurityDashboardUsecase serves the admin view of audit events.
type SecurityDashboardUsecase interface {
	GetStats(ctx context.Context, actor Actor) (*SecurityDashboardStats, error)
	ListEvents(ctx context.Context, actor Actor, filter SecurityEventFilter) ([]security.SecurityEvent, int64, error)
	GetAuthFailureHeatmap(ctx context.Context, actor Actor, hours int) (*HeatmapData, error)
}
