package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"go-freelance-backend/pkg/security"

	goredis "github.com/redis/go-redis/v9"
)

const securityEventsKey = "security:events"

// SecurityEventLog keeps the most recent audit events in a capped redis
// list so every instance sees the same history.
type SecurityEventLog struct {
	rdb  *goredis.Client
	size int64
}

func NewSecurityEventLog(rdb *goredis.Client, size int) *SecurityEventLog {
	if size <= 0 {
		size = security.DefaultEventLogSize
	}
	return &SecurityEventLog{rdb: rdb, size: int64(size)}
}

func (l *SecurityEventLog) Record(ctx context.Context, event security.SecurityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode security event: %w", err)
	}
	pipe := l.rdb.TxPipeline()
	pipe.LPush(ctx, securityEventsKey, data)
	pipe.LTrim(ctx, securityEventsKey, 0, l.size-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record security event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first. limit <= 0 returns all.
func (l *SecurityEventLog) Recent(ctx context.Context, limit int) ([]security.SecurityEvent, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}
	raw, err := l.rdb.LRange(ctx, securityEventsKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read security events: %w", err)
	}

	events := make([]security.SecurityEvent, 0, len(raw))
	for _, item := range raw {
		var ev security.SecurityEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
