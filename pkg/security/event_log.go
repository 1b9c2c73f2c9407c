package security

import (
	"context"
	"sync"
)

// DefaultEventLogSize is how many recent events a log keeps by default.
const DefaultEventLogSize = 1000

// EventSink receives every event the SecurityLogger writes.
type EventSink interface {
	Record(ctx context.Context, event SecurityEvent) error
}

// MemoryEventLog keeps the most recent events in a ring buffer.
type MemoryEventLog struct {
	mu     sync.Mutex
	events []SecurityEvent
	next   int
	full   bool
}

func NewMemoryEventLog(size int) *MemoryEventLog {
	if size <= 0 {
		size = DefaultEventLogSize
	}
	return &MemoryEventLog{events: make([]SecurityEvent, size)}
}

func (l *MemoryEventLog) Record(_ context.Context, event SecurityEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events[l.next] = event
	l.next = (l.next + 1) % len(l.events)
	if l.next == 0 {
		l.full = true
	}
	return nil
}

// Recent returns up to limit events, newest first. limit <= 0 returns all.
func (l *MemoryEventLog) Recent(_ context.Context, limit int) ([]SecurityEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.next
	if l.full {
		n = len(l.events)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]SecurityEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + len(l.events)) % len(l.events)
		out = append(out, l.events[idx])
	}
	return out, nil
}
