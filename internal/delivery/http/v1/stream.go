package v1

import (
	"context"
	"io"
	"net/http"
	"time"

	"go-freelance-backend/internal/delivery/http/response"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

const streamKeepAlive = 25 * time.Second

type streamEvent[T any] struct {
	value T
	err   error
}

// streamSnapshots serves a live subscription as server-sent events. Each
// delivery is sent as a "snapshot" event; when deliveries arrive faster than
// the client reads, only the newest is kept. The subscription ends with the
// request.
func streamSnapshots[T any](c *gin.Context, watch func(ctx context.Context, fn func(T, error)) (domain.Unsubscribe, error)) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates := make(chan streamEvent[T], 1)
	push := func(v T, err error) {
		ev := streamEvent[T]{value: v, err: err}
		for {
			select {
			case updates <- ev:
				return
			case <-ctx.Done():
				return
			default:
			}
			// Drop the stale snapshot
			select {
			case <-updates:
			default:
			}
		}
	}

	unsubscribe, err := watch(ctx, push)
	if err != nil {
		response.Error(c, apperror.CodeOf(err), err.Error(), nil)
		return
	}
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-updates:
			if ev.err != nil {
				c.SSEvent("error", gin.H{"message": "Failed to refresh data"})
				return true
			}
			c.SSEvent("snapshot", ev.value)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UnixMilli())
			return true
		}
	})
}
