package security_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"go-freelance-backend/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestValidateImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	t.Run("Should accept PNG and JPEG content", func(t *testing.T) {
		var pngBuf, jpegBuf bytes.Buffer
		require.NoError(t, png.Encode(&pngBuf, img))
		require.NoError(t, jpeg.Encode(&jpegBuf, img, nil))

		result := security.ValidateImage(pngBuf.Bytes())
		assert.True(t, result.Valid)
		assert.Equal(t, "image/png", result.DetectedMIME)

		assert.NoError(t, security.CheckImage(jpegBuf.Bytes()))
	})

	t.Run("Should reject other content whatever it claims to be", func(t *testing.T) {
		result := security.ValidateImage([]byte("<svg xmlns='http://www.w3.org/2000/svg'></svg>"))
		assert.False(t, result.Valid)
		assert.Contains(t, result.Error, "MIME type not allowed")

		assert.ErrorIs(t, security.CheckImage([]byte("GIF89a......")), security.ErrUnsupportedImage)
	})
}

func TestMasking(t *testing.T) {
	t.Run("Should mask emails", func(t *testing.T) {
		assert.Equal(t, "j***@example.com", security.MaskEmail("john@example.com"))
		assert.Equal(t, "***", security.MaskEmail("ab"))
	})

	t.Run("Should hash values to 16 hex characters", func(t *testing.T) {
		h := security.HashValue("user-1")
		assert.Len(t, h, 16)
		assert.Equal(t, h, security.HashValue("user-1"))
		assert.NotEqual(t, h, security.HashValue("user-2"))
		assert.Equal(t, "", security.HashValue(""))
	})
}

func TestSeverity(t *testing.T) {
	t.Run("Should map event types to severities", func(t *testing.T) {
		assert.Equal(t, security.SeverityINFO, security.GetSeverity(security.EventMilestonePaid))
		assert.Equal(t, security.SeverityHIGH, security.GetSeverity(security.EventCSRFViolation))
		assert.Equal(t, security.SeverityCRITICAL, security.GetSeverity(security.EventWorkflowRollback))
		assert.Equal(t, security.SeverityWARN, security.GetSeverity("something_new"))
		assert.True(t, security.IsHighOrAbove(security.EventUnauthorizedAccess))
		assert.False(t, security.IsHighOrAbove(security.EventLoginFailed))
	})

	t.Run("Should pick the more severe of two", func(t *testing.T) {
		assert.Equal(t, security.SeverityHIGH, security.HigherSeverity(security.SeverityHIGH, security.SeverityMEDIUM))
		assert.Equal(t, security.SeverityCRITICAL, security.HigherSeverity(security.SeverityINFO, security.SeverityCRITICAL))
	})
}

func TestMemoryEventLog(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return the newest events first", func(t *testing.T) {
		log := security.NewMemoryEventLog(10)
		for _, e := range []security.EventType{security.EventLoginSuccess, security.EventLogout} {
			require.NoError(t, log.Record(ctx, security.SecurityEvent{Event: e}))
		}

		events, err := log.Recent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, security.EventLogout, events[0].Event)
	})

	t.Run("Should overwrite the oldest once full", func(t *testing.T) {
		log := security.NewMemoryEventLog(3)
		for _, ip := range []string{"1", "2", "3", "4", "5"} {
			_ = log.Record(ctx, security.SecurityEvent{IP: ip})
		}

		events, _ := log.Recent(ctx, 0)
		require.Len(t, events, 3)
		assert.Equal(t, []string{"5", "4", "3"}, []string{events[0].IP, events[1].IP, events[2].IP})

		events, _ = log.Recent(ctx, 2)
		assert.Len(t, events, 2)
	})
}

type failingSink struct{}

func (failingSink) Record(context.Context, security.SecurityEvent) error {
	return errors.New("sink down")
}

func TestSecurityLogger(t *testing.T) {
	ctx := context.Background()

	newLogger := func() (*security.SecurityLogger, *observer.ObservedLogs) {
		core, logs := observer.New(zapcore.DebugLevel)
		return security.NewSecurityLoggerWith(zap.New(core), "freelance-backend", "test"), logs
	}

	t.Run("Should log at the level of the event severity", func(t *testing.T) {
		sl, logs := newLogger()

		sl.LogLoginFailed(ctx, "10.0.0.1", "curl", "req-1", "state_mismatch")
		sl.LogAccessDenied(ctx, security.EventCSRFViolation, "u1", "10.0.0.1", "req-2", "/api/v1/jobs")

		entries := logs.All()
		require.Len(t, entries, 2)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "login_failed", entries[0].Message)
		assert.Equal(t, "MEDIUM", entries[0].ContextMap()["severity"])
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, security.HashValue("u1"), entries[1].ContextMap()["subject_value"])
	})

	t.Run("Should copy events to sinks with severity filled in", func(t *testing.T) {
		sl, _ := newLogger()
		log := security.NewMemoryEventLog(10)
		sl.AddSink(log)

		sl.LogUserEvent(ctx, security.EventWalletDeposit, "u1", map[string]any{"amount": 10})

		events, err := log.Recent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, security.SeverityINFO, events[0].Severity)
		assert.Equal(t, "freelance-backend", events[0].Service)
		assert.False(t, events[0].Timestamp.IsZero())
	})

	t.Run("Should warn when a sink fails and keep going", func(t *testing.T) {
		sl, logs := newLogger()
		log := security.NewMemoryEventLog(10)
		sl.AddSink(failingSink{})
		sl.AddSink(log)

		sl.LogUserEvent(ctx, security.EventLogout, "u1", nil)

		assert.Equal(t, 1, logs.FilterMessage("security event sink failed").Len())
		events, _ := log.Recent(ctx, 0)
		assert.Len(t, events, 1)
	})
}
