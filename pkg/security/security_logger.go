package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType names a security or money-moving event
type EventType string

// SecurityEvent is one audit record
type SecurityEvent struct {
	Timestamp    time.Time      `json:"timestamp"`
	Service      string         `json:"service"`
	Environment  string         `json:"env"`
	Level        string         `json:"level"`
	Severity     Severity       `json:"severity"`
	Event        EventType      `json:"event"`
	SubjectType  string         `json:"subject_type,omitempty"`  // "email", "ip", "user_id"
	SubjectValue string         `json:"subject_value,omitempty"` // masked or hashed
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// SecurityLogger writes audit events as JSON lines through zap, apart from
// the application log.
type SecurityLogger struct {
	zapLogger   *zap.Logger
	serviceName string
	environment string

	mu    sync.RWMutex
	sinks []EventSink
}

var defaultLogger atomic.Pointer[SecurityLogger]

// NewSecurityLogger builds a logger writing to stdout.
func NewSecurityLogger(serviceName, environment string) *SecurityLogger {
	return NewSecurityLoggerTo(serviceName, environment, "stdout")
}

// NewSecurityLoggerTo builds a logger writing to the given zap output paths.
func NewSecurityLoggerTo(serviceName, environment string, outputPaths ...string) *SecurityLogger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.MessageKey = "message"
	config.OutputPaths = outputPaths
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		logger = zap.NewNop()
	}
	return NewSecurityLoggerWith(logger, serviceName, environment)
}

// NewSecurityLoggerWith wraps an existing zap logger; tests pass an
// observer core here.
func NewSecurityLoggerWith(logger *zap.Logger, serviceName, environment string) *SecurityLogger {
	return &SecurityLogger{
		zapLogger:   logger,
		serviceName: serviceName,
		environment: environment,
	}
}

// InitSecurityLogger replaces the process-wide logger.
func InitSecurityLogger(sl *SecurityLogger) {
	defaultLogger.Store(sl)
}

// DefaultLogger returns the process-wide logger, creating a stdout one on
// first use.
func DefaultLogger() *SecurityLogger {
	if sl := defaultLogger.Load(); sl != nil {
		return sl
	}
	defaultLogger.CompareAndSwap(nil, NewSecurityLogger("freelance-backend", getEnvironment()))
	return defaultLogger.Load()
}

// Log writes event at the zap level matching its severity.
func (sl *SecurityLogger) Log(ctx context.Context, event SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Service = sl.serviceName
	event.Environment = sl.environment
	event.Severity = GetSeverity(event.Event)

	level := severityLevel(event.Severity)
	event.Level = level.String()

	fields := []zap.Field{
		zap.String("service", event.Service),
		zap.String("env", event.Environment),
		zap.String("event", string(event.Event)),
		zap.String("severity", string(event.Severity)),
	}
	if event.SubjectType != "" {
		fields = append(fields, zap.String("subject_type", event.SubjectType))
	}
	if event.SubjectValue != "" {
		fields = append(fields, zap.String("subject_value", event.SubjectValue))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if len(event.Details) > 0 {
		detailsJSON, _ := json.Marshal(event.Details)
		fields = append(fields, zap.String("details", string(detailsJSON)))
	}

	sl.zapLogger.Log(level, string(event.Event), fields...)

	sl.mu.RLock()
	sinks := sl.sinks
	sl.mu.RUnlock()
	for _, sink := range sinks {
		if err := sink.Record(ctx, event); err != nil {
			sl.zapLogger.Warn("security event sink failed", zap.String("event", string(event.Event)), zap.Error(err))
		}
	}
}

// AddSink makes every later event also go to sink.
func (sl *SecurityLogger) AddSink(sink EventSink) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.sinks = append(append([]EventSink(nil), sl.sinks...), sink)
}

// LogUserEvent records an action taken by a signed-in user.
func (sl *SecurityLogger) LogUserEvent(ctx context.Context, event EventType, uid string, details map[string]any) {
	sl.Log(ctx, SecurityEvent{
		Event:        event,
		SubjectType:  "user_id",
		SubjectValue: HashValue(uid),
		Details:      details,
	})
}

// LogLoginFailed records a sign-in that did not complete.
func (sl *SecurityLogger) LogLoginFailed(ctx context.Context, ip, userAgent, requestID, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:     EventLoginFailed,
		IP:        ip,
		UserAgent: userAgent,
		RequestID: requestID,
		Details:   map[string]any{"reason": reason},
	})
}

// LogLoginSuccess records a completed sign-in.
func (sl *SecurityLogger) LogLoginSuccess(ctx context.Context, email, ip, userAgent, requestID string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventLoginSuccess,
		SubjectType:  "email",
		SubjectValue: MaskEmail(email),
		IP:           ip,
		UserAgent:    userAgent,
		RequestID:    requestID,
	})
}

// LogRateLimitTriggered records a request rejected by a rate limit.
func (sl *SecurityLogger) LogRateLimitTriggered(ctx context.Context, ip, userAgent, requestID, endpoint string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventRateLimitTriggered,
		SubjectType:  "ip",
		SubjectValue: ip,
		IP:           ip,
		UserAgent:    userAgent,
		RequestID:    requestID,
		Details:      map[string]any{"endpoint": endpoint},
	})
}

// LogAccessDenied records a request refused for the caller's role or a
// failed CSRF check.
func (sl *SecurityLogger) LogAccessDenied(ctx context.Context, event EventType, uid, ip, requestID, endpoint string) {
	sl.Log(ctx, SecurityEvent{
		Event:        event,
		SubjectType:  "user_id",
		SubjectValue: HashValue(uid),
		IP:           ip,
		RequestID:    requestID,
		Details:      map[string]any{"endpoint": endpoint},
	})
}

// Sync flushes buffered entries.
func (sl *SecurityLogger) Sync() error {
	return sl.zapLogger.Sync()
}

func severityLevel(s Severity) zapcore.Level {
	switch s {
	case SeverityINFO:
		return zapcore.InfoLevel
	case SeverityHIGH, SeverityCRITICAL:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// MaskEmail masks an email for logging (e.g., "j***@example.com")
func MaskEmail(email string) string {
	if len(email) < 3 {
		return "***"
	}
	atIndex := -1
	for i, c := range email {
		if c == '@' {
			atIndex = i
			break
		}
	}
	if atIndex <= 1 {
		return "***" + email[1:]
	}
	return string(email[0]) + "***" + email[atIndex:]
}

// HashValue is the first 16 hex chars of the value's SHA256; empty stays
// empty.
func HashValue(value string) string {
	if value == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:8])
}

func getEnvironment() string {
	if os.Getenv("GIN_MODE") == "release" {
		return "production"
	}
	return "development"
}
