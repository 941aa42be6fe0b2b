package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType represents the type of audited event
type EventType string

const (
	EventProfileUpdated      EventType = "profile_updated"
	EventProfileUpdateFailed EventType = "profile_update_failed"
	EventInsightCreated      EventType = "industry_insight_created"
	EventTokenRejected       EventType = "token_rejected"
	EventRateLimitTriggered  EventType = "rate_limit_triggered"
)

// Event is one audit record. SubjectID is hashed before it is written.
type Event struct {
	Type      EventType
	SubjectID string
	IP        string
	RequestID string
	Details   map[string]string
}

// Logger writes audit events through zap
type Logger struct {
	zapLogger   *zap.Logger
	serviceName string
	environment string
}

var (
	defaultLogger *Logger
	defaultMu     sync.Mutex
)

// Init builds the production zap logger and installs it as the default
func Init(serviceName, environment string) *Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	z, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		z, _ = zap.NewProduction()
	}

	l := NewWithZap(z, serviceName, environment)
	SetDefault(l)
	return l
}

// NewWithZap wraps an existing zap logger; tests pass an observer core
func NewWithZap(z *zap.Logger, serviceName, environment string) *Logger {
	return &Logger{zapLogger: z, serviceName: serviceName, environment: environment}
}

func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Default returns the installed logger, or a no-op one before Init
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		return NewWithZap(zap.NewNop(), "career-coach-backend", "development")
	}
	return defaultLogger
}

// Log writes one event at the level its type calls for
func (l *Logger) Log(event Event) {
	level := zapcore.InfoLevel
	switch event.Type {
	case EventProfileUpdateFailed, EventRateLimitTriggered, EventTokenRejected:
		level = zapcore.WarnLevel
	}

	fields := []zap.Field{
		zap.String("service", l.serviceName),
		zap.String("env", l.environment),
		zap.String("event", string(event.Type)),
		zap.Time("occurred_at", time.Now().UTC()),
	}
	if event.SubjectID != "" {
		fields = append(fields, zap.String("subject", HashSubject(event.SubjectID)))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String(k, v))
	}

	l.zapLogger.Log(level, string(event.Type), fields...)
}

func (l *Logger) Sync() error {
	return l.zapLogger.Sync()
}

// HashSubject pseudonymizes a user id so audit lines can be correlated
// without storing the id itself
func HashSubject(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}
