package component

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// LogLevel is the severity carried in a streamed log entry
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry is the wire form of a device log line streamed to the server for
// remote diagnostics
type LogEntry struct {
	Timestamp string   `json:"timestamp"` // RFC3339
	Level     LogLevel `json:"level"`
	Component string   `json:"component"`
	DeviceID  string   `json:"device_id,omitempty"`
	Message   string   `json:"message"`
	Detail    string   `json:"detail,omitempty"`
}

// LogPublisher delivers serialized log entries to a remote sink. The runtime
// wires this to the message bus uplink so the server sees device logs on the
// "log/event" topic. A nil publisher disables remote streaming.
type LogPublisher interface {
	PublishLog(topic string, payload []byte) error
}

const logTopic = "log/event"

// Logger logs locally through slog and, when a publisher is wired, mirrors
// each entry to the server
type Logger struct {
	componentName string
	deviceID      string
	pub           LogPublisher
	logger        *slog.Logger
}

// NewLogger builds a component logger. pub may be nil to keep logs local.
func NewLogger(componentName, deviceID string, pub LogPublisher, logger *slog.Logger) *Logger {
	return &Logger{
		componentName: componentName,
		deviceID:      deviceID,
		pub:           pub,
		logger:        logger,
	}
}

func (cl *Logger) Debug(msg string) {
	cl.DebugContext(context.Background(), msg)
}

func (cl *Logger) Info(msg string) {
	cl.InfoContext(context.Background(), msg)
}

func (cl *Logger) Warn(msg string) {
	cl.WarnContext(context.Background(), msg)
}

func (cl *Logger) Error(msg string, err error) {
	cl.ErrorContext(context.Background(), msg, err)
}

func (cl *Logger) DebugContext(ctx context.Context, msg string) {
	cl.log(ctx, LogLevelDebug, slog.LevelDebug, msg, nil)
}

func (cl *Logger) InfoContext(ctx context.Context, msg string) {
	cl.log(ctx, LogLevelInfo, slog.LevelInfo, msg, nil)
}

func (cl *Logger) WarnContext(ctx context.Context, msg string) {
	cl.log(ctx, LogLevelWarn, slog.LevelWarn, msg, nil)
}

func (cl *Logger) ErrorContext(ctx context.Context, msg string, err error) {
	cl.log(ctx, LogLevelError, slog.LevelError, msg, err)
}

func (cl *Logger) log(ctx context.Context, level LogLevel, slogLevel slog.Level, msg string, err error) {
	if cl.logger != nil {
		attrs := []any{"component", cl.componentName}
		if err != nil {
			attrs = append(attrs, "error", err)
		}
		cl.logger.Log(ctx, slogLevel, msg, attrs...)
	}

	detail := ""
	if err != nil {
		detail = fmt.Sprintf("%+v", err)
	}
	cl.stream(ctx, level, msg, detail)
}

// stream mirrors one entry to the server. Failures stay local; a log line is
// never worth failing the caller over.
func (cl *Logger) stream(ctx context.Context, level LogLevel, message, detail string) {
	if cl.pub == nil {
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: cl.componentName,
		DeviceID:  cl.deviceID,
		Message:   message,
		Detail:    detail,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		if cl.logger != nil {
			cl.logger.Error("Failed to marshal log entry", "error", err)
		}
		return
	}

	if err := cl.pub.PublishLog(logTopic, data); err != nil {
		if cl.logger != nil {
			cl.logger.Error("Failed to stream log entry", "error", err, "topic", logTopic)
		}
	}
}
