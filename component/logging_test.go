package component

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturePublisher records published log entries for verification.
type capturePublisher struct {
	mu      sync.Mutex
	entries []LogEntry
	topics  []string
	failErr error
}

func (p *capturePublisher) PublishLog(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return p.failErr
	}
	var entry LogEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return err
	}
	p.entries = append(p.entries, entry)
	p.topics = append(p.topics, topic)
	return nil
}

func (p *capturePublisher) snapshot() []LogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]LogEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

func TestNewLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name          string
		componentName string
		deviceID      string
		pub           LogPublisher
	}{
		{
			name:          "with publisher",
			componentName: "test-component",
			deviceID:      "a1b2c3d4e5f6",
			pub:           &capturePublisher{},
		},
		{
			name:          "without publisher",
			componentName: "test-component",
			deviceID:      "a1b2c3d4e5f6",
			pub:           nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := NewLogger(tt.componentName, tt.deviceID, tt.pub, logger)

			assert.Equal(t, tt.componentName, cl.componentName)
			assert.Equal(t, tt.deviceID, cl.deviceID)
			assert.Equal(t, tt.pub, cl.pub)
			assert.Equal(t, logger, cl.logger)
		})
	}
}

func TestLogger_LogLevels(t *testing.T) {
	pub := &capturePublisher{}
	componentName := "test-component"
	deviceID := "a1b2c3d4e5f6"
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cl := NewLogger(componentName, deviceID, pub, logger)

	tests := []struct {
		name    string
		logFunc func()
		wantMsg string
		wantLvl LogLevel
		wantErr bool
	}{
		{
			name:    "Debug level",
			logFunc: func() { cl.Debug("debug message") },
			wantMsg: "debug message",
			wantLvl: LogLevelDebug,
		},
		{
			name:    "Info level",
			logFunc: func() { cl.Info("info message") },
			wantMsg: "info message",
			wantLvl: LogLevelInfo,
		},
		{
			name:    "Warn level",
			logFunc: func() { cl.Warn("warning message") },
			wantMsg: "warning message",
			wantLvl: LogLevelWarn,
		},
		{
			name:    "Error level without error",
			logFunc: func() { cl.Error("error message", nil) },
			wantMsg: "error message",
			wantLvl: LogLevelError,
		},
		{
			name:    "Error level with error",
			logFunc: func() { cl.Error("error occurred", fmt.Errorf("test error")) },
			wantMsg: "error occurred",
			wantLvl: LogLevelError,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(pub.snapshot())
			tt.logFunc()

			entries := pub.snapshot()
			require.Len(t, entries, before+1)
			entry := entries[before]

			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.wantLvl, entry.Level)
			assert.Equal(t, componentName, entry.Component)
			assert.Equal(t, deviceID, entry.DeviceID)
			assert.NotEmpty(t, entry.Timestamp)

			// Verify timestamp is valid RFC3339
			_, err := time.Parse(time.RFC3339Nano, entry.Timestamp)
			assert.NoError(t, err, "Timestamp should be valid RFC3339")

			if tt.wantErr {
				assert.NotEmpty(t, entry.Detail, "Error detail should be present for errors")
			}
		})
	}
}

func TestLogger_PublishTopic(t *testing.T) {
	pub := &capturePublisher{}
	cl := NewLogger("transport", "a1b2c3d4e5f6", pub, nil)

	cl.Info("connected")

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.topics, 1)
	assert.Equal(t, "log/event", pub.topics[0])
}

func TestLogger_DisabledPublishing(t *testing.T) {
	// Create logger without publisher
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cl := NewLogger("test-component", "a1b2c3d4e5f6", nil, logger)

	// These should not panic even without a publisher
	cl.Debug("debug message")
	cl.Info("info message")
	cl.Warn("warning message")
	cl.Error("error message", fmt.Errorf("test error"))
}

func TestLogger_PublisherFailure(t *testing.T) {
	pub := &capturePublisher{failErr: fmt.Errorf("link down")}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cl := NewLogger("test-component", "a1b2c3d4e5f6", pub, logger)

	// A failing publisher must not panic or propagate
	cl.Info("info message")
	assert.Empty(t, pub.snapshot())
}

func TestLogger_ConcurrentLogging(t *testing.T) {
	pub := &capturePublisher{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cl := NewLogger("concurrent-component", "a1b2c3d4e5f6", pub, logger)

	numGoroutines := 10
	logsPerGoroutine := 5

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				cl.Info(fmt.Sprintf("log from goroutine %d, message %d", id, j))
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, pub.snapshot(), numGoroutines*logsPerGoroutine)
}

func TestLogEntry_JSONMarshaling(t *testing.T) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     LogLevelInfo,
		Component: "test-component",
		DeviceID:  "a1b2c3d4e5f6",
		Message:   "test message",
		Detail:    "optional error detail",
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded LogEntry
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, entry.Timestamp, decoded.Timestamp)
	assert.Equal(t, entry.Level, decoded.Level)
	assert.Equal(t, entry.Component, decoded.Component)
	assert.Equal(t, entry.DeviceID, decoded.DeviceID)
	assert.Equal(t, entry.Message, decoded.Message)
	assert.Equal(t, entry.Detail, decoded.Detail)
}

func TestLogEntry_JSONMarshaling_NoDetail(t *testing.T) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     LogLevelInfo,
		Component: "test-component",
		Message:   "test message",
		// Detail omitted
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	// Verify detail is omitted in JSON
	var raw map[string]interface{}
	err = json.Unmarshal(data, &raw)
	require.NoError(t, err)

	_, hasDetail := raw["detail"]
	assert.False(t, hasDetail, "Empty detail should be omitted from JSON")
}
