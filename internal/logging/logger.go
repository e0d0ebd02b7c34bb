// Package logging emits one JSON object per log line. Every inbound request
// carries a correlation ID so a single enquiry can be traced from the HTTP
// edge through the token refresh and CRM calls it triggers.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// LogLevel names a severity. Config files may also spell warn as "warning".
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

func rank(level LogLevel) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelWarn, "warning":
		return 2
	case LevelError:
		return 3
	case LevelFatal:
		return 4
	}
	// Unknown levels log as info rather than disappearing.
	return 1
}

// sink is the writer shared by a logger and all its component children.
type sink struct {
	mu    sync.Mutex
	out   io.Writer
	level LogLevel
	exit  func(int)
}

// Logger writes structured JSON lines. Key-value fields are flattened into
// the object next to the standard keys; standard keys win on collision.
type Logger struct {
	sink      *sink
	service   string
	component string
}

// LoggerOption configures a Logger at construction.
type LoggerOption func(*Logger)

// WithOutput sets the destination writer.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *Logger) {
		l.sink.out = w
	}
}

// WithLevel sets the minimum level that gets written.
func WithLevel(level LogLevel) LoggerOption {
	return func(l *Logger) {
		l.sink.level = level
	}
}

// WithService sets the service name stamped on every line.
func WithService(service string) LoggerOption {
	return func(l *Logger) {
		l.service = service
	}
}

// NewLogger creates a logger writing info and above to stdout.
func NewLogger(opts ...LoggerOption) *Logger {
	l := &Logger{
		sink: &sink{
			out:   os.Stdout,
			level: LevelInfo,
			exit:  os.Exit,
		},
		service: "leadgate",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Component returns a logger stamping every line with the named subsystem
// (api, zoho, tokens, mailer). Children share the parent's writer and level.
func (l *Logger) Component(name string) *Logger {
	return &Logger{sink: l.sink, service: l.service, component: name}
}

func (l *Logger) emit(level LogLevel, correlationID, message string, kv []interface{}) {
	if rank(level) < rank(l.sink.level) {
		return
	}

	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"service":   l.service,
		"message":   message,
	}
	if l.component != "" {
		entry["component"] = l.component
	}
	if correlationID != "" {
		entry["correlation_id"] = correlationID
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if _, taken := entry[key]; taken {
			continue
		}
		entry[key] = kv[i+1]
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("failed to marshal log entry: %v", err)
		return
	}

	l.sink.mu.Lock()
	fmt.Fprintln(l.sink.out, string(data))
	l.sink.mu.Unlock()
}

// Debug logs a debug message with optional key-value fields.
func (l *Logger) Debug(message string, kv ...interface{}) {
	l.emit(LevelDebug, "", message, kv)
}

// Info logs an info message with optional key-value fields.
func (l *Logger) Info(message string, kv ...interface{}) {
	l.emit(LevelInfo, "", message, kv)
}

// Warn logs a warning with optional key-value fields.
func (l *Logger) Warn(message string, kv ...interface{}) {
	l.emit(LevelWarn, "", message, kv)
}

// Error logs an error with optional key-value fields.
func (l *Logger) Error(message string, kv ...interface{}) {
	l.emit(LevelError, "", message, kv)
}

// Fatal logs at fatal level and exits the process.
func (l *Logger) Fatal(message string, kv ...interface{}) {
	l.emit(LevelFatal, "", message, kv)
	l.sink.exit(1)
}

// DebugWithContext logs a debug message carrying the context's correlation ID.
func (l *Logger) DebugWithContext(ctx context.Context, message string, kv ...interface{}) {
	l.emit(LevelDebug, GetCorrelationID(ctx), message, kv)
}

// InfoWithContext logs an info message carrying the context's correlation ID.
func (l *Logger) InfoWithContext(ctx context.Context, message string, kv ...interface{}) {
	l.emit(LevelInfo, GetCorrelationID(ctx), message, kv)
}

// WarnWithContext logs a warning carrying the context's correlation ID.
func (l *Logger) WarnWithContext(ctx context.Context, message string, kv ...interface{}) {
	l.emit(LevelWarn, GetCorrelationID(ctx), message, kv)
}

// ErrorWithContext logs an error carrying the context's correlation ID.
func (l *Logger) ErrorWithContext(ctx context.Context, message string, kv ...interface{}) {
	l.emit(LevelError, GetCorrelationID(ctx), message, kv)
}
