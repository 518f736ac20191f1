// Package logging builds the zap loggers shared by the DAO server and stores.
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogType defines the output format of logs
type LogType string

const (
	StringLog LogType = "STRING"
	JSONLog   LogType = "JSON"
)

// LogLevel represents the minimum severity that is written
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// LogContext holds request scoped information attached to every entry.
type LogContext struct {
	Collection string
	Action     string
	RequestID  string
}

// Fields returns the non-empty context values as zap fields.
func (c LogContext) Fields() []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if c.Collection != "" {
		fields = append(fields, zap.String("collection", c.Collection))
	}
	if c.Action != "" {
		fields = append(fields, zap.String("action", c.Action))
	}
	if c.RequestID != "" {
		fields = append(fields, zap.String("request_id", c.RequestID))
	}
	return fields
}

type Config struct {
	LogType LogType
	Level   LogLevel
	// Output defaults to stdout.
	Output io.Writer
}

// NewLogger creates a zap logger writing JSON or console lines to cfg.Output.
func NewLogger(cfg Config) *zap.Logger {
	logger, _ := NewAtomicLogger(cfg)
	return logger
}

// NewAtomicLogger is NewLogger that also returns the level handle, so the
// minimum level can be changed while the process runs.
func NewAtomicLogger(cfg Config) (*zap.Logger, zap.AtomicLevel) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	var encoder zapcore.Encoder
	switch LogType(strings.ToUpper(string(cfg.LogType))) {
	case StringLog:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), level
}

// ParseLevel maps a configured level onto zap, defaulting to info.
func ParseLevel(level LogLevel) zapcore.Level {
	switch LogLevel(strings.ToUpper(string(level))) {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WithContext returns a child logger carrying ctx.
func WithContext(logger *zap.Logger, ctx LogContext) *zap.Logger {
	return logger.With(ctx.Fields()...)
}
