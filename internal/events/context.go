package events

import (
	"context"
	"os"
)

type contextKey int

const (
	loggerKey contextKey = iota
	requestIDKey
	intentKey
)

// FromContext extracts logger from context.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return defaultLogger
}

// WithLogger adds logger to context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithRequestID adds request ID to context.
func WithRequestID(ctx context.Context, id string) context.Context {
	logger := FromContext(ctx).WithField("request_id", id)
	ctx = context.WithValue(ctx, requestIDKey, id)
	return WithLogger(ctx, logger)
}

// WithIntent records the intent type a handler run is serving.
func WithIntent(ctx context.Context, intent string) context.Context {
	logger := FromContext(ctx).WithField("intent", intent)
	ctx = context.WithValue(ctx, intentKey, intent)
	return WithLogger(ctx, logger)
}

// GetRequestID retrieves request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetIntent retrieves the intent type from context.
func GetIntent(ctx context.Context) string {
	if intent, ok := ctx.Value(intentKey).(string); ok {
		return intent
	}
	return ""
}

var defaultLogger = NewTestLogger(InfoLevel, "text", os.Stderr)

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
