package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	taskIDKey
)

// WithContext stores a logger in ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// WithRequestID tags ctx and the logger with an HTTP request id
func WithRequestID(ctx context.Context, l *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	l = l.With(zap.String("request_id", requestID))
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return WithContext(ctx, l), l
}

// WithTaskID tags ctx and the logger with an import or scan task id
func WithTaskID(ctx context.Context, l *zap.Logger, taskID string) (context.Context, *zap.Logger) {
	l = l.With(zap.String("task_id", taskID))
	ctx = context.WithValue(ctx, taskIDKey, taskID)
	return WithContext(ctx, l), l
}

// GetRequestID returns the request id of ctx, if any
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetTaskID returns the task id of ctx, if any
func GetTaskID(ctx context.Context) string {
	id, _ := ctx.Value(taskIDKey).(string)
	return id
}
