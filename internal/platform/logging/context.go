package logging

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// LoggerFromContext returns the logger stored by ContextWithLogger, or the
// shared logger when there is none.
func LoggerFromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, _ := ctx.Value(loggerKey{}).(*zap.Logger); l != nil {
			return l
		}
	}
	return Logger()
}

// ContextWithLogger attaches logger to ctx. A nil ctx is treated as Background.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithFields returns ctx with its logger extended by fields.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return ContextWithLogger(ctx, LoggerFromContext(ctx).With(fields...))
}

func withErr(fields []zap.Field, err error) []zap.Field {
	if err == nil {
		return fields
	}
	return append(fields, zap.Error(err))
}

func LogDebug(ctx context.Context, msg string, fields ...zap.Field) {
	LoggerFromContext(ctx).Debug(msg, fields...)
}

func LogInfo(ctx context.Context, msg string, fields ...zap.Field) {
	LoggerFromContext(ctx).Info(msg, fields...)
}

func LogWarn(ctx context.Context, msg string, fields ...zap.Field) {
	LoggerFromContext(ctx).Warn(msg, fields...)
}

// LogError logs at error level; a non-nil err is added as the error field.
func LogError(ctx context.Context, msg string, err error, fields ...zap.Field) {
	LoggerFromContext(ctx).Error(msg, withErr(fields, err)...)
}
