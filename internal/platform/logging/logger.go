package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/janisto/gitops-demo/internal/platform/timeutil"
)

var (
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	buildOnce sync.Once
	shared    *zap.Logger
	buildErr  error
)

// severities maps zap levels to Cloud Logging severity names.
var severities = map[zapcore.Level]string{
	zapcore.DebugLevel:  "DEBUG",
	zapcore.InfoLevel:   "INFO",
	zapcore.WarnLevel:   "WARNING",
	zapcore.ErrorLevel:  "ERROR",
	zapcore.DPanicLevel: "CRITICAL",
	zapcore.PanicLevel:  "ALERT",
	zapcore.FatalLevel:  "EMERGENCY",
}

func encodeSeverity(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if s, ok := severities[l]; ok {
		enc.AppendString(s)
		return
	}
	enc.AppendString("DEFAULT")
}

func encodeTimeMicros(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(timeutil.RFC3339Micros))
}

// newLogger writes one JSON object per line to stdout, keyed the way Cloud
// Logging parses structured payloads.
func newLogger() (*zap.Logger, error) {
	cfg := zap.Config{
		Level:            level,
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stdout"},
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "severity",
			MessageKey:     "message",
			CallerKey:      "caller",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeTime:     encodeTimeMicros,
			EncodeLevel:    encodeSeverity,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
	}
	return cfg.Build()
}

// Logger returns the process-wide logger. If it cannot be built, a no-op
// logger is returned and Err reports why.
func Logger() *zap.Logger {
	buildOnce.Do(func() {
		shared, buildErr = newLogger()
		if buildErr != nil {
			shared = zap.NewNop()
		}
	})
	return shared
}

// Err reports why the shared logger could not be built, if it could not.
func Err() error {
	Logger()
	return buildErr
}

// Sync flushes buffered entries.
func Sync() error {
	return Logger().Sync()
}

// SetLevel changes the minimum level at runtime. name is a zap level name
// such as "debug" or "warn".
func SetLevel(name string) error {
	l, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", name, err)
	}
	level.SetLevel(l)
	return nil
}
