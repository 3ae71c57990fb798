package logging

import (
	"regexp"

	"go.uber.org/zap"
)

const traceparentHeader = "traceparent"

// traceparentRe matches a W3C traceparent: version-traceid-parentid-flags.
var traceparentRe = regexp.MustCompile(`^[0-9a-fA-F]{2}-([0-9a-fA-F]{32})-([0-9a-fA-F]{16})-([0-9a-fA-F]{2})$`)

// traceFields returns the Cloud Logging trace correlation fields, or nil
// unless projectID is set and header is a well formed traceparent.
func traceFields(header, projectID string) []zap.Field {
	if projectID == "" {
		return nil
	}
	m := traceparentRe.FindStringSubmatch(header)
	if m == nil {
		return nil
	}
	return []zap.Field{
		zap.String("logging.googleapis.com/trace", "projects/"+projectID+"/traces/"+m[1]),
		zap.String("logging.googleapis.com/spanId", m[2]),
		zap.Bool("logging.googleapis.com/trace_sampled", m[3] == "01"),
	}
}

func loggerWithTrace(base *zap.Logger, header, projectID, requestID string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	fields := traceFields(header, projectID)
	if requestID != "" {
		fields = append(fields, zap.String("requestId", requestID))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
