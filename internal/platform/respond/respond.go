package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/gitops-demo/internal/platform/logging"
)

const (
	msgNotFound          = "Not found"
	msgInternalServerErr = "Internal server error"

	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeCBOR = "application/cbor"
)

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error string `json:"error" doc:"Error message" example:"Not found"`
}

var installOnce sync.Once

// Install makes Huma build its error responses as ErrorBody so that framework
// errors and router errors share one shape.
func Install() {
	installOnce.Do(func() {
		huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
			return newStatusError(context.Background(), status, msg, errs...)
		}
		huma.NewErrorWithContext = func(hctx huma.Context, status int, msg string, errs ...error) huma.StatusError {
			ctx := context.Background()
			if hctx != nil {
				ctx = hctx.Context()
			}
			return newStatusError(ctx, status, msg, errs...)
		}
	})
}

// statusError is the huma.StatusError produced after Install. The embedded
// ErrorBody supplies the serialized "error" field.
type statusError struct {
	ErrorBody
	status int
}

func (e *statusError) Error() string {
	return e.ErrorBody.Error
}

func (e *statusError) GetStatus() int {
	return e.status
}

func newStatusError(ctx context.Context, status int, msg string, errs ...error) *statusError {
	msg = messageOrDefault(status, msg)
	logWithStatus(ctx, status, msg, errors.Join(errs...))
	return &statusError{ErrorBody: ErrorBody{Error: msg}, status: status}
}

// Write serializes v with the status code, as CBOR when the client prefers it
// and as JSON otherwise.
func Write(w http.ResponseWriter, r *http.Request, status int, v any) error {
	if selectFormat(r.Header.Get("Accept")) == formatCBOR {
		data, err := cbor.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode cbor: %w", err)
		}
		w.Header().Set("Content-Type", contentTypeCBOR)
		w.WriteHeader(status)
		_, err = w.Write(data)
		return err
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteError logs and renders an ErrorBody. An empty msg falls back to the
// status text.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string, errs ...error) {
	se := newStatusError(r.Context(), status, msg, errs...)
	if err := Write(w, r, status, se.ErrorBody); err != nil {
		applog.LogError(r.Context(), "failed to render error response", err, zap.Int("status", status))
	}
}

// Reject renders the status text as an error body. It satisfies
// middleware.RejectFunc.
func Reject(w http.ResponseWriter, r *http.Request, status int) {
	WriteError(w, r, status, "")
}

// NotFoundHandler answers every unmatched request with 404 {"error":"Not found"}.
// It also serves as the router's method-not-allowed handler, so a known path
// with an unsupported method is indistinguishable from an unknown path.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, msgNotFound)
	}
}

// Recoverer converts panics into 500 responses. http.ErrAbortHandler is
// re-panicked so net/http can abort the connection.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(rec)
				}
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("%v", v)
				}
				err = fmt.Errorf("%w\n%s", err, debug.Stack())
				WriteError(w, r, http.StatusInternalServerError, msgInternalServerErr, err)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func messageOrDefault(status int, msg string) string {
	if strings.TrimSpace(msg) != "" {
		return msg
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

// logWithStatus logs 5xx as errors and 4xx as warnings. Lower statuses are
// not logged; Huma builds a zero-status error at registration to learn the
// error schema.
func logWithStatus(ctx context.Context, status int, msg string, err error) {
	fields := []zap.Field{zap.Int("status", status)}
	switch {
	case status >= 500:
		applog.LogError(ctx, msg, err, fields...)
	case status >= 400:
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		applog.LogWarn(ctx, msg, fields...)
	}
}
