package hello

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/gitops-demo/internal/platform/logging"
	"github.com/janisto/gitops-demo/internal/platform/timeutil"
)

const (
	// Path is the route served by this package.
	Path = "/api/hello"
	// Message is the greeting returned on every call.
	Message = "Hello from the API!"
)

type handler struct {
	environment string
	now         func() time.Time
}

// Register wires GET /api/hello into api. environment is reported verbatim in
// every response.
func Register(api huma.API, environment string) {
	register(api, environment, time.Now)
}

func register(api huma.API, environment string, now func() time.Time) {
	h := &handler{environment: environment, now: now}
	huma.Register(api, huma.Operation{
		OperationID: "get-hello",
		Method:      http.MethodGet,
		Path:        Path,
		Summary:     "Get a greeting",
		Description: "Returns a constant greeting, the current time and the environment the API runs in.",
		Tags:        []string{"Hello"},
	}, h.get)
}

func (h *handler) get(ctx context.Context, _ *struct{}) (*GetOutput, error) {
	applog.LogDebug(ctx, "hello get", zap.String("path", Path))
	return &GetOutput{Body: Data{
		Message:     Message,
		Timestamp:   timeutil.NewTime(h.now()),
		Environment: h.environment,
	}}, nil
}
