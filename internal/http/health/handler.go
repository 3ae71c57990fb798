package health

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/gitops-demo/internal/platform/timeutil"
)

const (
	// Path is the route served by this package.
	Path = "/api/health"
	// StatusOK is the only status the endpoint reports.
	StatusOK = "ok"
)

// Response is the payload for the health endpoint.
type Response struct {
	Status    string        `json:"status"    doc:"Service status"                      example:"ok"`
	Timestamp timeutil.Time `json:"timestamp" doc:"Moment the response was built (UTC)" example:"2024-01-15T10:30:00.000Z"`
}

// Output is the response wrapper for GET /api/health.
type Output struct {
	Body Response
}

// Register wires GET /api/health into api.
func Register(api huma.API) {
	register(api, time.Now)
}

func register(api huma.API, now func() time.Time) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        Path,
		Summary:     "Health check",
		Tags:        []string{"Health"},
	}, func(_ context.Context, _ *struct{}) (*Output, error) {
		return &Output{Body: Response{Status: StatusOK, Timestamp: timeutil.NewTime(now())}}, nil
	})
}
