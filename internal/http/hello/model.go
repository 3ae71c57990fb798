package hello

import "github.com/janisto/gitops-demo/internal/platform/timeutil"

// Data models the response payload for the hello endpoint.
type Data struct {
	Message     string        `json:"message"     doc:"Greeting message"                       example:"Hello from the API!"`
	Timestamp   timeutil.Time `json:"timestamp"   doc:"Moment the response was built (UTC)"    example:"2024-01-15T10:30:00.000Z"`
	Environment string        `json:"environment" doc:"Deployment environment of the API"      example:"development"`
}

// GetOutput is the response wrapper for GET /api/hello.
type GetOutput struct {
	Body Data
}
