package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/gitops-demo/internal/http/health"
	"github.com/janisto/gitops-demo/internal/http/hello"
)

// Register wires all API operations into api. environment is the value
// reported by the hello endpoint.
func Register(api huma.API, environment string) {
	health.Register(api)
	hello.Register(api, environment)
}
