// Package openapi builds the Huma configuration shared by the server and the
// handler tests.
package openapi

import (
	"github.com/danielgtaylor/huma/v2"
)

const (
	// DocsPath serves the interactive API reference.
	DocsPath = "/api/docs"
	// SpecPath serves the OpenAPI document as SpecPath+".json" and ".yaml".
	SpecPath = "/api/openapi"
	// SchemasPath serves individual JSON schemas.
	SchemasPath = "/api/schemas"
)

// Config returns a Huma configuration whose generated routes live under /api.
// Huma's schema link hook is removed so response bodies carry exactly the
// documented fields, without a "$schema" member or Link header.
func Config(title, version string) huma.Config {
	cfg := huma.DefaultConfig(title, version)
	cfg.DocsPath = DocsPath
	cfg.OpenAPIPath = SpecPath
	cfg.SchemasPath = SchemasPath
	cfg.CreateHooks = nil
	cfg.Info.Description = "Health check and greeting endpoints of the GitOps demo."
	return cfg
}

// AdvertiseCBOR mirrors every JSON request and response schema under
// application/cbor, which the registered CBOR format serves.
func AdvertiseCBOR(api huma.API) {
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation,
		func(_ *huma.OpenAPI, op *huma.Operation) {
			if op.RequestBody != nil && op.RequestBody.Content != nil {
				if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
					op.RequestBody.Content["application/cbor"] = jsonContent
				}
			}
			for _, resp := range op.Responses {
				if resp.Content == nil {
					continue
				}
				if jsonContent, ok := resp.Content["application/json"]; ok {
					resp.Content["application/cbor"] = jsonContent
				}
			}
		},
	)
}
