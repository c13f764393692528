package api

import (
	"context"

	"github.com/getkin/kin-openapi/openapi3"
)

// GetSwagger builds the OpenAPI document the request validator runs against.
// Only routes listed here are reachable through the validator.
func GetSwagger() (*openapi3.T, error) {
	jsonOperation := func() *openapi3.Operation {
		return &openapi3.Operation{Responses: openapi3.NewResponses()}
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:   "signind",
			Version: "1.0.0",
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/api/ping", &openapi3.PathItem{
				Get: jsonOperation(),
			}),
			openapi3.WithPath("/api/signins", &openapi3.PathItem{
				Post: jsonOperation(),
			}),
			openapi3.WithPath("/api/signins/current/refresh", &openapi3.PathItem{
				Post: jsonOperation(),
			}),
			openapi3.WithPath("/api/signins/current", &openapi3.PathItem{
				Delete: jsonOperation(),
			}),
		),
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, err
	}
	return doc, nil
}
