package api

import (
	_ "embed"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiDocument []byte

// GetSwagger parses and validates the embedded OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(openapiDocument)
	if err != nil {
		return nil, err
	}

	err = doc.Validate(loader.Context)
	if err != nil {
		return nil, err
	}

	return doc, nil
}
