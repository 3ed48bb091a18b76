package generated

import (
	_ "embed"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiYAML []byte

// GetSwagger разбирает встроенный OpenAPI-документ.
func GetSwagger() (*openapi3.T, error) {
	return openapi3.NewLoader().LoadFromData(openapiYAML)
}
