package openapi

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Validate loads a serialized document (JSON or YAML) and checks it against the OpenAPI 3 rules.
// Examples, defaults and patterns are not checked: they come from free-text model remarks.
func Validate(ctx context.Context, data []byte) error {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	d, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("failed to load OpenAPI document: %w", err)
	}

	err = d.Validate(ctx,
		openapi3.DisableExamplesValidation(),
		openapi3.DisableSchemaDefaultsValidation(),
		openapi3.DisableSchemaPatternValidation(),
	)
	if err != nil {
		return fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return nil
}
