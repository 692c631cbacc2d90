// Package validate checks structured model output against declarative
// shapes. Model responses are untrusted; nothing leaves this package without
// having matched its schema.
package validate

import (
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Error reports the first violated constraint of a validation run.
type Error struct {
	Field      string
	Constraint string
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation failed: %s: %s (%s)", e.Field, e.Constraint, e.Detail)
}

// IsValidationError reports whether err is a shape violation.
func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// constraintNames maps gojsonschema keywords to the terms failures are
// reported in.
var constraintNames = map[string]string{
	"array_min_items":                 "minimum length",
	"array_max_items":                 "maximum length",
	"required":                        "required field",
	"number_gte":                      "minimum value",
	"number_lte":                      "maximum value",
	"invalid_type":                    "wrong type",
	"string_gte":                      "minimum length",
	"additional_property_not_allowed": "unexpected field",
}

// MustCompile parses a JSON Schema document, panicking on error. Schemas are
// package-level constants, so a failure here is a programming error.
func MustCompile(schemaJSON string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

// Against validates a raw JSON document against a compiled schema. It
// returns nil on success, an *Error describing the first violated constraint
// otherwise. Non-JSON input is itself a violation.
func Against(schema *gojsonschema.Schema, raw []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &Error{Field: "(document)", Constraint: "valid JSON", Detail: err.Error()}
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	constraint := first.Type()
	if name, ok := constraintNames[constraint]; ok {
		constraint = name
	}
	return &Error{
		Field:      first.Field(),
		Constraint: constraint,
		Detail:     first.Description(),
	}
}
