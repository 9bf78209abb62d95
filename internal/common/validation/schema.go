// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a JSON Schema document expressed as Go values.
type Schema map[string]interface{}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateInput checks document against schema. An error is returned only
// when the schema itself cannot be compiled.
func ValidateInput(document interface{}, schema Schema) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(map[string]interface{}(schema)),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	vr := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		vr.Errors = append(vr.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return vr, nil
}

// GetErrorMessages returns "field: message" pairs.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			return true
		}
	}
	return false
}

// Helpers for building schemas.

func Object(required []string, properties map[string]Schema) Schema {
	props := make(map[string]interface{}, len(properties))
	for k, v := range properties {
		props[k] = map[string]interface{}(v)
	}
	s := Schema{"type": "object", "properties": props}
	if len(required) > 0 {
		req := make([]interface{}, len(required))
		for i, r := range required {
			req[i] = r
		}
		s["required"] = req
	}
	return s
}

func String(minLength int) Schema {
	s := Schema{"type": "string"}
	if minLength > 0 {
		s["minLength"] = minLength
	}
	return s
}

func Enum(values ...string) Schema {
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return Schema{"type": "string", "enum": vals}
}

func Integer(min, max int) Schema {
	return Schema{"type": "integer", "minimum": min, "maximum": max}
}

func StringArray() Schema {
	return Schema{"type": "array", "items": map[string]interface{}{"type": "string"}}
}
