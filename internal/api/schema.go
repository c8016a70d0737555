package api

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

const evaluateSchema = `{
  "type": "object",
  "properties": {
    "mode": {"type": "string", "enum": ["incremental", "full"]},
    "organizationId": {"type": "string", "minLength": 1}
  },
  "additionalProperties": false
}`

const enqueueSchema = `{
  "type": "object",
  "required": ["organizationId", "affectedProfileIds"],
  "properties": {
    "organizationId": {"type": "string", "minLength": 1},
    "affectedProfileIds": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string", "minLength": 1}
    },
    "maxRetries": {"type": "integer", "minimum": 0}
  },
  "additionalProperties": false
}`

// validator checks request bodies against a compiled JSON schema.
type validator struct {
	schema *gojsonschema.Schema
}

func mustValidator(schema string) *validator {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(eris.Wrap(err, "api: compile schema"))
	}
	return &validator{schema: s}
}

// ValidationError lists the schema violations of a request body.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Violations, "; ")
}

// validate returns a *ValidationError when body does not match the schema.
// An empty body is treated as an empty object.
func (v *validator) validate(body []byte) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &ValidationError{Violations: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		violations[i] = desc.String()
	}
	return &ValidationError{Violations: violations}
}
