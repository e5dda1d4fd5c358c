// Package schema validates query items against JSON Schemas reflected from
// the client's item types, and infers schemas for untyped result sets.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/usestring/iothub-service/pkg/client"
	"github.com/usestring/iothub-service/pkg/query"
)

// Result is the outcome of validating one value.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validator validates JSON data against a compiled schema.
type Validator struct {
	schema *jsonschema.Schema
	source map[string]any
}

// ForType reflects a JSON Schema from a Go value's type. Unknown
// properties are allowed since the service adds fields over time.
func ForType(v any) (*invopop.Schema, error) {
	r := &invopop.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	s := r.Reflect(v)
	if s == nil {
		return nil, fmt.Errorf("reflecting schema for %T", v)
	}
	return s, nil
}

// NewValidator compiles a reflected schema.
func NewValidator(s *invopop.Schema) (*Validator, error) {
	schemaJSON, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	return NewValidatorFromJSON(schemaJSON)
}

// NewValidatorFromJSON compiles a JSON Schema document.
func NewValidatorFromJSON(schemaJSON []byte) (*Validator, error) {
	var schemaValue map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaValue); err != nil {
		return nil, fmt.Errorf("unmarshaling schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()

	// Add the schema as a resource (doc must be valid json value, not io.Reader)
	if err := compiler.AddResource("schema.json", schemaValue); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}

	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}

	return &Validator{schema: compiled, source: schemaValue}, nil
}

// Validate validates a JSON document against the schema.
func (v *Validator) Validate(data []byte) *Result {
	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &Result{
			Valid:  false,
			Errors: []string{fmt.Sprintf("invalid JSON: %s", err.Error())},
		}
	}
	return v.ValidateValue(value)
}

// ValidateValue validates an already-parsed value against the schema.
func (v *Validator) ValidateValue(value any) *Result {
	err := v.schema.Validate(value)
	if err == nil {
		return &Result{Valid: true}
	}
	return &Result{
		Valid:  false,
		Errors: extractValidationErrors(err),
	}
}

// Schema returns the source document of the compiled schema.
func (v *Validator) Schema() map[string]any {
	return v.source
}

// extractValidationErrors extracts human-readable error messages from a validation error.
func extractValidationErrors(err error) []string {
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		return extractDetailedErrors(validationErr)
	}
	return []string{err.Error()}
}

// printer is a default English printer for localized error messages.
var printer = message.NewPrinter(language.English)

// extractDetailedErrors flattens a ValidationError into one message per
// path and failure, sorted by path.
func extractDetailedErrors(err *jsonschema.ValidationError) []string {
	errorsByPath := make(map[string][]string)
	collectErrors(err, errorsByPath)

	paths := make([]string, 0, len(errorsByPath))
	for p := range errorsByPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var result []string
	for _, path := range paths {
		seen := make(map[string]bool)
		for _, msg := range errorsByPath[path] {
			if seen[msg] {
				continue
			}
			seen[msg] = true
			if path != "" {
				result = append(result, fmt.Sprintf("%s: %s", path, msg))
			} else {
				result = append(result, msg)
			}
		}
	}
	return result
}

// collectErrors recursively collects leaf errors (those without causes).
func collectErrors(err *jsonschema.ValidationError, errorsByPath map[string][]string) {
	instancePath := ""
	if len(err.InstanceLocation) > 0 {
		instancePath = "/" + strings.Join(err.InstanceLocation, "/")
	}

	if err.ErrorKind != nil && len(err.Causes) == 0 {
		errMsg := err.ErrorKind.LocalizedString(printer)
		// $ref and schema reference messages carry no detail
		if !strings.HasPrefix(errMsg, "$ref ") && !strings.HasPrefix(errMsg, "doesn't validate with") {
			errorsByPath[instancePath] = append(errorsByPath[instancePath], errMsg)
		}
	}

	for _, cause := range err.Causes {
		collectErrors(cause, errorsByPath)
	}
}

// ItemValidator checks query items of the typed query kinds against the
// schemas of client.Twin, client.DeviceJob and client.JobResponse. Raw items
// have no fixed shape and always pass.
type ItemValidator struct {
	byType map[query.Type]*Validator
}

// NewItemValidator reflects and compiles the item schemas.
func NewItemValidator() (*ItemValidator, error) {
	shapes := map[query.Type]any{
		query.TypeTwin:        &client.Twin{},
		query.TypeDeviceJob:   &client.DeviceJob{},
		query.TypeJobResponse: &client.JobResponse{},
	}

	iv := &ItemValidator{byType: make(map[query.Type]*Validator, len(shapes))}
	for typ, shape := range shapes {
		s, err := ForType(shape)
		if err != nil {
			return nil, err
		}
		v, err := NewValidator(s)
		if err != nil {
			return nil, fmt.Errorf("compiling %s item schema: %w", typ, err)
		}
		iv.byType[typ] = v
	}
	return iv, nil
}

// ValidateItem implements query.ItemValidator.
func (iv *ItemValidator) ValidateItem(typ query.Type, item json.RawMessage) error {
	v, ok := iv.byType[typ]
	if !ok {
		return nil
	}
	res := v.Validate(item)
	if res.Valid {
		return nil
	}
	return fmt.Errorf("%s item does not match schema: %s", typ, strings.Join(res.Errors, "; "))
}

// Schema returns the schema document for typ, or nil for untyped items.
func (iv *ItemValidator) Schema(typ query.Type) map[string]any {
	if v, ok := iv.byType[typ]; ok {
		return v.Schema()
	}
	return nil
}
