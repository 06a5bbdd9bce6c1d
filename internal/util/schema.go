package util

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError lists every schema violation of one document.
type ValidationError struct {
	Errors []string `json:"errors"`
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// Schema is a compiled JSON schema reflected from a Go type.
type Schema struct {
	raw      []byte
	compiled *gojsonschema.Schema
}

// SchemaFor reflects v's type into a JSON schema and compiles it.
func SchemaFor(v any) (*Schema, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}

	raw, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	// gojsonschema does not resolve the draft 2020-12 meta schema URI.
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	delete(doc, "$schema")
	delete(doc, "$id")

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Schema{raw: raw, compiled: compiled}, nil
}

// MustSchemaFor is like SchemaFor but panics on error. Use for package level schemas.
func MustSchemaFor(v any) *Schema {
	s, err := SchemaFor(v)
	if err != nil {
		panic(err)
	}

	return s
}

// JSON returns the schema document.
func (s *Schema) JSON() []byte { return s.raw }

// Validate checks a raw JSON document against the schema.
func (s *Schema) Validate(doc []byte) error {
	result, err := s.compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, e := range result.Errors() {
		verr.Errors = append(verr.Errors, e.String())
	}

	return verr
}
