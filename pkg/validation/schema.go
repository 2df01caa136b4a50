package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formlayout/pkg/formdata"
)

// Schema validates data model values against a JSON schema, either a bare
// schema document or one component of an OpenAPI 3 document.
type Schema struct {
	root *openapi3.Schema
}

// ErrSchemaNotFound is returned when an OpenAPI document has no usable
// schema component.
var ErrSchemaNotFound = errors.New("validation: schema component not found")

// LoadSchema parses raw (JSON or YAML). Documents with an `openapi` version
// key are loaded through kin-openapi and the named component is used; an empty
// name picks the only component. Anything else is read as a bare schema.
func LoadSchema(ctx context.Context, raw []byte, component string) (*Schema, error) {
	if len(raw) == 0 {
		return nil, errors.New("validation: schema payload is empty")
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("validation: decode schema: %w", err)
	}

	if _, isDoc := parsed["openapi"]; isDoc {
		return loadFromDocument(ctx, raw, component)
	}

	data, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("validation: normalise schema: %w", err)
	}
	var schema openapi3.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("validation: decode schema: %w", err)
	}
	return &Schema{root: &schema}, nil
}

func loadFromDocument(ctx context.Context, raw []byte, component string) (*Schema, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("validation: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("validation: validate document: %w", err)
	}
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, ErrSchemaNotFound
	}

	schemas := doc.Components.Schemas
	if component == "" {
		if len(schemas) != 1 {
			return nil, fmt.Errorf("%w: document has %d schemas, name one", ErrSchemaNotFound, len(schemas))
		}
		for name := range schemas {
			component = name
		}
	}
	ref, ok := schemas[component]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, component)
	}
	return &Schema{root: ref.Value}, nil
}

// Lookup returns the schema governing a data model path. Row indices are
// ignored; array schemas are stepped through to their items.
func (s *Schema) Lookup(path string) (*openapi3.Schema, bool) {
	if s == nil || s.root == nil || path == "" {
		return nil, false
	}
	cur := s.root
	for _, seg := range strings.Split(formdata.StripIndices(path), ".") {
		cur = itemsOf(cur)
		if cur == nil {
			return nil, false
		}
		ref, ok := cur.Properties[seg]
		if !ok || ref == nil || ref.Value == nil {
			return nil, false
		}
		cur = ref.Value
	}
	return cur, true
}

func itemsOf(schema *openapi3.Schema) *openapi3.Schema {
	for schema != nil && schema.Type != nil && schema.Type.Is(openapi3.TypeArray) {
		if schema.Items == nil {
			return nil
		}
		schema = schema.Items.Value
	}
	return schema
}

// SchemaIssue is one schema violation.
type SchemaIssue struct {
	Message string
	// TypeMismatch is set when the value has the wrong data type rather than
	// violating a constraint.
	TypeMismatch bool
}

// Check validates a single value at path. Paths unknown to the schema and
// nil values pass.
func (s *Schema) Check(path string, value any) *SchemaIssue {
	schema, ok := s.Lookup(path)
	if !ok || value == nil {
		return nil
	}
	err := schema.VisitJSON(coerceForSchema(schema, value))
	if err == nil {
		return nil
	}
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		return &SchemaIssue{
			Message:      schemaErr.Reason,
			TypeMismatch: schemaErr.SchemaField == "type",
		}
	}
	return &SchemaIssue{Message: err.Error()}
}

// coerceForSchema converts the string values forms store into the scalar
// type the schema expects when the conversion is lossless.
func coerceForSchema(schema *openapi3.Schema, value any) any {
	switch v := value.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if schema.Type == nil {
			return v
		}
		switch {
		case schema.Type.Is(openapi3.TypeNumber), schema.Type.Is(openapi3.TypeInteger):
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		case schema.Type.Is(openapi3.TypeBoolean):
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return value
}
