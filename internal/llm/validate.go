package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// fieldSchema is the shape every entry of "fields" must have. Scalars are coerced to strings.
const fieldSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["key", "value"],
  "properties": {
    "key":   {"type": "string", "minLength": 1},
    "value": {"type": ["string", "number", "boolean"]}
  }
}`

// FieldResult is Ok (Field set) or Skip (Reason set).
type FieldResult struct {
	Field  Field
	OK     bool
	Reason string
}

func ok(f Field) FieldResult          { return FieldResult{Field: f, OK: true} }
func skip(reason string) FieldResult { return FieldResult{Reason: reason} }

// FieldValidator checks one decoded field object against fieldSchema.
type FieldValidator struct {
	schema *jsonschema.Schema
}

func NewFieldValidator() (*FieldValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("field.json", strings.NewReader(fieldSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile("field.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &FieldValidator{schema: s}, nil
}

// MustFieldValidator panics if the embedded schema does not compile.
func MustFieldValidator() *FieldValidator {
	v, err := NewFieldValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// Check validates v, a value decoded with json.Decoder.UseNumber.
func (fv *FieldValidator) Check(v any) FieldResult {
	if obj, isObj := v.(map[string]any); isObj {
		if val, present := obj["value"]; present && val == nil {
			return skip("value is null")
		}
	}
	if err := fv.schema.Validate(v); err != nil {
		return skip(err.Error())
	}
	obj := v.(map[string]any)
	key := strings.TrimSpace(obj["key"].(string))
	if key == "" {
		return skip("key is blank")
	}
	return ok(Field{Key: key, Value: scalarString(obj["value"])})
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
