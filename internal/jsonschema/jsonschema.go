package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema represents the structure of JSON Schema used for describing structured responses.
type Schema struct {
	//  Type Specifies the data type (e.g., "object", "array", "string", "number")
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of the object, each with its own schema
	Properties map[string]*Schema `json:"properties,omitempty"`
	// For array types, defines the schema of items in the array
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties: Controls whether properties not defined in Properties are allowed
	AdditionalProperties any `json:"additionalProperties,omitempty"`
	// Enum contains the list of allowed values for the parameter
	Enum []any `json:"enum,omitempty"`

	// order keeps struct field order for Describe; not part of the wire format.
	order []string
}

// GenerateJSONSchema generates a JSON schema for T. Pointers are dereferenced.
// Recursive types are cut at the second visit and rendered as a bare object.
func GenerateJSONSchema[T any]() *Schema {
	return generate(reflect.TypeFor[T](), map[reflect.Type]bool{})
}

func generate(t reflect.Type, visiting map[reflect.Type]bool) *Schema {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}
	case reflect.Bool:
		return &Schema{Type: "boolean"}
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}
	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: generate(t.Elem(), visiting)}
	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: generate(t.Elem(), visiting)}
	case reflect.Struct:
		if visiting[t] {
			return &Schema{Type: "object"}
		}
		visiting[t] = true
		defer delete(visiting, t)
		return generateStruct(t, visiting)
	default:
		return &Schema{Type: "object"}
	}
}

func generateStruct(t reflect.Type, visiting map[reflect.Type]bool) *Schema {
	schema := &Schema{
		Type:       "object",
		Properties: map[string]*Schema{},
		Required:   []string{},
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitEmpty, skip := jsonName(field)
		if skip {
			continue
		}

		fieldSchema := generate(field.Type, visiting)
		requiredByTag, err := parseJSONSchemaTag(field.Type, field.Tag, fieldSchema)
		if err != nil {
			// A malformed tag only loses its enum/description, never the field.
			fieldSchema.Enum = nil
		}

		schema.Properties[name] = fieldSchema
		schema.order = append(schema.order, name)
		if !omitEmpty || requiredByTag {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema
}

func jsonName(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = field.Name
	if tag == "" {
		return name, false, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// parseJSONSchemaTag parses the jsonschema struct tag and applies it to schema.
// Supported keys: description=..., enum=... (repeatable), required.
// Enum values are converted to the field's kind.
func parseJSONSchemaTag(fieldType reflect.Type, tag reflect.StructTag, schema *Schema) (bool, error) {
	jsonSchemaTag := tag.Get("jsonschema")
	if jsonSchemaTag == "" {
		return false, nil
	}

	isRequiredByTag := false
	for _, item := range strings.Split(jsonSchemaTag, ",") {
		key, value, hasValue := strings.Cut(item, "=")
		if !hasValue {
			if key == "required" {
				isRequiredByTag = true
			}
			continue
		}

		switch key {
		case "description":
			schema.Description = value
		case "enum":
			v, err := enumValue(fieldType, value)
			if err != nil {
				return isRequiredByTag, err
			}
			schema.Enum = append(schema.Enum, v)
		}
	}

	return isRequiredByTag, nil
}

func enumValue(fieldType reflect.Type, value string) (any, error) {
	switch fieldType.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %v to int64 failed: %w", value, err)
		}
		return v, nil
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %v to float64 failed: %w", value, err)
		}
		return v, nil
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("parse enum value %v to bool failed: %w", value, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("enum tag unsupported for field type: %v", fieldType)
	}
}

// PropertyNames returns the object's property names in declaration order.
func (s *Schema) PropertyNames() []string {
	if len(s.order) > 0 {
		return append([]string(nil), s.order...)
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	return names
}

// TypeName renders the schema type for humans, e.g. "array of string".
func (s *Schema) TypeName() string {
	if s == nil {
		return "any"
	}
	if s.Type == "array" && s.Items != nil {
		return "array of " + s.Items.TypeName()
	}
	if s.Type == "" {
		return "any"
	}
	return s.Type
}

// Describe renders an object schema as one line per key:
//
//	- "word" (string): the word being defined
//	- "synonyms" (array of string)
//
// The output is meant to be embedded in a prompt.
func Describe(s *Schema) string {
	if s == nil || len(s.Properties) == 0 {
		return ""
	}
	var b strings.Builder
	for _, name := range s.PropertyNames() {
		prop := s.Properties[name]
		fmt.Fprintf(&b, "- %q (%s)", name, prop.TypeName())
		if prop.Description != "" {
			b.WriteString(": ")
			b.WriteString(prop.Description)
		}
		if len(prop.Enum) > 0 {
			fmt.Fprintf(&b, " one of %v", prop.Enum)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// JsonString converts the Schema to its JSON representation
// indent: optional bool parameter. If true, formats JSON with indentation.
func (s *Schema) JsonString(indent ...bool) (string, error) {
	var jsonBytes []byte
	var err error

	if len(indent) > 0 && indent[0] {
		jsonBytes, err = json.MarshalIndent(s, "", "  ")
	} else {
		jsonBytes, err = json.Marshal(s)
	}

	if err != nil {
		return "", fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// String returns the compact JSON representation of the schema.
func (s *Schema) String() string {
	jsonStr, err := s.JsonString()
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return jsonStr
}
