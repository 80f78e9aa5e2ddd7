// Package jsonschema derives a JSON Schema from a Go struct type at runtime
// using reflection. The schema drives structured output: it is sent to
// providers that accept one and rendered by [Describe] into the plain-text
// key/type instruction used by every structured prompt.
//
// Struct tags control the output:
//
//	json:"name,omitempty"                       property name; omitempty makes it optional
//	jsonschema:"description=Short definition"    property description
//	jsonschema:"enum=a,enum=b"                   allowed values
//	jsonschema:"required"                        force required even with omitempty
package jsonschema
