// Package tools implements C4 (tool handlers) and C5 (the tool registry)
// from SPEC_FULL.md: eight descriptors, declared once as a static table,
// each binding JSON params to a typed request, validating it, invoking a
// handler against the registry client and cache, and encoding the
// resulting domain value back to JSON. This follows the teacher
// framework's core/tool.go Capability pattern — a name-keyed static
// table built once at startup — generalized from HTTP capability
// metadata to JSON-RPC tool descriptors per spec.md §9's "no runtime
// reflection" design note.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// FieldError names one parameter validation failure, matching the
// {field, message} shape spec.md §4.6 requires in a -32602 response's
// data field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every FieldError found while binding or
// validating a request.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid params: %d error(s)", len(e.Errors))
}

// Descriptor is {name, description, bind, validate, execute, encode} per
// spec.md §4.5, implemented as a closure-based static value rather than
// through reflection.
type Descriptor struct {
	Name        string
	Description string

	// Bind deserializes raw JSON-RPC params into the tool's concrete
	// request type, applying documented defaults for optional fields.
	Bind func(params json.RawMessage) (interface{}, error)

	// Validate runs the bit-exact validation rules from spec.md §4.5
	// against a bound request, returning every violation found (not just
	// the first).
	Validate func(request interface{}) []FieldError

	// Execute runs the tool's handler and returns a domain value.
	Execute func(ctx context.Context, request interface{}) (interface{}, error)

	// Encode serializes a handler's response to JSON.
	Encode func(response interface{}) (json.RawMessage, error)
}

// Table is the read-only name -> Descriptor map built once at startup.
type Table map[string]Descriptor

// Lookup returns the descriptor for name, or false if no tool is
// registered under that name.
func (t Table) Lookup(name string) (Descriptor, bool) {
	d, ok := t[name]
	return d, ok
}

func encodeJSON(v interface{}) (json.RawMessage, error) {
	return json.Marshal(v)
}

func bindJSON(params json.RawMessage, out interface{}) error {
	if len(params) == 0 {
		return nil
	}
	return json.Unmarshal(params, out)
}
