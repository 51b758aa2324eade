package tool

import (
	"fmt"
	"math"
)

// Property describes a single tool parameter.
type Property struct {
	// Type is the JSON-schema type tag: "string", "integer", "number"
	// or "boolean".
	Type string `json:"type"`

	// Description explains the parameter to the model.
	Description string `json:"description,omitempty"`

	// Enum constrains a string parameter to a fixed set of values.
	Enum []string `json:"enum,omitempty"`

	// Minimum constrains a numeric parameter when set.
	Minimum *float64 `json:"minimum,omitempty"`
}

// Schema describes a tool's parameters in JSON-schema style.
type Schema struct {
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Declaration renders the schema as the object the model backend expects.
func (s Schema) Declaration() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		spec := map[string]any{"type": p.Type}
		if p.Description != "" {
			spec["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			spec["enum"] = p.Enum
		}
		if p.Minimum != nil {
			spec["minimum"] = *p.Minimum
		}
		props[name] = spec
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Validate checks decoded arguments against the schema. The returned error
// names the offending field so the model gets an actionable message.
// Handlers are never invoked with arguments that fail validation.
func (s Schema) Validate(args map[string]any) error {
	for _, name := range s.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required parameter %q", name)
		}
	}

	for name, value := range args {
		prop, ok := s.Properties[name]
		if !ok {
			// Unknown extras are tolerated; the model sometimes sends
			// fields we did not advertise.
			continue
		}
		if err := prop.check(name, value); err != nil {
			return err
		}
	}
	return nil
}

func (p Property) check(name string, value any) error {
	switch p.Type {
	case "string":
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("parameter %q must be a string", name)
		}
		if len(p.Enum) > 0 {
			for _, allowed := range p.Enum {
				if str == allowed {
					return nil
				}
			}
			return fmt.Errorf("parameter %q must be one of %v", name, p.Enum)
		}
	case "integer":
		f, ok := asFloat(value)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("parameter %q must be an integer", name)
		}
		if p.Minimum != nil && f < *p.Minimum {
			return fmt.Errorf("parameter %q must be at least %v", name, *p.Minimum)
		}
	case "number":
		f, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("parameter %q must be a number", name)
		}
		if p.Minimum != nil && f < *p.Minimum {
			return fmt.Errorf("parameter %q must be at least %v", name, *p.Minimum)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("parameter %q must be a boolean", name)
		}
	}
	return nil
}

// asFloat normalizes the numeric types json.Unmarshal may produce.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// IntArg extracts an integer argument that may arrive as any JSON numeric
// type. Returns false if absent or not integral.
func IntArg(args map[string]any, name string) (int, bool) {
	f, ok := asFloat(args[name])
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// StringArg extracts a string argument, returning fallback when absent.
func StringArg(args map[string]any, name, fallback string) string {
	if s, ok := args[name].(string); ok && s != "" {
		return s
	}
	return fallback
}

// MinOf is a convenience for building Minimum constraints.
func MinOf(v float64) *float64 {
	return &v
}
