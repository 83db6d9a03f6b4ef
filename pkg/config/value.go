package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a configuration value: a scalar, an ordered list of strings or a
// nested map. The zero Value is empty.
type Value struct {
	raw interface{}
}

// NewValue wraps v.
func NewValue(v interface{}) Value {
	return Value{raw: v}
}

// Raw returns the wrapped value as stored.
func (v Value) Raw() interface{} {
	return v.raw
}

// IsList reports whether the value is an ordered sequence.
func (v Value) IsList() bool {
	switch v.raw.(type) {
	case []string, []interface{}:
		return true
	}
	return false
}

// IsMap reports whether the value is a nested map.
func (v Value) IsMap() bool {
	_, ok := v.raw.(map[string]interface{})
	return ok
}

// List returns the value as a list of strings. A scalar becomes a one element
// list and an empty scalar an empty list.
func (v Value) List() []string {
	switch t := v.raw.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, scalarString(item))
		}
		return out
	case map[string]interface{}:
		return nil
	}
	s := scalarString(v.raw)
	if s == "" {
		return nil
	}
	return []string{s}
}

// String renders the value for substitution: lists are joined with commas,
// maps and nil render empty.
func (v Value) String() string {
	switch v.raw.(type) {
	case []string, []interface{}:
		return strings.Join(v.List(), ",")
	case map[string]interface{}:
		return ""
	}
	return scalarString(v.raw)
}

// IsEmpty reports whether the value renders as the empty string.
func (v Value) IsEmpty() bool {
	return v.String() == ""
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprintf("%v", v)
}

// Bool interprets the value as a boolean. Unparseable and empty values are
// false.
func (v Value) Bool() bool {
	if b, ok := v.raw.(bool); ok {
		return b
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v.String()))
	return err == nil && b
}
