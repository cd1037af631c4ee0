package types

import (
	"sort"
	"strings"
)

// Attributes is a variation's key/value attribute set, e.g. {"color": "red", "storage": "128GB"}.
// It serializes as a plain JSON object.
type Attributes map[string]string

// Normalize trims keys and values and drops empty keys.
func (a Attributes) Normalize() Attributes {
	if len(a) == 0 {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Matches reports whether every key of selection maps to an identical value in a.
// Comparison is exact and order independent; an empty selection matches nothing.
func (a Attributes) Matches(selection Attributes) bool {
	if len(selection) == 0 {
		return false
	}
	for k, v := range selection {
		got, ok := a[k]
		if !ok || got != v {
			return false
		}
	}
	return true
}

// Equal reports structural equality.
func (a Attributes) Equal(other Attributes) bool {
	if len(a) != len(other) {
		return false
	}
	for k, v := range a {
		if got, ok := other[k]; !ok || got != v {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders "color: red, storage: 128GB" for emails and exports.
func (a Attributes) String() string {
	parts := make([]string, 0, len(a))
	for _, k := range a.Keys() {
		parts = append(parts, k+": "+a[k])
	}
	return strings.Join(parts, ", ")
}
