package enums

import (
	"fmt"
	"slices"
)

// member is the shared IsValid check for closed string sets.
func member[T ~string](v T, set []T) bool {
	return slices.Contains(set, v)
}

// parseMember matches raw exactly; callers that accept other spellings normalize first.
func parseMember[T ~string](kind, raw string, set []T) (T, error) {
	if v := T(raw); member(v, set) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
