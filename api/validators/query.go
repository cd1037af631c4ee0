package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func invalidParam(field, msg string, extra ...any) error {
	details := map[string]any{"field": field}
	for i := 0; i+1 < len(extra); i += 2 {
		if k, ok := extra[i].(string); ok {
			details[k] = extra[i+1]
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

// query returns the trimmed value of key and whether it was given at all.
func query(r *http.Request, key string) (string, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	return raw, raw != ""
}

// ParseQueryInt reads an optional integer within [lo, hi], returning fallback when absent.
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw, ok := query(r, key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, invalidParam(key, key+" must be a whole number")
	case n < lo || n > hi:
		return 0, invalidParam(key, key+" is out of range", "min", lo, "max", hi)
	}
	return n, nil
}

// ParseQueryBool reads an optional flag such as ?unread=true. Absent means false.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw, ok := query(r, key)
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalidParam(key, key+" must be true or false")
	}
	return b, nil
}

// ParseURLUUID reads a chi path parameter that must be a UUID.
func ParseURLUUID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, key)))
	if err != nil {
		return uuid.Nil, invalidParam(key, "invalid "+key)
	}
	return id, nil
}
