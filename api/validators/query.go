package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
)

// ParseQueryInt reads an integer query parameter, falling back to defaultVal
// when absent and rejecting values outside [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, queryError("query parameter must be numeric", map[string]any{"field": key})
	case value < min || value > max:
		return 0, queryError("query parameter out of range", map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

func queryError(message string, details map[string]any) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}
