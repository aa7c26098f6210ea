package validators

import (
	"net/http"
	"strconv"

	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
)

// ParseQueryInt reads an integer query parameter, falling back to def when
// the parameter is absent and rejecting values outside [min, max].
func ParseQueryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a number").WithDetails(map[string]any{"field": name})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": name, "min": min, "max": max})
	}
	return value, nil
}
