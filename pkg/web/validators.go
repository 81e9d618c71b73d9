package web

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest float64) bool

func newComparisonValidator(valueInClosure float64, compareFn func(argValue, closedValue float64) bool) ParamValidator {
	return func(argValue float64) bool {
		return compareFn(argValue, valueInClosure)
	}
}

// gte returns a ParamValidator that checks if the argument is greater than or equal to the value captured in the closure.
func gte(valToCompareAgainst float64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue float64) bool {
		return argValue >= closedValue
	})
}

// ParseOptionalGte reads an optional decimal query parameter that must be >= value.
// It returns nil when the parameter is absent. On an invalid value it writes a 400 response and returns false.
func ParseOptionalGte(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, value float64) (*float64, bool) {
	return parseOptional(r, w, logger, key, gte(value))
}

// OptionalString returns the query parameter or nil when it is absent or blank.
func OptionalString(r *http.Request, key string) *string {
	v := r.URL.Query().Get(key)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func parseOptional(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, pValidator ParamValidator) (*float64, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, true
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || !pValidator(f) {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, value))
		return nil, false
	}
	return &f, true
}
