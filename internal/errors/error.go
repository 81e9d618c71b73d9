// Package errors provides the error taxonomy shared by the catalog stores, repositories and service.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrDuplicateCategory  = errors.New("category already exists")
	ErrCategoryInUse      = errors.New("category is referenced by products")
	ErrConcurrentUpdate   = errors.New("product was modified concurrently")
	ErrNoData             = errors.New("no products in the catalog")
	ErrNoMatchingProducts = errors.New("no products match the search criteria")
	ErrStorage            = errors.New("storage failure")
)

// Violation describes a single failed field rule.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// ValidationError carries every rule violation found in one input.
type ValidationError struct {
	Violations []Violation
}

// NewValidationError builds a ValidationError with a single violation.
func NewValidationError(field, rule, param string) *ValidationError {
	return &ValidationError{Violations: []Violation{{
		Field:   field,
		Rule:    rule,
		Param:   param,
		Message: "failed on rule: " + rule,
	}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the violations keyed by field name, the shape used in HTTP 400 bodies.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Violations))
	for _, v := range e.Violations {
		out[v.Field] = v.Message
	}
	return out
}

// HasField reports whether the field failed at least one rule.
func (e *ValidationError) HasField(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}
