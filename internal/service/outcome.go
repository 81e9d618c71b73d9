package service

import (
	"errors"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
)

// Outcome classifies the result of a service call for the transport layer.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeValidationFailed
	OutcomeNotFound
	OutcomeConflict
	OutcomeInternalError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeValidationFailed:
		return "validation_failed"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeConflict:
		return "conflict"
	default:
		return "internal_error"
	}
}

// OutcomeOf maps an error returned by the service to its Outcome. A nil error is OutcomeOK.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var vErr *catalogerrors.ValidationError
	switch {
	case errors.As(err, &vErr):
		return OutcomeValidationFailed
	case errors.Is(err, catalogerrors.ErrProductNotFound),
		errors.Is(err, catalogerrors.ErrCategoryNotFound),
		errors.Is(err, catalogerrors.ErrNoData),
		errors.Is(err, catalogerrors.ErrNoMatchingProducts):
		return OutcomeNotFound
	case errors.Is(err, catalogerrors.ErrDuplicateCategory),
		errors.Is(err, catalogerrors.ErrCategoryInUse),
		errors.Is(err, catalogerrors.ErrConcurrentUpdate):
		return OutcomeConflict
	default:
		return OutcomeInternalError
	}
}
