// Package validation checks catalog input DTOs against their declarative field rules.
package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"github.com/go-playground/validator/v10"
)

// Accepted date layouts, tried in order.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	time.RFC3339,
}

type Validator struct {
	validate *validator.Validate
}

// New returns a Validator that reports fields by their JSON name and knows
// the "mintrim" (rune length after trimming) and "isodate" rules.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	// both registrations only fail on an empty tag or nil func
	_ = v.RegisterValidation("mintrim", minTrimmed)
	_ = v.RegisterValidation("isodate", isoDate)
	return &Validator{validate: v}
}

// Struct validates s and returns nil or a *ValidationError listing every violation.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &catalogerrors.ValidationError{Violations: make([]catalogerrors.Violation, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Violations = append(out.Violations, catalogerrors.Violation{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: "failed on rule: " + fe.Tag(),
		})
	}
	return out
}

// ParseDate parses an ISO-8601 calendar date or timestamp. Impossible dates such as 2023-02-30 fail.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// FormatDate renders midnight UTC values as a plain date and anything else as RFC 3339.
func FormatDate(t time.Time) string {
	t = t.UTC()
	if t.Equal(t.Truncate(24 * time.Hour)) {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}

func minTrimmed(fl validator.FieldLevel) bool {
	minLen, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(field.String())) >= minLen
}

func isoDate(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	_, err := ParseDate(field.String())
	return err == nil
}
