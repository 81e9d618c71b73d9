package validation

import (
	"testing"
	"time"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	Name      string  `json:"name" validate:"required,mintrim=3"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"required,gt=0"`
	DateAdded string  `json:"dateAdded" validate:"required,isodate"`
}

type samplePatch struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,mintrim=3"`
	Quantity *int    `json:"quantity,omitempty" validate:"omitempty,gt=0"`
}

func ptr[T any](v T) *T { return &v }

func Test_Validator_Struct(t *testing.T) {
	testCases := []struct {
		name           string
		input          any
		expectedFields map[string]string
	}{
		{
			name:  "valid input",
			input: sampleInput{Name: "lamp", Quantity: 1, UnitPrice: 0.5, DateAdded: "2024-01-31"},
		},
		{
			name:  "name too short after trimming",
			input: sampleInput{Name: "  ab  ", Quantity: 1, UnitPrice: 1, DateAdded: "2024-01-31"},
			expectedFields: map[string]string{
				"name": "failed on rule: mintrim",
			},
		},
		{
			name:  "every rule broken at once",
			input: sampleInput{Name: "ab", Quantity: -1, UnitPrice: 0, DateAdded: "2023-02-30"},
			expectedFields: map[string]string{
				"name":      "failed on rule: mintrim",
				"quantity":  "failed on rule: gt",
				"unitPrice": "failed on rule: required",
				"dateAdded": "failed on rule: isodate",
			},
		},
		{
			name:  "multi-byte name counts runes",
			input: sampleInput{Name: "ñañ", Quantity: 1, UnitPrice: 1, DateAdded: "2024-01-31T10:00:00Z"},
		},
		{
			name:  "empty patch is valid",
			input: samplePatch{},
		},
		{
			name:  "patch checks supplied fields only",
			input: samplePatch{Quantity: ptr(0)},
			expectedFields: map[string]string{
				"quantity": "failed on rule: gt",
			},
		},
		{
			name:  "patch with valid name",
			input: samplePatch{Name: ptr("desk")},
		},
	}

	v := New()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			err := v.Struct(tc.input)

			// then
			if tc.expectedFields == nil {
				require.NoError(t, err)
				return
			}
			var vErr *catalogerrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.expectedFields, vErr.Fields())
		})
	}
}

func Test_ParseDate(t *testing.T) {
	testCases := []struct {
		input    string
		expected time.Time
		wantErr  bool
	}{
		{input: "2024-02-29", expected: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{input: "2024-03-01T12:30:00+02:00", expected: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		{input: "2024-03-01T12:30:00.250Z", expected: time.Date(2024, 3, 1, 12, 30, 0, 250_000_000, time.UTC)},
		{input: "2023-02-29", wantErr: true},
		{input: "01/02/2024", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseDate(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expected.Equal(got), "expected %s, got %s", tc.expected, got)
		})
	}
}

func Test_FormatDate(t *testing.T) {
	assert.Equal(t, "2024-01-31", FormatDate(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01-31T08:15:00Z", FormatDate(time.Date(2024, 1, 31, 8, 15, 0, 0, time.UTC)))
}
