package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidEntity is wrapped by ValidationError.
var ErrInvalidEntity = errors.New("invalid entity")

// FieldError names one field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError collects every field problem found on one entity.
type ValidationError struct {
	EntityID string
	Fields   []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("entity %q: %s", e.EntityID, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidEntity
}

// validator accumulates field errors.
type validator struct {
	fields []FieldError
}

func (v *validator) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.fields = append(v.fields, FieldError{Field: field, Message: "is required"})
	}
}

func (v *validator) nonNegative(field string, value float64) {
	if value < 0 {
		v.fields = append(v.fields, FieldError{Field: field, Message: "must not be negative"})
	}
}

func (v *validator) err(id string) error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{EntityID: id, Fields: v.fields}
}

// DateLayout is the calendar date format used throughout the data files.
const DateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or RFC 3339 timestamps.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	}
	return t, nil
}
