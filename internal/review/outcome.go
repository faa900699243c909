package review

import (
	"errors"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// OutcomeStatus is the per-id result of a batch review.
type OutcomeStatus string

const (
	OutcomeReviewed OutcomeStatus = "reviewed"
	OutcomeNotFound OutcomeStatus = "not_found"
	OutcomeFailed   OutcomeStatus = "failed"
	OutcomeSkipped  OutcomeStatus = "skipped"
)

// Outcome reports what happened to one requested id.
type Outcome[R any] struct {
	ID     string              `json:"id"`
	Status OutcomeStatus       `json:"status"`
	Result *R                  `json:"result,omitempty"`
	Errors []domain.FieldError `json:"errors,omitempty"`
}

// Reviewed returns the results of reviewed outcomes in order.
func Reviewed[R any](outcomes []Outcome[R]) []R {
	var out []R
	for _, o := range outcomes {
		if o.Status == OutcomeReviewed && o.Result != nil {
			out = append(out, *o.Result)
		}
	}
	return out
}

// Tally counts outcomes by status.
func Tally[R any](outcomes []Outcome[R]) map[OutcomeStatus]int {
	t := make(map[OutcomeStatus]int, 4)
	for _, o := range outcomes {
		t[o.Status]++
	}
	return t
}

// fieldErrors converts err into field-level errors for an outcome.
func fieldErrors(err error) []domain.FieldError {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return []domain.FieldError{{Field: "", Message: err.Error()}}
}
