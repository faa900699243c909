// Package review provides the pattern shared by every review vertical:
// an ordered rule set, a backend seam, and the agent that orchestrates
// single and batch reviews.
package review

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// ErrUnparseable marks a rule that could not read a field of its input.
var ErrUnparseable = errors.New("unparseable input")

// Unparseable builds a parse warning for field.
func Unparseable(field string, value any) error {
	return fmt.Errorf("%w: %s %q", ErrUnparseable, field, fmt.Sprint(value))
}

// Rule is a named, categorized check over one entity of type E.
// Check returns nil when the rule does not apply. A non-nil error is a
// parse warning; it never aborts evaluation.
type Rule[E any, C ~string] struct {
	ID       string
	Name     string
	Category C
	Check    func(E) (*domain.Finding[C], error)
}

// RuleInfo describes a rule for listings.
type RuleInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Evaluation is the raw output of running a rule set over one entity.
type Evaluation[C ~string] struct {
	Findings []domain.Finding[C]
	Warnings []domain.Warning
}

// Visible returns the warnings to surface on a result. Permissive mode
// drops them.
func (e Evaluation[C]) Visible(strict bool) []domain.Warning {
	if !strict {
		return nil
	}
	return e.Warnings
}

// RuleSet is an immutable, ordered collection of rules.
type RuleSet[E any, C ~string] struct {
	rules []Rule[E, C]
}

// NewRuleSet creates a rule set that runs rules in the given order.
func NewRuleSet[E any, C ~string](rules ...Rule[E, C]) *RuleSet[E, C] {
	return &RuleSet[E, C]{rules: append([]Rule[E, C](nil), rules...)}
}

// With returns a new rule set with extra rules appended.
func (s *RuleSet[E, C]) With(extra ...Rule[E, C]) *RuleSet[E, C] {
	rules := make([]Rule[E, C], 0, len(s.rules)+len(extra))
	rules = append(rules, s.rules...)
	rules = append(rules, extra...)
	return &RuleSet[E, C]{rules: rules}
}

// Rules returns a copy of the rules in evaluation order.
func (s *RuleSet[E, C]) Rules() []Rule[E, C] {
	return append([]Rule[E, C](nil), s.rules...)
}

// Len returns the number of rules.
func (s *RuleSet[E, C]) Len() int {
	return len(s.rules)
}

// Describe lists the rules for display.
func (s *RuleSet[E, C]) Describe() []RuleInfo {
	out := make([]RuleInfo, len(s.rules))
	for i, r := range s.rules {
		out[i] = RuleInfo{ID: r.ID, Name: r.Name, Category: string(r.Category)}
	}
	return out
}

// Version fingerprints the rule catalog. Result caches key on it so a
// changed catalog never serves stale findings.
func (s *RuleSet[E, C]) Version() string {
	ids := make([]string, len(s.rules))
	for i, r := range s.rules {
		ids[i] = r.ID + "/" + string(r.Category)
	}
	sum := sha256.Sum256([]byte(strings.Join(ids, ",")))
	return hex.EncodeToString(sum[:6])
}

// Evaluate runs every rule in order and collects findings and warnings.
// A panicking rule is recorded as a warning.
func (s *RuleSet[E, C]) Evaluate(e E) Evaluation[C] {
	var ev Evaluation[C]
	for _, r := range s.rules {
		f, err := runRule(r, e)
		if err != nil {
			ev.Warnings = append(ev.Warnings, domain.Warning{RuleID: r.ID, Message: err.Error()})
			continue
		}
		if f == nil {
			continue
		}
		if f.RuleID == "" {
			f.RuleID = r.ID
		}
		if f.RuleName == "" {
			f.RuleName = r.Name
		}
		if f.Category == "" {
			f.Category = r.Category
		}
		ev.Findings = append(ev.Findings, *f)
	}
	return ev
}

func runRule[E any, C ~string](r Rule[E, C], e E) (f *domain.Finding[C], err error) {
	defer func() {
		if p := recover(); p != nil {
			f = nil
			err = fmt.Errorf("rule panicked: %v", p)
		}
	}()
	return r.Check(e)
}
