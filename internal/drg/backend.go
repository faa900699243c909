package drg

import (
	"context"
	"fmt"
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
	"github.com/opensource-finance/kestrel/internal/textmatch"
)

var confidence = review.Confidence{Baseline: 95, Decrement: 8, Floor: 55}

// Result is the backend output for one DRG claim.
type Result struct {
	ValidationStatus domain.ValidationStatus              `json:"validationStatus"`
	ExpectedDRG      domain.ExpectedDRG                   `json:"expectedDRG"`
	Findings         []domain.Finding[domain.DRGCategory] `json:"findings"`
	Warnings         []domain.Warning                     `json:"warnings,omitempty"`
	FindingsScore    float64                              `json:"findingsScore"`
	Confidence       float64                              `json:"confidence"`
	Summary          string                               `json:"summary"`
}

// Options configure the rule-based backend.
type Options struct {
	Reference *Reference
	Matcher   textmatch.Matcher
	Points    domain.SeverityPoints
	Strict    bool
	Extra     []review.Rule[domain.DRGClaim, domain.DRGCategory]
}

// RuleBackend validates DRG assignments with the built-in rules.
type RuleBackend struct {
	ref    *Reference
	rules  *review.RuleSet[domain.DRGClaim, domain.DRGCategory]
	points domain.SeverityPoints
	strict bool
}

// NewRuleBackend creates a rule-based backend.
func NewRuleBackend(opts Options) *RuleBackend {
	ref := opts.Reference
	if ref == nil {
		ref = DefaultReference()
	}
	points := opts.Points
	if points == nil {
		points = domain.DefaultSeverityPoints()
	}
	checks := Checks{Ref: ref, Text: textmatch.Or(opts.Matcher)}
	return &RuleBackend{
		ref:    ref,
		rules:  review.NewRuleSet(checks.Rules()...).With(opts.Extra...),
		points: points,
		strict: opts.Strict,
	}
}

// RuleSet returns the rules the backend runs.
func (b *RuleBackend) RuleSet() *review.RuleSet[domain.DRGClaim, domain.DRGCategory] {
	return b.rules
}

// Evaluate implements review.Backend. prompt is ignored.
func (b *RuleBackend) Evaluate(_ context.Context, _ string, c domain.DRGClaim) (Result, error) {
	ev := b.rules.Evaluate(c)
	r := Result{
		ValidationStatus: Status(ev.Findings),
		ExpectedDRG:      b.ref.ExpectedFor(&c),
		Findings:         ev.Findings,
		Warnings:         ev.Visible(b.strict),
		FindingsScore:    review.FindingsScore(ev.Findings, b.points),
		Confidence:       confidence.Score(len(ev.Findings)),
	}
	r.Summary = summarize(c, r)
	return r, nil
}

// Status derives the validation status. Upcoding without downcoding is
// Upcoded, downcoding without upcoding is Downcoded, any other finding is
// Queried, and a clean claim is Validated.
func Status(findings []domain.Finding[domain.DRGCategory]) domain.ValidationStatus {
	up := review.HasCategory(findings, domain.DRGUpcoding)
	down := review.HasCategory(findings, domain.DRGDowncoding)
	switch {
	case up && !down:
		return domain.ValidationUpcoded
	case down && !up:
		return domain.ValidationDowncoded
	case len(findings) > 0:
		return domain.ValidationQueried
	default:
		return domain.ValidationValidated
	}
}

// RiskScore combines finding severity points with the size of the
// payment variance.
func RiskScore(findingsScore, variance float64) float64 {
	return review.Clamp(findingsScore + math.Min(50, math.Abs(variance)/800))
}

func summarize(c domain.DRGClaim, r Result) string {
	exp := r.ExpectedDRG
	switch r.ValidationStatus {
	case domain.ValidationValidated:
		return fmt.Sprintf("DRG %s is supported by the documentation. No coding discrepancies identified.", c.AssignedDRG.Code)
	case domain.ValidationUpcoded:
		top, _ := review.Top(r.Findings)
		return fmt.Sprintf("DRG %s appears upcoded; documentation supports DRG %s (weight %.4f). Expected reimbursement %s vs billed %s (variance %s). Primary issue: %s.",
			c.AssignedDRG.Code, exp.Code, exp.RelativeWeight, money(exp.ExpectedReimbursement),
			money(c.AssignedDRG.BilledAmount), money(exp.Variance), top.RuleName)
	case domain.ValidationDowncoded:
		top, _ := review.Top(r.Findings)
		return fmt.Sprintf("DRG %s appears undercoded; documentation supports additional severity. Potential revenue opportunity of %s. Primary issue: %s.",
			c.AssignedDRG.Code, money(review.TotalImpact(r.Findings)), top.RuleName)
	default:
		top, _ := review.Top(r.Findings)
		return fmt.Sprintf("DRG %s requires coding query: %d finding(s), most significant %s (%s). Expected DRG %s, variance %s.",
			c.AssignedDRG.Code, len(r.Findings), top.RuleName, top.Severity, exp.Code, money(exp.Variance))
	}
}

func money(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.0f", -v)
	}
	return fmt.Sprintf("$%.0f", v)
}
