package readmission

import (
	"context"
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
	"github.com/opensource-finance/kestrel/internal/textmatch"
)

var confidence = review.Confidence{Baseline: 90, Decrement: 6, Floor: 60}

// Result is the backend output for one readmission pair.
type Result struct {
	Status         domain.ReadmissionStatus `json:"reviewStatus"`
	Relatedness    domain.Relatedness       `json:"clinicalRelatedness"`
	Preventability float64                  `json:"preventabilityScore"`
	HRRPRisk       float64                  `json:"hrrpPenaltyRisk"`
	BundleSavings  float64                  `json:"bundleSavingsEstimate"`
	Findings       findings                 `json:"findings"`
	Warnings       []domain.Warning         `json:"warnings,omitempty"`
	FindingsScore  float64                  `json:"findingsScore"`
	Confidence     float64                  `json:"confidence"`
	Summary        string                   `json:"summary"`
}

// Options configure the rule-based backend.
type Options struct {
	Matcher textmatch.Matcher
	Points  domain.SeverityPoints
	Strict  bool
	Extra   []review.Rule[domain.ReadmissionPair, domain.ReadmissionCategory]
}

// RuleBackend reviews readmission pairs with the built-in rules.
type RuleBackend struct {
	rules  *review.RuleSet[domain.ReadmissionPair, domain.ReadmissionCategory]
	points domain.SeverityPoints
	strict bool
}

// NewRuleBackend creates a rule-based backend.
func NewRuleBackend(opts Options) *RuleBackend {
	points := opts.Points
	if points == nil {
		points = domain.DefaultSeverityPoints()
	}
	checks := Checks{Text: textmatch.Or(opts.Matcher)}
	return &RuleBackend{
		rules:  review.NewRuleSet(checks.Rules()...).With(opts.Extra...),
		points: points,
		strict: opts.Strict,
	}
}

// RuleSet returns the rules the backend runs.
func (b *RuleBackend) RuleSet() *review.RuleSet[domain.ReadmissionPair, domain.ReadmissionCategory] {
	return b.rules
}

// Evaluate implements review.Backend. prompt is ignored.
func (b *RuleBackend) Evaluate(_ context.Context, _ string, p domain.ReadmissionPair) (Result, error) {
	ev := b.rules.Evaluate(p)
	rel := Relatedness(p, ev.Findings)
	status := Status(p, rel, ev.Findings)

	r := Result{
		Status:         status,
		Relatedness:    rel,
		Preventability: Preventability(p, ev.Findings),
		HRRPRisk:       HRRPRisk(p, rel),
		BundleSavings:  BundleSavings(p.Readmission.AssignedDRG.BilledAmount, status),
		Findings:       ev.Findings,
		Warnings:       ev.Visible(b.strict),
		FindingsScore:  review.FindingsScore(ev.Findings, b.points),
		Confidence:     confidence.Score(len(ev.Findings)),
	}
	r.Summary = summarize(p, r)
	return r, nil
}

func summarize(p domain.ReadmissionPair, r Result) string {
	head := fmt.Sprintf("Readmission %s after %d day(s) (%s)", p.ID, p.DaysBetween, r.Relatedness)
	switch r.Status {
	case domain.ReadmissionPlanned:
		return head + ": planned readmission with no complication identified."
	case domain.ReadmissionBundleCandidate:
		return fmt.Sprintf("%s: bundle candidate with DRG %s. Estimated savings $%.2f.",
			head, p.Readmission.AssignedDRG.Code, r.BundleSavings)
	case domain.ReadmissionPotentiallyPreventable:
		top, _ := review.Top(r.Findings)
		return fmt.Sprintf("%s: potentially preventable (%s). Preventability %.0f, HRRP risk %.0f, estimated savings $%.2f.",
			head, top.RuleName, r.Preventability, r.HRRPRisk, r.BundleSavings)
	case domain.ReadmissionClinicallyRelated:
		return fmt.Sprintf("%s: clinically related to the index admission. %d finding(s); HRRP risk %.0f.",
			head, len(r.Findings), r.HRRPRisk)
	default:
		if len(r.Findings) == 0 {
			return head + ": no relationship to the index admission identified."
		}
		return fmt.Sprintf("%s: not related to the index admission despite %d finding(s).", head, len(r.Findings))
	}
}
