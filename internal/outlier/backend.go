package outlier

import (
	"context"
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
)

// Confidence parameters for outlier assessments.
var confidence = review.Confidence{Baseline: 93, Decrement: 7, Floor: 58}

// Assessment is the backend result for one provider.
type Assessment struct {
	ProviderID    string                                   `json:"providerId"`
	ProviderName  string                                   `json:"providerName"`
	ClaimCount    int                                      `json:"claimCount"`
	Findings      []domain.Finding[domain.OutlierCategory] `json:"findings"`
	Warnings      []domain.Warning                         `json:"warnings,omitempty"`
	FindingsScore float64                                  `json:"findingsScore"`
	Confidence    float64                                  `json:"confidence"`
	Exposure      float64                                  `json:"exposure"`
	Summary       string                                   `json:"summary"`
}

// Options configure the rule-based backend.
type Options struct {
	// Points overrides the severity point weights.
	Points domain.SeverityPoints

	// Strict surfaces rule parse warnings on results.
	Strict bool

	// Extra rules run after the built-in catalog.
	Extra []review.Rule[Subject, domain.OutlierCategory]
}

// RuleBackend evaluates outlier rules synchronously.
type RuleBackend struct {
	rules  *review.RuleSet[Subject, domain.OutlierCategory]
	points domain.SeverityPoints
	strict bool
}

// NewRuleBackend creates a rule-based backend.
func NewRuleBackend(opts Options) *RuleBackend {
	points := opts.Points
	if points == nil {
		points = domain.DefaultSeverityPoints()
	}
	return &RuleBackend{
		rules:  review.NewRuleSet(Rules()...).With(opts.Extra...),
		points: points,
		strict: opts.Strict,
	}
}

// RuleSet returns the rules the backend runs.
func (b *RuleBackend) RuleSet() *review.RuleSet[Subject, domain.OutlierCategory] {
	return b.rules
}

// Evaluate implements review.Backend. prompt is ignored.
func (b *RuleBackend) Evaluate(_ context.Context, _ string, t Target) (Assessment, error) {
	return b.Assess(t.Subject), nil
}

// Assess runs the rules for one provider.
func (b *RuleBackend) Assess(s Subject) Assessment {
	ev := b.rules.Evaluate(s)
	a := Assessment{
		ProviderID:    s.ProviderID,
		ProviderName:  s.ProviderName(),
		ClaimCount:    len(s.Own()),
		Findings:      ev.Findings,
		Warnings:      ev.Visible(b.strict),
		FindingsScore: review.FindingsScore(ev.Findings, b.points),
		Confidence:    confidence.Score(len(ev.Findings)),
		Exposure:      exposure(review.Worst(ev.Findings)),
	}
	a.Summary = summarize(a)
	return a
}

// exposure maps the worst severity touching a claim to exposure points.
func exposure(worst domain.Severity) float64 {
	switch worst {
	case domain.SeverityCritical:
		return 100
	case domain.SeverityHigh:
		return 75
	case domain.SeverityMedium:
		return 50
	case domain.SeverityLow:
		return 25
	default:
		return 0
	}
}

func summarize(a Assessment) string {
	name := a.ProviderName
	if name == "" {
		name = a.ProviderID
	}
	top, ok := review.Top(a.Findings)
	if !ok {
		return fmt.Sprintf("No statistical outliers or billing anomalies detected for %s across %d claim(s).", name, a.ClaimCount)
	}
	return fmt.Sprintf("%s: %d finding(s) across %d claim(s). Most significant: %s (%s) - %s Estimated exposure %s.",
		name, len(a.Findings), a.ClaimCount, top.RuleName, top.Severity, top.Description,
		money(review.TotalImpact(a.Findings)))
}
