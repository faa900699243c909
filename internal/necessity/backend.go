package necessity

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
	"github.com/opensource-finance/kestrel/internal/textmatch"
)

var confidence = review.Confidence{Baseline: 92, Decrement: 7, Floor: 58}

// Result is the backend output for one admission.
type Result struct {
	Status        domain.NecessityStatus    `json:"medicalNecessityStatus"`
	LevelOfCare   domain.LevelOfCare        `json:"recommendedLevelOfCare"`
	Criteria      domain.CriteriaAssessment `json:"criteriaAssessment"`
	DenialRisk    float64                   `json:"denialRisk"`
	DenialAmount  float64                   `json:"estimatedDenialAmount"`
	Findings      findings                  `json:"findings"`
	Warnings      []domain.Warning          `json:"warnings,omitempty"`
	FindingsScore float64                   `json:"findingsScore"`
	Confidence    float64                   `json:"confidence"`
	Summary       string                    `json:"summary"`
}

// Options configure the rule-based backend.
type Options struct {
	Matcher textmatch.Matcher
	Points  domain.SeverityPoints
	Strict  bool
	Extra   []review.Rule[domain.MedNecessityClaim, domain.NecessityCategory]
}

// RuleBackend reviews medical necessity with the built-in rules.
type RuleBackend struct {
	rules  *review.RuleSet[domain.MedNecessityClaim, domain.NecessityCategory]
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
func (b *RuleBackend) RuleSet() *review.RuleSet[domain.MedNecessityClaim, domain.NecessityCategory] {
	return b.rules
}

// Evaluate implements review.Backend. prompt is ignored.
func (b *RuleBackend) Evaluate(_ context.Context, _ string, c domain.MedNecessityClaim) (Result, error) {
	ev := b.rules.Evaluate(c)
	criteria := Assess(c, ev.Findings)
	status := Status(criteria, ev.Findings)

	r := Result{
		Status:        status,
		LevelOfCare:   Recommend(c, criteria, status, ev.Findings),
		Criteria:      criteria,
		DenialRisk:    DenialRisk(criteria, status, len(ev.Findings)),
		DenialAmount:  DenialAmount(c.AssignedDRG.BilledAmount, status),
		Findings:      ev.Findings,
		Warnings:      ev.Visible(b.strict),
		FindingsScore: review.FindingsScore(ev.Findings, b.points),
		Confidence:    confidence.Score(len(ev.Findings) + Ungraded(c)),
	}
	r.Summary = summarize(c, r)
	return r, nil
}

func summarize(c domain.MedNecessityClaim, r Result) string {
	crit := fmt.Sprintf("SI %s, IS %s, admission %s, continued stay %s",
		r.Criteria.SeverityOfIllness, r.Criteria.IntensityOfService, r.Criteria.AdmissionCriteria, r.Criteria.ContinuedStay)
	switch r.Status {
	case domain.NecessityMeetsCriteria:
		if len(r.Findings) == 0 {
			return fmt.Sprintf("Admission %s meets inpatient criteria (%s). No necessity concerns identified.", c.ID, crit)
		}
		return fmt.Sprintf("Admission %s meets inpatient criteria (%s) with %d documentation note(s).", c.ID, crit, len(r.Findings))
	case domain.NecessityDoesNotMeet:
		return fmt.Sprintf("Admission %s does not meet inpatient criteria (%s). Recommended level of care: %s. Estimated denial $%.2f.",
			c.ID, crit, r.LevelOfCare, r.DenialAmount)
	case domain.NecessityObservation:
		return fmt.Sprintf("Admission %s is better supported as %s (%s). Estimated denial $%.2f.",
			c.ID, strings.ToLower(string(r.LevelOfCare)), crit, r.DenialAmount)
	default:
		top, _ := review.Top(r.Findings)
		return fmt.Sprintf("Admission %s requires physician advisor query: %s (%s). %d finding(s); denial risk %.0f.",
			c.ID, top.RuleName, crit, len(r.Findings), r.DenialRisk)
	}
}
