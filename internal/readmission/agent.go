package readmission

import (
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
)

// Vertical is the readmission vertical name.
const Vertical = "readmissions"

// Agent reviews readmission pairs.
type Agent = review.Agent[domain.ReadmissionPair, Result, domain.ReadmissionPair]

// NewAgent wires backend into a review agent.
func NewAgent(backend review.Backend[domain.ReadmissionPair, Result], opts review.Options) *Agent {
	return review.NewAgent(review.Definition[domain.ReadmissionPair, Result, domain.ReadmissionPair]{
		Vertical: Vertical,
		Backend:  backend,
		Prompt:   BuildPrompt,
		Finalize: Finalize,
		ID:       func(p domain.ReadmissionPair) string { return p.ID },
		Validate: func(p domain.ReadmissionPair) error { return p.Validate() },
	}, opts)
}

// RiskScore weights findings, preventability and HRRP exposure.
func RiskScore(findingsScore, preventability, hrrp float64) float64 {
	return review.Clamp(0.3*findingsScore + 0.4*preventability + 0.3*hrrp)
}

// Finalize merges the backend result into the pair.
func Finalize(p domain.ReadmissionPair, r Result, at time.Time) domain.ReadmissionPair {
	p.ReviewStatus = r.Status
	p.ClinicalRelatedness = r.Relatedness
	p.PreventabilityScore = r.Preventability
	p.HRRPPenaltyRisk = r.HRRPRisk
	p.BundleSavings = r.BundleSavings
	p.Findings = r.Findings
	p.Warnings = r.Warnings
	p.Summary = r.Summary
	p.Confidence = r.Confidence
	p.RiskScore = RiskScore(r.FindingsScore, r.Preventability, r.HRRPRisk)
	p.ReviewedAt = at.UTC().Format(time.RFC3339)
	return p
}
