package necessity

import (
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
)

// Vertical is the medical-necessity vertical name.
const Vertical = "medical-necessity"

// Agent reviews medical-necessity claims.
type Agent = review.Agent[domain.MedNecessityClaim, Result, domain.MedNecessityClaim]

// NewAgent wires backend into a review agent.
func NewAgent(backend review.Backend[domain.MedNecessityClaim, Result], opts review.Options) *Agent {
	return review.NewAgent(review.Definition[domain.MedNecessityClaim, Result, domain.MedNecessityClaim]{
		Vertical: Vertical,
		Backend:  backend,
		Prompt:   BuildPrompt,
		Finalize: Finalize,
		ID:       func(c domain.MedNecessityClaim) string { return c.ID },
		Validate: func(c domain.MedNecessityClaim) error { return c.Validate() },
	}, opts)
}

// RiskScore weights findings against denial risk.
func RiskScore(findingsScore, denialRisk float64) float64 {
	return review.Clamp(0.4*findingsScore + 0.6*denialRisk)
}

// Finalize merges the backend result into the claim.
func Finalize(c domain.MedNecessityClaim, r Result, at time.Time) domain.MedNecessityClaim {
	criteria := r.Criteria
	c.MedicalNecessityStatus = r.Status
	c.RecommendedLevelOfCare = r.LevelOfCare
	c.CriteriaAssessment = &criteria
	c.DenialRisk = r.DenialRisk
	c.EstimatedDenialAmount = r.DenialAmount
	c.Findings = r.Findings
	c.Warnings = r.Warnings
	c.Summary = r.Summary
	c.Confidence = r.Confidence
	c.RiskScore = RiskScore(r.FindingsScore, r.DenialRisk)
	c.ReviewedAt = at.UTC().Format(time.RFC3339)
	return c
}
