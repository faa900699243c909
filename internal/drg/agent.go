package drg

import (
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
)

// Vertical is the DRG validation vertical name.
const Vertical = "drg"

// Agent reviews DRG claims.
type Agent = review.Agent[domain.DRGClaim, Result, domain.DRGClaim]

// NewAgent wires backend into a review agent.
func NewAgent(backend review.Backend[domain.DRGClaim, Result], opts review.Options) *Agent {
	return review.NewAgent(review.Definition[domain.DRGClaim, Result, domain.DRGClaim]{
		Vertical: Vertical,
		Backend:  backend,
		Prompt:   BuildPrompt,
		Finalize: Finalize,
		ID:       func(c domain.DRGClaim) string { return c.ID },
		Validate: func(c domain.DRGClaim) error { return c.Validate() },
	}, opts)
}

// Finalize merges the backend result into the claim.
func Finalize(c domain.DRGClaim, r Result, at time.Time) domain.DRGClaim {
	exp := r.ExpectedDRG
	c.ExpectedDRG = &exp
	c.ValidationStatus = r.ValidationStatus
	c.Findings = r.Findings
	c.Warnings = r.Warnings
	c.Summary = r.Summary
	c.Confidence = r.Confidence
	c.RiskScore = RiskScore(r.FindingsScore, exp.Variance)
	c.ReviewedAt = at.UTC().Format(time.RFC3339)
	return c
}
