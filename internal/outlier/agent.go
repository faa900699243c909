package outlier

import (
	"fmt"
	"strings"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
)

// Vertical is the outlier vertical name.
const Vertical = "claims"

// Agent reviews providers and decides the status of their claims.
type Agent = review.Agent[Target, Assessment, domain.ProviderReview]

// NewAgent wires backend into a review agent.
func NewAgent(backend review.Backend[Target, Assessment], opts review.Options) *Agent {
	return review.NewAgent(review.Definition[Target, Assessment, domain.ProviderReview]{
		Vertical: Vertical,
		Backend:  backend,
		Prompt:   BuildPrompt,
		Finalize: Finalize,
		ID:       func(t Target) string { return t.ProviderID },
		Validate: validate,
	}, opts)
}

func validate(t Target) error {
	if t.ProviderID == "" {
		return &domain.ValidationError{Fields: []domain.FieldError{{Field: "providerId", Message: "is required"}}}
	}
	for i := range t.Claims {
		if err := t.Claims[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Finalize applies the provider assessment to each target claim.
func Finalize(t Target, a Assessment, at time.Time) domain.ProviderReview {
	reviewed := make([]domain.Claim, len(t.Claims))
	for i, c := range t.Claims {
		reviewed[i] = Decide(c, a, at)
	}
	return domain.ProviderReview{
		ProviderID:   a.ProviderID,
		ProviderName: a.ProviderName,
		ClaimCount:   a.ClaimCount,
		Findings:     a.Findings,
		Warnings:     a.Warnings,
		Summary:      a.Summary,
		Confidence:   a.Confidence,
		RiskScore:    review.Clamp(0.5*a.FindingsScore + 0.5*a.Exposure),
		Claims:       reviewed,
		ReviewedAt:   at.UTC().Format(time.RFC3339),
	}
}

// Decide sets status, risk score, reasoning and flagged date on one claim.
// A Critical finding naming the claim denies it. Any other finding naming
// the claim, or a Critical/High provider-level finding, flags it.
func Decide(c domain.Claim, a Assessment, at time.Time) domain.Claim {
	var (
		worst   domain.Severity
		reasons []string
		denied  bool
		flagged bool
	)
	for _, f := range a.Findings {
		providerLevel := len(f.AffectedClaims) == 0
		named := contains(f.AffectedClaims, c.ID)
		if !providerLevel && !named {
			continue
		}
		switch {
		case named && f.Severity == domain.SeverityCritical:
			denied = true
		case named:
			flagged = true
		case f.Severity.AtLeast(domain.SeverityHigh):
			flagged = true
		}
		if f.Severity.Rank() > worst.Rank() {
			worst = f.Severity
		}
		reasons = append(reasons, fmt.Sprintf("%s (%s): %s", f.RuleID, f.Severity, f.Description))
	}

	switch {
	case denied:
		c.Status = domain.ClaimDenied
	case flagged:
		c.Status = domain.ClaimFlagged
	default:
		c.Status = domain.ClaimApproved
	}

	c.RiskScore = review.Clamp(0.5*a.FindingsScore + 0.5*exposure(worst))
	if len(reasons) == 0 {
		c.Reasoning = "No outlier patterns implicate this claim."
	} else {
		c.Reasoning = strings.Join(reasons, " | ")
	}
	if c.Status == domain.ClaimApproved {
		c.FlaggedDate = ""
	} else {
		c.FlaggedDate = at.UTC().Format(domain.DateLayout)
	}
	return c
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
