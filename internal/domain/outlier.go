package domain

// OutlierCategory classifies provider outlier findings.
type OutlierCategory string

const (
	OutlierStatistical       OutlierCategory = "STATISTICAL_OUTLIER"
	OutlierBillingPattern    OutlierCategory = "BILLING_PATTERN"
	OutlierDuplicateBilling  OutlierCategory = "DUPLICATE_BILLING"
	OutlierFrequencyAnomaly  OutlierCategory = "FREQUENCY_ANOMALY"
	OutlierRiskConcentration OutlierCategory = "RISK_CONCENTRATION"
)

// OutlierCategories lists the outlier category vocabulary.
var OutlierCategories = []OutlierCategory{
	OutlierStatistical,
	OutlierBillingPattern,
	OutlierDuplicateBilling,
	OutlierFrequencyAnomaly,
	OutlierRiskConcentration,
}

// ProviderReview is the result of reviewing one provider's claims against
// the full claim population.
type ProviderReview struct {
	ProviderID   string                     `json:"providerId"`
	ProviderName string                     `json:"providerName"`
	ClaimCount   int                        `json:"claimCount"`
	Findings     []Finding[OutlierCategory] `json:"findings"`
	Warnings     []Warning                  `json:"warnings,omitempty"`
	Summary      string                     `json:"summary"`
	Confidence   float64                    `json:"confidence"`
	RiskScore    float64                    `json:"riskScore"`

	// Claims holds the reviewed claims with status, risk and reasoning applied.
	Claims     []Claim `json:"claims"`
	ReviewedAt string  `json:"reviewedAt"`
}
