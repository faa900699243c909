package domain

// ClaimStatus is the lifecycle state of a claim in the outlier vertical.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "Pending"
	ClaimApproved ClaimStatus = "Approved"
	ClaimDenied   ClaimStatus = "Denied"
	ClaimFlagged  ClaimStatus = "Flagged"
)

// Claim is a professional claim line used for provider-level outlier detection.
type Claim struct {
	ID              string      `json:"id"`
	ProviderID      string      `json:"providerId"`
	ProviderName    string      `json:"providerName"`
	BeneficiaryID   string      `json:"beneficiaryId"`
	BeneficiaryName string      `json:"beneficiaryName"`
	ServiceDate     string      `json:"serviceDate"`
	ProcedureCode   string      `json:"procedureCode"`
	BilledAmount    float64     `json:"billedAmount"`
	Status          ClaimStatus `json:"status"`
	RiskScore       float64     `json:"riskScore"`
	Reasoning       string      `json:"reasoning,omitempty"`
	FlaggedDate     string      `json:"flaggedDate,omitempty"`
}

// Validate checks the fields the outlier rules depend on.
func (c *Claim) Validate() error {
	var v validator
	v.require("id", c.ID)
	v.require("providerId", c.ProviderID)
	v.require("beneficiaryId", c.BeneficiaryID)
	v.require("procedureCode", c.ProcedureCode)
	v.nonNegative("billedAmount", c.BilledAmount)
	return v.err(c.ID)
}

// Reviewable reports whether the claim may be (re-)evaluated.
func (c *Claim) Reviewable() bool {
	return c.Status == "" || c.Status == ClaimPending
}
