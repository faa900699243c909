package domain

// DRGCategory classifies DRG validation findings.
type DRGCategory string

const (
	DRGSequencing   DRGCategory = "SEQUENCING"
	DRGUpcoding     DRGCategory = "UPCODING"
	DRGDowncoding   DRGCategory = "DOWNCODING"
	DRGCompleteness DRGCategory = "COMPLETENESS"
)

// DRGCategories lists the DRG category vocabulary.
var DRGCategories = []DRGCategory{DRGSequencing, DRGUpcoding, DRGDowncoding, DRGCompleteness}

// ValidationStatus is the DRG validation outcome.
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "Pending"
	ValidationValidated ValidationStatus = "Validated"
	ValidationQueried   ValidationStatus = "Queried"
	ValidationUpcoded   ValidationStatus = "Upcoded"
	ValidationDowncoded ValidationStatus = "Downcoded"
)

// ExpectedDRG is the DRG the documentation supports.
type ExpectedDRG struct {
	Code                  string  `json:"code"`
	Description           string  `json:"description"`
	RelativeWeight        float64 `json:"relativeWeight"`
	ExpectedReimbursement float64 `json:"expectedReimbursement"`
	Variance              float64 `json:"variance"`
}

// DRGClaim is an inpatient claim under DRG clinical validation.
type DRGClaim struct {
	Episode

	ExpectedDRG      *ExpectedDRG           `json:"expectedDRG,omitempty"`
	ValidationStatus ValidationStatus       `json:"validationStatus"`
	Findings         []Finding[DRGCategory] `json:"findings"`
	Warnings         []Warning              `json:"warnings,omitempty"`
	Summary          string                 `json:"summary,omitempty"`
	Confidence       float64                `json:"confidence"`
	RiskScore        float64                `json:"riskScore"`
	ReviewedAt       string                 `json:"reviewedAt,omitempty"`
}

// Validate checks the fields the DRG rules depend on.
func (c *DRGClaim) Validate() error {
	var v validator
	c.Episode.validate(&v, "")
	return v.err(c.ID)
}
