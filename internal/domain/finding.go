package domain

// Severity ranks how serious a finding is.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Rank orders severities so that a larger value is more serious.
// Unknown severities rank below Low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as serious as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// SeverityPoints maps a severity to the points it contributes to a findings score.
type SeverityPoints map[Severity]float64

// DefaultSeverityPoints returns the standard point weights.
func DefaultSeverityPoints() SeverityPoints {
	return SeverityPoints{
		SeverityCritical: 25,
		SeverityHigh:     15,
		SeverityMedium:   10,
		SeverityLow:      5,
	}
}

// Finding is one structured result emitted by a rule. C is the
// vertical-specific category vocabulary.
type Finding[C ~string] struct {
	RuleID         string   `json:"ruleId"`
	RuleName       string   `json:"ruleName,omitempty"`
	Category       C        `json:"category"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`

	// FinancialImpact follows the sign convention of the vertical that emitted it.
	FinancialImpact *float64 `json:"financialImpact,omitempty"`

	// Outlier findings only.
	AffectedClaims []string `json:"affectedClaims,omitempty"`
	Evidence       string   `json:"evidence,omitempty"`
}

// Impact returns the financial impact or 0 when none was reported.
func (f Finding[C]) Impact() float64 {
	if f.FinancialImpact == nil {
		return 0
	}
	return *f.FinancialImpact
}

// Amount is a helper for populating FinancialImpact.
func Amount(v float64) *float64 {
	return &v
}

// Warning records a rule that could not be applied to an entity.
type Warning struct {
	RuleID  string `json:"ruleId"`
	Message string `json:"message"`
}
