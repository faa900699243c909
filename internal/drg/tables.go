package drg

import (
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// DefaultBaseRate is the hospital base payment rate multiplied by a DRG weight.
const DefaultBaseRate = 6200.0

// WeightEntry is one row of the DRG weight table.
type WeightEntry struct {
	Weight      float64 `json:"weight" yaml:"weight"`
	Description string  `json:"description" yaml:"description"`
	Surgical    bool    `json:"surgical" yaml:"surgical"`
}

// Reference is the static data the DRG backend consumes. In production the
// expected-DRG table would be replaced by a grouper call.
type Reference struct {
	BaseRate float64
	Weights  map[string]WeightEntry

	// Expected maps a claim id to the DRG code its documentation supports.
	Expected map[string]string
}

// DefaultReference returns the built-in weight table and expected-DRG overrides.
func DefaultReference() *Reference {
	return &Reference{
		BaseRate: DefaultBaseRate,
		Weights:  defaultWeights(),
		Expected: map[string]string{
			"DRG-001": "871",
			"DRG-002": "291",
			"DRG-003": "190",
			"DRG-004": "208",
			"DRG-005": "690",
			"DRG-006": "065",
			"DRG-007": "470",
			"DRG-008": "377",
		},
	}
}

func defaultWeights() map[string]WeightEntry {
	return map[string]WeightEntry{
		"064": {1.8584, "Intracranial hemorrhage or cerebral infarction with MCC", false},
		"065": {1.0325, "Intracranial hemorrhage or cerebral infarction with CC or tPA in 24 hrs", false},
		"066": {1.0968, "Intracranial hemorrhage or cerebral infarction without CC/MCC", false},
		"189": {1.2251, "Pulmonary edema and respiratory failure", false},
		"190": {1.1770, "Chronic obstructive pulmonary disease with MCC", false},
		"191": {0.9452, "Chronic obstructive pulmonary disease with CC", false},
		"192": {0.7420, "Chronic obstructive pulmonary disease without CC/MCC", false},
		"193": {1.3046, "Simple pneumonia and pleurisy with MCC", false},
		"194": {0.8960, "Simple pneumonia and pleurisy with CC", false},
		"195": {0.6538, "Simple pneumonia and pleurisy without CC/MCC", false},
		"207": {5.6466, "Respiratory system diagnosis with ventilator support >96 hours", false},
		"208": {2.4880, "Respiratory system diagnosis with ventilator support <=96 hours", false},
		"247": {2.0874, "Percutaneous cardiovascular procedures with drug-eluting stent without MCC", true},
		"291": {1.3389, "Heart failure and shock with MCC", false},
		"292": {0.9053, "Heart failure and shock with CC", false},
		"293": {0.6667, "Heart failure and shock without CC/MCC", false},
		"377": {1.7628, "GI hemorrhage with MCC", false},
		"378": {0.9986, "GI hemorrhage with CC", false},
		"379": {0.6865, "GI hemorrhage without CC/MCC", false},
		"460": {4.1593, "Spinal fusion except cervical without MCC", true},
		"469": {3.0422, "Major hip and knee joint replacement with MCC", true},
		"470": {1.9120, "Major hip and knee joint replacement without MCC", true},
		"682": {1.4794, "Renal failure with MCC", false},
		"683": {0.9128, "Renal failure with CC", false},
		"684": {0.6397, "Renal failure without CC/MCC", false},
		"689": {1.1005, "Kidney and urinary tract infections with MCC", false},
		"690": {0.7876, "Kidney and urinary tract infections without MCC", false},
		"853": {4.6286, "Infectious and parasitic diseases with O.R. procedure with MCC", true},
		"870": {4.4581, "Septicemia or severe sepsis with MV >96 hours", false},
		"871": {1.8564, "Septicemia or severe sepsis without MV >96 hours with MCC", false},
		"872": {1.0263, "Septicemia or severe sepsis without MV >96 hours without MCC", false},
	}
}

// Lookup returns the table entry for code.
func (r *Reference) Lookup(code string) (WeightEntry, bool) {
	e, ok := r.Weights[code]
	return e, ok
}

// IsSurgical reports whether code is a known surgical DRG.
func (r *Reference) IsSurgical(code string) bool {
	e, ok := r.Weights[code]
	return ok && e.Surgical
}

// IsMedical reports whether code is a known medical DRG.
func (r *Reference) IsMedical(code string) bool {
	e, ok := r.Weights[code]
	return ok && !e.Surgical
}

// Reimbursement returns weight x base rate rounded to whole dollars.
func (r *Reference) Reimbursement(weight float64) float64 {
	return math.Round(weight * r.BaseRate)
}

// ExpectedFor resolves the DRG the claim's documentation supports: the
// override for its id, else the assigned DRG.
func (r *Reference) ExpectedFor(c *domain.DRGClaim) domain.ExpectedDRG {
	code := c.AssignedDRG.Code
	if override, ok := r.Expected[c.ID]; ok && override != "" {
		code = override
	}

	weight, desc := 0.0, ""
	if e, ok := r.Lookup(code); ok {
		weight, desc = e.Weight, e.Description
	} else if code == c.AssignedDRG.Code {
		weight, desc = c.AssignedDRG.RelativeWeight, c.AssignedDRG.Description
	}

	expected := r.Reimbursement(weight)
	return domain.ExpectedDRG{
		Code:                  code,
		Description:           desc,
		RelativeWeight:        weight,
		ExpectedReimbursement: expected,
		Variance:              expected - c.AssignedDRG.BilledAmount,
	}
}
