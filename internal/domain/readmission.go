package domain

// ReadmissionCategory classifies readmission findings.
type ReadmissionCategory string

const (
	ReadmissionClinicalRelatedness ReadmissionCategory = "CLINICAL_RELATEDNESS"
	ReadmissionComplication        ReadmissionCategory = "COMPLICATION"
	ReadmissionDiseaseProgression  ReadmissionCategory = "DISEASE_PROGRESSION"
	ReadmissionDischargeAdequacy   ReadmissionCategory = "DISCHARGE_ADEQUACY"
	ReadmissionTimingPattern       ReadmissionCategory = "TIMING_PATTERN"
	ReadmissionDRGBundling         ReadmissionCategory = "DRG_BUNDLING"
	ReadmissionQualityConcern      ReadmissionCategory = "QUALITY_CONCERN"
)

// ReadmissionCategories lists the readmission category vocabulary.
var ReadmissionCategories = []ReadmissionCategory{
	ReadmissionClinicalRelatedness,
	ReadmissionComplication,
	ReadmissionDiseaseProgression,
	ReadmissionDischargeAdequacy,
	ReadmissionTimingPattern,
	ReadmissionDRGBundling,
	ReadmissionQualityConcern,
}

// ReadmissionStatus is the readmission review outcome.
type ReadmissionStatus string

const (
	ReadmissionPending                ReadmissionStatus = "Pending"
	ReadmissionClinicallyRelated      ReadmissionStatus = "Clinically Related"
	ReadmissionNotRelated             ReadmissionStatus = "Not Related"
	ReadmissionPlanned                ReadmissionStatus = "Planned"
	ReadmissionPotentiallyPreventable ReadmissionStatus = "Potentially Preventable"
	ReadmissionBundleCandidate        ReadmissionStatus = "Bundle Candidate"
)

// Relatedness is the clinical relatedness gradient between two admissions.
type Relatedness string

const (
	RelatednessDefinitely Relatedness = "Definitely Related"
	RelatednessLikely     Relatedness = "Likely Related"
	RelatednessPossibly   Relatedness = "Possibly Related"
	RelatednessNone       Relatedness = "Not Related"
)

// Admission is one side of a readmission pair.
type Admission struct {
	Episode

	// DischargePlan is only populated on the index admission.
	DischargePlan string `json:"dischargePlan,omitempty"`
}

// ReadmissionPair links an index admission to a subsequent readmission.
type ReadmissionPair struct {
	ID                   string    `json:"id"`
	BeneficiaryID        string    `json:"beneficiaryId"`
	BeneficiaryName      string    `json:"beneficiaryName"`
	IndexAdmission       Admission `json:"indexAdmission"`
	Readmission          Admission `json:"readmission"`
	DaysBetween          int       `json:"daysBetween"`
	SameFacility         bool      `json:"sameFacility"`
	SameAttending        bool      `json:"sameAttending"`
	CombinedBilled       float64   `json:"combinedBilledAmount"`
	HRRPCondition        string    `json:"hrrpCondition,omitempty"`
	IsPlannedReadmission bool      `json:"isPlannedReadmission"`

	ReviewStatus        ReadmissionStatus              `json:"reviewStatus"`
	ClinicalRelatedness Relatedness                    `json:"clinicalRelatedness,omitempty"`
	PreventabilityScore float64                        `json:"preventabilityScore"`
	Findings            []Finding[ReadmissionCategory] `json:"findings"`
	Warnings            []Warning                      `json:"warnings,omitempty"`
	Summary             string                         `json:"summary,omitempty"`
	Confidence          float64                        `json:"confidence"`
	BundleSavings       float64                        `json:"bundleSavingsEstimate"`
	HRRPPenaltyRisk     float64                        `json:"hrrpPenaltyRisk"`
	RiskScore           float64                        `json:"riskScore"`
	ReviewedAt          string                         `json:"reviewedAt,omitempty"`
}

// Validate checks the fields the readmission rules depend on.
func (p *ReadmissionPair) Validate() error {
	var v validator
	v.require("id", p.ID)
	p.IndexAdmission.validate(&v, "indexAdmission.")
	p.Readmission.validate(&v, "readmission.")
	if p.DaysBetween < 0 {
		v.fields = append(v.fields, FieldError{Field: "daysBetween", Message: "must not be negative"})
	}
	return v.err(p.ID)
}
