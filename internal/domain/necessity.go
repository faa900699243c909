package domain

// NecessityCategory classifies medical-necessity findings.
type NecessityCategory string

const (
	NecessitySeverityOfIllness  NecessityCategory = "SEVERITY_OF_ILLNESS"
	NecessityIntensityOfService NecessityCategory = "INTENSITY_OF_SERVICE"
	NecessityAdmissionCriteria  NecessityCategory = "ADMISSION_CRITERIA"
	NecessityLevelOfCare        NecessityCategory = "LEVEL_OF_CARE"
	NecessityContinuedStay      NecessityCategory = "CONTINUED_STAY"
	NecessityDocumentationGap   NecessityCategory = "DOCUMENTATION_GAP"
)

// NecessityCategories lists the medical-necessity category vocabulary.
var NecessityCategories = []NecessityCategory{
	NecessitySeverityOfIllness,
	NecessityIntensityOfService,
	NecessityAdmissionCriteria,
	NecessityLevelOfCare,
	NecessityContinuedStay,
	NecessityDocumentationGap,
}

// NecessityStatus is the medical-necessity determination.
type NecessityStatus string

const (
	NecessityPending       NecessityStatus = "Pending"
	NecessityMeetsCriteria NecessityStatus = "Meets Criteria"
	NecessityDoesNotMeet   NecessityStatus = "Does Not Meet"
	NecessityObservation   NecessityStatus = "Observation"
	NecessityQueried       NecessityStatus = "Queried"
)

// LevelOfCare is the recommended setting of care.
type LevelOfCare string

const (
	CareInpatient      LevelOfCare = "Inpatient"
	CareObservation    LevelOfCare = "Observation"
	CareOutpatient     LevelOfCare = "Outpatient"
	CareSkilledNursing LevelOfCare = "Skilled Nursing"
	CareHome           LevelOfCare = "Home"
)

// CriterionResult is the assessment of one criteria dimension.
type CriterionResult string

const (
	CriterionMet           CriterionResult = "Met"
	CriterionNotMet        CriterionResult = "Not Met"
	CriterionPartiallyMet  CriterionResult = "Partially Met"
	CriterionJustified     CriterionResult = "Justified"
	CriterionNotJustified  CriterionResult = "Not Justified"
	CriterionIndeterminate CriterionResult = "Indeterminate"
)

// CriteriaAssessment is the four-dimension medical-necessity assessment.
type CriteriaAssessment struct {
	SeverityOfIllness  CriterionResult `json:"severityOfIllness"`
	IntensityOfService CriterionResult `json:"intensityOfService"`
	AdmissionCriteria  CriterionResult `json:"admissionCriteria"`
	ContinuedStay      CriterionResult `json:"continuedStay"`
}

// Vitals captured at admission. BloodPressure is "systolic/diastolic".
type Vitals struct {
	BloodPressure    string  `json:"bloodPressure"`
	HeartRate        float64 `json:"heartRate"`
	Temperature      float64 `json:"temperature"`
	RespiratoryRate  float64 `json:"respiratoryRate"`
	OxygenSaturation float64 `json:"oxygenSaturation"`
}

// LabResult is one laboratory value.
type LabResult struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Unit     string `json:"unit"`
	Abnormal bool   `json:"abnormal"`
}

// MedNecessityClaim is an inpatient admission under medical-necessity review.
type MedNecessityClaim struct {
	Episode

	Vitals                Vitals      `json:"vitals"`
	LabResults            []LabResult `json:"labResults"`
	TreatmentsProvided    []string    `json:"treatmentsProvided"`
	IVMedicationsRequired bool        `json:"ivMedicationsRequired"`
	ICUAdmission          bool        `json:"icuAdmission"`
	SurgicalProcedure     bool        `json:"surgicalProcedure"`
	TelemetryRequired     bool        `json:"telemetryRequired"`
	OxygenRequired        bool        `json:"oxygenRequired"`
	IsolationRequired     bool        `json:"isolationRequired"`

	MedicalNecessityStatus NecessityStatus              `json:"medicalNecessityStatus"`
	RecommendedLevelOfCare LevelOfCare                  `json:"recommendedLevelOfCare,omitempty"`
	CriteriaAssessment     *CriteriaAssessment          `json:"criteriaAssessment,omitempty"`
	DenialRisk             float64                      `json:"denialRisk"`
	EstimatedDenialAmount  float64                      `json:"estimatedDenialAmount"`
	Findings               []Finding[NecessityCategory] `json:"findings"`
	Warnings               []Warning                    `json:"warnings,omitempty"`
	Summary                string                       `json:"summary,omitempty"`
	Confidence             float64                      `json:"confidence"`
	RiskScore              float64                      `json:"riskScore"`
	ReviewedAt             string                       `json:"reviewedAt,omitempty"`
}

// AbnormalLabCount returns the number of labs flagged abnormal.
func (c *MedNecessityClaim) AbnormalLabCount() int {
	n := 0
	for _, l := range c.LabResults {
		if l.Abnormal {
			n++
		}
	}
	return n
}

// ResourceFlagCount returns how many of the six resource indicators are set.
func (c *MedNecessityClaim) ResourceFlagCount() int {
	n := 0
	for _, f := range []bool{
		c.IVMedicationsRequired,
		c.ICUAdmission,
		c.SurgicalProcedure,
		c.TelemetryRequired,
		c.OxygenRequired,
		c.IsolationRequired,
	} {
		if f {
			n++
		}
	}
	return n
}

// Validate checks the fields the medical-necessity rules depend on.
func (c *MedNecessityClaim) Validate() error {
	var v validator
	c.Episode.validate(&v, "")
	return v.err(c.ID)
}
