package domain

// AdmissionType values.
const (
	AdmissionEmergency = "Emergency"
	AdmissionElective  = "Elective"
	AdmissionUrgent    = "Urgent"
	AdmissionNewborn   = "Newborn"
)

// DischargeStatus values.
const (
	DischargeHome        = "Home"
	DischargeSNF         = "SNF"
	DischargeLTAC        = "LTAC"
	DischargeAMA         = "AMA"
	DischargeExpired     = "Expired"
	DischargeTransferred = "Transferred"
)

// Physician identifies the attending physician of an episode.
type Physician struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NPI       string `json:"npi,omitempty"`
	Specialty string `json:"specialty,omitempty"`
}

// DRGAssignment is the DRG billed for an episode.
type DRGAssignment struct {
	Code           string  `json:"code"`
	Description    string  `json:"description"`
	RelativeWeight float64 `json:"relativeWeight"`
	BilledAmount   float64 `json:"billedAmount"`
}

// Diagnosis is one ICD-10-CM code on the claim.
type Diagnosis struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	IsMCC       bool   `json:"isMCC"`
	IsCC        bool   `json:"isCC"`
}

// Category returns the leading three characters of the code.
func (d Diagnosis) Category() string {
	return CodeCategory(d.Code)
}

// CodeCategory returns the ICD-10 category (first three characters) of a code.
func CodeCategory(code string) string {
	if len(code) < 3 {
		return code
	}
	return code[:3]
}

// Procedure is an ICD-10-PCS procedure.
type Procedure struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Date        string `json:"date,omitempty"`
}

// Episode is the inpatient stay shape shared by the DRG, medical-necessity and
// readmission verticals.
type Episode struct {
	ID                 string        `json:"id"`
	BeneficiaryID      string        `json:"beneficiaryId"`
	BeneficiaryName    string        `json:"beneficiaryName"`
	ProviderID         string        `json:"providerId"`
	ProviderName       string        `json:"providerName"`
	AdmissionDate      string        `json:"admissionDate"`
	DischargeDate      string        `json:"dischargeDate"`
	AdmissionType      string        `json:"admissionType"`
	DischargeStatus    string        `json:"dischargeStatus"`
	LengthOfStay       int           `json:"lengthOfStay"`
	AttendingPhysician Physician     `json:"attendingPhysician"`
	AssignedDRG        DRGAssignment `json:"assignedDRG"`
	PrincipalDiagnosis Diagnosis     `json:"principalDiagnosis"`
	SecondaryDiagnoses []Diagnosis   `json:"secondaryDiagnoses"`
	ClinicalNotes      string        `json:"clinicalNotes"`
	PrincipalProcedure *Procedure    `json:"principalProcedure,omitempty"`
}

// Diagnoses returns the principal diagnosis followed by the secondaries.
func (e *Episode) Diagnoses() []Diagnosis {
	out := make([]Diagnosis, 0, len(e.SecondaryDiagnoses)+1)
	out = append(out, e.PrincipalDiagnosis)
	return append(out, e.SecondaryDiagnoses...)
}

// HasCodePrefix reports whether any diagnosis code starts with one of prefixes.
func (e *Episode) HasCodePrefix(prefixes ...string) bool {
	for _, d := range e.Diagnoses() {
		for _, p := range prefixes {
			if len(d.Code) >= len(p) && d.Code[:len(p)] == p {
				return true
			}
		}
	}
	return false
}

func (e *Episode) validate(v *validator, prefix string) {
	v.require(prefix+"id", e.ID)
	v.require(prefix+"assignedDRG.code", e.AssignedDRG.Code)
	v.require(prefix+"principalDiagnosis.code", e.PrincipalDiagnosis.Code)
	v.nonNegative(prefix+"assignedDRG.billedAmount", e.AssignedDRG.BilledAmount)
	if e.LengthOfStay < 0 {
		v.fields = append(v.fields, FieldError{Field: prefix + "lengthOfStay", Message: "must not be negative"})
	}
}
