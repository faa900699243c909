// Package necessity reviews whether an inpatient admission was medically
// necessary at the level of care billed.
package necessity

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
	"github.com/opensource-finance/kestrel/internal/textmatch"
)

// Rule identifiers.
const (
	RuleStableNoAbnormalLabs = "RULE-MN-SI-001"
	RuleStableOneAbnormalLab = "RULE-MN-SI-002"
	RuleNoInpatientServices  = "RULE-MN-IS-001"
	RuleMonitoringOnly       = "RULE-MN-IS-002"
	RuleElectiveNoAuth       = "RULE-MN-AC-001"
	RuleShortStayHome        = "RULE-MN-LC-001"
	RuleCustodialSNF         = "RULE-MN-LC-002"
	RuleExtendedStableStay   = "RULE-MN-CS-001"
	RuleSparseNotes          = "RULE-MN-DG-001"
	RuleUntreatedAbnormals   = "RULE-MN-DG-002"
)

// minNotesLength is the shortest clinical narrative accepted as adequate.
const minNotesLength = 50

type (
	finding = domain.Finding[domain.NecessityCategory]
	rule    = review.Rule[domain.MedNecessityClaim, domain.NecessityCategory]
)

var (
	priorAuthTerms    = []string{"prior authorization", "prior auth", "pre-authorization", "preauthorization", "precertification"}
	custodialTerms    = []string{"custodial", "placement", "awaiting snf", "unsafe discharge", "social admission"}
	complicationTerms = []string{"complication", "worsening", "deteriorat", "new onset", "transfused", "rapid response"}
)

// Checks holds the injected dependencies of the medical-necessity rules.
type Checks struct {
	Text textmatch.Matcher
}

// Rules returns the built-in rules in evaluation order.
func (k Checks) Rules() []rule {
	return []rule{
		{ID: RuleStableNoAbnormalLabs, Name: "Stable vitals with normal labs", Category: domain.NecessitySeverityOfIllness, Check: k.StableNoAbnormalLabs},
		{ID: RuleStableOneAbnormalLab, Name: "Stable vitals with a single abnormal lab", Category: domain.NecessitySeverityOfIllness, Check: k.StableOneAbnormalLab},
		{ID: RuleNoInpatientServices, Name: "No inpatient-level services", Category: domain.NecessityIntensityOfService, Check: k.NoInpatientServices},
		{ID: RuleMonitoringOnly, Name: "Monitoring-only services", Category: domain.NecessityIntensityOfService, Check: k.MonitoringOnly},
		{ID: RuleElectiveNoAuth, Name: "Elective admission without authorization", Category: domain.NecessityAdmissionCriteria, Check: k.ElectiveWithoutAuthorization},
		{ID: RuleShortStayHome, Name: "Short stay discharged home", Category: domain.NecessityLevelOfCare, Check: k.ShortStayHome},
		{ID: RuleCustodialSNF, Name: "Custodial discharge to SNF", Category: domain.NecessityLevelOfCare, Check: k.CustodialSNF},
		{ID: RuleExtendedStableStay, Name: "Extended stay while stable", Category: domain.NecessityContinuedStay, Check: k.ExtendedStableStay},
		{ID: RuleSparseNotes, Name: "Insufficient clinical documentation", Category: domain.NecessityDocumentationGap, Check: k.SparseNotes},
		{ID: RuleUntreatedAbnormals, Name: "Abnormal results without treatment", Category: domain.NecessityDocumentationGap, Check: k.UntreatedAbnormals},
	}
}

func billed(c domain.MedNecessityClaim) float64 {
	return c.AssignedDRG.BilledAmount
}

// StableNoAbnormalLabs fires when a non-ICU patient had stable vitals and
// no abnormal labs.
func (k Checks) StableNoAbnormalLabs(c domain.MedNecessityClaim) (*finding, error) {
	stable, err := VitalsStable(c.Vitals)
	if err != nil {
		return nil, err
	}
	if !stable || c.AbnormalLabCount() != 0 || c.ICUAdmission {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     fmt.Sprintf("Vital signs were within normal limits (BP %s, HR %.0f, SpO2 %.0f%%) with no abnormal labs.", c.Vitals.BloodPressure, c.Vitals.HeartRate, c.Vitals.OxygenSaturation),
		Recommendation:  "Severity of illness does not support inpatient admission; consider observation or outpatient care.",
		FinancialImpact: domain.Amount(-billed(c)),
	}, nil
}

// StableOneAbnormalLab fires when a non-ICU patient had stable vitals and a
// single abnormal lab.
func (k Checks) StableOneAbnormalLab(c domain.MedNecessityClaim) (*finding, error) {
	stable, err := VitalsStable(c.Vitals)
	if err != nil {
		return nil, err
	}
	if !stable || c.AbnormalLabCount() != 1 || c.ICUAdmission {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityMedium,
		Description:     "Vital signs were stable with only one abnormal lab result.",
		Recommendation:  "Document why the abnormal result required inpatient management.",
		FinancialImpact: domain.Amount(-billed(c) / 2),
	}, nil
}

// NoInpatientServices fires when none of the six resource indicators is set.
func (k Checks) NoInpatientServices(c domain.MedNecessityClaim) (*finding, error) {
	if c.ResourceFlagCount() != 0 {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     "No IV medications, ICU care, surgery, telemetry, oxygen or isolation was required.",
		Recommendation:  "Intensity of service does not support inpatient level of care.",
		FinancialImpact: domain.Amount(-billed(c)),
	}, nil
}

// MonitoringOnly fires when the only service was telemetry or oxygen.
func (k Checks) MonitoringOnly(c domain.MedNecessityClaim) (*finding, error) {
	if c.ResourceFlagCount() != 1 || !(c.TelemetryRequired || c.OxygenRequired) {
		return nil, nil
	}
	service := "telemetry"
	if c.OxygenRequired {
		service = "supplemental oxygen"
	}
	return &finding{
		Severity:        domain.SeverityMedium,
		Description:     fmt.Sprintf("The only inpatient-level service was %s, which can be provided in observation.", service),
		Recommendation:  "Evaluate whether observation status would have been appropriate.",
		FinancialImpact: domain.Amount(-0.4 * billed(c)),
	}, nil
}

// ElectiveWithoutAuthorization fires for a non-surgical elective admission
// with no documented authorization.
func (k Checks) ElectiveWithoutAuthorization(c domain.MedNecessityClaim) (*finding, error) {
	if c.AdmissionType != domain.AdmissionElective || c.SurgicalProcedure || k.Text.ContainsAny(c.ClinicalNotes, priorAuthTerms...) {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityCritical,
		Description:     "Elective non-surgical admission with no prior authorization documented.",
		Recommendation:  "Obtain the authorization record or deny the inpatient admission.",
		FinancialImpact: domain.Amount(-billed(c)),
	}, nil
}

// ShortStayHome fires for a stay under two days ending at home without ICU
// care or surgery.
func (k Checks) ShortStayHome(c domain.MedNecessityClaim) (*finding, error) {
	if c.LengthOfStay >= 2 || c.DischargeStatus != domain.DischargeHome || c.ICUAdmission || c.SurgicalProcedure {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     fmt.Sprintf("Length of stay of %d day(s) with discharge home is consistent with observation status.", c.LengthOfStay),
		Recommendation:  "Rebill as outpatient observation.",
		FinancialImpact: domain.Amount(-billed(c) / 2),
	}, nil
}

// CustodialSNF fires for a discharge to SNF that was driven by placement
// rather than clinical need.
func (k Checks) CustodialSNF(c domain.MedNecessityClaim) (*finding, error) {
	if c.DischargeStatus != domain.DischargeSNF || !k.Text.ContainsAny(c.ClinicalNotes, custodialTerms...) {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityMedium,
		Description:     "Stay appears extended for custodial placement rather than acute care needs.",
		Recommendation:  "Review days awaiting placement; a skilled nursing level of care may apply.",
		FinancialImpact: domain.Amount(-0.3 * billed(c)),
	}, nil
}

// ExtendedStableStay fires when a stable, non-ICU patient stayed more than
// five days with no documented complication.
func (k Checks) ExtendedStableStay(c domain.MedNecessityClaim) (*finding, error) {
	if c.LengthOfStay <= 5 {
		return nil, nil
	}
	stable, err := VitalsStable(c.Vitals)
	if err != nil {
		return nil, err
	}
	if !stable || c.ICUAdmission || k.Text.ContainsAny(c.ClinicalNotes, complicationTerms...) {
		return nil, nil
	}
	los := float64(c.LengthOfStay)
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     fmt.Sprintf("Stay of %d days while clinically stable with no documented complication.", c.LengthOfStay),
		Recommendation:  "Days beyond the fifth are not justified by continued-stay criteria.",
		FinancialImpact: domain.Amount(-billed(c) * (los - 5) / los),
	}, nil
}

// SparseNotes fires when the clinical narrative is too short to support
// medical-necessity review.
func (k Checks) SparseNotes(c domain.MedNecessityClaim) (*finding, error) {
	if n := len(strings.TrimSpace(c.ClinicalNotes)); n >= minNotesLength {
		return nil, nil
	}
	return &finding{
		Severity:       domain.SeverityMedium,
		Description:    "Clinical notes are too brief to establish medical necessity.",
		Recommendation: "Request the history and physical and progress notes.",
	}, nil
}

// UntreatedAbnormals fires when several abnormal labs have no recorded treatment.
func (k Checks) UntreatedAbnormals(c domain.MedNecessityClaim) (*finding, error) {
	if c.AbnormalLabCount() < 2 || len(c.TreatmentsProvided) > 0 {
		return nil, nil
	}
	return &finding{
		Severity:       domain.SeverityLow,
		Description:    fmt.Sprintf("%d abnormal lab results were recorded but no treatments are documented.", c.AbnormalLabCount()),
		Recommendation: "Request the medication administration record and treatment orders.",
	}, nil
}
