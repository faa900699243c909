// Package readmission reviews an index admission and a subsequent
// readmission for clinical relatedness, preventability and bundling.
package readmission

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
	"github.com/opensource-finance/kestrel/internal/textmatch"
)

// Rule identifiers.
const (
	RuleSameDiagnosis        = "RULE-RA-CR-001"
	RuleComplication         = "RULE-RA-CO-001"
	RuleDiseaseProgression   = "RULE-RA-DP-001"
	RulePrematureDischarge   = "RULE-RA-DA-001"
	RuleAMADischarge         = "RULE-RA-DA-002"
	RuleFollowUpGap          = "RULE-RA-DA-003"
	RuleInadequatePlan       = "RULE-RA-DA-004"
	RuleSameDayTransfer      = "RULE-RA-TP-001"
	RuleRapidReadmission     = "RULE-RA-TP-002"
	RuleIdenticalDRG         = "RULE-RA-DB-001"
	RuleRevolvingDoor        = "RULE-RA-QC-001"
	RuleSurgicalComplication = "RULE-RA-QC-002"
)

// Windows in days.
const (
	rapidWindow      = 3
	bundleWindow     = 14
	shortIndexStay   = 2
	minDischargePlan = 30
)

type (
	finding = domain.Finding[domain.ReadmissionCategory]
	rule    = review.Rule[domain.ReadmissionPair, domain.ReadmissionCategory]
)

var (
	complicationTerms = []string{
		"complication", "adverse", "medication error", "drug reaction",
		"hospital-acquired", "iatrogenic",
	}
	progressionTerms = []string{
		"progression", "progressed", "exacerbation", "end-stage", "metastatic", "natural course",
	}
	followUpGapTerms = []string{
		"no follow-up", "missed follow-up", "did not follow up", "no appointment",
		"unable to fill", "ran out of medication", "not scheduled",
	}
	followUpTerms = []string{"follow-up", "follow up", "appointment", "f/u"}
	qualityTerms  = []string{
		"revolving", "frequent readmission", "multiple admissions", "quality concern",
		"premature discharge", "discharged too early",
	}
	surgicalSiteTerms = []string{
		"surgical site infection", "wound infection", "dehiscence", "post-operative", "postoperative",
	}
)

// Checks holds the injected dependencies of the readmission rules.
type Checks struct {
	Text textmatch.Matcher
}

// Rules returns the built-in rules in evaluation order.
func (k Checks) Rules() []rule {
	return []rule{
		{ID: RuleSameDiagnosis, Name: "Same principal diagnosis category", Category: domain.ReadmissionClinicalRelatedness, Check: k.SameDiagnosis},
		{ID: RuleComplication, Name: "Complication of index care", Category: domain.ReadmissionComplication, Check: k.Complication},
		{ID: RuleDiseaseProgression, Name: "Disease progression", Category: domain.ReadmissionDiseaseProgression, Check: k.DiseaseProgression},
		{ID: RulePrematureDischarge, Name: "Premature discharge pattern", Category: domain.ReadmissionDischargeAdequacy, Check: k.PrematureDischarge},
		{ID: RuleAMADischarge, Name: "Discharged against medical advice", Category: domain.ReadmissionDischargeAdequacy, Check: k.AMADischarge},
		{ID: RuleFollowUpGap, Name: "Follow-up gap", Category: domain.ReadmissionDischargeAdequacy, Check: k.FollowUpGap},
		{ID: RuleInadequatePlan, Name: "Inadequate discharge plan", Category: domain.ReadmissionDischargeAdequacy, Check: k.InadequatePlan},
		{ID: RuleSameDayTransfer, Name: "Same-day transfer readmission", Category: domain.ReadmissionTimingPattern, Check: k.SameDayTransfer},
		{ID: RuleRapidReadmission, Name: "Rapid readmission", Category: domain.ReadmissionTimingPattern, Check: k.RapidReadmission},
		{ID: RuleIdenticalDRG, Name: "Identical DRG within bundle window", Category: domain.ReadmissionDRGBundling, Check: k.IdenticalDRG},
		{ID: RuleRevolvingDoor, Name: "Revolving-door pattern", Category: domain.ReadmissionQualityConcern, Check: k.RevolvingDoor},
		{ID: RuleSurgicalComplication, Name: "Surgical complication after index procedure", Category: domain.ReadmissionQualityConcern, Check: k.SurgicalComplication},
	}
}

// impact is the readmission billed amount, reported as exposure.
func impact(p domain.ReadmissionPair) *float64 {
	return domain.Amount(-p.Readmission.AssignedDRG.BilledAmount)
}

// SameDiagnosis fires when both principal diagnoses share an ICD-10 category.
func (k Checks) SameDiagnosis(p domain.ReadmissionPair) (*finding, error) {
	idx, re := p.IndexAdmission.PrincipalDiagnosis, p.Readmission.PrincipalDiagnosis
	if idx.Code == "" || idx.Category() != re.Category() {
		return nil, nil
	}
	sev := domain.SeverityHigh
	desc := fmt.Sprintf("Readmission principal diagnosis %s shares category %s with index diagnosis %s.", re.Code, re.Category(), idx.Code)
	if idx.Code == re.Code {
		sev = domain.SeverityCritical
		desc = fmt.Sprintf("Readmission principal diagnosis %s is identical to the index diagnosis.", re.Code)
	}
	return &finding{
		Severity:        sev,
		Description:     desc,
		Recommendation:  "Review both records for continuity of the same clinical episode.",
		FinancialImpact: impact(p),
	}, nil
}

// Complication fires when the readmission documents a complication or
// adverse event, or codes a T-series complication diagnosis.
func (k Checks) Complication(p domain.ReadmissionPair) (*finding, error) {
	tCode := ""
	for _, d := range p.Readmission.Diagnoses() {
		if strings.HasPrefix(d.Code, "T") {
			tCode = d.Code
			break
		}
	}
	if tCode == "" && !k.Text.ContainsAny(p.Readmission.ClinicalNotes, complicationTerms...) {
		return nil, nil
	}
	desc := "Readmission documentation describes a complication or adverse event following the index stay."
	if tCode != "" {
		desc = fmt.Sprintf("Readmission codes complication diagnosis %s.", tCode)
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     desc,
		Recommendation:  "Evaluate whether the complication resulted from index admission care.",
		FinancialImpact: impact(p),
	}, nil
}

// DiseaseProgression fires when the readmission describes progression of
// underlying disease.
func (k Checks) DiseaseProgression(p domain.ReadmissionPair) (*finding, error) {
	if !k.Text.ContainsAny(p.Readmission.ClinicalNotes, progressionTerms...) {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityMedium,
		Description:     "Readmission documentation attributes the stay to progression of underlying disease.",
		Recommendation:  "Progression may be unrelated to index care; confirm before recovery.",
		FinancialImpact: impact(p),
	}, nil
}

// PrematureDischarge fires for a short index stay followed by a rapid return.
func (k Checks) PrematureDischarge(p domain.ReadmissionPair) (*finding, error) {
	if p.IndexAdmission.LengthOfStay > shortIndexStay || p.DaysBetween > rapidWindow {
		return nil, nil
	}
	return &finding{
		Severity: domain.SeverityHigh,
		Description: fmt.Sprintf("Index stay of %d day(s) followed by readmission within %d day(s) suggests premature discharge.",
			p.IndexAdmission.LengthOfStay, p.DaysBetween),
		Recommendation:  "Review discharge readiness criteria at the index admission.",
		FinancialImpact: impact(p),
	}, nil
}

// AMADischarge fires when the index admission ended against medical advice.
func (k Checks) AMADischarge(p domain.ReadmissionPair) (*finding, error) {
	if p.IndexAdmission.DischargeStatus != domain.DischargeAMA {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityMedium,
		Description:     "Patient left the index admission against medical advice.",
		Recommendation:  "Readmission after AMA discharge is typically excluded from penalties; document counseling provided.",
		FinancialImpact: impact(p),
	}, nil
}

// FollowUpGap fires when either record notes missed or absent follow-up.
func (k Checks) FollowUpGap(p domain.ReadmissionPair) (*finding, error) {
	if !k.Text.ContainsAny(p.Readmission.ClinicalNotes, followUpGapTerms...) &&
		!k.Text.ContainsAny(p.IndexAdmission.DischargePlan, followUpGapTerms...) {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityMedium,
		Description:     "Records indicate a gap in post-discharge follow-up or medication access.",
		Recommendation:  "Strengthen transition-of-care processes for this population.",
		FinancialImpact: impact(p),
	}, nil
}

// InadequatePlan fires when the index discharge plan is missing, too brief,
// or gives no follow-up instruction.
func (k Checks) InadequatePlan(p domain.ReadmissionPair) (*finding, error) {
	plan := strings.TrimSpace(p.IndexAdmission.DischargePlan)
	var reason string
	switch {
	case plan == "":
		reason = "No discharge plan was documented for the index admission."
	case len(plan) < minDischargePlan:
		reason = "The index discharge plan is too brief to guide post-acute care."
	case !k.Text.ContainsAny(plan, followUpTerms...):
		reason = "The index discharge plan contains no follow-up instruction."
	default:
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityMedium,
		Description:     reason,
		Recommendation:  "Require a documented follow-up appointment before discharge.",
		FinancialImpact: impact(p),
	}, nil
}

// SameDayTransfer fires when a transferred patient is readmitted the same day.
func (k Checks) SameDayTransfer(p domain.ReadmissionPair) (*finding, error) {
	if p.DaysBetween != 0 || p.IndexAdmission.DischargeStatus != domain.DischargeTransferred {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityCritical,
		Description:     "Patient was transferred and readmitted on the same day.",
		Recommendation:  "Combine the stays under transfer payment policy.",
		FinancialImpact: impact(p),
	}, nil
}

// RapidReadmission fires for a readmission within three days.
func (k Checks) RapidReadmission(p domain.ReadmissionPair) (*finding, error) {
	if p.DaysBetween > rapidWindow {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     fmt.Sprintf("Readmitted %d day(s) after discharge.", p.DaysBetween),
		Recommendation:  "Rapid readmissions are presumed related; review for combination with the index stay.",
		FinancialImpact: impact(p),
	}, nil
}

// IdenticalDRG fires when an unplanned readmission within fourteen days
// groups to the same DRG.
func (k Checks) IdenticalDRG(p domain.ReadmissionPair) (*finding, error) {
	code := p.IndexAdmission.AssignedDRG.Code
	if code == "" || code != p.Readmission.AssignedDRG.Code || p.DaysBetween > bundleWindow || p.IsPlannedReadmission {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityCritical,
		Description:     fmt.Sprintf("Both admissions grouped to DRG %s within %d day(s).", code, p.DaysBetween),
		Recommendation:  "Bundle the readmission with the index payment.",
		FinancialImpact: impact(p),
	}, nil
}

// RevolvingDoor fires when either record describes a revolving-door or
// quality-of-care concern.
func (k Checks) RevolvingDoor(p domain.ReadmissionPair) (*finding, error) {
	if !k.Text.ContainsAny(p.Readmission.ClinicalNotes, qualityTerms...) &&
		!k.Text.ContainsAny(p.IndexAdmission.ClinicalNotes, qualityTerms...) {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityMedium,
		Description:     "Documentation references a revolving-door admission pattern or quality concern.",
		Recommendation:  "Refer to quality management for case review.",
		FinancialImpact: impact(p),
	}, nil
}

// SurgicalComplication fires when an index procedure is followed by a
// readmission for a surgical-site complication.
func (k Checks) SurgicalComplication(p domain.ReadmissionPair) (*finding, error) {
	if p.IndexAdmission.PrincipalProcedure == nil {
		return nil, nil
	}
	if !p.Readmission.HasCodePrefix("T81") && !k.Text.ContainsAny(p.Readmission.ClinicalNotes, surgicalSiteTerms...) {
		return nil, nil
	}
	return &finding{
		Severity: domain.SeverityHigh,
		Description: fmt.Sprintf("Readmission for a surgical complication after index procedure %s.",
			p.IndexAdmission.PrincipalProcedure.Code),
		Recommendation:  "Report as a surgical quality event and review the operative course.",
		FinancialImpact: impact(p),
	}, nil
}
