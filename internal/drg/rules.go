// Package drg validates that an inpatient claim's assigned DRG is supported
// by its diagnoses, procedures and clinical documentation.
package drg

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
	"github.com/opensource-finance/kestrel/internal/textmatch"
)

// Rule identifiers.
const (
	RuleSepsisNotCoded        = "RULE-SEP-001"
	RuleSepsisSequencing      = "RULE-SEP-002"
	RuleSepsisUnsupported     = "RULE-SEP-003"
	RuleMCCUnsupported        = "RULE-CC-001"
	RuleCCUnsupported         = "RULE-CC-002"
	RuleRespFailureMissed     = "RULE-CC-003"
	RuleSurgicalNoProcedure   = "RULE-PRC-001"
	RuleORProcedureMedicalDRG = "RULE-PRC-002"
	RuleVentilationShortStay  = "RULE-VNT-001"
	RuleVentilationUndercoded = "RULE-VNT-002"
	RuleStrokeNotCoded        = "RULE-STK-001"
	RuleAKINotCoded           = "RULE-AKI-001"
	RuleGIBleedNotCoded       = "RULE-GIB-001"
)

type (
	finding = domain.Finding[domain.DRGCategory]
	rule    = review.Rule[domain.DRGClaim, domain.DRGCategory]
)

// Note vocabularies.
var (
	sepsisTerms        = []string{"sepsis", "septic"}
	sirsTerms          = []string{"sirs", "lactate", "septic shock"}
	sepsisIndicators   = []string{"sepsis", "septic", "sirs", "lactate", "bacteremia"}
	poaTerms           = []string{"present on admission", "on arrival", "poa"}
	respFailureTerms   = []string{"respiratory failure", "hypoxic respiratory", "hypercapnic respiratory"}
	prolongedVentTerms = []string{
		">96 hours", "> 96 hours", "greater than 96 hours", "more than 96 hours",
		"prolonged mechanical ventilation",
	}
	strokeTerms = []string{"stroke", "cerebral infarction", "cva"}
	akiTerms    = append([]string{"acute kidney injury", "acute renal failure"}, textmatch.Word("aki")...)
	gibTerms    = []string{
		"gi bleed", "gastrointestinal bleed", "gastrointestinal hemorrhage",
		"melena", "hematochezia", "hematemesis",
	}
)

// documentation lists, per diagnosis code prefix, the note terms that
// support coding it as a complication or comorbidity.
var documentation = []struct {
	prefix string
	terms  []string
}{
	{"J96", respFailureTerms},
	{"N17", akiTerms},
	{"E43", []string{"malnutrition", "cachexia"}},
	{"E44", []string{"malnutrition"}},
	{"R65.2", []string{"severe sepsis", "septic shock"}},
	{"I50", []string{"heart failure", "chf", "reduced ejection fraction"}},
	{"G93.41", []string{"encephalopathy"}},
	{"J18", []string{"pneumonia"}},
	{"D62", []string{"blood loss anemia", "hemoglobin drop"}},
	{"E87.1", []string{"hyponatremia", "low sodium"}},
	{"E87.0", []string{"hypernatremia"}},
	{"N18", []string{"chronic kidney disease", "ckd"}},
	{"I48", []string{"atrial fibrillation", "afib", "a-fib"}},
	{"E11", []string{"diabetes", "dm2", "type 2 dm"}},
	{"L89", []string{"pressure ulcer", "pressure injury", "decubitus"}},
}

// Checks holds the injected dependencies of the DRG rules.
type Checks struct {
	Ref  *Reference
	Text textmatch.Matcher
}

// Rules returns the built-in DRG rules in evaluation order.
func (k Checks) Rules() []rule {
	return []rule{
		{ID: RuleSepsisNotCoded, Name: "Sepsis documented but not coded", Category: domain.DRGSequencing, Check: k.SepsisNotCoded},
		{ID: RuleSepsisSequencing, Name: "Sepsis present on admission sequenced secondary", Category: domain.DRGSequencing, Check: k.SepsisSequencing},
		{ID: RuleSepsisUnsupported, Name: "Sepsis coded without clinical support", Category: domain.DRGUpcoding, Check: k.SepsisUnsupported},
		{ID: RuleMCCUnsupported, Name: "MCC not supported by documentation", Category: domain.DRGUpcoding, Check: k.MCCUnsupported},
		{ID: RuleCCUnsupported, Name: "CC not supported by documentation", Category: domain.DRGUpcoding, Check: k.CCUnsupported},
		{ID: RuleRespFailureMissed, Name: "Respiratory failure documented but not coded", Category: domain.DRGDowncoding, Check: k.RespiratoryFailureMissed},
		{ID: RuleSurgicalNoProcedure, Name: "Surgical DRG without procedure", Category: domain.DRGUpcoding, Check: k.SurgicalWithoutProcedure},
		{ID: RuleORProcedureMedicalDRG, Name: "O.R. procedure on medical DRG", Category: domain.DRGDowncoding, Check: k.ORProcedureOnMedicalDRG},
		{ID: RuleVentilationShortStay, Name: "Prolonged ventilation DRG with short stay", Category: domain.DRGUpcoding, Check: k.VentilationShortStay},
		{ID: RuleVentilationUndercoded, Name: "Prolonged ventilation documented on short-ventilation DRG", Category: domain.DRGDowncoding, Check: k.VentilationUndercoded},
		{ID: RuleStrokeNotCoded, Name: "Stroke documented but not coded", Category: domain.DRGCompleteness, Check: k.StrokeNotCoded},
		{ID: RuleAKINotCoded, Name: "Acute kidney injury documented but not coded", Category: domain.DRGCompleteness, Check: k.AKINotCoded},
		{ID: RuleGIBleedNotCoded, Name: "GI bleeding documented but not coded", Category: domain.DRGCompleteness, Check: k.GIBleedNotCoded},
	}
}

func (k Checks) notes(c domain.DRGClaim, terms ...string) bool {
	return k.Text.ContainsAny(c.ClinicalNotes, terms...)
}

// SepsisNotCoded fires when the notes describe sepsis with SIRS or lactate
// evidence but no A41 code is present.
func (k Checks) SepsisNotCoded(c domain.DRGClaim) (*finding, error) {
	if !k.notes(c, sepsisTerms...) || !k.notes(c, sirsTerms...) || c.HasCodePrefix("A41") {
		return nil, nil
	}
	return &finding{
		Severity: domain.SeverityCritical,
		Description: fmt.Sprintf("Clinical notes document sepsis with SIRS criteria but no A41 sepsis code is reported; principal diagnosis %s may be mis-sequenced.",
			c.PrincipalDiagnosis.Code),
		Recommendation:  "Query the attending physician to confirm sepsis and resequence A41.x as principal diagnosis.",
		FinancialImpact: domain.Amount(3100),
	}, nil
}

// SepsisSequencing fires when sepsis present on admission is coded as a
// secondary diagnosis.
func (k Checks) SepsisSequencing(c domain.DRGClaim) (*finding, error) {
	if strings.HasPrefix(c.PrincipalDiagnosis.Code, "A41") || !hasSecondaryPrefix(c, "A41") || !k.notes(c, poaTerms...) {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     "Sepsis was present on admission but is sequenced as a secondary diagnosis.",
		Recommendation:  "Resequence the A41.x code as principal diagnosis per sepsis coding guidelines.",
		FinancialImpact: domain.Amount(2400),
	}, nil
}

// SepsisUnsupported fires when an A41 code lacks any supporting note language.
func (k Checks) SepsisUnsupported(c domain.DRGClaim) (*finding, error) {
	if !c.HasCodePrefix("A41") || k.notes(c, sepsisIndicators...) {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     "A sepsis code is reported but the clinical notes contain no sepsis, SIRS or lactate documentation.",
		Recommendation:  "Request clinical validation of sepsis or remove the A41.x code.",
		FinancialImpact: domain.Amount(-8700),
	}, nil
}

// MCCUnsupported fires when an MCC-flagged secondary diagnosis has no
// supporting documentation.
func (k Checks) MCCUnsupported(c domain.DRGClaim) (*finding, error) {
	codes := k.unsupported(c, func(d domain.Diagnosis) bool { return d.IsMCC })
	if len(codes) == 0 {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     fmt.Sprintf("MCC diagnosis %s is not supported by the clinical documentation.", strings.Join(codes, ", ")),
		Recommendation:  "Query the provider for documentation supporting the MCC or remove it and regroup.",
		FinancialImpact: domain.Amount(-4500),
	}, nil
}

// CCUnsupported fires when a CC-flagged (non-MCC) secondary diagnosis has
// no supporting documentation.
func (k Checks) CCUnsupported(c domain.DRGClaim) (*finding, error) {
	codes := k.unsupported(c, func(d domain.Diagnosis) bool { return d.IsCC && !d.IsMCC })
	if len(codes) == 0 {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityMedium,
		Description:     fmt.Sprintf("CC diagnosis %s is not supported by the clinical documentation.", strings.Join(codes, ", ")),
		Recommendation:  "Query the provider for documentation supporting the CC or remove it and regroup.",
		FinancialImpact: domain.Amount(-1800),
	}, nil
}

// RespiratoryFailureMissed fires when respiratory failure is documented
// without a J96 code.
func (k Checks) RespiratoryFailureMissed(c domain.DRGClaim) (*finding, error) {
	if !k.notes(c, respFailureTerms...) || c.HasCodePrefix("J96") {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     "Respiratory failure is documented but no J96 code is reported; a qualifying MCC may be missing.",
		Recommendation:  "Add the appropriate J96.x code if clinically validated and regroup.",
		FinancialImpact: domain.Amount(5200),
	}, nil
}

// SurgicalWithoutProcedure fires when a surgical DRG has no principal procedure.
func (k Checks) SurgicalWithoutProcedure(c domain.DRGClaim) (*finding, error) {
	if !k.Ref.IsSurgical(c.AssignedDRG.Code) || c.PrincipalProcedure != nil {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityCritical,
		Description:     fmt.Sprintf("Surgical DRG %s is assigned but no principal procedure is reported.", c.AssignedDRG.Code),
		Recommendation:  "Verify the operative report; regroup to a medical DRG if no procedure was performed.",
		FinancialImpact: domain.Amount(-6200),
	}, nil
}

// ORProcedureOnMedicalDRG fires when an operating-room procedure was coded
// but the claim grouped to a medical DRG.
func (k Checks) ORProcedureOnMedicalDRG(c domain.DRGClaim) (*finding, error) {
	p := c.PrincipalProcedure
	if p == nil || !strings.HasPrefix(p.Code, "0") || !k.Ref.IsMedical(c.AssignedDRG.Code) {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityMedium,
		Description:     fmt.Sprintf("O.R. procedure %s is reported on medical DRG %s.", p.Code, c.AssignedDRG.Code),
		Recommendation:  "Regroup the claim; the procedure may qualify for a surgical DRG.",
		FinancialImpact: domain.Amount(4100),
	}, nil
}

// VentilationShortStay fires when DRG 207 is billed for a stay too short to
// contain 96 hours of ventilation.
func (k Checks) VentilationShortStay(c domain.DRGClaim) (*finding, error) {
	if c.AssignedDRG.Code != "207" || c.LengthOfStay >= 4 {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     fmt.Sprintf("DRG 207 requires more than 96 hours of ventilation but the length of stay is %d day(s).", c.LengthOfStay),
		Recommendation:  "Validate ventilation start and stop times; regroup to DRG 208 if under 96 hours.",
		FinancialImpact: domain.Amount(-19400),
	}, nil
}

// VentilationUndercoded fires when DRG 208 is billed but the notes document
// more than 96 hours of ventilation.
func (k Checks) VentilationUndercoded(c domain.DRGClaim) (*finding, error) {
	if c.AssignedDRG.Code != "208" || !k.notes(c, prolongedVentTerms...) {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     "Notes document mechanical ventilation beyond 96 hours but DRG 208 is assigned.",
		Recommendation:  "Confirm ventilation hours and regroup to DRG 207.",
		FinancialImpact: domain.Amount(19400),
	}, nil
}

// StrokeNotCoded fires when a stroke is documented without an I63 code.
func (k Checks) StrokeNotCoded(c domain.DRGClaim) (*finding, error) {
	if !k.notes(c, strokeTerms...) || c.HasCodePrefix("I63") {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     "Clinical notes document a stroke but no I63 cerebral infarction code is reported.",
		Recommendation:  "Add the appropriate I63.x code if confirmed by imaging and regroup.",
		FinancialImpact: domain.Amount(4800),
	}, nil
}

// AKINotCoded fires when acute kidney injury is documented without an N17 code.
func (k Checks) AKINotCoded(c domain.DRGClaim) (*finding, error) {
	if !k.notes(c, akiTerms...) || c.HasCodePrefix("N17") {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityHigh,
		Description:     "Clinical notes document acute kidney injury but no N17 code is reported.",
		Recommendation:  "Add the appropriate N17.x code if creatinine criteria are met.",
		FinancialImpact: domain.Amount(3900),
	}, nil
}

// GIBleedNotCoded fires when GI bleeding is documented without a K92.0-K92.2 code.
func (k Checks) GIBleedNotCoded(c domain.DRGClaim) (*finding, error) {
	if !k.notes(c, gibTerms...) || c.HasCodePrefix("K92.0", "K92.1", "K92.2") {
		return nil, nil
	}
	return &finding{
		Severity:        domain.SeverityMedium,
		Description:     "Clinical notes document gastrointestinal bleeding but no K92.0-K92.2 code is reported.",
		Recommendation:  "Add the appropriate K92.x code or a more specific bleeding source code.",
		FinancialImpact: domain.Amount(2700),
	}, nil
}

// unsupported returns codes of secondary diagnoses matching sel whose known
// documentation terms are absent from the notes. Codes without a known
// vocabulary are not judged.
func (k Checks) unsupported(c domain.DRGClaim, sel func(domain.Diagnosis) bool) []string {
	var out []string
	for _, d := range c.SecondaryDiagnoses {
		if !sel(d) {
			continue
		}
		for _, doc := range documentation {
			if strings.HasPrefix(d.Code, doc.prefix) {
				if !k.notes(c, doc.terms...) {
					out = append(out, d.Code)
				}
				break
			}
		}
	}
	return out
}

func hasSecondaryPrefix(c domain.DRGClaim, prefix string) bool {
	for _, d := range c.SecondaryDiagnoses {
		if strings.HasPrefix(d.Code, prefix) {
			return true
		}
	}
	return false
}
