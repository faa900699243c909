package readmission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
)

const goodPlan = "Discharge home with cardiology follow-up appointment in 7 days and daily weights."

// cleanPair is an unrelated readmission that fires no rule.
func cleanPair(id string) domain.ReadmissionPair {
	return domain.ReadmissionPair{
		ID:            id,
		BeneficiaryID: "BEN-31",
		IndexAdmission: domain.Admission{
			Episode: domain.Episode{
				ID:                 id + "-A",
				ProviderID:         "HOSP-1",
				AdmissionType:      domain.AdmissionEmergency,
				DischargeStatus:    domain.DischargeHome,
				LengthOfStay:       5,
				AssignedDRG:        domain.DRGAssignment{Code: "291", Description: "Heart failure and shock w MCC", BilledAmount: 12400},
				PrincipalDiagnosis: domain.Diagnosis{Code: "I50.9", Description: "Heart failure, unspecified"},
				ClinicalNotes:      "Admitted with acute decompensated heart failure, diuresed with IV furosemide.",
			},
			DischargePlan: goodPlan,
		},
		Readmission: domain.Admission{
			Episode: domain.Episode{
				ID:                 id + "-B",
				ProviderID:         "HOSP-1",
				AdmissionType:      domain.AdmissionEmergency,
				DischargeStatus:    domain.DischargeHome,
				LengthOfStay:       4,
				AssignedDRG:        domain.DRGAssignment{Code: "193", Description: "Simple pneumonia w MCC", BilledAmount: 9400},
				PrincipalDiagnosis: domain.Diagnosis{Code: "J18.9", Description: "Pneumonia, unspecified organism"},
				ClinicalNotes:      "Presented with productive cough and fever; chest x-ray shows right lower lobe infiltrate.",
			},
		},
		DaysBetween:  25,
		ReviewStatus: domain.ReadmissionPending,
	}
}

// bundlePair readmits for the same DRG within the bundle window.
func bundlePair(id string, days int) domain.ReadmissionPair {
	p := cleanPair(id)
	p.Readmission.AssignedDRG = p.IndexAdmission.AssignedDRG
	p.Readmission.AssignedDRG.BilledAmount = 9400
	p.Readmission.PrincipalDiagnosis = domain.Diagnosis{Code: "I50.23", Description: "Acute on chronic systolic heart failure"}
	p.Readmission.ClinicalNotes = "Returned with dyspnea and weight gain of four pounds."
	p.DaysBetween = days
	p.HRRPCondition = "HF"
	p.SameFacility = true
	return p
}

func evaluate(t *testing.T, p domain.ReadmissionPair) Result {
	t.Helper()
	r, err := NewRuleBackend(Options{}).Evaluate(context.Background(), "", p)
	require.NoError(t, err)
	return r
}

func ruleIDs(fs findings) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.RuleID
	}
	return out
}

func TestCleanPairIsNotRelated(t *testing.T) {
	r := evaluate(t, cleanPair("RA-1"))

	assert.Empty(t, r.Findings)
	assert.Equal(t, domain.RelatednessNone, r.Relatedness)
	assert.Equal(t, domain.ReadmissionNotRelated, r.Status)
	assert.Equal(t, 90.0, r.Confidence)
	assert.Equal(t, 20.0, r.Preventability)
	assert.Equal(t, 5.0, r.HRRPRisk)
	assert.Equal(t, 0.0, r.BundleSavings)
	assert.InDelta(t, 9.5, RiskScore(r.FindingsScore, r.Preventability, r.HRRPRisk), 1e-9)
}

func TestIdenticalDRGIsBundleCandidate(t *testing.T) {
	r := evaluate(t, bundlePair("RA-2", 5))

	assert.Equal(t, []string{RuleSameDiagnosis, RuleIdenticalDRG}, ruleIDs(r.Findings))
	assert.Equal(t, domain.SeverityHigh, r.Findings[0].Severity)
	assert.Equal(t, domain.SeverityCritical, r.Findings[1].Severity)
	for _, f := range r.Findings {
		assert.Equal(t, -9400.0, f.Impact())
	}
	assert.Equal(t, domain.RelatednessLikely, r.Relatedness)
	assert.Equal(t, domain.ReadmissionBundleCandidate, r.Status)
	assert.Equal(t, 9400.0, r.BundleSavings)
	assert.Equal(t, 78.0, r.Confidence)
	assert.Equal(t, 30.0, r.Preventability)
	assert.Equal(t, 80.0, r.HRRPRisk)
	assert.InDelta(t, 48.0, RiskScore(r.FindingsScore, r.Preventability, r.HRRPRisk), 1e-9)
}

func TestBundlingTakesPrecedenceOverTiming(t *testing.T) {
	r := evaluate(t, bundlePair("RA-3", 2))

	assert.True(t, review.HasRule(r.Findings, RuleIdenticalDRG))
	assert.True(t, review.HasRule(r.Findings, RuleRapidReadmission))
	assert.False(t, review.HasRule(r.Findings, RulePrematureDischarge), "index stay is five days")
	assert.Equal(t, domain.RelatednessDefinitely, r.Relatedness)
	assert.Equal(t, domain.ReadmissionBundleCandidate, r.Status)
}

func TestPlannedReadmission(t *testing.T) {
	p := cleanPair("RA-4")
	p.IsPlannedReadmission = true
	p.HRRPCondition = "HF"
	r := evaluate(t, p)

	assert.Equal(t, domain.ReadmissionPlanned, r.Status)
	assert.Equal(t, domain.RelatednessNone, r.Relatedness)
	assert.Equal(t, 0.0, r.HRRPRisk)
	assert.Equal(t, 0.0, r.Preventability)

	// A planned identical-DRG readmission is not bundled.
	p = bundlePair("RA-5", 5)
	p.IsPlannedReadmission = true
	r = evaluate(t, p)
	assert.False(t, review.HasRule(r.Findings, RuleIdenticalDRG))
	assert.Equal(t, domain.ReadmissionPlanned, r.Status)

	// A complication overrides the planned flag.
	p.Readmission.ClinicalNotes = "Readmitted with an adverse drug reaction to the new beta blocker."
	r = evaluate(t, p)
	assert.True(t, review.HasRule(r.Findings, RuleComplication))
	assert.Equal(t, domain.ReadmissionClinicallyRelated, r.Status)
}

func TestSameDayTransfer(t *testing.T) {
	p := cleanPair("RA-6")
	p.IndexAdmission.DischargeStatus = domain.DischargeTransferred
	p.DaysBetween = 0
	r := evaluate(t, p)

	assert.Equal(t, []string{RuleSameDayTransfer, RuleRapidReadmission}, ruleIDs(r.Findings))
	assert.Equal(t, domain.ReadmissionBundleCandidate, r.Status, "critical timing bundles without a DRG match")
}

func TestDischargeAdequacy(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.ReadmissionPair)
		rule   string
	}{
		{"premature", func(p *domain.ReadmissionPair) { p.IndexAdmission.LengthOfStay = 1; p.DaysBetween = 3 }, RulePrematureDischarge},
		{"ama", func(p *domain.ReadmissionPair) { p.IndexAdmission.DischargeStatus = domain.DischargeAMA }, RuleAMADischarge},
		{"gap in notes", func(p *domain.ReadmissionPair) {
			p.Readmission.ClinicalNotes = "Patient ran out of medication two days after discharge."
		}, RuleFollowUpGap},
		{"missing plan", func(p *domain.ReadmissionPair) { p.IndexAdmission.DischargePlan = "" }, RuleInadequatePlan},
		{"brief plan", func(p *domain.ReadmissionPair) { p.IndexAdmission.DischargePlan = "Home." }, RuleInadequatePlan},
		{"no follow-up", func(p *domain.ReadmissionPair) {
			p.IndexAdmission.DischargePlan = "Discharge home on current medications with low sodium diet."
		}, RuleInadequatePlan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := cleanPair("RA-7")
			tt.mutate(&p)
			r := evaluate(t, p)

			require.True(t, review.HasRule(r.Findings, tt.rule), ruleIDs(r.Findings))
			assert.Equal(t, domain.ReadmissionPotentiallyPreventable, r.Status)
			assert.Equal(t, 4700.0, r.BundleSavings)
		})
	}
}

func TestPrematureDischargePreventability(t *testing.T) {
	p := cleanPair("RA-8")
	p.IndexAdmission.LengthOfStay = 2
	p.DaysBetween = 1
	r := evaluate(t, p)

	// 20 base + 25 premature discharge + 10 within a week.
	assert.Equal(t, []string{RulePrematureDischarge, RuleRapidReadmission}, ruleIDs(r.Findings))
	assert.Equal(t, 55.0, r.Preventability)
}

func TestSurgicalComplication(t *testing.T) {
	p := cleanPair("RA-9")
	p.IndexAdmission.PrincipalProcedure = &domain.Procedure{Code: "0SR9019", Description: "Hip replacement"}
	p.Readmission.SecondaryDiagnoses = []domain.Diagnosis{{Code: "T81.41XA", Description: "Infection following a procedure"}}
	p.DaysBetween = 10
	r := evaluate(t, p)

	assert.Equal(t, []string{RuleComplication, RuleSurgicalComplication}, ruleIDs(r.Findings))
	assert.Equal(t, domain.RelatednessLikely, r.Relatedness)
	assert.Equal(t, domain.ReadmissionPotentiallyPreventable, r.Status)
	// 20 base + 20 complication + 15 quality concern.
	assert.Equal(t, 55.0, r.Preventability)
}

func TestDiseaseProgressionLowersPreventability(t *testing.T) {
	p := cleanPair("RA-10")
	p.Readmission.ClinicalNotes = "COPD exacerbation consistent with the natural course of end-stage disease."
	r := evaluate(t, p)

	assert.Equal(t, []string{RuleDiseaseProgression}, ruleIDs(r.Findings))
	assert.Equal(t, domain.RelatednessPossibly, r.Relatedness)
	assert.Equal(t, domain.ReadmissionClinicallyRelated, r.Status)
	assert.Equal(t, 10.0, r.Preventability)
}

func TestRelatednessGradient(t *testing.T) {
	p := cleanPair("RA-11")
	p.Readmission.PrincipalDiagnosis = p.IndexAdmission.PrincipalDiagnosis
	r := evaluate(t, p)
	assert.Equal(t, domain.SeverityCritical, r.Findings[0].Severity)
	assert.Equal(t, domain.RelatednessDefinitely, r.Relatedness)
	assert.Equal(t, domain.ReadmissionClinicallyRelated, r.Status)

	p = cleanPair("RA-12")
	p.DaysBetween = 6
	r = evaluate(t, p)
	assert.Empty(t, r.Findings)
	assert.Equal(t, domain.RelatednessPossibly, r.Relatedness)
	assert.Equal(t, domain.ReadmissionNotRelated, r.Status, "no findings")
}

func TestRevolvingDoor(t *testing.T) {
	p := cleanPair("RA-13")
	p.IndexAdmission.ClinicalNotes = "Third stay this quarter; multiple admissions for volume overload."
	r := evaluate(t, p)

	assert.Equal(t, []string{RuleRevolvingDoor}, ruleIDs(r.Findings))
	assert.Equal(t, domain.ReadmissionPotentiallyPreventable, r.Status)
}

func TestScoresStayBounded(t *testing.T) {
	p := bundlePair("RA-14", 0)
	p.IndexAdmission.LengthOfStay = 1
	p.IndexAdmission.DischargeStatus = domain.DischargeTransferred
	p.IndexAdmission.DischargePlan = ""
	p.IndexAdmission.PrincipalProcedure = &domain.Procedure{Code: "02703ZZ"}
	p.Readmission.PrincipalDiagnosis = p.IndexAdmission.PrincipalDiagnosis
	p.Readmission.ClinicalNotes = "Surgical site infection and adverse reaction; quality concern for premature discharge. Patient did not follow up."
	r := evaluate(t, p)

	assert.GreaterOrEqual(t, len(r.Findings), 9)
	assert.Equal(t, 60.0, r.Confidence)
	assert.Equal(t, 100.0, r.Preventability)
	for _, v := range []float64{r.Preventability, r.HRRPRisk, r.FindingsScore, RiskScore(r.FindingsScore, r.Preventability, r.HRRPRisk)} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestSeverityMonotonicity(t *testing.T) {
	rank := map[domain.ReadmissionStatus]int{
		domain.ReadmissionNotRelated:             0,
		domain.ReadmissionPlanned:                0,
		domain.ReadmissionClinicallyRelated:      1,
		domain.ReadmissionPotentiallyPreventable: 2,
		domain.ReadmissionBundleCandidate:        3,
	}
	status := func(sev domain.Severity) domain.ReadmissionStatus {
		extra := rule{ID: "X-1", Category: domain.ReadmissionTimingPattern, Check: func(domain.ReadmissionPair) (*finding, error) {
			return &finding{Severity: sev}, nil
		}}
		r, err := NewRuleBackend(Options{Extra: []rule{extra}}).Evaluate(context.Background(), "", cleanPair("RA-15"))
		require.NoError(t, err)
		return r.Status
	}
	assert.GreaterOrEqual(t, rank[status(domain.SeverityCritical)], rank[status(domain.SeverityMedium)])
	assert.Equal(t, domain.ReadmissionBundleCandidate, status(domain.SeverityCritical))
}

func TestCatalog(t *testing.T) {
	rs := NewRuleBackend(Options{}).RuleSet()
	assert.Equal(t, 12, rs.Len())
	seen := map[string]bool{}
	for _, info := range rs.Describe() {
		assert.False(t, seen[info.ID], info.ID)
		seen[info.ID] = true
	}
}

func TestAgent(t *testing.T) {
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	agent := NewAgent(NewRuleBackend(Options{}), review.Options{Clock: func() time.Time { return at }})

	bad := cleanPair("RA-17")
	bad.DaysBetween = -1
	outcomes := agent.ReviewBatch(context.Background(),
		[]domain.ReadmissionPair{bundlePair("RA-16", 5), bad}, []string{"RA-16", "RA-17", "RA-99"})
	require.Len(t, outcomes, 3)

	assert.Equal(t, review.OutcomeReviewed, outcomes[0].Status)
	got := outcomes[0].Result
	require.NotNil(t, got)
	assert.Equal(t, domain.ReadmissionBundleCandidate, got.ReviewStatus)
	assert.Equal(t, domain.RelatednessLikely, got.ClinicalRelatedness)
	assert.Equal(t, 9400.0, got.BundleSavings)
	assert.InDelta(t, 48.0, got.RiskScore, 1e-9)
	assert.Equal(t, "2026-06-01T00:00:00Z", got.ReviewedAt)

	assert.Equal(t, review.OutcomeFailed, outcomes[1].Status)
	require.Len(t, outcomes[1].Errors, 1)
	assert.Equal(t, "daysBetween", outcomes[1].Errors[0].Field)
	assert.Equal(t, review.OutcomeNotFound, outcomes[2].Status)

	assert.Contains(t, BuildPrompt(bundlePair("RA-16", 5)), "HRRP condition HF")
}
