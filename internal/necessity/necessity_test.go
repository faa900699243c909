package necessity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
	"github.com/opensource-finance/kestrel/internal/textmatch"
)

const longNotes = "Patient presented with chest discomfort, evaluated in the emergency department and admitted for monitoring."

func stableClaim(id string) domain.MedNecessityClaim {
	return domain.MedNecessityClaim{
		Episode: domain.Episode{
			ID:                 id,
			BeneficiaryID:      "BEN-7",
			ProviderID:         "HOSP-2",
			AdmissionDate:      "2026-02-10",
			DischargeDate:      "2026-02-13",
			AdmissionType:      domain.AdmissionEmergency,
			DischargeStatus:    domain.DischargeHome,
			LengthOfStay:       3,
			AssignedDRG:        domain.DRGAssignment{Code: "313", Description: "Chest pain", RelativeWeight: 0.56, BilledAmount: 8000},
			PrincipalDiagnosis: domain.Diagnosis{Code: "R07.9", Description: "Chest pain, unspecified"},
			ClinicalNotes:      longNotes,
		},
		Vitals: domain.Vitals{
			BloodPressure:    "128/78",
			HeartRate:        76,
			Temperature:      98.4,
			RespiratoryRate:  16,
			OxygenSaturation: 98,
		},
		LabResults: []domain.LabResult{
			{Name: "Troponin", Value: "0.01", Unit: "ng/mL"},
		},
		TreatmentsProvided:     []string{"Serial troponins"},
		MedicalNecessityStatus: domain.NecessityPending,
	}
}

// sickClaim has unstable vitals and inpatient services.
func sickClaim(id string) domain.MedNecessityClaim {
	c := stableClaim(id)
	c.Vitals = domain.Vitals{BloodPressure: "88/52", HeartRate: 118, Temperature: 101.2, RespiratoryRate: 24, OxygenSaturation: 91}
	c.LabResults = []domain.LabResult{
		{Name: "WBC", Value: "18.2", Unit: "K/uL", Abnormal: true},
		{Name: "Lactate", Value: "3.9", Unit: "mmol/L", Abnormal: true},
		{Name: "Creatinine", Value: "2.1", Unit: "mg/dL", Abnormal: true},
	}
	c.TreatmentsProvided = []string{"IV antibiotics", "Fluid resuscitation"}
	c.IVMedicationsRequired = true
	c.LengthOfStay = 4
	return c
}

func ruleIDs(fs []domain.Finding[domain.NecessityCategory]) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.RuleID
	}
	return out
}

func TestVitals(t *testing.T) {
	sys, dia, err := ParseBloodPressure(" 120 / 80 ")
	require.NoError(t, err)
	assert.Equal(t, 120.0, sys)
	assert.Equal(t, 80.0, dia)

	for _, bad := range []string{"", "120", "abc/80", "120/80/60"} {
		_, _, err := ParseBloodPressure(bad)
		assert.True(t, errors.Is(err, review.ErrUnparseable), bad)
	}

	stable, err := VitalsStable(stableClaim("x").Vitals)
	require.NoError(t, err)
	assert.True(t, stable)

	edge := domain.Vitals{BloodPressure: "160/95", HeartRate: 100, Temperature: 99.5, RespiratoryRate: 20, OxygenSaturation: 95}
	stable, _ = VitalsStable(edge)
	assert.True(t, stable, "band limits are inclusive")

	edge.OxygenSaturation = 94
	stable, _ = VitalsStable(edge)
	assert.False(t, stable)
}

func TestStableAdmissionIsQueried(t *testing.T) {
	// Two High findings without a Critical one fall through to Queried.
	b := NewRuleBackend(Options{})
	r, err := b.Evaluate(context.Background(), "", stableClaim("MN-1"))
	require.NoError(t, err)

	assert.Equal(t, []string{RuleStableNoAbnormalLabs, RuleNoInpatientServices}, ruleIDs(r.Findings))
	for _, f := range r.Findings {
		assert.Equal(t, domain.SeverityHigh, f.Severity)
	}
	assert.Equal(t, domain.CriterionNotMet, r.Criteria.SeverityOfIllness)
	assert.Equal(t, domain.CriterionNotMet, r.Criteria.IntensityOfService)
	assert.Equal(t, domain.CriterionNotMet, r.Criteria.AdmissionCriteria)
	assert.Equal(t, domain.CriterionIndeterminate, r.Criteria.ContinuedStay)
	assert.Equal(t, domain.NecessityQueried, r.Status)
	assert.Equal(t, domain.CareObservation, r.LevelOfCare)
	assert.Equal(t, 95.0, r.DenialRisk)
	assert.Equal(t, 0.0, r.DenialAmount)
	assert.Equal(t, 78.0, r.Confidence)
	assert.InDelta(t, 69.0, RiskScore(r.FindingsScore, r.DenialRisk), 1e-9)
}

func TestElectiveWithoutAuthorizationDoesNotMeet(t *testing.T) {
	c := stableClaim("MN-2")
	c.AdmissionType = domain.AdmissionElective

	r, err := NewRuleBackend(Options{}).Evaluate(context.Background(), "", c)
	require.NoError(t, err)
	assert.Contains(t, ruleIDs(r.Findings), RuleElectiveNoAuth)
	assert.Equal(t, domain.NecessityDoesNotMeet, r.Status)
	assert.Equal(t, domain.CareOutpatient, r.LevelOfCare)
	assert.Equal(t, 8000.0, r.DenialAmount)
	assert.Equal(t, 100.0, r.DenialRisk)

	t.Run("AuthorizationDocumented", func(t *testing.T) {
		c.ClinicalNotes = longNotes + " Prior authorization obtained."
		r, _ := NewRuleBackend(Options{}).Evaluate(context.Background(), "", c)
		assert.NotContains(t, ruleIDs(r.Findings), RuleElectiveNoAuth)
	})
}

func TestCleanAdmissionMeetsCriteria(t *testing.T) {
	r, err := NewRuleBackend(Options{}).Evaluate(context.Background(), "", sickClaim("MN-3"))
	require.NoError(t, err)
	assert.Empty(t, r.Findings)
	assert.Equal(t, domain.NecessityMeetsCriteria, r.Status)
	assert.Equal(t, domain.CareInpatient, r.LevelOfCare)
	assert.Equal(t, 92.0, r.Confidence)
	assert.Equal(t, 10.0, r.DenialRisk)
	assert.Equal(t, domain.CriterionJustified, r.Criteria.ContinuedStay)
}

func TestObservationAndSkilledNursing(t *testing.T) {
	c := stableClaim("MN-4")
	c.LabResults[0].Abnormal = true
	c.IVMedicationsRequired = true
	c.LengthOfStay = 1

	r, err := NewRuleBackend(Options{}).Evaluate(context.Background(), "", c)
	require.NoError(t, err)
	assert.Equal(t, []string{RuleStableOneAbnormalLab, RuleShortStayHome}, ruleIDs(r.Findings))
	assert.Equal(t, domain.CriterionPartiallyMet, r.Criteria.SeverityOfIllness)
	assert.Equal(t, domain.NecessityObservation, r.Status)
	assert.Equal(t, domain.CareObservation, r.LevelOfCare)
	assert.Equal(t, 4000.0, r.DenialAmount)

	t.Run("CustodialSNF", func(t *testing.T) {
		c.LengthOfStay = 4
		c.DischargeStatus = domain.DischargeSNF
		c.ClinicalNotes = longNotes + " Remained inpatient awaiting SNF placement."
		r, _ := NewRuleBackend(Options{}).Evaluate(context.Background(), "", c)
		assert.Contains(t, ruleIDs(r.Findings), RuleCustodialSNF)
		assert.Equal(t, domain.NecessityObservation, r.Status)
		assert.Equal(t, domain.CareSkilledNursing, r.LevelOfCare)
	})
}

func TestContinuedStayAndDocumentation(t *testing.T) {
	k := Checks{Text: textmatch.NewKeyword()}

	c := stableClaim("MN-5")
	c.LengthOfStay = 8
	f, err := k.ExtendedStableStay(c)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.InDelta(t, -8000.0*3/8, f.Impact(), 1e-9)

	c.ClinicalNotes = longNotes + " Worsening dyspnea on day 4."
	f, _ = k.ExtendedStableStay(c)
	assert.Nil(t, f)

	c.ClinicalNotes = "Admitted."
	f, _ = k.SparseNotes(c)
	require.NotNil(t, f)
	assert.Nil(t, f.FinancialImpact)

	c.LabResults = []domain.LabResult{{Abnormal: true}, {Abnormal: true}}
	c.TreatmentsProvided = nil
	f, _ = k.UntreatedAbnormals(c)
	require.NotNil(t, f)
	assert.Equal(t, domain.SeverityLow, f.Severity)

	c.TelemetryRequired = true
	f, _ = k.MonitoringOnly(c)
	require.NotNil(t, f)
	assert.InDelta(t, -3200.0, f.Impact(), 1e-9)
}

func TestUnparseableBloodPressure(t *testing.T) {
	c := stableClaim("MN-6")
	c.Vitals.BloodPressure = "not recorded"

	lenient, _ := NewRuleBackend(Options{}).Evaluate(context.Background(), "", c)
	assert.Empty(t, lenient.Warnings)
	assert.NotContains(t, ruleIDs(lenient.Findings), RuleStableNoAbnormalLabs)

	strict, _ := NewRuleBackend(Options{Strict: true}).Evaluate(context.Background(), "", c)
	require.Len(t, strict.Warnings, 2)
	assert.Equal(t, RuleStableNoAbnormalLabs, strict.Warnings[0].RuleID)
	assert.Equal(t, RuleStableOneAbnormalLab, strict.Warnings[1].RuleID)
}

func TestUnreadableVitalsAreQueried(t *testing.T) {
	// Nothing fires on a sick chart, so only the vitals decide the grade.
	c := sickClaim("MN-9")
	c.Vitals.BloodPressure = "see flowsheet"

	r, err := NewRuleBackend(Options{}).Evaluate(context.Background(), "", c)
	require.NoError(t, err)
	assert.Empty(t, r.Findings)
	assert.Equal(t, domain.CriterionPartiallyMet, r.Criteria.SeverityOfIllness)
	assert.Equal(t, domain.CriterionMet, r.Criteria.IntensityOfService)
	assert.Equal(t, domain.CriterionPartiallyMet, r.Criteria.AdmissionCriteria)
	assert.Equal(t, domain.NecessityQueried, r.Status)
	assert.Equal(t, domain.CareInpatient, r.LevelOfCare)
	assert.Equal(t, 85.0, r.Confidence)
	assert.Equal(t, 25.0, r.DenialRisk)

	t.Run("ReadableVitalsMeet", func(t *testing.T) {
		r, _ := NewRuleBackend(Options{}).Evaluate(context.Background(), "", sickClaim("MN-9"))
		assert.Equal(t, domain.NecessityMeetsCriteria, r.Status)
		assert.Equal(t, 92.0, r.Confidence)
	})
}

func TestAssessGradesClaimData(t *testing.T) {
	c := stableClaim("MN-10")
	c.ICUAdmission = true
	a := Assess(c, nil)
	assert.Equal(t, domain.CriterionMet, a.SeverityOfIllness)
	assert.Equal(t, domain.CriterionMet, a.IntensityOfService)

	c.ICUAdmission = false
	c.OxygenRequired = true
	a = Assess(c, nil)
	assert.Equal(t, domain.CriterionNotMet, a.SeverityOfIllness)
	assert.Equal(t, domain.CriterionPartiallyMet, a.IntensityOfService)

	c.OxygenRequired = false
	assert.Equal(t, domain.CriterionNotMet, Assess(c, nil).IntensityOfService)
}

func TestStatusMonotonic(t *testing.T) {
	rank := map[domain.NecessityStatus]int{
		domain.NecessityMeetsCriteria: 0,
		domain.NecessityQueried:       1,
		domain.NecessityObservation:   2,
		domain.NecessityDoesNotMeet:   3,
	}
	is := domain.Finding[domain.NecessityCategory]{Category: domain.NecessityIntensityOfService, Severity: domain.SeverityHigh}
	prev := -1
	for _, sev := range []domain.Severity{domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical} {
		fs := []domain.Finding[domain.NecessityCategory]{
			{Category: domain.NecessitySeverityOfIllness, Severity: sev},
			is,
		}
		got := rank[Status(Assess(stableClaim("MN-8"), fs), fs)]
		assert.GreaterOrEqual(t, got, prev, "severity %s", sev)
		prev = got
	}
	assert.Equal(t, 3, prev)
}

func TestAgent(t *testing.T) {
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	agent := NewAgent(NewRuleBackend(Options{}), review.Options{Clock: func() time.Time { return at }})

	got, err := agent.ReviewOne(context.Background(), stableClaim("MN-7"))
	require.NoError(t, err)
	assert.Equal(t, domain.NecessityQueried, got.MedicalNecessityStatus)
	require.NotNil(t, got.CriteriaAssessment)
	assert.Equal(t, "2026-06-01T00:00:00Z", got.ReviewedAt)
	assert.GreaterOrEqual(t, got.RiskScore, 0.0)
	assert.LessOrEqual(t, got.RiskScore, 100.0)
	assert.Contains(t, BuildPrompt(got), "BP 128/78")
}
