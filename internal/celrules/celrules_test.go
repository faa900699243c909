package celrules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
)

func drgClaim(los int, billed float64) domain.DRGClaim {
	return domain.DRGClaim{
		Episode: domain.Episode{
			ID:                 "DRG-X",
			LengthOfStay:       los,
			AssignedDRG:        domain.DRGAssignment{Code: "871", BilledAmount: billed},
			PrincipalDiagnosis: domain.Diagnosis{Code: "A41.9"},
		},
	}
}

func longStay() Definition {
	return Definition{
		ID:             "CUSTOM-LOS-001",
		Name:           "Long septicemia stay",
		Vertical:       "drg",
		Category:       string(domain.DRGUpcoding),
		Severity:       domain.SeverityMedium,
		Expression:     `claim.lengthOfStay > 10 && claim.assignedDRG.code == "871"`,
		Impact:         `claim.assignedDRG.billedAmount / 10.0`,
		Description:    "Stay exceeds the expected length for DRG 871.",
		Recommendation: "Request continued-stay documentation.",
	}
}

func TestCompileAndMatch(t *testing.T) {
	rules, err := Build("drg", "claim", []Definition{longStay()}, domain.DRGCategories, Facts[domain.DRGClaim])
	require.NoError(t, err, "failed to build rules")
	require.Len(t, rules, 1)

	rs := review.NewRuleSet(rules...)
	ev := rs.Evaluate(drgClaim(12, 40000))
	require.Len(t, ev.Findings, 1, "warnings %v", ev.Warnings)

	f := ev.Findings[0]
	assert.Equal(t, "CUSTOM-LOS-001", f.RuleID)
	assert.Equal(t, domain.DRGUpcoding, f.Category)
	assert.Equal(t, domain.SeverityMedium, f.Severity)
	assert.Equal(t, 4000.0, f.Impact())

	ev = rs.Evaluate(drgClaim(5, 40000))
	assert.Empty(t, ev.Findings)
	assert.Empty(t, ev.Warnings)
}

func TestBuildFiltersByVertical(t *testing.T) {
	other := longStay()
	other.Vertical = "readmissions"
	rules, err := Build("drg", "claim", []Definition{other}, domain.DRGCategories, Facts[domain.DRGClaim])
	require.NoError(t, err)
	assert.Empty(t, rules, "rules for other verticals are skipped")
}

func TestInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Definition)
	}{
		{"missing id", func(d *Definition) { d.ID = "" }},
		{"missing expression", func(d *Definition) { d.Expression = " " }},
		{"bad severity", func(d *Definition) { d.Severity = "Severe" }},
		{"foreign category", func(d *Definition) { d.Category = string(domain.ReadmissionDRGBundling) }},
		{"syntax", func(d *Definition) { d.Expression = "this is not valid CEL !!!" }},
		{"non-bool", func(d *Definition) { d.Expression = `"yes"` }},
		{"string impact", func(d *Definition) { d.Impact = `"lots"` }},
		{"unknown variable", func(d *Definition) { d.Expression = "pair.daysBetween < 3" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := longStay()
			tt.mutate(&def)
			_, err := Build("drg", "claim", []Definition{def}, domain.DRGCategories, Facts[domain.DRGClaim])
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestEvaluationErrorBecomesWarning(t *testing.T) {
	def := longStay()
	def.Expression = `claim.noSuchField > 1`
	rules, err := Build("drg", "claim", []Definition{def}, domain.DRGCategories, Facts[domain.DRGClaim])
	require.NoError(t, err, "failed to build rules")

	ev := review.NewRuleSet(rules...).Evaluate(drgClaim(12, 1000))
	assert.Empty(t, ev.Findings)
	require.Len(t, ev.Warnings, 1)
	assert.Equal(t, def.ID, ev.Warnings[0].RuleID)
}

func TestFacts(t *testing.T) {
	m, err := Facts(drgClaim(3, 1500))
	require.NoError(t, err)

	drg, ok := m["assignedDRG"].(map[string]any)
	require.True(t, ok, "expected nested assignedDRG map, got %T", m["assignedDRG"])
	assert.Equal(t, 1500.0, drg["billedAmount"])
	assert.Equal(t, 3.0, m["lengthOfStay"], "numbers decode as doubles")
}
