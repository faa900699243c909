package outlier

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
)

func claim(id, provider, ben, date, code string, amount float64) domain.Claim {
	return domain.Claim{
		ID:              id,
		ProviderID:      provider,
		ProviderName:    "Provider " + provider,
		BeneficiaryID:   ben,
		BeneficiaryName: "Beneficiary " + ben,
		ServiceDate:     date,
		ProcedureCode:   code,
		BilledAmount:    amount,
		Status:          domain.ClaimPending,
	}
}

// peers returns n single-claim providers billing amount for code.
func peers(n int, code string, amount float64) []domain.Claim {
	out := make([]domain.Claim, n)
	for i := range out {
		id := fmt.Sprintf("PEER%02d", i)
		out[i] = claim("C-"+id, id, "B-"+id, "2026-01-10", code, amount)
	}
	return out
}

func TestDetectRoundNumberBilling(t *testing.T) {
	t.Run("EightyPercentIsHigh", func(t *testing.T) {
		pop := []domain.Claim{
			claim("C1", "P", "B1", "2026-01-01", "99213", 100),
			claim("C2", "P", "B2", "2026-01-02", "99213", 150),
			claim("C3", "P", "B3", "2026-01-03", "99213", 200),
			claim("C4", "P", "B4", "2026-01-04", "99213", 300),
			claim("C5", "P", "B5", "2026-01-05", "99213", 123.45),
		}
		f, err := DetectRoundNumberBilling(Subject{ProviderID: "P", Population: pop})
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, domain.SeverityHigh, f.Severity)
		assert.InDelta(t, 750.0, f.Impact(), 1e-9)
		assert.Equal(t, []string{"C1", "C2", "C3", "C4"}, f.AffectedClaims)
	})

	t.Run("AllRoundIsCritical", func(t *testing.T) {
		var pop []domain.Claim
		for i := 0; i < 5; i++ {
			pop = append(pop, claim(fmt.Sprintf("C%d", i), "P", "B", "2026-01-01", "99213", 500))
		}
		f, err := DetectRoundNumberBilling(Subject{ProviderID: "P", Population: pop})
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, domain.SeverityCritical, f.Severity)
	})

	t.Run("SixtyPercentIsMedium", func(t *testing.T) {
		pop := []domain.Claim{
			claim("C1", "P", "B1", "2026-01-01", "99213", 100),
			claim("C2", "P", "B2", "2026-01-02", "99213", 150),
			claim("C3", "P", "B3", "2026-01-03", "99213", 200),
			claim("C4", "P", "B4", "2026-01-04", "99213", 101),
			claim("C5", "P", "B5", "2026-01-05", "99213", 99.99),
		}
		f, _ := DetectRoundNumberBilling(Subject{ProviderID: "P", Population: pop})
		require.NotNil(t, f)
		assert.Equal(t, domain.SeverityMedium, f.Severity)
	})

	t.Run("TooFewClaims", func(t *testing.T) {
		pop := []domain.Claim{
			claim("C1", "P", "B1", "2026-01-01", "99213", 100),
			claim("C2", "P", "B2", "2026-01-02", "99213", 150),
		}
		f, err := DetectRoundNumberBilling(Subject{ProviderID: "P", Population: pop})
		assert.NoError(t, err)
		assert.Nil(t, f)
	})
}

func TestDetectDuplicateBilling(t *testing.T) {
	a := claim("A", "P", "B1", "2026-02-01", "99214", 180)
	b := claim("B", "P", "B1", "2026-02-06", "99214", 175)
	other := claim("X", "P", "B2", "2026-02-03", "99214", 160)

	t.Run("Symmetric", func(t *testing.T) {
		f1, err := DetectDuplicateBilling(Subject{ProviderID: "P", Population: []domain.Claim{a, b, other}})
		require.NoError(t, err)
		f2, err := DetectDuplicateBilling(Subject{ProviderID: "P", Population: []domain.Claim{other, b, a}})
		require.NoError(t, err)
		require.NotNil(t, f1)
		require.NotNil(t, f2)

		assert.Equal(t, []string{"A", "B"}, f1.AffectedClaims)
		assert.Equal(t, f1.AffectedClaims, f2.AffectedClaims)
		assert.Equal(t, domain.SeverityHigh, f1.Severity)
		assert.InDelta(t, 355.0, f1.Impact(), 1e-9)
	})

	t.Run("OutsideWindow", func(t *testing.T) {
		late := claim("C", "P", "B1", "2026-02-09", "99214", 175)
		f, err := DetectDuplicateBilling(Subject{ProviderID: "P", Population: []domain.Claim{a, late}})
		assert.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("ThreePairsIsCritical", func(t *testing.T) {
		c := claim("C", "P", "B1", "2026-02-03", "99214", 150)
		f, err := DetectDuplicateBilling(Subject{ProviderID: "P", Population: []domain.Claim{a, b, c}})
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, domain.SeverityCritical, f.Severity)
	})

	t.Run("UnparseableDate", func(t *testing.T) {
		bad := claim("D", "P", "B1", "Feb 2nd", "99214", 175)
		f, err := DetectDuplicateBilling(Subject{ProviderID: "P", Population: []domain.Claim{a, bad}})
		assert.Nil(t, f)
		assert.True(t, errors.Is(err, review.ErrUnparseable))
	})

	t.Run("OtherProvidersIgnored", func(t *testing.T) {
		q := claim("Q", "OTHER", "B1", "2026-02-01", "99214", 180)
		f, _ := DetectDuplicateBilling(Subject{ProviderID: "P", Population: []domain.Claim{a, q}})
		assert.Nil(t, f)
	})

	t.Run("ImpactIsStableAcrossRuns", func(t *testing.T) {
		amounts := []float64{123.45, 87.1, 250.33, 19.99, 1040.07, 66.6, 310.1, 45.05}
		var pop []domain.Claim
		var ids []string
		for i, amt := range amounts {
			id := fmt.Sprintf("D%d", i)
			ids = append(ids, id)
			pop = append(pop, claim(id, "P", "B1", fmt.Sprintf("2026-03-0%d", i%6+1), "99214", amt))
		}

		seen := make(map[float64]struct{})
		for i := 0; i < 200; i++ {
			f, err := DetectDuplicateBilling(Subject{ProviderID: "P", Population: pop})
			require.NoError(t, err)
			require.NotNil(t, f)
			require.Equal(t, ids, f.AffectedClaims)
			seen[f.Impact()] = struct{}{}
		}
		assert.Len(t, seen, 1, "impact must not vary between runs")
	})
}

func TestStatisticalOutliers(t *testing.T) {
	t.Run("BillingAmount", func(t *testing.T) {
		pop := append(peers(10, "99213", 100), claim("BIG", "P", "B1", "2026-01-10", "99213", 1000))
		f, err := DetectBillingAmountOutlier(Subject{ProviderID: "P", Population: pop})
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, domain.SeverityCritical, f.Severity)
		assert.Greater(t, f.Impact(), 0.0)
		assert.Empty(t, f.AffectedClaims)
	})

	t.Run("ProcedureCost", func(t *testing.T) {
		pop := append(peers(10, "99213", 100), claim("BIG", "P", "B1", "2026-01-10", "99213", 1000))
		f, err := DetectProcedureCostOutlier(Subject{ProviderID: "P", Population: pop})
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, []string{"BIG"}, f.AffectedClaims)
		assert.Equal(t, domain.SeverityCritical, f.Severity)
	})

	t.Run("ClaimVolume", func(t *testing.T) {
		pop := peers(10, "99213", 100)
		for i := 0; i < 10; i++ {
			pop = append(pop, claim(fmt.Sprintf("V%d", i), "P", fmt.Sprintf("B%d", i), "2026-01-10", "99213", 100))
		}
		f, err := DetectClaimVolumeOutlier(Subject{ProviderID: "P", Population: pop})
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, domain.SeverityCritical, f.Severity)
	})

	t.Run("Frequency", func(t *testing.T) {
		pop := peers(10, "99213", 100)
		for i := 0; i < 10; i++ {
			pop = append(pop, claim(fmt.Sprintf("F%d", i), "P", "B1", fmt.Sprintf("2026-03-%02d", i+1), "99213", 100))
		}
		f, err := DetectFrequencyAnomaly(Subject{ProviderID: "P", Population: pop})
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, domain.SeverityCritical, f.Severity)
	})

	t.Run("ZeroDeviationCohort", func(t *testing.T) {
		pop := append(peers(5, "99213", 100), claim("SAME", "P", "B1", "2026-01-10", "99213", 100))
		for _, check := range []func(Subject) (*finding, error){
			DetectBillingAmountOutlier, DetectClaimVolumeOutlier, DetectProcedureCostOutlier, DetectFrequencyAnomaly,
		} {
			f, err := check(Subject{ProviderID: "P", Population: pop})
			assert.NoError(t, err)
			assert.Nil(t, f)
		}
	})

	t.Run("TooFewProviders", func(t *testing.T) {
		pop := append(peers(1, "99213", 100), claim("BIG", "P", "B1", "2026-01-10", "99213", 100000))
		f, err := DetectBillingAmountOutlier(Subject{ProviderID: "P", Population: pop})
		assert.NoError(t, err)
		assert.Nil(t, f)
	})
}

func TestDetectRiskConcentration(t *testing.T) {
	pop := []domain.Claim{
		claim("R1", "P", "B1", "2026-01-01", "99213", 120),
		claim("R2", "P", "B2", "2026-01-02", "99213", 130),
		claim("R3", "P", "B3", "2026-01-03", "99213", 140),
	}
	pop[0].RiskScore = 85
	pop[1].Status = domain.ClaimFlagged

	f, err := DetectRiskConcentration(Subject{ProviderID: "P", Population: pop})
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, domain.SeverityHigh, f.Severity)
	assert.Equal(t, []string{"R1", "R2"}, f.AffectedClaims)
	assert.InDelta(t, 250.0, f.Impact(), 1e-9)
}

func TestRulesCatalog(t *testing.T) {
	rules := Rules()
	require.Len(t, rules, 7)
	seen := map[string]bool{}
	for _, r := range rules {
		assert.False(t, seen[r.ID], "duplicate rule id %s", r.ID)
		seen[r.ID] = true
		assert.Contains(t, domain.OutlierCategories, r.Category)
	}
}
