package outlier

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// Rule identifiers.
const (
	RuleBillingAmount     = "RULE-OD-BA-001"
	RuleClaimVolume       = "RULE-OD-CV-001"
	RuleProcedureCost     = "RULE-OD-PC-001"
	RuleDuplicateBilling  = "RULE-OD-DB-001"
	RuleRoundNumber       = "RULE-OD-RN-001"
	RuleFrequency         = "RULE-OD-FQ-001"
	RuleRiskConcentration = "RULE-OD-RC-001"
)

// Thresholds.
const (
	minProviders        = 3
	minProcedurePeers   = 4
	minRoundClaims      = 5
	minRiskClaims       = 3
	zThreshold          = 2.0
	duplicateWindowDays = 7
	riskScoreThreshold  = 70
	roundUnit           = 50.0
)

type (
	finding = domain.Finding[domain.OutlierCategory]
	rule    = review.Rule[Subject, domain.OutlierCategory]
)

// Rules returns the built-in outlier rules in evaluation order.
func Rules() []rule {
	return []rule{
		{ID: RuleBillingAmount, Name: "Billing amount outlier", Category: domain.OutlierStatistical, Check: DetectBillingAmountOutlier},
		{ID: RuleClaimVolume, Name: "Claim volume outlier", Category: domain.OutlierStatistical, Check: DetectClaimVolumeOutlier},
		{ID: RuleProcedureCost, Name: "Procedure cost outlier", Category: domain.OutlierStatistical, Check: DetectProcedureCostOutlier},
		{ID: RuleDuplicateBilling, Name: "Duplicate billing", Category: domain.OutlierDuplicateBilling, Check: DetectDuplicateBilling},
		{ID: RuleRoundNumber, Name: "Round-number billing", Category: domain.OutlierBillingPattern, Check: DetectRoundNumberBilling},
		{ID: RuleFrequency, Name: "Service frequency anomaly", Category: domain.OutlierFrequencyAnomaly, Check: DetectFrequencyAnomaly},
		{ID: RuleRiskConcentration, Name: "Risk concentration", Category: domain.OutlierRiskConcentration, Check: DetectRiskConcentration},
	}
}

// zSeverity maps a z-score above the firing threshold to a severity tier.
func zSeverity(z float64) domain.Severity {
	switch {
	case z > 3:
		return domain.SeverityCritical
	case z > 2.5:
		return domain.SeverityHigh
	default:
		return domain.SeverityMedium
	}
}

// ratioSeverity maps a share above 0.5 to a severity tier.
func ratioSeverity(r float64) domain.Severity {
	switch {
	case r > 0.8:
		return domain.SeverityCritical
	case r > 0.6:
		return domain.SeverityHigh
	default:
		return domain.SeverityMedium
	}
}

// providerZ computes the z-score of the subject's value of metric against
// all providers. ok is false when the subject is absent or the cohort is
// too small.
func providerZ(s Subject, metric func(*providerStats) float64) (z float64, self *providerStats, cohort stats.Summary, ok bool) {
	all := providers(s.Population)
	if len(all) < minProviders {
		return 0, nil, cohort, false
	}
	values := make([]float64, len(all))
	for i, p := range all {
		values[i] = metric(p)
		if p.id == s.ProviderID {
			self = p
		}
	}
	if self == nil {
		return 0, nil, cohort, false
	}
	cohort = stats.Summarize(values)
	return cohort.Z(metric(self)), self, cohort, true
}

// DetectBillingAmountOutlier flags a provider whose mean billed amount is
// far above the mean of all provider means.
func DetectBillingAmountOutlier(s Subject) (*finding, error) {
	z, self, cohort, ok := providerZ(s, (*providerStats).mean)
	if !ok || z <= zThreshold {
		return nil, nil
	}
	return &finding{
		Severity: zSeverity(z),
		Description: fmt.Sprintf("Average billed amount %s is %.2f standard deviations above the provider average of %s.",
			money(self.mean()), z, money(cohort.Mean)),
		Recommendation:  "Audit a sample of this provider's claims for upcoding or inflated charges.",
		FinancialImpact: domain.Amount((self.mean() - cohort.Mean) * float64(self.count)),
		Evidence:        fmt.Sprintf("z=%.2f providers=%d claims=%d", z, cohort.N, self.count),
	}, nil
}

// DetectClaimVolumeOutlier flags a provider submitting far more claims than peers.
func DetectClaimVolumeOutlier(s Subject) (*finding, error) {
	z, self, cohort, ok := providerZ(s, func(p *providerStats) float64 { return float64(p.count) })
	if !ok || z <= zThreshold {
		return nil, nil
	}
	return &finding{
		Severity: zSeverity(z),
		Description: fmt.Sprintf("Claim volume of %d is %.2f standard deviations above the provider average of %.1f.",
			self.count, z, cohort.Mean),
		Recommendation:  "Verify that billed services were rendered and review scheduling capacity.",
		FinancialImpact: domain.Amount((float64(self.count) - cohort.Mean) * self.mean()),
		Evidence:        fmt.Sprintf("z=%.2f providers=%d", z, cohort.N),
	}, nil
}

// DetectProcedureCostOutlier flags the provider's claims priced far above
// other claims for the same procedure code.
func DetectProcedureCostOutlier(s Subject) (*finding, error) {
	byCode := make(map[string][]float64)
	for _, c := range s.Population {
		byCode[c.ProcedureCode] = append(byCode[c.ProcedureCode], c.BilledAmount)
	}
	summaries := make(map[string]stats.Summary, len(byCode))
	for code, amounts := range byCode {
		summaries[code] = stats.Summarize(amounts)
	}

	var (
		affected []string
		codes    []string
		impact   float64
		maxZ     float64
	)
	for _, c := range s.Own() {
		sum := summaries[c.ProcedureCode]
		if sum.N < minProcedurePeers {
			continue
		}
		z := sum.Z(c.BilledAmount)
		if z <= zThreshold {
			continue
		}
		affected = append(affected, c.ID)
		codes = appendUnique(codes, c.ProcedureCode)
		impact += c.BilledAmount - sum.Mean
		maxZ = math.Max(maxZ, z)
	}
	if len(affected) == 0 {
		return nil, nil
	}
	sort.Strings(affected)
	return &finding{
		Severity: zSeverity(maxZ),
		Description: fmt.Sprintf("%d claim(s) priced more than %.0f standard deviations above peers for procedure code(s) %s.",
			len(affected), zThreshold, strings.Join(codes, ", ")),
		Recommendation:  "Compare charges against the fee schedule for the listed procedure codes.",
		FinancialImpact: domain.Amount(impact),
		AffectedClaims:  affected,
		Evidence:        fmt.Sprintf("max z=%.2f", maxZ),
	}, nil
}

// DetectDuplicateBilling flags pairs of the provider's claims for the same
// beneficiary and procedure code within seven days of each other.
// Claims with unparseable service dates are not paired.
func DetectDuplicateBilling(s Subject) (*finding, error) {
	own := s.Own()
	type dated struct {
		claim domain.Claim
		day   int64
	}
	var (
		valid    []dated
		badDates []string
	)
	for _, c := range own {
		t, err := domain.ParseDate(c.ServiceDate)
		if err != nil {
			badDates = append(badDates, c.ID)
			continue
		}
		valid = append(valid, dated{claim: c, day: t.Unix() / 86400})
	}

	pairs := 0
	hit := make(map[string]domain.Claim)
	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			a, b := valid[i], valid[j]
			if a.claim.BeneficiaryID != b.claim.BeneficiaryID || a.claim.ProcedureCode != b.claim.ProcedureCode {
				continue
			}
			diff := a.day - b.day
			if diff < 0 {
				diff = -diff
			}
			if diff > duplicateWindowDays {
				continue
			}
			pairs++
			hit[a.claim.ID] = a.claim
			hit[b.claim.ID] = b.claim
		}
	}
	if pairs == 0 {
		if len(badDates) > 0 {
			return nil, review.Unparseable("serviceDate", strings.Join(badDates, ","))
		}
		return nil, nil
	}

	affected := make([]string, 0, len(hit))
	for id := range hit {
		affected = append(affected, id)
	}
	sort.Strings(affected)
	// Sum in id order so the float result does not depend on map order.
	impact := 0.0
	for _, id := range affected {
		impact += hit[id].BilledAmount
	}

	sev := domain.SeverityHigh
	if pairs >= 3 {
		sev = domain.SeverityCritical
	}
	return &finding{
		Severity: sev,
		Description: fmt.Sprintf("%d potential duplicate claim pair(s): same beneficiary and procedure billed within %d days.",
			pairs, duplicateWindowDays),
		Recommendation:  "Hold payment on the affected claims and request documentation of separate encounters.",
		FinancialImpact: domain.Amount(impact),
		AffectedClaims:  affected,
		Evidence:        fmt.Sprintf("pairs=%d", pairs),
	}, nil
}

// DetectRoundNumberBilling flags a provider whose billed amounts are mostly
// exact multiples of $50.
func DetectRoundNumberBilling(s Subject) (*finding, error) {
	own := s.Own()
	if len(own) < minRoundClaims {
		return nil, nil
	}
	var (
		affected []string
		impact   float64
	)
	for _, c := range own {
		if isRound(c.BilledAmount) {
			affected = append(affected, c.ID)
			impact += c.BilledAmount
		}
	}
	ratio := float64(len(affected)) / float64(len(own))
	if ratio <= 0.5 {
		return nil, nil
	}
	sort.Strings(affected)
	return &finding{
		Severity: ratioSeverity(ratio),
		Description: fmt.Sprintf("%.0f%% of claims (%d of %d) are billed in exact multiples of $%.0f.",
			ratio*100, len(affected), len(own), roundUnit),
		Recommendation:  "Review charge capture; round-number billing suggests estimated rather than itemized charges.",
		FinancialImpact: domain.Amount(impact),
		AffectedClaims:  affected,
		Evidence:        fmt.Sprintf("ratio=%.2f", ratio),
	}, nil
}

// DetectFrequencyAnomaly flags a provider billing unusually many claims per
// beneficiary.
func DetectFrequencyAnomaly(s Subject) (*finding, error) {
	z, self, cohort, ok := providerZ(s, (*providerStats).perBeneficiary)
	if !ok || z <= zThreshold {
		return nil, nil
	}
	ratio := self.perBeneficiary()
	return &finding{
		Severity: zSeverity(z),
		Description: fmt.Sprintf("%.2f claims per beneficiary is %.2f standard deviations above the provider average of %.2f.",
			ratio, z, cohort.Mean),
		Recommendation:  "Review medical records for repeat services to the same beneficiaries.",
		FinancialImpact: domain.Amount((ratio - cohort.Mean) * float64(len(self.beneficiaries)) * self.mean()),
		Evidence:        fmt.Sprintf("z=%.2f beneficiaries=%d", z, len(self.beneficiaries)),
	}, nil
}

// DetectRiskConcentration flags a provider whose claims are mostly high-risk
// or already flagged.
func DetectRiskConcentration(s Subject) (*finding, error) {
	own := s.Own()
	if len(own) < minRiskClaims {
		return nil, nil
	}
	var (
		affected []string
		impact   float64
	)
	for _, c := range own {
		if c.RiskScore >= riskScoreThreshold || c.Status == domain.ClaimFlagged {
			affected = append(affected, c.ID)
			impact += c.BilledAmount
		}
	}
	ratio := float64(len(affected)) / float64(len(own))
	if ratio <= 0.5 {
		return nil, nil
	}
	sort.Strings(affected)
	return &finding{
		Severity: ratioSeverity(ratio),
		Description: fmt.Sprintf("%.0f%% of claims (%d of %d) carry a risk score of %d or more or are already flagged.",
			ratio*100, len(affected), len(own), riskScoreThreshold),
		Recommendation:  "Escalate the provider for a focused pre-payment review.",
		FinancialImpact: domain.Amount(impact),
		AffectedClaims:  affected,
		Evidence:        fmt.Sprintf("ratio=%.2f", ratio),
	}, nil
}

func isRound(amount float64) bool {
	if amount <= 0 {
		return false
	}
	rem := math.Mod(amount, roundUnit)
	return rem < 1e-9 || roundUnit-rem < 1e-9
}

func appendUnique(xs []string, x string) []string {
	for _, v := range xs {
		if v == x {
			return xs
		}
	}
	return append(xs, x)
}

func money(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}
