package outlier

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the context a generative backend would need to
// assess the provider. The rule-based backend ignores it.
func BuildPrompt(t Target) string {
	own := t.Own()
	var b strings.Builder
	fmt.Fprintf(&b, "You are a payment-integrity analyst. Assess provider %s (%s) for fraud, waste and abuse.\n",
		t.ProviderName(), t.ProviderID)
	fmt.Fprintf(&b, "The provider has %d claim(s) in a population of %d.\n", len(own), len(t.Population))
	b.WriteString("Provider claims (id | beneficiary | date | procedure | billed | risk | status):\n")
	for _, c := range own {
		fmt.Fprintf(&b, "- %s | %s | %s | %s | %.2f | %.0f | %s\n",
			c.ID, c.BeneficiaryID, c.ServiceDate, c.ProcedureCode, c.BilledAmount, c.RiskScore, c.Status)
	}
	b.WriteString("Report statistical outliers, duplicate billing, round-number billing, frequency anomalies and risk concentration ")
	b.WriteString("as findings with ruleId, category, severity, description, recommendation, financialImpact and affectedClaims.\n")
	return b.String()
}
