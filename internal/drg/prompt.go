package drg

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// BuildPrompt renders the claim for a generative DRG validator.
func BuildPrompt(c domain.DRGClaim) string {
	var b strings.Builder
	b.WriteString("You are a certified clinical documentation specialist performing DRG validation.\n")
	fmt.Fprintf(&b, "Claim %s: %s admission, %s to %s (LOS %d), discharged %s.\n",
		c.ID, c.AdmissionType, c.AdmissionDate, c.DischargeDate, c.LengthOfStay, c.DischargeStatus)
	fmt.Fprintf(&b, "Assigned DRG %s - %s (weight %.4f), billed $%.2f.\n",
		c.AssignedDRG.Code, c.AssignedDRG.Description, c.AssignedDRG.RelativeWeight, c.AssignedDRG.BilledAmount)
	fmt.Fprintf(&b, "Principal diagnosis: %s %s\n", c.PrincipalDiagnosis.Code, c.PrincipalDiagnosis.Description)
	for _, d := range c.SecondaryDiagnoses {
		flag := ""
		switch {
		case d.IsMCC:
			flag = " [MCC]"
		case d.IsCC:
			flag = " [CC]"
		}
		fmt.Fprintf(&b, "Secondary: %s %s%s\n", d.Code, d.Description, flag)
	}
	if p := c.PrincipalProcedure; p != nil {
		fmt.Fprintf(&b, "Principal procedure: %s %s\n", p.Code, p.Description)
	}
	fmt.Fprintf(&b, "Clinical notes:\n%s\n", c.ClinicalNotes)
	b.WriteString("Identify sequencing, upcoding, downcoding and completeness issues. Return findings with ruleId, category, severity, description, recommendation and financialImpact, plus the expected DRG.\n")
	return b.String()
}
