package readmission

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// BuildPrompt renders the pair for a generative readmission reviewer.
func BuildPrompt(p domain.ReadmissionPair) string {
	var b strings.Builder
	b.WriteString("You are a clinical reviewer assessing whether a hospital readmission relates to the prior stay.\n")
	fmt.Fprintf(&b, "Pair %s: readmitted %d day(s) after discharge; same facility=%t, same attending=%t, planned=%t",
		p.ID, p.DaysBetween, p.SameFacility, p.SameAttending, p.IsPlannedReadmission)
	if p.HRRPCondition != "" {
		fmt.Fprintf(&b, ", HRRP condition %s", p.HRRPCondition)
	}
	b.WriteString(".\n")
	writeAdmission(&b, "Index admission", p.IndexAdmission)
	fmt.Fprintf(&b, "Discharge plan: %s\n", p.IndexAdmission.DischargePlan)
	writeAdmission(&b, "Readmission", p.Readmission)
	b.WriteString("Grade clinical relatedness, preventability and bundling eligibility; return a status and findings.\n")
	return b.String()
}

func writeAdmission(b *strings.Builder, label string, a domain.Admission) {
	fmt.Fprintf(b, "%s %s: %s, LOS %d, discharged %s. DRG %s billed $%.2f.\n",
		label, a.ID, a.AdmissionType, a.LengthOfStay, a.DischargeStatus, a.AssignedDRG.Code, a.AssignedDRG.BilledAmount)
	fmt.Fprintf(b, "Principal diagnosis: %s %s\n", a.PrincipalDiagnosis.Code, a.PrincipalDiagnosis.Description)
	if a.PrincipalProcedure != nil {
		fmt.Fprintf(b, "Principal procedure: %s %s\n", a.PrincipalProcedure.Code, a.PrincipalProcedure.Description)
	}
	fmt.Fprintf(b, "Clinical notes:\n%s\n", a.ClinicalNotes)
}
