package necessity

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// BuildPrompt renders the admission for a generative utilization reviewer.
func BuildPrompt(c domain.MedNecessityClaim) string {
	var b strings.Builder
	b.WriteString("You are a utilization review nurse applying inpatient medical-necessity criteria.\n")
	fmt.Fprintf(&b, "Admission %s: %s, LOS %d, discharged %s. DRG %s billed $%.2f.\n",
		c.ID, c.AdmissionType, c.LengthOfStay, c.DischargeStatus, c.AssignedDRG.Code, c.AssignedDRG.BilledAmount)
	fmt.Fprintf(&b, "Principal diagnosis: %s %s\n", c.PrincipalDiagnosis.Code, c.PrincipalDiagnosis.Description)
	v := c.Vitals
	fmt.Fprintf(&b, "Vitals: BP %s, HR %.0f, Temp %.1f, RR %.0f, SpO2 %.0f%%\n",
		v.BloodPressure, v.HeartRate, v.Temperature, v.RespiratoryRate, v.OxygenSaturation)
	for _, l := range c.LabResults {
		mark := ""
		if l.Abnormal {
			mark = " (abnormal)"
		}
		fmt.Fprintf(&b, "Lab: %s %s %s%s\n", l.Name, l.Value, l.Unit, mark)
	}
	if len(c.TreatmentsProvided) > 0 {
		fmt.Fprintf(&b, "Treatments: %s\n", strings.Join(c.TreatmentsProvided, "; "))
	}
	fmt.Fprintf(&b, "Resources: IV=%t ICU=%t surgery=%t telemetry=%t oxygen=%t isolation=%t\n",
		c.IVMedicationsRequired, c.ICUAdmission, c.SurgicalProcedure, c.TelemetryRequired, c.OxygenRequired, c.IsolationRequired)
	fmt.Fprintf(&b, "Clinical notes:\n%s\n", c.ClinicalNotes)
	b.WriteString("Assess severity of illness, intensity of service, admission criteria and continued stay; return a status, level of care and findings.\n")
	return b.String()
}
