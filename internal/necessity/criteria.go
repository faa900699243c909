package necessity

import (
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
)

type findings = []domain.Finding[domain.NecessityCategory]

// Assess derives the four-dimension criteria assessment from the claim and
// its findings.
func Assess(c domain.MedNecessityClaim, fs findings) domain.CriteriaAssessment {
	si := severityOfIllness(c, fs)
	is := intensityOfService(c, fs)

	var ac domain.CriterionResult
	switch {
	case review.HasCategory(fs, domain.NecessityAdmissionCriteria):
		ac = domain.CriterionNotMet
	case si == domain.CriterionNotMet && is == domain.CriterionNotMet:
		ac = domain.CriterionNotMet
	case si == domain.CriterionMet && is == domain.CriterionMet:
		ac = domain.CriterionMet
	default:
		ac = domain.CriterionPartiallyMet
	}

	var cs domain.CriterionResult
	switch {
	case review.HasCategory(fs, domain.NecessityContinuedStay):
		cs = domain.CriterionNotJustified
	case si == domain.CriterionMet || is == domain.CriterionMet:
		cs = domain.CriterionJustified
	default:
		cs = domain.CriterionIndeterminate
	}

	return domain.CriteriaAssessment{
		SeverityOfIllness:  si,
		IntensityOfService: is,
		AdmissionCriteria:  ac,
		ContinuedStay:      cs,
	}
}

// dimension is Not Met for a High or Critical finding in cat, Partially
// Met for any other finding in cat, and Met otherwise.
func dimension(fs findings, cat domain.NecessityCategory) domain.CriterionResult {
	result := domain.CriterionMet
	for _, f := range fs {
		if f.Category != cat {
			continue
		}
		if f.Severity.AtLeast(domain.SeverityHigh) {
			return domain.CriterionNotMet
		}
		result = domain.CriterionPartiallyMet
	}
	return result
}

// severityOfIllness grades the vitals and labs. Findings in the category
// take precedence; a chart whose vitals cannot be read is Partially Met.
func severityOfIllness(c domain.MedNecessityClaim, fs findings) domain.CriterionResult {
	if r := dimension(fs, domain.NecessitySeverityOfIllness); r != domain.CriterionMet {
		return r
	}
	stable, err := VitalsStable(c.Vitals)
	switch {
	case err != nil:
		return domain.CriterionPartiallyMet
	case !stable, c.ICUAdmission, c.AbnormalLabCount() >= 2:
		return domain.CriterionMet
	case c.AbnormalLabCount() == 1:
		return domain.CriterionPartiallyMet
	default:
		return domain.CriterionNotMet
	}
}

// intensityOfService grades the inpatient resource indicators.
func intensityOfService(c domain.MedNecessityClaim, fs findings) domain.CriterionResult {
	if r := dimension(fs, domain.NecessityIntensityOfService); r != domain.CriterionMet {
		return r
	}
	switch n := c.ResourceFlagCount(); {
	case n == 0:
		return domain.CriterionNotMet
	case n == 1 && (c.TelemetryRequired || c.OxygenRequired):
		return domain.CriterionPartiallyMet
	default:
		return domain.CriterionMet
	}
}

// Ungraded counts the primary dimensions the claim's data could not grade.
func Ungraded(c domain.MedNecessityClaim) int {
	if _, err := VitalsStable(c.Vitals); err != nil {
		return 1
	}
	return 0
}

// Status applies the determination guards in order:
//
//  1. all three primary dimensions Met: Meets Criteria
//  2. severity and intensity Not Met, or admission criteria Not Met, with a
//     Critical finding: Does Not Meet
//  3. any level-of-care finding: Observation
//  4. otherwise Queried, including a chart with no findings that could not
//     be fully graded
func Status(a domain.CriteriaAssessment, fs findings) domain.NecessityStatus {
	critical := review.HasSeverity(fs, domain.SeverityCritical)
	switch {
	case a.SeverityOfIllness == domain.CriterionMet &&
		a.IntensityOfService == domain.CriterionMet &&
		a.AdmissionCriteria == domain.CriterionMet:
		return domain.NecessityMeetsCriteria
	case critical && a.SeverityOfIllness == domain.CriterionNotMet && a.IntensityOfService == domain.CriterionNotMet,
		critical && a.AdmissionCriteria == domain.CriterionNotMet:
		return domain.NecessityDoesNotMeet
	case review.HasCategory(fs, domain.NecessityLevelOfCare):
		return domain.NecessityObservation
	default:
		return domain.NecessityQueried
	}
}

// DenialRisk scores the likelihood the admission is denied on audit.
func DenialRisk(a domain.CriteriaAssessment, status domain.NecessityStatus, n int) float64 {
	risk := 10.0
	risk += dimensionRisk(a.SeverityOfIllness)
	risk += dimensionRisk(a.IntensityOfService)
	if a.AdmissionCriteria == domain.CriterionNotMet {
		risk += 15
	}
	if a.ContinuedStay == domain.CriterionNotJustified {
		risk += 10
	}
	risk += 5 * float64(n)
	if status == domain.NecessityDoesNotMeet {
		risk += 10
	}
	return review.Clamp(risk)
}

func dimensionRisk(r domain.CriterionResult) float64 {
	switch r {
	case domain.CriterionNotMet:
		return 30
	case domain.CriterionPartiallyMet:
		return 15
	default:
		return 0
	}
}

// Recommend picks the level of care for a determination.
func Recommend(c domain.MedNecessityClaim, a domain.CriteriaAssessment, status domain.NecessityStatus, fs findings) domain.LevelOfCare {
	switch status {
	case domain.NecessityDoesNotMeet:
		if len(c.TreatmentsProvided) == 0 {
			return domain.CareHome
		}
		return domain.CareOutpatient
	case domain.NecessityObservation:
		if review.HasRule(fs, RuleCustodialSNF) {
			return domain.CareSkilledNursing
		}
		return domain.CareObservation
	case domain.NecessityQueried:
		if a.IntensityOfService == domain.CriterionNotMet {
			return domain.CareObservation
		}
		return domain.CareInpatient
	default:
		return domain.CareInpatient
	}
}

// DenialAmount estimates the dollars at risk for a determination.
func DenialAmount(billed float64, status domain.NecessityStatus) float64 {
	switch status {
	case domain.NecessityDoesNotMeet:
		return billed
	case domain.NecessityObservation:
		return billed / 2
	default:
		return 0
	}
}
