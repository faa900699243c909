package readmission

import (
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
)

type findings = []domain.Finding[domain.ReadmissionCategory]

// Windows used by the relatedness gradient and the scores.
const (
	likelyWindow   = 14
	possiblyWindow = 7
	hrrpWindow     = 30
)

func relatednessCategory(c domain.ReadmissionCategory) bool {
	switch c {
	case domain.ReadmissionClinicalRelatedness, domain.ReadmissionComplication, domain.ReadmissionDiseaseProgression:
		return true
	}
	return false
}

func plannedClean(p domain.ReadmissionPair, fs findings) bool {
	return p.IsPlannedReadmission && !review.HasCategory(fs, domain.ReadmissionComplication)
}

// Relatedness grades how closely the readmission follows from the index stay.
func Relatedness(p domain.ReadmissionPair, fs findings) domain.Relatedness {
	sameCategory := p.IndexAdmission.PrincipalDiagnosis.Code != "" &&
		p.IndexAdmission.PrincipalDiagnosis.Category() == p.Readmission.PrincipalDiagnosis.Category()

	var critical, high, related bool
	for _, f := range fs {
		if !relatednessCategory(f.Category) {
			continue
		}
		related = true
		if f.Severity.AtLeast(domain.SeverityHigh) {
			high = true
		}
		if f.Category == domain.ReadmissionClinicalRelatedness && f.Severity == domain.SeverityCritical {
			critical = true
		}
	}

	switch {
	case plannedClean(p, fs):
		return domain.RelatednessNone
	case critical, sameCategory && p.DaysBetween <= rapidWindow:
		return domain.RelatednessDefinitely
	case high, sameCategory && p.DaysBetween <= likelyWindow:
		return domain.RelatednessLikely
	case related, p.DaysBetween <= possiblyWindow:
		return domain.RelatednessPossibly
	default:
		return domain.RelatednessNone
	}
}

// Status applies the determination guards in order:
//
//  1. planned with no complication finding: Planned
//  2. any bundling finding, or a Critical timing finding: Bundle Candidate
//  3. any discharge-adequacy or quality finding: Potentially Preventable
//  4. Definitely or Likely related: Clinically Related
//  5. no findings, or not related: Not Related
//  6. otherwise Clinically Related
func Status(p domain.ReadmissionPair, rel domain.Relatedness, fs findings) domain.ReadmissionStatus {
	switch {
	case plannedClean(p, fs):
		return domain.ReadmissionPlanned
	case review.HasCategory(fs, domain.ReadmissionDRGBundling), criticalTiming(fs):
		return domain.ReadmissionBundleCandidate
	case review.HasCategory(fs, domain.ReadmissionDischargeAdequacy, domain.ReadmissionQualityConcern):
		return domain.ReadmissionPotentiallyPreventable
	case rel == domain.RelatednessDefinitely, rel == domain.RelatednessLikely:
		return domain.ReadmissionClinicallyRelated
	case len(fs) == 0, rel == domain.RelatednessNone:
		return domain.ReadmissionNotRelated
	default:
		return domain.ReadmissionClinicallyRelated
	}
}

func criticalTiming(fs findings) bool {
	for _, f := range fs {
		if f.Category == domain.ReadmissionTimingPattern && f.Severity == domain.SeverityCritical {
			return true
		}
	}
	return false
}

// Preventability scores how avoidable the readmission was.
func Preventability(p domain.ReadmissionPair, fs findings) float64 {
	score := 20.0
	for _, f := range fs {
		switch f.Category {
		case domain.ReadmissionDischargeAdequacy:
			if f.RuleID == RulePrematureDischarge {
				score += 25
			} else {
				score += 15
			}
		case domain.ReadmissionQualityConcern:
			score += 15
		}
	}
	if review.HasCategory(fs, domain.ReadmissionComplication) {
		score += 20
	}
	if p.DaysBetween <= possiblyWindow {
		score += 10
	}
	if review.HasCategory(fs, domain.ReadmissionDiseaseProgression) {
		score -= 10
	}
	if p.IsPlannedReadmission {
		score -= 20
	}
	return review.Clamp(score)
}

// HRRPRisk estimates exposure under the readmissions reduction program.
func HRRPRisk(p domain.ReadmissionPair, rel domain.Relatedness) float64 {
	switch {
	case p.IsPlannedReadmission:
		return 0
	case p.HRRPCondition == "":
		return 5
	}
	score := 40.0
	if p.DaysBetween <= hrrpWindow {
		score += 20
	}
	switch rel {
	case domain.RelatednessDefinitely:
		score += 20
	case domain.RelatednessLikely:
		score += 10
	}
	if p.SameFacility {
		score += 10
	}
	return review.Clamp(score)
}

// BundleSavings is the recoverable readmission payment for status.
func BundleSavings(readmitBilled float64, status domain.ReadmissionStatus) float64 {
	switch status {
	case domain.ReadmissionBundleCandidate:
		return readmitBilled
	case domain.ReadmissionPotentiallyPreventable:
		return readmitBilled / 2
	default:
		return 0
	}
}
