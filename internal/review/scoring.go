package review

import (
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/stats"
)

// Clamp bounds a score to [0, 100].
func Clamp(v float64) float64 {
	return stats.Clamp(v, 0, 100)
}

// Round rounds to the nearest whole unit, halves away from zero.
func Round(v float64) float64 {
	return math.Round(v)
}

// Confidence is a linear confidence model: a ceiling for a clean entity,
// reduced per finding down to a floor.
type Confidence struct {
	Baseline  float64
	Decrement float64
	Floor     float64
}

// Score returns the confidence for n findings.
func (c Confidence) Score(n int) float64 {
	return Clamp(math.Max(c.Floor, c.Baseline-c.Decrement*float64(n)))
}

// FindingsScore sums severity points over findings, clamped to [0, 100].
// A nil points table uses the defaults.
func FindingsScore[C ~string](findings []domain.Finding[C], points domain.SeverityPoints) float64 {
	if points == nil {
		points = domain.DefaultSeverityPoints()
	}
	sum := 0.0
	for _, f := range findings {
		sum += points[f.Severity]
	}
	return Clamp(sum)
}

// Worst returns the most serious severity among findings, or "" for none.
func Worst[C ~string](findings []domain.Finding[C]) domain.Severity {
	var worst domain.Severity
	for _, f := range findings {
		if f.Severity.Rank() > worst.Rank() {
			worst = f.Severity
		}
	}
	return worst
}

// HasCategory reports whether any finding is in one of cats.
func HasCategory[C ~string](findings []domain.Finding[C], cats ...C) bool {
	return CountCategory(findings, cats...) > 0
}

// CountCategory counts findings in any of cats.
func CountCategory[C ~string](findings []domain.Finding[C], cats ...C) int {
	n := 0
	for _, f := range findings {
		for _, c := range cats {
			if f.Category == c {
				n++
				break
			}
		}
	}
	return n
}

// HasSeverity reports whether any finding is at least min.
func HasSeverity[C ~string](findings []domain.Finding[C], min domain.Severity) bool {
	for _, f := range findings {
		if f.Severity.AtLeast(min) {
			return true
		}
	}
	return false
}

// HasRule reports whether a finding from rule id is present.
func HasRule[C ~string](findings []domain.Finding[C], id string) bool {
	for _, f := range findings {
		if f.RuleID == id {
			return true
		}
	}
	return false
}

// Top returns the first most-severe finding. ok is false for no findings.
func Top[C ~string](findings []domain.Finding[C]) (top domain.Finding[C], ok bool) {
	for _, f := range findings {
		if !ok || f.Severity.Rank() > top.Severity.Rank() {
			top, ok = f, true
		}
	}
	return top, ok
}

// TotalImpact sums the reported financial impacts.
func TotalImpact[C ~string](findings []domain.Finding[C]) float64 {
	sum := 0.0
	for _, f := range findings {
		sum += f.Impact()
	}
	return sum
}
