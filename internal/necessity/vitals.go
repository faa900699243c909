package necessity

import (
	"strconv"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/review"
)

// band is an inclusive numeric range.
type band struct{ lo, hi float64 }

func (b band) contains(v float64) bool { return v >= b.lo && v <= b.hi }

// Stable vital-sign bands.
var (
	systolicBand    = band{100, 160}
	diastolicBand   = band{60, 95}
	heartRateBand   = band{60, 100}
	temperatureBand = band{97.5, 99.5}
	respRateBand    = band{12, 20}
	minSpO2         = 95.0
)

// ParseBloodPressure splits a "systolic/diastolic" reading.
func ParseBloodPressure(s string) (systolic, diastolic float64, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, 0, review.Unparseable("vitals.bloodPressure", s)
	}
	systolic, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	diastolic, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, review.Unparseable("vitals.bloodPressure", s)
	}
	return systolic, diastolic, nil
}

// VitalsStable reports whether every vital sign sits inside its stable band.
// An unparseable blood pressure is returned as an error.
func VitalsStable(v domain.Vitals) (bool, error) {
	sys, dia, err := ParseBloodPressure(v.BloodPressure)
	if err != nil {
		return false, err
	}
	return systolicBand.contains(sys) &&
		diastolicBand.contains(dia) &&
		heartRateBand.contains(v.HeartRate) &&
		temperatureBand.contains(v.Temperature) &&
		respRateBand.contains(v.RespiratoryRate) &&
		v.OxygenSaturation >= minSpO2, nil
}
