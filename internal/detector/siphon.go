package detector

import (
	"math"
	"sort"
	"time"

	"fuelwatch/internal/model"
)

// SiphonConfig tunes the slow-siphon detector. AssumedMPG and
// IdleGPHRate are required calibration inputs for the expected
// consumption model, not inline constants.
type SiphonConfig struct {
	// AssumedMPG is the fleet or per-truck fuel economy used to explain
	// driven miles.
	AssumedMPG float64
	// IdleGPHRate is the gallons-per-hour burned while idling.
	IdleGPHRate float64

	// SuspiciousGallonsPerDay is the unexplained daily loss above which
	// a day is flagged.
	SuspiciousGallonsPerDay float64
	// MinRunDays is the minimum contiguous suspicious-day run for an
	// alert. A single clean day breaks the run: genuine slow siphoning
	// is a sustained pattern, so transient normal days reset suspicion.
	MinRunDays int
	// MinTotalGallons is the minimum summed unexplained loss across the
	// run for an alert.
	MinTotalGallons float64
	// WindowDays bounds how many recent days are examined.
	WindowDays int
}

// DefaultSiphonConfig matches the fleet-wide tuning.
func DefaultSiphonConfig() SiphonConfig {
	return SiphonConfig{
		AssumedMPG:              5.7,
		IdleGPHRate:             0.8,
		SuspiciousGallonsPerDay: 3.0,
		MinRunDays:              3,
		MinTotalGallons:         10.0,
		WindowDays:              7,
	}
}

// DailyFuelChange summarizes one truck-day of fuel movement.
type DailyFuelChange struct {
	Date           string  `json:"date"` // 2006-01-02
	StartPct       float64 `json:"start_pct"`
	EndPct         float64 `json:"end_pct"`
	ChangePct      float64 `json:"change_pct"`
	ChangeGal      float64 `json:"change_gal"`
	MilesDriven    float64 `json:"miles_driven"`
	IdleHours      float64 `json:"idle_hours"`
	ExpectedGal    float64 `json:"expected_gal"`
	UnexplainedGal float64 `json:"unexplained_gal"`
	Suspicious     bool    `json:"suspicious"`
}

// SiphonAlert exists only when the detection criteria are met: a run of
// at least MinRunDays suspicious days whose summed unexplained loss
// exceeds MinTotalGallons.
type SiphonAlert struct {
	TruckID          string            `json:"truck_id"`
	PeriodDays       int               `json:"period_days"`
	StartDate        string            `json:"start_date"`
	EndDate          string            `json:"end_date"`
	TotalGallonsLost float64           `json:"total_gallons_lost"`
	Days             []DailyFuelChange `json:"days"`
	ConfidencePct    float64           `json:"confidence_pct"`
	Recommendation   string            `json:"recommendation"`
}

// SiphonDetector aggregates daily fuel changes per truck and escalates
// sustained unexplained loss. It holds no cross-truck shared state
// beyond the config.
type SiphonDetector struct {
	cfg SiphonConfig
}

func NewSiphonDetector(cfg SiphonConfig) *SiphonDetector {
	return &SiphonDetector{cfg: cfg}
}

// Analyze reduces a time-ordered reading sequence to daily fuel
// changes and reports a SiphonAlert, or nil when nothing qualifies.
// Fewer than two readings is insufficient data, not an error.
func (d *SiphonDetector) Analyze(truckID string, readings []model.DailyReading, tankCapacityGal float64) *SiphonAlert {
	if len(readings) < 2 {
		return nil
	}

	days := d.DailyChanges(readings, tankCapacityGal)
	if d.cfg.WindowDays > 0 && len(days) > d.cfg.WindowDays {
		days = days[len(days)-d.cfg.WindowDays:]
	}

	runStart, runLen := longestSuspiciousRun(days)
	if runLen < d.cfg.MinRunDays {
		return nil
	}

	run := days[runStart : runStart+runLen]
	total := 0.0
	for _, day := range run {
		total += day.UnexplainedGal
	}
	if total <= d.cfg.MinTotalGallons {
		return nil
	}

	confidence := siphonConfidence(run)
	return &SiphonAlert{
		TruckID:          truckID,
		PeriodDays:       runLen,
		StartDate:        run[0].Date,
		EndDate:          run[len(run)-1].Date,
		TotalGallonsLost: total,
		Days:             run,
		ConfidencePct:    confidence,
		Recommendation:   recommendation(confidence),
	}
}

// DailyChanges reduces readings to one DailyFuelChange per calendar
// day: first/last fuel level and odometer, summed idle hours.
func (d *SiphonDetector) DailyChanges(readings []model.DailyReading, tankCapacityGal float64) []DailyFuelChange {
	type dayAccum struct {
		first, last model.DailyReading
		idleHours   float64
	}
	dayMap := make(map[string]*dayAccum)

	for _, r := range readings {
		key := DayKey(r.Timestamp)
		acc, ok := dayMap[key]
		if !ok {
			acc = &dayAccum{first: r, last: r}
			dayMap[key] = acc
		}
		if r.Timestamp.Before(acc.first.Timestamp) {
			acc.first = r
		}
		if !r.Timestamp.Before(acc.last.Timestamp) {
			acc.last = r
		}
		acc.idleHours += r.IdleHours
	}

	keys := make([]string, 0, len(dayMap))
	for k := range dayMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]DailyFuelChange, 0, len(keys))
	for _, key := range keys {
		acc := dayMap[key]

		changePct := acc.last.FuelPct - acc.first.FuelPct
		changeGal := changePct / 100.0 * tankCapacityGal
		miles := acc.last.OdometerMiles - acc.first.OdometerMiles
		if miles < 0 {
			miles = 0
		}

		expected := acc.idleHours * d.cfg.IdleGPHRate
		if d.cfg.AssumedMPG > 0 {
			expected += miles / d.cfg.AssumedMPG
		}

		// Observed consumption only counts fuel that went away; a net
		// gain (refuel day) explains itself.
		observed := math.Max(0, -changeGal)
		unexplained := math.Max(0, observed-expected)

		out = append(out, DailyFuelChange{
			Date:           key,
			StartPct:       acc.first.FuelPct,
			EndPct:         acc.last.FuelPct,
			ChangePct:      changePct,
			ChangeGal:      changeGal,
			MilesDriven:    miles,
			IdleHours:      acc.idleHours,
			ExpectedGal:    expected,
			UnexplainedGal: unexplained,
			Suspicious:     unexplained > d.cfg.SuspiciousGallonsPerDay,
		})
	}
	return out
}

// longestSuspiciousRun returns the start index and length of the
// longest contiguous run of suspicious days. Ties go to the later run,
// since fresher suspicion matters more.
func longestSuspiciousRun(days []DailyFuelChange) (start, length int) {
	curStart, curLen := 0, 0
	for i, day := range days {
		if !day.Suspicious {
			curLen = 0
			continue
		}
		if curLen == 0 {
			curStart = i
		}
		curLen++
		if curLen >= length {
			start, length = curStart, curLen
		}
	}
	return start, length
}

// siphonConfidence scores a qualifying run: longer runs earn more, and
// a flat repeated daily loss earns more than one huge day, because
// consistent theft behavior produces consistent daily loss.
func siphonConfidence(run []DailyFuelChange) float64 {
	base := 45.0 + 7.5*float64(len(run)-3)

	mean := 0.0
	for _, d := range run {
		mean += d.UnexplainedGal
	}
	mean /= float64(len(run))

	consistency := 0.0
	if mean > 0 {
		variance := 0.0
		for _, d := range run {
			diff := d.UnexplainedGal - mean
			variance += diff * diff
		}
		stddev := math.Sqrt(variance / float64(len(run)))
		cv := stddev / mean
		consistency = math.Max(0, 1.0-cv) * 25.0
	}

	return math.Min(100, base+consistency)
}

func recommendation(confidence float64) string {
	switch {
	case confidence >= 85:
		return "CRITICAL"
	case confidence >= 70:
		return "HIGH"
	case confidence >= 55:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// DayKey formats a timestamp to the calendar-day key used throughout.
func DayKey(t time.Time) string { return t.Format("2006-01-02") }
