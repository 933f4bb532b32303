// Package detector flags discrete fuel events — refuels and slow
// siphoning — from the same noisy telemetry the estimator consumes.
package detector

import "fuelwatch/internal/model"

// RefuelMethod tags which comparison caught the jump.
type RefuelMethod string

const (
	// MethodSensor: only the raw sensor-vs-previous-sensor delta jumped.
	MethodSensor RefuelMethod = "sensor"
	// MethodKalman: only the sensor-vs-estimate delta jumped, meaning
	// the filter had not caught up to a fill the sensor already saw.
	MethodKalman RefuelMethod = "kalman"
	// MethodBoth: both comparisons agree a refuel happened.
	MethodBoth RefuelMethod = "both"
)

// RefuelConfig holds the jump thresholds. Both must pass: the percent
// floor guards big tanks where a few gallons is a negligible
// percentage, the gallon floor guards small tanks where a small
// percentage is still a real fill.
type RefuelConfig struct {
	MinJumpPct float64
	MinGallons float64
}

// DefaultRefuelConfig matches the fleet-wide tuning.
func DefaultRefuelConfig() RefuelConfig {
	return RefuelConfig{MinJumpPct: 10.0, MinGallons: 5.0}
}

// RefuelEvent records one detected fill. Immutable once built.
type RefuelEvent struct {
	TruckID      string  `json:"truck_id"`
	PreviousPct  float64 `json:"previous_pct"`
	NewPct       float64 `json:"new_pct"`
	IncreasePct  float64 `json:"increase_pct"`
	GallonsAdded float64 `json:"gallons_added"`

	Method       RefuelMethod `json:"method"`
	TimeGapHours float64      `json:"time_gap_hours"`

	// Status at the moment of the jump. MOVING marks questionable data
	// quality (tanks rarely fill at speed) but never suppresses the
	// event itself.
	Status         model.TruckStatus `json:"status"`
	QualitySuspect bool              `json:"quality_suspect"`
}

// DetectRefuel compares the current sensor reading against both the
// estimator's prediction and the previous sensor reading. The Kalman
// comparison is the primary signal: the estimate is "what we expected
// if no refuel happened", so a sensor far above it is a fill the
// filter has not absorbed yet. Returns nil when no event fired.
func DetectRefuel(truckID string, sensorPct, estimatedPct, lastSensorPct, timeGapHours float64,
	status model.TruckStatus, tankCapacityGal float64, cfg RefuelConfig) *RefuelEvent {

	kalmanJump := sensorPct - estimatedPct
	sensorJump := sensorPct - lastSensorPct

	kalmanHit := passesThresholds(kalmanJump, tankCapacityGal, cfg)
	sensorHit := passesThresholds(sensorJump, tankCapacityGal, cfg)

	if !kalmanHit && !sensorHit {
		return nil
	}

	method := MethodBoth
	increase := kalmanJump
	previous := lastSensorPct
	switch {
	case kalmanHit && !sensorHit:
		method = MethodKalman
		previous = estimatedPct
	case sensorHit && !kalmanHit:
		method = MethodSensor
		increase = sensorJump
	}

	return &RefuelEvent{
		TruckID:        truckID,
		PreviousPct:    previous,
		NewPct:         sensorPct,
		IncreasePct:    increase,
		GallonsAdded:   increase / 100.0 * tankCapacityGal,
		Method:         method,
		TimeGapHours:   timeGapHours,
		Status:         status,
		QualitySuspect: status == model.StatusMoving,
	}
}

func passesThresholds(jumpPct, tankCapacityGal float64, cfg RefuelConfig) bool {
	if jumpPct <= cfg.MinJumpPct {
		return false
	}
	gallons := jumpPct / 100.0 * tankCapacityGal
	return gallons > cfg.MinGallons
}
