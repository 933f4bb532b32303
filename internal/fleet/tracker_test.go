package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelwatch/internal/detector"
	"fuelwatch/internal/estimator"
	"fuelwatch/internal/model"
)

var t0 = time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func calibrated() Config {
	cfg := DefaultConfig()
	est := estimator.DefaultConfig()
	cfg.Estimator = &est
	return cfg
}

func cycle(truckID string, ts time.Time, elapsed float64, fuel *float64) model.Cycle {
	return model.Cycle{
		TruckID:        truckID,
		Timestamp:      ts,
		ElapsedSeconds: elapsed,
		SensorFuelPct:  fuel,
		IsMoving:       true,
		Status:         model.StatusMoving,
		EngineLoadPct:  f64(40),
	}
}

func TestTracker_FirstCycleSeedsFromSensor(t *testing.T) {
	tr := NewTracker(calibrated())

	res := tr.ProcessCycle(cycle("T-1", t0, 0, f64(72)))
	assert.Equal(t, estimator.RejectNone, res.Rejected)
	assert.InDelta(t, 72, res.Estimate.FuelPct, 1.0)
}

func TestTracker_TrucksAreIndependent(t *testing.T) {
	tr := NewTracker(calibrated())

	tr.ProcessCycle(cycle("T-1", t0, 0, f64(80)))
	tr.ProcessCycle(cycle("T-2", t0, 0, f64(20)))

	e1, ok := tr.Estimate("T-1")
	require.True(t, ok)
	e2, ok := tr.Estimate("T-2")
	require.True(t, ok)

	assert.Greater(t, e1.FuelPct, 60.0)
	assert.Less(t, e2.FuelPct, 40.0)
	assert.ElementsMatch(t, []string{"T-1", "T-2"}, tr.TruckIDs())
}

func TestTracker_MissingReadingReported(t *testing.T) {
	tr := NewTracker(calibrated())
	tr.ProcessCycle(cycle("T-1", t0, 0, f64(72)))

	res := tr.ProcessCycle(cycle("T-1", t0.Add(5*time.Minute), 300, nil))
	assert.Equal(t, estimator.RejectMissing, res.Rejected)
}

func TestTracker_RefuelDetectedAgainstPrediction(t *testing.T) {
	cfg := calibrated()
	cfg.DefaultTankCapacityGal = 100
	tr := NewTracker(cfg)

	tr.ProcessCycle(cycle("T-1", t0, 0, f64(40)))
	// A 35-point jump after a half-hour stop: clear refuel.
	res := tr.ProcessCycle(cycle("T-1", t0.Add(30*time.Minute), 1800, f64(75)))

	require.NotNil(t, res.Refuel)
	assert.Equal(t, detector.MethodBoth, res.Refuel.Method)
	assert.InDelta(t, 0.5, res.Refuel.TimeGapHours, 0.01)
	assert.Greater(t, res.Refuel.GallonsAdded, 20.0)
}

func TestTracker_NoRefuelOnFirstReading(t *testing.T) {
	tr := NewTracker(calibrated())
	res := tr.ProcessCycle(cycle("T-1", t0, 0, f64(95)))
	assert.Nil(t, res.Refuel)
}

func TestTracker_RegisteredTankCapacityUsed(t *testing.T) {
	cfg := calibrated()
	cfg.Refuel = detector.RefuelConfig{MinJumpPct: 10, MinGallons: 40}
	tr := NewTracker(cfg)

	// 300 gal tank: a 15-point jump is 45 gal, above the gallon floor
	// that the 120 gal default would fail.
	tr.RegisterTruck(model.Truck{ID: "T-1", TankCapacityGal: 300})
	tr.ProcessCycle(cycle("T-1", t0, 0, f64(40)))
	res := tr.ProcessCycle(cycle("T-1", t0.Add(10*time.Minute), 600, f64(55)))

	require.NotNil(t, res.Refuel)
	assert.Greater(t, res.Refuel.GallonsAdded, 40.0)
}

func TestTracker_SiphonScanOverAccumulatedDays(t *testing.T) {
	cfg := calibrated()
	cfg.DefaultTankCapacityGal = 100
	cfg.Siphon = detector.SiphonConfig{
		AssumedMPG:              5.0,
		IdleGPHRate:             0.8,
		SuspiciousGallonsPerDay: 3.0,
		MinRunDays:              3,
		MinTotalGallons:         10.0,
		WindowDays:              7,
	}
	tr := NewTracker(cfg)

	// Three days, each losing 25% (25 gal) with no miles driven.
	fuel := 95.0
	for day := 0; day < 3; day++ {
		morning := t0.AddDate(0, 0, day)
		evening := morning.Add(14 * time.Hour)

		c := cycle("T-1", morning, 0, f64(fuel))
		c.OdometerMiles = f64(1000)
		c.IsMoving = false
		c.Status = model.StatusStopped
		tr.ProcessCycle(c)

		fuel -= 25
		c = cycle("T-1", evening, 14*3600, f64(fuel))
		c.OdometerMiles = f64(1000)
		c.IsMoving = false
		c.Status = model.StatusStopped
		tr.ProcessCycle(c)
	}

	alert := tr.ScanSiphon("T-1")
	require.NotNil(t, alert)
	assert.Equal(t, 3, alert.PeriodDays)
	assert.Greater(t, alert.TotalGallonsLost, 70.0)

	alerts := tr.ScanAllSiphon()
	require.Len(t, alerts, 1)
	assert.Equal(t, "T-1", alerts[0].TruckID)
}

func TestTracker_ResetClearsStateKeepsMetadata(t *testing.T) {
	tr := NewTracker(calibrated())
	tr.RegisterTruck(model.Truck{ID: "T-1", TankCapacityGal: 300})
	tr.ProcessCycle(cycle("T-1", t0, 0, f64(40)))

	tr.Reset()
	assert.Empty(t, tr.TruckIDs())
	_, ok := tr.Estimate("T-1")
	assert.False(t, ok)

	// Metadata survives: the next cycle still sees the 300 gal tank.
	cfg := calibrated()
	cfg.Refuel = detector.RefuelConfig{MinJumpPct: 10, MinGallons: 40}
	tr = NewTracker(cfg)
	tr.RegisterTruck(model.Truck{ID: "T-1", TankCapacityGal: 300})
	tr.ProcessCycle(cycle("T-1", t0, 0, f64(40)))
	tr.Reset()
	tr.ProcessCycle(cycle("T-1", t0.Add(time.Hour), 0, f64(40)))
	res := tr.ProcessCycle(cycle("T-1", t0.Add(time.Hour+10*time.Minute), 600, f64(55)))
	require.NotNil(t, res.Refuel)
}

func TestTracker_UncalibratedFlagSurfaces(t *testing.T) {
	tr := NewTracker(DefaultConfig()) // no estimator calibration
	res := tr.ProcessCycle(cycle("T-1", t0, 0, f64(50)))
	assert.False(t, res.Estimate.Calibrated)
}
