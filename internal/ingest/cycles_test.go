package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelwatch/internal/model"
)

func f64(v float64) *float64 { return &v }

var c0 = time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

func TestToCycles_ComputesDeltas(t *testing.T) {
	rows := []model.Row{
		{TruckID: "T-1", Timestamp: c0, FuelPct: f64(70), SpeedMPH: f64(55), AltitudeFt: f64(800)},
		{TruckID: "T-1", Timestamp: c0.Add(5 * time.Minute), FuelPct: f64(69.8), SpeedMPH: f64(50), AltitudeFt: f64(950)},
	}

	cycles := ToCycles(rows)
	require.Len(t, cycles, 2)

	assert.Zero(t, cycles[0].ElapsedSeconds)
	assert.Nil(t, cycles[0].AltitudeChangeFt)

	assert.InDelta(t, 300, cycles[1].ElapsedSeconds, 1e-9)
	require.NotNil(t, cycles[1].AltitudeChangeFt)
	assert.InDelta(t, 150, *cycles[1].AltitudeChangeFt, 1e-9)
	assert.True(t, cycles[1].IsMoving)
	assert.Equal(t, model.StatusMoving, cycles[1].Status)
}

func TestToCycles_SortsOutOfOrderRows(t *testing.T) {
	rows := []model.Row{
		{TruckID: "T-1", Timestamp: c0.Add(10 * time.Minute), FuelPct: f64(69)},
		{TruckID: "T-1", Timestamp: c0, FuelPct: f64(70)},
	}

	cycles := ToCycles(rows)
	require.Len(t, cycles, 2)
	assert.Equal(t, c0, cycles[0].Timestamp)
	assert.InDelta(t, 600, cycles[1].ElapsedSeconds, 1e-9)
}

func TestToCycles_StatusFromSpeedAndLoad(t *testing.T) {
	rows := []model.Row{
		{TruckID: "T-1", Timestamp: c0, SpeedMPH: f64(0), EngineLoadPct: f64(12)},
		{TruckID: "T-1", Timestamp: c0.Add(time.Minute), SpeedMPH: f64(0), EngineLoadPct: f64(0)},
		{TruckID: "T-1", Timestamp: c0.Add(2 * time.Minute), SpeedMPH: f64(35)},
	}

	cycles := ToCycles(rows)
	require.Len(t, cycles, 3)
	assert.Equal(t, model.StatusIdling, cycles[0].Status)
	assert.Equal(t, model.StatusStopped, cycles[1].Status)
	assert.Equal(t, model.StatusMoving, cycles[2].Status)
}

func TestToDailyReadings_AccruesIdleHours(t *testing.T) {
	rows := []model.Row{
		{TruckID: "T-1", Timestamp: c0, FuelPct: f64(70), OdometerMiles: f64(100), SpeedMPH: f64(0), EngineLoadPct: f64(10)},
		// 30 minutes later, still parked with engine on: half an idle hour.
		{TruckID: "T-1", Timestamp: c0.Add(30 * time.Minute), FuelPct: f64(69.9), OdometerMiles: f64(100), SpeedMPH: f64(0), EngineLoadPct: f64(10)},
	}

	readings := ToDailyReadings(rows)
	require.Len(t, readings, 2)
	assert.Zero(t, readings[0].IdleHours)
	assert.InDelta(t, 0.5, readings[1].IdleHours, 1e-9)
}

func TestToDailyReadings_SkipsRowsMissingFuelOrOdometer(t *testing.T) {
	rows := []model.Row{
		{TruckID: "T-1", Timestamp: c0, FuelPct: f64(70), OdometerMiles: f64(100)},
		{TruckID: "T-1", Timestamp: c0.Add(time.Minute), FuelPct: nil, OdometerMiles: f64(101)},
		{TruckID: "T-1", Timestamp: c0.Add(2 * time.Minute), FuelPct: f64(69), OdometerMiles: f64(102)},
	}

	readings := ToDailyReadings(rows)
	require.Len(t, readings, 2)
	assert.InDelta(t, 70, readings[0].FuelPct, 1e-9)
	assert.InDelta(t, 69, readings[1].FuelPct, 1e-9)
}
