package model

import "time"

// TruckStatus describes what the truck was doing when a reading arrived.
type TruckStatus string

const (
	StatusMoving  TruckStatus = "MOVING"
	StatusIdling  TruckStatus = "IDLING"
	StatusStopped TruckStatus = "STOPPED"
)

// Row is one raw telemetry row as exported by the fleet tracking system.
// Optional columns that were blank or "unavailable" are nil.
type Row struct {
	TruckID   string
	Timestamp time.Time

	FuelPct       *float64 // sensor fuel level, percent of tank
	EngineLoadPct *float64 // percent
	SpeedMPH      *float64
	OdometerMiles *float64
	AmbientTempF  *float64
	AltitudeFt    *float64
}

// Cycle is the per-ingestion-cycle measurement record consumed by the
// estimator: one row's worth of telemetry plus deltas computed against
// the previous row for the same truck.
type Cycle struct {
	TruckID   string
	Timestamp time.Time

	// ElapsedSeconds since the previous cycle for this truck.
	ElapsedSeconds float64

	EngineLoadPct    *float64 // percent, nil when not reported
	AltitudeChangeFt *float64 // feet climbed (negative = descent) since previous cycle
	SensorFuelPct    *float64 // percent, nil when the level sender dropped out
	AmbientTempF     *float64

	OdometerMiles *float64
	IsMoving      bool
	Status        TruckStatus
}

// DailyReading is the per-sample input to the slow-siphon detector:
// a fuel level snapshot with odometer and accrued idle time.
type DailyReading struct {
	Timestamp     time.Time
	FuelPct       float64
	OdometerMiles float64
	// IdleHours accrued since the previous reading.
	IdleHours float64
}

// Truck identifies a tracked vehicle and its tank.
type Truck struct {
	ID              string
	Name            string
	TankCapacityGal float64
}

// TimeRange is the inclusive [Start, End] span of telemetry coverage.
type TimeRange struct {
	Start time.Time
	End   time.Time
}
