// Package fleet owns the per-truck estimation state: one estimator and
// one daily history per truck, held in a registry keyed by truck ID.
// Nothing here is a process-wide singleton; callers construct a
// Tracker and pass it around explicitly.
package fleet

import (
	"sync"
	"time"

	"fuelwatch/internal/detector"
	"fuelwatch/internal/estimator"
	"fuelwatch/internal/model"
)

// Config bundles the calibration for every component. A nil Estimator
// runs the filters on built-in defaults, flagged uncalibrated.
type Config struct {
	Estimator *estimator.Config
	Refuel    detector.RefuelConfig
	Siphon    detector.SiphonConfig

	// DefaultTankCapacityGal is used for trucks with no registered
	// metadata.
	DefaultTankCapacityGal float64
}

// DefaultConfig returns fleet-wide defaults with an uncalibrated
// estimator.
func DefaultConfig() Config {
	return Config{
		Refuel:                 detector.DefaultRefuelConfig(),
		Siphon:                 detector.DefaultSiphonConfig(),
		DefaultTankCapacityGal: 120,
	}
}

// CycleResult is what one telemetry cycle produces: the updated
// estimate, the rejection reason when the reading was unusable, and an
// optional refuel event.
type CycleResult struct {
	TruckID   string                 `json:"truck_id"`
	Timestamp time.Time              `json:"timestamp"`
	Estimate  estimator.Estimate     `json:"estimate"`
	Rejected  estimator.RejectReason `json:"rejected,omitempty"`
	Refuel    *detector.RefuelEvent  `json:"refuel,omitempty"`
}

type truckState struct {
	est             *estimator.FuelEstimator
	tankCapacityGal float64

	lastSensorPct *float64
	lastSensorAt  time.Time
	lastStatus    model.TruckStatus

	daily []model.DailyReading
}

// Tracker routes telemetry cycles to each truck's estimator and keeps
// the daily history the siphon detector scans. The mutex only guards
// the registry map and each truck's entry against concurrent callers;
// per-truck state is never shared between trucks.
type Tracker struct {
	mu     sync.Mutex
	cfg    Config
	siphon *detector.SiphonDetector
	trucks map[string]*truckState
	meta   map[string]model.Truck
}

func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		cfg:    cfg,
		siphon: detector.NewSiphonDetector(cfg.Siphon),
		trucks: make(map[string]*truckState),
		meta:   make(map[string]model.Truck),
	}
}

// RegisterTruck records tank capacity and metadata for a truck. Safe
// to call before or after its first cycle.
func (t *Tracker) RegisterTruck(truck model.Truck) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.meta[truck.ID] = truck
	if st, ok := t.trucks[truck.ID]; ok && truck.TankCapacityGal > 0 {
		st.tankCapacityGal = truck.TankCapacityGal
	}
}

// ProcessCycle runs one predict/detect/update pass for the cycle's
// truck. The refuel detector sees the pre-update estimate — "what we
// expected if no refuel happened" — and never mutates filter state.
func (t *Tracker) ProcessCycle(c model.Cycle) CycleResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state(c.TruckID, c.SensorFuelPct)

	load := 0.0
	if c.EngineLoadPct != nil {
		load = *c.EngineLoadPct
	}
	altChange := 0.0
	if c.AltitudeChangeFt != nil {
		altChange = *c.AltitudeChangeFt
	}

	st.est.Predict(c.ElapsedSeconds, load, altChange, c.IsMoving)
	predicted := st.est.Estimate().FuelPct

	var refuel *detector.RefuelEvent
	if c.SensorFuelPct != nil && st.lastSensorPct != nil {
		gapHours := c.Timestamp.Sub(st.lastSensorAt).Hours()
		refuel = detector.DetectRefuel(c.TruckID, *c.SensorFuelPct, predicted,
			*st.lastSensorPct, gapHours, c.Status, st.tankCapacityGal, t.cfg.Refuel)
	}

	est, rejected := st.est.Update(c.SensorFuelPct, c.AmbientTempF)

	if c.SensorFuelPct != nil {
		v := *c.SensorFuelPct
		st.lastSensorPct = &v
		st.lastSensorAt = c.Timestamp
	}

	if c.SensorFuelPct != nil && c.OdometerMiles != nil {
		idleHours := 0.0
		if st.lastStatus == model.StatusIdling {
			idleHours = c.ElapsedSeconds / 3600.0
		}
		st.daily = append(st.daily, model.DailyReading{
			Timestamp:     c.Timestamp,
			FuelPct:       *c.SensorFuelPct,
			OdometerMiles: *c.OdometerMiles,
			IdleHours:     idleHours,
		})
	}
	st.lastStatus = c.Status

	return CycleResult{
		TruckID:   c.TruckID,
		Timestamp: c.Timestamp,
		Estimate:  est,
		Rejected:  rejected,
		Refuel:    refuel,
	}
}

// Estimate returns the current estimate for a truck without advancing it.
func (t *Tracker) Estimate(truckID string) (estimator.Estimate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.trucks[truckID]
	if !ok {
		return estimator.Estimate{}, false
	}
	return st.est.Estimate(), true
}

// ScanSiphon runs the slow-siphon detector over one truck's
// accumulated daily history. Nil when nothing qualifies.
func (t *Tracker) ScanSiphon(truckID string) *detector.SiphonAlert {
	t.mu.Lock()
	st, ok := t.trucks[truckID]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	readings := make([]model.DailyReading, len(st.daily))
	copy(readings, st.daily)
	capacity := st.tankCapacityGal
	t.mu.Unlock()

	return t.siphon.Analyze(truckID, readings, capacity)
}

// ScanAllSiphon scans every tracked truck and returns the alerts.
func (t *Tracker) ScanAllSiphon() []*detector.SiphonAlert {
	t.mu.Lock()
	ids := make([]string, 0, len(t.trucks))
	for id := range t.trucks {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	var alerts []*detector.SiphonAlert
	for _, id := range ids {
		if a := t.ScanSiphon(id); a != nil {
			alerts = append(alerts, a)
		}
	}
	return alerts
}

// Reset discards every truck's filter state and daily history while
// keeping registered metadata, so a replay can restart from any point.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trucks = make(map[string]*truckState)
}

// TruckIDs returns every truck the tracker has seen a cycle for.
func (t *Tracker) TruckIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.trucks))
	for id := range t.trucks {
		ids = append(ids, id)
	}
	return ids
}

// state fetches or creates the per-truck entry. Must be called with
// mu held. A first cycle with a usable reading seeds the filter at
// that level; otherwise it starts at half a tank with wide uncertainty.
func (t *Tracker) state(truckID string, sensorPct *float64) *truckState {
	if st, ok := t.trucks[truckID]; ok {
		return st
	}

	initial := 50.0
	if sensorPct != nil {
		initial = *sensorPct
	}

	capacity := t.cfg.DefaultTankCapacityGal
	if m, ok := t.meta[truckID]; ok && m.TankCapacityGal > 0 {
		capacity = m.TankCapacityGal
	}

	st := &truckState{
		est:             estimator.New(initial, t.cfg.Estimator),
		tankCapacityGal: capacity,
	}
	t.trucks[truckID] = st
	return st
}
