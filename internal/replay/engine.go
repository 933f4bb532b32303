// Package replay drives stored telemetry through a fleet tracker at
// configurable speed, emitting results through a callback.
package replay

import (
	"sort"
	"sync"
	"time"

	"fuelwatch/internal/detector"
	"fuelwatch/internal/fleet"
	"fuelwatch/internal/ingest"
	"fuelwatch/internal/model"
	"fuelwatch/internal/store"
)

// State represents the current replay position.
type State struct {
	Time    time.Time `json:"time"`
	Speed   float64   `json:"speed"`
	Running bool      `json:"running"`
}

// Callback receives replay events.
type Callback interface {
	OnState(state State)
	OnCycle(result fleet.CycleResult)
	OnSiphonAlert(alert *detector.SiphonAlert)
}

// Engine replays historical telemetry at a speed multiple of real
// time. Cycles are precomputed per truck at Init and merged into one
// time-ordered stream.
type Engine struct {
	mu       sync.Mutex
	store    *store.Store
	tracker  *fleet.Tracker
	callback Callback

	running   bool
	speed     float64
	simTime   time.Time
	timeRange model.TimeRange

	cycles  []model.Cycle // merged, time-ordered
	nextIdx int
	scanDay time.Time // last day boundary a siphon scan ran for

	stopCh chan struct{}
}

func New(s *store.Store, tracker *fleet.Tracker, cb Callback) *Engine {
	return &Engine{
		store:    s,
		tracker:  tracker,
		callback: cb,
		speed:    3600,
	}
}

// Init precomputes the cycle stream from the store's contents.
// Returns false when the store holds no telemetry.
func (e *Engine) Init() bool {
	tr, ok := e.store.GlobalTimeRange()
	if !ok {
		return false
	}

	var merged []model.Cycle
	for _, id := range e.store.TruckIDs() {
		merged = append(merged, ingest.ToCycles(e.store.Rows(id))...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	e.timeRange = tr
	e.simTime = tr.Start
	e.cycles = merged
	e.nextIdx = 0
	e.scanDay = startOfDay(tr.Start)
	return true
}

// State returns the current replay state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{Time: e.simTime, Speed: e.speed, Running: e.running}
}

// TimeRange returns the replayed data's time range.
func (e *Engine) TimeRange() model.TimeRange {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeRange
}

// Start begins the replay loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.mu.Unlock()

	e.broadcastState()
	go e.loop()
}

// Pause stops the replay loop.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()

	e.broadcastState()
}

// SetSpeed sets the replay speed multiplier.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0.1 {
		speed = 0.1
	}
	if speed > 604800 {
		speed = 604800
	}

	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()

	e.broadcastState()
}

// Seek jumps the replay to a specific time. Filter state does not
// rewind, so every truck's estimator restarts fresh from the seek
// point the same way it starts fresh at Init.
func (e *Engine) Seek(t time.Time) {
	e.mu.Lock()
	if t.Before(e.timeRange.Start) {
		t = e.timeRange.Start
	}
	if t.After(e.timeRange.End) {
		t = e.timeRange.End
	}

	e.simTime = t
	e.nextIdx = sort.Search(len(e.cycles), func(i int) bool {
		return !e.cycles[i].Timestamp.Before(t)
	})
	e.scanDay = startOfDay(t)
	e.mu.Unlock()

	e.tracker.Reset()
	e.broadcastState()
}

// Step advances the replay by the given duration and processes every
// cycle inside it. Useful for deterministic testing; does not require
// Start().
func (e *Engine) Step(delta time.Duration) {
	e.mu.Lock()
	e.simTime = e.simTime.Add(delta)

	ended := false
	if !e.simTime.Before(e.timeRange.End) {
		e.simTime = e.timeRange.End
		ended = true
	}
	current := e.simTime
	e.mu.Unlock()

	e.processUntil(current, ended)
	e.broadcastState()

	if ended {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		e.broadcastState()
	}
}

const tickInterval = 100 * time.Millisecond

func (e *Engine) loop() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if e.tick() {
				return
			}
		}
	}
}

// tick advances one frame. Returns true when the replay reached the end.
func (e *Engine) tick() bool {
	e.mu.Lock()
	simDelta := time.Duration(float64(tickInterval) * e.speed)
	e.simTime = e.simTime.Add(simDelta)

	ended := false
	if !e.simTime.Before(e.timeRange.End) {
		e.simTime = e.timeRange.End
		ended = true
	}
	current := e.simTime
	e.mu.Unlock()

	e.processUntil(current, ended)
	e.broadcastState()

	if ended {
		e.mu.Lock()
		e.running = false
		close(e.stopCh)
		e.mu.Unlock()
		e.broadcastState()
		return true
	}
	return false
}

// processUntil feeds every cycle up to the current sim time through
// the tracker and runs the daily siphon scan at day boundaries.
func (e *Engine) processUntil(current time.Time, includeEnd bool) {
	for {
		e.mu.Lock()
		if e.nextIdx >= len(e.cycles) {
			e.mu.Unlock()
			break
		}
		c := e.cycles[e.nextIdx]
		due := c.Timestamp.Before(current) || (includeEnd && !c.Timestamp.After(current))
		if !due {
			e.mu.Unlock()
			break
		}
		e.nextIdx++
		e.mu.Unlock()

		result := e.tracker.ProcessCycle(c)
		e.callback.OnCycle(result)
		e.maybeScan(c.Timestamp)
	}
}

// maybeScan runs a fleet-wide siphon scan once per replayed calendar day.
func (e *Engine) maybeScan(at time.Time) {
	day := startOfDay(at)

	e.mu.Lock()
	if !day.After(e.scanDay) {
		e.mu.Unlock()
		return
	}
	e.scanDay = day
	e.mu.Unlock()

	for _, alert := range e.tracker.ScanAllSiphon() {
		e.callback.OnSiphonAlert(alert)
	}
}

func (e *Engine) broadcastState() {
	e.callback.OnState(e.State())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
