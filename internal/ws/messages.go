package ws

import (
	"encoding/json"
	"time"

	"fuelwatch/internal/detector"
	"fuelwatch/internal/fleet"
	"fuelwatch/internal/replay"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants
const (
	// Client -> Server
	TypeReplayStart    = "replay:start"
	TypeReplayPause    = "replay:pause"
	TypeReplaySetSpeed = "replay:set_speed"
	TypeReplaySeek     = "replay:seek"

	// Server -> Client
	TypeReplayState    = "replay:state"
	TypeEstimateUpdate = "estimate:update"
	TypeRefuelEvent    = "refuel:event"
	TypeSiphonAlert    = "siphon:alert"
	TypeFleetLoaded    = "fleet:loaded"
)

// Client -> Server payloads

type SetSpeedPayload struct {
	Speed float64 `json:"speed"`
}

type SeekPayload struct {
	Timestamp string `json:"timestamp"` // RFC3339
}

// Server -> Client payloads

type ReplayStatePayload struct {
	Time    string  `json:"time"`
	Speed   float64 `json:"speed"`
	Running bool    `json:"running"`
}

// EstimatePayload carries one truck's updated fuel estimate.
type EstimatePayload struct {
	TruckID   string `json:"truck_id"`
	Timestamp string `json:"timestamp"`

	FuelPct                  float64 `json:"fuel_pct"`
	ConsumptionRatePctPerMin float64 `json:"consumption_rate_pct_per_min"`
	Uncertainty              float64 `json:"uncertainty"`
	ConfidencePct            float64 `json:"confidence_pct"`
	BiasDetected             bool    `json:"bias_detected"`
	BiasMagnitudePct         float64 `json:"bias_magnitude_pct"`
	Calibrated               bool    `json:"calibrated"`

	Rejected string `json:"rejected,omitempty"`
}

type TruckInfo struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	TankCapacityGal float64 `json:"tank_capacity_gal"`
}

type TimeRangeInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type FleetLoadedPayload struct {
	Trucks    []TruckInfo   `json:"trucks"`
	TimeRange TimeRangeInfo `json:"time_range"`
}

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func ReplayStateFromEngine(s replay.State) ReplayStatePayload {
	return ReplayStatePayload{
		Time:    s.Time.Format(time.RFC3339),
		Speed:   s.Speed,
		Running: s.Running,
	}
}

func EstimateFromCycle(r fleet.CycleResult) EstimatePayload {
	return EstimatePayload{
		TruckID:                  r.TruckID,
		Timestamp:                r.Timestamp.Format(time.RFC3339),
		FuelPct:                  r.Estimate.FuelPct,
		ConsumptionRatePctPerMin: r.Estimate.ConsumptionRatePctPerMin,
		Uncertainty:              r.Estimate.Uncertainty,
		ConfidencePct:            r.Estimate.ConfidencePct,
		BiasDetected:             r.Estimate.BiasDetected,
		BiasMagnitudePct:         r.Estimate.BiasMagnitudePct,
		Calibrated:               r.Estimate.Calibrated,
		Rejected:                 string(r.Rejected),
	}
}

// Refuel events and siphon alerts marshal as-is; aliases keep callers
// from importing detector just to name the payload types.
type (
	RefuelPayload = detector.RefuelEvent
	SiphonPayload = detector.SiphonAlert
)
