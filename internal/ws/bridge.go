package ws

import (
	"log"

	"fuelwatch/internal/detector"
	"fuelwatch/internal/fleet"
	"fuelwatch/internal/replay"
)

// Bridge implements replay.Callback and broadcasts events to the
// WebSocket hub.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

func (b *Bridge) OnState(s replay.State) {
	msg, err := NewEnvelope(TypeReplayState, ReplayStateFromEngine(s))
	if err != nil {
		log.Printf("Error marshaling replay state: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnCycle(r fleet.CycleResult) {
	msg, err := NewEnvelope(TypeEstimateUpdate, EstimateFromCycle(r))
	if err != nil {
		log.Printf("Error marshaling estimate: %v", err)
		return
	}
	b.hub.Broadcast(msg)

	if r.Refuel != nil {
		msg, err := NewEnvelope(TypeRefuelEvent, r.Refuel)
		if err != nil {
			log.Printf("Error marshaling refuel event: %v", err)
			return
		}
		b.hub.Broadcast(msg)
	}
}

func (b *Bridge) OnSiphonAlert(a *detector.SiphonAlert) {
	msg, err := NewEnvelope(TypeSiphonAlert, a)
	if err != nil {
		log.Printf("Error marshaling siphon alert: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}
