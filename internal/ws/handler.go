package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"fuelwatch/internal/model"
	"fuelwatch/internal/replay"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler manages WebSocket connections and routes client messages to
// the replay engine.
type Handler struct {
	hub    *Hub
	engine *replay.Engine
	trucks []model.Truck
}

func NewHandler(hub *Hub, engine *replay.Engine, trucks []model.Truck) *Handler {
	return &Handler{hub: hub, engine: engine, trucks: trucks}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	h.sendFleetLoaded(client)
	h.sendReplayState(client)

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		h.handleMessage(msg)
	}
}

func (h *Handler) handleMessage(msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Printf("Invalid message: %v", err)
		return
	}

	switch env.Type {
	case TypeReplayStart:
		h.engine.Start()

	case TypeReplayPause:
		h.engine.Pause()

	case TypeReplaySetSpeed:
		var p SetSpeedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Invalid set_speed payload: %v", err)
			return
		}
		h.engine.SetSpeed(p.Speed)

	case TypeReplaySeek:
		var p SeekPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Invalid seek payload: %v", err)
			return
		}
		t, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			log.Printf("Invalid seek timestamp: %v", err)
			return
		}
		h.engine.Seek(t)

	default:
		log.Printf("Unknown message type %q", env.Type)
	}
}

func (h *Handler) sendFleetLoaded(c *Client) {
	tr := h.engine.TimeRange()

	infos := make([]TruckInfo, 0, len(h.trucks))
	for _, t := range h.trucks {
		infos = append(infos, TruckInfo{
			ID:              t.ID,
			Name:            t.Name,
			TankCapacityGal: t.TankCapacityGal,
		})
	}

	msg, err := NewEnvelope(TypeFleetLoaded, FleetLoadedPayload{
		Trucks: infos,
		TimeRange: TimeRangeInfo{
			Start: tr.Start.Format(time.RFC3339),
			End:   tr.End.Format(time.RFC3339),
		},
	})
	if err != nil {
		log.Printf("Error marshaling fleet:loaded: %v", err)
		return
	}
	c.send <- msg
}

func (h *Handler) sendReplayState(c *Client) {
	msg, err := NewEnvelope(TypeReplayState, ReplayStateFromEngine(h.engine.State()))
	if err != nil {
		log.Printf("Error marshaling replay state: %v", err)
		return
	}
	c.send <- msg
}
