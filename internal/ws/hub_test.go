package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub) *Client {
	return &Client{hub: hub, send: make(chan []byte, 256)}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.ClientCount())

	c := newTestClient(hub)
	hub.Register(c)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())

	// Channel is closed after unregister.
	_, open := <-c.send
	assert.False(t, open)
}

func TestHubUnregisterTwice(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub)
	hub.Register(c)

	hub.Unregister(c)
	// Second unregister must not panic on the closed channel.
	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	c1 := newTestClient(hub)
	c2 := newTestClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast([]byte(`{"type":"replay:state"}`))

	assert.Equal(t, []byte(`{"type":"replay:state"}`), <-c1.send)
	assert.Equal(t, []byte(`{"type":"replay:state"}`), <-c2.send)
}

func TestHubBroadcastFullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub()
	c := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(c)

	hub.Broadcast([]byte("one"))
	// Buffer is full; this must return instead of blocking.
	hub.Broadcast([]byte("two"))

	assert.Equal(t, []byte("one"), <-c.send)
	select {
	case msg := <-c.send:
		t.Fatalf("expected dropped message, got %q", msg)
	default:
	}
}

func TestNewEnvelope(t *testing.T) {
	raw, err := NewEnvelope(TypeReplaySetSpeed, SetSpeedPayload{Speed: 60})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, TypeReplaySetSpeed, env.Type)

	var p SetSpeedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, 60.0, p.Speed)
}

func TestNewEnvelopeNilPayload(t *testing.T) {
	raw, err := NewEnvelope(TypeReplayPause, nil)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, TypeReplayPause, env.Type)
	assert.Empty(t, env.Payload)
}
