// Package room is the realtime transport layer: each room holds the
// websocket connections of its participants plus per-topic observer
// fan-outs, and implements the publisher boundary the command layer
// writes to. Inbound participant messages are decoded exactly once here
// and surfaced as typed protocol messages.
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/shodh-ai/voxagent/internal/log"
	"github.com/shodh-ai/voxagent/pkg/hub"
)

// Participant is one connected client in a room.
type Participant struct {
	ID     string
	Conn   *websocket.Conn
	Joined time.Time

	// mu serializes writes; only one goroutine may write a websocket.
	mu sync.Mutex
}

// Send writes a text frame to the participant.
func (p *Participant) Send(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Conn.WriteMessage(websocket.TextMessage, payload)
}

// dataFrame is the participant-facing wire envelope: the topic tells the
// frontend which handler consumes the payload.
type dataFrame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Room holds the live connections and topic fan-outs for one room ID.
type Room struct {
	id string

	mu           sync.RWMutex
	participants map[string]*Participant

	topics *hub.Set
}

func newRoom(id string) *Room {
	return &Room{
		id:           id,
		participants: make(map[string]*Participant),
		topics:       hub.NewSet(),
	}
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// PublishData sends a payload on a topic: framed to every participant
// and raw to the topic's observer hub. Reliable delivery is the only
// mode this transport has; the flag is part of the publisher contract
// for transports that distinguish.
func (r *Room) PublishData(ctx context.Context, payload []byte, topic string, reliable bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	frame, err := json.Marshal(dataFrame{Topic: topic, Payload: payload})
	if err != nil {
		return fmt.Errorf("room: framing payload for %s: %w", topic, err)
	}

	r.mu.RLock()
	participants := make([]*Participant, 0, len(r.participants))
	for _, p := range r.participants {
		participants = append(participants, p)
	}
	r.mu.RUnlock()

	var lastErr error
	delivered := 0
	for _, p := range participants {
		if err := p.Send(frame); err != nil {
			log.Component("room").Warn("failed to deliver to participant",
				"room", r.id, "participant", p.ID, "topic", topic, "error", err)
			lastErr = err
			continue
		}
		delivered++
	}

	r.topics.Get(topic).Broadcast(hub.NewJSONMessage(payload))

	if delivered == 0 && len(participants) > 0 {
		return fmt.Errorf("room: no participant reachable on %s: %w", topic, lastErr)
	}
	return nil
}

// PublishBinary fans binary data (e.g. synthesized audio) out to a
// topic's observers only; participant connections stay text.
func (r *Room) PublishBinary(topic string, data []byte) {
	r.topics.Get(topic).BroadcastBinary(data)
}

// Topic returns the observer hub for a topic.
func (r *Room) Topic(topic string) *hub.Hub {
	return r.topics.Get(topic)
}

// ParticipantCount returns the number of connected participants.
func (r *Room) ParticipantCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

func (r *Room) addParticipant(p *Participant) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[p.ID] = p
	return len(r.participants)
}

func (r *Room) removeParticipant(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants, id)
	return len(r.participants)
}
