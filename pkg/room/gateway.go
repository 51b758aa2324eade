package room

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	wshub "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/shodh-ai/voxagent/internal/log"
	"github.com/shodh-ai/voxagent/pkg/hub"
	"github.com/shodh-ai/voxagent/pkg/protocol"
)

// Gateway owns all rooms and their websocket routes. Participant
// connections carry the bidirectional data channel; observer connections
// are read-only taps on one topic.
type Gateway struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	// Callbacks into the orchestrator
	onData              func(roomID, participantID string, msg *protocol.Message)
	onParticipantJoined func(roomID, participantID string)
	onParticipantLeft   func(roomID, participantID string, remaining int)
}

// NewGateway creates an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{
		rooms: make(map[string]*Room),
	}
}

// OnData sets the callback for decoded inbound messages.
func (g *Gateway) OnData(fn func(roomID, participantID string, msg *protocol.Message)) {
	g.onData = fn
}

// OnParticipantJoined sets the join callback.
func (g *Gateway) OnParticipantJoined(fn func(roomID, participantID string)) {
	g.onParticipantJoined = fn
}

// OnParticipantLeft sets the leave callback. Remaining is the number of
// participants still in the room so the orchestrator can tear down on
// zero.
func (g *Gateway) OnParticipantLeft(fn func(roomID, participantID string, remaining int)) {
	g.onParticipantLeft = fn
}

// Room returns the room for an ID, creating it on first use.
func (g *Gateway) Room(roomID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok {
		r = newRoom(roomID)
		g.rooms[roomID] = r
	}
	return r
}

// Lookup returns a room without creating it.
func (g *Gateway) Lookup(roomID string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[roomID]
	return r, ok
}

// Drop removes an empty room.
func (g *Gateway) Drop(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, roomID)
}

// RoomCount returns the number of live rooms.
func (g *Gateway) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// RegisterRoutes registers the websocket routes on a Fiber app.
func (g *Gateway) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Participant data channel
	app.Get("/ws/room/:room/:participant", websocket.New(g.handleParticipant))
	app.Get("/ws/room/:room", websocket.New(g.handleParticipant))

	// Read-only topic observers
	app.Get("/ws/observe/:room/:topic", wshub.New(g.handleObserver))
}

// handleParticipant runs one participant connection from join to leave.
func (g *Gateway) handleParticipant(c *websocket.Conn) {
	logger := log.Component("room")

	roomID := c.Params("room")
	participantID := c.Params("participant")
	if participantID == "" {
		participantID = uuid.NewString()
	}

	r := g.Room(roomID)
	p := &Participant{
		ID:     participantID,
		Conn:   c,
		Joined: time.Now(),
	}

	count := r.addParticipant(p)
	logger.Info("participant joined", "room", roomID, "participant", participantID, "total", count)

	if g.onParticipantJoined != nil {
		g.onParticipantJoined(roomID, participantID)
	}

	defer func() {
		remaining := r.removeParticipant(participantID)
		logger.Info("participant left", "room", roomID, "participant", participantID, "remaining", remaining)
		if g.onParticipantLeft != nil {
			g.onParticipantLeft(roomID, participantID, remaining)
		}
	}()

	// Read loop: decode once at the boundary, hand typed messages up.
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			logger.Warn("dropping malformed message",
				"room", roomID, "participant", participantID, "error", err)
			continue
		}

		if msg.Type == protocol.TypePing {
			g.answerPing(p)
			continue
		}

		if g.onData != nil {
			g.onData(roomID, participantID, msg)
		}
	}
}

func (g *Gateway) answerPing(p *Participant) {
	pong, err := protocol.NewMessage(protocol.TypePong, protocol.PongPayload{})
	if err != nil {
		return
	}
	if data, err := pong.Bytes(); err == nil {
		_ = p.Send(data)
	}
}

// handleObserver attaches a read-only client to one topic's hub.
func (g *Gateway) handleObserver(c *wshub.Conn) {
	roomID := c.Params("room")
	topic := c.Params("topic")

	r := g.Room(roomID)
	client := hub.NewClient(r.Topic(topic), c)
	client.Run() // Blocks until the connection closes
}
