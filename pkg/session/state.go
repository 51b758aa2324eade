// Package session tracks per-room agent state: the active persona, page
// context, tool set, and conversation history for one room. The store
// guarantees at most one state per room and atomic context swaps.
package session

import (
	"sync"
	"time"

	"github.com/shodh-ai/voxagent/pkg/command"
	"github.com/shodh-ai/voxagent/pkg/persona"
	"github.com/shodh-ai/voxagent/pkg/tool"
)

// maxHistory bounds the in-memory conversation log per room.
const maxHistory = 200

// Turn is one entry in a session's conversation history.
type Turn struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// State is the live state of one room's agent session. All accessors are
// safe for concurrent use; the context triple (persona, page type, tools)
// only changes together under one lock so readers never observe a
// half-applied swap.
type State struct {
	mu sync.RWMutex

	roomID    string
	createdAt time.Time

	persona  persona.Config
	pageType string
	taskID   string
	tools    []tool.Descriptor

	transport command.Publisher
	history   []Turn
	onTurn    func(Turn)
}

func newState(roomID string) *State {
	return &State{
		roomID:    roomID,
		createdAt: time.Now(),
	}
}

// RoomID returns the stable room identifier.
func (s *State) RoomID() string { return s.roomID }

// CreatedAt returns when the session was created.
func (s *State) CreatedAt() time.Time { return s.createdAt }

// Persona returns the currently active persona.
func (s *State) Persona() persona.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persona
}

// PageType returns the page context this session currently serves.
func (s *State) PageType() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageType
}

// TaskID returns the current task identifier, if any.
func (s *State) TaskID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taskID
}

// Tools returns a copy of the session's active tool descriptors.
func (s *State) Tools() []tool.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]tool.Descriptor(nil), s.tools...)
}

// Transport returns the publisher for this room, or nil before a room
// is attached.
func (s *State) Transport() command.Publisher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transport
}

// SetTransport attaches the room publisher used for outbound commands.
func (s *State) SetTransport(pub command.Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport = pub
}

// SetPersona swaps the persona alone, leaving page and tools untouched.
func (s *State) SetPersona(p persona.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persona = p
}

// SetPageType updates the page context alone.
func (s *State) SetPageType(pageType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageType = pageType
}

// SetTools replaces the active tool set alone.
func (s *State) SetTools(tools []tool.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append([]tool.Descriptor(nil), tools...)
}

// ApplyContext atomically swaps persona, page context, task, and tool set.
// A dispatch running concurrently sees either the old context or the new
// one, never a mixture.
func (s *State) ApplyContext(p persona.Config, pageType, taskID string, tools []tool.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persona = p
	s.pageType = pageType
	s.taskID = taskID
	s.tools = append([]tool.Descriptor(nil), tools...)
}

// Context is a consistent snapshot of the session's swap-together fields.
type Context struct {
	Persona  persona.Config
	PageType string
	TaskID   string
	Tools    []tool.Descriptor
}

// Context returns the persona, page, task, and tool set as one snapshot
// taken under a single lock.
func (s *State) Context() Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Context{
		Persona:  s.persona,
		PageType: s.pageType,
		TaskID:   s.taskID,
		Tools:    append([]tool.Descriptor(nil), s.tools...),
	}
}

// SetTurnHook registers an observer for appended turns, typically the
// history archiver. At most one hook; nil clears it.
func (s *State) SetTurnHook(fn func(Turn)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTurn = fn
}

// AppendTurn records a conversation turn, evicting the oldest entries
// beyond the history bound. The turn hook, if set, observes each appended
// turn exactly once, outside the lock.
func (s *State) AppendTurn(speaker, text string) {
	turn := Turn{Speaker: speaker, Text: text, At: time.Now()}

	s.mu.Lock()
	s.history = append(s.history, turn)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
	hook := s.onTurn
	s.mu.Unlock()

	if hook != nil {
		hook(turn)
	}
}

// History returns a copy of the conversation log.
func (s *State) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Turn(nil), s.history...)
}
