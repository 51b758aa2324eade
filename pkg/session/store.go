package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shodh-ai/voxagent/internal/log"
	"github.com/shodh-ai/voxagent/internal/metrics"
)

// ErrNotFound is returned when a room has no session.
var ErrNotFound = errors.New("session: not found")

// Store maps room IDs to session states. It guarantees at most one state
// per room: concurrent GetOrCreate calls for the same room converge on a
// single instance.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*State
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*State),
	}
}

// GetOrCreate returns the session for a room, creating it if absent.
// The second return reports whether a new session was created. Calling
// again for the same room returns the same *State.
func (st *Store) GetOrCreate(roomID string) (*State, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[roomID]; ok {
		return s, false
	}
	s := newState(roomID)
	st.sessions[roomID] = s
	metrics.ActiveSessions.Inc()
	log.Component("session").Info("session created", "room", roomID)
	return s, true
}

// Get returns the session for a room or ErrNotFound.
func (st *Store) Get(roomID string) (*State, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, roomID)
	}
	return s, nil
}

// Remove drops a room's session. Removing an absent room is a no-op;
// the return reports whether a session existed.
func (st *Store) Remove(roomID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[roomID]; !ok {
		return false
	}
	delete(st.sessions, roomID)
	metrics.ActiveSessions.Dec()
	log.Component("session").Info("session removed", "room", roomID)
	return true
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Rooms returns the IDs of all live sessions.
func (st *Store) Rooms() []string {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]string, 0, len(st.sessions))
	for roomID := range st.sessions {
		out = append(out, roomID)
	}
	return out
}
