package hub

import "sync"

// Set manages one hub per topic, creating and starting hubs lazily the
// first time a topic is used.
type Set struct {
	mu   sync.Mutex
	hubs map[string]*Hub
}

// NewSet creates an empty hub set.
func NewSet() *Set {
	return &Set{hubs: make(map[string]*Hub)}
}

// Get returns the hub for a topic, starting it on first use.
func (s *Set) Get(topic string) *Hub {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hubs[topic]
	if !ok {
		h = New(topic)
		s.hubs[topic] = h
		go h.Run()
	}
	return h
}

// Topics returns the topics with live hubs.
func (s *Set) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.hubs))
	for topic := range s.hubs {
		out = append(out, topic)
	}
	return out
}
