package model

import (
	"context"
	"sync"

	"github.com/shodh-ai/voxagent/pkg/tool"
)

// Mock is a scripted Backend for tests. It records everything submitted
// to it and lets tests emit generation events on demand.
type Mock struct {
	mu sync.Mutex

	started  bool
	stopped  bool
	sessions []Session

	Submitted []tool.Result
	Continues int
	Said      []string

	onGeneration func(GenerationEvent)
	onError      func(error)

	// StartErr, SubmitErr force failures when set.
	StartErr  error
	SubmitErr error
}

// NewMock creates a mock backend.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Start(ctx context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartErr != nil {
		return m.StartErr
	}
	m.started = true
	m.stopped = false
	m.sessions = append(m.sessions, sess)
	return nil
}

func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *Mock) SubmitToolResult(ctx context.Context, result tool.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return m.SubmitErr
	}
	m.Submitted = append(m.Submitted, result)
	return nil
}

func (m *Mock) Continue(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Continues++
	return nil
}

func (m *Mock) Say(ctx context.Context, instructions string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Said = append(m.Said, instructions)
	return nil
}

func (m *Mock) UpdateSession(ctx context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, sess)
	return nil
}

func (m *Mock) OnGeneration(fn func(GenerationEvent)) {
	m.onGeneration = fn
}

func (m *Mock) OnError(fn func(error)) {
	m.onError = fn
}

// Emit delivers a generation event to the registered callback, as if the
// model had produced it.
func (m *Mock) Emit(ev GenerationEvent) {
	if m.onGeneration != nil {
		m.onGeneration(ev)
	}
}

// EmitCalls is shorthand for emitting a tool-call event.
func (m *Mock) EmitCalls(turnID string, calls ...tool.FunctionCall) {
	m.Emit(GenerationEvent{TurnID: turnID, Calls: calls})
}

// Fail delivers an error to the registered error callback.
func (m *Mock) Fail(err error) {
	if m.onError != nil {
		m.onError(err)
	}
}

// Started reports whether Start has been called.
func (m *Mock) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Stopped reports whether Stop has been called.
func (m *Mock) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Sessions returns every session configuration the mock has seen, in
// order: the Start session first, then one per UpdateSession.
func (m *Mock) Sessions() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Session(nil), m.sessions...)
}

// Results returns a copy of the submitted tool results.
func (m *Mock) Results() []tool.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tool.Result(nil), m.Submitted...)
}

// ContinueCount returns how many times Continue was called.
func (m *Mock) ContinueCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Continues
}

var _ Backend = (*Mock)(nil)
