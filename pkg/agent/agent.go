// Package agent is the thin orchestrator tying the system together: room
// lifecycle drives session lifecycle, inbound data messages drive context
// changes, and each room gets a model backend bridged to the dispatcher.
// All real work happens in the packages this one wires.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shodh-ai/voxagent/internal/log"
	"github.com/shodh-ai/voxagent/pkg/bridge"
	"github.com/shodh-ai/voxagent/pkg/command"
	"github.com/shodh-ai/voxagent/pkg/model"
	"github.com/shodh-ai/voxagent/pkg/persona"
	"github.com/shodh-ai/voxagent/pkg/protocol"
	"github.com/shodh-ai/voxagent/pkg/room"
	"github.com/shodh-ai/voxagent/pkg/session"
	"github.com/shodh-ai/voxagent/pkg/session/archive"
	"github.com/shodh-ai/voxagent/pkg/tool"
)

// audioTopic carries synthesized agent audio to observers.
const audioTopic = "agent-audio"

// BackendFactory creates one model backend per room session.
type BackendFactory func() (model.Backend, error)

// Options configures an Agent.
type Options struct {
	// Catalog resolves personas. Required.
	Catalog *persona.Catalog

	// Registry is the tool catalog. Required.
	Registry *tool.Registry

	// Gateway is the room transport. Required.
	Gateway *room.Gateway

	// NewBackend creates model backends. Required.
	NewBackend BackendFactory

	// Archiver persists history. Nil disables archival.
	Archiver *archive.Archiver

	// DefaultPage is the page context new sessions start on.
	DefaultPage string
}

// Agent orchestrates rooms, sessions, personas, and model backends.
type Agent struct {
	catalog    *persona.Catalog
	registry   *tool.Registry
	dispatcher *tool.Dispatcher
	gateway    *room.Gateway
	store      *session.Store
	archiver   *archive.Archiver
	newBackend BackendFactory

	defaultPage string
	logger      *slog.Logger

	mu       sync.Mutex
	backends map[string]model.Backend
	bridges  map[string]*bridge.Bridge
}

// New creates the orchestrator and hooks it into the gateway's lifecycle
// callbacks.
func New(opts Options) *Agent {
	a := &Agent{
		catalog:     opts.Catalog,
		registry:    opts.Registry,
		dispatcher:  tool.NewDispatcher(opts.Registry),
		gateway:     opts.Gateway,
		store:       session.NewStore(),
		archiver:    opts.Archiver,
		newBackend:  opts.NewBackend,
		defaultPage: opts.DefaultPage,
		logger:      log.Component("agent"),
		backends:    make(map[string]model.Backend),
		bridges:     make(map[string]*bridge.Bridge),
	}
	if a.defaultPage == "" {
		a.defaultPage = "speakingpage"
	}

	opts.Gateway.OnParticipantJoined(a.HandleParticipantJoined)
	opts.Gateway.OnParticipantLeft(a.HandleParticipantLeft)
	opts.Gateway.OnData(a.HandleData)
	return a
}

// Store exposes the session store, mainly for admin endpoints.
func (a *Agent) Store() *session.Store {
	return a.store
}

// HandleParticipantJoined starts the room's agent session on first join.
// Later participants share the existing session.
func (a *Agent) HandleParticipantJoined(roomID, participantID string) {
	state, created := a.store.GetOrCreate(roomID)
	if !created {
		a.logger.Debug("participant joined existing session", "room", roomID, "participant", participantID)
		return
	}

	r := a.gateway.Room(roomID)
	state.SetTransport(r)

	// Every turn appended to the session, whatever its speaker, reaches
	// the archive through this one hook; nothing re-archives on teardown.
	state.SetTurnHook(func(turn session.Turn) {
		a.archiver.Append(context.Background(), roomID, turn)
	})

	p := a.catalog.ResolveForPage(a.defaultPage)
	state.ApplyContext(p, persona.NormalizePage(a.defaultPage), "", a.registry.ForIdentity(p))

	if err := a.startBackend(roomID, state, r); err != nil {
		a.logger.Error("failed to start model backend", "room", roomID, "error", err)
		command.SendNotification(context.Background(), r,
			"The assistant is unavailable right now. Please rejoin in a moment.", "error")
		return
	}

	a.logger.Info("agent session started",
		"room", roomID, "persona", p.Identity, "page", state.PageType())
}

// startBackend creates, bridges, and starts one backend for a room.
func (a *Agent) startBackend(roomID string, state *session.State, r *room.Room) error {
	backend, err := a.newBackend()
	if err != nil {
		return fmt.Errorf("creating backend: %w", err)
	}

	br := bridge.New(backend, a.dispatcher, state,
		bridge.WithAudioSink(func(data []byte) {
			r.PublishBinary(audioTopic, data)
		}),
	)

	ctx := context.Background()
	if err := backend.Start(ctx, a.modelSession(state)); err != nil {
		return fmt.Errorf("starting backend: %w", err)
	}

	a.mu.Lock()
	a.backends[roomID] = backend
	a.bridges[roomID] = br
	a.mu.Unlock()

	// Kick off the conversation; the persona instructions carry the
	// actual introduction.
	if err := backend.Say(ctx, "The student has just joined. Greet them and begin the session."); err != nil {
		a.logger.Warn("failed to send opening prompt", "room", roomID, "error", err)
	}
	return nil
}

// HandleParticipantLeft tears the session down when the room empties.
func (a *Agent) HandleParticipantLeft(roomID, participantID string, remaining int) {
	if remaining > 0 {
		return
	}

	a.mu.Lock()
	backend := a.backends[roomID]
	delete(a.backends, roomID)
	delete(a.bridges, roomID)
	a.mu.Unlock()

	if backend != nil {
		if err := backend.Stop(); err != nil {
			a.logger.Warn("error stopping backend", "room", roomID, "error", err)
		}
	}

	a.store.Remove(roomID)
	a.gateway.Drop(roomID)
	a.logger.Info("agent session ended", "room", roomID)
}

// HandleData routes one decoded inbound message.
func (a *Agent) HandleData(roomID, participantID string, msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeChangeContext:
		payload, err := msg.GetChangeContext()
		if err != nil {
			a.logger.Warn("malformed context change", "room", roomID, "error", err)
			return
		}
		a.applyContextChange(roomID, payload)

	case protocol.TypeUserTranscript:
		payload, err := msg.GetUserTranscript()
		if err != nil {
			a.logger.Warn("malformed user transcript", "room", roomID, "error", err)
			return
		}
		a.mu.Lock()
		br := a.bridges[roomID]
		a.mu.Unlock()
		if br != nil && payload.Final {
			br.HandleUserTranscript(context.Background(), payload.Text)
		}

	default:
		a.logger.Debug("ignoring unhandled message type", "room", roomID, "type", msg.Type)
	}
}

// applyContextChange swaps the room's persona, page, and tool set, then
// re-advertises the session to the model. An explicit persona identity
// wins over page-based resolution; an unknown identity falls back to the
// page.
func (a *Agent) applyContextChange(roomID string, payload *protocol.ChangeContextPayload) {
	state, err := a.store.Get(roomID)
	if err != nil {
		a.logger.Warn("context change for unknown room", "room", roomID)
		return
	}

	page := persona.NormalizePage(payload.PageType)

	var p persona.Config
	if payload.PersonaIdentity != "" {
		p, err = a.catalog.Resolve(payload.PersonaIdentity)
		if err != nil {
			a.logger.Warn("unknown persona identity, resolving by page",
				"room", roomID, "identity", payload.PersonaIdentity)
			p = a.catalog.ResolveForPage(page)
		}
	} else {
		p = a.catalog.ResolveForPage(page)
	}

	state.ApplyContext(p, page, payload.TaskID, a.registry.ForIdentity(p))

	a.mu.Lock()
	backend := a.backends[roomID]
	a.mu.Unlock()

	ctx := context.Background()
	if backend != nil {
		if err := backend.UpdateSession(ctx, a.modelSession(state)); err != nil {
			a.logger.Error("failed to update model session", "room", roomID, "error", err)
			command.SendNotification(ctx, state.Transport(),
				"Context switch failed. The assistant may be out of date.", "warning")
			return
		}
	}

	a.logger.Info("context changed",
		"room", roomID, "persona", p.Identity, "page", page, "task", payload.TaskID)
	command.SendNotification(ctx, state.Transport(),
		fmt.Sprintf("Switched to %s", p.Description), "info")
}

// modelSession renders the session's current context for the backend.
func (a *Agent) modelSession(state *session.State) model.Session {
	snap := state.Context()
	return model.Session{
		Instructions: snap.Persona.Instructions,
		Voice:        snap.Persona.Voice,
		Temperature:  snap.Persona.Temperature,
		Tools:        tool.Declarations(snap.Tools),
	}
}
