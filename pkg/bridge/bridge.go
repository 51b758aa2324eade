// Package bridge connects a model backend to the tool dispatcher and the
// room's outbound topics. One bridge serves one room: it answers every
// function call the model issues, streams response text to the transcript
// topic, and forwards audio untouched.
package bridge

import (
	"context"
	"log/slog"

	"github.com/shodh-ai/voxagent/internal/log"
	"github.com/shodh-ai/voxagent/pkg/command"
	"github.com/shodh-ai/voxagent/pkg/model"
	"github.com/shodh-ai/voxagent/pkg/session"
	"github.com/shodh-ai/voxagent/pkg/tool"
)

// Bridge wires one room's backend, dispatcher, and session together.
type Bridge struct {
	backend    model.Backend
	dispatcher *tool.Dispatcher
	state      *session.State
	logger     *slog.Logger

	// audioSink receives synthesized audio chunks, typically the room's
	// binary broadcast. Nil drops audio.
	audioSink func([]byte)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithAudioSink forwards synthesized audio chunks to fn.
func WithAudioSink(fn func([]byte)) Option {
	return func(b *Bridge) { b.audioSink = fn }
}

// New creates a bridge and registers its callbacks on the backend.
// Call before backend.Start so no early event is missed.
func New(backend model.Backend, dispatcher *tool.Dispatcher, state *session.State, opts ...Option) *Bridge {
	b := &Bridge{
		backend:    backend,
		dispatcher: dispatcher,
		state:      state,
		logger:     log.Component("bridge").With("room", state.RoomID()),
	}
	for _, opt := range opts {
		opt(b)
	}

	backend.OnGeneration(b.handleGeneration)
	backend.OnError(b.handleError)
	return b
}

// handleGeneration routes one generation event. An event may carry
// function calls, content streams, or both: calls run the dispatch cycle
// first, then any content channels are drained to the room.
func (b *Bridge) handleGeneration(ev model.GenerationEvent) {
	if len(ev.Calls) > 0 {
		b.handleCalls(ev)
	}
	if ev.Text != nil || ev.Audio != nil {
		go b.streamContent(ev)
	}
}

// handleCalls dispatches every call in the event, submits every result,
// and asks the model to continue exactly once. A call that fails still
// gets an answer; a result that fails to submit is logged and the cycle
// moves on so the turn never stalls on one bad call.
func (b *Bridge) handleCalls(ev model.GenerationEvent) {
	ctx := context.Background()

	b.logger.Info("dispatching tool calls", "turn", ev.TurnID, "count", len(ev.Calls))
	results := b.dispatcher.DispatchAll(ctx, b.state, ev.Calls)

	for _, result := range results {
		if err := b.backend.SubmitToolResult(ctx, result); err != nil {
			b.logger.Error("failed to submit tool result",
				"turn", ev.TurnID, "call_id", result.CallID, "error", err)
		}
	}

	if err := b.backend.Continue(ctx); err != nil {
		b.logger.Error("failed to continue generation", "turn", ev.TurnID, "error", err)
	}
}

// streamContent drains a content turn: text chunks go to the transcript
// topic as they arrive, audio goes to the sink, and the assembled text
// becomes one history turn when the channels close.
func (b *Bridge) streamContent(ev model.GenerationEvent) {
	ctx := context.Background()
	pub := b.state.Transport()

	var assembled string
	text := ev.Text
	audio := ev.Audio

	for text != nil || audio != nil {
		select {
		case chunk, ok := <-text:
			if !ok {
				text = nil
				continue
			}
			assembled += chunk.Content
			command.SendTranscript(ctx, pub, chunk.Content, chunk.Final, "agent")

		case chunk, ok := <-audio:
			if !ok {
				audio = nil
				continue
			}
			if b.audioSink != nil {
				b.audioSink(chunk.Data)
			}
		}
	}

	if assembled == "" {
		return
	}

	command.SendTranscript(ctx, pub, assembled, true, "agent")
	b.state.AppendTurn("agent", assembled)
	b.logger.Debug("agent turn complete", "turn", ev.TurnID, "chars", len(assembled))
}

// HandleUserTranscript records a finalized user utterance and mirrors it
// to the transcript topic.
func (b *Bridge) HandleUserTranscript(ctx context.Context, text string) {
	if text == "" {
		return
	}
	b.state.AppendTurn("user", text)
	command.SendTranscript(ctx, b.state.Transport(), text, true, "user")
}

func (b *Bridge) handleError(err error) {
	b.logger.Error("model backend error", "error", err)
	command.SendNotification(context.Background(), b.state.Transport(),
		"The assistant hit a problem. Please try again.", "error")
}
