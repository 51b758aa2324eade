// Package model abstracts the generative backend driving a room's agent.
// A Backend owns one live model session: it receives the persona context,
// emits generation events (text, audio, tool calls), and accepts tool
// results back. The rest of the system only sees this interface.
package model

import (
	"context"
	"errors"

	"github.com/shodh-ai/voxagent/pkg/tool"
)

// Common backend errors.
var (
	ErrNotConnected   = errors.New("model: not connected")
	ErrAlreadyStarted = errors.New("model: already started")
	ErrMissingAPIKey  = errors.New("model: missing API key")
)

// Session carries everything the backend needs to configure a model
// session for the current persona.
type Session struct {
	// Instructions is the system prompt.
	Instructions string

	// Voice selects the synthesis voice.
	Voice string

	// Temperature tunes generation randomness.
	Temperature float64

	// Tools are the function declarations to advertise, already rendered
	// by tool.Declarations.
	Tools []map[string]any
}

// TextChunk is one streamed piece of the model's textual response.
type TextChunk struct {
	Content string
	Final   bool
}

// AudioChunk is one streamed piece of synthesized audio. Audio passes
// through the system opaque; nothing decodes it.
type AudioChunk struct {
	Data       []byte
	SampleRate int
}

// GenerationEvent is one burst of model output. A tool-call event carries
// Calls and nil channels; a content event carries open Text and Audio
// channels that close when the turn completes.
type GenerationEvent struct {
	// TurnID identifies the generation turn this event belongs to.
	TurnID string

	// Calls are the function calls the model issued, if any.
	Calls []tool.FunctionCall

	// Text streams response text chunks until the turn completes.
	Text <-chan TextChunk

	// Audio streams synthesized audio until the turn completes.
	Audio <-chan AudioChunk
}

// Backend is a live connection to a generative model.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Start opens the model session with the given configuration.
	Start(ctx context.Context, sess Session) error

	// Stop tears the session down. Safe to call more than once.
	Stop() error

	// SubmitToolResult feeds one tool result back into the model context,
	// keyed by the call ID inside the result.
	SubmitToolResult(ctx context.Context, result tool.Result) error

	// Continue asks the model to resume generating after tool results
	// have been submitted.
	Continue(ctx context.Context) error

	// Say injects an instruction turn, prompting the model to speak.
	Say(ctx context.Context, instructions string) error

	// UpdateSession re-advertises persona and tools after a context change.
	UpdateSession(ctx context.Context, sess Session) error

	// OnGeneration registers the generation event callback. Must be set
	// before Start.
	OnGeneration(fn func(GenerationEvent))

	// OnError registers the asynchronous error callback.
	OnError(fn func(error))
}
