// Package tool implements the tool catalog and dispatch pipeline: descriptors
// advertised to the model, a name-keyed registry filtered per persona, and a
// dispatcher that turns a raw function call into a result the model can
// always consume, success or failure.
package tool

import (
	"context"

	"github.com/shodh-ai/voxagent/pkg/command"
)

// Session is the per-room state a handler may use while executing.
// Implemented by session.State; declared here so handlers stay decoupled
// from the store.
type Session interface {
	// RoomID returns the stable room identifier.
	RoomID() string

	// Transport returns the publisher used to push UI commands.
	// May be nil in tests.
	Transport() command.Publisher

	// PageType returns the context tag the session currently serves.
	PageType() string

	// AppendTurn records a conversation turn in the session history.
	AppendTurn(speaker, text string)
}

// Handler executes the business logic for one tool call.
// It receives validated arguments and returns a JSON-serializable payload.
// Errors and panics are converted to error results by the dispatcher and
// never reach the generation bridge.
type Handler func(ctx context.Context, sess Session, args map[string]any) (map[string]any, error)

// Descriptor describes one tool the model may invoke.
// Descriptors are immutable after registration; personas select among them
// but never mutate them.
type Descriptor struct {
	// Name is the unique identifier for the tool (e.g., "startTimer").
	Name string `json:"name"`

	// Description explains what the tool does, helping the model decide
	// when to use it.
	Description string `json:"description"`

	// Parameters defines the schema for the tool's arguments.
	Parameters Schema `json:"parameters"`

	// Handler is called when the model invokes this tool.
	Handler Handler `json:"-"`
}

// Declaration renders the descriptor in the JSON-schema shape advertised
// to the model backend.
func (d Descriptor) Declaration() map[string]any {
	return map[string]any{
		"name":        d.Name,
		"description": d.Description,
		"parameters":  d.Parameters.Declaration(),
	}
}

// FunctionCall represents one model-issued tool invocation.
type FunctionCall struct {
	// CallID is the opaque correlation token echoed back with the result.
	CallID string

	// Name is the tool being invoked.
	Name string

	// RawArguments is the serialized argument payload as received.
	RawArguments string
}

// Result is the normalized outcome of one dispatch. Its shape is written
// back into the model context, so it must be stable for round-tripping.
type Result struct {
	Name    string         `json:"name"`
	CallID  string         `json:"call_id"`
	IsError bool           `json:"is_error"`
	Payload map[string]any `json:"payload"`
}

// errorResult builds a Result carrying a failure message in the wire shape
// the model expects.
func errorResult(name, callID, message string) Result {
	return Result{
		Name:    name,
		CallID:  callID,
		IsError: true,
		Payload: map[string]any{
			"success": false,
			"message": message,
		},
	}
}
