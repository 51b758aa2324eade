package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shodh-ai/voxagent/pkg/command"
)

// fakeSession satisfies Session for dispatch tests.
type fakeSession struct {
	roomID string
	turns  []string
}

func (f *fakeSession) RoomID() string               { return f.roomID }
func (f *fakeSession) Transport() command.Publisher { return nil }
func (f *fakeSession) PageType() string             { return "speakingpage" }
func (f *fakeSession) AppendTurn(speaker, text string) {
	f.turns = append(f.turns, speaker+": "+text)
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.MustRegister(Descriptor{
		Name:        "echo",
		Description: "Echoes its message back",
		Parameters: Schema{
			Properties: map[string]Property{
				"message": {Type: "string"},
			},
			Required: []string{"message"},
		},
		Handler: func(ctx context.Context, sess Session, args map[string]any) (map[string]any, error) {
			return map[string]any{"success": true, "echo": args["message"]}, nil
		},
	})
	r.MustRegister(Descriptor{
		Name:        "failing",
		Description: "Always fails",
		Parameters:  Schema{},
		Handler: func(ctx context.Context, sess Session, args map[string]any) (map[string]any, error) {
			return nil, errors.New("backend unavailable")
		},
	})
	r.MustRegister(Descriptor{
		Name:        "panicking",
		Description: "Always panics",
		Parameters:  Schema{},
		Handler: func(ctx context.Context, sess Session, args map[string]any) (map[string]any, error) {
			panic("boom")
		},
	})
	return r
}

func TestDispatchSuccess(t *testing.T) {
	d := NewDispatcher(testRegistry(t))
	sess := &fakeSession{roomID: "room-1"}

	result := d.Dispatch(context.Background(), sess, FunctionCall{
		CallID:       "call-1",
		Name:         "echo",
		RawArguments: `{"message":"hello"}`,
	})

	if result.IsError {
		t.Fatalf("Dispatch() IsError = true, payload = %v", result.Payload)
	}
	if result.CallID != "call-1" {
		t.Errorf("CallID = %q, want call-1", result.CallID)
	}
	if result.Name != "echo" {
		t.Errorf("Name = %q, want echo", result.Name)
	}
	if result.Payload["echo"] != "hello" {
		t.Errorf("Payload = %v", result.Payload)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher(testRegistry(t))

	result := d.Dispatch(context.Background(), &fakeSession{}, FunctionCall{
		CallID: "call-2",
		Name:   "launchRocket",
	})

	if !result.IsError {
		t.Fatal("Dispatch() of unknown tool should produce an error result")
	}
	if result.CallID != "call-2" {
		t.Errorf("CallID = %q, want call-2", result.CallID)
	}
	if success, ok := result.Payload["success"].(bool); !ok || success {
		t.Errorf("Payload success = %v, want false", result.Payload["success"])
	}
	msg, _ := result.Payload["message"].(string)
	if !strings.Contains(msg, "launchRocket") {
		t.Errorf("error message should name the tool, got %q", msg)
	}
}

func TestDispatchHandlerError(t *testing.T) {
	d := NewDispatcher(testRegistry(t))

	result := d.Dispatch(context.Background(), &fakeSession{}, FunctionCall{
		CallID: "call-3",
		Name:   "failing",
	})

	if !result.IsError {
		t.Fatal("handler error should surface as an error result")
	}
	msg, _ := result.Payload["message"].(string)
	if !strings.Contains(msg, "backend unavailable") {
		t.Errorf("message = %q, want handler error text", msg)
	}
}

func TestDispatchMalformedArguments(t *testing.T) {
	d := NewDispatcher(testRegistry(t))

	result := d.Dispatch(context.Background(), &fakeSession{}, FunctionCall{
		CallID:       "call-4",
		Name:         "echo",
		RawArguments: `{not json`,
	})

	if !result.IsError {
		t.Fatal("malformed arguments should produce an error result")
	}
	// The call was never resolved against the registry, but it still gets
	// a well-formed answer.
	if result.CallID != "call-4" {
		t.Errorf("CallID = %q, want call-4", result.CallID)
	}
}

func TestDispatchValidationFailure(t *testing.T) {
	d := NewDispatcher(testRegistry(t))

	result := d.Dispatch(context.Background(), &fakeSession{}, FunctionCall{
		CallID:       "call-5",
		Name:         "echo",
		RawArguments: `{}`,
	})

	if !result.IsError {
		t.Fatal("missing required argument should produce an error result")
	}
	msg, _ := result.Payload["message"].(string)
	if !strings.Contains(msg, "message") {
		t.Errorf("error should name the missing parameter, got %q", msg)
	}
}

func TestDispatchPanicRecovery(t *testing.T) {
	d := NewDispatcher(testRegistry(t))

	result := d.Dispatch(context.Background(), &fakeSession{}, FunctionCall{
		CallID: "call-6",
		Name:   "panicking",
	})

	if !result.IsError {
		t.Fatal("panic should be converted to an error result")
	}
	msg, _ := result.Payload["message"].(string)
	if !strings.Contains(msg, "panicked") {
		t.Errorf("message = %q, want panic report", msg)
	}
}

func TestDispatchTimeout(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Descriptor{
		Name:       "slow",
		Parameters: Schema{},
		Handler: func(ctx context.Context, sess Session, args map[string]any) (map[string]any, error) {
			select {
			case <-time.After(5 * time.Second):
				return map[string]any{"success": true}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})
	d := NewDispatcher(r).WithTimeout(50 * time.Millisecond)

	start := time.Now()
	result := d.Dispatch(context.Background(), &fakeSession{}, FunctionCall{CallID: "call-7", Name: "slow"})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Dispatch() took %s, timeout not enforced", elapsed)
	}
	if !result.IsError {
		t.Fatal("timed-out call should produce an error result")
	}
}

func TestDispatchGeneratesCallID(t *testing.T) {
	d := NewDispatcher(testRegistry(t))

	result := d.Dispatch(context.Background(), &fakeSession{}, FunctionCall{
		Name:         "echo",
		RawArguments: `{"message":"hi"}`,
	})

	if result.CallID == "" {
		t.Error("Dispatch() should generate a call ID when the model omits one")
	}
}

func TestDispatchNilPayloadDefaultsToSuccess(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Descriptor{
		Name:       "quiet",
		Parameters: Schema{},
		Handler: func(ctx context.Context, sess Session, args map[string]any) (map[string]any, error) {
			return nil, nil
		},
	})
	d := NewDispatcher(r)

	result := d.Dispatch(context.Background(), &fakeSession{}, FunctionCall{CallID: "c", Name: "quiet"})
	if result.IsError {
		t.Fatal("nil payload with nil error is a success")
	}
	if success, _ := result.Payload["success"].(bool); !success {
		t.Errorf("Payload = %v, want success true", result.Payload)
	}
}

func TestDispatchAllPreservesOrder(t *testing.T) {
	d := NewDispatcher(testRegistry(t))
	calls := []FunctionCall{
		{CallID: "a", Name: "echo", RawArguments: `{"message":"1"}`},
		{CallID: "b", Name: "missing"},
		{CallID: "c", Name: "echo", RawArguments: `{"message":"3"}`},
	}

	results := d.DispatchAll(context.Background(), &fakeSession{}, calls)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []string{"a", "b", "c"} {
		if results[i].CallID != want {
			t.Errorf("results[%d].CallID = %q, want %q", i, results[i].CallID, want)
		}
	}
	if results[0].IsError || results[2].IsError {
		t.Error("valid calls should succeed")
	}
	if !results[1].IsError {
		t.Error("unknown tool in the middle of a batch should still error")
	}
}
