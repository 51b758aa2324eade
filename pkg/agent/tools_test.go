package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shodh-ai/voxagent/pkg/command"
	"github.com/shodh-ai/voxagent/pkg/tool"
)

// recordingPublisher captures published frames for assertions.
type recordingPublisher struct {
	frames []frame
}

type frame struct {
	payload []byte
	topic   string
}

func (r *recordingPublisher) PublishData(ctx context.Context, payload []byte, topic string, reliable bool) error {
	r.frames = append(r.frames, frame{payload: payload, topic: topic})
	return nil
}

type stubSession struct {
	pub   command.Publisher
	turns []string
}

func (s *stubSession) RoomID() string               { return "room-1" }
func (s *stubSession) Transport() command.Publisher { return s.pub }
func (s *stubSession) PageType() string             { return "speakingpage" }
func (s *stubSession) AppendTurn(speaker, text string) {
	s.turns = append(s.turns, speaker+": "+text)
}

func dispatcherWithTools(t *testing.T) *tool.Dispatcher {
	t.Helper()
	registry := tool.NewRegistry()
	registry.MustRegister(Tools(ToolConfig{})...)
	return tool.NewDispatcher(registry)
}

func TestStartTimerSpeakingPinsDuration(t *testing.T) {
	d := dispatcherWithTools(t)
	pub := &recordingPublisher{}
	sess := &stubSession{pub: pub}

	// The model asks for 45 seconds of speaking time; the practice
	// format pins it to 15.
	result := d.Dispatch(context.Background(), sess, tool.FunctionCall{
		CallID:       "call-1",
		Name:         "startTimer",
		RawArguments: `{"duration":45,"purpose":"speaking"}`,
	})

	if result.IsError {
		t.Fatalf("Dispatch() failed: %v", result.Payload)
	}
	if result.Payload["duration"] != 15 {
		t.Errorf("reported duration = %v, want 15", result.Payload["duration"])
	}

	if len(pub.frames) != 1 {
		t.Fatalf("published %d frames, want 1", len(pub.frames))
	}
	if pub.frames[0].topic != command.TopicTimer {
		t.Errorf("topic = %q, want %q", pub.frames[0].topic, command.TopicTimer)
	}

	var wire map[string]interface{}
	if err := json.Unmarshal(pub.frames[0].payload, &wire); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if wire["duration"] != float64(15) {
		t.Errorf("wire duration = %v, want 15", wire["duration"])
	}
	if wire["mode"] != "speaking" {
		t.Errorf("wire mode = %v, want speaking", wire["mode"])
	}
}

func TestStartTimerSpeakingZeroDurationStillSucceeds(t *testing.T) {
	d := dispatcherWithTools(t)
	sess := &stubSession{pub: &recordingPublisher{}}

	// The pin happens before the positive-duration check, so even a
	// nonsense speaking duration starts a 15 second timer.
	result := d.Dispatch(context.Background(), sess, tool.FunctionCall{
		CallID:       "call-1",
		Name:         "startTimer",
		RawArguments: `{"duration":0,"purpose":"speaking"}`,
	})

	if result.IsError {
		t.Fatalf("Dispatch() failed: %v", result.Payload)
	}
	if result.Payload["duration"] != 15 {
		t.Errorf("duration = %v, want 15", result.Payload["duration"])
	}
}

func TestStartTimerRejectsNonPositiveDuration(t *testing.T) {
	d := dispatcherWithTools(t)

	for _, raw := range []string{
		`{"duration":0,"purpose":"preparation"}`,
		`{"duration":-5,"purpose":"preparation"}`,
	} {
		pub := &recordingPublisher{}
		sess := &stubSession{pub: pub}
		result := d.Dispatch(context.Background(), sess, tool.FunctionCall{
			CallID:       "call-1",
			Name:         "startTimer",
			RawArguments: raw,
		})

		if !result.IsError {
			t.Errorf("%s: non-positive preparation duration should be an error result", raw)
		}
		if result.Payload["success"] != false {
			t.Errorf("%s: success = %v, want false", raw, result.Payload["success"])
		}
		if result.Payload["message"] != "Invalid duration provided. Must be a positive integer." {
			t.Errorf("%s: message = %v", raw, result.Payload["message"])
		}
		if len(pub.frames) != 0 {
			t.Errorf("%s: rejected call must not publish a timer command", raw)
		}
	}
}

func TestStartTimerRejectsUnknownPurpose(t *testing.T) {
	d := dispatcherWithTools(t)
	sess := &stubSession{pub: &recordingPublisher{}}

	result := d.Dispatch(context.Background(), sess, tool.FunctionCall{
		CallID:       "call-1",
		Name:         "startTimer",
		RawArguments: `{"duration":30,"purpose":"stalling"}`,
	})

	// The schema enum catches this before the handler runs.
	if !result.IsError {
		t.Error("unknown purpose should fail validation")
	}
}

func TestStartTimerNoTransport(t *testing.T) {
	d := dispatcherWithTools(t)
	sess := &stubSession{pub: nil}

	result := d.Dispatch(context.Background(), sess, tool.FunctionCall{
		CallID:       "call-1",
		Name:         "startTimer",
		RawArguments: `{"duration":15,"purpose":"preparation"}`,
	})

	if result.IsError {
		t.Fatal("delivery failure is reported as data")
	}
	if result.Payload["success"] != false {
		t.Errorf("success = %v, want false when no transport is attached", result.Payload["success"])
	}
}

func TestStopTimer(t *testing.T) {
	d := dispatcherWithTools(t)
	pub := &recordingPublisher{}
	sess := &stubSession{pub: pub}

	result := d.Dispatch(context.Background(), sess, tool.FunctionCall{
		CallID: "call-1",
		Name:   "stopTimer",
	})

	if result.IsError {
		t.Fatalf("Dispatch() failed: %v", result.Payload)
	}

	var wire map[string]interface{}
	if err := json.Unmarshal(pub.frames[0].payload, &wire); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if wire["action"] != "stop" {
		t.Errorf("action = %v, want stop", wire["action"])
	}
	if _, ok := wire["duration"]; ok {
		t.Error("stop command must not carry a duration")
	}
}

func TestNavigateTo(t *testing.T) {
	d := dispatcherWithTools(t)
	pub := &recordingPublisher{}
	sess := &stubSession{pub: pub}

	result := d.Dispatch(context.Background(), sess, tool.FunctionCall{
		CallID:       "call-1",
		Name:         "navigateTo",
		RawArguments: `{"destination":"writing"}`,
	})

	if result.IsError {
		t.Fatalf("Dispatch() failed: %v", result.Payload)
	}
	if pub.frames[0].topic != command.TopicUI {
		t.Errorf("topic = %q, want %q", pub.frames[0].topic, command.TopicUI)
	}

	var wire map[string]interface{}
	if err := json.Unmarshal(pub.frames[0].payload, &wire); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	data := wire["data"].(map[string]interface{})
	if data["destination"] != "writing" {
		t.Errorf("destination = %v, want writing", data["destination"])
	}
}

func TestNavigateToRejectsUnknownDestination(t *testing.T) {
	d := dispatcherWithTools(t)
	sess := &stubSession{pub: &recordingPublisher{}}

	result := d.Dispatch(context.Background(), sess, tool.FunctionCall{
		CallID:       "call-1",
		Name:         "navigateTo",
		RawArguments: `{"destination":"mars"}`,
	})

	if !result.IsError {
		t.Error("destination outside the enum should fail validation")
	}
}

func TestRecordTaskCompletion(t *testing.T) {
	d := dispatcherWithTools(t)
	pub := &recordingPublisher{}
	sess := &stubSession{pub: pub}

	result := d.Dispatch(context.Background(), sess, tool.FunctionCall{
		CallID:       "call-1",
		Name:         "recordTaskCompletion",
		RawArguments: `{"score":4,"completionNotes":"Good structure, minor hesitations"}`,
	})

	if result.IsError {
		t.Fatalf("Dispatch() failed: %v", result.Payload)
	}
	if result.Payload["score"] != 4 {
		t.Errorf("score = %v, want 4", result.Payload["score"])
	}
	if len(sess.turns) != 1 {
		t.Errorf("completion should be recorded in history, got %v", sess.turns)
	}
	// The UI gets a notification on the ui topic.
	if len(pub.frames) != 1 || pub.frames[0].topic != command.TopicUI {
		t.Errorf("frames = %+v, want one ui notification", pub.frames)
	}
}

func TestRecordTaskCompletionScoreBounds(t *testing.T) {
	d := dispatcherWithTools(t)

	for _, raw := range []string{`{"score":0}`, `{"score":6}`} {
		sess := &stubSession{pub: &recordingPublisher{}}
		result := d.Dispatch(context.Background(), sess, tool.FunctionCall{
			CallID:       "call-1",
			Name:         "recordTaskCompletion",
			RawArguments: raw,
		})
		if !result.IsError {
			t.Errorf("score outside 1-5 should be an error result: %s -> %v", raw, result.Payload)
		}
	}
}

func TestGetSpeechFeedbackUnconfigured(t *testing.T) {
	d := dispatcherWithTools(t)
	sess := &stubSession{pub: &recordingPublisher{}}

	result := d.Dispatch(context.Background(), sess, tool.FunctionCall{
		CallID: "call-1",
		Name:   "getSpeechFeedback",
	})

	if result.IsError {
		t.Fatalf("Dispatch() failed: %v", result.Payload)
	}
	if result.Payload["feedback"] == "" {
		t.Error("unconfigured feedback should still return guidance")
	}
}

func TestCanvasTools(t *testing.T) {
	d := dispatcherWithTools(t)
	pub := &recordingPublisher{}
	sess := &stubSession{pub: pub}

	save := d.Dispatch(context.Background(), sess, tool.FunctionCall{CallID: "c1", Name: "saveCanvas"})
	load := d.Dispatch(context.Background(), sess, tool.FunctionCall{
		CallID:       "c2",
		Name:         "loadCanvas",
		RawArguments: `{"canvasId":"canvas-7"}`,
	})

	if save.IsError || load.IsError {
		t.Fatalf("canvas dispatches failed: %v / %v", save.Payload, load.Payload)
	}
	if len(pub.frames) != 2 {
		t.Fatalf("published %d frames, want 2", len(pub.frames))
	}
	for _, f := range pub.frames {
		if f.topic != command.TopicCanvas {
			t.Errorf("topic = %q, want %q", f.topic, command.TopicCanvas)
		}
	}
}
