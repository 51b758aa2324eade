package protocol

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "change context message",
			msgType: TypeChangeContext,
			data:    ChangeContextPayload{PageType: "speakingpage", TaskID: "task-1"},
			wantErr: false,
		},
		{
			name:    "notification message",
			msgType: TypeNotification,
			data:    NotificationPayload{Message: "Timer started", Level: "info"},
			wantErr: false,
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if msg == nil && !tt.wantErr {
				t.Error("NewMessage() returned nil message")
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestChangeContextRoundTrip(t *testing.T) {
	msg, err := NewChangeContextMessage("speakingpage", "task-42", "speaking-teacher-default")
	if err != nil {
		t.Fatalf("NewChangeContextMessage() error = %v", err)
	}

	bytes, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(bytes)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeChangeContext {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeChangeContext)
	}

	ctx, err := parsed.GetChangeContext()
	if err != nil {
		t.Fatalf("GetChangeContext() error = %v", err)
	}
	if ctx.PageType != "speakingpage" {
		t.Errorf("PageType = %q, want %q", ctx.PageType, "speakingpage")
	}
	if ctx.TaskID != "task-42" {
		t.Errorf("TaskID = %q, want %q", ctx.TaskID, "task-42")
	}
	if ctx.PersonaIdentity != "speaking-teacher-default" {
		t.Errorf("PersonaIdentity = %q, want %q", ctx.PersonaIdentity, "speaking-teacher-default")
	}
}

// The UI countdown widget parses the timer envelope directly, so the exact
// wire shape matters: a flat object, no data wrapper, no duration on stop.
func TestTimerEnvelopeWireShape(t *testing.T) {
	start := NewTimerEnvelope(TimerStart, 15, "speaking")
	data, err := start.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if raw["type"] != "timer" {
		t.Errorf(`type = %v, want "timer"`, raw["type"])
	}
	if raw["action"] != "start" {
		t.Errorf(`action = %v, want "start"`, raw["action"])
	}
	if raw["duration"] != float64(15) {
		t.Errorf("duration = %v, want 15", raw["duration"])
	}
	if raw["mode"] != "speaking" {
		t.Errorf(`mode = %v, want "speaking"`, raw["mode"])
	}
	if _, ok := raw["data"]; ok {
		t.Error("timer envelope must not be wrapped in a data field")
	}

	stop := NewTimerEnvelope(TimerStop, 30, "preparation")
	data, err = stop.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	raw = map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := raw["duration"]; ok {
		t.Error("stop command must not carry a duration")
	}
	if _, ok := raw["mode"]; ok {
		t.Error("stop command must not carry a mode")
	}
}

func TestParseMessageInvalid(t *testing.T) {
	if _, err := ParseMessage([]byte("not json")); err == nil {
		t.Error("ParseMessage() should fail on invalid JSON")
	}
}

func TestParseDataNil(t *testing.T) {
	msg := &Message{Type: TypePing, Timestamp: time.Now().UnixMilli()}
	var payload PingPayload
	if err := msg.ParseData(&payload); err != nil {
		t.Errorf("ParseData() on nil data should be a no-op, got %v", err)
	}
}

func TestTranscriptRoundTrip(t *testing.T) {
	msg, err := NewTranscriptMessage("Let's begin the speaking task.", false, "agent")
	if err != nil {
		t.Fatalf("NewTranscriptMessage() error = %v", err)
	}

	bytes, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(bytes)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	tr, err := parsed.GetTranscript()
	if err != nil {
		t.Fatalf("GetTranscript() error = %v", err)
	}
	if tr.Text != "Let's begin the speaking task." {
		t.Errorf("Text = %q", tr.Text)
	}
	if tr.Final {
		t.Error("Final = true, want false")
	}
	if tr.Role != "agent" {
		t.Errorf("Role = %q, want agent", tr.Role)
	}
}
