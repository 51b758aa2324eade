package protocol

import "encoding/json"

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewChangeContextMessage creates a context-change request
func NewChangeContextMessage(pageType, taskID, personaIdentity string) (*Message, error) {
	return NewMessage(TypeChangeContext, ChangeContextPayload{
		PageType:        pageType,
		TaskID:          taskID,
		PersonaIdentity: personaIdentity,
	})
}

// NewUserTranscriptMessage creates a finalized user transcript message
func NewUserTranscriptMessage(text, language string) (*Message, error) {
	return NewMessage(TypeUserTranscript, UserTranscriptPayload{
		Text:     text,
		Language: language,
		Final:    true,
	})
}

// NewNotificationMessage creates a UI notification message
func NewNotificationMessage(message, level string, durationMs int) (*Message, error) {
	return NewMessage(TypeNotification, NotificationPayload{
		Message:  message,
		Level:    level,
		Duration: durationMs,
		Source:   "agent",
	})
}

// NewCanvasMessage creates a canvas control message
func NewCanvasMessage(action string, data map[string]any) (*Message, error) {
	return NewMessage(TypeCanvasControl, CanvasPayload{
		Action: action,
		Data:   data,
	})
}

// NewTranscriptMessage creates a streamed transcript chunk
func NewTranscriptMessage(text string, final bool, role string) (*Message, error) {
	return NewMessage(TypeTranscript, TranscriptPayload{
		Text:  text,
		Final: final,
		Role:  role,
	})
}

// NewTimerEnvelope builds the direct timer wire format. Duration and mode are
// only attached to start commands, matching what the UI widget expects.
func NewTimerEnvelope(action string, duration int, mode string) TimerEnvelope {
	env := TimerEnvelope{
		Type:   TypeTimer,
		Action: action,
	}
	if action == TimerStart {
		env.Duration = duration
		env.Mode = mode
	}
	return env
}

// Bytes returns the JSON-encoded timer envelope
func (t TimerEnvelope) Bytes() ([]byte, error) {
	return json.Marshal(t)
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetChangeContext extracts a context-change payload from a message
func (m *Message) GetChangeContext() (*ChangeContextPayload, error) {
	var data ChangeContextPayload
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetUserTranscript extracts a user transcript payload from a message
func (m *Message) GetUserTranscript() (*UserTranscriptPayload, error) {
	var data UserTranscriptPayload
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetNotification extracts a notification payload from a message
func (m *Message) GetNotification() (*NotificationPayload, error) {
	var data NotificationPayload
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCanvas extracts a canvas payload from a message
func (m *Message) GetCanvas() (*CanvasPayload, error) {
	var data CanvasPayload
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTranscript extracts a transcript payload from a message
func (m *Message) GetTranscript() (*TranscriptPayload, error) {
	var data TranscriptPayload
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPing extracts ping data from a message
func (m *Message) GetPing() (*PingPayload, error) {
	var data PingPayload
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
