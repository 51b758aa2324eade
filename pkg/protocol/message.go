// Package protocol defines the data-channel message types exchanged between
// the agent server and client applications over a room's data channel.
// This package is shared between the server and the web UI contract.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of data-channel message
type MessageType string

const (
	// Client → Agent messages
	TypeChangeContext  MessageType = "CHANGE_CONTEXT"  // Swap persona/tool set for the room
	TypeUserTranscript MessageType = "USER_TRANSCRIPT" // Final user speech transcript

	// Agent → Client messages
	TypeTimer         MessageType = "timer"          // Timer control for the UI countdown widget
	TypeTimerControl  MessageType = "timer_control"  // Wrapped timer command (stop/pause)
	TypeNotification  MessageType = "notification"   // Transient UI notification
	TypeCanvasControl MessageType = "canvas_control" // Canvas save/load/clear/highlight
	TypeTranscript    MessageType = "transcript"     // Streamed agent response text
	TypeNavigation    MessageType = "navigation"     // Route the client to a practice section

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all data-channel messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"timestamp,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Client → Agent payloads
// =============================================================================

// ChangeContextPayload requests a persona/tool swap for the room.
// PersonaIdentity, when set, wins over PageType resolution.
type ChangeContextPayload struct {
	PageType        string `json:"pageType"`
	TaskID          string `json:"taskId,omitempty"`
	PersonaIdentity string `json:"personaIdentity,omitempty"`
}

// UserTranscriptPayload carries a finalized user speech transcript.
type UserTranscriptPayload struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	Final    bool   `json:"final"`
}

// =============================================================================
// Agent → Client payloads
// =============================================================================

// TimerEnvelope is the direct timer wire format the UI countdown widget
// expects. Unlike the other commands it is not wrapped in a data envelope.
type TimerEnvelope struct {
	Type     MessageType `json:"type"` // always TypeTimer
	Action   string      `json:"action"`
	Duration int         `json:"duration,omitempty"` // seconds, start only
	Mode     string      `json:"mode,omitempty"`     // "preparation" or "speaking"
}

// Timer actions.
const (
	TimerStart  = "start"
	TimerStop   = "stop"
	TimerPause  = "pause"
	TimerResume = "resume"
)

// NotificationPayload is a transient UI notification.
type NotificationPayload struct {
	Message  string `json:"message"`
	Level    string `json:"level"`              // "info", "warning", "error", "success"
	Duration int    `json:"duration,omitempty"` // display time in ms
	Source   string `json:"source,omitempty"`
}

// CanvasPayload controls the shared drawing canvas.
type CanvasPayload struct {
	Action string         `json:"action"` // "save", "load", "clear", "highlight"
	Data   map[string]any `json:"canvas_data,omitempty"`
}

// NavigationPayload routes the client to another practice section.
type NavigationPayload struct {
	Destination string `json:"destination"`
}

// TranscriptPayload streams agent response text to the client.
type TranscriptPayload struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
	Role  string `json:"role,omitempty"` // "agent" or "user"
}

// =============================================================================
// Bidirectional payloads
// =============================================================================

// PingPayload contains ping information
type PingPayload struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongPayload contains the pong response
type PongPayload struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
