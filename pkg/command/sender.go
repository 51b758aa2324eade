// Package command publishes agent-initiated UI commands onto the room's
// data topics. Senders never return errors to their callers: a command
// that cannot be delivered is logged and reported as a boolean so tool
// handlers can tell the model the truth without blowing up the dispatch.
package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/shodh-ai/voxagent/internal/log"
	"github.com/shodh-ai/voxagent/internal/metrics"
	"github.com/shodh-ai/voxagent/pkg/protocol"
)

// Topics the frontend subscribes to.
const (
	TopicTimer      = "agent-timer"
	TopicTools      = "agent-tools"
	TopicUI         = "agent-ui"
	TopicCanvas     = "agent-canvas"
	TopicTranscript = "agent-transcript"
)

// PublishTimeout bounds a single publish attempt.
const PublishTimeout = 5 * time.Second

// Publisher is the transport boundary commands cross on their way to the
// frontend. Implemented by room.Room.
type Publisher interface {
	PublishData(ctx context.Context, payload []byte, topic string, reliable bool) error
}

// Send publishes a typed command envelope on a topic. Returns whether the
// publish succeeded; a nil publisher (session without a live room) counts
// as a failure, not a crash.
func Send(ctx context.Context, pub Publisher, topic string, msgType protocol.MessageType, data any) bool {
	logger := log.Component("command")

	if pub == nil {
		logger.Warn("no publisher attached, dropping command", "topic", topic, "type", msgType)
		metrics.CommandsSent.WithLabelValues(topic, "dropped").Inc()
		return false
	}

	msg, err := protocol.NewMessage(msgType, data)
	if err != nil {
		logger.Error("failed to encode command", "topic", topic, "type", msgType, "error", err)
		metrics.CommandsSent.WithLabelValues(topic, "error").Inc()
		return false
	}
	payload, err := msg.Bytes()
	if err != nil {
		logger.Error("failed to serialize command", "topic", topic, "type", msgType, "error", err)
		metrics.CommandsSent.WithLabelValues(topic, "error").Inc()
		return false
	}

	return publish(ctx, pub, topic, payload, logger)
}

// SendTimer publishes a timer control command. Timer envelopes bypass the
// standard wrapper: the countdown widget parses the flat shape directly.
func SendTimer(ctx context.Context, pub Publisher, action string, duration int, mode string) bool {
	logger := log.Component("command")

	if pub == nil {
		logger.Warn("no publisher attached, dropping timer command", "action", action)
		metrics.CommandsSent.WithLabelValues(TopicTimer, "dropped").Inc()
		return false
	}

	env := protocol.NewTimerEnvelope(action, duration, mode)
	payload, err := env.Bytes()
	if err != nil {
		logger.Error("failed to serialize timer command", "action", action, "error", err)
		metrics.CommandsSent.WithLabelValues(TopicTimer, "error").Inc()
		return false
	}

	logger.Info("sending timer command", "action", action, "duration", duration, "mode", mode)
	return publish(ctx, pub, TopicTimer, payload, logger)
}

// SendNotification publishes a toast-style notification to the UI topic.
func SendNotification(ctx context.Context, pub Publisher, message, level string) bool {
	return Send(ctx, pub, TopicUI, protocol.TypeNotification, protocol.NotificationPayload{
		Message: message,
		Level:   level,
		Source:  "agent",
	})
}

// SendCanvas publishes a canvas control command.
func SendCanvas(ctx context.Context, pub Publisher, action string, data map[string]any) bool {
	return Send(ctx, pub, TopicCanvas, protocol.TypeCanvasControl, protocol.CanvasPayload{
		Action: action,
		Data:   data,
	})
}

// SendTranscript streams a transcript chunk to the transcript topic.
func SendTranscript(ctx context.Context, pub Publisher, text string, final bool, role string) bool {
	return Send(ctx, pub, TopicTranscript, protocol.TypeTranscript, protocol.TranscriptPayload{
		Text:  text,
		Final: final,
		Role:  role,
	})
}

func publish(ctx context.Context, pub Publisher, topic string, payload []byte, logger *slog.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, PublishTimeout)
	defer cancel()

	if err := pub.PublishData(ctx, payload, topic, true); err != nil {
		logger.Warn("publish failed", "topic", topic, "error", err)
		metrics.CommandsSent.WithLabelValues(topic, "error").Inc()
		return false
	}
	metrics.CommandsSent.WithLabelValues(topic, "ok").Inc()
	return true
}
