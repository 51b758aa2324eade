package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shodh-ai/voxagent/internal/httpc"
	"github.com/shodh-ai/voxagent/internal/log"
	"github.com/shodh-ai/voxagent/pkg/command"
	"github.com/shodh-ai/voxagent/pkg/protocol"
	"github.com/shodh-ai/voxagent/pkg/tool"
)

// speakingTimerSeconds is the fixed duration for speaking-phase timers.
// The model is told 45 seconds in the tool description, but the practice
// format pins the actual countdown; the override happens before the
// positive-duration check so a speaking call can never fail validation
// on duration.
const speakingTimerSeconds = 15

// ToolConfig points the tools at their external collaborators. Empty
// URLs degrade to local behavior.
type ToolConfig struct {
	// FeedbackURL is the speech analysis service endpoint.
	FeedbackURL string

	// ProgressURL is the progress tracking service endpoint.
	ProgressURL string
}

// Tools builds the full tool catalog. Personas select subsets of these
// by name; registration order is advertisement order.
func Tools(cfg ToolConfig) []tool.Descriptor {
	return []tool.Descriptor{
		{
			Name:        "startTimer",
			Description: "Starts a countdown timer for the student. Use this for preparation time (15 seconds) or speaking time (45 seconds).",
			Parameters: tool.Schema{
				Properties: map[string]tool.Property{
					"duration": {
						Type:        "integer",
						Description: "Duration of the timer in seconds. Typically 15 seconds for preparation time or 45 seconds for speaking time.",
					},
					"purpose": {
						Type:        "string",
						Description: "Purpose of the timer - preparation or speaking.",
						Enum:        []string{"preparation", "speaking"},
					},
				},
				Required: []string{"duration", "purpose"},
			},
			Handler: handleStartTimer,
		},
		{
			Name:        "stopTimer",
			Description: "Stops the currently running timer.",
			Parameters:  tool.Schema{},
			Handler:     handleStopTimer,
		},
		{
			Name:        "getSpeechFeedback",
			Description: "Retrieves automated feedback about the student's speech, including fluency, accuracy, and content analysis.",
			Parameters:  tool.Schema{},
			Handler:     feedbackHandler(cfg.FeedbackURL),
		},
		{
			Name:        "recordTaskCompletion",
			Description: "Records that the student has completed this speaking task and updates their progress.",
			Parameters: tool.Schema{
				Properties: map[string]tool.Property{
					"score": {
						Type:        "integer",
						Description: "Estimated score for the student's performance on a scale of 1-5.",
						Minimum:     tool.MinOf(1),
					},
					"completionNotes": {
						Type:        "string",
						Description: "Brief notes about the student's performance for progress tracking.",
					},
				},
				Required: []string{"score"},
			},
			Handler: completionHandler(cfg.ProgressURL),
		},
		{
			Name:        "navigateTo",
			Description: "Navigate the student to a different practice section or page.",
			Parameters: tool.Schema{
				Properties: map[string]tool.Property{
					"destination": {
						Type:        "string",
						Description: "The destination page to navigate to.",
						Enum:        []string{"speaking", "writing", "reading", "listening", "vocabulary", "home"},
					},
				},
				Required: []string{"destination"},
			},
			Handler: handleNavigateTo,
		},
		{
			Name:        "saveCanvas",
			Description: "Saves the current state of the shared drawing canvas.",
			Parameters:  tool.Schema{},
			Handler:     canvasHandler("save"),
		},
		{
			Name:        "loadCanvas",
			Description: "Loads a previously saved canvas state onto the shared canvas.",
			Parameters: tool.Schema{
				Properties: map[string]tool.Property{
					"canvasId": {
						Type:        "string",
						Description: "Identifier of the saved canvas to load.",
					},
				},
			},
			Handler: canvasHandler("load"),
		},
	}
}

// handleStartTimer sends a start command to the countdown widget.
// Speaking timers are pinned to the fixed practice duration before the
// duration is validated, so the model's requested value only matters for
// preparation phases. Invalid input is a handler error so the model sees
// an error result; only delivery failures come back as unsuccessful data.
func handleStartTimer(ctx context.Context, sess tool.Session, args map[string]any) (map[string]any, error) {
	duration, _ := tool.IntArg(args, "duration")
	purpose := tool.StringArg(args, "purpose", "speaking")

	if purpose == "speaking" {
		log.Component("tools").Info("pinning speaking timer duration",
			"requested", duration, "fixed", speakingTimerSeconds)
		duration = speakingTimerSeconds
	}

	if duration <= 0 {
		return nil, errors.New("Invalid duration provided. Must be a positive integer.")
	}
	if purpose != "preparation" && purpose != "speaking" {
		return nil, errors.New("Invalid purpose provided. Must be 'preparation' or 'speaking'.")
	}

	if !command.SendTimer(ctx, sess.Transport(), protocol.TimerStart, duration, purpose) {
		return map[string]any{
			"success": false,
			"message": "Failed to send timer command to UI",
		}, nil
	}

	return map[string]any{
		"success":          true,
		"message":          fmt.Sprintf("Sent command to start %s timer for %d seconds", purpose, duration),
		"timerCommandSent": true,
		"duration":         duration,
		"purpose":          purpose,
	}, nil
}

func handleStopTimer(ctx context.Context, sess tool.Session, args map[string]any) (map[string]any, error) {
	if !command.SendTimer(ctx, sess.Transport(), protocol.TimerStop, 0, "") {
		return map[string]any{
			"success": false,
			"message": "Failed to send timer command to UI",
		}, nil
	}
	return map[string]any{
		"success": true,
		"message": "Timer stopped",
	}, nil
}

// feedbackHandler fetches speech analysis from the feedback service, or
// returns a local placeholder when none is configured.
func feedbackHandler(url string) tool.Handler {
	return func(ctx context.Context, sess tool.Session, args map[string]any) (map[string]any, error) {
		if url == "" {
			return map[string]any{
				"success":  true,
				"feedback": "Automated speech analysis is not configured for this session. Rely on your own assessment of the student's fluency, accuracy, and content.",
			}, nil
		}

		request := map[string]any{
			"room":     sess.RoomID(),
			"pageType": sess.PageType(),
		}
		body, err := json.Marshal(request)
		if err != nil {
			return nil, fmt.Errorf("encoding feedback request: %w", err)
		}

		resp, err := httpc.Post(url, "application/json", body)
		if err != nil {
			return nil, fmt.Errorf("feedback service unreachable: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("feedback service returned status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading feedback response: %w", err)
		}

		var feedback map[string]any
		if err := json.Unmarshal(data, &feedback); err != nil {
			return nil, fmt.Errorf("decoding feedback response: %w", err)
		}
		feedback["success"] = true
		return feedback, nil
	}
}

// completionHandler records task completion, forwarding to the progress
// service when configured and always notifying the UI.
func completionHandler(url string) tool.Handler {
	return func(ctx context.Context, sess tool.Session, args map[string]any) (map[string]any, error) {
		score, ok := tool.IntArg(args, "score")
		if !ok || score < 1 || score > 5 {
			return nil, errors.New("Invalid score provided. Must be an integer between 1 and 5.")
		}
		notes := tool.StringArg(args, "completionNotes", "")

		if url != "" {
			record := map[string]any{
				"room":     sess.RoomID(),
				"pageType": sess.PageType(),
				"score":    score,
				"notes":    notes,
			}
			body, err := json.Marshal(record)
			if err != nil {
				return nil, fmt.Errorf("encoding completion record: %w", err)
			}
			resp, err := httpc.Post(url, "application/json", body)
			if err != nil {
				return nil, fmt.Errorf("progress service unreachable: %w", err)
			}
			resp.Body.Close()
			if resp.StatusCode >= 300 {
				return nil, fmt.Errorf("progress service returned status %d", resp.StatusCode)
			}
		}

		sess.AppendTurn("system", fmt.Sprintf("Task completed with score %d/5", score))
		command.SendNotification(ctx, sess.Transport(), "Task completion recorded", "success")

		return map[string]any{
			"success": true,
			"message": fmt.Sprintf("Recorded task completion with score %d", score),
			"score":   score,
		}, nil
	}
}

func handleNavigateTo(ctx context.Context, sess tool.Session, args map[string]any) (map[string]any, error) {
	destination := tool.StringArg(args, "destination", "")

	if !command.Send(ctx, sess.Transport(), command.TopicUI, protocol.TypeNavigation, protocol.NavigationPayload{
		Destination: destination,
	}) {
		return map[string]any{
			"success": false,
			"message": "Failed to send navigation command to UI",
		}, nil
	}

	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Navigating to %s", destination),
	}, nil
}

// canvasHandler builds a save or load handler for the shared canvas.
func canvasHandler(action string) tool.Handler {
	return func(ctx context.Context, sess tool.Session, args map[string]any) (map[string]any, error) {
		var data map[string]any
		if canvasID := tool.StringArg(args, "canvasId", ""); canvasID != "" {
			data = map[string]any{"canvasId": canvasID}
		}

		if !command.SendCanvas(ctx, sess.Transport(), action, data) {
			return map[string]any{
				"success": false,
				"message": "Failed to send canvas command to UI",
			}, nil
		}
		return map[string]any{
			"success": true,
			"message": fmt.Sprintf("Canvas %s command sent", action),
		}, nil
	}
}
