package model

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shodh-ai/voxagent/internal/log"
	"github.com/shodh-ai/voxagent/internal/metrics"
	"github.com/shodh-ai/voxagent/pkg/tool"
)

const (
	// Gemini Live API WebSocket endpoint
	geminiLiveURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// Default model for Gemini Live
	geminiDefaultModel = "models/gemini-2.0-flash-exp"

	// chunkBuffer sizes the per-turn text/audio channels
	chunkBuffer = 64

	// pingPeriod keeps the websocket alive through idle stretches
	pingPeriod = 30 * time.Second
)

// Gemini implements Backend over Google's Gemini Live API. A single
// bidirectional websocket carries the session: setup and tool results go
// out, server content and function calls come back.
type Gemini struct {
	apiKey string
	model  string

	// WebSocket connection
	ws   *websocket.Conn
	wsMu sync.Mutex

	// Session state. gen counts connections so a read loop left over
	// from a cycled connection can tell it has been superseded.
	mu        sync.RWMutex
	connected bool
	closed    bool
	gen       int
	cancel    context.CancelFunc

	// Active content turn, nil between turns
	turn *liveTurn

	// Callbacks
	onGeneration func(GenerationEvent)
	onError      func(error)
}

// liveTurn tracks the channels of the content turn currently streaming.
type liveTurn struct {
	id    string
	text  chan TextChunk
	audio chan AudioChunk
}

// GeminiOption tweaks client construction.
type GeminiOption func(*Gemini)

// WithModel overrides the default Gemini model.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) { g.model = model }
}

// NewGemini creates a Gemini Live backend.
func NewGemini(apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	g := &Gemini{
		apiKey: apiKey,
		model:  geminiDefaultModel,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// OnGeneration sets the generation event callback.
func (g *Gemini) OnGeneration(fn func(GenerationEvent)) {
	g.onGeneration = fn
}

// OnError sets the error callback.
func (g *Gemini) OnError(fn func(error)) {
	g.onError = fn
}

// Start dials the Live API and configures the session.
func (g *Gemini) Start(ctx context.Context, sess Session) error {
	g.mu.Lock()
	if g.connected {
		g.mu.Unlock()
		return ErrAlreadyStarted
	}
	g.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel

	url := fmt.Sprintf("%s?key=%s", geminiLiveURL, g.apiKey)

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.DialContext(runCtx, url, header)
	if err != nil {
		cancel()
		return fmt.Errorf("model/gemini: failed to connect: %w", err)
	}

	g.mu.Lock()
	g.ws = ws
	g.connected = true
	g.closed = false
	g.gen++
	gen := g.gen
	g.mu.Unlock()

	if err := g.sendJSON(setupPayload(g.model, sess)); err != nil {
		g.Stop()
		return fmt.Errorf("model/gemini: failed to configure session: %w", err)
	}

	go g.handleMessages(ws, gen)
	go g.keepalive(runCtx)

	log.Component("gemini").Info("live session connected", "model", g.model)
	return nil
}

// Stop tears the session down.
func (g *Gemini) Stop() error {
	g.mu.Lock()
	alreadyClosed := g.closed
	g.closed = true
	g.connected = false
	g.closeTurnLocked()
	ws := g.ws
	g.mu.Unlock()

	if g.cancel != nil {
		g.cancel()
	}
	if ws != nil && !alreadyClosed {
		return ws.Close()
	}
	return nil
}

// IsConnected reports whether the session is live.
func (g *Gemini) IsConnected() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connected && !g.closed
}

// SubmitToolResult returns one tool result to the model.
func (g *Gemini) SubmitToolResult(ctx context.Context, result tool.Result) error {
	msg := map[string]any{
		"tool_response": map[string]any{
			"function_responses": []map[string]any{
				{
					"id":       result.CallID,
					"name":     result.Name,
					"response": result.Payload,
				},
			},
		},
	}
	return g.sendJSON(msg)
}

// Continue signals the model to resume generating after tool results.
func (g *Gemini) Continue(ctx context.Context) error {
	return g.sendJSON(map[string]any{
		"client_content": map[string]any{
			"turn_complete": true,
		},
	})
}

// Say injects an instruction turn.
func (g *Gemini) Say(ctx context.Context, instructions string) error {
	return g.sendJSON(map[string]any{
		"client_content": map[string]any{
			"turns": []map[string]any{
				{
					"role": "user",
					"parts": []map[string]any{
						{"text": instructions},
					},
				},
			},
			"turn_complete": true,
		},
	})
}

// SendAudio streams one chunk of user audio into the session.
// Gemini expects 16kHz mono PCM16.
func (g *Gemini) SendAudio(pcm16 []byte) error {
	msg := map[string]any{
		"realtime_input": map[string]any{
			"media_chunks": []map[string]any{
				{
					"data":      base64.StdEncoding.EncodeToString(pcm16),
					"mime_type": "audio/pcm",
				},
			},
		},
	}
	return g.sendJSON(msg)
}

// UpdateSession re-advertises the persona and tool set. The Live API has
// no in-place session update, so the connection is cycled.
func (g *Gemini) UpdateSession(ctx context.Context, sess Session) error {
	if err := g.Stop(); err != nil {
		log.Component("gemini").Warn("error closing session for update", "error", err)
	}
	return g.Start(ctx, sess)
}

// setupPayload builds the initial Live API configuration message.
func setupPayload(model string, sess Session) map[string]any {
	voice := sess.Voice
	if voice == "" {
		voice = "Puck"
	}

	generationConfig := map[string]any{
		"response_modalities": []string{"AUDIO"},
		"speech_config": map[string]any{
			"voice_config": map[string]any{
				"prebuilt_voice_config": map[string]any{
					"voice_name": voice,
				},
			},
		},
	}
	if sess.Temperature > 0 {
		generationConfig["temperature"] = sess.Temperature
	}

	setup := map[string]any{
		"model":             model,
		"generation_config": generationConfig,
		"system_instruction": map[string]any{
			"parts": []map[string]any{
				{"text": sess.Instructions},
			},
		},
	}

	if len(sess.Tools) > 0 {
		setup["tools"] = []map[string]any{
			{"function_declarations": sess.Tools},
		}
	}

	return map[string]any{"setup": setup}
}

// handleMessages processes incoming messages from one connection. The
// loop is pinned to the generation it was started for; once a newer
// connection exists the loop exits without touching shared state.
func (g *Gemini) handleMessages(ws *websocket.Conn, gen int) {
	for {
		g.mu.RLock()
		stale := g.closed || g.gen != gen
		g.mu.RUnlock()

		if stale {
			return
		}

		_, message, err := ws.ReadMessage()
		if err != nil {
			g.readFailed(gen, err)
			return
		}

		var msg map[string]any
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Component("gemini").Warn("failed to parse message", "error", err)
			continue
		}

		g.handleMessage(msg)
	}
}

// readFailed reports a read-loop failure. Errors from a closed or
// superseded connection are expected fallout of Stop or a session cycle
// and never reach the error callback; the live generation's turn is only
// closed when the failure belongs to it.
func (g *Gemini) readFailed(gen int, err error) {
	g.mu.Lock()
	stale := g.closed || g.gen != gen
	if !stale {
		g.closeTurnLocked()
	}
	g.mu.Unlock()

	if stale {
		log.Component("gemini").Debug("read loop for superseded connection exited", "error", err)
		return
	}
	if g.onError != nil {
		g.onError(err)
	}
}

// handleMessage processes a single Live API message.
func (g *Gemini) handleMessage(msg map[string]any) {
	if _, ok := msg["setupComplete"]; ok {
		log.Component("gemini").Debug("live session ready")
		return
	}

	if serverContent, ok := msg["serverContent"].(map[string]any); ok {
		g.handleServerContent(serverContent)
		return
	}

	if toolCall, ok := msg["toolCall"].(map[string]any); ok {
		g.handleToolCall(toolCall)
		return
	}

	if _, ok := msg["toolCallCancellation"]; ok {
		log.Component("gemini").Debug("tool call cancelled")
		return
	}
}

// handleServerContent processes text/audio parts from the model.
func (g *Gemini) handleServerContent(content map[string]any) {
	if turnComplete, ok := content["turnComplete"].(bool); ok && turnComplete {
		g.mu.Lock()
		g.closeTurnLocked()
		g.mu.Unlock()
		return
	}

	if interrupted, ok := content["interrupted"].(bool); ok && interrupted {
		// User barged in; the current turn is over.
		g.mu.Lock()
		g.closeTurnLocked()
		g.mu.Unlock()
		return
	}

	if modelTurn, ok := content["modelTurn"].(map[string]any); ok {
		turn := g.currentTurn()
		if parts, ok := modelTurn["parts"].([]any); ok {
			for _, part := range parts {
				partMap, ok := part.(map[string]any)
				if !ok {
					continue
				}
				g.emitPart(turn, partMap)
			}
		}
	}

	if outputTranscript, ok := content["outputTranscription"].(map[string]any); ok {
		if text, ok := outputTranscript["text"].(string); ok && text != "" {
			turn := g.currentTurn()
			g.pushText(turn, TextChunk{Content: text, Final: true})
		}
	}
}

// emitPart routes one model turn part into the active turn's channels.
func (g *Gemini) emitPart(turn *liveTurn, part map[string]any) {
	if inlineData, ok := part["inlineData"].(map[string]any); ok {
		if data, ok := inlineData["data"].(string); ok {
			audio, err := base64.StdEncoding.DecodeString(data)
			if err == nil && len(audio) > 0 {
				g.pushAudio(turn, AudioChunk{Data: audio, SampleRate: 24000})
			}
		}
	}

	if text, ok := part["text"].(string); ok && text != "" {
		g.pushText(turn, TextChunk{Content: text})
	}
}

// currentTurn returns the active content turn, opening one (and emitting
// its generation event) if none is streaming.
func (g *Gemini) currentTurn() *liveTurn {
	g.mu.Lock()
	if g.turn != nil {
		turn := g.turn
		g.mu.Unlock()
		return turn
	}

	turn := &liveTurn{
		id:    uuid.NewString(),
		text:  make(chan TextChunk, chunkBuffer),
		audio: make(chan AudioChunk, chunkBuffer),
	}
	g.turn = turn
	g.mu.Unlock()

	metrics.GenerationEvents.Inc()
	if g.onGeneration != nil {
		g.onGeneration(GenerationEvent{
			TurnID: turn.id,
			Text:   turn.text,
			Audio:  turn.audio,
		})
	}
	return turn
}

// closeTurnLocked ends the active content turn. Callers hold g.mu.
func (g *Gemini) closeTurnLocked() {
	if g.turn == nil {
		return
	}
	close(g.turn.text)
	close(g.turn.audio)
	g.turn = nil
}

func (g *Gemini) pushText(turn *liveTurn, chunk TextChunk) {
	select {
	case turn.text <- chunk:
	default:
		log.Component("gemini").Warn("text chunk dropped, consumer too slow", "turn", turn.id)
	}
}

func (g *Gemini) pushAudio(turn *liveTurn, chunk AudioChunk) {
	select {
	case turn.audio <- chunk:
	default:
		log.Component("gemini").Warn("audio chunk dropped, consumer too slow", "turn", turn.id)
	}
}

// handleToolCall converts model function calls into a generation event.
func (g *Gemini) handleToolCall(toolCall map[string]any) {
	functionCalls, ok := toolCall["functionCalls"].([]any)
	if !ok {
		return
	}

	calls := make([]tool.FunctionCall, 0, len(functionCalls))
	for _, fc := range functionCalls {
		fcMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}

		name, _ := fcMap["name"].(string)
		id, _ := fcMap["id"].(string)
		args, _ := fcMap["args"].(map[string]any)

		rawArgs := "{}"
		if len(args) > 0 {
			if encoded, err := json.Marshal(args); err == nil {
				rawArgs = string(encoded)
			}
		}

		calls = append(calls, tool.FunctionCall{
			CallID:       id,
			Name:         name,
			RawArguments: rawArgs,
		})
	}

	if len(calls) == 0 {
		return
	}

	log.Component("gemini").Info("model issued tool calls", "count", len(calls))
	metrics.GenerationEvents.Inc()
	if g.onGeneration != nil {
		g.onGeneration(GenerationEvent{
			TurnID: uuid.NewString(),
			Calls:  calls,
		})
	}
}

// keepalive pings the connection through idle stretches.
func (g *Gemini) keepalive(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.wsMu.Lock()
			ws := g.ws
			if ws != nil {
				_ = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
			g.wsMu.Unlock()
		}
	}
}

// sendJSON sends a JSON message over the websocket. A single mutex
// serializes writers; gorilla connections allow only one at a time.
func (g *Gemini) sendJSON(v any) error {
	g.wsMu.Lock()
	defer g.wsMu.Unlock()

	g.mu.RLock()
	connected := g.connected && !g.closed
	ws := g.ws
	g.mu.RUnlock()

	if !connected || ws == nil {
		return ErrNotConnected
	}
	return ws.WriteJSON(v)
}

// Ensure Gemini implements Backend at compile time.
var _ Backend = (*Gemini)(nil)
