package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shodh-ai/voxagent/internal/log"
	"github.com/shodh-ai/voxagent/internal/metrics"
)

// DefaultTimeout bounds a single handler invocation.
const DefaultTimeout = 10 * time.Second

// Dispatcher executes model-issued function calls against the registry.
// Every call produces exactly one Result; failures at any stage (decode,
// resolve, validate, invoke, panic) become error results so the model is
// never left waiting on an unanswered call.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		timeout:  DefaultTimeout,
		logger:   log.Component("dispatcher"),
	}
}

// WithTimeout overrides the per-call handler timeout.
func (d *Dispatcher) WithTimeout(timeout time.Duration) *Dispatcher {
	d.timeout = timeout
	return d
}

// Dispatch runs one function call end to end and returns its result.
// The returned Result always carries the call's correlation ID; if the
// model omitted one, a fresh UUID is generated so the response channel
// stays well-formed.
func (d *Dispatcher) Dispatch(ctx context.Context, sess Session, call FunctionCall) Result {
	callID := call.CallID
	if callID == "" {
		callID = uuid.NewString()
	}

	args, err := decodeArguments(call.RawArguments)
	if err != nil {
		d.logger.Warn("malformed tool arguments", "tool", call.Name, "call_id", callID, "error", err)
		metrics.DispatchTotal.WithLabelValues(call.Name, metrics.OutcomeError).Inc()
		return errorResult(call.Name, callID, fmt.Sprintf("malformed arguments: %v", err))
	}

	descriptor, err := d.registry.Resolve(call.Name)
	if err != nil {
		d.logger.Warn("unknown tool requested", "tool", call.Name, "call_id", callID)
		metrics.DispatchTotal.WithLabelValues(call.Name, metrics.OutcomeError).Inc()
		return errorResult(call.Name, callID, fmt.Sprintf("tool '%s' not found", call.Name))
	}

	if err := descriptor.Parameters.Validate(args); err != nil {
		d.logger.Warn("tool argument validation failed", "tool", call.Name, "call_id", callID, "error", err)
		metrics.DispatchTotal.WithLabelValues(call.Name, metrics.OutcomeError).Inc()
		return errorResult(call.Name, callID, err.Error())
	}

	d.logger.Info("dispatching tool", "tool", call.Name, "call_id", callID)

	payload, err := d.invoke(ctx, descriptor, sess, args)
	if err != nil {
		d.logger.Warn("tool execution failed", "tool", call.Name, "call_id", callID, "error", err)
		metrics.DispatchTotal.WithLabelValues(call.Name, metrics.OutcomeError).Inc()
		return errorResult(call.Name, callID, err.Error())
	}

	if payload == nil {
		payload = map[string]any{"success": true}
	}
	metrics.DispatchTotal.WithLabelValues(call.Name, metrics.OutcomeSuccess).Inc()
	return Result{
		Name:    call.Name,
		CallID:  callID,
		Payload: payload,
	}
}

// DispatchAll runs a batch of calls sequentially, preserving arrival order.
// The result slice always has one entry per call.
func (d *Dispatcher) DispatchAll(ctx context.Context, sess Session, calls []FunctionCall) []Result {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		results = append(results, d.Dispatch(ctx, sess, call))
	}
	return results
}

// invoke runs the handler under the dispatcher timeout, converting panics
// into errors.
func (d *Dispatcher) invoke(ctx context.Context, descriptor Descriptor, sess Session, args map[string]any) (map[string]any, error) {
	if descriptor.Handler == nil {
		return nil, fmt.Errorf("tool '%s' has no handler", descriptor.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		payload map[string]any
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool '%s' panicked: %v", descriptor.Name, r)}
			}
		}()
		payload, err := descriptor.Handler(ctx, sess, args)
		done <- outcome{payload: payload, err: err}
	}()

	select {
	case out := <-done:
		return out.payload, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("tool '%s' timed out after %s", descriptor.Name, d.timeout)
	}
}

// decodeArguments parses the raw argument string. An empty payload means
// a no-argument call, not an error.
func decodeArguments(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
