// Package metrics exposes prometheus counters for the agent server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchTotal counts tool dispatches by tool name and outcome.
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxagent",
		Subsystem: "tool",
		Name:      "dispatch_total",
		Help:      "Tool dispatches by tool name and outcome (success or error).",
	}, []string{"tool", "outcome"})

	// CommandsSent counts outbound UI commands by topic and delivery result.
	CommandsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voxagent",
		Subsystem: "command",
		Name:      "sent_total",
		Help:      "Commands published to the data channel by topic and result.",
	}, []string{"topic", "result"})

	// GenerationEvents counts model generation events handled by the bridge.
	GenerationEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voxagent",
		Subsystem: "bridge",
		Name:      "generation_events_total",
		Help:      "Generation events drained by the bridge.",
	})

	// ActiveSessions tracks the number of live room sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "voxagent",
		Subsystem: "session",
		Name:      "active",
		Help:      "Number of active room sessions.",
	})
)

// Outcome labels for DispatchTotal.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
