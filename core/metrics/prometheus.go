// Package metrics exposes Prometheus instrumentation for the session engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the session engine.
type Metrics struct {
	// Session lifecycle
	ActiveSessions  prometheus.Gauge
	SessionsStarted prometheus.Counter
	SessionsClosed  prometheus.Counter
	SessionDuration prometheus.Histogram

	// Turn taking
	UserTurns          prometheus.Counter
	AgentTurns         prometheus.Counter
	Interruptions      prometheus.Counter
	AbandonedTurns     prometheus.Counter
	TurnSilenceToReply prometheus.Histogram

	// Audio ingest
	FramesIngested prometheus.Counter
	FramesDropped  prometheus.Counter

	// Generations
	GenerationsStarted   prometheus.Counter
	GenerationsCancelled prometheus.Counter
	GenerationsFailed    prometheus.Counter
	GenerationDuration   prometheus.Histogram

	// Tool calls
	ToolCalls        *prometheus.CounterVec
	ToolCallFailures *prometheus.CounterVec
	ToolCallDuration prometheus.Histogram
}

// NewMetrics creates and registers all engine metrics. Passing nil registers
// against the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "parley_active_sessions",
			Help: "Current number of active voice sessions",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_sessions_started_total",
			Help: "Total number of sessions started",
		}),
		SessionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_sessions_closed_total",
			Help: "Total number of sessions closed",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parley_session_duration_seconds",
			Help:    "Session duration from start to close",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),

		UserTurns: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_user_turns_total",
			Help: "Total number of finalized user turns",
		}),
		AgentTurns: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_agent_turns_total",
			Help: "Total number of finalized agent turns",
		}),
		Interruptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_interruptions_total",
			Help: "Total number of confirmed barge-ins",
		}),
		AbandonedTurns: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_abandoned_turns_total",
			Help: "Total number of turns abandoned due to provider failures",
		}),
		TurnSilenceToReply: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parley_turn_silence_to_reply_seconds",
			Help:    "Time from end-of-turn detection to first agent audio",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),

		FramesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_frames_ingested_total",
			Help: "Total number of audio frames accepted by the ingest queue",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_frames_dropped_total",
			Help: "Total number of audio frames dropped under overload",
		}),

		GenerationsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_generations_started_total",
			Help: "Total number of generations started",
		}),
		GenerationsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_generations_cancelled_total",
			Help: "Total number of generations cancelled mid-flight",
		}),
		GenerationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_generations_failed_total",
			Help: "Total number of generations that failed with a provider error",
		}),
		GenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parley_generation_duration_seconds",
			Help:    "Wall-clock duration of a full generation",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_tool_calls_total",
			Help: "Total number of tool dispatches by tool name",
		}, []string{"tool"}),
		ToolCallFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_tool_call_failures_total",
			Help: "Total number of failed tool dispatches by failure kind",
		}, []string{"tool", "kind"}),
		ToolCallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parley_tool_call_duration_seconds",
			Help:    "Wall-clock duration of a tool dispatch",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}
