package session

import (
	"time"

	"github.com/parley-ai/parley-core/core/audio"
)

const (
	// DefaultSilenceThreshold is how long the user must stay silent after
	// speech before their turn is considered finished.
	DefaultSilenceThreshold = 700 * time.Millisecond
	// DefaultInterruptionDebounce is how long user speech must persist while
	// the agent is speaking before it counts as a barge-in rather than a
	// cough or background noise.
	DefaultInterruptionDebounce = 120 * time.Millisecond
	// DefaultToolTimeout bounds a single tool dispatch.
	DefaultToolTimeout = 10 * time.Second

	DefaultIngestQueueSize = 64
)

// Config holds the per-session tunables. Zero values fall back to defaults
// during validation; explicitly negative values are rejected.
type Config struct {
	// Instructions is the system prompt given to every model call.
	Instructions string
	// GreetingInstructions, when set, makes the agent open the conversation
	// with a generated greeting as soon as the session starts.
	GreetingInstructions string

	SilenceThreshold     time.Duration
	InterruptionDebounce time.Duration
	ToolTimeout          time.Duration

	// PreemptiveGeneration starts thinking on a final transcript before the
	// silence window closes. The early generation is cancelled if the user
	// keeps talking.
	PreemptiveGeneration bool

	IngestQueueSize int

	EncodingInfo audio.EncodingInfo
}

func (c *Config) validate() error {
	if c.SilenceThreshold < 0 {
		return &ConfigError{Field: "SilenceThreshold", Reason: "must not be negative"}
	}
	if c.SilenceThreshold == 0 {
		c.SilenceThreshold = DefaultSilenceThreshold
	}

	if c.InterruptionDebounce < 0 {
		return &ConfigError{Field: "InterruptionDebounce", Reason: "must not be negative"}
	}
	if c.InterruptionDebounce == 0 {
		c.InterruptionDebounce = DefaultInterruptionDebounce
	}

	if c.ToolTimeout < 0 {
		return &ConfigError{Field: "ToolTimeout", Reason: "must not be negative"}
	}
	if c.ToolTimeout == 0 {
		c.ToolTimeout = DefaultToolTimeout
	}

	if c.IngestQueueSize < 0 {
		return &ConfigError{Field: "IngestQueueSize", Reason: "must not be negative"}
	}
	if c.IngestQueueSize == 0 {
		c.IngestQueueSize = DefaultIngestQueueSize
	}

	if c.EncodingInfo.IsZero() {
		c.EncodingInfo = audio.GetDefaultEncodingInfo()
	}

	return nil
}
