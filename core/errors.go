package session

import (
	"errors"
	"fmt"
	"time"
)

// ErrParticipantDisconnect marks a session closed because its primary
// participant left the room. It is an expected shutdown path, not a failure.
var ErrParticipantDisconnect = errors.New("primary participant disconnected")

// ErrSessionClosed is returned by operations on a session that has already
// been closed.
var ErrSessionClosed = errors.New("session closed")

// ConfigError reports a rejected configuration value. Sessions with an
// invalid configuration never start.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config field %s: %s", e.Field, e.Reason)
}

// TransientStreamError wraps a provider stream failure that abandons the
// current generation but leaves the session running.
type TransientStreamError struct {
	Stage string
	Err   error
}

func (e *TransientStreamError) Error() string {
	return fmt.Sprintf("%s stream failed: %v", e.Stage, e.Err)
}

func (e *TransientStreamError) Unwrap() error { return e.Err }

// ToolErrorKind classifies why a tool execution failed.
type ToolErrorKind string

const (
	ToolErrorTimeout   ToolErrorKind = "timeout"
	ToolErrorTransport ToolErrorKind = "transport"
	ToolErrorRemote    ToolErrorKind = "remote"
)

// ToolError is the only error shape tool executions produce. It never
// propagates past the dispatcher; the dispatcher renders it as textual
// context for the model.
type ToolError struct {
	Kind ToolErrorKind
	Name string

	// Status and Body are set for remote errors.
	Status int
	Body   string

	// Timeout is set for timeout errors.
	Timeout time.Duration

	Err error
}

func (e *ToolError) Error() string {
	switch e.Kind {
	case ToolErrorRemote:
		return fmt.Sprintf("tool %s: HTTP %d: %s", e.Name, e.Status, e.Body)
	case ToolErrorTimeout:
		return fmt.Sprintf("tool %s: timed out after %s", e.Name, e.Timeout)
	default:
		return fmt.Sprintf("tool %s: %v", e.Name, e.Err)
	}
}

func (e *ToolError) Unwrap() error { return e.Err }
