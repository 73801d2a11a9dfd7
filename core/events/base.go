package events

import "time"

// Kind discriminates event types on the wire and in observer dispatch tables.
type Kind string

// Event is anything a session can emit to its observers.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the fields shared by every event. Embed it and construct it
// with NewBase so the timestamp is stamped at emission.
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind { return b.kind }

func (b Base) Timestamp() time.Time { return b.timestamp }
