package events

const (
	// KindSessionStarted identifies session start.
	KindSessionStarted Kind = "session.started"
	// KindSessionClosed identifies clean session shutdown.
	KindSessionClosed Kind = "session.closed"
	// KindGenerationFailed identifies a recoverable generation failure; the
	// session keeps listening.
	KindGenerationFailed Kind = "session.generation_failed"
	// KindParticipantJoined identifies a participant joining the room.
	KindParticipantJoined Kind = "session.participant_joined"
	// KindParticipantLeft identifies a participant leaving the room.
	KindParticipantLeft Kind = "session.participant_left"
)

// SessionStarted marks session start.
type SessionStarted struct {
	Base
	SessionID string
}

func NewSessionStarted(sessionID string) SessionStarted {
	return SessionStarted{Base: NewBase(KindSessionStarted), SessionID: sessionID}
}

// SessionClosed marks clean session shutdown.
type SessionClosed struct {
	Base
	SessionID string
	Reason    string
}

func NewSessionClosed(sessionID, reason string) SessionClosed {
	return SessionClosed{Base: NewBase(KindSessionClosed), SessionID: sessionID, Reason: reason}
}

// GenerationFailed surfaces a provider failure that abandoned a turn. It is a
// recoverable-session event, not a crash.
type GenerationFailed struct {
	Base
	SessionID string
	TurnID    string
	Err       string
}

func NewGenerationFailed(sessionID, turnID, err string) GenerationFailed {
	return GenerationFailed{Base: NewBase(KindGenerationFailed), SessionID: sessionID, TurnID: turnID, Err: err}
}

// ParticipantJoined marks a participant joining, carrying the identity and
// kind used for audio-profile selection.
type ParticipantJoined struct {
	Base
	Identity        string
	ParticipantKind string
}

func NewParticipantJoined(identity, kind string) ParticipantJoined {
	return ParticipantJoined{Base: NewBase(KindParticipantJoined), Identity: identity, ParticipantKind: kind}
}

// ParticipantLeft marks a participant leaving.
type ParticipantLeft struct {
	Base
	Identity string
}

func NewParticipantLeft(identity string) ParticipantLeft {
	return ParticipantLeft{Base: NewBase(KindParticipantLeft), Identity: identity}
}
