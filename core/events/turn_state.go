package events

const (
	// KindTurnStarted identifies the start of a turn.
	KindTurnStarted Kind = "turn_state.started"
	// KindTurnFinalized identifies successful turn finalization.
	KindTurnFinalized Kind = "turn_state.finalized"
	// KindTurnInterrupted identifies a turn preempted by user speech.
	KindTurnInterrupted Kind = "turn_state.interrupted"
	// KindTurnAbandoned identifies a turn dropped after a provider failure.
	KindTurnAbandoned Kind = "turn_state.abandoned"
)

// TurnStarted marks the start of a turn.
type TurnStarted struct {
	Base
	TurnID  string
	Speaker string
}

func NewTurnStarted(turnID, speaker string) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted), TurnID: turnID, Speaker: speaker}
}

// TurnFinalized marks that a turn's transcript is closed and immutable.
type TurnFinalized struct {
	Base
	TurnID     string
	Transcript string
}

func NewTurnFinalized(turnID, transcript string) TurnFinalized {
	return TurnFinalized{Base: NewBase(KindTurnFinalized), TurnID: turnID, Transcript: transcript}
}

// TurnInterrupted marks an agent turn cancelled by barge-in.
type TurnInterrupted struct {
	Base
	TurnID string
}

func NewTurnInterrupted(turnID string) TurnInterrupted {
	return TurnInterrupted{Base: NewBase(KindTurnInterrupted), TurnID: turnID}
}

// TurnAbandoned marks a turn dropped because a streaming provider failed.
type TurnAbandoned struct {
	Base
	TurnID string
	Reason string
}

func NewTurnAbandoned(turnID, reason string) TurnAbandoned {
	return TurnAbandoned{Base: NewBase(KindTurnAbandoned), TurnID: turnID, Reason: reason}
}
