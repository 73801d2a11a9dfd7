package session

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parley-ai/parley-core/core/llms"
)

type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

type TurnStatus string

const (
	// TurnOpen means the turn is still accumulating transcript or response.
	TurnOpen TurnStatus = "open"
	// TurnFinalized means the turn completed normally. Finalized turns are
	// immutable.
	TurnFinalized TurnStatus = "finalized"
	// TurnInterrupted marks an agent turn cut short by user speech. The
	// transcript holds only what was actually spoken.
	TurnInterrupted TurnStatus = "interrupted"
	// TurnAbandoned marks a turn dropped because of a provider failure.
	TurnAbandoned TurnStatus = "abandoned"
)

// Turn is one conversational turn. User turns accumulate transcript
// fragments; agent turns accumulate the generated response and tool calls.
type Turn struct {
	ID      string
	Speaker Speaker
	Status  TurnStatus

	// Transcript is the settled text of the turn. For an interrupted agent
	// turn this is the spoken prefix, not the full generation.
	Transcript string
	// interim is the revisable hypothesis for the in-progress segment.
	interim string

	ToolCalls []llms.ToolCall

	StartedAt   time.Time
	FinalizedAt time.Time
}

func newTurn(speaker Speaker) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Speaker:   speaker,
		Status:    TurnOpen,
		StartedAt: time.Now(),
	}
}

func (t *Turn) open() bool { return t.Status == TurnOpen }

// appendTranscript adds a settled fragment. Settled text only grows; interim
// hypotheses never overwrite it.
func (t *Turn) appendTranscript(fragment string) {
	if !t.open() || fragment == "" {
		return
	}
	if t.Transcript != "" {
		t.Transcript += " "
	}
	t.Transcript += fragment
	t.interim = ""
}

func (t *Turn) setInterim(hypothesis string) {
	if !t.open() {
		return
	}
	t.interim = hypothesis
}

func (t *Turn) close(status TurnStatus) bool {
	if !t.open() {
		return false
	}
	t.Status = status
	t.FinalizedAt = time.Now()
	t.interim = ""
	return true
}

// turnLog is the session's conversation history. The active turn is part of
// the log so snapshots always see it, but it stays mutable until closed.
type turnLog struct {
	mu    sync.Mutex
	turns []*Turn

	active *Turn
}

func (l *turnLog) begin(speaker Speaker) *Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	turn := newTurn(speaker)
	l.turns = append(l.turns, turn)
	l.active = turn
	return turn
}

// close closes the given turn with the given status and reports whether it
// was still open. Closing is monotonic: a closed turn never reopens and
// never changes status.
func (l *turnLog) close(turn *Turn, status TurnStatus) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if turn == nil || !turn.close(status) {
		return false
	}
	if l.active == turn {
		l.active = nil
	}
	return true
}

// closeWith closes the turn and settles its transcript in the same step.
// Used for agent turns, where the spoken text is only known at completion.
func (l *turnLog) closeWith(turn *Turn, status TurnStatus, transcript string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if turn == nil || !turn.open() {
		return false
	}
	turn.Transcript = transcript
	turn.close(status)
	if l.active == turn {
		l.active = nil
	}
	return true
}

func (l *turnLog) setToolCalls(turn *Turn, calls []llms.ToolCall) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if turn != nil {
		turn.ToolCalls = calls
	}
}

func (l *turnLog) activeTurn() *Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *turnLog) appendTranscript(fragment string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active != nil {
		l.active.appendTranscript(fragment)
	}
}

func (l *turnLog) setInterim(hypothesis string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active != nil {
		l.active.setInterim(hypothesis)
	}
}

// Snapshot returns a point-in-time copy of all turns.
func (l *turnLog) Snapshot() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make([]Turn, 0, len(l.turns))
	for _, turn := range l.turns {
		copied := *turn
		copied.ToolCalls = slices.Clone(turn.ToolCalls)
		snapshot = append(snapshot, copied)
	}
	return snapshot
}

// messages flattens closed turns into provider messages, oldest first.
// Abandoned turns are skipped; interrupted agent turns contribute only their
// spoken prefix.
func (l *turnLog) messages() []llms.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	var messages []llms.Message
	for _, turn := range l.turns {
		if turn.Status == TurnAbandoned {
			continue
		}
		if turn.open() {
			// An open user turn still rides along so the model sees what
			// triggered the generation.
			if turn.Speaker == SpeakerUser && turn.Transcript != "" {
				messages = append(messages, llms.Message{Role: llms.RoleUser, Content: turn.Transcript})
			}
			continue
		}

		switch turn.Speaker {
		case SpeakerUser:
			if turn.Transcript != "" {
				messages = append(messages, llms.Message{Role: llms.RoleUser, Content: turn.Transcript})
			}
		case SpeakerAgent:
			msg := llms.Message{Role: llms.RoleAssistant, Content: turn.Transcript}
			for _, call := range turn.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, call)
			}
			messages = append(messages, msg)
			for _, call := range turn.ToolCalls {
				messages = append(messages, llms.Message{
					Role:       llms.RoleTool,
					Content:    call.Response,
					ToolCallID: call.ID,
				})
			}
		}
	}
	return messages
}
