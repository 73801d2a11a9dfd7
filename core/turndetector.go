package session

import (
	"sync"
	"time"
)

type turnDecision string

const (
	decisionNone turnDecision = "none"
	// decisionUserTurnStarted opens a user turn.
	decisionUserTurnStarted turnDecision = "user_turn_started"
	// decisionUserTurnEnded finalizes the open user turn and hands off to
	// generation.
	decisionUserTurnEnded turnDecision = "user_turn_ended"
	// decisionInterruption confirms a barge-in against the speaking agent.
	decisionInterruption turnDecision = "interruption"
)

// turnDetector classifies speech boundary observations into turn-taking
// decisions. It is a pure state machine over explicitly passed timestamps:
// feeding the same observations in the same order always produces the same
// decisions, which keeps turn-taking replayable.
//
// Interruptions debounce: speech against a speaking agent must persist for
// the debounce window before it counts. The first pending candidate wins;
// later speech starts while one is pending are ignored.
type turnDetector struct {
	silenceThreshold     time.Duration
	interruptionDebounce time.Duration

	mu                   sync.Mutex
	userSpeaking         bool
	lastSpeechEndedAt    time.Time
	pendingInterruptAt   *time.Time
	interruptionsSeen    int
	userTurnsOpened      int
}

func newTurnDetector(silenceThreshold, interruptionDebounce time.Duration) *turnDetector {
	return &turnDetector{
		silenceThreshold:     silenceThreshold,
		interruptionDebounce: interruptionDebounce,
	}
}

// SpeechStarted observes a speech onset. agentSpeaking tells the detector
// whether the onset competes with agent audio.
func (d *turnDetector) SpeechStarted(now time.Time, agentSpeaking bool) turnDecision {
	d.mu.Lock()
	defer d.mu.Unlock()

	if agentSpeaking {
		if d.pendingInterruptAt == nil {
			at := now
			d.pendingInterruptAt = &at
		}
		if d.interruptionDebounce == 0 {
			return d.confirmInterruption()
		}
		return decisionNone
	}

	d.pendingInterruptAt = nil
	if d.userSpeaking {
		return decisionNone
	}
	d.userSpeaking = true
	d.userTurnsOpened++
	return decisionUserTurnStarted
}

// SpeechContinued observes that the speech which started earlier is still
// ongoing at the given time. It resolves a pending interruption once the
// debounce window has elapsed.
func (d *turnDetector) SpeechContinued(now time.Time) turnDecision {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pendingInterruptAt == nil {
		return decisionNone
	}
	if now.Sub(*d.pendingInterruptAt) >= d.interruptionDebounce {
		return d.confirmInterruption()
	}
	return decisionNone
}

func (d *turnDetector) confirmInterruption() turnDecision {
	d.pendingInterruptAt = nil
	d.userSpeaking = true
	d.interruptionsSeen++
	return decisionInterruption
}

// SpeechEnded observes a speech offset. The turn does not end yet; the
// silence window starts counting.
func (d *turnDetector) SpeechEnded(now time.Time) turnDecision {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pendingInterruptAt = nil
	if !d.userSpeaking {
		return decisionNone
	}
	d.userSpeaking = false
	d.lastSpeechEndedAt = now
	return decisionNone
}

// SilenceElapsed observes that the clock reached the given time with no new
// speech. It ends the user turn once the configured silence threshold has
// passed since the last offset.
func (d *turnDetector) SilenceElapsed(now time.Time) turnDecision {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.userSpeaking || d.lastSpeechEndedAt.IsZero() {
		return decisionNone
	}
	if now.Sub(d.lastSpeechEndedAt) < d.silenceThreshold {
		return decisionNone
	}
	d.lastSpeechEndedAt = time.Time{}
	return decisionUserTurnEnded
}

func (d *turnDetector) UserSpeaking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.userSpeaking
}

// InterruptionPending reports whether a barge-in candidate is waiting out
// the debounce window.
func (d *turnDetector) InterruptionPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pendingInterruptAt != nil
}
