package session

import (
	"fmt"
	"sync"
)

// State is the session's turn-taking state. Transitions are driven by speech
// boundaries, transcript finalization and generation lifecycle only; no state
// is entered from the outside.
type State string

const (
	// StateIdle is the state before Start.
	StateIdle State = "idle"
	// StateListening means nobody is speaking and no generation is running.
	StateListening State = "listening"
	// StateHumanSpeaking means user speech is in progress.
	StateHumanSpeaking State = "human_speaking"
	// StateThinking means a generation is running but no agent audio has been
	// produced yet.
	StateThinking State = "thinking"
	// StateAgentSpeaking means agent audio is being delivered.
	StateAgentSpeaking State = "agent_speaking"
	// StateInterrupted is the transient state between a confirmed barge-in
	// and the cancelled generation winding down.
	StateInterrupted State = "interrupted"
	// StateClosed is terminal.
	StateClosed State = "closed"
)

var allowedTransitions = map[State][]State{
	StateIdle:          {StateListening, StateClosed},
	StateListening:     {StateHumanSpeaking, StateThinking, StateClosed},
	StateHumanSpeaking: {StateListening, StateThinking, StateClosed},
	StateThinking:      {StateAgentSpeaking, StateListening, StateInterrupted, StateClosed},
	StateAgentSpeaking: {StateListening, StateInterrupted, StateClosed},
	StateInterrupted:   {StateHumanSpeaking, StateListening, StateClosed},
	StateClosed:        {},
}

type stateMachine struct {
	mu    sync.Mutex
	state State

	onTransition func(from, to State)
}

func newStateMachine(onTransition func(from, to State)) *stateMachine {
	if onTransition == nil {
		onTransition = func(State, State) {}
	}
	return &stateMachine{state: StateIdle, onTransition: onTransition}
}

func (m *stateMachine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// transition moves to the target state if the move is legal. Illegal moves
// are rejected with an error and leave the state untouched.
func (m *stateMachine) transition(to State) error {
	m.mu.Lock()
	from := m.state
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			m.state = to
			m.mu.Unlock()
			m.onTransition(from, to)
			return nil
		}
	}
	m.mu.Unlock()
	return fmt.Errorf("illegal state transition %s -> %s", from, to)
}

// transitionIf moves to the target state only when currently in one of the
// given states. It reports whether the move happened.
func (m *stateMachine) transitionIf(to State, from ...State) bool {
	m.mu.Lock()
	current := m.state
	match := false
	for _, s := range from {
		if s == current {
			match = true
			break
		}
	}
	if !match {
		m.mu.Unlock()
		return false
	}
	for _, allowed := range allowedTransitions[current] {
		if allowed == to {
			m.state = to
			m.mu.Unlock()
			m.onTransition(current, to)
			return true
		}
	}
	m.mu.Unlock()
	return false
}
