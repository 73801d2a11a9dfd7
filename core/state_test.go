package session

import "testing"

func TestStateMachineStartsIdle(t *testing.T) {
	m := newStateMachine(nil)
	if got := m.Current(); got != StateIdle {
		t.Fatalf("expected idle, got %s", got)
	}
}

func TestStateMachineRejectsIllegalTransition(t *testing.T) {
	m := newStateMachine(nil)

	if err := m.transition(StateAgentSpeaking); err == nil {
		t.Fatal("expected idle -> agent_speaking to be rejected")
	}
	if got := m.Current(); got != StateIdle {
		t.Fatalf("expected rejected transition to leave state untouched, got %s", got)
	}
}

func TestStateMachineFullTurnCycle(t *testing.T) {
	m := newStateMachine(nil)

	for _, to := range []State{
		StateListening,
		StateHumanSpeaking,
		StateThinking,
		StateAgentSpeaking,
		StateInterrupted,
		StateHumanSpeaking,
		StateThinking,
		StateAgentSpeaking,
		StateListening,
		StateClosed,
	} {
		if err := m.transition(to); err != nil {
			t.Fatalf("transition to %s failed: %v", to, err)
		}
	}
}

func TestStateMachineClosedIsTerminal(t *testing.T) {
	m := newStateMachine(nil)
	if err := m.transition(StateClosed); err != nil {
		t.Fatalf("idle -> closed failed: %v", err)
	}

	if err := m.transition(StateListening); err == nil {
		t.Fatal("expected closed to be terminal")
	}
}

func TestTransitionIfOnlyMovesFromListedStates(t *testing.T) {
	m := newStateMachine(nil)
	if err := m.transition(StateListening); err != nil {
		t.Fatalf("setup transition failed: %v", err)
	}

	if m.transitionIf(StateAgentSpeaking, StateThinking) {
		t.Fatal("expected no move when current state is not listed")
	}
	if got := m.Current(); got != StateListening {
		t.Fatalf("expected state to stay listening, got %s", got)
	}

	if !m.transitionIf(StateHumanSpeaking, StateListening, StateInterrupted) {
		t.Fatal("expected move from a listed state")
	}
	if got := m.Current(); got != StateHumanSpeaking {
		t.Fatalf("expected human_speaking, got %s", got)
	}
}

func TestStateMachineReportsTransitions(t *testing.T) {
	type move struct{ from, to State }
	var moves []move
	m := newStateMachine(func(from, to State) {
		moves = append(moves, move{from, to})
	})

	_ = m.transition(StateListening)
	m.transitionIf(StateHumanSpeaking, StateListening)

	if len(moves) != 2 {
		t.Fatalf("expected 2 reported transitions, got %d", len(moves))
	}
	if moves[0] != (move{StateIdle, StateListening}) || moves[1] != (move{StateListening, StateHumanSpeaking}) {
		t.Fatalf("unexpected transitions: %v", moves)
	}
}
