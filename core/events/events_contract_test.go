package events

import "testing"

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "user audio frame", event: NewUserAudioFrame([]byte{1}), expected: KindUserAudioFrame},
		{name: "user speech started", event: NewUserSpeechStarted(), expected: KindUserSpeechStarted},
		{name: "user speech ended", event: NewUserSpeechEnded(), expected: KindUserSpeechEnded},
		{name: "user transcript interim", event: NewUserTranscriptInterim("text"), expected: KindUserTranscriptInterim},
		{name: "user transcript final", event: NewUserTranscriptFinal("text"), expected: KindUserTranscriptFinal},
		{name: "agent response segment", event: NewAgentResponseSegment("seg"), expected: KindAgentResponseSegment},
		{name: "agent response final", event: NewAgentResponseFinal("text"), expected: KindAgentResponseFinal},
		{name: "agent speech frame", event: NewAgentSpeechFrame([]byte{1}), expected: KindAgentSpeechFrame},
		{name: "agent speech ended", event: NewAgentSpeechEnded("text"), expected: KindAgentSpeechEnded},
		{name: "tool call started", event: NewToolCallStarted("id", "name", "{}"), expected: KindToolCallStarted},
		{name: "tool call completed", event: NewToolCallCompleted("id", "name", "ok"), expected: KindToolCallCompleted},
		{name: "tool call failed", event: NewToolCallFailed("id", "name", "boom"), expected: KindToolCallFailed},
		{name: "turn started", event: NewTurnStarted("t1", "human"), expected: KindTurnStarted},
		{name: "turn finalized", event: NewTurnFinalized("t1", "text"), expected: KindTurnFinalized},
		{name: "turn interrupted", event: NewTurnInterrupted("t1"), expected: KindTurnInterrupted},
		{name: "turn abandoned", event: NewTurnAbandoned("t1", "tts failed"), expected: KindTurnAbandoned},
		{name: "session started", event: NewSessionStarted("s1"), expected: KindSessionStarted},
		{name: "session closed", event: NewSessionClosed("s1", "hangup"), expected: KindSessionClosed},
		{name: "generation failed", event: NewGenerationFailed("s1", "t1", "llm failed"), expected: KindGenerationFailed},
		{name: "participant joined", event: NewParticipantJoined("caller", "sip"), expected: KindParticipantJoined},
		{name: "participant left", event: NewParticipantLeft("caller"), expected: KindParticipantLeft},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestParticipantJoinedCarriesKindAndIdentity(t *testing.T) {
	event := NewParticipantJoined("caller", "sip")
	if event.Kind() != KindParticipantJoined {
		t.Fatalf("expected event kind %q, got %q", KindParticipantJoined, event.Kind())
	}
	if event.Identity != "caller" || event.ParticipantKind != "sip" {
		t.Fatalf("unexpected payload: %q %q", event.Identity, event.ParticipantKind)
	}
}

func TestEventTimestampsAreSet(t *testing.T) {
	event := NewUserSpeechStarted()
	if event.Timestamp().IsZero() {
		t.Fatal("expected event timestamp to be set")
	}
}
