package events

const (
	// KindAgentResponseSegment identifies streamed response text segments.
	KindAgentResponseSegment Kind = "agent_response.segment"
	// KindAgentResponseFinal identifies the end of the response text stream.
	KindAgentResponseFinal Kind = "agent_response.final"
	// KindAgentSpeechFrame identifies synthesized speech audio frames.
	KindAgentSpeechFrame Kind = "agent_speech.frame"
	// KindAgentSpeechEnded identifies the end of speech playback for a turn.
	KindAgentSpeechEnded Kind = "agent_speech.ended"
)

// AgentResponseSegment carries a streamed response text segment.
type AgentResponseSegment struct {
	Base
	Segment string
}

func NewAgentResponseSegment(segment string) AgentResponseSegment {
	return AgentResponseSegment{Base: NewBase(KindAgentResponseSegment), Segment: segment}
}

// AgentResponseFinal marks that the response text stream is complete.
type AgentResponseFinal struct {
	Base
	Response string
}

func NewAgentResponseFinal(response string) AgentResponseFinal {
	return AgentResponseFinal{Base: NewBase(KindAgentResponseFinal), Response: response}
}

// AgentSpeechFrame carries one synthesized audio frame on its way to the
// output sink.
type AgentSpeechFrame struct {
	Base
	Audio []byte
}

func NewAgentSpeechFrame(audio []byte) AgentSpeechFrame {
	return AgentSpeechFrame{Base: NewBase(KindAgentSpeechFrame), Audio: audio}
}

// AgentSpeechEnded marks the end of agent speech for the current turn,
// carrying the transcript of what was actually spoken.
type AgentSpeechEnded struct {
	Base
	Transcript string
}

func NewAgentSpeechEnded(transcript string) AgentSpeechEnded {
	return AgentSpeechEnded{Base: NewBase(KindAgentSpeechEnded), Transcript: transcript}
}
