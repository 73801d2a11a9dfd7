package session

import (
	"github.com/parley-ai/parley-core/core/events"
	"github.com/parley-ai/parley-core/core/llms"
	"github.com/parley-ai/parley-core/core/metrics"
	"github.com/parley-ai/parley-core/core/vad"
)

type Option func(*Session)

// WithStreamingLLM wires the model client driving agent responses.
func WithStreamingLLM(client llms.StreamingClient) Option {
	return func(s *Session) {
		s.llm.set(client)
	}
}

// WithSpeechToTextClient wires the transcription provider.
func WithSpeechToTextClient(client SpeechToText) Option {
	return func(s *Session) {
		s.speechToText.set(client)
	}
}

// WithTextToSpeechClient wires the synthesis provider. Without one the
// session produces text-only responses.
func WithTextToSpeechClient(client TextToSpeech) Option {
	return func(s *Session) {
		s.ttsClient = client
	}
}

// WithVADModel attaches the shared voice-activity model. The model is
// loaded once per process (typically during worker prewarm) and shared
// read-only across sessions; each session gets its own detector over it.
func WithVADModel(model *vad.Model) Option {
	return func(s *Session) {
		if model != nil {
			s.vadDetector = vad.NewDetector(model)
		}
	}
}

// WithTools registers tools the model may call during generations.
// Registration errors surface from New.
func WithTools(tools ...llms.Tool) Option {
	return func(s *Session) {
		for _, tool := range tools {
			if err := s.dispatcher.Register(tool); err != nil {
				s.optionErr = err
				return
			}
		}
	}
}

// WithMetrics attaches a metrics set. Sessions without one simply do not
// record.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
		s.dispatcher.metrics = m
	}
}

// WithAudioSink registers the outbound audio callback. Frames arrive in
// playback order on the speech worker; the sink should hand them to the
// transport without blocking.
func WithAudioSink(sink func(frame []byte)) Option {
	return func(s *Session) {
		if sink != nil {
			s.audioSink = sink
		}
	}
}

// WithEventHook registers a handler for one event kind.
func WithEventHook(kind events.Kind, handler func(events.Event)) Option {
	return func(s *Session) {
		s.hooks.on(kind, handler)
	}
}

// WithEventObserver registers a handler for every emitted event.
func WithEventObserver(handler func(events.Event)) Option {
	return func(s *Session) {
		s.hooks.onAny(handler)
	}
}
