package deepgram

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/parley-ai/parley-core/core/speechtotext"
)

func TestNewCallbackConfigDefaultsToNoopCallbacks(t *testing.T) {
	callbacks, wsConfig := newCallbackConfig(speechtotext.TranscriptionOptions{})

	callbacks.interimTranscriptionCallback("interim")
	callbacks.partialTranscriptionCallback("final")
	callbacks.transcriptionCallback("full")
	callbacks.startSpeechCallback()
	callbacks.endSpeechCallback()

	if wsConfig.shouldDetectSpeechStart {
		t.Fatalf("expected speech-start detection disabled when callback is unset")
	}
	if wsConfig.shouldEnhanceSpeechEndingDetection {
		t.Fatalf("expected speech-end enhancement disabled when callbacks are unset")
	}
	if wsConfig.shouldRequestInterimResults {
		t.Fatalf("expected interim-results disabled when callbacks are unset")
	}
}

func TestNewCallbackConfigKeepsConfiguredCallbacksAndFlags(t *testing.T) {
	interimCalls := atomic.Int32{}
	partialCalls := atomic.Int32{}
	transcriptionCalls := atomic.Int32{}
	startCalls := atomic.Int32{}
	endCalls := atomic.Int32{}

	callbacks, wsConfig := newCallbackConfig(speechtotext.TranscriptionOptions{
		InterimTranscriptionCallback: func(string) { interimCalls.Add(1) },
		PartialTranscriptionCallback: func(string) { partialCalls.Add(1) },
		TranscriptionCallback:        func(string) { transcriptionCalls.Add(1) },
		SpeechStartedCallback:        func() { startCalls.Add(1) },
		SpeechEndedCallback:          func() { endCalls.Add(1) },
	})

	callbacks.interimTranscriptionCallback("hello")
	callbacks.partialTranscriptionCallback("hello")
	callbacks.transcriptionCallback("hello world")
	callbacks.startSpeechCallback()
	callbacks.endSpeechCallback()

	if !wsConfig.shouldDetectSpeechStart {
		t.Fatalf("expected speech-start detection enabled")
	}
	if !wsConfig.shouldEnhanceSpeechEndingDetection {
		t.Fatalf("expected speech-end enhancement enabled")
	}
	if !wsConfig.shouldRequestInterimResults {
		t.Fatalf("expected interim-results enabled")
	}

	if got := interimCalls.Load(); got != 1 {
		t.Fatalf("expected interim callback once, got %d", got)
	}
	if got := partialCalls.Load(); got != 1 {
		t.Fatalf("expected partial transcription callback once, got %d", got)
	}
	if got := transcriptionCalls.Load(); got != 1 {
		t.Fatalf("expected transcription callback once, got %d", got)
	}
	if got := startCalls.Load(); got != 1 {
		t.Fatalf("expected speech-start callback once, got %d", got)
	}
	if got := endCalls.Load(); got != 1 {
		t.Fatalf("expected speech-end callback once, got %d", got)
	}
}

func TestProcessMessageAccumulatesFinalsUntilSpeechFinal(t *testing.T) {
	client := NewTranscriptionClient()

	var full string
	var partials []string
	callbacks, _ := newCallbackConfig(speechtotext.TranscriptionOptions{
		PartialTranscriptionCallback: func(transcript string) { partials = append(partials, transcript) },
		TranscriptionCallback:        func(transcript string) { full = transcript },
	})

	ctx := context.Background()
	client.processMessage(ctx, []byte(`{"type":"Results","is_final":true,"speech_final":false,"channel":{"alternatives":[{"transcript":"Hello,"}]}}`), callbacks)
	client.processMessage(ctx, []byte(`{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":"this is John"}]}}`), callbacks)

	if len(partials) != 2 || partials[0] != "Hello," || partials[1] != "this is John" {
		t.Fatalf("unexpected partial transcripts: %v", partials)
	}
	if full != "Hello, this is John" {
		t.Fatalf("expected accumulated transcript on speech end, got %q", full)
	}
	if client.accumulatedTranscript != "" {
		t.Fatalf("expected accumulator reset after speech end, got %q", client.accumulatedTranscript)
	}
}

func TestProcessMessageEmitsFullInterimHypothesis(t *testing.T) {
	client := NewTranscriptionClient()

	var interims []string
	callbacks, _ := newCallbackConfig(speechtotext.TranscriptionOptions{
		InterimTranscriptionCallback: func(transcript string) { interims = append(interims, transcript) },
	})

	ctx := context.Background()
	client.processMessage(ctx, []byte(`{"type":"Results","is_final":true,"speech_final":false,"channel":{"alternatives":[{"transcript":"Hello,"}]}}`), callbacks)
	client.processMessage(ctx, []byte(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"this is"}]}}`), callbacks)

	if len(interims) != 1 || interims[0] != "Hello, this is" {
		t.Fatalf("expected interim to carry settled prefix, got %v", interims)
	}
}

func TestProcessMessageUtteranceEndClosesOpenSegment(t *testing.T) {
	client := NewTranscriptionClient()

	ends := atomic.Int32{}
	callbacks, _ := newCallbackConfig(speechtotext.TranscriptionOptions{
		SpeechStartedCallback: func() {},
		SpeechEndedCallback:   func() { ends.Add(1) },
	})

	ctx := context.Background()
	client.processMessage(ctx, []byte(`{"type":"UtteranceEnd"}`), callbacks)
	if got := ends.Load(); got != 0 {
		t.Fatalf("expected no speech end without an open segment, got %d", got)
	}

	client.processMessage(ctx, []byte(`{"type":"SpeechStarted"}`), callbacks)
	client.processMessage(ctx, []byte(`{"type":"UtteranceEnd"}`), callbacks)
	if got := ends.Load(); got != 1 {
		t.Fatalf("expected exactly one speech end, got %d", got)
	}
}
