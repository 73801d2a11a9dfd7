package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parley-ai/parley-core/core/llms"
	"github.com/parley-ai/parley-core/core/speechtotext"
	"github.com/parley-ai/parley-core/core/texttospeech"
)

type streamContentChunkStub struct {
	content string
}

func (chunk streamContentChunkStub) FinishReason() *string { return nil }
func (chunk streamContentChunkStub) Content() string       { return chunk.content }

type streamToolCallChunkStub struct {
	call llms.ToolCall
}

func (chunk streamToolCallChunkStub) FinishReason() *string { return nil }
func (chunk streamToolCallChunkStub) ToolCall() llms.ToolCall {
	return chunk.call
}

type scriptedStream struct {
	chunks []llms.StreamChunk
}

func (stream scriptedStream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		for _, chunk := range stream.chunks {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// scriptedLLMStub replays one scripted chunk sequence per model call and
// records the prompt options each call received.
type scriptedLLMStub struct {
	mu       sync.Mutex
	rounds   [][]llms.StreamChunk
	recorded []llms.PromptOptions
}

func (stub *scriptedLLMStub) PromptWithStream(_ context.Context, opts ...llms.PromptOption) llms.Stream {
	options := llms.PromptOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	call := len(stub.recorded)
	stub.recorded = append(stub.recorded, options)

	if call >= len(stub.rounds) {
		return scriptedStream{}
	}
	return scriptedStream{chunks: stub.rounds[call]}
}

func (stub *scriptedLLMStub) calls() int {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return len(stub.recorded)
}

func (stub *scriptedLLMStub) promptOptions(call int) llms.PromptOptions {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return stub.recorded[call]
}

// repeatingStreamLLMStub streams the same chunk forever, for tests that cut
// a generation short.
type repeatingStreamLLMStub struct {
	chunk    string
	interval time.Duration
}

func (stub repeatingStreamLLMStub) PromptWithStream(context.Context, ...llms.PromptOption) llms.Stream {
	return repeatingStreamStub{chunk: stub.chunk, interval: stub.interval}
}

type repeatingStreamStub struct {
	chunk    string
	interval time.Duration
}

func (stub repeatingStreamStub) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		ticker := time.NewTicker(stub.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !yield(streamContentChunkStub{content: stub.chunk}, nil) {
					return
				}
			}
		}
	}
}

// stalledLLMStub models a provider whose stream hangs mid-read and only
// returns once its context is cancelled.
type stalledLLMStub struct {
	started chan struct{}
}

func (stub stalledLLMStub) PromptWithStream(context.Context, ...llms.PromptOption) llms.Stream {
	return stalledStreamStub{started: stub.started}
}

type stalledStreamStub struct {
	started chan struct{}
}

func (stub stalledStreamStub) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		close(stub.started)
		<-ctx.Done()
	}
}

// speechGeneratorStub synthesizes synchronously: every SendText produces one
// audio frame, every mark confirms the segment sent since the previous one.
type speechGeneratorStub struct {
	mu      sync.Mutex
	options texttospeech.TextToSpeechOptions

	segment   strings.Builder
	sent      []string
	cancelled bool
	closed    bool
}

func (stub *speechGeneratorStub) SendText(text string) error {
	stub.mu.Lock()
	stub.segment.WriteString(text)
	stub.sent = append(stub.sent, text)
	audio := stub.options.SpeechAudioCallback
	stub.mu.Unlock()

	if audio != nil {
		audio([]byte{0x01, 0x02})
	}
	return nil
}

func (stub *speechGeneratorStub) Mark() error {
	stub.mu.Lock()
	segment := stub.segment.String()
	stub.segment.Reset()
	mark := stub.options.SpeechMarkCallback
	stub.mu.Unlock()

	if mark != nil {
		mark(segment)
	}
	return nil
}

func (stub *speechGeneratorStub) EndOfText() error {
	stub.mu.Lock()
	ended := stub.options.SpeechEndedCallback
	stub.mu.Unlock()

	if ended != nil {
		ended()
	}
	return nil
}

func (stub *speechGeneratorStub) Cancel() error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.cancelled = true
	return nil
}

func (stub *speechGeneratorStub) Close() error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.closed = true
	return nil
}

func (stub *speechGeneratorStub) wasCancelled() bool {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return stub.cancelled
}

type ttsClientStub struct {
	mu         sync.Mutex
	generators []*speechGeneratorStub
}

func (stub *ttsClientStub) NewSpeechGenerator(_ context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error) {
	options := texttospeech.TextToSpeechOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	generator := &speechGeneratorStub{options: options}
	stub.mu.Lock()
	stub.generators = append(stub.generators, generator)
	stub.mu.Unlock()
	return generator, nil
}

func (stub *ttsClientStub) generator(i int) *speechGeneratorStub {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if i >= len(stub.generators) {
		return nil
	}
	return stub.generators[i]
}

// sttClientStub captures the transcription callbacks so tests can drive
// speech boundaries and transcripts by hand.
type sttClientStub struct {
	mu      sync.Mutex
	options speechtotext.TranscriptionOptions
	started bool

	frames atomic.Int32
}

func (stub *sttClientStub) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	for _, opt := range opts {
		opt(&stub.options)
	}
	stub.started = true
	return nil
}

func (stub *sttClientStub) SendAudio([]byte) error {
	stub.frames.Add(1)
	return nil
}

func (stub *sttClientStub) fireSpeechStarted() {
	stub.mu.Lock()
	callback := stub.options.SpeechStartedCallback
	stub.mu.Unlock()
	if callback != nil {
		callback()
	}
}

func (stub *sttClientStub) fireSpeechEnded() {
	stub.mu.Lock()
	callback := stub.options.SpeechEndedCallback
	stub.mu.Unlock()
	if callback != nil {
		callback()
	}
}

func (stub *sttClientStub) fireInterim(transcript string) {
	stub.mu.Lock()
	callback := stub.options.InterimTranscriptionCallback
	stub.mu.Unlock()
	if callback != nil {
		callback(transcript)
	}
}

func (stub *sttClientStub) firePartial(transcript string) {
	stub.mu.Lock()
	callback := stub.options.PartialTranscriptionCallback
	stub.mu.Unlock()
	if callback != nil {
		callback(transcript)
	}
}

func (stub *sttClientStub) fireTranscription(transcript string) {
	stub.mu.Lock()
	callback := stub.options.TranscriptionCallback
	stub.mu.Unlock()
	if callback != nil {
		callback(transcript)
	}
}
