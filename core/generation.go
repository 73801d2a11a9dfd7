package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/parley-ai/parley-core/core/audio"
	"github.com/parley-ai/parley-core/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// generation is one agent response in flight: a model stream feeding a text
// buffer, a text worker feeding the speech generator, and a speech worker
// delivering synthesized audio. All three tear down together; Cancel stops
// them mid-flight exactly once no matter how many paths request it.
type generation struct {
	id string

	llm          llm
	instructions string
	ttsClient    TextToSpeech
	encodingInfo audio.EncodingInfo

	tts         generationTTS
	textBuffer  *textBuffer
	audioBuffer *audioBuffer

	callbacks generationCallbacks

	mu        sync.Mutex
	content   string
	toolCalls []llms.ToolCall
	spoken    []string

	cancelled atomic.Bool
}

type generationCallbacks struct {
	// onResponseText receives streamed model text as it arrives.
	onResponseText func(string)
	// onFirstAudio fires when the first audio frame is about to be
	// delivered.
	onFirstAudio func()
	// onAudio receives synthesized audio frames in playback order.
	onAudio func([]byte)
	// onCancel fires exactly once if the generation is cancelled.
	onCancel func()
}

func (c *generationCallbacks) defaults() *generationCallbacks {
	if c.onResponseText == nil {
		c.onResponseText = func(string) {}
	}
	if c.onFirstAudio == nil {
		c.onFirstAudio = func() {}
	}
	if c.onAudio == nil {
		c.onAudio = func([]byte) {}
	}
	if c.onCancel == nil {
		c.onCancel = func() {}
	}
	return c
}

// generationResult is what the session records on the agent turn.
type generationResult struct {
	// Content is the full generated text, including never-spoken suffix.
	Content string
	// Spoken is the mark-confirmed prefix that was actually delivered as
	// audio. Without a speech channel it equals Content.
	Spoken    string
	ToolCalls []llms.ToolCall
	Cancelled bool
}

func newGeneration(llm llm, instructions string, ttsClient TextToSpeech, encodingInfo audio.EncodingInfo, callbacks generationCallbacks) *generation {
	return &generation{
		id:           uuid.NewString(),
		llm:          llm,
		instructions: instructions,
		ttsClient:    ttsClient,
		encodingInfo: encodingInfo,
		tts:          newGenerationTTS(),
		textBuffer:   newTextBuffer(),
		audioBuffer:  newAudioBuffer(encodingInfo),
		callbacks:    *(&callbacks).defaults(),
	}
}

// Run blocks until the generation completes, is cancelled, or fails. It is
// called at most once.
func (g *generation) Run(ctx context.Context, history []llms.Message) (generationResult, error) {
	ctx, span := tracer.Start(ctx, "run generation")
	defer span.End()
	span.SetAttributes(attribute.String("generation.id", g.id))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var workerErr error
	workerErrMu := sync.Mutex{}
	addWorkerErr := func(err error) {
		if err == nil {
			return
		}
		workerErrMu.Lock()
		workerErr = errors.Join(workerErr, err)
		workerErrMu.Unlock()
	}

	run := func(name string, f func(context.Context) error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				addWorkerErr(fmt.Errorf("%s worker panicked: %v", name, recovered))
				cancel()
			}
		}()

		if err := f(ctx); err != nil {
			addWorkerErr(fmt.Errorf("%s worker failed: %w", name, err))
			cancel()
		}
	}

	wg := &sync.WaitGroup{}
	wg.Add(3)
	go func() {
		defer wg.Done()
		run("llm generation", func(ctx context.Context) error {
			return g.generateLLM(ctx, history)
		})
	}()
	go func() {
		defer wg.Done()
		run("response text processing", g.processResponseText)
	}()
	go func() {
		defer wg.Done()
		run("speech processing", g.processSpeech)
	}()

	wg.Wait()

	if err := g.tts.Close(); err != nil {
		span.RecordError(err)
	}

	result := g.result()
	if workerErr != nil {
		err := fmt.Errorf("one or more generation workers failed: %w", workerErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	return result, nil
}

func (g *generation) result() generationResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := generationResult{
		Content:   g.content,
		ToolCalls: append([]llms.ToolCall(nil), g.toolCalls...),
		Cancelled: g.cancelled.Load(),
	}
	if g.tts.connected {
		result.Spoken = strings.Join(g.spoken, "")
	} else {
		result.Spoken = g.content
	}
	return result
}

func (g *generation) generateLLM(ctx context.Context, history []llms.Message) error {
	ctx, span := tracer.Start(ctx, "generate llm response")
	defer span.End()

	response, err := g.llm.generate(ctx, g.instructions, history, func(chunk string) {
		g.textBuffer.AddChunk(chunk)
		g.callbacks.onResponseText(chunk)
	}, g.IsCancelled)
	// The text worker must always be released, success or not.
	g.textBuffer.Complete()
	if err != nil {
		err = fmt.Errorf("failed to generate response: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if response != nil {
		g.mu.Lock()
		g.content = response.Content
		g.toolCalls = response.ToolCalls
		g.mu.Unlock()

		var toolCalls []string
		for _, toolCall := range response.ToolCalls {
			toolCalls = append(toolCalls, toolCall.Name)
		}
		span.SetAttributes(attribute.StringSlice("generation.tool_calls", toolCalls))
	}

	return nil
}

func (g *generation) processResponseText(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			g.textBuffer.Clear()
		case <-done:
		}
	}()

	_, span := tracer.Start(ctx, "passing text to tts")
	defer span.End()

	if err := g.tts.init(ctx, g.ttsClient, g.audioBuffer, g.encodingInfo); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &TransientStreamError{Stage: "tts", Err: err}
	}

	for chunk := range g.textBuffer.Chunks {
		if g.IsCancelled() {
			break
		}

		if err := g.tts.SendText(chunk); err != nil {
			span.RecordError(err)
		}
		if strings.ContainsAny(chunk, ".?!") {
			if err := g.tts.Mark(); err != nil {
				span.RecordError(err)
			}
		}
	}

	if g.IsCancelled() {
		return nil
	}
	if err := g.tts.EndOfText(); err != nil {
		span.RecordError(err)
	}

	return nil
}

func (g *generation) processSpeech(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			g.audioBuffer.Stop()
		case <-done:
		}
	}()

	if ok := g.tts.waitUntilInitialized(ctx); !ok {
		return nil
	}
	if !g.tts.connected {
		return nil
	}

	_, span := tracer.Start(ctx, "delivering speech")
	defer span.End()

	firstFrame := sync.Once{}
	for audioOrMark := range g.audioBuffer.Audio {
		if g.IsCancelled() {
			break
		}

		if audioOrMark.isMark {
			if transcript, ok := g.audioBuffer.MarkTranscript(audioOrMark.Mark); ok {
				g.mu.Lock()
				g.spoken = append(g.spoken, transcript)
				g.mu.Unlock()
			}
			continue
		}

		firstFrame.Do(g.callbacks.onFirstAudio)
		g.callbacks.onAudio(audioOrMark.Audio)
	}

	return nil
}

// Cancel stops the generation. It is safe to call from any goroutine and
// any number of times; only the first call has an effect.
func (g *generation) Cancel() {
	if g == nil || !g.cancelled.CompareAndSwap(false, true) {
		return
	}

	g.textBuffer.Clear()
	g.audioBuffer.Stop()
	if err := g.tts.Cancel(); err != nil {
		logger.Warn("Failed to cancel speech generator", "error", err)
	}
	g.callbacks.onCancel()
}

func (g *generation) IsCancelled() bool {
	if g == nil {
		return false
	}
	return g.cancelled.Load()
}
