package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parley-ai/parley-core/core/audio"
	"github.com/parley-ai/parley-core/core/llms"
	"github.com/parley-ai/parley-core/core/texttospeech"
)

func newTestLLM(t *testing.T, client llms.StreamingClient, tools ...llms.Tool) llm {
	t.Helper()

	dispatcher := newToolDispatcher(time.Second)
	for _, tool := range tools {
		if err := dispatcher.Register(tool); err != nil {
			t.Fatalf("failed to register tool: %v", err)
		}
	}

	l := newLLM(dispatcher)
	l.set(client)
	return l
}

func TestGenerationStreamsTextAndAudio(t *testing.T) {
	stub := &scriptedLLMStub{rounds: [][]llms.StreamChunk{{
		streamContentChunkStub{content: "Hello "},
		streamContentChunkStub{content: "there."},
	}}}
	tts := &ttsClientStub{}

	var mu sync.Mutex
	var text []string
	var frames int
	firstAudio := atomic.Int32{}

	g := newGeneration(newTestLLM(t, stub), "be brief", tts, audio.GetDefaultEncodingInfo(), generationCallbacks{
		onResponseText: func(chunk string) {
			mu.Lock()
			text = append(text, chunk)
			mu.Unlock()
		},
		onFirstAudio: func() { firstAudio.Add(1) },
		onAudio: func([]byte) {
			mu.Lock()
			frames++
			mu.Unlock()
		},
	})

	result, err := g.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Content != "Hello there." {
		t.Fatalf("unexpected content %q", result.Content)
	}
	if result.Spoken != "Hello there." {
		t.Fatalf("unexpected spoken text %q", result.Spoken)
	}
	if result.Cancelled {
		t.Fatal("expected a completed generation")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(text) != 2 || text[0] != "Hello " || text[1] != "there." {
		t.Fatalf("unexpected text chunks %v", text)
	}
	if frames < 2 {
		t.Fatalf("expected at least one audio frame per chunk, got %d", frames)
	}
	if firstAudio.Load() != 1 {
		t.Fatalf("expected exactly one first-audio callback, got %d", firstAudio.Load())
	}
}

func TestGenerationWithoutSpeechChannel(t *testing.T) {
	stub := &scriptedLLMStub{rounds: [][]llms.StreamChunk{{
		streamContentChunkStub{content: "Text only."},
	}}}

	g := newGeneration(newTestLLM(t, stub), "", nil, audio.GetDefaultEncodingInfo(), generationCallbacks{})

	result, err := g.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Content != "Text only." {
		t.Fatalf("unexpected content %q", result.Content)
	}
	// Without synthesis the whole response counts as delivered.
	if result.Spoken != result.Content {
		t.Fatalf("expected spoken to equal content, got %q", result.Spoken)
	}
}

func TestGenerationReinjectsToolResultsInRequestOrder(t *testing.T) {
	releaseAlpha := make(chan struct{})
	alpha := llms.NewTool("alpha", "slow tool", func(struct{}) (string, error) {
		<-releaseAlpha
		return "alpha-result", nil
	})
	bravo := llms.NewTool("bravo", "fast tool", func(struct{}) (string, error) {
		// Finishes first; its result must still come second.
		defer close(releaseAlpha)
		return "bravo-result", nil
	})

	stub := &scriptedLLMStub{rounds: [][]llms.StreamChunk{
		{
			streamToolCallChunkStub{call: llms.ToolCall{ID: "call-a", Name: "alpha"}},
			streamToolCallChunkStub{call: llms.ToolCall{ID: "call-b", Name: "bravo"}},
		},
		{streamContentChunkStub{content: "Done."}},
	}}

	g := newGeneration(newTestLLM(t, stub, alpha, bravo), "", nil, audio.GetDefaultEncodingInfo(), generationCallbacks{})

	result, err := g.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Content != "Done." {
		t.Fatalf("unexpected content %q", result.Content)
	}
	if len(result.ToolCalls) != 2 || result.ToolCalls[0].Name != "alpha" || result.ToolCalls[1].Name != "bravo" {
		t.Fatalf("unexpected tool calls %+v", result.ToolCalls)
	}

	if stub.calls() != 2 {
		t.Fatalf("expected 2 model calls, got %d", stub.calls())
	}
	messages := stub.promptOptions(1).Messages
	if len(messages) != 3 {
		t.Fatalf("expected assistant + 2 tool messages, got %d: %+v", len(messages), messages)
	}
	if messages[0].Role != llms.RoleAssistant || len(messages[0].ToolCalls) != 2 {
		t.Fatalf("unexpected assistant message %+v", messages[0])
	}
	if messages[1].ToolCallID != "call-a" || messages[1].Content != "alpha-result" {
		t.Fatalf("expected alpha's result first, got %+v", messages[1])
	}
	if messages[2].ToolCallID != "call-b" || messages[2].Content != "bravo-result" {
		t.Fatalf("expected bravo's result second, got %+v", messages[2])
	}
}

// slowStartTTSClient holds generator construction until released, so the
// speech worker reliably reaches its readiness wait before synthesis is up.
type slowStartTTSClient struct {
	inner   ttsClientStub
	release chan struct{}
}

func (stub *slowStartTTSClient) NewSpeechGenerator(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error) {
	<-stub.release
	return stub.inner.NewSpeechGenerator(ctx, opts...)
}

func TestGenerationDeliversAudioWhenSynthesisSetupLags(t *testing.T) {
	stub := &scriptedLLMStub{rounds: [][]llms.StreamChunk{{
		streamContentChunkStub{content: "Right away."},
	}}}
	tts := &slowStartTTSClient{release: make(chan struct{})}

	frames := atomic.Int32{}
	g := newGeneration(newTestLLM(t, stub), "", tts, audio.GetDefaultEncodingInfo(), generationCallbacks{
		onAudio: func([]byte) { frames.Add(1) },
	})

	results := make(chan generationResult, 1)
	go func() {
		result, _ := g.Run(context.Background(), nil)
		results <- result
	}()

	// Let the speech worker start waiting, then bring the generator up.
	time.Sleep(20 * time.Millisecond)
	close(tts.release)

	var result generationResult
	select {
	case result = <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the generation to finish")
	}

	if result.Spoken != "Right away." {
		t.Fatalf("unexpected spoken text %q", result.Spoken)
	}
	if frames.Load() == 0 {
		t.Fatal("expected audio frames despite the late generator")
	}
}

func TestGenerationCancelIsIdempotent(t *testing.T) {
	tts := &ttsClientStub{}
	cancelCalls := atomic.Int32{}
	responseStarted := make(chan struct{}, 1)

	g := newGeneration(
		newTestLLM(t, repeatingStreamLLMStub{chunk: "chunk. ", interval: 5 * time.Millisecond}),
		"", tts, audio.GetDefaultEncodingInfo(),
		generationCallbacks{
			onResponseText: func(string) {
				select {
				case responseStarted <- struct{}{}:
				default:
				}
			},
			onCancel: func() { cancelCalls.Add(1) },
		},
	)

	results := make(chan generationResult, 1)
	go func() {
		result, _ := g.Run(context.Background(), nil)
		results <- result
	}()

	select {
	case <-responseStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the generation to start")
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Cancel()
		}()
	}
	wg.Wait()

	var result generationResult
	select {
	case result = <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the cancelled generation to finish")
	}

	if !result.Cancelled {
		t.Fatal("expected a cancelled result")
	}
	if got := cancelCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one cancel callback, got %d", got)
	}
	if generator := tts.generator(0); generator != nil && !generator.wasCancelled() {
		t.Fatal("expected the speech generator to be cancelled")
	}
	if !g.IsCancelled() {
		t.Fatal("expected the generation to stay cancelled")
	}
}

type failingStream struct{ err error }

func (stream failingStream) Chunks(context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		yield(nil, stream.err)
	}
}

type failingLLMStub struct{ err error }

func (stub failingLLMStub) PromptWithStream(context.Context, ...llms.PromptOption) llms.Stream {
	return failingStream{err: stub.err}
}

func TestGenerationSurfacesStreamFailure(t *testing.T) {
	g := newGeneration(
		newTestLLM(t, failingLLMStub{err: context.DeadlineExceeded}),
		"", nil, audio.GetDefaultEncodingInfo(),
		generationCallbacks{},
	)

	_, err := g.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected the stream failure to surface")
	}
}
