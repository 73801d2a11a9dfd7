package session

import (
	"context"
	"fmt"

	"github.com/parley-ai/parley-core/core/audio"
	"github.com/parley-ai/parley-core/core/texttospeech"
)

// TextToSpeech is the contract a synthesis provider fulfils. A generator is
// opened per agent turn and discarded afterwards.
type TextToSpeech interface {
	NewSpeechGenerator(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error)
}

// generationTTS manages the speech generator for one generation. The speech
// worker waits on initialized before reading the audio buffer so a failed
// connection degrades to a text-only response instead of hanging.
type generationTTS struct {
	generator texttospeech.SpeechGenerator

	initialized chan struct{}
	connected   bool
}

// newGenerationTTS builds the facade with its readiness channel in place, so
// the speech worker can wait on it no matter which worker runs first.
func newGenerationTTS() generationTTS {
	return generationTTS{initialized: make(chan struct{})}
}

func (t *generationTTS) init(ctx context.Context, client TextToSpeech, buffer *audioBuffer, encodingInfo audio.EncodingInfo) error {
	defer close(t.initialized)

	if client == nil {
		return nil
	}

	generator, err := client.NewSpeechGenerator(ctx,
		texttospeech.WithSpeechAudioCallback(buffer.AddAudio),
		texttospeech.WithSpeechMarkCallback(func(transcript string) { buffer.Mark(transcript) }),
		texttospeech.WithSpeechEndedCallback(buffer.AllLoaded),
		texttospeech.WithEncodingInfo(encodingInfo),
	)
	if err != nil {
		return fmt.Errorf("failed to create speech generator: %w", err)
	}

	t.generator = generator
	t.connected = true
	return nil
}

func (t *generationTTS) waitUntilInitialized(ctx context.Context) bool {
	select {
	case <-t.initialized:
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *generationTTS) SendText(text string) error {
	if t.generator == nil {
		return nil
	}
	if err := t.generator.SendText(text); err != nil {
		return fmt.Errorf("failed to send text to tts: %w", err)
	}
	return nil
}

func (t *generationTTS) Mark() error {
	if t.generator == nil {
		return nil
	}
	if err := t.generator.Mark(); err != nil {
		return fmt.Errorf("failed to send mark to tts: %w", err)
	}
	return nil
}

func (t *generationTTS) EndOfText() error {
	if t.generator == nil {
		return nil
	}
	if err := t.generator.Mark(); err != nil {
		return fmt.Errorf("failed to send final mark to tts: %w", err)
	}
	if err := t.generator.EndOfText(); err != nil {
		return fmt.Errorf("failed to send end of text to tts: %w", err)
	}
	return nil
}

func (t *generationTTS) Cancel() error {
	if t.generator == nil {
		return nil
	}
	if err := t.generator.Cancel(); err != nil {
		return fmt.Errorf("failed to cancel tts: %w", err)
	}
	return nil
}

func (t *generationTTS) Close() error {
	if t.generator == nil {
		return nil
	}
	if err := t.generator.Close(); err != nil {
		return fmt.Errorf("failed to close tts: %w", err)
	}
	return nil
}
