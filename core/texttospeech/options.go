package texttospeech

import "github.com/parley-ai/parley-core/core/audio"

type TextToSpeechOptions struct {
	// SpeechAudioCallback is called for every chunk of synthesized audio.
	SpeechAudioCallback func(audio []byte)
	// SpeechMarkCallback is called once speech has been produced up to a
	// marked point in the text. Each mark is reported once.
	SpeechMarkCallback func(string)
	// SpeechEndedCallback is called when all submitted text has been
	// synthesized and the generator is done.
	SpeechEndedCallback func()
	// ErrorCallback is called when the generator encounters an error, which
	// usually means it has been cancelled.
	ErrorCallback func(error)

	EncodingInfo audio.EncodingInfo
}

type TextToSpeechOption func(*TextToSpeechOptions)

func WithSpeechAudioCallback(callback func([]byte)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		o.SpeechAudioCallback = callback
	}
}

func WithSpeechMarkCallback(callback func(string)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		o.SpeechMarkCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithErrorCallback(callback func(error)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		o.ErrorCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

// SpeechGenerator synthesizes one utterance from incrementally submitted
// text.
type SpeechGenerator interface {
	// SendText submits more text. Speech is generated in submission order.
	//
	// SendText errors if EndOfText, Cancel or Close has been called.
	SendText(string) error
	// Mark marks the current point in the text. The mark is reported through
	// SpeechMarkCallback once speech up to it has been generated, though not
	// necessarily at that exact point in the audio.
	//
	// Mark errors if EndOfText, Cancel or Close has been called.
	Mark() error
	// EndOfText signals that no more text is coming. The generator closes
	// itself once the remaining speech has been produced.
	//
	// EndOfText errors if Cancel or Close has been called. Repeated calls
	// are ignored.
	EndOfText() error
	// Cancel immediately stops further speech generation, discarding any
	// buffered text, and closes the generator. No audio is delivered after
	// Cancel returns.
	//
	// Cancel errors if Close has been called. Repeated calls are ignored.
	Cancel() error
	// Close immediately closes the generator.
	//
	// Repeated calls are ignored.
	Close() error
}
