// Package vad provides voice activity detection over PCM frames.
//
// The Model is a process-wide, read-only resource: it is loaded once per
// worker (see the worker prewarm hook) and shared by reference across every
// concurrently hosted session. Per-session mutable state lives in a Detector,
// which holds a non-owning reference to the shared model.
package vad

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

const (
	DefaultThreshold  = 0.5
	DefaultWindowSize = 320 // 20ms at 16kHz
	DefaultSampleRate = 16000

	// fullScaleRMS normalizes window energy into a 0..1 speech probability.
	fullScaleRMS = 10000.0
)

// Model scores audio windows for speech probability. All fields are set at
// load time and never mutated afterwards, which makes a single instance safe
// to share across sessions without locking.
type Model struct {
	threshold  float32
	windowSize int
	sampleRate int

	// windowsScored is the only mutable field and is advisory only.
	windowsScored atomic.Uint64
}

type Option func(*Model)

func WithThreshold(threshold float32) Option {
	return func(m *Model) { m.threshold = threshold }
}

func WithWindowSize(samples int) Option {
	return func(m *Model) { m.windowSize = samples }
}

func WithSampleRate(rate int) Option {
	return func(m *Model) { m.sampleRate = rate }
}

// Load constructs the shared model. Call it once at process start, before any
// session is accepted.
func Load(opts ...Option) (*Model, error) {
	m := &Model{
		threshold:  DefaultThreshold,
		windowSize: DefaultWindowSize,
		sampleRate: DefaultSampleRate,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.threshold < 0 || m.threshold > 1 {
		return nil, fmt.Errorf("vad threshold must be between 0 and 1, got %f", m.threshold)
	}
	if m.windowSize <= 0 {
		return nil, fmt.Errorf("vad window size must be positive, got %d", m.windowSize)
	}
	if m.sampleRate <= 0 {
		return nil, fmt.Errorf("vad sample rate must be positive, got %d", m.sampleRate)
	}

	return m, nil
}

func (m *Model) Threshold() float32 { return m.threshold }
func (m *Model) WindowSize() int    { return m.windowSize }
func (m *Model) SampleRate() int    { return m.sampleRate }

// Score returns the speech probability of one window of samples. It is safe
// for concurrent use.
func (m *Model) Score(samples []int16) float32 {
	m.windowsScored.Add(1)

	if len(samples) == 0 {
		return 0
	}

	var energy float64
	for _, sample := range samples {
		energy += float64(sample) * float64(sample)
	}
	rms := math.Sqrt(energy / float64(len(samples)))

	probability := rms / fullScaleRMS
	if probability > 1 {
		probability = 1
	}
	return float32(probability)
}

// WindowsScored reports how many windows the model has scored process-wide.
func (m *Model) WindowsScored() uint64 { return m.windowsScored.Load() }

// BoundaryKind labels a detected segment edge.
type BoundaryKind string

const (
	SpeechStarted BoundaryKind = "speech_started"
	SpeechEnded   BoundaryKind = "speech_ended"
)

// Boundary is an ephemeral speech/silence segment edge. Offset is measured in
// samples from the start of the detector's stream so replays of the same audio
// produce identical boundaries.
type Boundary struct {
	Kind   BoundaryKind
	Offset int
}

// At converts a boundary offset to a stream-relative timestamp.
func (b Boundary) At(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Offset) / float64(sampleRate) * float64(time.Second))
}

// Detector turns per-frame model scores into speech segment boundaries. One
// detector per audio stream; it is not safe for concurrent use.
type Detector struct {
	model *Model

	pending    []int16
	offset     int
	inSpeech   bool
	runLength  int
	minSpeech  int
	minSilence int
}

type DetectorOption func(*Detector)

// WithMinSpeechWindows sets how many consecutive speech windows open a
// segment. Guards against transient noise spikes.
func WithMinSpeechWindows(n int) DetectorOption {
	return func(d *Detector) { d.minSpeech = n }
}

// WithMinSilenceWindows sets how many consecutive silent windows close a
// segment. Guards against intra-word gaps.
func WithMinSilenceWindows(n int) DetectorOption {
	return func(d *Detector) { d.minSilence = n }
}

func NewDetector(model *Model, opts ...DetectorOption) *Detector {
	d := &Detector{
		model:      model,
		minSpeech:  2,
		minSilence: 4,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Push feeds a PCM16LE frame and returns any segment boundaries it produced.
// Partial windows are buffered until enough samples arrive.
func (d *Detector) Push(frame []byte) []Boundary {
	for i := 0; i+1 < len(frame); i += 2 {
		d.pending = append(d.pending, int16(binary.LittleEndian.Uint16(frame[i:i+2])))
	}

	var boundaries []Boundary
	windowSize := d.model.WindowSize()
	for len(d.pending) >= windowSize {
		window := d.pending[:windowSize]
		d.pending = d.pending[windowSize:]

		speech := d.model.Score(window) >= d.model.Threshold()
		if boundary := d.advance(speech, windowSize); boundary != nil {
			boundaries = append(boundaries, *boundary)
		}
		d.offset += windowSize
	}
	return boundaries
}

func (d *Detector) advance(speech bool, windowSize int) *Boundary {
	if speech == d.inSpeech {
		d.runLength = 0
		return nil
	}

	d.runLength++
	if d.inSpeech {
		if d.runLength < d.minSilence {
			return nil
		}
		d.inSpeech = false
		d.runLength = 0
		return &Boundary{Kind: SpeechEnded, Offset: d.offset + windowSize - d.minSilence*windowSize}
	}

	if d.runLength < d.minSpeech {
		return nil
	}
	d.inSpeech = true
	d.runLength = 0
	return &Boundary{Kind: SpeechStarted, Offset: d.offset + windowSize - d.minSpeech*windowSize}
}

// InSpeech reports whether the detector currently considers the stream to be
// inside a speech segment.
func (d *Detector) InSpeech() bool { return d.inSpeech }

// Reset clears per-stream state. The shared model is untouched.
func (d *Detector) Reset() {
	d.pending = nil
	d.offset = 0
	d.inSpeech = false
	d.runLength = 0
}
