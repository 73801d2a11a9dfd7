package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/parley-ai/parley-core/core/audio"
)

// audioBuffer carries synthesized audio from the TTS callbacks to the
// delivery worker, interleaved with marks that track how far into the
// response playback has progressed. Marks are what make interrupted turns
// report only the text that was actually spoken.
type audioBuffer struct {
	mu sync.Mutex

	encodingInfo audio.EncodingInfo

	frames   [][]byte
	playhead int

	marks []audioMark

	allLoaded bool
	stopped   bool

	updateSignal chan struct{}
}

type audioMark struct {
	id          string
	transcript  string
	position    int
	broadcasted bool
}

type audioOrMark struct {
	Audio []byte
	Mark  string

	isMark bool
}

func newAudioBuffer(encodingInfo audio.EncodingInfo) *audioBuffer {
	return &audioBuffer{
		encodingInfo: encodingInfo,
		updateSignal: make(chan struct{}, 1),
	}
}

func (b *audioBuffer) AddAudio(frame []byte) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.frames = append(b.frames, frame)
	b.mu.Unlock()
	b.signalUpdate()
}

// Mark records that all audio buffered so far belongs to the given
// transcript segment.
func (b *audioBuffer) Mark(transcript string) string {
	b.mu.Lock()
	mark := audioMark{
		id:         uuid.NewString(),
		transcript: transcript,
		position:   len(b.frames),
	}
	b.marks = append(b.marks, mark)
	b.mu.Unlock()
	b.signalUpdate()
	return mark.id
}

func (b *audioBuffer) MarkTranscript(id string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, mark := range b.marks {
		if mark.id == id {
			return mark.transcript, true
		}
	}
	return "", false
}

// AllLoaded signals that no more audio is coming; the iterator drains what
// is buffered and returns.
func (b *audioBuffer) AllLoaded() {
	b.mu.Lock()
	b.allLoaded = true
	b.mu.Unlock()
	b.signalUpdate()
}

// Stop terminates the iterator without draining. Buffered audio past the
// playhead is never delivered.
func (b *audioBuffer) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.mu.Unlock()
	b.signalUpdate()
}

// Audio yields frames and marks in buffer order, blocking while the buffer
// is open but empty.
func (b *audioBuffer) Audio(yield func(audioOrMark) bool) {
	for {
		b.mu.Lock()
		if b.stopped {
			b.mu.Unlock()
			return
		}

		if mark, ok := b.nextMarkLocked(); ok {
			b.mu.Unlock()
			if !yield(audioOrMark{Mark: mark, isMark: true}) {
				return
			}
			continue
		}

		if b.playhead < len(b.frames) {
			frame := b.frames[b.playhead]
			b.playhead++
			b.mu.Unlock()
			if !yield(audioOrMark{Audio: frame}) {
				return
			}
			continue
		}

		if b.allLoaded {
			b.mu.Unlock()
			return
		}

		b.mu.Unlock()
		<-b.updateSignal
	}
}

func (b *audioBuffer) nextMarkLocked() (string, bool) {
	for i, mark := range b.marks {
		if mark.broadcasted {
			continue
		}
		if mark.position > b.playhead {
			return "", false
		}
		b.marks[i].broadcasted = true
		return mark.id, true
	}
	return "", false
}

func (b *audioBuffer) signalUpdate() {
	select {
	case b.updateSignal <- struct{}{}:
	default:
	}
}
