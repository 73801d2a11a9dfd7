package session

import (
	"strings"
	"sync"
)

// textBuffer carries streamed response text from the model worker to the
// speech worker. Chunks blocks until more text arrives, the writer marks the
// text complete, or the buffer is cleared.
type textBuffer struct {
	mu           sync.Mutex
	chunks       []string
	consumed     int
	complete     bool
	cleared      bool
	updateSignal chan struct{}
}

func newTextBuffer() *textBuffer {
	return &textBuffer{updateSignal: make(chan struct{}, 1)}
}

func (b *textBuffer) AddChunk(chunk string) {
	b.mu.Lock()
	b.chunks = append(b.chunks, chunk)
	b.mu.Unlock()
	b.signalUpdate()
}

func (b *textBuffer) Complete() {
	b.mu.Lock()
	b.complete = true
	b.mu.Unlock()
	b.signalUpdate()
}

// Clear unblocks any reader and discards unconsumed text. Used on
// cancellation so the speech worker stops at the next chunk boundary.
func (b *textBuffer) Clear() {
	b.mu.Lock()
	b.cleared = true
	b.mu.Unlock()
	b.signalUpdate()
}

func (b *textBuffer) Chunks(yield func(string) bool) {
	for {
		b.mu.Lock()
		if b.cleared {
			b.mu.Unlock()
			return
		}

		if b.consumed < len(b.chunks) {
			chunk := b.chunks[b.consumed]
			b.consumed++
			b.mu.Unlock()
			if !yield(chunk) {
				return
			}
			continue
		}

		if b.complete {
			b.mu.Unlock()
			return
		}

		b.mu.Unlock()
		<-b.updateSignal
	}
}

func (b *textBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.chunks, "")
}

func (b *textBuffer) signalUpdate() {
	select {
	case b.updateSignal <- struct{}{}:
	default:
	}
}
