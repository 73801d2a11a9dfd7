package session

import (
	"sync"
	"sync/atomic"
)

// ingestQueue decouples the transport's audio delivery from the session's
// processing rate. Push never blocks: under sustained overload the oldest
// buffered frame is dropped to make room, so the queue always holds the most
// recent audio.
type ingestQueue struct {
	mu     sync.Mutex
	frames chan []byte
	closed bool

	dropped atomic.Uint64
	pushed  atomic.Uint64
}

func newIngestQueue(size int) *ingestQueue {
	return &ingestQueue{frames: make(chan []byte, size)}
}

func (q *ingestQueue) Push(frame []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	for {
		select {
		case q.frames <- frame:
			q.pushed.Add(1)
			return true
		default:
		}

		select {
		case <-q.frames:
			q.dropped.Add(1)
		default:
		}
	}
}

func (q *ingestQueue) Frames() <-chan []byte {
	return q.frames
}

func (q *ingestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.frames)
}

func (q *ingestQueue) Dropped() uint64 { return q.dropped.Load() }
func (q *ingestQueue) Pushed() uint64  { return q.pushed.Load() }
