package session

import (
	"fmt"
	"testing"
	"time"
)

func TestIngestQueueDeliversInOrder(t *testing.T) {
	q := newIngestQueue(4)

	for i := 0; i < 3; i++ {
		if !q.Push([]byte{byte(i)}) {
			t.Fatalf("push %d failed", i)
		}
	}
	q.Close()

	var got []byte
	for frame := range q.Frames() {
		got = append(got, frame[0])
	}
	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("unexpected delivery order %v", got)
	}
}

func TestIngestQueueDropsOldestUnderOverload(t *testing.T) {
	q := newIngestQueue(2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			q.Push([]byte{byte(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Push to never block under overload")
	}

	if q.Dropped() != 8 {
		t.Fatalf("expected 8 dropped frames, got %d", q.Dropped())
	}

	q.Close()
	var got []byte
	for frame := range q.Frames() {
		got = append(got, frame[0])
	}
	// The newest frames survive.
	if fmt.Sprint(got) != "[8 9]" {
		t.Fatalf("expected the two newest frames, got %v", got)
	}
}

func TestIngestQueuePushAfterClose(t *testing.T) {
	q := newIngestQueue(4)
	q.Close()
	q.Close()

	if q.Push([]byte{0x01}) {
		t.Fatal("expected push after close to be rejected")
	}
}
