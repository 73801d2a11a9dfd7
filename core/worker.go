package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/parley-ai/parley-core/core/events"
	"github.com/parley-ai/parley-core/core/metrics"
	"github.com/parley-ai/parley-core/core/vad"
)

// Worker owns process-wide resources and the set of live sessions. Prewarm
// loads the voice-activity model once; every session the worker accepts
// shares it read-only.
type Worker struct {
	mu       sync.Mutex
	sessions map[string]*Session
	draining bool

	vadModel *vad.Model
	metrics  *metrics.Metrics
}

type WorkerOption func(*Worker)

// WithWorkerMetrics attaches a metrics set propagated to every accepted
// session.
func WithWorkerMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

func NewWorker(opts ...WorkerOption) *Worker {
	w := &Worker{sessions: map[string]*Session{}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Prewarm loads resources that are expensive to build per session. Call it
// once before accepting work; Accept on a cold worker still succeeds, the
// sessions just run without local voice-activity detection.
func (w *Worker) Prewarm(ctx context.Context, opts ...vad.Option) error {
	_, span := tracer.Start(ctx, "prewarm worker")
	defer span.End()

	model, err := vad.Load(opts...)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to load vad model: %w", err)
	}

	w.mu.Lock()
	w.vadModel = model
	w.mu.Unlock()
	return nil
}

// Accept builds and tracks a session. Worker-held resources (voice-activity
// model, metrics) are wired in ahead of the caller's options so the caller
// can still override them.
func (w *Worker) Accept(config Config, opts ...Option) (*Session, error) {
	w.mu.Lock()
	if w.draining {
		w.mu.Unlock()
		return nil, fmt.Errorf("worker is draining")
	}
	model := w.vadModel
	m := w.metrics
	w.mu.Unlock()

	workerOpts := []Option{}
	if model != nil {
		workerOpts = append(workerOpts, WithVADModel(model))
	}
	if m != nil {
		workerOpts = append(workerOpts, WithMetrics(m))
	}

	s, err := New(config, append(workerOpts, opts...)...)
	if err != nil {
		return nil, err
	}

	s.hooks.on(events.KindSessionClosed, func(events.Event) {
		w.remove(s.id)
	})

	w.mu.Lock()
	w.sessions[s.id] = s
	w.mu.Unlock()
	return s, nil
}

func (w *Worker) remove(id string) {
	w.mu.Lock()
	delete(w.sessions, id)
	w.mu.Unlock()
}

// ActiveSessions reports how many sessions the worker currently tracks.
func (w *Worker) ActiveSessions() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sessions)
}

// Drain stops accepting sessions and closes the live ones. It returns once
// every session has shut down or the context expires.
func (w *Worker) Drain(ctx context.Context) error {
	w.mu.Lock()
	w.draining = true
	live := make([]*Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		live = append(live, s)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, s := range live {
			s.Close("worker draining")
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain interrupted: %w", ctx.Err())
	}
}
