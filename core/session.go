// Package session orchestrates one full-duplex voice conversation: audio
// ingest, turn taking, speech recognition, response generation, synthesis
// and barge-in interruption.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/parley-ai/parley-core/core/audio"
	"github.com/parley-ai/parley-core/core/events"
	"github.com/parley-ai/parley-core/core/llms"
	"github.com/parley-ai/parley-core/core/metrics"
	"github.com/parley-ai/parley-core/core/vad"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Session struct {
	id     string
	config Config

	states   *stateMachine
	turns    turnLog
	detector *turnDetector

	vadDetector *vad.Detector

	llm          llm
	dispatcher   *toolDispatcher
	speechToText speechToText
	ttsClient    TextToSpeech

	hooks   *hookRegistry
	metrics *metrics.Metrics

	ingest    *ingestQueue
	audioSink func(frame []byte)

	mu               sync.Mutex
	participants     map[string]Participant
	silenceTimer     *time.Timer
	activeGeneration *generation
	turnEndedAt      time.Time

	baseContext context.Context
	cancelBase  context.CancelFunc

	started   atomic.Bool
	startedAt time.Time
	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup

	optionErr error
}

// Participant is a remote party attached to the session. The noise
// suppression profile is chosen once at join time and never changes.
type Participant struct {
	Identity string
	Kind     audio.ParticipantKind
	Profile  audio.NoiseSuppressionProfile
	Primary  bool
}

type ParticipantChange string

const (
	ParticipantJoined ParticipantChange = "joined"
	ParticipantLeft   ParticipantChange = "left"
)

// ParticipantEvent describes a room membership change delivered by the
// transport.
type ParticipantEvent struct {
	Identity string
	Kind     audio.ParticipantKind
	Change   ParticipantChange
	// Primary marks the participant whose departure ends the session.
	Primary bool
}

// New builds a session. The configuration is validated up front; a session
// with a rejected configuration is never created.
func New(config Config, opts ...Option) (*Session, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	dispatcher := newToolDispatcher(config.ToolTimeout)
	s := &Session{
		id:           uuid.NewString(),
		config:       config,
		detector:     newTurnDetector(config.SilenceThreshold, config.InterruptionDebounce),
		llm:          newLLM(dispatcher),
		dispatcher:   dispatcher,
		hooks:        newHookRegistry(),
		ingest:       newIngestQueue(config.IngestQueueSize),
		audioSink:    func([]byte) {},
		participants: map[string]Participant{},
		closed:       make(chan struct{}),
	}
	s.states = newStateMachine(nil)
	s.llm.emitEvent = s.emit

	for _, opt := range opts {
		opt(s)
	}
	if s.optionErr != nil {
		return nil, s.optionErr
	}

	return s, nil
}

func (s *Session) ID() string { return s.id }

// State returns the current turn-taking state.
func (s *Session) State() State { return s.states.Current() }

// History returns a point-in-time copy of all turns so far.
func (s *Session) History() []Turn { return s.turns.Snapshot() }

// On registers an event handler. Register before Start; handlers run
// synchronously on the emitting goroutine.
func (s *Session) On(kind events.Kind, handler func(events.Event)) {
	s.hooks.on(kind, handler)
}

// Start begins the session: the ingest pump and transcription stream come
// up, and the greeting generation runs if one is configured. Start may be
// called once.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("session already started")
	}

	ctx, span := tracer.Start(ctx, "start session")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", s.id))

	if err := s.states.transition(StateListening); err != nil {
		span.RecordError(err)
		return err
	}

	s.baseContext, s.cancelBase = context.WithCancel(context.WithoutCancel(ctx))
	s.startedAt = time.Now()
	if s.metrics != nil {
		s.metrics.SessionsStarted.Inc()
		s.metrics.ActiveSessions.Inc()
	}
	s.emit(events.NewSessionStarted(s.id))

	if err := s.speechToText.start(s.baseContext, speechToTextCallbacks{
		onSpeechStarted:        func() { s.handleSpeechStarted(time.Now()) },
		onSpeechEnded:          func() { s.handleSpeechEnded(time.Now()) },
		onInterimTranscription: s.handleInterimTranscript,
		onPartialTranscription: s.handleFinalTranscript,
		onTranscription:        s.handleTranscriptComplete,
	}, s.config.EncodingInfo); err != nil {
		err = fmt.Errorf("failed to initialize speech-to-text: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.wg.Add(1)
	go s.pumpFrames()

	go func() {
		select {
		case <-ctx.Done():
			s.Close("context cancelled")
		case <-s.closed:
		}
	}()

	if s.config.GreetingInstructions != "" {
		if s.states.transitionIf(StateThinking, StateListening) {
			greeting := s.config.Instructions
			if greeting != "" {
				greeting += "\n\n"
			}
			greeting += s.config.GreetingInstructions
			s.startGeneration(greeting)
		}
	}

	return nil
}

// PushAudio hands one input audio frame to the session. It never blocks:
// under overload the oldest queued frame is dropped.
func (s *Session) PushAudio(frame []byte) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	before := s.ingest.Dropped()
	if !s.ingest.Push(frame) {
		return ErrSessionClosed
	}
	if s.metrics != nil {
		s.metrics.FramesIngested.Inc()
		if dropped := s.ingest.Dropped() - before; dropped > 0 {
			s.metrics.FramesDropped.Add(float64(dropped))
		}
	}
	return nil
}

// HandleParticipant processes a room membership change. On join it returns
// the noise suppression profile selected for the participant; the selection
// is pure and stable for the participant's lifetime. The primary
// participant leaving closes the session cleanly.
func (s *Session) HandleParticipant(event ParticipantEvent) (audio.NoiseSuppressionProfile, error) {
	select {
	case <-s.closed:
		return "", ErrSessionClosed
	default:
	}

	switch event.Change {
	case ParticipantJoined:
		s.mu.Lock()
		if existing, ok := s.participants[event.Identity]; ok {
			s.mu.Unlock()
			return existing.Profile, nil
		}
		participant := Participant{
			Identity: event.Identity,
			Kind:     event.Kind,
			Profile:  audio.ProfileFor(event.Kind),
			Primary:  event.Primary,
		}
		s.participants[event.Identity] = participant
		s.mu.Unlock()

		s.emit(events.NewParticipantJoined(event.Identity, string(event.Kind)))
		return participant.Profile, nil

	case ParticipantLeft:
		s.mu.Lock()
		participant, ok := s.participants[event.Identity]
		delete(s.participants, event.Identity)
		s.mu.Unlock()

		if !ok {
			return "", fmt.Errorf("unknown participant %q", event.Identity)
		}
		s.emit(events.NewParticipantLeft(event.Identity))
		if participant.Primary {
			s.Close(ErrParticipantDisconnect.Error())
		}
		return participant.Profile, nil

	default:
		return "", fmt.Errorf("unknown participant change %q", event.Change)
	}
}

// Close shuts the session down: the active generation is cancelled, the
// open turn is finalized and providers are released. Close is idempotent.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		close(s.closed)

		s.mu.Lock()
		if s.silenceTimer != nil {
			s.silenceTimer.Stop()
			s.silenceTimer = nil
		}
		gen := s.activeGeneration
		s.mu.Unlock()
		gen.Cancel()

		if turn := s.turns.activeTurn(); turn != nil && turn.Speaker == SpeakerUser {
			if s.turns.close(turn, TurnFinalized) {
				s.emit(events.NewTurnFinalized(turn.ID, turn.Transcript))
			}
		}

		s.ingest.Close()
		if err := s.speechToText.Close(s.baseContext); err != nil {
			logger.Warn("Failed to close speech-to-text client", "error", err)
		}

		// A provider stream stalled mid-read never reaches the cooperative
		// cancellation check; cutting the base context unblocks it before
		// the wait.
		if s.cancelBase != nil {
			s.cancelBase()
		}

		s.wg.Wait()

		if err := s.states.transition(StateClosed); err != nil {
			logger.Warn("Failed to transition to closed state", "error", err)
		}

		if s.metrics != nil {
			s.metrics.SessionsClosed.Inc()
			s.metrics.ActiveSessions.Dec()
			if !s.startedAt.IsZero() {
				s.metrics.SessionDuration.Observe(time.Since(s.startedAt).Seconds())
			}
		}
		s.emit(events.NewSessionClosed(s.id, reason))
	})
}

func (s *Session) emit(event events.Event) {
	s.hooks.emit(event)
}

// pumpFrames drains the ingest queue: every frame is forwarded to the
// transcription stream and scored by the local voice-activity detector, and
// pending barge-in candidates are re-evaluated against the frame clock.
func (s *Session) pumpFrames() {
	defer s.wg.Done()

	for frame := range s.ingest.Frames() {
		now := time.Now()

		if err := s.speechToText.SendAudio(frame); err != nil {
			logger.Warn("Failed to forward audio to speech-to-text", "error", err)
		}

		if s.vadDetector != nil {
			for _, boundary := range s.vadDetector.Push(frame) {
				switch boundary.Kind {
				case vad.SpeechStarted:
					s.handleSpeechStarted(now)
				case vad.SpeechEnded:
					s.handleSpeechEnded(now)
				}
			}
		}

		if s.detector.InterruptionPending() {
			s.applyDecision(s.detector.SpeechContinued(now))
		}
	}
}

func (s *Session) agentBusy() bool {
	state := s.states.Current()
	return state == StateThinking || state == StateAgentSpeaking
}

func (s *Session) handleSpeechStarted(now time.Time) {
	s.mu.Lock()
	if s.silenceTimer != nil {
		s.silenceTimer.Stop()
		s.silenceTimer = nil
	}
	s.mu.Unlock()

	s.applyDecision(s.detector.SpeechStarted(now, s.agentBusy()))
}

func (s *Session) handleSpeechEnded(now time.Time) {
	s.applyDecision(s.detector.SpeechEnded(now))

	if !s.detector.UserSpeaking() && s.turns.activeTurn() != nil {
		s.emit(events.NewUserSpeechEnded())
		s.scheduleSilenceTimer()
	}
}

func (s *Session) scheduleSilenceTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.silenceTimer != nil {
		s.silenceTimer.Stop()
	}
	s.silenceTimer = time.AfterFunc(s.config.SilenceThreshold, func() {
		s.applyDecision(s.detector.SilenceElapsed(time.Now()))
	})
}

func (s *Session) handleInterimTranscript(transcript string) {
	s.turns.setInterim(transcript)
	s.emit(events.NewUserTranscriptInterim(transcript))
}

func (s *Session) handleFinalTranscript(fragment string) {
	s.turns.appendTranscript(fragment)
	s.emit(events.NewUserTranscriptFinal(fragment))
}

// handleTranscriptComplete fires when the transcription provider considers
// the utterance finished. With preemptive generation enabled this is the
// confident end-of-turn signal that lets thinking start before the silence
// window closes.
func (s *Session) handleTranscriptComplete(transcript string) {
	if turn := s.turns.activeTurn(); turn != nil && turn.Speaker == SpeakerUser {
		if turn.Transcript == "" {
			s.turns.appendTranscript(transcript)
			s.emit(events.NewUserTranscriptFinal(transcript))
		}
	}

	if s.config.PreemptiveGeneration && !s.detector.UserSpeaking() {
		s.finalizeUserTurn()
	}
}

func (s *Session) applyDecision(decision turnDecision) {
	switch decision {
	case decisionUserTurnStarted:
		s.beginUserTurn()

	case decisionInterruption:
		s.interrupt()

	case decisionUserTurnEnded:
		s.finalizeUserTurn()
	}
}

func (s *Session) beginUserTurn() {
	if !s.states.transitionIf(StateHumanSpeaking, StateListening, StateInterrupted) {
		return
	}

	turn := s.turns.begin(SpeakerUser)
	if s.metrics != nil {
		s.metrics.UserTurns.Inc()
	}
	s.emit(events.NewUserSpeechStarted())
	s.emit(events.NewTurnStarted(turn.ID, string(SpeakerUser)))
}

// interrupt handles a confirmed barge-in: the in-flight generation is
// cancelled before anything else so agent audio stops within the current
// frame, then the floor passes to the user.
func (s *Session) interrupt() {
	s.mu.Lock()
	gen := s.activeGeneration
	s.mu.Unlock()

	if gen == nil || gen.IsCancelled() {
		// The agent finished on its own while the debounce window ran out;
		// this is ordinary user speech, not a barge-in.
		s.beginUserTurn()
		return
	}

	if !s.states.transitionIf(StateInterrupted, StateAgentSpeaking, StateThinking) {
		s.beginUserTurn()
		return
	}

	gen.Cancel()
	if s.metrics != nil {
		s.metrics.Interruptions.Inc()
	}

	s.states.transitionIf(StateHumanSpeaking, StateInterrupted)
	turn := s.turns.begin(SpeakerUser)
	if s.metrics != nil {
		s.metrics.UserTurns.Inc()
	}
	s.emit(events.NewUserSpeechStarted())
	s.emit(events.NewTurnStarted(turn.ID, string(SpeakerUser)))
}

// finalizeUserTurn closes the open user turn and, if it produced any
// transcript, hands off to a generation. Finalization is monotonic: once
// closed the turn never changes again.
func (s *Session) finalizeUserTurn() {
	turn := s.turns.activeTurn()
	if turn == nil || turn.Speaker != SpeakerUser {
		return
	}
	if !s.turns.close(turn, TurnFinalized) {
		return
	}
	s.emit(events.NewTurnFinalized(turn.ID, turn.Transcript))

	s.mu.Lock()
	s.turnEndedAt = time.Now()
	s.mu.Unlock()

	if turn.Transcript == "" {
		s.states.transitionIf(StateListening, StateHumanSpeaking)
		return
	}

	if !s.states.transitionIf(StateThinking, StateHumanSpeaking, StateListening) {
		return
	}
	s.startGeneration(s.config.Instructions)
}

// startGeneration spawns the response pipeline for the current history. At
// most one generation runs at a time.
func (s *Session) startGeneration(instructions string) {
	s.mu.Lock()
	if s.activeGeneration != nil && !s.activeGeneration.IsCancelled() {
		s.mu.Unlock()
		return
	}

	agentTurn := s.turns.begin(SpeakerAgent)
	history := s.turns.messages()

	gen := newGeneration(s.llm, instructions, s.ttsClient, s.config.EncodingInfo, generationCallbacks{
		onResponseText: func(chunk string) {
			s.emit(events.NewAgentResponseSegment(chunk))
		},
		onFirstAudio: func() {
			if s.states.transitionIf(StateAgentSpeaking, StateThinking) {
				s.observeReplyLatency()
			}
		},
		onAudio: func(frame []byte) {
			s.emit(events.NewAgentSpeechFrame(frame))
			s.audioSink(frame)
		},
		onCancel: func() {
			if s.metrics != nil {
				s.metrics.GenerationsCancelled.Inc()
			}
		},
	})
	s.activeGeneration = gen
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.GenerationsStarted.Inc()
	}
	s.emit(events.NewTurnStarted(agentTurn.ID, string(SpeakerAgent)))

	s.wg.Add(1)
	go s.runGeneration(gen, agentTurn, history)
}

func (s *Session) runGeneration(gen *generation, agentTurn *Turn, history []llms.Message) {
	defer s.wg.Done()

	start := time.Now()
	result, err := gen.Run(s.baseContext, history)
	if s.metrics != nil {
		s.metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	}

	s.mu.Lock()
	if s.activeGeneration == gen {
		s.activeGeneration = nil
	}
	s.mu.Unlock()

	s.turns.setToolCalls(agentTurn, result.ToolCalls)

	switch {
	case result.Cancelled:
		// A barge-in cut the reply short. Only the mark-confirmed prefix
		// enters the history so the model never believes it said the rest.
		if s.turns.closeWith(agentTurn, TurnInterrupted, result.Spoken) {
			if s.metrics != nil {
				s.metrics.AgentTurns.Inc()
			}
			s.emit(events.NewTurnInterrupted(agentTurn.ID))
		}

	case err != nil:
		if s.metrics != nil {
			s.metrics.GenerationsFailed.Inc()
			s.metrics.AbandonedTurns.Inc()
		}
		logger.Error("Generation failed", "error", err, "session", s.id)
		if s.turns.close(agentTurn, TurnAbandoned) {
			s.emit(events.NewTurnAbandoned(agentTurn.ID, err.Error()))
		}
		s.emit(events.NewGenerationFailed(s.id, agentTurn.ID, err.Error()))
		s.states.transitionIf(StateListening, StateThinking, StateAgentSpeaking)

	default:
		if s.turns.closeWith(agentTurn, TurnFinalized, result.Content) {
			if s.metrics != nil {
				s.metrics.AgentTurns.Inc()
			}
			s.emit(events.NewAgentResponseFinal(result.Content))
			s.emit(events.NewTurnFinalized(agentTurn.ID, result.Content))
			s.emit(events.NewAgentSpeechEnded(result.Spoken))
		}
		s.states.transitionIf(StateListening, StateThinking, StateAgentSpeaking)
	}
}

func (s *Session) observeReplyLatency() {
	if s.metrics == nil {
		return
	}
	s.mu.Lock()
	turnEndedAt := s.turnEndedAt
	s.mu.Unlock()
	if !turnEndedAt.IsZero() {
		s.metrics.TurnSilenceToReply.Observe(time.Since(turnEndedAt).Seconds())
	}
}
