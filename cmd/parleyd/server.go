package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	session "github.com/parley-ai/parley-core/core"
	"github.com/parley-ai/parley-core/core/audio"
	"github.com/parley-ai/parley-core/core/events"
	"github.com/parley-ai/parley-core/core/llms"
	"github.com/parley-ai/parley-core/core/llms/gemini"
	"github.com/parley-ai/parley-core/core/llms/openai"
	deepgramstt "github.com/parley-ai/parley-core/core/speechtotext/deepgram"
	deepgramtts "github.com/parley-ai/parley-core/core/texttospeech/deepgram"
	"github.com/parley-ai/parley-core/internal/config"
)

// sessionServer bridges websocket connections to engine sessions. Binary
// messages carry audio in both directions; text messages carry JSON control
// and event envelopes.
type sessionServer struct {
	cfg      *config.Config
	worker   *session.Worker
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func newSessionServer(cfg *config.Config, worker *session.Worker, logger *slog.Logger) *sessionServer {
	return &sessionServer{
		cfg:    cfg,
		worker: worker,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *sessionServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/session", s.handleSession)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *sessionServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *sessionServer) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	link := &clientLink{conn: conn}
	encodingInfo := encodingInfoFor(s.cfg.Audio)

	tts, err := deepgramtts.NewTextToSpeechClient(r.Context(), ttsVoice(s.cfg.Providers),
		deepgramtts.WithEncodingInfo(encodingInfo),
	)
	if err != nil {
		s.logger.Error("Failed to build speech synthesis client", slog.String("error", err.Error()))
		link.sendJSON(errorEnvelope{Error: err.Error()})
		return
	}

	sess, err := s.worker.Accept(s.sessionConfig(encodingInfo),
		session.WithStreamingLLM(newLLMClient(s.cfg.Providers)),
		session.WithSpeechToTextClient(newTranscriptionClient(s.cfg.Providers)),
		session.WithTextToSpeechClient(tts),
		session.WithAudioSink(link.sendAudio),
		session.WithEventObserver(link.sendEvent),
	)
	if err != nil {
		s.logger.Error("Failed to accept session", slog.String("error", err.Error()))
		link.sendJSON(errorEnvelope{Error: err.Error()})
		return
	}

	if err := sess.Start(r.Context()); err != nil {
		s.logger.Error("Failed to start session",
			slog.String("session_id", sess.ID()),
			slog.String("error", err.Error()),
		)
		link.sendJSON(errorEnvelope{Error: err.Error()})
		sess.Close("startup failed")
		return
	}
	s.logger.Info("Session started", slog.String("session_id", sess.ID()))

	s.readLoop(sess, link)

	sess.Close("client disconnected")
	s.logger.Info("Session ended", slog.String("session_id", sess.ID()))
}

func (s *sessionServer) readLoop(sess *session.Session, link *clientLink) {
	for {
		messageType, payload, err := link.conn.ReadMessage()
		if err != nil {
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if err := sess.PushAudio(payload); err != nil {
				return
			}
		case websocket.TextMessage:
			s.handleControl(sess, link, payload)
		}
	}
}

type controlMessage struct {
	Type     string `json:"type"`
	Identity string `json:"identity"`
	Kind     string `json:"kind"`
	Primary  bool   `json:"primary"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

func (s *sessionServer) handleControl(sess *session.Session, link *clientLink, payload []byte) {
	var msg controlMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		link.sendJSON(errorEnvelope{Error: "malformed control message"})
		return
	}

	var change session.ParticipantChange
	switch msg.Type {
	case "participant_joined":
		change = session.ParticipantJoined
	case "participant_left":
		change = session.ParticipantLeft
	default:
		link.sendJSON(errorEnvelope{Error: "unknown control message type " + msg.Type})
		return
	}

	profile, err := sess.HandleParticipant(session.ParticipantEvent{
		Identity: msg.Identity,
		Kind:     audio.ParticipantKind(msg.Kind),
		Change:   change,
		Primary:  msg.Primary,
	})
	if err != nil {
		link.sendJSON(errorEnvelope{Error: err.Error()})
		return
	}

	if change == session.ParticipantJoined {
		link.sendJSON(struct {
			Type     string `json:"type"`
			Identity string `json:"identity"`
			Profile  string `json:"noise_profile"`
		}{Type: "participant_profile", Identity: msg.Identity, Profile: string(profile)})
	}
}

func (s *sessionServer) sessionConfig(encodingInfo audio.EncodingInfo) session.Config {
	return session.Config{
		Instructions:         s.cfg.Engine.Instructions,
		GreetingInstructions: s.cfg.Engine.GreetingInstructions,
		SilenceThreshold:     s.cfg.Engine.SilenceThreshold(),
		InterruptionDebounce: s.cfg.Engine.InterruptDebounce(),
		ToolTimeout:          s.cfg.Engine.ToolTimeout(),
		PreemptiveGeneration: s.cfg.Engine.PreemptiveGeneration,
		IngestQueueSize:      s.cfg.Engine.IngestQueueSize,
		EncodingInfo:         encodingInfo,
	}
}

// clientLink serializes writes to one websocket connection. Audio frames,
// event envelopes and control replies race from different goroutines.
type clientLink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (l *clientLink) sendAudio(frame []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (l *clientLink) sendJSON(v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.conn.WriteJSON(v)
}

type eventEnvelope struct {
	Kind       string    `json:"kind"`
	Timestamp  time.Time `json:"timestamp"`
	TurnID     string    `json:"turn_id,omitempty"`
	Speaker    string    `json:"speaker,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Text       string    `json:"text,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

func (l *clientLink) sendEvent(event events.Event) {
	// Audio travels on the binary channel.
	switch event.Kind() {
	case events.KindAgentSpeechFrame, events.KindUserAudioFrame:
		return
	}

	envelope := eventEnvelope{Kind: string(event.Kind()), Timestamp: event.Timestamp()}
	switch e := event.(type) {
	case events.UserTranscriptInterim:
		envelope.Transcript = e.Transcript
	case events.UserTranscriptFinal:
		envelope.Transcript = e.Transcript
	case events.AgentResponseSegment:
		envelope.Text = e.Segment
	case events.AgentResponseFinal:
		envelope.Text = e.Response
	case events.AgentSpeechEnded:
		envelope.Transcript = e.Transcript
	case events.TurnStarted:
		envelope.TurnID = e.TurnID
		envelope.Speaker = e.Speaker
	case events.TurnFinalized:
		envelope.TurnID = e.TurnID
		envelope.Transcript = e.Transcript
	case events.TurnInterrupted:
		envelope.TurnID = e.TurnID
	case events.TurnAbandoned:
		envelope.TurnID = e.TurnID
		envelope.Reason = e.Reason
	case events.GenerationFailed:
		envelope.TurnID = e.TurnID
		envelope.Reason = e.Err
	case events.SessionClosed:
		envelope.Reason = e.Reason
	}

	l.sendJSON(envelope)
}

func newLLMClient(providers config.ProvidersConfig) llms.StreamingClient {
	if strings.HasPrefix(providers.LLMModel, "gemini") {
		return gemini.NewClient(providers.LLMModel)
	}
	return openai.NewClient(providers.LLMModel)
}

func newTranscriptionClient(providers config.ProvidersConfig) *deepgramstt.TranscriptionClient {
	var opts []deepgramstt.ClientOption
	if providers.STTModel != "" {
		opts = append(opts, deepgramstt.WithModel(providers.STTModel))
	}
	if providers.STTLanguage != "" {
		opts = append(opts, deepgramstt.WithLanguage(providers.STTLanguage))
	}
	return deepgramstt.NewTranscriptionClient(opts...)
}

func ttsVoice(providers config.ProvidersConfig) deepgramtts.Voice {
	if providers.TTSVoice == "" {
		return deepgramtts.VoiceThalia
	}
	return deepgramtts.Voice(providers.TTSVoice)
}

func encodingInfoFor(cfg config.AudioConfig) audio.EncodingInfo {
	info := audio.EncodingInfo{SampleRate: cfg.SampleRate}
	switch cfg.Encoding {
	case "mulaw":
		info.Format = audio.EncodingMulaw
	case "alaw":
		info.Format = audio.EncodingALaw
	default:
		info.Format = audio.EncodingLinear16
	}
	return info
}
