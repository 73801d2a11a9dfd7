// Package deepgram streams audio to Deepgram's live transcription websocket
// and surfaces transcripts and speech boundary events through callbacks.
package deepgram

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const DefaultModel = "nova-3"

type TranscriptionClient struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	model    string
	language string

	lastMsgTs             time.Time
	accumulatedTranscript string
	unendedSegment        bool
}

type ClientOption func(*TranscriptionClient)

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) { c.model = model }
}

func WithLanguage(language string) ClientOption {
	return func(c *TranscriptionClient) { c.language = language }
}

func NewTranscriptionClient(opts ...ClientOption) *TranscriptionClient {
	client := &TranscriptionClient{
		model:    DefaultModel,
		language: "en-US",
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}
