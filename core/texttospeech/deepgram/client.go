// Package deepgram synthesizes speech through Deepgram's streaming
// text-to-speech websocket.
package deepgram

import (
	"context"
	"fmt"
	"slices"

	"github.com/parley-ai/parley-core/core/audio"
)

type TextToSpeechClient struct {
	voice        Voice
	encodingInfo audio.EncodingInfo
}

type ClientOption func(*TextToSpeechClient)

func WithEncodingInfo(encodingInfo audio.EncodingInfo) ClientOption {
	return func(c *TextToSpeechClient) {
		if encodingInfo.IsZero() {
			return
		}
		c.encodingInfo = encodingInfo
	}
}

func NewTextToSpeechClient(_ context.Context, voice Voice, opts ...ClientOption) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{
		voice:        defaultVoice,
		encodingInfo: audio.GetDefaultEncodingInfo(),
	}

	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice %q", voice)
	}
	client.voice = voice

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func (c *TextToSpeechClient) SetVoice(voice Voice) {
	c.voice = voice
}
