// Package gemini drives Google's Gemini models through the genai SDK.
package gemini

import (
	"context"
	"os"

	"github.com/parley-ai/parley-core/core/llms"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

type Client struct {
	apiKey string
	model  string
}

var _ llms.StreamingClient = (*Client)(nil)

type ClientOption func(*Client)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func NewClient(model string, opts ...ClientOption) *Client {
	client := &Client{model: model}
	if client.model == "" {
		client.model = DefaultModel
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		client.apiKey = os.Getenv("GEMINI_API_KEY")
	}

	return client
}

func (c *Client) PromptWithStream(_ context.Context, opts ...llms.PromptOption) llms.Stream {
	options := llms.PromptOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	messages := make([]llms.Message, len(options.Messages))
	copy(messages, options.Messages)

	return &Stream{
		client:       c,
		instructions: options.Instructions,
		messages:     messages,
		tools:        options.Tools,
	}
}

func (c *Client) connect(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}
