// Package openai drives any OpenAI-compatible chat-completions endpoint,
// including inference gateways that front other vendors' models behind the
// same wire format.
package openai

import (
	"context"
	"net/http"
	"os"

	"github.com/jinzhu/copier"
	"github.com/parley-ai/parley-core/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultBaseURL = "https://api.openai.com/v1/chat/completions"

type Client struct {
	apiKey  string
	model   string
	baseURL string

	httpClient *http.Client
}

var _ llms.StreamingClient = (*Client)(nil)

type ClientOption func(*Client)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

// WithBaseURL points the client at a compatible gateway instead of the
// default endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(model string, opts ...ClientOption) *Client {
	client := &Client{
		model:   model,
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		client.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)}
	}

	return client
}

func (c *Client) PromptWithStream(_ context.Context, opts ...llms.PromptOption) llms.Stream {
	options := llms.PromptOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	// The stream outlives this call; keep its own copy of the history.
	var messages []llms.Message
	copier.Copy(&messages, options.Messages)

	return &Stream{
		client:       c,
		instructions: options.Instructions,
		messages:     messages,
		tools:        options.Tools,
	}
}
