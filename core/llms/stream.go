package llms

import "context"

// StreamingClient is the provider contract the session engine drives. A
// returned Stream is single-use: open, iterate chunks, done.
type StreamingClient interface {
	PromptWithStream(ctx context.Context, opts ...PromptOption) Stream
}

type Stream interface {
	Chunks(context.Context) func(func(StreamChunk, error) bool)
}

type StreamChunk interface {
	FinishReason() *string
}

type StreamContentChunk interface {
	StreamChunk
	Content() string
}

type StreamToolCallChunk interface {
	StreamChunk
	ToolCall() ToolCall
}
