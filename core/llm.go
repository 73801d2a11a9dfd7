package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/parley-ai/parley-core/core/events"
	"github.com/parley-ai/parley-core/core/llms"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// llm is the facade over the configured streaming model client. A nil or
// unconfigured facade swallows calls so the session can run text-less in
// tests and degraded deployments.
type llm struct {
	client llms.StreamingClient

	dispatcher *toolDispatcher

	emitEvent func(events.Event)
}

func newLLM(dispatcher *toolDispatcher) llm {
	return llm{
		dispatcher: dispatcher,
		emitEvent:  func(events.Event) {},
	}
}

func (l *llm) set(client llms.StreamingClient) {
	if l == nil {
		return
	}
	l.client = client
}

func (l *llm) isConfigured() bool {
	return l != nil && l.client != nil
}

// generate runs the model until it produces a content-only response,
// dispatching any requested tool calls between rounds. Streamed content goes
// to onChunk as it arrives; tool results are reinjected in request order
// regardless of which dispatch finishes first.
func (l *llm) generate(
	ctx context.Context,
	instructions string,
	history []llms.Message,
	onChunk func(string),
	cancelled func() bool,
) (*llms.Response, error) {
	if !l.isConfigured() {
		return nil, nil
	}
	if onChunk == nil {
		onChunk = func(string) {}
	}
	if cancelled == nil {
		cancelled = func() bool { return false }
	}

	span := trace.SpanFromContext(ctx)

	messages := append([]llms.Message(nil), history...)
	var response llms.Response

	for {
		stream := l.client.PromptWithStream(ctx,
			llms.WithInstructions(instructions),
			llms.WithMessages(messages...),
			llms.WithTools(l.dispatcher.Tools()...),
		)

		var message strings.Builder
		var toolCalls []llms.ToolCall
		for chunk, err := range stream.Chunks(ctx) {
			if err != nil {
				err = fmt.Errorf("failed to stream llm response: %w", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, &TransientStreamError{Stage: "llm", Err: err}
			}

			if cancelled() {
				return nil, nil
			}

			switch chunk := chunk.(type) {
			case llms.StreamContentChunk:
				message.WriteString(chunk.Content())
				onChunk(chunk.Content())

			case llms.StreamToolCallChunk:
				toolCalls = append(toolCalls, chunk.ToolCall())
			}
		}

		if len(toolCalls) == 0 {
			response.Content += message.String()
			return &response, nil
		}

		results := l.dispatchAll(ctx, toolCalls)
		if cancelled() {
			return nil, nil
		}

		assistantMsg := llms.Message{Role: llms.RoleAssistant, Content: message.String()}
		for i := range results {
			toolCalls[i].Response = results[i].Text
			assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, toolCalls[i])
		}
		messages = append(messages, assistantMsg)
		for _, call := range assistantMsg.ToolCalls {
			messages = append(messages, llms.Message{
				Role:       llms.RoleTool,
				Content:    call.Response,
				ToolCallID: call.ID,
			})
		}

		response.Content += message.String()
		response.ToolCalls = append(response.ToolCalls, assistantMsg.ToolCalls...)
	}
}

// dispatchAll runs the round's tool calls concurrently but returns results
// indexed by request position, so reinjection order matches request order.
func (l *llm) dispatchAll(ctx context.Context, calls []llms.ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))

	wg := sync.WaitGroup{}
	wg.Add(len(calls))
	for i, call := range calls {
		go func(i int, call llms.ToolCall) {
			defer wg.Done()

			l.emitEvent(events.NewToolCallStarted(call.ID, call.Name, call.Arguments))
			result := l.dispatcher.Dispatch(ctx, call)
			results[i] = result

			if result.Err != nil {
				l.emitEvent(events.NewToolCallFailed(call.ID, call.Name, result.Err.Error()))
			} else {
				l.emitEvent(events.NewToolCallCompleted(call.ID, call.Name, result.Text))
			}
		}(i, call)
	}
	wg.Wait()

	return results
}
