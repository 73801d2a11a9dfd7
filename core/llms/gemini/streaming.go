package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parley-ai/parley-core/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

type Stream struct {
	client *Client

	instructions string
	messages     []llms.Message
	tools        []llms.Tool
}

func (s *Stream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	requestStartedAt := time.Time{}
	recordFirstToken := func(span trace.Span) {
		if requestStartedAt.IsZero() {
			return
		}
		span.SetAttributes(attribute.Float64("response.request_to_first_token_time", time.Since(requestStartedAt).Seconds()))
		span.AddEvent("received first chunk")
		requestStartedAt = time.Time{}
	}

	return func(yield func(llms.StreamChunk, error) bool) {
		ctx, span := tracer.Start(ctx, "prompt llm stream")
		defer span.End()
		span.SetAttributes(attribute.String("request.model", s.client.model))
		var toolNames []string
		for _, tool := range s.tools {
			toolNames = append(toolNames, tool.Name)
		}
		span.SetAttributes(attribute.StringSlice("request.available_tools", toolNames))

		client, err := s.client.connect(ctx)
		if err != nil {
			err = fmt.Errorf("error creating gemini client: %w", err)
			span.RecordError(err)
			yield(nil, err)
			return
		}

		contents, err := toContents(s.messages)
		if err != nil {
			span.RecordError(err)
			yield(nil, err)
			return
		}

		config := &genai.GenerateContentConfig{}
		if s.instructions != "" {
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: s.instructions}},
			}
		}
		declarations, err := toDeclarations(s.tools)
		if err != nil {
			span.RecordError(err)
			yield(nil, err)
			return
		}
		if declarations != nil {
			config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
		}

		requestStartedAt = time.Now()
		span.AddEvent("request started")
		for resp, err := range client.Models.GenerateContentStream(ctx, s.client.model, contents, config) {
			recordFirstToken(span)
			if err != nil {
				err = fmt.Errorf("error streaming gemini response: %w", err)
				span.RecordError(err)
				yield(nil, err)
				return
			}

			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			candidate := resp.Candidates[0]
			var finishReason *string
			if candidate.FinishReason != "" {
				reason := string(candidate.FinishReason)
				finishReason = &reason
			}

			for _, part := range candidate.Content.Parts {
				if part.FunctionCall != nil {
					arguments, err := json.Marshal(part.FunctionCall.Args)
					if err != nil {
						err = fmt.Errorf("error encoding function call arguments: %w", err)
						span.RecordError(err)
						if !yield(nil, err) {
							return
						}
						continue
					}
					id := part.FunctionCall.ID
					if id == "" {
						id = part.FunctionCall.Name
					}
					if !yield(StreamToolCallChunk{
						finishReason: finishReason,
						toolCall: llms.ToolCall{
							ID:        id,
							Name:      part.FunctionCall.Name,
							Arguments: string(arguments),
						},
					}, nil) {
						return
					}
				}

				if part.Text != "" {
					if !yield(StreamContentChunk{
						finishReason: finishReason,
						content:      part.Text,
					}, nil) {
						return
					}
				}
			}
		}
	}
}

func toContents(history []llms.Message) ([]*genai.Content, error) {
	// Function responses are matched by name on the wire; remember the name
	// each call id maps to.
	callNames := map[string]string{}

	var contents []*genai.Content
	for _, msg := range history {
		switch msg.Role {
		case llms.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case llms.RoleAssistant:
			content := &genai.Content{Role: "model"}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tCall := range msg.ToolCalls {
				callNames[tCall.ID] = tCall.Name
				var args map[string]any
				if tCall.Arguments != "" {
					if err := json.Unmarshal([]byte(tCall.Arguments), &args); err != nil {
						return nil, fmt.Errorf("error decoding tool call arguments: %w", err)
					}
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tCall.ID,
						Name: tCall.Name,
						Args: args,
					},
				})
			}
			contents = append(contents, content)
		case llms.RoleTool:
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       msg.ToolCallID,
						Name:     callNames[msg.ToolCallID],
						Response: map[string]any{"output": msg.Content},
					},
				}},
			})
		case llms.RoleSystem:
			// System instructions ride in the request config, not the
			// history.
			continue
		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return contents, nil
}

func toDeclarations(tools []llms.Tool) ([]*genai.FunctionDeclaration, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		parameters, err := tool.ParametersJSON()
		if err != nil {
			return nil, err
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:                 tool.Name,
			Description:          tool.Description,
			ParametersJsonSchema: parameters,
		})
	}
	return declarations, nil
}

type StreamContentChunk struct {
	finishReason *string
	content      string
}

func (s StreamContentChunk) FinishReason() *string { return s.finishReason }
func (s StreamContentChunk) Content() string       { return s.content }

type StreamToolCallChunk struct {
	finishReason *string
	toolCall     llms.ToolCall
}

func (s StreamToolCallChunk) FinishReason() *string   { return s.finishReason }
func (s StreamToolCallChunk) ToolCall() llms.ToolCall { return s.toolCall }
