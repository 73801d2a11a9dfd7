package openai

import (
	"encoding/json"

	"github.com/parley-ai/parley-core/core/llms"
)

type message struct {
	Role       messageRole `json:"role"`
	Content    string      `json:"content"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	ToolCalls  []toolCall  `json:"tool_calls,omitempty"`
}

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
	messageRoleTool      messageRole = "tool"
)

type toolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function toolCallFunction `json:"function"`
}

type toolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is the wire representation of a callable function.
type Tool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

func toMessages(instructions string, history []llms.Message) []message {
	messages := []message{}
	if instructions != "" {
		messages = append(messages, message{
			Role:    messageRoleSystem,
			Content: instructions,
		})
	}
	for _, msg := range history {
		wireMsg := message{
			Role:       messageRole(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tCall := range msg.ToolCalls {
			wireMsg.ToolCalls = append(wireMsg.ToolCalls, toolCall{
				ID:   tCall.ID,
				Type: "function",
				Function: toolCallFunction{
					Name:      tCall.Name,
					Arguments: tCall.Arguments,
				},
			})
		}
		messages = append(messages, wireMsg)
	}
	return messages
}

func toTools(tools []llms.Tool) ([]Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	wireTools := make([]Tool, 0, len(tools))
	for _, tool := range tools {
		parameters, err := tool.ParametersJSON()
		if err != nil {
			return nil, err
		}
		wireTools = append(wireTools, Tool{
			Type: "function",
			Function: toolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  parameters,
			},
		})
	}
	return wireTools, nil
}

type requestBody struct {
	Model      string    `json:"model"`
	Messages   []message `json:"messages"`
	Stream     bool      `json:"stream"`
	Tools      []Tool    `json:"tools,omitempty"`
	ToolChoice *string   `json:"tool_choice,omitempty"`
}

type streamingResponseBody struct {
	Choices []struct {
		Delta struct {
			Role         string     `json:"role"`
			Content      string     `json:"content"`
			ToolCalls    []toolCall `json:"tool_calls"`
			FinishReason *string    `json:"finish_reason"`
		} `json:"delta"`
	} `json:"choices"`
}
