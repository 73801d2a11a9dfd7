package llms

// Role describes who a conversation message is from.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single provider-facing conversation message. The session engine
// flattens its turn history into messages before each model call.
type Message struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant messages that requested tool executions.
	ToolCalls []ToolCall
	// ToolCallID is set on tool messages carrying a tool result back to the
	// model; it references the call the result belongs to.
	ToolCallID string
}

// Response is a single complete response from a model.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// ToolCall is one model-requested tool execution. Arguments and Response are
// raw strings; the dispatcher owns decoding and error mapping.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
	Response  string
}
