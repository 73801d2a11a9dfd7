package llms

// PromptOptions collects everything a provider needs for one model call.
type PromptOptions struct {
	Instructions string
	Messages     []Message
	Tools        []Tool
}

type PromptOption func(*PromptOptions)

// WithInstructions sets the system prompt. Repeating this option overwrites
// the previous value.
func WithInstructions(instructions string) PromptOption {
	return func(opts *PromptOptions) {
		opts.Instructions = instructions
	}
}

// WithMessages appends conversation messages. Repeating this option
// sequentially adds more messages.
func WithMessages(messages ...Message) PromptOption {
	return func(opts *PromptOptions) {
		opts.Messages = append(opts.Messages, messages...)
	}
}

// WithTools appends tools the model may call.
func WithTools(tools ...Tool) PromptOption {
	return func(opts *PromptOptions) {
		opts.Tools = append(opts.Tools, tools...)
	}
}
