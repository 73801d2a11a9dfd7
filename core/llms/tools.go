package llms

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Tool is one callable function exposed to the model. Parameters carries the
// JSON schema the provider advertises; execute decodes arguments and runs the
// registered handler.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema

	execute func(arguments string) (string, error)
}

// NewTool registers a typed tool handler. The parameter schema is reflected
// from T's struct tags.
func NewTool[T any](name, description string, handler func(parameters T) (string, error)) Tool {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	var zero T
	schema := reflector.Reflect(&zero)
	schema.Version = ""

	return Tool{
		Name:        name,
		Description: description,
		Parameters:  schema,
		execute: func(arguments string) (string, error) {
			var parameters T
			if arguments != "" {
				if err := json.Unmarshal([]byte(arguments), &parameters); err != nil {
					return "", fmt.Errorf("failed to decode arguments for tool %q: %w", name, err)
				}
			}
			return handler(parameters)
		},
	}
}

// Execute runs the tool against raw JSON arguments.
func (t Tool) Execute(arguments string) (string, error) {
	if t.execute == nil {
		return "", fmt.Errorf("tool %q has no handler", t.Name)
	}
	return t.execute(arguments)
}

// ParametersJSON renders the parameter schema for providers that take raw
// JSON schema documents.
func (t Tool) ParametersJSON() (json.RawMessage, error) {
	if t.Parameters == nil {
		return json.RawMessage(`{"type":"object"}`), nil
	}
	raw, err := json.Marshal(t.Parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema for tool %q: %w", t.Name, err)
	}
	return raw, nil
}
