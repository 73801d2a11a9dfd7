package gemini

import (
	"testing"

	"github.com/parley-ai/parley-core/core/llms"
)

func TestToContentsMapsRoles(t *testing.T) {
	contents, err := toContents([]llms.Message{
		{Role: llms.RoleSystem, Content: "be brief"},
		{Role: llms.RoleUser, Content: "hello"},
		{Role: llms.RoleAssistant, Content: "hi", ToolCalls: []llms.ToolCall{
			{ID: "call-1", Name: "lookup", Arguments: `{"q":"x"}`},
		}},
		{Role: llms.RoleTool, ToolCallID: "call-1", Content: "result"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The system message rides in the request config, not the history.
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" || contents[0].Parts[0].Text != "hello" {
		t.Fatalf("unexpected user content: %+v", contents[0])
	}
	if contents[1].Role != "model" {
		t.Fatalf("expected assistant content mapped to model role, got %q", contents[1].Role)
	}
	if len(contents[1].Parts) != 2 || contents[1].Parts[1].FunctionCall == nil {
		t.Fatalf("expected function call part on assistant content: %+v", contents[1])
	}
	fnResp := contents[2].Parts[0].FunctionResponse
	if fnResp == nil || fnResp.Name != "lookup" {
		t.Fatalf("expected function response resolved to call name, got %+v", fnResp)
	}
	if fnResp.Response["output"] != "result" {
		t.Fatalf("unexpected function response payload: %+v", fnResp.Response)
	}
}

func TestToContentsRejectsUnknownRole(t *testing.T) {
	if _, err := toContents([]llms.Message{{Role: "narrator", Content: "x"}}); err == nil {
		t.Fatal("expected an error for an unknown role")
	}
}

func TestToDeclarationsCarriesSchema(t *testing.T) {
	tool := llms.NewTool("lookup", "looks things up", func(parameters struct {
		Query string `json:"query"`
	}) (string, error) {
		return "", nil
	})

	declarations, err := toDeclarations([]llms.Tool{tool})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(declarations) != 1 {
		t.Fatalf("expected 1 declaration, got %d", len(declarations))
	}
	if declarations[0].Name != "lookup" || declarations[0].ParametersJsonSchema == nil {
		t.Fatalf("unexpected declaration: %+v", declarations[0])
	}
}
