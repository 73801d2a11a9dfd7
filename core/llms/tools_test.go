package llms

import (
	"strings"
	"testing"
)

func TestNewToolExecutesHandlerWithDecodedArguments(t *testing.T) {
	tool := NewTool("lookup_account", "Look up an account",
		func(parameters struct {
			AccountID string `json:"account_id"`
		}) (string, error) {
			return "account " + parameters.AccountID, nil
		})

	got, err := tool.Execute(`{"account_id":"a-42"}`)
	if err != nil {
		t.Fatalf("unexpected execute error: %v", err)
	}
	if got != "account a-42" {
		t.Fatalf("expected decoded arguments in result, got %q", got)
	}
}

func TestToolExecuteRejectsMalformedArguments(t *testing.T) {
	tool := NewTool("noop", "noop", func(struct{}) (string, error) { return "", nil })

	if _, err := tool.Execute(`{not-json`); err == nil {
		t.Fatal("expected error for malformed arguments")
	}
}

func TestToolParametersJSONIncludesFields(t *testing.T) {
	tool := NewTool("set_recording", "Toggle recording",
		func(parameters struct {
			Enabled bool `json:"enabled"`
		}) (string, error) {
			return "", nil
		})

	raw, err := tool.ParametersJSON()
	if err != nil {
		t.Fatalf("unexpected schema error: %v", err)
	}
	if !strings.Contains(string(raw), "enabled") {
		t.Fatalf("expected schema to mention the enabled field, got %s", raw)
	}
}

func TestToolWithoutHandlerFailsExecution(t *testing.T) {
	tool := Tool{Name: "ghost"}
	if _, err := tool.Execute(""); err == nil {
		t.Fatal("expected error for tool without handler")
	}
}
