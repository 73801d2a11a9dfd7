package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/parley-ai/parley-core/core/llms"
	"github.com/parley-ai/parley-core/core/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ToolResult is the outcome of exactly one dispatch. Failures are carried as
// both a typed error and the text handed back to the model; a failed tool
// call never takes the session down.
type ToolResult struct {
	Call llms.ToolCall
	// Text is what the model sees: the tool output on success, an
	// "error: ..." line on failure.
	Text string
	Err  error
}

type toolDispatcher struct {
	mu      sync.RWMutex
	tools   map[string]llms.Tool
	timeout time.Duration

	metrics *metrics.Metrics
}

func newToolDispatcher(timeout time.Duration) *toolDispatcher {
	return &toolDispatcher{
		tools:   map[string]llms.Tool{},
		timeout: timeout,
	}
}

func (d *toolDispatcher) Register(tool llms.Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tools[tool.Name]; ok {
		return fmt.Errorf("tool %q already registered", tool.Name)
	}
	d.tools[tool.Name] = tool
	return nil
}

func (d *toolDispatcher) Tools() []llms.Tool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	tools := make([]llms.Tool, 0, len(d.tools))
	for _, tool := range d.tools {
		tools = append(tools, tool)
	}
	return tools
}

// Dispatch executes one tool call under the configured wall-clock timeout.
// Each call is dispatched at most once and never retried.
func (d *toolDispatcher) Dispatch(ctx context.Context, call llms.ToolCall) ToolResult {
	ctx, span := tracer.Start(ctx, "dispatch tool")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", call.Name))

	d.mu.RLock()
	tool, ok := d.tools[call.Name]
	m := d.metrics
	d.mu.RUnlock()

	if m != nil {
		m.ToolCalls.WithLabelValues(call.Name).Inc()
		start := time.Now()
		defer func() {
			m.ToolCallDuration.Observe(time.Since(start).Seconds())
		}()
	}

	if !ok {
		err := fmt.Errorf("tool not found: %s", call.Name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.recordFailure(call.Name, "not_found")
		return ToolResult{Call: call, Text: "error: " + err.Error(), Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := tool.Execute(call.Arguments)
		done <- outcome{text: text, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil {
			err := d.classify(call.Name, result.err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			d.recordFailure(call.Name, errorKind(err))
			return ToolResult{Call: call, Text: toolErrorText(err), Err: err}
		}
		return ToolResult{Call: call, Text: result.text}

	case <-ctx.Done():
		err := &ToolError{Kind: ToolErrorTimeout, Name: call.Name, Timeout: d.timeout, Err: ctx.Err()}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.recordFailure(call.Name, string(ToolErrorTimeout))
		return ToolResult{Call: call, Text: toolErrorText(err), Err: err}
	}
}

func (d *toolDispatcher) recordFailure(name, kind string) {
	d.mu.RLock()
	m := d.metrics
	d.mu.RUnlock()
	if m != nil {
		m.ToolCallFailures.WithLabelValues(name, kind).Inc()
	}
}

func errorKind(err error) string {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return string(toolErr.Kind)
	}
	return "unknown"
}

func (d *toolDispatcher) classify(name string, err error) error {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return err
	}
	return &ToolError{Kind: ToolErrorTransport, Name: name, Err: err}
}

// toolErrorText renders a tool failure the way the model receives it.
func toolErrorText(err error) string {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		switch toolErr.Kind {
		case ToolErrorRemote:
			return fmt.Sprintf("error: HTTP %d: %s", toolErr.Status, toolErr.Body)
		case ToolErrorTimeout:
			return fmt.Sprintf("error: tool timed out after %s", toolErr.Timeout)
		default:
			return fmt.Sprintf("error: %v", toolErr.Err)
		}
	}
	return fmt.Sprintf("error: %v", err)
}

// HTTPTool builds a tool that performs a GET against a fixed URL and hands
// the response body back to the model verbatim. Non-2xx responses and
// transport failures become ToolErrors; the dispatcher renders those as
// error text instead of failing the generation.
func HTTPTool(name, description, url string, client *http.Client) llms.Tool {
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   DefaultToolTimeout,
		}
	}

	return llms.NewTool(name, description, func(struct{}) (string, error) {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return "", &ToolError{Kind: ToolErrorTransport, Name: name, Err: err}
		}

		resp, err := client.Do(req)
		if err != nil {
			return "", &ToolError{Kind: ToolErrorTransport, Name: name, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", &ToolError{Kind: ToolErrorTransport, Name: name, Err: err}
		}

		if resp.StatusCode >= 400 {
			return "", &ToolError{
				Kind:   ToolErrorRemote,
				Name:   name,
				Status: resp.StatusCode,
				Body:   string(body),
			}
		}

		return string(body), nil
	})
}
