// Package tools is the 4.G tool registry: named, schema-described
// handlers the research agent can call through the structured executor,
// wrapped with secret redaction, output truncation, and on-disk call
// logging.
package tools

import (
	"context"
	"regexp"

	"ragforge/internal/structured"
)

// Tool is one callable handler with its input schema.
type Tool struct {
	Name        string
	Description string
	InputSchema []*structured.Field
	Handler     func(ctx context.Context, args map[string]any) (any, error)

	// hasCustomLogger marks a tool that persists its own detailed call
	// record (e.g. a web-fetch tool logging the fetched page body
	// separately); the registry's generic logger then only writes
	// metadata.json for it, skipping args.json/result.json.
	hasCustomLogger bool
}

// Registry holds named tools and dispatches calls for the structured
// executor's ToolExecutor contract.
type Registry struct {
	tools map[string]Tool
	log   *CallLogger
}

func NewRegistry(log *CallLogger) *Registry {
	return &Registry{tools: map[string]Tool{}, log: log}
}

func (r *Registry) Register(t Tool) {
	r.tools = cloneAndSet(r.tools, t)
}

func cloneAndSet(m map[string]Tool, t Tool) map[string]Tool {
	m[t.Name] = t
	return m
}

func (r *Registry) Specs() []structured.ToolSpec {
	out := make([]structured.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, structured.ToolSpec{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	return out
}

// Execute implements structured.ToolExecutor: redact secret-looking
// arguments before logging, run the handler, truncate its output, log
// the call, and return the truncated result (only the logged arguments
// are redacted).
func (r *Registry) Execute(ctx context.Context, call structured.ToolCall) structured.ToolResult {
	t, ok := r.tools[call.Name]
	if !ok {
		return structured.ToolResult{ToolName: call.Name, Success: false, Error: "unknown tool", Iteration: call.Iteration}
	}

	redactedArgs := redactMap(call.Arguments)

	out, err := t.Handler(ctx, call.Arguments)
	result := structured.ToolResult{ToolName: call.Name, Iteration: call.Iteration}
	if err != nil {
		result.Success = false
		result.Error = err.Error()
	} else {
		result.Success = true
		result.Output = truncate(out)
	}

	if r.log != nil {
		r.log.Record(call.Name, redactedArgs, result, t.hasCustomLogger)
	}
	return result
}

var secretKeyPattern = regexp.MustCompile(`(?i)(password|api[_-]?key|token|secret|auth|credential|private)`)

func redactMap(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if secretKeyPattern.MatchString(k) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}

const (
	maxStringLen  = 5000
	maxArrayItems = 100
)

func truncate(v any) any {
	switch val := v.(type) {
	case string:
		if len(val) > maxStringLen {
			return val[:maxStringLen] + "...[truncated]"
		}
		return val
	case []any:
		if len(val) > maxArrayItems {
			return append(append([]any{}, val[:maxArrayItems]...), "...[truncated]")
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = truncate(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = truncate(item)
		}
		return out
	default:
		return v
	}
}

var _ structured.ToolExecutor = (*Registry)(nil)
