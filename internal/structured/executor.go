package structured

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"ragforge/internal/logger"
	"ragforge/internal/ragerr"
)

// ToolSpec is the subset of §4.G's tool definition the executor needs to
// render into a prompt; internal/tools owns the full registry.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema []*Field
}

// ToolCall is one requested invocation, as parsed from model output.
type ToolCall struct {
	Name      string
	Arguments map[string]any
	Iteration int
}

// ToolResult is fed back into the next iteration's prompt, in the order
// requested.
type ToolResult struct {
	ToolName  string
	Success   bool
	Output    any
	Error     string
	Iteration int
}

// ToolExecutor dispatches one tool call. Implementations are expected to
// be pure with respect to the registry (internal/tools.Registry
// implements this).
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) ToolResult
}

// IterationRecord is the (iteration, toolCalls, toolResults) log entry
// from §9's "tool loop -> message passing" design note.
type IterationRecord struct {
	Index       int
	Prompt      string
	RawResponse string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Completer is the narrow completion.Provider surface the executor
// needs; kept as an interface here so internal/structured does not
// import internal/completion, avoiding an import cycle with packages
// that depend on both.
type Completer interface {
	Generate(ctx context.Context, prompt string, requestID string) (string, error)
}

// Request configures one structured-executor invocation.
type Request struct {
	Input        map[string]any
	InputFields  []string // rendering order; fields not listed are appended afterward
	SystemPrompt string
	UserTask     string
	OutputSchema []*Field
	OutputFormat OutputFormat

	Tools        []ToolSpec
	ToolExecutor ToolExecutor
	MaxIterations int

	// FinalResponse, if set, triggers one more call after the loop ends
	// that renders the collected answer + transcript into this schema.
	FinalResponse []*Field

	// ConfidenceField, if set, names the output field the finalize/
	// finalize_report tool call is gated on per §4.D/§4.I: a call at
	// less than "high" confidence is logged but does not stop the loop
	// on its own, only the iteration cap does. Leave empty to finalize
	// unconditionally on the first finalize call, as before.
	ConfidenceField string

	RequestID string
}

// Result is what Execute returns.
type Result struct {
	Output        map[string]any
	Raw           string
	Incomplete    bool
	Iterations    []IterationRecord
	FinalResponse map[string]any
}

// Execute runs the prompt-render / parse-validate / tool-loop algorithm
// of §4.D.
func Execute(ctx context.Context, completer Completer, req Request) (*Result, error) {
	if req.MaxIterations == 0 {
		return nil, ragerr.New(ragerr.GenOutputMalformed, "structured.execute", fmt.Errorf("maxIterations=0: refusing to call the model")).WithAttr("maxIterations", 0)
	}
	maxIter := req.MaxIterations
	if maxIter < 1 {
		maxIter = 1
	}

	result := &Result{}
	var transcript []IterationRecord

	for iteration := 0; iteration < maxIter; iteration++ {
		prompt := renderPrompt(req, transcript)

		raw, err := completer.Generate(ctx, prompt, req.RequestID)
		if err != nil {
			return nil, err
		}

		data, perr := parseOutput(req.OutputFormat, raw, req.OutputSchema)
		if perr != nil {
			repaired, rerr := repairOnce(ctx, completer, req, prompt, raw, perr)
			if rerr != nil {
				return nil, ragerr.New(ragerr.GenOutputMalformed, "structured.execute", rerr)
			}
			data = repaired
		}

		toolCalls := extractToolCalls(data, iteration)

		if len(toolCalls) == 0 {
			if requiredFieldsPresent(req.OutputSchema, data) {
				result.Output = data
				result.Raw = raw
				return finalise(ctx, completer, req, result, transcript)
			}
			// Missing required fields with no tool calls to make progress:
			// no repair call is made; the iteration is recorded and the
			// loop runs again only if iterations remain.
		}

		var toolResults []ToolResult
		if len(toolCalls) > 0 && req.ToolExecutor != nil {
			toolResults, err = dispatchBatch(ctx, req.ToolExecutor, toolCalls)
			if err != nil {
				return nil, err
			}
		}

		record := IterationRecord{Index: iteration, Prompt: prompt, RawResponse: raw, ToolCalls: toolCalls, ToolResults: toolResults}
		transcript = append(transcript, record)
		result.Iterations = transcript
		result.Output = data
		result.Raw = raw

		for _, tc := range toolCalls {
			if tc.Name != "finalize_report" && tc.Name != "finalize" {
				continue
			}
			if req.ConfidenceField == "" || iteration == maxIter-1 || isHighConfidence(data[req.ConfidenceField]) {
				return finalise(ctx, completer, req, result, transcript)
			}
			logger.Info("finalize called below high confidence, continuing research", "requestId", req.RequestID, "iteration", iteration, "confidence", data[req.ConfidenceField])
		}
	}

	result.Incomplete = true
	logger.Warn("structured executor hit iteration cap", "requestId", req.RequestID, "maxIterations", maxIter)
	return finalise(ctx, completer, req, result, transcript)
}

// repairOnce retries exactly once with an explicit "your previous output
// was malformed" prompt per §4.D point 2.
func repairOnce(ctx context.Context, completer Completer, req Request, priorPrompt, priorRaw string, parseErr error) (map[string]any, error) {
	repairPrompt := priorPrompt + "\n\n---\nYour previous output was malformed and could not be parsed as " +
		string(req.OutputFormat) + " (" + parseErr.Error() + "). Re-emit ONLY the " + string(req.OutputFormat) +
		" output, matching the schema exactly:\n" + priorRaw

	raw, err := completer.Generate(ctx, repairPrompt, req.RequestID+"-repair")
	if err != nil {
		return nil, err
	}
	return parseOutput(req.OutputFormat, raw, req.OutputSchema)
}

func dispatchBatch(ctx context.Context, executor ToolExecutor, calls []ToolCall) ([]ToolResult, error) {
	results := make([]ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = executor.Execute(gctx, call)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// extractToolCalls pulls `tool_calls` out of parsed output, dropping any
// entry missing a recognised name (filtering unknown/malformed calls per
// §4.D point 3; the executor doesn't know the registry, so "unknown"
// here means structurally invalid — internal/tools filters against the
// actual catalog).
func extractToolCalls(data map[string]any, iteration int) []ToolCall {
	raw, ok := data["tool_calls"]
	if !ok {
		return nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []ToolCall
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			continue
		}
		args, _ := m["arguments"].(map[string]any)
		out = append(out, ToolCall{Name: name, Arguments: args, Iteration: iteration})
	}
	return out
}

// finalise makes the optional last call into req.FinalResponse's schema
// when configured.
func finalise(ctx context.Context, completer Completer, req Request, result *Result, transcript []IterationRecord) (*Result, error) {
	if req.FinalResponse == nil {
		return result, nil
	}
	prompt := renderFinalPrompt(req, result, transcript)
	raw, err := completer.Generate(ctx, prompt, req.RequestID+"-final")
	if err != nil {
		return nil, err
	}
	data, err := parseOutput(req.OutputFormat, raw, req.FinalResponse)
	if err != nil {
		return nil, ragerr.New(ragerr.GenOutputMalformed, "structured.finalise", err)
	}
	result.FinalResponse = data
	return result, nil
}

func renderPrompt(req Request, transcript []IterationRecord) string {
	var b strings.Builder
	if req.SystemPrompt != "" {
		b.WriteString(req.SystemPrompt)
		b.WriteString("\n\n")
	}
	if len(req.Tools) > 0 {
		b.WriteString("Available tools:\n")
		for _, t := range req.Tools {
			b.WriteString(fmt.Sprintf("- %s: %s\n", t.Name, t.Description))
			if len(t.InputSchema) > 0 {
				b.WriteString(describe(t.InputSchema, "  "))
			}
		}
		b.WriteString("\n")
	}

	ordered := orderedFields(req.Input, req.InputFields)
	if len(ordered) > 0 {
		b.WriteString("Input:\n")
		for _, k := range ordered {
			b.WriteString(fmt.Sprintf("%s: %v\n", k, req.Input[k]))
		}
		b.WriteString("\n")
	}

	if req.UserTask != "" {
		b.WriteString("Task:\n")
		b.WriteString(req.UserTask)
		b.WriteString("\n\n")
	}

	b.WriteString("Respond in ")
	b.WriteString(string(req.OutputFormat))
	b.WriteString(" matching this schema:\n")
	b.WriteString(describe(req.OutputSchema, ""))
	b.WriteString("\n")

	for _, rec := range transcript {
		b.WriteString(fmt.Sprintf("--- iteration %d tool results ---\n", rec.Index))
		for _, tr := range rec.ToolResults {
			if tr.Success {
				b.WriteString(fmt.Sprintf("%s => %v\n", tr.ToolName, tr.Output))
			} else {
				b.WriteString(fmt.Sprintf("%s => error: %s\n", tr.ToolName, tr.Error))
			}
		}
	}

	return b.String()
}

func renderFinalPrompt(req Request, result *Result, transcript []IterationRecord) string {
	var b strings.Builder
	b.WriteString("Summarise the research session into the final schema.\n\n")
	b.WriteString(fmt.Sprintf("Collected answer so far: %v\n\n", result.Output))
	for _, rec := range transcript {
		for _, tc := range rec.ToolCalls {
			b.WriteString(fmt.Sprintf("called %s(%v)\n", tc.Name, tc.Arguments))
		}
	}
	b.WriteString("\nRespond in ")
	b.WriteString(string(req.OutputFormat))
	b.WriteString(" matching this schema:\n")
	b.WriteString(describe(req.FinalResponse, ""))
	return b.String()
}

// isHighConfidence reports whether v (an output field value) reads as
// the §3 confidence enum's "high" level.
func isHighConfidence(v any) bool {
	s, _ := v.(string)
	return strings.EqualFold(s, "high")
}

func orderedFields(input map[string]any, order []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(input))
	for _, k := range order {
		if _, ok := input[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	for k := range input {
		if !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	return out
}
