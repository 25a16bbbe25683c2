package structured

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	responses []string
	calls     int
}

func (f *fakeCompleter) Generate(ctx context.Context, prompt string, requestID string) (string, error) {
	if f.calls >= len(f.responses) {
		return f.responses[len(f.responses)-1], nil
	}
	r := f.responses[f.calls]
	f.calls++
	return r, nil
}

type echoToolExecutor struct{ calls int }

func (e *echoToolExecutor) Execute(ctx context.Context, call ToolCall) ToolResult {
	e.calls++
	return ToolResult{ToolName: call.Name, Success: true, Output: "ok", Iteration: call.Iteration}
}

func alwaysToolCallResponse() string {
	return `{"tool_calls":[{"name":"search","arguments":{"q":"x"}}]}`
}

func TestExecuteStopsOnRequiredFieldsNoToolCalls(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{"answer":"done","confidence":"high"}`}}
	schema := []*Field{
		{Name: "answer", Type: TypeString, Required: true},
		{Name: "confidence", Type: TypeString},
	}

	result, err := Execute(context.Background(), completer, Request{
		OutputSchema:  schema,
		OutputFormat:  FormatJSON,
		MaxIterations: 5,
	})

	require.NoError(t, err)
	assert.False(t, result.Incomplete)
	assert.Equal(t, "done", result.Output["answer"])
}

func TestExecuteIterationCapScenario(t *testing.T) {
	// Scenario 5: maxIterations=3, model always emits one tool call;
	// exactly 3 tool batches execute, fourth prompt is never issued,
	// result is incomplete.
	completer := &fakeCompleter{responses: []string{
		alwaysToolCallResponse(), alwaysToolCallResponse(), alwaysToolCallResponse(),
	}}
	tools := &echoToolExecutor{}
	schema := []*Field{{Name: "answer", Type: TypeString, Required: true}}

	result, err := Execute(context.Background(), completer, Request{
		OutputSchema:  schema,
		OutputFormat:  FormatJSON,
		MaxIterations: 3,
		ToolExecutor:  tools,
	})

	require.NoError(t, err)
	assert.True(t, result.Incomplete)
	assert.Equal(t, 3, tools.calls)
	assert.Len(t, result.Iterations, 3)
}

func TestExecuteZeroIterationsRefusesModelCall(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{"answer":"x"}`}}
	_, err := Execute(context.Background(), completer, Request{
		OutputSchema:  []*Field{{Name: "answer", Type: TypeString, Required: true}},
		OutputFormat:  FormatJSON,
		MaxIterations: 0,
	})
	require.Error(t, err)
	assert.Equal(t, 0, completer.calls)
}

func TestExecuteRepairsMalformedOutputOnce(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`not json at all`,
		`{"answer":"recovered"}`,
	}}
	schema := []*Field{{Name: "answer", Type: TypeString, Required: true}}

	result, err := Execute(context.Background(), completer, Request{
		OutputSchema:  schema,
		OutputFormat:  FormatJSON,
		MaxIterations: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Output["answer"])
}

func TestParseXMLAgainstSchema(t *testing.T) {
	schema := []*Field{
		{Name: "findings", Type: TypeString, Required: true},
		{Name: "snippets", Type: TypeArray, Items: &Field{Type: TypeObject, Properties: []*Field{
			{Name: "uuid", Type: TypeString},
			{Name: "file", Type: TypeString},
		}}},
	}
	raw := `<findings>two issues found</findings><snippets><uuid>u1</uuid><file>a.go</file></snippets><snippets><uuid>u2</uuid><file>b.go</file></snippets>`

	data, err := parseOutput(FormatXML, raw, schema)
	require.NoError(t, err)
	assert.Equal(t, "two issues found", data["findings"])
	snippets, ok := data["snippets"].([]any)
	require.True(t, ok)
	assert.Len(t, snippets, 2)
}

func TestPruneUnknownFields(t *testing.T) {
	schema := []*Field{{Name: "answer", Type: TypeString}}
	out := pruneUnknown(schema, map[string]any{"answer": "x", "extra": "drop me"})
	assert.Equal(t, "x", out["answer"])
	_, exists := out["extra"]
	assert.False(t, exists)
}

func TestRequiredFieldsPresent(t *testing.T) {
	schema := []*Field{{Name: "answer", Type: TypeString, Required: true}}
	assert.False(t, requiredFieldsPresent(schema, map[string]any{"answer": ""}))
	assert.True(t, requiredFieldsPresent(schema, map[string]any{"answer": "x"}))
}
