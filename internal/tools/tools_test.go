package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragforge/internal/structured"
)

func TestRedactMapMasksSecretLikeKeys(t *testing.T) {
	out := redactMap(map[string]any{"apiKey": "sk-123", "query": "hello", "AUTH_TOKEN": "xyz"})
	assert.Equal(t, "[REDACTED]", out["apiKey"])
	assert.Equal(t, "[REDACTED]", out["AUTH_TOKEN"])
	assert.Equal(t, "hello", out["query"])
}

func TestTruncateLongStringAndArray(t *testing.T) {
	long := make([]byte, maxStringLen+100)
	for i := range long {
		long[i] = 'a'
	}
	out := truncate(string(long))
	assert.Less(t, len(out.(string)), len(long))

	items := make([]any, maxArrayItems+10)
	outArr := truncate(items).([]any)
	assert.Equal(t, maxArrayItems+1, len(outArr)) // +1 for the truncation marker
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry(nil)
	res := r.Execute(context.Background(), structured.ToolCall{Name: "nope"})
	assert.False(t, res.Success)
	assert.Equal(t, "unknown tool", res.Error)
}

func TestRegistryExecuteDispatchesAndLogs(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewCallLogger(dir)
	require.NoError(t, err)

	r := NewRegistry(logger)
	r.Register(Tool{
		Name: "echo",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	})

	res := r.Execute(context.Background(), structured.ToolCall{Name: "echo", Arguments: map[string]any{"text": "hi"}})
	assert.True(t, res.Success)
	assert.Equal(t, "hi", res.Output)

	entries, err := os.ReadDir(filepath.Join(dir, "echo"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewFileReadToolReadsLineRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644))

	tool := NewFileReadTool("")
	out, err := tool.Handler(context.Background(), map[string]any{"path": path, "startLine": float64(2), "endLine": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, "two", out)
}

func TestNewProjectOpToolRefuses(t *testing.T) {
	tool := NewProjectOpTool()
	_, err := tool.Handler(context.Background(), map[string]any{"op": "anything"})
	assert.Error(t, err)
}
