package tools

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ragforge/internal/structured"
)

// CallLogger persists every tool call under
// <home>/.ragforge/logs/tools/<tool>/<timestamp>/{args,result,metadata}.json.
type CallLogger struct {
	baseDir string
	mu      sync.Mutex
	now     func() time.Time
}

// NewCallLogger resolves baseDir to <home>/.ragforge/logs/tools if empty.
func NewCallLogger(baseDir string) (*CallLogger, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(home, ".ragforge", "logs", "tools")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	return &CallLogger{baseDir: baseDir, now: time.Now}, nil
}

// Record writes one call's artifacts. A tool with hasCustomLogger=true
// skips args.json/result.json, since it already wrote its own detailed
// record, and gets only metadata.json.
func (l *CallLogger) Record(toolName string, args map[string]any, result structured.ToolResult, hasCustomLogger bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dir := filepath.Join(l.baseDir, toolName, l.now().Format("20060102T150405.000000000"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}

	metadata := map[string]any{
		"tool":      toolName,
		"success":   result.Success,
		"iteration": result.Iteration,
	}
	if result.Error != "" {
		metadata["error"] = result.Error
	}
	writeJSON(filepath.Join(dir, "metadata.json"), metadata)

	if hasCustomLogger {
		return
	}
	writeJSON(filepath.Join(dir, "args.json"), args)
	writeJSON(filepath.Join(dir, "result.json"), result.Output)
}

func writeJSON(path string, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(path, b, 0o644)
}
