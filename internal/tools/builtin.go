package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ragforge/internal/core"
	"ragforge/internal/embedding"
	"ragforge/internal/graphstore"
	"ragforge/internal/pipeline"
	"ragforge/internal/ragerr"
	"ragforge/internal/structured"
)

// NewGraphQueryTool exposes the query pipeline as a single tool: the
// agent supplies a semantic query text, an optional entity type, and an
// optional result cap (topK), and gets back ranked search results. There
// is no field-value filter.
func NewGraphQueryTool(store graphstore.Store, embedder embedding.Provider, indexName string) Tool {
	return Tool{
		Name:        "query_graph",
		Description: "Search the code knowledge graph by semantic similarity, optionally filtered by entity type.",
		InputSchema: []*structured.Field{
			{Name: "query", Type: structured.TypeString, Required: true, Description: "natural language search text"},
			{Name: "entityType", Type: structured.TypeString, Description: "restrict to this entity type"},
			{Name: "topK", Type: structured.TypeNumber, Description: "max results, default 10"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return nil, ragerr.New(ragerr.ToolArgsInvalid, "query_graph", fmt.Errorf("query is required"))
			}
			topK := 10
			if tk, ok := args["topK"].(float64); ok && tk > 0 {
				topK = int(tk)
			}

			ops := []pipeline.Operation{{Kind: pipeline.OpSemantic, IndexName: indexName, Text: query, TopK: topK}}
			if et, ok := args["entityType"].(string); ok && et != "" {
				ops = append(ops, pipeline.Operation{Kind: pipeline.OpClientFilter, ClientPredicate: func(r core.SearchResult) bool {
					return r.Entity.Type == et
				}})
			}

			results, err := pipeline.Execute(ctx, pipeline.Deps{Store: store, Embedder: embedder}, pipeline.Pipeline{Operations: ops, Limit: topK})
			if err != nil {
				return nil, err
			}
			return formatResults(results), nil
		},
	}
}

func formatResults(results []core.SearchResult) []map[string]any {
	out := make([]map[string]any, len(results))
	for i, r := range results {
		out[i] = map[string]any{
			"uuid":  r.Entity.UUID,
			"type":  r.Entity.Type,
			"name":  r.Entity.Name,
			"score": r.ScoreOrMinusOne(),
		}
	}
	return out
}

// NewFileReadTool reads a local file's contents, used by the agent to
// inspect source files a graph search surfaced by path.
func NewFileReadTool(rootDir string) Tool {
	return Tool{
		Name:        "read_file",
		Description: "Read the contents of a file within the indexed project, optionally restricted to a line range.",
		InputSchema: []*structured.Field{
			{Name: "path", Type: structured.TypeString, Required: true},
			{Name: "startLine", Type: structured.TypeNumber},
			{Name: "endLine", Type: structured.TypeNumber},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			p, _ := args["path"].(string)
			if p == "" {
				return nil, ragerr.New(ragerr.ToolArgsInvalid, "read_file", fmt.Errorf("path is required"))
			}
			full := p
			if rootDir != "" && !strings.HasPrefix(p, rootDir) {
				full = rootDir + string(os.PathSeparator) + p
			}
			data, err := os.ReadFile(full)
			if err != nil {
				return nil, ragerr.New(ragerr.ToolFailed, "read_file", err)
			}

			lines := strings.Split(string(data), "\n")
			start, end := 0, len(lines)
			if s, ok := args["startLine"].(float64); ok && int(s) > 0 {
				start = int(s) - 1
			}
			if e, ok := args["endLine"].(float64); ok && int(e) > 0 && int(e) < end {
				end = int(e)
			}
			if start > len(lines) {
				start = len(lines)
			}
			if end < start {
				end = start
			}
			return strings.Join(lines[start:end], "\n"), nil
		},
	}
}

// NewWebFetchTool fetches a URL and extracts readable text via goquery,
// the same HTML-parsing library the teacher's content fetcher uses.
func NewWebFetchTool() Tool {
	client := &http.Client{Timeout: 20 * time.Second}
	return Tool{
		Name:        "fetch_url",
		Description: "Fetch a web page and return its extracted readable text.",
		InputSchema: []*structured.Field{
			{Name: "url", Type: structured.TypeString, Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			raw, _ := args["url"].(string)
			parsed, err := url.ParseRequestURI(raw)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
				return nil, ragerr.New(ragerr.ToolArgsInvalid, "fetch_url", fmt.Errorf("invalid url %q", raw))
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
			if err != nil {
				return nil, ragerr.New(ragerr.ToolFailed, "fetch_url", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, ragerr.New(ragerr.ToolFailed, "fetch_url", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
			if err != nil {
				return nil, ragerr.New(ragerr.ToolFailed, "fetch_url", err)
			}

			doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
			if err != nil {
				return nil, ragerr.New(ragerr.ToolFailed, "fetch_url", err)
			}

			var b strings.Builder
			doc.Find("p, h1, h2, h3, li, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
				text := strings.TrimSpace(s.Text())
				if text != "" {
					b.WriteString(text)
					b.WriteString("\n")
				}
			})
			return b.String(), nil
		},
	}
}

// NewProjectOpTool is a placeholder extension point for a future
// write-side operation (e.g. triggering a re-ingestion run). It
// currently refuses every call with ToolFailed so callers fail loudly
// rather than silently no-op'ing.
func NewProjectOpTool() Tool {
	return Tool{
		Name:        "project_op",
		Description: "Reserved for project-level operations; not yet implemented.",
		InputSchema: []*structured.Field{{Name: "op", Type: structured.TypeString, Required: true}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, ragerr.New(ragerr.ToolFailed, "project_op", fmt.Errorf("not implemented"))
		},
	}
}
