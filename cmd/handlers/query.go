package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ragforge/internal/core"
	"ragforge/internal/pipeline"
)

// NewQueryCmd creates the query command: run a semantic-search pipeline
// against the configured graph store and print the ranked results as
// JSON, the direct CLI entry point for §4.E.
func NewQueryCmd() *cobra.Command {
	var (
		index      string
		entityType string
		topK       int
		offset     int
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Semantic search over the knowledge graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			d, err := buildDeps(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if d.embedder == nil {
				return fmt.Errorf("query: no embedding provider configured")
			}

			b := pipeline.New().Semantic(index, args[0], topK)
			if entityType != "" {
				b = b.ClientFilter(func(r core.SearchResult) bool { return r.Entity.Type == entityType })
			}
			b = b.Paginate(offset, limit)

			results, err := pipeline.Execute(cmd.Context(), pipeline.Deps{
				Store: d.store, Embedder: d.embedder, Completer: d.completer,
			}, b.Build())
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}

	cmd.Flags().StringVar(&index, "index", "", "vector index name to query")
	cmd.Flags().StringVar(&entityType, "type", "", "restrict results to this entity type")
	cmd.Flags().IntVar(&topK, "top-k", 10, "candidates to fetch from the vector index")
	cmd.Flags().IntVar(&offset, "offset", 0, "result offset")
	cmd.Flags().IntVar(&limit, "limit", 10, "max results to print")
	return cmd
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
