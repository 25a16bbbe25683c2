package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ragforge/internal/config"
	"ragforge/internal/core"
	"ragforge/internal/ingestion"
)

// ingestStream is the on-disk/stdin shape an ingestion adapter emits:
// the candidate entities and relationships Discover would return.
type ingestStream struct {
	Candidates    []ingestion.CandidateEntity `json:"candidates"`
	Relationships []core.Relationship         `json:"relationships"`
}

// NewIngestCheckCmd creates the ingest-check command: validates an
// ingestion adapter's entity/relationship stream against the §3
// invariants (unique-field uniqueness per type, relationship endpoints
// resolve to a candidate in the same stream) before it's applied,
// and optionally applies it via Detect+Emit.
func NewIngestCheckCmd() *cobra.Command {
	var file string
	var apply bool

	cmd := &cobra.Command{
		Use:   "ingest-check",
		Short: "Validate (and optionally apply) an ingestion stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			stream, err := readIngestStream(file)
			if err != nil {
				return err
			}

			problems := validateIngestStream(cfg, stream)
			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintln(cmd.ErrOrStderr(), "invalid:", p)
				}
				return fmt.Errorf("ingest-check: %d invariant violation(s)", len(problems))
			}

			d, err := buildDeps(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			set, err := ingestion.Detect(cmd.Context(), d.store, stream.Candidates)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "new=%d changed=%d unchanged=%d\n", len(set.New), len(set.Changed), len(set.Unchanged))

			if apply {
				if err := ingestion.Emit(cmd.Context(), d.store, stream.Candidates, stream.Relationships, set); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "applied")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "ingestion stream JSON file (default: stdin)")
	cmd.Flags().BoolVar(&apply, "apply", false, "write the detected changes to the graph store")
	return cmd
}

func readIngestStream(file string) (*ingestStream, error) {
	var r io.Reader = os.Stdin
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var stream ingestStream
	if err := json.NewDecoder(r).Decode(&stream); err != nil {
		return nil, fmt.Errorf("ingest-check: decoding stream: %w", err)
	}
	return &stream, nil
}

// validateIngestStream enforces the §3 invariants the config's entity
// catalog can check offline, before anything touches the store:
// unique-field values unique within a type, and every relationship
// endpoint referencing a uuid present in this same candidate batch.
func validateIngestStream(cfg *config.Config, stream *ingestStream) []string {
	var problems []string

	uniqueSeen := map[string]map[string]bool{} // entityType -> uniqueValue -> seen
	knownUUIDs := map[string]bool{}
	for _, c := range stream.Candidates {
		knownUUIDs[c.Entity.UUID] = true
		uf := uniqueFieldFor(cfg, c.Entity.Type)
		if uf == "" {
			continue
		}
		val := fmt.Sprintf("%v", c.Entity.Field(uf))
		if uniqueSeen[c.Entity.Type] == nil {
			uniqueSeen[c.Entity.Type] = map[string]bool{}
		}
		if uniqueSeen[c.Entity.Type][val] {
			problems = append(problems, fmt.Sprintf("duplicate %s within type %s for %s=%v", uf, c.Entity.Type, uf, val))
		}
		uniqueSeen[c.Entity.Type][val] = true
	}

	for _, rel := range stream.Relationships {
		if !knownUUIDs[rel.From] {
			problems = append(problems, fmt.Sprintf("relationship %s references unknown source uuid %s", rel.Type, rel.From))
		}
		if !knownUUIDs[rel.To] {
			problems = append(problems, fmt.Sprintf("relationship %s references unknown target uuid %s", rel.Type, rel.To))
		}
	}
	return problems
}

func uniqueFieldFor(cfg *config.Config, entityType string) string {
	for _, e := range cfg.Entities {
		if e.Name == entityType {
			return e.UniqueField
		}
	}
	return ""
}
