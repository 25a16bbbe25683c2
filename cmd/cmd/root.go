/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ragforge/cmd/handlers"
	"ragforge/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with the query/ask/ingest-check/
// serve subcommand tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ragforge",
		Short: "Code-aware retrieval-augmented knowledge base",
		Long: `ragforge indexes a codebase or document set as a typed graph plus
vector indexes, and answers questions over it via semantic search, graph
expansion, and an LLM research agent with tool calls.

Examples:
  ragforge query "token refresh flow" --index function-doc
  ragforge ask "how does auth middleware validate sessions?"
  ragforge ingest-check --file candidates.json --apply
  ragforge serve`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./ragforge.yaml)")

	rootCmd.AddCommand(handlers.NewQueryCmd())
	rootCmd.AddCommand(handlers.NewAskCmd())
	rootCmd.AddCommand(handlers.NewIngestCheckCmd())
	rootCmd.AddCommand(handlers.NewServeCmd())

	return rootCmd
}

// Execute runs the root command, mapping any returned core error to the
// §6 exit-code contract before exiting.
func Execute() {
	logger.Init()
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(handlers.ExitCode(err))
	}
}
