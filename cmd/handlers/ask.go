package handlers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ragforge/internal/agent"
	"ragforge/internal/conversation"
	"ragforge/internal/core"
	"ragforge/internal/ragerr"
	"ragforge/internal/tui"
)

const (
	defaultMaxTurns     = 10
	defaultMaxChars     = 5000
	defaultTopSummaries = 5
)

// NewAskCmd creates the ask command: a single question through the
// §4.I research agent's tool loop, optionally continuing an existing
// conversation so dual-context retrieval (§4.H) carries prior turns in.
func NewAskCmd() *cobra.Command {
	var conversationID string
	var summaryIndex string

	var quiet bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the research agent a question",
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
			if d.completer == nil {
				return fmt.Errorf("ask: no completion provider configured")
			}

			a := agent.New(d.completer, d.tools)
			convStore := conversation.NewStore(d.store)
			a.Conversation = convStore

			conv, priorCtx, err := resolveConversation(cmd, convStore, d, conversationID, summaryIndex, args[0])
			if err != nil {
				return err
			}

			ask := func() (any, error) { return a.Ask(cmd.Context(), conv, args[0], priorCtx) }

			var answer any
			if quiet {
				answer, err = ask()
			} else {
				answer, err = tui.RunWithSpinner("asking "+conv.UUID, ask)
			}
			if err != nil {
				return err
			}
			return printJSON(answer)
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "continue an existing conversation by uuid (default: start a new one)")
	cmd.Flags().StringVar(&summaryIndex, "summary-index", "conversation-summary", "vector index name holding summary embeddings")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress the progress spinner (for piping into other tools)")
	return cmd
}

func resolveConversation(cmd *cobra.Command, store *conversation.Store, d *deps, conversationID, summaryIndex, question string) (*core.Conversation, *conversation.Context, error) {
	ctx := cmd.Context()
	if conversationID == "" {
		conv, err := store.CreateConversation(ctx, uuid.NewString(), question, nil)
		return conv, nil, err
	}

	conv, ok, err := store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ragerr.New(ragerr.ConversationNotFound, conversationID, nil)
	}

	var priorCtx *conversation.Context
	if d.embedder != nil {
		priorCtx, err = conversation.BuildContext(ctx, store, d.embedder, conversationID, summaryIndex, question,
			defaultMaxTurns, defaultMaxChars, defaultTopSummaries, time.Now())
		if err != nil {
			return nil, nil, err
		}
	}
	return conv, priorCtx, nil
}
