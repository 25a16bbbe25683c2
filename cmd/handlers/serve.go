package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ragforge/internal/agent"
	"ragforge/internal/conversation"
)

// serveRequest is one line of the stdin JSON-lines protocol: a question,
// and optionally the conversation to continue.
type serveRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId,omitempty"`
}

// NewServeCmd creates the serve command. §6 defines no wire protocol for
// this system (non-goal), so this is a minimal stdin/stdout JSON-lines
// loop for local testing: one request object per line in, one Answer
// object per line out, grounded in the teacher's long-running server
// command shape but without an HTTP listener.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the research agent as a stdin/stdout JSON-lines loop",
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
				return fmt.Errorf("serve: no completion provider configured")
			}

			a := agent.New(d.completer, d.tools)
			convStore := conversation.NewStore(d.store)
			a.Conversation = convStore

			in := bufio.NewScanner(cmd.InOrStdin())
			in.Buffer(make([]byte, 0, 64*1024), 1<<20)
			out := json.NewEncoder(cmd.OutOrStdout())

			for in.Scan() {
				line := in.Bytes()
				if len(line) == 0 {
					continue
				}
				var req serveRequest
				if err := json.Unmarshal(line, &req); err != nil {
					out.Encode(map[string]string{"error": err.Error()})
					continue
				}

				conv, priorCtx, err := resolveConversation(cmd, convStore, d, req.ConversationID, "conversation-summary", req.Question)
				if err != nil {
					out.Encode(map[string]string{"error": err.Error()})
					continue
				}
				answer, err := a.Ask(cmd.Context(), conv, req.Question, priorCtx)
				if err != nil {
					out.Encode(map[string]string{"error": err.Error()})
					continue
				}
				out.Encode(answer)
			}
			return in.Err()
		},
	}
	return cmd
}
