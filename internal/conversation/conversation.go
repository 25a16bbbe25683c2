// Package conversation is the 4.H conversation store: turns, a
// hierarchical summarization protocol over those turns, and dual-context
// retrieval (recent turns plus RAG-over-summaries) for the research
// agent.
package conversation

import (
	"context"
	"time"

	"ragforge/internal/core"
	"ragforge/internal/graphstore"
)

const (
	summarizeEveryNChars              = 10000
	maxTurnsBeforeSummarize           = 5
	summaryLevels                     = 3
	maxCharsBeforeSummarizeSummaries  = 10000
	keepLastUnsummarizedTurns         = 2
	defaultRecentTurnsCap             = 10
	defaultRecentCharsCap             = 5000
	decayDays                         = 7.0
	// ragMinScore is §4.H's floor on a decayed, level-boosted summary
	// score for it to be worth feeding back into the agent's context.
	ragMinScore = 0.7
)

var levelBoost = map[int]float64{1: 1.0, 2: 1.1, 3: 1.2}

// Turn is one request/response exchange in a conversation.
type Turn struct {
	UUID           string    `json:"uuid"`
	ConversationID string    `json:"conversationId"`
	Index          int       `json:"index"`
	Role           string    `json:"role"` // user|assistant
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Summary is one node of the hierarchical summarization tree. Level 1
// summarises a run of Turns; level N>1 summarises a run of level-(N-1)
// Summaries. Per §3 it carries both a conversational-style paragraph
// and an actions-style paragraph, and the [RangeStart, RangeEnd) run of
// character offsets (over the conversation's concatenated turn
// content) it covers, so promotion can be checked for coverage: the
// union of a level's promoted summaries' ranges must equal the new
// summary's range.
type Summary struct {
	UUID                    string    `json:"uuid"`
	ConversationID          string    `json:"conversationId"`
	Level                   int       `json:"level"`
	ConversationalParagraph string    `json:"conversationalParagraph"`
	ActionsParagraph        string    `json:"actionsParagraph"`
	RangeStart              int       `json:"rangeStart"`
	RangeEnd                int       `json:"rangeEnd"`
	SourceTurnIDs           []string  `json:"sourceTurnIds,omitempty"`
	SourceSummaryIDs        []string  `json:"sourceSummaryIds,omitempty"`
	CreatedAt               time.Time `json:"createdAt"`
}

// Store persists conversations, turns, and summaries through the graph
// store, treating them as typed entities/relationships.
type Store struct {
	graph graphstore.Store
	now   func() time.Time
}

func NewStore(graph graphstore.Store) *Store {
	return &Store{graph: graph, now: time.Now}
}

// CreateConversation writes a new active conversation.
func (s *Store) CreateConversation(ctx context.Context, uuid, title string, tags []string) (*core.Conversation, error) {
	conv := &core.Conversation{
		UUID:      uuid,
		Title:     title,
		Tags:      tags,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
		Status:    core.ConversationActive,
	}
	if err := s.graph.UpsertEntity(ctx, conversationEntity(conv)); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation fetches a conversation by uuid, or ok=false if absent.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*core.Conversation, bool, error) {
	e, ok, err := s.graph.GetEntity(ctx, conversationID)
	if err != nil || !ok {
		return nil, ok, err
	}
	return conversationFromEntity(e), true, nil
}

// AppendTurn writes a turn and updates the conversation's rolling
// counters. It does not trigger summarization itself — see
// MaybeSummarize, which callers run asynchronously after appending so
// the append path stays non-blocking.
func (s *Store) AppendTurn(ctx context.Context, conv *core.Conversation, turn Turn) error {
	turn.CreatedAt = s.now()
	turn.Index = conv.MessageCount
	if err := s.graph.UpsertEntity(ctx, turnEntity(turn)); err != nil {
		return err
	}
	conv.MessageCount++
	conv.TotalChars += len(turn.Content)
	conv.UpdatedAt = s.now()
	return s.graph.UpsertEntity(ctx, conversationEntity(conv))
}

// ShouldSummarize reports whether the turn/char thresholds since the
// last summarization point have been crossed.
func ShouldSummarize(turnsSinceLastSummary int, charsSinceLastSummary int) bool {
	return turnsSinceLastSummary >= maxTurnsBeforeSummarize || charsSinceLastSummary >= summarizeEveryNChars
}

// GetRecentTurns returns the most recent turns for a conversation,
// capped by count and total characters, newest last.
func (s *Store) GetRecentTurns(ctx context.Context, conversationID string, maxTurns, maxChars int) ([]Turn, error) {
	if maxTurns <= 0 {
		maxTurns = defaultRecentTurnsCap
	}
	if maxChars <= 0 {
		maxChars = defaultRecentCharsCap
	}

	entities, err := s.graph.FindByFields(ctx, "ConversationTurn", map[string]any{"conversationId": conversationID}, 0)
	if err != nil {
		return nil, err
	}

	turns := make([]Turn, 0, len(entities))
	for _, e := range entities {
		turns = append(turns, turnFromEntity(e))
	}
	sortTurnsByIndex(turns)

	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	var totalChars int
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		totalChars += len(turns[i].Content)
		if totalChars > maxChars {
			break
		}
		start = i
	}
	return turns[start:], nil
}

// GetAllTurns returns every turn for a conversation, oldest first, with
// no count/char cap — used by the summarization trigger to find the
// unsummarized suffix.
func (s *Store) GetAllTurns(ctx context.Context, conversationID string) ([]Turn, error) {
	entities, err := s.graph.FindByFields(ctx, "ConversationTurn", map[string]any{"conversationId": conversationID}, 0)
	if err != nil {
		return nil, err
	}
	turns := make([]Turn, 0, len(entities))
	for _, e := range entities {
		turns = append(turns, turnFromEntity(e))
	}
	sortTurnsByIndex(turns)
	return turns, nil
}

func sortTurnsByIndex(turns []Turn) {
	for i := 1; i < len(turns); i++ {
		for j := i; j > 0 && turns[j].Index < turns[j-1].Index; j-- {
			turns[j], turns[j-1] = turns[j-1], turns[j]
		}
	}
}

// GetSummaries returns every summary at the given level for a
// conversation, oldest first.
func (s *Store) GetSummaries(ctx context.Context, conversationID string, level int) ([]Summary, error) {
	entities, err := s.graph.FindByFields(ctx, "ConversationSummary", map[string]any{
		"conversationId": conversationID,
		"level":          int64(level),
	}, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(entities))
	for i, e := range entities {
		out[i] = summaryFromEntity(e)
	}
	return out, nil
}

// AppendSummary writes one summary node.
func (s *Store) AppendSummary(ctx context.Context, summary Summary) error {
	summary.CreatedAt = s.now()
	return s.graph.UpsertEntity(ctx, summaryEntity(summary))
}
