package conversation

import (
	"context"
	"fmt"
	"sort"

	"ragforge/internal/logger"
	"ragforge/internal/structured"
)

// Summarizer is the narrow completer surface the summarization protocol
// needs, satisfied structurally by completion.Provider implementations
// via internal/structured.Completer.
type Summarizer = structured.Completer

var summaryFields = []*structured.Field{
	{Name: "conversationalSummary", Type: structured.TypeString, Required: true},
	{Name: "actionsSummary", Type: structured.TypeString, Required: true},
}

// Summarize runs one level of the hierarchical summarization protocol:
// it takes the unsummarized turns (level 1) or prior summaries
// (level>1) and produces one new Summary covering [rangeStart,
// rangeEnd) of the conversation's character stream, as two paragraphs
// per §3 — one conversational-style, one actions-style.
func Summarize(ctx context.Context, completer Summarizer, conversationID string, level int, sourceIDs []string, sourceText string, rangeStart, rangeEnd int) (Summary, error) {
	res, err := structured.Execute(ctx, completer, structured.Request{
		Input:        map[string]any{"transcript": sourceText},
		InputFields:  []string{"transcript"},
		SystemPrompt: "You condense conversation history into two compact paragraphs: a conversational-style narrative of what was discussed, and an actions-style list of concrete facts, decisions, and open questions.",
		UserTask:     fmt.Sprintf("Summarize the following level-%d conversation content as two paragraphs: conversationalSummary and actionsSummary.", level),
		OutputSchema:  summaryFields,
		OutputFormat:  structured.FormatJSON,
		MaxIterations: 1,
	})
	if err != nil {
		return Summary{}, err
	}
	conversational, _ := res.Output["conversationalSummary"].(string)
	actions, _ := res.Output["actionsSummary"].(string)

	summary := Summary{
		ConversationID:          conversationID,
		Level:                   level,
		ConversationalParagraph: conversational,
		ActionsParagraph:        actions,
		RangeStart:              rangeStart,
		RangeEnd:                rangeEnd,
	}
	if level == 1 {
		summary.SourceTurnIDs = sourceIDs
	} else {
		summary.SourceSummaryIDs = sourceIDs
	}
	return summary, nil
}

// MaybeSummarize is the §4.H level-1 entry point: it looks at the turns
// since the last level-1 summary's covered range, and if the rolling
// turn/char thresholds (ShouldSummarize) have been crossed, summarizes
// the unsummarized prefix — holding back the last
// keepLastUnsummarizedTurns turns so they stay verbatim in
// GetRecentTurns — then recursively promotes higher levels. Intended to
// be run in its own goroutine after AppendTurn so the append path
// itself stays non-blocking; errors are logged, not returned, since
// nothing is waiting on this call.
func MaybeSummarize(ctx context.Context, store *Store, completer Summarizer, conversationID string) {
	if err := maybeSummarizeLevel1(ctx, store, completer, conversationID); err != nil {
		logger.Warn("level-1 summarization failed", "conversationId", conversationID, "error", err.Error())
		return
	}
	if err := PromoteIfNeeded(ctx, store, completer, conversationID); err != nil {
		logger.Warn("summary promotion failed", "conversationId", conversationID, "error", err.Error())
	}
}

func maybeSummarizeLevel1(ctx context.Context, store *Store, completer Summarizer, conversationID string) error {
	turns, err := store.GetAllTurns(ctx, conversationID)
	if err != nil {
		return err
	}

	offsets := make([]int, len(turns))
	cum := 0
	for i, t := range turns {
		offsets[i] = cum
		cum += len(t.Content)
	}

	existing, err := store.GetSummaries(ctx, conversationID, 1)
	if err != nil {
		return err
	}
	lastEnd := 0
	for _, s := range existing {
		if s.RangeEnd > lastEnd {
			lastEnd = s.RangeEnd
		}
	}

	start := len(turns)
	for i, off := range offsets {
		if off >= lastEnd {
			start = i
			break
		}
	}
	unsummarized := turns[start:]
	if len(unsummarized) <= keepLastUnsummarizedTurns {
		return nil
	}

	turnsSinceLastSummary := len(unsummarized)
	charsSinceLastSummary := cum - lastEnd
	if !ShouldSummarize(turnsSinceLastSummary, charsSinceLastSummary) {
		return nil
	}

	toSummarize := unsummarized[:len(unsummarized)-keepLastUnsummarizedTurns]
	ids := make([]string, len(toSummarize))
	var text string
	for i, t := range toSummarize {
		ids[i] = t.UUID
		text += t.Role + ": " + t.Content + "\n"
	}
	rangeStart := offsets[start]
	rangeEnd := offsets[start+len(toSummarize)-1] + len(toSummarize[len(toSummarize)-1].Content)

	summary, err := Summarize(ctx, completer, conversationID, 1, ids, text, rangeStart, rangeEnd)
	if err != nil {
		return err
	}
	return store.AppendSummary(ctx, summary)
}

// PromoteIfNeeded recursively checks whether each level's summaries,
// excluding the most recent one at that level, have crossed
// maxCharsBeforeSummarizeSummaries and, if so, synthesizes them into
// the next level up, per §4.H's recursive promotion rule (the most
// recent summary at a level is always held back, so it can still
// absorb nearby content before being promoted itself). It stops at
// summaryLevels. The promoted summary's range is the union
// [min(start), max(end)) of the summaries it promotes.
func PromoteIfNeeded(ctx context.Context, store *Store, completer Summarizer, conversationID string) error {
	for level := 1; level < summaryLevels; level++ {
		summaries, err := store.GetSummaries(ctx, conversationID, level)
		if err != nil {
			return err
		}
		if len(summaries) < 2 {
			continue
		}
		sort.Slice(summaries, func(i, j int) bool { return summaries[i].CreatedAt.Before(summaries[j].CreatedAt) })
		toPromote := summaries[:len(summaries)-1] // exclude the most recent same-level summary

		var totalChars int
		for _, s := range toPromote {
			totalChars += len(s.ConversationalParagraph) + len(s.ActionsParagraph)
		}
		if totalChars < maxCharsBeforeSummarizeSummaries {
			continue
		}

		ids := make([]string, len(toPromote))
		var text string
		rangeStart, rangeEnd := toPromote[0].RangeStart, toPromote[0].RangeEnd
		for i, s := range toPromote {
			ids[i] = s.UUID
			text += s.ConversationalParagraph + "\n" + s.ActionsParagraph + "\n\n"
			if s.RangeStart < rangeStart {
				rangeStart = s.RangeStart
			}
			if s.RangeEnd > rangeEnd {
				rangeEnd = s.RangeEnd
			}
		}

		promoted, err := Summarize(ctx, completer, conversationID, level+1, ids, text, rangeStart, rangeEnd)
		if err != nil {
			return err
		}
		if err := store.AppendSummary(ctx, promoted); err != nil {
			return err
		}
	}
	return nil
}
