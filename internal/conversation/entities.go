package conversation

import (
	"time"

	"ragforge/internal/core"
)

func conversationEntity(c *core.Conversation) core.Entity {
	return core.Entity{
		UUID: c.UUID,
		Type: "Conversation",
		Name: c.Title,
		Fields: map[string]any{
			"tags":         c.Tags,
			"createdAt":    c.CreatedAt.Format(time.RFC3339Nano),
			"updatedAt":    c.UpdatedAt.Format(time.RFC3339Nano),
			"status":       c.Status,
			"messageCount": int64(c.MessageCount),
			"totalChars":   int64(c.TotalChars),
		},
	}
}

func conversationFromEntity(e core.Entity) *core.Conversation {
	createdAt, _ := time.Parse(time.RFC3339Nano, e.FieldString("createdAt"))
	updatedAt, _ := time.Parse(time.RFC3339Nano, e.FieldString("updatedAt"))
	messageCount, _ := e.Field("messageCount").(int64)
	totalChars, _ := e.Field("totalChars").(int64)
	tags, _ := e.Field("tags").([]string)
	return &core.Conversation{
		UUID:         e.UUID,
		Title:        e.Name,
		Tags:         tags,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
		Status:       e.FieldString("status"),
		MessageCount: int(messageCount),
		TotalChars:   int(totalChars),
	}
}

func turnEntity(t Turn) core.Entity {
	return core.Entity{
		UUID: t.UUID,
		Type: "ConversationTurn",
		Name: t.Role,
		Fields: map[string]any{
			"conversationId": t.ConversationID,
			"index":          int64(t.Index),
			"role":           t.Role,
			"content":        t.Content,
			"createdAt":      t.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

func turnFromEntity(e core.Entity) Turn {
	idx, _ := e.Field("index").(int64)
	createdAt, _ := time.Parse(time.RFC3339Nano, e.FieldString("createdAt"))
	return Turn{
		UUID:           e.UUID,
		ConversationID: e.FieldString("conversationId"),
		Index:          int(idx),
		Role:           e.FieldString("role"),
		Content:        e.FieldString("content"),
		CreatedAt:      createdAt,
	}
}

func summaryEntity(s Summary) core.Entity {
	return core.Entity{
		UUID: s.UUID,
		Type: "ConversationSummary",
		Name: s.ConversationalParagraph,
		Fields: map[string]any{
			"conversationId":          s.ConversationID,
			"level":                   int64(s.Level),
			"conversationalParagraph": s.ConversationalParagraph,
			"actionsParagraph":        s.ActionsParagraph,
			"rangeStart":              int64(s.RangeStart),
			"rangeEnd":                int64(s.RangeEnd),
			"sourceTurnIds":           s.SourceTurnIDs,
			"sourceSummaryIds":        s.SourceSummaryIDs,
			"createdAt":               s.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

func summaryFromEntity(e core.Entity) Summary {
	level, _ := e.Field("level").(int64)
	rangeStart, _ := e.Field("rangeStart").(int64)
	rangeEnd, _ := e.Field("rangeEnd").(int64)
	createdAt, _ := time.Parse(time.RFC3339Nano, e.FieldString("createdAt"))
	sourceTurnIDs, _ := e.Field("sourceTurnIds").([]string)
	sourceSummaryIDs, _ := e.Field("sourceSummaryIds").([]string)
	return Summary{
		UUID:                    e.UUID,
		ConversationID:          e.FieldString("conversationId"),
		Level:                   int(level),
		ConversationalParagraph: e.FieldString("conversationalParagraph"),
		ActionsParagraph:        e.FieldString("actionsParagraph"),
		RangeStart:              int(rangeStart),
		RangeEnd:                int(rangeEnd),
		SourceTurnIDs:           sourceTurnIDs,
		SourceSummaryIDs:        sourceSummaryIDs,
		CreatedAt:               createdAt,
	}
}
