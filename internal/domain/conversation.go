package domain

import (
	"encoding/json"
	"time"
)

// Message is one transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the persisted record of one chat session. JSON keys match
// the Conversations table columns the browser client already reads.
type Conversation struct {
	ID                   string          `json:"ConversationId"`
	OwnerID              string          `json:"UserId"`
	OwnerContact         string          `json:"UserEmail"`
	Category             string          `json:"ChatType"`
	Transcript           []Message       `json:"ConversationState"`
	MessageCount         int             `json:"MessageCount"`
	TokenEstimate        int             `json:"TotalTokens"`
	StartedAt            time.Time       `json:"StartTime"`
	LastUpdatedAt        time.Time       `json:"LastUpdated"`
	LastUserMessage      string          `json:"LastUserMessage"`
	LastAssistantMessage string          `json:"LastAssistantMessage"`
	Metadata             json.RawMessage `json:"Metadata"`
}

// ConversationSummary is the list view of a conversation.
type ConversationSummary struct {
	ID                   string    `json:"ConversationId"`
	OwnerID              string    `json:"UserId"`
	Category             string    `json:"ChatType"`
	StartedAt            time.Time `json:"StartTime"`
	LastUpdatedAt        time.Time `json:"LastUpdated"`
	MessageCount         int       `json:"MessageCount"`
	TokenEstimate        int       `json:"TotalTokens"`
	LastUserMessage      string    `json:"LastUserMessage"`
	LastAssistantMessage string    `json:"LastAssistantMessage"`
}

// Summary projects c to its list view.
func (c *Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:                   c.ID,
		OwnerID:              c.OwnerID,
		Category:             c.Category,
		StartedAt:            c.StartedAt,
		LastUpdatedAt:        c.LastUpdatedAt,
		MessageCount:         c.MessageCount,
		TokenEstimate:        c.TokenEstimate,
		LastUserMessage:      c.LastUserMessage,
		LastAssistantMessage: c.LastAssistantMessage,
	}
}

// LastContent returns the content of the final message with the given role,
// or "" when there is none.
func LastContent(transcript []Message, role Role) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == role {
			return transcript[i].Content
		}
	}
	return ""
}
