package models

import (
	"time"
)

// Message is one role/content pair sent to the completion backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatContext is the rolling conversation state kept per group chat.
// Messages holds the most recent texts in arrival order, bounded by the
// configured window size. Participants is the set of user IDs seen while
// the context is alive. A zero LastResponse means the bot has never
// replied in this chat.
type ChatContext struct {
	ChatID       int64              `json:"chat_id"`
	Title        string             `json:"title"`
	Messages     []string           `json:"messages"`
	Participants map[int64]struct{} `json:"participants"`
	LastResponse time.Time          `json:"last_response"`
}

// Analysis is the coarse summary the analyzer derives from a context window.
type Analysis struct {
	Topic        string `json:"topic"`
	Sentiment    string `json:"sentiment"`
	Participants int    `json:"participants_count"`
}

// InteractionSnapshot captures what the pipeline knew about a chat at the
// moment a message finished synchronous processing. Background jobs work
// from the snapshot, never from the live context, so later messages cannot
// mutate what gets persisted.
type InteractionSnapshot struct {
	Timestamp         time.Time
	ChatID            int64
	ChatTitle         string
	Messages          []string
	Participants      int
	BotResponse       string
	ResponseGenerated bool
}
