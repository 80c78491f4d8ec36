package domain

import "time"

// ChatRequest is one inbound chat message.
type ChatRequest struct {
	ChatID   string `json:"chat_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	Message  string `json:"message"`
}

// ChatResponse is the outcome of processing one message.
type ChatResponse struct {
	ChatID          string               `json:"chat_id"`
	Message         string               `json:"message"`
	Success         bool                 `json:"success"`
	Operations      []CandidateOperation `json:"operations,omitempty"`
	OperationsCount int                  `json:"operations_count"`
}

// LedgerEntry is one operation handed to the outbound dispatcher.
type LedgerEntry struct {
	EntryID   string             `json:"entry_id"`
	UserID    string             `json:"user_id"`
	Actor     string             `json:"actor"`
	Operation CandidateOperation `json:"operation"`

	// Compensating marks a synthetic entry cancelling an earlier one.
	Compensating bool `json:"compensating"`
	// Undo marks an entry emitted by an explicit undo request.
	Undo bool `json:"undo"`

	CreatedAt time.Time `json:"created_at"`
}
