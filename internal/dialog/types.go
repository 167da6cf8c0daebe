// Package dialog implements the conversational core: fusing client screen
// state with message-derived signals, classifying the user's intent and
// orchestrating the response for each chat turn.
package dialog

import (
	"time"

	"github.com/realcamp/guidebot/internal/storage"
)

// WebContext is the client-supplied screen state, sent with every turn.
// It is authoritative: message-derived detection only fills the gaps it
// leaves unset.
type WebContext struct {
	CurrentView            string                  `json:"current_view,omitempty"`
	CurrentCategory        *storage.EntitySnapshot `json:"current_category,omitempty"`
	CurrentBadge           *storage.EntitySnapshot `json:"current_badge,omitempty"`
	CurrentLevel           string                  `json:"current_level,omitempty"`
	CurrentLevelBadgeTitle string                  `json:"current_level_badge_title,omitempty"`
}

// ChatRequest is one inbound chat turn.
type ChatRequest struct {
	Message string      `json:"message"`
	UserID  string      `json:"user_id"`
	Context *WebContext `json:"context,omitempty"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	RequestType string    `json:"request_type"`
	Timestamp   time.Time `json:"timestamp"`
	Error       string    `json:"error,omitempty"`
}

// ChatResponse is the outbound reply for one turn. The turn never hard-fails
// on completion-service errors: a degraded reply carries Metadata.Error
// instead.
type ChatResponse struct {
	Response       string               `json:"response"`
	Suggestions    []string             `json:"suggestions"`
	ContextUpdates *storage.UserContext `json:"context_updates"`
	Metadata       Metadata             `json:"metadata"`
}
