package storage

import (
	"time"
)

// Level is the user's self-assessed experience level.
type Level string

const (
	LevelBeginner Level = "beginner"
	LevelAdvanced Level = "advanced"
	LevelExpert   Level = "expert"
)

// EntitySnapshot is the client-supplied snapshot of a catalog entity shown on
// screen. It is kept verbatim so handlers can fall back to the display title
// when an id no longer resolves.
type EntitySnapshot struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
}

// ScreenState holds UI-derived fields the client reports with each turn.
type ScreenState struct {
	View             string          `json:"view,omitempty"`
	CategorySnapshot *EntitySnapshot `json:"category_snapshot,omitempty"`
	BadgeSnapshot    *EntitySnapshot `json:"badge_snapshot,omitempty"`
	LevelLabel       string          `json:"level_label,omitempty"`
	LevelTitle       string          `json:"level_title,omitempty"`
}

// UserContext is the durable per-user state, one record per user id.
type UserContext struct {
	UserID          string      `json:"user_id"`
	CurrentCategory string      `json:"current_category,omitempty"`
	CurrentBadge    string      `json:"current_badge,omitempty"`
	Interests       []string    `json:"interests,omitempty"`
	Level           Level       `json:"level"`
	Screen          ScreenState `json:"screen"`
}

// NewUserContext returns a default-initialized context for a user.
func NewUserContext(userID string) *UserContext {
	return &UserContext{
		UserID: userID,
		Level:  LevelBeginner,
	}
}

// AddInterest adds a topic tag, ignoring duplicates. Reports whether the tag
// was actually added.
func (c *UserContext) AddInterest(tag string) bool {
	for _, existing := range c.Interests {
		if existing == tag {
			return false
		}
	}
	c.Interests = append(c.Interests, tag)
	return true
}

// HasInterest reports whether the tag is already tracked.
func (c *UserContext) HasInterest(tag string) bool {
	for _, existing := range c.Interests {
		if existing == tag {
			return true
		}
	}
	return false
}

// Message is a single turn in a conversation. Immutable once created.
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Conversation is the persisted bounded message history of one user,
// with an embedded snapshot of the context at last write.
type Conversation struct {
	ConversationID string      `json:"conversation_id"`
	UserContext    UserContext `json:"user_context"`
	Messages       []Message   `json:"messages"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Store is the durable per-user persistence contract.
//
// Writes are last-writer-wins per user id; concurrent turns for the same user
// racing to write may lose an update. That matches the single-client-per-user
// deployment and is deliberately not fixed here.
type Store interface {
	// GetOrCreate returns the cached context for the user, default-initialized
	// and cached on first contact.
	GetOrCreate(userID string) *UserContext
	// Save persists the user's context record, overwriting any previous one.
	Save(ctx *UserContext) error
	// AppendMessage appends to the user's conversation, truncating it to the
	// configured history limit from the front, and persists the record.
	AppendMessage(userID string, msg Message) error
	// History returns the user's current bounded conversation history.
	History(userID string) []Message
	// LoadAll rehydrates the in-memory cache from persisted records.
	// Malformed records are logged and skipped, never fatal.
	LoadAll() error
}
