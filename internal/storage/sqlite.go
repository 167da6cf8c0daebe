package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultHistoryLimit bounds the per-user conversation history.
const DefaultHistoryLimit = 20

// SQLiteStore persists user contexts and conversations as JSON records in
// sqlite, one logical record per user id, with a write-through in-memory cache.
type SQLiteStore struct {
	db           *sql.DB
	logger       *slog.Logger
	dbPath       string
	historyLimit int

	mu            sync.Mutex
	contexts      map[string]*UserContext
	conversations map[string]*Conversation
}

// NewSQLiteStore opens (or creates) the database at path.
// A historyLimit <= 0 falls back to DefaultHistoryLimit.
func NewSQLiteStore(logger *slog.Logger, path string, historyLimit int) (*SQLiteStore, error) {
	originalPath := path
	if idx := strings.Index(path, "?"); idx != -1 {
		originalPath = path[:idx]
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// modernc.org/sqlite can report "database is locked" on concurrent
	// writes even in WAL mode; one connection is enough for this workload.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	// The _journal_mode query param doesn't work with modernc.org/sqlite,
	// so WAL is set via PRAGMA after opening.
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		logger.Warn("failed to set WAL journal mode", "error", err)
	} else {
		logger.Info("SQLite journal mode set", "mode", journalMode, "path", originalPath)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		logger.Warn("failed to set busy timeout", "error", err)
	}

	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}

	return &SQLiteStore{
		db:            db,
		logger:        logger.With("component", "storage"),
		dbPath:        originalPath,
		historyLimit:  historyLimit,
		contexts:      make(map[string]*UserContext),
		conversations: make(map[string]*Conversation),
	}, nil
}

// Init creates the schema. Safe to call on an existing database.
func (s *SQLiteStore) Init() error {
	query := `
	CREATE TABLE IF NOT EXISTS contexts (
		user_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS conversations (
		user_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// GetOrCreate implements Store.
func (s *SQLiteStore) GetOrCreate(userID string) *UserContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx, ok := s.contexts[userID]; ok {
		return ctx
	}
	ctx := NewUserContext(userID)
	s.contexts[userID] = ctx
	return ctx
}

// Save implements Store. Full overwrite of the user's persisted record.
func (s *SQLiteStore) Save(ctx *UserContext) error {
	data, err := json.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("failed to marshal context for user %s: %w", ctx.UserID, err)
	}

	s.mu.Lock()
	s.contexts[ctx.UserID] = ctx
	s.mu.Unlock()

	query := `
		INSERT INTO contexts (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, ctx.UserID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save context for user %s: %w", ctx.UserID, err)
	}
	RecordContextSave()
	return nil
}

// AppendMessage implements Store.
func (s *SQLiteStore) AppendMessage(userID string, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	s.mu.Lock()
	conv, ok := s.conversations[userID]
	if !ok {
		conv = &Conversation{ConversationID: "conv_" + userID}
		s.conversations[userID] = conv
	}
	conv.Messages = append(conv.Messages, msg)
	if len(conv.Messages) > s.historyLimit {
		// Evict oldest messages first.
		conv.Messages = conv.Messages[len(conv.Messages)-s.historyLimit:]
	}
	if ctx, ok := s.contexts[userID]; ok {
		conv.UserContext = *ctx
	} else {
		conv.UserContext = *NewUserContext(userID)
	}
	conv.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(conv)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal conversation for user %s: %w", userID, err)
	}

	query := `
		INSERT INTO conversations (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, userID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save conversation for user %s: %w", userID, err)
	}
	RecordMessageAppend()
	return nil
}

// History implements Store.
func (s *SQLiteStore) History(userID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[userID]
	if !ok {
		return nil
	}
	history := make([]Message, len(conv.Messages))
	copy(history, conv.Messages)
	return history
}

// LoadAll implements Store. Called once at startup.
func (s *SQLiteStore) LoadAll() error {
	loadedContexts, skipped, err := s.loadContexts()
	if err != nil {
		return err
	}
	loadedConversations, skippedConv, err := s.loadConversations()
	if err != nil {
		return err
	}
	skipped += skippedConv

	s.logger.Info("persisted records rehydrated",
		"contexts", loadedContexts,
		"conversations", loadedConversations,
		"skipped", skipped,
	)
	return nil
}

func (s *SQLiteStore) loadContexts() (loaded, skipped int, err error) {
	rows, err := s.db.Query("SELECT user_id, data FROM contexts")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read contexts: %w", err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var userID, data string
		if err := rows.Scan(&userID, &data); err != nil {
			return loaded, skipped, err
		}
		var ctx UserContext
		if err := json.Unmarshal([]byte(data), &ctx); err != nil || ctx.UserID == "" {
			s.logger.Warn("skipping malformed context record", "user_id", userID, "error", err)
			RecordMalformedRecord("context")
			skipped++
			continue
		}
		s.contexts[ctx.UserID] = &ctx
		loaded++
	}
	return loaded, skipped, rows.Err()
}

func (s *SQLiteStore) loadConversations() (loaded, skipped int, err error) {
	rows, err := s.db.Query("SELECT user_id, data FROM conversations")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read conversations: %w", err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var userID, data string
		if err := rows.Scan(&userID, &data); err != nil {
			return loaded, skipped, err
		}
		var conv Conversation
		if err := json.Unmarshal([]byte(data), &conv); err != nil {
			s.logger.Warn("skipping malformed conversation record", "user_id", userID, "error", err)
			RecordMalformedRecord("conversation")
			skipped++
			continue
		}
		if len(conv.Messages) > s.historyLimit {
			conv.Messages = conv.Messages[len(conv.Messages)-s.historyLimit:]
		}
		s.conversations[userID] = &conv
		loaded++
	}
	return loaded, skipped, rows.Err()
}

// Checkpoint forces a WAL checkpoint to flush all pending writes to the main
// database file. Useful before shutdown.
func (s *SQLiteStore) Checkpoint() error {
	var busy, logFrames, checkpointed int
	err := s.db.QueryRow("PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return fmt.Errorf("checkpoint query failed: %w", err)
	}

	s.logger.Info("WAL checkpoint result",
		"busy", busy,
		"log_frames", logFrames,
		"checkpointed_frames", checkpointed,
	)

	if busy != 0 {
		return fmt.Errorf("checkpoint blocked by reader (busy=%d)", busy)
	}
	if logFrames > 0 && checkpointed < logFrames {
		return fmt.Errorf("incomplete checkpoint: %d/%d frames", checkpointed, logFrames)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if err := s.Checkpoint(); err != nil {
		s.logger.Warn("failed to checkpoint WAL before close", "error", err)
	}
	return s.db.Close()
}
