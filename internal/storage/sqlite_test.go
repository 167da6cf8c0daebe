package storage

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*SQLiteStore, func()) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	// Use in-memory SQLite database for testing
	store, err := NewSQLiteStore(logger, ":memory:", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	cleanup := func() {
		store.Close()
	}

	return store, cleanup
}

func TestGetOrCreate(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := store.GetOrCreate("user_1")
	require.NotNil(t, ctx)
	assert.Equal(t, "user_1", ctx.UserID)
	assert.Equal(t, LevelBeginner, ctx.Level)
	assert.Empty(t, ctx.CurrentBadge)

	// Same pointer on repeat access
	again := store.GetOrCreate("user_1")
	assert.Same(t, ctx, again)
}

func TestSaveAndReload(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(logger, path, 0)
	require.NoError(t, err)
	require.NoError(t, store.Init())

	ctx := store.GetOrCreate("user_1")
	ctx.CurrentCategory = "7"
	ctx.CurrentBadge = "7.1"
	ctx.AddInterest("творчество")
	ctx.Level = LevelAdvanced
	ctx.Screen.View = "badge"
	require.NoError(t, store.Save(ctx))
	require.NoError(t, store.Close())

	// Fresh store against the same file must rehydrate the record
	store, err = NewSQLiteStore(logger, path, 0)
	require.NoError(t, err)
	require.NoError(t, store.Init())
	require.NoError(t, store.LoadAll())
	defer store.Close()

	reloaded := store.GetOrCreate("user_1")
	assert.Equal(t, "7", reloaded.CurrentCategory)
	assert.Equal(t, "7.1", reloaded.CurrentBadge)
	assert.Equal(t, []string{"творчество"}, reloaded.Interests)
	assert.Equal(t, LevelAdvanced, reloaded.Level)
	assert.Equal(t, "badge", reloaded.Screen.View)
}

func TestLoadAllSkipsMalformedRecords(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(logger, path, 0)
	require.NoError(t, err)
	require.NoError(t, store.Init())

	good := store.GetOrCreate("good")
	require.NoError(t, store.Save(good))
	_, err = store.db.Exec("INSERT INTO contexts (user_id, data) VALUES ('bad', 'not json')")
	require.NoError(t, err)
	_, err = store.db.Exec("INSERT INTO conversations (user_id, data) VALUES ('bad', '{broken')")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(logger, path, 0)
	require.NoError(t, err)
	require.NoError(t, store.Init())
	// Malformed rows must not fail startup
	require.NoError(t, store.LoadAll())
	defer store.Close()

	assert.Equal(t, "good", store.GetOrCreate("good").UserID)
	assert.Equal(t, LevelBeginner, store.GetOrCreate("bad").Level)
}

func TestLoadAllEmptyDatabase(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	assert.NoError(t, store.LoadAll())
}

func TestAppendMessageTruncation(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	for i := 0; i < DefaultHistoryLimit+7; i++ {
		err := store.AppendMessage("user_1", Message{Role: "user", Content: fmt.Sprintf("msg %d", i)})
		require.NoError(t, err)
	}

	history := store.History("user_1")
	require.Len(t, history, DefaultHistoryLimit)
	// Oldest messages evicted first
	assert.Equal(t, "msg 7", history[0].Content)
	assert.Equal(t, fmt.Sprintf("msg %d", DefaultHistoryLimit+6), history[len(history)-1].Content)
}

func TestConversationPersistsContextSnapshot(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(logger, path, 0)
	require.NoError(t, err)
	require.NoError(t, store.Init())

	ctx := store.GetOrCreate("user_1")
	ctx.CurrentBadge = "11.3"
	require.NoError(t, store.Save(ctx))
	require.NoError(t, store.AppendMessage("user_1", Message{Role: "user", Content: "привет"}))
	require.NoError(t, store.AppendMessage("user_1", Message{Role: "assistant", Content: "Привет! 👋"}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(logger, path, 0)
	require.NoError(t, err)
	require.NoError(t, store.Init())
	require.NoError(t, store.LoadAll())
	defer store.Close()

	history := store.History("user_1")
	require.Len(t, history, 2)
	assert.Equal(t, "привет", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestHistoryUnknownUser(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	assert.Empty(t, store.History("nobody"))
}

func TestAddInterestDeduplicates(t *testing.T) {
	ctx := NewUserContext("u")
	assert.True(t, ctx.AddInterest("спорт"))
	assert.False(t, ctx.AddInterest("спорт"))
	assert.True(t, ctx.AddInterest("наука"))
	assert.Equal(t, []string{"спорт", "наука"}, ctx.Interests)
	assert.True(t, ctx.HasInterest("спорт"))
	assert.False(t, ctx.HasInterest("природа"))
}
