package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/realcamp/guidebot/internal/i18n"
	"github.com/realcamp/guidebot/internal/storage"
)

// TestLogger returns a discarding logger for tests.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestStore returns an in-memory sqlite store, closed on test cleanup.
func TestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(TestLogger(), ":memory:", 0)
	require.NoError(t, err)
	require.NoError(t, store.Init())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// TestTranslator returns a translator over the embedded locales with the
// given default language.
func TestTranslator(t *testing.T, lang string) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewTranslator(lang)
	require.NoError(t, err)
	return tr
}
