package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/realcamp/guidebot/internal/catalog"
)

// TestUserID is the default user ID for tests.
const TestUserID = "user-123"

// WriteCatalogFixture writes a small two-category badge catalog into a temp
// directory and returns its path.
//
// Layout: category 7 "Творчество" with badge 7.1 "Художник" (one level),
// category 11 "Спорт" with 11.3 "Бегун" (three levels) and 11.4 "Пловец"
// (no levels).
func WriteCatalogFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	master := `{
		"project": "Путеводитель",
		"version": "1.0",
		"totalCategories": 2,
		"totalBadges": 3,
		"categories": [
			{"id": "7", "title": "Творчество", "emoji": "🎨", "path": "category-7"},
			{"id": "11", "title": "Спорт", "emoji": "⚽", "path": "category-11"}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MASTER_INDEX.json"), []byte(master), 0o644))

	cat7 := filepath.Join(dir, "category-7")
	require.NoError(t, os.MkdirAll(cat7, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cat7, "index.json"),
		[]byte(`{"badges": [{"id": "7.1"}]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cat7, "introduction.md"),
		[]byte("# Творчество\nЗначки про искусство и самовыражение."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cat7, "7.1.json"), []byte(`{
		"id": "7.1", "title": "Художник", "emoji": "🖌️", "categoryId": "7",
		"description": "Рисование и творчество",
		"levels": [
			{"id": "7.1.1", "level": "базовый", "title": "Художник-новичок", "emoji": "🖍️", "criteria": "Нарисовать 3 рисунка", "confirmation": "Показать вожатому"}
		]
	}`), 0o644))

	cat11 := filepath.Join(dir, "category-11")
	require.NoError(t, os.MkdirAll(cat11, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cat11, "index.json"),
		[]byte(`{"badges": [{"id": "11.3"}, {"id": "11.4"}]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cat11, "11.3.json"), []byte(`{
		"id": "11.3", "title": "Бегун", "emoji": "🏃", "categoryId": "11",
		"description": "Бег, спорт и выносливость",
		"levels": [
			{"id": "11.3.1", "level": "базовый", "title": "Бегун-новичок", "emoji": "🏃", "criteria": "Пробежать 1 км", "confirmation": "Вожатый"},
			{"id": "11.3.2", "level": "продвинутый", "title": "Бегун-марафонец", "emoji": "🏅", "criteria": "Пробежать 5 км", "confirmation": "Вожатый"},
			{"id": "11.3.3", "level": "экспертный", "title": "Бегун-чемпион", "emoji": "🏆", "criteria": "Пробежать 10 км", "confirmation": "Вожатый"}
		]
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cat11, "11.4.json"), []byte(`{
		"id": "11.4", "title": "Пловец", "emoji": "🏊", "categoryId": "11",
		"description": "Плавание"
	}`), 0o644))

	return dir
}

// TestCatalog loads the fixture catalog.
func TestCatalog(t *testing.T) *catalog.Repository {
	t.Helper()
	repo := catalog.NewRepository(TestLogger(), WriteCatalogFixture(t))
	require.NoError(t, repo.Load())
	return repo
}
