package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realcamp/guidebot/internal/storage"
	"github.com/realcamp/guidebot/internal/testutil"
)

func newTestFusion(t *testing.T) (*Fusion, storage.Store) {
	t.Helper()
	store := testutil.TestStore(t)
	return NewFusion(testutil.TestLogger(), store, testutil.TestCatalog(t)), store
}

func TestNormalizeBadgeID(t *testing.T) {
	assert.Equal(t, "11.3", NormalizeBadgeID("11.3.2"))
	assert.Equal(t, "11.3", NormalizeBadgeID("11.3"))
	assert.Equal(t, "11.3", NormalizeBadgeID("11.3.2.9"))
	assert.Equal(t, "7", NormalizeBadgeID("7"))
	// Idempotent
	assert.Equal(t, NormalizeBadgeID("11.3.2"), NormalizeBadgeID(NormalizeBadgeID("11.3.2")))
}

func TestApplyWebContextBadgeWins(t *testing.T) {
	fusion, _ := newTestFusion(t)

	ctx, err := fusion.ApplyWebContext(testutil.TestUserID, &WebContext{
		CurrentView:     ViewBadge,
		CurrentCategory: &storage.EntitySnapshot{ID: "7", Title: "Творчество"},
		CurrentBadge:    &storage.EntitySnapshot{ID: "11.3.2", Title: "Бегун", CategoryID: "11"},
	})
	require.NoError(t, err)

	// Уровневый id нормализуется, категория берётся от значка
	assert.Equal(t, "11.3", ctx.CurrentBadge)
	assert.Equal(t, "11", ctx.CurrentCategory)
	assert.Equal(t, ViewBadge, ctx.Screen.View)
	require.NotNil(t, ctx.Screen.BadgeSnapshot)
	assert.Equal(t, "11.3.2", ctx.Screen.BadgeSnapshot.ID)
}

func TestApplyWebContextClearsStaleEntities(t *testing.T) {
	fusion, _ := newTestFusion(t)

	_, err := fusion.ApplyWebContext(testutil.TestUserID, &WebContext{
		CurrentView:  ViewBadge,
		CurrentBadge: &storage.EntitySnapshot{ID: "11.3", CategoryID: "11"},
	})
	require.NoError(t, err)

	// Payload without a badge clears the badge, category stays if supplied
	ctx, err := fusion.ApplyWebContext(testutil.TestUserID, &WebContext{
		CurrentView:     ViewCategory,
		CurrentCategory: &storage.EntitySnapshot{ID: "7"},
	})
	require.NoError(t, err)
	assert.Empty(t, ctx.CurrentBadge)
	assert.Equal(t, "7", ctx.CurrentCategory)

	// Payload without badge and category clears both
	ctx, err = fusion.ApplyWebContext(testutil.TestUserID, &WebContext{CurrentView: ViewIntro})
	require.NoError(t, err)
	assert.Empty(t, ctx.CurrentBadge)
	assert.Empty(t, ctx.CurrentCategory)
}

func TestApplyWebContextPersists(t *testing.T) {
	fusion, store := newTestFusion(t)

	_, err := fusion.ApplyWebContext(testutil.TestUserID, &WebContext{
		CurrentView:            ViewBadgeLevel,
		CurrentBadge:           &storage.EntitySnapshot{ID: "11.3", CategoryID: "11"},
		CurrentLevel:           "продвинутый",
		CurrentLevelBadgeTitle: "Бегун-марафонец",
	})
	require.NoError(t, err)

	ctx := store.GetOrCreate(testutil.TestUserID)
	assert.Equal(t, "продвинутый", ctx.Screen.LevelLabel)
	assert.Equal(t, "Бегун-марафонец", ctx.Screen.LevelTitle)
}

func TestDetectCategoryFromMessage(t *testing.T) {
	fusion, _ := newTestFusion(t)

	ctx := fusion.DetectFromMessage(testutil.TestUserID, "Расскажи про творчество")
	assert.Equal(t, "7", ctx.CurrentCategory)
}

func TestDetectCategoryByExplicitID(t *testing.T) {
	fusion, _ := newTestFusion(t)

	ctx := fusion.DetectFromMessage(testutil.TestUserID, "Что есть в категория 11?")
	assert.Equal(t, "11", ctx.CurrentCategory)
}

func TestDetectBadgeInheritsCategory(t *testing.T) {
	fusion, _ := newTestFusion(t)

	ctx := fusion.DetectFromMessage(testutil.TestUserID, "Хочу значок Бегун")
	assert.Equal(t, "11.3", ctx.CurrentBadge)
	assert.Equal(t, "11", ctx.CurrentCategory)
}

func TestDetectBadgeByEmoji(t *testing.T) {
	fusion, _ := newTestFusion(t)

	ctx := fusion.DetectFromMessage(testutil.TestUserID, "Расскажи про 🏊")
	assert.Equal(t, "11.4", ctx.CurrentBadge)
}

func TestDetectDoesNotOverrideWebContext(t *testing.T) {
	fusion, _ := newTestFusion(t)

	_, err := fusion.ApplyWebContext(testutil.TestUserID, &WebContext{
		CurrentView:  ViewBadge,
		CurrentBadge: &storage.EntitySnapshot{ID: "7.1", CategoryID: "7"},
	})
	require.NoError(t, err)

	// Сообщение упоминает другой значок, но экранный контекст авторитетен
	ctx := fusion.DetectFromMessage(testutil.TestUserID, "А что там Бегун?")
	assert.Equal(t, "7.1", ctx.CurrentBadge)
	assert.Equal(t, "7", ctx.CurrentCategory)
}

func TestDetectInterests(t *testing.T) {
	fusion, _ := newTestFusion(t)

	ctx := fusion.DetectFromMessage(testutil.TestUserID, "Люблю рисование и футбол")
	assert.Contains(t, ctx.Interests, "творчество")
	assert.Contains(t, ctx.Interests, "спорт")

	// Повторное упоминание не дублирует тег
	ctx = fusion.DetectFromMessage(testutil.TestUserID, "Ещё раз про рисование")
	count := 0
	for _, tag := range ctx.Interests {
		if tag == "творчество" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestDetectLevelLastRuleWins(t *testing.T) {
	fusion, _ := newTestFusion(t)

	ctx := fusion.DetectFromMessage(testutil.TestUserID, "я новичок")
	assert.Equal(t, storage.LevelBeginner, ctx.Level)

	ctx = fusion.DetectFromMessage(testutil.TestUserID, "вообще-то я опытный")
	assert.Equal(t, storage.LevelAdvanced, ctx.Level)

	// При совпадении нескольких правил побеждает последнее по порядку таблицы
	ctx = fusion.DetectFromMessage(testutil.TestUserID, "опытный, даже мастер")
	assert.Equal(t, storage.LevelExpert, ctx.Level)
}

func TestDetectUnmatchedMessageLeavesContext(t *testing.T) {
	fusion, _ := newTestFusion(t)

	ctx := fusion.DetectFromMessage(testutil.TestUserID, "привет!")
	assert.Empty(t, ctx.CurrentBadge)
	assert.Empty(t, ctx.CurrentCategory)
	assert.Empty(t, ctx.Interests)
	assert.Equal(t, storage.LevelBeginner, ctx.Level)
}

func TestContainsToken(t *testing.T) {
	assert.True(t, containsToken("хочу значок бегун", "бегун"))
	assert.True(t, containsToken("бегун!", "бегун"))
	assert.False(t, containsToken("перебегунов тут нет", "бегун"))
}
