package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/realcamp/guidebot/internal/catalog"
)

func TestSystemWithoutContext(t *testing.T) {
	got := System(ContextParams{})

	assert.Contains(t, got, "НейроВалюша")
	assert.NotContains(t, got, "Текущий контекст")
}

func TestSystemAppendsContextSection(t *testing.T) {
	got := System(ContextParams{
		CurrentCategory: "Спорт",
		CurrentBadge:    "Бегун",
		UserLevel:       "beginner",
		UserInterests:   []string{"спорт", "природа"},
		CurrentView:     "badge",
		CurrentLevel:    "продвинутый",
		LevelTitle:      "Бегун-марафонец",
	})

	assert.Contains(t, got, "## Текущий контекст:")
	assert.Contains(t, got, "категорию: Спорт")
	assert.Contains(t, got, "значком: Бегун")
	assert.Contains(t, got, "Интересы пользователя: спорт, природа")
	assert.Contains(t, got, "Выбранный уровень значка: продвинутый (Бегун-марафонец)")
	assert.False(t, strings.HasSuffix(got, "\n"), "trailing newline should be trimmed")
}

func TestContextSummary(t *testing.T) {
	assert.Empty(t, ContextSummary("", "", nil, ""))

	got := ContextSummary("Спорт", "Бегун", []string{"спорт"}, "beginner")
	assert.Equal(t,
		"Контекст пользователя: Текущая категория: Спорт; Текущий значок: Бегун; Интересы: спорт; Уровень: beginner",
		got)
}

func TestBadgeInfo(t *testing.T) {
	badge := &catalog.Badge{
		ID:          "11.3",
		Title:       "Бегун",
		Emoji:       "🏃",
		Description: "Бег, спорт и выносливость",
		SkillTips:   "Начни с коротких дистанций",
		Examples:    catalog.Examples{"утренняя пробежка", "эстафета"},
		Levels: []catalog.BadgeLevel{
			{ID: "11.3.1", Level: "базовый", Title: "Бегун", Emoji: "🏃", Criteria: strings.Repeat("а", 120)},
		},
	}

	got := BadgeInfo(badge)

	assert.Contains(t, got, "🏃 Бегун")
	assert.Contains(t, got, "Описание: Бег, спорт и выносливость")
	assert.Contains(t, got, "Советы: Начни с коротких дистанций")
	assert.Contains(t, got, "Примеры: утренняя пробежка; эстафета")
	// длинные критерии уровня обрезаются до 100 рун
	assert.Contains(t, got, strings.Repeat("а", 100)+"…")
	assert.NotContains(t, got, strings.Repeat("а", 101))
}

func TestBadgeLevels(t *testing.T) {
	badge := &catalog.Badge{
		Title: "Бегун",
		Emoji: "🏃",
		Levels: []catalog.BadgeLevel{
			{Level: "базовый", Emoji: "🏃", Title: "Бегун", Criteria: "Пробежать 1 км", Confirmation: "Фото"},
			{Level: "продвинутый", Emoji: "🏃", Title: "Бегун", Criteria: "Пробежать 5 км", Confirmation: "Трек"},
		},
	}

	got := BadgeLevels(badge)

	assert.Contains(t, got, "Объясни все уровни значка '🏃 Бегун'")
	assert.Contains(t, got, "базовый уровень")
	assert.Contains(t, got, "Критерии: Пробежать 5 км")
}

func TestCreativeIdeasOptionalContext(t *testing.T) {
	withCtx := CreativeIdeas("info", "интересы: спорт")
	assert.Contains(t, withCtx, "Контекст пользователя: интересы: спорт")

	withoutCtx := CreativeIdeas("info", "")
	assert.NotContains(t, withoutCtx, "Контекст пользователя")
}

func TestPhilosophyCategoryFallsBackToTitle(t *testing.T) {
	got := PhilosophyCategory(&catalog.Category{ID: "11", Title: "Спорт"})
	assert.Contains(t, got, "категория 11")
	assert.Contains(t, got, "Спорт")
}
