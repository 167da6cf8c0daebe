// Package prompts собирает системные и пользовательские промпты для
// completion-сервиса. Тексты на русском, тон вожатого.
package prompts

import (
	"fmt"
	"strings"

	"github.com/realcamp/guidebot/internal/catalog"
)

const systemPrompt = `Ты — НейроВалюша, дружелюбная вожатая "Реального Лагеря" и проводник по системе значков.

Значки — это не награды за прошлое, а маршруты развития: каждый значок показывает направление, в котором можно расти. Твоя задача — помогать ребятам 8-17 лет разбираться в значках, уровнях и критериях, подсказывать идеи и мотивировать.

Правила ответов:
- Пиши простым и тёплым языком, обращайся на "ты".
- Отвечай кратко и по делу, без воды.
- Используй эмодзи умеренно, один-два на ответ.
- Не выдумывай значки и критерии, опирайся только на переданные данные.
- Если данных не хватает, честно скажи об этом и предложи открыть каталог.`

// ContextParams описывает текущий контекст пользователя для системного промпта.
type ContextParams struct {
	CurrentCategory string
	CurrentBadge    string
	UserLevel       string
	UserInterests   []string
	CurrentView     string
	CurrentLevel    string
	LevelTitle      string
}

// System возвращает системный промпт, дополненный секцией текущего контекста.
func System(p ContextParams) string {
	var parts []string

	if p.CurrentCategory != "" {
		parts = append(parts, "Пользователь сейчас изучает категорию: "+p.CurrentCategory)
	}
	if p.CurrentBadge != "" {
		parts = append(parts, "Пользователь интересуется значком: "+p.CurrentBadge)
	}
	if p.UserLevel != "" {
		parts = append(parts, "Уровень пользователя: "+p.UserLevel)
	}
	if len(p.UserInterests) > 0 {
		parts = append(parts, "Интересы пользователя: "+strings.Join(p.UserInterests, ", "))
	}
	if p.CurrentView != "" {
		parts = append(parts, "Пользователь находится на экране: "+p.CurrentView)
	}
	if p.CurrentLevel != "" {
		line := "Выбранный уровень значка: " + p.CurrentLevel
		if p.LevelTitle != "" {
			line += " (" + p.LevelTitle + ")"
		}
		parts = append(parts, line)
	}

	if len(parts) == 0 {
		return systemPrompt
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n## Текущий контекст:\n")
	for _, part := range parts {
		b.WriteString("- ")
		b.WriteString(part)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ContextSummary формирует краткую сводку контекста пользователя,
// передаётся вторым системным сообщением.
func ContextSummary(category, badge string, interests []string, level string) string {
	var parts []string
	if category != "" {
		parts = append(parts, "Текущая категория: "+category)
	}
	if badge != "" {
		parts = append(parts, "Текущий значок: "+badge)
	}
	if len(interests) > 0 {
		parts = append(parts, "Интересы: "+strings.Join(interests, ", "))
	}
	if level != "" {
		parts = append(parts, "Уровень: "+level)
	}
	if len(parts) == 0 {
		return ""
	}
	return "Контекст пользователя: " + strings.Join(parts, "; ")
}

// BadgeInfo форматирует данные значка для подстановки в промпт.
func BadgeInfo(b *catalog.Badge) string {
	parts := []string{
		fmt.Sprintf("%s %s", b.Emoji, b.Title),
		"Описание: " + b.Description,
	}

	if b.NameExplanation != "" {
		parts = append(parts, "Объяснение названия: "+b.NameExplanation)
	}
	if b.SkillTips != "" {
		parts = append(parts, "Советы: "+b.SkillTips)
	}
	if len(b.Examples) > 0 {
		parts = append(parts, "Примеры: "+strings.Join(b.Examples, "; "))
	}
	if b.Philosophy != "" {
		parts = append(parts, "Философия: "+b.Philosophy)
	}
	if b.HowToBecome != "" {
		parts = append(parts, "Как получить: "+b.HowToBecome)
	}

	if len(b.Levels) > 0 {
		var levels strings.Builder
		levels.WriteString("Уровни:")
		for _, level := range b.Levels {
			criteria := level.Criteria
			if len([]rune(criteria)) > 100 {
				criteria = string([]rune(criteria)[:100]) + "…"
			}
			levels.WriteString(fmt.Sprintf("\n- %s %s: %s", level.Emoji, level.Title, criteria))
		}
		parts = append(parts, levels.String())
	}

	return strings.Join(parts, "\n\n")
}

// BadgeExplanation строит промпт объяснения значка.
func BadgeExplanation(badgeInfo string) string {
	return fmt.Sprintf(`Объясни этот значок простыми и понятными словами:

%s

Твое объяснение должно:
- Быть понятным для детей и подростков
- Объяснять ЗАЧЕМ нужен этот навык в жизни
- Давать конкретные примеры применения
- Мотивировать на развитие
- Показывать связь с другими навыками

Используй дружелюбный тон и эмодзи! 🎯`, badgeInfo)
}

// CreativeIdeas строит промпт генерации идей для получения значка.
func CreativeIdeas(badgeInfo, userContext string) string {
	contextLine := ""
	if userContext != "" {
		contextLine = "\nКонтекст пользователя: " + userContext + "\n"
	}
	return fmt.Sprintf(`Придумай 3-5 креативных и практических идей для получения этого значка:

%s
%s
Идеи должны быть:
- Конкретными и выполнимыми
- Интересными и мотивирующими
- Подходящими для лагерной среды
- Учитывающими возраст 8-17 лет
- Связанными с реальной жизнью

Формат: каждая идея с новой строки, начинается с эмодзи и краткого описания.`, badgeInfo, contextLine)
}

// BadgeLevel строит промпт объяснения одного уровня значка.
func BadgeLevel(levelTitle, levelLabel, criteria, confirmation string) string {
	return fmt.Sprintf("Объясни значок '%s' (%s уровень). Критерии: %s. Способы подтверждения: %s",
		levelTitle, levelLabel, criteria, confirmation)
}

// BadgeLevels строит промпт объяснения всех уровней значка.
func BadgeLevels(badge *catalog.Badge) string {
	var levels strings.Builder
	for _, level := range badge.Levels {
		fmt.Fprintf(&levels, "\n%s уровень: %s %s\nКритерии: %s\nПодтверждение: %s\n",
			level.Level, level.Emoji, level.Title, level.Criteria, level.Confirmation)
	}
	return fmt.Sprintf("Объясни все уровни значка '%s %s':%s", badge.Emoji, badge.Title, levels.String())
}

// CategoryInfo строит промпт объяснения категории.
func CategoryInfo(category *catalog.Category, categoryContext string) string {
	return fmt.Sprintf("Объясни категорию '%s %s': %s", category.Emoji, category.Title, categoryContext)
}

// Recommendations строит промпт персонализированных рекомендаций.
func Recommendations(recommendationsText string) string {
	return "Дай персонализированные рекомендации значков на основе интересов пользователя:" + recommendationsText
}

// RecommendationsEmpty используется, когда данных для персонализации нет.
const RecommendationsEmpty = "Пользователь просит рекомендации, но у нас нет данных для персонализации"

// PhilosophyIntro строит промпт объяснения философии всей системы значков.
func PhilosophyIntro() string {
	return philosophy("система значков", `философия системы значков "Реального Лагеря"`)
}

// PhilosophyCategory строит промпт объяснения философии категории.
func PhilosophyCategory(category *catalog.Category) string {
	info := category.Introduction
	if info == "" {
		info = category.Title
	}
	return philosophy("категория "+category.ID, info)
}

func philosophy(subject, info string) string {
	return fmt.Sprintf(`Объясни философию (%s) простыми и понятными словами.

Информация:
%s

Объяснение должно быть:
- Понятным для детей и подростков
- Мотивирующим и вдохновляющим
- Практичным и применимым
- Использовать примеры из жизни
- Длиной 2-3 абзаца

Используй дружелюбный тон и эмодзи для лучшего восприятия.`, subject, info)
}

// PhilosophyFallback: детерминированный ответ о философии системы,
// используется когда нет ни экрана intro, ни выбранной категории.
const PhilosophyFallback = `🌟 Философия системы значков "Реального Лагеря"

Значки здесь — не награды, а маршруты развития! 🗺️

Каждый значок — это не медаль за прошлое, а маяк, освещающий направления твоего развития.

Главные принципы:
• 🎯 Опыт важнее награды: главная ценность в навыках, которые ты развиваешь
• 🧭 Ты выбираешь свой путь: значки помогают найти направление, но выбор за тобой
• 🌱 Развитие через практику: навыки развиваются только через реальное применение
• 🤝 Помощь другим: обучая других, ты лучше понимаешь материал

Помни: значки — это не цель, а средство стать лучшей версией себя! 💪

О какой категории или значке хочешь узнать больше? 😊`
