package dialog

import (
	"context"
	"fmt"
	"strings"

	"github.com/realcamp/guidebot/internal/catalog"
	"github.com/realcamp/guidebot/internal/completion"
	"github.com/realcamp/guidebot/internal/prompts"
	"github.com/realcamp/guidebot/internal/storage"
)

// contextParams maps the fused user context onto prompt parameters.
func contextParams(userCtx *storage.UserContext) prompts.ContextParams {
	return prompts.ContextParams{
		CurrentCategory: userCtx.CurrentCategory,
		CurrentBadge:    userCtx.CurrentBadge,
		UserLevel:       string(userCtx.Level),
		UserInterests:   userCtx.Interests,
		CurrentView:     userCtx.Screen.View,
		CurrentLevel:    userCtx.Screen.LevelLabel,
		LevelTitle:      userCtx.Screen.LevelTitle,
	}
}

func (o *Orchestrator) contextSummary(userCtx *storage.UserContext) string {
	return prompts.ContextSummary(
		userCtx.CurrentCategory,
		userCtx.CurrentBadge,
		userCtx.Interests,
		string(userCtx.Level),
	)
}

func (o *Orchestrator) complete(ctx context.Context, userCtx *storage.UserContext, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error) {
	return o.completion.Complete(ctx, completion.Request{
		SystemPrompt:   systemPrompt,
		ContextSummary: o.contextSummary(userCtx),
		Messages:       []completion.ChatMessage{{Role: "user", Content: userPrompt}},
		MaxTokens:      maxTokens,
		Temperature:    temperature,
	})
}

func (o *Orchestrator) guidance(key string, args ...interface{}) string {
	return o.translator.Get(o.opts.Language, key, args...)
}

func (o *Orchestrator) handleBadgeExplanation(ctx context.Context, userCtx *storage.UserContext) (string, error) {
	if userCtx.CurrentBadge == "" {
		return o.guidance("guidance.no_badge"), nil
	}
	badge := o.resolveBadge(userCtx)
	if badge == nil {
		return o.guidance("guidance.badge_not_found"), nil
	}

	params := contextParams(userCtx)
	params.CurrentBadge = badge.Title
	return o.complete(ctx, userCtx,
		prompts.System(params),
		prompts.BadgeExplanation(prompts.BadgeInfo(badge)),
		800, 0.65)
}

func (o *Orchestrator) handleCreativeIdeas(ctx context.Context, userCtx *storage.UserContext) (string, error) {
	if userCtx.CurrentBadge == "" {
		return o.guidance("guidance.no_badge_ideas"), nil
	}
	badge := o.resolveBadge(userCtx)
	if badge == nil {
		return o.guidance("guidance.badge_not_found"), nil
	}

	userSummary := fmt.Sprintf("Интересы: %s, Уровень: %s",
		strings.Join(userCtx.Interests, ", "), userCtx.Level)

	params := contextParams(userCtx)
	params.CurrentBadge = badge.Title
	return o.complete(ctx, userCtx,
		prompts.System(params),
		prompts.CreativeIdeas(prompts.BadgeInfo(badge), userSummary),
		700, 0.75)
}

func (o *Orchestrator) handleBadgeLevelExplanation(ctx context.Context, userCtx *storage.UserContext) (string, error) {
	if userCtx.CurrentBadge == "" {
		return o.guidance("guidance.no_badge_level"), nil
	}
	badge := o.resolveBadge(userCtx)
	if badge == nil {
		return o.guidance("guidance.badge_not_found"), nil
	}

	levelLabel := userCtx.Screen.LevelLabel
	if levelLabel == "" {
		return o.guidance("guidance.no_level"), nil
	}

	var level *catalog.BadgeLevel
	for i := range badge.Levels {
		if badge.Levels[i].Level == levelLabel {
			level = &badge.Levels[i]
			break
		}
	}
	if level == nil {
		return o.guidance("guidance.level_not_found", levelLabel, badge.Title), nil
	}

	levelTitle := userCtx.Screen.LevelTitle
	if levelTitle == "" {
		levelTitle = level.Title
	}

	params := contextParams(userCtx)
	params.CurrentBadge = levelTitle
	return o.complete(ctx, userCtx,
		prompts.System(params),
		prompts.BadgeLevel(levelTitle, levelLabel, level.Criteria, level.Confirmation),
		800, 0.65)
}

func (o *Orchestrator) handleBadgeLevelsExplanation(ctx context.Context, userCtx *storage.UserContext) (string, error) {
	if userCtx.CurrentBadge == "" {
		return o.guidance("guidance.no_badge_levels"), nil
	}
	badge := o.resolveBadge(userCtx)
	if badge == nil {
		return o.guidance("guidance.badge_not_found"), nil
	}
	if len(badge.Levels) == 0 {
		return o.guidance("guidance.no_levels", badge.Title), nil
	}

	params := contextParams(userCtx)
	params.CurrentBadge = badge.Title
	return o.complete(ctx, userCtx,
		prompts.System(params),
		prompts.BadgeLevels(badge),
		900, 0.65)
}

func (o *Orchestrator) handleRecommendations(ctx context.Context, userCtx *storage.UserContext) (string, error) {
	candidates := o.scorer.Recommend(userCtx, DefaultRecommendationLimit)

	if len(candidates) == 0 {
		return o.complete(ctx, userCtx,
			prompts.System(contextParams(userCtx)),
			prompts.RecommendationsEmpty,
			o.opts.DefaultMaxTokens, o.opts.DefaultTemperature)
	}

	var b strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&b, "\n%s %s: %s\nПричина рекомендации: %s\n",
			c.Badge.Emoji, c.Badge.Title, c.Badge.Description, c.Reason)
	}

	return o.complete(ctx, userCtx,
		prompts.System(contextParams(userCtx)),
		prompts.Recommendations(b.String()),
		o.opts.DefaultMaxTokens, o.opts.DefaultTemperature)
}

func (o *Orchestrator) handleCategoryInfo(ctx context.Context, userCtx *storage.UserContext) (string, error) {
	if userCtx.CurrentCategory == "" {
		return o.guidance("guidance.no_category"), nil
	}
	category := o.catalog.GetCategory(userCtx.CurrentCategory)
	if category == nil {
		return o.guidance("guidance.category_not_found"), nil
	}

	params := contextParams(userCtx)
	return o.complete(ctx, userCtx,
		prompts.System(params),
		prompts.CategoryInfo(category, o.catalog.CategoryContext(category.ID)),
		700, 0.65)
}

func (o *Orchestrator) handlePhilosophy(ctx context.Context, userCtx *storage.UserContext) (string, error) {
	if userCtx.Screen.View == ViewIntro {
		return o.complete(ctx, userCtx,
			prompts.System(contextParams(userCtx)),
			prompts.PhilosophyIntro(),
			400, 0.6)
	}

	if userCtx.CurrentCategory != "" {
		if category := o.catalog.GetCategory(userCtx.CurrentCategory); category != nil {
			return o.complete(ctx, userCtx,
				prompts.System(contextParams(userCtx)),
				prompts.PhilosophyCategory(category),
				400, 0.6)
		}
	}

	return prompts.PhilosophyFallback, nil
}

// handleWhereAmI builds a deterministic summary of the user's position
// purely from screen state and catalog lookups. No completion call.
func (o *Orchestrator) handleWhereAmI(userCtx *storage.UserContext) string {
	lang := o.opts.Language

	view := userCtx.Screen.View
	if view == "" {
		view = "chat"
	}
	viewName := o.translator.Get(lang, "where.view."+view)
	if viewName == "where.view."+view {
		// Незнакомый экран показываем как есть
		viewName = view
	}

	parts := []string{o.translator.Get(lang, "where.screen", viewName)}

	if userCtx.CurrentCategory != "" {
		if category := o.catalog.GetCategory(userCtx.CurrentCategory); category != nil {
			parts = append(parts, o.translator.Get(lang, "where.category", category.Emoji, category.Title))
		}
	}

	if userCtx.CurrentBadge != "" {
		if badge := o.resolveBadge(userCtx); badge != nil {
			parts = append(parts, o.translator.Get(lang, "where.badge", badge.Emoji, badge.Title))
		}
	}

	if label := userCtx.Screen.LevelLabel; label != "" {
		if title := userCtx.Screen.LevelTitle; title != "" {
			parts = append(parts, o.translator.Get(lang, "where.level_with_title", label, title))
		} else {
			parts = append(parts, o.translator.Get(lang, "where.level", label))
		}
	}

	var tips []string
	switch {
	case view == ViewIntro || view == "about-camp":
		tips = append(tips, o.translator.Get(lang, "where.tip.intro"))
	case userCtx.CurrentCategory != "" && (view == ViewCategory || view == ViewCategories):
		tips = append(tips, o.translator.Get(lang, "where.tip.category"))
	case userCtx.CurrentBadge != "" && (view == ViewBadge || view == ViewBadgeLevel):
		tips = append(tips, o.translator.Get(lang, "where.tip.badge"))
	case view == "registration-form":
		tips = append(tips, o.translator.Get(lang, "where.tip.registration"))
	}
	if len(tips) > 0 {
		parts = append(parts, o.translator.Get(lang, "where.tip_prefix")+strings.Join(tips, " "))
	}

	return strings.Join(parts, "\n")
}

func (o *Orchestrator) handleGeneral(ctx context.Context, userCtx *storage.UserContext, message string) (string, error) {
	history := o.store.History(userCtx.UserID)
	if len(history) > historyTailSize {
		history = history[len(history)-historyTailSize:]
	}

	messages := make([]completion.ChatMessage, 0, len(history)+1)
	for _, msg := range history {
		messages = append(messages, completion.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, completion.ChatMessage{Role: "user", Content: message})

	return o.completion.Complete(ctx, completion.Request{
		SystemPrompt:   prompts.System(contextParams(userCtx)),
		ContextSummary: o.contextSummary(userCtx),
		Messages:       messages,
		MaxTokens:      o.opts.DefaultMaxTokens,
		Temperature:    o.opts.DefaultTemperature,
	})
}
