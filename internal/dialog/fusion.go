package dialog

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/realcamp/guidebot/internal/catalog"
	"github.com/realcamp/guidebot/internal/storage"
)

// NormalizeBadgeID truncates a level identifier (three or more dotted
// segments) to its base badge form of two segments. Already-normalized ids
// pass through unchanged, so the function is idempotent.
func NormalizeBadgeID(id string) string {
	parts := strings.Split(id, ".")
	if len(parts) <= 2 {
		return id
	}
	return parts[0] + "." + parts[1]
}

// interestRule maps message keywords to a tracked interest tag.
type interestRule struct {
	tag      string
	keywords []string
}

// Scan order is fixed, tags come from the product's interest taxonomy.
var interestRules = []interestRule{
	{"творчество", []string{"творчество", "рисование", "музыка", "танцы", "театр"}},
	{"спорт", []string{"спорт", "бег", "футбол", "плавание", "фитнес"}},
	{"наука", []string{"наука", "эксперименты", "математика", "физика", "химия"}},
	{"природа", []string{"природа", "экология", "животные", "растения", "лес"}},
	{"технологии", []string{"технологии", "программирование", "роботы", "компьютеры"}},
	{"общение", []string{"общение", "дружба", "команда", "лидерство", "помощь"}},
}

// levelRule moves the user's level on a keyword trigger. The last matching
// rule in scan order wins.
type levelRule struct {
	level    storage.Level
	keywords []string
}

var levelRules = []levelRule{
	{storage.LevelBeginner, []string{"новичок", "начинающий", "первый раз"}},
	{storage.LevelAdvanced, []string{"опытный", "продвинутый", "уже делал"}},
	{storage.LevelExpert, []string{"эксперт", "мастер", "профессионал"}},
}

// Fusion merges the authoritative client screen state with signals mined
// from message text into the single per-turn UserContext.
type Fusion struct {
	logger  *slog.Logger
	store   storage.Store
	catalog *catalog.Repository
}

func NewFusion(logger *slog.Logger, store storage.Store, cat *catalog.Repository) *Fusion {
	return &Fusion{
		logger:  logger.With("component", "fusion"),
		store:   store,
		catalog: cat,
	}
}

// ApplyWebContext folds the client-supplied screen state into the user's
// context. Explicit client state always wins: a payload without a badge
// clears the current badge, and a payload without badge and category clears
// both, so navigating away from an entity never leaves it sticky.
func (f *Fusion) ApplyWebContext(userID string, web *WebContext) (*storage.UserContext, error) {
	ctx := f.store.GetOrCreate(userID)

	if web.CurrentCategory != nil {
		ctx.CurrentCategory = web.CurrentCategory.ID
	}

	if web.CurrentBadge != nil {
		ctx.CurrentBadge = NormalizeBadgeID(web.CurrentBadge.ID)
		// Badge wins over category on conflict
		if web.CurrentBadge.CategoryID != "" {
			ctx.CurrentCategory = web.CurrentBadge.CategoryID
		}
	} else {
		ctx.CurrentBadge = ""
		if web.CurrentCategory == nil {
			ctx.CurrentCategory = ""
		}
	}

	ctx.Screen = storage.ScreenState{
		View:             web.CurrentView,
		CategorySnapshot: web.CurrentCategory,
		BadgeSnapshot:    web.CurrentBadge,
		LevelLabel:       web.CurrentLevel,
		LevelTitle:       web.CurrentLevelBadgeTitle,
	}

	if err := f.store.Save(ctx); err != nil {
		return ctx, err
	}

	f.logger.Debug("Applied web context",
		"user_id", userID,
		"view", ctx.Screen.View,
		"category", ctx.CurrentCategory,
		"badge", ctx.CurrentBadge,
	)
	return ctx, nil
}

// DetectFromMessage opportunistically fills context fields the web context
// left unset, using heuristic matches against the catalog and fixed keyword
// tables. Detection never fails: an unmatched message leaves fields
// unchanged. The updated context is persisted before returning.
func (f *Fusion) DetectFromMessage(userID, message string) *storage.UserContext {
	ctx := f.store.GetOrCreate(userID)
	messageLower := strings.ToLower(message)

	if ctx.CurrentCategory == "" {
		for _, category := range f.catalog.Categories() {
			if matchesEntity(message, messageLower, category.Title, category.Emoji, "категория "+category.ID) {
				ctx.CurrentCategory = category.ID
				break
			}
		}
	}

	if ctx.CurrentBadge == "" {
		for _, badge := range f.catalog.AllBadges() {
			if matchesEntity(message, messageLower, badge.Title, badge.Emoji, "значок "+badge.ID) {
				ctx.CurrentBadge = badge.ID
				if ctx.CurrentCategory == "" {
					ctx.CurrentCategory = badge.CategoryID
				}
				break
			}
		}
	}

	for _, rule := range interestRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(messageLower, keyword) {
				ctx.AddInterest(rule.tag)
				break
			}
		}
	}

	for _, rule := range levelRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(messageLower, keyword) {
				ctx.Level = rule.level
				break
			}
		}
	}

	if err := f.store.Save(ctx); err != nil {
		f.logger.Warn("Failed to persist detected context", "user_id", userID, "error", err)
	}

	return ctx
}

// matchesEntity reports whether the message refers to a catalog entity:
// the title as a standalone token, the entity's emoji, or an explicit
// "категория/значок <id>" phrase.
func matchesEntity(message, messageLower, title, emoji, idPhrase string) bool {
	titleLower := strings.ToLower(title)
	if titleLower != "" && containsToken(messageLower, titleLower) {
		return true
	}
	if emoji != "" && strings.Contains(message, emoji) {
		return true
	}
	return strings.Contains(messageLower, idPhrase)
}

// containsToken reports whether needle occurs in haystack bounded by
// non-letter runes, so "бегун" does not match inside "перебегунов".
func containsToken(haystack, needle string) bool {
	for start := 0; ; {
		idx := strings.Index(haystack[start:], needle)
		if idx < 0 {
			return false
		}
		idx += start

		before := rune(0)
		if idx > 0 {
			runes := []rune(haystack[:idx])
			before = runes[len(runes)-1]
		}
		after := rune(0)
		if rest := haystack[idx+len(needle):]; rest != "" {
			after = []rune(rest)[0]
		}

		if !unicode.IsLetter(before) && !unicode.IsLetter(after) {
			return true
		}
		start = idx + len(needle)
	}
}
