package dialog

import "strings"

// Intent is the classified purpose of a user's message.
type Intent string

const (
	IntentBadgeExplanation       Intent = "badge_explanation"
	IntentBadgeLevelExplanation  Intent = "badge_level_explanation"
	IntentBadgeLevelsExplanation Intent = "badge_levels_explanation"
	IntentCreativeIdeas          Intent = "creative_ideas"
	IntentRecommendations        Intent = "recommendations"
	IntentCategoryInfo           Intent = "category_info"
	IntentPhilosophy             Intent = "philosophy"
	IntentWhereAmI               Intent = "where_am_i"
	IntentGeneral                Intent = "general"
)

// Screen names the client reports in WebContext.CurrentView.
const (
	ViewIntro        = "intro"
	ViewCategories   = "categories"
	ViewCategory     = "category"
	ViewBadge        = "badge"
	ViewBadgeLevel   = "badge-level"
	ViewIntroduction = "introduction"
)

// whereAmITriggers match "what screen is this" questions. They are checked
// before everything else: the user must always be able to ask where they
// are, whatever the screen.
var whereAmITriggers = []string{
	"где я", "где нахожусь", "где это я", "какой это экран",
	"что за экран", "что за страница", "на каком экране",
	"на какой странице", "где сейчас нахожусь", "что это за страница",
}

var (
	explainBadgeKeywords = []string{
		"что это за значок", "что за значок", "объясни", "расскажи", "что такое",
		"как получить", "что это",
	}
	explainLevelKeywords = []string{
		"что это за значок", "что за значок", "объясни", "расскажи", "что такое",
		"как получить", "критерии", "подтверждение", "что нужно", "что это",
	}
	explainShortKeywords = []string{"объясни", "расскажи", "что такое"}
	ideaKeywords         = []string{"идеи", "примеры", "варианты"}
	ideaGlobalKeywords   = []string{"идеи", "как сделать", "примеры", "варианты"}
	levelsKeywords       = []string{"уровни", "ступени", "базовый", "продвинутый", "экспертный"}
	recommendKeywords    = []string{"рекомендуй", "посоветуй", "что выбрать"}
	recommendGlobal      = []string{"рекомендуй", "посоветуй", "что выбрать", "подходящий"}
	philosophyKeywords   = []string{"философия", "зачем", "почему", "смысл"}
	introPhilosophy      = []string{
		"что это", "философия", "принципы", "зачем", "почему", "смысл",
		"награды", "награда", "медали", "медаль", "ачивки", "ачивка",
	}
	introCatalogKeywords = []string{"категории", "значки", "сколько", "список"}
	introductionKeywords = []string{"подробнее", "больше", "расскажи"}
)

// screenRule fires an intent when a keyword hits on a specific screen.
// Rules are evaluated top to bottom, first match wins.
type screenRule struct {
	view       string
	needsLevel bool
	keywords   []string
	intent     Intent
}

var screenRules = []screenRule{
	{ViewBadgeLevel, true, explainLevelKeywords, IntentBadgeLevelExplanation},
	{ViewBadgeLevel, true, ideaKeywords, IntentCreativeIdeas},
	{ViewBadge, false, explainBadgeKeywords, IntentBadgeExplanation},
	{ViewBadge, false, ideaKeywords, IntentCreativeIdeas},
	{ViewBadge, false, levelsKeywords, IntentBadgeLevelsExplanation},
	{ViewCategory, false, explainShortKeywords, IntentCategoryInfo},
	{ViewCategory, false, recommendKeywords, IntentRecommendations},
	{ViewCategory, false, philosophyKeywords, IntentPhilosophy},
	{ViewIntro, false, introPhilosophy, IntentPhilosophy},
	{ViewIntro, false, introCatalogKeywords, IntentCategoryInfo},
	{ViewIntroduction, false, introductionKeywords, IntentCategoryInfo},
}

func containsAny(message string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	return false
}

// Classify maps one turn to exactly one intent. It is a pure function of
// (screen, message, entity presence): identical inputs always yield the
// identical intent, and ambiguity resolves to general by construction.
func Classify(view, message string, hasBadge, hasCategory, hasLevel bool) Intent {
	messageLower := strings.ToLower(message)

	if containsAny(messageLower, whereAmITriggers) {
		return IntentWhereAmI
	}

	for _, rule := range screenRules {
		if rule.view != view {
			continue
		}
		if rule.needsLevel && !hasLevel {
			continue
		}
		if containsAny(messageLower, rule.keywords) {
			return rule.intent
		}
	}

	// Global fallbacks, any screen
	if containsAny(messageLower, explainBadgeKeywords) {
		if hasBadge {
			return IntentBadgeExplanation
		}
		if hasCategory {
			return IntentCategoryInfo
		}
	}
	if containsAny(messageLower, ideaGlobalKeywords) {
		return IntentCreativeIdeas
	}
	if containsAny(messageLower, recommendGlobal) {
		return IntentRecommendations
	}
	if containsAny(messageLower, philosophyKeywords) {
		return IntentPhilosophy
	}

	return IntentGeneral
}
