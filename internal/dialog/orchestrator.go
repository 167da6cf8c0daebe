package dialog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/realcamp/guidebot/internal/catalog"
	"github.com/realcamp/guidebot/internal/completion"
	"github.com/realcamp/guidebot/internal/i18n"
	"github.com/realcamp/guidebot/internal/markdown"
	"github.com/realcamp/guidebot/internal/storage"
)

// historyTailSize bounds how much conversation history goes into a
// completion request.
const historyTailSize = 10

// Options tune the orchestrator from bot configuration.
type Options struct {
	Language           string
	MaxSuggestions     int
	MaxResponseChars   int
	DefaultMaxTokens   int
	DefaultTemperature float64
}

// Orchestrator is the public entry point of the dialogue core: one call per
// chat turn, dispatching to the handler for the classified intent.
type Orchestrator struct {
	logger     *slog.Logger
	store      storage.Store
	catalog    *catalog.Repository
	completion completion.Client
	fusion     *Fusion
	scorer     *Scorer
	translator *i18n.Translator
	opts       Options
}

func NewOrchestrator(
	logger *slog.Logger,
	store storage.Store,
	cat *catalog.Repository,
	client completion.Client,
	fusion *Fusion,
	scorer *Scorer,
	translator *i18n.Translator,
	opts Options,
) *Orchestrator {
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = 5
	}
	return &Orchestrator{
		logger:     logger.With("component", "orchestrator"),
		store:      store,
		catalog:    cat,
		completion: client,
		fusion:     fusion,
		scorer:     scorer,
		translator: translator,
		opts:       opts,
	}
}

// GenerateResponse runs one chat turn end to end: apply web context, detect
// signals from the message, classify, dispatch, post-process, persist
// history. Completion-service failures degrade to an apology with
// Metadata.Error set; the turn itself never fails for that cause.
func (o *Orchestrator) GenerateResponse(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	startTime := time.Now()

	if req.Context != nil {
		if _, err := o.fusion.ApplyWebContext(req.UserID, req.Context); err != nil {
			o.logger.Warn("Failed to persist web context", "user_id", req.UserID, "error", err)
		}
	}

	userCtx := o.fusion.DetectFromMessage(req.UserID, req.Message)

	intent := Classify(
		userCtx.Screen.View,
		req.Message,
		userCtx.CurrentBadge != "",
		userCtx.CurrentCategory != "",
		userCtx.Screen.LevelLabel != "",
	)

	o.logger.Info("Processing chat turn",
		"user_id", req.UserID,
		"intent", intent,
		"view", userCtx.Screen.View,
		"badge", userCtx.CurrentBadge,
		"category", userCtx.CurrentCategory,
	)

	text, err := o.dispatch(ctx, intent, userCtx, req.Message)

	meta := Metadata{
		RequestType: string(intent),
		Timestamp:   time.Now(),
	}

	if err != nil {
		if !errors.Is(err, completion.ErrUnavailable) {
			return nil, err
		}
		o.logger.Warn("Completion unavailable, degrading turn",
			"user_id", req.UserID, "intent", intent, "error", err)
		RecordDegradedTurn(string(intent))
		text = o.translator.Get(o.opts.Language, "bot.api_error")
		meta.Error = err.Error()
	}

	text = markdown.Plain(text)
	text = collapseEmojiRuns(text)
	text = markdown.TruncateAtBoundary(text, o.opts.MaxResponseChars)

	suggestions := o.suggestions(userCtx)

	// История пишется только после того, как ответ уже вычислен
	o.appendHistory(req.UserID, req.Message, text, meta)

	RecordTurn(string(intent), meta.Error != "", time.Since(startTime).Seconds())

	return &ChatResponse{
		Response:       text,
		Suggestions:    suggestions,
		ContextUpdates: userCtx,
		Metadata:       meta,
	}, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, intent Intent, userCtx *storage.UserContext, message string) (string, error) {
	switch intent {
	case IntentBadgeExplanation:
		return o.handleBadgeExplanation(ctx, userCtx)
	case IntentBadgeLevelExplanation:
		return o.handleBadgeLevelExplanation(ctx, userCtx)
	case IntentBadgeLevelsExplanation:
		return o.handleBadgeLevelsExplanation(ctx, userCtx)
	case IntentCreativeIdeas:
		return o.handleCreativeIdeas(ctx, userCtx)
	case IntentRecommendations:
		return o.handleRecommendations(ctx, userCtx)
	case IntentCategoryInfo:
		return o.handleCategoryInfo(ctx, userCtx)
	case IntentPhilosophy:
		return o.handlePhilosophy(ctx, userCtx)
	case IntentWhereAmI:
		return o.handleWhereAmI(userCtx), nil
	default:
		return o.handleGeneral(ctx, userCtx, message)
	}
}

func (o *Orchestrator) appendHistory(userID, userMessage, response string, meta Metadata) {
	now := time.Now()

	userMsg := storage.Message{Role: "user", Content: userMessage, Timestamp: now}
	if err := o.store.AppendMessage(userID, userMsg); err != nil {
		o.logger.Warn("Failed to append user message", "user_id", userID, "error", err)
		return
	}

	assistantMsg := storage.Message{
		Role:      "assistant",
		Content:   response,
		Timestamp: now,
		Metadata:  map[string]string{"request_type": meta.RequestType},
	}
	if err := o.store.AppendMessage(userID, assistantMsg); err != nil {
		o.logger.Warn("Failed to append assistant message", "user_id", userID, "error", err)
	}
}

// suggestions builds up to MaxSuggestions follow-up prompts: entity-specific
// first, then catalog-wide generics.
func (o *Orchestrator) suggestions(userCtx *storage.UserContext) []string {
	lang := o.opts.Language
	var out []string

	if userCtx.CurrentBadge != "" {
		if badge := o.resolveBadge(userCtx); badge != nil {
			out = append(out,
				o.translator.Get(lang, "suggestions.badge.about", badge.Title),
				o.translator.Get(lang, "suggestions.badge.ideas", badge.Title),
				o.translator.Get(lang, "suggestions.badge.skills", badge.Title),
			)
		}
	}

	if userCtx.CurrentCategory != "" {
		if category := o.catalog.GetCategory(userCtx.CurrentCategory); category != nil {
			out = append(out,
				o.translator.Get(lang, "suggestions.category.badges", category.Title),
				o.translator.Get(lang, "suggestions.category.philosophy", category.Title),
				o.translator.Get(lang, "suggestions.category.recommend", category.Title),
			)
		}
	}

	out = append(out,
		o.translator.Get(lang, "suggestions.general.categories"),
		o.translator.Get(lang, "suggestions.general.recommend"),
		o.translator.Get(lang, "suggestions.general.philosophy"),
	)

	if len(out) > o.opts.MaxSuggestions {
		out = out[:o.opts.MaxSuggestions]
	}
	return out
}

// resolveBadge runs the badge lookup fallback chain: direct id, id
// normalized to base form, then the client-supplied title snapshot by exact
// case-insensitive equality. Returns nil when every step fails.
func (o *Orchestrator) resolveBadge(userCtx *storage.UserContext) *catalog.Badge {
	if userCtx.CurrentBadge == "" {
		return nil
	}

	if badge := o.catalog.GetBadge(userCtx.CurrentBadge); badge != nil {
		return badge
	}

	normalized := NormalizeBadgeID(userCtx.CurrentBadge)
	if normalized != userCtx.CurrentBadge {
		if badge := o.catalog.GetBadge(normalized); badge != nil {
			return badge
		}
	}

	if snap := userCtx.Screen.BadgeSnapshot; snap != nil && snap.Title != "" {
		if badge := o.catalog.FindBadgeByTitle(snap.Title); badge != nil {
			return badge
		}
	}

	return nil
}

// Эмодзи, которые модель любит дублировать подряд
var dedupeEmoji = map[rune]bool{}

func init() {
	for _, r := range "✨💡🎉🚀😄👍💫💪🔥🧠😌🤩😎🤗🤔🥰🥹😅😊" {
		dedupeEmoji[r] = true
	}
}

// collapseEmojiRuns схлопывает повторы одинаковых эмодзи до одного.
func collapseEmojiRuns(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	prev := rune(-1)
	for _, r := range text {
		if r == prev && dedupeEmoji[r] {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
