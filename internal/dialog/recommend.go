package dialog

import (
	"sort"
	"strings"

	"github.com/realcamp/guidebot/internal/catalog"
	"github.com/realcamp/guidebot/internal/i18n"
	"github.com/realcamp/guidebot/internal/storage"
)

// DefaultRecommendationLimit bounds the candidate list when the caller
// passes no limit.
const DefaultRecommendationLimit = 5

// Candidate is one scored recommendation, produced fresh per call.
type Candidate struct {
	Badge    *catalog.Badge
	Category *catalog.Category
	Score    float64
	Reason   string
}

// Scorer ranks catalog badges against a user's interests, level and
// current category.
type Scorer struct {
	catalog    *catalog.Repository
	translator *i18n.Translator
	lang       string
}

func NewScorer(cat *catalog.Repository, translator *i18n.Translator, lang string) *Scorer {
	return &Scorer{catalog: cat, translator: translator, lang: lang}
}

// Recommend scores every badge in the catalog and returns up to limit
// candidates, descending by score. Ties keep catalog order: the sort is
// stable and catalog load order is deterministic.
func (s *Scorer) Recommend(userCtx *storage.UserContext, limit int) []Candidate {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}

	badges := s.catalog.AllBadges()
	candidates := make([]Candidate, 0, len(badges))
	for _, badge := range badges {
		score, reasons := s.score(badge, userCtx)
		reason := strings.Join(reasons, ", ")
		if reason == "" {
			reason = s.translator.Get(s.lang, "reco.reason.generic")
		}
		candidates = append(candidates, Candidate{
			Badge:    badge,
			Category: s.catalog.GetCategory(badge.CategoryID),
			Score:    score,
			Reason:   reason,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// score starts every badge at 1.0 and adds a bonus per matched signal,
// collecting a human-readable clause for each bonus applied.
func (s *Scorer) score(badge *catalog.Badge, userCtx *storage.UserContext) (float64, []string) {
	score := 1.0
	var reasons []string

	badgeText := strings.ToLower(badge.Title + " " + badge.Description)
	for _, interest := range userCtx.Interests {
		if strings.Contains(badgeText, strings.ToLower(interest)) {
			score += 2.0
			reasons = append(reasons, s.translator.Get(s.lang, "reco.reason.interest", interest))
		}
	}

	if userCtx.CurrentCategory != "" && badge.CategoryID == userCtx.CurrentCategory {
		score += 1.5
		reasons = append(reasons, s.translator.Get(s.lang, "reco.reason.category"))
	}

	switch {
	case userCtx.Level == storage.LevelBeginner && len(badge.Levels) <= 2:
		score += 1.0
		reasons = append(reasons, s.translator.Get(s.lang, "reco.reason.beginner"))
	case userCtx.Level == storage.LevelAdvanced && len(badge.Levels) >= 3:
		score += 1.0
		reasons = append(reasons, s.translator.Get(s.lang, "reco.reason.advanced"))
	}

	return score, reasons
}
