package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
)

// Repository is the read-only badge directory loaded from the data directory.
// After Load completes the repository is immutable and safe for concurrent reads.
type Repository struct {
	dataPath string
	logger   *slog.Logger

	guide      *Guide
	categories map[string]*Category
	badges     map[string]*Badge
	badgeOrder []string // catalog scan order, used as the ranking tie-break
}

type masterIndex struct {
	Project         string `json:"project"`
	Version         string `json:"version"`
	TotalCategories int    `json:"totalCategories"`
	TotalBadges     int    `json:"totalBadges"`
	Categories      []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Emoji string `json:"emoji"`
		Path  string `json:"path"`
	} `json:"categories"`
}

type categoryIndex struct {
	Badges []struct {
		ID string `json:"id"`
	} `json:"badges"`
}

// NewRepository creates an empty repository rooted at dataPath.
// Call Load before using any lookup.
func NewRepository(logger *slog.Logger, dataPath string) *Repository {
	return &Repository{
		dataPath:   dataPath,
		logger:     logger.With("component", "catalog"),
		categories: make(map[string]*Category),
		badges:     make(map[string]*Badge),
	}
}

// Load reads MASTER_INDEX.json and every category directory underneath it.
func (r *Repository) Load() error {
	masterPath := filepath.Join(r.dataPath, "MASTER_INDEX.json")
	data, err := os.ReadFile(masterPath)
	if err != nil {
		return fmt.Errorf("failed to read master index: %w", err)
	}

	var master masterIndex
	if err := json.Unmarshal(data, &master); err != nil {
		return fmt.Errorf("failed to parse master index: %w", err)
	}

	guide := &Guide{
		Project:         master.Project,
		Version:         master.Version,
		TotalCategories: master.TotalCategories,
		TotalBadges:     master.TotalBadges,
	}

	for _, info := range master.Categories {
		category, err := r.loadCategory(info.ID, info.Title, info.Emoji, info.Path)
		if err != nil {
			return fmt.Errorf("failed to load category %s: %w", info.ID, err)
		}
		guide.Categories = append(guide.Categories, *category)
	}

	// Index against the slices held by the guide so lookups and listings
	// return the same backing data.
	for i := range guide.Categories {
		category := &guide.Categories[i]
		r.categories[category.ID] = category
		for j := range category.Badges {
			badge := &category.Badges[j]
			r.badges[badge.ID] = badge
			r.badgeOrder = append(r.badgeOrder, badge.ID)
		}
	}

	r.guide = guide
	RecordCatalogLoaded(len(guide.Categories), len(r.badgeOrder))
	r.logger.Info("catalog loaded",
		"project", guide.Project,
		"version", guide.Version,
		"categories", len(guide.Categories),
		"badges", len(r.badgeOrder),
	)
	return nil
}

func (r *Repository) loadCategory(id, title, emoji, relPath string) (*Category, error) {
	categoryPath := filepath.Join(r.dataPath, relPath)

	data, err := os.ReadFile(filepath.Join(categoryPath, "index.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read category index: %w", err)
	}
	var index categoryIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse category index: %w", err)
	}

	category := &Category{
		ID:    id,
		Title: title,
		Emoji: emoji,
		Path:  relPath,
	}

	// Introduction is optional markdown next to the index.
	if intro, err := os.ReadFile(filepath.Join(categoryPath, "introduction.md")); err == nil {
		category.Introduction = string(intro)
	}

	for _, info := range index.Badges {
		badge, err := r.loadBadge(categoryPath, info.ID)
		if err != nil {
			return nil, err
		}
		category.Badges = append(category.Badges, *badge)
	}

	return category, nil
}

func (r *Repository) loadBadge(categoryPath, badgeID string) (*Badge, error) {
	data, err := os.ReadFile(filepath.Join(categoryPath, badgeID+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read badge %s: %w", badgeID, err)
	}
	var badge Badge
	if err := json.Unmarshal(data, &badge); err != nil {
		return nil, fmt.Errorf("failed to parse badge %s: %w", badgeID, err)
	}
	return &badge, nil
}

// Guide returns the loaded directory, or nil before Load.
func (r *Repository) Guide() *Guide {
	return r.guide
}

// GetCategory returns the category with the given id, or nil.
func (r *Repository) GetCategory(id string) *Category {
	return r.categories[id]
}

// GetBadge returns the badge with the given id, or nil.
func (r *Repository) GetBadge(id string) *Badge {
	return r.badges[id]
}

// Categories returns all categories in catalog order.
func (r *Repository) Categories() []Category {
	if r.guide == nil {
		return nil
	}
	return r.guide.Categories
}

// AllBadges returns every badge across all categories in catalog order.
func (r *Repository) AllBadges() []*Badge {
	badges := make([]*Badge, 0, len(r.badgeOrder))
	for _, id := range r.badgeOrder {
		badges = append(badges, r.badges[id])
	}
	return badges
}

// BadgesByCategory returns all badges of a category, or nil for an unknown id.
func (r *Repository) BadgesByCategory(categoryID string) []Badge {
	category := r.categories[categoryID]
	if category == nil {
		return nil
	}
	return category.Badges
}

// SearchBadges returns badges whose title, description or skill tips contain
// the query, case-insensitively, in catalog order.
func (r *Repository) SearchBadges(query string) []*Badge {
	// Caser хранит состояние, поэтому на каждый вызов свой.
	folder := cases.Fold()
	queryFolded := folder.String(query)
	var results []*Badge
	for _, id := range r.badgeOrder {
		badge := r.badges[id]
		if strings.Contains(folder.String(badge.Title), queryFolded) ||
			strings.Contains(folder.String(badge.Description), queryFolded) ||
			(badge.SkillTips != "" && strings.Contains(folder.String(badge.SkillTips), queryFolded)) {
			results = append(results, badge)
		}
	}
	return results
}

// FindBadgeByTitle returns the badge whose title equals the given one,
// case-insensitively, or nil. Used as the last step of badge resolution
// when an id no longer resolves but the client still knows the title.
func (r *Repository) FindBadgeByTitle(title string) *Badge {
	folder := cases.Fold()
	wanted := folder.String(strings.TrimSpace(title))
	if wanted == "" {
		return nil
	}
	for _, id := range r.badgeOrder {
		badge := r.badges[id]
		if folder.String(strings.TrimSpace(badge.Title)) == wanted {
			return badge
		}
	}
	return nil
}

// CategoryContext returns the introductory text of a category for prompt
// assembly. A category without an introduction gets a synthesized summary
// from its first badges instead.
func (r *Repository) CategoryContext(categoryID string) string {
	category := r.categories[categoryID]
	if category == nil {
		return ""
	}
	if category.Introduction != "" {
		return category.Introduction
	}

	sample := category.Badges
	if len(sample) > 5 {
		sample = sample[:5]
	}
	var items []string
	for _, b := range sample {
		desc := b.Description
		if len([]rune(desc)) > 140 {
			desc = string([]rune(desc)[:140]) + "…"
		}
		items = append(items, fmt.Sprintf("- %s %s: %s", b.Emoji, b.Title, desc))
	}
	return fmt.Sprintf("В категории %s всего значков: %d. Примеры значков:\n%s",
		category.Title, len(category.Badges), strings.Join(items, "\n"))
}
