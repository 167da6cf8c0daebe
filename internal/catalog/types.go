package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BadgeLevel is a graded sub-stage of a badge with its own criteria.
type BadgeLevel struct {
	ID           string `json:"id"`
	Level        string `json:"level"`
	Title        string `json:"title"`
	Emoji        string `json:"emoji"`
	Criteria     string `json:"criteria"`
	Confirmation string `json:"confirmation"`
}

// Examples holds badge examples that source data stores either as a single
// string or as a list of strings.
type Examples []string

func (e *Examples) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*e = Examples{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("examples must be a string or a list of strings: %w", err)
	}
	*e = list
	return nil
}

func (e Examples) String() string {
	return strings.Join(e, "\n")
}

// Badge is a catalog entity representing an achievable skill or activity.
type Badge struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Emoji           string       `json:"emoji"`
	CategoryID      string       `json:"categoryId"`
	Description     string       `json:"description"`
	NameExplanation string       `json:"nameExplanation,omitempty"`
	SkillTips       string       `json:"skillTips,omitempty"`
	Examples        Examples     `json:"examples,omitempty"`
	Philosophy      string       `json:"philosophy,omitempty"`
	HowToBecome     string       `json:"howToBecome,omitempty"`
	Levels          []BadgeLevel `json:"levels,omitempty"`
}

// Category groups badges and carries its own introductory text.
type Category struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Emoji        string  `json:"emoji"`
	Path         string  `json:"path"`
	Badges       []Badge `json:"badges,omitempty"`
	Introduction string  `json:"introduction,omitempty"`
}

// Guide is the full loaded badge directory.
type Guide struct {
	Project         string     `json:"project"`
	Version         string     `json:"version"`
	TotalCategories int        `json:"totalCategories"`
	TotalBadges     int        `json:"totalBadges"`
	Categories      []Category `json:"categories"`
}
