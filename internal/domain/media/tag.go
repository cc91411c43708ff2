package media

import (
	"fmt"
	"strings"
)

// TagCategory groups tags by what they describe.
type TagCategory string

// Tag categories. New tags default to CategoryGenre.
const (
	CategoryMood  TagCategory = "MOOD"
	CategoryTheme TagCategory = "THEME"
	CategoryGenre TagCategory = "GENRE"
	CategoryTrope TagCategory = "TROPE"
)

// ParseTagCategory validates s; an empty string yields CategoryGenre.
func ParseTagCategory(s string) (TagCategory, error) {
	if s == "" {
		return CategoryGenre, nil
	}
	c := TagCategory(strings.ToUpper(s))
	switch c {
	case CategoryMood, CategoryTheme, CategoryGenre, CategoryTrope:
		return c, nil
	}
	return "", fmt.Errorf("unknown tag category %q", s)
}

// Tag is a descriptive label shared between items. Names are unique and lower-cased.
type Tag struct {
	name     string
	category TagCategory
}

// NewTag creates a tag with a normalized name.
func NewTag(name string, category TagCategory) Tag {
	if category == "" {
		category = CategoryGenre
	}
	return Tag{name: NormalizeTagName(name), category: category}
}

// Name returns the lower-cased tag name.
func (t Tag) Name() string { return t.name }

// Category returns the tag category.
func (t Tag) Category() TagCategory { return t.category }

// NormalizeTagName lower-cases and trims a tag name.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
