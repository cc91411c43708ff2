// Package media holds the catalog aggregate: items, their tags and stored embeddings.
package media

import (
	"fmt"
	"strings"
	"time"
)

// Type is the kind of media an item represents.
type Type string

// Supported media types.
const (
	TypeMovie Type = "MOVIE"
	TypeShow  Type = "SHOW"
	TypeBook  Type = "BOOK"
	TypeGame  Type = "GAME"
)

// ParseType normalizes s into a Type. Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown media type %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the supported types.
func (t Type) Valid() bool {
	switch t {
	case TypeMovie, TypeShow, TypeBook, TypeGame:
		return true
	}
	return false
}

// Item is a catalog entry (immutable value object).
type Item struct {
	id          string
	typ         Type
	title       string
	description string
	releaseYear int
	language    string
	posterURL   string
	externalID  string
	createdAt   time.Time
	tags        []Tag
	embedding   Embedding
}

// Draft carries the fields of an item that does not exist yet.
type Draft struct {
	Type        Type
	Title       string
	Description string
	ReleaseYear int
	Language    string
	PosterURL   string
	ExternalID  string
	Tags        []string
}

// Validate checks required draft fields.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if !d.Type.Valid() {
		return fmt.Errorf("unknown media type %q", d.Type)
	}
	if d.ReleaseYear < 0 {
		return fmt.Errorf("release year must be positive, got %d", d.ReleaseYear)
	}
	return nil
}

// NormalizedTags returns the draft tags lower-cased, trimmed and deduplicated.
func (d *Draft) NormalizedTags() []string {
	seen := make(map[string]struct{}, len(d.Tags))
	out := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		name := NormalizeTagName(t)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Reconstruct creates an Item without validation (storage hydration).
// releaseYear 0 means unknown.
func Reconstruct(
	id string, typ Type, title, description string, releaseYear int,
	language, posterURL, externalID string, createdAt time.Time,
	tags []Tag, embedding Embedding,
) Item {
	return Item{
		id: id, typ: typ, title: title, description: description, releaseYear: releaseYear,
		language: language, posterURL: posterURL, externalID: externalID, createdAt: createdAt,
		tags: tags, embedding: embedding,
	}
}

// ID returns the item identifier.
func (i *Item) ID() string { return i.id }

// Type returns the media type.
func (i *Item) Type() Type { return i.typ }

// Title returns the item title.
func (i *Item) Title() string { return i.title }

// Description returns the synopsis, empty if unknown.
func (i *Item) Description() string { return i.description }

// ReleaseYear returns the release year, 0 if unknown.
func (i *Item) ReleaseYear() int { return i.releaseYear }

// Language returns the original language code.
func (i *Item) Language() string { return i.language }

// PosterURL returns the poster image URL.
func (i *Item) PosterURL() string { return i.posterURL }

// ExternalID returns the identifier in the external catalog the item came from.
func (i *Item) ExternalID() string { return i.externalID }

// CreatedAt returns the creation time.
func (i *Item) CreatedAt() time.Time { return i.createdAt }

// Tags returns the attached tags.
func (i *Item) Tags() []Tag { return i.tags }

// TagNames returns tag names in stored order.
func (i *Item) TagNames() []string {
	names := make([]string, len(i.tags))
	for n, t := range i.tags {
		names[n] = t.Name()
	}
	return names
}

// Embedding returns the stored embedding, possibly empty.
func (i *Item) Embedding() Embedding { return i.embedding }

// WithEmbedding returns a copy with the given embedding attached.
func (i *Item) WithEmbedding(e Embedding) Item {
	c := *i
	c.embedding = e
	return c
}

// EmbeddingText composes the text that represents the item in vector space.
func (i *Item) EmbeddingText() string {
	return EmbeddingText(i.title, i.description, i.TagNames())
}

// EmbeddingText joins title, description and tags the same way for indexing and re-embedding.
func EmbeddingText(title, description string, tags []string) string {
	parts := []string{title}
	if description != "" {
		parts = append(parts, description)
	}
	if len(tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(tags, ", "))
	}
	return strings.Join(parts, "\n\n")
}
