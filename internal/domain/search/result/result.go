package result

import "github.com/kailas-cloud/cinemuse/internal/domain/media"

// Result is a single ranked candidate returned to the caller. Never cached.
type Result struct {
	id          string
	typ         media.Type
	title       string
	description string
	releaseYear int
	posterURL   string
	score       float64
	tags        []string
}

// FromItem builds a result from a catalog item and its score.
func FromItem(item *media.Item, score float64) Result {
	return Result{
		id:          item.ID(),
		typ:         item.Type(),
		title:       item.Title(),
		description: item.Description(),
		releaseYear: item.ReleaseYear(),
		posterURL:   item.PosterURL(),
		score:       score,
		tags:        item.TagNames(),
	}
}

// ID returns the item identifier.
func (r *Result) ID() string { return r.id }

// Type returns the media type.
func (r *Result) Type() media.Type { return r.typ }

// Title returns the item title.
func (r *Result) Title() string { return r.title }

// Description returns the item description.
func (r *Result) Description() string { return r.description }

// ReleaseYear returns the release year, 0 if unknown.
func (r *Result) ReleaseYear() int { return r.releaseYear }

// PosterURL returns the poster image URL.
func (r *Result) PosterURL() string { return r.posterURL }

// Score returns the relevance score in [0,1].
func (r *Result) Score() float64 { return r.score }

// Tags returns the tag names.
func (r *Result) Tags() []string { return r.tags }
