// Package catalog describes records returned by the external movie/TV catalog.
package catalog

import (
	"strconv"

	"github.com/kailas-cloud/cinemuse/internal/domain/media"
)

// Kind is the catalog's own media kind.
type Kind string

// Catalog kinds. Only movies and tv count as import candidates.
const (
	KindMovie  Kind = "movie"
	KindTV     Kind = "tv"
	KindPerson Kind = "person"
)

// Record is a single external catalog hit.
type Record struct {
	ID          int64
	Kind        Kind
	Title       string
	Overview    string
	ReleaseDate string // YYYY-MM-DD, may be empty
	Language    string
	PosterURL   string
}

// Importable reports whether the record is a movie or a tv show.
func (r *Record) Importable() bool {
	return r.Kind == KindMovie || r.Kind == KindTV
}

// MediaType maps the catalog kind onto the local media type.
func (r *Record) MediaType() media.Type {
	if r.Kind == KindTV {
		return media.TypeShow
	}
	return media.TypeMovie
}

// ReleaseYear parses the year prefix of ReleaseDate, 0 if absent.
func (r *Record) ReleaseYear() int {
	if len(r.ReleaseDate) < 4 {
		return 0
	}
	y, err := strconv.Atoi(r.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return y
}

// Draft converts the record into a media draft ready for import.
func (r *Record) Draft() media.Draft {
	return media.Draft{
		Type:        r.MediaType(),
		Title:       r.Title,
		Description: r.Overview,
		ReleaseYear: r.ReleaseYear(),
		Language:    r.Language,
		PosterURL:   r.PosterURL,
		ExternalID:  "tmdb:" + string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10),
	}
}
