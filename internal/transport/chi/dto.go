package chi

import (
	"time"

	dommedia "github.com/kailas-cloud/cinemuse/internal/domain/media"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/result"
)

// MemorySearchRequest is the body of POST /api/v1/search/memory.
type MemorySearchRequest struct {
	Query string `json:"query" validate:"required"`
	Type  string `json:"type,omitempty" validate:"omitempty,oneof=MOVIE SHOW BOOK GAME"`
	Limit *int   `json:"limit,omitempty" validate:"omitempty,min=1,max=20"` // nil = default, 0 is rejected
}

// MemorySearchResponse lists memory search matches.
type MemorySearchResponse struct {
	Query   string           `json:"query"`
	Results []SearchResultV1 `json:"results"`
	Count   int              `json:"count"`
}

// SimilarParams are the query parameters of GET /api/v1/media/{id}/similar.
type SimilarParams struct {
	Limit      *int `query:"limit" validate:"omitempty,min=1,max=20"`
	CrossMedia bool `query:"crossMedia"`
}

// SimilarResponse lists items similar to the requested one.
type SimilarResponse struct {
	Similar []SearchResultV1 `json:"similar"`
}

// SearchResultV1 is one ranked candidate.
type SearchResultV1 struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ReleaseYear int      `json:"releaseYear,omitempty"`
	PosterURL   string   `json:"posterUrl,omitempty"`
	Score       float64  `json:"score"`
	Tags        []string `json:"tags"`
}

// CreateMediaRequest is the body of POST /api/v1/media.
type CreateMediaRequest struct {
	Type        string   `json:"type" validate:"required,oneof=MOVIE SHOW BOOK GAME"`
	Title       string   `json:"title" validate:"required,max=500"`
	Description string   `json:"description,omitempty" validate:"max=5000"`
	ReleaseYear int      `json:"releaseYear,omitempty" validate:"omitempty,gte=1800,lte=2100"`
	Language    string   `json:"language,omitempty" validate:"max=50"`
	PosterURL   string   `json:"posterUrl,omitempty" validate:"omitempty,url"`
	ExternalID  string   `json:"externalId,omitempty" validate:"max=200"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,max=50,dive,required,max=100"`
}

// MediaSearchParams are the query parameters of GET /api/v1/media/search.
type MediaSearchParams struct {
	Query  string `query:"q" validate:"required"`
	Type   string `query:"type" validate:"omitempty,oneof=MOVIE SHOW BOOK GAME"`
	Limit  *int   `query:"limit" validate:"omitempty,min=1,max=50"`
	Offset int    `query:"offset" validate:"min=0"`
}

// MediaV1 is the full representation of a media item.
type MediaV1 struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	ReleaseYear  int       `json:"releaseYear,omitempty"`
	Language     string    `json:"language,omitempty"`
	PosterURL    string    `json:"posterUrl,omitempty"`
	ExternalID   string    `json:"externalId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	Tags         []TagV1   `json:"tags"`
	HasEmbedding bool      `json:"hasEmbedding"`
}

// TagV1 is a tag attached to a media item.
type TagV1 struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// MediaPageResponse is one page of keyword search results.
type MediaPageResponse struct {
	Items  []MediaV1 `json:"items"`
	Total  int64     `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// orDefault maps an absent optional limit to 0, which the domain reads as "use the default".
func orDefault(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func (r *CreateMediaRequest) toDraft() dommedia.Draft {
	return dommedia.Draft{
		Type:        dommedia.Type(r.Type),
		Title:       r.Title,
		Description: r.Description,
		ReleaseYear: r.ReleaseYear,
		Language:    r.Language,
		PosterURL:   r.PosterURL,
		ExternalID:  r.ExternalID,
		Tags:        r.Tags,
	}
}

func resultsToV1(rs []result.Result) []SearchResultV1 {
	out := make([]SearchResultV1, len(rs))
	for i := range rs {
		r := &rs[i]
		tags := r.Tags()
		if tags == nil {
			tags = []string{}
		}
		out[i] = SearchResultV1{
			ID:          r.ID(),
			Type:        string(r.Type()),
			Title:       r.Title(),
			Description: r.Description(),
			ReleaseYear: r.ReleaseYear(),
			PosterURL:   r.PosterURL(),
			Score:       r.Score(),
			Tags:        tags,
		}
	}
	return out
}

func mediaToV1(item *dommedia.Item) MediaV1 {
	tags := make([]TagV1, len(item.Tags()))
	for i, t := range item.Tags() {
		tags[i] = TagV1{Name: t.Name(), Category: string(t.Category())}
	}
	return MediaV1{
		ID:           item.ID(),
		Type:         string(item.Type()),
		Title:        item.Title(),
		Description:  item.Description(),
		ReleaseYear:  item.ReleaseYear(),
		Language:     item.Language(),
		PosterURL:    item.PosterURL(),
		ExternalID:   item.ExternalID(),
		CreatedAt:    item.CreatedAt().UTC(),
		Tags:         tags,
		HasEmbedding: !item.Embedding().Empty(),
	}
}
