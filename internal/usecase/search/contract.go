package search

import (
	"context"

	"github.com/kailas-cloud/cinemuse/internal/domain/catalog"
	"github.com/kailas-cloud/cinemuse/internal/domain/media"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/filter"
	domvec "github.com/kailas-cloud/cinemuse/internal/domain/vector"
)

// Corpus is the read side of the media store used by search.
type Corpus interface {
	Get(ctx context.Context, id string) (*media.Item, error)
	GetMany(ctx context.Context, ids []string) ([]media.Item, error)
	Search(ctx context.Context, term string, typ media.Type, limit, offset int) (media.Page, error)
	FindByTitle(ctx context.Context, title string, typ media.Type) (*media.Item, error)
	ListWithEmbeddings(ctx context.Context, q media.EmbeddingQuery) ([]media.Item, error)
	ListByTags(ctx context.Context, q media.TagQuery) ([]media.Item, error)
}

// VectorIndex answers kNN queries over stored item vectors.
type VectorIndex interface {
	Available(ctx context.Context) bool
	Query(ctx context.Context, vec []float32, topK int, q filter.MediaQuery) ([]domvec.Match, error)
}

// ModelVersioner reports the vector space of the active embedding provider.
type ModelVersioner interface {
	ModelVersion() string
}

// Expander turns a query into search terms. Never returns an empty slice.
type Expander interface {
	Expand(ctx context.Context, query string) []string
}

// Catalog looks titles up in the external catalog.
type Catalog interface {
	SearchMulti(ctx context.Context, title string) (catalog.Record, bool, error)
}

// Importer creates corpus items (embedding and index sync included).
type Importer interface {
	Create(ctx context.Context, d media.Draft) (*media.Item, error)
}
