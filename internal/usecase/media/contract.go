package media

import (
	"context"

	dommedia "github.com/kailas-cloud/cinemuse/internal/domain/media"
	domvec "github.com/kailas-cloud/cinemuse/internal/domain/vector"
)

// Repository defines the storage contract for media items.
type Repository interface {
	Get(ctx context.Context, id string) (*dommedia.Item, error)
	Create(ctx context.Context, d dommedia.Draft) (*dommedia.Item, error)
	Search(ctx context.Context, term string, typ dommedia.Type, limit, offset int) (dommedia.Page, error)
	SaveEmbedding(ctx context.Context, id string, emb dommedia.Embedding) error
}

// Embedder vectorizes item text in the provider's current model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelVersion() string
}

// VectorWriter pushes item vectors into the similarity index.
type VectorWriter interface {
	Upsert(ctx context.Context, rec domvec.Record) error
}
