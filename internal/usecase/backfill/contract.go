package backfill

import (
	"context"

	dommedia "github.com/kailas-cloud/cinemuse/internal/domain/media"
	domvec "github.com/kailas-cloud/cinemuse/internal/domain/vector"
)

// Repository reads items lacking a current embedding and stores new ones.
type Repository interface {
	ListMissingEmbeddings(ctx context.Context, modelVersion string, limit int) ([]dommedia.Item, error)
	CountMissingEmbeddings(ctx context.Context, modelVersion string) (int64, error)
	SaveEmbedding(ctx context.Context, id string, emb dommedia.Embedding) error
}

// Embedder vectorizes texts in batches.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelVersion() string
}

// VectorWriter pushes vectors into the similarity index in chunks.
type VectorWriter interface {
	UpsertBatch(ctx context.Context, recs []domvec.Record) (int, error)
}
