// Package media creates, reads and keyword-searches corpus items, keeping their
// embeddings and index vectors in sync on create.
package media

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	dommedia "github.com/kailas-cloud/cinemuse/internal/domain/media"
	domvec "github.com/kailas-cloud/cinemuse/internal/domain/vector"
)

// Page size limits for keyword search.
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// Service handles media items. embedder and vectors may be nil.
type Service struct {
	repo     Repository
	embedder Embedder
	vectors  VectorWriter
	logger   *zap.Logger
}

// New creates a media service.
func New(repo Repository, embedder Embedder, vectors VectorWriter, logger *zap.Logger) *Service {
	return &Service{repo: repo, embedder: embedder, vectors: vectors, logger: logger}
}

// Create stores a new item, then embeds it and pushes the vector to the index.
// Embedding and index failures are logged; the item stays keyword-searchable and
// the sync job picks it up later.
func (s *Service) Create(ctx context.Context, d dommedia.Draft) (*dommedia.Item, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInput, err)
	}

	item, err := s.repo.Create(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("create media: %w", err)
	}

	log := s.logger.With(zap.String("media_id", item.ID()))
	if s.embedder == nil {
		return item, nil
	}

	values, err := s.embedder.Embed(ctx, item.EmbeddingText())
	if err != nil {
		log.Warn("Embedding new item failed", zap.Error(err))
		return item, nil
	}

	emb := dommedia.NewEmbedding(values, s.embedder.ModelVersion())
	if err := s.repo.SaveEmbedding(ctx, item.ID(), emb); err != nil {
		log.Warn("Saving embedding failed", zap.Error(err))
		return item, nil
	}
	embedded := item.WithEmbedding(emb)

	if s.vectors != nil {
		if err := s.vectors.Upsert(ctx, domvec.RecordFromItem(&embedded)); err != nil {
			log.Warn("Vector index upsert failed", zap.Error(err))
		}
	}

	log.Debug("Media item created", zap.String("model_version", emb.ModelVersion()))
	return &embedded, nil
}

// Get returns an item by id.
func (s *Service) Get(ctx context.Context, id string) (*dommedia.Item, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	return item, nil
}

// Search runs a case-insensitive keyword search over titles and descriptions,
// ordered by title. limit 0 selects DefaultPageSize.
func (s *Service) Search(
	ctx context.Context, query string, typ dommedia.Type, limit, offset int,
) (dommedia.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return dommedia.Page{}, fmt.Errorf("%w: search query is required", domain.ErrInput)
	}
	if typ != "" && !typ.Valid() {
		return dommedia.Page{}, fmt.Errorf("%w: unknown media type %q", domain.ErrInput, typ)
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit < 1 || limit > MaxPageSize {
		return dommedia.Page{}, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInput, MaxPageSize)
	}
	if offset < 0 {
		return dommedia.Page{}, fmt.Errorf("%w: offset must not be negative", domain.ErrInput)
	}

	page, err := s.repo.Search(ctx, query, typ, limit, offset)
	if err != nil {
		return dommedia.Page{}, fmt.Errorf("search media: %w", err)
	}
	return page, nil
}
