// Package backfill embeds corpus items that have no embedding in the current model
// version and pushes their vectors to the similarity index.
package backfill

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	dombatch "github.com/kailas-cloud/cinemuse/internal/domain/batch"
	dommedia "github.com/kailas-cloud/cinemuse/internal/domain/media"
	domvec "github.com/kailas-cloud/cinemuse/internal/domain/vector"
)

// DefaultBatchSize is the number of items embedded per provider call.
const DefaultBatchSize = 10

// Options controls one backfill run.
type Options struct {
	BatchSize int // 0 = DefaultBatchSize
	Limit     int // 0 = every missing item

	// OnBatch is called after each batch with its per-item results.
	OnBatch func(results []dombatch.Result)
}

// Report summarizes a run.
type Report struct {
	Pending  int // items selected for this run
	Embedded int
	Indexed  int
	Failed   int
}

// Service runs embedding backfills. vectors may be nil.
type Service struct {
	repo     Repository
	embedder Embedder
	vectors  VectorWriter
	logger   *zap.Logger
}

// New creates a backfill service.
func New(repo Repository, embedder Embedder, vectors VectorWriter, logger *zap.Logger) *Service {
	return &Service{repo: repo, embedder: embedder, vectors: vectors, logger: logger}
}

// Pending counts items that still need an embedding in the current model version.
func (s *Service) Pending(ctx context.Context) (int64, error) {
	n, err := s.repo.CountMissingEmbeddings(ctx, s.embedder.ModelVersion())
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

// Run embeds every pending item batch by batch. A failed batch is reported per item and
// the run continues; only listing errors and context cancellation abort it.
func (s *Service) Run(ctx context.Context, opts Options) (Report, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	version := s.embedder.ModelVersion()

	items, err := s.repo.ListMissingEmbeddings(ctx, version, opts.Limit)
	if err != nil {
		return Report{}, fmt.Errorf("list pending: %w", err)
	}

	report := Report{Pending: len(items)}
	s.logger.Info("Embedding backfill started",
		zap.Int("pending", len(items)),
		zap.Int("batch_size", batchSize),
		zap.String("model_version", version),
	)

	for start := 0; start < len(items); start += batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		batch := items[start:min(start+batchSize, len(items))]
		results, recs := s.embedBatch(ctx, batch, version)
		for _, r := range results {
			if r.Status() == dombatch.StatusOK {
				report.Embedded++
			} else {
				report.Failed++
			}
		}
		report.Indexed += s.index(ctx, recs)

		if opts.OnBatch != nil {
			opts.OnBatch(results)
		}
	}

	s.logger.Info("Embedding backfill finished",
		zap.Int("embedded", report.Embedded),
		zap.Int("indexed", report.Indexed),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *Service) embedBatch(
	ctx context.Context, batch []dommedia.Item, version string,
) ([]dombatch.Result, []domvec.Record) {
	results := make([]dombatch.Result, len(batch))

	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].EmbeddingText()
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) != len(batch) {
		err = fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrProviderUnavailable, len(vectors), len(batch))
	}
	if err != nil {
		s.logger.Warn("Embedding batch failed", zap.Int("size", len(batch)), zap.Error(err))
		for i := range batch {
			results[i] = dombatch.NewError(batch[i].ID(), err)
		}
		return results, nil
	}

	recs := make([]domvec.Record, 0, len(batch))
	for i := range batch {
		emb := dommedia.NewEmbedding(vectors[i], version)
		if err := s.repo.SaveEmbedding(ctx, batch[i].ID(), emb); err != nil {
			results[i] = dombatch.NewError(batch[i].ID(), fmt.Errorf("save embedding: %w", err))
			continue
		}
		results[i] = dombatch.NewOK(batch[i].ID())

		embedded := batch[i].WithEmbedding(emb)
		recs = append(recs, domvec.RecordFromItem(&embedded))
	}
	return results, recs
}

// index upserts recs and returns how many were committed.
func (s *Service) index(ctx context.Context, recs []domvec.Record) int {
	if s.vectors == nil || len(recs) == 0 {
		return 0
	}
	committed, err := s.vectors.UpsertBatch(ctx, recs)
	if err != nil {
		s.logger.Warn("Vector index upsert failed",
			zap.Int("committed", committed), zap.Int("total", len(recs)), zap.Error(err))
	}
	return committed
}
