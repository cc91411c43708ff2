package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	"github.com/kailas-cloud/cinemuse/internal/domain/catalog"
	"github.com/kailas-cloud/cinemuse/internal/domain/media"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/request"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/result"
	"github.com/kailas-cloud/cinemuse/internal/metrics"
	"github.com/kailas-cloud/cinemuse/internal/usecase/expansion"
)

// Cold start outcomes.
const (
	importImported = "imported"
	importExisting = "existing"
	importMiss     = "miss"
	importError    = "error"
)

// coldStart looks candidates up in the external catalog and returns the first importable hit,
// reusing an existing corpus item with the same title and type. nil means nothing was found.
func (s *Service) coldStart(ctx context.Context, terms []string, req *request.Memory) (*result.Result, error) {
	candidates := uniqueTerms(append(expansion.RankImportCandidates(terms), req.Query()))

	for _, c := range candidates {
		rec, ok, err := s.catalog.SearchMulti(ctx, c)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			metrics.ColdStartImportsTotal.WithLabelValues(importError).Inc()
			s.logger.Warn("Catalog lookup failed", zap.String("candidate", c), zap.Error(err))
			continue
		}
		if !ok || !rec.Importable() {
			continue
		}
		if req.Type() != "" && rec.MediaType() != req.Type() {
			continue
		}

		item, outcome, err := s.importRecord(ctx, &rec)
		if err != nil {
			return nil, err
		}
		metrics.ColdStartImportsTotal.WithLabelValues(outcome).Inc()
		s.logger.Info("Cold start resolved",
			zap.String("candidate", c),
			zap.String("media_id", item.ID()),
			zap.String("outcome", outcome),
		)

		r := result.FromItem(item, ColdStartScore)
		return &r, nil
	}

	metrics.ColdStartImportsTotal.WithLabelValues(importMiss).Inc()
	return nil, nil
}

func (s *Service) importRecord(ctx context.Context, rec *catalog.Record) (*media.Item, string, error) {
	existing, err := s.corpus.FindByTitle(ctx, rec.Title, rec.MediaType())
	if err == nil {
		return existing, importExisting, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("find imported title: %w", err)
	}

	created, err := s.importer.Create(ctx, rec.Draft())
	if err != nil {
		return nil, "", fmt.Errorf("import %q: %w", rec.Title, err)
	}
	return created, importImported, nil
}
