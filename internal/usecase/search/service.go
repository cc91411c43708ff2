// Package search ranks corpus items for free-text memory queries and "more like this" lookups.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	"github.com/kailas-cloud/cinemuse/internal/domain/media"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/request"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/result"
	"github.com/kailas-cloud/cinemuse/internal/metrics"
)

// Scores assigned by the memory search cascade.
const (
	QueryScore     = 1.0
	ExpansionScore = 0.8
	ColdStartScore = 0.9
	FallbackScore  = 0.5
)

const (
	opMemory  = "memory"
	opSimilar = "similar"

	strategyFused     = "fused"
	strategyColdStart = "cold_start"
	strategyFallback  = "keyword_fallback"
	strategyIndex     = "index"
	strategyCosine    = "cosine"
	strategyTags      = "tags"
	strategyEmpty     = "empty"
)

// Service runs memory search and similar-items resolution.
type Service struct {
	corpus   Corpus
	index    VectorIndex
	models   ModelVersioner
	expander Expander
	catalog  Catalog
	importer Importer

	termConcurrency int
	indexMargin     int
	logger          *zap.Logger
}

// New creates a search service. index, models and expander may be nil.
func New(
	corpus Corpus, index VectorIndex, models ModelVersioner, expander Expander,
	logger *zap.Logger, opts ...Option,
) *Service {
	s := &Service{
		corpus:          corpus,
		index:           index,
		models:          models,
		expander:        expander,
		termConcurrency: DefaultTermConcurrency,
		indexMargin:     DefaultIndexMargin,
		logger:          logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MemorySearch expands the query, fuses per-term keyword hits and, when nothing matches,
// imports a title from the external catalog. Any failure degrades to a plain keyword search.
func (s *Service) MemorySearch(ctx context.Context, req *request.Memory) ([]result.Result, error) {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(opMemory).Observe(time.Since(start).Seconds())
	}()

	results, strategy, err := s.cascade(ctx, req)
	if err != nil {
		s.logger.Warn("Memory search degraded to keyword fallback",
			zap.String("query", req.Query()), zap.Error(err))
		results, err = s.keywordFallback(ctx, req)
		if err != nil {
			return nil, err
		}
		strategy = strategyFallback
	}

	metrics.SearchStrategyTotal.WithLabelValues(opMemory, strategy).Inc()
	return results, nil
}

func (s *Service) cascade(ctx context.Context, req *request.Memory) (results []result.Result, strategy string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: memory search panicked: %v", domain.ErrInternal, r)
		}
	}()

	expansion := s.expand(ctx, req.Query())
	terms := uniqueTerms(append([]string{req.Query()}, expansion...))

	results, err = s.fuse(ctx, terms, req.Type(), req.Limit())
	if err != nil {
		return nil, "", err
	}
	if len(results) > 0 {
		return results, strategyFused, nil
	}
	if s.catalog == nil || s.importer == nil {
		return results, strategyEmpty, nil
	}

	imported, err := s.coldStart(ctx, expansion, req)
	if err != nil {
		return nil, "", err
	}
	if imported == nil {
		return results, strategyEmpty, nil
	}
	return []result.Result{*imported}, strategyColdStart, nil
}

func (s *Service) expand(ctx context.Context, query string) []string {
	if s.expander == nil {
		return []string{query}
	}
	terms := s.expander.Expand(ctx, query)
	if len(terms) == 0 {
		return []string{query}
	}
	return terms
}

// fuse searches every term concurrently and merges hits in term order.
// The first term to return an item decides its score.
func (s *Service) fuse(ctx context.Context, terms []string, typ media.Type, limit int) ([]result.Result, error) {
	pages := make([][]media.Item, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.termConcurrency)
	for i, term := range terms {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: term search panicked: %v", domain.ErrInternal, r)
				}
			}()
			page, err := s.corpus.Search(gctx, term, typ, limit, 0)
			if err != nil {
				return fmt.Errorf("search term %q: %w", term, err)
			}
			pages[i] = page.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]result.Result, 0, limit)
	seen := make(map[string]struct{})
	for i, items := range pages {
		score := ExpansionScore
		if i == 0 {
			score = QueryScore
		}
		for j := range items {
			if len(out) >= limit {
				return out, nil
			}
			id := items[j].ID()
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, result.FromItem(&items[j], score))
		}
	}
	return out, nil
}

func (s *Service) keywordFallback(ctx context.Context, req *request.Memory) ([]result.Result, error) {
	page, err := s.corpus.Search(ctx, req.Query(), req.Type(), req.Limit(), 0)
	if err != nil {
		return nil, fmt.Errorf("keyword fallback: %w", err)
	}
	out := make([]result.Result, 0, len(page.Items))
	for i := range page.Items {
		out = append(out, result.FromItem(&page.Items[i], FallbackScore))
	}
	return out, nil
}

// uniqueTerms trims terms and drops blanks and case-insensitive duplicates, keeping order.
func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
