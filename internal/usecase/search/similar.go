package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	"github.com/kailas-cloud/cinemuse/internal/domain/media"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/filter"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/request"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/result"
	"github.com/kailas-cloud/cinemuse/internal/metrics"
)

// TagOverlapScore is the flat score of tag-overlap matches.
const TagOverlapScore = 0.5

// DefaultIndexMargin over-fetches so the source item can be dropped from kNN results.
const DefaultIndexMargin = 1

// Similar returns items close to the given one: vector index first, then brute-force cosine
// over stored embeddings, then shared tags when the item has no usable embedding.
func (s *Service) Similar(ctx context.Context, req *request.Similar) ([]result.Result, error) {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(opSimilar).Observe(time.Since(start).Seconds())
	}()

	item, err := s.corpus.Get(ctx, req.ID())
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}

	var typ media.Type
	if !req.CrossMedia() {
		typ = item.Type()
	}

	results, strategy, err := s.similar(ctx, item, typ, req.Limit())
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		strategy = strategyEmpty
	}
	metrics.SearchStrategyTotal.WithLabelValues(opSimilar, strategy).Inc()
	return results, nil
}

func (s *Service) similar(ctx context.Context, item *media.Item, typ media.Type, limit int) ([]result.Result, string, error) {
	if s.models != nil && item.Embedding().UsableWith(s.models.ModelVersion()) {
		if res := s.similarFromIndex(ctx, item, typ, limit); len(res) > 0 {
			return res, strategyIndex, nil
		}
		res, err := s.similarByCosine(ctx, item, typ, limit)
		return res, strategyCosine, err
	}
	res, err := s.similarByTags(ctx, item, typ, limit)
	return res, strategyTags, err
}

// similarFromIndex returns nil when the index is missing, unavailable or fails.
func (s *Service) similarFromIndex(ctx context.Context, item *media.Item, typ media.Type, limit int) []result.Result {
	if s.index == nil || !s.index.Available(ctx) {
		return nil
	}

	emb := item.Embedding()
	q := filter.MediaQuery{ModelVersion: emb.ModelVersion(), Type: typ}
	matches, err := s.index.Query(ctx, emb.Values(), limit+s.indexMargin, q)
	if err != nil {
		s.logger.Warn("Vector index query failed, using local cosine",
			zap.String("media_id", item.ID()), zap.Error(err))
		return nil
	}

	ids := make([]string, 0, len(matches))
	scores := make(map[string]float64, len(matches))
	for _, m := range matches {
		if m.ID == item.ID() {
			continue
		}
		if _, dup := scores[m.ID]; dup {
			continue
		}
		ids = append(ids, m.ID)
		scores[m.ID] = m.Score
	}
	if len(ids) == 0 {
		return nil
	}

	items, err := s.corpus.GetMany(ctx, ids)
	if err != nil {
		s.logger.Warn("Hydrating index matches failed, using local cosine", zap.Error(err))
		return nil
	}

	out := make([]result.Result, 0, min(limit, len(items)))
	for i := range items {
		if len(out) >= limit {
			break
		}
		out = append(out, result.FromItem(&items[i], scores[items[i].ID()]))
	}
	return out
}

func (s *Service) similarByCosine(ctx context.Context, item *media.Item, typ media.Type, limit int) ([]result.Result, error) {
	emb := item.Embedding()
	candidates, err := s.corpus.ListWithEmbeddings(ctx, media.EmbeddingQuery{
		ModelVersion: emb.ModelVersion(),
		Dimensions:   emb.Dimensions(),
		Type:         typ,
		ExcludeID:    item.ID(),
	})
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for i := range candidates {
		other := candidates[i].Embedding()
		if candidates[i].ID() == item.ID() || !emb.Comparable(other) {
			continue
		}
		ranked = append(ranked, scored{idx: i, score: domain.CosineSimilarity(emb.Values(), other.Values())})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]result.Result, 0, min(limit, len(ranked)))
	for _, r := range ranked {
		if len(out) >= limit {
			break
		}
		// Rank on the raw cosine; only the reported score is clamped to [0,1].
		out = append(out, result.FromItem(&candidates[r.idx], max(r.score, 0)))
	}
	return out, nil
}

func (s *Service) similarByTags(ctx context.Context, item *media.Item, typ media.Type, limit int) ([]result.Result, error) {
	tags := item.TagNames()
	if len(tags) == 0 {
		return []result.Result{}, nil
	}

	items, err := s.corpus.ListByTags(ctx, media.TagQuery{
		Tags:      tags,
		Type:      typ,
		ExcludeID: item.ID(),
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list by tags: %w", err)
	}

	out := make([]result.Result, 0, min(limit, len(items)))
	for i := range items {
		if len(out) >= limit {
			break
		}
		if items[i].ID() == item.ID() {
			continue
		}
		out = append(out, result.FromItem(&items[i], TagOverlapScore))
	}
	return out, nil
}
