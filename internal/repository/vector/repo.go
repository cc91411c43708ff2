// Package vector stores media embeddings in a Redis/Valkey FT index for kNN queries.
package vector

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/db"
	"github.com/kailas-cloud/cinemuse/internal/domain"
	"github.com/kailas-cloud/cinemuse/internal/domain/media"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/filter"
	domvec "github.com/kailas-cloud/cinemuse/internal/domain/vector"
	"github.com/kailas-cloud/cinemuse/internal/metrics"
)

// Hash field names. Indexed ones match filter.Field* constants.
const (
	fieldMediaID      = "media_id"
	fieldType         = filter.FieldType
	fieldTitle        = "title"
	fieldReleaseYear  = filter.FieldReleaseYear
	fieldTags         = "tags"
	fieldModelVersion = filter.FieldModelVersion
	fieldVector       = "vector"
)

// DefaultBatchSize is the number of vectors written per transaction.
const DefaultBatchSize = 100

// store is the consumer interface for the vector index (ISP).
type store interface {
	Ping(ctx context.Context) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMultiTx(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys ...string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Options configures the index layout.
type Options struct {
	IndexName       string
	KeyPrefix       string
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
	BatchSize       int
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Repo is the vector index over a db.Store.
type Repo struct {
	store   store
	opts    Options
	breaker *gobreaker.CircuitBreaker[*db.SearchResult]
	logger  *zap.Logger
}

// New creates a vector repository.
func New(s store, opts Options, logger *zap.Logger) *Repo {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}

	r := &Repo{store: s, opts: opts, logger: logger}
	r.breaker = gobreaker.NewCircuitBreaker[*db.SearchResult](gobreaker.Settings{
		Name:        "vector-index",
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return r
}

// EnsureIndex creates the FT index when it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.opts.IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.opts.IndexName, err)
	}
	if exists {
		return nil
	}

	def, err := r.indexDefinition()
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.opts.IndexName, err)
	}

	r.logger.Info("Vector index created",
		zap.String("index", r.opts.IndexName),
		zap.Int("dimensions", r.opts.Dimensions),
	)
	return nil
}

// Reindex drops the FT index and recreates it from the current options.
// Stored hashes survive; the engine re-indexes them under the new schema.
func (r *Repo) Reindex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.opts.IndexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.opts.IndexName, err)
	}
	r.logger.Info("Vector index dropped", zap.String("index", r.opts.IndexName))
	return r.EnsureIndex(ctx)
}

func (r *Repo) indexDefinition() (*db.IndexDefinition, error) {
	def, err := db.NewIndex(r.opts.IndexName).
		Prefix(r.opts.KeyPrefix).
		Tag(fieldType).
		Tag(fieldModelVersion).
		Numeric(fieldReleaseYear).
		TagWithOpts(fieldTags, ",", false).
		VectorHNSW(fieldVector, r.opts.Dimensions, db.DistanceCosine, r.opts.HNSWM, r.opts.HNSWEFConstruct).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build index definition: %w", err)
	}
	return def, nil
}

// Available reports whether the index is reachable and exists.
// An open breaker short-circuits the probe.
func (r *Repo) Available(ctx context.Context) bool {
	if r.breaker.State() == gobreaker.StateOpen {
		metrics.VectorIndexAvailable.Set(0)
		return false
	}

	ok := r.probe(ctx)
	if ok {
		metrics.VectorIndexAvailable.Set(1)
	} else {
		metrics.VectorIndexAvailable.Set(0)
	}
	return ok
}

func (r *Repo) probe(ctx context.Context) bool {
	if err := r.store.Ping(ctx); err != nil {
		r.logger.Debug("Vector index ping failed", zap.Error(err))
		return false
	}
	exists, err := r.store.IndexExists(ctx, r.opts.IndexName)
	if err != nil {
		r.logger.Debug("Vector index probe failed", zap.Error(err))
		return false
	}
	return exists
}

// HealthCheck returns an error when the index is unavailable.
func (r *Repo) HealthCheck(ctx context.Context) error {
	if !r.Available(ctx) {
		return fmt.Errorf("vector index %s: %w", r.opts.IndexName, domain.ErrProviderUnavailable)
	}
	return nil
}

// Upsert writes a single vector. Last write wins.
func (r *Repo) Upsert(ctx context.Context, rec domvec.Record) error {
	if err := r.validate(rec); err != nil {
		return err
	}
	if err := r.store.HSet(ctx, r.key(rec.ID), r.fields(rec)); err != nil {
		return fmt.Errorf("upsert vector %s: %w", rec.ID, err)
	}
	return nil
}

// UpsertBatch writes records in transactional chunks of BatchSize.
// It stops at the first failing chunk and returns how many records were committed before it.
func (r *Repo) UpsertBatch(ctx context.Context, recs []domvec.Record) (int, error) {
	committed := 0
	for start := 0; start < len(recs); start += r.opts.BatchSize {
		end := min(start+r.opts.BatchSize, len(recs))
		chunk := recs[start:end]

		items := make([]db.HashSetItem, 0, len(chunk))
		for _, rec := range chunk {
			if err := r.validate(rec); err != nil {
				return committed, fmt.Errorf("chunk at %d: %w", start, err)
			}
			items = append(items, db.HashSetItem{Key: r.key(rec.ID), Fields: r.fields(rec)})
		}

		if err := r.store.HSetMultiTx(ctx, items); err != nil {
			return committed, fmt.Errorf("upsert chunk at %d (%d committed): %w", start, committed, err)
		}
		committed += len(chunk)
	}
	return committed, nil
}

// Query returns the topK nearest vectors matching the filter, best first.
func (r *Repo) Query(ctx context.Context, vec []float32, topK int, q filter.MediaQuery) ([]domvec.Match, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrInput)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", domain.ErrInput)
	}

	expr, err := q.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInput, err)
	}

	sr, err := r.breaker.Execute(func() (*db.SearchResult, error) {
		return r.store.SearchKNN(ctx, &db.KNNQuery{
			IndexName:   r.opts.IndexName,
			VectorField: fieldVector,
			Filters:     expr,
			Vector:      vec,
			K:           topK,
			ReturnFields: []string{
				fieldMediaID, fieldType, fieldTitle, fieldReleaseYear, fieldTags, fieldModelVersion, "__vector_score",
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("vector query: %w: %w", domain.ErrProviderUnavailable, err)
	}

	matches := make([]domvec.Match, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id := e.Fields[fieldMediaID]
		if id == "" {
			id = strings.TrimPrefix(e.Key, r.opts.KeyPrefix)
		}
		matches = append(matches, domvec.Match{ID: id, Score: e.Score, Metadata: parseMetadata(e.Fields)})
	}
	return matches, nil
}

// Delete removes a vector. Missing ids are not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		return fmt.Errorf("delete vector %s: %w", id, err)
	}
	return nil
}

// DeleteMany removes several vectors in one round-trip.
func (r *Repo) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	if err := r.store.DelMulti(ctx, keys...); err != nil {
		return fmt.Errorf("delete %d vectors: %w", len(ids), err)
	}
	return nil
}

func (r *Repo) key(id string) string {
	return r.opts.KeyPrefix + id
}

func (r *Repo) validate(rec domvec.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: vector id is required", domain.ErrInput)
	}
	if len(rec.Vector) == 0 {
		return fmt.Errorf("%w: vector %s is empty", domain.ErrInput, rec.ID)
	}
	if r.opts.Dimensions > 0 && len(rec.Vector) != r.opts.Dimensions {
		return fmt.Errorf("vector %s: %w: got %d, want %d",
			rec.ID, domain.ErrVectorDimMismatch, len(rec.Vector), r.opts.Dimensions)
	}
	return nil
}

func (r *Repo) fields(rec domvec.Record) map[string]string {
	f := map[string]string{
		fieldMediaID:      rec.ID,
		fieldType:         string(rec.Metadata.Type),
		fieldTitle:        rec.Metadata.Title,
		fieldModelVersion: rec.Metadata.ModelVersion,
		fieldVector:       vectorToBytes(rec.Vector),
	}
	if rec.Metadata.ReleaseYear > 0 {
		f[fieldReleaseYear] = strconv.Itoa(rec.Metadata.ReleaseYear)
	}
	if len(rec.Metadata.Tags) > 0 {
		f[fieldTags] = strings.Join(rec.Metadata.Tags, ",")
	}
	return f
}

func parseMetadata(fields map[string]string) domvec.Metadata {
	m := domvec.Metadata{
		Type:         media.Type(fields[fieldType]),
		Title:        fields[fieldTitle],
		ModelVersion: fields[fieldModelVersion],
	}
	if y, err := strconv.Atoi(fields[fieldReleaseYear]); err == nil {
		m.ReleaseYear = y
	}
	if t := fields[fieldTags]; t != "" {
		m.Tags = strings.Split(t, ",")
	}
	return m
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
