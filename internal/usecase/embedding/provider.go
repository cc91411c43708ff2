// Package embedding is the embedding provider seen by the rest of the application:
// it validates batches, normalizes failures and logs every call.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/domain"
)

// DefaultMaxBatchSize is the largest batch accepted by EmbedBatch.
const DefaultMaxBatchSize = 128

// Provider wraps a transport embedder. Transport metrics (requests, duration, tokens)
// are recorded by the transport; this layer owns validation and logging.
type Provider struct {
	inner        domain.Embedder
	provider     string
	model        string
	modelVersion string
	maxBatch     int
	logger       *zap.Logger
}

// NewProvider wraps an embedder. modelVersion defaults to the inner embedder's when it reports one.
func NewProvider(
	inner domain.Embedder, provider, model, modelVersion string,
	maxBatch int, logger *zap.Logger,
) *Provider {
	if mv, ok := inner.(domain.ModelVersioned); ok && modelVersion == "" {
		modelVersion = mv.ModelVersion()
	}
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	return &Provider{
		inner:        inner,
		provider:     provider,
		model:        model,
		modelVersion: modelVersion,
		maxBatch:     maxBatch,
		logger:       logger,
	}
}

// ModelVersion identifies the vector space of every vector this provider returns.
func (p *Provider) ModelVersion() string { return p.modelVersion }

// MaxBatchSize returns the EmbedBatch limit.
func (p *Provider) MaxBatchSize() int { return p.maxBatch }

// Embed returns the vector for text. Failures are reported as ErrProviderUnavailable.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err == nil && len(result.Embedding) == 0 {
		err = errors.New("empty vector")
	}
	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, unavailable("embed", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result.Embedding, nil
}

// EmbedBatch returns one vector per text, in input order.
// Empty batches and batches above the provider limit fail with ErrInput.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: batch must contain at least one text", domain.ErrInput)
	}
	if len(texts) > p.maxBatch {
		return nil, domain.NewBatchLimit(len(texts), p.maxBatch)
	}

	start := time.Now()

	result, err := p.embedInner(ctx, texts)
	if err == nil && len(result.Embeddings) != len(texts) {
		err = fmt.Errorf("got %d vectors for %d texts", len(result.Embeddings), len(texts))
	}

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Batch embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Int("batch_size", len(texts)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, unavailable("batch embed", err)
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result.Embeddings, nil
}

// HealthCheck delegates to the inner embedder when it supports it.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return unavailable("health check", err)
		}
	}
	return nil
}

func (p *Provider) embedInner(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := p.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, p.inner, texts)
}

func unavailable(op string, err error) error {
	if errors.Is(err, domain.ErrProviderUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrProviderUnavailable, err)
}
