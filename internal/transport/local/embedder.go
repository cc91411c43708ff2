// Package local is an in-process embedding provider for running without a remote API.
package local

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	"github.com/kailas-cloud/cinemuse/internal/metrics"
)

const providerName = "local"

// Config holds the local model settings.
type Config struct {
	Model          string
	Dimensions     int
	VocabularyPath string // optional YAML file
	ModelVersion   string
	Logger         *zap.Logger
}

// Embedder serves embeddings from the hashed model. The model loads on first use.
type Embedder struct {
	model        string
	modelVersion string
	handle       *handle
	logger       *zap.Logger
}

// NewEmbedder creates a local embedder. Nothing is loaded until the first call.
func NewEmbedder(cfg *Config) *Embedder {
	version := cfg.ModelVersion
	if version == "" {
		version = fmt.Sprintf("%s/%s@%d", providerName, cfg.Model, cfg.Dimensions)
	}

	e := &Embedder{model: cfg.Model, modelVersion: version, logger: cfg.Logger}
	e.handle = newHandle(func() (*Model, error) {
		if cfg.Dimensions <= 0 {
			return nil, fmt.Errorf("local model dimensions must be positive, got %d", cfg.Dimensions)
		}
		vocab := DefaultVocabulary()
		if cfg.VocabularyPath != "" {
			v, err := LoadVocabulary(cfg.VocabularyPath)
			if err != nil {
				cfg.Logger.Error("Local model load failed", zap.Error(err))
				return nil, err
			}
			vocab = v
		}
		cfg.Logger.Info("Local embedding model loaded",
			zap.String("model_version", version),
			zap.Int("stopwords", len(vocab.Stopwords)),
			zap.Int("weights", len(vocab.Weights)),
		)
		return NewModel(cfg.Dimensions, vocab), nil
	})
	return e
}

// ModelVersion identifies the vector space this embedder produces.
func (e *Embedder) ModelVersion() string { return e.modelVersion }

// State reports the model load state.
func (e *Embedder) State() State { return e.handle.State() }

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m, err := e.get(ctx)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	return domain.EmbeddingResult{Embedding: m.Vector(text)}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	m, err := e.get(ctx)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.Vector(t)
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

// HealthCheck loads the model if needed.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	_, err := e.get(ctx)
	return err
}

func (e *Embedder) get(ctx context.Context) (*Model, error) {
	m, err := e.handle.Get(ctx)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "model_unavailable").Inc()
		return nil, fmt.Errorf("local model: %w: %w", domain.ErrProviderUnavailable, err)
	}
	return m, nil
}
