package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/domain"
)

const expansionPrompt = `You are a search assistant for a media database (movies, shows, books, games).
Extract 3-5 relevant search keywords, genres, or potential titles from the user's description.
Return ONLY JSON: an array of strings or {"keywords": [...]}. No other text.

Example:
User: "movie where guy wakes up on beach"
Output: ["time loop", "war", "aliens", "Edge of Tomorrow"]`

// ExpanderConfig holds the chat completion settings for query expansion.
type ExpanderConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
	Logger      *zap.Logger
}

// Expander turns a free-text memory into search terms with an LLM in JSON mode.
type Expander struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

// NewExpander creates a chat-completion query expander (Groq by default).
func NewExpander(cfg *ExpanderConfig) *Expander {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Expander{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
	}
}

// Expand returns the terms suggested by the model, in model order.
// Any transport or parse failure is returned as an error; callers decide the fallback.
func (x *Expander) Expand(ctx context.Context, query string) ([]string, error) {
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := x.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       x.model,
		Temperature: x.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: expansionPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion: %w", domain.ErrProviderUnavailable)
	}

	terms, err := ParseTerms(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	x.logger.Debug("Query expanded",
		zap.Int("terms", len(terms)),
		zap.Duration("duration", time.Since(start)),
	)
	return terms, nil
}

// ParseTerms accepts a JSON array of strings or an object with "keywords" or "tags".
// Non-string and blank elements are dropped.
func ParseTerms(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty expansion content: %w", domain.ErrProviderUnavailable)
	}

	var raw []any
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &raw); err != nil {
			return nil, fmt.Errorf("parse expansion array: %w: %w", domain.ErrProviderUnavailable, err)
		}
	} else {
		var obj struct {
			Keywords []any `json:"keywords"`
			Tags     []any `json:"tags"`
		}
		if err := json.Unmarshal([]byte(content), &obj); err != nil {
			return nil, fmt.Errorf("parse expansion object: %w: %w", domain.ErrProviderUnavailable, err)
		}
		raw = obj.Keywords
		if len(raw) == 0 {
			raw = obj.Tags
		}
	}

	terms := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			terms = append(terms, s)
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("no expansion terms: %w", domain.ErrProviderUnavailable)
	}
	return terms, nil
}
