// Package tmdb is a minimal client for The Movie Database multi-search, used to import
// titles that the local corpus does not have yet.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	"github.com/kailas-cloud/cinemuse/internal/domain/catalog"
)

const posterSize = "w500"

// Config holds TMDb credentials and limits. AccessToken wins over APIKey.
type Config struct {
	APIKey            string
	AccessToken       string
	BaseURL           string
	ImageBaseURL      string
	RequestsPerSecond float64
	Timeout           time.Duration
	BreakerFailures   uint32
	BreakerCooldown   time.Duration
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

// Client searches TMDb. Requests are rate limited and guarded by a circuit breaker.
type Client struct {
	http         *http.Client
	baseURL      string
	imageBaseURL string
	apiKey       string
	accessToken  string
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker[[]byte]
	logger       *zap.Logger
}

type searchResult struct {
	ID               int64  `json:"id"`
	MediaType        string `json:"media_type"`
	Title            string `json:"title"`
	Name             string `json:"name"`
	Overview         string `json:"overview"`
	ReleaseDate      string `json:"release_date"`
	FirstAirDate     string `json:"first_air_date"`
	OriginalLanguage string `json:"original_language"`
	PosterPath       string `json:"poster_path"`
}

type searchResponse struct {
	Page    int            `json:"page"`
	Results []searchResult `json:"results"`
}

// New creates a TMDb client. Either an access token or an API key is required.
func New(cfg *Config) (*Client, error) {
	if cfg.AccessToken == "" && cfg.APIKey == "" {
		return nil, errors.New("tmdb: access_token or api_key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	logger := cfg.Logger
	c := &Client{
		http:         httpClient,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		apiKey:       cfg.APIKey,
		accessToken:  cfg.AccessToken,
		limiter:      rate.NewLimiter(limit, 1),
		logger:       logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation says nothing about TMDb health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c, nil
}

// SearchMulti returns the first movie or tv hit for title.
// ok is false when TMDb has no importable match.
func (c *Client) SearchMulti(ctx context.Context, title string) (catalog.Record, bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return catalog.Record{}, false, nil
	}

	body, err := c.get(ctx, "/search/multi", url.Values{
		"query":         {title},
		"include_adult": {"false"},
	})
	if err != nil {
		return catalog.Record{}, false, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return catalog.Record{}, false, fmt.Errorf("decode tmdb search: %w: %w", domain.ErrProviderUnavailable, err)
	}

	for _, r := range resp.Results {
		rec := c.toRecord(r)
		if rec.Importable() {
			return rec, true, nil
		}
	}
	return catalog.Record{}, false, nil
}

// HealthCheck probes the configuration endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.get(ctx, "/configuration", nil)
	return err
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("tmdb rate limit wait: %w", err)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, path, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("tmdb %s: %w: %w", path, domain.ErrProviderUnavailable, err)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if c.accessToken == "" {
		params.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build tmdb request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb %s: %w: %w", path, domain.ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read tmdb %s: %w: %w", path, domain.ErrProviderUnavailable, err)
	}

	c.logger.Debug("TMDb request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tmdb %s returned %d: %w", path, resp.StatusCode, domain.ErrProviderUnavailable)
	}
	return body, nil
}

func (c *Client) toRecord(r searchResult) catalog.Record {
	rec := catalog.Record{
		ID:          r.ID,
		Kind:        catalog.Kind(r.MediaType),
		Title:       r.Title,
		Overview:    r.Overview,
		ReleaseDate: r.ReleaseDate,
		Language:    r.OriginalLanguage,
	}
	if rec.Title == "" {
		rec.Title = r.Name
	}
	if rec.ReleaseDate == "" {
		rec.ReleaseDate = r.FirstAirDate
	}
	if r.PosterPath != "" {
		rec.PosterURL = c.imageBaseURL + "/" + posterSize + r.PosterPath
	}
	return rec
}
