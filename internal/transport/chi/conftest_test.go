package chi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	dommedia "github.com/kailas-cloud/cinemuse/internal/domain/media"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/request"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/cinemuse/internal/usecase/health"
)

// --- Mocks ---

type mockSearch struct {
	memoryFn  func(ctx context.Context, req *request.Memory) ([]result.Result, error)
	similarFn func(ctx context.Context, req *request.Similar) ([]result.Result, error)
}

func (m *mockSearch) MemorySearch(ctx context.Context, req *request.Memory) ([]result.Result, error) {
	if m.memoryFn != nil {
		return m.memoryFn(ctx, req)
	}
	return nil, nil
}

func (m *mockSearch) Similar(ctx context.Context, req *request.Similar) ([]result.Result, error) {
	if m.similarFn != nil {
		return m.similarFn(ctx, req)
	}
	return nil, nil
}

type mockMedia struct {
	createFn func(ctx context.Context, d dommedia.Draft) (*dommedia.Item, error)
	getFn    func(ctx context.Context, id string) (*dommedia.Item, error)
	searchFn func(ctx context.Context, q string, typ dommedia.Type, limit, offset int) (dommedia.Page, error)
}

func (m *mockMedia) Create(ctx context.Context, d dommedia.Draft) (*dommedia.Item, error) {
	if m.createFn != nil {
		return m.createFn(ctx, d)
	}
	item := dommedia.Reconstruct("m-new", d.Type, d.Title, d.Description, d.ReleaseYear,
		d.Language, d.PosterURL, d.ExternalID, time.Unix(0, 0), nil, dommedia.Embedding{})
	return &item, nil
}

func (m *mockMedia) Get(ctx context.Context, id string) (*dommedia.Item, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockMedia) Search(ctx context.Context, q string, typ dommedia.Type, limit, offset int) (dommedia.Page, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q, typ, limit, offset)
	}
	return dommedia.Page{}, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- Helpers ---

type testEnv struct {
	search  *mockSearch
	media   *mockMedia
	health  *mockHealth
	handler http.Handler
}

func newTestEnv(t *testing.T, apiKeys ...string) *testEnv {
	t.Helper()
	env := &testEnv{
		search: &mockSearch{},
		media:  &mockMedia{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
	srv := NewServer(env.search, env.media, env.health, zap.NewNop())
	env.handler = NewRouter(srv, RouterConfig{APIKeys: apiKeys}, zap.NewNop())
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func sampleItem(id string) dommedia.Item {
	return dommedia.Reconstruct(
		id, dommedia.TypeMovie, "Groundhog Day", "A weatherman relives the same day.", 1993,
		"en", "https://image.tmdb.org/t/p/w500/gh.jpg", "tmdb:movie:137", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		[]dommedia.Tag{dommedia.NewTag("time loop", dommedia.CategoryTheme)},
		dommedia.NewEmbedding([]float32{1, 0}, "local/hash-bow@2"),
	)
}
