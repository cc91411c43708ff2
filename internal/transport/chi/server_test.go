package chi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	dommedia "github.com/kailas-cloud/cinemuse/internal/domain/media"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/request"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/cinemuse/internal/usecase/health"
)

func TestMemorySearch_OK(t *testing.T) {
	env := newTestEnv(t)
	var got *request.Memory
	env.search.memoryFn = func(_ context.Context, req *request.Memory) ([]result.Result, error) {
		got = req
		item := sampleItem("m-1")
		return []result.Result{result.FromItem(&item, 0.8)}, nil
	}

	rr := env.do(http.MethodPost, "/api/v1/search/memory", `{"query":"  guy relives the same day  ","type":"MOVIE"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Query() != "guy relives the same day" || got.Limit() != request.DefaultMemoryLimit || got.Type() != dommedia.TypeMovie {
		t.Errorf("unexpected request: %+v", got)
	}
	resp := decodeBody[MemorySearchResponse](t, rr)
	if resp.Count != 1 || resp.Query != "guy relives the same day" {
		t.Errorf("unexpected response: %+v", resp)
	}
	r := resp.Results[0]
	if r.ID != "m-1" || r.Score != 0.8 || r.ReleaseYear != 1993 || len(r.Tags) != 1 {
		t.Errorf("unexpected result: %+v", r)
	}
}

func TestMemorySearch_ExplicitLimit(t *testing.T) {
	env := newTestEnv(t)
	var got int
	env.search.memoryFn = func(_ context.Context, req *request.Memory) ([]result.Result, error) {
		got = req.Limit()
		return nil, nil
	}

	rr := env.do(http.MethodPost, "/api/v1/search/memory", `{"query":"long enough query","limit":3}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if got != 3 {
		t.Errorf("limit = %d, want 3", got)
	}
}

func TestMemorySearch_EmptyResultsIsArray(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/v1/search/memory", `{"query":"nothing will match this"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if body := rr.Body.String(); body != `{"query":"nothing will match this","results":[],"count":0}`+"\n" {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestMemorySearch_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  ErrorCode
		wantField string
	}{
		{"malformed json", `{"query":`, CodeBadRequest, ""},
		{"missing query", `{}`, CodeValidationFailed, "query"},
		{"too short", `{"query":"short"}`, CodeValidationFailed, ""},
		{"bad type", `{"query":"long enough query","type":"RADIO"}`, CodeValidationFailed, "type"},
		{"limit too big", `{"query":"long enough query","limit":21}`, CodeValidationFailed, "limit"},
		{"explicit zero limit", `{"query":"long enough query","limit":0}`, CodeValidationFailed, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rr := env.do(http.MethodPost, "/api/v1/search/memory", tt.body)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400", rr.Code)
			}
			resp := decodeBody[ErrorResponse](t, rr)
			if resp.Code != tt.wantCode {
				t.Errorf("code %q, want %q", resp.Code, tt.wantCode)
			}
			if tt.wantField != "" {
				if _, ok := resp.Fields[tt.wantField]; !ok {
					t.Errorf("expected field error for %q, got %v", tt.wantField, resp.Fields)
				}
			}
		})
	}
}

func TestMemorySearch_InternalErrorIsHidden(t *testing.T) {
	env := newTestEnv(t)
	env.search.memoryFn = func(context.Context, *request.Memory) ([]result.Result, error) {
		return nil, fmt.Errorf("keyword fallback: %w", errors.New("sqlite: disk I/O error"))
	}

	rr := env.do(http.MethodPost, "/api/v1/search/memory", `{"query":"guy relives the same day"}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
	if resp := decodeBody[ErrorResponse](t, rr); resp.Message != "internal error" {
		t.Errorf("internal details leaked: %q", resp.Message)
	}
}

func TestSimilar_Defaults(t *testing.T) {
	env := newTestEnv(t)
	var got *request.Similar
	env.search.similarFn = func(_ context.Context, req *request.Similar) ([]result.Result, error) {
		got = req
		return []result.Result{}, nil
	}

	rr := env.do(http.MethodGet, "/api/v1/media/m-1/similar", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if got.ID() != "m-1" || got.Limit() != request.DefaultSimilarLimit || !got.CrossMedia() {
		t.Errorf("unexpected request: %+v", got)
	}
	if body := rr.Body.String(); body != `{"similar":[]}`+"\n" {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestSimilar_Params(t *testing.T) {
	env := newTestEnv(t)
	var got *request.Similar
	env.search.similarFn = func(_ context.Context, req *request.Similar) ([]result.Result, error) {
		got = req
		return nil, nil
	}

	rr := env.do(http.MethodGet, "/api/v1/media/m-1/similar?limit=3&crossMedia=false", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if got.Limit() != 3 || got.CrossMedia() {
		t.Errorf("unexpected request: %+v", got)
	}
}

func TestSimilar_BadParams(t *testing.T) {
	for _, q := range []string{"limit=abc", "limit=0", "limit=21", "crossMedia=maybe"} {
		env := newTestEnv(t)
		rr := env.do(http.MethodGet, "/api/v1/media/m-1/similar?"+q, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", q, rr.Code)
		}
	}
}

func TestSimilar_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.search.similarFn = func(context.Context, *request.Similar) ([]result.Result, error) {
		return nil, fmt.Errorf("get media: %w", domain.ErrNotFound)
	}

	rr := env.do(http.MethodGet, "/api/v1/media/missing/similar", "")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rr.Code)
	}
	if resp := decodeBody[ErrorResponse](t, rr); resp.Code != CodeNotFound {
		t.Errorf("code %q", resp.Code)
	}
}

func TestCreateMedia_Created(t *testing.T) {
	env := newTestEnv(t)
	var got dommedia.Draft
	env.media.createFn = func(_ context.Context, d dommedia.Draft) (*dommedia.Item, error) {
		got = d
		item := sampleItem("m-42")
		return &item, nil
	}

	rr := env.do(http.MethodPost, "/api/v1/media",
		`{"type":"MOVIE","title":"Groundhog Day","releaseYear":1993,"tags":["Time Loop","comedy"]}`)

	if rr.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/api/v1/media/m-42" {
		t.Errorf("Location = %q", loc)
	}
	if got.Type != dommedia.TypeMovie || got.ReleaseYear != 1993 || len(got.Tags) != 2 {
		t.Errorf("unexpected draft: %+v", got)
	}
	resp := decodeBody[MediaV1](t, rr)
	if resp.ID != "m-42" || !resp.HasEmbedding || resp.Tags[0].Category != "THEME" {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestCreateMedia_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing title", `{"type":"MOVIE"}`, "title"},
		{"bad type", `{"type":"PODCAST","title":"x"}`, "type"},
		{"year out of range", `{"type":"BOOK","title":"x","releaseYear":1500}`, "releaseYear"},
		{"bad poster", `{"type":"BOOK","title":"x","posterUrl":"nope"}`, "posterUrl"},
		{"blank tag", `{"type":"BOOK","title":"x","tags":[""]}`, "tags[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rr := env.do(http.MethodPost, "/api/v1/media", tt.body)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400", rr.Code)
			}
			resp := decodeBody[ErrorResponse](t, rr)
			if _, ok := resp.Fields[tt.field]; !ok {
				t.Errorf("expected field %q, got %v", tt.field, resp.Fields)
			}
		})
	}
}

func TestGetMedia(t *testing.T) {
	env := newTestEnv(t)
	env.media.getFn = func(_ context.Context, id string) (*dommedia.Item, error) {
		if id != "m-1" {
			return nil, domain.ErrNotFound
		}
		item := sampleItem(id)
		return &item, nil
	}

	rr := env.do(http.MethodGet, "/api/v1/media/m-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if resp := decodeBody[MediaV1](t, rr); resp.Title != "Groundhog Day" || resp.ExternalID != "tmdb:movie:137" {
		t.Errorf("unexpected body: %+v", resp)
	}

	if rr := env.do(http.MethodGet, "/api/v1/media/m-2", ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing item: got %d, want 404", rr.Code)
	}
}

func TestSearchMedia(t *testing.T) {
	env := newTestEnv(t)
	var gotQ string
	var gotType dommedia.Type
	var gotLimit, gotOffset int
	env.media.searchFn = func(_ context.Context, q string, typ dommedia.Type, limit, offset int) (dommedia.Page, error) {
		gotQ, gotType, gotLimit, gotOffset = q, typ, limit, offset
		item := sampleItem("m-1")
		return dommedia.Page{Items: []dommedia.Item{item}, Total: 7}, nil
	}

	rr := env.do(http.MethodGet, "/api/v1/media/search?q=groundhog&type=MOVIE&limit=1&offset=2", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if gotQ != "groundhog" || gotType != dommedia.TypeMovie || gotLimit != 1 || gotOffset != 2 {
		t.Errorf("unexpected call: %q %q %d %d", gotQ, gotType, gotLimit, gotOffset)
	}
	resp := decodeBody[MediaPageResponse](t, rr)
	if resp.Total != 7 || len(resp.Items) != 1 || resp.Offset != 2 {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestSearchMedia_Validation(t *testing.T) {
	for _, q := range []string{"", "q=x&limit=0", "q=x&limit=51", "q=x&offset=-1", "q=x&type=RADIO", "q=x&offset=abc"} {
		env := newTestEnv(t)
		rr := env.do(http.MethodGet, "/api/v1/media/search?"+q, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%q: got %d, want 400", q, rr.Code)
		}
	}
}

func TestProviderUnavailableMapsTo502(t *testing.T) {
	env := newTestEnv(t)
	env.media.createFn = func(context.Context, dommedia.Draft) (*dommedia.Item, error) {
		return nil, fmt.Errorf("create: %w", domain.ErrProviderUnavailable)
	}

	rr := env.do(http.MethodPost, "/api/v1/media", `{"type":"GAME","title":"Outer Wilds"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want 502", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		env := newTestEnv(t)
		env.health.report = healthuc.Report{
			Status: tt.status,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}

		rr := env.do(http.MethodGet, "/health", "")
		if rr.Code != tt.want {
			t.Errorf("%s: got %d, want %d", tt.status, rr.Code, tt.want)
		}
		resp := decodeBody[HealthResponse](t, rr)
		if resp.Status != string(tt.status) || resp.Checks["database"] != "ok" {
			t.Errorf("unexpected body: %+v", resp)
		}
	}
}

func TestRouter_AuthAndExemptions(t *testing.T) {
	env := newTestEnv(t, "secret")

	if rr := env.do(http.MethodGet, "/api/v1/media/m-1", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("api without token: got %d, want 401", rr.Code)
	}
	if rr := env.do(http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("health: got %d, want 200", rr.Code)
	}
	if rr := env.do(http.MethodGet, "/metrics", ""); rr.Code != http.StatusOK {
		t.Errorf("metrics: got %d, want 200", rr.Code)
	}
}

func TestRouter_RequestIDAndNotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/api/v2/nothing", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestRouter_PanicRecovered(t *testing.T) {
	env := newTestEnv(t)
	env.media.getFn = func(context.Context, string) (*dommedia.Item, error) {
		panic("boom")
	}

	rr := env.do(http.MethodGet, "/api/v1/media/m-1", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rr.Code)
	}
	if resp := decodeBody[ErrorResponse](t, rr); resp.Code != CodeInternalError {
		t.Errorf("code %q", resp.Code)
	}
}
