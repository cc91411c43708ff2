package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	"github.com/kailas-cloud/cinemuse/internal/domain/media"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/result"
)

const relivesQuery = "lives the same day over and over"

func resultIDs(rs []result.Result) []string {
	out := make([]string, 0, len(rs))
	for i := range rs {
		out = append(out, rs[i].ID())
	}
	return out
}

func TestMemorySearch_ExpanderFailureKeepsRawQuery(t *testing.T) {
	corpus := newFakeCorpus(
		newItem("m-1", media.TypeMovie, "Groundhog Day", "A weatherman lives the same day over and over.", nil, media.Embedding{}),
	)
	svc := New(corpus, nil, nil, expandTo(), zap.NewNop())

	got, err := svc.MemorySearch(context.Background(), mustMemory(t, relivesQuery, "", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID() != "m-1" || got[0].Score() != QueryScore {
		t.Fatalf("expected m-1 at %v, got %+v", QueryScore, got)
	}
	if len(corpus.searched) != 1 || corpus.searched[0] != relivesQuery {
		t.Errorf("expected a single search for the raw query, got %v", corpus.searched)
	}
}

func TestMemorySearch_NilExpander(t *testing.T) {
	corpus := newFakeCorpus(
		newItem("m-1", media.TypeMovie, "Groundhog Day", "A weatherman lives the same day over and over.", nil, media.Embedding{}),
	)
	svc := New(corpus, nil, nil, nil, zap.NewNop())

	got, err := svc.MemorySearch(context.Background(), mustMemory(t, relivesQuery, "", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
}

func TestMemorySearch_QueryScoreWinsEvenWhenExpansionFinishesFirst(t *testing.T) {
	corpus := newFakeCorpus(
		newItem("m-1", media.TypeMovie, "Groundhog Day", "A weatherman lives the same day over and over.", nil, media.Embedding{}),
	)
	expansionDone := make(chan struct{})
	corpus.searchFn = func(ctx context.Context, term string, typ media.Type, limit int) (media.Page, error) {
		if term == relivesQuery {
			select {
			case <-expansionDone:
			case <-ctx.Done():
				return media.Page{}, ctx.Err()
			}
		}
		page := corpus.match(term, typ, limit)
		if term == "Groundhog Day" {
			close(expansionDone)
		}
		return page, nil
	}
	svc := New(corpus, nil, nil, expandTo("Groundhog Day"), zap.NewNop())

	got, err := svc.MemorySearch(context.Background(), mustMemory(t, relivesQuery, "", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the duplicate to be merged, got %v", resultIDs(got))
	}
	if got[0].Score() != QueryScore {
		t.Errorf("expected score %v, got %v", QueryScore, got[0].Score())
	}
}

func TestMemorySearch_LimitKeepsInsertionOrder(t *testing.T) {
	var items []media.Item
	for i := 1; i <= 3; i++ {
		items = append(items, newItem(fmt.Sprintf("q-%d", i), media.TypeMovie,
			fmt.Sprintf("Loop %d", i), "he "+relivesQuery, nil, media.Embedding{}))
	}
	for i := 1; i <= 5; i++ {
		items = append(items, newItem(fmt.Sprintf("e-%d", i), media.TypeShow,
			fmt.Sprintf("Time loop show %d", i), "", nil, media.Embedding{}))
	}
	corpus := newFakeCorpus(items...)
	svc := New(corpus, nil, nil, expandTo("time loop"), zap.NewNop())

	got, err := svc.MemorySearch(context.Background(), mustMemory(t, relivesQuery, "", 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"q-1", "q-2", "q-3", "e-1", "e-2"}
	ids := resultIDs(got)
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i, r := range got {
		wantScore := QueryScore
		if i >= 3 {
			wantScore = ExpansionScore
		}
		if r.Score() != wantScore {
			t.Errorf("result %d (%s): score %v, want %v", i, r.ID(), r.Score(), wantScore)
		}
	}
}

func TestMemorySearch_DeduplicatesTerms(t *testing.T) {
	corpus := newFakeCorpus()
	svc := New(corpus, nil, nil, expandTo(relivesQuery, " Time Loop ", "time loop", ""), zap.NewNop())

	if _, err := svc.MemorySearch(context.Background(), mustMemory(t, relivesQuery, "", 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(corpus.searched) != 2 {
		t.Errorf("expected 2 distinct term searches, got %v", corpus.searched)
	}
}

func TestMemorySearch_TypeFilterApplied(t *testing.T) {
	corpus := newFakeCorpus(
		newItem("m-1", media.TypeMovie, "Groundhog Day", "he "+relivesQuery, nil, media.Embedding{}),
		newItem("s-1", media.TypeShow, "Russian Doll", "she "+relivesQuery, nil, media.Embedding{}),
	)
	svc := New(corpus, nil, nil, expandTo(), zap.NewNop())

	got, err := svc.MemorySearch(context.Background(), mustMemory(t, relivesQuery, media.TypeShow, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := resultIDs(got); len(ids) != 1 || ids[0] != "s-1" {
		t.Errorf("expected [s-1], got %v", ids)
	}
}

func TestMemorySearch_TermErrorFallsBackToKeyword(t *testing.T) {
	corpus := newFakeCorpus(
		newItem("m-1", media.TypeMovie, "Groundhog Day", "A weatherman lives the same day over and over.", nil, media.Embedding{}),
	)
	corpus.searchFn = func(_ context.Context, term string, typ media.Type, limit int) (media.Page, error) {
		if term == "time loop" {
			return media.Page{}, errors.New("database is locked")
		}
		return corpus.match(term, typ, limit), nil
	}
	svc := New(corpus, nil, nil, expandTo("time loop"), zap.NewNop())

	got, err := svc.MemorySearch(context.Background(), mustMemory(t, relivesQuery, "", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Score() != FallbackScore {
		t.Fatalf("expected one fallback result at %v, got %+v", FallbackScore, got)
	}
}

func TestMemorySearch_PanicFallsBackToKeyword(t *testing.T) {
	corpus := newFakeCorpus(
		newItem("m-1", media.TypeMovie, "Groundhog Day", "A weatherman lives the same day over and over.", nil, media.Embedding{}),
	)
	exp := stubExpander{fn: func(context.Context, string) []string { panic("nil map") }}
	svc := New(corpus, nil, nil, exp, zap.NewNop())

	got, err := svc.MemorySearch(context.Background(), mustMemory(t, relivesQuery, "", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Score() != FallbackScore {
		t.Fatalf("expected fallback result, got %+v", got)
	}
}

func TestMemorySearch_TermPanicFallsBackToKeyword(t *testing.T) {
	corpus := newFakeCorpus(
		newItem("m-1", media.TypeMovie, "Groundhog Day", "A weatherman lives the same day over and over.", nil, media.Embedding{}),
	)
	corpus.searchFn = func(_ context.Context, term string, typ media.Type, limit int) (media.Page, error) {
		if term == "time loop" {
			panic("boom")
		}
		return corpus.match(term, typ, limit), nil
	}
	svc := New(corpus, nil, nil, expandTo("time loop"), zap.NewNop(), WithTermConcurrency(1))

	got, err := svc.MemorySearch(context.Background(), mustMemory(t, relivesQuery, "", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Score() != FallbackScore {
		t.Fatalf("expected fallback result, got %+v", got)
	}
}

func TestMemorySearch_FallbackErrorReturned(t *testing.T) {
	corpus := newFakeCorpus()
	corpus.searchFn = func(context.Context, string, media.Type, int) (media.Page, error) {
		return media.Page{}, fmt.Errorf("%w: disk I/O error", domain.ErrInternal)
	}
	svc := New(corpus, nil, nil, expandTo(), zap.NewNop())

	_, err := svc.MemorySearch(context.Background(), mustMemory(t, relivesQuery, "", 0))
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}

func TestMemorySearch_EmptyWithoutColdStart(t *testing.T) {
	svc := New(newFakeCorpus(), nil, nil, expandTo("time loop"), zap.NewNop())

	got, err := svc.MemorySearch(context.Background(), mustMemory(t, relivesQuery, "", 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestUniqueTerms(t *testing.T) {
	got := uniqueTerms([]string{"Dune", " dune ", "", "Arrival", "  "})
	if fmt.Sprint(got) != "[Dune Arrival]" {
		t.Errorf("got %v", got)
	}
}
