package search

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	"github.com/kailas-cloud/cinemuse/internal/domain/catalog"
	"github.com/kailas-cloud/cinemuse/internal/domain/media"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/filter"
	"github.com/kailas-cloud/cinemuse/internal/domain/search/request"
	domvec "github.com/kailas-cloud/cinemuse/internal/domain/vector"
)

// --- Mocks ---

// fakeCorpus is an in-memory corpus with substring search. searchFn overrides Search.
type fakeCorpus struct {
	mu       sync.Mutex
	items    []media.Item
	searched []string

	searchFn func(ctx context.Context, term string, typ media.Type, limit int) (media.Page, error)
}

func newFakeCorpus(items ...media.Item) *fakeCorpus {
	return &fakeCorpus{items: items}
}

func (c *fakeCorpus) add(item media.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

func (c *fakeCorpus) snapshot() []media.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

func (c *fakeCorpus) Get(_ context.Context, id string) (*media.Item, error) {
	for _, it := range c.snapshot() {
		if it.ID() == id {
			return &it, nil
		}
	}
	return nil, fmt.Errorf("media %q: %w", id, domain.ErrNotFound)
}

func (c *fakeCorpus) GetMany(_ context.Context, ids []string) ([]media.Item, error) {
	items := c.snapshot()
	out := make([]media.Item, 0, len(ids))
	for _, id := range ids {
		for _, it := range items {
			if it.ID() == id {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

func (c *fakeCorpus) Search(ctx context.Context, term string, typ media.Type, limit, _ int) (media.Page, error) {
	c.mu.Lock()
	c.searched = append(c.searched, term)
	c.mu.Unlock()

	if c.searchFn != nil {
		return c.searchFn(ctx, term, typ, limit)
	}
	return c.match(term, typ, limit), nil
}

func (c *fakeCorpus) match(term string, typ media.Type, limit int) media.Page {
	needle := strings.ToLower(term)
	var page media.Page
	for _, it := range c.snapshot() {
		if typ != "" && it.Type() != typ {
			continue
		}
		if !strings.Contains(strings.ToLower(it.Title()), needle) &&
			!strings.Contains(strings.ToLower(it.Description()), needle) {
			continue
		}
		page.Total++
		if len(page.Items) < limit {
			page.Items = append(page.Items, it)
		}
	}
	return page
}

func (c *fakeCorpus) FindByTitle(_ context.Context, title string, typ media.Type) (*media.Item, error) {
	for _, it := range c.snapshot() {
		if strings.EqualFold(it.Title(), title) && it.Type() == typ {
			return &it, nil
		}
	}
	return nil, fmt.Errorf("media %q: %w", title, domain.ErrNotFound)
}

func (c *fakeCorpus) ListWithEmbeddings(_ context.Context, q media.EmbeddingQuery) ([]media.Item, error) {
	var out []media.Item
	for _, it := range c.snapshot() {
		emb := it.Embedding()
		if emb.Empty() || emb.ModelVersion() != q.ModelVersion || emb.Dimensions() != q.Dimensions {
			continue
		}
		if (q.Type != "" && it.Type() != q.Type) || it.ID() == q.ExcludeID {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (c *fakeCorpus) ListByTags(_ context.Context, q media.TagQuery) ([]media.Item, error) {
	var out []media.Item
	for _, it := range c.snapshot() {
		if (q.Type != "" && it.Type() != q.Type) || it.ID() == q.ExcludeID {
			continue
		}
		shared := false
		for _, name := range it.TagNames() {
			if slices.Contains(q.Tags, name) {
				shared = true
			}
		}
		if !shared {
			continue
		}
		out = append(out, it)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

type fakeIndex struct {
	available bool
	matches   []domvec.Match
	err       error

	lastTopK  int
	lastQuery filter.MediaQuery
	queried   bool
}

func (f *fakeIndex) Available(_ context.Context) bool { return f.available }

func (f *fakeIndex) Query(_ context.Context, _ []float32, topK int, q filter.MediaQuery) ([]domvec.Match, error) {
	f.queried = true
	f.lastTopK = topK
	f.lastQuery = q
	return f.matches, f.err
}

type fakeModels struct{ version string }

func (f fakeModels) ModelVersion() string { return f.version }

type stubExpander struct {
	fn func(ctx context.Context, query string) []string
}

func (s stubExpander) Expand(ctx context.Context, query string) []string { return s.fn(ctx, query) }

func expandTo(terms ...string) stubExpander {
	return stubExpander{fn: func(_ context.Context, q string) []string {
		if len(terms) == 0 {
			return []string{q}
		}
		return terms
	}}
}

type fakeCatalog struct {
	mu      sync.Mutex
	records map[string]catalog.Record
	errs    map[string]error
	lookups []string
}

func (f *fakeCatalog) SearchMulti(_ context.Context, title string) (catalog.Record, bool, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, title)
	f.mu.Unlock()

	if err := f.errs[title]; err != nil {
		return catalog.Record{}, false, err
	}
	rec, ok := f.records[title]
	return rec, ok, nil
}

// fakeImporter stores drafts straight into the corpus.
type fakeImporter struct {
	corpus *fakeCorpus
	calls  int
	err    error
}

func (f *fakeImporter) Create(_ context.Context, d media.Draft) (*media.Item, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	item := media.Reconstruct(
		fmt.Sprintf("imp-%d", f.calls), d.Type, d.Title, d.Description, d.ReleaseYear,
		d.Language, d.PosterURL, d.ExternalID, time.Now(), nil, media.Embedding{},
	)
	f.corpus.add(item)
	return &item, nil
}

// --- Helpers ---

func newItem(id string, typ media.Type, title, description string, tags []string, emb media.Embedding) media.Item {
	ts := make([]media.Tag, 0, len(tags))
	for _, name := range tags {
		ts = append(ts, media.NewTag(name, media.CategoryGenre))
	}
	return media.Reconstruct(id, typ, title, description, 0, "", "", "", time.Time{}, ts, emb)
}

func mustMemory(t *testing.T, query string, typ media.Type, limit int) *request.Memory {
	t.Helper()
	req, err := request.NewMemory(query, typ, limit)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	return &req
}

func mustSimilar(t *testing.T, id string, limit int, crossMedia bool) *request.Similar {
	t.Helper()
	req, err := request.NewSimilar(id, limit, crossMedia)
	if err != nil {
		t.Fatalf("NewSimilar: %v", err)
	}
	return &req
}
