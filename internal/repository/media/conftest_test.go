package media

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	dommedia "github.com/kailas-cloud/cinemuse/internal/domain/media"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	gdb, err := Open(OpenOptions{
		DSN:          filepath.Join(t.TempDir(), "corpus.db"),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("open test corpus: %v", err)
	}
	t.Cleanup(func() { _ = Close(gdb) })
	return New(gdb)
}

func mustCreate(t *testing.T, r *Repo, d dommedia.Draft) *dommedia.Item {
	t.Helper()
	item, err := r.Create(context.Background(), d)
	if err != nil {
		t.Fatalf("create %q: %v", d.Title, err)
	}
	return item
}
