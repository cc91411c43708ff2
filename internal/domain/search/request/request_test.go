package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	"github.com/kailas-cloud/cinemuse/internal/domain/media"
)

func TestNewMemory_Defaults(t *testing.T) {
	r, err := NewMemory("  a movie where a man relives the same day  ", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "a movie where a man relives the same day" {
		t.Errorf("Query() = %q", r.Query())
	}
	if r.Limit() != DefaultMemoryLimit {
		t.Errorf("Limit() = %d, want %d", r.Limit(), DefaultMemoryLimit)
	}
	if r.Type() != "" {
		t.Errorf("Type() = %q, want empty", r.Type())
	}
}

func TestNewMemory_Validation(t *testing.T) {
	tests := []struct {
		name  string
		query string
		typ   media.Type
		limit int
	}{
		{"too short", "short", "", 0},
		{"too long", strings.Repeat("x", MaxQueryLength+1), "", 0},
		{"bad type", "long enough query text", "RADIO", 0},
		{"limit too big", "long enough query text", "", 21},
		{"negative limit", "long enough query text", "", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMemory(tt.query, tt.typ, tt.limit)
			if !errors.Is(err, domain.ErrInput) {
				t.Errorf("expected ErrInput, got %v", err)
			}
		})
	}
}

func TestNewMemory_CountsRunes(t *testing.T) {
	// 10 runes, 20 bytes
	if _, err := NewMemory("фильмпролю", media.TypeMovie, 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewSimilar(t *testing.T) {
	r, err := NewSimilar("m-1", 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit() != DefaultSimilarLimit || !r.CrossMedia() || r.ID() != "m-1" {
		t.Errorf("unexpected request: %+v", r)
	}

	if _, err := NewSimilar("", 5, true); !errors.Is(err, domain.ErrInput) {
		t.Errorf("expected ErrInput for empty id, got %v", err)
	}
	if _, err := NewSimilar("m-1", 50, false); !errors.Is(err, domain.ErrInput) {
		t.Errorf("expected ErrInput for limit 50, got %v", err)
	}
}
