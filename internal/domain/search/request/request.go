package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/cinemuse/internal/domain"
	"github.com/kailas-cloud/cinemuse/internal/domain/media"
)

// Request parameter limits.
const (
	MinQueryLength      = 10
	MaxQueryLength      = 1000
	DefaultMemoryLimit  = 10
	DefaultSimilarLimit = 5
	MaxLimit            = 20
)

// Memory is a validated free-text "what was that thing" query.
type Memory struct {
	query string
	typ   media.Type
	limit int
}

// NewMemory validates and normalizes memory search parameters.
// limit 0 selects the default; typ "" means any type.
func NewMemory(query string, typ media.Type, limit int) (Memory, error) {
	query = strings.TrimSpace(query)
	n := utf8.RuneCountInString(query)
	if n < MinQueryLength {
		return Memory{}, fmt.Errorf("%w: query must be at least %d characters", domain.ErrInput, MinQueryLength)
	}
	if n > MaxQueryLength {
		return Memory{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInput, MaxQueryLength)
	}
	if typ != "" && !typ.Valid() {
		return Memory{}, fmt.Errorf("%w: unknown media type %q", domain.ErrInput, typ)
	}
	limit, err := normalizeLimit(limit, DefaultMemoryLimit)
	if err != nil {
		return Memory{}, err
	}
	return Memory{query: query, typ: typ, limit: limit}, nil
}

// Query returns the trimmed query text.
func (r *Memory) Query() string { return r.query }

// Type returns the optional media type filter.
func (r *Memory) Type() media.Type { return r.typ }

// Limit returns the maximum results to return.
func (r *Memory) Limit() int { return r.limit }

func normalizeLimit(limit, def int) (int, error) {
	if limit == 0 {
		return def, nil
	}
	if limit < 1 || limit > MaxLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d, got %d", domain.ErrInput, MaxLimit, limit)
	}
	return limit, nil
}
