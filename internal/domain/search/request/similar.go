package request

import (
	"fmt"

	"github.com/kailas-cloud/cinemuse/internal/domain"
)

// Similar is a validated "more like this" query.
type Similar struct {
	id         string
	limit      int
	crossMedia bool
}

// NewSimilar validates similar-items parameters. limit 0 selects the default.
func NewSimilar(id string, limit int, crossMedia bool) (Similar, error) {
	if id == "" {
		return Similar{}, fmt.Errorf("%w: media id is required", domain.ErrInput)
	}
	limit, err := normalizeLimit(limit, DefaultSimilarLimit)
	if err != nil {
		return Similar{}, err
	}
	return Similar{id: id, limit: limit, crossMedia: crossMedia}, nil
}

// ID returns the source item id.
func (r *Similar) ID() string { return r.id }

// Limit returns the maximum results to return.
func (r *Similar) Limit() int { return r.limit }

// CrossMedia reports whether results may have a different type than the source.
func (r *Similar) CrossMedia() bool { return r.crossMedia }
