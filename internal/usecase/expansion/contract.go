package expansion

import "context"

// LLM suggests search terms for a free-text query.
type LLM interface {
	Expand(ctx context.Context, query string) ([]string, error)
}
