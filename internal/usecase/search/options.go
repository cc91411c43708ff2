package search

// DefaultTermConcurrency bounds parallel per-term keyword searches.
const DefaultTermConcurrency = 4

// Option configures the search service.
type Option func(*Service)

// WithColdStart enables external catalog import when local search finds nothing.
func WithColdStart(c Catalog, imp Importer) Option {
	return func(s *Service) {
		s.catalog = c
		s.importer = imp
	}
}

// WithTermConcurrency sets how many term searches run at once. n <= 0 keeps the default.
func WithTermConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.termConcurrency = n
		}
	}
}

// WithIndexMargin sets how many extra neighbours a similar-items kNN query fetches. n <= 0 keeps the default.
func WithIndexMargin(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.indexMargin = n
		}
	}
}
