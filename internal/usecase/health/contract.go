package health

import "context"

// DBPinger checks corpus database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an optional dependency (vector index, embedding provider, catalog).
type Checker interface {
	HealthCheck(ctx context.Context) error
}
