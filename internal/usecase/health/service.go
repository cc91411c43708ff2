package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional dependency is down; search keeps working on fallbacks.
	Degraded Status = "degraded"
	// Unhealthy indicates the corpus database is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const checkDatabase = "database"

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db       DBPinger
	checkers map[string]Checker
	timeout  time.Duration
}

// New creates a Service. Nil checkers are skipped.
func New(db DBPinger, checkers map[string]Checker) *Service {
	active := make(map[string]Checker, len(checkers))
	for name, c := range checkers {
		if c != nil {
			active[name] = c
		}
	}
	return &Service{db: db, checkers: active, timeout: DefaultCheckTimeout}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checkers)+1)

	status := Healthy
	if err := s.run(ctx, s.db.Ping); err != nil {
		checks[checkDatabase] = CheckError
		status = Unhealthy
	} else {
		checks[checkDatabase] = CheckOK
	}

	for name, c := range s.checkers {
		if err := s.run(ctx, c.HealthCheck); err != nil {
			checks[name] = CheckError
			if status == Healthy {
				status = Degraded
			}
			continue
		}
		checks[name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return check(ctx)
}
