package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
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

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type namedCheck struct {
	name    string
	checker Checker
}

// Service coordinates health checks.
type Service struct {
	checks  []namedCheck
	timeout time.Duration
}

// New creates a Service. index and embedding can be nil.
func New(db DBPinger, index IndexChecker, embedding EmbeddingChecker) *Service {
	s := &Service{timeout: DefaultCheckTimeout}
	s.Register("database", CheckerFunc(db.Ping))
	if index != nil {
		s.Register("index", CheckerFunc(index.Ready))
	}
	if embedding != nil {
		s.Register("embedding", CheckerFunc(embedding.HealthCheck))
	}
	return s
}

// Register adds a named check.
func (s *Service) Register(name string, c Checker) {
	s.checks = append(s.checks, namedCheck{name: name, checker: c})
}

// WithTimeout sets the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs all checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.checks))

	var g errgroup.Group
	for i, c := range s.checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := c.checker.Check(cctx); err != nil {
				results[i] = CheckError
			} else {
				results[i] = CheckOK
			}
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]CheckResult, len(s.checks))
	failed := 0
	for i, c := range s.checks {
		checks[c.name] = results[i]
		if results[i] == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == len(s.checks) && failed > 0:
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}
