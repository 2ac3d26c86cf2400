// Package health aggregates readiness of the store, its search indexes and
// the embedding provider.
package health

import (
	"context"
	"fmt"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means queries still run, possibly on the keyword path only.
	Degraded Status = "degraded"
	// Unhealthy means the store is unreachable.
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

// Component names used as Report.Checks keys.
const (
	CheckDatabase  = "database"
	CheckEmbedding = "embedding"
)

const defaultTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	indexes   IndexLister
	names     []string
	embedding EmbeddingChecker
	timeout   time.Duration
}

// New creates a Service. embedding can be nil. Each of indexNames is
// checked through indexes when indexes is non-nil.
func New(db DBPinger, indexes IndexLister, embedding EmbeddingChecker, indexNames ...string) *Service {
	return &Service{
		db:        db,
		indexes:   indexes,
		names:     indexNames,
		embedding: embedding,
		timeout:   defaultTimeout,
	}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks[CheckDatabase] = CheckError
		// Index lookups would fail the same way.
		return Report{Status: Unhealthy, Checks: checks}
	}
	checks[CheckDatabase] = CheckOK

	if s.indexes != nil {
		for _, name := range s.names {
			checks[indexCheck(name)] = result(s.indexReady(ctx, name))
		}
	}

	if s.embedding != nil {
		checks[CheckEmbedding] = result(s.embedding.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) indexReady(ctx context.Context, name string) error {
	ok, err := s.indexes.IndexExists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("index %s missing", name)
	}
	return nil
}

func indexCheck(name string) string { return "index:" + name }

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
