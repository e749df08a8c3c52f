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
	// Degraded means the index answers but the object store does not.
	// Browsing and search work; media and harvesting do not.
	Degraded Status = "degraded"
	// Unhealthy means the search index is unavailable.
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

// Component names in Report.Checks.
const (
	ComponentSearch     = "search"
	ComponentRepository = "repository"
)

const checkTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	search     Pinger
	repository Pinger
}

// New creates a Service. repository can be nil.
func New(search, repository Pinger) *Service {
	return &Service{search: search, repository: repository}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		ComponentSearch: ping(ctx, s.search),
	}
	if s.repository != nil {
		checks[ComponentRepository] = ping(ctx, s.repository)
	}

	status := Healthy
	switch {
	case checks[ComponentSearch] == CheckError:
		status = Unhealthy
	case checks[ComponentRepository] == CheckError:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func ping(ctx context.Context, p Pinger) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
