package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	detectors BackendReporter
}

// New creates a Service. detectors can be nil.
func New(db DBPinger, detectors BackendReporter) *Service {
	return &Service{db: db, detectors: detectors}
}

// Check runs health checks against the database and each detector backend.
// An unavailable detector degrades the report but never fails it outright;
// the service keeps working without detection.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.detectors != nil {
		for name, available := range s.detectors.Backends() {
			if available {
				checks["detector:"+name] = CheckOK
			} else {
				checks["detector:"+name] = CheckError
			}
		}
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
