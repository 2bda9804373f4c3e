package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// BackendReporter reports detector backend availability by name.
type BackendReporter interface {
	Backends() map[string]bool
}
