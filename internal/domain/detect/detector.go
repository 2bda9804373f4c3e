package detect

import "context"

// Detector is the capability contract for one vision inference backend:
// image bytes in, observations out. Implementations never return a transport
// error for recoverable conditions (empty detection, timeout, malformed model
// response); they report the reason on the Outcome instead, so fusion always
// has a well-defined input. A backend that failed to initialize stays
// permanently unavailable and produces degraded outcomes.
type Detector interface {
	// Name identifies the backend in logs, metrics, and response metadata.
	Name() string

	// Available reports whether the backend initialized successfully.
	Available() bool

	// Detect scores the image. The call must honor ctx cancellation.
	Detect(ctx context.Context, image []byte) Outcome
}

// Outcome is what one backend produced for one image.
type Outcome struct {
	backend      string
	observations []Observation
	degraded     string
}

// NewOutcome creates a clean outcome for a backend run.
func NewOutcome(backend string, observations []Observation) Outcome {
	return Outcome{backend: backend, observations: observations}
}

// DegradedOutcome creates an empty outcome carrying the reason the backend
// could not contribute (timeout, unavailable, malformed response).
func DegradedOutcome(backend, reason string) Outcome {
	return Outcome{backend: backend, degraded: reason}
}

// Backend returns the producing backend's name.
func (o Outcome) Backend() string { return o.backend }

// Observations returns the emitted observations. Empty is a valid result.
func (o Outcome) Observations() []Observation { return o.observations }

// Degraded returns the degradation reason, or "" for a clean run.
func (o Outcome) Degraded() string { return o.degraded }

// IsDegraded reports whether the backend failed to contribute this call.
func (o Outcome) IsDegraded() bool { return o.degraded != "" }
