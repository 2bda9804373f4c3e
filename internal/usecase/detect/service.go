// Package detect orchestrates the configured detector backends and fuses
// their observations into one tag set per image.
package detect

import (
	"context"
	"time"

	"go.uber.org/zap"

	domdetect "github.com/fieldstash/toolscout/internal/domain/detect"
	"github.com/fieldstash/toolscout/internal/domain/fusion"
	"github.com/fieldstash/toolscout/internal/metrics"
)

// DefaultTimeout bounds a single backend call when none is configured.
const DefaultTimeout = 30 * time.Second

// Service fans an image out to every configured backend, bounds each call,
// and fuses the combined observations. Zero, one, or many backends may be
// wired in; fusion never branches on which backend contributed what.
type Service struct {
	detectors []domdetect.Detector
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a detection service.
func New(detectors []domdetect.Detector, logger *zap.Logger) *Service {
	return &Service{detectors: detectors, timeout: DefaultTimeout, logger: logger}
}

// WithTimeout overrides the per-backend call bound.
func (s *Service) WithTimeout(timeout time.Duration) *Service {
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

// Detect runs every backend against the image and returns the fused tag set
// together with the per-backend outcomes for response metadata. A backend
// that is unavailable or times out degrades to an empty contribution; an
// empty fused set is a valid "no tools detected" result, never an error.
func (s *Service) Detect(ctx context.Context, image []byte) (fusion.TagSet, []domdetect.Outcome) {
	outcomes := make([]domdetect.Outcome, 0, len(s.detectors))
	var observations []domdetect.Observation

	for _, d := range s.detectors {
		outcome := s.runBackend(ctx, d, image)
		outcomes = append(outcomes, outcome)
		observations = append(observations, outcome.Observations()...)
	}

	fused := fusion.Fuse(observations)
	s.logger.Debug("detection complete",
		zap.Int("backends", len(s.detectors)),
		zap.Int("observations", len(observations)),
		zap.Int("fused_tags", fused.Len()),
	)
	return fused, outcomes
}

// Backends reports the name and availability of each configured backend.
func (s *Service) Backends() map[string]bool {
	out := make(map[string]bool, len(s.detectors))
	for _, d := range s.detectors {
		out[d.Name()] = d.Available()
	}
	return out
}

func (s *Service) runBackend(ctx context.Context, d domdetect.Detector, image []byte) domdetect.Outcome {
	if !d.Available() {
		metrics.DetectionRequestsTotal.WithLabelValues(d.Name(), "unavailable").Inc()
		return domdetect.DegradedOutcome(d.Name(), "backend unavailable")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	outcome := d.Detect(callCtx, image)
	metrics.DetectionDuration.WithLabelValues(d.Name()).Observe(time.Since(start).Seconds())

	if outcome.IsDegraded() {
		metrics.DetectionRequestsTotal.WithLabelValues(d.Name(), "degraded").Inc()
		s.logger.Warn("detector degraded",
			zap.String("backend", d.Name()),
			zap.String("reason", outcome.Degraded()),
		)
		return outcome
	}

	metrics.DetectionRequestsTotal.WithLabelValues(d.Name(), "success").Inc()
	metrics.DetectionTagsTotal.WithLabelValues(d.Name()).Add(float64(len(outcome.Observations())))
	return outcome
}
