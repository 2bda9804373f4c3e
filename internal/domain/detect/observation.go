package detect

import "fmt"

// Observation is a single (label, confidence) pair emitted by one backend
// for one image. It only exists between detection and fusion.
type Observation struct {
	label      string
	confidence float64
}

// NewObservation validates and creates an Observation.
// Confidence must lie in [0, 1].
func NewObservation(label string, confidence float64) (Observation, error) {
	if label == "" {
		return Observation{}, fmt.Errorf("label is required")
	}
	if confidence < 0 || confidence > 1 {
		return Observation{}, fmt.Errorf("confidence %v out of range [0,1]", confidence)
	}
	return Observation{label: label, confidence: confidence}, nil
}

// Label returns the raw label as the backend emitted it.
func (o Observation) Label() string { return o.label }

// Confidence returns the backend's confidence score.
func (o Observation) Confidence() float64 { return o.confidence }
