// Package search defines the validated hybrid query and its result.
package search

import (
	"fmt"
	"strings"

	"github.com/fieldstash/toolscout/internal/domain"
	"github.com/fieldstash/toolscout/internal/domain/geo"
)

// Query parameter defaults and limits.
const (
	DefaultLimit        = 50
	MaxLimit            = 500
	DefaultRadiusMeters = 10_000
)

// Query is a validated hybrid search request: optional free-text term,
// optional geo circle, optional reference tag set (similarity mode).
type Query struct {
	term          string
	lat           float64
	lon           float64
	hasLocation   bool
	radiusMeters  float64
	limit         int
	referenceTags []string
	similarity    bool
}

// New validates and creates a text/geo query. lat and lon must be supplied
// together or not at all; a lone coordinate is a client error, as are
// out-of-range values (never silently clamped).
func New(term string, lat, lon *float64, radiusMeters float64, limit int) (Query, error) {
	q := Query{term: strings.TrimSpace(term)}
	if err := q.setLocation(lat, lon, radiusMeters); err != nil {
		return Query{}, err
	}
	q.limit = clampLimit(limit)
	return q, nil
}

// NewSimilar validates and creates a similarity query driven by the tags
// detected in a reference image. An empty tag slice is accepted here; the
// search service reports it as an explicit no-reference-tags condition so
// callers can tell "nothing to match" apart from "nothing matched".
func NewSimilar(referenceTags []string, lat, lon *float64, radiusMeters float64, limit int) (Query, error) {
	q := Query{similarity: true, referenceTags: referenceTags}
	if err := q.setLocation(lat, lon, radiusMeters); err != nil {
		return Query{}, err
	}
	q.limit = clampLimit(limit)
	return q, nil
}

func (q *Query) setLocation(lat, lon *float64, radiusMeters float64) error {
	if (lat == nil) != (lon == nil) {
		return fmt.Errorf("%w: latitude and longitude must be provided together", domain.ErrValidation)
	}
	if lat == nil {
		return nil
	}
	if !geo.Valid(*lat, *lon) {
		return fmt.Errorf("%w: latitude must be in [-90,90] and longitude in [-180,180]", domain.ErrValidation)
	}
	if radiusMeters < 0 {
		return fmt.Errorf("%w: radius must be positive", domain.ErrValidation)
	}
	if radiusMeters == 0 {
		radiusMeters = DefaultRadiusMeters
	}
	q.lat = *lat
	q.lon = *lon
	q.hasLocation = true
	q.radiusMeters = radiusMeters
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Term returns the free-text term ("" when absent).
func (q Query) Term() string { return q.term }

// HasLocation reports whether a geo circle was supplied.
func (q Query) HasLocation() bool { return q.hasLocation }

// Latitude returns the query point latitude (valid only when HasLocation).
func (q Query) Latitude() float64 { return q.lat }

// Longitude returns the query point longitude (valid only when HasLocation).
func (q Query) Longitude() float64 { return q.lon }

// RadiusMeters returns the geo filter radius (valid only when HasLocation).
func (q Query) RadiusMeters() float64 { return q.radiusMeters }

// Limit returns the result-size cap, defaulted and clamped.
func (q Query) Limit() int { return q.limit }

// Similarity reports whether this is an image-to-image query.
func (q Query) Similarity() bool { return q.similarity }

// ReferenceTags returns the tags of the reference image (similarity mode).
func (q Query) ReferenceTags() []string { return q.referenceTags }
