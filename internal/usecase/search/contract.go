package search

import (
	"context"

	"github.com/fieldstash/toolscout/internal/domain/catalog"
)

// Repository defines the storage contract for search operations. Both
// methods return the full candidate set; filtering, ordering, and the
// result limit are applied here so a partial scan can never drop closer
// or better-matching entries.
type Repository interface {
	All(ctx context.Context) ([]catalog.Entry, error)
	GeoRadius(ctx context.Context, lat, lon, radiusMeters float64) ([]catalog.Entry, error)
}
