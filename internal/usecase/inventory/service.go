// Package inventory aggregates the catalog into per-tool counts and
// sighting locations. Summaries are recomputed from the store on every
// request rather than maintained incrementally, so they can never drift
// from the entries they describe.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldstash/toolscout/internal/domain/catalog"
	"github.com/fieldstash/toolscout/internal/domain/fusion"
)

// Repository provides the full entry set to fold over.
type Repository interface {
	All(ctx context.Context) ([]catalog.Entry, error)
}

// Sighting is one geolocated occurrence of a tool.
type Sighting struct {
	EntryID   string
	Latitude  float64
	Longitude float64
	SeenAt    time.Time
}

// Summary is the aggregated inventory view. Counts and Locations are keyed
// by normalized tag label; casing shown to clients comes from Labels.
type Summary struct {
	TotalEntries      int
	TotalDistinctTags int
	Counts            map[string]int
	Labels            map[string]string
	Locations         map[string][]Sighting
}

// Service computes inventory summaries.
type Service struct {
	repo Repository
}

// New creates an inventory service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Summarize folds the entire catalog into a Summary. Tags are counted once
// per entry under their normalized form; the first casing seen is kept for
// display.
func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	entries, err := s.repo.All(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load entries: %w", err)
	}

	sum := Summary{
		TotalEntries: len(entries),
		Counts:       make(map[string]int),
		Labels:       make(map[string]string),
		Locations:    make(map[string][]Sighting),
	}
	for _, entry := range entries {
		for _, label := range entry.Tags().Labels() {
			key := fusion.Normalize(label)
			if key == "" {
				continue
			}
			if _, ok := sum.Labels[key]; !ok {
				sum.Labels[key] = label
			}
			sum.Counts[key]++
			sum.Locations[key] = append(sum.Locations[key], Sighting{
				EntryID:   entry.ID(),
				Latitude:  entry.Latitude(),
				Longitude: entry.Longitude(),
				SeenAt:    entry.CreatedAt(),
			})
		}
	}
	sum.TotalDistinctTags = len(sum.Counts)
	return sum, nil
}
