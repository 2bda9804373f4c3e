// Package search answers hybrid text+geo queries against the catalog with
// one consistent ordering and relevance policy.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fieldstash/toolscout/internal/domain"
	"github.com/fieldstash/toolscout/internal/domain/catalog"
	"github.com/fieldstash/toolscout/internal/domain/fusion"
	"github.com/fieldstash/toolscout/internal/domain/geo"
	domsearch "github.com/fieldstash/toolscout/internal/domain/search"
)

// Service executes hybrid searches.
type Service struct {
	repo Repository
}

// New creates a search service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search evaluates the query policy in order: text or reference-tag filter,
// geo filter, ordering, then the limit. Ordering modes are mutually
// exclusive: a query point orders by ascending distance, otherwise entries
// come back newest first. The limit is applied strictly last.
func (s *Service) Search(ctx context.Context, q domsearch.Query) (domsearch.Result, error) {
	if q.Similarity() && len(q.ReferenceTags()) == 0 {
		// Distinguish "nothing to match" from "nothing matched".
		return domsearch.Result{}, domain.ErrNoReferenceTags
	}

	candidates, err := s.candidates(ctx, q)
	if err != nil {
		return domsearch.Result{}, err
	}

	matched := make([]catalog.Entry, 0, len(candidates))
	terms := searchTerms(q)
	for _, entry := range candidates {
		if len(terms) > 0 && !matchesAny(entry, terms) {
			continue
		}
		if q.HasLocation() && distanceTo(entry, q) > q.RadiusMeters() {
			continue
		}
		matched = append(matched, entry)
	}

	if q.HasLocation() {
		sort.SliceStable(matched, func(i, j int) bool {
			return distanceTo(matched[i], q) < distanceTo(matched[j], q)
		})
	} else {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].CreatedAt().After(matched[j].CreatedAt())
		})
	}

	if len(matched) > q.Limit() {
		matched = matched[:q.Limit()]
	}

	return domsearch.NewResult(matched, q), nil
}

func (s *Service) candidates(ctx context.Context, q domsearch.Query) ([]catalog.Entry, error) {
	if q.HasLocation() {
		entries, err := s.repo.GeoRadius(ctx, q.Latitude(), q.Longitude(), q.RadiusMeters())
		if err != nil {
			return nil, fmt.Errorf("geo candidates: %w", err)
		}
		return entries, nil
	}
	entries, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan candidates: %w", err)
	}
	return entries, nil
}

// searchTerms builds the term set for the text filter. For a free-text
// query it is the normalized term plus each whitespace token longer than
// one rune; for a similarity query it is each reference tag plus the words
// obtained by splitting tags on hyphen, underscore, comma, and space. The
// match is deliberately permissive (substring, not exact) so partial tool
// names still hit ("drill" matches "cordless drill driver").
func searchTerms(q domsearch.Query) []string {
	if q.Similarity() {
		return similarityTerms(q.ReferenceTags())
	}
	term := fusion.Normalize(q.Term())
	if term == "" {
		return nil
	}
	terms := []string{term}
	for _, token := range strings.Fields(term) {
		if len([]rune(token)) > 1 && token != term {
			terms = append(terms, token)
		}
	}
	return terms
}

func similarityTerms(tags []string) []string {
	seen := make(map[string]bool)
	var terms []string
	add := func(t string) {
		t = fusion.Normalize(t)
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		terms = append(terms, t)
	}
	for _, tag := range tags {
		add(tag)
		words := strings.FieldsFunc(tag, func(r rune) bool {
			return r == '-' || r == '_' || r == ',' || r == ' '
		})
		for _, w := range words {
			if len([]rune(w)) > 1 {
				add(w)
			}
		}
	}
	return terms
}

// matchesAny reports whether any term is a substring of the entry's
// concatenated, normalized tag list.
func matchesAny(entry catalog.Entry, terms []string) bool {
	var sb strings.Builder
	for i, label := range entry.Tags().Labels() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(fusion.Normalize(label))
	}
	joined := sb.String()
	for _, term := range terms {
		if strings.Contains(joined, term) {
			return true
		}
	}
	return false
}

func distanceTo(entry catalog.Entry, q domsearch.Query) float64 {
	return geo.Distance(q.Latitude(), q.Longitude(), entry.Latitude(), entry.Longitude())
}
