// Package fusion merges the observations of one or more detector backends
// into a single deduplicated, confidence-ranked tag set.
package fusion

import (
	"sort"
	"strings"
	"unicode"

	"github.com/fieldstash/toolscout/internal/domain/detect"
)

// Tag is one fused label with the best confidence seen for it.
type Tag struct {
	label      string
	confidence float64
}

// Label returns the display label (casing from the first observation seen).
func (t Tag) Label() string { return t.label }

// Confidence returns the maximum confidence across all contributing observations.
func (t Tag) Confidence() float64 { return t.confidence }

// TagSet is the fused result for one image: unique by normalized label,
// ordered by confidence descending with ties keeping first-seen order.
type TagSet struct {
	tags []Tag
}

// Tags returns the ordered fused tags.
func (s TagSet) Tags() []Tag { return s.tags }

// Len returns the number of distinct tags.
func (s TagSet) Len() int { return len(s.tags) }

// IsEmpty reports whether nothing was detected. An empty set is a valid
// "no tools detected" result, not an error.
func (s TagSet) IsEmpty() bool { return len(s.tags) == 0 }

// Labels returns the display labels in rank order.
func (s TagSet) Labels() []string {
	out := make([]string, len(s.tags))
	for i, t := range s.tags {
		out[i] = t.label
	}
	return out
}

// Confidences returns the confidence scores in rank order, parallel to Labels.
func (s TagSet) Confidences() []float64 {
	out := make([]float64, len(s.tags))
	for i, t := range s.tags {
		out[i] = t.confidence
	}
	return out
}

// Reconstruct rebuilds a TagSet from parallel label/confidence sequences
// (storage hydration, no re-fusion).
func Reconstruct(labels []string, confidences []float64) TagSet {
	tags := make([]Tag, 0, len(labels))
	for i, l := range labels {
		var c float64
		if i < len(confidences) {
			c = confidences[i]
		}
		tags = append(tags, Tag{label: l, confidence: c})
	}
	return TagSet{tags: tags}
}

// Normalize canonicalizes a label for deduplication and matching:
// lowercased with leading/trailing punctuation and whitespace stripped.
func Normalize(label string) string {
	return strings.TrimFunc(strings.ToLower(label), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

// Fuse merges observations from any number of backends into a TagSet.
// Pure: the same multiset of observations always produces the same set,
// regardless of which adapter contributed which observation. Labels are
// grouped by their normalized form; each group keeps the maximum confidence
// and the first-seen original casing. The result is sorted by confidence
// descending with a stable sort, so equal scores retain input order.
func Fuse(observations []detect.Observation) TagSet {
	if len(observations) == 0 {
		return TagSet{}
	}

	index := make(map[string]int, len(observations))
	tags := make([]Tag, 0, len(observations))

	for _, obs := range observations {
		key := Normalize(obs.Label())
		if key == "" {
			continue
		}
		if i, seen := index[key]; seen {
			if obs.Confidence() > tags[i].confidence {
				tags[i].confidence = obs.Confidence()
			}
			continue
		}
		index[key] = len(tags)
		tags = append(tags, Tag{label: obs.Label(), confidence: obs.Confidence()})
	}

	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].confidence > tags[j].confidence
	})

	return TagSet{tags: tags}
}
