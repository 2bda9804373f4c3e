package search

import "github.com/fieldstash/toolscout/internal/domain/catalog"

// Result is an ordered, limited sequence of catalog entries plus the echoed
// query parameters for client display. Every entry references a live
// catalog record; nothing is invented.
type Result struct {
	entries []catalog.Entry
	total   int
	query   Query
}

// NewResult creates a search result for the given query.
func NewResult(entries []catalog.Entry, query Query) Result {
	return Result{entries: entries, total: len(entries), query: query}
}

// Entries returns the ranked entries.
func (r Result) Entries() []catalog.Entry { return r.entries }

// Total returns the number of returned entries.
func (r Result) Total() int { return r.total }

// Query returns the echoed query parameters.
func (r Result) Query() Query { return r.query }
