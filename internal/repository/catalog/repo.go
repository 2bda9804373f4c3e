// Package catalog persists processed images in Redis hashes with an FT
// index providing the geo-radius predicate and the ordered scan.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldstash/toolscout/internal/db"
	"github.com/fieldstash/toolscout/internal/domain"
	domcat "github.com/fieldstash/toolscout/internal/domain/catalog"
)

// DefaultKeyPrefix namespaces all catalog keys.
const DefaultKeyPrefix = "toolscout:"

// pageSize bounds one FT.SEARCH reply. Scans page through the index until
// exhausted, so the candidate set stays complete at any catalog size.
// Filtering and the result limit are applied by the search service after
// the full candidate set is fetched, never by truncating the scan.
const pageSize = 1_000

// store is the consumer interface for catalog persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	Search(ctx context.Context, q *db.Query) (*db.SearchResult, error)
}

// Repo implements the catalog store contract over db.Store.
type Repo struct {
	store  store
	prefix string
	now    func() time.Time
}

// New creates a catalog repository.
func New(s store) *Repo {
	return &Repo{store: s, prefix: DefaultKeyPrefix, now: time.Now}
}

// WithKeyPrefix overrides the key namespace.
func (r *Repo) WithKeyPrefix(prefix string) *Repo {
	r.prefix = prefix
	return r
}

// WithClock overrides the timestamp source (tests).
func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

// EnsureIndex creates the FT index idempotently at startup.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	err := r.store.CreateIndex(ctx, &db.IndexDefinition{
		Name:     r.indexName(),
		Prefixes: []string{r.entryPrefix()},
		Fields: []db.IndexField{
			{Name: fieldLocation, Type: db.FieldGeo},
			{Name: fieldCreated, Type: db.FieldNumeric, Sortable: true},
			{Name: fieldMimeType, Type: db.FieldTag},
		},
	})
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create catalog index: %w", err)
	}
	return nil
}

// Put assigns a unique id and creation timestamp and persists the entry.
func (r *Repo) Put(ctx context.Context, entry domcat.Entry) (domcat.Entry, error) {
	stored := entry.WithIdentity(uuid.NewString(), r.now().UTC())

	fields, err := entryToFields(stored)
	if err != nil {
		return domcat.Entry{}, fmt.Errorf("%w: encode entry: %w", domain.ErrStorage, err)
	}
	if err := r.store.HSet(ctx, r.entryKey(stored.ID()), fields); err != nil {
		return domcat.Entry{}, fmt.Errorf("%w: put %s: %w", domain.ErrStorage, stored.ID(), err)
	}
	return stored, nil
}

// Get returns an entry by id, or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domcat.Entry, error) {
	fields, err := r.store.HGetAll(ctx, r.entryKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domcat.Entry{}, domain.ErrNotFound
		}
		return domcat.Entry{}, fmt.Errorf("%w: get %s: %w", domain.ErrStorage, id, err)
	}
	entry, err := entryFromFields(id, fields)
	if err != nil {
		return domcat.Entry{}, fmt.Errorf("%w: decode %s: %w", domain.ErrStorage, id, err)
	}
	return entry, nil
}

// All scans every entry, newest first.
func (r *Repo) All(ctx context.Context) ([]domcat.Entry, error) {
	entries, err := r.scan(ctx, "*", true)
	if err != nil {
		return nil, fmt.Errorf("%w: scan entries: %w", domain.ErrStorage, err)
	}
	return entries, nil
}

// GeoRadius returns every entry within radiusMeters of the point. The
// server-side GEO predicate is great-circle, matching the distance function
// the search service orders by.
func (r *Repo) GeoRadius(ctx context.Context, lat, lon, radiusMeters float64) ([]domcat.Entry, error) {
	query := fmt.Sprintf("@%s:[%s %s %s m]",
		fieldLocation,
		strconv.FormatFloat(lon, 'f', -1, 64),
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(radiusMeters, 'f', -1, 64),
	)
	entries, err := r.scan(ctx, query, false)
	if err != nil {
		return nil, fmt.Errorf("%w: geo scan: %w", domain.ErrStorage, err)
	}
	return entries, nil
}

// scan pages through every index hit for the query. sorted scans order by
// creation time descending, which RediSearch keeps stable across pages.
func (r *Repo) scan(ctx context.Context, query string, sorted bool) ([]domcat.Entry, error) {
	var entries []domcat.Entry
	for offset := 0; ; offset += pageSize {
		q := &db.Query{
			Index:  r.indexName(),
			Query:  query,
			Offset: offset,
			Limit:  pageSize,
		}
		if sorted {
			q.SortBy = fieldCreated
			q.SortDesc = true
		}
		result, err := r.store.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		page, err := r.hydrate(result)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page...)
		if result == nil || len(result.Entries) < pageSize || offset+len(result.Entries) >= result.Total {
			return entries, nil
		}
	}
}

// SetBackupRef backfills the remote-storage reference for an entry. This is
// the only mutation an entry ever receives after creation.
func (r *Repo) SetBackupRef(ctx context.Context, id, ref string) error {
	key := r.entryKey(id)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: check %s: %w", domain.ErrStorage, id, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := r.store.HSet(ctx, key, map[string]string{fieldBackupRef: ref}); err != nil {
		return fmt.Errorf("%w: backfill %s: %w", domain.ErrStorage, id, err)
	}
	return nil
}

func (r *Repo) hydrate(result *db.SearchResult) ([]domcat.Entry, error) {
	if result == nil || len(result.Entries) == 0 {
		return nil, nil
	}
	entries := make([]domcat.Entry, 0, len(result.Entries))
	for _, hit := range result.Entries {
		entry, err := entryFromFields(r.extractID(hit.Key), hit.Fields)
		if err != nil {
			// Skip records that fail to decode rather than failing the scan.
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *Repo) entryPrefix() string {
	return r.prefix + "entry:"
}

func (r *Repo) entryKey(id string) string {
	return r.entryPrefix() + id
}

func (r *Repo) extractID(key string) string {
	return strings.TrimPrefix(key, r.entryPrefix())
}

func (r *Repo) indexName() string {
	return r.prefix + "entries:idx"
}
