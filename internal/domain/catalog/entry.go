// Package catalog defines the persisted record for one processed image.
package catalog

import (
	"fmt"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/fieldstash/toolscout/internal/domain"
	"github.com/fieldstash/toolscout/internal/domain/fusion"
	geodom "github.com/fieldstash/toolscout/internal/domain/geo"
)

// Entry is a persisted catalog record (immutable value object).
// Created on successful upload; the only permitted update is a single
// backup-reference backfill after the asynchronous remote upload completes.
type Entry struct {
	id               string
	filename         string
	originalFilename string
	tags             fusion.TagSet
	latitude         float64
	longitude        float64
	location         *geom.Point
	createdAt        time.Time
	fileSize         int64
	mimeType         string
	backupRef        string
}

// New validates and creates an Entry without identity; the repository
// assigns the id and creation timestamp on Put. The point geometry is
// derived from the same latitude/longitude write, keeping the raw scalars
// and the geometry in agreement by construction.
func New(
	filename, originalFilename string,
	tags fusion.TagSet,
	lat, lon float64,
	fileSize int64,
	mimeType string,
) (Entry, error) {
	if filename == "" {
		return Entry{}, fmt.Errorf("%w: filename is required", domain.ErrValidation)
	}
	if !geodom.Valid(lat, lon) {
		return Entry{}, fmt.Errorf("%w: coordinates (%v, %v) out of range", domain.ErrValidation, lat, lon)
	}
	if fileSize < 0 {
		return Entry{}, fmt.Errorf("%w: negative file size", domain.ErrValidation)
	}

	return Entry{
		filename:         filename,
		originalFilename: originalFilename,
		tags:             tags,
		latitude:         lat,
		longitude:        lon,
		location:         geodom.Point(lat, lon),
		fileSize:         fileSize,
		mimeType:         mimeType,
	}, nil
}

// Reconstruct rebuilds an Entry from storage without validation.
func Reconstruct(
	id, filename, originalFilename string,
	tags fusion.TagSet,
	lat, lon float64,
	createdAt time.Time,
	fileSize int64,
	mimeType, backupRef string,
) Entry {
	return Entry{
		id:               id,
		filename:         filename,
		originalFilename: originalFilename,
		tags:             tags,
		latitude:         lat,
		longitude:        lon,
		location:         geodom.Point(lat, lon),
		createdAt:        createdAt,
		fileSize:         fileSize,
		mimeType:         mimeType,
		backupRef:        backupRef,
	}
}

// WithIdentity returns a copy with the generated id and timestamp assigned.
func (e Entry) WithIdentity(id string, createdAt time.Time) Entry {
	e.id = id
	e.createdAt = createdAt
	return e
}

// WithBackupRef returns a copy with the remote backup reference backfilled.
func (e Entry) WithBackupRef(ref string) Entry {
	e.backupRef = ref
	return e
}

// ID returns the unique, immutable entry identifier.
func (e Entry) ID() string { return e.id }

// Filename returns the stored (generated) filename.
func (e Entry) Filename() string { return e.filename }

// OriginalFilename returns the filename of the client upload.
func (e Entry) OriginalFilename() string { return e.originalFilename }

// Tags returns the fused tag set.
func (e Entry) Tags() fusion.TagSet { return e.tags }

// Latitude returns the raw latitude scalar.
func (e Entry) Latitude() float64 { return e.latitude }

// Longitude returns the raw longitude scalar.
func (e Entry) Longitude() float64 { return e.longitude }

// Location returns the derived point geometry (lon/lat order, SRID 4326).
func (e Entry) Location() *geom.Point { return e.location }

// CreatedAt returns the creation timestamp assigned by the store.
func (e Entry) CreatedAt() time.Time { return e.createdAt }

// FileSize returns the upload size in bytes.
func (e Entry) FileSize() int64 { return e.fileSize }

// MimeType returns the upload MIME type.
func (e Entry) MimeType() string { return e.mimeType }

// BackupRef returns the remote-storage reference, or "" before backfill.
func (e Entry) BackupRef() string { return e.backupRef }
