package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fieldstash/toolscout/internal/domain/catalog"
	"github.com/fieldstash/toolscout/internal/domain/fusion"
)

// Hash field names for a persisted entry.
const (
	fieldFilename         = "filename"
	fieldOriginalFilename = "original_filename"
	fieldTags             = "tags"
	fieldConfidences      = "confidences"
	fieldLatitude         = "lat"
	fieldLongitude        = "lon"
	fieldLocation         = "location"
	fieldCreated          = "created"
	fieldFileSize         = "file_size"
	fieldMimeType         = "mime_type"
	fieldBackupRef        = "backup_ref"
)

// entryToFields flattens an Entry into a Redis hash. The GEO field is
// written as "lon,lat" derived from the entry's point geometry, so the
// scalars and the geometry always come from the same write.
func entryToFields(e catalog.Entry) (map[string]string, error) {
	labels, err := json.Marshal(e.Tags().Labels())
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	confidences, err := json.Marshal(e.Tags().Confidences())
	if err != nil {
		return nil, fmt.Errorf("marshal confidences: %w", err)
	}

	point := e.Location().FlatCoords()

	fields := map[string]string{
		fieldFilename:    e.Filename(),
		fieldTags:        string(labels),
		fieldConfidences: string(confidences),
		fieldLatitude:    strconv.FormatFloat(e.Latitude(), 'f', -1, 64),
		fieldLongitude:   strconv.FormatFloat(e.Longitude(), 'f', -1, 64),
		fieldLocation: fmt.Sprintf("%s,%s",
			strconv.FormatFloat(point[0], 'f', -1, 64),
			strconv.FormatFloat(point[1], 'f', -1, 64)),
		fieldCreated:  strconv.FormatInt(e.CreatedAt().UnixMilli(), 10),
		fieldFileSize: strconv.FormatInt(e.FileSize(), 10),
		fieldMimeType: e.MimeType(),
	}
	if e.OriginalFilename() != "" {
		fields[fieldOriginalFilename] = e.OriginalFilename()
	}
	if e.BackupRef() != "" {
		fields[fieldBackupRef] = e.BackupRef()
	}
	return fields, nil
}

// entryFromFields hydrates an Entry from a Redis hash.
func entryFromFields(id string, fields map[string]string) (catalog.Entry, error) {
	var labels []string
	if raw := fields[fieldTags]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &labels); err != nil {
			return catalog.Entry{}, fmt.Errorf("unmarshal tags for %s: %w", id, err)
		}
	}
	var confidences []float64
	if raw := fields[fieldConfidences]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &confidences); err != nil {
			return catalog.Entry{}, fmt.Errorf("unmarshal confidences for %s: %w", id, err)
		}
	}

	lat, err := strconv.ParseFloat(fields[fieldLatitude], 64)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("parse latitude for %s: %w", id, err)
	}
	lon, err := strconv.ParseFloat(fields[fieldLongitude], 64)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("parse longitude for %s: %w", id, err)
	}

	createdMilli, err := strconv.ParseInt(fields[fieldCreated], 10, 64)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("parse created for %s: %w", id, err)
	}

	// file_size is optional in older records
	var fileSize int64
	if raw := fields[fieldFileSize]; raw != "" {
		fileSize, _ = strconv.ParseInt(raw, 10, 64)
	}

	return catalog.Reconstruct(
		id,
		fields[fieldFilename],
		fields[fieldOriginalFilename],
		fusion.Reconstruct(labels, confidences),
		lat, lon,
		time.UnixMilli(createdMilli).UTC(),
		fileSize,
		fields[fieldMimeType],
		fields[fieldBackupRef],
	), nil
}
