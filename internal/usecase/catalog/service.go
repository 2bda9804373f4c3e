// Package catalog implements the ingestion pipeline: validate the upload,
// store the file, run detection, persist the entry, and kick off the
// asynchronous remote backup.
package catalog

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldstash/toolscout/internal/domain"
	domcat "github.com/fieldstash/toolscout/internal/domain/catalog"
	domdetect "github.com/fieldstash/toolscout/internal/domain/detect"
	"github.com/fieldstash/toolscout/internal/domain/fusion"
	"github.com/fieldstash/toolscout/internal/metrics"
)

// Upload is a client-submitted image with its capture coordinates.
type Upload struct {
	Filename  string
	Content   []byte
	Latitude  float64
	Longitude float64
}

// Service orchestrates image ingestion.
type Service struct {
	repo          Repository
	files         FileStore
	backup        Backup
	detection     Detection
	maxFileSize   int64
	allowedTypes  map[string]string
	backupTimeout time.Duration
	logger        *zap.Logger
}

// New creates a catalog service. allowedTypes are lowercase file extensions
// without the dot (e.g. "jpg").
func New(
	repo Repository,
	files FileStore,
	backup Backup,
	detection Detection,
	maxFileSize int64,
	allowedTypes []string,
	logger *zap.Logger,
) *Service {
	byExt := make(map[string]string, len(allowedTypes))
	for _, ext := range allowedTypes {
		byExt[strings.ToLower(ext)] = mimeForExt(ext)
	}
	return &Service{
		repo:          repo,
		files:         files,
		backup:        backup,
		detection:     detection,
		maxFileSize:   maxFileSize,
		allowedTypes:  byExt,
		backupTimeout: 60 * time.Second,
		logger:        logger,
	}
}

// WithBackupTimeout overrides the deadline for the async remote upload.
func (s *Service) WithBackupTimeout(timeout time.Duration) *Service {
	s.backupTimeout = timeout
	return s
}

// Submit ingests one upload. Validation happens before any detector call or
// write, so a rejected request leaves no partial state. Detection runs after
// the file is stored; a degraded detection still produces an entry (possibly
// with no tags). The remote backup runs in the background after Put and
// backfills the entry's backup reference when it completes.
func (s *Service) Submit(ctx context.Context, up Upload) (domcat.Entry, []domdetect.Outcome, error) {
	ext, mimeType, err := s.validate(up)
	if err != nil {
		return domcat.Entry{}, nil, err
	}

	storedName := uuid.NewString() + "." + ext
	if err := s.files.Save(storedName, up.Content); err != nil {
		return domcat.Entry{}, nil, fmt.Errorf("%w: save file: %v", domain.ErrStorage, err)
	}

	tags, outcomes := s.detection.Detect(ctx, up.Content)

	entry, err := domcat.New(storedName, up.Filename, tags, up.Latitude, up.Longitude,
		int64(len(up.Content)), mimeType)
	if err != nil {
		s.cleanup(storedName)
		return domcat.Entry{}, nil, err
	}

	stored, err := s.repo.Put(ctx, entry)
	if err != nil {
		s.cleanup(storedName)
		return domcat.Entry{}, nil, fmt.Errorf("%w: persist entry: %v", domain.ErrStorage, err)
	}

	if s.backup != nil && s.backup.Enabled() {
		go s.backupAsync(stored.ID(), storedName, up.Content)
	}

	return stored, outcomes, nil
}

// DetectOnly runs the detector pipeline on an image without persisting
// anything. Used by the detect endpoint and by similarity search.
func (s *Service) DetectOnly(ctx context.Context, filename string, content []byte) (fusion.TagSet, []domdetect.Outcome, error) {
	if _, _, err := s.validate(Upload{Filename: filename, Content: content}); err != nil {
		return fusion.TagSet{}, nil, err
	}
	tags, outcomes := s.detection.Detect(ctx, content)
	return tags, outcomes, nil
}

// Get fetches one entry by id.
func (s *Service) Get(ctx context.Context, id string) (domcat.Entry, error) {
	return s.repo.Get(ctx, id)
}

// File opens the stored image bytes for an entry.
func (s *Service) File(ctx context.Context, id string) (domcat.Entry, io.ReadCloser, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return domcat.Entry{}, nil, err
	}
	rc, err := s.files.Open(entry.Filename())
	if err != nil {
		return domcat.Entry{}, nil, fmt.Errorf("%w: open %s: %v", domain.ErrNotFound, entry.Filename(), err)
	}
	return entry, rc, nil
}

func (s *Service) validate(up Upload) (ext, mimeType string, err error) {
	if up.Filename == "" {
		return "", "", fmt.Errorf("%w: filename is required", domain.ErrValidation)
	}
	if len(up.Content) == 0 {
		return "", "", fmt.Errorf("%w: empty file", domain.ErrValidation)
	}
	if int64(len(up.Content)) > s.maxFileSize {
		return "", "", fmt.Errorf("%w: %d bytes exceeds limit of %d", domain.ErrFileTooLarge,
			len(up.Content), s.maxFileSize)
	}
	ext = strings.ToLower(strings.TrimPrefix(filepath.Ext(up.Filename), "."))
	mimeType, ok := s.allowedTypes[ext]
	if !ok {
		return "", "", fmt.Errorf("%w: file type %q is not allowed", domain.ErrUnsupportedMedia, ext)
	}
	return ext, mimeType, nil
}

func (s *Service) cleanup(filename string) {
	if err := s.files.Remove(filename); err != nil {
		s.logger.Warn("failed to remove orphaned file",
			zap.String("filename", filename), zap.Error(err))
	}
}

// backupAsync uploads the file copy with its own context so it survives the
// end of the originating request, then backfills the backup reference.
// Failures are logged and counted but never surfaced to the client; the
// local entry is already durable.
func (s *Service) backupAsync(entryID, filename string, content []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.backupTimeout)
	defer cancel()

	ref, err := s.backup.Upload(ctx, filename, content)
	if err != nil {
		metrics.BackupUploadsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("backup upload failed",
			zap.String("entry_id", entryID), zap.Error(err))
		return
	}
	if err := s.repo.SetBackupRef(ctx, entryID, ref); err != nil {
		metrics.BackupUploadsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("backup reference backfill failed",
			zap.String("entry_id", entryID), zap.Error(err))
		return
	}
	metrics.BackupUploadsTotal.WithLabelValues("success").Inc()
	s.logger.Info("backup completed",
		zap.String("entry_id", entryID), zap.String("backup_ref", ref))
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
