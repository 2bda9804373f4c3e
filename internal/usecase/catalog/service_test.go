package catalog

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fieldstash/toolscout/internal/domain"
	domcat "github.com/fieldstash/toolscout/internal/domain/catalog"
	domdetect "github.com/fieldstash/toolscout/internal/domain/detect"
	"github.com/fieldstash/toolscout/internal/domain/fusion"
	"github.com/fieldstash/toolscout/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterDetectionMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockRepo struct {
	mu        sync.Mutex
	putErr    error
	entries   map[string]domcat.Entry
	backupRef map[string]string
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		entries:   make(map[string]domcat.Entry),
		backupRef: make(map[string]string),
	}
}

func (m *mockRepo) Put(_ context.Context, entry domcat.Entry) (domcat.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return domcat.Entry{}, m.putErr
	}
	stored := entry.WithIdentity("id-1", time.Now().UTC())
	m.entries[stored.ID()] = stored
	return stored, nil
}

func (m *mockRepo) Get(_ context.Context, id string) (domcat.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return domcat.Entry{}, domain.ErrNotFound
	}
	return e, nil
}

func (m *mockRepo) SetBackupRef(_ context.Context, id, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backupRef[id] = ref
	return nil
}

type mockFiles struct {
	mu      sync.Mutex
	saved   map[string][]byte
	saveErr error
	removed []string
}

func newMockFiles() *mockFiles {
	return &mockFiles{saved: make(map[string][]byte)}
}

func (m *mockFiles) Save(filename string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[filename] = content
	return nil
}

func (m *mockFiles) Open(filename string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.saved[filename]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(string(content))), nil
}

func (m *mockFiles) Remove(filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, filename)
	delete(m.saved, filename)
	return nil
}

type mockBackup struct {
	mu       sync.Mutex
	enabled  bool
	uploaded chan string
	err      error
}

func (m *mockBackup) Enabled() bool { return m.enabled }

func (m *mockBackup) Upload(_ context.Context, filename string, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if m.uploaded != nil {
		m.uploaded <- filename
	}
	return "https://drive.example/" + filename, nil
}

type mockDetection struct {
	tags fusion.TagSet
}

func (m *mockDetection) Detect(_ context.Context, _ []byte) (fusion.TagSet, []domdetect.Outcome) {
	return m.tags, []domdetect.Outcome{domdetect.NewOutcome("vision", nil)}
}

func newService(repo Repository, files FileStore, backup Backup) *Service {
	tags := fusion.Reconstruct([]string{"hammer"}, []float64{0.9})
	return New(repo, files, backup, &mockDetection{tags: tags},
		1<<20, []string{"jpg", "jpeg", "png"}, zap.NewNop())
}

// --- Tests ---

func TestSubmit(t *testing.T) {
	repo := newMockRepo()
	files := newMockFiles()
	svc := newService(repo, files, nil)

	entry, outcomes, err := svc.Submit(context.Background(), Upload{
		Filename:  "bench.JPG",
		Content:   []byte("jpeg bytes"),
		Latitude:  52.5,
		Longitude: 13.4,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if entry.ID() != "id-1" {
		t.Errorf("ID() = %q, want assigned id", entry.ID())
	}
	if entry.OriginalFilename() != "bench.JPG" {
		t.Errorf("OriginalFilename() = %q", entry.OriginalFilename())
	}
	if !strings.HasSuffix(entry.Filename(), ".jpg") {
		t.Errorf("Filename() = %q, want lowercase extension", entry.Filename())
	}
	if entry.MimeType() != "image/jpeg" {
		t.Errorf("MimeType() = %q", entry.MimeType())
	}
	if len(outcomes) != 1 {
		t.Errorf("outcomes = %d, want 1", len(outcomes))
	}
	if _, ok := files.saved[entry.Filename()]; !ok {
		t.Error("file bytes not saved")
	}
}

func TestSubmit_ValidationBeforeAnyWrite(t *testing.T) {
	tests := []struct {
		name     string
		up       Upload
		sentinel error
	}{
		{"empty filename", Upload{Content: []byte("x"), Latitude: 1, Longitude: 1}, domain.ErrValidation},
		{"empty file", Upload{Filename: "a.jpg", Latitude: 1, Longitude: 1}, domain.ErrValidation},
		{"too large", Upload{Filename: "a.jpg", Content: make([]byte, 2<<20), Latitude: 1, Longitude: 1}, domain.ErrFileTooLarge},
		{"bad type", Upload{Filename: "a.gif", Content: []byte("x"), Latitude: 1, Longitude: 1}, domain.ErrUnsupportedMedia},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := newMockFiles()
			svc := newService(newMockRepo(), files, nil)

			_, _, err := svc.Submit(context.Background(), tt.up)
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("err = %v, want %v", err, tt.sentinel)
			}
			if len(files.saved) != 0 {
				t.Error("rejected upload must not be written")
			}
		})
	}
}

func TestSubmit_BadCoordinates(t *testing.T) {
	files := newMockFiles()
	svc := newService(newMockRepo(), files, nil)

	_, _, err := svc.Submit(context.Background(), Upload{
		Filename: "a.jpg", Content: []byte("x"), Latitude: 95, Longitude: 0,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if len(files.removed) == 0 {
		t.Error("saved file should be cleaned up when the entry is rejected")
	}
}

func TestSubmit_PersistFailureCleansUpFile(t *testing.T) {
	repo := newMockRepo()
	repo.putErr = errors.New("redis down")
	files := newMockFiles()
	svc := newService(repo, files, nil)

	_, _, err := svc.Submit(context.Background(), Upload{
		Filename: "a.jpg", Content: []byte("x"), Latitude: 1, Longitude: 1,
	})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
	if len(files.removed) != 1 {
		t.Errorf("removed = %v, want the orphaned file", files.removed)
	}
}

func TestSubmit_BackupBackfillsReference(t *testing.T) {
	repo := newMockRepo()
	files := newMockFiles()
	bk := &mockBackup{enabled: true, uploaded: make(chan string, 1)}
	svc := newService(repo, files, bk).WithBackupTimeout(time.Second)

	entry, _, err := svc.Submit(context.Background(), Upload{
		Filename: "a.jpg", Content: []byte("x"), Latitude: 1, Longitude: 1,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case <-bk.uploaded:
	case <-time.After(time.Second):
		t.Fatal("backup upload not started")
	}

	// The backfill happens right after the upload; poll briefly.
	deadline := time.Now().Add(time.Second)
	for {
		repo.mu.Lock()
		ref := repo.backupRef[entry.ID()]
		repo.mu.Unlock()
		if ref != "" {
			if !strings.Contains(ref, entry.Filename()) {
				t.Errorf("backup ref = %q", ref)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("backup reference never backfilled")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubmit_BackupFailureDoesNotAffectEntry(t *testing.T) {
	repo := newMockRepo()
	bk := &mockBackup{enabled: true, err: errors.New("drive quota")}
	svc := newService(repo, newMockFiles(), bk).WithBackupTimeout(100 * time.Millisecond)

	entry, _, err := svc.Submit(context.Background(), Upload{
		Filename: "a.jpg", Content: []byte("x"), Latitude: 1, Longitude: 1,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if _, err := svc.Get(context.Background(), entry.ID()); err != nil {
		t.Errorf("entry should remain readable after backup failure: %v", err)
	}
}

func TestDetectOnly_PersistsNothing(t *testing.T) {
	repo := newMockRepo()
	files := newMockFiles()
	svc := newService(repo, files, nil)

	tags, outcomes, err := svc.DetectOnly(context.Background(), "a.png", []byte("x"))
	if err != nil {
		t.Fatalf("DetectOnly: %v", err)
	}
	if tags.IsEmpty() || len(outcomes) != 1 {
		t.Errorf("tags = %v, outcomes = %d", tags.Labels(), len(outcomes))
	}
	if len(files.saved) != 0 || len(repo.entries) != 0 {
		t.Error("DetectOnly must not persist anything")
	}
}

func TestFile(t *testing.T) {
	repo := newMockRepo()
	files := newMockFiles()
	svc := newService(repo, files, nil)

	entry, _, err := svc.Submit(context.Background(), Upload{
		Filename: "a.jpg", Content: []byte("jpeg bytes"), Latitude: 1, Longitude: 1,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got, rc, err := svc.File(context.Background(), entry.ID())
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	defer rc.Close()

	if got.ID() != entry.ID() {
		t.Errorf("File entry id = %q", got.ID())
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "jpeg bytes" {
		t.Errorf("file content = %q", data)
	}
}

func TestFile_UnknownID(t *testing.T) {
	svc := newService(newMockRepo(), newMockFiles(), nil)
	if _, _, err := svc.File(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
