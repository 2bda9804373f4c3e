// Package storage keeps uploaded image files on local disk under a single
// directory. Stored filenames are generated by the caller and already
// collision-free; the store only guards against path traversal.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Disk is a file store rooted at one directory.
type Disk struct {
	dir string
}

// NewDisk creates the upload directory if needed and returns the store.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &Disk{dir: dir}, nil
}

// Save writes the file atomically: to a temp file first, then renamed into
// place, so a crashed write never leaves a half-written image.
func (d *Disk) Save(filename string, content []byte) error {
	path, err := d.path(filename)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filename, err)
	}
	return nil
}

// Open returns a reader over the stored file.
func (d *Disk) Open(filename string) (io.ReadCloser, error) {
	path, err := d.path(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	return f, nil
}

// Remove deletes a stored file. Removing a missing file is not an error.
func (d *Disk) Remove(filename string) error {
	path, err := d.path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", filename, err)
	}
	return nil
}

func (d *Disk) path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("invalid stored filename %q", filename)
	}
	return filepath.Join(d.dir, filename), nil
}
