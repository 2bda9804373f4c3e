package domain

import "errors"

var (
	// ErrValidation signals malformed client input, rejected before any detector or store call.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals an unknown entry identifier.
	ErrNotFound = errors.New("entry not found")
	// ErrFileTooLarge signals an upload exceeding the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedMedia signals an upload with a file type outside the allow list.
	ErrUnsupportedMedia = errors.New("unsupported file type")
	// ErrNoReferenceTags signals that the reference image for a similarity search
	// yielded no tags, distinct from a search that simply matched nothing.
	ErrNoReferenceTags = errors.New("no tools detected in reference image")
	// ErrDetectorUnavailable signals that a configured detector cannot run.
	ErrDetectorUnavailable = errors.New("detector unavailable")
	// ErrStorage signals a storage-layer failure; callers must not assume partial writes.
	ErrStorage = errors.New("storage failure")
)
