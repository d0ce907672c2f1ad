package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when no object exists at the path.
var ErrNotFound = errors.New("object not found")

// Storage defines the interface for blob storage used by room photos.
type Storage interface {
	// Save writes content to the relative path, replacing any previous object.
	Save(ctx context.Context, path string, content io.Reader) error

	// Get opens the object at the relative path. Callers must close it.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error
}
