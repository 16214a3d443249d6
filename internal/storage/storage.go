// Package storage abstracts document blob persistence behind a small
// interface so the archive service never touches the filesystem directly.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNotFound        = errors.New("blob not found")
)

// SavedBlob describes a stored blob.
type SavedBlob struct {
	// Path is the store-internal reference used for later Open/Remove calls.
	Path string
	// Name is the sanitized unique file name.
	Name string
	Size int64
}

// BlobStore saves, serves and removes document files.
type BlobStore interface {
	// Save writes the blob and returns its stored reference. The original
	// file name is used for extension checks and name derivation only.
	Save(ctx context.Context, originalName string, r io.Reader) (SavedBlob, error)
	// Open returns a reader for a previously saved blob.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Remove deletes a previously saved blob. Removing a missing blob
	// returns ErrNotFound.
	Remove(ctx context.Context, path string) error
}
