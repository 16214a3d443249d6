package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"arkiva.org/internal/ids"
)

// allowedExtensions is the document intake allow-list.
var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
}

// Local is a filesystem BlobStore rooted at a single directory. Stored names
// are ULID-prefixed so concurrent uploads of identically named files never
// collide.
type Local struct {
	root    string
	maxSize int64
}

// NewLocal creates the root directory if needed. maxSize caps a single blob;
// zero means no cap.
func NewLocal(root string, maxSize int64) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("storage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Local{root: root, maxSize: maxSize}, nil
}

func (l *Local) Save(ctx context.Context, originalName string, r io.Reader) (SavedBlob, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := allowedExtensions[ext]; !ok {
		return SavedBlob{}, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	name := ids.New() + "_" + sanitizeName(originalName)
	path := filepath.Join(l.root, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return SavedBlob{}, fmt.Errorf("storage: create blob: %w", err)
	}

	src := r
	if l.maxSize > 0 {
		src = io.LimitReader(r, l.maxSize+1)
	}
	size, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && l.maxSize > 0 && size > l.maxSize {
		err = fmt.Errorf("storage: blob exceeds %d bytes", l.maxSize)
	}
	if err != nil {
		os.Remove(path)
		return SavedBlob{}, err
	}
	return SavedBlob{Path: name, Name: name, Size: size}, nil
}

func (l *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

func (l *Local) Remove(ctx context.Context, path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// resolve rejects references that would escape the root directory.
func (l *Local) resolve(path string) (string, error) {
	if path == "" || strings.Contains(path, "..") || strings.ContainsAny(path, "/\\") {
		return "", fmt.Errorf("storage: invalid blob reference %q", path)
	}
	return filepath.Join(l.root, path), nil
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
