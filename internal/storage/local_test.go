package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalSaveOpenRemove(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()

	blob, err := store.Save(ctx, "thesis final.pdf", strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if blob.Size != int64(len("pdf-bytes")) {
		t.Fatalf("size = %d", blob.Size)
	}
	if strings.ContainsAny(blob.Name, " /") {
		t.Fatalf("unsanitized name %q", blob.Name)
	}

	rc, err := store.Open(ctx, blob.Path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "pdf-bytes" {
		t.Fatalf("content = %q", data)
	}

	if err := store.Remove(ctx, blob.Path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(ctx, blob.Path); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Remove = %v, want ErrNotFound", err)
	}
	if _, err := store.Open(ctx, blob.Path); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open after Remove = %v, want ErrNotFound", err)
	}
}

func TestLocalRejectsExtension(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	_, err = store.Save(context.Background(), "malware.exe", strings.NewReader("x"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Save(.exe) = %v, want ErrUnsupportedType", err)
	}
}

func TestLocalSizeCap(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if _, err := store.Save(context.Background(), "big.pdf", strings.NewReader("12345")); err == nil {
		t.Fatal("expected size cap error")
	}
	if _, err := store.Save(context.Background(), "ok.pdf", strings.NewReader("1234")); err != nil {
		t.Fatalf("Save under cap: %v", err)
	}
}

func TestLocalRejectsTraversal(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	for _, ref := range []string{"", "../etc/passwd", "a/b", `a\b`} {
		if _, err := store.Open(context.Background(), ref); err == nil {
			t.Fatalf("Open(%q) did not fail", ref)
		}
	}
}
