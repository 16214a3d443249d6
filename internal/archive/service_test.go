package archive

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"arkiva.org/internal/auth"
	"arkiva.org/internal/storage"
)

// stubBlobs implements storage.BlobStore with injectable behavior.
type stubBlobs struct {
	saveFn   func(name string) (storage.SavedBlob, error)
	openFn   func(path string) (io.ReadCloser, error)
	removeFn func(path string) error
	removed  []string
}

func (s *stubBlobs) Save(ctx context.Context, name string, r io.Reader) (storage.SavedBlob, error) {
	if s.saveFn != nil {
		return s.saveFn(name)
	}
	data, _ := io.ReadAll(r)
	return storage.SavedBlob{Path: "blob-" + name, Name: name, Size: int64(len(data))}, nil
}

func (s *stubBlobs) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if s.openFn != nil {
		return s.openFn(path)
	}
	for _, p := range s.removed {
		if p == path {
			return nil, storage.ErrNotFound
		}
	}
	return io.NopCloser(strings.NewReader("blob-content")), nil
}

func (s *stubBlobs) Remove(ctx context.Context, path string) error {
	s.removed = append(s.removed, path)
	if s.removeFn != nil {
		return s.removeFn(path)
	}
	return nil
}

func principal(id string, selfScoped bool, keys ...string) auth.Principal {
	perms := make([]auth.Permission, 0, len(keys))
	for _, k := range keys {
		perms = append(perms, auth.Permission{ID: "p-" + k, Key: k})
	}
	return auth.NewPrincipal(auth.Identity{
		ID:   id,
		Role: &auth.Role{ID: "role-" + id, Slug: "test", SelfScoped: selfScoped},
	}, perms)
}

func newTestService(t *testing.T) (*Service, *InMemoryStore, *stubBlobs) {
	t.Helper()
	store := NewInMemoryStore()
	blobs := &stubBlobs{}
	return NewService(store, blobs), store, blobs
}

func mustCreate(t *testing.T, svc *Service, p auth.Principal, title string, submit bool) Document {
	t.Helper()
	doc, err := svc.Create(context.Background(), p, CreateInput{
		Title: title, Author: "A. Author", Year: 2024, SubmitForReview: submit,
	}, title+".pdf", strings.NewReader("pdf"))
	if err != nil {
		t.Fatalf("Create %q: %v", title, err)
	}
	return doc
}

func TestCreateInitialStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	uploader := principal("u1", true, auth.PermissionUploadDocuments)

	if doc := mustCreate(t, svc, uploader, "draft-doc", false); doc.Status != StatusDraft {
		t.Fatalf("status = %s, want draft", doc.Status)
	}
	if doc := mustCreate(t, svc, uploader, "submitted-doc", true); doc.Status != StatusPendingReview {
		t.Fatalf("status = %s, want pending_review", doc.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	p := principal("u1", true, auth.PermissionUploadDocuments)
	ctx := context.Background()

	cases := []CreateInput{
		{Title: "", Author: "A"},
		{Title: "T", Author: ""},
		{Title: "T", Author: "A", Year: 1700},
	}
	for _, in := range cases {
		if _, err := svc.Create(ctx, p, in, "f.pdf", strings.NewReader("x")); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Create(%+v) = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestCreateCleansUpBlobOnInsertFailure(t *testing.T) {
	store := NewInMemoryStore()
	blobs := &stubBlobs{}
	svc := NewService(failingStore{store}, blobs)

	_, err := svc.Create(context.Background(), principal("u1", true), CreateInput{
		Title: "T", Author: "A",
	}, "f.pdf", strings.NewReader("x"))
	if err == nil {
		t.Fatal("expected insert failure")
	}
	if len(blobs.removed) != 1 {
		t.Fatalf("blob not cleaned up: removed=%v", blobs.removed)
	}
}

// failingStore wraps a Store and fails every document insert.
type failingStore struct{ Store }

func (failingStore) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	return Document{}, errors.New("insert failed")
}

func TestOwnershipScope(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	owner := principal("owner", true, auth.PermissionUploadDocuments)
	other := principal("other", true, auth.PermissionUploadDocuments)
	admin := principal("admin", false, auth.PermissionManageDocuments)

	doc := mustCreate(t, svc, owner, "mine", false)

	if _, err := svc.Get(ctx, owner, doc.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := svc.Get(ctx, other, doc.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other Get = %v, want ErrForbidden", err)
	}
	if _, err := svc.Get(ctx, admin, doc.ID); err != nil {
		t.Fatalf("admin Get: %v", err)
	}

	title := "renamed"
	if _, err := svc.Update(ctx, other, doc.ID, DocumentUpdate{Title: &title}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other Update = %v, want ErrForbidden", err)
	}
	if _, err := svc.Update(ctx, owner, doc.ID, DocumentUpdate{Title: &title}); err != nil {
		t.Fatalf("owner Update: %v", err)
	}
	if _, err := svc.Update(ctx, admin, doc.ID, DocumentUpdate{Title: &title}); err != nil {
		t.Fatalf("admin Update: %v", err)
	}
}

func TestListScopesSelfScopedCallers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	a := principal("a", true, auth.PermissionUploadDocuments)
	b := principal("b", true, auth.PermissionUploadDocuments)
	admin := principal("admin", false, auth.PermissionManageDocuments)

	mustCreate(t, svc, a, "a-1", false)
	mustCreate(t, svc, a, "a-2", false)
	mustCreate(t, svc, b, "b-1", false)

	_, total, err := svc.List(ctx, a, ListFilter{})
	if err != nil || total != 2 {
		t.Fatalf("a sees total=%d (%v), want 2", total, err)
	}
	_, total, err = svc.List(ctx, b, ListFilter{})
	if err != nil || total != 1 {
		t.Fatalf("b sees total=%d (%v), want 1", total, err)
	}
	_, total, err = svc.List(ctx, admin, ListFilter{})
	if err != nil || total != 3 {
		t.Fatalf("admin sees total=%d (%v), want 3", total, err)
	}
}

func TestApproveRejectFlow(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	uploader := principal("u1", true, auth.PermissionUploadDocuments)
	reviewer := principal("rev", false, auth.PermissionApproveDocuments)

	doc := mustCreate(t, svc, uploader, "pending", true)
	published, err := svc.Approve(ctx, reviewer, doc.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if published.Status != StatusPublished {
		t.Fatalf("status = %s", published.Status)
	}

	// Published documents cannot be approved again or rejected.
	if _, err := svc.Approve(ctx, reviewer, doc.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double approve = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.Reject(ctx, reviewer, doc.ID, "no"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reject published = %v, want ErrInvalidTransition", err)
	}

	second := mustCreate(t, svc, uploader, "second", true)
	rejected, err := svc.Reject(ctx, reviewer, second.ID, "missing signatures")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Fatalf("status = %s, want rejected", rejected.Status)
	}
	if rejected.ReviewNote != "missing signatures" {
		t.Fatalf("review note = %q", rejected.ReviewNote)
	}
}

func TestStaleTransitionConflicts(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	uploader := principal("u1", true, auth.PermissionUploadDocuments)
	reviewer := principal("rev", false, auth.PermissionApproveDocuments)

	doc := mustCreate(t, svc, uploader, "contested", true)

	// Another reviewer wins the race after this reviewer's read.
	loaded, err := svc.Get(ctx, reviewer, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := store.UpdateStatus(ctx, loaded.ID, AllowedFrom(StatusRejected), StatusRejected, "beaten"); err != nil {
		t.Fatalf("racing reject: %v", err)
	}
	if _, err := svc.Approve(ctx, reviewer, doc.ID); !errors.Is(err, ErrInvalidTransition) && !errors.Is(err, ErrConflict) {
		t.Fatalf("stale approve = %v, want conflict", err)
	}
}

func TestSoftDelete(t *testing.T) {
	svc, _, blobs := newTestService(t)
	ctx := context.Background()
	owner := principal("owner", true, auth.PermissionUploadDocuments)
	other := principal("other", true, auth.PermissionUploadDocuments)

	doc := mustCreate(t, svc, owner, "gone", false)

	if _, _, err := svc.SoftDelete(ctx, other, doc.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other SoftDelete = %v, want ErrForbidden", err)
	}

	archived, fileRemoved, err := svc.SoftDelete(ctx, owner, doc.ID)
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if archived.Status != StatusArchived {
		t.Fatalf("status = %s", archived.Status)
	}
	if !fileRemoved {
		t.Fatal("expected file removal to be reported")
	}
	if len(blobs.removed) != 1 || blobs.removed[0] != doc.FilePath {
		t.Fatalf("removed = %v", blobs.removed)
	}

	// Already archived: terminal.
	if _, _, err := svc.SoftDelete(ctx, owner, doc.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double SoftDelete = %v, want ErrInvalidTransition", err)
	}
}

func TestSoftDeleteBlobFailureDoesNotBlock(t *testing.T) {
	svc, _, blobs := newTestService(t)
	blobs.removeFn = func(string) error { return errors.New("disk on fire") }
	owner := principal("owner", true, auth.PermissionUploadDocuments)

	doc := mustCreate(t, svc, owner, "stuck", false)
	archived, fileRemoved, err := svc.SoftDelete(context.Background(), owner, doc.ID)
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if archived.Status != StatusArchived {
		t.Fatalf("status = %s, transition must not be blocked", archived.Status)
	}
	if fileRemoved {
		t.Fatal("file removal should be reported as failed")
	}
}

func TestDownloadRecordsLog(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	owner := principal("owner", true, auth.PermissionUploadDocuments)
	other := principal("other", true, auth.PermissionUploadDocuments)

	doc := mustCreate(t, svc, owner, "dl", false)

	if _, _, err := svc.Download(ctx, other, doc.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other Download = %v, want ErrForbidden", err)
	}

	got, rc, err := svc.Download(ctx, owner, doc.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	if got.ID != doc.ID {
		t.Fatalf("document id = %s", got.ID)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "blob-content" {
		t.Fatalf("content = %q", data)
	}

	logs, total, err := store.ListDownloadLogs(ctx, DownloadFilter{DocumentID: doc.ID})
	if err != nil || total != 1 {
		t.Fatalf("logs total=%d (%v), want 1", total, err)
	}
	if logs[0].IdentityID != "owner" {
		t.Fatalf("log identity = %s", logs[0].IdentityID)
	}
}

func TestDownloadAfterSoftDeleteIsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	owner := principal("owner", true, auth.PermissionUploadDocuments)

	doc := mustCreate(t, svc, owner, "gone", false)
	if _, _, err := svc.SoftDelete(ctx, owner, doc.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	// The record survives the soft delete but the blob is gone.
	if _, err := svc.Get(ctx, owner, doc.ID); err != nil {
		t.Fatalf("Get after soft delete: %v", err)
	}
	_, rc, err := svc.Download(ctx, owner, doc.ID)
	if !errors.Is(err, ErrNotFound) {
		if rc != nil {
			rc.Close()
		}
		t.Fatalf("Download after soft delete = %v, want ErrNotFound", err)
	}
}

func TestListDownloadsCombinator(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	ownerA := principal("a", true, auth.PermissionUploadDocuments, auth.PermissionViewOwnDownloadLogs)
	ownerB := principal("b", true, auth.PermissionUploadDocuments, auth.PermissionViewOwnDownloadLogs)
	auditor := principal("aud", false, auth.PermissionViewDownloadLogs)
	nobody := principal("nobody", true)

	docA := mustCreate(t, svc, ownerA, "a-doc", false)
	docB := mustCreate(t, svc, ownerB, "b-doc", false)
	for _, dl := range []struct {
		p  auth.Principal
		id string
	}{{ownerA, docA.ID}, {ownerB, docB.ID}} {
		_, rc, err := svc.Download(ctx, dl.p, dl.id)
		if err != nil {
			t.Fatalf("download %s: %v", dl.id, err)
		}
		rc.Close()
	}

	_, total, err := svc.ListDownloads(ctx, auditor, DownloadFilter{})
	if err != nil || total != 2 {
		t.Fatalf("auditor total=%d (%v), want 2", total, err)
	}
	_, total, err = svc.ListDownloads(ctx, ownerA, DownloadFilter{})
	if err != nil || total != 1 {
		t.Fatalf("ownerA total=%d (%v), want 1", total, err)
	}
	if _, _, err := svc.ListDownloads(ctx, nobody, DownloadFilter{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("nobody = %v, want ErrForbidden", err)
	}
}

func TestUpdateStatusOptimisticGuard(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	doc, err := store.CreateDocument(ctx, Document{Title: "T", Author: "A", UploadedBy: "u", Status: StatusPendingReview})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if _, err := store.UpdateStatus(ctx, doc.ID, []Status{StatusDraft}, StatusPublished, ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("guard miss = %v, want ErrConflict", err)
	}
	if _, err := store.UpdateStatus(ctx, doc.ID, []Status{StatusDraft, StatusPendingReview}, StatusPublished, ""); err != nil {
		t.Fatalf("guard hit: %v", err)
	}
}
