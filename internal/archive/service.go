package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"arkiva.org/internal/auth"
	"arkiva.org/internal/obs"
	"arkiva.org/internal/storage"
)

// CreateInput is the metadata part of a document upload.
type CreateInput struct {
	Title           string
	Abstract        string
	Author          string
	Year            int
	DepartmentID    string
	SubmitForReview bool
}

// Service implements the document lifecycle over a Store and a BlobStore.
// Every operation takes the caller's Principal: permission gating happens at
// the HTTP boundary, ownership scoping happens here.
type Service struct {
	store Store
	blobs storage.BlobStore
}

// NewService wires a Service.
func NewService(store Store, blobs storage.BlobStore) *Service {
	return &Service{store: store, blobs: blobs}
}

// Create stores the blob and the document record. The blob is written first
// so a failed insert never leaves a record pointing at nothing; on insert
// failure the blob is removed again.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput, fileName string, r io.Reader) (Document, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	if in.Title == "" {
		return Document{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Author == "" {
		return Document{}, fmt.Errorf("%w: author is required", ErrInvalidInput)
	}
	if in.Year != 0 && (in.Year < 1900 || in.Year > time.Now().Year()+1) {
		return Document{}, fmt.Errorf("%w: implausible year %d", ErrInvalidInput, in.Year)
	}

	blob, err := s.blobs.Save(ctx, fileName, r)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return Document{}, fmt.Errorf("store blob: %w", err)
	}

	status := StatusDraft
	if in.SubmitForReview {
		status = StatusPendingReview
	}
	doc := Document{
		Title:        in.Title,
		Abstract:     strings.TrimSpace(in.Abstract),
		Author:       in.Author,
		Year:         in.Year,
		FileName:     blob.Name,
		FilePath:     blob.Path,
		FileSize:     blob.Size,
		UploadedBy:   p.Identity.ID,
		DepartmentID: in.DepartmentID,
		Status:       status,
	}
	created, err := s.store.CreateDocument(ctx, doc)
	if err != nil {
		if rmErr := s.blobs.Remove(ctx, blob.Path); rmErr != nil {
			obs.LogRequest(map[string]any{
				"level": "error", "msg": "orphan blob cleanup failed",
				"path": blob.Path, "error": rmErr.Error(),
			})
		}
		return Document{}, err
	}
	return created, nil
}

// Get loads one document within the caller's ownership scope.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if err := s.scopeCheck(p, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// List returns a page of documents. Self-scoped callers only ever see their
// own records; the scope is merged into the filter so totals stay correct.
func (s *Service) List(ctx context.Context, p auth.Principal, filter ListFilter) ([]Document, int, error) {
	if p.SelfScoped() {
		filter.OwnerID = p.Identity.ID
	}
	return s.store.ListDocuments(ctx, filter)
}

// Update applies a metadata patch within the caller's ownership scope.
// Status never changes here; lifecycle moves have their own operations.
func (s *Service) Update(ctx context.Context, p auth.Principal, id string, upd DocumentUpdate) (Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if err := s.mutateCheck(p, doc); err != nil {
		return Document{}, err
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return Document{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if upd.Author != nil && strings.TrimSpace(*upd.Author) == "" {
		return Document{}, fmt.Errorf("%w: author cannot be empty", ErrInvalidInput)
	}
	return s.store.UpdateDocument(ctx, id, upd)
}

// Approve publishes a draft or submitted document.
func (s *Service) Approve(ctx context.Context, p auth.Principal, id string) (Document, error) {
	return s.transition(ctx, id, StatusPublished, "")
}

// Reject moves a draft or submitted document to rejected, persisting the
// reviewer's note.
func (s *Service) Reject(ctx context.Context, p auth.Principal, id, note string) (Document, error) {
	return s.transition(ctx, id, StatusRejected, strings.TrimSpace(note))
}

// SoftDelete archives the document and removes its blob. Blob removal
// failure does not block the transition; the returned flag reports whether
// the physical file is gone.
func (s *Service) SoftDelete(ctx context.Context, p auth.Principal, id string) (Document, bool, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return Document{}, false, err
	}
	if err := s.mutateCheck(p, doc); err != nil {
		return Document{}, false, err
	}
	if err := CheckTransition(doc.Status, StatusArchived); err != nil {
		return Document{}, false, err
	}
	archived, err := s.store.UpdateStatus(ctx, id, AllowedFrom(StatusArchived), StatusArchived, doc.ReviewNote)
	if err != nil {
		return Document{}, false, err
	}
	fileRemoved := true
	if err := s.blobs.Remove(ctx, doc.FilePath); err != nil {
		fileRemoved = false
		obs.LogRequest(map[string]any{
			"level": "error", "msg": "archived document blob removal failed",
			"document_id": id, "path": doc.FilePath, "error": err.Error(),
		})
	}
	return archived, fileRemoved, nil
}

// Download opens the stored blob within the caller's ownership scope and
// records a download log row.
func (s *Service) Download(ctx context.Context, p auth.Principal, id string) (Document, io.ReadCloser, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	if err := s.scopeCheck(p, doc); err != nil {
		return Document{}, nil, err
	}
	rc, err := s.blobs.Open(ctx, doc.FilePath)
	if err != nil {
		// Soft-deleted documents keep their record but lose the blob.
		if errors.Is(err, storage.ErrNotFound) {
			return Document{}, nil, fmt.Errorf("%w: file no longer stored", ErrNotFound)
		}
		return Document{}, nil, fmt.Errorf("open blob: %w", err)
	}
	if _, err := s.store.CreateDownloadLog(ctx, DownloadLog{
		DocumentID: doc.ID,
		IdentityID: p.Identity.ID,
	}); err != nil {
		rc.Close()
		return Document{}, nil, fmt.Errorf("record download: %w", err)
	}
	return doc, rc, nil
}

// ListDownloads returns download logs. Holders of view_download_logs see
// everything; holders of only view_own_download_logs see downloads of their
// own documents.
func (s *Service) ListDownloads(ctx context.Context, p auth.Principal, filter DownloadFilter) ([]DownloadLog, int, error) {
	switch {
	case p.HasPermission(auth.PermissionViewDownloadLogs):
		// full visibility
	case p.HasPermission(auth.PermissionViewOwnDownloadLogs):
		filter.OwnerID = p.Identity.ID
	default:
		return nil, 0, ErrForbidden
	}
	return s.store.ListDownloadLogs(ctx, filter)
}

func (s *Service) transition(ctx context.Context, id string, to Status, note string) (Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if err := CheckTransition(doc.Status, to); err != nil {
		return Document{}, err
	}
	return s.store.UpdateStatus(ctx, id, AllowedFrom(to), to, note)
}

// scopeCheck guards read paths: self-scoped callers only reach their own
// documents. Forbidden, not NotFound, so the caller can tell a scoping
// refusal from a missing record.
func (s *Service) scopeCheck(p auth.Principal, doc Document) error {
	if p.SelfScoped() && doc.UploadedBy != p.Identity.ID {
		return ErrForbidden
	}
	return nil
}

// mutateCheck guards write paths: holders of manage_documents may mutate any
// record, everyone else only their own.
func (s *Service) mutateCheck(p auth.Principal, doc Document) error {
	if p.HasPermission(auth.PermissionManageDocuments) {
		return nil
	}
	if doc.UploadedBy == p.Identity.ID {
		return nil
	}
	return ErrForbidden
}
