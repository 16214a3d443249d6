package archive

import (
	"fmt"
	"time"
)

// Status is a document lifecycle state.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusPendingReview Status = "pending_review"
	StatusPublished     Status = "published"
	StatusArchived      Status = "archived"
	StatusRejected      Status = "rejected"
)

// AllStatuses lists every lifecycle state, for validation and seeds.
var AllStatuses = []Status{
	StatusDraft, StatusPendingReview, StatusPublished, StatusArchived, StatusRejected,
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	for _, s := range AllStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
}

// Document is a repository record plus its stored file. UploadedBy is set at
// creation and never changes; it anchors ownership scoping.
type Document struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Abstract     string    `json:"abstract,omitempty"`
	Author       string    `json:"author"`
	Year         int       `json:"year,omitempty"`
	FileName     string    `json:"file_name"`
	FilePath     string    `json:"-"`
	FileSize     int64     `json:"file_size"`
	UploadedBy   string    `json:"uploaded_by"`
	DepartmentID string    `json:"department_id,omitempty"`
	Status       Status    `json:"status"`
	ReviewNote   string    `json:"review_note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DocumentUpdate is a partial metadata update; nil fields are untouched.
// Status is not updatable here: lifecycle moves go through transitions.
type DocumentUpdate struct {
	Title        *string
	Abstract     *string
	Author       *string
	Year         *int
	DepartmentID *string
}

// ListFilter narrows and pages document listings. OwnerID, when set, is
// merged into the query so pagination totals respect the ownership scope.
type ListFilter struct {
	Search       string
	Status       Status
	DepartmentID string
	OwnerID      string
	Page         int
	PerPage      int
}

// DownloadLog records one successful download of a document.
type DownloadLog struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	IdentityID   string    `json:"identity_id"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// DownloadFilter narrows download log listings. OwnerID restricts rows to
// downloads of documents uploaded by that identity.
type DownloadFilter struct {
	DocumentID string
	OwnerID    string
	Page       int
	PerPage    int
}
