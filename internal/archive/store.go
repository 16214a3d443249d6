package archive

import "context"

// Store describes the persistence operations of the archive subsystem.
// Implementations: internal/store/pg (PostgreSQL) and InMemoryStore (tests,
// local development).
type Store interface {
	CreateDocument(ctx context.Context, doc Document) (Document, error)
	GetDocument(ctx context.Context, id string) (Document, error)
	ListDocuments(ctx context.Context, filter ListFilter) ([]Document, int, error)
	UpdateDocument(ctx context.Context, id string, upd DocumentUpdate) (Document, error)
	// UpdateStatus moves the document to `to` only while its current status
	// is one of `from`; a stale read loses the race and returns ErrConflict.
	// The note replaces the stored review note ("" clears it).
	UpdateStatus(ctx context.Context, id string, from []Status, to Status, note string) (Document, error)

	CreateDownloadLog(ctx context.Context, log DownloadLog) (DownloadLog, error)
	ListDownloadLogs(ctx context.Context, filter DownloadFilter) ([]DownloadLog, int, error)
}
