package archive

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"arkiva.org/internal/ids"
)

// InMemoryStore implements Store for handler tests and local development.
type InMemoryStore struct {
	mu        sync.RWMutex
	documents map[string]Document
	downloads map[string]DownloadLog
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		documents: make(map[string]Document),
		downloads: make(map[string]DownloadLog),
	}
}

func (s *InMemoryStore) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = ids.New()
	}
	now := time.Now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now
	s.documents[doc.ID] = doc
	return doc, nil
}

func (s *InMemoryStore) GetDocument(ctx context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (s *InMemoryStore) ListDocuments(ctx context.Context, filter ListFilter) ([]Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Document
	for _, doc := range s.documents {
		if filter.OwnerID != "" && doc.UploadedBy != filter.OwnerID {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if filter.DepartmentID != "" && doc.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(doc.Title), needle) &&
				!strings.Contains(strings.ToLower(doc.Author), needle) {
				continue
			}
		}
		all = append(all, doc)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	page, perPage := normalizePage(filter.Page, filter.PerPage)
	start := (page - 1) * perPage
	if start >= total {
		return nil, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *InMemoryStore) UpdateDocument(ctx context.Context, id string, upd DocumentUpdate) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	if upd.Title != nil {
		doc.Title = *upd.Title
	}
	if upd.Abstract != nil {
		doc.Abstract = *upd.Abstract
	}
	if upd.Author != nil {
		doc.Author = *upd.Author
	}
	if upd.Year != nil {
		doc.Year = *upd.Year
	}
	if upd.DepartmentID != nil {
		doc.DepartmentID = *upd.DepartmentID
	}
	doc.UpdatedAt = time.Now().UTC()
	s.documents[id] = doc
	return doc, nil
}

func (s *InMemoryStore) UpdateStatus(ctx context.Context, id string, from []Status, to Status, note string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	allowed := false
	for _, f := range from {
		if doc.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return Document{}, ErrConflict
	}
	doc.Status = to
	doc.ReviewNote = note
	doc.UpdatedAt = time.Now().UTC()
	s.documents[id] = doc
	return doc, nil
}

func (s *InMemoryStore) CreateDownloadLog(ctx context.Context, log DownloadLog) (DownloadLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log.ID == "" {
		log.ID = ids.New()
	}
	if log.DownloadedAt.IsZero() {
		log.DownloadedAt = time.Now().UTC()
	}
	s.downloads[log.ID] = log
	return log, nil
}

func (s *InMemoryStore) ListDownloadLogs(ctx context.Context, filter DownloadFilter) ([]DownloadLog, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []DownloadLog
	for _, log := range s.downloads {
		if filter.DocumentID != "" && log.DocumentID != filter.DocumentID {
			continue
		}
		if filter.OwnerID != "" {
			doc, ok := s.documents[log.DocumentID]
			if !ok || doc.UploadedBy != filter.OwnerID {
				continue
			}
		}
		all = append(all, log)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].DownloadedAt.After(all[j].DownloadedAt) })

	total := len(all)
	page, perPage := normalizePage(filter.Page, filter.PerPage)
	start := (page - 1) * perPage
	if start >= total {
		return nil, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 10
	}
	return page, perPage
}
