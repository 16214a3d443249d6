package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"arkiva.org/internal/archive"
	"arkiva.org/internal/ids"
)

var _ archive.Store = (*Store)(nil)

const documentColumns = `
	id, title, abstract, author, year, file_name, file_path, file_size,
	uploaded_by, department_id, status, review_note, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (archive.Document, error) {
	var (
		doc      archive.Document
		abstract sql.NullString
		year     sql.NullInt32
		deptID   sql.NullString
		note     sql.NullString
		status   string
	)
	err := row.Scan(
		&doc.ID, &doc.Title, &abstract, &doc.Author, &year, &doc.FileName, &doc.FilePath,
		&doc.FileSize, &doc.UploadedBy, &deptID, &status, &note, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return archive.Document{}, err
	}
	doc.Abstract = abstract.String
	doc.Year = int(year.Int32)
	doc.DepartmentID = deptID.String
	doc.ReviewNote = note.String
	doc.Status = archive.Status(status)
	return doc, nil
}

func (s *Store) CreateDocument(ctx context.Context, doc archive.Document) (archive.Document, error) {
	if s.db == nil {
		return archive.Document{}, errors.New("database connection unavailable")
	}
	id := doc.ID
	if id == "" {
		id = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into documents (id, title, abstract, author, year, file_name, file_path,
			file_size, uploaded_by, department_id, status, review_note)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		returning `+documentColumns+`
	`, id, doc.Title, nullIfEmpty(doc.Abstract), doc.Author, nullIfZero(doc.Year),
		doc.FileName, doc.FilePath, doc.FileSize, doc.UploadedBy,
		nullIfEmpty(doc.DepartmentID), string(doc.Status), nullIfEmpty(doc.ReviewNote))
	created, err := scanDocument(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return archive.Document{}, archive.ErrNotFound
		}
		return archive.Document{}, err
	}
	return created, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (archive.Document, error) {
	if s.db == nil {
		return archive.Document{}, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `select `+documentColumns+` from documents where id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return archive.Document{}, archive.ErrNotFound
	}
	if err != nil {
		return archive.Document{}, err
	}
	return doc, nil
}

func (s *Store) ListDocuments(ctx context.Context, filter archive.ListFilter) ([]archive.Document, int, error) {
	if s.db == nil {
		return nil, 0, errors.New("database connection unavailable")
	}

	var (
		where []string
		args  []any
		idx   = 1
	)
	if filter.OwnerID != "" {
		where = append(where, fmt.Sprintf("uploaded_by = $%d", idx))
		args = append(args, filter.OwnerID)
		idx++
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(filter.Status))
		idx++
	}
	if filter.DepartmentID != "" {
		where = append(where, fmt.Sprintf("department_id = $%d", idx))
		args = append(args, filter.DepartmentID)
		idx++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(title ilike $%d or author ilike $%d)", idx, idx))
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	cond := ""
	if len(where) > 0 {
		cond = " where " + strings.Join(where, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from documents`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, perPage := normalizePage(filter.Page, filter.PerPage)
	query := fmt.Sprintf(`select%s from documents%s order by created_at desc limit $%d offset $%d`,
		documentColumns, cond, idx, idx+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []archive.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (s *Store) UpdateDocument(ctx context.Context, id string, upd archive.DocumentUpdate) (archive.Document, error) {
	if s.db == nil {
		return archive.Document{}, errors.New("database connection unavailable")
	}
	var (
		sets []string
		args []any
		idx  = 1
	)
	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.Abstract != nil {
		set("abstract", nullIfEmpty(*upd.Abstract))
	}
	if upd.Author != nil {
		set("author", *upd.Author)
	}
	if upd.Year != nil {
		set("year", nullIfZero(*upd.Year))
	}
	if upd.DepartmentID != nil {
		set("department_id", nullIfEmpty(*upd.DepartmentID))
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update documents set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return archive.Document{}, archive.ErrNotFound
			}
			return archive.Document{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return archive.Document{}, err
		}
		if aff == 0 {
			return archive.Document{}, archive.ErrNotFound
		}
	}
	return s.GetDocument(ctx, id)
}

// UpdateStatus is the optimistic lifecycle move: the predicate restricts the
// update to the allowed source states, so a writer working from a stale read
// affects zero rows and gets ErrConflict while the record still exists.
func (s *Store) UpdateStatus(ctx context.Context, id string, from []archive.Status, to archive.Status, note string) (archive.Document, error) {
	if s.db == nil {
		return archive.Document{}, errors.New("database connection unavailable")
	}
	if len(from) == 0 {
		return archive.Document{}, archive.ErrConflict
	}
	args := []any{id, string(to), nullIfEmpty(note)}
	placeholders := make([]string, len(from))
	for i, st := range from {
		placeholders[i] = fmt.Sprintf("$%d", i+4)
		args = append(args, string(st))
	}
	query := fmt.Sprintf(`
		update documents
		set status = $2, review_note = $3, updated_at = now()
		where id = $1 and status in (%s)
	`, strings.Join(placeholders, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return archive.Document{}, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return archive.Document{}, err
	}
	if aff == 0 {
		// Distinguish a missing record from a lost race.
		if _, err := s.GetDocument(ctx, id); err != nil {
			return archive.Document{}, err
		}
		return archive.Document{}, archive.ErrConflict
	}
	return s.GetDocument(ctx, id)
}

func (s *Store) CreateDownloadLog(ctx context.Context, log archive.DownloadLog) (archive.DownloadLog, error) {
	if s.db == nil {
		return archive.DownloadLog{}, errors.New("database connection unavailable")
	}
	id := log.ID
	if id == "" {
		id = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into download_logs (id, document_id, identity_id)
		values ($1, $2, $3)
		returning id, document_id, identity_id, downloaded_at
	`, id, log.DocumentID, log.IdentityID)
	var created archive.DownloadLog
	if err := row.Scan(&created.ID, &created.DocumentID, &created.IdentityID, &created.DownloadedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return archive.DownloadLog{}, archive.ErrNotFound
		}
		return archive.DownloadLog{}, err
	}
	return created, nil
}

func (s *Store) ListDownloadLogs(ctx context.Context, filter archive.DownloadFilter) ([]archive.DownloadLog, int, error) {
	if s.db == nil {
		return nil, 0, errors.New("database connection unavailable")
	}

	var (
		where []string
		args  []any
		idx   = 1
	)
	if filter.DocumentID != "" {
		where = append(where, fmt.Sprintf("dl.document_id = $%d", idx))
		args = append(args, filter.DocumentID)
		idx++
	}
	if filter.OwnerID != "" {
		where = append(where, fmt.Sprintf("d.uploaded_by = $%d", idx))
		args = append(args, filter.OwnerID)
		idx++
	}
	cond := ""
	if len(where) > 0 {
		cond = " where " + strings.Join(where, " and ")
	}
	base := ` from download_logs dl join documents d on d.id = dl.document_id` + cond

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, perPage := normalizePage(filter.Page, filter.PerPage)
	query := fmt.Sprintf(`select dl.id, dl.document_id, dl.identity_id, dl.downloaded_at%s
		order by dl.downloaded_at desc limit $%d offset $%d`, base, idx, idx+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []archive.DownloadLog
	for rows.Next() {
		var log archive.DownloadLog
		if err := rows.Scan(&log.ID, &log.DocumentID, &log.IdentityID, &log.DownloadedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}
