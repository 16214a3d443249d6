package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"arkiva.org/internal/archive"
	"arkiva.org/internal/audit"
	"arkiva.org/internal/auth"
)

type documentUpdateRequest struct {
	Title        *string `json:"title"`
	Abstract     *string `json:"abstract"`
	Author       *string `json:"author"`
	Year         *int    `json:"year"`
	DepartmentID *string `json:"department_id"`
}

type rejectRequest struct {
	Note string `json:"note"`
}

func (a *API) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listDocuments(w, r)
	case http.MethodPost:
		a.createDocument(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listDocuments(w http.ResponseWriter, r *http.Request) {
	principal := mustPrincipal(r)
	q := r.URL.Query()
	filter := archive.ListFilter{
		Search:       q.Get("search"),
		DepartmentID: q.Get("department_id"),
		Page:         intQuery(q.Get("page")),
		PerPage:      intQuery(q.Get("per_page")),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := archive.ParseStatus(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
		filter.Status = status
	}
	docs, total, err := a.docs.List(r.Context(), principal, filter)
	if err != nil {
		handleArchiveError(w, r, err)
		return
	}
	page, perPage := pageDefaults(filter.Page, filter.PerPage)
	writeJSON(w, http.StatusOK, listResponse{Items: docs, Total: total, Page: page, PerPage: perPage})
}

// createDocument accepts a multipart form: metadata fields plus one "file"
// part. The body size cap is enforced by the middleware chain.
func (a *API) createDocument(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.RequireAll(auth.PermissionUploadDocuments)) {
		return
	}
	principal := mustPrincipal(r)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, "file part is required")
		return
	}
	defer file.Close()

	year := 0
	if raw := r.FormValue("year"); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, codeValidation, "year must be a number")
			return
		}
	}
	in := archive.CreateInput{
		Title:           r.FormValue("title"),
		Abstract:        r.FormValue("abstract"),
		Author:          r.FormValue("author"),
		Year:            year,
		DepartmentID:    r.FormValue("department_id"),
		SubmitForReview: r.FormValue("submit_for_review") == "true",
	}
	doc, err := a.docs.Create(r.Context(), principal, in, header.Filename, file)
	if err != nil {
		handleArchiveError(w, r, err)
		return
	}
	audit.Event(r.Context(), "document.create", map[string]any{
		"document_id": doc.ID,
		"status":      string(doc.Status),
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/documents/%s", doc.ID))
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) handleDocumentResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/documents/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]
	switch len(parts) {
	case 1:
		a.documentByID(w, r, id)
	case 2:
		switch parts[1] {
		case "approve":
			a.approveDocument(w, r, id)
		case "reject":
			a.rejectDocument(w, r, id)
		case "download":
			a.downloadDocument(w, r, id)
		default:
			writeError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		}
	default:
		writeError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
	}
}

func (a *API) documentByID(w http.ResponseWriter, r *http.Request, id string) {
	principal := mustPrincipal(r)
	switch r.Method {
	case http.MethodGet:
		doc, err := a.docs.Get(r.Context(), principal, id)
		if err != nil {
			handleArchiveError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodPut:
		var req documentUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
		doc, err := a.docs.Update(r.Context(), principal, id, archive.DocumentUpdate{
			Title:        req.Title,
			Abstract:     req.Abstract,
			Author:       req.Author,
			Year:         req.Year,
			DepartmentID: req.DepartmentID,
		})
		if err != nil {
			handleArchiveError(w, r, err)
			return
		}
		audit.Event(r.Context(), "document.update", map[string]any{"document_id": id})
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		doc, fileRemoved, err := a.docs.SoftDelete(r.Context(), principal, id)
		if err != nil {
			handleArchiveError(w, r, err)
			return
		}
		audit.Event(r.Context(), "document.archive", map[string]any{
			"document_id":  id,
			"file_removed": fileRemoved,
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"document":     doc,
			"file_removed": fileRemoved,
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) approveDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensurePermissions(w, r, auth.RequireAll(auth.PermissionApproveDocuments)) {
		return
	}
	doc, err := a.docs.Approve(r.Context(), mustPrincipal(r), id)
	if err != nil {
		handleArchiveError(w, r, err)
		return
	}
	audit.Event(r.Context(), "document.approve", map[string]any{"document_id": id})
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) rejectDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensurePermissions(w, r, auth.RequireAll(auth.PermissionApproveDocuments)) {
		return
	}
	var req rejectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	doc, err := a.docs.Reject(r.Context(), mustPrincipal(r), id, req.Note)
	if err != nil {
		handleArchiveError(w, r, err)
		return
	}
	audit.Event(r.Context(), "document.reject", map[string]any{"document_id": id})
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) downloadDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	doc, rc, err := a.docs.Download(r.Context(), mustPrincipal(r), id)
	if err != nil {
		handleArchiveError(w, r, err)
		return
	}
	defer rc.Close()
	audit.Event(r.Context(), "document.download", map[string]any{"document_id": id})
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	if doc.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.FileSize, 10))
	}
	_, _ = io.Copy(w, rc)
}

func (a *API) handleDownloadLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermissions(w, r, auth.RequireAny(
		auth.PermissionViewDownloadLogs, auth.PermissionViewOwnDownloadLogs)) {
		return
	}
	principal := mustPrincipal(r)
	q := r.URL.Query()
	filter := archive.DownloadFilter{
		DocumentID: q.Get("document_id"),
		Page:       intQuery(q.Get("page")),
		PerPage:    intQuery(q.Get("per_page")),
	}
	logs, total, err := a.docs.ListDownloads(r.Context(), principal, filter)
	if err != nil {
		handleArchiveError(w, r, err)
		return
	}
	page, perPage := pageDefaults(filter.Page, filter.PerPage)
	writeJSON(w, http.StatusOK, listResponse{Items: logs, Total: total, Page: page, PerPage: perPage})
}
