package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"arkiva.org/internal/audit"
	"arkiva.org/internal/auth"
)

type departmentRequest struct {
	Name   *string `json:"name"`
	Code   *string `json:"code"`
	Head   *string `json:"head"`
	Status *string `json:"status"`
}

func (a *API) handleDepartments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// Any authenticated session may read master data.
		depts, err := a.auth.ListDepartments(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, depts)
	case http.MethodPost:
		if !a.ensurePermissions(w, r, auth.RequireAll(auth.PermissionManageMasterData)) {
			return
		}
		var req departmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
		dept := auth.Department{}
		if req.Name != nil {
			dept.Name = *req.Name
		}
		if req.Code != nil {
			dept.Code = *req.Code
		}
		if req.Head != nil {
			dept.Head = *req.Head
		}
		if req.Status != nil {
			dept.Status = *req.Status
		}
		created, err := a.auth.CreateDepartment(r.Context(), dept)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		audit.Event(r.Context(), "department.create", map[string]any{
			"department_id": created.ID,
			"code":          created.Code,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/departments/%s", created.ID))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDepartmentResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/departments/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		dept, err := a.auth.GetDepartment(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dept)
	case http.MethodPut:
		if !a.ensurePermissions(w, r, auth.RequireAll(auth.PermissionManageMasterData)) {
			return
		}
		var req departmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
		dept, err := a.auth.UpdateDepartment(r.Context(), id, auth.DepartmentUpdate{
			Name:   req.Name,
			Code:   req.Code,
			Head:   req.Head,
			Status: req.Status,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		audit.Event(r.Context(), "department.update", map[string]any{"department_id": id})
		writeJSON(w, http.StatusOK, dept)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}
