package httpapi

import (
	"net/http"
	"strings"

	"arkiva.org/internal/audit"
	"arkiva.org/internal/auth"
)

type replacePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermissions(w, r, auth.RequireAll(auth.PermissionManageRoles)) {
		return
	}
	roles, err := a.auth.ListRoles(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermissions(w, r, auth.RequireAll(auth.PermissionManageRoles)) {
		return
	}
	perms, err := a.auth.ListPermissions(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perms)
}

func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/roles/"), "/")
	parts := strings.Split(path, "/")
	if path == "" || len(parts) != 2 || parts[1] != "permissions" {
		writeError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	roleID := parts[0]
	if !a.ensurePermissions(w, r, auth.RequireAll(auth.PermissionManageRoles)) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		perms, err := a.auth.PermissionsOf(r.Context(), roleID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, perms)
	case http.MethodPut:
		var req replacePermissionsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
		perms, err := a.auth.ReplacePermissions(r.Context(), roleID, req.Permissions)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		audit.Event(r.Context(), "rbac.role.permissions.replace", map[string]any{
			"role_id": roleID,
			"count":   len(perms),
		})
		writeJSON(w, http.StatusOK, perms)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}
