package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"arkiva.org/internal/audit"
	"arkiva.org/internal/auth"
)

func (a *API) handleIdentities(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermissions(w, r, auth.RequireAll(auth.PermissionManageUsers)) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.listIdentities(w, r)
	case http.MethodPost:
		a.createIdentity(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listIdentities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := auth.IdentityFilter{
		Search:   q.Get("search"),
		RoleSlug: q.Get("role"),
		Page:     intQuery(q.Get("page")),
		PerPage:  intQuery(q.Get("per_page")),
	}
	idents, total, err := a.auth.ListIdentities(r.Context(), filter)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	page, perPage := pageDefaults(filter.Page, filter.PerPage)
	writeJSON(w, http.StatusOK, listResponse{Items: idents, Total: total, Page: page, PerPage: perPage})
}

func (a *API) createIdentity(w http.ResponseWriter, r *http.Request) {
	var req auth.CreateIdentityInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	ident, err := a.auth.CreateIdentity(r.Context(), req)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.Event(r.Context(), "identity.create", map[string]any{
		"identity_id": ident.ID,
		"email":       ident.Email,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/identities/%s", ident.ID))
	writeJSON(w, http.StatusCreated, ident)
}

func (a *API) handleIdentityResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/identities/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	if !a.ensurePermissions(w, r, auth.RequireAll(auth.PermissionManageUsers)) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		ident, err := a.auth.GetIdentity(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ident)
	case http.MethodPut:
		var req auth.UpdateIdentityInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
		ident, err := a.auth.UpdateIdentity(r.Context(), id, req)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		audit.Event(r.Context(), "identity.update", map[string]any{"identity_id": id})
		writeJSON(w, http.StatusOK, ident)
	case http.MethodDelete:
		principal := mustPrincipal(r)
		if err := a.auth.DeleteIdentity(r.Context(), principal.Identity.ID, id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		audit.Event(r.Context(), "identity.delete", map[string]any{"identity_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func intQuery(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func pageDefaults(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 10
	}
	return page, perPage
}
