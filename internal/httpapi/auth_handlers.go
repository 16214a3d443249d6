package httpapi

import (
	"net/http"

	"arkiva.org/internal/audit"
	"arkiva.org/internal/auth"
)

type loginRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

type meResponse struct {
	Identity    auth.Identity `json:"identity"`
	Permissions []string      `json:"permissions"`
}

type profileRequest struct {
	Name        *string `json:"name"`
	PersonnelID *string `json:"personnel_id"`
}

type secretRequest struct {
	Current string `json:"current"`
	New     string `json:"new"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	sess, err := a.auth.Login(r.Context(), req.Email, req.Secret)
	if err != nil {
		audit.Event(r.Context(), "auth.login.failed", map[string]any{"email": req.Email})
		handleAuthError(w, r, err)
		return
	}
	audit.Event(r.Context(), "auth.login", map[string]any{
		"identity_id": sess.Identity.ID,
		"email":       sess.Identity.Email,
	})
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req auth.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	ident, err := a.auth.Register(r.Context(), req)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	sess, err := a.auth.Login(r.Context(), ident.Email, req.Secret)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.Event(r.Context(), "auth.register", map[string]any{
		"identity_id": ident.ID,
		"email":       ident.Email,
	})
	writeJSON(w, http.StatusCreated, sess)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal := mustPrincipal(r)
	writeJSON(w, http.StatusOK, meResponse{
		Identity:    principal.Identity,
		Permissions: principal.PermissionKeys(),
	})
}

// handleProfile lets a session edit its own display fields. Role, status and
// email stay admin-only.
func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	principal := mustPrincipal(r)
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	ident, err := a.auth.UpdateIdentity(r.Context(), principal.Identity.ID, auth.UpdateIdentityInput{
		Name:        req.Name,
		PersonnelID: req.PersonnelID,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ident)
}

func (a *API) handleSecret(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	principal := mustPrincipal(r)
	var req secretRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if err := a.auth.ChangeSecret(r.Context(), principal.Identity.ID, req.Current, req.New); err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.Event(r.Context(), "auth.secret.changed", map[string]any{
		"identity_id": principal.Identity.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}
