package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"arkiva.org/internal/archive"
	"arkiva.org/internal/auth"
)

// Machine-readable error codes carried next to the human message.
const (
	codeUnauthenticated = "unauthenticated"
	codeAccountDisabled = "account_disabled"
	codeForbidden       = "forbidden"
	codeNotFound        = "not_found"
	codeConflict        = "conflict"
	codeValidation      = "validation"
	codeRateLimited     = "rate_limited"
	codeInternal        = "internal"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeError(w, r, http.StatusMethodNotAllowed, codeValidation, "method not allowed")
}

// handleAuthError maps auth service errors onto the response taxonomy.
// Internal failures are the only ones whose detail is hidden.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, "invalid credentials")
	case errors.Is(err, auth.ErrAccountDisabled):
		writeError(w, r, http.StatusForbidden, codeAccountDisabled, "account disabled")
	case errors.Is(err, auth.ErrImmutableRole):
		writeError(w, r, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, codeInternal, "operation failed")
	}
}

func handleArchiveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, archive.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, archive.ErrConflict):
		writeError(w, r, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, archive.ErrForbidden):
		writeError(w, r, http.StatusForbidden, codeForbidden, "forbidden")
	case errors.Is(err, archive.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, archive.ErrNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, codeInternal, "operation failed")
	}
}

// listResponse is the paging envelope for collection endpoints.
type listResponse struct {
	Items   any `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}
