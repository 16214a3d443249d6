package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"arkiva.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/register",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

// withAuth resolves the bearer token to a live Principal before any handler
// runs. The principal is rebuilt from the store on every request, so role and
// status changes take effect immediately.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, err.Error())
			return
		}

		principal, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, "token expired")
			case errors.Is(err, auth.ErrInvalidToken):
				writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, "invalid token")
			case errors.Is(err, auth.ErrNotFound):
				// The identity behind a valid token is gone: unauthenticated,
				// not not-found, so deleted accounts look like bad tokens.
				writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, "invalid token")
			case errors.Is(err, auth.ErrAccountDisabled):
				writeError(w, r, http.StatusForbidden, codeAccountDisabled, "account disabled")
			default:
				writeError(w, r, http.StatusInternalServerError, codeInternal, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensurePermissions enforces a Requirement and writes the refusal itself.
// The 403 body names the required keys for diagnostics.
func (a *API) ensurePermissions(w http.ResponseWriter, r *http.Request, req auth.Requirement) bool {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
		return false
	}
	if !req.SatisfiedBy(principal) {
		writeError(w, r, http.StatusForbidden, codeForbidden,
			"missing permission: "+strings.Join(req.Permissions, ", "))
		return false
	}
	return true
}

// mustPrincipal is for handlers behind withAuth on non-public paths.
func mustPrincipal(r *http.Request) auth.Principal {
	principal, _ := auth.PrincipalFromContext(r.Context())
	return principal
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
