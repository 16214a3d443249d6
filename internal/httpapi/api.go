// Package httpapi is the JSON/HTTP surface of the service: authentication
// middleware, the permission gate and the resource handlers.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"arkiva.org/internal/archive"
	"arkiva.org/internal/auth"
	"arkiva.org/internal/obs"
)

// ReadyProbe reports readiness (database reachability).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options tunes the middleware chain.
type Options struct {
	MaxBodyBytes int64
	RateBurst    int
	RatePerSec   int
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 20 << 20
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 20
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = 10
	}
	return o
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	docs       *archive.Service
	readyProbe ReadyProbe
	version    string
	opts       Options
}

func New(authSvc *auth.Service, docs *archive.Service, rp ReadyProbe, version string, opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       authSvc,
		docs:       docs,
		readyProbe: rp,
		version:    version,
		opts:       opts.withDefaults(),
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// sessions
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)
	a.mux.HandleFunc("/v1/auth/profile", a.handleProfile)
	a.mux.HandleFunc("/v1/auth/secret", a.handleSecret)

	// identity administration
	a.mux.HandleFunc("/v1/identities", a.handleIdentities)
	a.mux.HandleFunc("/v1/identities/", a.handleIdentityResource)

	// roles and permissions
	a.mux.HandleFunc("/v1/roles", a.handleRoles)
	a.mux.HandleFunc("/v1/roles/", a.handleRoleResource)
	a.mux.HandleFunc("/v1/permissions", a.handlePermissions)

	// master data
	a.mux.HandleFunc("/v1/departments", a.handleDepartments)
	a.mux.HandleFunc("/v1/departments/", a.handleDepartmentResource)

	// documents
	a.mux.HandleFunc("/v1/documents", a.handleDocuments)
	a.mux.HandleFunc("/v1/documents/", a.handleDocumentResource)
	a.mux.HandleFunc("/v1/download-logs", a.handleDownloadLogs)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	h = RateLimit(h, a.opts.RateBurst, a.opts.RatePerSec)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "arkiva-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "arkiva-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
