// Package audit emits structured JSON events for security-relevant actions:
// logins, registrations, permission grants, lifecycle transitions, deletions.
package audit

import (
	"context"
	"time"

	"arkiva.org/internal/auth"
	"arkiva.org/internal/obs"
)

// Event writes one audit line. The actor is taken from the request context
// when present; unauthenticated events (failed logins) carry no actor.
func Event(ctx context.Context, action string, fields map[string]any) {
	entry := map[string]any{
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		"level":  "audit",
		"action": action,
	}
	if principal, ok := auth.PrincipalFromContext(ctx); ok {
		entry["actor_id"] = principal.Identity.ID
		entry["actor_email"] = principal.Identity.Email
	}
	for k, v := range fields {
		entry[k] = v
	}
	obs.LogRequest(entry)
}
