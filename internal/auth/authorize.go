package auth

import "strings"

// Principal represents an authenticated identity with its resolved
// permission set, as loaded freshly for the current request.
type Principal struct {
	Identity    Identity
	Permissions map[string]struct{}
}

// NewPrincipal constructs a principal with preloaded permissions.
func NewPrincipal(identity Identity, perms []Permission) Principal {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p.Key] = struct{}{}
	}
	return Principal{Identity: identity, Permissions: set}
}

// HasPermission reports whether the principal holds the capability.
func (p Principal) HasPermission(key string) bool {
	_, ok := p.Permissions[key]
	return ok
}

// SelfScoped reports whether the principal's role restricts it to
// self-owned documents.
func (p Principal) SelfScoped() bool {
	return p.Identity.Role != nil && p.Identity.Role.SelfScoped
}

// PermissionKeys returns the sorted-insertion list of held permissions for
// response payloads.
func (p Principal) PermissionKeys() []string {
	if len(p.Permissions) == 0 {
		return nil
	}
	out := make([]string, 0, len(p.Permissions))
	for _, bp := range BuiltinPermissions {
		if _, ok := p.Permissions[bp.Key]; ok {
			out = append(out, bp.Key)
		}
	}
	// Keys outside the builtin catalog, in any order.
	for key := range p.Permissions {
		if !containsKey(out, key) {
			out = append(out, key)
		}
	}
	return out
}

func containsKey(list []string, key string) bool {
	for _, v := range list {
		if v == key {
			return true
		}
	}
	return false
}

// RequireMode selects how a multi-permission requirement combines.
type RequireMode int

const (
	// RequireModeAll admits only principals holding every listed permission.
	RequireModeAll RequireMode = iota
	// RequireModeAny admits principals holding at least one.
	RequireModeAny
)

// Requirement is a permission set with an explicit ALL/ANY combinator,
// declared per endpoint by the authorization gate.
type Requirement struct {
	Mode        RequireMode
	Permissions []string
}

// RequireAll builds an ALL-of requirement.
func RequireAll(perms ...string) Requirement {
	return Requirement{Mode: RequireModeAll, Permissions: dedupeKeys(perms)}
}

// RequireAny builds an ANY-of requirement.
func RequireAny(perms ...string) Requirement {
	return Requirement{Mode: RequireModeAny, Permissions: dedupeKeys(perms)}
}

// SatisfiedBy reports whether the principal meets the requirement. An empty
// requirement admits any authenticated principal.
func (r Requirement) SatisfiedBy(p Principal) bool {
	if len(r.Permissions) == 0 {
		return true
	}
	switch r.Mode {
	case RequireModeAny:
		for _, perm := range r.Permissions {
			if p.HasPermission(perm) {
				return true
			}
		}
		return false
	default:
		for _, perm := range r.Permissions {
			if !p.HasPermission(perm) {
				return false
			}
		}
		return true
	}
}

func dedupeKeys(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
