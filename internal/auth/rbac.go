package auth

import (
	"context"
	"fmt"
)

// GetRole loads one role.
func (s *Service) GetRole(ctx context.Context, roleID string) (Role, error) {
	return s.store.GetRole(ctx, roleID)
}

// ListRoles returns every role.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// ListPermissions returns the full permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// PermissionsOf returns the permissions currently granted to a role.
func (s *Service) PermissionsOf(ctx context.Context, roleID string) ([]Permission, error) {
	return s.store.RolePermissions(ctx, roleID)
}

// HasPermission reports whether the role holds the given permission key.
func (s *Service) HasPermission(ctx context.Context, roleID, key string) (bool, error) {
	perms, err := s.store.RolePermissions(ctx, roleID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.Key == key {
			return true, nil
		}
	}
	return false, nil
}

// ReplacePermissions swaps a role's grant set for the given permissions,
// referenced by id or by key. The replacement is atomic: a failure leaves
// the previous set intact. The root role's grants are immutable.
func (s *Service) ReplacePermissions(ctx context.Context, roleID string, refs []string) ([]Permission, error) {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.Slug == RoleSlugRootAdmin {
		return nil, ErrImmutableRole
	}

	catalog, err := s.store.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Permission, len(catalog))
	byKey := make(map[string]Permission, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
		byKey[p.Key] = p
	}

	seen := make(map[string]struct{}, len(refs))
	permIDs := make([]string, 0, len(refs))
	for _, ref := range refs {
		perm, ok := byID[ref]
		if !ok {
			perm, ok = byKey[ref]
		}
		if !ok {
			return nil, fmt.Errorf("%w: unknown permission %q", ErrNotFound, ref)
		}
		if _, dup := seen[perm.ID]; dup {
			continue
		}
		seen[perm.ID] = struct{}{}
		permIDs = append(permIDs, perm.ID)
	}

	if err := s.store.ReplaceRolePermissions(ctx, roleID, permIDs); err != nil {
		return nil, err
	}
	return s.store.RolePermissions(ctx, roleID)
}
