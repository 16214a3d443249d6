package auth

import "context"

// Store describes the persistence operations required by the auth subsystem.
// Implementations: internal/store/pg (PostgreSQL) and InMemoryStore (tests,
// local development).
type Store interface {
	// Identities.
	CreateIdentity(ctx context.Context, ident Identity, secretHash string) (Identity, error)
	GetIdentity(ctx context.Context, id string) (Identity, error)
	FindCredential(ctx context.Context, email string) (Credential, error)
	ListIdentities(ctx context.Context, filter IdentityFilter) ([]Identity, int, error)
	UpdateIdentity(ctx context.Context, id string, upd IdentityUpdate) (Identity, error)
	DeleteIdentity(ctx context.Context, id string) error

	// Roles and permissions.
	GetRole(ctx context.Context, roleID string) (Role, error)
	FindRoleBySlug(ctx context.Context, slug string) (Role, error)
	FindRoleByName(ctx context.Context, name string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	RolePermissions(ctx context.Context, roleID string) ([]Permission, error)
	// ReplaceRolePermissions atomically sets the role's grant set to exactly
	// the given permission ids; concurrent readers observe either the old set
	// or the new set in full.
	ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error

	// Departments.
	CreateDepartment(ctx context.Context, dept Department) (Department, error)
	GetDepartment(ctx context.Context, id string) (Department, error)
	FindDepartmentByName(ctx context.Context, name string) (Department, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	UpdateDepartment(ctx context.Context, id string, upd DepartmentUpdate) (Department, error)
}
