package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"arkiva.org/internal/ids"
)

// InMemoryStore implements Store with in-process concurrency safety. It backs
// handler tests and local development; production uses the PostgreSQL store.
type InMemoryStore struct {
	mu          sync.RWMutex
	identities  map[string]Identity
	secrets     map[string]string // identity id -> hash
	roles       map[string]Role
	permissions map[string]Permission // id -> permission
	grants      map[string][]string   // role id -> permission ids
	departments map[string]Department
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		identities:  make(map[string]Identity),
		secrets:     make(map[string]string),
		roles:       make(map[string]Role),
		permissions: make(map[string]Permission),
		grants:      make(map[string][]string),
		departments: make(map[string]Department),
	}
}

// SeedBuiltins installs the builtin permission catalog and the four seeded
// roles, granting everything to the root role. It mirrors the SQL seeds.
func (s *InMemoryStore) SeedBuiltins() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()

	permIDByKey := make(map[string]string, len(BuiltinPermissions))
	var permIDs []string
	for _, p := range BuiltinPermissions {
		perm := Permission{ID: ids.New(), Key: p.Key, Description: p.Description, CreatedAt: now}
		s.permissions[perm.ID] = perm
		permIDByKey[perm.Key] = perm.ID
		permIDs = append(permIDs, perm.ID)
	}

	grantsBySlug := map[string][]string{
		RoleSlugDepartmentAdmin: {
			PermissionManageMasterData, PermissionManageDocuments,
			PermissionUploadDocuments, PermissionViewDownloadLogs,
		},
		RoleSlugReviewer: {
			PermissionApproveDocuments, PermissionManageDocuments,
			PermissionViewDownloadLogs,
		},
		RoleSlugMember: {
			PermissionUploadDocuments, PermissionViewOwnDownloadLogs,
		},
	}

	seedRoles := []Role{
		{Name: "Root Admin", Slug: RoleSlugRootAdmin},
		{Name: "Department Admin", Slug: RoleSlugDepartmentAdmin},
		{Name: "Reviewer", Slug: RoleSlugReviewer},
		{Name: "Member", Slug: RoleSlugMember, SelfScoped: true},
	}
	for _, r := range seedRoles {
		r.ID = ids.New()
		r.CreatedAt, r.UpdatedAt = now, now
		s.roles[r.ID] = r
		if r.Slug == RoleSlugRootAdmin {
			s.grants[r.ID] = append([]string(nil), permIDs...)
			continue
		}
		for _, key := range grantsBySlug[r.Slug] {
			s.grants[r.ID] = append(s.grants[r.ID], permIDByKey[key])
		}
	}
}

// MustRoleID returns the id of the role with the given slug; it panics when
// the slug is unseeded, which only happens on test setup mistakes.
func (s *InMemoryStore) MustRoleID(slug string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Slug == slug {
			return r.ID
		}
	}
	panic(fmt.Sprintf("auth: role slug %q not seeded", slug))
}

func (s *InMemoryStore) CreateIdentity(ctx context.Context, ident Identity, secretHash string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.identities {
		if strings.EqualFold(existing.Email, ident.Email) {
			return Identity{}, ErrConflict
		}
	}
	if _, ok := s.roles[ident.RoleID]; !ok {
		return Identity{}, ErrNotFound
	}
	if ident.DepartmentID != "" {
		if _, ok := s.departments[ident.DepartmentID]; !ok {
			return Identity{}, ErrNotFound
		}
	}
	if ident.ID == "" {
		ident.ID = ids.New()
	}
	now := time.Now().UTC()
	ident.CreatedAt, ident.UpdatedAt = now, now
	ident.Role, ident.Department = nil, nil
	s.identities[ident.ID] = ident
	s.secrets[ident.ID] = secretHash
	return s.loadIdentityLocked(ident.ID)
}

func (s *InMemoryStore) GetIdentity(ctx context.Context, id string) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadIdentityLocked(id)
}

func (s *InMemoryStore) FindCredential(ctx context.Context, email string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, ident := range s.identities {
		if strings.EqualFold(ident.Email, email) {
			loaded, err := s.loadIdentityLocked(id)
			if err != nil {
				return Credential{}, err
			}
			return Credential{Identity: loaded, SecretHash: s.secrets[id]}, nil
		}
	}
	return Credential{}, ErrNotFound
}

func (s *InMemoryStore) ListIdentities(ctx context.Context, filter IdentityFilter) ([]Identity, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Identity
	for id := range s.identities {
		ident, err := s.loadIdentityLocked(id)
		if err != nil {
			return nil, 0, err
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(ident.Name), needle) &&
				!strings.Contains(strings.ToLower(ident.Email), needle) &&
				!strings.Contains(strings.ToLower(ident.PersonnelID), needle) {
				continue
			}
		}
		if filter.RoleSlug != "" && (ident.Role == nil || ident.Role.Slug != filter.RoleSlug) {
			continue
		}
		all = append(all, ident)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	page, perPage := normalizePage(filter.Page, filter.PerPage)
	start := (page - 1) * perPage
	if start >= total {
		return nil, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *InMemoryStore) UpdateIdentity(ctx context.Context, id string, upd IdentityUpdate) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident, ok := s.identities[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	if upd.Email != nil && !strings.EqualFold(*upd.Email, ident.Email) {
		for otherID, other := range s.identities {
			if otherID != id && strings.EqualFold(other.Email, *upd.Email) {
				return Identity{}, ErrConflict
			}
		}
		ident.Email = *upd.Email
	}
	if upd.Name != nil {
		ident.Name = *upd.Name
	}
	if upd.PersonnelID != nil {
		ident.PersonnelID = *upd.PersonnelID
	}
	if upd.RoleID != nil {
		if _, ok := s.roles[*upd.RoleID]; !ok {
			return Identity{}, ErrNotFound
		}
		ident.RoleID = *upd.RoleID
	}
	if upd.DepartmentID != nil {
		if *upd.DepartmentID != "" {
			if _, ok := s.departments[*upd.DepartmentID]; !ok {
				return Identity{}, ErrNotFound
			}
		}
		ident.DepartmentID = *upd.DepartmentID
	}
	if upd.Status != nil {
		ident.Status = *upd.Status
	}
	if upd.SecretHash != nil {
		s.secrets[id] = *upd.SecretHash
	}
	ident.UpdatedAt = time.Now().UTC()
	s.identities[id] = ident
	return s.loadIdentityLocked(id)
}

func (s *InMemoryStore) DeleteIdentity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[id]; !ok {
		return ErrNotFound
	}
	delete(s.identities, id)
	delete(s.secrets, id)
	return nil
}

func (s *InMemoryStore) GetRole(ctx context.Context, roleID string) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[roleID]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (s *InMemoryStore) FindRoleBySlug(ctx context.Context, slug string) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, role := range s.roles {
		if role.Slug == slug {
			return role, nil
		}
	}
	return Role{}, ErrNotFound
}

func (s *InMemoryStore) FindRoleByName(ctx context.Context, name string) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, role := range s.roles {
		if strings.EqualFold(role.Name, name) {
			return role, nil
		}
	}
	return Role{}, ErrNotFound
}

func (s *InMemoryStore) ListRoles(ctx context.Context) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Role, 0, len(s.roles))
	for _, role := range s.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *InMemoryStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Permission, 0, len(s.permissions))
	for _, perm := range s.permissions {
		out = append(out, perm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *InMemoryStore) RolePermissions(ctx context.Context, roleID string) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.roles[roleID]; !ok {
		return nil, ErrNotFound
	}
	var out []Permission
	for _, permID := range s.grants[roleID] {
		if perm, ok := s.permissions[permID]; ok {
			out = append(out, perm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *InMemoryStore) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID]; !ok {
		return ErrNotFound
	}
	replacement := make([]string, 0, len(permissionIDs))
	for _, permID := range permissionIDs {
		if _, ok := s.permissions[permID]; !ok {
			return fmt.Errorf("%w: permission %s", ErrNotFound, permID)
		}
		replacement = append(replacement, permID)
	}
	// Single assignment under the lock: readers see the old or the new set.
	s.grants[roleID] = replacement
	return nil
}

func (s *InMemoryStore) CreateDepartment(ctx context.Context, dept Department) (Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.departments {
		if strings.EqualFold(existing.Code, dept.Code) {
			return Department{}, ErrConflict
		}
	}
	if dept.ID == "" {
		dept.ID = ids.New()
	}
	now := time.Now().UTC()
	dept.CreatedAt, dept.UpdatedAt = now, now
	s.departments[dept.ID] = dept
	return dept, nil
}

func (s *InMemoryStore) GetDepartment(ctx context.Context, id string) (Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dept, ok := s.departments[id]
	if !ok {
		return Department{}, ErrNotFound
	}
	return dept, nil
}

func (s *InMemoryStore) FindDepartmentByName(ctx context.Context, name string) (Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, dept := range s.departments {
		if strings.EqualFold(dept.Name, name) {
			return dept, nil
		}
	}
	return Department{}, ErrNotFound
}

func (s *InMemoryStore) ListDepartments(ctx context.Context) ([]Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Department, 0, len(s.departments))
	for _, dept := range s.departments {
		out = append(out, dept)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) UpdateDepartment(ctx context.Context, id string, upd DepartmentUpdate) (Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dept, ok := s.departments[id]
	if !ok {
		return Department{}, ErrNotFound
	}
	if upd.Code != nil && !strings.EqualFold(*upd.Code, dept.Code) {
		for otherID, other := range s.departments {
			if otherID != id && strings.EqualFold(other.Code, *upd.Code) {
				return Department{}, ErrConflict
			}
		}
		dept.Code = *upd.Code
	}
	if upd.Name != nil {
		dept.Name = *upd.Name
	}
	if upd.Head != nil {
		dept.Head = *upd.Head
	}
	if upd.Status != nil {
		dept.Status = *upd.Status
	}
	dept.UpdatedAt = time.Now().UTC()
	s.departments[id] = dept
	return dept, nil
}

// loadIdentityLocked returns a copy with role and department resolved.
// Callers must hold at least a read lock.
func (s *InMemoryStore) loadIdentityLocked(id string) (Identity, error) {
	ident, ok := s.identities[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	if role, ok := s.roles[ident.RoleID]; ok {
		roleCopy := role
		ident.Role = &roleCopy
	}
	if ident.DepartmentID != "" {
		if dept, ok := s.departments[ident.DepartmentID]; ok {
			deptCopy := dept
			ident.Department = &deptCopy
		}
	}
	return ident, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 10
	}
	return page, perPage
}
