package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// defaultIdentitySecret is assigned when an administrator creates an identity
// without a secret; the holder is expected to rotate it on first login.
const defaultIdentitySecret = "arkiva-changeme"

// Session is the result of a successful credential exchange.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Identity  Identity  `json:"identity"`
}

// RegisterInput is the public self-registration payload. The role is never
// caller-controlled; registration always lands on the default member role.
type RegisterInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Secret       string `json:"secret"`
	PersonnelID  string `json:"personnel_id"`
	DepartmentID string `json:"department_id"`
}

// CreateIdentityInput is the administrative creation payload. Role and
// department may be referenced by id or by name; names that resolve to
// nothing fail with ErrNotFound instead of being silently dropped.
type CreateIdentityInput struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Secret         string `json:"secret"`
	PersonnelID    string `json:"personnel_id"`
	RoleID         string `json:"role_id"`
	RoleName       string `json:"role_name"`
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	Status         string `json:"status"`
}

// UpdateIdentityInput is a partial administrative update. Nil fields are
// untouched; an empty DepartmentID or DepartmentName clears the scope.
type UpdateIdentityInput struct {
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	PersonnelID    *string `json:"personnel_id"`
	RoleID         *string `json:"role_id"`
	RoleName       *string `json:"role_name"`
	DepartmentID   *string `json:"department_id"`
	DepartmentName *string `json:"department_name"`
	Status         *string `json:"status"`
}

// Service implements credential verification, session issuance and identity
// administration on top of a Store.
type Service struct {
	store       Store
	tokens      *TokenIssuer
	defaultRole string
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithRegistrationRole overrides the role slug assigned on self-registration.
func WithRegistrationRole(slug string) ServiceOption {
	return func(s *Service) { s.defaultRole = slug }
}

// NewService wires a Service over the given store and token issuer.
func NewService(store Store, tokens *TokenIssuer, opts ...ServiceOption) *Service {
	s := &Service{store: store, tokens: tokens, defaultRole: RoleSlugMember}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VerifyCredentials checks an email/secret pair. Unknown emails and wrong
// secrets both collapse to ErrInvalidCredentials so callers cannot probe
// which accounts exist. A disabled account fails after the secret check so
// the error is only revealed to someone holding valid credentials.
func (s *Service) VerifyCredentials(ctx context.Context, email, secret string) (Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || secret == "" {
		return Identity{}, fmt.Errorf("%w: email and secret are required", ErrInvalidInput)
	}
	cred, err := s.store.FindCredential(ctx, email)
	if err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	if err := VerifySecret(cred.SecretHash, secret); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	if cred.Status != StatusActive {
		return Identity{}, ErrAccountDisabled
	}
	return cred.Identity, nil
}

// Login exchanges credentials for a signed session token.
func (s *Service) Login(ctx context.Context, email, secret string) (Session, error) {
	ident, err := s.VerifyCredentials(ctx, email, secret)
	if err != nil {
		return Session{}, err
	}
	token, expiresAt, err := s.tokens.Issue(ident.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, ExpiresAt: expiresAt, Identity: ident}, nil
}

// Register creates an identity through the public self-registration path.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Identity, error) {
	if err := validateIdentityBasics(in.Name, in.Email, in.Secret); err != nil {
		return Identity{}, err
	}
	if in.DepartmentID != "" {
		if _, err := s.store.GetDepartment(ctx, in.DepartmentID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Identity{}, fmt.Errorf("%w: unknown department", ErrInvalidInput)
			}
			return Identity{}, err
		}
	}
	role, err := s.store.FindRoleBySlug(ctx, s.defaultRole)
	if err != nil {
		return Identity{}, fmt.Errorf("resolve default role: %w", err)
	}
	hash, err := HashSecret(in.Secret)
	if err != nil {
		return Identity{}, fmt.Errorf("hash secret: %w", err)
	}
	ident := Identity{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PersonnelID:  strings.TrimSpace(in.PersonnelID),
		RoleID:       role.ID,
		DepartmentID: in.DepartmentID,
		Status:       StatusActive,
	}
	return s.store.CreateIdentity(ctx, ident, hash)
}

// CreateIdentity creates an identity with an explicit role, for admin use.
func (s *Service) CreateIdentity(ctx context.Context, in CreateIdentityInput) (Identity, error) {
	if in.Secret == "" {
		in.Secret = defaultIdentitySecret
	}
	if err := validateIdentityBasics(in.Name, in.Email, in.Secret); err != nil {
		return Identity{}, err
	}
	roleID, err := s.resolveRole(ctx, in.RoleID, in.RoleName)
	if err != nil {
		return Identity{}, err
	}
	if roleID == "" {
		return Identity{}, fmt.Errorf("%w: role is required", ErrInvalidInput)
	}
	deptID := in.DepartmentID
	if deptID == "" && in.DepartmentName != "" {
		dept, err := s.store.FindDepartmentByName(ctx, in.DepartmentName)
		if err != nil {
			return Identity{}, fmt.Errorf("resolve department %q: %w", in.DepartmentName, err)
		}
		deptID = dept.ID
	}
	status := in.Status
	if status == "" {
		status = StatusActive
	}
	if status != StatusActive && status != StatusInactive {
		return Identity{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	hash, err := HashSecret(in.Secret)
	if err != nil {
		return Identity{}, fmt.Errorf("hash secret: %w", err)
	}
	ident := Identity{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PersonnelID:  strings.TrimSpace(in.PersonnelID),
		RoleID:       roleID,
		DepartmentID: deptID,
		Status:       status,
	}
	return s.store.CreateIdentity(ctx, ident, hash)
}

// GetIdentity loads a single identity with role and department resolved.
func (s *Service) GetIdentity(ctx context.Context, id string) (Identity, error) {
	if id == "" {
		return Identity{}, fmt.Errorf("%w: identity id is required", ErrInvalidInput)
	}
	return s.store.GetIdentity(ctx, id)
}

// ListIdentities returns a filtered page of identities and the total count.
func (s *Service) ListIdentities(ctx context.Context, filter IdentityFilter) ([]Identity, int, error) {
	return s.store.ListIdentities(ctx, filter)
}

// UpdateIdentity applies a partial update. Identities holding the root role
// cannot have their role or status changed.
func (s *Service) UpdateIdentity(ctx context.Context, id string, in UpdateIdentityInput) (Identity, error) {
	current, err := s.store.GetIdentity(ctx, id)
	if err != nil {
		return Identity{}, err
	}

	upd := IdentityUpdate{PersonnelID: in.PersonnelID}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Identity{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if !validEmail(email) {
			return Identity{}, fmt.Errorf("%w: malformed email", ErrInvalidInput)
		}
		upd.Email = &email
	}

	rootHolder := current.Role != nil && current.Role.Slug == RoleSlugRootAdmin
	if in.RoleID != nil || in.RoleName != nil {
		if rootHolder {
			return Identity{}, fmt.Errorf("%w: cannot change the root admin role", ErrForbidden)
		}
		var roleID, roleName string
		if in.RoleID != nil {
			roleID = *in.RoleID
		}
		if in.RoleName != nil {
			roleName = *in.RoleName
		}
		resolved, err := s.resolveRole(ctx, roleID, roleName)
		if err != nil {
			return Identity{}, err
		}
		if resolved == "" {
			return Identity{}, fmt.Errorf("%w: role cannot be cleared", ErrInvalidInput)
		}
		upd.RoleID = &resolved
	}
	if in.Status != nil {
		if rootHolder && *in.Status != StatusActive {
			return Identity{}, fmt.Errorf("%w: cannot disable the root admin", ErrForbidden)
		}
		if *in.Status != StatusActive && *in.Status != StatusInactive {
			return Identity{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *in.Status)
		}
		upd.Status = in.Status
	}
	if in.DepartmentID != nil {
		upd.DepartmentID = in.DepartmentID
	} else if in.DepartmentName != nil {
		deptID := ""
		if *in.DepartmentName != "" {
			dept, err := s.store.FindDepartmentByName(ctx, *in.DepartmentName)
			if err != nil {
				return Identity{}, fmt.Errorf("resolve department %q: %w", *in.DepartmentName, err)
			}
			deptID = dept.ID
		}
		upd.DepartmentID = &deptID
	}

	return s.store.UpdateIdentity(ctx, id, upd)
}

// ChangeSecret rotates an identity's secret after verifying the current one.
func (s *Service) ChangeSecret(ctx context.Context, id, current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidInput)
	}
	ident, err := s.store.GetIdentity(ctx, id)
	if err != nil {
		return err
	}
	cred, err := s.store.FindCredential(ctx, ident.Email)
	if err != nil {
		return err
	}
	if err := VerifySecret(cred.SecretHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashSecret(next)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}
	_, err = s.store.UpdateIdentity(ctx, id, IdentityUpdate{SecretHash: &hash})
	return err
}

// DeleteIdentity removes an identity. Actors cannot delete themselves and
// nobody can delete an identity holding the root role.
func (s *Service) DeleteIdentity(ctx context.Context, actorID, id string) error {
	if id == actorID {
		return fmt.Errorf("%w: cannot delete own identity", ErrForbidden)
	}
	target, err := s.store.GetIdentity(ctx, id)
	if err != nil {
		return err
	}
	if target.Role != nil && target.Role.Slug == RoleSlugRootAdmin {
		return fmt.Errorf("%w: cannot delete the root admin", ErrForbidden)
	}
	return s.store.DeleteIdentity(ctx, id)
}

// Principal assembles the authorization view of an identity: the identity
// itself plus the permission set granted through its role. Disabled accounts
// yield ErrAccountDisabled so that sessions die when an account is disabled
// mid-lifetime.
func (s *Service) Principal(ctx context.Context, identityID string) (Principal, error) {
	ident, err := s.store.GetIdentity(ctx, identityID)
	if err != nil {
		return Principal{}, err
	}
	if ident.Status != StatusActive {
		return Principal{}, ErrAccountDisabled
	}
	perms, err := s.store.RolePermissions(ctx, ident.RoleID)
	if err != nil {
		return Principal{}, fmt.Errorf("load role permissions: %w", err)
	}
	return NewPrincipal(ident, perms), nil
}

// Authenticate resolves a bearer token to a live Principal.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	identityID, err := s.tokens.Verify(token)
	if err != nil {
		return Principal{}, err
	}
	return s.Principal(ctx, identityID)
}

// CreateDepartment adds a department record.
func (s *Service) CreateDepartment(ctx context.Context, dept Department) (Department, error) {
	dept.Name = strings.TrimSpace(dept.Name)
	dept.Code = strings.TrimSpace(dept.Code)
	if dept.Name == "" || dept.Code == "" {
		return Department{}, fmt.Errorf("%w: department name and code are required", ErrInvalidInput)
	}
	if dept.Status == "" {
		dept.Status = StatusActive
	}
	return s.store.CreateDepartment(ctx, dept)
}

// GetDepartment loads one department.
func (s *Service) GetDepartment(ctx context.Context, id string) (Department, error) {
	return s.store.GetDepartment(ctx, id)
}

// ListDepartments returns all departments.
func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.store.ListDepartments(ctx)
}

// UpdateDepartment applies a partial update to a department.
func (s *Service) UpdateDepartment(ctx context.Context, id string, upd DepartmentUpdate) (Department, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return Department{}, fmt.Errorf("%w: department name cannot be empty", ErrInvalidInput)
	}
	if upd.Code != nil && strings.TrimSpace(*upd.Code) == "" {
		return Department{}, fmt.Errorf("%w: department code cannot be empty", ErrInvalidInput)
	}
	return s.store.UpdateDepartment(ctx, id, upd)
}

func (s *Service) resolveRole(ctx context.Context, roleID, roleName string) (string, error) {
	if roleID != "" {
		role, err := s.store.GetRole(ctx, roleID)
		if err != nil {
			return "", fmt.Errorf("resolve role %s: %w", roleID, err)
		}
		return role.ID, nil
	}
	if roleName != "" {
		role, err := s.store.FindRoleByName(ctx, roleName)
		if err != nil {
			return "", fmt.Errorf("resolve role %q: %w", roleName, err)
		}
		return role.ID, nil
	}
	return "", nil
}

func validateIdentityBasics(name, email, secret string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !validEmail(normalizeEmail(email)) {
		return fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidInput)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t")
}
