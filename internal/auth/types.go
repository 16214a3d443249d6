package auth

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Identity is the public view of an authenticatable actor. It never carries
// the password hash; verification paths use Credential instead.
type Identity struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PersonnelID  string      `json:"personnel_id,omitempty"`
	RoleID       string      `json:"role_id"`
	Role         *Role       `json:"role,omitempty"`
	DepartmentID string      `json:"department_id,omitempty"`
	Department   *Department `json:"department,omitempty"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Credential is the internal verification view: the same identity plus the
// stored secret hash. Constructed only by FindCredential.
type Credential struct {
	Identity
	SecretHash string `json:"-"`
}

// Role is a named bucket of permissions. SelfScoped roles may only see and
// mutate documents their holders uploaded themselves.
type Role struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	SelfScoped bool      `json:"self_scoped"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Permission is an atomic named capability.
type Permission struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Department is an optional secondary scope attached to identities and
// documents. It partitions data for reporting, not as a hard access boundary.
type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Head      string    `json:"head,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IdentityUpdate is a partial update; nil fields are left untouched. An empty
// DepartmentID clears the department scope.
type IdentityUpdate struct {
	Name         *string
	Email        *string
	PersonnelID  *string
	RoleID       *string
	DepartmentID *string
	Status       *string
	SecretHash   *string
}

// IdentityFilter narrows and pages identity listings.
type IdentityFilter struct {
	Search   string
	RoleSlug string
	Page     int
	PerPage  int
}

// DepartmentUpdate is a partial update for a department record.
type DepartmentUpdate struct {
	Name   *string
	Code   *string
	Head   *string
	Status *string
}
