package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"arkiva.org/internal/auth"
	"arkiva.org/internal/ids"
)

var _ auth.Store = (*Store)(nil)

const identityColumns = `
	i.id, i.name, i.email, i.personnel_id, i.role_id, i.department_id, i.status,
	i.created_at, i.updated_at,
	r.name, r.slug, r.self_scoped, r.created_at, r.updated_at,
	d.id, d.name, d.code, d.head, d.status, d.created_at, d.updated_at`

const identityJoins = `
	from identities i
	join roles r on r.id = i.role_id
	left join departments d on d.id = i.department_id`

func scanIdentity(row interface{ Scan(...any) error }) (auth.Identity, error) {
	var (
		ident       auth.Identity
		personnelID sql.NullString
		deptID      sql.NullString
		role        auth.Role
		dID         sql.NullString
		dName       sql.NullString
		dCode       sql.NullString
		dHead       sql.NullString
		dStatus     sql.NullString
		dCreated    sql.NullTime
		dUpdated    sql.NullTime
	)
	err := row.Scan(
		&ident.ID, &ident.Name, &ident.Email, &personnelID, &ident.RoleID, &deptID, &ident.Status,
		&ident.CreatedAt, &ident.UpdatedAt,
		&role.Name, &role.Slug, &role.SelfScoped, &role.CreatedAt, &role.UpdatedAt,
		&dID, &dName, &dCode, &dHead, &dStatus, &dCreated, &dUpdated,
	)
	if err != nil {
		return auth.Identity{}, err
	}
	ident.PersonnelID = personnelID.String
	role.ID = ident.RoleID
	ident.Role = &role
	if deptID.Valid {
		ident.DepartmentID = deptID.String
		ident.Department = &auth.Department{
			ID:        dID.String,
			Name:      dName.String,
			Code:      dCode.String,
			Head:      dHead.String,
			Status:    dStatus.String,
			CreatedAt: dCreated.Time,
			UpdatedAt: dUpdated.Time,
		}
	}
	return ident, nil
}

func (s *Store) CreateIdentity(ctx context.Context, ident auth.Identity, secretHash string) (auth.Identity, error) {
	if s.db == nil {
		return auth.Identity{}, errors.New("database connection unavailable")
	}
	id := ident.ID
	if id == "" {
		id = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into identities (id, name, email, personnel_id, role_id, department_id, secret_hash, status)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, ident.Name, ident.Email, nullIfEmpty(ident.PersonnelID), ident.RoleID,
		nullIfEmpty(ident.DepartmentID), secretHash, ident.Status)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.Identity{}, auth.ErrConflict
			case pgErrForeignKeyViolation:
				return auth.Identity{}, auth.ErrNotFound
			}
		}
		return auth.Identity{}, err
	}
	return s.GetIdentity(ctx, id)
}

func (s *Store) GetIdentity(ctx context.Context, id string) (auth.Identity, error) {
	if s.db == nil {
		return auth.Identity{}, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `select`+identityColumns+identityJoins+` where i.id = $1`, id)
	ident, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Identity{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Identity{}, err
	}
	return ident, nil
}

func (s *Store) FindCredential(ctx context.Context, email string) (auth.Credential, error) {
	if s.db == nil {
		return auth.Credential{}, errors.New("database connection unavailable")
	}
	var (
		id   string
		hash string
	)
	err := s.db.QueryRowContext(ctx, `
		select id, secret_hash from identities where lower(email) = lower($1)
	`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Credential{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Credential{}, err
	}
	ident, err := s.GetIdentity(ctx, id)
	if err != nil {
		return auth.Credential{}, err
	}
	return auth.Credential{Identity: ident, SecretHash: hash}, nil
}

func (s *Store) ListIdentities(ctx context.Context, filter auth.IdentityFilter) ([]auth.Identity, int, error) {
	if s.db == nil {
		return nil, 0, errors.New("database connection unavailable")
	}

	var (
		where []string
		args  []any
		idx   = 1
	)
	if filter.Search != "" {
		where = append(where, fmt.Sprintf(
			"(i.name ilike $%d or i.email ilike $%d or i.personnel_id ilike $%d)", idx, idx, idx))
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	if filter.RoleSlug != "" {
		where = append(where, fmt.Sprintf("r.slug = $%d", idx))
		args = append(args, filter.RoleSlug)
		idx++
	}
	cond := ""
	if len(where) > 0 {
		cond = " where " + strings.Join(where, " and ")
	}

	var total int
	countQuery := `select count(*) from identities i join roles r on r.id = i.role_id` + cond
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, perPage := normalizePage(filter.Page, filter.PerPage)
	query := fmt.Sprintf(`select%s%s%s order by i.created_at desc limit $%d offset $%d`,
		identityColumns, identityJoins, cond, idx, idx+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []auth.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (s *Store) UpdateIdentity(ctx context.Context, id string, upd auth.IdentityUpdate) (auth.Identity, error) {
	if s.db == nil {
		return auth.Identity{}, errors.New("database connection unavailable")
	}
	var (
		sets []string
		args []any
		idx  = 1
	)
	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Email != nil {
		set("email", *upd.Email)
	}
	if upd.PersonnelID != nil {
		set("personnel_id", nullIfEmpty(*upd.PersonnelID))
	}
	if upd.RoleID != nil {
		set("role_id", *upd.RoleID)
	}
	if upd.DepartmentID != nil {
		set("department_id", nullIfEmpty(*upd.DepartmentID))
	}
	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if upd.SecretHash != nil {
		set("secret_hash", *upd.SecretHash)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update identities set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok {
				switch pgErr.Code {
				case pgErrUniqueViolation:
					return auth.Identity{}, auth.ErrConflict
				case pgErrForeignKeyViolation:
					return auth.Identity{}, auth.ErrNotFound
				}
			}
			return auth.Identity{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return auth.Identity{}, err
		}
		if aff == 0 {
			return auth.Identity{}, auth.ErrNotFound
		}
	}
	return s.GetIdentity(ctx, id)
}

func (s *Store) DeleteIdentity(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from identities where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

const roleColumns = `id, name, slug, self_scoped, created_at, updated_at`

func (s *Store) roleBy(ctx context.Context, column, value string) (auth.Role, error) {
	var role auth.Role
	err := s.db.QueryRowContext(ctx,
		`select `+roleColumns+` from roles where `+column+` = $1`, value,
	).Scan(&role.ID, &role.Name, &role.Slug, &role.SelfScoped, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Role{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Role{}, err
	}
	return role, nil
}

func (s *Store) GetRole(ctx context.Context, roleID string) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errors.New("database connection unavailable")
	}
	return s.roleBy(ctx, "id", roleID)
}

func (s *Store) FindRoleBySlug(ctx context.Context, slug string) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errors.New("database connection unavailable")
	}
	return s.roleBy(ctx, "slug", slug)
}

func (s *Store) FindRoleByName(ctx context.Context, name string) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errors.New("database connection unavailable")
	}
	var role auth.Role
	err := s.db.QueryRowContext(ctx, `
		select `+roleColumns+` from roles where lower(name) = lower($1)
	`, name).Scan(&role.ID, &role.Name, &role.Slug, &role.SelfScoped, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Role{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Role{}, err
	}
	return role, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]auth.Role, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `select `+roleColumns+` from roles order by slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var role auth.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Slug, &role.SelfScoped, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *Store) ListPermissions(ctx context.Context) ([]auth.Permission, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, key, description, created_at from permissions order by key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func (s *Store) RolePermissions(ctx context.Context, roleID string) ([]auth.Permission, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var exists int
	if err := s.db.QueryRowContext(ctx, `select 1 from roles where id = $1`, roleID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select p.id, p.key, p.description, p.created_at
		from role_permissions rp
		join permissions p on p.id = rp.permission_id
		where rp.role_id = $1
		order by p.key
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func (s *Store) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from roles where id = $1`, roleID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id = $1`, roleID); err != nil {
		return err
	}
	for _, permID := range permissionIDs {
		if _, err := tx.ExecContext(ctx, `
			insert into role_permissions (role_id, permission_id)
			values ($1, $2)
		`, roleID, permID); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return fmt.Errorf("%w: permission %s", auth.ErrNotFound, permID)
			}
			return err
		}
	}
	return tx.Commit()
}

const departmentColumns = `id, name, code, head, status, created_at, updated_at`

func scanDepartment(row interface{ Scan(...any) error }) (auth.Department, error) {
	var (
		dept auth.Department
		head sql.NullString
	)
	err := row.Scan(&dept.ID, &dept.Name, &dept.Code, &head, &dept.Status, &dept.CreatedAt, &dept.UpdatedAt)
	if err != nil {
		return auth.Department{}, err
	}
	dept.Head = head.String
	return dept, nil
}

func (s *Store) CreateDepartment(ctx context.Context, dept auth.Department) (auth.Department, error) {
	if s.db == nil {
		return auth.Department{}, errors.New("database connection unavailable")
	}
	id := dept.ID
	if id == "" {
		id = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into departments (id, name, code, head, status)
		values ($1, $2, $3, $4, $5)
		returning `+departmentColumns+`
	`, id, dept.Name, dept.Code, nullIfEmpty(dept.Head), dept.Status)
	created, err := scanDepartment(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.Department{}, auth.ErrConflict
		}
		return auth.Department{}, err
	}
	return created, nil
}

func (s *Store) GetDepartment(ctx context.Context, id string) (auth.Department, error) {
	if s.db == nil {
		return auth.Department{}, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `select `+departmentColumns+` from departments where id = $1`, id)
	dept, err := scanDepartment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Department{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Department{}, err
	}
	return dept, nil
}

func (s *Store) FindDepartmentByName(ctx context.Context, name string) (auth.Department, error) {
	if s.db == nil {
		return auth.Department{}, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select `+departmentColumns+` from departments where lower(name) = lower($1)
	`, name)
	dept, err := scanDepartment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Department{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Department{}, err
	}
	return dept, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]auth.Department, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `select `+departmentColumns+` from departments order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateDepartment(ctx context.Context, id string, upd auth.DepartmentUpdate) (auth.Department, error) {
	if s.db == nil {
		return auth.Department{}, errors.New("database connection unavailable")
	}
	var (
		sets []string
		args []any
		idx  = 1
	)
	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Code != nil {
		set("code", *upd.Code)
	}
	if upd.Head != nil {
		set("head", nullIfEmpty(*upd.Head))
	}
	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update departments set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return auth.Department{}, auth.ErrConflict
			}
			return auth.Department{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return auth.Department{}, err
		}
		if aff == 0 {
			return auth.Department{}, auth.ErrNotFound
		}
	}
	return s.GetDepartment(ctx, id)
}

func collectPermissions(rows *sql.Rows) ([]auth.Permission, error) {
	var perms []auth.Permission
	for rows.Next() {
		var (
			perm auth.Permission
			desc sql.NullString
		)
		if err := rows.Scan(&perm.ID, &perm.Key, &desc, &perm.CreatedAt); err != nil {
			return nil, err
		}
		perm.Description = desc.String
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
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
