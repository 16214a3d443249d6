package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"arkiva.org/internal/auth"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestCreateIdentityDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into identities").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.CreateIdentity(context.Background(), auth.Identity{
		Name: "Dina", Email: "dina@example.org", RoleID: "role-1", Status: auth.StatusActive,
	}, "hash")
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("duplicate insert = %v, want ErrConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateIdentityUnknownRole(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into identities").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})

	_, err := store.CreateIdentity(context.Background(), auth.Identity{
		Name: "Dina", Email: "dina@example.org", RoleID: "no-such-role", Status: auth.StatusActive,
	}, "hash")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("fk violation = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetIdentityNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select(.|\n)*from identities i").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetIdentity(context.Background(), "missing")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("GetIdentity = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceRolePermissionsTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from roles").
		WithArgs("role-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("delete from role_permissions").
		WithArgs("role-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("insert into role_permissions").
		WithArgs("role-1", "perm-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into role_permissions").
		WithArgs("role-1", "perm-2").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.ReplaceRolePermissions(context.Background(), "role-1", []string{"perm-1", "perm-2"})
	if err != nil {
		t.Fatalf("ReplaceRolePermissions: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceRolePermissionsRollsBackOnUnknownPermission(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from roles").
		WithArgs("role-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("delete from role_permissions").
		WithArgs("role-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("insert into role_permissions").
		WithArgs("role-1", "ghost").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})
	mock.ExpectRollback()

	err := store.ReplaceRolePermissions(context.Background(), "role-1", []string{"ghost"})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("ReplaceRolePermissions = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceRolePermissionsUnknownRole(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from roles").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectRollback()

	err := store.ReplaceRolePermissions(context.Background(), "ghost", nil)
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("ReplaceRolePermissions = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteIdentityNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from identities").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteIdentity(context.Background(), "missing"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("DeleteIdentity = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
