// Package migrate runs filesystem SQL migrations and seed files against
// PostgreSQL, tracking what was applied in a single ledger table.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const defaultLedgerTable = "schema_ledger"

// Entry kinds recorded in the ledger.
const (
	kindMigration = "migration"
	kindSeed      = "seed"
)

// Runner applies .up.sql/.down.sql migration pairs and standalone seed
// files. Each file runs inside one transaction and is recorded by base name,
// so reruns are no-ops.
type Runner struct {
	db            *sql.DB
	migrationsDir string
	seedsDir      string
	ledgerTable   string
}

// Option configures Runner.
type Option func(*Runner)

// WithLedgerTable overrides the bookkeeping table name.
func WithLedgerTable(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.ledgerTable = name
		}
	}
}

// NewRunner constructs a Runner over the given directories.
func NewRunner(db *sql.DB, migrationsDir, seedsDir string, opts ...Option) *Runner {
	r := &Runner{
		db:            db,
		migrationsDir: migrationsDir,
		seedsDir:      seedsDir,
		ledgerTable:   defaultLedgerTable,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Up applies every pending .up.sql migration in lexical order.
func (r *Runner) Up(ctx context.Context) error {
	if err := r.ensureLedger(ctx); err != nil {
		return err
	}
	done, err := r.applied(ctx, kindMigration)
	if err != nil {
		return err
	}
	files, err := collect(r.migrationsDir, ".up.sql")
	if err != nil {
		return err
	}
	for _, f := range files {
		if done[f.base] {
			continue
		}
		if err := r.runFile(ctx, f.path); err != nil {
			return fmt.Errorf("apply %s: %w", f.base, err)
		}
		if err := r.record(ctx, kindMigration, f.base); err != nil {
			return err
		}
	}
	return nil
}

// Down rolls back the most recently applied migration via its .down.sql pair.
func (r *Runner) Down(ctx context.Context) error {
	if err := r.ensureLedger(ctx); err != nil {
		return err
	}
	history, err := r.History(ctx)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return errors.New("nothing to roll back")
	}
	last := history[len(history)-1]
	down := filepath.Join(r.migrationsDir, strings.TrimSuffix(last, ".up.sql")+".down.sql")
	if _, err := os.Stat(down); err != nil {
		return fmt.Errorf("no down file for %s", last)
	}
	if err := r.runFile(ctx, down); err != nil {
		return fmt.Errorf("roll back %s: %w", last, err)
	}
	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf(`delete from %s where kind = $1 and name = $2`, r.ledgerTable),
		kindMigration, last)
	return err
}

// Seed applies every pending seed file. Seeds never roll back.
func (r *Runner) Seed(ctx context.Context) error {
	if err := r.ensureLedger(ctx); err != nil {
		return err
	}
	done, err := r.applied(ctx, kindSeed)
	if err != nil {
		return err
	}
	files, err := collect(r.seedsDir, ".sql")
	if err != nil {
		return err
	}
	for _, f := range files {
		if done[f.base] {
			continue
		}
		if err := r.runFile(ctx, f.path); err != nil {
			return fmt.Errorf("apply seed %s: %w", f.base, err)
		}
		if err := r.record(ctx, kindSeed, f.base); err != nil {
			return err
		}
	}
	return nil
}

// History lists applied migrations in application order.
func (r *Runner) History(ctx context.Context) ([]string, error) {
	if err := r.ensureLedger(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`select name from %s where kind = $1 order by applied_at asc, name asc`, r.ledgerTable),
		kindMigration)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *Runner) ensureLedger(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		create table if not exists %s (
			kind       text not null,
			name       text not null,
			applied_at timestamptz not null default now(),
			primary key (kind, name)
		);`, r.ledgerTable))
	return err
}

func (r *Runner) record(ctx context.Context, kind, name string) error {
	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`insert into %s(kind, name) values ($1, $2)`, r.ledgerTable),
		kind, name)
	return err
}

func (r *Runner) applied(ctx context.Context, kind string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`select name from %s where kind = $1`, r.ledgerTable), kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	done := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		done[name] = true
	}
	return done, rows.Err()
}

// runFile executes one SQL file inside a single transaction.
func (r *Runner) runFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(raw)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type sqlFile struct {
	base string
	path string
}

func collect(dir, suffix string) ([]sqlFile, error) {
	if dir == "" {
		return nil, nil
	}
	var files []sqlFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), suffix) {
			files = append(files, sqlFile{base: d.Name(), path: path})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].base < files[j].base })
	return files, nil
}

// splitStatements breaks a file into statements on semicolons, skipping over
// single-quoted strings and -- line comments. Enough for plain DDL/DML files;
// procedural bodies with $$ quoting are not supported.
func splitStatements(input string) []string {
	var (
		stmts     []string
		current   strings.Builder
		inString  bool
		inComment bool
	)
	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inComment {
			current.WriteRune(r)
			if r == '\n' {
				inComment = false
			}
			continue
		}
		switch r {
		case '\'':
			inString = !inString
			current.WriteRune(r)
		case '-':
			if !inString && i+1 < len(runes) && runes[i+1] == '-' {
				inComment = true
			}
			current.WriteRune(r)
		case ';':
			current.WriteRune(r)
			if !inString {
				if s := strings.TrimSpace(current.String()); s != "" {
					stmts = append(stmts, s)
				}
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}
