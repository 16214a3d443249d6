package migrate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- leading comment; with a semicolon
create table t (id text primary key);
insert into t values ('a;b');
insert into t values ('c') -- trailing; comment
`
	stmts := splitStatements(input)
	if len(stmts) != 3 {
		t.Fatalf("got %d statements, want 3: %#v", len(stmts), stmts)
	}
	if want := `insert into t values ('a;b');`; stmts[1] != want {
		t.Fatalf("statement[1] = %q, want %q", stmts[1], want)
	}
}

func TestCollectOrdersByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_second.up.sql", "0001_first.up.sql", "0001_first.down.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := collect(dir, ".up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0].base != "0001_first.up.sql" || files[1].base != "0002_second.up.sql" {
		t.Fatalf("wrong order: %v, %v", files[0].base, files[1].base)
	}
}

func TestCollectMissingDir(t *testing.T) {
	files, err := collect(filepath.Join(t.TempDir(), "absent"), ".sql")
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if files != nil {
		t.Fatalf("got %v, want nil", files)
	}
}
