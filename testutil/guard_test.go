package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInfraImportForbidden(t *testing.T) {
	cases := map[string]bool{
		"flowclone/internal/infra/persistence/postgres": true,
		"flowclone/internal/infra":                      true,
		"flowclone/internal/infrastructure":             false,
		"flowclone/internal/tablestore":                 false,
	}
	for in, want := range cases {
		if got := InfraImportForbidden(in); got != want {
			t.Fatalf("InfraImportForbidden(%q)=%v want %v", in, got, want)
		}
	}
}

func TestDriverImportForbidden(t *testing.T) {
	cases := map[string]bool{
		"github.com/jackc/pgx/v5/stdlib":             true,
		"github.com/go-sql-driver/mysql":             true,
		"modernc.org/sqlite":                         true,
		"github.com/aws/aws-sdk-go-v2/service/s3":    true,
		"github.com/jackc/pgxpoolish":                false,
		"github.com/stretchr/testify/require":        false,
		"modernc.org/sqlite3-but-not-really/package": false,
	}
	for in, want := range cases {
		if got := DriverImportForbidden(in); got != want {
			t.Fatalf("DriverImportForbidden(%q)=%v want %v", in, got, want)
		}
	}
}

func write(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.go", "package tmp\nimport _ \"modernc.org/sqlite\"\n")
	write(t, dir, "a_test.go", "package tmp\nimport _ \"github.com/go-sql-driver/mysql\"\n")
	write(t, dir, "notes.txt", "import \"github.com/jackc/pgx/v5\"")
	if err := os.Mkdir(filepath.Join(dir, "sub.go"), 0o750); err != nil {
		t.Fatal(err)
	}

	viols, err := directImportViolations(dir, DriverImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || !strings.Contains(viols[0], "modernc.org/sqlite (in a.go)") {
		t.Fatalf("unexpected violations %v", viols)
	}

	if _, err := directImportViolations(filepath.Join(dir, "missing"), DriverImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestAssertNoDirectImportsPasses(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "x.go", "package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	AssertNoDirectImports(t, dir, DriverImportForbidden, "none")
}

type captureFatal struct{ msg string }

func (c *captureFatal) Fatalf(format string, args ...any) {
	c.msg = format
	_ = args
}

func TestFailHelpers(t *testing.T) {
	c := &captureFatal{}
	failIfDirectViolations(c, "reason", nil)
	failIfTransitiveViolations(c, "reason", nil)
	if c.msg != "" {
		t.Fatalf("no violations must not fail")
	}
	failIfDirectViolations(c, "reason", []string{"x"})
	if !strings.Contains(c.msg, "direct imports") {
		t.Fatalf("unexpected message %q", c.msg)
	}
	failIfTransitiveViolations(c, "reason", []string{"x"})
	if !strings.Contains(c.msg, "transitive") {
		t.Fatalf("unexpected message %q", c.msg)
	}
}

func TestTransitiveViolationsUsesGoList(t *testing.T) {
	prev := goListDeps
	t.Cleanup(func() { goListDeps = prev })
	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nflowclone/internal/replicate\n\ngithub.com/jackc/pgx/v5\n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./...", DriverImportForbidden)
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if len(viols) != 1 || viols[0] != "github.com/jackc/pgx/v5" {
		t.Fatalf("unexpected violations %v", viols)
	}
}
