package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tables.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return p
}

func TestCLIValidProfile(t *testing.T) {
	p := writeProfile(t, "root_tables: [flowcell]\nchild_tables: [sample, call]\n")
	var stdout, stderr bytes.Buffer
	if code := cli([]string{p}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected 0 got %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "ok (3 tables: flowcell, sample, call)") {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestCLIQuiet(t *testing.T) {
	p := writeProfile(t, "root_tables: [flowcell]\nchild_tables: [sample]\n")
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-q", p}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected 0 got %d", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("quiet mode printed %q", stdout.String())
	}
}

func TestCLIInvalidProfile(t *testing.T) {
	good := writeProfile(t, "root_tables: [flowcell]\nchild_tables: [sample]\n")
	bad := writeProfile(t, "child_tables: [a, a]\n")
	var stdout, stderr bytes.Buffer
	if code := cli([]string{good, bad}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected 1 got %d", code)
	}
	if !strings.Contains(stderr.String(), bad) {
		t.Fatalf("failure does not name the profile: %q", stderr.String())
	}
}

func TestCLIUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli(nil, &stdout, &stderr); code != 2 {
		t.Fatalf("expected 2 got %d", code)
	}
	if code := cli([]string{"-bogus"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected 2 for bad flag got %d", code)
	}
}

func TestValidatePath(t *testing.T) {
	for _, p := range []string{"", "  ", "../outside.yaml"} {
		if _, err := validatePath(p); err == nil {
			t.Fatalf("expected error for %q", p)
		}
	}
	if got, err := validatePath("profiles/./a.yaml"); err != nil || got != filepath.Join("profiles", "a.yaml") {
		t.Fatalf("unexpected %q %v", got, err)
	}
}

func TestMainExits(t *testing.T) {
	prevArgs, prevExit := os.Args, exitFunc
	t.Cleanup(func() { os.Args, exitFunc = prevArgs, prevExit })
	os.Args = []string{"profile-check"}
	got := -1
	exitFunc = func(code int) { got = code }
	main()
	if got != 2 {
		t.Fatalf("expected exit 2 got %d", got)
	}
}
