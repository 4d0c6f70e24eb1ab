// Command profile-check validates table-graph profiles before they are handed
// to flowclone --tables.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"flowclone/internal/schema"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("profile-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var quiet bool
	fs.BoolVar(&quiet, "q", false, "only report failures")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: profile-check [-q] profile.yaml...")
		return 2
	}

	failed := 0
	for _, p := range fs.Args() {
		g, err := check(p)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", p, err)
			failed++
			continue
		}
		if !quiet {
			fmt.Fprintf(stdout, "%s: ok (%d tables: %s)\n", p, len(g.Tables()), strings.Join(g.Tables(), ", "))
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// validatePath rejects empty paths and paths that climb out of the working tree.
func validatePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("empty path")
	}
	clean := filepath.Clean(p)
	if !filepath.IsAbs(clean) && strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("path traversal not allowed: %s", p)
	}
	return clean, nil
}

func check(p string) (schema.Graph, error) {
	safe, err := validatePath(p)
	if err != nil {
		return schema.Graph{}, err
	}
	return schema.Load(safe)
}
