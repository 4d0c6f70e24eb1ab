// Command flowclone clones a sequencing run and its samples between databases.
package main

import (
	"io"
	"os"

	"flowclone/internal/cli"
)

var exitFunc = os.Exit

func main() {
	code := run(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func run(args []string, stdout, stderr io.Writer) int {
	return cli.Execute(args, stdout, stderr)
}
