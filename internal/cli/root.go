// Package cli is the flowclone command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// RootOptions holds every flag of the command.
type RootOptions struct {
	Verbose     bool
	LogFile     string
	LogFormat   string // "text" | "json"
	EnvFile     string
	Tables      string
	MetricsFile string

	InRoot  string
	OutRoot string
	Samples int
	File    string
	Commit  bool
}

// ValidLogFormats defines the allowed log formats.
var ValidLogFormats = []string{"text", "json"}

// NewRootCommand creates the flowclone command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "flowclone --in-fcid <run> [--out-fcid <run>] [--samples N | --file map.csv] [--commit]",
		Short: "Clone a sequencing run and its samples under new identifiers",
		Long: `flowclone copies one run (flowcell) and its dependent sample rows from a
source database into a destination database, rewriting the run id and every
sample id. Without --commit nothing is written; the run is validated and the
report shows what would be copied.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return NewExitError(ExitUsage, fmt.Sprintf("unexpected arguments %v", args))
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidLogFormats, opts.LogFormat) {
				return NewExitError(ExitUsage, fmt.Sprintf("invalid log format %q: must be one of %v", opts.LogFormat, ValidLogFormats))
			}
			if opts.InRoot == "" {
				return NewExitError(ExitUsage, "--in-fcid is required")
			}
			if opts.Samples < 0 {
				return NewExitError(ExitUsage, "--samples must not be negative")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClone(cmd, opts)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitUsage, "invalid flags", err)
	})

	f := cmd.PersistentFlags()
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	f.StringVar(&opts.LogFile, "log-file", "flowclone.log", `log destination ("-" for stderr)`)
	f.StringVar(&opts.LogFormat, "log-format", "text", "log format (text|json)")
	f.StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file with store settings")
	f.StringVar(&opts.Tables, "tables", "", "YAML table-graph profile (default: built-in graph)")
	f.StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	cmd.Flags().StringVar(&opts.InRoot, "in-fcid", "", "source run id (required)")
	cmd.Flags().StringVar(&opts.OutRoot, "out-fcid", "", "destination run id (derived when empty)")
	cmd.Flags().IntVar(&opts.Samples, "samples", 0, "copy only the first N samples (0 copies all)")
	cmd.Flags().StringVar(&opts.File, "file", "", "CSV mapping in_sample,out_sample (wins over --samples)")
	cmd.Flags().BoolVar(&opts.Commit, "commit", false, "write to the destination (default is a dry run)")

	return cmd
}

// Execute runs the command and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) && isCobraUsageError(err) {
		return ExitUsage
	}
	return GetExitCode(err)
}

// isCobraUsageError recognises parse failures cobra reports before the flag
// error func runs, such as unknown commands.
func isCobraUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "required flag"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
