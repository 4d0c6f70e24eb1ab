package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// newLogger builds the run logger. A log file of "-" writes to stderr.
func newLogger(opts *RootOptions, stderr io.Writer) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var (
		w       io.Writer = stderr
		closeFn           = func() error { return nil }
	)
	if opts.LogFile != "" && opts.LogFile != "-" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closeFn = f, f.Close
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch opts.LogFormat {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler), closeFn, nil
}
