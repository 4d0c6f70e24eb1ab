package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"flowclone/internal/blob"
	"flowclone/internal/config"
	"flowclone/internal/infra/persistence"
	"flowclone/internal/mappingfile"
	"flowclone/internal/metrics"
	"flowclone/internal/replicate"
	"flowclone/internal/schema"
)

// openStore connects one side. Tests replace it to inject in-memory stores.
var openStore = persistence.OpenTarget

func runClone(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()

	logger, closeLog, err := newLogger(opts, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitStore, "logging", err)
	}
	defer func() { _ = closeLog() }()

	graph := schema.Default()
	if opts.Tables != "" {
		if graph, err = schema.Load(opts.Tables); err != nil {
			return WrapExitError(ExitUsage, "table profile", err)
		}
	}

	req, err := buildRequest(opts)
	if err != nil {
		return err
	}

	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		return WrapExitError(ExitStore, "configuration", err)
	}
	cfg := config.FromEnv(nil)
	srcTarget, dstTarget, err := cfg.Resolve()
	if err != nil {
		if errors.Is(err, config.ErrForbiddenHost) {
			logger.Error("refusing forbidden destination", "error", err)
			return WrapExitError(ExitForbiddenHost, "refusing destination", err)
		}
		return WrapExitError(ExitStore, "configuration", err)
	}
	logger.Info("source server", "url", cfg.Source.Redacted())
	logger.Info("destination server", "url", cfg.Dest.Redacted())

	source, err := openStore(ctx, srcTarget)
	if err != nil {
		return WrapExitError(ExitStore, "open source", err)
	}
	defer closeHandle(logger, "source", source)
	dest, err := openStore(ctx, dstTarget)
	if err != nil {
		return WrapExitError(ExitStore, "open destination", err)
	}
	defer closeHandle(logger, "destination", dest)

	controller := replicate.NewController(source, dest, replicate.Options{Graph: graph, Logger: logger})
	report, runErr := controller.Run(ctx, replicate.RunRequest{
		SourceRoot: opts.InRoot,
		DestRoot:   opts.OutRoot,
		Request:    req,
		Commit:     opts.Commit,
	})

	recordMetrics(logger, opts.MetricsFile, report)
	archive(ctx, logger, report)

	out, err := report.JSON()
	if err != nil {
		return WrapExitError(ExitStore, "render report", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if runErr != nil {
		return WrapExitError(classify(runErr), "clone "+opts.InRoot, runErr)
	}
	return nil
}

func buildRequest(opts *RootOptions) (replicate.Request, error) {
	switch {
	case opts.File != "":
		explicit, err := mappingfile.Load(opts.File)
		if err != nil {
			return nil, WrapExitError(ExitValidation, "mapping file", err)
		}
		return explicit, nil
	case opts.Samples > 0:
		return replicate.Counted{N: opts.Samples}, nil
	default:
		return replicate.Unbounded{}, nil
	}
}

func recordMetrics(logger *slog.Logger, path string, report replicate.Report) {
	rec := metrics.NewRecorder()
	rec.Observe(report)
	if path == "" {
		return
	}
	if err := rec.WriteFile(path); err != nil {
		logger.Warn("metrics not written", "path", path, "error", err)
	}
}

// archive stores the report when an archive is configured. Failures never
// change the outcome of the run.
func archive(ctx context.Context, logger *slog.Logger, report replicate.Report) {
	store, err := blob.Open(ctx, nil)
	if err != nil {
		logger.Warn("report archive unavailable", "error", err)
		return
	}
	if store == nil {
		return
	}
	info, err := blob.ArchiveReport(ctx, store, report)
	if err != nil {
		logger.Warn("report not archived", "error", err)
		return
	}
	logger.Info("report archived", "key", info.Key, "driver", store.Driver())
}

func closeHandle(logger *slog.Logger, side string, h *persistence.Handle) {
	if err := h.Close(); err != nil {
		logger.Error("error closing store", "side", side, "error", err)
	}
}
