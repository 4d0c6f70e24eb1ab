// Package replicate clones one flowcell run and its samples from a source store into
// a destination store under new identifiers.
//
// A run validates the source root, settles the destination root, resolves which
// samples to clone, checks the destination for collisions and finally copies the
// table graph through a staged unit of work. Every step is read-only until the last,
// and a dry run stops just short of the writes.
package replicate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"flowclone/internal/ident"
	"flowclone/internal/schema"
	"flowclone/internal/tablestore"
)

// Options tune a Controller. Zero values select production defaults.
type Options struct {
	Graph    schema.Graph
	IDs      IDGenerator
	Logger   *slog.Logger
	Now      func() time.Time
	NewRunID func() string
}

// RunRequest describes one invocation.
type RunRequest struct {
	SourceRoot string
	// DestRoot is derived from SourceRoot when empty.
	DestRoot string
	Request  Request
	// Commit enables writes; false is a dry run.
	Commit bool
}

// Controller drives a run end to end.
type Controller struct {
	source tablestore.Reader
	dest   tablestore.Store

	graph    schema.Graph
	ids      IDGenerator
	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// NewController binds a controller to its two stores.
func NewController(source tablestore.Reader, dest tablestore.Store, opts Options) *Controller {
	c := &Controller{
		source:   source,
		dest:     dest,
		graph:    opts.Graph,
		ids:      opts.IDs,
		logger:   opts.Logger,
		now:      opts.Now,
		newRunID: opts.NewRunID,
	}
	if c.graph.RootColumn == "" {
		c.graph = schema.Default()
	}
	if c.ids == nil {
		c.ids = ident.NewGenerator()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newRunID == nil {
		c.newRunID = func() string { return uuid.NewString() }
	}
	return c
}

// Run executes req. The returned report is populated as far as the run got, so
// callers can archive it on failure too.
func (c *Controller) Run(ctx context.Context, req RunRequest) (Report, error) {
	report := Report{
		RunID:      c.newRunID(),
		SourceRoot: req.SourceRoot,
		Mode:       ModeOf(req.Request),
		DryRun:     !req.Commit,
		StartedAt:  c.now(),
	}
	log := c.logger.With("run_id", report.RunID, "source_root", req.SourceRoot)
	if req.Commit {
		log.Info("commit mode: destination will be written")
	} else {
		log.Info("dry run: destination will not be written")
	}

	err := c.run(ctx, log, req, &report)
	report.FinishedAt = c.now()
	switch {
	case err != nil:
		report.Outcome = OutcomeFailed
		report.Error = err.Error()
		log.Error("run failed", "error", err)
	case req.Commit:
		report.Outcome = OutcomeCommitted
		log.Info("run committed", "dest_root", report.DestRoot, "rows_written", report.RowsWritten())
	default:
		report.Outcome = OutcomeDryRun
		log.Info("dry run complete", "dest_root", report.DestRoot)
	}
	return report, err
}

func (c *Controller) run(ctx context.Context, log *slog.Logger, req RunRequest, report *Report) error {
	validator := Validator{Graph: c.graph}
	if err := validator.ValidateRoot(ctx, c.source, req.SourceRoot); err != nil {
		return err
	}

	destRoot, err := c.destinationRoot(req)
	if err != nil {
		return err
	}
	report.DestRoot = destRoot
	log = log.With("dest_root", destRoot)

	resolver := &Resolver{Source: c.source, Dest: c.dest, Graph: c.graph, IDs: c.ids}
	mapping, err := resolver.Resolve(ctx, req.SourceRoot, req.Request)
	if err != nil {
		return err
	}
	report.Mapping = mapping
	for _, p := range mapping {
		log.Debug("mapped sample", "source", p.Source, "dest", p.Dest, "generated", p.Generated)
	}

	if err := validator.ValidateChildren(ctx, c.dest, mapping); err != nil {
		return err
	}

	copier := &Copier{Source: c.source, Dest: c.dest, Graph: c.graph, Validator: validator, Logger: log}
	return copier.copyInto(ctx, report, req.SourceRoot, destRoot, mapping, !req.Commit)
}

func (c *Controller) destinationRoot(req RunRequest) (string, error) {
	if req.DestRoot != "" {
		if req.DestRoot == req.SourceRoot {
			return "", fmt.Errorf("%s: %w", req.DestRoot, ErrSameRoot)
		}
		return req.DestRoot, nil
	}
	parsed, err := ident.ParseRunID(req.SourceRoot)
	if err != nil {
		return "", fmt.Errorf("derive destination root from %s: %w: %w", req.SourceRoot, ErrMalformedIdentifier, err)
	}
	for range maxGenerateAttempts {
		if dest := c.ids.RunID(parsed).String(); dest != req.SourceRoot {
			return dest, nil
		}
	}
	return "", fmt.Errorf("derive destination root from %s: %w", req.SourceRoot, ErrSameRoot)
}
