package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"flowclone/internal/schema"
	"flowclone/internal/tablestore"
)

// Batch is one staged insert: rewritten rows bound for one destination table.
type Batch struct {
	Table string
	Scope schema.Scope
	// SourceChild and DestChild are empty for root and hybrid batches.
	SourceChild string
	DestChild   string
	Rows        []tablestore.Row
}

// Plan is everything a run would write, fully computed before any write.
type Plan struct {
	SourceRoot string
	DestRoot   string
	Batches    []Batch
}

// Copier walks the table graph and copies rows from Source to Dest.
type Copier struct {
	Source    tablestore.Reader
	Dest      tablestore.Store
	Graph     schema.Graph
	Validator Validator
	Logger    *slog.Logger
}

// Stage reads every source row the run will copy and rewrites it in memory. It
// never touches the destination.
func (c *Copier) Stage(ctx context.Context, sourceRoot, destRoot string, m Mapping) (Plan, error) {
	g := c.Graph
	plan := Plan{SourceRoot: sourceRoot, DestRoot: destRoot}

	for _, table := range g.RootTables {
		rows, err := c.read(ctx, table, []tablestore.Predicate{tablestore.Eq(g.RootColumn, sourceRoot)})
		if err != nil {
			return Plan{}, err
		}
		if len(rows) == 0 {
			return Plan{}, fmt.Errorf("%s for %s: %w", table, sourceRoot, ErrSourceTableEmpty)
		}
		staged, err := c.rewrite(table, rows, destRoot, "")
		if err != nil {
			return Plan{}, err
		}
		plan.Batches = append(plan.Batches, Batch{Table: table, Scope: schema.ScopeRoot, Rows: staged})
	}

	if h := g.Hybrid; h != nil {
		rows, err := c.read(ctx, h.Table, []tablestore.Predicate{
			tablestore.Eq(g.RootColumn, sourceRoot),
			tablestore.IsNull(g.ChildColumn),
			tablestore.Eq(h.CategoryColumn, h.RootCategory),
		})
		if err != nil {
			return Plan{}, err
		}
		if len(rows) == 0 {
			return Plan{}, fmt.Errorf("%s (%s=%s) for %s: %w", h.Table, h.CategoryColumn, h.RootCategory, sourceRoot, ErrSourceTableEmpty)
		}
		staged, err := c.rewrite(h.Table, rows, destRoot, "")
		if err != nil {
			return Plan{}, err
		}
		plan.Batches = append(plan.Batches, Batch{Table: h.Table, Scope: schema.ScopeHybrid, Rows: staged})
	}

	for _, table := range g.ChildTables {
		for _, p := range m {
			rows, err := c.read(ctx, table, []tablestore.Predicate{
				tablestore.Eq(g.RootColumn, sourceRoot),
				tablestore.Eq(g.ChildColumn, p.Source),
			})
			if err != nil {
				return Plan{}, err
			}
			if len(rows) == 0 {
				continue
			}
			staged, err := c.rewrite(table, rows, destRoot, p.Dest)
			if err != nil {
				return Plan{}, err
			}
			plan.Batches = append(plan.Batches, Batch{
				Table:       table,
				Scope:       schema.ScopeChild,
				SourceChild: p.Source,
				DestChild:   p.Dest,
				Rows:        staged,
			})
		}
	}
	return plan, nil
}

// Copy stages the plan, checks the destination root is absent from every table and,
// unless dryRun, applies the plan. The report is filled even when an error is
// returned.
func (c *Copier) Copy(ctx context.Context, sourceRoot, destRoot string, m Mapping, dryRun bool) (Report, error) {
	report := Report{SourceRoot: sourceRoot, DestRoot: destRoot, DryRun: dryRun, Mapping: m}
	err := c.copyInto(ctx, &report, sourceRoot, destRoot, m, dryRun)
	return report, err
}

func (c *Copier) copyInto(ctx context.Context, report *Report, sourceRoot, destRoot string, m Mapping, dryRun bool) error {
	plan, err := c.Stage(ctx, sourceRoot, destRoot, m)
	if err != nil {
		return err
	}
	for _, b := range plan.Batches {
		report.entry(b.Table, b.Scope).RowsConsidered += len(b.Rows)
	}
	if err := c.Validator.ValidateDestinationRoot(ctx, c.Dest, destRoot); err != nil {
		return err
	}
	if dryRun {
		c.logger().Info("dry run: skipping writes", "batches", len(plan.Batches))
		return nil
	}
	uow := &unitOfWork{dest: c.Dest, graph: c.Graph, destRoot: destRoot, logger: c.logger()}
	return uow.commit(ctx, plan, report)
}

func (c *Copier) read(ctx context.Context, table string, where []tablestore.Predicate) ([]tablestore.Row, error) {
	rows, err := c.Source.Select(ctx, tablestore.Query{Table: table, Where: where})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	c.logger().Debug("read source rows", "table", table, "rows", len(rows))
	return rows, nil
}

// rewrite clones rows with the destination keys substituted. destChild is empty for
// run-scoped rows, whose child column is left as read.
func (c *Copier) rewrite(table string, rows []tablestore.Row, destRoot, destChild string) ([]tablestore.Row, error) {
	annotations := c.Graph.AnnotationColumns(table)
	out := make([]tablestore.Row, 0, len(rows))
	for _, r := range rows {
		row := r.Clone()
		row[c.Graph.RootColumn] = destRoot
		if destChild != "" {
			row[c.Graph.ChildColumn] = destChild
		}
		for _, col := range annotations {
			v, ok := row[col]
			if !ok {
				continue
			}
			text, err := reserialize(v)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", table, col, err)
			}
			row[col] = text
		}
		out = append(out, row)
	}
	return out, nil
}

func (c *Copier) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// reserialize normalises a semi-structured value to compact JSON text. Text that
// is not JSON is kept unchanged.
func reserialize(v any) (any, error) {
	var raw []byte
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		raw = []byte(x)
	case []byte:
		raw = x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("encode annotation: %w", err)
		}
		return string(b), nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw), nil
	}
	b, err := json.Marshal(decoded)
	if err != nil {
		return nil, fmt.Errorf("encode annotation: %w", err)
	}
	return string(b), nil
}
