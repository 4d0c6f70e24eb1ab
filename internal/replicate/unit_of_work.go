package replicate

import (
	"context"
	"fmt"
	"log/slog"

	"flowclone/internal/schema"
	"flowclone/internal/tablestore"
)

// unitOfWork applies a staged plan batch by batch. Each Insert is its own
// destination transaction; when one fails, batches already written are deleted
// again in reverse order.
type unitOfWork struct {
	dest     tablestore.Store
	graph    schema.Graph
	destRoot string
	logger   *slog.Logger

	applied []Batch
}

func (u *unitOfWork) commit(ctx context.Context, plan Plan, report *Report) error {
	for _, b := range plan.Batches {
		n, err := u.dest.Insert(ctx, b.Table, b.Rows)
		if err != nil {
			u.logger.Error("write failed, compensating", "table", b.Table, "scope", b.Scope, "error", err)
			u.compensate(ctx, report)
			return fmt.Errorf("%w: %s: %w", ErrWriteFailed, b.Table, err)
		}
		report.entry(b.Table, b.Scope).RowsWritten += n
		u.applied = append(u.applied, b)
		u.logger.Debug("wrote batch", "table", b.Table, "scope", b.Scope, "dest_child", b.DestChild, "rows", n)
	}
	return nil
}

func (u *unitOfWork) compensate(ctx context.Context, report *Report) {
	for i := len(u.applied) - 1; i >= 0; i-- {
		b := u.applied[i]
		n, err := u.dest.Delete(ctx, tablestore.Query{Table: b.Table, Where: u.keyOf(b)})
		if err != nil {
			u.logger.Error("compensating delete failed", "table", b.Table, "scope", b.Scope, "error", err)
			report.CompensationErrors = append(report.CompensationErrors, fmt.Sprintf("%s: %v", b.Table, err))
			continue
		}
		report.entry(b.Table, b.Scope).RowsCompensated += n
	}
	u.applied = nil
}

// keyOf selects exactly the rows a batch inserted. The destination root was absent
// from every table before the run, so the keys cannot match older rows.
func (u *unitOfWork) keyOf(b Batch) []tablestore.Predicate {
	g := u.graph
	where := []tablestore.Predicate{tablestore.Eq(g.RootColumn, u.destRoot)}
	switch b.Scope {
	case schema.ScopeChild:
		where = append(where, tablestore.Eq(g.ChildColumn, b.DestChild))
	case schema.ScopeHybrid:
		where = append(where,
			tablestore.IsNull(g.ChildColumn),
			tablestore.Eq(g.Hybrid.CategoryColumn, g.Hybrid.RootCategory))
	}
	return where
}
