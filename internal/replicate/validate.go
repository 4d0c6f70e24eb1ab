package replicate

import (
	"context"
	"fmt"

	"flowclone/internal/schema"
	"flowclone/internal/tablestore"
)

// Validator answers existence questions against either store.
type Validator struct {
	Graph schema.Graph
}

// ValidateRoot fails with ErrRootNotFound when the root sentinel table has no row
// for root.
func (v Validator) ValidateRoot(ctx context.Context, store tablestore.Reader, root string) error {
	ok, err := v.rootPresent(ctx, store, v.Graph.RootSentinel, root)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s in %s: %w", root, v.Graph.RootSentinel, ErrRootNotFound)
	}
	return nil
}

// ValidateChildren checks generated destination ids against the destination store.
// Caller-supplied ids were already checked while resolving.
func (v Validator) ValidateChildren(ctx context.Context, dest tablestore.Reader, m Mapping) error {
	for _, p := range m {
		if !p.Generated {
			continue
		}
		taken, err := childExists(ctx, dest, v.Graph, p.Dest)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("generated %s for %s: %w", p.Dest, p.Source, ErrDestinationCollision)
		}
	}
	return nil
}

// ValidateDestinationRoot checks every table of the graph for rows already carrying
// root. It runs before any write so a hit leaves the destination untouched.
func (v Validator) ValidateDestinationRoot(ctx context.Context, dest tablestore.Reader, root string) error {
	for _, table := range v.Graph.Tables() {
		ok, err := v.rootPresent(ctx, dest, table, root)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("%s already has rows for %s: %w", table, root, ErrDestinationAlreadyExists)
		}
	}
	return nil
}

func (v Validator) rootPresent(ctx context.Context, store tablestore.Reader, table, root string) (bool, error) {
	rows, err := store.Select(ctx, tablestore.Query{
		Table: table,
		Where: []tablestore.Predicate{tablestore.Eq(v.Graph.RootColumn, root)},
		Limit: 1,
	})
	if err != nil {
		return false, fmt.Errorf("check %s for %s: %w", table, root, err)
	}
	return len(rows) > 0, nil
}
