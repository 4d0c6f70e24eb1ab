package replicate

import (
	"context"
	"fmt"

	"flowclone/internal/ident"
	"flowclone/internal/schema"
	"flowclone/internal/tablestore"
)

// maxGenerateAttempts bounds regeneration when a fresh sample id clashes with one
// already used in the same mapping.
const maxGenerateAttempts = 64

// Pair maps one source child to its destination id.
type Pair struct {
	Source    string `json:"source"`
	Dest      string `json:"dest"`
	Generated bool   `json:"generated"`
}

// Mapping is the ordered child correspondence of one run.
type Mapping []Pair

// Sources returns the source ids in mapping order.
func (m Mapping) Sources() []string {
	out := make([]string, len(m))
	for i, p := range m {
		out[i] = p.Source
	}
	return out
}

// Dests returns the destination ids in mapping order.
func (m Mapping) Dests() []string {
	out := make([]string, len(m))
	for i, p := range m {
		out[i] = p.Dest
	}
	return out
}

// IDGenerator produces candidate identifiers. *ident.Generator satisfies it.
type IDGenerator interface {
	SampleID() string
	RunID(source ident.RunID) ident.RunID
}

// Resolver turns a Request into a Mapping.
type Resolver struct {
	Source tablestore.Reader
	Dest   tablestore.Reader
	Graph  schema.Graph
	IDs    IDGenerator
}

// Children lists the distinct children of root from the child sentinel table, ordered
// by child id.
func (r *Resolver) Children(ctx context.Context, root string) ([]string, error) {
	rows, err := r.Source.Select(ctx, tablestore.Query{
		Table:   r.Graph.ChildSentinel,
		Where:   []tablestore.Predicate{tablestore.Eq(r.Graph.RootColumn, root)},
		OrderBy: []string{r.Graph.ChildColumn},
	})
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", root, err)
	}
	seen := make(map[string]struct{}, len(rows))
	var out []string
	for _, row := range rows {
		id, ok := cellString(row[r.Graph.ChildColumn])
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// Resolve builds the mapping for sourceRoot. Generated destination ids are unique
// within the mapping but are not checked against the destination store; see
// Validator.ValidateChildren.
func (r *Resolver) Resolve(ctx context.Context, sourceRoot string, req Request) (Mapping, error) {
	children, err := r.Children(ctx, sourceRoot)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("%s: %w", sourceRoot, ErrNoChildren)
	}
	switch q := req.(type) {
	case nil, Unbounded:
		return r.generated(children)
	case Counted:
		if q.N <= 0 {
			return nil, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidMapping, q.N)
		}
		if q.N > len(children) {
			return nil, fmt.Errorf("requested %d of %d children: %w", q.N, len(children), ErrInsufficientChildren)
		}
		return r.generated(children[:q.N])
	case Explicit:
		return r.explicit(ctx, sourceRoot, children, q.Pairs)
	default:
		return nil, fmt.Errorf("%w: unsupported request %T", ErrInvalidMapping, req)
	}
}

func (r *Resolver) generated(sources []string) (Mapping, error) {
	used := make(map[string]struct{}, len(sources))
	m := make(Mapping, 0, len(sources))
	for _, src := range sources {
		dest, err := r.fresh(used)
		if err != nil {
			return nil, err
		}
		m = append(m, Pair{Source: src, Dest: dest, Generated: true})
	}
	return m, nil
}

func (r *Resolver) fresh(used map[string]struct{}) (string, error) {
	for range maxGenerateAttempts {
		id := r.IDs.SampleID()
		if _, taken := used[id]; taken {
			continue
		}
		used[id] = struct{}{}
		return id, nil
	}
	return "", fmt.Errorf("no unused sample id after %d attempts: %w", maxGenerateAttempts, ErrDestinationCollision)
}

func (r *Resolver) explicit(ctx context.Context, root string, children []string, pairs []Token) (Mapping, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no pairs", ErrInvalidMapping)
	}
	if len(pairs) > len(children) {
		return nil, fmt.Errorf("mapping lists %d pairs but %s has %d children: %w", len(pairs), root, len(children), ErrInsufficientChildren)
	}
	owned := make(map[string]struct{}, len(children))
	for _, c := range children {
		owned[c] = struct{}{}
	}

	// Sources first so an unusable source fails before any destination lookup.
	seenSrc := make(map[string]struct{}, len(pairs))
	for i, p := range pairs {
		src := p.Source
		switch {
		case IsPlaceholder(src):
			return nil, fmt.Errorf("pair %d: %w", i+1, ErrNotImplemented)
		case src == "":
			return nil, fmt.Errorf("pair %d: %w: empty source", i+1, ErrInvalidMapping)
		}
		if _, ok := owned[src]; !ok {
			return nil, fmt.Errorf("pair %d: %s not under %s: %w", i+1, src, root, ErrUnknownSourceChild)
		}
		if _, dup := seenSrc[src]; dup {
			return nil, fmt.Errorf("pair %d: %s: %w", i+1, src, ErrDuplicateChild)
		}
		seenSrc[src] = struct{}{}
	}

	used := make(map[string]struct{}, len(pairs))
	for i, p := range pairs {
		dest := p.Dest
		if IsPlaceholder(dest) {
			continue
		}
		if dest == "" {
			return nil, fmt.Errorf("pair %d: %w: empty destination", i+1, ErrInvalidMapping)
		}
		if _, dup := used[dest]; dup {
			return nil, fmt.Errorf("pair %d: %s listed twice: %w", i+1, dest, ErrDestinationCollision)
		}
		taken, err := childExists(ctx, r.Dest, r.Graph, dest)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("pair %d: %s: %w", i+1, dest, ErrDestinationCollision)
		}
		used[dest] = struct{}{}
	}

	m := make(Mapping, 0, len(pairs))
	for _, p := range pairs {
		if !IsPlaceholder(p.Dest) {
			m = append(m, Pair{Source: p.Source, Dest: p.Dest})
			continue
		}
		dest, err := r.fresh(used)
		if err != nil {
			return nil, err
		}
		m = append(m, Pair{Source: p.Source, Dest: dest, Generated: true})
	}
	return m, nil
}

// childExists reports whether any root in store already owns child id.
func childExists(ctx context.Context, store tablestore.Reader, g schema.Graph, id string) (bool, error) {
	rows, err := store.Select(ctx, tablestore.Query{
		Table: g.ChildSentinel,
		Where: []tablestore.Predicate{tablestore.Eq(g.ChildColumn, id)},
		Limit: 1,
	})
	if err != nil {
		return false, fmt.Errorf("look up child %s: %w", id, err)
	}
	return len(rows) > 0, nil
}

func cellString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return fmt.Sprint(x), true
	}
}
