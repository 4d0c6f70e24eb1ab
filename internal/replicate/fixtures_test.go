package replicate

import (
	"context"
	"io"
	"log/slog"
	"time"

	"flowclone/internal/ident"
	"flowclone/internal/infra/persistence/memory"
	"flowclone/internal/tablestore"
)

// realRoot follows the run id grammar so a destination root can be derived from it.
const realRoot = "150911_NB501022_0013_AHJ33JBGXX"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedRun writes a small but complete run: both root tables, the run-scoped
// sample_qc row and, for every child, board and sample rows. Only the first child
// has variant calls and a sample-scoped QC row.
func seedRun(s *memory.Store, root string, children ...string) {
	s.Seed("gh_flowcell", tablestore.Row{"runid": root, "comment": `{"operator": "ops", "lane": 1}`})
	s.Seed("qc_seq", tablestore.Row{"runid": root, "yield": 42})
	s.Seed("sample_qc", tablestore.Row{"runid": root, "run_sample_id": nil, "category": "flowcell", "metric": "cluster_density"})
	for _, c := range children {
		s.Seed("gh_board", tablestore.Row{"runid": root, "run_sample_id": c})
		s.Seed("gh_sample", tablestore.Row{"runid": root, "run_sample_id": c})
	}
	if len(children) > 0 {
		first := children[0]
		s.Seed("snv_call",
			tablestore.Row{"runid": root, "run_sample_id": first, "gene": "TP53"},
			tablestore.Row{"runid": root, "run_sample_id": first, "gene": "KRAS"},
		)
		s.Seed("sample_qc", tablestore.Row{"runid": root, "run_sample_id": first, "category": "sample", "metric": "dup_rate"})
	}
}

// scriptedIDs hands out identifiers from fixed lists, cycling when exhausted.
type scriptedIDs struct {
	samples []string
	runs    []string
	next    int
	nextRun int
}

func (s *scriptedIDs) SampleID() string {
	id := s.samples[s.next%len(s.samples)]
	s.next++
	return id
}

func (s *scriptedIDs) RunID(source ident.RunID) ident.RunID {
	if len(s.runs) == 0 {
		return source
	}
	id, err := ident.ParseRunID(s.runs[s.nextRun%len(s.runs)])
	s.nextRun++
	if err != nil {
		panic(err)
	}
	return id
}

type insertCall struct {
	Table string
	Rows  []tablestore.Row
}

// recordingStore logs every read and insert before delegating.
type recordingStore struct {
	tablestore.Store
	reads   []tablestore.Query
	inserts []insertCall
}

func record(s tablestore.Store) *recordingStore { return &recordingStore{Store: s} }

func (r *recordingStore) Select(ctx context.Context, q tablestore.Query) ([]tablestore.Row, error) {
	r.reads = append(r.reads, q)
	return r.Store.Select(ctx, q)
}

func (r *recordingStore) Insert(ctx context.Context, table string, rows []tablestore.Row) (int64, error) {
	cp := make([]tablestore.Row, len(rows))
	for i, row := range rows {
		cp[i] = row.Clone()
	}
	r.inserts = append(r.inserts, insertCall{Table: table, Rows: cp})
	return r.Store.Insert(ctx, table, rows)
}

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func fixedOptions(ids IDGenerator) Options {
	return Options{
		IDs:      ids,
		Logger:   quietLogger(),
		Now:      func() time.Time { return fixedTime },
		NewRunID: func() string { return "run-1" },
	}
}
