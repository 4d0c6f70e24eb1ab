package replicate

import (
	"encoding/json"
	"time"

	"flowclone/internal/schema"
)

// Run outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeDryRun    = "dry_run"
	OutcomeFailed    = "failed"
)

// TableReport counts rows for one (table, scope) batch group.
type TableReport struct {
	Table           string       `json:"table"`
	Scope           schema.Scope `json:"scope"`
	RowsConsidered  int          `json:"rows_considered"`
	RowsWritten     int64        `json:"rows_written"`
	RowsCompensated int64        `json:"rows_compensated,omitempty"`
}

// Report is the sole output artifact of a run.
type Report struct {
	RunID      string        `json:"run_id"`
	SourceRoot string        `json:"source_root"`
	DestRoot   string        `json:"dest_root,omitempty"`
	Mode       string        `json:"mode"`
	DryRun     bool          `json:"dry_run"`
	Outcome    string        `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	Mapping    Mapping       `json:"mapping"`
	Tables     []TableReport `json:"tables"`
	// CompensationErrors lists deletes that failed while undoing a partial write.
	CompensationErrors []string  `json:"compensation_errors,omitempty"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
}

// Duration is the wall time of the run.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RowsWritten sums written rows over every table.
func (r Report) RowsWritten() int64 {
	var n int64
	for _, t := range r.Tables {
		n += t.RowsWritten
	}
	return n
}

// JSON renders the report as indented JSON.
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// entry returns the counter for (table, scope), creating it in first-seen order.
func (r *Report) entry(table string, scope schema.Scope) *TableReport {
	for i := range r.Tables {
		if r.Tables[i].Table == table && r.Tables[i].Scope == scope {
			return &r.Tables[i]
		}
	}
	r.Tables = append(r.Tables, TableReport{Table: table, Scope: scope})
	return &r.Tables[len(r.Tables)-1]
}
