package blob

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"flowclone/internal/replicate"
)

// ReportKey is where a run report is archived: runs/<dest-root>/<run-id>.json.
// Runs that never settled a destination root are filed under "unassigned".
func ReportKey(r replicate.Report) string {
	dest := r.DestRoot
	if dest == "" {
		dest = "unassigned"
	}
	return path.Join("runs", dest, r.RunID+".json")
}

// ArchiveReport writes the JSON report to store.
func ArchiveReport(ctx context.Context, store Store, r replicate.Report) (Info, error) {
	b, err := r.JSON()
	if err != nil {
		return Info{}, fmt.Errorf("encode report: %w", err)
	}
	info, err := store.Put(ctx, ReportKey(r), bytes.NewReader(b), PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"outcome":     r.Outcome,
			"mode":        r.Mode,
			"source-root": r.SourceRoot,
		},
	})
	if err != nil {
		return Info{}, fmt.Errorf("archive report: %w", err)
	}
	return info, nil
}
