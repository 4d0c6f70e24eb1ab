// Package mappingfile reads explicit sample mappings from CSV. The header must name
// an in_sample and an out_sample column; other columns are ignored.
package mappingfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"flowclone/internal/replicate"
)

const (
	sourceColumn = "in_sample"
	destColumn   = "out_sample"
)

// Load reads the mapping file at path.
func Load(path string) (replicate.Explicit, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied mapping path
	if err != nil {
		return replicate.Explicit{}, fmt.Errorf("open mapping file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse decodes CSV into explicit pairs. Every returned error wraps
// replicate.ErrInvalidMapping.
func Parse(r io.Reader) (replicate.Explicit, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return replicate.Explicit{}, fmt.Errorf("%w: empty mapping file", replicate.ErrInvalidMapping)
	}
	if err != nil {
		return replicate.Explicit{}, fmt.Errorf("%w: read header: %w", replicate.ErrInvalidMapping, err)
	}
	src, dst := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case sourceColumn:
			src = i
		case destColumn:
			dst = i
		}
	}
	if src < 0 || dst < 0 {
		return replicate.Explicit{}, fmt.Errorf("%w: header needs %s and %s columns", replicate.ErrInvalidMapping, sourceColumn, destColumn)
	}

	var out replicate.Explicit
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return replicate.Explicit{}, fmt.Errorf("%w: line %d: %w", replicate.ErrInvalidMapping, line, err)
		}
		in, outSample := strings.TrimSpace(rec[src]), strings.TrimSpace(rec[dst])
		if in == "" || outSample == "" {
			return replicate.Explicit{}, fmt.Errorf("%w: line %d: blank cell (use %s for auto)", replicate.ErrInvalidMapping, line, replicate.Placeholder)
		}
		out.Pairs = append(out.Pairs, replicate.Token{Source: in, Dest: outSample})
	}
	if len(out.Pairs) == 0 {
		return replicate.Explicit{}, fmt.Errorf("%w: no rows", replicate.ErrInvalidMapping)
	}
	return out, nil
}
