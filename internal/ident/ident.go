// Package ident defines the identifier grammar for flowcell run ids and sample ids
// and generates fresh identifiers that follow it.
//
// Run ids have the shape
//
//	<prefix><run>_<flowcell>
//	150911_NB501022_ 0013 _ AHJ33JBGXX
//
// where prefix is free-form but must end in '_', run is exactly four digits and
// flowcell is exactly ten uppercase alphanumerics. Generated sample ids have the
// shape G<six uppercase alphanumerics>G_1.
package ident

import (
	"errors"
	"fmt"
	"strings"
)

const (
	runWidth      = 4
	flowcellWidth = 10
	// suffixWidth covers "<run>_<flowcell>".
	suffixWidth = runWidth + 1 + flowcellWidth

	sampleBodyWidth = 6
	samplePrefix    = "G"
	sampleSuffix    = "G_1"

	generatedFlowcellMarker = "G"
	generatedFlowcellBody   = flowcellWidth - 2*len(generatedFlowcellMarker)
)

// ErrMalformed reports an identifier that does not match the grammar.
var ErrMalformed = errors.New("ident: malformed identifier")

// RunID is a parsed flowcell run identifier.
type RunID struct {
	Prefix   string // instrument/date prefix, kept verbatim when deriving a new id
	Run      string // four digit run counter
	Flowcell string // ten character flowcell slot
}

// ParseRunID splits s into its named fields.
func ParseRunID(s string) (RunID, error) {
	if len(s) <= suffixWidth {
		return RunID{}, fmt.Errorf("%w: run id %q shorter than %d characters", ErrMalformed, s, suffixWidth+1)
	}
	cut := len(s) - suffixWidth
	id := RunID{
		Prefix:   s[:cut],
		Run:      s[cut : cut+runWidth],
		Flowcell: s[cut+runWidth+1:],
	}
	if s[cut+runWidth] != '_' {
		return RunID{}, fmt.Errorf("%w: run id %q missing separator before flowcell", ErrMalformed, s)
	}
	if err := id.Validate(); err != nil {
		return RunID{}, err
	}
	return id, nil
}

// Validate checks every field against the grammar.
func (r RunID) Validate() error {
	if r.Prefix == "" || !strings.HasSuffix(r.Prefix, "_") {
		return fmt.Errorf("%w: run id prefix %q must be non-empty and end in '_'", ErrMalformed, r.Prefix)
	}
	if len(r.Run) != runWidth || !allOf(r.Run, isDigit) {
		return fmt.Errorf("%w: run number %q must be %d digits", ErrMalformed, r.Run, runWidth)
	}
	if len(r.Flowcell) != flowcellWidth || !allOf(r.Flowcell, isUpperAlnum) {
		return fmt.Errorf("%w: flowcell %q must be %d uppercase alphanumerics", ErrMalformed, r.Flowcell, flowcellWidth)
	}
	return nil
}

func (r RunID) String() string {
	return r.Prefix + r.Run + "_" + r.Flowcell
}

// SampleID is a generated sample identifier.
type SampleID struct {
	Body string
}

// ParseSampleID accepts only identifiers in the generated form.
func ParseSampleID(s string) (SampleID, error) {
	if !strings.HasPrefix(s, samplePrefix) || !strings.HasSuffix(s, sampleSuffix) {
		return SampleID{}, fmt.Errorf("%w: sample id %q", ErrMalformed, s)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, samplePrefix), sampleSuffix)
	id := SampleID{Body: body}
	if err := id.Validate(); err != nil {
		return SampleID{}, err
	}
	return id, nil
}

// Validate checks the body width and alphabet.
func (s SampleID) Validate() error {
	if len(s.Body) != sampleBodyWidth || !allOf(s.Body, isUpperAlnum) {
		return fmt.Errorf("%w: sample body %q must be %d uppercase alphanumerics", ErrMalformed, s.Body, sampleBodyWidth)
	}
	return nil
}

func (s SampleID) String() string {
	return samplePrefix + s.Body + sampleSuffix
}

// IsGeneratedSampleID reports whether s has the generated sample id shape.
func IsGeneratedSampleID(s string) bool {
	_, err := ParseSampleID(s)
	return err == nil
}

func allOf(s string, pred func(byte) bool) bool {
	for i := 0; i < len(s); i++ {
		if !pred(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isUpperAlnum(c byte) bool { return isDigit(c) || (c >= 'A' && c <= 'Z') }
