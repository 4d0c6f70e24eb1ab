// Package schema describes the fixed table graph that a flowcell clone walks: which
// tables hold one row per run, which are keyed by (run, sample), and which columns
// carry those keys.
package schema

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scope classifies how a table is copied.
type Scope string

const (
	ScopeRoot   Scope = "root"   // one row per run id
	ScopeHybrid Scope = "hybrid" // run-scoped rows of an otherwise sample-keyed table
	ScopeChild  Scope = "child"  // zero or more rows per (run id, sample id)
)

// Hybrid names a sample-keyed table whose run-scoped rows are marked by a category value.
type Hybrid struct {
	Table          string `yaml:"table"`
	CategoryColumn string `yaml:"category_column"`
	RootCategory   string `yaml:"root_category"`
}

// Graph is the table graph for one source/destination schema.
type Graph struct {
	RootColumn  string `yaml:"root_column"`
	ChildColumn string `yaml:"child_column"`

	// RootSentinel is consulted to decide whether a run exists at all.
	RootSentinel string `yaml:"root_sentinel"`
	// ChildSentinel enumerates a run's samples and guards sample id collisions.
	ChildSentinel string `yaml:"child_sentinel"`

	RootTables  []string `yaml:"root_tables"`
	Hybrid      *Hybrid  `yaml:"hybrid,omitempty"`
	ChildTables []string `yaml:"child_tables"`

	// Annotations lists semi-structured columns re-serialised as JSON text on copy.
	Annotations map[string][]string `yaml:"annotations,omitempty"`
}

// Default returns the genomic results schema graph.
func Default() Graph {
	return Graph{
		RootColumn:    "runid",
		ChildColumn:   "run_sample_id",
		RootSentinel:  "gh_board",
		ChildSentinel: "gh_sample",
		RootTables:    []string{"gh_flowcell", "qc_seq"},
		Hybrid: &Hybrid{
			Table:          "sample_qc",
			CategoryColumn: "category",
			RootCategory:   "flowcell",
		},
		ChildTables: []string{
			"gh_board",
			"gh_sample",
			"snv_call",
			"indel_call",
			"fusion_call",
			"cnv_call",
			"deletion_call",
			"denovofusion_call",
			"hrd_call",
			"genomeloh_call",
			"sample_qc",
			"ghcnv_qc",
			"qc_on_target",
			"sample_coverage",
			"tmb_call",
			"msi_call",
			"gh_fusion",
			"gh_indel",
			"gh_variant",
		},
		Annotations: map[string][]string{
			"gh_flowcell": {"comment"},
		},
	}
}

// Load reads a YAML graph profile. Unset scalar fields inherit from Default.
func Load(path string) (Graph, error) {
	b, err := os.ReadFile(path) //nolint:gosec // operator-supplied profile path
	if err != nil {
		return Graph{}, fmt.Errorf("read table profile: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML graph profile and validates it.
func Parse(b []byte) (Graph, error) {
	var g Graph
	if err := yaml.Unmarshal(b, &g); err != nil {
		return Graph{}, fmt.Errorf("decode table profile: %w", err)
	}
	def := Default()
	if g.RootColumn == "" {
		g.RootColumn = def.RootColumn
	}
	if g.ChildColumn == "" {
		g.ChildColumn = def.ChildColumn
	}
	if g.RootSentinel == "" {
		g.RootSentinel = def.RootSentinel
	}
	if g.ChildSentinel == "" {
		g.ChildSentinel = def.ChildSentinel
	}
	if err := g.Validate(); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// Validate checks the graph for missing or duplicate names.
func (g Graph) Validate() error {
	var errs []error
	if strings.TrimSpace(g.RootColumn) == "" || strings.TrimSpace(g.ChildColumn) == "" {
		errs = append(errs, errors.New("root and child columns are required"))
	}
	if len(g.RootTables) == 0 {
		errs = append(errs, errors.New("at least one root table is required"))
	}
	if len(g.ChildTables) == 0 {
		errs = append(errs, errors.New("at least one child table is required"))
	}
	errs = append(errs, duplicates("root_tables", g.RootTables)...)
	errs = append(errs, duplicates("child_tables", g.ChildTables)...)
	for _, t := range append(append([]string{}, g.RootTables...), g.ChildTables...) {
		if strings.TrimSpace(t) == "" {
			errs = append(errs, errors.New("table names must be non-empty"))
			break
		}
	}
	if g.Hybrid != nil {
		if g.Hybrid.Table == "" || g.Hybrid.CategoryColumn == "" || g.Hybrid.RootCategory == "" {
			errs = append(errs, errors.New("hybrid table needs table, category_column and root_category"))
		} else if !contains(g.ChildTables, g.Hybrid.Table) {
			errs = append(errs, fmt.Errorf("hybrid table %s must also be listed in child_tables", g.Hybrid.Table))
		}
	}
	if g.RootSentinel == "" || g.ChildSentinel == "" {
		errs = append(errs, errors.New("root and child sentinels are required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid table profile: %w", errors.Join(errs...))
	}
	return nil
}

// Tables returns every distinct table in the graph, root tables first, then child
// tables in declared order.
func (g Graph) Tables() []string {
	seen := make(map[string]struct{}, len(g.RootTables)+len(g.ChildTables)+1)
	var out []string
	add := func(t string) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range g.RootTables {
		add(t)
	}
	if g.Hybrid != nil {
		add(g.Hybrid.Table)
	}
	for _, t := range g.ChildTables {
		add(t)
	}
	return out
}

// AnnotationColumns returns the semi-structured columns of table.
func (g Graph) AnnotationColumns(table string) []string {
	return g.Annotations[table]
}

func duplicates(field string, names []string) []error {
	seen := make(map[string]struct{}, len(names))
	var errs []error
	for _, n := range names {
		if _, ok := seen[n]; ok {
			errs = append(errs, fmt.Errorf("%s lists %s twice", field, n))
			continue
		}
		seen[n] = struct{}{}
	}
	return errs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
