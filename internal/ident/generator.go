package ident

import (
	"math/rand/v2"
	"strings"
)

const (
	digits     = "0123456789"
	upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ" + digits
	pcgStream  = 0x9e3779b97f4a7c15
)

// Generator produces identifiers in the grammar of this package. It is not safe
// for concurrent use when built over a seeded source.
type Generator struct {
	intN func(n int) int
}

// NewGenerator returns a generator drawing from the process-wide random source.
func NewGenerator() *Generator {
	return &Generator{intN: rand.IntN}
}

// NewSeededGenerator returns a deterministic generator, used by tests and dry-run
// reproductions.
func NewSeededGenerator(seed uint64) *Generator {
	r := rand.New(rand.NewPCG(seed, pcgStream))
	return &Generator{intN: r.IntN}
}

// SampleID returns a fresh G<rand6>G_1 sample id.
func (g *Generator) SampleID() string {
	return SampleID{Body: g.pick(upperAlnum, sampleBodyWidth)}.String()
}

// RunID derives a new run id from source, keeping the prefix and replacing the
// run number and flowcell slot.
func (g *Generator) RunID(source RunID) RunID {
	return RunID{
		Prefix:   source.Prefix,
		Run:      g.pick(digits, runWidth),
		Flowcell: generatedFlowcellMarker + g.pick(upperAlnum, generatedFlowcellBody) + generatedFlowcellMarker,
	}
}

func (g *Generator) pick(alphabet string, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[g.intN(len(alphabet))])
	}
	return b.String()
}
