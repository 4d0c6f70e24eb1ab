package replicate

import "strings"

// Placeholder in an explicit pair asks the engine to pick that side itself.
const Placeholder = "<EMPTY>"

// Request selects which children of the source root are cloned.
type Request interface {
	mode() string
}

// Unbounded clones every child of the root.
type Unbounded struct{}

// Counted clones the first N children in source order.
type Counted struct {
	N int
}

// Token is one caller-supplied (source, destination) pair. Either side may be
// Placeholder.
type Token struct {
	Source string
	Dest   string
}

// Explicit clones exactly the listed pairs, in order.
type Explicit struct {
	Pairs []Token
}

func (Unbounded) mode() string { return "unbounded" }
func (Counted) mode() string   { return "counted" }
func (Explicit) mode() string  { return "explicit" }

// ModeOf names the request variant for reports and metrics.
func ModeOf(req Request) string {
	if req == nil {
		return Unbounded{}.mode()
	}
	return req.mode()
}

// IsPlaceholder reports whether a mapping cell asks for auto-resolution.
func IsPlaceholder(s string) bool {
	return strings.TrimSpace(s) == Placeholder
}
