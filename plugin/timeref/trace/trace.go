// Package trace records the numbered, human-readable steps of a resolution.
package trace

import (
	"fmt"
	"strconv"
)

// Trace is an append-only list of numbered steps. Not safe for concurrent use;
// each resolution owns its own trace.
type Trace struct {
	steps []string
}

// New creates an empty trace.
func New() *Trace {
	return &Trace{}
}

// Addf appends a step, numbering it.
func (t *Trace) Addf(format string, args ...any) {
	t.steps = append(t.steps, strconv.Itoa(len(t.steps)+1)+". "+fmt.Sprintf(format, args...))
}

// Len returns the number of recorded steps.
func (t *Trace) Len() int {
	return len(t.steps)
}

// Steps returns a copy of the recorded steps.
func (t *Trace) Steps() []string {
	out := make([]string, len(t.steps))
	copy(out, t.steps)
	return out
}
