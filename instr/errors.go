package instr

import (
	"fmt"

	"github.com/deepnoodle-ai/stencil/types"
)

// TypeMismatchError reports a checked cast between types that can never be
// compatible. This is a compiler bug: the upstream analysis stage guarantees
// casts are at least possible.
type TypeMismatchError struct {
	From types.Type
	To   types.Type
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("impossible cast from %s to %s", e.From, e.To)
}

// StackEffectError reports a realized node whose net stack effect differs
// from the one implied by its kind. This is always an internal invariant
// violation.
type StackEffectError struct {
	NodeKind string // "expression" or "statement"
	Want     int
	Got      int
}

// Error implements the error interface.
func (e *StackEffectError) Error() string {
	return fmt.Sprintf("%s stack effect violated: depth %d after realization, want %d",
		e.NodeKind, e.Got, e.Want)
}
