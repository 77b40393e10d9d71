// Package stackcheck simulates the evaluation-stack effect of unit
// instructions. It backs the verification mode of the instruction IR: every
// realized expression must net exactly one pushed value and every statement
// must net zero.
package stackcheck

import (
	"fmt"

	"github.com/deepnoodle-ai/stencil/op"
)

// Effect returns the stack delta of executing the given opcode along the
// fallthrough path. The second return is false for opcodes whose effect
// depends on which branch is taken (currently only ForIter); callers that
// compose such opcodes account for the depth explicitly.
func Effect(code op.Code, operands []uint16) (int, bool) {
	switch code {
	case op.Nop, op.ReturnStatus, op.JumpBackward, op.JumpForward,
		op.EmitText, op.YieldIfLimited, op.Suspend,
		op.UnaryNot, op.UnaryMinus, op.Length, op.GetIter,
		op.CheckCast, op.ConstructUnit:
		return 0, true
	case op.LoadConst, op.LoadLocal, op.LoadParam, op.CheckAvail,
		op.Nil, op.True, op.False, op.Copy:
		return 1, true
	case op.PopJumpForwardIfFalse, op.PopJumpForwardIfTrue,
		op.PopJumpForwardIfNil, op.PopJumpForwardIfNotNil,
		op.StoreLocal, op.EmitValue, op.BinaryOp, op.CompareOp,
		op.BinarySubscr, op.PopTop, op.AdvanceUnit:
		return -1, true
	case op.BuildList:
		return 1 - int(operands[0]), true
	case op.BuildMap:
		return 1 - 2*int(operands[0]), true
	case op.ForIter:
		return 0, false
	default:
		return 0, true
	}
}

// Checker tracks the simulated stack depth of an instruction stream under
// construction.
type Checker struct {
	depth int
}

// Depth returns the current simulated depth.
func (c *Checker) Depth() int {
	return c.depth
}

// SetDepth overrides the simulated depth. Branching combinators use this to
// rejoin control-flow paths that the linear simulation cannot follow.
func (c *Checker) SetDepth(d int) {
	c.depth = d
}

// Apply simulates one instruction. It fails if the instruction would pop
// from an empty stack.
func (c *Checker) Apply(code op.Code, operands ...uint16) error {
	delta, linear := Effect(code, operands)
	if !linear {
		return nil
	}
	next := c.depth + delta
	if next < 0 {
		info := op.GetInfo(code)
		return fmt.Errorf("stack underflow: %s at depth %d", info.Name, c.depth)
	}
	c.depth = next
	return nil
}
