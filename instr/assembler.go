// Package instr provides the composable instruction representation behind
// the unit compiler.
//
// The representation has two node kinds. An [Expression] realizes to
// instructions that push exactly one value of its static result type onto
// the evaluation stack. A [Statement] realizes to instructions that leave
// the stack depth unchanged. This contract is what makes nodes freely
// composable: any two nodes can be concatenated or nested without reasoning
// about the current depth of the implicit evaluation stack.
//
// In verification mode the contract is enforced: every realization is
// simulated against an abstract stack and a net effect other than the one
// implied by the node's kind is reported as a compiler bug.
package instr

import (
	"fmt"

	"github.com/deepnoodle-ai/stencil/internal/stackcheck"
	"github.com/deepnoodle-ai/stencil/op"
	"github.com/deepnoodle-ai/stencil/unit"
)

// Placeholder is a temporary jump operand written during assembly, always
// replaced before assembly completes.
const Placeholder = uint16(0xFFFF)

// Label marks a position in the instruction stream that jump instructions
// may target. Labels let control-flow combinators target a position inside
// another node's composed realization.
type Label struct {
	id int
}

type fixup struct {
	operandPos int // index of the operand word to patch
	basePos    int // instruction-start position deltas are measured from
	label      *Label
	backward   bool
}

// Assembler accumulates the instruction stream, constant pool, source map
// and suspension table for one unit under compilation.
type Assembler struct {
	instructions []op.Code
	constants    []any
	locations    []unit.SourceLocation
	suspensions  []unit.SuspensionPoint
	labelTargets []int
	fixups       []fixup
	current      unit.SourceLocation
	verify       bool
	check        stackcheck.Checker
	err          error
}

// NewAssembler returns an empty Assembler. When verify is true, every
// realization is checked against the abstract stack-effect contract.
func NewAssembler(verify bool) *Assembler {
	return &Assembler{verify: verify}
}

// Verifying returns true if the assembler checks stack effects.
func (a *Assembler) Verifying() bool {
	return a.verify
}

// SetLocation sets the source location recorded for subsequently emitted
// instructions.
func (a *Assembler) SetLocation(loc unit.SourceLocation) {
	a.current = loc
}

// Position returns the offset the next instruction will be emitted at.
func (a *Assembler) Position() int {
	return len(a.instructions)
}

// Emit appends one instruction and returns its offset.
func (a *Assembler) Emit(opcode op.Code, operands ...uint16) int {
	pos := len(a.instructions)
	a.instructions = append(a.instructions, opcode)
	for _, operand := range operands {
		a.instructions = append(a.instructions, op.Code(operand))
	}
	// One location per instruction word
	for i := 0; i < 1+len(operands); i++ {
		a.locations = append(a.locations, a.current)
	}
	if a.verify && a.err == nil {
		if err := a.check.Apply(opcode, operands...); err != nil {
			a.err = err
		}
	}
	return pos
}

// Constant adds a value to the constant pool and returns its index.
// Constants are appended in emission order; identical values are pooled.
func (a *Assembler) Constant(value any) uint16 {
	for i, existing := range a.constants {
		if existing == value {
			return uint16(i)
		}
	}
	if len(a.constants) >= int(Placeholder) {
		if a.err == nil {
			a.err = fmt.Errorf("number of constants exceeded limits")
		}
		return 0
	}
	a.constants = append(a.constants, value)
	return uint16(len(a.constants) - 1)
}

// NewLabel allocates an unbound label.
func (a *Assembler) NewLabel() *Label {
	a.labelTargets = append(a.labelTargets, -1)
	return &Label{id: len(a.labelTargets) - 1}
}

// Bind attaches the label to the next emitted instruction.
func (a *Assembler) Bind(l *Label) {
	a.labelTargets[l.id] = len(a.instructions)
}

// EmitJump appends a jump instruction targeting the label and records a
// fixup resolved during Finish. Pass backward=true for loop back-edges.
func (a *Assembler) EmitJump(opcode op.Code, l *Label) int {
	return a.emitJump(opcode, l, false)
}

// EmitJumpBackward appends a backward jump targeting an already-bound label.
func (a *Assembler) EmitJumpBackward(l *Label) int {
	return a.emitJump(op.JumpBackward, l, true)
}

func (a *Assembler) emitJump(opcode op.Code, l *Label, backward bool) int {
	pos := a.Emit(opcode, Placeholder)
	a.fixups = append(a.fixups, fixup{
		operandPos: pos + 1,
		basePos:    pos,
		label:      l,
		backward:   backward,
	})
	return pos
}

// AddSuspension allocates a new suspension point and returns its index.
// The resume position must be bound with BindResume before Finish.
func (a *Assembler) AddSuspension(kind unit.SuspendKind) uint16 {
	a.suspensions = append(a.suspensions, unit.SuspensionPoint{ResumeIP: -1, Kind: kind})
	return uint16(len(a.suspensions) - 1)
}

// BindResume sets the suspension point's resume position to the next
// emitted instruction.
func (a *Assembler) BindResume(point uint16) {
	a.suspensions[point].ResumeIP = len(a.instructions)
}

// Depth returns the simulated stack depth. Meaningful only in verification
// mode.
func (a *Assembler) Depth() int {
	return a.check.Depth()
}

// SetDepth overrides the simulated stack depth. Branching combinators use
// this to rejoin paths the linear simulation cannot follow.
func (a *Assembler) SetDepth(d int) {
	a.check.SetDepth(d)
}

// Finish resolves jump fixups and validates the assembled stream. After a
// successful Finish the accessors return the completed artifact parts.
func (a *Assembler) Finish() error {
	if a.err != nil {
		return a.err
	}
	for _, f := range a.fixups {
		target := a.labelTargets[f.label.id]
		if target < 0 {
			return fmt.Errorf("unbound label in assembled code")
		}
		var delta int
		if f.backward {
			delta = f.basePos - target
		} else {
			delta = target - f.basePos
		}
		if delta < 0 {
			return fmt.Errorf("jump direction mismatch at offset %d", f.basePos)
		}
		if delta > int(Placeholder) {
			return fmt.Errorf("jump distance exceeded limits at offset %d", f.basePos)
		}
		a.instructions[f.operandPos] = op.Code(delta)
	}
	for i, sp := range a.suspensions {
		if sp.ResumeIP < 0 {
			return fmt.Errorf("suspension point %d has no resume position", i)
		}
	}
	return nil
}

// Instructions returns the assembled instruction stream.
func (a *Assembler) Instructions() []op.Code {
	return a.instructions
}

// Constants returns the assembled constant pool.
func (a *Assembler) Constants() []any {
	return a.constants
}

// Locations returns the per-word source map.
func (a *Assembler) Locations() []unit.SourceLocation {
	return a.locations
}

// Suspensions returns the suspension table.
func (a *Assembler) Suspensions() []unit.SuspensionPoint {
	return a.suspensions
}
