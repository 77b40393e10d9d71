package instr

import (
	"fmt"

	"github.com/deepnoodle-ai/stencil/op"
	"github.com/deepnoodle-ai/stencil/unit"
)

// Statement is an immutable computation that realizes to instructions with
// no net stack effect. The zero value realizes to nothing and may be used
// for absent branches.
type Statement struct {
	realize RealizeFunc
}

// NewStatement creates a statement from a realize function.
func NewStatement(realize RealizeFunc) Statement {
	return Statement{realize: realize}
}

// IsZero returns true for the empty statement.
func (s Statement) IsZero() bool {
	return s.realize == nil
}

// Realize emits the statement's instructions. In verification mode the
// realization must leave the stack depth unchanged.
func (s Statement) Realize(a *Assembler) error {
	if s.realize == nil {
		return nil
	}
	if !a.verify {
		return s.realize(a)
	}
	before := a.check.Depth()
	if err := s.realize(a); err != nil {
		return err
	}
	if got := a.check.Depth(); got != before {
		return &StackEffectError{NodeKind: "statement", Want: before, Got: got}
	}
	return nil
}

// WithLabelStart returns an equivalent statement that binds the label
// immediately before realization.
func (s Statement) WithLabelStart(l *Label) Statement {
	inner := s
	s.realize = func(a *Assembler) error {
		a.Bind(l)
		if inner.realize == nil {
			return nil
		}
		return inner.realize(a)
	}
	return s
}

// WithLabelEnd returns an equivalent statement that binds the label
// immediately after realization.
func (s Statement) WithLabelEnd(l *Label) Statement {
	inner := s
	s.realize = func(a *Assembler) error {
		if inner.realize != nil {
			if err := inner.realize(a); err != nil {
				return err
			}
		}
		a.Bind(l)
		return nil
	}
	return s
}

// Combinators

// Seq sequences statements in order. Zero-value statements are skipped.
func Seq(stmts ...Statement) Statement {
	return NewStatement(func(a *Assembler) error {
		for _, stmt := range stmts {
			if err := stmt.Realize(a); err != nil {
				return err
			}
		}
		return nil
	})
}

// EmitText emits a literal run of text.
func EmitText(text string) Statement {
	return NewStatement(func(a *Assembler) error {
		a.Emit(op.EmitText, a.Constant(text))
		return nil
	})
}

// EmitValue evaluates the expression and appends its value, coerced to
// text, to the output.
func EmitValue(value Expression) Statement {
	return NewStatement(func(a *Assembler) error {
		if err := value.Realize(a); err != nil {
			return err
		}
		a.Emit(op.EmitValue)
		return nil
	})
}

// YieldIfLimited inserts a suspension point that pauses rendering with
// OutputLimited when the sink signals backpressure. Resuming continues
// immediately after the point; no output is repeated.
func YieldIfLimited() Statement {
	return NewStatement(func(a *Assembler) error {
		point := a.AddSuspension(unit.SuspendOutput)
		a.Emit(op.YieldIfLimited, point)
		a.BindResume(point)
		return nil
	})
}

// AssignLocal evaluates the expression and stores it in the local slot.
func AssignLocal(index uint16, value Expression) Statement {
	return NewStatement(func(a *Assembler) error {
		if err := value.Realize(a); err != nil {
			return err
		}
		a.Emit(op.StoreLocal, index)
		return nil
	})
}

// Return finishes the unit invocation with the given status.
func Return(status unit.Status) Statement {
	return NewStatement(func(a *Assembler) error {
		a.Emit(op.ReturnStatus, uint16(status))
		return nil
	})
}

// If branches on the condition, realizing then when true.
func If(cond Expression, then Statement) Statement {
	return IfElse(cond, then, Statement{})
}

// IfElse branches on the condition, realizing exactly one branch. Both
// branches rejoin at the same stack depth.
func IfElse(cond Expression, then, els Statement) Statement {
	return NewStatement(func(a *Assembler) error {
		if err := cond.Realize(a); err != nil {
			return err
		}
		elseLabel := a.NewLabel()
		endLabel := a.NewLabel()
		a.EmitJump(op.PopJumpForwardIfFalse, elseLabel)
		branchDepth := a.Depth()
		if err := then.Realize(a); err != nil {
			return err
		}
		a.EmitJump(op.JumpForward, endLabel)
		a.Bind(elseLabel)
		a.SetDepth(branchDepth)
		if err := els.Realize(a); err != nil {
			return err
		}
		a.Bind(endLabel)
		return nil
	})
}

// ForEach iterates the sequence, storing each element into the local slot
// and realizing the body once per element. The iterator lives on the
// evaluation stack for the duration of the loop and is persisted like any
// other live value if the body suspends.
func ForEach(seq Expression, local uint16, body Statement) Statement {
	return NewStatement(func(a *Assembler) error {
		if err := seq.Realize(a); err != nil {
			return err
		}
		a.Emit(op.GetIter)
		loopLabel := a.NewLabel()
		endLabel := a.NewLabel()
		a.Bind(loopLabel)
		iterDepth := a.Depth()
		a.EmitJump(op.ForIter, endLabel)
		a.SetDepth(iterDepth + 1)
		a.Emit(op.StoreLocal, local)
		if err := body.Realize(a); err != nil {
			return err
		}
		a.EmitJumpBackward(loopLabel)
		a.Bind(endLabel)
		// The iterator is popped when it is exhausted
		a.SetDepth(iterDepth - 1)
		return nil
	})
}

// Verify realizes the node into a scratch assembler with verification
// enabled and reports any stack-effect or cast violation. Used by tests and
// debug tooling.
func Verify(node any) error {
	a := NewAssembler(true)
	switch n := node.(type) {
	case Expression:
		if err := n.Realize(a); err != nil {
			return err
		}
	case Statement:
		if err := n.Realize(a); err != nil {
			return err
		}
	default:
		return fmt.Errorf("verify: unsupported node type %T", node)
	}
	return a.Finish()
}
