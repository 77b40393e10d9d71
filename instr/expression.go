package instr

import (
	"fmt"

	"github.com/deepnoodle-ai/stencil/op"
	"github.com/deepnoodle-ai/stencil/types"
	"github.com/deepnoodle-ai/stencil/unit"
)

// RealizeFunc emits the instructions for one node.
type RealizeFunc func(a *Assembler) error

// Expression is an immutable computation that realizes to instructions
// pushing exactly one value of its static result type. The zero value is
// invalid and fails at realization.
type Expression struct {
	typ      types.Type
	features Features
	realize  RealizeFunc
}

// NewExpression creates an expression with the given result type. Primitive
// result types are non-nullable by construction; all other features must be
// declared explicitly by the caller.
func NewExpression(typ types.Type, realize RealizeFunc) Expression {
	var features Features
	if typ.IsPrimitive() {
		features = features.With(FeatureNonNullable)
	}
	return Expression{typ: typ, features: features, realize: realize}
}

// ResultType returns the static type the expression yields.
func (e Expression) ResultType() types.Type {
	return e.typ
}

// Features returns the expression's result features.
func (e Expression) Features() Features {
	return e.features
}

// HasFeature returns true if the result has the given feature.
func (e Expression) HasFeature(f Feature) bool {
	return e.features.Has(f)
}

// WithFeature returns an equivalent expression with the feature added. If
// the feature is already present the result is observably identical.
func (e Expression) WithFeature(f Feature) Expression {
	e.features = e.features.With(f)
	return e
}

// WithoutFeature returns an equivalent expression with the feature removed.
// If the feature is already absent the result is observably identical.
func (e Expression) WithoutFeature(f Feature) Expression {
	e.features = e.features.Without(f)
	return e
}

// Realize emits the expression's instructions. In verification mode the
// realization must net exactly one pushed value.
func (e Expression) Realize(a *Assembler) error {
	if e.realize == nil {
		return fmt.Errorf("realize of zero-value expression")
	}
	if !a.verify {
		return e.realize(a)
	}
	before := a.check.Depth()
	if err := e.realize(a); err != nil {
		return err
	}
	if got := a.check.Depth(); got != before+1 {
		return &StackEffectError{NodeKind: "expression", Want: before + 1, Got: got}
	}
	return nil
}

// CheckedCast wraps the expression in a runtime-checked narrowing to the
// target type. In verification mode, realizing the cast fails with a
// TypeMismatchError if the source and target types can never be compatible;
// otherwise only the narrowing instruction is emitted.
func (e Expression) CheckedCast(target types.Type) Expression {
	inner := e
	out := NewExpression(target, func(a *Assembler) error {
		if a.verify && !inner.typ.PossiblyCompatible(target) {
			return &TypeMismatchError{From: inner.typ, To: target}
		}
		if err := inner.Realize(a); err != nil {
			return err
		}
		a.Emit(op.CheckCast, a.Constant(unit.TypeRef{Type: target}))
		return nil
	})
	// Narrowing preserves cheapness; nullability follows the target type.
	if inner.HasFeature(FeatureCheap) {
		out = out.WithFeature(FeatureCheap)
	}
	if inner.HasFeature(FeatureNonNullable) && !target.IsNullable() {
		out = out.WithFeature(FeatureNonNullable)
	}
	return out
}

// Discard wraps the expression into a statement that evaluates it for its
// side effects and discards the produced value.
func (e Expression) Discard() Statement {
	inner := e
	return NewStatement(func(a *Assembler) error {
		if err := inner.Realize(a); err != nil {
			return err
		}
		a.Emit(op.PopTop)
		return nil
	})
}

// Advance returns a statement that treats the expression's value as a
// render instance and drives it, propagating any suspension transitively to
// the enclosing unit.
func (e Expression) Advance() Statement {
	inner := e
	return NewStatement(func(a *Assembler) error {
		if err := inner.Realize(a); err != nil {
			return err
		}
		point := a.AddSuspension(unit.SuspendCall)
		// Resume re-enters at the advance instruction; the runtime holds
		// the in-flight callee, so the operand is not re-pushed.
		a.BindResume(point)
		a.Emit(op.AdvanceUnit, point)
		return nil
	})
}

// WithLabelStart returns an equivalent expression that binds the label
// immediately before realization.
func (e Expression) WithLabelStart(l *Label) Expression {
	inner := e
	e.realize = func(a *Assembler) error {
		a.Bind(l)
		return inner.realize(a)
	}
	return e
}

// WithLabelEnd returns an equivalent expression that binds the label
// immediately after realization.
func (e Expression) WithLabelEnd(l *Label) Expression {
	inner := e
	e.realize = func(a *Assembler) error {
		if err := inner.realize(a); err != nil {
			return err
		}
		a.Bind(l)
		return nil
	}
	return e
}

// Constructors

// String returns a constant string expression.
func String(value string) Expression {
	return NewExpression(types.StringType, func(a *Assembler) error {
		a.Emit(op.LoadConst, a.Constant(value))
		return nil
	}).WithFeature(FeatureCheap)
}

// Int returns a constant integer expression.
func Int(value int64) Expression {
	return NewExpression(types.IntType, func(a *Assembler) error {
		a.Emit(op.LoadConst, a.Constant(value))
		return nil
	}).WithFeature(FeatureCheap)
}

// Float returns a constant float expression.
func Float(value float64) Expression {
	return NewExpression(types.FloatType, func(a *Assembler) error {
		a.Emit(op.LoadConst, a.Constant(value))
		return nil
	}).WithFeature(FeatureCheap)
}

// Bool returns a constant boolean expression.
func Bool(value bool) Expression {
	return NewExpression(types.BoolType, func(a *Assembler) error {
		if value {
			a.Emit(op.True)
		} else {
			a.Emit(op.False)
		}
		return nil
	}).WithFeature(FeatureCheap)
}

// Null returns the null expression.
func Null() Expression {
	return NewExpression(types.NullType, func(a *Assembler) error {
		a.Emit(op.Nil)
		return nil
	}).WithFeature(FeatureCheap)
}

// LoadLocal returns an expression reading the local variable slot. Reading
// a local is always cheap.
func LoadLocal(index uint16, typ types.Type) Expression {
	return NewExpression(typ, func(a *Assembler) error {
		a.Emit(op.LoadLocal, index)
		return nil
	}).WithFeature(FeatureCheap)
}

// LoadParam returns an expression reading a parameter whose value is known
// to be available. Reading a resolved parameter is cheap.
func LoadParam(name string, typ types.Type) Expression {
	return NewExpression(typ, func(a *Assembler) error {
		a.Emit(op.LoadParam, a.Constant(name))
		return nil
	}).WithFeature(FeatureCheap)
}

// AwaitParam returns an expression reading a lazy parameter. The read sits
// behind a suspension point: if the value is not yet available, the unit
// saves its state and reports DataUnavailable; resuming re-checks
// availability before continuing. Not cheap: re-evaluation repeats the
// availability protocol.
func AwaitParam(name string, typ types.Type) Expression {
	return NewExpression(typ, func(a *Assembler) error {
		point := a.AddSuspension(unit.SuspendData)
		a.BindResume(point)
		a.Emit(op.CheckAvail, a.Constant(name))
		ready := a.NewLabel()
		a.EmitJump(op.PopJumpForwardIfTrue, ready)
		a.Emit(op.Suspend, point, uint16(unit.StatusDataUnavailable))
		a.Bind(ready)
		a.Emit(op.LoadParam, a.Constant(name))
		return nil
	})
}

// Binary returns an arithmetic or logical operation on two operands.
func Binary(bop op.BinaryOpType, typ types.Type, left, right Expression) Expression {
	return NewExpression(typ, func(a *Assembler) error {
		if err := left.Realize(a); err != nil {
			return err
		}
		if err := right.Realize(a); err != nil {
			return err
		}
		a.Emit(op.BinaryOp, uint16(bop))
		return nil
	})
}

// Compare returns a comparison of two operands.
func Compare(cop op.CompareOpType, left, right Expression) Expression {
	return NewExpression(types.BoolType, func(a *Assembler) error {
		if err := left.Realize(a); err != nil {
			return err
		}
		if err := right.Realize(a); err != nil {
			return err
		}
		a.Emit(op.CompareOp, uint16(cop))
		return nil
	})
}

// Not returns logical negation of the operand.
func Not(value Expression) Expression {
	return NewExpression(types.BoolType, func(a *Assembler) error {
		if err := value.Realize(a); err != nil {
			return err
		}
		a.Emit(op.UnaryNot)
		return nil
	})
}

// Neg returns arithmetic negation of the operand.
func Neg(value Expression) Expression {
	return NewExpression(value.ResultType(), func(a *Assembler) error {
		if err := value.Realize(a); err != nil {
			return err
		}
		a.Emit(op.UnaryMinus)
		return nil
	})
}

// Coalesce returns the value if it is non-null, otherwise the fallback.
// The fallback is realized only when the value is null.
func Coalesce(value, fallback Expression) Expression {
	return NewExpression(fallback.ResultType(), func(a *Assembler) error {
		if err := value.Realize(a); err != nil {
			return err
		}
		end := a.NewLabel()
		a.Emit(op.Copy, 0)
		a.EmitJump(op.PopJumpForwardIfNotNil, end)
		a.Emit(op.PopTop)
		if err := fallback.Realize(a); err != nil {
			return err
		}
		a.Bind(end)
		return nil
	})
}

// Subscript returns an expression indexing a list by position or a map by
// key.
func Subscript(container, key Expression, typ types.Type) Expression {
	return NewExpression(typ, func(a *Assembler) error {
		if err := container.Realize(a); err != nil {
			return err
		}
		if err := key.Realize(a); err != nil {
			return err
		}
		a.Emit(op.BinarySubscr)
		return nil
	})
}

// LengthOf returns the element count of a list or map.
func LengthOf(container Expression) Expression {
	return NewExpression(types.IntType, func(a *Assembler) error {
		if err := container.Realize(a); err != nil {
			return err
		}
		a.Emit(op.Length)
		return nil
	})
}

// ListOf returns a list built from the element expressions.
func ListOf(typ types.Type, elements ...Expression) Expression {
	return NewExpression(typ, func(a *Assembler) error {
		for _, element := range elements {
			if err := element.Realize(a); err != nil {
				return err
			}
		}
		a.Emit(op.BuildList, uint16(len(elements)))
		return nil
	})
}

// NamedArg is one named argument in a unit construction.
type NamedArg struct {
	Name  string
	Value Expression
}

// Construct returns an expression that builds the argument record and
// instantiates the referenced unit, pushing the new render instance. The
// instance captures exactly the argument values present at construction.
func Construct(unitName string, typ types.Type, args ...NamedArg) Expression {
	return NewExpression(typ, func(a *Assembler) error {
		for _, arg := range args {
			a.Emit(op.LoadConst, a.Constant(arg.Name))
			if err := arg.Value.Realize(a); err != nil {
				return err
			}
		}
		a.Emit(op.BuildMap, uint16(len(args)))
		a.Emit(op.ConstructUnit, a.Constant(unit.Ref{Name: unitName}))
		return nil
	})
}

// CallUnit composes construction and advancement of another unit: the
// receiver unit is constructed with the given arguments and driven to
// completion, with any suspension propagated to the enclosing unit.
func CallUnit(unitName string, args ...NamedArg) Statement {
	return Construct(unitName, types.NewContent(types.ContentText), args...).Advance()
}
