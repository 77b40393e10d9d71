package instr

import (
	"testing"

	"github.com/deepnoodle-ai/stencil/op"
	"github.com/deepnoodle-ai/stencil/types"
	"github.com/deepnoodle-ai/stencil/unit"
	"github.com/stretchr/testify/require"
)

func TestExpressionStackEffect(t *testing.T) {
	// Every composite expression nets exactly +1, recursively
	exprs := []Expression{
		String("hello"),
		Int(42),
		Float(3.14),
		Bool(true),
		Null(),
		LoadLocal(0, types.StringType),
		LoadParam("name", types.StringType),
		AwaitParam("extra", types.StringType),
		Binary(op.Add, types.IntType, Int(1), Int(2)),
		Binary(op.Add, types.IntType, Binary(op.Multiply, types.IntType, Int(2), Int(3)), Neg(Int(4))),
		Compare(op.LessThan, Int(1), Int(2)),
		Not(Bool(false)),
		Coalesce(Null(), String("fallback")),
		Coalesce(LoadParam("nick", types.StringType.AsNullable()), LoadParam("name", types.StringType)),
		Subscript(ListOf(types.NewList(types.IntType), Int(1), Int(2)), Int(0), types.IntType),
		LengthOf(ListOf(types.NewList(types.IntType), Int(1))),
		Construct("ns.other", types.NewContent(types.ContentText),
			NamedArg{Name: "x", Value: Int(1)},
			NamedArg{Name: "y", Value: String("two")},
		),
		String("x").CheckedCast(types.AnyType),
	}
	for i, e := range exprs {
		require.NoError(t, Verify(e), "expression %d", i)
	}
}

func TestStatementStackEffect(t *testing.T) {
	// Every composite statement nets exactly 0, recursively
	stmts := []Statement{
		EmitText("hello"),
		EmitValue(String("x")),
		YieldIfLimited(),
		AssignLocal(0, Int(1)),
		Return(unit.StatusDone),
		Int(3).Discard(),
		Seq(EmitText("a"), EmitValue(Int(1)), YieldIfLimited()),
		If(Bool(true), EmitText("yes")),
		IfElse(Compare(op.Equal, Int(1), Int(1)), EmitText("yes"), EmitText("no")),
		ForEach(ListOf(types.NewList(types.IntType), Int(1), Int(2)), 0,
			EmitValue(LoadLocal(0, types.IntType))),
		CallUnit("ns.other", NamedArg{Name: "n", Value: Int(1)}),
		Construct("ns.block", types.NewContent(types.ContentHTML)).Advance(),
	}
	for i, s := range stmts {
		require.NoError(t, Verify(s), "statement %d", i)
	}
}

func TestDeeplyNestedComposition(t *testing.T) {
	// Composition never requires manual stack bookkeeping
	inner := ForEach(
		ListOf(types.NewList(types.IntType), Int(1), Int(2), Int(3)), 1,
		IfElse(
			Compare(op.GreaterThan, LoadLocal(1, types.IntType), Int(1)),
			Seq(EmitValue(LoadLocal(1, types.IntType)), YieldIfLimited()),
			EmitText("-"),
		),
	)
	outer := Seq(
		AssignLocal(0, AwaitParam("items", types.NewList(types.IntType))),
		inner,
		EmitText("done"),
		Return(unit.StatusDone),
	)
	require.NoError(t, Verify(outer))
}

func TestFeatureTogglesAreIdempotent(t *testing.T) {
	e := NewExpression(types.AnyType, func(a *Assembler) error {
		a.Emit(op.Nil)
		return nil
	})
	require.False(t, e.HasFeature(FeatureCheap))

	once := e.WithFeature(FeatureCheap)
	twice := once.WithFeature(FeatureCheap)
	require.Equal(t, once.Features(), twice.Features())
	require.True(t, twice.HasFeature(FeatureCheap))

	removed := twice.WithoutFeature(FeatureCheap)
	removedTwice := removed.WithoutFeature(FeatureCheap)
	require.Equal(t, removed.Features(), removedTwice.Features())
	require.False(t, removedTwice.HasFeature(FeatureCheap))

	// Value semantics: the original is untouched
	require.False(t, e.HasFeature(FeatureCheap))
}

func TestPrimitivesAreNonNullableByConstruction(t *testing.T) {
	require.True(t, String("x").HasFeature(FeatureNonNullable))
	require.True(t, Int(1).HasFeature(FeatureNonNullable))
	require.True(t, Bool(true).HasFeature(FeatureNonNullable))
	require.False(t, Null().HasFeature(FeatureNonNullable))
	require.False(t, NewExpression(types.AnyType, nil).HasFeature(FeatureNonNullable))
}

func TestCheckedCastRejectsImpossibleCasts(t *testing.T) {
	// Verification mode catches an impossible cast
	err := Verify(String("x").CheckedCast(types.IntType))
	require.Error(t, err)
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "string", mismatch.From.String())
	require.Equal(t, "int", mismatch.To.String())

	// Release mode emits the narrowing without the verification failure
	a := NewAssembler(false)
	require.NoError(t, String("x").CheckedCast(types.IntType).Realize(a))
	require.NoError(t, a.Finish())

	// A possible cast passes verification and emits CheckCast
	require.NoError(t, Verify(NewExpression(types.AnyType, func(a *Assembler) error {
		a.Emit(op.Nil)
		return nil
	}).CheckedCast(types.StringType)))
}

func TestCheckedCastFeaturePropagation(t *testing.T) {
	cast := Int(1).CheckedCast(types.FloatType)
	require.True(t, cast.HasFeature(FeatureCheap))
	require.True(t, cast.HasFeature(FeatureNonNullable))

	nullable := Int(1).CheckedCast(types.FloatType.AsNullable())
	require.False(t, nullable.HasFeature(FeatureNonNullable))
}

func TestZeroValueExpressionFailsRealization(t *testing.T) {
	a := NewAssembler(true)
	var zero Expression
	require.Error(t, zero.Realize(a))
}

func TestLabels(t *testing.T) {
	a := NewAssembler(true)
	end := a.NewLabel()
	s := Seq(
		EmitText("a"),
		NewStatement(func(a *Assembler) error {
			a.EmitJump(op.JumpForward, end)
			return nil
		}),
		EmitText("skipped"),
	).WithLabelEnd(end)
	require.NoError(t, s.Realize(a))
	require.NoError(t, a.Finish())

	// The jump operand resolved to the distance from the jump to the label
	instructions := a.Instructions()
	var jumpPos int
	for i := 0; i < len(instructions); i++ {
		if instructions[i] == op.JumpForward {
			jumpPos = i
			break
		}
	}
	delta := int(instructions[jumpPos+1])
	require.Equal(t, len(instructions), jumpPos+delta)
}

func TestUnboundLabelFailsFinish(t *testing.T) {
	a := NewAssembler(false)
	l := a.NewLabel()
	a.EmitJump(op.JumpForward, l)
	require.Error(t, a.Finish())
}

func TestUnboundSuspensionFailsFinish(t *testing.T) {
	a := NewAssembler(false)
	point := a.AddSuspension(unit.SuspendData)
	a.Emit(op.Suspend, point, uint16(unit.StatusDataUnavailable))
	require.Error(t, a.Finish())
}

func TestConstantPooling(t *testing.T) {
	a := NewAssembler(false)
	i := a.Constant("hello")
	j := a.Constant("hello")
	k := a.Constant("world")
	require.Equal(t, i, j)
	require.NotEqual(t, i, k)
	require.Len(t, a.Constants(), 2)
}

func TestAwaitParamEmitsSuspensionPoint(t *testing.T) {
	a := NewAssembler(true)
	require.NoError(t, EmitValue(AwaitParam("late", types.StringType)).Realize(a))
	require.NoError(t, a.Finish())

	suspensions := a.Suspensions()
	require.Len(t, suspensions, 1)
	require.Equal(t, unit.SuspendData, suspensions[0].Kind)
	// Resume re-checks availability: the resume position is the CheckAvail
	require.Equal(t, op.CheckAvail, a.Instructions()[suspensions[0].ResumeIP])
}

func TestYieldResumePositionFollowsThePoint(t *testing.T) {
	a := NewAssembler(true)
	require.NoError(t, Seq(EmitText("A"), YieldIfLimited(), EmitText("B")).Realize(a))
	require.NoError(t, a.Finish())

	suspensions := a.Suspensions()
	require.Len(t, suspensions, 1)
	require.Equal(t, unit.SuspendOutput, suspensions[0].Kind)
	require.Equal(t, op.EmitText, a.Instructions()[suspensions[0].ResumeIP])
}

func TestBrokenStatementCaughtInVerifyMode(t *testing.T) {
	// A hand-written node that violates its contract
	leaky := NewStatement(func(a *Assembler) error {
		a.Emit(op.Nil) // pushes a value but claims to be a statement
		return nil
	})
	err := Verify(leaky)
	require.Error(t, err)
	var effect *StackEffectError
	require.ErrorAs(t, err, &effect)
	require.Equal(t, "statement", effect.NodeKind)
}
