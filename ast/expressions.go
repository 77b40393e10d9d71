package ast

import (
	"github.com/deepnoodle-ai/stencil/op"
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/deepnoodle-ai/stencil/types"
)

// Param references a template parameter.
type Param struct {
	Name string
	Typ  types.Type

	// Lazy mirrors the declaration: reads of lazy parameters compile to
	// suspension points.
	Lazy bool

	Loc report.SourceLocation
}

func (e *Param) Pos() report.SourceLocation { return e.Loc }

// Type returns the resolved static type.
func (e *Param) Type() types.Type { return e.Typ }

// Var references a local variable bound by a let or loop construct.
type Var struct {
	Name string
	Typ  types.Type
	Loc  report.SourceLocation
}

func (e *Var) Pos() report.SourceLocation { return e.Loc }

// Type returns the resolved static type.
func (e *Var) Type() types.Type { return e.Typ }

// StringLit is a string literal.
type StringLit struct {
	Value string
	Loc   report.SourceLocation
}

func (e *StringLit) Pos() report.SourceLocation { return e.Loc }

// Type returns the string type.
func (e *StringLit) Type() types.Type { return types.StringType }

// IntLit is an integer literal.
type IntLit struct {
	Value int64
	Loc   report.SourceLocation
}

func (e *IntLit) Pos() report.SourceLocation { return e.Loc }

// Type returns the int type.
func (e *IntLit) Type() types.Type { return types.IntType }

// FloatLit is a floating point literal.
type FloatLit struct {
	Value float64
	Loc   report.SourceLocation
}

func (e *FloatLit) Pos() report.SourceLocation { return e.Loc }

// Type returns the float type.
func (e *FloatLit) Type() types.Type { return types.FloatType }

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
	Loc   report.SourceLocation
}

func (e *BoolLit) Pos() report.SourceLocation { return e.Loc }

// Type returns the bool type.
func (e *BoolLit) Type() types.Type { return types.BoolType }

// NullLit is the null literal.
type NullLit struct {
	Loc report.SourceLocation
}

func (e *NullLit) Pos() report.SourceLocation { return e.Loc }

// Type returns the null type.
func (e *NullLit) Type() types.Type { return types.NullType }

// Binary is an arithmetic or logical operation on two operands.
type Binary struct {
	Op    op.BinaryOpType
	Left  Expr
	Right Expr
	Typ   types.Type
	Loc   report.SourceLocation
}

func (e *Binary) Pos() report.SourceLocation { return e.Loc }

// Type returns the resolved static type.
func (e *Binary) Type() types.Type { return e.Typ }

// Compare is a comparison of two operands, always yielding a bool.
type Compare struct {
	Op    op.CompareOpType
	Left  Expr
	Right Expr
	Loc   report.SourceLocation
}

func (e *Compare) Pos() report.SourceLocation { return e.Loc }

// Type returns the bool type.
func (e *Compare) Type() types.Type { return types.BoolType }

// Not is logical negation.
type Not struct {
	Value Expr
	Loc   report.SourceLocation
}

func (e *Not) Pos() report.SourceLocation { return e.Loc }

// Type returns the bool type.
func (e *Not) Type() types.Type { return types.BoolType }

// Neg is arithmetic negation.
type Neg struct {
	Value Expr
	Loc   report.SourceLocation
}

func (e *Neg) Pos() report.SourceLocation { return e.Loc }

// Type returns the operand's type.
func (e *Neg) Type() types.Type { return e.Value.Type() }

// Coalesce yields the value when it is non-null and the fallback otherwise.
type Coalesce struct {
	Value    Expr
	Fallback Expr
	Loc      report.SourceLocation
}

func (e *Coalesce) Pos() report.SourceLocation { return e.Loc }

// Type returns the fallback's type: the expression only yields the value
// when it is non-null.
func (e *Coalesce) Type() types.Type { return e.Fallback.Type() }

// Index subscripts a list by position or a map by key.
type Index struct {
	Value Expr
	Key   Expr
	Typ   types.Type
	Loc   report.SourceLocation
}

func (e *Index) Pos() report.SourceLocation { return e.Loc }

// Type returns the resolved element type.
func (e *Index) Type() types.Type { return e.Typ }

// ListLit is a list literal.
type ListLit struct {
	Elements []Expr
	Typ      types.Type
	Loc      report.SourceLocation
}

func (e *ListLit) Pos() report.SourceLocation { return e.Loc }

// Type returns the resolved list type.
func (e *ListLit) Type() types.Type { return e.Typ }
