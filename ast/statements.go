package ast

import (
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/deepnoodle-ai/stencil/types"
)

// RawText is a literal run of template text emitted verbatim.
type RawText struct {
	Text string
	Loc  report.SourceLocation
}

func (s *RawText) stmtNode() {}

func (s *RawText) Pos() report.SourceLocation { return s.Loc }

// Print emits the value of an expression, coerced to text. Escaping
// directives are resolved by the upstream analysis stage and reflected in
// the expression's content type.
type Print struct {
	Value Expr
	Loc   report.SourceLocation
}

func (s *Print) stmtNode() {}

func (s *Print) Pos() report.SourceLocation { return s.Loc }

// If is a conditional with an optional else branch.
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
	Loc  report.SourceLocation
}

func (s *If) stmtNode() {}

func (s *If) Pos() report.SourceLocation { return s.Loc }

// For iterates a list expression, binding each element to a loop variable.
// The optional Empty branch renders when the list has no elements.
type For struct {
	Var   string
	Seq   Expr
	Body  []Stmt
	Empty []Stmt
	Loc   report.SourceLocation
}

func (s *For) stmtNode() {}

func (s *For) Pos() report.SourceLocation { return s.Loc }

// Let binds the value of an expression to a local variable for the rest of
// the enclosing block.
type Let struct {
	Name  string
	Value Expr
	Loc   report.SourceLocation
}

func (s *Let) stmtNode() {}

func (s *Let) Pos() report.SourceLocation { return s.Loc }

// LetBlock binds a rendered content block to a local variable. The block
// closes over the locals it references; it compiles to its own unit whose
// fields capture exactly the closed-over values at construction.
type LetBlock struct {
	Name        string
	ContentKind types.ContentKind
	Body        []Stmt
	Loc         report.SourceLocation
}

func (s *LetBlock) stmtNode() {}

func (s *LetBlock) Pos() report.SourceLocation { return s.Loc }

// Call invokes another template with named arguments. The callee name is
// fully resolved by the upstream analysis stage.
type Call struct {
	Callee   string
	Delegate bool
	Args     []Arg
	Loc      report.SourceLocation
}

func (s *Call) stmtNode() {}

func (s *Call) Pos() report.SourceLocation { return s.Loc }

// Arg is one named argument at a call site.
type Arg struct {
	Name  string
	Value Expr
}
