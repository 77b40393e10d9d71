package compiler

import (
	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/types"
)

// capture is one value a content block closes over: either an enclosing
// local or a template parameter.
type capture struct {
	name  string
	typ   types.Type
	param bool
	lazy  bool
}

// freeVars returns the names a statement list references but does not bind
// itself, in order of first reference. These become the constructor
// parameters of the content unit extracted for the list.
func freeVars(body []ast.Stmt) []capture {
	f := &freeScan{
		bound: map[string]int{},
		seen:  map[string]bool{},
	}
	f.stmts(body)
	return f.out
}

type freeScan struct {
	bound map[string]int
	seen  map[string]bool
	out   []capture
}

func (f *freeScan) capture(cp capture) {
	if f.seen[cp.name] {
		return
	}
	f.seen[cp.name] = true
	f.out = append(f.out, cp)
}

func (f *freeScan) push(name string) { f.bound[name]++ }
func (f *freeScan) pop(name string)  { f.bound[name]-- }

func (f *freeScan) stmts(list []ast.Stmt) {
	// Let bindings stay visible until the end of the enclosing list.
	var introduced []string
	for _, s := range list {
		switch s := s.(type) {
		case *ast.RawText:
		case *ast.Print:
			f.expr(s.Value)
		case *ast.If:
			f.expr(s.Cond)
			f.stmts(s.Then)
			f.stmts(s.Else)
		case *ast.For:
			f.expr(s.Seq)
			f.push(s.Var)
			f.stmts(s.Body)
			f.pop(s.Var)
			f.stmts(s.Empty)
		case *ast.Let:
			f.expr(s.Value)
			f.push(s.Name)
			introduced = append(introduced, s.Name)
		case *ast.LetBlock:
			f.stmts(s.Body)
			f.push(s.Name)
			introduced = append(introduced, s.Name)
		case *ast.Call:
			for _, arg := range s.Args {
				f.expr(arg.Value)
			}
		}
	}
	for _, name := range introduced {
		f.pop(name)
	}
}

func (f *freeScan) expr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.Param:
		f.capture(capture{name: e.Name, typ: e.Typ, param: true, lazy: e.Lazy})
	case *ast.Var:
		if f.bound[e.Name] == 0 {
			f.capture(capture{name: e.Name, typ: e.Typ})
		}
	case *ast.Binary:
		f.expr(e.Left)
		f.expr(e.Right)
	case *ast.Compare:
		f.expr(e.Left)
		f.expr(e.Right)
	case *ast.Not:
		f.expr(e.Value)
	case *ast.Neg:
		f.expr(e.Value)
	case *ast.Coalesce:
		f.expr(e.Value)
		f.expr(e.Fallback)
	case *ast.Index:
		f.expr(e.Value)
		f.expr(e.Key)
	case *ast.ListLit:
		for _, elem := range e.Elements {
			f.expr(elem)
		}
	}
}
