package compiler

import (
	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/instr"
	"github.com/deepnoodle-ai/stencil/op"
	"github.com/deepnoodle-ai/stencil/registry"
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/deepnoodle-ai/stencil/types"
	"github.com/deepnoodle-ai/stencil/unit"
)

// localVar is one named local slot in a unit.
type localVar struct {
	index uint16
	typ   types.Type
}

// scope is one lexical block's name bindings, chained to its parent.
type scope struct {
	parent *scope
	vars   map[string]localVar
}

func (s *scope) resolve(name string) (localVar, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return localVar{}, false
}

// unitCompiler lowers one unit body (a template main or one content block).
// Local slots are never reused: each binding gets a fresh slot, which keeps
// slot assignment deterministic and saved-field restoration simple.
type unitCompiler struct {
	t *templateCompiler

	// contentBlock is true when lowering a content-block body. Inside a
	// content block every name that is not a block-local resolves to a
	// captured constructor parameter.
	contentBlock bool

	scopes *scope
	names  []string // slot names, index = slot number
}

func (t *templateCompiler) newUnitCompiler(contentBlock bool) *unitCompiler {
	return &unitCompiler{
		t:            t,
		contentBlock: contentBlock,
		scopes:       &scope{vars: map[string]localVar{}},
	}
}

func (u *unitCompiler) pushScope() {
	u.scopes = &scope{parent: u.scopes, vars: map[string]localVar{}}
}

func (u *unitCompiler) popScope() {
	u.scopes = u.scopes.parent
}

// declare binds a name to a fresh local slot in the current scope.
func (u *unitCompiler) declare(name string, typ types.Type) uint16 {
	index := uint16(len(u.names))
	u.names = append(u.names, name)
	u.scopes.vars[name] = localVar{index: index, typ: typ}
	return index
}

// declareHidden allocates an unnamed scratch slot that no template name
// resolves to.
func (u *unitCompiler) declareHidden(name string) uint16 {
	index := uint16(len(u.names))
	u.names = append(u.names, name)
	return index
}

// compileStmts lowers a statement list into one composed statement. Bindings
// introduced by let constructs are scoped to the rest of the list.
func (u *unitCompiler) compileStmts(stmts []ast.Stmt) (instr.Statement, error) {
	u.pushScope()
	defer u.popScope()
	var out []instr.Statement
	for _, s := range stmts {
		st, err := u.compileStmt(s)
		if err != nil {
			return instr.Statement{}, err
		}
		if !st.IsZero() {
			out = append(out, at(s.Pos(), st))
		}
	}
	return instr.Seq(out...), nil
}

func (u *unitCompiler) compileStmt(node ast.Stmt) (instr.Statement, error) {
	switch node := node.(type) {
	case *ast.RawText:
		return instr.EmitText(node.Text), nil
	case *ast.Print:
		return u.compilePrint(node)
	case *ast.If:
		return u.compileIf(node)
	case *ast.For:
		return u.compileFor(node)
	case *ast.Let:
		return u.compileLet(node)
	case *ast.LetBlock:
		return u.compileLetBlock(node)
	case *ast.Call:
		return u.compileCall(node)
	default:
		return instr.Statement{}, u.t.errorf(node.Pos(), "unsupported statement type %T", node)
	}
}

func (u *unitCompiler) compilePrint(node *ast.Print) (instr.Statement, error) {
	value, err := u.compileExpr(node.Value)
	if err != nil {
		return instr.Statement{}, err
	}
	// Content values render by advancing the held unit instance, which may
	// itself suspend. Plain values are stringified into the sink, with an
	// output-limit check after each dynamic emit.
	if value.ResultType().Kind() == types.Content {
		return value.Advance(), nil
	}
	return instr.Seq(instr.EmitValue(value), instr.YieldIfLimited()), nil
}

func (u *unitCompiler) compileIf(node *ast.If) (instr.Statement, error) {
	cond, err := u.compileExpr(node.Cond)
	if err != nil {
		return instr.Statement{}, err
	}
	then, err := u.compileStmts(node.Then)
	if err != nil {
		return instr.Statement{}, err
	}
	if len(node.Else) == 0 {
		return instr.If(cond, then), nil
	}
	els, err := u.compileStmts(node.Else)
	if err != nil {
		return instr.Statement{}, err
	}
	return instr.IfElse(cond, then, els), nil
}

func (u *unitCompiler) compileFor(node *ast.For) (instr.Statement, error) {
	seq, err := u.compileExpr(node.Seq)
	if err != nil {
		return instr.Statement{}, err
	}
	elemType := node.Seq.Type().Elem()

	u.pushScope()
	slot := u.declare(node.Var, elemType)
	body, err := u.compileStmts(node.Body)
	u.popScope()
	if err != nil {
		return instr.Statement{}, err
	}

	if len(node.Empty) == 0 {
		return instr.ForEach(seq, slot, body), nil
	}

	// With an empty branch the sequence is evaluated once into a scratch
	// slot, then either iterated or replaced by the branch.
	empty, err := u.compileStmts(node.Empty)
	if err != nil {
		return instr.Statement{}, err
	}
	seqType := node.Seq.Type()
	stash := u.declareHidden("$for_seq")
	return instr.Seq(
		instr.AssignLocal(stash, seq),
		instr.IfElse(
			instr.Compare(op.GreaterThan,
				instr.LengthOf(instr.LoadLocal(stash, seqType)),
				instr.Int(0)),
			instr.ForEach(instr.LoadLocal(stash, seqType), slot, body),
			empty,
		),
	), nil
}

func (u *unitCompiler) compileLet(node *ast.Let) (instr.Statement, error) {
	value, err := u.compileExpr(node.Value)
	if err != nil {
		return instr.Statement{}, err
	}
	slot := u.declare(node.Name, node.Value.Type())
	return instr.AssignLocal(slot, value), nil
}

// compileLetBlock extracts the block body into its own content unit and
// lowers the binding to a construction of that unit. The captured values are
// evaluated here, at the construction site, so the block closes over exactly
// the values current at that moment.
func (u *unitCompiler) compileLetBlock(node *ast.LetBlock) (instr.Statement, error) {
	u.t.letSeq++
	name := contentUnitName(u.t.def.Name, node.Name, u.t.letSeq)

	captures := freeVars(node.Body)

	child := u.t.newUnitCompiler(true)
	body, err := child.compileStmts(node.Body)
	if err != nil {
		return instr.Statement{}, err
	}
	code, err := u.t.assemble(name, child, body)
	if err != nil {
		return instr.Statement{}, err
	}
	params := make([]unit.Param, len(captures))
	for i, cp := range captures {
		params[i] = unit.Param{Name: cp.name, Required: true}
	}
	u.t.content = append(u.t.content, unit.New(unit.Params{
		Name:         name,
		Kind:         unit.KindContent,
		TemplateName: u.t.def.Name,
		Params:       params,
		Code:         code,
	}))

	contentType := types.NewContent(node.ContentKind)
	args := make([]instr.NamedArg, len(captures))
	for i, cp := range captures {
		value, err := u.loadName(node.Pos(), cp)
		if err != nil {
			return instr.Statement{}, err
		}
		args[i] = instr.NamedArg{Name: cp.name, Value: value}
	}
	slot := u.declare(node.Name, contentType)
	return instr.AssignLocal(slot, instr.Construct(name, contentType, args...)), nil
}

// loadName produces the expression for one captured value at a content-block
// construction site. Lazy parameters are awaited here so the capture holds a
// resolved value, never a pending one.
func (u *unitCompiler) loadName(pos report.SourceLocation, cp capture) (instr.Expression, error) {
	if v, ok := u.scopes.resolve(cp.name); ok {
		return instr.LoadLocal(v.index, v.typ), nil
	}
	if u.contentBlock {
		// Not a block-local, so it was captured into this block's own
		// constructor parameters.
		return instr.LoadParam(cp.name, cp.typ), nil
	}
	if cp.param {
		if cp.lazy {
			return instr.AwaitParam(cp.name, cp.typ), nil
		}
		return instr.LoadParam(cp.name, cp.typ), nil
	}
	return instr.Expression{}, u.t.errorf(pos, "unresolved name %q", cp.name)
}

func (u *unitCompiler) compileCall(node *ast.Call) (instr.Statement, error) {
	// Delegate targets bind at render time by active variant and priority,
	// so only direct calls are validated against the registry here.
	if !node.Delegate {
		sig, ok := u.t.c.registry.Lookup(node.Callee)
		if !ok {
			return instr.Statement{}, u.t.errorf(node.Pos(), "call to undefined template %q", node.Callee)
		}
		if err := u.checkArgs(node, sig.Params); err != nil {
			return instr.Statement{}, err
		}
	}
	args := make([]instr.NamedArg, len(node.Args))
	for i, arg := range node.Args {
		value, err := u.compileExpr(arg.Value)
		if err != nil {
			return instr.Statement{}, err
		}
		args[i] = instr.NamedArg{Name: arg.Name, Value: value}
	}
	return instr.CallUnit(node.Callee, args...), nil
}

func (u *unitCompiler) checkArgs(node *ast.Call, params []registry.Param) error {
	given := make(map[string]bool, len(node.Args))
	for _, arg := range node.Args {
		given[arg.Name] = true
	}
	declared := make(map[string]bool, len(params))
	for _, p := range params {
		declared[p.Name] = true
		if p.Required && !given[p.Name] {
			return u.t.errorf(node.Pos(), "call to %q missing required parameter %q", node.Callee, p.Name)
		}
	}
	for _, arg := range node.Args {
		if !declared[arg.Name] {
			return u.t.errorf(node.Pos(), "call to %q passes unknown parameter %q", node.Callee, arg.Name)
		}
	}
	return nil
}

func (u *unitCompiler) compileExpr(node ast.Expr) (instr.Expression, error) {
	switch node := node.(type) {
	case *ast.StringLit:
		return instr.String(node.Value), nil
	case *ast.IntLit:
		return instr.Int(node.Value), nil
	case *ast.FloatLit:
		return instr.Float(node.Value), nil
	case *ast.BoolLit:
		return instr.Bool(node.Value), nil
	case *ast.NullLit:
		return instr.Null(), nil
	case *ast.Param:
		return u.compileParam(node)
	case *ast.Var:
		return u.compileVar(node)
	case *ast.Binary:
		return u.compileBinary(node)
	case *ast.Compare:
		return u.compileCompare(node)
	case *ast.Not:
		value, err := u.compileExpr(node.Value)
		if err != nil {
			return instr.Expression{}, err
		}
		return instr.Not(value), nil
	case *ast.Neg:
		value, err := u.compileExpr(node.Value)
		if err != nil {
			return instr.Expression{}, err
		}
		return instr.Neg(value), nil
	case *ast.Coalesce:
		value, err := u.compileExpr(node.Value)
		if err != nil {
			return instr.Expression{}, err
		}
		fallback, err := u.compileExpr(node.Fallback)
		if err != nil {
			return instr.Expression{}, err
		}
		return instr.Coalesce(value, fallback), nil
	case *ast.Index:
		return u.compileIndex(node)
	case *ast.ListLit:
		return u.compileList(node)
	default:
		return instr.Expression{}, u.t.errorf(node.Pos(), "unsupported expression type %T", node)
	}
}

func (u *unitCompiler) compileParam(node *ast.Param) (instr.Expression, error) {
	// Inside a content block, parameter references were captured as resolved
	// values when the block was constructed.
	if u.contentBlock {
		return instr.LoadParam(node.Name, node.Typ), nil
	}
	if node.Lazy {
		return instr.AwaitParam(node.Name, node.Typ), nil
	}
	return instr.LoadParam(node.Name, node.Typ), nil
}

func (u *unitCompiler) compileVar(node *ast.Var) (instr.Expression, error) {
	if v, ok := u.scopes.resolve(node.Name); ok {
		return instr.LoadLocal(v.index, v.typ), nil
	}
	if u.contentBlock {
		// A name bound outside the block: it was captured into the block's
		// constructor parameters under the same name.
		return instr.LoadParam(node.Name, node.Typ), nil
	}
	return instr.Expression{}, u.t.errorf(node.Pos(), "unresolved variable %q", node.Name)
}

func (u *unitCompiler) compileBinary(node *ast.Binary) (instr.Expression, error) {
	left, err := u.compileExpr(node.Left)
	if err != nil {
		return instr.Expression{}, err
	}
	right, err := u.compileExpr(node.Right)
	if err != nil {
		return instr.Expression{}, err
	}
	return instr.Binary(node.Op, node.Typ, left, right), nil
}

func (u *unitCompiler) compileCompare(node *ast.Compare) (instr.Expression, error) {
	left, err := u.compileExpr(node.Left)
	if err != nil {
		return instr.Expression{}, err
	}
	right, err := u.compileExpr(node.Right)
	if err != nil {
		return instr.Expression{}, err
	}
	return instr.Compare(node.Op, left, right), nil
}

func (u *unitCompiler) compileIndex(node *ast.Index) (instr.Expression, error) {
	container, err := u.compileExpr(node.Value)
	if err != nil {
		return instr.Expression{}, err
	}
	key, err := u.compileExpr(node.Key)
	if err != nil {
		return instr.Expression{}, err
	}
	// The container carries the statically known element type; when the
	// analysis stage narrowed further, a runtime-checked cast enforces it.
	raw := containerElemType(node.Value.Type())
	result := instr.Subscript(container, key, raw)
	if !raw.Equal(node.Typ) {
		result = result.CheckedCast(node.Typ)
	}
	return result, nil
}

func containerElemType(t types.Type) types.Type {
	switch t.Kind() {
	case types.List, types.Map:
		return t.Elem()
	default:
		return types.AnyType
	}
}

func (u *unitCompiler) compileList(node *ast.ListLit) (instr.Expression, error) {
	elements := make([]instr.Expression, len(node.Elements))
	for i, e := range node.Elements {
		elem, err := u.compileExpr(e)
		if err != nil {
			return instr.Expression{}, err
		}
		elements[i] = elem
	}
	return instr.ListOf(node.Typ, elements...), nil
}

// at pins a source location to a statement so every instruction it realizes
// maps back to the originating template position.
func at(loc report.SourceLocation, s instr.Statement) instr.Statement {
	return instr.NewStatement(func(a *instr.Assembler) error {
		a.SetLocation(unit.SourceLocation{Line: loc.Line, Column: loc.Column})
		return s.Realize(a)
	})
}
