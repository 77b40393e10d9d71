package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/op"
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/deepnoodle-ai/stencil/types"
)

// The analyzed file set interchange format. Upstream analyzers emit one JSON
// document per file set; every expression carries its resolved type using
// the same textual syntax that types.Type.String produces.

type fileSetDoc struct {
	Files []fileDoc `json:"files"`
}

type fileDoc struct {
	Filename  string        `json:"filename"`
	Namespace string        `json:"namespace"`
	Templates []templateDoc `json:"templates"`
}

type templateDoc struct {
	Name        string     `json:"name"`
	ContentKind string     `json:"content_kind,omitempty"`
	Delegate    bool       `json:"delegate,omitempty"`
	Variant     string     `json:"variant,omitempty"`
	Priority    int        `json:"priority,omitempty"`
	Params      []paramDoc `json:"params,omitempty"`
	Body        []nodeDoc  `json:"body"`
	Line        int        `json:"line,omitempty"`
	Column      int        `json:"column,omitempty"`
}

type paramDoc struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Lazy     bool   `json:"lazy,omitempty"`
}

// nodeDoc is the union of every statement and expression shape. The Stmt
// and Expr discriminators select which fields are meaningful.
type nodeDoc struct {
	Stmt string `json:"stmt,omitempty"`
	Expr string `json:"expr,omitempty"`

	Text        string    `json:"text,omitempty"`
	Name        string    `json:"name,omitempty"`
	Type        string    `json:"type,omitempty"`
	ContentKind string    `json:"content_kind,omitempty"`
	Lazy        bool      `json:"lazy,omitempty"`
	Op          string    `json:"op,omitempty"`
	Callee      string    `json:"callee,omitempty"`
	Delegate    bool      `json:"delegate,omitempty"`
	Value       *nodeDoc  `json:"value,omitempty"`
	Fallback    *nodeDoc  `json:"fallback,omitempty"`
	Cond        *nodeDoc  `json:"cond,omitempty"`
	Left        *nodeDoc  `json:"left,omitempty"`
	Right       *nodeDoc  `json:"right,omitempty"`
	Container   *nodeDoc  `json:"container,omitempty"`
	Key         *nodeDoc  `json:"key,omitempty"`
	Seq         *nodeDoc  `json:"seq,omitempty"`
	Var         string    `json:"var,omitempty"`
	Elems       []nodeDoc `json:"elems,omitempty"`
	Then        []nodeDoc `json:"then,omitempty"`
	Else        []nodeDoc `json:"else,omitempty"`
	Body        []nodeDoc `json:"body,omitempty"`
	Empty       []nodeDoc `json:"empty,omitempty"`
	Args        []argDoc  `json:"args,omitempty"`

	// Literal values. String literals reuse Text; Bool shares the json
	// "value" key with nested expression docs, so it gets its own key.
	Int   *int64   `json:"int,omitempty"`
	Float *float64 `json:"float,omitempty"`
	Bool  *bool    `json:"bool,omitempty"`

	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`
}

type argDoc struct {
	Name  string  `json:"name"`
	Value nodeDoc `json:"value"`
}

// decodeFileSet parses one JSON file set document into the analyzed tree
// the compiler consumes.
func decodeFileSet(data []byte) (*ast.FileSet, error) {
	var doc fileSetDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("file set: %w", err)
	}
	fs := &ast.FileSet{}
	for i := range doc.Files {
		f, err := decodeFile(&doc.Files[i])
		if err != nil {
			return nil, err
		}
		fs.Files = append(fs.Files, f)
	}
	return fs, nil
}

func decodeFile(doc *fileDoc) (*ast.File, error) {
	f := &ast.File{Filename: doc.Filename, Namespace: doc.Namespace}
	for i := range doc.Templates {
		def, err := decodeTemplate(&doc.Templates[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doc.Filename, err)
		}
		f.Templates = append(f.Templates, def)
	}
	return f, nil
}

func decodeTemplate(doc *templateDoc) (*ast.TemplateDef, error) {
	if doc.Name == "" {
		return nil, fmt.Errorf("template with no name")
	}
	def := &ast.TemplateDef{
		Name:        doc.Name,
		ContentKind: parseContentKind(doc.ContentKind),
		Delegate:    doc.Delegate,
		Variant:     doc.Variant,
		Priority:    doc.Priority,
		Loc:         report.SourceLocation{Line: doc.Line, Column: doc.Column},
	}
	for _, p := range doc.Params {
		typ, err := parseType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("template %s, param %s: %w", doc.Name, p.Name, err)
		}
		def.Params = append(def.Params, ast.ParamDecl{
			Name:     p.Name,
			Typ:      typ,
			Required: p.Required,
			Lazy:     p.Lazy,
		})
	}
	body, err := decodeStmts(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", doc.Name, err)
	}
	def.Body = body
	return def, nil
}

func decodeStmts(docs []nodeDoc) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for i := range docs {
		s, err := decodeStmt(&docs[i])
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func decodeStmt(doc *nodeDoc) (ast.Stmt, error) {
	loc := report.SourceLocation{Line: doc.Line, Column: doc.Column}
	switch doc.Stmt {
	case "text":
		return &ast.RawText{Text: doc.Text, Loc: loc}, nil
	case "print":
		value, err := decodeExprPtr(doc.Value, "print value")
		if err != nil {
			return nil, err
		}
		return &ast.Print{Value: value, Loc: loc}, nil
	case "if":
		cond, err := decodeExprPtr(doc.Cond, "if condition")
		if err != nil {
			return nil, err
		}
		then, err := decodeStmts(doc.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeStmts(doc.Else)
		if err != nil {
			return nil, err
		}
		return &ast.If{Cond: cond, Then: then, Else: els, Loc: loc}, nil
	case "for":
		seq, err := decodeExprPtr(doc.Seq, "for sequence")
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(doc.Body)
		if err != nil {
			return nil, err
		}
		empty, err := decodeStmts(doc.Empty)
		if err != nil {
			return nil, err
		}
		return &ast.For{Var: doc.Var, Seq: seq, Body: body, Empty: empty, Loc: loc}, nil
	case "let":
		value, err := decodeExprPtr(doc.Value, "let value")
		if err != nil {
			return nil, err
		}
		return &ast.Let{Name: doc.Name, Value: value, Loc: loc}, nil
	case "let_block":
		body, err := decodeStmts(doc.Body)
		if err != nil {
			return nil, err
		}
		return &ast.LetBlock{
			Name:        doc.Name,
			ContentKind: parseContentKind(doc.ContentKind),
			Body:        body,
			Loc:         loc,
		}, nil
	case "call":
		call := &ast.Call{Callee: doc.Callee, Delegate: doc.Delegate, Loc: loc}
		for i := range doc.Args {
			value, err := decodeExpr(&doc.Args[i].Value)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %w", doc.Args[i].Name, err)
			}
			call.Args = append(call.Args, ast.Arg{Name: doc.Args[i].Name, Value: value})
		}
		return call, nil
	case "":
		return nil, fmt.Errorf("node with no stmt discriminator at %s", loc)
	default:
		return nil, fmt.Errorf("unknown statement kind %q at %s", doc.Stmt, loc)
	}
}

func decodeExprPtr(doc *nodeDoc, what string) (ast.Expr, error) {
	if doc == nil {
		return nil, fmt.Errorf("missing %s", what)
	}
	return decodeExpr(doc)
}

func decodeExpr(doc *nodeDoc) (ast.Expr, error) {
	loc := report.SourceLocation{Line: doc.Line, Column: doc.Column}
	switch doc.Expr {
	case "param":
		typ, err := parseType(doc.Type)
		if err != nil {
			return nil, err
		}
		return &ast.Param{Name: doc.Name, Typ: typ, Lazy: doc.Lazy, Loc: loc}, nil
	case "var":
		typ, err := parseType(doc.Type)
		if err != nil {
			return nil, err
		}
		return &ast.Var{Name: doc.Name, Typ: typ, Loc: loc}, nil
	case "string":
		return &ast.StringLit{Value: doc.Text, Loc: loc}, nil
	case "int":
		if doc.Int == nil {
			return nil, fmt.Errorf("int literal with no value at %s", loc)
		}
		return &ast.IntLit{Value: *doc.Int, Loc: loc}, nil
	case "float":
		if doc.Float == nil {
			return nil, fmt.Errorf("float literal with no value at %s", loc)
		}
		return &ast.FloatLit{Value: *doc.Float, Loc: loc}, nil
	case "bool":
		if doc.Bool == nil {
			return nil, fmt.Errorf("bool literal with no value at %s", loc)
		}
		return &ast.BoolLit{Value: *doc.Bool, Loc: loc}, nil
	case "null":
		return &ast.NullLit{Loc: loc}, nil
	case "binary":
		bop, ok := binaryOps[doc.Op]
		if !ok {
			return nil, fmt.Errorf("unknown binary operator %q at %s", doc.Op, loc)
		}
		left, err := decodeExprPtr(doc.Left, "left operand")
		if err != nil {
			return nil, err
		}
		right, err := decodeExprPtr(doc.Right, "right operand")
		if err != nil {
			return nil, err
		}
		typ, err := parseType(doc.Type)
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: bop, Left: left, Right: right, Typ: typ, Loc: loc}, nil
	case "compare":
		cop, ok := compareOps[doc.Op]
		if !ok {
			return nil, fmt.Errorf("unknown comparison operator %q at %s", doc.Op, loc)
		}
		left, err := decodeExprPtr(doc.Left, "left operand")
		if err != nil {
			return nil, err
		}
		right, err := decodeExprPtr(doc.Right, "right operand")
		if err != nil {
			return nil, err
		}
		return &ast.Compare{Op: cop, Left: left, Right: right, Loc: loc}, nil
	case "not":
		value, err := decodeExprPtr(doc.Value, "operand")
		if err != nil {
			return nil, err
		}
		return &ast.Not{Value: value, Loc: loc}, nil
	case "neg":
		value, err := decodeExprPtr(doc.Value, "operand")
		if err != nil {
			return nil, err
		}
		return &ast.Neg{Value: value, Loc: loc}, nil
	case "coalesce":
		value, err := decodeExprPtr(doc.Value, "value")
		if err != nil {
			return nil, err
		}
		fallback, err := decodeExprPtr(doc.Fallback, "fallback")
		if err != nil {
			return nil, err
		}
		return &ast.Coalesce{Value: value, Fallback: fallback, Loc: loc}, nil
	case "index":
		container, err := decodeExprPtr(doc.Container, "container")
		if err != nil {
			return nil, err
		}
		key, err := decodeExprPtr(doc.Key, "key")
		if err != nil {
			return nil, err
		}
		typ, err := parseType(doc.Type)
		if err != nil {
			return nil, err
		}
		return &ast.Index{Value: container, Key: key, Typ: typ, Loc: loc}, nil
	case "list":
		typ, err := parseType(doc.Type)
		if err != nil {
			return nil, err
		}
		lit := &ast.ListLit{Typ: typ, Loc: loc}
		for i := range doc.Elems {
			elem, err := decodeExpr(&doc.Elems[i])
			if err != nil {
				return nil, err
			}
			lit.Elements = append(lit.Elements, elem)
		}
		return lit, nil
	case "":
		return nil, fmt.Errorf("node with no expr discriminator at %s", loc)
	default:
		return nil, fmt.Errorf("unknown expression kind %q at %s", doc.Expr, loc)
	}
}

var binaryOps = map[string]op.BinaryOpType{
	"+":  op.Add,
	"-":  op.Subtract,
	"*":  op.Multiply,
	"/":  op.Divide,
	"%":  op.Modulo,
	"&&": op.And,
	"||": op.Or,
}

var compareOps = map[string]op.CompareOpType{
	"<":  op.LessThan,
	"<=": op.LessThanOrEqual,
	"==": op.Equal,
	"!=": op.NotEqual,
	">":  op.GreaterThan,
	">=": op.GreaterThanOrEqual,
}

// parseType parses the textual type syntax, the inverse of
// types.Type.String: "int", "string?", "list<html>", "map<string,int?>".
func parseType(s string) (types.Type, error) {
	s = strings.TrimSpace(s)
	nullable := false
	if strings.HasSuffix(s, "?") {
		nullable = true
		s = s[:len(s)-1]
	}
	t, err := parseBaseType(s)
	if err != nil {
		return types.Type{}, err
	}
	if nullable {
		t = t.AsNullable()
	}
	return t, nil
}

func parseBaseType(s string) (types.Type, error) {
	switch s {
	case "null":
		return types.NullType, nil
	case "bool":
		return types.BoolType, nil
	case "int":
		return types.IntType, nil
	case "float":
		return types.FloatType, nil
	case "string":
		return types.StringType, nil
	case "any":
		return types.AnyType, nil
	case "text", "html", "uri", "js", "css", "attributes":
		return types.NewContent(parseContentKind(s)), nil
	}
	if inner, ok := cutDelimited(s, "list<", ">"); ok {
		elem, err := parseType(inner)
		if err != nil {
			return types.Type{}, err
		}
		return types.NewList(elem), nil
	}
	if inner, ok := cutDelimited(s, "map<string,", ">"); ok {
		value, err := parseType(inner)
		if err != nil {
			return types.Type{}, err
		}
		return types.NewMap(value), nil
	}
	return types.Type{}, fmt.Errorf("unknown type %q", s)
}

func cutDelimited(s, prefix, suffix string) (string, bool) {
	if strings.HasPrefix(s, prefix) && strings.HasSuffix(s, suffix) {
		return s[len(prefix) : len(s)-len(suffix)], true
	}
	return "", false
}

func parseContentKind(s string) types.ContentKind {
	switch s {
	case "text":
		return types.ContentText
	case "html":
		return types.ContentHTML
	case "uri":
		return types.ContentURI
	case "js":
		return types.ContentJS
	case "css":
		return types.ContentCSS
	case "attributes":
		return types.ContentAttributes
	default:
		return types.ContentNone
	}
}
