// Package ast defines the analyzed template tree consumed by the compiler.
//
// The tree arrives from an upstream parsing and analysis stage: every
// expression carries its resolved static type, call targets are resolved to
// fully-qualified template names, and parameters that may resolve lazily are
// already marked. The compiler trusts this analysis and does not re-validate
// types.
package ast

import (
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/deepnoodle-ai/stencil/types"
)

// Node represents a portion of a template tree. All nodes have position
// information indicating where they appear in the source file.
type Node interface {
	// Pos returns the position of the first character belonging to the node.
	Pos() report.SourceLocation
}

// Stmt represents a template body construct. Statements produce output or
// bind variables but do not evaluate to a value.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents an expression node. Expressions evaluate to a value of a
// statically known type.
type Expr interface {
	Node
	// Type returns the resolved static type of the expression.
	Type() types.Type
}

// FileSet is an ordered collection of analyzed template source files.
type FileSet struct {
	Files []*File
}

// Templates returns every template definition across all files, in document
// order.
func (fs *FileSet) Templates() []*TemplateDef {
	var defs []*TemplateDef
	for _, f := range fs.Files {
		defs = append(defs, f.Templates...)
	}
	return defs
}

// Find returns the template definition with the given fully-qualified name.
func (fs *FileSet) Find(name string) (*TemplateDef, bool) {
	for _, f := range fs.Files {
		for _, def := range f.Templates {
			if def.Name == name {
				return def, true
			}
		}
	}
	return nil, false
}

// File is one analyzed template source file.
type File struct {
	Filename  string
	Namespace string
	Templates []*TemplateDef
}

// ParamDecl declares one template parameter.
type ParamDecl struct {
	Name     string
	Typ      types.Type
	Required bool

	// Lazy marks a parameter whose value may not be available when the
	// template starts rendering. Reads of lazy parameters compile to
	// suspension points. The upstream analysis stage decides which
	// parameters are lazy.
	Lazy bool
}

// TemplateDef is one template definition with an analyzed body.
type TemplateDef struct {
	Name        string // Fully-qualified name, e.g. "greetings.hello"
	Params      []ParamDecl
	Body        []Stmt
	ContentKind types.ContentKind

	// Delegate marks an alternate implementation selected at render time
	// by external priority/variant rules.
	Delegate bool
	Variant  string
	Priority int

	Loc report.SourceLocation
}

// Pos returns the location of the template definition.
func (t *TemplateDef) Pos() report.SourceLocation { return t.Loc }

// Param returns the declaration of the named parameter.
func (t *TemplateDef) Param(name string) (ParamDecl, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamDecl{}, false
}
