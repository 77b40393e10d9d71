// Package compiler lowers analyzed template trees into compiled units.
//
// Compilation is a single recursive walk over the template body. Each
// statement and expression node is lowered to a composable instruction node
// (instr.Statement / instr.Expression); the composed tree is then realized
// into one instruction stream per unit. A template always produces its main
// unit and a factory unit; each content block (a let binding with a body)
// produces an additional content unit that closes over exactly the values it
// captures at construction.
//
// The compiler trusts the upstream analysis stage: expressions arrive typed,
// call targets are fully resolved, and lazily-resolving parameters are
// marked. Verification mode re-checks the structural invariants (stack
// effects, cast possibility) during assembly and exists to catch compiler
// bugs, not user errors.
package compiler

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/instr"
	"github.com/deepnoodle-ai/stencil/registry"
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/deepnoodle-ai/stencil/unit"
)

// FactorySuffix is appended to a template name to form its factory unit name.
const FactorySuffix = "$factory"

// Config holds compiler configuration options.
type Config struct {
	// Registry resolves call targets and delegate declarations. Required.
	Registry *registry.Registry

	// Reporter receives diagnostics. A fresh reporter is created when nil.
	Reporter *report.Reporter

	// Verify enables stack-effect and cast verification during assembly.
	// Verification failures indicate compiler bugs and are reported as
	// internal diagnostics.
	Verify bool

	// Sources maps filenames to original source text, used for error
	// snippets. Optional.
	Sources map[string]string

	// Logger for compilation progress. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Compiler lowers analyzed templates into units. It is safe for concurrent
// use: all per-template state lives in a templateCompiler created per call.
type Compiler struct {
	registry *registry.Registry
	reporter *report.Reporter
	verify   bool
	sources  map[string]string
	logger   zerolog.Logger
}

// New creates and returns a new Compiler.
func New(cfg Config) (*Compiler, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("compiler: registry is required")
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = report.NewReporter()
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Compiler{
		registry: cfg.Registry,
		reporter: reporter,
		verify:   cfg.Verify,
		sources:  cfg.Sources,
		logger:   logger,
	}, nil
}

// Reporter returns the diagnostics channel this compiler records into.
func (c *Compiler) Reporter() *report.Reporter {
	return c.reporter
}

// CompileTemplate compiles one template definition into its units: the main
// unit first, then content-block units in order of appearance, then the
// factory unit. Diagnostics are recorded on the reporter; the returned error
// carries the first failure for callers that stop early.
//
// A panic anywhere in the walk is captured as an internal diagnostic with
// the compiler's own stack trace, so one malformed template cannot take down
// a batch.
func (c *Compiler) CompileTemplate(file *ast.File, def *ast.TemplateDef) (units []*unit.Unit, err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = errors.Errorf("panic: %v", r)
			}
			c.reporter.Internal(def.Name, def.Loc, cause)
			units = nil
			err = cause
		}
	}()

	t := &templateCompiler{
		c:    c,
		file: file,
		def:  def,
	}
	main, err := t.compileMain()
	if err != nil {
		return nil, err
	}
	units = append(units, main)
	units = append(units, t.content...)
	units = append(units, factoryUnit(def))

	c.logger.Debug().
		Str("template", def.Name).
		Int("units", len(units)).
		Msg("compiled template")
	return units, nil
}

// templateCompiler holds the per-template state of one CompileTemplate call.
type templateCompiler struct {
	c    *Compiler
	file *ast.File
	def  *ast.TemplateDef

	// Content units extracted from let blocks, in order of appearance.
	content []*unit.Unit

	// Increments per content block to keep unit names unique.
	letSeq int
}

func (t *templateCompiler) compileMain() (*unit.Unit, error) {
	u := t.newUnitCompiler(false)
	body, err := u.compileStmts(t.def.Body)
	if err != nil {
		return nil, err
	}
	code, err := t.assemble(t.def.Name, u, body)
	if err != nil {
		return nil, err
	}
	return unit.New(unit.Params{
		Name:         t.def.Name,
		Kind:         unit.KindMain,
		TemplateName: t.def.Name,
		Delegate:     t.def.Delegate,
		Params:       declaredParams(t.def),
		Code:         code,
	}), nil
}

// assemble realizes a composed statement into an immutable code object,
// appending the final done return.
func (t *templateCompiler) assemble(name string, u *unitCompiler, body instr.Statement) (*unit.Code, error) {
	a := instr.NewAssembler(t.c.verify)
	if err := body.Realize(a); err != nil {
		return nil, t.internal(err)
	}
	if err := instr.Return(unit.StatusDone).Realize(a); err != nil {
		return nil, t.internal(err)
	}
	if err := a.Finish(); err != nil {
		return nil, t.internal(err)
	}
	return unit.NewCode(unit.CodeParams{
		Name:         name,
		Instructions: a.Instructions(),
		Constants:    a.Constants(),
		Locations:    a.Locations(),
		Suspensions:  a.Suspensions(),
		LocalCount:   len(u.names),
		LocalNames:   u.names,
		Source:       t.source(),
		Filename:     t.file.Filename,
	}), nil
}

// internal records a verification or assembly failure as an internal
// diagnostic. These indicate compiler bugs, never user errors.
func (t *templateCompiler) internal(cause error) error {
	t.c.reporter.Internal(t.def.Name, t.def.Loc, cause)
	return cause
}

// errorf records and returns a user-visible error attributed to this
// template.
func (t *templateCompiler) errorf(loc report.SourceLocation, format string, args ...any) error {
	t.c.reporter.TemplateErrorf(t.def.Name, t.locate(loc), format, args...)
	return fmt.Errorf(format, args...)
}

// locate fills in the filename and source line for a position so the
// diagnostic can render a caret snippet.
func (t *templateCompiler) locate(loc report.SourceLocation) report.SourceLocation {
	if loc.Filename == "" {
		loc.Filename = t.file.Filename
	}
	if loc.Source == "" {
		loc.Source = sourceLine(t.source(), loc.Line)
	}
	return loc
}

func (t *templateCompiler) source() string {
	if t.c.sources == nil {
		return ""
	}
	return t.c.sources[t.file.Filename]
}

// sourceLine returns the 1-based line of the given source text, or "" if out
// of range.
func sourceLine(source string, line int) string {
	if source == "" || line < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}
	return lines[line-1]
}

// factoryUnit derives the codeless construction descriptor for a template.
// It carries the parameter metadata a host needs to instantiate the main
// unit without loading its code.
func factoryUnit(def *ast.TemplateDef) *unit.Unit {
	return unit.New(unit.Params{
		Name:         def.Name + FactorySuffix,
		Kind:         unit.KindFactory,
		TemplateName: def.Name,
		Delegate:     def.Delegate,
		Params:       declaredParams(def),
	})
}

func declaredParams(def *ast.TemplateDef) []unit.Param {
	params := make([]unit.Param, len(def.Params))
	for i, p := range def.Params {
		params[i] = unit.Param{
			Name:     p.Name,
			Required: p.Required,
			Lazy:     p.Lazy,
		}
	}
	return params
}

// contentUnitName forms the name of the nth content unit extracted for a
// let binding. The "$"-suffix convention is the serialization contract
// shared with the loader's owner derivation.
func contentUnitName(templateName, letName string, seq int) string {
	return fmt.Sprintf("%s$let_%s_%d", templateName, letName, seq)
}
