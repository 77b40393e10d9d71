// Package loader compiles units on demand and caches them for the lifetime
// of the process.
//
// The cache is keyed by unit name. A hit returns immediately; a miss derives
// the owning template from the unit name, compiles that template, and inserts
// every artifact it produced. Insertion uses per-entry atomic publication:
// when two goroutines race on the same template, the first stored artifact
// wins and both observe the same pointer. Compilation is deterministic, so
// the losing artifacts are byte-identical anyway.
package loader

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/compiler"
	"github.com/deepnoodle-ai/stencil/registry"
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/deepnoodle-ai/stencil/unit"
)

// Config holds loader configuration options.
type Config struct {
	// FileSet holds the analyzed templates available for compilation.
	// Required.
	FileSet *ast.FileSet

	// Registry resolves unit names to owning templates. Required.
	Registry *registry.Registry

	// Reporter receives compile diagnostics. A fresh reporter is created
	// when nil.
	Reporter *report.Reporter

	// Verify enables compiler verification mode.
	Verify bool

	// Logger for slow-path activity. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Loader resolves units by name, compiling their owning template on first
// use. Safe for concurrent use.
type Loader struct {
	files    *ast.FileSet
	registry *registry.Registry
	reporter *report.Reporter
	compiler *compiler.Compiler
	logger   zerolog.Logger

	units sync.Map // unit name -> *unit.Unit
}

// New creates a Loader.
func New(cfg Config) (*Loader, error) {
	if cfg.FileSet == nil {
		return nil, fmt.Errorf("loader: file set is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("loader: registry is required")
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = report.NewReporter()
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	c, err := compiler.New(compiler.Config{
		Registry: cfg.Registry,
		Reporter: reporter,
		Verify:   cfg.Verify,
		Logger:   &logger,
	})
	if err != nil {
		return nil, err
	}
	return &Loader{
		files:    cfg.FileSet,
		registry: cfg.Registry,
		reporter: reporter,
		compiler: c,
		logger:   logger,
	}, nil
}

// Reporter returns the diagnostics channel compile failures land on.
func (l *Loader) Reporter() *report.Reporter {
	return l.reporter
}

// Seed inserts precompiled units, so subsequent resolutions hit the cache.
// Existing entries are not replaced.
func (l *Loader) Seed(units []*unit.Unit) {
	for _, u := range units {
		l.units.LoadOrStore(u.Name(), u)
	}
}

// ResolveUnit returns the unit with the given name, compiling its owning
// template if it is not cached yet.
//
// A name whose owner is not a registered template fails with
// unit.ErrNotFound. A compilation session that has already recorded errors
// fails fast with the aggregate of those diagnostics instead of compiling
// further.
func (l *Loader) ResolveUnit(name string) (*unit.Unit, error) {
	if cached, ok := l.units.Load(name); ok {
		return cached.(*unit.Unit), nil
	}
	return l.resolveSlow(name)
}

func (l *Loader) resolveSlow(name string) (*unit.Unit, error) {
	owner, ok := l.registry.OwnerOf(name)
	if !ok {
		return nil, fmt.Errorf("loader: unit %q: %w", name, unit.ErrNotFound)
	}

	// An already-failing session must not paper over its errors by
	// compiling more templates.
	if l.reporter.HasErrors() {
		return nil, l.reporter.AggregateSince(0)
	}

	file, def, ok := findTemplate(l.files, owner)
	if !ok {
		return nil, fmt.Errorf("loader: template %q has no source: %w", owner, unit.ErrNotFound)
	}

	l.logger.Debug().
		Str("unit", name).
		Str("template", owner).
		Msg("compiling on demand")

	checkpoint := l.reporter.Checkpoint()
	units, err := l.compiler.CompileTemplate(file, def)
	if err != nil {
		return nil, err
	}
	if l.reporter.HasErrorsSince(checkpoint) {
		return nil, l.reporter.AggregateSince(checkpoint)
	}

	// Publish siblings first, then the requested artifact, each with
	// exactly one winning write per key.
	var requested *unit.Unit
	for _, u := range units {
		if u.Name() == name {
			requested = u
			continue
		}
		l.units.LoadOrStore(u.Name(), u)
	}
	if requested == nil {
		// The owner exists but never produced a unit with this name, e.g.
		// a content-block suffix that does not occur in the template.
		return nil, fmt.Errorf("loader: unit %q: %w", name, unit.ErrNotFound)
	}
	actual, _ := l.units.LoadOrStore(name, requested)
	return actual.(*unit.Unit), nil
}

func findTemplate(fs *ast.FileSet, name string) (*ast.File, *ast.TemplateDef, bool) {
	for _, f := range fs.Files {
		for _, def := range f.Templates {
			if def.Name == name {
				return f, def, true
			}
		}
	}
	return nil, nil, false
}
