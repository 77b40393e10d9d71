// Package batch orchestrates whole-program compilation.
//
// Eager mode (CompileAll / Package) compiles every template up front,
// feeding listener callbacks as artifacts appear, and renders a single batch
// verdict at the end. One failing template does not stop the rest: its
// diagnostics are recorded, its artifacts are discarded, and compilation
// moves on. Lazy mode (LazyInit) defers compilation to a loader that
// resolves units on first use; both modes produce byte-identical artifacts
// for the same input.
package batch

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/compiler"
	"github.com/deepnoodle-ai/stencil/loader"
	"github.com/deepnoodle-ai/stencil/registry"
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/deepnoodle-ai/stencil/unit"
)

// Listener receives progress callbacks during an eager compile. All fields
// are optional. Callbacks run synchronously on the compiling goroutine.
type Listener struct {
	// OnUnit is called once per produced unit.
	OnUnit func(u *unit.Unit)

	// OnTemplate is called after a template compiles successfully, with
	// all the units it produced.
	OnTemplate func(name string, units []*unit.Unit)

	// OnDelegateTemplate is called for each successfully compiled template
	// that is a delegate implementation.
	OnDelegateTemplate func(name string)
}

// Config holds batch configuration options.
type Config struct {
	// FileSet holds the analyzed templates to compile. Required.
	FileSet *ast.FileSet

	// Registry resolves call targets. Built from the file set when nil.
	Registry *registry.Registry

	// Reporter receives diagnostics. A fresh reporter is created when nil.
	Reporter *report.Reporter

	// Verify enables compiler verification mode.
	Verify bool

	// Listener receives progress callbacks during eager compilation.
	Listener Listener

	// Logger for batch progress. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Batch drives one compilation session over a file set. Safe for concurrent
// use; each entry point takes a fresh reporter checkpoint.
type Batch struct {
	files    *ast.FileSet
	registry *registry.Registry
	reporter *report.Reporter
	verify   bool
	listener Listener
	logger   zerolog.Logger
	compiler *compiler.Compiler
}

// New creates a Batch.
func New(cfg Config) (*Batch, error) {
	if cfg.FileSet == nil {
		return nil, fmt.Errorf("batch: file set is required")
	}
	reg := cfg.Registry
	if reg == nil {
		var err error
		reg, err = registry.FromFileSet(cfg.FileSet)
		if err != nil {
			return nil, err
		}
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
		Registry: reg,
		Reporter: reporter,
		Verify:   cfg.Verify,
		Logger:   &logger,
	})
	if err != nil {
		return nil, err
	}
	return &Batch{
		files:    cfg.FileSet,
		registry: reg,
		reporter: reporter,
		verify:   cfg.Verify,
		listener: cfg.Listener,
		logger:   logger,
		compiler: c,
	}, nil
}

// Reporter returns the diagnostics channel for this session.
func (b *Batch) Reporter() *report.Reporter {
	return b.reporter
}

// Registry returns the template registry for this session.
func (b *Batch) Registry() *registry.Registry {
	return b.registry
}

// CompileAll compiles every template in the file set. Templates fail
// independently: artifacts of failing templates are dropped, the rest are
// returned. The error is the batch verdict, aggregating every diagnostic
// recorded during this call; it is non-nil if any template failed.
func (b *Batch) CompileAll(ctx context.Context) ([]*unit.Unit, error) {
	start := b.reporter.Checkpoint()
	var all []*unit.Unit
	var failed int

	for _, file := range b.files.Files {
		for _, def := range file.Templates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			checkpoint := b.reporter.Checkpoint()
			units, err := b.compiler.CompileTemplate(file, def)
			if err != nil || b.reporter.HasErrorsSince(checkpoint) {
				failed++
				b.logger.Warn().
					Str("template", def.Name).
					Msg("template failed to compile")
				continue
			}
			all = append(all, units...)
			b.notify(def, units)
		}
	}

	b.logger.Info().
		Int("templates", len(b.files.Templates())).
		Int("failed", failed).
		Int("units", len(all)).
		Msg("batch compile finished")

	return all, b.reporter.AggregateSince(start)
}

func (b *Batch) notify(def *ast.TemplateDef, units []*unit.Unit) {
	if b.listener.OnUnit != nil {
		for _, u := range units {
			b.listener.OnUnit(u)
		}
	}
	if b.listener.OnTemplate != nil {
		b.listener.OnTemplate(def.Name, units)
	}
	if def.Delegate && b.listener.OnDelegateTemplate != nil {
		b.listener.OnDelegateTemplate(def.Name)
	}
}

// Package compiles everything and writes the artifacts as a unit archive,
// including the delegate manifest. Nothing is written when the batch verdict
// is an error.
func (b *Batch) Package(ctx context.Context, w io.Writer) error {
	units, err := b.CompileAll(ctx)
	if err != nil {
		return err
	}
	aw := unit.NewArchiveWriter(w)
	for _, u := range units {
		if err := aw.Add(u); err != nil {
			return err
		}
	}
	return aw.Close()
}

// LazyInit wires an on-demand loader over the same file set, registry, and
// reporter. It refuses to start when the session has already recorded
// errors: lazy resolution on top of a failed session would surface them
// piecemeal instead of up front.
func (b *Batch) LazyInit() (*loader.Loader, error) {
	if b.reporter.HasErrors() {
		return nil, b.reporter.AggregateSince(0)
	}
	return loader.New(loader.Config{
		FileSet:  b.files,
		Registry: b.registry,
		Reporter: b.reporter,
		Verify:   b.verify,
		Logger:   &b.logger,
	})
}
