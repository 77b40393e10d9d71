// Package stencil compiles analyzed template trees into suspendable render
// units and drives them.
//
// The root package is a convenience layer over the building blocks:
// compiler lowers one template, batch compiles whole file sets, loader
// resolves units on demand, and render advances instances against a sink.
// Hosts with simple needs can stay on this surface; hosts that stream
// output or feed data asynchronously use the packages directly.
package stencil

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/batch"
	"github.com/deepnoodle-ai/stencil/loader"
	"github.com/deepnoodle-ai/stencil/render"
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/deepnoodle-ai/stencil/unit"
)

// Option configures a compilation or render.
type Option func(*options)

type options struct {
	reporter *report.Reporter
	verify   bool
	logger   *zerolog.Logger
	listener batch.Listener
}

func collectOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithReporter supplies the diagnostics channel to record into. Useful when
// several compilation steps share one session.
func WithReporter(r *report.Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithVerify enables compiler verification mode, which re-checks structural
// invariants during assembly. Intended for tests and debugging.
func WithVerify() Option {
	return func(o *options) {
		o.verify = true
	}
}

// WithLogger supplies a logger for compilation and loading progress.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithListener supplies progress callbacks for eager compilation.
func WithListener(l batch.Listener) Option {
	return func(o *options) {
		o.listener = l
	}
}

func (o *options) batchConfig(fs *ast.FileSet) batch.Config {
	return batch.Config{
		FileSet:  fs,
		Reporter: o.reporter,
		Verify:   o.verify,
		Listener: o.listener,
		Logger:   o.logger,
	}
}

// Compile eagerly compiles every template in the file set. The error is the
// batch verdict: non-nil if any template failed, while healthy templates
// still return their units.
func Compile(ctx context.Context, fs *ast.FileSet, opts ...Option) ([]*unit.Unit, error) {
	b, err := batch.New(collectOptions(opts...).batchConfig(fs))
	if err != nil {
		return nil, err
	}
	return b.CompileAll(ctx)
}

// NewLoader wires an on-demand loader over the file set.
func NewLoader(fs *ast.FileSet, opts ...Option) (*loader.Loader, error) {
	b, err := batch.New(collectOptions(opts...).batchConfig(fs))
	if err != nil {
		return nil, err
	}
	return b.LazyInit()
}

// Render compiles what it needs on demand and renders one template to a
// string. All parameter values must be immediately available; hosts that
// feed data asynchronously or apply output backpressure should drive a
// render.Instance themselves.
func Render(ctx context.Context, fs *ast.FileSet, template string, params map[string]any, opts ...Option) (string, error) {
	l, err := NewLoader(fs, opts...)
	if err != nil {
		return "", err
	}
	u, err := l.ResolveUnit(template)
	if err != nil {
		return "", err
	}
	in, err := render.NewInstance(u, params, l)
	if err != nil {
		return "", err
	}
	sink := render.NewBufferSink()
	status, err := in.Advance(ctx, sink)
	if err != nil {
		return "", err
	}
	if status != unit.StatusDone {
		return "", fmt.Errorf("stencil: render of %q suspended with status %s", template, status)
	}
	return sink.String(), nil
}
