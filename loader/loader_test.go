package loader

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/registry"
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/deepnoodle-ai/stencil/types"
	"github.com/deepnoodle-ai/stencil/unit"
)

func testFileSet() *ast.FileSet {
	return &ast.FileSet{Files: []*ast.File{{
		Filename: "site.tpl",
		Templates: []*ast.TemplateDef{
			{
				Name:        "site.header",
				ContentKind: types.ContentHTML,
				Params: []ast.ParamDecl{
					{Name: "title", Typ: types.StringType, Required: true},
				},
				Body: []ast.Stmt{
					&ast.RawText{Text: "<h1>"},
					&ast.Print{Value: &ast.Param{Name: "title", Typ: types.StringType}},
					&ast.RawText{Text: "</h1>"},
				},
			},
			{
				Name:        "site.footer",
				ContentKind: types.ContentHTML,
				Body:        []ast.Stmt{&ast.RawText{Text: "<hr>"}},
			},
		},
	}}}
}

func newLoader(t *testing.T, fs *ast.FileSet, reporter *report.Reporter) *Loader {
	t.Helper()
	reg, err := registry.FromFileSet(fs)
	require.NoError(t, err)
	l, err := New(Config{
		FileSet:  fs,
		Registry: reg,
		Reporter: reporter,
		Verify:   true,
	})
	require.NoError(t, err)
	return l
}

func TestResolveCompilesOnDemand(t *testing.T) {
	l := newLoader(t, testFileSet(), nil)
	u, err := l.ResolveUnit("site.header")
	require.NoError(t, err)
	require.Equal(t, "site.header", u.Name())
	require.Equal(t, unit.KindMain, u.Kind())

	// Fast path returns the cached pointer.
	again, err := l.ResolveUnit("site.header")
	require.NoError(t, err)
	require.Same(t, u, again)
}

func TestResolveInsertsSiblings(t *testing.T) {
	l := newLoader(t, testFileSet(), nil)

	// Resolving the factory compiles the whole template; the main unit is
	// published as a sibling of that same compilation.
	factory, err := l.ResolveUnit("site.header$factory")
	require.NoError(t, err)
	require.Equal(t, unit.KindFactory, factory.Kind())

	main, err := l.ResolveUnit("site.header")
	require.NoError(t, err)

	// A later resolve of the factory still sees the first artifact.
	factoryAgain, err := l.ResolveUnit("site.header$factory")
	require.NoError(t, err)
	require.Same(t, factory, factoryAgain)
	require.Equal(t, main.TemplateName(), factory.TemplateName())
}

func TestResolveNotFound(t *testing.T) {
	l := newLoader(t, testFileSet(), nil)

	// Unknown owner.
	_, err := l.ResolveUnit("site.missing")
	require.ErrorIs(t, err, unit.ErrNotFound)

	// Known owner, but no unit with that suffix exists.
	_, err = l.ResolveUnit("site.header$let_nope_1")
	require.ErrorIs(t, err, unit.ErrNotFound)
}

func TestResolveFailsFastOnDirtyReporter(t *testing.T) {
	reporter := report.NewReporter()
	l := newLoader(t, testFileSet(), reporter)
	reporter.Errorf(report.SourceLocation{}, "earlier failure")

	_, err := l.ResolveUnit("site.header")
	require.Error(t, err)
	require.Contains(t, err.Error(), "earlier failure")
	require.NotErrorIs(t, err, unit.ErrNotFound)
}

func TestSeedPrefillsCache(t *testing.T) {
	fs := testFileSet()
	l := newLoader(t, fs, nil)
	seeded := unit.New(unit.Params{
		Name:         "site.footer",
		Kind:         unit.KindMain,
		TemplateName: "site.footer",
	})
	l.Seed([]*unit.Unit{seeded})

	got, err := l.ResolveUnit("site.footer")
	require.NoError(t, err)
	require.Same(t, seeded, got)
}

func TestConcurrentResolution(t *testing.T) {
	l := newLoader(t, testFileSet(), nil)
	const workers = 16
	results := make([]*unit.Unit, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := l.ResolveUnit("site.header")
			if err != nil {
				panic(fmt.Sprintf("resolve failed: %v", err))
			}
			results[i] = u
		}(i)
	}
	wg.Wait()

	// Exactly one artifact won publication; every caller sees it.
	for i := 1; i < workers; i++ {
		require.Same(t, results[0], results[i])
	}
}
