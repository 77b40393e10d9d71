package batch

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/deepnoodle-ai/stencil/types"
	"github.com/deepnoodle-ai/stencil/unit"
)

func goodFileSet() *ast.FileSet {
	return &ast.FileSet{Files: []*ast.File{{
		Filename: "app.tpl",
		Templates: []*ast.TemplateDef{
			{
				Name:        "app.page",
				ContentKind: types.ContentHTML,
				Body: []ast.Stmt{
					&ast.RawText{Text: "<main>"},
					&ast.Call{Callee: "app.banner"},
					&ast.RawText{Text: "</main>"},
				},
			},
			{
				Name:        "app.banner",
				ContentKind: types.ContentHTML,
				Body:        []ast.Stmt{&ast.RawText{Text: "<b>hi</b>"}},
			},
			{
				Name:        "app.banner.alt",
				ContentKind: types.ContentHTML,
				Delegate:    true,
				Variant:     "alt",
				Body:        []ast.Stmt{&ast.RawText{Text: "<i>hi</i>"}},
			},
		},
	}}}
}

func TestCompileAll(t *testing.T) {
	var unitNames []string
	var templates []string
	var delegates []string
	b, err := New(Config{
		FileSet: goodFileSet(),
		Verify:  true,
		Listener: Listener{
			OnUnit: func(u *unit.Unit) { unitNames = append(unitNames, u.Name()) },
			OnTemplate: func(name string, units []*unit.Unit) {
				templates = append(templates, name)
			},
			OnDelegateTemplate: func(name string) { delegates = append(delegates, name) },
		},
	})
	require.NoError(t, err)

	units, err := b.CompileAll(context.Background())
	require.NoError(t, err)
	// Three templates, each producing a main and a factory unit.
	require.Len(t, units, 6)
	require.Len(t, unitNames, 6)
	require.Equal(t, []string{"app.page", "app.banner", "app.banner.alt"}, templates)
	require.Equal(t, []string{"app.banner.alt"}, delegates)
}

func TestOneBadTemplateDoesNotStopTheBatch(t *testing.T) {
	fs := goodFileSet()
	// A call to an undefined template fails that template only.
	fs.Files[0].Templates = append(fs.Files[0].Templates, &ast.TemplateDef{
		Name:        "app.broken",
		ContentKind: types.ContentHTML,
		Body:        []ast.Stmt{&ast.Call{Callee: "app.missing"}},
	})
	reporter := report.NewReporter()
	b, err := New(Config{FileSet: fs, Reporter: reporter, Verify: true})
	require.NoError(t, err)

	units, err := b.CompileAll(context.Background())

	// The healthy templates all produced artifacts.
	require.Len(t, units, 6)
	for _, u := range units {
		require.NotEqual(t, "app.broken", u.TemplateName())
	}

	// The batch verdict carries the failure.
	require.Error(t, err)
	require.Contains(t, err.Error(), "app.missing")
	require.True(t, reporter.HasErrors())
}

func TestPackageRoundTrip(t *testing.T) {
	b, err := New(Config{FileSet: goodFileSet(), Verify: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, b.Package(context.Background(), &buf))

	set, err := unit.ReadArchive(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Equal(t, 6, set.Len())
	require.Equal(t, []string{"app.banner.alt"}, set.DelegateNames())

	u, err := set.ResolveUnit("app.page")
	require.NoError(t, err)
	require.Equal(t, unit.KindMain, u.Kind())
}

func TestPackageRefusesFailedBatch(t *testing.T) {
	fs := goodFileSet()
	fs.Files[0].Templates[0].Body = []ast.Stmt{&ast.Call{Callee: "app.missing"}}
	b, err := New(Config{FileSet: fs, Verify: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.Error(t, b.Package(context.Background(), &buf))
	require.Zero(t, buf.Len())
}

func TestLazyInitRefusesDirtyReporter(t *testing.T) {
	reporter := report.NewReporter()
	b, err := New(Config{FileSet: goodFileSet(), Reporter: reporter})
	require.NoError(t, err)

	reporter.Errorf(report.SourceLocation{}, "previous failure")
	_, err = b.LazyInit()
	require.Error(t, err)
	require.Contains(t, err.Error(), "previous failure")
}

func TestEagerAndLazyModesAgree(t *testing.T) {
	// The same template produces byte-identical artifacts whether compiled
	// eagerly or resolved on demand.
	eager, err := New(Config{FileSet: goodFileSet(), Verify: true})
	require.NoError(t, err)
	eagerUnits, err := eager.CompileAll(context.Background())
	require.NoError(t, err)

	lazy, err := New(Config{FileSet: goodFileSet(), Verify: true})
	require.NoError(t, err)
	l, err := lazy.LazyInit()
	require.NoError(t, err)

	for _, want := range eagerUnits {
		got, err := l.ResolveUnit(want.Name())
		require.NoError(t, err)

		wantBytes, err := unit.Marshal(want)
		require.NoError(t, err)
		gotBytes, err := unit.Marshal(got)
		require.NoError(t, err)
		if diff := cmp.Diff(string(wantBytes), string(gotBytes)); diff != "" {
			t.Fatalf("artifact %s differs between modes:\n%s", want.Name(), diff)
		}
	}
}

func TestCompileAllHonorsContext(t *testing.T) {
	b, err := New(Config{FileSet: goodFileSet()})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.CompileAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
