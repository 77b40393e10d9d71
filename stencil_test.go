package stencil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/render"
	"github.com/deepnoodle-ai/stencil/report"
	"github.com/deepnoodle-ai/stencil/types"
	"github.com/deepnoodle-ai/stencil/unit"
)

func demoFileSet() *ast.FileSet {
	return &ast.FileSet{Files: []*ast.File{{
		Filename: "demo.tpl",
		Templates: []*ast.TemplateDef{
			{
				Name:        "demo.page",
				ContentKind: types.ContentHTML,
				Params: []ast.ParamDecl{
					{Name: "user", Typ: types.StringType, Required: true},
				},
				Body: []ast.Stmt{
					&ast.RawText{Text: "<p>"},
					&ast.Print{Value: &ast.Param{Name: "user", Typ: types.StringType}},
					&ast.RawText{Text: "</p>"},
					&ast.Call{Callee: "demo.footer"},
				},
			},
			{
				Name:        "demo.footer",
				ContentKind: types.ContentHTML,
				Body:        []ast.Stmt{&ast.RawText{Text: "<footer/>"}},
			},
		},
	}}}
}

func TestCompile(t *testing.T) {
	units, err := Compile(context.Background(), demoFileSet(), WithVerify())
	require.NoError(t, err)
	require.Len(t, units, 4)
}

func TestCompileReportsVerdict(t *testing.T) {
	fs := demoFileSet()
	fs.Files[0].Templates[1].Body = []ast.Stmt{&ast.Call{Callee: "demo.missing"}}
	reporter := report.NewReporter()
	units, err := Compile(context.Background(), fs, WithReporter(reporter))
	require.Error(t, err)
	require.Len(t, units, 2) // demo.page still compiled
	require.True(t, reporter.HasErrors())
}

func TestRender(t *testing.T) {
	out, err := Render(context.Background(), demoFileSet(), "demo.page",
		map[string]any{"user": "ada"}, WithVerify())
	require.NoError(t, err)
	require.Equal(t, "<p>ada</p><footer/>", out)
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render(context.Background(), demoFileSet(), "demo.nope", nil)
	require.ErrorIs(t, err, unit.ErrNotFound)
}

func TestNewLoaderDrivesInstances(t *testing.T) {
	l, err := NewLoader(demoFileSet(), WithVerify())
	require.NoError(t, err)
	u, err := l.ResolveUnit("demo.footer")
	require.NoError(t, err)
	in, err := render.NewInstance(u, nil, l)
	require.NoError(t, err)
	sink := render.NewBufferSink()
	status, err := in.Advance(context.Background(), sink)
	require.NoError(t, err)
	require.Equal(t, unit.StatusDone, status)
	require.Equal(t, "<footer/>", sink.String())
}
