package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/batch"
	"github.com/deepnoodle-ai/stencil/types"
	"github.com/deepnoodle-ai/stencil/unit"
	"github.com/stretchr/testify/require"
)

const pageFileSet = `{
  "files": [
    {
      "filename": "page.tpl",
      "namespace": "site",
      "templates": [
        {
          "name": "site.page",
          "content_kind": "html",
          "params": [
            {"name": "title", "type": "string", "required": true},
            {"name": "tags", "type": "list<string>"}
          ],
          "body": [
            {"stmt": "text", "text": "<h1>", "line": 2, "column": 1},
            {"stmt": "print", "value": {"expr": "param", "name": "title", "type": "string"}, "line": 2, "column": 5},
            {"stmt": "text", "text": "</h1>"},
            {
              "stmt": "for", "var": "tag",
              "seq": {"expr": "param", "name": "tags", "type": "list<string>"},
              "body": [
                {"stmt": "print", "value": {"expr": "var", "name": "tag", "type": "string"}}
              ],
              "empty": [
                {"stmt": "text", "text": "untagged"}
              ]
            },
            {
              "stmt": "if",
              "cond": {
                "expr": "compare", "op": ">",
                "left": {"expr": "binary", "op": "+", "type": "int",
                  "left": {"expr": "int", "int": 1},
                  "right": {"expr": "int", "int": 2}},
                "right": {"expr": "int", "int": 0}
              },
              "then": [{"stmt": "text", "text": "!"}]
            }
          ]
        }
      ]
    }
  ]
}`

func TestDecodeFileSet(t *testing.T) {
	fs, err := decodeFileSet([]byte(pageFileSet))
	require.NoError(t, err)
	require.Len(t, fs.Files, 1)
	require.Equal(t, "page.tpl", fs.Files[0].Filename)

	def, ok := fs.Find("site.page")
	require.True(t, ok)
	require.Equal(t, types.ContentHTML, def.ContentKind)
	require.Len(t, def.Params, 2)
	require.True(t, def.Params[0].Required)
	require.True(t, def.Params[1].Typ.Equal(types.NewList(types.StringType)))
	require.Len(t, def.Body, 5)

	loop, ok := def.Body[3].(*ast.For)
	require.True(t, ok)
	require.Equal(t, "tag", loop.Var)
	require.Len(t, loop.Empty, 1)
	require.Equal(t, 2, def.Body[0].Pos().Line)
}

func TestDecodedFileSetCompiles(t *testing.T) {
	fs, err := decodeFileSet([]byte(pageFileSet))
	require.NoError(t, err)

	b, err := batch.New(batch.Config{FileSet: fs, Verify: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, b.Package(context.Background(), &buf))

	set, err := unit.ReadArchive(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
}

func TestDecodeRejectsUnknownShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown statement",
			doc:  `{"files":[{"templates":[{"name":"a.b","body":[{"stmt":"switch"}]}]}]}`,
			want: `unknown statement kind "switch"`,
		},
		{
			name: "unknown operator",
			doc: `{"files":[{"templates":[{"name":"a.b","body":[
				{"stmt":"print","value":{"expr":"binary","op":"^","type":"int",
					"left":{"expr":"int","int":1},"right":{"expr":"int","int":2}}}]}]}]}`,
			want: `unknown binary operator "^"`,
		},
		{
			name: "missing print value",
			doc:  `{"files":[{"templates":[{"name":"a.b","body":[{"stmt":"print"}]}]}]}`,
			want: "missing print value",
		},
		{
			name: "nameless template",
			doc:  `{"files":[{"templates":[{"body":[]}]}]}`,
			want: "template with no name",
		},
		{
			name: "bad param type",
			doc:  `{"files":[{"templates":[{"name":"a.b","params":[{"name":"p","type":"blob"}],"body":[]}]}]}`,
			want: `unknown type "blob"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeFileSet([]byte(tt.doc))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want types.Type
	}{
		{"int", types.IntType},
		{"string?", types.StringType.AsNullable()},
		{"html", types.NewContent(types.ContentHTML)},
		{"list<string>", types.NewList(types.StringType)},
		{"list<int?>", types.NewList(types.IntType.AsNullable())},
		{"map<string,float>", types.NewMap(types.FloatType)},
		{"list<list<any>>", types.NewList(types.NewList(types.AnyType))},
		{"map<string,list<html>>?", types.NewMap(types.NewList(types.NewContent(types.ContentHTML))).AsNullable()},
	}
	for _, tt := range tests {
		got, err := parseType(tt.in)
		require.NoError(t, err, tt.in)
		require.True(t, got.Equal(tt.want), "parseType(%q) = %s", tt.in, got)
		require.Equal(t, tt.in, got.String())
	}

	_, err := parseType("list<")
	require.Error(t, err)
}
