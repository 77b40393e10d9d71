package unit

import (
	"bytes"
	"testing"

	"github.com/deepnoodle-ai/stencil/op"
	"github.com/deepnoodle-ai/stencil/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func sampleUnit() *Unit {
	code := NewCode(CodeParams{
		Name: "ns.page",
		Instructions: []op.Code{
			op.EmitText, 0,
			op.LoadParam, 1,
			op.CheckCast, 2,
			op.EmitValue,
			op.ConstructUnit, 3,
			op.AdvanceUnit, 0,
			op.ReturnStatus, op.Code(StatusDone),
		},
		Constants: []any{
			"Hello, ",
			"name",
			TypeRef{Type: types.StringType},
			Ref{Name: "ns.page$let_footer_1"},
		},
		Locations: []SourceLocation{
			{Line: 2, Column: 1}, {Line: 2, Column: 1},
			{Line: 2, Column: 9}, {Line: 2, Column: 9},
			{Line: 2, Column: 9}, {Line: 2, Column: 9},
			{Line: 2, Column: 9},
			{Line: 3, Column: 1}, {Line: 3, Column: 1},
			{Line: 3, Column: 1}, {Line: 3, Column: 1},
			{Line: 4, Column: 1}, {Line: 4, Column: 1},
		},
		Suspensions: []SuspensionPoint{{ResumeIP: 9, Kind: SuspendCall}},
		LocalCount:  1,
		LocalNames:  []string{"footer"},
		Filename:    "page.tpl",
	})
	return New(Params{
		Name:         "ns.page",
		Kind:         KindMain,
		TemplateName: "ns.page",
		Delegate:     true,
		Params: []Param{
			{Name: "name", Required: true},
			{Name: "extra", Lazy: true},
		},
		Code: code,
	})
}

func TestMarshalRoundTrip(t *testing.T) {
	u := sampleUnit()
	data, err := Marshal(u)
	require.NoError(t, err)

	restored, err := Unmarshal(data)
	require.NoError(t, err)

	require.Equal(t, u.Name(), restored.Name())
	require.Equal(t, u.Kind(), restored.Kind())
	require.Equal(t, u.TemplateName(), restored.TemplateName())
	require.Equal(t, u.Delegate(), restored.Delegate())
	require.Equal(t, u.ParamCount(), restored.ParamCount())
	require.Equal(t, u.ParamAt(1), restored.ParamAt(1))

	code, restoredCode := u.Code(), restored.Code()
	require.Equal(t, code.InstructionCount(), restoredCode.InstructionCount())
	for i := 0; i < code.InstructionCount(); i++ {
		require.Equal(t, code.InstructionAt(i), restoredCode.InstructionAt(i))
	}
	require.Equal(t, code.ConstantAt(0), restoredCode.ConstantAt(0))
	require.Equal(t, Ref{Name: "ns.page$let_footer_1"}, restoredCode.ConstantAt(3))

	tr, ok := restoredCode.ConstantAt(2).(TypeRef)
	require.True(t, ok)
	require.True(t, tr.Type.Equal(types.StringType))

	require.Equal(t, code.SuspensionPointAt(0), restoredCode.SuspensionPointAt(0))
	require.Equal(t, code.LocalCount(), restoredCode.LocalCount())
	require.Equal(t, "footer", restoredCode.LocalNameAt(0))
	require.Equal(t, code.LocationAt(2), restoredCode.LocationAt(2))
}

func TestMarshalDeterminism(t *testing.T) {
	a, err := Marshal(sampleUnit())
	require.NoError(t, err)
	b, err := Marshal(sampleUnit())
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(a, b))

	// Re-marshaling an unmarshaled unit is also stable
	restored, err := Unmarshal(a)
	require.NoError(t, err)
	c, err := Marshal(restored)
	require.NoError(t, err)
	require.True(t, bytes.Equal(a, c))
}

func TestMarshalNestedTypes(t *testing.T) {
	code := NewCode(CodeParams{
		Name:         "ns.t",
		Instructions: []op.Code{op.CheckCast, 0, op.ReturnStatus, op.Code(StatusDone)},
		Constants: []any{
			TypeRef{Type: types.NewList(types.NewMap(types.StringType.AsNullable()))},
		},
	})
	u := New(Params{Name: "ns.t", Kind: KindMain, TemplateName: "ns.t", Code: code})

	data, err := Marshal(u)
	require.NoError(t, err)
	restored, err := Unmarshal(data)
	require.NoError(t, err)

	tr := restored.Code().ConstantAt(0).(TypeRef)
	require.Equal(t, "list<map<string,string?>>", tr.Type.String())
}
