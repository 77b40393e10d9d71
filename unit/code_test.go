package unit

import (
	"testing"

	"github.com/deepnoodle-ai/stencil/op"
	"github.com/stretchr/testify/require"
)

func TestCodeImmutability(t *testing.T) {
	instructions := []op.Code{op.LoadConst, 0, op.EmitValue, op.ReturnStatus, op.Code(StatusDone)}
	constants := []any{"hello"}
	code := NewCode(CodeParams{
		Name:         "ns.hello",
		Instructions: instructions,
		Constants:    constants,
		LocalCount:   1,
		LocalNames:   []string{"greeting"},
	})

	// Mutating the inputs after construction has no effect
	instructions[0] = op.Nop
	constants[0] = "mutated"

	require.Equal(t, op.LoadConst, code.InstructionAt(0))
	require.Equal(t, "hello", code.ConstantAt(0))
	require.Equal(t, 5, code.InstructionCount())
	require.Equal(t, 1, code.ConstantCount())
	require.Equal(t, 1, code.LocalCount())
	require.Equal(t, "greeting", code.LocalNameAt(0))
	require.Equal(t, "", code.LocalNameAt(5))
}

func TestCodeLocations(t *testing.T) {
	code := NewCode(CodeParams{
		Name:         "ns.x",
		Instructions: []op.Code{op.Nil, op.EmitValue},
		Locations: []SourceLocation{
			{Line: 1, Column: 1},
			{Line: 1, Column: 4},
		},
	})
	require.Equal(t, SourceLocation{Line: 1, Column: 4}, code.LocationAt(1))
	require.True(t, code.LocationAt(99).IsZero())
}

func TestUnitAccessors(t *testing.T) {
	code := NewCode(CodeParams{
		Name:         "ns.hello",
		Instructions: []op.Code{op.ReturnStatus, op.Code(StatusDone)},
		Suspensions:  []SuspensionPoint{{ResumeIP: 0, Kind: SuspendOutput}},
		LocalCount:   2,
	})
	u := New(Params{
		Name:         "ns.hello",
		Kind:         KindMain,
		TemplateName: "ns.hello",
		Params: []Param{
			{Name: "name", Required: true},
			{Name: "extra", Lazy: true},
		},
		Code: code,
	})

	require.Equal(t, "ns.hello", u.Name())
	require.Equal(t, KindMain, u.Kind())
	require.False(t, u.Delegate())
	require.Equal(t, 2, u.ParamCount())
	require.True(t, u.ParamAt(1).Lazy)

	stats := u.Stats()
	require.Equal(t, 2, stats.InstructionCount)
	require.Equal(t, 1, stats.SuspensionPointCount)
	require.Equal(t, 4, stats.FieldCount, "2 params + 2 locals")
	require.Positive(t, stats.ByteSize)
}

func TestFactoryUnitHasNoCode(t *testing.T) {
	u := New(Params{
		Name:         "ns.hello$factory",
		Kind:         KindFactory,
		TemplateName: "ns.hello",
		Params:       []Param{{Name: "name", Required: true}},
	})
	require.Nil(t, u.Code())
	require.Equal(t, "factory", u.Kind().String())
	require.Equal(t, 1, u.Stats().FieldCount)
}

func TestDisassemble(t *testing.T) {
	code := NewCode(CodeParams{
		Name: "ns.hello",
		Instructions: []op.Code{
			op.EmitText, 0,
			op.YieldIfLimited, 0,
			op.ReturnStatus, op.Code(StatusDone),
		},
		Constants:   []any{"Hello"},
		Suspensions: []SuspensionPoint{{ResumeIP: 4, Kind: SuspendOutput}},
	})
	instructions, err := Disassemble(code)
	require.NoError(t, err)
	require.Len(t, instructions, 3)
	require.Equal(t, "EMIT_TEXT", instructions[0].Name)
	require.Equal(t, `"Hello"`, instructions[0].Info)
	require.Equal(t, "YIELD_IF_LIMITED", instructions[1].Name)
	require.Equal(t, "point 0", instructions[1].Info)
	require.Equal(t, "RETURN_STATUS", instructions[2].Name)
	require.Equal(t, "done", instructions[2].Info)

	text, err := DisassembleText(code)
	require.NoError(t, err)
	require.Contains(t, text, "EMIT_TEXT")
}
