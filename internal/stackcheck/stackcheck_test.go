package stackcheck

import (
	"testing"

	"github.com/deepnoodle-ai/stencil/op"
	"github.com/stretchr/testify/require"
)

func TestEffects(t *testing.T) {
	tests := []struct {
		code     op.Code
		operands []uint16
		want     int
	}{
		{op.LoadConst, []uint16{0}, 1},
		{op.Nil, nil, 1},
		{op.PopTop, nil, -1},
		{op.BinaryOp, []uint16{1}, -1},
		{op.EmitValue, nil, -1},
		{op.EmitText, []uint16{0}, 0},
		{op.BuildList, []uint16{3}, -2},
		{op.BuildMap, []uint16{2}, -3},
		{op.ConstructUnit, []uint16{0}, 0},
		{op.AdvanceUnit, []uint16{0}, -1},
		{op.Suspend, []uint16{0, 1}, 0},
	}
	for _, tt := range tests {
		delta, linear := Effect(tt.code, tt.operands)
		require.True(t, linear, "%s should be linear", op.GetInfo(tt.code).Name)
		require.Equal(t, tt.want, delta, op.GetInfo(tt.code).Name)
	}
}

func TestForIterIsNotLinear(t *testing.T) {
	_, linear := Effect(op.ForIter, []uint16{0})
	require.False(t, linear)
}

func TestCheckerUnderflow(t *testing.T) {
	var c Checker
	require.NoError(t, c.Apply(op.LoadConst, 0))
	require.Equal(t, 1, c.Depth())
	require.NoError(t, c.Apply(op.PopTop))
	require.Equal(t, 0, c.Depth())
	err := c.Apply(op.PopTop)
	require.Error(t, err)
	require.Contains(t, err.Error(), "stack underflow")
}

func TestCheckerSetDepth(t *testing.T) {
	var c Checker
	require.NoError(t, c.Apply(op.True))
	c.SetDepth(5)
	require.Equal(t, 5, c.Depth())
}
