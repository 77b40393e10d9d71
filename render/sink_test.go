package render

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferSink(t *testing.T) {
	b := NewBufferSink()
	n, err := b.WriteString("abc")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.False(t, b.SoftLimited())
	require.Equal(t, "abc", b.String())
	require.Equal(t, 3, b.Len())
	b.Reset()
	require.Equal(t, "", b.String())
}

func TestLimitSinkNeverTruncates(t *testing.T) {
	buf := NewBufferSink()
	l := NewLimitSink(buf, 4)
	require.False(t, l.SoftLimited())

	_, err := l.WriteString("12345")
	require.NoError(t, err)
	require.True(t, l.SoftLimited())
	// The write past the limit still lands in full.
	require.Equal(t, "12345", buf.String())

	l.ResetBudget()
	require.False(t, l.SoftLimited())
}

func TestFuture(t *testing.T) {
	f := NewFuture()
	require.False(t, f.Ready())
	require.NoError(t, f.Resolve("v"))
	require.True(t, f.Ready())
	require.Equal(t, "v", f.Value())
	require.Error(t, f.Resolve("again"))

	r := ResolvedFuture(int64(1))
	require.True(t, r.Ready())
	require.Equal(t, int64(1), r.Value())
}
