package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeStrings(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{BoolType, "bool"},
		{IntType, "int"},
		{FloatType, "float"},
		{StringType, "string"},
		{AnyType, "any"},
		{NullType, "null"},
		{StringType.AsNullable(), "string?"},
		{NewList(IntType), "list<int>"},
		{NewMap(StringType), "map<string,string>"},
		{NewContent(ContentHTML), "html"},
		{NewContent(ContentHTML).AsNullable(), "html?"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.typ.String())
	}
}

func TestNullability(t *testing.T) {
	s := StringType
	require.False(t, s.IsNullable())
	n := s.AsNullable()
	require.True(t, n.IsNullable())
	// Value semantics: the original is unchanged
	require.False(t, s.IsNullable())
	require.False(t, n.AsNonNullable().IsNullable())
}

func TestIsPrimitive(t *testing.T) {
	require.True(t, BoolType.IsPrimitive())
	require.True(t, IntType.IsPrimitive())
	require.True(t, FloatType.IsPrimitive())
	require.True(t, StringType.IsPrimitive())
	require.False(t, StringType.AsNullable().IsPrimitive())
	require.False(t, NewList(IntType).IsPrimitive())
	require.False(t, AnyType.IsPrimitive())
	require.False(t, NullType.IsPrimitive())
}

func TestEqual(t *testing.T) {
	require.True(t, IntType.Equal(IntType))
	require.False(t, IntType.Equal(FloatType))
	require.False(t, IntType.Equal(IntType.AsNullable()))
	require.True(t, NewList(IntType).Equal(NewList(IntType)))
	require.False(t, NewList(IntType).Equal(NewList(StringType)))
	require.False(t, NewContent(ContentHTML).Equal(NewContent(ContentURI)))
}

func TestPossiblyCompatible(t *testing.T) {
	// Any is compatible with everything, both directions
	require.True(t, AnyType.PossiblyCompatible(IntType))
	require.True(t, IntType.PossiblyCompatible(AnyType))

	// Same kinds
	require.True(t, StringType.PossiblyCompatible(StringType))
	require.True(t, NewList(AnyType).PossiblyCompatible(NewList(IntType)))

	// Numeric narrowing
	require.True(t, FloatType.PossiblyCompatible(IntType))
	require.True(t, IntType.PossiblyCompatible(FloatType))

	// Impossible casts
	require.False(t, StringType.PossiblyCompatible(IntType))
	require.False(t, BoolType.PossiblyCompatible(NewList(BoolType)))
	require.False(t, NewList(IntType).PossiblyCompatible(NewMap(IntType)))

	// Null source requires a nullable target
	require.False(t, NullType.PossiblyCompatible(StringType))
	require.True(t, NullType.PossiblyCompatible(StringType.AsNullable()))
}
