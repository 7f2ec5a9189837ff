package tp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeEqual(t *testing.T) {
	assert.True(t, I32.Equal(Type{Kind: Int, Bits: 32}))
	assert.False(t, I32.Equal(I64))
	assert.False(t, I32.Equal(U32))
	assert.False(t, I64.Equal(F64))
}

func TestTypeSize(t *testing.T) {
	assert.Equal(t, 1, U8.Size())
	assert.Equal(t, 2, I16.Size())
	assert.Equal(t, 4, F32.Size())
	assert.Equal(t, 8, U64.Size())

	assert.Panics(t, func() { VoidType.Size() })
}

func TestTypeQueries(t *testing.T) {
	assert.True(t, I8.Signed())
	assert.False(t, U8.Signed())
	assert.False(t, F64.Signed())

	assert.Equal(t, ClassInt, U16.Class())
	assert.Equal(t, ClassFloat, F32.Class())

	assert.True(t, VoidType.IsVoid())
	assert.True(t, U64.IsInt())
	assert.True(t, F32.IsFloat())
}

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		name string
		tp   Type
	}{
		{"i8", I8},
		{"i64", I64},
		{"u16", U16},
		{"u32", U32},
		{"f32", F32},
		{"f64", F64},
		{"void", VoidType},
	} {
		x, err := Parse(tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.tp, x, tc.name)
		assert.Equal(t, tc.name, x.String())
	}

	for _, name := range []string{"", "i", "f16", "i128", "x32", "u7"} {
		_, err := Parse(name)
		assert.Error(t, err, name)
	}
}
