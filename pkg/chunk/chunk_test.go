package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MicheleFiladelfia/filang/pkg/value"
)

func TestWriteRecordsLines(t *testing.T) {
	var ck Chunk
	ck.Write(byte(OpNil), 1)
	ck.Write(byte(OpTrue), 1)
	ck.Write(byte(OpPop), 2)

	assert.Equal(t, 1, ck.LineAt(0))
	assert.Equal(t, 1, ck.LineAt(1))
	assert.Equal(t, 2, ck.LineAt(2))
	assert.Equal(t, 3, ck.Len())
}

func TestLineAtSkipsLinesWithNoBytecode(t *testing.T) {
	var ck Chunk
	ck.Write(byte(OpNil), 1)
	ck.Write(byte(OpPop), 5) // lines 2-4 emit nothing

	assert.Equal(t, 5, ck.LineAt(1))
}

func TestAddConstantReturnsIndex(t *testing.T) {
	var ck Chunk
	i0 := ck.AddConstant(value.Integer(1))
	i1 := ck.AddConstant(value.Integer(2))

	require.Equal(t, 0, i0)
	require.Equal(t, 1, i1)
	assert.Equal(t, value.Integer(1), ck.Constants.Get(0))
	assert.Equal(t, value.Integer(2), ck.Constants.Get(1))
}

func TestOpStringMnemonics(t *testing.T) {
	assert.Equal(t, "ADD", OpAdd.String())
	assert.Equal(t, "CONSTANT_LONG_LONG", OpConstantLongLong.String())
	assert.Equal(t, "UNKNOWN", Op(255).String())
}
