package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthyTable(t *testing.T) {
	assert.False(t, Nil.Truthy())
	assert.False(t, Bool(false).Truthy())
	assert.True(t, Bool(true).Truthy())
	assert.False(t, Integer(0).Truthy())
	assert.True(t, Integer(1).Truthy())
	assert.False(t, Decimal(0).Truthy())
	assert.True(t, Decimal(0.1).Truthy())
	assert.False(t, Obj(NewObjString("")).Truthy())
	assert.True(t, Obj(NewObjString("x")).Truthy())
}

func TestIsIntegerIncludesBool(t *testing.T) {
	assert.True(t, Bool(true).IsInteger())
	assert.True(t, Integer(1).IsInteger())
	assert.False(t, Decimal(1).IsInteger())
}

func TestStringFormatting(t *testing.T) {
	assert.Equal(t, "42", Integer(42).String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "false", Bool(false).String())
	assert.Equal(t, "nil", Nil.String())
	assert.Equal(t, "hi", Obj(NewObjString("hi")).String())
}

func TestTypeNameDescriptors(t *testing.T) {
	assert.Equal(t, "<builtin 'integer'>", Integer(1).TypeName())
	assert.Equal(t, "<builtin 'bool'>", Bool(true).TypeName())
	assert.Equal(t, "<builtin 'float'>", Decimal(1).TypeName())
	assert.Equal(t, "<builtin 'nil'>", Nil.TypeName())
	assert.Equal(t, "<class 'String'>", Obj(NewObjString("x")).TypeName())
}

func TestValueArrayWriteAndGet(t *testing.T) {
	var arr ValueArray
	i0 := arr.Write(Integer(10))
	i1 := arr.Write(Integer(20))

	assert.Equal(t, 0, i0)
	assert.Equal(t, 1, i1)
	assert.Equal(t, 2, arr.Len())
	assert.Equal(t, Integer(10), arr.Get(0))
	assert.Equal(t, Integer(20), arr.Get(1))
}

func TestAsFloat64PromotesIntegerAndBool(t *testing.T) {
	assert.Equal(t, 5.0, Integer(5).AsFloat64())
	assert.Equal(t, 1.0, Bool(true).AsFloat64())
	assert.Equal(t, 2.5, Decimal(2.5).AsFloat64())
}
