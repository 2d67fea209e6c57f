package hashmap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MicheleFiladelfia/filang/pkg/value"
)

func TestInsertAndGet(t *testing.T) {
	var m Map
	replaced := m.Insert(value.Integer(1), value.Integer(100))
	assert.False(t, replaced)

	v, ok := m.Get(value.Integer(1))
	require.True(t, ok)
	assert.Equal(t, value.Integer(100), v)
	assert.Equal(t, 1, m.Len())
}

func TestInsertOverwritesExistingKey(t *testing.T) {
	var m Map
	m.Insert(value.Integer(1), value.Integer(100))
	replaced := m.Insert(value.Integer(1), value.Integer(200))
	assert.True(t, replaced)

	v, _ := m.Get(value.Integer(1))
	assert.Equal(t, value.Integer(200), v)
	assert.Equal(t, 1, m.Len())
}

func TestGetMissingKey(t *testing.T) {
	var m Map
	_, ok := m.Get(value.Integer(42))
	assert.False(t, ok)
}

func TestSetExistingOnly(t *testing.T) {
	var m Map
	assert.False(t, m.Set(value.Integer(1), value.Integer(1)))

	m.Insert(value.Integer(1), value.Integer(1))
	assert.True(t, m.Set(value.Integer(1), value.Integer(99)))
	v, _ := m.Get(value.Integer(1))
	assert.Equal(t, value.Integer(99), v)
}

func TestContains(t *testing.T) {
	var m Map
	m.Insert(value.Integer(1), value.Integer(1))
	assert.True(t, m.Contains(value.Integer(1)))
	assert.False(t, m.Contains(value.Integer(2)))
}

func TestEraseRemovesKeyAndShiftsFollowers(t *testing.T) {
	var m Map
	for i := 0; i < 20; i++ {
		m.Insert(value.Integer(int64(i)), value.Integer(int64(i*10)))
	}
	m.Erase(value.Integer(5))

	assert.False(t, m.Contains(value.Integer(5)))
	for i := 0; i < 20; i++ {
		if i == 5 {
			continue
		}
		v, ok := m.Get(value.Integer(int64(i)))
		require.True(t, ok, "key %d should survive erase of another key", i)
		assert.Equal(t, value.Integer(int64(i*10)), v)
	}
	assert.Equal(t, 19, m.Len())
}

func TestEraseMissingKeyIsNoop(t *testing.T) {
	var m Map
	m.Insert(value.Integer(1), value.Integer(1))
	m.Erase(value.Integer(99))
	assert.Equal(t, 1, m.Len())
}

func TestGrowPreservesAllEntries(t *testing.T) {
	var m Map
	const n = 500
	for i := 0; i < n; i++ {
		m.Insert(value.Integer(int64(i)), value.Integer(int64(i*2)))
	}
	require.Equal(t, n, m.Len())
	for i := 0; i < n; i++ {
		v, ok := m.Get(value.Integer(int64(i)))
		require.True(t, ok)
		assert.Equal(t, value.Integer(int64(i*2)), v)
	}
}

func TestBoolAndIntegerShareKeySpace(t *testing.T) {
	var m Map
	m.Insert(value.Bool(true), value.Integer(1))
	v, ok := m.Get(value.Integer(1))
	require.True(t, ok)
	assert.Equal(t, value.Integer(1), v)
}

func TestDecimalKeys(t *testing.T) {
	var m Map
	m.Insert(value.Decimal(1.5), value.Integer(1))
	v, ok := m.Get(value.Decimal(1.5))
	require.True(t, ok)
	assert.Equal(t, value.Integer(1), v)
}

func TestManyDistinctStringKeysAreAllCounted(t *testing.T) {
	var m Map
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("k%d", i)
		m.Insert(value.Obj(value.NewObjString(key)), value.Integer(int64(i)))
	}
	assert.Equal(t, 100, m.Len())
}
