package collections

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAdd(t *testing.T) {
	set := NewSet[int]()
	set.Add(1)
	set.Add(2)
	set.Add(3)

	assert.Equal(t, 3, set.Size())
	assert.True(t, set.Contains(1))
	assert.True(t, set.Contains(2))
	assert.True(t, set.Contains(3))
	assert.False(t, set.Contains(4))
}

func TestSetAddDuplicate(t *testing.T) {
	set := NewSet[string]()
	set.Add("apple")
	set.Add("apple")
	set.Add("apple")

	assert.Equal(t, 1, set.Size())
	assert.True(t, set.Contains("apple"))
}

func TestSetRemove(t *testing.T) {
	set := NewSet[int]()
	set.Add(1)
	set.Add(2)
	set.Add(3)

	set.Remove(2)

	assert.Equal(t, 2, set.Size())
	assert.True(t, set.Contains(1))
	assert.False(t, set.Contains(2))
	assert.True(t, set.Contains(3))
}

func TestSetToSliceEmpty(t *testing.T) {
	set := NewSet[string]()

	slice := set.ToSlice()

	assert.Equal(t, 0, len(slice))
	assert.NotNil(t, slice)
}

func TestSetClear(t *testing.T) {
	set := NewSet[int]()
	set.Add(1)
	set.Add(2)
	set.Add(3)

	set.Clear()

	assert.Equal(t, 0, set.Size())
	assert.False(t, set.Contains(1))
}

func TestMapKeysAndValuesConsistency(t *testing.T) {
	m := map[string]int{"x": 10, "y": 20, "z": 30}

	keys := MapKeys(m)
	values := MapValues(m)

	assert.Equal(t, len(keys), len(values))
	assert.Equal(t, len(keys), len(m))
}

func TestMapKeysNil(t *testing.T) {
	var m map[string]int

	keys := MapKeys(m)

	assert.Equal(t, 0, len(keys))
	assert.NotNil(t, keys)
}

func TestInsertionOrderedSetPreservesFirstSeenOrder(t *testing.T) {
	s := NewInsertionOrderedSet[string]()

	assert.True(t, s.AddIfAbsent("b"))
	assert.True(t, s.AddIfAbsent("a"))
	assert.False(t, s.AddIfAbsent("b"))
	assert.True(t, s.AddIfAbsent("c"))

	assert.Equal(t, []string{"b", "a", "c"}, s.Ordered())
}

func TestInsertionOrderedSetEmpty(t *testing.T) {
	s := NewInsertionOrderedSet[int]()
	assert.Empty(t, s.Ordered())
}
