package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmap_SetGetClear(t *testing.T) {
	b := New(100)
	require.False(t, b.Get(5))
	b.Set(5)
	assert.True(t, b.Get(5))
	b.Clear(5)
	assert.False(t, b.Get(5))
}

func TestBitmap_SetAll_CountSet_MasksTail(t *testing.T) {
	cases := []int{1, 3, 7, 15, 17, 63, 64, 65, 127, 128, 129}
	for _, n := range cases {
		b := New(n)
		b.SetAll()
		assert.Equal(t, n, b.CountSet(), "n=%d", n)
		assert.True(t, b.IsAllOnes(), "n=%d", n)
	}
}

func TestBitmap_ClearAll_IsEmpty(t *testing.T) {
	b := New(200)
	b.SetAll()
	assert.False(t, b.IsEmpty())
	b.ClearAll()
	assert.True(t, b.IsEmpty())
	assert.Equal(t, 0, b.CountSet())
}

func TestBitmap_AndOrNot(t *testing.T) {
	a := New(128)
	b := New(128)
	for i := 0; i < 128; i += 2 {
		a.Set(i)
	}
	for i := 0; i < 128; i += 3 {
		b.Set(i)
	}

	and := New(128)
	and.CopyFrom(a)
	and.And(b)
	for i := 0; i < 128; i++ {
		want := i%2 == 0 && i%3 == 0
		assert.Equal(t, want, and.Get(i), "and i=%d", i)
	}

	or := New(128)
	or.CopyFrom(a)
	or.Or(b)
	for i := 0; i < 128; i++ {
		want := i%2 == 0 || i%3 == 0
		assert.Equal(t, want, or.Get(i), "or i=%d", i)
	}

	not := New(128)
	not.CopyFrom(a)
	not.Not()
	for i := 0; i < 128; i++ {
		assert.Equal(t, i%2 != 0, not.Get(i), "not i=%d", i)
	}
}

func TestBitmap_AndOr_LengthMismatchPanics(t *testing.T) {
	a := New(64)
	b := New(65)
	assert.Panics(t, func() { a.And(b) })
	assert.Panics(t, func() { a.Or(b) })
}

func TestBitmap_IterateSet_Ascending(t *testing.T) {
	b := New(70)
	want := []int{0, 3, 9, 31, 32, 63, 64, 69}
	for _, i := range want {
		b.Set(i)
	}
	var got []int
	b.IterateSet(func(i int) bool {
		got = append(got, i)
		return true
	})
	assert.Equal(t, want, got)
	assert.Equal(t, want, b.ToIndices())
}

func TestBitmap_IterateSet_EarlyStop(t *testing.T) {
	b := New(10)
	b.SetAll()
	var got []int
	b.IterateSet(func(i int) bool {
		got = append(got, i)
		return i < 3
	})
	assert.Equal(t, []int{0, 1, 2, 3}, got)
}

func TestBitmap_ClearRange(t *testing.T) {
	b := New(20)
	b.SetAll()
	b.ClearRange(5, 10)
	for i := 0; i < 20; i++ {
		want := i < 5 || i >= 10
		assert.Equal(t, want, b.Get(i), "i=%d", i)
	}
}

func TestAcquireRelease_Pooling(t *testing.T) {
	b := Acquire(50)
	assert.Equal(t, 50, b.Len())
	assert.True(t, b.IsEmpty())
	b.Set(1)
	Release(b)

	b2 := Acquire(10)
	assert.Equal(t, 10, b2.Len())
	assert.True(t, b2.IsEmpty())
}
