package colbeam

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type product struct {
	ID       int64   `colbeam:"id"`
	Name     string  `colbeam:"name"`
	Price    float64 `colbeam:"price"`
	InStock  bool    `colbeam:"in_stock"`
	Category string  `colbeam:"category"`
}

func sampleProducts() []product {
	return []product{
		{ID: 1, Name: "widget", Price: 9.99, InStock: true, Category: "hardware"},
		{ID: 2, Name: "gadget", Price: 19.99, InStock: false, Category: "hardware"},
		{ID: 3, Name: "gizmo", Price: 29.99, InStock: true, Category: "electronics"},
		{ID: 4, Name: "doohickey", Price: 4.99, InStock: true, Category: "hardware"},
	}
}

func TestFreezeAndSchema(t *testing.T) {
	frozen, err := Freeze[product](sampleProducts(), nil, nil)
	require.NoError(t, err)
	defer frozen.Release()

	assert.Equal(t, 4, frozen.Len())
	assert.GreaterOrEqual(t, frozen.Schema().IndexOf("name"), 0)
	assert.Equal(t, -1, frozen.Schema().IndexOf("nonexistent"))
}

func TestFreezeRejectsInvalidConfig(t *testing.T) {
	bad := DefaultConfig()
	bad.Ingest.DictionaryThreshold = -1
	_, err := Freeze[product](sampleProducts(), nil, bad)
	require.Error(t, err)
	var ce *ConfigError
	assert.True(t, errors.As(err, &ce))
}

func TestFreezeEmptySlice(t *testing.T) {
	frozen, err := Freeze[product](nil, nil, nil)
	require.NoError(t, err)
	defer frozen.Release()
	assert.Equal(t, 0, frozen.Len())
}
