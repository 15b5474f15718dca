package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/colbeam/internal/columnar"
)

type widget struct {
	ID  int64  `colbeam:"id"`
	Cat string `colbeam:"cat"`
}

func schemaFor(t *testing.T) *columnar.Schema {
	t.Helper()
	return &columnar.Schema{Fields: []columnar.Field{
		{Name: "id", Kind: columnar.KindInt64},
		{Name: "cat", Kind: columnar.KindString},
	}}
}

func TestFreeze_DictionaryEncodesLowCardinalityStrings(t *testing.T) {
	schema := schemaFor(t)
	records := make([]widget, 0, 100)
	for i := 0; i < 100; i++ {
		records = append(records, widget{ID: int64(i), Cat: []string{"A", "B"}[i%2]})
	}

	res, err := Freeze(records, schema, DefaultOptions())
	require.NoError(t, err)
	defer res.Batch.Release()

	assert.Equal(t, columnar.KindDictionaryString, res.Batch.Schema().Fields[1].Kind)
}

func TestFreeze_HighCardinalityStringStaysPlain(t *testing.T) {
	schema := schemaFor(t)
	records := make([]widget, 0, 100)
	for i := 0; i < 100; i++ {
		records = append(records, widget{ID: int64(i), Cat: string(rune('A' + i))})
	}

	res, err := Freeze(records, schema, DefaultOptions())
	require.NoError(t, err)
	defer res.Batch.Release()

	assert.Equal(t, columnar.KindString, res.Batch.Schema().Fields[1].Kind)
}

func TestFreeze_ZoneMapOmittedBelowTwiceChunkSize(t *testing.T) {
	schema := schemaFor(t)
	opts := DefaultOptions()
	opts.ZoneMapChunkSize = 100

	records := make([]widget, 0, 150)
	for i := 0; i < 150; i++ {
		records = append(records, widget{ID: int64(i), Cat: "A"})
	}
	res, err := Freeze(records, schema, opts)
	require.NoError(t, err)
	defer res.Batch.Release()

	_, hasZoneMap := res.ZoneMaps[0]
	assert.False(t, hasZoneMap, "zone map should be omitted below 2*chunk_size rows")
}

func TestFreeze_ZoneMapBuiltAtTwiceChunkSize(t *testing.T) {
	schema := schemaFor(t)
	opts := DefaultOptions()
	opts.ZoneMapChunkSize = 100

	records := make([]widget, 0, 200)
	for i := 0; i < 200; i++ {
		records = append(records, widget{ID: int64(i), Cat: "A"})
	}
	res, err := Freeze(records, schema, opts)
	require.NoError(t, err)
	defer res.Batch.Release()

	zm, ok := res.ZoneMaps[0]
	require.True(t, ok)
	assert.Equal(t, 2, zm.NumChunks())
}

func TestFreeze_SchemaHintRejectsInvalidRecord(t *testing.T) {
	schema := schemaFor(t)
	opts := DefaultOptions()
	opts.SchemaHint = []byte(`{
		"type": "object",
		"properties": {"id": {"type": "integer", "minimum": 0}},
		"required": ["id"]
	}`)

	records := []widget{{ID: -1, Cat: "A"}}
	_, err := Freeze(records, schema, opts)
	require.Error(t, err)
	var mismatch *ErrSchemaMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestFreeze_SchemaHintAcceptsValidRecord(t *testing.T) {
	schema := schemaFor(t)
	opts := DefaultOptions()
	opts.SchemaHint = []byte(`{
		"type": "object",
		"properties": {"id": {"type": "integer", "minimum": 0}},
		"required": ["id"]
	}`)

	records := []widget{{ID: 1, Cat: "A"}}
	res, err := Freeze(records, schema, opts)
	require.NoError(t, err)
	defer res.Batch.Release()
	assert.Equal(t, 1, res.Batch.Len())
}

func TestFreeze_EmptyInputProducesZeroRows(t *testing.T) {
	schema := schemaFor(t)
	res, err := Freeze[widget](nil, schema, DefaultOptions())
	require.NoError(t, err)
	defer res.Batch.Release()
	assert.Equal(t, 0, res.Batch.Len())
}

func TestDistinctSampler_EstimateScalesUnderSampling(t *testing.T) {
	s := newDistinctSampler()
	for _, v := range []string{"a", "b", "c"} {
		s.Observe(v)
	}
	// 3 distinct observed out of a 30-row sample drawn from 300 total rows.
	assert.Equal(t, int64(30), s.Estimate(30, 300))
}

func TestDistinctSampler_EstimateExactWhenFullyScanned(t *testing.T) {
	s := newDistinctSampler()
	for _, v := range []string{"a", "b"} {
		s.Observe(v)
	}
	assert.Equal(t, int64(2), s.Estimate(50, 50))
}
