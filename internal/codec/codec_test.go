package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/colbeam/internal/columnar"
)

type row struct {
	ID      int64   `colbeam:"id"`
	Name    string  `colbeam:"name"`
	Score   float64 `colbeam:"score"`
	Active  bool    `colbeam:"active"`
	ignored string
}

func testSchema() *columnar.Schema {
	return &columnar.Schema{Fields: []columnar.Field{
		{Name: "id", Kind: columnar.KindInt64},
		{Name: "name", Kind: columnar.KindString},
		{Name: "score", Kind: columnar.KindFloat64},
		{Name: "active", Kind: columnar.KindBool},
	}}
}

func TestNew_RejectsNonStruct(t *testing.T) {
	_, err := New[int](testSchema())
	require.Error(t, err)
}

func TestReflectCodec_WriteThenReadRoundTrips(t *testing.T) {
	schema := testSchema()
	rc, err := New[row](schema)
	require.NoError(t, err)

	builders := make([]*columnar.Builder, len(schema.Fields))
	for i, f := range schema.Fields {
		b, err := columnar.NewBuilder(f)
		require.NoError(t, err)
		builders[i] = b
	}

	want := row{ID: 7, Name: "widget", Score: 3.5, Active: true}
	require.NoError(t, rc.Write(builders, want))

	rec, err := columnar.NewRecordFromBuilders(schema, builders)
	require.NoError(t, err)
	defer rec.Release()
	batch, err := columnar.NewBatch(rec)
	require.NoError(t, err)
	defer batch.Release()

	got, err := rc.Read(batch, 0)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Score, got.Score)
	assert.Equal(t, want.Active, got.Active)
}

func TestReflectCodec_UnexportedAndUntaggedFieldsIgnored(t *testing.T) {
	schema := testSchema()
	rc, err := New[row](schema)
	require.NoError(t, err)

	builders := make([]*columnar.Builder, len(schema.Fields))
	for i, f := range schema.Fields {
		b, err := columnar.NewBuilder(f)
		require.NoError(t, err)
		builders[i] = b
	}
	require.NoError(t, rc.Write(builders, row{ID: 1, Name: "a", ignored: "never written"}))

	rec, err := columnar.NewRecordFromBuilders(schema, builders)
	require.NoError(t, err)
	defer rec.Release()
	batch, err := columnar.NewBatch(rec)
	require.NoError(t, err)
	defer batch.Release()

	got, err := rc.Read(batch, 0)
	require.NoError(t, err)
	assert.Empty(t, got.ignored)
}

func TestReflectCodec_SchemaReturnsOriginal(t *testing.T) {
	schema := testSchema()
	rc, err := New[row](schema)
	require.NoError(t, err)
	assert.Same(t, schema, rc.Schema())
}
