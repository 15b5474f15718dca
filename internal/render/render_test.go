package render

import (
	"testing"

	"github.com/lychee-technology/colbeam/internal/codec"
	"github.com/lychee-technology/colbeam/internal/columnar"
	"github.com/lychee-technology/colbeam/internal/exec"
	"github.com/stretchr/testify/require"
)

type renderRow struct {
	ID       int64   `colbeam:"id"`
	Amount   float64 `colbeam:"amount"`
	Category string  `colbeam:"category"`
}

func buildRenderBatch(t *testing.T) *columnar.Batch {
	t.Helper()
	schema := &columnar.Schema{Fields: []columnar.Field{
		{Name: "id", Kind: columnar.KindInt32},
		{Name: "amount", Kind: columnar.KindFloat64},
		{Name: "category", Kind: columnar.KindDictionaryString},
	}}
	idB, err := columnar.NewBuilder(schema.Fields[0])
	require.NoError(t, err)
	amtB, err := columnar.NewBuilder(schema.Fields[1])
	require.NoError(t, err)
	catB, err := columnar.NewBuilder(schema.Fields[2])
	require.NoError(t, err)

	rows := []struct {
		id  int64
		amt float64
		cat string
	}{
		{1, 10, "a"},
		{2, 20, "b"},
		{3, 30, "a"},
	}
	for _, r := range rows {
		require.NoError(t, idB.AppendInt64(r.id))
		require.NoError(t, amtB.AppendFloat64(r.amt))
		require.NoError(t, catB.AppendString(r.cat))
	}

	rec, err := columnar.NewRecordFromBuilders(schema, []*columnar.Builder{idB, amtB, catB})
	require.NoError(t, err)
	defer rec.Release()
	batch, err := columnar.NewBatch(rec)
	require.NoError(t, err)
	return batch
}

func TestToListReadsSelectedRowsInOrder(t *testing.T) {
	batch := buildRenderBatch(t)
	defer batch.Release()
	rc, err := codec.New[renderRow](batch.Schema())
	require.NoError(t, err)

	result := &exec.QueryResult{Batch: batch, Selected: exec.FromIndices([]int{2, 0})}
	rows, err := ToList(result, rc)
	require.NoError(t, err)
	require.Equal(t, []renderRow{
		{ID: 3, Amount: 30, Category: "a"},
		{ID: 1, Amount: 10, Category: "a"},
	}, rows)
}

func TestToLazySequenceMatchesToList(t *testing.T) {
	batch := buildRenderBatch(t)
	defer batch.Release()
	rc, err := codec.New[renderRow](batch.Schema())
	require.NoError(t, err)

	result := &exec.QueryResult{Batch: batch, Selected: exec.FullRange(batch.Len())}
	want, err := ToList(result, rc)
	require.NoError(t, err)

	var got []renderRow
	for row := range ToLazySequence(result, rc) {
		got = append(got, row)
	}
	require.Equal(t, want, got)
}

func TestToBatchFullScanFullProjectionIsZeroCopy(t *testing.T) {
	batch := buildRenderBatch(t)
	defer batch.Release()
	result := &exec.QueryResult{Batch: batch, Selected: exec.FullRange(batch.Len())}

	out, err := ToBatch(result)
	require.NoError(t, err)
	defer out.Release()
	require.Same(t, batch.Record(), out.Record())
}

func TestToBatchColumnSubsetProjectsNames(t *testing.T) {
	batch := buildRenderBatch(t)
	defer batch.Release()
	result := &exec.QueryResult{
		Batch:            batch,
		Selected:         exec.FullRange(batch.Len()),
		ProjectedColumns: []string{"category", "amount"},
	}

	out, err := ToBatch(result)
	require.NoError(t, err)
	defer out.Release()
	require.Equal(t, 3, out.Len())
	require.Equal(t, []string{"category", "amount"}, fieldNames(out))
	v, ok := out.StringAt(0, 0)
	require.True(t, ok)
	require.Equal(t, "a", v)
}

func TestToBatchRowSubsetCopiesOnlySelectedRows(t *testing.T) {
	batch := buildRenderBatch(t)
	defer batch.Release()
	result := &exec.QueryResult{Batch: batch, Selected: exec.FromIndices([]int{2, 0})}

	out, err := ToBatch(result)
	require.NoError(t, err)
	defer out.Release()
	require.Equal(t, 2, out.Len())
	id0, _ := out.Float64At(0, 0)
	id1, _ := out.Float64At(0, 1)
	require.Equal(t, 3.0, id0)
	require.Equal(t, 1.0, id1)
}

func fieldNames(batch *columnar.Batch) []string {
	names := make([]string, len(batch.Schema().Fields))
	for i, f := range batch.Schema().Fields {
		names[i] = f.Name
	}
	return names
}
