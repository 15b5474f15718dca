package zonemap

import (
	"testing"

	"github.com/lychee-technology/colbeam/internal/columnar"
	"github.com/stretchr/testify/require"
)

func buildInt32Batch(t *testing.T, values []int64) *columnar.Batch {
	t.Helper()
	schema := &columnar.Schema{Fields: []columnar.Field{{Name: "V", Kind: columnar.KindInt32}}}
	b, err := columnar.NewBuilder(schema.Fields[0])
	require.NoError(t, err)
	for _, v := range values {
		require.NoError(t, b.AppendInt64(v))
	}
	rec, err := columnar.NewRecordFromBuilders(schema, []*columnar.Builder{b})
	require.NoError(t, err)
	defer rec.Release()
	batch, err := columnar.NewBatch(rec)
	require.NoError(t, err)
	return batch
}

func TestBuild_ChunkBoundaries(t *testing.T) {
	values := make([]int64, 0, 40000)
	for i := int64(0); i < 40000; i++ {
		values = append(values, i)
	}
	batch := buildInt32Batch(t, values)
	defer batch.Release()

	z := Build(batch, 0, 16384)
	require.Equal(t, 3, z.NumChunks())
	require.Equal(t, float64(0), z.Min[0])
	require.Equal(t, float64(16383), z.Max[0])
	require.Equal(t, float64(16384), z.Min[1])
	require.Equal(t, float64(32767), z.Max[1])
	require.Equal(t, float64(32768), z.Min[2])
	require.Equal(t, float64(39999), z.Max[2])
	for _, p := range z.Present {
		require.True(t, p)
	}
}

func TestZoneMap_Intersects(t *testing.T) {
	z := &ZoneMap{
		ChunkSize: 10,
		Min:       []float64{0, 100},
		Max:       []float64{9, 109},
		Present:   []bool{true, true},
	}
	require.True(t, z.Intersects(0, 5, 5))
	require.False(t, z.Intersects(0, 10, 20))
	require.True(t, z.Intersects(1, 100, 100))
}

func TestZoneMap_AbsentChunkNeverIntersects(t *testing.T) {
	z := &ZoneMap{ChunkSize: 10, Min: []float64{0}, Max: []float64{9}, Present: []bool{false}}
	require.False(t, z.Intersects(0, 0, 9))
}

func TestShouldBuild(t *testing.T) {
	require.False(t, ShouldBuild(100, 16384))
	require.False(t, ShouldBuild(32767, 16384))
	require.True(t, ShouldBuild(32768, 16384))
}

func TestBuildColumnStatistics(t *testing.T) {
	batch := buildInt32Batch(t, []int64{5, 1, 9, 3})
	defer batch.Release()

	stats := BuildColumnStatistics(batch, 0, 0)
	require.Equal(t, int64(4), stats.TotalCount)
	require.True(t, stats.HasMinMax)
	require.Equal(t, float64(1), stats.Min)
	require.Equal(t, float64(9), stats.Max)
}
