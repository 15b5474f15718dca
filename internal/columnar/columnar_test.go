package columnar

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildSampleBatch(t *testing.T) *Batch {
	t.Helper()
	schema := &Schema{Fields: []Field{
		{Name: "Id", Kind: KindInt32, Nullable: false},
		{Name: "Score", Kind: KindFloat64, Nullable: true},
		{Name: "Active", Kind: KindBool, Nullable: false},
		{Name: "Cat", Kind: KindDictionaryString, Nullable: false},
	}}
	idB, err := NewBuilder(schema.Fields[0])
	require.NoError(t, err)
	scoreB, err := NewBuilder(schema.Fields[1])
	require.NoError(t, err)
	activeB, err := NewBuilder(schema.Fields[2])
	require.NoError(t, err)
	catB, err := NewBuilder(schema.Fields[3])
	require.NoError(t, err)

	rows := []struct {
		id     int64
		score  float64
		hasSc  bool
		active bool
		cat    string
	}{
		{1, 85.5, true, true, "A"},
		{2, 92.0, true, true, "A"},
		{3, 0, false, false, "B"},
	}
	for _, r := range rows {
		require.NoError(t, idB.AppendInt64(r.id))
		if r.hasSc {
			require.NoError(t, scoreB.AppendFloat64(r.score))
		} else {
			scoreB.AppendNull()
		}
		require.NoError(t, activeB.AppendBool(r.active))
		require.NoError(t, catB.AppendString(r.cat))
	}

	rec, err := NewRecordFromBuilders(schema, []*Builder{idB, scoreB, activeB, catB})
	require.NoError(t, err)
	defer rec.Release()

	batch, err := NewBatch(rec)
	require.NoError(t, err)
	return batch
}

func TestBatch_TypedAccessors(t *testing.T) {
	b := buildSampleBatch(t)
	defer b.Release()

	require.Equal(t, 3, b.Len())

	v, ok := b.Float64At(0, 0)
	require.True(t, ok)
	require.Equal(t, float64(1), v)

	_, ok = b.Float64At(1, 2)
	require.False(t, ok, "null score at row 2")

	active, ok := b.BoolAt(2, 0)
	require.True(t, ok)
	require.True(t, active)

	cat, ok := b.StringAt(3, 1)
	require.True(t, ok)
	require.Equal(t, "A", cat)

	idx, ok := b.DictionaryIndex(3, 0)
	require.True(t, ok)
	require.GreaterOrEqual(t, idx, 0)

	values, err := b.DictionaryValues(3)
	require.NoError(t, err)
	require.Contains(t, values, "A")
	require.Contains(t, values, "B")
}

func TestBatch_Slice_IsZeroCopyView(t *testing.T) {
	b := buildSampleBatch(t)
	defer b.Release()

	s := b.Slice(1, 3)
	defer s.Release()
	require.Equal(t, 2, s.Len())
	v, ok := s.Float64At(0, 0)
	require.True(t, ok)
	require.Equal(t, float64(2), v)
}

func TestSchema_ArrowRoundTrip(t *testing.T) {
	schema := &Schema{Fields: []Field{
		{Name: "A", Kind: KindInt64, Nullable: true},
		{Name: "B", Kind: KindTimestampMicro, Nullable: false, TimeZone: "UTC"},
	}}
	as, err := schema.ToArrow()
	require.NoError(t, err)

	back, err := FromArrow(as)
	require.NoError(t, err)
	require.Equal(t, schema.Fields, back.Fields)
}

func TestWriteStream_ReadStream_Uncompressed(t *testing.T) {
	b := buildSampleBatch(t)
	defer b.Release()

	var buf bytes.Buffer
	require.NoError(t, WriteStream(&buf, b, CompressionNone))

	back, err := ReadStream(&buf, CompressionNone)
	require.NoError(t, err)
	defer back.Release()

	require.Equal(t, b.Len(), back.Len())
}
