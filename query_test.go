package colbeam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freezeProducts(t *testing.T) *Frozen[product] {
	t.Helper()
	frozen, err := Freeze[product](sampleProducts(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(frozen.Release)
	return frozen
}

func TestWhereFiltersRows(t *testing.T) {
	frozen := freezeProducts(t)
	rows, err := frozen.Query().Where(Gt("price", 10.0)).ToList(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestWhereChainIsConjunctive(t *testing.T) {
	frozen := freezeProducts(t)
	rows, err := frozen.Query().
		Where(Eq("category", "hardware")).
		Where(Gt("price", 5.0)).
		ToList(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "widget", rows[0].Name)
}

func TestSelectProjectsColumns(t *testing.T) {
	frozen := freezeProducts(t)
	batch, err := frozen.Query().Select("name", "price").ToBatch(context.Background())
	require.NoError(t, err)
	defer batch.Release()
	assert.Equal(t, 2, len(batch.Schema().Fields))
}

func TestOrderByLimitOffset(t *testing.T) {
	frozen := freezeProducts(t)
	rows, err := frozen.Query().
		OrderBy("price", false).
		Offset(1).
		Limit(2).
		ToList(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "widget", rows[0].Name)
	assert.Equal(t, "gadget", rows[1].Name)
}

func TestCountAndAny(t *testing.T) {
	frozen := freezeProducts(t)
	n, err := frozen.Query().Where(Eq("category", "hardware")).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	any, err := frozen.Query().Where(Eq("category", "nonexistent")).Any(context.Background())
	require.NoError(t, err)
	assert.False(t, any)
}

func TestFirstAndFirstOrDefault(t *testing.T) {
	frozen := freezeProducts(t)
	_, err := frozen.Query().Where(Eq("category", "nonexistent")).First(context.Background())
	require.ErrorIs(t, err, ErrNoElements)

	got, err := frozen.Query().Where(Eq("category", "nonexistent")).FirstOrDefault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, product{}, got)
}

func TestSumAvgMinMax(t *testing.T) {
	frozen := freezeProducts(t)

	sum, err := frozen.Query().Sum(context.Background(), "price")
	require.NoError(t, err)
	assert.InDelta(t, 64.96, sum, 0.01)

	avg, err := frozen.Query().Avg(context.Background(), "price")
	require.NoError(t, err)
	assert.InDelta(t, 16.24, avg, 0.01)

	min, err := frozen.Query().Min(context.Background(), "price")
	require.NoError(t, err)
	assert.InDelta(t, 4.99, min, 0.01)

	max, err := frozen.Query().Max(context.Background(), "price")
	require.NoError(t, err)
	assert.InDelta(t, 29.99, max, 0.01)
}

func TestAggregateOverEmptyInputReturnsNoElements(t *testing.T) {
	frozen := freezeProducts(t)
	_, err := frozen.Query().Where(Eq("category", "nonexistent")).Avg(context.Background(), "price")
	require.ErrorIs(t, err, ErrNoElements)

	sum, err := frozen.Query().Where(Eq("category", "nonexistent")).Sum(context.Background(), "price")
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum)
}

func TestGroupByResult(t *testing.T) {
	frozen := freezeProducts(t)
	result, err := frozen.Query().GroupBy("category", Count("n"), Sum("price", "total")).GroupByResult(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
}

func TestGroupByResultRequiresGroupBy(t *testing.T) {
	frozen := freezeProducts(t)
	_, err := frozen.Query().GroupByResult(context.Background())
	require.Error(t, err)
}

func TestWhereFuncRequiresFallbackAllowed(t *testing.T) {
	frozen := freezeProducts(t)
	_, err := frozen.Query().WhereFunc(func(p product) bool { return true }).ToList(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnsupportedExpression))
}

func TestWhereFuncAppliesHostPredicate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exec.FallbackAllowed = true
	frozen, err := Freeze[product](sampleProducts(), nil, cfg)
	require.NoError(t, err)
	defer frozen.Release()

	rows, err := frozen.Query().WhereFunc(func(p product) bool {
		return len(p.Name) == 6
	}).ToList(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2) // "widget" and "gadget"
}

func TestToLazySequence(t *testing.T) {
	frozen := freezeProducts(t)
	seq, err := frozen.Query().Where(Eq("category", "hardware")).ToLazySequence(context.Background())
	require.NoError(t, err)

	var names []string
	for p := range seq {
		names = append(names, p.Name)
	}
	assert.Len(t, names, 3)
}

func TestDistinct(t *testing.T) {
	frozen := freezeProducts(t)
	rows, err := frozen.Query().Select("category").Distinct().ToList(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
