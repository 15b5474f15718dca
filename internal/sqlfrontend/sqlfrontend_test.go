package sqlfrontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectStar(t *testing.T) {
	q, err := Parse("SELECT * FROM widgets")
	require.NoError(t, err)
	assert.Equal(t, "widgets", q.Table)
	assert.Nil(t, q.Columns)
}

func TestParseColumnList(t *testing.T) {
	q, err := Parse("SELECT name, price FROM widgets")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "price"}, q.Columns)
}

func TestParseWhereComparison(t *testing.T) {
	q, err := Parse("SELECT * FROM widgets WHERE price > 10")
	require.NoError(t, err)
	require.NotNil(t, q.Where)
	cmp, ok := q.Where.(*Comparison)
	require.True(t, ok)
	assert.Equal(t, "price", cmp.Column)
	assert.Equal(t, Gt, cmp.Op)
	assert.Equal(t, float64(10), cmp.Value)
}

func TestParseWhereBetween(t *testing.T) {
	q, err := Parse("SELECT * FROM widgets WHERE price BETWEEN 1 AND 10")
	require.NoError(t, err)
	between, ok := q.Where.(*Between)
	require.True(t, ok)
	assert.Equal(t, "price", between.Column)
	assert.Equal(t, float64(1), between.Lo)
	assert.Equal(t, float64(10), between.Hi)
}

func TestParseWhereNotBetween(t *testing.T) {
	q, err := Parse("SELECT * FROM widgets WHERE price NOT BETWEEN 1 AND 10")
	require.NoError(t, err)
	not, ok := q.Where.(*Not)
	require.True(t, ok)
	_, ok = not.Child.(*Between)
	assert.True(t, ok)
}

func TestParseWhereIsNull(t *testing.T) {
	q, err := Parse("SELECT * FROM widgets WHERE category IS NULL")
	require.NoError(t, err)
	nt, ok := q.Where.(*NullTest)
	require.True(t, ok)
	assert.True(t, nt.IsNull)
}

func TestParseWhereIsNotNull(t *testing.T) {
	q, err := Parse("SELECT * FROM widgets WHERE category IS NOT NULL")
	require.NoError(t, err)
	nt, ok := q.Where.(*NullTest)
	require.True(t, ok)
	assert.False(t, nt.IsNull)
}

func TestParseWhereLikeAndILike(t *testing.T) {
	q, err := Parse("SELECT * FROM widgets WHERE name LIKE 'wid%'")
	require.NoError(t, err)
	sm, ok := q.Where.(*StringMatch)
	require.True(t, ok)
	assert.Equal(t, "wid%", sm.Pattern)
	assert.True(t, sm.CaseSensitive)

	q, err = Parse("SELECT * FROM widgets WHERE name ILIKE 'wid%'")
	require.NoError(t, err)
	sm, ok = q.Where.(*StringMatch)
	require.True(t, ok)
	assert.False(t, sm.CaseSensitive)
}

func TestParseWhereAndOrNot(t *testing.T) {
	q, err := Parse("SELECT * FROM widgets WHERE price > 1 AND (category = 'hardware' OR NOT in_stock = true)")
	require.NoError(t, err)
	and, ok := q.Where.(*And)
	require.True(t, ok)
	assert.Len(t, and.Children, 2)
	_, ok = and.Children[1].(*Or)
	assert.True(t, ok)
}

func TestParseOrderByAscDesc(t *testing.T) {
	q, err := Parse("SELECT * FROM widgets ORDER BY price DESC, name ASC")
	require.NoError(t, err)
	require.Len(t, q.OrderBy, 2)
	assert.Equal(t, "price", q.OrderBy[0].Column)
	assert.True(t, q.OrderBy[0].Desc)
	assert.Equal(t, "name", q.OrderBy[1].Column)
	assert.False(t, q.OrderBy[1].Desc)
}

func TestParseLimitOffset(t *testing.T) {
	q, err := Parse("SELECT * FROM widgets LIMIT 5 OFFSET 10")
	require.NoError(t, err)
	require.NotNil(t, q.Limit)
	require.NotNil(t, q.Offset)
	assert.Equal(t, int64(5), *q.Limit)
	assert.Equal(t, int64(10), *q.Offset)
}

func TestParseDistinct(t *testing.T) {
	q, err := Parse("SELECT DISTINCT category FROM widgets")
	require.NoError(t, err)
	assert.True(t, q.Distinct)
}

func TestParseRejectsJoins(t *testing.T) {
	_, err := Parse("SELECT * FROM widgets, gadgets")
	assert.Error(t, err)
}

func TestParseRejectsMultipleStatements(t *testing.T) {
	_, err := Parse("SELECT * FROM widgets; SELECT * FROM gadgets")
	assert.Error(t, err)
}

func TestParseRejectsNonSelect(t *testing.T) {
	_, err := Parse("DELETE FROM widgets")
	assert.Error(t, err)
}
