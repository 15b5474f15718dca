package colbeam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/colbeam/internal/columnar"
)

func sampleSchema() *columnar.Schema {
	return &columnar.Schema{Fields: []columnar.Field{
		{Name: "id", Kind: columnar.KindInt64},
		{Name: "price", Kind: columnar.KindFloat64},
		{Name: "name", Kind: columnar.KindString},
		{Name: "active", Kind: columnar.KindBool},
	}}
}

func TestEqCompilesNumericComparison(t *testing.T) {
	schema := sampleSchema()
	pred, err := Eq("id", int64(7)).compile(schema)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0}, pred.ReferencedColumns())
}

func TestEqOnStringColumnCompilesStringEquality(t *testing.T) {
	schema := sampleSchema()
	pred, err := Eq("name", "widget").compile(schema)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{2}, pred.ReferencedColumns())
}

func TestEqOnStringColumnRejectsNonStringConstant(t *testing.T) {
	schema := sampleSchema()
	_, err := Eq("name", 42).compile(schema)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTypeMismatch))
}

func TestLtOnStringColumnIsUnsupported(t *testing.T) {
	schema := sampleSchema()
	_, err := Lt("name", "a").compile(schema)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnsupportedExpression))
}

func TestBetweenCompiles(t *testing.T) {
	schema := sampleSchema()
	pred, err := Between("price", 1.0, 10.0).compile(schema)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1}, pred.ReferencedColumns())
}

func TestUnknownColumnIsUnsupportedExpression(t *testing.T) {
	schema := sampleSchema()
	_, err := Eq("missing", 1).compile(schema)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnsupportedExpression))
}

func TestAndOrNotCompileChildren(t *testing.T) {
	schema := sampleSchema()
	expr := And(Eq("id", int64(1)), Or(Gt("price", 1.0), IsNull("name")))
	pred, err := expr.compile(schema)
	require.NoError(t, err)
	assert.NotEmpty(t, pred.ReferencedColumns())
}

func TestCaseInsensitiveOnStringEquality(t *testing.T) {
	schema := sampleSchema()
	expr := CaseInsensitive(Eq("name", "Widget"))
	pred, err := expr.compile(schema)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{2}, pred.ReferencedColumns())
}

func TestContainsRequiresStringColumn(t *testing.T) {
	schema := sampleSchema()
	_, err := Contains("price", "abc").compile(schema)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnsupportedPredicate))
}
