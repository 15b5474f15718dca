package logicalplan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lychee-technology/colbeam/internal/predicate"
)

func TestScan_EstimatedRows_HonorsLimitHint(t *testing.T) {
	s := &Scan{RowCount: 1000, LimitHint: 10}
	assert.Equal(t, int64(10), s.EstimatedRows())
}

func TestScan_EstimatedRows_IgnoresLimitHintAboveRowCount(t *testing.T) {
	s := &Scan{RowCount: 5, LimitHint: 100}
	assert.Equal(t, int64(5), s.EstimatedRows())
}

func TestFilter_EstimatedRows_AppliesSelectivity(t *testing.T) {
	f := &Filter{
		Input:                &Scan{RowCount: 1000},
		Predicates:           []predicate.Predicate{&predicate.Comparison{Column: 0, Op: predicate.Gt, Constant: 1}},
		EstimatedSelectivity: 0.25,
	}
	assert.Equal(t, int64(250), f.EstimatedRows())
}

func TestAggregate_EstimatedRows_IsAlwaysOne(t *testing.T) {
	a := &Aggregate{Input: &Scan{RowCount: 500}, Op: AggSum, Column: 0}
	assert.Equal(t, int64(1), a.EstimatedRows())
}

func TestGroupBy_EstimatedRows_PrefersGroupEstimate(t *testing.T) {
	g := &GroupBy{Input: &Scan{RowCount: 1000}, EstimatedGroups: 10}
	assert.Equal(t, int64(10), g.EstimatedRows())
}

func TestGroupBy_EstimatedRows_FallsBackToInput(t *testing.T) {
	g := &GroupBy{Input: &Scan{RowCount: 1000}}
	assert.Equal(t, int64(1000), g.EstimatedRows())
}

func TestLimit_EstimatedRows_ClampsToInput(t *testing.T) {
	l := &Limit{Input: &Scan{RowCount: 5}, N: 100}
	assert.Equal(t, int64(5), l.EstimatedRows())
}

func TestOffset_EstimatedRows_NeverNegative(t *testing.T) {
	o := &Offset{Input: &Scan{RowCount: 5}, N: 100}
	assert.Equal(t, int64(0), o.EstimatedRows())
}

func TestOffset_EstimatedRows_Subtracts(t *testing.T) {
	o := &Offset{Input: &Scan{RowCount: 100}, N: 40}
	assert.Equal(t, int64(60), o.EstimatedRows())
}

func TestAggregateOp_String(t *testing.T) {
	cases := map[AggregateOp]string{
		AggCount: "count",
		AggSum:   "sum",
		AggAvg:   "avg",
		AggMin:   "min",
		AggMax:   "max",
	}
	for op, want := range cases {
		assert.Equal(t, want, op.String())
	}
}

func TestProjectAndDistinctAndSort_PassThroughInputRows(t *testing.T) {
	scan := &Scan{RowCount: 42}
	assert.Equal(t, int64(42), (&Project{Input: scan}).EstimatedRows())
	assert.Equal(t, int64(42), (&Distinct{Input: scan}).EstimatedRows())
	assert.Equal(t, int64(42), (&Sort{Input: scan}).EstimatedRows())
}
