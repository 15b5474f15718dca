package physicalplan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/colbeam/internal/logicalplan"
)

func TestChooseStrategy_Thresholds(t *testing.T) {
	cfg := DefaultConfig()

	small := Plan(&logicalplan.Scan{RowCount: 500}, cfg)
	assert.Equal(t, Sequential, small.Strategy)

	mid := Plan(&logicalplan.Scan{RowCount: 10000}, cfg)
	assert.Equal(t, SIMD, mid.Strategy)

	large := Plan(&logicalplan.Scan{RowCount: 1_000_000}, cfg)
	require.Equal(t, Parallel, large.Strategy)
	assert.Equal(t, DefaultChunkSize, large.ChunkSize)
}

func TestChooseStrategy_NoSIMDKernelFallsBackToSequential(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllPredicatesHaveSIMD = func(logicalplan.Node) bool { return false }

	mid := Plan(&logicalplan.Scan{RowCount: 10000}, cfg)
	assert.Equal(t, Sequential, mid.Strategy)
}

func TestChooseStrategy_ParallelDisabledFallsBackToSIMD(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ParallelEnabled = false

	large := Plan(&logicalplan.Scan{RowCount: 1_000_000}, cfg)
	assert.Equal(t, SIMD, large.Strategy)
}

func TestPlan_FusesFilterAggregate(t *testing.T) {
	cfg := DefaultConfig()
	scan := &logicalplan.Scan{RowCount: 1000}
	filter := &logicalplan.Filter{Input: scan, Fusable: true}
	agg := &logicalplan.Aggregate{Input: filter, Op: logicalplan.AggSum, Column: 0}

	node := Plan(agg, cfg)
	assert.Equal(t, Fused, node.Strategy)
	require.Len(t, node.Children, 1)
	assert.Equal(t, "Scan", kindName(node.Children[0].Logical))
}

func TestPlan_NonFusableFilterAggregateStaysSeparate(t *testing.T) {
	cfg := DefaultConfig()
	scan := &logicalplan.Scan{RowCount: 1000}
	filter := &logicalplan.Filter{Input: scan, Fusable: false}
	agg := &logicalplan.Aggregate{Input: filter, Op: logicalplan.AggSum, Column: 0}

	node := Plan(agg, cfg)
	assert.NotEqual(t, Fused, node.Strategy)
	require.Len(t, node.Children, 1)
	assert.Equal(t, "Filter", kindName(node.Children[0].Logical))
}

func TestDescribe_RendersIndentedTree(t *testing.T) {
	cfg := DefaultConfig()
	scan := &logicalplan.Scan{RowCount: 500}
	filter := &logicalplan.Filter{Input: scan, EstimatedSelectivity: 0.5}

	node := Plan(filter, cfg)
	out := node.ToDescription().String()
	assert.True(t, strings.HasPrefix(out, "Filter["))
	assert.Contains(t, out, "  Scan[")
}

func TestStrategy_String(t *testing.T) {
	assert.Equal(t, "sequential", Sequential.String())
	assert.Equal(t, "simd", SIMD.String())
	assert.Equal(t, "parallel", Parallel.String())
	assert.Equal(t, "fused", Fused.String())
}
