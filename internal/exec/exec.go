// Package exec walks a physical plan and executes it against one frozen
// batch: vectorized predicate evaluation, fused filter+aggregate, parallel
// chunk scheduling, grouping, sorting, and pagination (spec.md §4.6).
package exec

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/lychee-technology/colbeam/internal/bitmap"
	"github.com/lychee-technology/colbeam/internal/columnar"
	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/physicalplan"
	"github.com/lychee-technology/colbeam/internal/predicate"
	"github.com/lychee-technology/colbeam/internal/zonemap"
)

// ErrCancelled is returned when the caller's context is done or an
// explicit cancellation token fired between chunks or operator
// boundaries (spec.md §5).
var ErrCancelled = errors.New("exec: cancelled")

// QueryResult is the executor's output for every row-returning node:
// a batch, the rows selected from it, and an optional column projection.
type QueryResult struct {
	Batch            *columnar.Batch
	Selected         Selection
	ProjectedColumns []string // nil => every column
	// Metadata carries caller-attached, query-scoped diagnostics (e.g. a
	// correlation ID) through to the renderer. Never inspected by the
	// executor itself.
	Metadata map[string]any
}

// Scalar is the executor's output for a terminal (non-grouped) Aggregate.
type Scalar struct {
	// Present is false when the aggregate had no input rows to reduce
	// (spec.md §8 "NoElements" boundary behavior for avg/min/max/first;
	// count and sum report 0/0.0 with Present still true).
	Present bool
	Value   float64
	Count   int64
}

// GroupRow is one output row of a GroupBy: the group key rendered as a
// string plus one float64 per requested aggregation, keyed by output name.
type GroupRow struct {
	Key     string
	Count   int64
	Results map[string]float64
}

// GroupedResult is the executor's output for a GroupBy node.
type GroupedResult struct {
	KeyName string
	Rows    []GroupRow
}

// Output is the tagged result of executing one physical plan: exactly one
// field is populated, matching the root logical node's kind.
type Output struct {
	Result *QueryResult
	Scalar *Scalar
	Groups *GroupedResult
}

// Executor runs physical plans against one batch.
type Executor struct {
	Batch    *columnar.Batch
	ZoneMaps map[int]*zonemap.ZoneMap
	Stats    map[int]zonemap.ColumnStatistics
	// Workers caps the bounded pool used by Parallel-strategy nodes; <= 1
	// disables parallelism regardless of the physical plan's choice.
	Workers int
}

// NewExecutor constructs an Executor bound to one batch and its published
// zone maps / statistics.
func NewExecutor(batch *columnar.Batch, zoneMaps map[int]*zonemap.ZoneMap, stats map[int]zonemap.ColumnStatistics) *Executor {
	return &Executor{Batch: batch, ZoneMaps: zoneMaps, Stats: stats, Workers: defaultWorkers()}
}

func (e *Executor) evalContext() *predicate.EvalContext {
	return &predicate.EvalContext{Batch: e.Batch, ZoneMaps: e.ZoneMaps, Stats: e.Stats}
}

// Execute walks node and returns its Output, threading ctx for
// cancellation checks at chunk and operator boundaries.
func (e *Executor) Execute(ctx context.Context, node *physicalplan.Node) (*Output, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	switch logical := node.Logical.(type) {
	case *logicalplan.Scan:
		return &Output{Result: e.execScan(logical)}, nil
	case *logicalplan.Filter:
		res, err := e.execFilter(ctx, node, logical)
		if err != nil {
			return nil, err
		}
		return &Output{Result: res}, nil
	case *logicalplan.Project:
		res, err := e.execProject(ctx, node, logical)
		if err != nil {
			return nil, err
		}
		return &Output{Result: res}, nil
	case *logicalplan.Aggregate:
		if node.Strategy == physicalplan.Fused {
			sc, err := e.execFusedAggregate(ctx, node, logical)
			if err != nil {
				return nil, err
			}
			return &Output{Scalar: sc}, nil
		}
		sc, err := e.execAggregate(ctx, node, logical)
		if err != nil {
			return nil, err
		}
		return &Output{Scalar: sc}, nil
	case *logicalplan.GroupBy:
		g, err := e.execGroupBy(ctx, node, logical)
		if err != nil {
			return nil, err
		}
		return &Output{Groups: g}, nil
	case *logicalplan.Sort:
		res, err := e.execSort(ctx, node, logical)
		if err != nil {
			return nil, err
		}
		return &Output{Result: res}, nil
	case *logicalplan.Distinct:
		res, err := e.execDistinct(ctx, node, logical)
		if err != nil {
			return nil, err
		}
		return &Output{Result: res}, nil
	case *logicalplan.Limit:
		res, err := e.execLimit(ctx, node, logical)
		if err != nil {
			return nil, err
		}
		return &Output{Result: res}, nil
	case *logicalplan.Offset:
		res, err := e.execOffset(ctx, node, logical)
		if err != nil {
			return nil, err
		}
		return &Output{Result: res}, nil
	default:
		return nil, fmt.Errorf("exec: unknown logical node %T", logical)
	}
}

// childResult executes node's sole child and requires a row-returning
// QueryResult back (every non-Scan node but Aggregate/GroupBy terminators
// consumes one).
func (e *Executor) childResult(ctx context.Context, node *physicalplan.Node) (*QueryResult, error) {
	if len(node.Children) == 0 {
		return nil, fmt.Errorf("exec: node %T has no child to execute", node.Logical)
	}
	out, err := e.Execute(ctx, node.Children[0])
	if err != nil {
		return nil, err
	}
	if out.Result == nil {
		return nil, fmt.Errorf("exec: child of %T did not produce a row result", node.Logical)
	}
	return out.Result, nil
}

func checkCancelled(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ErrCancelled
	default:
		return nil
	}
}

func defaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}

// acquireBitmap is a small indirection so every operator allocating a
// scoped selection bitmap goes through the shared pool (spec.md §4.2's
// "returned to a pool on drop" ownership rule).
func acquireBitmap(n int) *bitmap.Bitmap { return bitmap.Acquire(n) }

func releaseBitmap(b *bitmap.Bitmap) { bitmap.Release(b) }
