package exec

import (
	"context"
	"math"

	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/physicalplan"
)

// accumulator folds one aggregate operator over a stream of (value, valid)
// pairs, in call order. Sum/Avg accumulate in float64 regardless of the
// source column's width (Open Question 3: widest-safe accumulator,
// chunk-index-order deterministic combine — see DESIGN.md).
type accumulator struct {
	op      logicalplan.AggregateOp
	count   int64
	sum     float64
	min     float64
	max     float64
	hasMin  bool
}

func newAccumulator(op logicalplan.AggregateOp) *accumulator {
	return &accumulator{op: op}
}

func (a *accumulator) observe(v float64, valid bool) {
	if a.op == logicalplan.AggCount {
		a.count++
		return
	}
	if !valid {
		return
	}
	a.count++
	switch a.op {
	case logicalplan.AggSum, logicalplan.AggAvg:
		a.sum += v
	case logicalplan.AggMin:
		if !a.hasMin || v < a.min {
			a.min = v
			a.hasMin = true
		}
	case logicalplan.AggMax:
		if !a.hasMin || v > a.max {
			a.max = v
			a.hasMin = true
		}
	}
}

// merge combines another accumulator's partial state into a, in the
// caller-supplied order (callers merge chunk-ordered partials for
// Sum/Avg so floating-point reduction stays reproducible; Count/Min/Max
// are commutative-associative and may merge in any order).
func (a *accumulator) merge(b *accumulator) {
	switch a.op {
	case logicalplan.AggCount, logicalplan.AggSum, logicalplan.AggAvg:
		a.count += b.count
		a.sum += b.sum
	case logicalplan.AggMin:
		if b.hasMin && (!a.hasMin || b.min < a.min) {
			a.min = b.min
			a.hasMin = true
		}
		a.count += b.count
	case logicalplan.AggMax:
		if b.hasMin && (!a.hasMin || b.max > a.max) {
			a.max = b.max
			a.hasMin = true
		}
		a.count += b.count
	}
}

func (a *accumulator) result() *Scalar {
	switch a.op {
	case logicalplan.AggCount:
		return &Scalar{Present: true, Value: float64(a.count), Count: a.count}
	case logicalplan.AggSum:
		return &Scalar{Present: true, Value: a.sum, Count: a.count}
	case logicalplan.AggAvg:
		if a.count == 0 {
			return &Scalar{Present: false, Value: math.NaN(), Count: 0}
		}
		return &Scalar{Present: true, Value: a.sum / float64(a.count), Count: a.count}
	case logicalplan.AggMin:
		if !a.hasMin {
			return &Scalar{Present: false, Count: 0}
		}
		return &Scalar{Present: true, Value: a.min, Count: a.count}
	case logicalplan.AggMax:
		if !a.hasMin {
			return &Scalar{Present: false, Count: 0}
		}
		return &Scalar{Present: true, Value: a.max, Count: a.count}
	default:
		return &Scalar{Present: false}
	}
}

// execAggregate reduces the child's selected rows to one Scalar.
func (e *Executor) execAggregate(ctx context.Context, node *physicalplan.Node, n *logicalplan.Aggregate) (*Scalar, error) {
	child, err := e.childResult(ctx, node)
	if err != nil {
		return nil, err
	}

	if node.Strategy != physicalplan.Parallel {
		acc := newAccumulator(n.Op)
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		child.Selected.ForEach(func(_, row int) bool {
			acc.observe(e.valueAt(n.Column, row))
			return true
		})
		return acc.result(), nil
	}

	total := child.Selected.Len()
	chunkSize := node.ChunkSize
	if chunkSize <= 0 {
		chunkSize = physicalplan.DefaultChunkSize
	}
	chunks := numChunks(total, chunkSize)
	partials := make([]*accumulator, chunks)
	err = e.runChunks(ctx, chunks, func(gctx context.Context, c int) error {
		if err := checkCancelled(gctx); err != nil {
			return err
		}
		start, end := chunkBounds(c, chunkSize, total)
		sub := child.Selected.Slice(start, end)
		acc := newAccumulator(n.Op)
		sub.ForEach(func(_, row int) bool {
			acc.observe(e.valueAt(n.Column, row))
			return true
		})
		partials[c] = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	final := newAccumulator(n.Op)
	for _, p := range partials { // chunk-index order: deterministic for sum/avg
		final.merge(p)
	}
	return final.result(), nil
}

// execFusedAggregate evaluates the fused Filter+Aggregate in one pass: the
// predicate bitmap is built once and the accumulator observes only its set
// rows, skipping the intermediate selected-index materialization a
// standalone Filter would otherwise produce.
func (e *Executor) execFusedAggregate(ctx context.Context, node *physicalplan.Node, n *logicalplan.Aggregate) (*Scalar, error) {
	filter, ok := n.Input.(*logicalplan.Filter)
	if !ok {
		return e.execAggregate(ctx, node, n)
	}
	// The fused path evaluates the predicate directly over the whole batch
	// and never walks filter.Input, so fusing is only sound when that input
	// is a bare Scan (no Offset/Limit/Sort/Distinct/Project row-set change
	// sits between the scan and the filter). Anything else falls back to
	// the unfused path, which does walk the child chain correctly.
	if _, scanInput := filter.Input.(*logicalplan.Scan); !scanInput {
		return e.execAggregate(ctx, node, n)
	}
	pred := combinedPredicate(filter.Predicates)
	bm := acquireBitmap(e.Batch.Len())
	defer releaseBitmap(bm)
	bm.SetAll()
	if err := pred.Evaluate(e.evalContext(), bm); err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	acc := newAccumulator(n.Op)
	bm.IterateSet(func(row int) bool {
		acc.observe(e.valueAt(n.Column, row))
		return true
	})
	return acc.result(), nil
}

// valueAt reads column col at row as (value, valid); col == -1 (bare
// count) always reports a valid zero.
func (e *Executor) valueAt(col, row int) (float64, bool) {
	if col < 0 {
		return 0, true
	}
	return e.Batch.Float64At(col, row)
}
