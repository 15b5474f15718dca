package exec

import (
	"context"
	"time"

	"github.com/lychee-technology/colbeam/internal/bitmap"
	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/metrics"
	"github.com/lychee-technology/colbeam/internal/physicalplan"
	"github.com/lychee-technology/colbeam/internal/predicate"
)

// combinedPredicate ANDs a Filter node's predicate list into one evaluator
// (the list's entries are implicitly conjoined per logicalplan.Filter).
func combinedPredicate(preds []predicate.Predicate) predicate.Predicate {
	if len(preds) == 1 {
		return preds[0]
	}
	return &predicate.And{Children: preds}
}

// execFilter narrows the child's selection to the rows satisfying node's
// predicates, honoring the physical plan's chosen strategy.
func (e *Executor) execFilter(ctx context.Context, node *physicalplan.Node, n *logicalplan.Filter) (*QueryResult, error) {
	child, err := e.childResult(ctx, node)
	if err != nil {
		return nil, err
	}
	pred := combinedPredicate(n.Predicates)
	start := time.Now()
	inputRows := child.Selected.Len()

	if node.Strategy != physicalplan.Parallel {
		bm := acquireBitmap(e.Batch.Len())
		defer releaseBitmap(bm)
		bm.ClearAll()
		child.Selected.ForEach(func(_, row int) bool {
			bm.Set(row)
			return true
		})
		if err := pred.Evaluate(e.evalContext(), bm); err != nil {
			return nil, err
		}
		idx := bm.ToIndices()
		metrics.EmitRowCounts(ctx, "filter", int64(inputRows), int64(len(idx)))
		metrics.EmitStageLatency(ctx, "filter", time.Since(start).Microseconds())
		return &QueryResult{Batch: child.Batch, Selected: FromIndices(idx), ProjectedColumns: child.ProjectedColumns}, nil
	}

	idx, err := e.filterParallel(ctx, node, child, pred)
	if err != nil {
		return nil, err
	}
	metrics.EmitRowCounts(ctx, "filter", int64(inputRows), int64(len(idx)))
	metrics.EmitStageLatency(ctx, "filter", time.Since(start).Microseconds())
	return &QueryResult{Batch: child.Batch, Selected: FromIndices(idx), ProjectedColumns: child.ProjectedColumns}, nil
}

// filterParallel evaluates pred over disjoint row chunks of child.Selected
// concurrently. Each chunk marks its rows in its own full-length bitmap over
// e.Batch and evaluates pred with an EvalContext that carries no zone maps,
// so zone-map chunk skipping does not happen on this path.
func (e *Executor) filterParallel(ctx context.Context, node *physicalplan.Node, child *QueryResult, pred predicate.Predicate) ([]int, error) {
	n := child.Selected.Len()
	chunkSize := node.ChunkSize
	if chunkSize <= 0 {
		chunkSize = physicalplan.DefaultChunkSize
	}
	chunks := numChunks(n, chunkSize)
	results := make([][]int, chunks)

	err := e.runChunks(ctx, chunks, func(gctx context.Context, c int) error {
		if err := checkCancelled(gctx); err != nil {
			return err
		}
		start, end := chunkBounds(c, chunkSize, n)
		sub := child.Selected.Slice(start, end)
		bm := bitmap.Acquire(e.Batch.Len())
		defer bitmap.Release(bm)
		bm.ClearAll()
		sub.ForEach(func(_, row int) bool {
			bm.Set(row)
			return true
		})
		evalCtx := &predicate.EvalContext{Batch: e.Batch, Stats: e.Stats}
		if err := pred.Evaluate(evalCtx, bm); err != nil {
			return err
		}
		results[c] = bm.ToIndices()
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]int, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}
