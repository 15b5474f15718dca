package exec

import (
	"context"
	"sort"
	"time"

	"github.com/lychee-technology/colbeam/internal/columnar"
	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/metrics"
	"github.com/lychee-technology/colbeam/internal/physicalplan"
)

// execSort stably reorders the child's selected rows by node.Keys.
func (e *Executor) execSort(ctx context.Context, node *physicalplan.Node, n *logicalplan.Sort) (*QueryResult, error) {
	child, err := e.childResult(ctx, node)
	if err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	start := time.Now()

	idx := child.Selected.ToIndices()
	ordered := make([]int, len(idx))
	copy(ordered, idx)

	less := e.sortLess(n.Keys)
	sort.SliceStable(ordered, func(i, j int) bool { return less(ordered[i], ordered[j]) })
	metrics.EmitStageLatency(ctx, "sort", time.Since(start).Microseconds())

	return &QueryResult{Batch: child.Batch, Selected: FromIndices(ordered), ProjectedColumns: child.ProjectedColumns}, nil
}

// sortLess builds a comparator over composite sort keys, each honoring its
// own direction, falling through to the next key on a tie.
func (e *Executor) sortLess(keys []logicalplan.SortKey) func(a, b int) bool {
	return func(a, b int) bool {
		for _, k := range keys {
			cmp := e.compareAt(k.Column, a, b)
			if cmp == 0 {
				continue
			}
			if k.Direction == logicalplan.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	}
}

// compareAt returns -1, 0, or 1 comparing rows a and b in column col. A
// null sorts before any non-null value, matching the teacher pack's
// convention for EAV attribute ordering.
func (e *Executor) compareAt(col, a, b int) int {
	field := e.Batch.Schema().Fields[col]
	validA := e.Batch.IsValid(col, a)
	validB := e.Batch.IsValid(col, b)
	if !validA || !validB {
		switch {
		case !validA && !validB:
			return 0
		case !validA:
			return -1
		default:
			return 1
		}
	}
	if field.Kind == columnar.KindString || field.Kind == columnar.KindDictionaryString {
		va, _ := e.Batch.StringAt(col, a)
		vb, _ := e.Batch.StringAt(col, b)
		return compareOrdered(va, vb)
	}
	if field.Kind == columnar.KindBool {
		va, _ := e.Batch.BoolAt(col, a)
		vb, _ := e.Batch.BoolAt(col, b)
		return compareOrdered(boolRank(va), boolRank(vb))
	}
	va, _ := e.Batch.Float64At(col, a)
	vb, _ := e.Batch.Float64At(col, b)
	return compareOrdered(va, vb)
}

func boolRank(v bool) int {
	if v {
		return 1
	}
	return 0
}
