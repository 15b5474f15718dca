package exec

import (
	"context"
	"strings"

	"github.com/lychee-technology/colbeam/internal/collections"
	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/physicalplan"
)

// execDistinct keeps the first occurrence of each distinct key over
// node.Columns (or, when node.Columns is empty, over the child's projected
// columns, or every column if nothing was projected), preserving scan
// order (spec.md §3's Distinct contract).
func (e *Executor) execDistinct(ctx context.Context, node *physicalplan.Node, n *logicalplan.Distinct) (*QueryResult, error) {
	child, err := e.childResult(ctx, node)
	if err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	names := n.Columns
	if len(names) == 0 {
		names = child.ProjectedColumns
		if names == nil {
			for _, f := range e.Batch.Schema().Fields {
				names = append(names, f.Name)
			}
		}
	}
	cols := make([]int, len(names))
	for i, name := range names {
		cols[i] = e.Batch.Schema().IndexOf(name)
	}

	seen := collections.NewInsertionOrderedSet[string]()
	var kept []int
	var b strings.Builder
	child.Selected.ForEach(func(_, row int) bool {
		b.Reset()
		for i, col := range cols {
			if i > 0 {
				b.WriteByte('\x1f')
			}
			if col < 0 {
				continue
			}
			b.WriteString(e.keyAt(col, row))
		}
		if !seen.AddIfAbsent(b.String()) {
			return true
		}
		kept = append(kept, row)
		return true
	})

	return &QueryResult{Batch: child.Batch, Selected: FromIndices(kept), ProjectedColumns: child.ProjectedColumns}, nil
}
