package exec

import (
	"context"

	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/physicalplan"
)

// execLimit trims the child's selection to its first n.N rows.
func (e *Executor) execLimit(ctx context.Context, node *physicalplan.Node, n *logicalplan.Limit) (*QueryResult, error) {
	child, err := e.childResult(ctx, node)
	if err != nil {
		return nil, err
	}
	limit := int(n.N)
	if limit < 0 {
		limit = 0
	}
	return &QueryResult{Batch: child.Batch, Selected: child.Selected.Slice(0, limit), ProjectedColumns: child.ProjectedColumns}, nil
}

// execOffset drops the child's selection's first n.N rows.
func (e *Executor) execOffset(ctx context.Context, node *physicalplan.Node, n *logicalplan.Offset) (*QueryResult, error) {
	child, err := e.childResult(ctx, node)
	if err != nil {
		return nil, err
	}
	skip := int(n.N)
	if skip < 0 {
		skip = 0
	}
	return &QueryResult{Batch: child.Batch, Selected: child.Selected.Slice(skip, child.Selected.Len()), ProjectedColumns: child.ProjectedColumns}, nil
}
