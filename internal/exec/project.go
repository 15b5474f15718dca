package exec

import (
	"context"

	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/physicalplan"
)

// execProject narrows the visible column set without touching rows or
// copying data (spec.md §4.8's zero-copy full-scan rendering depends on
// this staying a pure metadata operation).
func (e *Executor) execProject(ctx context.Context, node *physicalplan.Node, n *logicalplan.Project) (*QueryResult, error) {
	child, err := e.childResult(ctx, node)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Batch: child.Batch, Selected: child.Selected, ProjectedColumns: n.Columns}, nil
}
