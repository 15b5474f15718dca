package exec

import (
	"context"

	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/metrics"
)

// execScan returns the scan's batch under a lazy full (or limit-truncated)
// range selection — no bitmap work, no row copy.
func (e *Executor) execScan(n *logicalplan.Scan) *QueryResult {
	rowCount := e.Batch.Len()
	end := rowCount
	if n.LimitHint > 0 && int(n.LimitHint) < end {
		end = int(n.LimitHint)
	}
	metrics.EmitRowCounts(context.Background(), "scan", int64(rowCount), int64(end))
	res := &QueryResult{Batch: e.Batch, Selected: RangeSelection(0, end)}
	if n.RequiredColumns != nil {
		res.ProjectedColumns = columnNames(n.SchemaColumns, n.RequiredColumns)
	}
	return res
}

func columnNames(all []string, indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(all) {
			out = append(out, all[i])
		}
	}
	return out
}
