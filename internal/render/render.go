// Package render translates an executor's QueryResult into the shapes
// callers ask for: a slice of rows, a lazily-pulled iterator of rows, or a
// materialized columnar Batch. It is the mirror image of internal/codec's
// ingest direction — codec.RowCodec[T].Read drives the row side here, while
// ToBatch stays entirely inside internal/columnar.
package render

import (
	"fmt"

	"github.com/lychee-technology/colbeam/internal/codec"
	"github.com/lychee-technology/colbeam/internal/columnar"
	"github.com/lychee-technology/colbeam/internal/exec"
)

// ToList reads every selected row of result into a T via rc, in selection
// order. Go has one slice type, so this also serves to_array: callers
// wanting an array-flavored terminator just take len(result) up front from
// the returned slice.
func ToList[T any](result *exec.QueryResult, rc codec.RowCodec[T]) ([]T, error) {
	if result == nil || result.Batch == nil {
		return nil, nil
	}
	out := make([]T, 0, result.Selected.Len())
	var readErr error
	result.Selected.ForEach(func(_ int, row int) bool {
		item, err := rc.Read(result.Batch, row)
		if err != nil {
			readErr = err
			return false
		}
		out = append(out, item)
		return true
	})
	if readErr != nil {
		return nil, readErr
	}
	return out, nil
}

// ToArray is ToList under another name, for callers translating a to_array
// terminator call.
func ToArray[T any](result *exec.QueryResult, rc codec.RowCodec[T]) ([]T, error) {
	return ToList(result, rc)
}

// ToBatch materializes result as a columnar.Batch honoring
// result.ProjectedColumns (nil meaning every column in the source batch).
// It takes the cheapest of three paths:
//
//  1. full scan, full projection: the source batch is returned retained,
//     zero-copy.
//  2. full scan, column subset: a new batch sharing the selected columns'
//     backing arrays, zero-copy, via columnar.Project with rows == nil.
//  3. row subset (any projection): columnar.Project copies only the
//     selected rows into fresh per-column builders — the slow path, since
//     arrow arrays have no way to reference a non-contiguous row subset of
//     an existing buffer.
func ToBatch(result *exec.QueryResult) (*columnar.Batch, error) {
	if result == nil || result.Batch == nil {
		return nil, fmt.Errorf("render: ToBatch called on a nil result")
	}
	schema := result.Batch.Schema()
	columns, changed := resolveColumns(schema, result.ProjectedColumns)

	fullScan := result.Selected.IsFullRange(result.Batch.Len())
	if fullScan && !changed {
		result.Batch.Retain()
		return result.Batch, nil
	}
	if fullScan {
		return columnar.Project(result.Batch, columns, nil)
	}
	return columnar.Project(result.Batch, columns, result.Selected.ToIndices())
}

// resolveColumns maps ProjectedColumns (by name) to source column indices,
// reporting whether the projection differs from the schema's own column
// order (a reorder or a strict subset both count as "changed").
func resolveColumns(schema *columnar.Schema, names []string) (columns []int, changed bool) {
	if names == nil {
		return nil, false
	}
	columns = make([]int, len(names))
	changed = len(names) != len(schema.Fields)
	for i, name := range names {
		columns[i] = schema.IndexOf(name)
		if !changed && columns[i] != i {
			changed = true
		}
	}
	return columns, changed
}
