// Package predicate implements the typed column-predicate tree: equality,
// range, between, string ops, null tests, and boolean conjunction/
// disjunction/negation, each with a zone-map-skip, dictionary-fast-path,
// and SIMD-flavored scalar evaluator per spec.md §4.3's ordered rules.
package predicate

import (
	"fmt"

	"github.com/lychee-technology/colbeam/internal/bitmap"
	"github.com/lychee-technology/colbeam/internal/columnar"
	"github.com/lychee-technology/colbeam/internal/zonemap"
)

// Op enumerates the comparison operators available to Comparison.
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

func (o Op) String() string {
	switch o {
	case Eq:
		return "="
	case Ne:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	default:
		return "?"
	}
}

// StringOp enumerates the string-matching operators available to
// StringOperation.
type StringOp int

const (
	StartsWith StringOp = iota
	EndsWith
	Contains
	Like
)

// ComparisonMode selects ordinal (byte-exact) vs. case-insensitive string
// comparison.
type ComparisonMode int

const (
	Ordinal ComparisonMode = iota
	CaseInsensitive
)

// EvalContext carries everything a predicate needs to evaluate against one
// batch: the batch itself, per-column zone maps (nil entries allowed, not
// every column is zone-mappable), and per-column statistics for
// selectivity estimation.
type EvalContext struct {
	Batch    *columnar.Batch
	ZoneMaps map[int]*zonemap.ZoneMap
	Stats    map[int]zonemap.ColumnStatistics
}

// Predicate is the capability set every tagged variant implements
// (spec.md §9's "Polymorphic predicates").
type Predicate interface {
	// Evaluate ANDs into bm the rows of ctx.Batch satisfying the predicate.
	// bm must already be sized to ctx.Batch.Len(); rows cleared before the
	// call stay cleared.
	Evaluate(ctx *EvalContext, bm *bitmap.Bitmap) error
	// Selectivity estimates the fraction of rows expected to pass, in
	// [0, 1], used by the optimizer's predicate reordering.
	Selectivity(ctx *EvalContext) float64
	// ReferencedColumns returns every column index this predicate reads.
	ReferencedColumns() []int
	// IsZoneMapEvaluable reports whether Evaluate can consult a zone map
	// to skip whole chunks for this predicate.
	IsZoneMapEvaluable() bool
}

// ErrUnsupportedPredicate is returned when Evaluate encounters a
// predicate/column-type combination with no kernel (spec.md §7
// UnsupportedPredicate).
type ErrUnsupportedPredicate struct {
	Column int
	Reason string
}

func (e *ErrUnsupportedPredicate) Error() string {
	return fmt.Sprintf("predicate: unsupported predicate on column %d: %s", e.Column, e.Reason)
}

// ErrTypeMismatch is returned when a predicate's constant type does not
// match the column's declared type (spec.md §7 TypeMismatch).
type ErrTypeMismatch struct {
	Column   int
	Expected columnar.Kind
	Actual   string
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("predicate: column %d expected %v, constant is %s", e.Column, e.Expected, e.Actual)
}

// chunkRange returns [start, end) for chunk c under chunkSize, clamped to n.
func chunkRange(c, chunkSize, n int) (int, int) {
	start := c * chunkSize
	end := start + chunkSize
	if end > n {
		end = n
	}
	return start, end
}

// applyValidityMask clears bit i whenever the column is null at row i,
// enforcing spec.md §4.3 rule 4: nullable columns never report a null row
// as matching (except IsNull itself).
func applyValidityMask(batch *columnar.Batch, col int, bm *bitmap.Bitmap, start, end int) {
	for row := start; row < end; row++ {
		if bm.Get(row) && !batch.IsValid(col, row) {
			bm.Clear(row)
		}
	}
}
