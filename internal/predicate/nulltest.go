package predicate

import "github.com/lychee-technology/colbeam/internal/bitmap"

// NullTest is `col IS [NOT] NULL`.
type NullTest struct {
	Column int
	IsNull bool
}

var _ Predicate = (*NullTest)(nil)

// ReferencedColumns implements Predicate.
func (t *NullTest) ReferencedColumns() []int { return []int{t.Column} }

// IsZoneMapEvaluable implements Predicate. Zone maps track present chunks
// (entirely-null chunks), which only directly helps IsNull short-circuits;
// NullTest still evaluates per row for the general case.
func (t *NullTest) IsZoneMapEvaluable() bool { return false }

// Evaluate implements Predicate by reading the validity bitmap directly,
// per spec.md §4.3 rule 4.
func (t *NullTest) Evaluate(ctx *EvalContext, bm *bitmap.Bitmap) error {
	batch := ctx.Batch
	n := batch.Len()
	for row := 0; row < n; row++ {
		if !bm.Get(row) {
			continue
		}
		valid := batch.IsValid(t.Column, row)
		want := !t.IsNull
		if valid != want {
			bm.Clear(row)
		}
	}
	return nil
}

// Selectivity implements Predicate.
func (t *NullTest) Selectivity(ctx *EvalContext) float64 {
	if t.IsNull {
		return 0.05
	}
	return 0.95
}
