package predicate

import (
	"sort"

	"github.com/lychee-technology/colbeam/internal/bitmap"
)

// And evaluates its children in ascending selectivity order (most
// selective first) and short-circuits once the current bitmap becomes
// empty, per spec.md §4.3 rule 5.
type And struct {
	Children []Predicate
}

var _ Predicate = (*And)(nil)

// ReferencedColumns implements Predicate.
func (a *And) ReferencedColumns() []int {
	var out []int
	for _, c := range a.Children {
		out = append(out, c.ReferencedColumns()...)
	}
	return out
}

// IsZoneMapEvaluable implements Predicate: true only if every child is, so
// the physical planner can decide whether the whole conjunction benefits
// from chunk-level skipping.
func (a *And) IsZoneMapEvaluable() bool {
	for _, c := range a.Children {
		if !c.IsZoneMapEvaluable() {
			return false
		}
	}
	return true
}

// Evaluate implements Predicate.
func (a *And) Evaluate(ctx *EvalContext, bm *bitmap.Bitmap) error {
	ordered := make([]Predicate, len(a.Children))
	copy(ordered, a.Children)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Selectivity(ctx) < ordered[j].Selectivity(ctx)
	})
	for _, child := range ordered {
		if err := child.Evaluate(ctx, bm); err != nil {
			return err
		}
		if bm.IsEmpty() {
			return nil
		}
	}
	return nil
}

// Selectivity implements Predicate as the product of child selectivities,
// assuming independence (the same simplifying assumption the source's
// SQL-plan builder makes when ordering its WHERE clauses).
func (a *And) Selectivity(ctx *EvalContext) float64 {
	s := 1.0
	for _, c := range a.Children {
		s *= c.Selectivity(ctx)
	}
	return s
}

// Or accumulates into a temporary bitmap, ORing each child's result, and
// may short-circuit once the temporary becomes all-ones.
type Or struct {
	Children []Predicate
}

var _ Predicate = (*Or)(nil)

// ReferencedColumns implements Predicate.
func (o *Or) ReferencedColumns() []int {
	var out []int
	for _, c := range o.Children {
		out = append(out, c.ReferencedColumns()...)
	}
	return out
}

// IsZoneMapEvaluable implements Predicate.
func (o *Or) IsZoneMapEvaluable() bool {
	for _, c := range o.Children {
		if !c.IsZoneMapEvaluable() {
			return false
		}
	}
	return true
}

// Evaluate implements Predicate. The input bm is treated as the incoming
// candidate set; each child is evaluated against a fresh copy of it (since
// a child's Evaluate narrows in place) and the results are ORed together.
func (o *Or) Evaluate(ctx *EvalContext, bm *bitmap.Bitmap) error {
	n := bm.Len()
	acc := bitmap.Acquire(n)
	defer bitmap.Release(acc)
	acc.ClearAll()

	for _, child := range o.Children {
		scratch := bitmap.Acquire(n)
		scratch.CopyFrom(bm)
		if err := child.Evaluate(ctx, scratch); err != nil {
			bitmap.Release(scratch)
			return err
		}
		acc.Or(scratch)
		bitmap.Release(scratch)
		if acc.IsAllOnes() {
			break
		}
	}
	bm.CopyFrom(acc)
	return nil
}

// Selectivity implements Predicate via inclusion-exclusion's first-order
// approximation (independence assumption), clamped to 1.
func (o *Or) Selectivity(ctx *EvalContext) float64 {
	remaining := 1.0
	for _, c := range o.Children {
		remaining *= 1 - c.Selectivity(ctx)
	}
	return clamp01(1 - remaining)
}

// Not flips the child's result and ANDs with validity, per spec.md §4.3
// rule 5: a null row is neither true nor its negation.
type Not struct {
	Child Predicate
}

var _ Predicate = (*Not)(nil)

// ReferencedColumns implements Predicate.
func (n *Not) ReferencedColumns() []int { return n.Child.ReferencedColumns() }

// IsZoneMapEvaluable implements Predicate: negation breaks the zone-map
// skip's monotone-subset reasoning, so Not is never itself zone-map
// evaluable even if its child is.
func (n *Not) IsZoneMapEvaluable() bool { return false }

// Evaluate implements Predicate. The validity mask is applied for every
// column the child predicate references — not a single hardcoded column —
// so a null in any of them keeps the row out of both the child's result
// and its negation.
func (n *Not) Evaluate(ctx *EvalContext, bm *bitmap.Bitmap) error {
	size := bm.Len()
	inner := bitmap.Acquire(size)
	defer bitmap.Release(inner)
	inner.SetAll()
	if err := n.Child.Evaluate(ctx, inner); err != nil {
		return err
	}
	inner.Not()
	bm.And(inner)
	for _, col := range n.Child.ReferencedColumns() {
		applyValidityMask(ctx.Batch, col, bm, 0, size)
	}
	return nil
}

// Selectivity implements Predicate.
func (n *Not) Selectivity(ctx *EvalContext) float64 {
	return clamp01(1 - n.Child.Selectivity(ctx))
}
