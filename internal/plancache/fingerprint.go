// Package plancache maps a logical plan's structural fingerprint to its
// already-compiled physical plan (spec.md §4.7), so repeated queries with
// the same optimized shape skip physical re-planning. Constants that only
// affect predicate behavior at evaluation time (a Comparison's threshold,
// a StringEquality's value) are deliberately excluded from the fingerprint
// — they never change which kernels or strategies the plan picks.
package plancache

import (
	"strconv"
	"strings"

	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/physicalplan"
	"github.com/lychee-technology/colbeam/internal/predicate"
	"github.com/zeebo/xxh3"
)

// rowBucket maps an estimated row count to the strategy band it would fall
// into under the physical planner's cost-model thresholds. Exact row
// counts don't belong in the fingerprint (spec.md §4.7: ignore constants
// that don't change the chosen kernels) but the BAND does, since crossing
// a threshold changes sequential/SIMD/parallel strategy selection.
func rowBucket(rows int64) byte {
	switch {
	case rows < physicalplan.SequentialThresholdRows:
		return 's'
	case rows < physicalplan.SIMDThresholdRows:
		return 'm'
	default:
		return 'p'
	}
}

// Fingerprint computes a deterministic structural hash of a logical plan.
func Fingerprint(node logicalplan.Node) uint64 {
	var b strings.Builder
	writeNode(&b, node)
	return xxh3.HashString(b.String())
}

func writeNode(b *strings.Builder, node logicalplan.Node) {
	switch n := node.(type) {
	case *logicalplan.Scan:
		b.WriteString("Scan(")
		writeInts(b, n.RequiredColumns)
		b.WriteByte(':')
		b.WriteByte(rowBucket(n.EstimatedRows()))
		if n.LimitHint > 0 {
			b.WriteByte('L')
		}
		b.WriteByte(')')
	case *logicalplan.Filter:
		b.WriteString("Filter(")
		writeNode(b, n.Input)
		b.WriteByte(';')
		for i, p := range n.Predicates {
			if i > 0 {
				b.WriteByte(',')
			}
			writePredicate(b, p)
		}
		b.WriteByte(':')
		b.WriteByte(rowBucket(n.EstimatedRows()))
		b.WriteByte(')')
	case *logicalplan.Project:
		b.WriteString("Project(")
		writeNode(b, n.Input)
		b.WriteByte(';')
		b.WriteString(strings.Join(n.Columns, ","))
		b.WriteByte(')')
	case *logicalplan.Aggregate:
		b.WriteString("Aggregate(")
		writeNode(b, n.Input)
		b.WriteByte(';')
		b.WriteString(n.Op.String())
		b.WriteByte(':')
		writeInt(b, n.Column)
		b.WriteByte(':')
		b.WriteByte(rowBucket(n.EstimatedRows()))
		b.WriteByte(')')
	case *logicalplan.GroupBy:
		b.WriteString("GroupBy(")
		writeNode(b, n.Input)
		b.WriteByte(';')
		writeInt(b, n.KeyColumn)
		for _, a := range n.Aggregations {
			b.WriteByte(',')
			b.WriteString(a.Op.String())
			b.WriteByte(':')
			writeInt(b, a.Column)
		}
		b.WriteByte(')')
	case *logicalplan.Sort:
		b.WriteString("Sort(")
		writeNode(b, n.Input)
		b.WriteByte(';')
		for _, k := range n.Keys {
			writeInt(b, k.Column)
			b.WriteByte(':')
			writeInt(b, int(k.Direction))
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case *logicalplan.Distinct:
		b.WriteString("Distinct(")
		writeNode(b, n.Input)
		b.WriteByte(';')
		b.WriteString(strings.Join(n.Columns, ","))
		b.WriteByte(')')
	case *logicalplan.Limit:
		b.WriteString("Limit(")
		writeNode(b, n.Input)
		b.WriteByte(')') // N excluded: doesn't change node shape/strategy
	case *logicalplan.Offset:
		b.WriteString("Offset(")
		writeNode(b, n.Input)
		b.WriteByte(')')
	default:
		b.WriteString("Unknown")
	}
}

// writePredicate writes a predicate's shape (kind, referenced columns,
// operators) but never its constant value.
func writePredicate(b *strings.Builder, p predicate.Predicate) {
	switch pr := p.(type) {
	case *predicate.Comparison:
		b.WriteString("Cmp:")
		writeInt(b, pr.Column)
		b.WriteByte(':')
		b.WriteString(pr.Op.String())
	case *predicate.Between:
		b.WriteString("Between:")
		writeInt(b, pr.Column)
	case *predicate.StringEquality:
		b.WriteString("SEq:")
		writeInt(b, pr.Column)
		b.WriteByte(':')
		writeInt(b, int(pr.Mode))
	case *predicate.StringOperation:
		b.WriteString("SOp:")
		writeInt(b, pr.Column)
		b.WriteByte(':')
		writeInt(b, int(pr.Op))
		b.WriteByte(':')
		writeInt(b, int(pr.Mode))
	case *predicate.NullTest:
		b.WriteString("Null:")
		writeInt(b, pr.Column)
		b.WriteByte(':')
		if pr.IsNull {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	case *predicate.And:
		b.WriteString("And(")
		for i, c := range pr.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			writePredicate(b, c)
		}
		b.WriteByte(')')
	case *predicate.Or:
		b.WriteString("Or(")
		for i, c := range pr.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			writePredicate(b, c)
		}
		b.WriteByte(')')
	case *predicate.Not:
		b.WriteString("Not(")
		writePredicate(b, pr.Child)
		b.WriteByte(')')
	default:
		b.WriteString("Pred?")
	}
}

func writeInt(b *strings.Builder, v int) {
	b.WriteString(strconv.Itoa(v))
}

func writeInts(b *strings.Builder, vs []int) {
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(',')
		}
		writeInt(b, v)
	}
}
