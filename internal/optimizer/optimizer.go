// Package optimizer rewrites a logical plan to fixpoint: predicate
// pushdown, predicate reordering by selectivity, filter fusion, projection
// pruning (with un-prune-and-warn), limit pushdown, and aggregate+filter
// fusion tagging (spec.md §4.4). Grounded on
// internal/queryoptimizer/optimizer.go's ordered rewrite-then-render
// pipeline, reworked to rewrite a tree instead of building SQL text.
package optimizer

import (
	"fmt"

	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/predicate"
	"github.com/lychee-technology/colbeam/internal/zonemap"
	"go.uber.org/zap"
)

// maxFixpointIterations bounds the rewrite loop; real plans converge in 2-3
// passes, this is a generous backstop against an accidentally oscillating
// rule.
const maxFixpointIterations = 8

// Optimize rewrites root to fixpoint using the rules above. stats supplies
// per-column statistics for selectivity-based predicate reordering; it may
// be nil (reordering then falls back to each predicate's static estimate).
// Optimize is side-effect-free: root is never mutated, only replaced.
func Optimize(root logicalplan.Node, stats map[int]zonemap.ColumnStatistics) logicalplan.Node {
	ctx := &predicate.EvalContext{Stats: stats}
	current := root
	prevFingerprint := ""
	for i := 0; i < maxFixpointIterations; i++ {
		current = pushdownFilterBelowProject(current)
		current = fuseAdjacentFilters(current)
		current = reorderPredicates(current, ctx)
		current = pushdownLimit(current)
		current = markFusableAggregates(current)
		fp := describe(current)
		if fp == prevFingerprint {
			break
		}
		prevFingerprint = fp
	}
	current = pruneProjections(current, nil)
	return current
}

// pushdownFilterBelowProject rewrites Filter(Project(X)) into
// Project(Filter(X)). Project never changes row count, so this is always
// legal and gives the filter visibility into every column of X rather than
// only Project's output subset.
func pushdownFilterBelowProject(n logicalplan.Node) logicalplan.Node {
	switch node := n.(type) {
	case *logicalplan.Filter:
		input := pushdownFilterBelowProject(node.Input)
		if proj, ok := input.(*logicalplan.Project); ok {
			newFilter := &logicalplan.Filter{
				Input:                proj.Input,
				Predicates:           node.Predicates,
				EstimatedSelectivity: node.EstimatedSelectivity,
				Fusable:              node.Fusable,
			}
			return &logicalplan.Project{Input: newFilter, Columns: proj.Columns}
		}
		return &logicalplan.Filter{
			Input:                input,
			Predicates:           node.Predicates,
			EstimatedSelectivity: node.EstimatedSelectivity,
			Fusable:              node.Fusable,
		}
	default:
		return rewriteChildren(n, pushdownFilterBelowProject)
	}
}

// fuseAdjacentFilters merges Filter(Filter(X)) into one Filter with
// concatenated predicates.
func fuseAdjacentFilters(n logicalplan.Node) logicalplan.Node {
	switch node := n.(type) {
	case *logicalplan.Filter:
		input := fuseAdjacentFilters(node.Input)
		if inner, ok := input.(*logicalplan.Filter); ok {
			return &logicalplan.Filter{
				Input:                inner.Input,
				Predicates:           append(append([]predicate.Predicate{}, inner.Predicates...), node.Predicates...),
				EstimatedSelectivity: inner.EstimatedSelectivity * node.EstimatedSelectivity,
			}
		}
		return &logicalplan.Filter{Input: input, Predicates: node.Predicates, EstimatedSelectivity: node.EstimatedSelectivity, Fusable: node.Fusable}
	default:
		return rewriteChildren(n, fuseAdjacentFilters)
	}
}

// reorderPredicates sorts each Filter's predicate list ascending by
// estimated selectivity, tie-broken by zone-map-evaluable first then
// string equality first (any StringEquality, whatever the column's
// encoding), per spec.md §4.4.
func reorderPredicates(n logicalplan.Node, ctx *predicate.EvalContext) logicalplan.Node {
	switch node := n.(type) {
	case *logicalplan.Filter:
		input := reorderPredicates(node.Input, ctx)
		ordered := append([]predicate.Predicate{}, node.Predicates...)
		stableSortPredicates(ordered, ctx)
		return &logicalplan.Filter{Input: input, Predicates: ordered, EstimatedSelectivity: node.EstimatedSelectivity, Fusable: node.Fusable}
	default:
		return rewriteChildren(n, func(c logicalplan.Node) logicalplan.Node { return reorderPredicates(c, ctx) })
	}
}

func stableSortPredicates(preds []predicate.Predicate, ctx *predicate.EvalContext) {
	less := func(i, j int) bool {
		si, sj := preds[i].Selectivity(ctx), preds[j].Selectivity(ctx)
		if si != sj {
			return si < sj
		}
		zi, zj := preds[i].IsZoneMapEvaluable(), preds[j].IsZoneMapEvaluable()
		if zi != zj {
			return zi
		}
		_, diI := preds[i].(*predicate.StringEquality)
		_, diJ := preds[j].(*predicate.StringEquality)
		return diI && !diJ
	}
	// Insertion sort: the predicate list per Filter node is small (single
	// digits), and a stable, allocation-free sort keeps ties in source
	// order without pulling in sort.Slice's reflection overhead here.
	for i := 1; i < len(preds); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			preds[j], preds[j-1] = preds[j-1], preds[j]
		}
	}
}

// pushdownLimit sets Scan.LimitHint when a Limit feeds a Scan with no
// intervening Filter, letting the scan stop early.
func pushdownLimit(n logicalplan.Node) logicalplan.Node {
	switch node := n.(type) {
	case *logicalplan.Limit:
		input := pushdownLimit(node.Input)
		if scan, ok := input.(*logicalplan.Scan); ok {
			newScan := *scan
			newScan.LimitHint = node.N
			return &logicalplan.Limit{Input: &newScan, N: node.N}
		}
		return &logicalplan.Limit{Input: input, N: node.N}
	default:
		return rewriteChildren(n, pushdownLimit)
	}
}

// markFusableAggregates tags a Filter as Fusable when it directly feeds a
// simple single-column Aggregate AND its own input is a bare Scan. The
// fused executor path evaluates the predicate over the whole batch and
// never walks the filter's child — fusing across any other node (Offset,
// Limit, Sort, Distinct, Project) would silently ignore that node's
// trimming/reordering of the row set, so those stay unfused.
func markFusableAggregates(n logicalplan.Node) logicalplan.Node {
	switch node := n.(type) {
	case *logicalplan.Aggregate:
		input := markFusableAggregates(node.Input)
		if filter, ok := input.(*logicalplan.Filter); ok {
			if _, scanInput := filter.Input.(*logicalplan.Scan); scanInput {
				fused := *filter
				fused.Fusable = true
				return &logicalplan.Aggregate{Input: &fused, Op: node.Op, Column: node.Column, OutputType: node.OutputType}
			}
		}
		return &logicalplan.Aggregate{Input: input, Op: node.Op, Column: node.Column, OutputType: node.OutputType}
	default:
		return rewriteChildren(n, markFusableAggregates)
	}
}

// pruneProjections computes each node's required-column set top-down and
// annotates every Scan with the minimum set that satisfies it. required is
// nil at the root (meaning "all columns", i.e. no Project above). Per
// Open Question 4, a predicate referencing a column outside the current
// required set causes the pruner to un-prune (add the column back) rather
// than error, logging a warning.
func pruneProjections(n logicalplan.Node, required map[int]bool) logicalplan.Node {
	switch node := n.(type) {
	case *logicalplan.Scan:
		if required == nil {
			return node
		}
		cols := make([]int, 0, len(required))
		for c := range required {
			cols = append(cols, c)
		}
		newScan := *node
		newScan.RequiredColumns = cols
		return &newScan
	case *logicalplan.Filter:
		need := cloneRequired(required)
		for _, p := range node.Predicates {
			for _, c := range p.ReferencedColumns() {
				if required != nil && !required[c] {
					zap.S().Warnw("predicate referenced a pruned column; un-pruning", "column", c)
				}
				need[c] = true
			}
		}
		return &logicalplan.Filter{Input: pruneProjections(node.Input, need), Predicates: node.Predicates, EstimatedSelectivity: node.EstimatedSelectivity, Fusable: node.Fusable}
	case *logicalplan.Aggregate:
		need := cloneRequired(required)
		if node.Column >= 0 {
			need[node.Column] = true
		}
		return &logicalplan.Aggregate{Input: pruneProjections(node.Input, need), Op: node.Op, Column: node.Column, OutputType: node.OutputType}
	case *logicalplan.GroupBy:
		need := cloneRequired(required)
		need[node.KeyColumn] = true
		for _, agg := range node.Aggregations {
			if agg.Column >= 0 {
				need[agg.Column] = true
			}
		}
		return &logicalplan.GroupBy{Input: pruneProjections(node.Input, need), KeyColumn: node.KeyColumn, KeyColumnName: node.KeyColumnName, Aggregations: node.Aggregations, ResultKeyName: node.ResultKeyName, EstimatedGroups: node.EstimatedGroups}
	case *logicalplan.Sort:
		need := cloneRequired(required)
		for _, k := range node.Keys {
			need[k.Column] = true
		}
		return &logicalplan.Sort{Input: pruneProjections(node.Input, need), Keys: node.Keys}
	default:
		return rewriteChildren(n, func(c logicalplan.Node) logicalplan.Node { return pruneProjections(c, required) })
	}
}

func cloneRequired(required map[int]bool) map[int]bool {
	out := make(map[int]bool, len(required))
	for k, v := range required {
		out[k] = v
	}
	return out
}

// rewriteChildren reconstructs n with f applied to its single child, for
// node kinds that don't need special rewrite logic of their own.
func rewriteChildren(n logicalplan.Node, f func(logicalplan.Node) logicalplan.Node) logicalplan.Node {
	switch node := n.(type) {
	case *logicalplan.Scan:
		return node
	case *logicalplan.Project:
		return &logicalplan.Project{Input: f(node.Input), Columns: node.Columns}
	case *logicalplan.Aggregate:
		return &logicalplan.Aggregate{Input: f(node.Input), Op: node.Op, Column: node.Column, OutputType: node.OutputType}
	case *logicalplan.GroupBy:
		return &logicalplan.GroupBy{Input: f(node.Input), KeyColumn: node.KeyColumn, KeyColumnName: node.KeyColumnName, Aggregations: node.Aggregations, ResultKeyName: node.ResultKeyName, EstimatedGroups: node.EstimatedGroups}
	case *logicalplan.Sort:
		return &logicalplan.Sort{Input: f(node.Input), Keys: node.Keys}
	case *logicalplan.Distinct:
		return &logicalplan.Distinct{Input: f(node.Input), Columns: node.Columns}
	case *logicalplan.Limit:
		return &logicalplan.Limit{Input: f(node.Input), N: node.N}
	case *logicalplan.Offset:
		return &logicalplan.Offset{Input: f(node.Input), N: node.N}
	case *logicalplan.Filter:
		return &logicalplan.Filter{Input: f(node.Input), Predicates: node.Predicates, EstimatedSelectivity: node.EstimatedSelectivity, Fusable: node.Fusable}
	default:
		return n
	}
}

// describe renders a structural fingerprint string for fixpoint detection,
// ignoring non-shape-affecting constant values the way the plan cache's
// fingerprint does (see internal/plancache).
func describe(n logicalplan.Node) string {
	switch node := n.(type) {
	case nil:
		return "nil"
	case *logicalplan.Scan:
		return fmt.Sprintf("Scan(req=%v,limit=%d)", node.RequiredColumns, node.LimitHint)
	case *logicalplan.Filter:
		return fmt.Sprintf("Filter(n=%d,fusable=%v,%s)", len(node.Predicates), node.Fusable, describe(node.Input))
	case *logicalplan.Project:
		return fmt.Sprintf("Project(%v,%s)", node.Columns, describe(node.Input))
	case *logicalplan.Aggregate:
		return fmt.Sprintf("Aggregate(%s,%d,%s)", node.Op, node.Column, describe(node.Input))
	case *logicalplan.GroupBy:
		return fmt.Sprintf("GroupBy(%d,%d,%s)", node.KeyColumn, len(node.Aggregations), describe(node.Input))
	case *logicalplan.Sort:
		return fmt.Sprintf("Sort(%v,%s)", node.Keys, describe(node.Input))
	case *logicalplan.Distinct:
		return fmt.Sprintf("Distinct(%v,%s)", node.Columns, describe(node.Input))
	case *logicalplan.Limit:
		return fmt.Sprintf("Limit(%d,%s)", node.N, describe(node.Input))
	case *logicalplan.Offset:
		return fmt.Sprintf("Offset(%d,%s)", node.N, describe(node.Input))
	default:
		return "?"
	}
}
