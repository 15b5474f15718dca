package exec

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lychee-technology/colbeam/internal/collections"
	"github.com/lychee-technology/colbeam/internal/columnar"
	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/metrics"
	"github.com/lychee-technology/colbeam/internal/physicalplan"
)

// execGroupBy buckets the child's selected rows by node.KeyColumn and
// reduces each bucket with node.Aggregations. A dictionary-encoded key
// column gets a direct-indexed accumulator slice sized to the dictionary's
// cardinality (spec.md §4.6's "small, known cardinality" fast path);
// everything else falls back to a string-keyed hash map, keeping
// first-seen group order for output stability.
func (e *Executor) execGroupBy(ctx context.Context, node *physicalplan.Node, n *logicalplan.GroupBy) (*GroupedResult, error) {
	child, err := e.childResult(ctx, node)
	if err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	field := e.Batch.Schema().Fields[n.KeyColumn]
	var (
		result *GroupedResult
		err2   error
	)
	if field.Kind == columnar.KindDictionaryString {
		result, err2 = e.groupByDictionary(child, n)
	} else {
		result, err2 = e.groupByHash(child, n)
	}
	metrics.EmitStageLatency(ctx, "groupby", time.Since(start).Microseconds())
	return result, err2
}

func newAccumulatorSet(aggs []logicalplan.Aggregation) map[string]*accumulator {
	out := make(map[string]*accumulator, len(aggs))
	for _, a := range aggs {
		out[a.OutputName] = newAccumulator(a.Op)
	}
	return out
}

func (e *Executor) observeRow(accs map[string]*accumulator, aggs []logicalplan.Aggregation, row int) {
	for _, a := range aggs {
		accs[a.OutputName].observe(e.valueAt(a.Column, row))
	}
}

func resultsOf(accs map[string]*accumulator) map[string]float64 {
	out := make(map[string]float64, len(accs))
	for name, acc := range accs {
		r := acc.result()
		if r.Present {
			out[name] = r.Value
		}
	}
	return out
}

func (e *Executor) groupByDictionary(child *QueryResult, n *logicalplan.GroupBy) (*GroupedResult, error) {
	values, err := e.Batch.DictionaryValues(n.KeyColumn)
	if err != nil {
		return nil, err
	}
	accs := make([]map[string]*accumulator, len(values))
	counts := make([]int64, len(values))
	seen := make([]bool, len(values))
	for i := range accs {
		accs[i] = newAccumulatorSet(n.Aggregations)
	}

	child.Selected.ForEach(func(_, row int) bool {
		idx, ok := e.Batch.DictionaryIndex(n.KeyColumn, row)
		if !ok {
			return true
		}
		seen[idx] = true
		counts[idx]++
		e.observeRow(accs[idx], n.Aggregations, row)
		return true
	})

	rows := make([]GroupRow, 0, len(values))
	for i, v := range values {
		if !seen[i] {
			continue
		}
		rows = append(rows, GroupRow{Key: v, Count: counts[i], Results: resultsOf(accs[i])})
	}
	return &GroupedResult{KeyName: n.ResultKeyName, Rows: rows}, nil
}

func (e *Executor) groupByHash(child *QueryResult, n *logicalplan.GroupBy) (*GroupedResult, error) {
	type bucket struct {
		key   string
		count int64
		accs  map[string]*accumulator
	}
	order := collections.NewInsertionOrderedSet[string]()
	buckets := make(map[string]*bucket)

	child.Selected.ForEach(func(_, row int) bool {
		key := e.keyAt(n.KeyColumn, row)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{key: key, accs: newAccumulatorSet(n.Aggregations)}
			buckets[key] = b
			order.AddIfAbsent(key)
		}
		b.count++
		e.observeRow(b.accs, n.Aggregations, row)
		return true
	})

	rows := make([]GroupRow, 0, len(buckets))
	for _, key := range order.Ordered() {
		b := buckets[key]
		rows = append(rows, GroupRow{Key: b.key, Count: b.count, Results: resultsOf(b.accs)})
	}
	return &GroupedResult{KeyName: n.ResultKeyName, Rows: rows}, nil
}

// keyAt renders column col at row as a string group key.
func (e *Executor) keyAt(col, row int) string {
	field := e.Batch.Schema().Fields[col]
	if !e.Batch.IsValid(col, row) {
		return "\x00null"
	}
	switch {
	case field.Kind == columnar.KindString || field.Kind == columnar.KindDictionaryString:
		v, _ := e.Batch.StringAt(col, row)
		return v
	case field.Kind == columnar.KindBool:
		v, _ := e.Batch.BoolAt(col, row)
		return fmt.Sprintf("%v", v)
	default:
		v, _ := e.Batch.Float64At(col, row)
		return fmt.Sprintf("%g", v)
	}
}

// sortGroupRowsByKey orders rows lexically by key, independent of the
// executor's first-seen insertion order. Nothing in the package calls it.
func sortGroupRowsByKey(rows []GroupRow) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
}
