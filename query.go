package colbeam

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/lychee-technology/colbeam/internal/columnar"
	"github.com/lychee-technology/colbeam/internal/exec"
	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/optimizer"
	"github.com/lychee-technology/colbeam/internal/physicalplan"
	"github.com/lychee-technology/colbeam/internal/predicate"
	"github.com/lychee-technology/colbeam/internal/render"
)

// AggOp selects the reduction a GroupBy aggregation applies.
type AggOp = logicalplan.AggregateOp

// The five supported GroupBy reduction operators (spec.md §3 Aggregate op
// enumeration).
const (
	CountAgg AggOp = logicalplan.AggCount
	SumAgg   AggOp = logicalplan.AggSum
	AvgAgg   AggOp = logicalplan.AggAvg
	MinAgg   AggOp = logicalplan.AggMin
	MaxAgg   AggOp = logicalplan.AggMax
)

// Agg is one (operator, column) pair requested from a GroupBy.
type Agg struct {
	Op     AggOp
	Column string // ignored for CountAgg
	As     string // output key; defaults to "<op>_<column>"
}

// Count is shorthand for Agg{Op: CountAgg, As: as}.
func Count(as string) Agg { return Agg{Op: CountAgg, As: as} }

// Sum is shorthand for Agg{Op: SumAgg, Column: column, As: as}.
func Sum(column, as string) Agg { return Agg{Op: SumAgg, Column: column, As: as} }

// Avg is shorthand for Agg{Op: AvgAgg, Column: column, As: as}.
func Avg(column, as string) Agg { return Agg{Op: AvgAgg, Column: column, As: as} }

// MinOf is shorthand for Agg{Op: MinAgg, Column: column, As: as}.
func MinOf(column, as string) Agg { return Agg{Op: MinAgg, Column: column, As: as} }

// MaxOf is shorthand for Agg{Op: MaxAgg, Column: column, As: as}.
func MaxOf(column, as string) Agg { return Agg{Op: MaxAgg, Column: column, As: as} }

// GroupResult is a GroupBy's output: one row per distinct key.
type GroupResult = exec.GroupedResult

// GroupRow is one GroupResult row.
type GroupRow = exec.GroupRow

// ErrNoElements is returned by Avg/Min/Max/First against an empty result
// set (spec.md §8 boundary behavior). Count and Sum report 0 instead.
var ErrNoElements = NewIndexOutOfRangeError("no elements satisfy the query")

// Queryable is a lazily-built combinator chain over one Frozen[T]
// (spec.md §6 `Frozen[T].query()`). Combinators return the same pointer
// to allow fluent chaining; a compile error from an Expr is recorded and
// surfaced by whichever terminator runs next.
type Queryable[T any] struct {
	frozen     *Frozen[T]
	plan       logicalplan.Node
	err        error
	hostFilter func(T) bool
	queryID    string
}

func scanNode[T any](f *Frozen[T]) logicalplan.Node {
	names := make([]string, len(f.schema.Fields))
	for i, field := range f.schema.Fields {
		names[i] = field.Name
	}
	return &logicalplan.Scan{
		SchemaColumns: names,
		RowCount:      int64(f.batch.Len()),
	}
}

// Where ANDs expr's compiled predicate onto the chain (spec.md §6 `where`).
func (q *Queryable[T]) Where(expr Expr) *Queryable[T] {
	if q.err != nil {
		return q
	}
	pred, err := expr.compile(q.frozen.schema)
	if err != nil {
		q.err = err
		return q
	}
	ctx := &predicate.EvalContext{Stats: q.frozen.stats}
	if f, ok := q.plan.(*logicalplan.Filter); ok {
		f.Predicates = append(f.Predicates, pred)
		f.EstimatedSelectivity *= pred.Selectivity(ctx)
		return q
	}
	q.plan = &logicalplan.Filter{
		Input:                q.plan,
		Predicates:           []predicate.Predicate{pred},
		EstimatedSelectivity: pred.Selectivity(ctx),
	}
	return q
}

// WhereFunc filters with a host-side Go predicate the builder DSL cannot
// express, materializing rows first (spec.md §4.9's caller-settable
// "allow fallback" escape hatch). Requires Config.Exec.FallbackAllowed.
func (q *Queryable[T]) WhereFunc(fn func(T) bool) *Queryable[T] {
	if q.err != nil {
		return q
	}
	if !q.frozen.cfg.Exec.FallbackAllowed {
		q.err = NewUnsupportedExpressionError("where_func", "host-side fallback predicates are disabled; set Config.Exec.FallbackAllowed")
		return q
	}
	q.hostFilter = fn
	return q
}

// Select projects Columns forward without materializing rows (spec.md §6
// `select`).
func (q *Queryable[T]) Select(columns ...string) *Queryable[T] {
	if q.err != nil {
		return q
	}
	for _, c := range columns {
		if q.frozen.schema.IndexOf(c) < 0 {
			q.err = NewUnsupportedExpressionError("select", fmt.Sprintf("no column named %q", c))
			return q
		}
	}
	q.plan = &logicalplan.Project{Input: q.plan, Columns: columns}
	return q
}

// OrderBy appends one (column, direction) sort key; repeated calls build a
// multi-key sort in call order (spec.md §6 `order_by`).
func (q *Queryable[T]) OrderBy(column string, desc bool) *Queryable[T] {
	if q.err != nil {
		return q
	}
	idx := q.frozen.schema.IndexOf(column)
	if idx < 0 {
		q.err = NewUnsupportedExpressionError("order_by", fmt.Sprintf("no column named %q", column))
		return q
	}
	dir := logicalplan.Ascending
	if desc {
		dir = logicalplan.Descending
	}
	key := logicalplan.SortKey{Column: idx, Direction: dir}
	if s, ok := q.plan.(*logicalplan.Sort); ok {
		s.Keys = append(s.Keys, key)
		return q
	}
	q.plan = &logicalplan.Sort{Input: q.plan, Keys: []logicalplan.SortKey{key}}
	return q
}

// Distinct deduplicates rows by columns (the selected columns, or all
// columns, if none given),
// preserving first-seen order (spec.md §6 `distinct`).
func (q *Queryable[T]) Distinct(columns ...string) *Queryable[T] {
	if q.err != nil {
		return q
	}
	q.plan = &logicalplan.Distinct{Input: q.plan, Columns: columns}
	return q
}

// Limit trims the chain's output to at most n rows (spec.md §6 `limit`).
func (q *Queryable[T]) Limit(n int64) *Queryable[T] {
	if q.err != nil {
		return q
	}
	q.plan = &logicalplan.Limit{Input: q.plan, N: n}
	return q
}

// Offset skips the chain's first n rows (spec.md §6 `offset`).
func (q *Queryable[T]) Offset(n int64) *Queryable[T] {
	if q.err != nil {
		return q
	}
	q.plan = &logicalplan.Offset{Input: q.plan, N: n}
	return q
}

// GroupBy buckets the chain's rows by keyColumn and applies every agg,
// terminating the row-returning chain (spec.md §6 `group_by`); call
// GroupByResult to run it. No further row combinator may follow GroupBy.
func (q *Queryable[T]) GroupBy(keyColumn string, aggs ...Agg) *Queryable[T] {
	if q.err != nil {
		return q
	}
	idx := q.frozen.schema.IndexOf(keyColumn)
	if idx < 0 {
		q.err = NewUnsupportedExpressionError("group_by", fmt.Sprintf("no column named %q", keyColumn))
		return q
	}
	entries := make([]logicalplan.Aggregation, 0, len(aggs))
	for _, a := range aggs {
		col := -1
		if a.Op != CountAgg {
			col = q.frozen.schema.IndexOf(a.Column)
			if col < 0 {
				q.err = NewUnsupportedExpressionError("group_by", fmt.Sprintf("no column named %q", a.Column))
				return q
			}
		}
		name := a.As
		if name == "" {
			name = fmt.Sprintf("%s_%s", a.Op, a.Column)
		}
		entries = append(entries, logicalplan.Aggregation{Op: a.Op, Column: col, OutputName: name})
	}
	q.plan = &logicalplan.GroupBy{
		Input:         q.plan,
		KeyColumn:     idx,
		KeyColumnName: keyColumn,
		Aggregations:  entries,
		ResultKeyName: keyColumn,
	}
	return q
}

// --- terminators ---

func (q *Queryable[T]) compile() (*physicalplan.Node, error) {
	if q.err != nil {
		return nil, q.err
	}
	optimized := optimizer.Optimize(q.plan, q.frozen.stats)
	cfg := physicalplan.Config{
		ParallelEnabled:       q.frozen.cfg.Exec.ParallelEnabled,
		ParallelChunkSize:     q.frozen.cfg.Exec.ParallelChunkSize,
		ParallelThresholdRows: int64(q.frozen.cfg.Exec.ParallelThresholdRows),
		AllPredicatesHaveSIMD: func(logicalplan.Node) bool { return true },
	}
	plan, _ := q.frozen.cache.GetOrCompile(optimized, cfg)
	return plan, nil
}

func (q *Queryable[T]) executor() *exec.Executor {
	e := exec.NewExecutor(q.frozen.batch, q.frozen.zoneMaps, q.frozen.stats)
	if !q.frozen.cfg.Exec.ParallelEnabled {
		e.Workers = 1
	}
	return e
}

func (q *Queryable[T]) execute(ctx context.Context) (*exec.Output, error) {
	plan, err := q.compile()
	if err != nil {
		return nil, err
	}
	out, err := q.executor().Execute(ctx, plan)
	if err != nil {
		if errors.Is(err, exec.ErrCancelled) {
			return nil, NewCancelledError("query cancelled")
		}
		return nil, NewInternalError("query execution failed", err)
	}
	if out.Result != nil {
		if out.Result.Metadata == nil {
			out.Result.Metadata = map[string]any{}
		}
		out.Result.Metadata["query_id"] = q.queryID
	}
	if q.frozen.cfg.Logging.LogQueries {
		zap.S().Infow("colbeam: executed query", "query_id", q.queryID)
	}
	return out, nil
}

func (q *Queryable[T]) rowResult(ctx context.Context) (*exec.QueryResult, error) {
	out, err := q.execute(ctx)
	if err != nil {
		return nil, err
	}
	if out.Result == nil {
		return nil, NewInternalError("query did not produce a row result", nil)
	}
	return out.Result, nil
}

// ToList materializes every selected row as a T (spec.md §6 `to_list`).
func (q *Queryable[T]) ToList(ctx context.Context) ([]T, error) {
	res, err := q.rowResult(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := render.ToList(res, q.frozen.codec)
	if err != nil {
		return nil, NewInternalError("rendering rows failed", err)
	}
	return q.applyHostFilter(rows), nil
}

// ToArray is an alias for ToList (spec.md §6 `to_array`): Go has one slice
// type serving both terminators.
func (q *Queryable[T]) ToArray(ctx context.Context) ([]T, error) {
	res, err := q.rowResult(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := render.ToArray(res, q.frozen.codec)
	if err != nil {
		return nil, NewInternalError("rendering rows failed", err)
	}
	return q.applyHostFilter(rows), nil
}

func (q *Queryable[T]) applyHostFilter(rows []T) []T {
	if q.hostFilter == nil {
		return rows
	}
	out := rows[:0]
	for _, r := range rows {
		if q.hostFilter(r) {
			out = append(out, r)
		}
	}
	return out
}

// ToBatch renders the chain's output as a new columnar batch, zero-copy
// when the query is a full scan with full projection (spec.md §6
// `to_batch`).
func (q *Queryable[T]) ToBatch(ctx context.Context) (*columnar.Batch, error) {
	res, err := q.rowResult(ctx)
	if err != nil {
		return nil, err
	}
	batch, err := render.ToBatch(res)
	if err != nil {
		return nil, NewInternalError("rendering batch failed", err)
	}
	return batch, nil
}

// ToLazySequence returns an iter.Seq[T] that materializes rows one at a
// time (spec.md §6 `to_lazy_sequence`). The host-side WhereFunc fallback,
// if any, is applied inline as the sequence is pulled.
func (q *Queryable[T]) ToLazySequence(ctx context.Context) (iter.Seq[T], error) {
	res, err := q.rowResult(ctx)
	if err != nil {
		return nil, err
	}
	seq := render.ToLazySequence(res, q.frozen.codec)
	if q.hostFilter == nil {
		return seq, nil
	}
	filtered := func(yield func(T) bool) {
		for v := range seq {
			if !q.hostFilter(v) {
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
	return filtered, nil
}

// Count returns the number of selected rows (spec.md §6 `count`).
func (q *Queryable[T]) Count(ctx context.Context) (int64, error) {
	if q.hostFilter != nil {
		rows, err := q.ToList(ctx)
		if err != nil {
			return 0, err
		}
		return int64(len(rows)), nil
	}
	q.plan = &logicalplan.Aggregate{Input: q.plan, Op: logicalplan.AggCount, Column: -1}
	out, err := q.execute(ctx)
	if err != nil {
		return 0, err
	}
	return out.Scalar.Count, nil
}

// Any reports whether the chain selects at least one row (spec.md §6
// `any`).
func (q *Queryable[T]) Any(ctx context.Context) (bool, error) {
	n, err := q.Limit(1).Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// First returns the chain's first selected row, or ErrNoElements if none
// (spec.md §6 `first`, §8 "NoElements" boundary behavior).
func (q *Queryable[T]) First(ctx context.Context) (T, error) {
	var zero T
	rows, err := q.Limit(1).ToList(ctx)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, ErrNoElements
	}
	return rows[0], nil
}

// FirstOrDefault returns the chain's first selected row, or T's zero
// value if none (spec.md §6 `first_or_default`).
func (q *Queryable[T]) FirstOrDefault(ctx context.Context) (T, error) {
	v, err := q.First(ctx)
	if errors.Is(err, ErrNoElements) {
		var zero T
		return zero, nil
	}
	return v, err
}

func (q *Queryable[T]) scalarAggregate(ctx context.Context, op AggOp, column string) (float64, bool, error) {
	idx := q.frozen.schema.IndexOf(column)
	if idx < 0 {
		return 0, false, NewUnsupportedExpressionError("aggregate", fmt.Sprintf("no column named %q", column))
	}
	q.plan = &logicalplan.Aggregate{Input: q.plan, Op: op, Column: idx}
	out, err := q.execute(ctx)
	if err != nil {
		return 0, false, err
	}
	return out.Scalar.Value, out.Scalar.Present, nil
}

// Sum reduces column by addition (spec.md §6 `sum`). An empty input
// reports 0, not ErrNoElements (sum over the additive monoid).
func (q *Queryable[T]) Sum(ctx context.Context, column string) (float64, error) {
	v, _, err := q.scalarAggregate(ctx, SumAgg, column)
	return v, err
}

// Avg reduces column to its mean, accumulating in float64 regardless of
// the column's integer/float kind (Open Question decision, see
// DESIGN.md). Returns ErrNoElements over an empty input.
func (q *Queryable[T]) Avg(ctx context.Context, column string) (float64, error) {
	v, present, err := q.scalarAggregate(ctx, AvgAgg, column)
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, ErrNoElements
	}
	return v, nil
}

// Min reduces column to its minimum. Returns ErrNoElements over an empty
// input.
func (q *Queryable[T]) Min(ctx context.Context, column string) (float64, error) {
	v, present, err := q.scalarAggregate(ctx, MinAgg, column)
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, ErrNoElements
	}
	return v, nil
}

// Max reduces column to its maximum. Returns ErrNoElements over an empty
// input.
func (q *Queryable[T]) Max(ctx context.Context, column string) (float64, error) {
	v, present, err := q.scalarAggregate(ctx, MaxAgg, column)
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, ErrNoElements
	}
	return v, nil
}

// GroupByResult executes a chain ending in GroupBy and returns its grouped
// rows. Calling it on a chain with no GroupBy is a caller error.
func (q *Queryable[T]) GroupByResult(ctx context.Context) (*GroupResult, error) {
	if _, ok := q.plan.(*logicalplan.GroupBy); !ok {
		return nil, NewInternalError("GroupByResult called without a preceding GroupBy", nil)
	}
	out, err := q.execute(ctx)
	if err != nil {
		return nil, err
	}
	if out.Groups == nil {
		return nil, NewInternalError("group_by execution did not produce grouped output", nil)
	}
	return out.Groups, nil
}
