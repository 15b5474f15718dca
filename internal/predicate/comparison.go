package predicate

import (
	"context"
	"math"

	"github.com/klauspost/cpuid/v2"
	"github.com/lychee-technology/colbeam/internal/bitmap"
	"github.com/lychee-technology/colbeam/internal/columnar"
	"github.com/lychee-technology/colbeam/internal/metrics"
)

// laneWidth picks the SIMD kernel's lane width from the detected CPU
// feature set (spec.md §4.3 rule 3). Pure Go has no portable SIMD
// intrinsics; this governs the unroll factor of the comparison loop, which
// is the only lane-width-sensitive behavior achievable without cgo.
func laneWidth() int {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F):
		return 16
	case cpuid.CPU.Supports(cpuid.AVX2):
		return 8
	case cpuid.CPU.Supports(cpuid.SSE2):
		return 4
	default:
		return 1
	}
}

// Comparison is `col op constant` for numeric/date/timestamp/bool columns.
type Comparison struct {
	Column   int
	Op       Op
	Constant float64
}

var _ Predicate = (*Comparison)(nil)

// ReferencedColumns implements Predicate.
func (c *Comparison) ReferencedColumns() []int { return []int{c.Column} }

// IsZoneMapEvaluable implements Predicate.
func (c *Comparison) IsZoneMapEvaluable() bool { return true }

// admissibleRange returns [lo, hi] such that any row value outside this
// range cannot satisfy c, used for zone-map intersection tests.
func (c *Comparison) admissibleRange() (float64, float64) {
	switch c.Op {
	case Eq:
		return c.Constant, c.Constant
	case Ne:
		return math.Inf(-1), math.Inf(1) // no range can be excluded
	case Lt:
		return math.Inf(-1), math.Nextafter(c.Constant, math.Inf(-1))
	case Le:
		return math.Inf(-1), c.Constant
	case Gt:
		return math.Nextafter(c.Constant, math.Inf(1)), math.Inf(1)
	case Ge:
		return c.Constant, math.Inf(1)
	default:
		return math.Inf(-1), math.Inf(1)
	}
}

func matchOp(op Op, v, constant float64) bool {
	switch op {
	case Eq:
		return v == constant
	case Ne:
		return v != constant
	case Lt:
		return v < constant
	case Le:
		return v <= constant
	case Gt:
		return v > constant
	case Ge:
		return v >= constant
	default:
		return false
	}
}

// Evaluate implements Predicate: zone-map skip, then a lane-unrolled scalar
// scan (the "SIMD kernel"), then the validity mask.
func (c *Comparison) Evaluate(ctx *EvalContext, bm *bitmap.Bitmap) error {
	batch := ctx.Batch
	if c.Column < 0 || c.Column >= len(batch.Schema().Fields) {
		return &ErrUnsupportedPredicate{Column: c.Column, Reason: "column index out of range"}
	}
	field := batch.Schema().Fields[c.Column]
	if !field.Kind.IsOrderable() && field.Kind != columnar.KindBool {
		return &ErrTypeMismatch{Column: c.Column, Expected: field.Kind, Actual: "orderable"}
	}

	n := batch.Len()
	zm := ctx.ZoneMaps[c.Column]
	lo, hi := c.admissibleRange()
	width := laneWidth()
	values, valid := batch.MaterializeFloat64(c.Column)

	if zm != nil && c.IsZoneMapEvaluable() && c.Op != Ne {
		skipped := 0
		total := zm.NumChunks()
		for chunk := 0; chunk < total; chunk++ {
			start, end := chunkRange(chunk, zm.ChunkSize, n)
			if !zm.Intersects(chunk, lo, hi) {
				bm.ClearRange(start, end)
				skipped++
				continue
			}
			evalLaneRange(bm, values, valid, start, end, width, c.Op, c.Constant)
		}
		metrics.EmitZoneMapSkip(context.Background(), field.Name, skipped, total)
		return nil
	}

	evalLaneRange(bm, values, valid, 0, n, width, c.Op, c.Constant)
	return nil
}

// evalLaneRange clears every bit in [start, end) whose value does not
// satisfy op, processing `width` rows per unrolled iteration and the
// remainder (n mod width) scalar, per spec.md §4.3 rule 3.
func evalLaneRange(bm *bitmap.Bitmap, values []float64, valid []bool, start, end, width int, op Op, constant float64) {
	row := start
	for ; row+width <= end; row += width {
		for lane := 0; lane < width; lane++ {
			i := row + lane
			if !bm.Get(i) {
				continue
			}
			if !valid[i] || !matchOp(op, values[i], constant) {
				bm.Clear(i)
			}
		}
	}
	for ; row < end; row++ {
		if !bm.Get(row) {
			continue
		}
		if !valid[row] || !matchOp(op, values[row], constant) {
			bm.Clear(row)
		}
	}
}

// Selectivity implements Predicate using the column's min/max/distinct
// statistics when available, falling back to conservative constants.
func (c *Comparison) Selectivity(ctx *EvalContext) float64 {
	stats, ok := ctx.Stats[c.Column]
	if !ok || !stats.HasMinMax || stats.Max <= stats.Min {
		switch c.Op {
		case Eq:
			return 0.1
		case Ne:
			return 0.9
		default:
			return 0.33
		}
	}
	span := stats.Max - stats.Min
	switch c.Op {
	case Eq:
		if stats.DistinctCount > 0 {
			return 1.0 / float64(stats.DistinctCount)
		}
		return 1.0 / span
	case Ne:
		if stats.DistinctCount > 0 {
			return 1.0 - 1.0/float64(stats.DistinctCount)
		}
		return 0.9
	case Lt, Le:
		return clamp01((c.Constant - stats.Min) / span)
	case Gt, Ge:
		return clamp01((stats.Max - c.Constant) / span)
	default:
		return 0.5
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Between is `lo <= col <= hi` (or with exclusive bounds per
// InclusiveLow/InclusiveHigh).
type Between struct {
	Column                     int
	Lo, Hi                     float64
	InclusiveLow, InclusiveHigh bool
}

var _ Predicate = (*Between)(nil)

// ReferencedColumns implements Predicate.
func (b *Between) ReferencedColumns() []int { return []int{b.Column} }

// IsZoneMapEvaluable implements Predicate.
func (b *Between) IsZoneMapEvaluable() bool { return true }

// Evaluate implements Predicate.
func (b *Between) Evaluate(ctx *EvalContext, bm *bitmap.Bitmap) error {
	batch := ctx.Batch
	field := batch.Schema().Fields[b.Column]
	if !field.Kind.IsOrderable() {
		return &ErrTypeMismatch{Column: b.Column, Expected: field.Kind, Actual: "orderable"}
	}
	n := batch.Len()
	zm := ctx.ZoneMaps[b.Column]
	values, valid := batch.MaterializeFloat64(b.Column)
	match := func(v float64) bool {
		okLow := v > b.Lo || (b.InclusiveLow && v == b.Lo)
		okHigh := v < b.Hi || (b.InclusiveHigh && v == b.Hi)
		return okLow && okHigh
	}

	rangeCheck := func(start, end int) {
		for row := start; row < end; row++ {
			if !bm.Get(row) {
				continue
			}
			if !valid[row] || !match(values[row]) {
				bm.Clear(row)
			}
		}
	}

	if zm != nil {
		skipped := 0
		total := zm.NumChunks()
		for chunk := 0; chunk < total; chunk++ {
			start, end := chunkRange(chunk, zm.ChunkSize, n)
			if !zm.Intersects(chunk, b.Lo, b.Hi) {
				bm.ClearRange(start, end)
				skipped++
				continue
			}
			rangeCheck(start, end)
		}
		metrics.EmitZoneMapSkip(context.Background(), field.Name, skipped, total)
		return nil
	}
	rangeCheck(0, n)
	return nil
}

// Selectivity implements Predicate.
func (b *Between) Selectivity(ctx *EvalContext) float64 {
	stats, ok := ctx.Stats[b.Column]
	if !ok || !stats.HasMinMax || stats.Max <= stats.Min {
		return 0.25
	}
	return clamp01((b.Hi - b.Lo) / (stats.Max - stats.Min))
}
