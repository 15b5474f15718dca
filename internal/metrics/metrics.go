// Package metrics is a lightweight telemetry hook layer used by the query
// engine. It exposes simple emitter functions the executor and plan cache
// call at stage boundaries. The implementation is intentionally minimal:
// callers may register a real metrics backend (or a test stub) via
// RegisterEmitter. By default the emitter is a no-op, avoiding any hard
// dependency on a metrics SDK in this module.
package metrics

import (
	"context"
	"sync"
)

type emitterFunc func(ctx context.Context, name string, labels map[string]string, value any)

var (
	mu   sync.Mutex
	impl emitterFunc = func(ctx context.Context, name string, labels map[string]string, value any) {
		// noop by default
	}
)

// RegisterEmitter registers a custom emitter function. Callers (e.g. engine
// wiring) can provide a real metrics-backed emitter or a test meter.
func RegisterEmitter(fn emitterFunc) {
	mu.Lock()
	defer mu.Unlock()
	if fn == nil {
		impl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	impl = fn
}

func emit(ctx context.Context, name string, labels map[string]string, value any) {
	mu.Lock()
	fn := impl
	mu.Unlock()
	fn(ctx, name, labels, value)
}

// EmitStageLatency records a latency measure (microseconds) for a named
// execution stage: "scan", "filter", "aggregate", "sort", "groupby".
func EmitStageLatency(ctx context.Context, stage string, micros int64) {
	emit(ctx, "query_stage_latency_us", map[string]string{"stage": stage}, micros)
}

// EmitRowCounts records rows seen vs. rows selected for a scan/filter stage.
func EmitRowCounts(ctx context.Context, stage string, total, selected int64) {
	emit(ctx, "query_rows_total", map[string]string{"stage": stage}, total)
	emit(ctx, "query_rows_selected", map[string]string{"stage": stage}, selected)
}

// EmitZoneMapSkip records the fraction of chunks skipped by zone-map
// pruning for a column predicate.
func EmitZoneMapSkip(ctx context.Context, column string, skippedChunks, totalChunks int) {
	ratio := 0.0
	if totalChunks > 0 {
		ratio = float64(skippedChunks) / float64(totalChunks)
	}
	emit(ctx, "query_zonemap_skip_ratio", map[string]string{"column": column}, ratio)
}

// EmitPlanCacheEvent records a plan-cache hit/miss/evict event.
func EmitPlanCacheEvent(ctx context.Context, event string) {
	emit(ctx, "query_plan_cache_event", map[string]string{"event": event}, int64(1))
}
