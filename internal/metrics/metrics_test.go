package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type capturedEvent struct {
	name   string
	labels map[string]string
	value  any
}

func captureEmitter() (*[]capturedEvent, func()) {
	events := &[]capturedEvent{}
	RegisterEmitter(func(ctx context.Context, name string, labels map[string]string, value any) {
		*events = append(*events, capturedEvent{name: name, labels: labels, value: value})
	})
	return events, func() { RegisterEmitter(nil) }
}

func TestEmitStageLatency(t *testing.T) {
	events, reset := captureEmitter()
	defer reset()

	EmitStageLatency(context.Background(), "filter", 123)

	assert.Len(t, *events, 1)
	assert.Equal(t, "query_stage_latency_us", (*events)[0].name)
	assert.Equal(t, "filter", (*events)[0].labels["stage"])
	assert.Equal(t, int64(123), (*events)[0].value)
}

func TestEmitRowCounts(t *testing.T) {
	events, reset := captureEmitter()
	defer reset()

	EmitRowCounts(context.Background(), "scan", 1000, 250)

	assert.Len(t, *events, 2)
	assert.Equal(t, "query_rows_total", (*events)[0].name)
	assert.Equal(t, int64(1000), (*events)[0].value)
	assert.Equal(t, "query_rows_selected", (*events)[1].name)
	assert.Equal(t, int64(250), (*events)[1].value)
}

func TestEmitZoneMapSkip(t *testing.T) {
	events, reset := captureEmitter()
	defer reset()

	EmitZoneMapSkip(context.Background(), "Value", 60, 64)

	assert.Len(t, *events, 1)
	assert.Equal(t, "query_zonemap_skip_ratio", (*events)[0].name)
	assert.Equal(t, "Value", (*events)[0].labels["column"])
	assert.InDelta(t, 0.9375, (*events)[0].value.(float64), 1e-9)
}

func TestEmitZoneMapSkipNoChunks(t *testing.T) {
	events, reset := captureEmitter()
	defer reset()

	EmitZoneMapSkip(context.Background(), "Value", 0, 0)

	assert.Equal(t, 0.0, (*events)[0].value)
}

func TestEmitPlanCacheEvent(t *testing.T) {
	events, reset := captureEmitter()
	defer reset()

	EmitPlanCacheEvent(context.Background(), "hit")

	assert.Len(t, *events, 1)
	assert.Equal(t, "query_plan_cache_event", (*events)[0].name)
	assert.Equal(t, "hit", (*events)[0].labels["event"])
}

func TestRegisterEmitterNilResetsToNoop(t *testing.T) {
	RegisterEmitter(nil)
	// Must not panic with no emitter registered.
	EmitStageLatency(context.Background(), "scan", 1)
}
