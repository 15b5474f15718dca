package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/colbeam"
)

type widget struct {
	ID    int64   `colbeam:"id"`
	Name  string  `colbeam:"name"`
	Price float64 `colbeam:"price"`
}

func TestNewConfigAppliesOptions(t *testing.T) {
	cfg, err := NewConfig(
		WithDictionaryThreshold(0.3),
		WithParallelExecution(false, 0, -1),
		WithFallbackAllowed(true),
		WithPlanCacheCapacity(16),
	)
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Ingest.DictionaryThreshold)
	assert.False(t, cfg.Exec.ParallelEnabled)
	assert.True(t, cfg.Exec.FallbackAllowed)
	assert.Equal(t, 16, cfg.PlanCache.Capacity)
}

func TestNewConfigRejectsInvalidOption(t *testing.T) {
	_, err := NewConfig(WithDictionaryThreshold(2.0))
	assert.Error(t, err)
}

func TestNewConfigDefaultsWithNoOptions(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Ingest.DictionaryThreshold)
	assert.True(t, cfg.Exec.ParallelEnabled)
}

func TestNewFrozenFromRows(t *testing.T) {
	rows := []widget{
		{ID: 1, Name: "a", Price: 1.5},
		{ID: 2, Name: "b", Price: 2.5},
	}
	frozen, err := NewFrozenFromRows[widget](rows, nil, WithPlanCacheCapacity(8))
	require.NoError(t, err)
	defer frozen.Release()

	assert.Equal(t, 2, frozen.Len())

	out, err := frozen.Query().Where(colbeam.Gt("price", 2.0)).ToList(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].Name)
}

func TestInitLoggingBuildsAndSyncs(t *testing.T) {
	cfg, err := NewConfig(WithLogging("debug", "console", true))
	require.NoError(t, err)

	sync, err := InitLogging(cfg)
	require.NoError(t, err)
	require.NotNil(t, sync)
	sync()
}

func TestInitLoggingRejectsBadLevel(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)
	cfg.Logging.Level = "not-a-level"

	_, err = InitLogging(cfg)
	assert.Error(t, err)
}
