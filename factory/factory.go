// Package factory is the engine's dependency-injection surface: it builds a
// validated Config from functional options and wires it directly into a
// Frozen[T], the way the teacher's factory package built an EntityManager
// from a Config plus a database pool. There is no pool here — everything a
// Frozen[T] needs comes from the caller's in-memory rows and the returned
// Config — so this package's job shrinks to option application, logger
// setup, and construction, not connection bootstrapping.
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/lychee-technology/colbeam"
)

// Option mutates a Config under construction, returning an error for an
// option that conflicts with what's already been applied.
type Option func(*colbeam.Config) error

// WithDictionaryThreshold overrides the ingest dictionary-encoding ratio.
func WithDictionaryThreshold(ratio float64) Option {
	return func(c *colbeam.Config) error {
		c.Ingest.DictionaryThreshold = ratio
		return nil
	}
}

// WithZoneMapChunkSize overrides the ingest zone-map chunk size.
func WithZoneMapChunkSize(rows int) Option {
	return func(c *colbeam.Config) error {
		c.Ingest.ZoneMapChunkSize = rows
		return nil
	}
}

// WithParallelExecution toggles the executor's bounded worker pool and sets
// the chunk size/threshold that govern when it engages.
func WithParallelExecution(enabled bool, chunkSize, thresholdRows int) Option {
	return func(c *colbeam.Config) error {
		c.Exec.ParallelEnabled = enabled
		if chunkSize > 0 {
			c.Exec.ParallelChunkSize = chunkSize
		}
		if thresholdRows >= 0 {
			c.Exec.ParallelThresholdRows = thresholdRows
		}
		return nil
	}
}

// WithFallbackAllowed permits Queryable[T].WhereFunc's host-side predicate
// escape hatch.
func WithFallbackAllowed(allowed bool) Option {
	return func(c *colbeam.Config) error {
		c.Exec.FallbackAllowed = allowed
		return nil
	}
}

// WithPlanCacheCapacity overrides the compiled-plan cache's soft capacity.
func WithPlanCacheCapacity(capacity int) Option {
	return func(c *colbeam.Config) error {
		c.PlanCache.Capacity = capacity
		return nil
	}
}

// WithLogging overrides the logger's level/format and whether every
// executed query is logged at info level.
func WithLogging(level, format string, logQueries bool) Option {
	return func(c *colbeam.Config) error {
		c.Logging.Level = level
		c.Logging.Format = format
		c.Logging.LogQueries = logQueries
		return nil
	}
}

// NewConfig builds a Config from DefaultConfig plus opts, validating the
// result. This is the factory's equivalent of the teacher's
// NewEntityManagerWithConfig preflight checks, minus the table-existence
// query a live database would need.
func NewConfig(opts ...Option) (*colbeam.Config, error) {
	cfg := colbeam.DefaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigFromFile loads a Config from a TOML file, the factory package's
// equivalent entrypoint to NewConfig for callers that keep their
// configuration on disk.
func NewConfigFromFile(path string) (*colbeam.Config, error) {
	return colbeam.LoadConfig(path)
}

// InitLogging installs a zap global logger matching cfg.Logging, mirroring
// cmd/server/main.go's zap.NewProduction + zap.ReplaceGlobals startup
// sequence. It returns a sync func the caller should defer.
func InitLogging(cfg *colbeam.Config) (sync func(), err error) {
	var zcfg zap.Config
	switch cfg.Logging.Format {
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	default:
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("factory: invalid logging level %q: %w", cfg.Logging.Level, err)
	}
	zcfg.Level = level
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("factory: failed to build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return func() { _ = logger.Sync() }, nil
}

// NewFrozenFromRows builds a Config from opts and freezes rows into it in
// one call, the common case for callers that don't need the intermediate
// Config for anything else.
func NewFrozenFromRows[T any](rows []T, schemaHint json.RawMessage, opts ...Option) (*colbeam.Frozen[T], error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return colbeam.Freeze[T](rows, schemaHint, cfg)
}

// NewFrozenFromRecord wraps an already-built Arrow record the same way,
// for callers producing batches with the arrow-go builders directly rather
// than through a slice of Go structs.
func NewFrozenFromRecord[T any](rec arrow.Record, opts ...Option) (*colbeam.Frozen[T], error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return colbeam.FreezeRaw[T](rec, cfg)
}
