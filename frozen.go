// Package colbeam is an in-process, read-only columnar query engine over
// Apache-Arrow-style record batches: freeze a slice of strongly-typed Go
// records once, then filter/aggregate/group/sort/limit it through a
// LINQ-style combinator chain backed by vectorized kernels, zone-map
// chunk skipping, and a cached physical plan (spec.md §§1-2).
package colbeam

import (
	"encoding/json"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lychee-technology/colbeam/internal/codec"
	"github.com/lychee-technology/colbeam/internal/columnar"
	"github.com/lychee-technology/colbeam/internal/ingest"
	"github.com/lychee-technology/colbeam/internal/plancache"
	"github.com/lychee-technology/colbeam/internal/zonemap"
)

// RowCodec reads one row of a frozen batch into a T and writes a T's
// fields into column builders during ingest. The default implementation
// (internal/codec's reflectCodec) is built once per T from its exported
// struct fields; spec.md §1 Out of scope (b) treats the codec's producer
// (a field-annotation-driven generator) as an external collaborator and
// only specifies this interface.
type RowCodec[T any] = codec.RowCodec[T]

// Frozen is an immutable, in-memory collection of T, backed by one
// columnar record batch plus its published statistics and zone maps
// (spec.md §3 "Frozen collection"). It owns native Arrow buffers until
// Release is called.
type Frozen[T any] struct {
	batch    *columnar.Batch
	schema   *columnar.Schema
	stats    map[int]zonemap.ColumnStatistics
	zoneMaps map[int]*zonemap.ZoneMap
	codec    RowCodec[T]
	cache    *plancache.Cache
	cfg      *Config
}

// Freeze ingests records into a Frozen[T]. records is consumed exactly
// once; order is preserved. schemaHint, when non-empty, is a JSON Schema
// every record is validated against before conversion (spec.md §6
// `freeze(records, schema_hint?)`). cfg may be nil to use DefaultConfig.
func Freeze[T any](records []T, schemaHint json.RawMessage, cfg *Config) (*Frozen[T], error) {
	cfg, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}
	schema, err := codec.InferSchema[T]()
	if err != nil {
		return nil, NewUnsupportedTypeError("", err.Error())
	}
	rc, err := codec.New[T](schema)
	if err != nil {
		return nil, NewUnsupportedTypeError("", err.Error())
	}
	result, err := ingest.Freeze[T](records, schema, ingestOptions(cfg, schemaHint))
	if err != nil {
		return nil, wrapIngestError(err)
	}
	zap.S().Infow("colbeam: froze collection", "rows", len(records), "fields", len(schema.Fields))
	return newFrozen(result, rc, cfg), nil
}

// FreezeRaw wraps an already-built Arrow record into a Frozen[T], running
// the same dictionary-encoding decision, statistics pass, and zone-map
// build that Freeze runs (spec.md §6 `freeze_raw(batch)`). T's schema is
// inferred from its exported fields exactly as in Freeze; rec's schema
// must use compatible field names.
func FreezeRaw[T any](rec arrow.Record, cfg *Config) (*Frozen[T], error) {
	cfg, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}
	schema, err := codec.InferSchema[T]()
	if err != nil {
		return nil, NewUnsupportedTypeError("", err.Error())
	}
	rc, err := codec.New[T](schema)
	if err != nil {
		return nil, NewUnsupportedTypeError("", err.Error())
	}
	result, err := ingest.FreezeRaw(rec, schema, ingestOptions(cfg, nil))
	if err != nil {
		return nil, wrapIngestError(err)
	}
	zap.S().Infow("colbeam: froze raw record", "rows", rec.NumRows())
	return newFrozen(result, rc, cfg), nil
}

func newFrozen[T any](result *ingest.Result, rc RowCodec[T], cfg *Config) *Frozen[T] {
	return &Frozen[T]{
		batch:    result.Batch,
		schema:   result.Batch.Schema(),
		stats:    result.Stats,
		zoneMaps: result.ZoneMaps,
		codec:    rc,
		cache:    plancache.New(cfg.PlanCache.Capacity),
		cfg:      cfg,
	}
}

func resolveConfig(cfg *Config) (*Config, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ingestOptions(cfg *Config, schemaHint json.RawMessage) ingest.Options {
	return ingest.Options{
		DictionaryThreshold: cfg.Ingest.DictionaryThreshold,
		ZoneMapChunkSize:    cfg.Ingest.ZoneMapChunkSize,
		SchemaHint:          schemaHint,
	}
}

func wrapIngestError(err error) error {
	switch e := err.(type) {
	case *ingest.ErrUnsupportedType:
		return NewUnsupportedTypeError(e.Field, e.Error())
	case *ingest.ErrSchemaMismatch:
		return NewSchemaMismatchError(e.Error())
	default:
		return NewInternalError("ingest failed", err)
	}
}

// Schema returns the frozen collection's column schema.
func (f *Frozen[T]) Schema() *columnar.Schema { return f.schema }

// Len returns the number of rows in the frozen batch.
func (f *Frozen[T]) Len() int { return f.batch.Len() }

// Release disposes the frozen collection's backing native Arrow buffers.
// Every Queryable[T] derived from it, and any QueryResult it already
// produced, becomes invalid once Release returns (spec.md §3 Lifecycles).
func (f *Frozen[T]) Release() { f.batch.Release() }

// Query starts a new combinator chain over the frozen collection
// (spec.md §6 `Frozen[T].query()`).
func (f *Frozen[T]) Query() *Queryable[T] {
	return &Queryable[T]{
		frozen:  f,
		plan:    scanNode(f),
		queryID: uuid.New().String(),
	}
}
