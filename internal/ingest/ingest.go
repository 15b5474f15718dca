// Package ingest builds a frozen RecordBatch, its column statistics, and
// its zone maps from a finite, exhausted-once sequence of records
// (spec.md §4.1). It is the only place in the engine that appends to
// columnar builders; everything downstream operates on the result as
// read-only.
package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	gojson "github.com/goccy/go-json"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/colbeam/internal/codec"
	"github.com/lychee-technology/colbeam/internal/columnar"
	"github.com/lychee-technology/colbeam/internal/zonemap"
)

// maxDistinctSample bounds the first-pass distinct-value count to a
// streaming sample of at most 1 Mi values (spec.md §4.1); beyond that the
// distinct count is an estimate rather than an exact tally.
const maxDistinctSample = 1 << 20

// ErrUnsupportedType is returned when a field's declared type lies outside
// the engine's enumerated type set (spec.md §7).
type ErrUnsupportedType struct {
	Field string
	Kind  columnar.Kind
}

func (e *ErrUnsupportedType) Error() string {
	return fmt.Sprintf("ingest: field %q: unsupported type %v", e.Field, e.Kind)
}

// ErrSchemaMismatch is returned when the caller-supplied schema_hint
// rejects a record (spec.md §7).
type ErrSchemaMismatch struct {
	Reason string
}

func (e *ErrSchemaMismatch) Error() string {
	return fmt.Sprintf("ingest: schema mismatch: %s", e.Reason)
}

// Options configures one Freeze call.
type Options struct {
	// DictionaryThreshold is θ: a string column is dictionary-encoded when
	// distinct_count/total_count <= θ. Spec.md §3 default is 0.5.
	DictionaryThreshold float64
	// ZoneMapChunkSize is the per-chunk row count for zone maps. Spec.md §3
	// default is 16384.
	ZoneMapChunkSize int
	// SchemaHint, when non-empty, is a JSON Schema every record is
	// validated against (via its JSON-marshaled form) before conversion.
	SchemaHint json.RawMessage
}

// DefaultOptions returns ingest defaults matching spec.md §6's Config.
func DefaultOptions() Options {
	return Options{
		DictionaryThreshold: 0.5,
		ZoneMapChunkSize:    zonemap.DefaultChunkSize,
	}
}

func fillDefaults(o Options) Options {
	if o.DictionaryThreshold <= 0 {
		o.DictionaryThreshold = 0.5
	}
	if o.ZoneMapChunkSize <= 0 {
		o.ZoneMapChunkSize = zonemap.DefaultChunkSize
	}
	return o
}

// Result is everything Freeze produces for one input sequence.
type Result struct {
	Batch    *columnar.Batch
	Stats    map[int]zonemap.ColumnStatistics
	ZoneMaps map[int]*zonemap.ZoneMap
}

// Freeze ingests records (of Go type T) into a Result, driving a
// codec.RowCodec[T] built from schema. Order is preserved; the input is
// consumed exactly once. schema's string fields should be declared
// KindString; ingest itself decides, post-sampling, whether each one is
// represented as a dictionary internally.
func Freeze[T any](records []T, schema *columnar.Schema, opts Options) (*Result, error) {
	rc, err := codec.New[T](schema)
	if err != nil {
		return nil, err
	}
	if err := validateHint(records, opts); err != nil {
		return nil, err
	}

	opts = fillDefaults(opts)
	builders := make([]*columnar.Builder, len(schema.Fields))
	for i, f := range schema.Fields {
		b, err := columnar.NewBuilder(f)
		if err != nil {
			return nil, &ErrUnsupportedType{Field: f.Name, Kind: f.Kind}
		}
		builders[i] = b
	}

	for _, rec := range records {
		if err := rc.Write(builders, rec); err != nil {
			return nil, err
		}
	}

	arrowRec, err := columnar.NewRecordFromBuilders(schema, builders)
	if err != nil {
		return nil, err
	}
	defer arrowRec.Release()

	return FreezeRaw(arrowRec, schema, opts)
}

// FreezeRaw wraps an already-built arrow.Record into a Result, running the
// same dictionary-encoding decision, statistics pass, and zone-map build
// that Freeze runs after its codec-driven append loop. schema describes
// rec's nominal (pre-dictionary-decision) field kinds.
func FreezeRaw(rec arrow.Record, schema *columnar.Schema, opts Options) (*Result, error) {
	opts = fillDefaults(opts)
	batch, err := columnar.NewBatch(rec)
	if err != nil {
		return nil, err
	}
	defer batch.Release()

	rowCount := batch.Len()
	finalSchema, distinctHints, err := decideDictionaryEncoding(batch, schema, opts)
	if err != nil {
		return nil, err
	}

	finalBatch := batch
	if !sameSchema(schema, finalSchema) {
		finalBatch, err = columnar.Rebuild(batch, finalSchema)
		if err != nil {
			return nil, err
		}
	} else {
		finalBatch.Retain()
	}

	stats := make(map[int]zonemap.ColumnStatistics, len(finalSchema.Fields))
	zoneMaps := make(map[int]*zonemap.ZoneMap)
	for i := range finalSchema.Fields {
		stats[i] = zonemap.BuildColumnStatistics(finalBatch, i, distinctHints[i])
		if finalSchema.Fields[i].Kind.IsOrderable() && zonemap.ShouldBuild(rowCount, opts.ZoneMapChunkSize) {
			zoneMaps[i] = zonemap.Build(finalBatch, i, opts.ZoneMapChunkSize)
		}
	}

	return &Result{Batch: finalBatch, Stats: stats, ZoneMaps: zoneMaps}, nil
}

func sameSchema(a, b *columnar.Schema) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i].Kind != b.Fields[i].Kind {
			return false
		}
	}
	return true
}

// decideDictionaryEncoding samples each KindString column (bounded to
// maxDistinctSample rows) and returns a schema where any column crossing
// opts.DictionaryThreshold has been promoted to KindDictionaryString,
// along with a distinct-count hint per column (only meaningful for
// non-dictionary string columns; dictionary columns get their exact count
// from the dictionary array itself once built).
func decideDictionaryEncoding(batch *columnar.Batch, schema *columnar.Schema, opts Options) (*columnar.Schema, map[int]int64, error) {
	out := &columnar.Schema{Fields: append([]columnar.Field{}, schema.Fields...)}
	hints := make(map[int]int64, len(schema.Fields))
	n := batch.Len()

	for i, f := range schema.Fields {
		if f.Kind != columnar.KindString {
			continue
		}
		sampler := newDistinctSampler()
		limit := n
		if limit > maxDistinctSample {
			limit = maxDistinctSample
		}
		for row := 0; row < limit; row++ {
			v, ok := batch.StringAt(i, row)
			if !ok {
				continue
			}
			sampler.Observe(v)
		}
		estimate := sampler.Estimate(limit, n)
		hints[i] = estimate
		if n > 0 && float64(estimate)/float64(n) <= opts.DictionaryThreshold {
			out.Fields[i].Kind = columnar.KindDictionaryString
		}
	}
	return out, hints, nil
}

// distinctSampler counts distinct string values seen, up to the bounded
// sample size the caller enforces via its loop limit.
type distinctSampler struct {
	seen map[string]struct{}
}

func newDistinctSampler() *distinctSampler {
	return &distinctSampler{seen: make(map[string]struct{})}
}

func (s *distinctSampler) Observe(v string) {
	s.seen[v] = struct{}{}
}

// Estimate extrapolates the sampled distinct count to the full row count
// when the sample was truncated (sampled < total): it scales the observed
// distinct count by total/sampled, a simple linear cardinality
// approximation (spec.md §4.1 "estimate via cardinality approximation"
// above the 1 Mi sample bound; this engine does not pull in a
// HyperLogLog-style sketch library, since nothing in the retrieved pack
// carries one — see DESIGN.md).
func (s *distinctSampler) Estimate(sampled, total int) int64 {
	observed := int64(len(s.seen))
	if sampled >= total || sampled == 0 {
		return observed
	}
	estimate := observed * int64(total) / int64(sampled)
	if estimate > int64(total) {
		estimate = int64(total)
	}
	return estimate
}

// validateHint validates every record's JSON-marshaled form against
// opts.SchemaHint, when supplied, before ingest proceeds.
func validateHint[T any](records []T, opts Options) error {
	if len(opts.SchemaHint) == 0 {
		return nil
	}
	var schema jsonschema.Schema
	if err := gojson.Unmarshal(opts.SchemaHint, &schema); err != nil {
		return fmt.Errorf("ingest: invalid schema_hint: %w", err)
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return fmt.Errorf("ingest: resolving schema_hint: %w", err)
	}
	for i, rec := range records {
		data, err := gojson.Marshal(rec)
		if err != nil {
			return fmt.Errorf("ingest: marshaling record %d for schema_hint validation: %w", i, err)
		}
		var value any
		if err := gojson.Unmarshal(data, &value); err != nil {
			return fmt.Errorf("ingest: unmarshaling record %d for schema_hint validation: %w", i, err)
		}
		if err := resolved.Validate(value); err != nil {
			return &ErrSchemaMismatch{Reason: fmt.Sprintf("record %d: %v", i, err)}
		}
	}
	return nil
}
