// Package zonemap computes and stores per-column statistics and per-chunk
// min/max indices over a frozen batch, enabling predicate evaluation to
// skip whole chunks that cannot satisfy an orderable predicate.
package zonemap

import (
	"math"

	"github.com/lychee-technology/colbeam/internal/columnar"
)

// DefaultChunkSize is the default zone-map chunk row count (spec.md §3).
const DefaultChunkSize = 16384

// ColumnStatistics holds per-column facts computed once during ingest.
type ColumnStatistics struct {
	Kind         columnar.Kind
	TotalCount   int64
	DistinctCount int64
	HasMinMax    bool
	Min          float64
	Max          float64
}

// ZoneMap is a per-chunk (min, max, present) index for one orderable
// column. Chunk k covers rows [k*ChunkSize, min((k+1)*ChunkSize, len)).
type ZoneMap struct {
	ChunkSize int
	Min       []float64
	Max       []float64
	Present   []bool // false ⇒ the chunk is entirely null
}

// NumChunks returns the number of chunks this zone map covers.
func (z *ZoneMap) NumChunks() int { return len(z.Min) }

// Intersects reports whether chunk k's [min, max] range could contain a
// value satisfying a predicate whose own admissible range is
// [predLo, predHi] (use -Inf/+Inf for open bounds). A chunk the zone map
// marks absent (all-null) never intersects, since no value exists to test.
func (z *ZoneMap) Intersects(chunk int, predLo, predHi float64) bool {
	if !z.Present[chunk] {
		return false
	}
	return z.Min[chunk] <= predHi && z.Max[chunk] >= predLo
}

// BuildColumnStatistics computes ColumnStatistics for column col of batch.
// distinctCount, when the column is dictionary-encoded, is the dictionary
// size (exact); for plain string/other columns it's left at 0 unless the
// caller supplies a sampled estimate via distinctHint.
func BuildColumnStatistics(batch *columnar.Batch, col int, distinctHint int64) ColumnStatistics {
	field := batch.Schema().Fields[col]
	stats := ColumnStatistics{Kind: field.Kind, TotalCount: int64(batch.Len())}

	if field.Kind == columnar.KindDictionaryString {
		if values, err := batch.DictionaryValues(col); err == nil {
			stats.DistinctCount = int64(len(values))
		}
	} else {
		stats.DistinctCount = distinctHint
	}

	if !field.Kind.IsOrderable() {
		return stats
	}

	min, max := math.Inf(1), math.Inf(-1)
	found := false
	for row := 0; row < batch.Len(); row++ {
		v, ok := batch.Float64At(col, row)
		if !ok {
			continue
		}
		found = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if found {
		stats.HasMinMax = true
		stats.Min = min
		stats.Max = max
	}
	return stats
}

// Build computes a ZoneMap for column col of batch, chunked at chunkSize.
// Per spec.md §4.1, zone maps are only emitted by ingest when
// len >= 2*chunkSize; this function itself has no such threshold so it can
// also be used by tests and by explicit re-indexing.
func Build(batch *columnar.Batch, col int, chunkSize int) *ZoneMap {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	n := batch.Len()
	numChunks := (n + chunkSize - 1) / chunkSize
	z := &ZoneMap{
		ChunkSize: chunkSize,
		Min:       make([]float64, numChunks),
		Max:       make([]float64, numChunks),
		Present:   make([]bool, numChunks),
	}
	for c := 0; c < numChunks; c++ {
		start := c * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		min, max := math.Inf(1), math.Inf(-1)
		found := false
		for row := start; row < end; row++ {
			v, ok := batch.Float64At(col, row)
			if !ok {
				continue
			}
			found = true
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		z.Present[c] = found
		if found {
			z.Min[c] = min
			z.Max[c] = max
		}
	}
	return z
}

// ShouldBuild reports whether ingest should build a zone map for a column
// with rowCount rows at the configured chunkSize (spec.md §4.1: emitted
// when len >= 2*chunk_size).
func ShouldBuild(rowCount, chunkSize int) bool {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return rowCount >= 2*chunkSize
}
