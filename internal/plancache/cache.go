package plancache

import (
	"context"
	"sync/atomic"

	"github.com/lychee-technology/colbeam/internal/logicalplan"
	"github.com/lychee-technology/colbeam/internal/metrics"
	"github.com/lychee-technology/colbeam/internal/physicalplan"
)

const defaultCapacity = 1024

// entry pairs a compiled physical plan with its insertion sequence number,
// used to pick an eviction victim once the cache is over capacity.
type entry struct {
	plan *physicalplan.Node
	seq  uint64
}

// snapshot is the immutable map a Cache's pointer always refers to. Readers
// load it once and never see a partial update; writers build a new
// snapshot and swap it in via compare-and-set (spec.md §4.7/§9).
type snapshot struct {
	entries map[uint64]entry
}

// Cache is a bounded, structural-fingerprint-keyed cache of compiled
// physical plans. Reads are wait-free; inserts retry a compare-and-set
// loop against concurrent writers.
type Cache struct {
	capacity int
	ptr      atomic.Pointer[snapshot]
	seq      atomic.Uint64
}

// New returns a Cache with the given soft capacity; capacity <= 0 uses the
// spec default of 1024 entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	c := &Cache{capacity: capacity}
	c.ptr.Store(&snapshot{entries: make(map[uint64]entry)})
	return c
}

// Get returns the compiled plan for fingerprint fp, if present.
func (c *Cache) Get(fp uint64) (*physicalplan.Node, bool) {
	snap := c.ptr.Load()
	e, ok := snap.entries[fp]
	if !ok {
		return nil, false
	}
	return e.plan, true
}

// Insert publishes plan under fp, evicting the oldest entry if the cache is
// at capacity. Re-inserting an already-present fingerprint is a no-op
// (idempotent insertion, per spec.md §8 invariant 8).
func (c *Cache) Insert(fp uint64, plan *physicalplan.Node) {
	for {
		old := c.ptr.Load()
		if _, exists := old.entries[fp]; exists {
			return
		}
		next := make(map[uint64]entry, len(old.entries)+1)
		for k, v := range old.entries {
			next[k] = v
		}
		next[fp] = entry{plan: plan, seq: c.seq.Add(1)}
		if len(next) > c.capacity {
			evictOldest(next)
			metrics.EmitPlanCacheEvent(context.Background(), "evict")
		}
		if c.ptr.CompareAndSwap(old, &snapshot{entries: next}) {
			metrics.EmitPlanCacheEvent(context.Background(), "insert")
			return
		}
	}
}

func evictOldest(m map[uint64]entry) {
	var oldestKey uint64
	var oldestSeq uint64
	first := true
	for k, v := range m {
		if first || v.seq < oldestSeq {
			oldestKey, oldestSeq, first = k, v.seq, false
		}
	}
	if !first {
		delete(m, oldestKey)
	}
}

// GetOrCompile returns the cached physical plan for logical under cfg,
// compiling and caching it on a miss.
func (c *Cache) GetOrCompile(logical logicalplan.Node, cfg physicalplan.Config) (*physicalplan.Node, uint64) {
	fp := Fingerprint(logical)
	if plan, ok := c.Get(fp); ok {
		metrics.EmitPlanCacheEvent(context.Background(), "hit")
		return plan, fp
	}
	metrics.EmitPlanCacheEvent(context.Background(), "miss")
	plan := physicalplan.Plan(logical, cfg)
	c.Insert(fp, plan)
	return plan, fp
}

// Len returns the current entry count, for diagnostics and tests.
func (c *Cache) Len() int {
	return len(c.ptr.Load().entries)
}
