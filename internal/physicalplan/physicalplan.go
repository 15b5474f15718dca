// Package physicalplan annotates a logical plan with an execution strategy
// per node — sequential, SIMD, parallel(chunk_size), or fused — chosen from
// the fixed cost model in spec.md §4.5.
package physicalplan

import (
	"fmt"

	"github.com/lychee-technology/colbeam/internal/logicalplan"
)

// Strategy is the chosen execution strategy for one physical node.
type Strategy int

const (
	Sequential Strategy = iota
	SIMD
	Parallel
	Fused
)

func (s Strategy) String() string {
	switch s {
	case Sequential:
		return "sequential"
	case SIMD:
		return "simd"
	case Parallel:
		return "parallel"
	case Fused:
		return "fused"
	default:
		return "?"
	}
}

// Cost model constants from spec.md §4.5.
const (
	CostSequentialPerRow = 1.0
	CostSIMDPerRow       = 0.25
	// ParallelSetupOverheadRows approximates K_par (50µs equivalent) as a
	// row-count threshold below which parallel setup cost dominates any
	// savings; spec.md leaves the constant tunable, this engine fixes it at
	// one chunk's worth of rows.
	ParallelSetupOverheadRows = DefaultChunkSize
)

// Thresholds from spec.md §4.5's selection rule.
const (
	SequentialThresholdRows = 1000
	SIMDThresholdRows       = 50000
	ParallelThresholdRows   = 50000
	DefaultChunkSize        = 16384
)

// Node mirrors a logicalplan.Node, additionally carrying the chosen
// strategy, a chunk size (meaningful only when Strategy == Parallel), and
// a cost estimate used purely for the diagnostics renderer.
type Node struct {
	Logical      logicalplan.Node
	Strategy     Strategy
	ChunkSize    int
	CostEstimate float64
	Children     []*Node
}

// Config supplies the planner's tunable knobs (mirrors the public
// Config's parallel_enabled / parallel_chunk_size / parallel_threshold_rows,
// so the planner and the engine's public surface agree on defaults; the
// public fallback_allowed setting has no counterpart here).
type Config struct {
	ParallelEnabled       bool
	ParallelChunkSize     int
	ParallelThresholdRows int64
	AllPredicatesHaveSIMD func(logicalplan.Node) bool
}

// DefaultConfig returns the planner defaults matching spec.md §6.
func DefaultConfig() Config {
	return Config{
		ParallelEnabled:       true,
		ParallelChunkSize:     DefaultChunkSize,
		ParallelThresholdRows: ParallelThresholdRows,
		AllPredicatesHaveSIMD: func(logicalplan.Node) bool { return true },
	}
}

// Plan walks a logical plan bottom-up (well, top-down recursion producing
// a bottom-up-evaluated tree) choosing a strategy per node.
func Plan(root logicalplan.Node, cfg Config) *Node {
	return planNode(root, cfg)
}

func planNode(n logicalplan.Node, cfg Config) *Node {
	var children []*Node
	for _, child := range childrenOf(n) {
		children = append(children, planNode(child, cfg))
	}

	rows := n.EstimatedRows()
	strategy, chunkSize, cost := chooseStrategy(n, rows, cfg)

	// Aggregate+Filter fusion: when the logical optimizer tagged the
	// Filter feeding this Aggregate as Fusable, the physical plan collapses
	// them into one Fused node instead of two sequential/SIMD/parallel
	// nodes, per spec.md §4.5.
	if agg, ok := n.(*logicalplan.Aggregate); ok {
		if filter, ok := agg.Input.(*logicalplan.Filter); ok && filter.Fusable {
			strategy = Fused
			children = nil
			for _, c := range childrenOf(filter) {
				children = append(children, planNode(c, cfg))
			}
		}
	}

	return &Node{Logical: n, Strategy: strategy, ChunkSize: chunkSize, CostEstimate: cost, Children: children}
}

func chooseStrategy(n logicalplan.Node, rows int64, cfg Config) (Strategy, int, float64) {
	switch n.(type) {
	case *logicalplan.Scan, *logicalplan.Filter, *logicalplan.Aggregate:
		switch {
		case rows < SequentialThresholdRows:
			return Sequential, 0, float64(rows) * CostSequentialPerRow
		case rows < SIMDThresholdRows:
			if cfg.AllPredicatesHaveSIMD == nil || cfg.AllPredicatesHaveSIMD(n) {
				return SIMD, 0, float64(rows) * CostSIMDPerRow
			}
			return Sequential, 0, float64(rows) * CostSequentialPerRow
		default:
			if !cfg.ParallelEnabled || rows < cfg.ParallelThresholdRows {
				return SIMD, 0, float64(rows) * CostSIMDPerRow
			}
			chunkSize := cfg.ParallelChunkSize
			if chunkSize <= 0 {
				chunkSize = DefaultChunkSize
			}
			parallelism := float64(rows) / float64(chunkSize)
			if parallelism < 1 {
				parallelism = 1
			}
			return Parallel, chunkSize, float64(rows)/parallelism + float64(ParallelSetupOverheadRows)
		}
	default:
		// Project/GroupBy/Sort/Distinct/Limit/Offset carry whatever
		// strategy their dominant cost implies; sequential is always
		// correct and simplest to reason about for these bookkeeping
		// nodes (no row-level predicate evaluation happens in them).
		return Sequential, 0, float64(rows)
	}
}

func childrenOf(n logicalplan.Node) []logicalplan.Node {
	switch node := n.(type) {
	case *logicalplan.Scan:
		return nil
	case *logicalplan.Filter:
		return []logicalplan.Node{node.Input}
	case *logicalplan.Project:
		return []logicalplan.Node{node.Input}
	case *logicalplan.Aggregate:
		return []logicalplan.Node{node.Input}
	case *logicalplan.GroupBy:
		return []logicalplan.Node{node.Input}
	case *logicalplan.Sort:
		return []logicalplan.Node{node.Input}
	case *logicalplan.Distinct:
		return []logicalplan.Node{node.Input}
	case *logicalplan.Limit:
		return []logicalplan.Node{node.Input}
	case *logicalplan.Offset:
		return []logicalplan.Node{node.Input}
	default:
		return nil
	}
}

// Describe renders a PlanDescription: spec.md §6's explain(query) output,
// generalized from the teacher's PlanExplain{Driver, MainFilters,
// EAVFilters, SortStrategy} shape into one per-node strategy rendering.
type Describe struct {
	Kind         string
	Strategy     string
	ChunkSize    int
	CostEstimate float64
	Children     []Describe
}

// ToDescription converts a physical Node into its diagnostics rendering.
func (n *Node) ToDescription() Describe {
	d := Describe{
		Kind:         kindName(n.Logical),
		Strategy:     n.Strategy.String(),
		ChunkSize:    n.ChunkSize,
		CostEstimate: n.CostEstimate,
	}
	for _, c := range n.Children {
		d.Children = append(d.Children, c.ToDescription())
	}
	return d
}

func kindName(n logicalplan.Node) string {
	switch n.(type) {
	case *logicalplan.Scan:
		return "Scan"
	case *logicalplan.Filter:
		return "Filter"
	case *logicalplan.Project:
		return "Project"
	case *logicalplan.Aggregate:
		return "Aggregate"
	case *logicalplan.GroupBy:
		return "GroupBy"
	case *logicalplan.Sort:
		return "Sort"
	case *logicalplan.Distinct:
		return "Distinct"
	case *logicalplan.Limit:
		return "Limit"
	case *logicalplan.Offset:
		return "Offset"
	default:
		return "?"
	}
}

// String renders a human-readable indented plan tree, the shape
// explain(query) hands back to callers.
func (d Describe) String() string {
	return d.stringIndent(0)
}

func (d Describe) stringIndent(depth int) string {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	s := fmt.Sprintf("%s%s[%s]", indent, d.Kind, d.Strategy)
	if d.ChunkSize > 0 {
		s += fmt.Sprintf("(chunk=%d)", d.ChunkSize)
	}
	s += fmt.Sprintf(" cost=%.2f\n", d.CostEstimate)
	for _, c := range d.Children {
		s += c.stringIndent(depth + 1)
	}
	return s
}
