package colbeam

import (
	goccyjson "github.com/goccy/go-json"

	"github.com/lychee-technology/colbeam/internal/physicalplan"
)

// PlanDescription is the diagnostics rendering of one compiled chain,
// generalizing the teacher's PlanExplain{Driver, MainFilters, EAVFilters,
// SortStrategy} into a single per-node strategy tree (spec.md §6
// `explain(query)`).
type PlanDescription = physicalplan.Describe

// Explain compiles q's current chain without executing it and returns the
// chosen physical plan's description. Callers typically print
// description.String() or marshal it with ToJSON.
func (q *Queryable[T]) Explain() (PlanDescription, error) {
	node, err := q.compile()
	if err != nil {
		return PlanDescription{}, err
	}
	return node.ToDescription(), nil
}

// ToJSON marshals a PlanDescription, matching explain's JSON-serializable
// output requirement (spec.md §6). Uses goccy/go-json rather than the
// standard library encoder, the same substitution ingest's schema-hint
// validation and internal/sqlfrontend make elsewhere in this engine.
func ToJSON(d PlanDescription) ([]byte, error) {
	return goccyjson.MarshalIndent(d, "", "  ")
}
