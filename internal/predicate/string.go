package predicate

import (
	"strings"

	"github.com/lychee-technology/colbeam/internal/bitmap"
	"github.com/lychee-technology/colbeam/internal/columnar"
	"golang.org/x/text/cases"
)

// caseFolder precomputes the Unicode case-fold table once; spec.md §4.3
// rule 6 calls for a precomputed fold table rather than per-call folding
// logic. cases.Fold is locale-independent by design.
var caseFolder = cases.Fold()

// foldCase returns s's Unicode case-fold form, used for case-insensitive
// string comparisons instead of naive strings.ToLower (which mishandles
// several non-ASCII scripts).
func foldCase(s string) string {
	return caseFolder.String(s)
}

// StringEquality is `col = value` for string columns, with ordinal or
// case-insensitive comparison mode.
type StringEquality struct {
	Column int
	Value  string
	Mode   ComparisonMode
}

var _ Predicate = (*StringEquality)(nil)

// ReferencedColumns implements Predicate.
func (s *StringEquality) ReferencedColumns() []int { return []int{s.Column} }

// IsZoneMapEvaluable implements Predicate: strings are never zone-mappable.
func (s *StringEquality) IsZoneMapEvaluable() bool { return false }

func (s *StringEquality) matches(v string) bool {
	if s.Mode == CaseInsensitive {
		return foldCase(v) == foldCase(s.Value)
	}
	return v == s.Value
}

// Evaluate implements Predicate, taking the dictionary fast path
// (spec.md §4.3 rule 2) when the column is dictionary-encoded.
func (s *StringEquality) Evaluate(ctx *EvalContext, bm *bitmap.Bitmap) error {
	batch := ctx.Batch
	field := batch.Schema().Fields[s.Column]
	n := batch.Len()

	switch field.Kind {
	case columnar.KindDictionaryString:
		values, err := batch.DictionaryValues(s.Column)
		if err != nil {
			return err
		}
		dictMask := make([]bool, len(values))
		for i, v := range values {
			dictMask[i] = s.matches(v)
		}
		for row := 0; row < n; row++ {
			if !bm.Get(row) {
				continue
			}
			idx, ok := batch.DictionaryIndex(s.Column, row)
			if !ok || !dictMask[idx] {
				bm.Clear(row)
			}
		}
		return nil
	case columnar.KindString:
		for row := 0; row < n; row++ {
			if !bm.Get(row) {
				continue
			}
			v, ok := batch.StringAt(s.Column, row)
			if !ok || !s.matches(v) {
				bm.Clear(row)
			}
		}
		return nil
	default:
		return &ErrTypeMismatch{Column: s.Column, Expected: field.Kind, Actual: "utf8/dictionary"}
	}
}

// Selectivity implements Predicate. Decision: §9 Open Question 1 — use
// 1/distinct_count when statistics carry a distinct count, else a flat 0.1.
func (s *StringEquality) Selectivity(ctx *EvalContext) float64 {
	if stats, ok := ctx.Stats[s.Column]; ok && stats.DistinctCount > 0 {
		return 1.0 / float64(stats.DistinctCount)
	}
	return 0.1
}

// StringOperation is `col starts_with/ends_with/contains/like pattern`.
type StringOperation struct {
	Column  int
	Pattern string
	Op      StringOp
	Mode    ComparisonMode
}

var _ Predicate = (*StringOperation)(nil)

// ReferencedColumns implements Predicate.
func (s *StringOperation) ReferencedColumns() []int { return []int{s.Column} }

// IsZoneMapEvaluable implements Predicate.
func (s *StringOperation) IsZoneMapEvaluable() bool { return false }

func (s *StringOperation) matches(v string) bool {
	cmpV, cmpP := v, s.Pattern
	if s.Mode == CaseInsensitive {
		cmpV, cmpP = foldCase(v), foldCase(s.Pattern)
	}
	switch s.Op {
	case StartsWith:
		return strings.HasPrefix(cmpV, cmpP)
	case EndsWith:
		return strings.HasSuffix(cmpV, cmpP)
	case Contains:
		return strings.Contains(cmpV, cmpP)
	case Like:
		return likeMatch(cmpV, cmpP)
	default:
		return false
	}
}

// likeMatch implements SQL LIKE semantics for '%' (any run) and '_' (any
// one rune), the only two wildcards spec.md's StringOperation needs.
func likeMatch(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		if likeMatchRunes(s, p[1:]) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if likeMatchRunes(s[i+1:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	}
}

// Evaluate implements Predicate. Dictionary-encoded columns still get the
// O(d)+O(n) fast path: the pattern is evaluated once per distinct value.
func (s *StringOperation) Evaluate(ctx *EvalContext, bm *bitmap.Bitmap) error {
	batch := ctx.Batch
	field := batch.Schema().Fields[s.Column]
	n := batch.Len()

	switch field.Kind {
	case columnar.KindDictionaryString:
		values, err := batch.DictionaryValues(s.Column)
		if err != nil {
			return err
		}
		dictMask := make([]bool, len(values))
		for i, v := range values {
			dictMask[i] = s.matches(v)
		}
		for row := 0; row < n; row++ {
			if !bm.Get(row) {
				continue
			}
			idx, ok := batch.DictionaryIndex(s.Column, row)
			if !ok || !dictMask[idx] {
				bm.Clear(row)
			}
		}
		return nil
	case columnar.KindString:
		for row := 0; row < n; row++ {
			if !bm.Get(row) {
				continue
			}
			v, ok := batch.StringAt(s.Column, row)
			if !ok || !s.matches(v) {
				bm.Clear(row)
			}
		}
		return nil
	default:
		return &ErrTypeMismatch{Column: s.Column, Expected: field.Kind, Actual: "utf8/dictionary"}
	}
}

// Selectivity implements Predicate per §9 Open Question 1: prefix/suffix
// operators are more discriminating than contains/like.
func (s *StringOperation) Selectivity(ctx *EvalContext) float64 {
	switch s.Op {
	case StartsWith, EndsWith:
		return 0.25
	default:
		return 0.5
	}
}
