package colbeam

import (
	"fmt"
	"time"

	"github.com/lychee-technology/colbeam/internal/columnar"
	"github.com/lychee-technology/colbeam/internal/predicate"
)

// Expr is one node of the builder DSL: a small, typed replacement for
// reflecting on host-language lambdas (spec.md §9 "expression-tree
// translation → builder DSL"). Where/combinator inputs are built from
// these constructors; internal/sqlfrontend's SQL parser lowers to the
// same tree via sql.go's lowerCondition.
type Expr interface {
	compile(schema *columnar.Schema) (predicate.Predicate, error)
}

type comparisonExpr struct {
	column string
	op     predicate.Op
	value  any
}

func (e *comparisonExpr) compile(schema *columnar.Schema) (predicate.Predicate, error) {
	idx, kind, err := resolveColumn(schema, e.column)
	if err != nil {
		return nil, err
	}
	if kind == columnar.KindString || kind == columnar.KindDictionaryString {
		s, ok := e.value.(string)
		if !ok {
			return nil, NewTypeMismatchError(e.column, fmt.Sprintf("comparison against string column %q needs a string constant, got %T", e.column, e.value))
		}
		if e.op != predicate.Eq && e.op != predicate.Ne {
			return nil, NewUnsupportedExpressionError(e.op.String(), fmt.Sprintf("operator %s is not defined for string column %q; use StartsWith/EndsWith/Contains/Like", e.op, e.column))
		}
		eq := &predicate.StringEquality{Column: idx, Value: s, Mode: predicate.Ordinal}
		if e.op == predicate.Eq {
			return eq, nil
		}
		return &predicate.Not{Child: eq}, nil
	}
	v, err := toFloat64(kind, e.value)
	if err != nil {
		return nil, NewTypeMismatchError(e.column, err.Error())
	}
	return &predicate.Comparison{Column: idx, Op: e.op, Constant: v}, nil
}

// Eq builds `column == value`. On a string/dictionary-string column this
// compiles to StringEquality (ordinal mode); otherwise to a numeric/date/
// timestamp/bool Comparison, matching spec.md §4.9's member-access and
// string-method translation rules.
func Eq(column string, value any) Expr { return &comparisonExpr{column: column, op: predicate.Eq, value: value} }

// Ne builds `column != value`.
func Ne(column string, value any) Expr { return &comparisonExpr{column: column, op: predicate.Ne, value: value} }

// Lt builds `column < value` (numeric/date/timestamp/bool columns only).
func Lt(column string, value any) Expr { return &comparisonExpr{column: column, op: predicate.Lt, value: value} }

// Le builds `column <= value`.
func Le(column string, value any) Expr { return &comparisonExpr{column: column, op: predicate.Le, value: value} }

// Gt builds `column > value`.
func Gt(column string, value any) Expr { return &comparisonExpr{column: column, op: predicate.Gt, value: value} }

// Ge builds `column >= value`.
func Ge(column string, value any) Expr { return &comparisonExpr{column: column, op: predicate.Ge, value: value} }

type betweenExpr struct {
	column         string
	lo, hi         any
	loIncl, hiIncl bool
}

// Between builds an inclusive `lo <= column <= hi` range test.
func Between(column string, lo, hi any) Expr {
	return &betweenExpr{column: column, lo: lo, hi: hi, loIncl: true, hiIncl: true}
}

// BetweenExclusive builds a range test with caller-chosen bound inclusivity.
func BetweenExclusive(column string, lo, hi any, loInclusive, hiInclusive bool) Expr {
	return &betweenExpr{column: column, lo: lo, hi: hi, loIncl: loInclusive, hiIncl: hiInclusive}
}

func (e *betweenExpr) compile(schema *columnar.Schema) (predicate.Predicate, error) {
	idx, kind, err := resolveColumn(schema, e.column)
	if err != nil {
		return nil, err
	}
	lo, err := toFloat64(kind, e.lo)
	if err != nil {
		return nil, NewTypeMismatchError(e.column, err.Error())
	}
	hi, err := toFloat64(kind, e.hi)
	if err != nil {
		return nil, NewTypeMismatchError(e.column, err.Error())
	}
	return &predicate.Between{Column: idx, Lo: lo, Hi: hi, InclusiveLow: e.loIncl, InclusiveHigh: e.hiIncl}, nil
}

type nullExpr struct {
	column string
	isNull bool
}

// IsNull builds `column IS NULL`.
func IsNull(column string) Expr { return &nullExpr{column: column, isNull: true} }

// IsNotNull builds `column IS NOT NULL`.
func IsNotNull(column string) Expr { return &nullExpr{column: column, isNull: false} }

func (e *nullExpr) compile(schema *columnar.Schema) (predicate.Predicate, error) {
	idx, _, err := resolveColumn(schema, e.column)
	if err != nil {
		return nil, err
	}
	t := &predicate.NullTest{Column: idx, IsNull: true}
	if e.isNull {
		return t, nil
	}
	return &predicate.Not{Child: t}, nil
}

type stringOpExpr struct {
	column  string
	pattern string
	op      predicate.StringOp
	mode    predicate.ComparisonMode
}

// StartsWith builds an ordinal "starts with" string predicate.
func StartsWith(column, prefix string) Expr {
	return &stringOpExpr{column: column, pattern: prefix, op: predicate.StartsWith, mode: predicate.Ordinal}
}

// EndsWith builds an ordinal "ends with" string predicate.
func EndsWith(column, suffix string) Expr {
	return &stringOpExpr{column: column, pattern: suffix, op: predicate.EndsWith, mode: predicate.Ordinal}
}

// Contains builds an ordinal substring predicate.
func Contains(column, substr string) Expr {
	return &stringOpExpr{column: column, pattern: substr, op: predicate.Contains, mode: predicate.Ordinal}
}

// Like builds a SQL-LIKE-style predicate (`%`/`_` wildcards), ordinal mode.
func Like(column, pattern string) Expr {
	return &stringOpExpr{column: column, pattern: pattern, op: predicate.Like, mode: predicate.Ordinal}
}

// CaseInsensitive rewrites a string-matching Expr (StartsWith/EndsWith/
// Contains/Like/Eq on a string column) to fold Unicode case before
// comparing. Non-string Exprs are returned unchanged.
func CaseInsensitive(e Expr) Expr {
	switch v := e.(type) {
	case *stringOpExpr:
		return &stringOpExpr{column: v.column, pattern: v.pattern, op: v.op, mode: predicate.CaseInsensitive}
	case *comparisonExpr:
		return &caseInsensitiveEq{inner: v}
	default:
		return e
	}
}

type caseInsensitiveEq struct{ inner *comparisonExpr }

func (e *caseInsensitiveEq) compile(schema *columnar.Schema) (predicate.Predicate, error) {
	idx, kind, err := resolveColumn(schema, e.inner.column)
	if err != nil {
		return nil, err
	}
	if kind != columnar.KindString && kind != columnar.KindDictionaryString {
		return nil, NewUnsupportedExpressionError("case_insensitive", fmt.Sprintf("column %q is not a string column", e.inner.column))
	}
	s, ok := e.inner.value.(string)
	if !ok {
		return nil, NewTypeMismatchError(e.inner.column, "case-insensitive equality needs a string constant")
	}
	eq := &predicate.StringEquality{Column: idx, Value: s, Mode: predicate.CaseInsensitive}
	if e.inner.op == predicate.Eq {
		return eq, nil
	}
	return &predicate.Not{Child: eq}, nil
}

func (e *stringOpExpr) compile(schema *columnar.Schema) (predicate.Predicate, error) {
	idx, kind, err := resolveColumn(schema, e.column)
	if err != nil {
		return nil, err
	}
	if kind != columnar.KindString && kind != columnar.KindDictionaryString {
		return nil, NewUnsupportedPredicateError(e.column, "string operations require a string/dictionary-string column")
	}
	return &predicate.StringOperation{Column: idx, Pattern: e.pattern, Op: e.op, Mode: e.mode}, nil
}

type andExpr struct{ children []Expr }
type orExpr struct{ children []Expr }
type notExpr struct{ child Expr }

// And builds the conjunction of every child Expr.
func And(children ...Expr) Expr { return &andExpr{children: children} }

// Or builds the disjunction of every child Expr.
func Or(children ...Expr) Expr { return &orExpr{children: children} }

// Not negates child.
func Not(child Expr) Expr { return &notExpr{child: child} }

func (e *andExpr) compile(schema *columnar.Schema) (predicate.Predicate, error) {
	preds, err := compileAll(schema, e.children)
	if err != nil {
		return nil, err
	}
	return &predicate.And{Children: preds}, nil
}

func (e *orExpr) compile(schema *columnar.Schema) (predicate.Predicate, error) {
	preds, err := compileAll(schema, e.children)
	if err != nil {
		return nil, err
	}
	return &predicate.Or{Children: preds}, nil
}

func (e *notExpr) compile(schema *columnar.Schema) (predicate.Predicate, error) {
	p, err := e.child.compile(schema)
	if err != nil {
		return nil, err
	}
	return &predicate.Not{Child: p}, nil
}

func compileAll(schema *columnar.Schema, exprs []Expr) ([]predicate.Predicate, error) {
	out := make([]predicate.Predicate, 0, len(exprs))
	for _, e := range exprs {
		p, err := e.compile(schema)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// resolveColumn maps a member-access column name to its schema index and
// kind, the way spec.md §4.9 maps "member access on the row parameter" to
// a column reference. An unknown name is UnsupportedExpression, matching
// §4.9's "any construct not mapped triggers UnsupportedExpression".
func resolveColumn(schema *columnar.Schema, name string) (int, columnar.Kind, error) {
	idx := schema.IndexOf(name)
	if idx < 0 {
		return 0, columnar.KindInvalid, NewUnsupportedExpressionError("member_access", fmt.Sprintf("no column named %q in schema", name))
	}
	return idx, schema.Fields[idx].Kind, nil
}

// toFloat64 widens value to the float64 domain Comparison/Between operate
// in, matching internal/zonemap's uniform float64 min/max representation.
// Bool is 0/1; time.Time is Unix microseconds (the engine's timestamp
// default unit, per internal/codec's time.Time <-> KindTimestampMicro
// mapping).
func toFloat64(kind columnar.Kind, value any) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case time.Time:
		return float64(v.UnixMicro()), nil
	default:
		return 0, fmt.Errorf("cannot use %T as a constant for a %s column", value, kind)
	}
}
