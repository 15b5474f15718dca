package colbeam

import (
	"fmt"

	"github.com/lychee-technology/colbeam/internal/sqlfrontend"
)

// QuerySQL parses a single read-only SELECT statement and lowers it onto
// the same combinator chain Query()'s fluent API builds, the way
// internal/sqlfrontend's JSON-AST walk stands in for condition.go's
// recursive SQL-clause construction run in reverse (spec.md §9 "SQL front
// end → builder DSL lowering"). The statement's FROM table name, if any,
// is not checked against f — a Frozen[T] is always exactly one table, so
// only the WHERE/SELECT/ORDER BY/LIMIT/OFFSET/DISTINCT clauses matter.
func (f *Frozen[T]) QuerySQL(sql string) (*Queryable[T], error) {
	parsed, err := sqlfrontend.Parse(sql)
	if err != nil {
		return nil, NewUnsupportedExpressionError("sql", err.Error())
	}
	q := f.Query()

	if parsed.Where != nil {
		expr, err := lowerCondition(parsed.Where)
		if err != nil {
			return nil, err
		}
		q = q.Where(expr)
	}
	if parsed.Columns != nil {
		q = q.Select(parsed.Columns...)
	}
	for _, key := range parsed.OrderBy {
		q = q.OrderBy(key.Column, key.Desc)
	}
	if parsed.Distinct {
		q = q.Distinct()
	}
	if parsed.Offset != nil {
		q = q.Offset(*parsed.Offset)
	}
	if parsed.Limit != nil {
		q = q.Limit(*parsed.Limit)
	}
	return q, nil
}

func lowerCondition(c sqlfrontend.Condition) (Expr, error) {
	switch v := c.(type) {
	case *sqlfrontend.Comparison:
		return lowerComparison(v)
	case *sqlfrontend.Between:
		return Between(v.Column, v.Lo, v.Hi), nil
	case *sqlfrontend.NullTest:
		if v.IsNull {
			return IsNull(v.Column), nil
		}
		return IsNotNull(v.Column), nil
	case *sqlfrontend.StringMatch:
		e := Like(v.Column, v.Pattern)
		if !v.CaseSensitive {
			e = CaseInsensitive(e)
		}
		return e, nil
	case *sqlfrontend.And:
		children, err := lowerAll(v.Children)
		if err != nil {
			return nil, err
		}
		return And(children...), nil
	case *sqlfrontend.Or:
		children, err := lowerAll(v.Children)
		if err != nil {
			return nil, err
		}
		return Or(children...), nil
	case *sqlfrontend.Not:
		child, err := lowerCondition(v.Child)
		if err != nil {
			return nil, err
		}
		return Not(child), nil
	default:
		return nil, NewUnsupportedExpressionError("sql_where", fmt.Sprintf("unrecognized condition node %T", c))
	}
}

func lowerComparison(v *sqlfrontend.Comparison) (Expr, error) {
	switch v.Op {
	case sqlfrontend.Eq:
		return Eq(v.Column, v.Value), nil
	case sqlfrontend.Ne:
		return Ne(v.Column, v.Value), nil
	case sqlfrontend.Lt:
		return Lt(v.Column, v.Value), nil
	case sqlfrontend.Le:
		return Le(v.Column, v.Value), nil
	case sqlfrontend.Gt:
		return Gt(v.Column, v.Value), nil
	case sqlfrontend.Ge:
		return Ge(v.Column, v.Value), nil
	default:
		return nil, NewUnsupportedExpressionError("sql_where", "unrecognized comparison operator")
	}
}

func lowerAll(conds []sqlfrontend.Condition) ([]Expr, error) {
	out := make([]Expr, 0, len(conds))
	for _, c := range conds {
		e, err := lowerCondition(c)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
