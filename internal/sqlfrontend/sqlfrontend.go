// Package sqlfrontend parses a single read-only SQL SELECT statement into a
// small intermediate representation the root package lowers onto the
// builder DSL, the way pg_lineage's resolver walks pg_query_go's JSON AST
// instead of its typed protobuf structs to stay decoupled from the parser's
// internal node types across versions.
package sqlfrontend

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	gojson "github.com/goccy/go-json"
)

// ComparisonOp enumerates the comparison operators a WHERE clause can use.
type ComparisonOp int

const (
	Eq ComparisonOp = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Condition is one node of the parsed WHERE clause's predicate tree.
type Condition interface{ conditionNode() }

// Comparison is `column <op> literal`.
type Comparison struct {
	Column string
	Op     ComparisonOp
	Value  any
}

func (*Comparison) conditionNode() {}

// Between is `column BETWEEN lo AND hi`.
type Between struct {
	Column string
	Lo, Hi any
}

func (*Between) conditionNode() {}

// NullTest is `column IS [NOT] NULL`.
type NullTest struct {
	Column string
	IsNull bool
}

func (*NullTest) conditionNode() {}

// StringMatch is `column LIKE pattern` or `column ILIKE pattern`.
type StringMatch struct {
	Column        string
	Pattern       string
	CaseSensitive bool
}

func (*StringMatch) conditionNode() {}

// And is the conjunction of its children.
type And struct{ Children []Condition }

func (*And) conditionNode() {}

// Or is the disjunction of its children.
type Or struct{ Children []Condition }

func (*Or) conditionNode() {}

// Not negates its child.
type Not struct{ Child Condition }

func (*Not) conditionNode() {}

// OrderKey is one ORDER BY entry.
type OrderKey struct {
	Column string
	Desc   bool
}

// Query is the parsed shape of one SELECT statement: enough to drive a
// Queryable[T] chain (where/select/order_by/distinct/limit/offset) but
// nothing a join or aggregate would need, since a Frozen[T] collection is
// always a single in-memory table.
type Query struct {
	Table    string
	Columns  []string // nil means SELECT *
	Distinct bool
	Where    Condition
	OrderBy  []OrderKey
	Limit    *int64
	Offset   *int64
}

// Parse parses one SQL SELECT statement into a Query, returning an error
// for anything pg_query_go can't parse or this package doesn't translate
// (joins, subqueries, aggregates — none of which a single frozen
// collection can answer).
func Parse(sql string) (*Query, error) {
	raw, err := pg_query.ParseToJSON(sql)
	if err != nil {
		return nil, fmt.Errorf("sqlfrontend: parse error: %w", err)
	}
	var tree map[string]any
	if err := gojson.Unmarshal([]byte(raw), &tree); err != nil {
		return nil, fmt.Errorf("sqlfrontend: invalid AST json: %w", err)
	}

	stmts, _ := tree["stmts"].([]any)
	if len(stmts) == 0 {
		return nil, fmt.Errorf("sqlfrontend: no statements found")
	}
	if len(stmts) > 1 {
		return nil, fmt.Errorf("sqlfrontend: only a single statement is supported")
	}
	stmtWrapper, ok := stmts[0].(map[string]any)["stmt"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("sqlfrontend: malformed statement node")
	}
	selectStmt, ok := stmtWrapper["SelectStmt"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("sqlfrontend: only SELECT statements are supported")
	}

	q := &Query{}

	if distinct, ok := selectStmt["distinctClause"]; ok && distinct != nil {
		q.Distinct = true
	}

	if from, ok := selectStmt["fromClause"].([]any); ok {
		table, err := parseFromClause(from)
		if err != nil {
			return nil, err
		}
		q.Table = table
	}

	if tlist, ok := selectStmt["targetList"].([]any); ok {
		cols, err := parseTargetList(tlist)
		if err != nil {
			return nil, err
		}
		q.Columns = cols
	}

	if whereClause, ok := selectStmt["whereClause"].(map[string]any); ok {
		cond, err := parseExpr(whereClause)
		if err != nil {
			return nil, err
		}
		q.Where = cond
	}

	if sortClause, ok := selectStmt["sortClause"].([]any); ok {
		keys, err := parseSortClause(sortClause)
		if err != nil {
			return nil, err
		}
		q.OrderBy = keys
	}

	if limitNode, ok := selectStmt["limitCount"].(map[string]any); ok {
		n, err := parseIntegerLiteral(limitNode)
		if err != nil {
			return nil, fmt.Errorf("sqlfrontend: invalid LIMIT: %w", err)
		}
		q.Limit = &n
	}
	if offsetNode, ok := selectStmt["limitOffset"].(map[string]any); ok {
		n, err := parseIntegerLiteral(offsetNode)
		if err != nil {
			return nil, fmt.Errorf("sqlfrontend: invalid OFFSET: %w", err)
		}
		q.Offset = &n
	}

	return q, nil
}

func parseFromClause(from []any) (string, error) {
	if len(from) == 0 {
		return "", nil
	}
	if len(from) > 1 {
		return "", fmt.Errorf("sqlfrontend: joins across multiple FROM items are not supported")
	}
	node, ok := from[0].(map[string]any)
	if !ok {
		return "", fmt.Errorf("sqlfrontend: malformed FROM clause")
	}
	rv, ok := node["RangeVar"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("sqlfrontend: only a single table reference is supported in FROM")
	}
	rel, _ := rv["relname"].(string)
	return rel, nil
}

func parseTargetList(tlist []any) ([]string, error) {
	var cols []string
	for _, t := range tlist {
		resTarget, ok := t.(map[string]any)["ResTarget"].(map[string]any)
		if !ok {
			continue
		}
		val, _ := resTarget["val"].(map[string]any)
		colref, ok := val["ColumnRef"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sqlfrontend: only plain column references are supported in SELECT")
		}
		fields, _ := colref["fields"].([]any)
		if len(fields) == 1 {
			if _, star := fields[0].(map[string]any)["A_Star"]; star {
				return nil, nil // SELECT * => nil columns
			}
		}
		name, err := fieldsToColumnName(fields)
		if err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, nil
}

func fieldsToColumnName(fields []any) (string, error) {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		m, ok := f.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := m["String"].(map[string]any); ok {
			if name, ok := s["sval"].(string); ok {
				parts = append(parts, name)
				continue
			}
		}
		return "", fmt.Errorf("sqlfrontend: unsupported column reference")
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("sqlfrontend: empty column reference")
	}
	// A table-qualified reference ("t.col") resolves to its bare column
	// name: a Frozen[T] collection has exactly one implicit table.
	return parts[len(parts)-1], nil
}

func parseSortClause(sortClause []any) ([]OrderKey, error) {
	keys := make([]OrderKey, 0, len(sortClause))
	for _, s := range sortClause {
		sb, ok := s.(map[string]any)["SortBy"].(map[string]any)
		if !ok {
			continue
		}
		node, ok := sb["node"].(map[string]any)
		if !ok {
			continue
		}
		colref, ok := node["ColumnRef"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sqlfrontend: ORDER BY only supports plain columns")
		}
		fields, _ := colref["fields"].([]any)
		name, err := fieldsToColumnName(fields)
		if err != nil {
			return nil, err
		}
		desc := false
		if dir, ok := sb["sortby_dir"].(string); ok {
			desc = strings.Contains(strings.ToUpper(dir), "DESC")
		} else if dirNum, ok := sb["sortby_dir"].(float64); ok {
			// SORTBY_DESC == 2 in pg_query_go's numeric encoding.
			desc = dirNum == 2
		}
		keys = append(keys, OrderKey{Column: name, Desc: desc})
	}
	return keys, nil
}

func parseIntegerLiteral(node map[string]any) (int64, error) {
	aConst, ok := node["A_Const"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("only integer literals are supported")
	}
	if ival, ok := aConst["ival"].(map[string]any); ok {
		if f, ok := ival["ival"].(float64); ok {
			return int64(f), nil
		}
		return 0, nil // ival omitted means literal 0 in pg_query_go's encoding
	}
	return 0, fmt.Errorf("expected an integer literal")
}

func parseExpr(node map[string]any) (Condition, error) {
	if boolExpr, ok := node["BoolExpr"].(map[string]any); ok {
		return parseBoolExpr(boolExpr)
	}
	if aExpr, ok := node["A_Expr"].(map[string]any); ok {
		return parseAExpr(aExpr)
	}
	if nullTest, ok := node["NullTest"].(map[string]any); ok {
		return parseNullTest(nullTest)
	}
	return nil, fmt.Errorf("sqlfrontend: unsupported WHERE expression")
}

func parseBoolExpr(boolExpr map[string]any) (Condition, error) {
	kind, _ := boolExpr["boolop"].(string)
	args, _ := boolExpr["args"].([]any)
	children := make([]Condition, 0, len(args))
	for _, a := range args {
		m, ok := a.(map[string]any)
		if !ok {
			continue
		}
		c, err := parseExpr(m)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	switch kind {
	case "AND_EXPR":
		return &And{Children: children}, nil
	case "OR_EXPR":
		return &Or{Children: children}, nil
	case "NOT_EXPR":
		if len(children) != 1 {
			return nil, fmt.Errorf("sqlfrontend: NOT expects exactly one operand")
		}
		return &Not{Child: children[0]}, nil
	default:
		return nil, fmt.Errorf("sqlfrontend: unsupported boolean operator %q", kind)
	}
}

func parseAExpr(aExpr map[string]any) (Condition, error) {
	kind, _ := aExpr["kind"].(string)
	lexpr, _ := aExpr["lexpr"].(map[string]any)
	rexpr, _ := aExpr["rexpr"].(map[string]any)

	colref, ok := lexpr["ColumnRef"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("sqlfrontend: WHERE comparisons must have a column on the left")
	}
	fields, _ := colref["fields"].([]any)
	column, err := fieldsToColumnName(fields)
	if err != nil {
		return nil, err
	}

	if kind == "AEXPR_BETWEEN" || kind == "AEXPR_NOT_BETWEEN" {
		list, _ := rexpr["List"].(map[string]any)
		items, _ := list["items"].([]any)
		if len(items) != 2 {
			return nil, fmt.Errorf("sqlfrontend: BETWEEN expects two bounds")
		}
		lo, err := constValue(items[0].(map[string]any))
		if err != nil {
			return nil, err
		}
		hi, err := constValue(items[1].(map[string]any))
		if err != nil {
			return nil, err
		}
		between := &Between{Column: column, Lo: lo, Hi: hi}
		if kind == "AEXPR_NOT_BETWEEN" {
			return &Not{Child: between}, nil
		}
		return between, nil
	}

	if kind == "AEXPR_LIKE" || kind == "AEXPR_ILIKE" {
		pattern, err := constValue(rexpr)
		if err != nil {
			return nil, err
		}
		s, _ := pattern.(string)
		return &StringMatch{Column: column, Pattern: s, CaseSensitive: kind == "AEXPR_LIKE"}, nil
	}

	nameList, _ := aExpr["name"].([]any)
	opName := ""
	if len(nameList) > 0 {
		if m, ok := nameList[0].(map[string]any); ok {
			if s, ok := m["String"].(map[string]any); ok {
				opName, _ = s["sval"].(string)
			}
		}
	}
	op, ok := mapComparisonOp(opName)
	if !ok {
		return nil, fmt.Errorf("sqlfrontend: unsupported operator %q", opName)
	}
	value, err := constValue(rexpr)
	if err != nil {
		return nil, err
	}
	return &Comparison{Column: column, Op: op, Value: value}, nil
}

func parseNullTest(nullTest map[string]any) (Condition, error) {
	arg, _ := nullTest["arg"].(map[string]any)
	colref, ok := arg["ColumnRef"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("sqlfrontend: IS [NOT] NULL must apply to a column")
	}
	fields, _ := colref["fields"].([]any)
	column, err := fieldsToColumnName(fields)
	if err != nil {
		return nil, err
	}
	testType, _ := nullTest["nulltesttype"].(string)
	return &NullTest{Column: column, IsNull: testType != "IS_NOT_NULL"}, nil
}

func mapComparisonOp(op string) (ComparisonOp, bool) {
	switch op {
	case "=":
		return Eq, true
	case "<>", "!=":
		return Ne, true
	case "<":
		return Lt, true
	case "<=":
		return Le, true
	case ">":
		return Gt, true
	case ">=":
		return Ge, true
	default:
		return 0, false
	}
}

// constValue extracts a Go scalar from an A_Const node: integer, float,
// string, or boolean literal.
func constValue(node map[string]any) (any, error) {
	aConst, ok := node["A_Const"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("sqlfrontend: expected a literal constant")
	}
	if v, ok := aConst["ival"].(map[string]any); ok {
		f, _ := v["ival"].(float64)
		return f, nil
	}
	if v, ok := aConst["fval"].(map[string]any); ok {
		s, _ := v["fval"].(string)
		var f float64
		_, err := fmt.Sscanf(s, "%g", &f)
		if err != nil {
			return nil, fmt.Errorf("sqlfrontend: malformed float literal %q", s)
		}
		return f, nil
	}
	if v, ok := aConst["sval"].(map[string]any); ok {
		s, _ := v["sval"].(string)
		return s, nil
	}
	if v, ok := aConst["boolval"].(map[string]any); ok {
		b, _ := v["boolval"].(bool)
		return b, nil
	}
	if _, ok := aConst["isnull"]; ok {
		return nil, nil
	}
	return nil, fmt.Errorf("sqlfrontend: unrecognized literal encoding")
}
