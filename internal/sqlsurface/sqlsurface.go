// Package sqlsurface is the external SQL-surface collaborator the core
// query executor depends on: it turns raw SELECT text into
// the structured liteql.Select/Condition values the executor consumes.
// It imports liteql, never the reverse, so the core stays decoupled from
// any particular SQL grammar.
package sqlsurface

import (
	"fmt"
	"strings"

	"github.com/nimrodshn/liteql"
	"github.com/xwb1989/sqlparser"
)

// Parse parses a single SELECT statement into a liteql.Select. Anything
// beyond a single-table, no-join SELECT with an AND-ed WHERE clause of
// comparisons and BETWEENs is rejected with liteql.ErrMalformedSelect
// — the grammar itself is explicitly out of the
// core's scope.
func Parse(sql string) (liteql.Select, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return liteql.Select{}, wrap(sql, err)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return liteql.Select{}, wrap(sql, fmt.Errorf("not a SELECT statement"))
	}

	table, err := tableName(sel)
	if err != nil {
		return liteql.Select{}, wrap(sql, err)
	}

	kind, columns, err := projection(sel)
	if err != nil {
		return liteql.Select{}, wrap(sql, err)
	}

	conds, err := conditions(sel)
	if err != nil {
		return liteql.Select{}, wrap(sql, err)
	}

	return liteql.Select{
		Table:       table,
		ColumnsKind: kind,
		Columns:     columns,
		Conds:       conds,
	}, nil
}

func wrap(sql string, cause error) error {
	return fmt.Errorf("%w: %q: %v", liteql.ErrMalformedSelect, sql, cause)
}

// tableName extracts the single table this (no-join) SELECT reads from.
func tableName(sel *sqlparser.Select) (string, error) {
	if len(sel.From) != 1 {
		return "", fmt.Errorf("expected exactly one table in FROM, got %d", len(sel.From))
	}
	aliased, ok := sel.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", fmt.Errorf("unsupported FROM expression %T", sel.From[0])
	}
	name, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", fmt.Errorf("unsupported table expression %T", aliased.Expr)
	}
	return name.Name.String(), nil
}

// projection classifies the column list as All (SELECT *), Count
// (SELECT count(*)) or Named (explicit column list).
func projection(sel *sqlparser.Select) (liteql.SelectColumnsKind, []string, error) {
	if len(sel.SelectExprs) == 1 {
		if _, ok := sel.SelectExprs[0].(*sqlparser.StarExpr); ok {
			return liteql.SelectAll, nil, nil
		}
		if aliased, ok := sel.SelectExprs[0].(*sqlparser.AliasedExpr); ok {
			if fn, ok := aliased.Expr.(*sqlparser.FuncExpr); ok && strings.EqualFold(fn.Name.String(), "count") {
				return liteql.SelectCount, nil, nil
			}
		}
	}

	var names []string
	for _, expr := range sel.SelectExprs {
		aliased, ok := expr.(*sqlparser.AliasedExpr)
		if !ok {
			return 0, nil, fmt.Errorf("unsupported select expression %T", expr)
		}
		col, ok := aliased.Expr.(*sqlparser.ColName)
		if !ok {
			return 0, nil, fmt.Errorf("unsupported select expression %T", aliased.Expr)
		}
		names = append(names, col.Name.String())
	}
	return liteql.SelectNamed, names, nil
}

// conditions walks the WHERE clause's top-level AND conjunction into an
// ordered list of Conditions. OR is not a conjunction and
// is rejected, matching the executor's AND-only semantics.
func conditions(sel *sqlparser.Select) ([]liteql.Condition, error) {
	if sel.Where == nil {
		return nil, nil
	}
	return walkAnd(sel.Where.Expr)
}

func walkAnd(expr sqlparser.Expr) ([]liteql.Condition, error) {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		left, err := walkAnd(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := walkAnd(e.Right)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	case *sqlparser.ComparisonExpr:
		cond, err := comparison(e)
		if err != nil {
			return nil, err
		}
		return []liteql.Condition{cond}, nil
	case *sqlparser.RangeCond:
		cond, err := between(e)
		if err != nil {
			return nil, err
		}
		return []liteql.Condition{cond}, nil
	case *sqlparser.ParenExpr:
		return walkAnd(e.Expr)
	default:
		return nil, fmt.Errorf("unsupported WHERE expression %T", expr)
	}
}

func comparison(e *sqlparser.ComparisonExpr) (liteql.Condition, error) {
	col, ok := e.Left.(*sqlparser.ColName)
	if !ok {
		return liteql.Condition{}, fmt.Errorf("unsupported comparison left-hand side %T", e.Left)
	}
	value, err := literal(e.Right)
	if err != nil {
		return liteql.Condition{}, err
	}

	op, ok := comparisonOps[e.Operator]
	if !ok {
		return liteql.Condition{}, fmt.Errorf("unsupported comparison operator %q", e.Operator)
	}
	return liteql.Condition{Column: col.Name.String(), Op: op, Value: value}, nil
}

var comparisonOps = map[string]liteql.ConditionOp{
	sqlparser.EqualStr:        liteql.OpEq,
	sqlparser.NotEqualStr:     liteql.OpNe,
	sqlparser.LessThanStr:     liteql.OpLt,
	sqlparser.LessEqualStr:    liteql.OpLe,
	sqlparser.GreaterThanStr:  liteql.OpGt,
	sqlparser.GreaterEqualStr: liteql.OpGe,
}

func between(e *sqlparser.RangeCond) (liteql.Condition, error) {
	if e.Operator != sqlparser.BetweenStr {
		return liteql.Condition{}, fmt.Errorf("unsupported range operator %q", e.Operator)
	}
	col, ok := e.Left.(*sqlparser.ColName)
	if !ok {
		return liteql.Condition{}, fmt.Errorf("unsupported BETWEEN left-hand side %T", e.Left)
	}
	from, err := literal(e.From)
	if err != nil {
		return liteql.Condition{}, err
	}
	to, err := literal(e.To)
	if err != nil {
		return liteql.Condition{}, err
	}
	return liteql.Condition{Column: col.Name.String(), Op: liteql.OpBetween, Value: from, Value2: to}, nil
}

// literal extracts the unquoted text of a SQL literal; the executor
// compares against literal text, never quoted source form.
func literal(expr sqlparser.Expr) (string, error) {
	switch v := expr.(type) {
	case *sqlparser.SQLVal:
		return string(v.Val), nil
	case *sqlparser.NullVal:
		return "NULL", nil
	default:
		return "", fmt.Errorf("unsupported literal %T", expr)
	}
}
