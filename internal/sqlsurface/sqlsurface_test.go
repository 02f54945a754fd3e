package sqlsurface

import (
	"testing"

	"github.com/nimrodshn/liteql"
)

func TestParseSelectStar(t *testing.T) {
	sel, err := Parse("SELECT * FROM apples")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if sel.Table != "apples" {
		t.Errorf("Table = %q, want apples", sel.Table)
	}
	if sel.ColumnsKind != liteql.SelectAll {
		t.Errorf("ColumnsKind = %v, want SelectAll", sel.ColumnsKind)
	}
}

func TestParseSelectCount(t *testing.T) {
	sel, err := Parse("SELECT COUNT(*) FROM apples")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if sel.ColumnsKind != liteql.SelectCount {
		t.Errorf("ColumnsKind = %v, want SelectCount", sel.ColumnsKind)
	}
}

func TestParseSelectNamedColumns(t *testing.T) {
	sel, err := Parse("SELECT name, color FROM apples")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if sel.ColumnsKind != liteql.SelectNamed {
		t.Errorf("ColumnsKind = %v, want SelectNamed", sel.ColumnsKind)
	}
	if len(sel.Columns) != 2 || sel.Columns[0] != "name" || sel.Columns[1] != "color" {
		t.Errorf("Columns = %v", sel.Columns)
	}
}

func TestParseWhereEquality(t *testing.T) {
	sel, err := Parse("SELECT name FROM apples WHERE color = 'Red'")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(sel.Conds) != 1 {
		t.Fatalf("Conds = %v, want 1 condition", sel.Conds)
	}
	cond := sel.Conds[0]
	if cond.Column != "color" || cond.Op != liteql.OpEq || cond.Value != "Red" {
		t.Errorf("Conds[0] = %+v", cond)
	}
}

func TestParseWhereAndConjunction(t *testing.T) {
	sel, err := Parse("SELECT name FROM apples WHERE color = 'Red' AND id > 1")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(sel.Conds) != 2 {
		t.Fatalf("Conds = %v, want 2 conditions", sel.Conds)
	}
	if sel.Conds[0].Column != "color" || sel.Conds[1].Column != "id" {
		t.Errorf("Conds out of order: %+v", sel.Conds)
	}
	if sel.Conds[1].Op != liteql.OpGt || sel.Conds[1].Value != "1" {
		t.Errorf("Conds[1] = %+v", sel.Conds[1])
	}
}

func TestParseWhereBetween(t *testing.T) {
	sel, err := Parse("SELECT id FROM apples WHERE id BETWEEN 1 AND 3")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(sel.Conds) != 1 {
		t.Fatalf("Conds = %v, want 1 condition", sel.Conds)
	}
	cond := sel.Conds[0]
	if cond.Op != liteql.OpBetween || cond.Value != "1" || cond.Value2 != "3" {
		t.Errorf("Conds[0] = %+v", cond)
	}
}

func TestParseRejectsJoins(t *testing.T) {
	if _, err := Parse("SELECT * FROM apples, oranges"); err == nil {
		t.Fatal("expected error for multi-table FROM")
	}
}

func TestParseRejectsNonSelect(t *testing.T) {
	if _, err := Parse("CREATE TABLE foo (id integer)"); err == nil {
		t.Fatal("expected error for non-SELECT statement")
	}
}
