package liteql

import (
	"context"
	"sort"
	"strconv"
)

// ConditionOp is a WHERE-clause comparison operator.
type ConditionOp int

const (
	OpEq ConditionOp = iota
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
	OpBetween
)

// Condition is a single WHERE predicate: column OP value (and, for
// OpBetween, a second value). Values are carried as the literal text from
// the query and parsed against the column's declared type only at
// evaluation time.
type Condition struct {
	Column string
	Op     ConditionOp
	Value  string
	Value2 string
}

// eval reports whether row satisfies cond, given table's column
// layout. An unknown column, or a value that fails to parse
// against the column's declared type, evaluates to false rather than
// erroring: a WHERE clause over a schema it doesn't match simply selects
// nothing.
func (cond Condition) eval(row []Value, table *TableDef) bool {
	col, ok := table.column(cond.Column)
	if !ok || col.Index >= len(row) {
		return false
	}
	v := row[col.Index]

	switch v.Kind {
	case KindInteger:
		return evalInteger(cond, v.Integer)
	case KindFloat:
		return evalFloat(cond, v.Float)
	case KindText:
		return evalText(cond, v.Text)
	case KindNull:
		return cond.Op == OpEq && cond.Value == "NULL"
	default:
		return false
	}
}

func evalInteger(cond Condition, n int64) bool {
	parse := func(s string) (int64, bool) {
		i, err := strconv.ParseInt(s, 10, 64)
		return i, err == nil
	}
	switch cond.Op {
	case OpEq:
		val, ok := parse(cond.Value)
		return ok && n == val
	case OpNe:
		val, ok := parse(cond.Value)
		return ok && n != val
	case OpGt:
		val, ok := parse(cond.Value)
		return ok && n > val
	case OpGe:
		val, ok := parse(cond.Value)
		return ok && n >= val
	case OpLt:
		val, ok := parse(cond.Value)
		return ok && n < val
	case OpLe:
		val, ok := parse(cond.Value)
		return ok && n <= val
	case OpBetween:
		from, okFrom := parse(cond.Value)
		to, okTo := parse(cond.Value2)
		return okFrom && okTo && n >= from && n <= to
	}
	return false
}

func evalFloat(cond Condition, f float64) bool {
	parse := func(s string) (float64, bool) {
		v, err := strconv.ParseFloat(s, 64)
		return v, err == nil
	}
	switch cond.Op {
	case OpEq:
		val, ok := parse(cond.Value)
		return ok && f == val
	case OpNe:
		val, ok := parse(cond.Value)
		return ok && f != val
	case OpGt:
		val, ok := parse(cond.Value)
		return ok && f > val
	case OpGe:
		val, ok := parse(cond.Value)
		return ok && f >= val
	case OpLt:
		val, ok := parse(cond.Value)
		return ok && f < val
	case OpLe:
		val, ok := parse(cond.Value)
		return ok && f <= val
	case OpBetween:
		from, okFrom := parse(cond.Value)
		to, okTo := parse(cond.Value2)
		return okFrom && okTo && f >= from && f <= to
	}
	return false
}

func evalText(cond Condition, s string) bool {
	switch cond.Op {
	case OpEq:
		return s == cond.Value
	case OpNe:
		return s != cond.Value
	case OpGt:
		return s > cond.Value
	case OpGe:
		return s >= cond.Value
	case OpLt:
		return s < cond.Value
	case OpLe:
		return s <= cond.Value
	case OpBetween:
		return s >= cond.Value && s <= cond.Value2
	}
	return false
}

// SelectColumnsKind distinguishes the three column-list shapes a SELECT
// statement can have.
type SelectColumnsKind int

const (
	SelectAll SelectColumnsKind = iota
	SelectCount
	SelectNamed
)

// Select is a fully-resolved query against one table: its projection and
// an AND-ed list of WHERE predicates.
type Select struct {
	Table       string
	ColumnsKind SelectColumnsKind
	Columns     []string
	Conds       []Condition
}

// Result is the outcome of running a Select: the resolved projected
// column names (empty for SelectCount) and the matching rows, each
// already sliced down to the projection.
type Result struct {
	Columns []string
	Rows    [][]Value
	Count   int
}

// projection resolves which declared columns a Select's column-list
// picks, in projection order. A named column absent from the table is
// silently skipped rather than reported.
func projection(sel Select, table *TableDef) []Column {
	switch sel.ColumnsKind {
	case SelectAll:
		return append([]Column(nil), table.Columns...)
	case SelectNamed:
		var out []Column
		for _, name := range sel.Columns {
			if col, ok := table.column(name); ok {
				out = append(out, col)
			}
		}
		return out
	default:
		return nil
	}
}

// pageSource is the minimal page-fetching capability the executor needs;
// Database satisfies it.
type pageSource interface {
	getPage(ctx context.Context, pageNo uint64) (*Page, error)
}

// search carries one B-tree traversal's invariants: the page to visit,
// an optional index-lookup key, an optional row-id allowlist (populated
// once an index narrows a table scan), the schema entry being queried,
// and the AND-ed conditions still to check at the leaves.
type search struct {
	pageNo  uint64
	key     string
	hasKey  bool
	indices []uint64
	schema  SchemaEntry
	table   *TableDef
	conds   []Condition
}

func (s search) withPage(pageNo uint64) search {
	next := s
	next.pageNo = pageNo
	return next
}

// rows runs one B-tree traversal starting at s.pageNo, returning every
// matching row. The branches dispatch on page kind: TableInterior
// recurses into every cell's child subtree plus the rightmost child (an
// indices allowlist never prunes at this level, only at the leaves);
// IndexInterior partitions cells around the search key and never
// descends its rightmost child; the two leaf kinds filter by row-id
// allowlist, then by index key equality, then by the AND-ed conditions.
func rows(ctx context.Context, src pageSource, s search, diag func(error)) []Row {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	page, err := src.getPage(ctx, s.pageNo)
	if err != nil {
		diag(err)
		return nil
	}
	cells, err := page.cells()
	if err != nil {
		diag(err)
		return nil
	}

	switch page.Header.Kind {
	case PageTableInterior:
		return tableInteriorRows(ctx, src, s, cells, page, diag)
	case PageIndexInterior:
		return indexInteriorRows(ctx, src, s, cells, diag)
	default:
		return leafRows(s, cells)
	}
}

func tableInteriorRows(ctx context.Context, src pageSource, s search, cells []Cell, page *Page, diag func(error)) []Row {
	var out []Row
	for _, cell := range cells {
		next := s.withPage(uint64(cell.LeftChildPage))
		out = append(out, rows(ctx, src, next, diag)...)
	}
	if page.Header.hasRightmostPointer && page.Header.RightmostPointer != 0 {
		out = append(out, rows(ctx, src, s.withPage(uint64(page.Header.RightmostPointer)), diag)...)
	}
	return out
}

func indexInteriorRows(ctx context.Context, src pageSource, s search, cells []Cell, diag func(error)) []Row {
	var out []Row
	if !s.hasKey {
		return out
	}
	searchKey := s.key

	var indices []uint64
	var leftKey string
	haveLeftKey := false

	for _, cell := range cells {
		row := cell.row()
		if len(row) == 0 {
			continue
		}
		rowKey := row[0].String()

		if haveLeftKey {
			if leftKey <= searchKey && searchKey <= rowKey {
				indexRows := rows(ctx, src, s.withPage(uint64(cell.LeftChildPage)), diag)
				if rowKey == searchKey {
					indexRows = append(indexRows, row)
				}
				for _, r := range indexRows {
					if len(r) > 1 {
						indices = append(indices, uint64(r[1].Integer))
					}
				}
			}
			if leftKey == searchKey {
				break
			}
			leftKey = rowKey
		} else {
			if searchKey <= rowKey {
				out = append(out, rows(ctx, src, s.withPage(uint64(cell.LeftChildPage)), diag)...)
			}
			leftKey = rowKey
			haveLeftKey = true
		}
	}

	if len(indices) > 0 {
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
		tableSearch := search{
			pageNo:  s.schema.RootPage,
			indices: indices,
			schema:  s.schema,
			table:   s.table,
			conds:   s.conds,
		}
		out = append(out, rows(ctx, src, tableSearch, diag)...)
	}

	return out
}

func leafRows(s search, cells []Cell) []Row {
	var out []Row
	for _, cell := range cells {
		row := cell.row()

		if s.indices != nil && cell.Kind == PageTableLeaf {
			idx := sort.Search(len(s.indices), func(i int) bool { return s.indices[i] >= cell.RowID })
			if idx >= len(s.indices) || s.indices[idx] != cell.RowID {
				continue
			}
		}

		if s.hasKey {
			if len(row) == 0 || row[0].String() != s.key {
				continue
			}
			out = append(out, row)
			continue
		}

		if len(s.conds) > 0 {
			matched := 0
			for _, cond := range s.conds {
				if cond.eval(row, s.table) {
					matched++
				}
			}
			if matched != len(s.conds) {
				continue
			}
		}

		out = append(out, row)
	}
	return out
}

// Row is one decoded, not-yet-projected table row.
type Row = []Value

// findIndex looks for the first Eq condition whose column has a matching
// index on table, returning the index's root page and search
// key. Only equality narrows a traversal to an index: other
// operators still filter at the leaves via conds, but never select an
// index to seek through.
func findIndex(conds []Condition, tableName string, table *TableDef, cat *Catalogue) (rootPage uint64, key string, ok bool) {
	for _, cond := range conds {
		if cond.Op != OpEq {
			continue
		}
		if _, known := table.column(cond.Column); !known {
			continue
		}
		for _, idxEntry := range cat.indexesOn(tableName) {
			_, column, err := parseCreateIndex(idxEntry.SQL)
			if err != nil {
				continue
			}
			if column == cond.Column {
				return idxEntry.RootPage, cond.Value, true
			}
		}
	}
	return 0, "", false
}

// runSelect executes sel against src using the catalogue's schema:
// resolve the table, pick an index if one fits, walk, then project.
func runSelect(ctx context.Context, src pageSource, cat *Catalogue, sel Select, diag func(error)) (Result, error) {
	entry, ok := cat.lookup(sel.Table)
	if !ok || entry.Type != SchemaTable {
		return Result{}, wrapErr("run_select", ErrNoSuchTable, map[string]any{"table": sel.Table})
	}
	table, err := parseCreateTable(entry.SQL)
	if err != nil {
		return Result{}, err
	}

	if sel.ColumnsKind == SelectCount {
		page, err := src.getPage(ctx, entry.RootPage)
		if err != nil {
			return Result{}, err
		}
		return Result{Count: int(page.Header.CellCount)}, nil
	}

	cols := projection(sel, table)
	colNames := make([]string, len(cols))
	for i, c := range cols {
		colNames[i] = c.Name
	}

	pageNo := entry.RootPage
	var key string
	var hasKey bool
	if rootPage, k, ok := findIndex(sel.Conds, sel.Table, table, cat); ok {
		pageNo, key, hasKey = rootPage, k, true
	}

	s := search{
		pageNo: pageNo,
		key:    key,
		hasKey: hasKey,
		schema: entry,
		table:  table,
		conds:  sel.Conds,
	}

	matched := rows(ctx, src, s, diag)
	out := make([][]Value, len(matched))
	for i, row := range matched {
		projected := make([]Value, len(cols))
		for j, c := range cols {
			if c.Index < len(row) {
				projected[j] = row[c.Index]
			}
		}
		out[i] = projected
	}

	return Result{Columns: colNames, Rows: out}, nil
}
