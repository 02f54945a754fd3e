package liteql

import (
	"strings"
	"unicode"
)

// ColumnType is the declared storage class of a table column.
type ColumnType int

const (
	ColumnUnknown ColumnType = iota
	ColumnInteger
	ColumnFloat
	ColumnText
	ColumnBlob
)

func parseColumnType(word string) ColumnType {
	switch strings.ToLower(word) {
	case "integer":
		return ColumnInteger
	case "float":
		return ColumnFloat
	case "text":
		return ColumnText
	case "blob":
		return ColumnBlob
	default:
		return ColumnUnknown
	}
}

// Column is one declared column of a CREATE TABLE statement.
type Column struct {
	Name          string
	Type          ColumnType
	Index         int
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
}

// TableDef is a parsed CREATE TABLE statement: column order, name lookup,
// and the PRIMARY KEY column, if any (whatever its declared type).
type TableDef struct {
	Name        string
	Columns     []Column
	columnIndex map[string]int
	Key         *string
}

// column looks up a declared column by name.
func (t *TableDef) column(name string) (Column, bool) {
	idx, ok := t.columnIndex[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[idx], true
}

// ddlCursor is a minimal hand-rolled scanner over a CREATE statement's
// text: whitespace-separated keywords, bareword or double-quoted
// identifiers, "(" ")" "," punctuation.
type ddlCursor struct {
	s   string
	pos int
}

func (c *ddlCursor) skipSpace() {
	for c.pos < len(c.s) && unicode.IsSpace(rune(c.s[c.pos])) {
		c.pos++
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '.' || b == '_'
}

// identifier reads a name: either a bareword of [A-Za-z0-9._]+, or a
// double-quoted identifier that may itself contain spaces, like
// "some thing".
func (c *ddlCursor) identifier() (string, bool) {
	c.skipSpace()
	if c.pos >= len(c.s) {
		return "", false
	}
	if c.s[c.pos] == '"' {
		end := strings.IndexByte(c.s[c.pos+1:], '"')
		if end < 0 {
			return "", false
		}
		name := c.s[c.pos+1 : c.pos+1+end]
		c.pos += end + 2
		return name, true
	}
	start := c.pos
	for c.pos < len(c.s) && isWordByte(c.s[c.pos]) {
		c.pos++
	}
	if c.pos == start {
		return "", false
	}
	return c.s[start:c.pos], true
}

// keyword consumes a case-insensitive literal keyword (possibly containing
// an internal space, e.g. "PRIMARY KEY"), returning whether it matched.
func (c *ddlCursor) keyword(word string) bool {
	save := c.pos
	c.skipSpace()
	if c.pos+len(word) > len(c.s) {
		c.pos = save
		return false
	}
	if !strings.EqualFold(c.s[c.pos:c.pos+len(word)], word) {
		c.pos = save
		return false
	}
	// Require the match not be a prefix of a longer identifier.
	end := c.pos + len(word)
	if end < len(c.s) && isWordByte(c.s[end]) && isWordByte(word[len(word)-1]) {
		c.pos = save
		return false
	}
	c.pos = end
	return true
}

func (c *ddlCursor) punct(b byte) bool {
	save := c.pos
	c.skipSpace()
	if c.pos < len(c.s) && c.s[c.pos] == b {
		c.pos++
		return true
	}
	c.pos = save
	return false
}

// parseCreateTable parses a CREATE TABLE statement into a TableDef. After
// a column's name and type it recognises the optional PRIMARY KEY,
// AUTOINCREMENT and NOT NULL modifiers, in that order; any other
// column-constraint token makes the statement ErrMalformedDDL.
func parseCreateTable(sql string) (*TableDef, error) {
	c := &ddlCursor{s: sql}
	if !c.keyword("CREATE TABLE") {
		return nil, wrapErr("parse_create_table", ErrMalformedDDL, map[string]any{"sql": sql})
	}
	name, ok := c.identifier()
	if !ok {
		return nil, wrapErr("parse_create_table", ErrMalformedDDL, map[string]any{"sql": sql})
	}
	if !c.punct('(') {
		return nil, wrapErr("parse_create_table", ErrMalformedDDL, map[string]any{"sql": sql})
	}

	table := &TableDef{Name: name, columnIndex: make(map[string]int)}
	idx := 0
	for {
		colName, ok := c.identifier()
		if !ok {
			return nil, wrapErr("parse_create_table", ErrMalformedDDL, map[string]any{
				"sql": sql, "position": c.pos,
			})
		}
		typeWord, ok := c.identifier()
		if !ok {
			return nil, wrapErr("parse_create_table", ErrMalformedDDL, map[string]any{
				"sql": sql, "position": c.pos,
			})
		}

		col := Column{Name: colName, Type: parseColumnType(typeWord), Index: idx, Nullable: true}
		if c.keyword("PRIMARY KEY") {
			col.PrimaryKey = true
			col.Nullable = false
			table.Key = &colName
		}
		if c.keyword("AUTOINCREMENT") {
			col.AutoIncrement = true
		}
		if c.keyword("NOT NULL") {
			col.Nullable = false
		}

		table.Columns = append(table.Columns, col)
		table.columnIndex[colName] = idx
		idx++

		if c.punct(',') {
			continue
		}
		break
	}

	if !c.punct(')') {
		return nil, wrapErr("parse_create_table", ErrMalformedDDL, map[string]any{"sql": sql})
	}
	return table, nil
}

// parseCreateIndex parses a CREATE INDEX statement, returning the indexed
// table and column name.
func parseCreateIndex(sql string) (tableName, columnName string, err error) {
	c := &ddlCursor{s: sql}
	if !c.keyword("CREATE INDEX") {
		return "", "", wrapErr("parse_create_index", ErrMalformedDDL, map[string]any{"sql": sql})
	}
	if _, ok := c.identifier(); !ok { // index name, unused
		return "", "", wrapErr("parse_create_index", ErrMalformedDDL, map[string]any{"sql": sql})
	}
	if !c.keyword("ON") {
		return "", "", wrapErr("parse_create_index", ErrMalformedDDL, map[string]any{"sql": sql})
	}
	table, ok := c.identifier()
	if !ok {
		return "", "", wrapErr("parse_create_index", ErrMalformedDDL, map[string]any{"sql": sql})
	}
	if !c.punct('(') {
		return "", "", wrapErr("parse_create_index", ErrMalformedDDL, map[string]any{"sql": sql})
	}
	column, ok := c.identifier()
	if !ok {
		return "", "", wrapErr("parse_create_index", ErrMalformedDDL, map[string]any{"sql": sql})
	}
	if !c.punct(')') {
		return "", "", wrapErr("parse_create_index", ErrMalformedDDL, map[string]any{"sql": sql})
	}
	return table, column, nil
}
