package liteql

import "fmt"

// SchemaType is the object kind a sqlite_schema row describes.
type SchemaType string

const (
	SchemaTable   SchemaType = "table"
	SchemaIndex   SchemaType = "index"
	SchemaView    SchemaType = "view"
	SchemaTrigger SchemaType = "trigger"
)

func parseSchemaType(s string) (SchemaType, error) {
	switch SchemaType(s) {
	case SchemaTable, SchemaIndex, SchemaView, SchemaTrigger:
		return SchemaType(s), nil
	default:
		return "", wrapErr("parse_schema_type", ErrMalformedDDL, map[string]any{"type": s})
	}
}

// SchemaEntry is one decoded row of sqlite_schema.
type SchemaEntry struct {
	Type      SchemaType
	Name      string
	TableName string
	RootPage  uint64
	SQL       string
}

// newSchemaEntry builds a SchemaEntry from a decoded sqlite_schema row.
func newSchemaEntry(row []Value) (SchemaEntry, error) {
	if len(row) < 5 {
		return SchemaEntry{}, wrapErr("parse_schema_entry", ErrMalformedDDL, map[string]any{
			"columns": len(row),
		})
	}
	stype, err := parseSchemaType(row[0].String())
	if err != nil {
		return SchemaEntry{}, err
	}
	return SchemaEntry{
		Type:      stype,
		Name:      row[1].String(),
		TableName: row[2].String(),
		RootPage:  uint64(row[3].Integer),
		SQL:       row[4].String(),
	}, nil
}

// Catalogue holds every sqlite_schema entry, built once from page 1 and
// never mutated afterwards.
type Catalogue struct {
	entries []SchemaEntry
	byName  map[string]SchemaEntry
}

// newCatalogue builds a Catalogue from the rows of the root schema table,
// in cell order, so list() preserves on-disk insertion order.
func newCatalogue(rows [][]Value) (*Catalogue, error) {
	c := &Catalogue{byName: make(map[string]SchemaEntry)}
	for _, row := range rows {
		entry, err := newSchemaEntry(row)
		if err != nil {
			return nil, err
		}
		c.entries = append(c.entries, entry)
		c.byName[entry.Name] = entry
	}
	return c, nil
}

// lookup returns the entry named name, if any.
func (c *Catalogue) lookup(name string) (SchemaEntry, bool) {
	e, ok := c.byName[name]
	return e, ok
}

// list returns every entry in catalogue (insertion) order.
func (c *Catalogue) list() []SchemaEntry {
	return c.entries
}

// tables returns every table entry, excluding sqlite_sequence, which
// SQLite creates internally to track AUTOINCREMENT state and which
// sqlite3's own .tables command excludes from listings.
func (c *Catalogue) tables() []SchemaEntry {
	var out []SchemaEntry
	for _, e := range c.entries {
		if e.Type == SchemaTable && e.Name != "sqlite_sequence" {
			out = append(out, e)
		}
	}
	return out
}

// indexesOn returns every index entry whose TableName matches tableName,
// in catalogue order.
func (c *Catalogue) indexesOn(tableName string) []SchemaEntry {
	var out []SchemaEntry
	for _, e := range c.entries {
		if e.Type == SchemaIndex && e.TableName == tableName {
			out = append(out, e)
		}
	}
	return out
}

func (e SchemaEntry) String() string {
	return fmt.Sprintf("%s %s on %s (root page %d)", e.Type, e.Name, e.TableName, e.RootPage)
}
