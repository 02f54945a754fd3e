package liteql

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writeFixtureFile writes a synthetic database image to a temp file and
// returns its path, so Open can be exercised against real file I/O rather
// than an in-memory pageSource.
func writeFixtureFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.db")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}
	return path
}

func buildApplesDatabaseFile() []byte {
	src := buildApplesFixture()
	return src.data
}

// TestOpenAndRunSelect drives projection, count, filtering and the
// empty-result path end to end through Open/RunSelect rather than the
// in-memory pageSource the rest of the package's tests use.
func TestOpenAndRunSelect(t *testing.T) {
	path := writeFixtureFile(t, buildApplesDatabaseFile())
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	t.Run("select name color", func(t *testing.T) {
		res, err := db.RunSelect(ctx, Select{Table: "apples", ColumnsKind: SelectNamed, Columns: []string{"name", "color"}})
		if err != nil {
			t.Fatalf("RunSelect() error = %v", err)
		}
		if len(res.Rows) != 3 {
			t.Fatalf("Rows = %d, want 3", len(res.Rows))
		}
		if res.Rows[0][0].Text != "Granny Smith" || res.Rows[0][1].Text != "Light Green" {
			t.Errorf("row 0 = %+v", res.Rows[0])
		}
	})

	t.Run("count", func(t *testing.T) {
		res, err := db.RunSelect(ctx, Select{Table: "apples", ColumnsKind: SelectCount})
		if err != nil {
			t.Fatalf("RunSelect() error = %v", err)
		}
		if res.Count != 3 {
			t.Errorf("Count = %d, want 3", res.Count)
		}
	})

	t.Run("where color eq", func(t *testing.T) {
		res, err := db.RunSelect(ctx, Select{
			Table:       "apples",
			ColumnsKind: SelectNamed,
			Columns:     []string{"name"},
			Conds:       []Condition{{Column: "color", Op: OpEq, Value: "Red"}},
		})
		if err != nil {
			t.Fatalf("RunSelect() error = %v", err)
		}
		if len(res.Rows) != 1 || res.Rows[0][0].Text != "Fuji" {
			t.Fatalf("Rows = %+v, want [[Fuji]]", res.Rows)
		}
	})

	t.Run("no match", func(t *testing.T) {
		res, err := db.RunSelect(ctx, Select{
			Table:       "apples",
			ColumnsKind: SelectAll,
			Conds:       []Condition{{Column: "name", Op: OpEq, Value: "nonexistent"}},
		})
		if err != nil {
			t.Fatalf("RunSelect() error = %v", err)
		}
		if len(res.Rows) != 0 {
			t.Errorf("Rows = %+v, want none", res.Rows)
		}
	})

	t.Run("no such table", func(t *testing.T) {
		_, err := db.RunSelect(ctx, Select{Table: "nope", ColumnsKind: SelectAll})
		if err == nil {
			t.Fatal("expected error for unknown table")
		}
	})
}

func TestOpenInfoAndListTables(t *testing.T) {
	path := writeFixtureFile(t, buildApplesDatabaseFile())
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	info, err := db.Info(ctx)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.PageSize != 4096 {
		t.Errorf("PageSize = %d, want 4096", info.PageSize)
	}
	if info.NumberOfTables != 1 {
		t.Errorf("NumberOfTables = %d, want 1", info.NumberOfTables)
	}

	tables, err := db.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if len(tables) != 1 || tables[0] != "apples" {
		t.Errorf("ListTables() = %v, want [apples]", tables)
	}

	schemas, err := db.ListSchemas(ctx)
	if err != nil {
		t.Fatalf("ListSchemas() error = %v", err)
	}
	if len(schemas) != 1 || schemas[0].Name != "apples" {
		t.Errorf("ListSchemas() = %v", schemas)
	}

	if _, ok := db.GetSchema(ctx, "apples"); !ok {
		t.Error("GetSchema(apples) not found")
	}
	if _, ok := db.GetSchema(ctx, "missing"); ok {
		t.Error("GetSchema(missing) unexpectedly found")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	bad := make([]byte, 4096)
	copy(bad, "not a sqlite file")
	path := writeFixtureFile(t, bad)

	if _, err := Open(path); err == nil {
		t.Fatal("expected error opening a file with a bad header")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Fatal("expected error opening a missing file")
	}
}
