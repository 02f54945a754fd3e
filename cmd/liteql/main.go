// Command liteql is a single-shot query runner, not a REPL (line editing,
// command history and dot-command shells are deliberately not
// provided). It opens a database file, runs one SELECT
// (or the `.dbinfo`/`.tables` introspection modes), and exits.
//
// Usage:
//
//	liteql <database-file> "<SELECT ...>"
//	liteql <database-file> .dbinfo
//	liteql <database-file> .tables
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nimrodshn/liteql"
	"github.com/nimrodshn/liteql/internal/sqlsurface"
)

func main() {
	if err := run(os.Args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run is main's testable body: args mirrors os.Args (args[0] is the
// program name), and all output is written to out rather than directly
// to os.Stdout.
func run(args []string, out io.Writer) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: %s <database-file> <SELECT ... | .dbinfo | .tables>", programName(args))
	}
	dbPath, command := args[1], args[2]

	db, err := liteql.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	switch {
	case command == ".dbinfo":
		return runDBInfo(ctx, db, out)
	case command == ".tables":
		return runTables(ctx, db, out)
	default:
		return runSelect(ctx, db, command, out)
	}
}

func programName(args []string) string {
	if len(args) == 0 {
		return "liteql"
	}
	return args[0]
}

func runDBInfo(ctx context.Context, db *liteql.Database, out io.Writer) error {
	info, err := db.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, info.String())
	return nil
}

func runTables(ctx context.Context, db *liteql.Database, out io.Writer) error {
	names, err := db.ListTables(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, strings.Join(names, " "))
	return nil
}

func runSelect(ctx context.Context, db *liteql.Database, sql string, out io.Writer) error {
	sel, err := sqlsurface.Parse(sql)
	if err != nil {
		return err
	}

	result, err := db.RunSelect(ctx, sel)
	if err != nil {
		return err
	}

	if sel.ColumnsKind == liteql.SelectCount {
		fmt.Fprintln(out, result.Count)
		return nil
	}

	for _, row := range result.Rows {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = v.String()
		}
		fmt.Fprintln(out, strings.Join(parts, "|"))
	}
	return nil
}
