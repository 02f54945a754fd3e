package liteql

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

// Database owns one open file handle and the immutable catalogue built
// from it at Open time. Pages are never cached across getPage calls: each is a
// self-contained seek+read+parse, so no cursor state survives between
// traversal steps.
type Database struct {
	file     *os.File
	header   *DatabaseHeader
	catalog  *Catalogue
	opts     *options
	resource *resourceManager
}

// defaultDiagnostics is the fallback per-page traversal diagnostic: it
// logs and lets the caller's subtree come back empty rather than
// aborting the whole query.
func defaultDiagnostics(err error) {
	log.Printf("liteql: page traversal error: %v", err)
}

// Open opens path, parses its 100-byte header and B-tree root, and builds
// the schema catalogue from page 1. Header and root-page failures are
// fatal; everything downstream degrades to partial results instead.
func Open(path string, opts ...Option) (*Database, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	rm := newResourceManager()
	rm.add(f)

	db := &Database{file: f, opts: o, resource: rm}

	page1, err := db.readPage(context.Background(), 1)
	if err != nil {
		rm.Close()
		return nil, err
	}
	db.header = page1.header

	cells, err := page1.page.cells()
	if err != nil {
		rm.Close()
		return nil, wrapErr("open", err, map[string]any{"path": path})
	}
	rows := make([][]Value, 0, len(cells))
	for _, c := range cells {
		rows = append(rows, c.row())
	}
	cat, err := newCatalogue(rows)
	if err != nil {
		rm.Close()
		return nil, wrapErr("open", err, map[string]any{"path": path})
	}
	db.catalog = cat

	return db, nil
}

// Close releases the database's open file handle.
func (db *Database) Close() error {
	return db.resource.Close()
}

// pageWithHeader bundles a parsed page with the database header, which
// only readPage(1) needs to refresh.
type pageWithHeader struct {
	page   *Page
	header *DatabaseHeader
}

// readPage seeks to pageNo's offset and reads exactly one page's worth of
// bytes. Page 1 additionally yields the parsed database
// header.
func (db *Database) readPage(ctx context.Context, pageNo uint64) (pageWithHeader, error) {
	select {
	case <-ctx.Done():
		return pageWithHeader{}, ctx.Err()
	default:
	}

	pageSize := uint64(0)
	if db.header != nil {
		pageSize = uint64(db.header.PageSize)
	}

	var header *DatabaseHeader
	var buf []byte
	if pageNo == 1 {
		// The page size itself lives inside page 1, so the very first
		// read has to happen before pageSize is known: read the fixed
		// 100-byte header first, then the rest of the page.
		probe := make([]byte, databaseHeaderSize)
		if _, err := db.file.ReadAt(probe, 0); err != nil {
			return pageWithHeader{}, &IOError{Path: db.file.Name(), Err: err}
		}
		h, err := parseDatabaseHeader(probe)
		if err != nil {
			return pageWithHeader{}, err
		}
		header = h
		pageSize = uint64(h.PageSize)

		buf = make([]byte, pageSize)
		if _, err := db.file.ReadAt(buf, 0); err != nil {
			return pageWithHeader{}, &IOError{Path: db.file.Name(), Err: err}
		}
	} else {
		if pageNo == 0 {
			return pageWithHeader{}, wrapErr("read_page", ErrInvalidPageNumber, map[string]any{"page_no": pageNo})
		}
		offset := int64(pageNo-1) * int64(pageSize)
		buf = make([]byte, pageSize)
		if _, err := db.file.ReadAt(buf, offset); err != nil {
			return pageWithHeader{}, wrapErr("read_page", ErrInvalidPageNumber, map[string]any{
				"page_no": pageNo, "cause": err.Error(),
			})
		}
	}

	page, err := parsePage(pageNo, buf)
	if err != nil {
		return pageWithHeader{}, err
	}
	page.maxConcurrency = db.opts.maxConcurrency
	return pageWithHeader{page: page, header: header}, nil
}

// getPage satisfies the pageSource interface the executor (query.go)
// depends on.
func (db *Database) getPage(ctx context.Context, pageNo uint64) (*Page, error) {
	pwh, err := db.readPage(ctx, pageNo)
	if err != nil {
		return nil, err
	}
	return pwh.page, nil
}

// HeaderInfo is the textual dump of database header fields returned by
// Info.
type HeaderInfo struct {
	PageSize          uint32
	WriteFormat       uint8
	ReadFormat        uint8
	ReservedBytes     uint8
	FileChangeCounter uint32
	DatabasePageCount uint32
	FreelistPageCount uint32
	SchemaCookie      uint32
	SchemaFormat      uint32
	DefaultCacheSize  uint32
	AutovacuumTopRoot uint32
	IncrementalVacuum uint32
	Encoding          string
	UserVersion       uint32
	ApplicationID     uint32
	SoftwareVersion   uint32
	NumberOfTables    int
}

// Info returns a summary of the database header. The table count is the
// schema entry count from the already-built catalogue rather than a
// second pass over page 1.
func (db *Database) Info(ctx context.Context) (HeaderInfo, error) {
	select {
	case <-ctx.Done():
		return HeaderInfo{}, ctx.Err()
	default:
	}
	encoding := "unknown"
	switch db.header.TextEncoding {
	case 1:
		encoding = "1 (utf8)"
	case 2:
		encoding = "2 (utf16le)"
	case 3:
		encoding = "3 (utf16be)"
	}
	h := db.header
	return HeaderInfo{
		PageSize:          h.PageSize,
		WriteFormat:       h.FileFormatWrite,
		ReadFormat:        h.FileFormatRead,
		ReservedBytes:     h.ReservedSpace,
		FileChangeCounter: h.FileChangeCounter,
		DatabasePageCount: h.DatabaseSizePages,
		FreelistPageCount: h.FreelistPageCount,
		SchemaCookie:      h.SchemaCookie,
		SchemaFormat:      h.SchemaFormat,
		DefaultCacheSize:  h.DefaultCacheSize,
		AutovacuumTopRoot: h.LargestRootBtreePage,
		IncrementalVacuum: h.IncrementalVacuum,
		Encoding:          encoding,
		UserVersion:       h.UserVersion,
		ApplicationID:     h.ApplicationID,
		SoftwareVersion:   h.SoftwareVersion,
		NumberOfTables:    len(db.catalog.list()),
	}, nil
}

func (h HeaderInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "database page size: %d\n", h.PageSize)
	fmt.Fprintf(&b, "write format: %d\n", h.WriteFormat)
	fmt.Fprintf(&b, "read format: %d\n", h.ReadFormat)
	fmt.Fprintf(&b, "reserved bytes: %d\n", h.ReservedBytes)
	fmt.Fprintf(&b, "file change counter: %d\n", h.FileChangeCounter)
	fmt.Fprintf(&b, "database page count: %d\n", h.DatabasePageCount)
	fmt.Fprintf(&b, "freelist page count: %d\n", h.FreelistPageCount)
	fmt.Fprintf(&b, "schema cookie: %d\n", h.SchemaCookie)
	fmt.Fprintf(&b, "schema format: %d\n", h.SchemaFormat)
	fmt.Fprintf(&b, "default cache size: %d\n", h.DefaultCacheSize)
	fmt.Fprintf(&b, "autovacuum top root: %d\n", h.AutovacuumTopRoot)
	fmt.Fprintf(&b, "incremental vacuum: %d\n", h.IncrementalVacuum)
	fmt.Fprintf(&b, "text encoding: %s\n", h.Encoding)
	fmt.Fprintf(&b, "user version: %d\n", h.UserVersion)
	fmt.Fprintf(&b, "application id: %d\n", h.ApplicationID)
	fmt.Fprintf(&b, "software version: %d\n", h.SoftwareVersion)
	fmt.Fprintf(&b, "number of tables: %d", h.NumberOfTables)
	return b.String()
}

// ListSchemas returns every catalogue entry in on-disk order.
func (db *Database) ListSchemas(ctx context.Context) ([]SchemaEntry, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return db.catalog.list(), nil
}

// ListTables returns the user-visible table names, excluding
// sqlite_sequence, matching sqlite3's own `.tables` behaviour.
func (db *Database) ListTables(ctx context.Context) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	tables := db.catalog.tables()
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names, nil
}

// GetSchema looks up one catalogue entry by name.
func (db *Database) GetSchema(ctx context.Context, name string) (SchemaEntry, bool) {
	return db.catalog.lookup(name)
}

// RunSelect resolves sel against the catalogue and walks the relevant
// B-tree(s), returning the projected, filtered rows.
// Per-page traversal failures are routed through the configured
// diagnostics hook rather than aborting the query.
func (db *Database) RunSelect(ctx context.Context, sel Select) (Result, error) {
	return runSelect(ctx, db, db.catalog, sel, db.opts.diagnostics)
}
