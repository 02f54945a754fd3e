package liteql

import (
	"encoding/binary"
	"fmt"
)

const (
	databaseHeaderSize = 100
	magicString        = "SQLite format 3\x00"
)

// PageKind identifies one of the four B-tree page shapes.
type PageKind uint8

const (
	PageIndexInterior PageKind = 2
	PageTableInterior PageKind = 5
	PageIndexLeaf     PageKind = 10
	PageTableLeaf     PageKind = 13
)

func (k PageKind) String() string {
	switch k {
	case PageIndexInterior:
		return "index-interior"
	case PageTableInterior:
		return "table-interior"
	case PageIndexLeaf:
		return "index-leaf"
	case PageTableLeaf:
		return "table-leaf"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

func (k PageKind) isInterior() bool {
	return k == PageIndexInterior || k == PageTableInterior
}

func parsePageKind(b byte) (PageKind, error) {
	switch PageKind(b) {
	case PageIndexInterior, PageTableInterior, PageIndexLeaf, PageTableLeaf:
		return PageKind(b), nil
	default:
		return 0, wrapErr("parse_page_kind", &UnknownPageKindError{Kind: b}, nil)
	}
}

// DatabaseHeader is the 100-byte header at the start of page 1.
type DatabaseHeader struct {
	PageSize             uint32 // normalised: a stored value of 1 means 65536
	FileFormatWrite      uint8
	FileFormatRead       uint8
	ReservedSpace        uint8
	FileChangeCounter    uint32
	DatabaseSizePages    uint32
	FreelistHeadPage     uint32
	FreelistPageCount    uint32
	SchemaCookie         uint32
	SchemaFormat         uint32
	DefaultCacheSize     uint32
	LargestRootBtreePage uint32
	TextEncoding         uint32
	UserVersion          uint32
	IncrementalVacuum    uint32
	ApplicationID        uint32
	VersionValidFor      uint32
	SoftwareVersion      uint32
}

// parseDatabaseHeader decodes the 100-byte header, all fields big-endian.
func parseDatabaseHeader(buf []byte) (*DatabaseHeader, error) {
	if len(buf) < databaseHeaderSize {
		return nil, wrapErr("parse_database_header", ErrMalformedHeader, map[string]any{
			"have_bytes": len(buf),
			"need_bytes": databaseHeaderSize,
		})
	}
	if string(buf[0:16]) != magicString {
		return nil, wrapErr("parse_database_header", ErrMalformedHeader, map[string]any{
			"magic": fmt.Sprintf("%q", buf[0:16]),
		})
	}

	rawPageSize := binary.BigEndian.Uint16(buf[16:18])
	pageSize := uint32(rawPageSize)
	if rawPageSize == 1 {
		pageSize = 65536
	}
	if pageSize < 512 || pageSize > 65536 || pageSize&(pageSize-1) != 0 {
		return nil, wrapErr("parse_database_header", ErrMalformedHeader, map[string]any{
			"page_size": pageSize,
		})
	}

	h := &DatabaseHeader{
		PageSize:             pageSize,
		FileFormatWrite:      buf[18],
		FileFormatRead:       buf[19],
		ReservedSpace:        buf[20],
		FileChangeCounter:    binary.BigEndian.Uint32(buf[24:28]),
		DatabaseSizePages:    binary.BigEndian.Uint32(buf[28:32]),
		FreelistHeadPage:     binary.BigEndian.Uint32(buf[32:36]),
		FreelistPageCount:    binary.BigEndian.Uint32(buf[36:40]),
		SchemaCookie:         binary.BigEndian.Uint32(buf[40:44]),
		SchemaFormat:         binary.BigEndian.Uint32(buf[44:48]),
		DefaultCacheSize:     binary.BigEndian.Uint32(buf[48:52]),
		LargestRootBtreePage: binary.BigEndian.Uint32(buf[52:56]),
		TextEncoding:         binary.BigEndian.Uint32(buf[56:60]),
		UserVersion:          binary.BigEndian.Uint32(buf[60:64]),
		IncrementalVacuum:    binary.BigEndian.Uint32(buf[64:68]),
		ApplicationID:        binary.BigEndian.Uint32(buf[68:72]),
		VersionValidFor:      binary.BigEndian.Uint32(buf[92:96]),
		SoftwareVersion:      binary.BigEndian.Uint32(buf[96:100]),
	}
	return h, nil
}

// BtreeHeader is the header of a single B-tree page.
type BtreeHeader struct {
	Kind                PageKind
	FirstFreeblock      uint16
	CellCount           uint16
	CellContentStart    uint16
	FragmentedBytes     uint8
	RightmostPointer    uint32 // only meaningful when Kind.isInterior()
	hasRightmostPointer bool
}

// btreeHeaderSize returns the on-disk size of a B-tree page header: 12
// bytes for interior pages (which carry the rightmost-child pointer), 8
// for leaves.
func btreeHeaderSize(kind PageKind) int {
	if kind.isInterior() {
		return 12
	}
	return 8
}

func parseBtreeHeader(buf []byte) (*BtreeHeader, error) {
	if len(buf) < 8 {
		return nil, wrapErr("parse_btree_header", ErrMalformedBtreeHeader, map[string]any{
			"have_bytes": len(buf),
		})
	}
	kind, err := parsePageKind(buf[0])
	if err != nil {
		return nil, wrapErr("parse_btree_header", err, nil)
	}

	h := &BtreeHeader{
		Kind:             kind,
		FirstFreeblock:   binary.BigEndian.Uint16(buf[1:3]),
		CellCount:        binary.BigEndian.Uint16(buf[3:5]),
		CellContentStart: binary.BigEndian.Uint16(buf[5:7]),
		FragmentedBytes:  buf[7],
	}
	if kind.isInterior() {
		if len(buf) < 12 {
			return nil, wrapErr("parse_btree_header", ErrMalformedBtreeHeader, map[string]any{
				"have_bytes": len(buf),
			})
		}
		h.RightmostPointer = binary.BigEndian.Uint32(buf[8:12])
		h.hasRightmostPointer = true
	}
	return h, nil
}

// Page is one page's worth of raw bytes plus its parsed B-tree header.
// Cells and record values decoded from a Page borrow its backing buffer;
// callers must not mutate Data while cells derived from it are in use.
type Page struct {
	PageNo uint64
	Data   []byte
	Header *BtreeHeader

	// maxConcurrency bounds how many cells cells() decodes in parallel.
	// Zero (the default parsePage leaves it at) means decode
	// sequentially; Database raises it to the configured option once a
	// page is fetched through it.
	maxConcurrency int
}

// cellPointerArrayStart returns the offset, within the page buffer, where
// the cell-pointer array begins. Page 1 always starts its cell-pointer
// array at byte 108 (the 100-byte database header plus an 8-byte B-tree
// header), regardless of whether its B-tree header is the 8-byte leaf
// form or the 12-byte interior form. For an interior page 1 that offset
// falls on bytes 108..111, which parseBtreeHeader also reads as the
// rightmost-child pointer.
func (p *Page) cellPointerArrayStart() int {
	if p.PageNo == 1 {
		return 108
	}
	return btreeHeaderSize(p.Header.Kind)
}

// cellOffset returns the byte offset, within the page buffer, where the
// i-th cell (in cell-pointer-array order) begins.
func (p *Page) cellOffset(i int) (int, error) {
	start := p.cellPointerArrayStart()
	ptrOffset := start + i*2
	if ptrOffset+2 > len(p.Data) {
		return 0, wrapErr("cell_offset", ErrMalformedBtreeHeader, map[string]any{
			"index":  i,
			"offset": ptrOffset,
		})
	}
	offset := int(binary.BigEndian.Uint16(p.Data[ptrOffset : ptrOffset+2]))
	if offset < 0 || offset >= len(p.Data) {
		return 0, wrapErr("cell_offset", ErrMalformedBtreeHeader, map[string]any{
			"index":  i,
			"offset": offset,
		})
	}
	return offset, nil
}

// parsePage interprets a freshly read page's bytes: page 1 carries the
// database header before its B-tree header; every other page's B-tree
// header starts at offset 0.
func parsePage(pageNo uint64, data []byte) (*Page, error) {
	headerStart := 0
	if pageNo == 1 {
		headerStart = databaseHeaderSize
	}
	if headerStart >= len(data) {
		return nil, wrapErr("parse_page", ErrMalformedBtreeHeader, map[string]any{
			"page_no": pageNo,
		})
	}
	header, err := parseBtreeHeader(data[headerStart:])
	if err != nil {
		return nil, wrapErr("parse_page", err, map[string]any{"page_no": pageNo})
	}
	return &Page{PageNo: pageNo, Data: data, Header: header}, nil
}
