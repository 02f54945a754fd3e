package liteql

import (
	"encoding/binary"
	"math"
)

// fixtures_test.go builds synthetic, byte-exact SQLite database images for
// tests, so the decoder can be exercised end-to-end without depending on
// cgo or a real sqlite3 binary to produce .db files.

// encodeValueBytes returns the serial type and body bytes a fixture
// encoder would use for v — the inverse of decodeValue.
func encodeValueBytes(v Value) (serialType uint64, body []byte) {
	switch v.Kind {
	case KindNull:
		return 0, nil
	case KindInteger:
		n := v.Integer
		switch {
		case n >= -128 && n <= 127:
			return 1, []byte{byte(int8(n))}
		case n >= -32768 && n <= 32767:
			b := make([]byte, 2)
			binary.BigEndian.PutUint16(b, uint16(int16(n)))
			return 2, b
		case n >= -1<<31 && n <= 1<<31-1:
			b := make([]byte, 4)
			binary.BigEndian.PutUint32(b, uint32(int32(n)))
			return 4, b
		default:
			b := make([]byte, 8)
			binary.BigEndian.PutUint64(b, uint64(n))
			return 6, b
		}
	case KindFloat:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, math.Float64bits(v.Float))
		return 7, b
	case KindText:
		return uint64(13 + 2*len(v.Text)), []byte(v.Text)
	case KindBlob:
		return uint64(12 + 2*len(v.Blob)), append([]byte(nil), v.Blob...)
	}
	return 0, nil
}

// buildRecordPayload encodes values into a record payload (header+body).
func buildRecordPayload(values []Value) []byte {
	serialTypes := make([]uint64, len(values))
	bodies := make([][]byte, len(values))
	for i, v := range values {
		st, body := encodeValueBytes(v)
		serialTypes[i] = st
		bodies[i] = body
	}

	var headerBody []byte
	for _, st := range serialTypes {
		headerBody = putVarint(headerBody, st)
	}

	// Header size varint includes itself; iterate to a fixed point since
	// the varint's own length can (rarely, for huge headers) affect the
	// total. In practice this converges after one pass for any payload a
	// test builds.
	hsVarint := putVarint(nil, uint64(1+len(headerBody)))
	for {
		total := len(hsVarint) + len(headerBody)
		next := putVarint(nil, uint64(total))
		if len(next) == len(hsVarint) {
			hsVarint = next
			break
		}
		hsVarint = next
	}

	payload := append(append([]byte(nil), hsVarint...), headerBody...)
	for _, b := range bodies {
		payload = append(payload, b...)
	}
	return payload
}

// buildTableLeafCell builds the on-disk bytes of a table-leaf cell.
func buildTableLeafCell(rowID uint64, values []Value) []byte {
	payload := buildRecordPayload(values)
	out := putVarint(nil, uint64(len(payload)))
	out = putVarint(out, rowID)
	out = append(out, payload...)
	return out
}

// buildTableInteriorCell builds the on-disk bytes of a table-interior cell.
func buildTableInteriorCell(childPage uint32, rowID uint64) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, childPage)
	out = putVarint(out, rowID)
	return out
}

// buildIndexLeafCell builds the on-disk bytes of an index-leaf cell. The
// record is (indexedValue, rowID).
func buildIndexLeafCell(indexedValue Value, rowID uint64) []byte {
	payload := buildRecordPayload([]Value{indexedValue, IntegerValue(int64(rowID))})
	out := putVarint(nil, uint64(len(payload)))
	out = append(out, payload...)
	return out
}

// buildIndexInteriorCell builds the on-disk bytes of an index-interior cell.
func buildIndexInteriorCell(childPage uint32, indexedValue Value, rowID uint64) []byte {
	payload := buildRecordPayload([]Value{indexedValue, IntegerValue(int64(rowID))})
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, childPage)
	out = putVarint(out, uint64(len(payload)))
	out = append(out, payload...)
	return out
}

// buildPage assembles one page's full pageSize-byte image: the B-tree
// header, the cell-pointer array, and the cell bodies packed backward
// from the end of the page, matching the real layout convention.
func buildPage(pageNo uint64, pageSize int, kind PageKind, rightmost uint32, cellBytes [][]byte) []byte {
	buf := make([]byte, pageSize)

	headerOffset := 0
	if pageNo == 1 {
		copy(buf[0:16], magicString)
		binary.BigEndian.PutUint16(buf[16:18], uint16(pageSize))
		buf[18], buf[19] = 1, 1
		buf[21], buf[22], buf[23] = 64, 32, 32
		headerOffset = databaseHeaderSize
	}

	ptrStart := headerOffset + btreeHeaderSize(kind)
	if pageNo == 1 {
		ptrStart = 108
	}
	contentEnd := pageSize
	pointers := make([]uint16, len(cellBytes))
	for i, cb := range cellBytes {
		contentEnd -= len(cb)
		copy(buf[contentEnd:contentEnd+len(cb)], cb)
		pointers[i] = uint16(contentEnd)
	}

	buf[headerOffset] = byte(kind)
	binary.BigEndian.PutUint16(buf[headerOffset+1:headerOffset+3], 0) // first freeblock
	binary.BigEndian.PutUint16(buf[headerOffset+3:headerOffset+5], uint16(len(cellBytes)))
	binary.BigEndian.PutUint16(buf[headerOffset+5:headerOffset+7], uint16(contentEnd))
	buf[headerOffset+7] = 0
	if kind.isInterior() {
		binary.BigEndian.PutUint32(buf[headerOffset+8:headerOffset+12], rightmost)
	}

	for i, p := range pointers {
		off := ptrStart + i*2
		binary.BigEndian.PutUint16(buf[off:off+2], p)
	}

	return buf
}

// buildDatabaseFile concatenates 1-indexed pages into a full file image.
func buildDatabaseFile(pages map[uint64][]byte) []byte {
	var maxPage uint64
	for pn := range pages {
		if pn > maxPage {
			maxPage = pn
		}
	}
	pageSize := len(pages[1])
	out := make([]byte, int(maxPage)*pageSize)
	for pn, data := range pages {
		copy(out[(pn-1)*uint64(pageSize):], data)
	}
	return out
}

// schemaRow builds the five-column sqlite_schema record for one catalogue
// entry.
func schemaRow(stype, name, tableName string, rootpage uint64, sql string) []Value {
	return []Value{
		TextValue(stype),
		TextValue(name),
		TextValue(tableName),
		IntegerValue(int64(rootpage)),
		TextValue(sql),
	}
}
