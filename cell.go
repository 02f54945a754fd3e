package liteql

import (
	"encoding/binary"
	"sync"
)

// Cell is one entry of a B-tree page. Which fields are meaningful depends
// on Kind:
//
//   - TableLeaf:     RowID, Payload (a Record)
//   - TableInterior: LeftChildPage, RowID
//   - IndexLeaf:     Payload (a Record)
//   - IndexInterior: LeftChildPage, Payload (a Record)
type Cell struct {
	Kind          PageKind
	LeftChildPage uint32
	RowID         uint64
	Payload       Record
}

// parseCell decodes a single cell at offset within a page's buffer,
// according to the page's kind.
func parseCell(kind PageKind, data []byte, offset int) (Cell, error) {
	switch kind {
	case PageTableLeaf:
		size, n, err := readVarint(data, offset)
		if err != nil {
			return Cell{}, wrapErr("parse_cell_payload_size", err, nil)
		}
		offset += n
		rowID, n, err := readVarint(data, offset)
		if err != nil {
			return Cell{}, wrapErr("parse_cell_rowid", err, nil)
		}
		offset += n
		payload, err := slicePayload(data, offset, size)
		if err != nil {
			return Cell{}, err
		}
		rec, err := decodeRecord(payload)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Kind: kind, RowID: rowID, Payload: rec}, nil

	case PageTableInterior:
		if offset+4 > len(data) {
			return Cell{}, wrapErr("parse_cell_child_page", ErrMalformedBtreeHeader, nil)
		}
		child := binary.BigEndian.Uint32(data[offset : offset+4])
		offset += 4
		rowID, _, err := readVarint(data, offset)
		if err != nil {
			return Cell{}, wrapErr("parse_cell_rowid", err, nil)
		}
		return Cell{Kind: kind, LeftChildPage: child, RowID: rowID}, nil

	case PageIndexLeaf:
		size, n, err := readVarint(data, offset)
		if err != nil {
			return Cell{}, wrapErr("parse_cell_payload_size", err, nil)
		}
		offset += n
		payload, err := slicePayload(data, offset, size)
		if err != nil {
			return Cell{}, err
		}
		rec, err := decodeRecord(payload)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Kind: kind, Payload: rec}, nil

	case PageIndexInterior:
		if offset+4 > len(data) {
			return Cell{}, wrapErr("parse_cell_child_page", ErrMalformedBtreeHeader, nil)
		}
		child := binary.BigEndian.Uint32(data[offset : offset+4])
		offset += 4
		size, n, err := readVarint(data, offset)
		if err != nil {
			return Cell{}, wrapErr("parse_cell_payload_size", err, nil)
		}
		offset += n
		payload, err := slicePayload(data, offset, size)
		if err != nil {
			return Cell{}, err
		}
		rec, err := decodeRecord(payload)
		if err != nil {
			return Cell{}, err
		}
		return Cell{Kind: kind, LeftChildPage: child, Payload: rec}, nil
	}
	return Cell{}, wrapErr("parse_cell", &UnknownPageKindError{Kind: byte(kind)}, nil)
}

func slicePayload(data []byte, offset int, size uint64) ([]byte, error) {
	if offset < 0 || uint64(offset)+size > uint64(len(data)) {
		return nil, wrapErr("slice_payload", ErrMalformedRecord, map[string]any{
			"offset": offset,
			"size":   size,
			"length": len(data),
		})
	}
	return data[offset : uint64(offset)+size], nil
}

// row builds the ordered Value sequence for a decoded cell, applying the
// row-id aliasing invariant: a TableLeaf cell whose first value is Null
// has that value replaced by Integer(row_id).
func (c Cell) row() []Value {
	values := append([]Value(nil), c.Payload.Values...)
	if c.Kind == PageTableLeaf && len(values) > 0 && values[0].Kind == KindNull {
		values[0] = IntegerValue(int64(c.RowID))
	}
	return values
}

// cells returns every cell of a page, in cell-pointer-array order. When
// p.maxConcurrency > 1, the already-read page bytes are decoded by a
// bounded pool of goroutines rather than one at a time; the file itself
// is never touched here, only bytes already resident in p.Data.
func (p *Page) cells() ([]Cell, error) {
	count := int(p.Header.CellCount)
	if p.maxConcurrency <= 1 || count <= 1 {
		return p.cellsSequential(count)
	}
	return p.cellsConcurrent(count)
}

func (p *Page) cellsSequential(count int) ([]Cell, error) {
	out := make([]Cell, 0, count)
	for i := 0; i < count; i++ {
		offset, err := p.cellOffset(i)
		if err != nil {
			return nil, err
		}
		cell, err := parseCell(p.Header.Kind, p.Data, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, cell)
	}
	return out, nil
}

func (p *Page) cellsConcurrent(count int) ([]Cell, error) {
	out := make([]Cell, count)
	errs := make([]error, count)

	sem := make(chan struct{}, p.maxConcurrency)
	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			offset, err := p.cellOffset(i)
			if err != nil {
				errs[i] = err
				return
			}
			cell, err := parseCell(p.Header.Kind, p.Data, offset)
			if err != nil {
				errs[i] = err
				return
			}
			out[i] = cell
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
