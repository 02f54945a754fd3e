package liteql

// readVarint decodes a single SQLite-format big-endian variable-length
// integer from data starting at offset. It returns the decoded value and
// the number of bytes consumed.
//
// A varint is one to nine bytes. Each of the first eight bytes
// contributes its low 7 bits to the result, high bit set meaning "more
// bytes follow". If all eight of those bytes have the high bit set, a
// ninth byte contributes all 8 of its bits instead of 7.
func readVarint(data []byte, offset int) (value uint64, n int, err error) {
	var result uint64
	for i := 0; i < 8; i++ {
		if offset+i >= len(data) {
			return 0, 0, wrapErr("read_varint", ErrMalformedVarint, map[string]any{
				"offset": offset + i,
				"length": len(data),
			})
		}
		b := data[offset+i]
		result = (result << 7) | uint64(b&0x7f)
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
	}
	// Ninth byte: all 8 bits contribute, no continuation bit.
	if offset+8 >= len(data) {
		return 0, 0, wrapErr("read_varint", ErrMalformedVarint, map[string]any{
			"offset": offset + 8,
			"length": len(data),
		})
	}
	result = (result << 8) | uint64(data[offset+8])
	return result, 9, nil
}

// putVarint encodes n in SQLite varint format, appending to dst and
// returning the result. It is used only by tests to build fixtures and to
// exercise the decode round trip.
func putVarint(dst []byte, n uint64) []byte {
	if n <= 0x7f {
		return append(dst, byte(n))
	}

	// Determine how many of the low-order 7-bit groups are needed. A
	// value needing more than 56 bits requires the 9-byte form, where the
	// final byte carries a full 8 bits instead of 7.
	var groups []byte
	v := n
	for v > 0 {
		groups = append(groups, byte(v&0x7f))
		v >>= 7
	}

	if len(groups) >= 9 {
		// 9-byte form: first 8 bytes carry the high 56 bits of n, 7 bits
		// each (high bit set as continuation), the 9th carries the low
		// 8 bits of n verbatim.
		out := make([]byte, 9)
		for i := 0; i < 8; i++ {
			shift := uint(8 + 7*(7-i))
			out[i] = byte((n>>shift)&0x7f) | 0x80
		}
		out[8] = byte(n)
		return append(dst, out...)
	}

	out := make([]byte, len(groups))
	for i := range groups {
		// groups is little-endian (least significant group first); the
		// wire format is big-endian with continuation bits on every
		// byte but the last.
		b := groups[len(groups)-1-i]
		if i != len(groups)-1 {
			b |= 0x80
		}
		out[i] = b
	}
	return append(dst, out...)
}
