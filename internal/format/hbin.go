package format

import (
	"bytes"
	"fmt"

	"github.com/hivetap/hivetap/internal/buf"
)

// HBIN describes a hive bin. Each bin begins with a 0x20-byte header:
//
//	Offset  Size  Field
//	0x00    4     'h' 'b' 'i' 'n'
//	0x04    4     Offset of this bin relative to the start of the data area
//	0x08    4     Size of the bin, multiple of 0x1000
//
// Bins tile the data area with no gaps; the recorded offset must match the
// walker's running cursor.
type HBIN struct {
	FileOffset uint32
	Size       uint32
}

// NextHBIN validates the HBIN header located at off within b and returns the
// header along with the offset of the subsequent bin. cursor is the expected
// data-relative offset of this bin; a disagreement is reported as
// ErrMisaligned so callers can truncate indexing instead of aborting.
func NextHBIN(b []byte, off, cursor int) (HBIN, int, error) {
	if off < 0 || off+HBINHeaderSize > len(b) {
		return HBIN{}, 0, fmt.Errorf("hbin: %w", ErrTruncated)
	}
	head := b[off : off+HBINHeaderSize]
	if !bytes.Equal(head[:HBINSignatureSize], HBINSignature) {
		return HBIN{}, 0, fmt.Errorf("hbin: %w", ErrSignatureMismatch)
	}
	fileOff := buf.U32LE(head[HBINFileOffsetField:])
	size := buf.U32LE(head[HBINSizeOffset:])
	if size == 0 || size%HBINAlignment != 0 {
		return HBIN{}, 0, fmt.Errorf("hbin: invalid size %d", size)
	}
	if cursor >= 0 && int(fileOff) != cursor {
		return HBIN{}, 0, fmt.Errorf("hbin at %#x: recorded offset %#x, expected %#x: %w",
			off, fileOff, cursor, ErrMisaligned)
	}
	next := off + int(size)
	if next > len(b) {
		return HBIN{}, 0, fmt.Errorf("hbin: %w", ErrTruncated)
	}
	return HBIN{FileOffset: fileOff, Size: size}, next, nil
}
