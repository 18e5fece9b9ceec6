package format

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestNextCellAllocated(t *testing.T) {
	buf := make([]byte, HeaderSize+HBINAlignment)
	hOff := HeaderSize
	copy(buf[hOff:], HBINSignature)
	binary.LittleEndian.PutUint32(buf[hOff+HBINFileOffsetField:], uint32(hOff))
	binary.LittleEndian.PutUint32(buf[hOff+HBINSizeOffset:], HBINAlignment)

	cellOff := hOff + HBINHeaderSize
	size := 0x30
	binary.LittleEndian.PutUint32(buf[cellOff:], uint32(-size))
	buf[cellOff+4] = 'n'
	buf[cellOff+5] = 'k'

	h := HBIN{FileOffset: uint32(hOff), Size: HBINAlignment}
	cell, next, err := NextCell(buf, h, cellOff)
	if err != nil {
		t.Fatalf("NextCell: %v", err)
	}
	if cell.Free {
		t.Fatalf("expected allocated cell")
	}
	if cell.Size != size || cell.Tag != [2]byte{'n', 'k'} {
		t.Fatalf("unexpected cell: %+v", cell)
	}
	if next != cellOff+size {
		t.Fatalf("next offset mismatch: %d", next)
	}
}

func TestNextCellFree(t *testing.T) {
	buf := make([]byte, HeaderSize+HBINAlignment)
	hOff := HeaderSize
	copy(buf[hOff:], HBINSignature)
	binary.LittleEndian.PutUint32(buf[hOff+HBINFileOffsetField:], uint32(hOff))
	binary.LittleEndian.PutUint32(buf[hOff+HBINSizeOffset:], HBINAlignment)

	cellOff := hOff + HBINHeaderSize
	binary.LittleEndian.PutUint32(buf[cellOff:], 0x20) // positive => free

	h := HBIN{FileOffset: uint32(hOff), Size: HBINAlignment}
	cell, _, err := NextCell(buf, h, cellOff)
	if err != nil {
		t.Fatalf("NextCell: %v", err)
	}
	if !cell.Free {
		t.Fatalf("expected free cell")
	}
}

func TestNextCellOverrunsBin(t *testing.T) {
	buf := make([]byte, HeaderSize+HBINAlignment)
	hOff := HeaderSize
	cellOff := hOff + HBINHeaderSize
	// Declared size walks past the end of the bin.
	size := int32(-(HBINAlignment * 2))
	binary.LittleEndian.PutUint32(buf[cellOff:], uint32(size))

	h := HBIN{FileOffset: uint32(hOff), Size: HBINAlignment}
	if _, _, err := NextCell(buf, h, cellOff); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncation, got %v", err)
	}
}

func TestParseCell(t *testing.T) {
	b := make([]byte, 0x20)
	size := int32(-0x20)
	binary.LittleEndian.PutUint32(b, uint32(size))
	b[4], b[5] = 'v', 'k'
	cell, err := ParseCell(b)
	if err != nil {
		t.Fatalf("ParseCell: %v", err)
	}
	if cell.Free || cell.Size != 0x20 || cell.Tag != [2]byte{'v', 'k'} {
		t.Fatalf("unexpected cell: %+v", cell)
	}
	if len(cell.Data) != 0x20-CellHeaderSize {
		t.Fatalf("payload length = %d", len(cell.Data))
	}

	if _, err := ParseCell(b[:2]); err == nil {
		t.Fatalf("expected truncation for short buffer")
	}
	size = int32(-0x40)
	binary.LittleEndian.PutUint32(b, uint32(size)) // size exceeds buffer
	if _, err := ParseCell(b); err == nil {
		t.Fatalf("expected truncation for oversized cell")
	}
}
