package format

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestNextHBIN(t *testing.T) {
	buf := make([]byte, HeaderSize+HBINAlignment*2)
	off := HeaderSize
	copy(buf[off:], HBINSignature)
	binary.LittleEndian.PutUint32(buf[off+HBINFileOffsetField:], 0)
	binary.LittleEndian.PutUint32(buf[off+HBINSizeOffset:], HBINAlignment)

	h, next, err := NextHBIN(buf, off, 0)
	if err != nil {
		t.Fatalf("NextHBIN: %v", err)
	}
	if h.FileOffset != 0 || h.Size != HBINAlignment {
		t.Fatalf("unexpected HBIN: %+v", h)
	}
	if next != off+HBINAlignment {
		t.Fatalf("next offset mismatch: %d", next)
	}
}

func TestNextHBINMisaligned(t *testing.T) {
	buf := make([]byte, HeaderSize+HBINAlignment)
	off := HeaderSize
	copy(buf[off:], HBINSignature)
	// Recorded offset claims 0x2000 but the walker is at 0.
	binary.LittleEndian.PutUint32(buf[off+HBINFileOffsetField:], 0x2000)
	binary.LittleEndian.PutUint32(buf[off+HBINSizeOffset:], HBINAlignment)

	if _, _, err := NextHBIN(buf, off, 0); !errors.Is(err, ErrMisaligned) {
		t.Fatalf("expected ErrMisaligned, got %v", err)
	}

	// A negative cursor disables the check.
	if _, _, err := NextHBIN(buf, off, -1); err != nil {
		t.Fatalf("cursor -1 should skip alignment check: %v", err)
	}
}

func TestNextHBINErrors(t *testing.T) {
	buf := make([]byte, HeaderSize+HBINHeaderSize)
	if _, _, err := NextHBIN(buf, HeaderSize, 0); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected signature error, got %v", err)
	}
	copy(buf[HeaderSize:], HBINSignature)
	binary.LittleEndian.PutUint32(buf[HeaderSize+HBINSizeOffset:], 123) // not aligned
	if _, _, err := NextHBIN(buf, HeaderSize, 0); err == nil {
		t.Fatalf("expected size error")
	}
	binary.LittleEndian.PutUint32(buf[HeaderSize+HBINSizeOffset:], HBINAlignment*4)
	if _, _, err := NextHBIN(buf, HeaderSize, 0); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncation when size overruns buffer, got %v", err)
	}
}
