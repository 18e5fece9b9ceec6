package format

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func logFixture(start, end uint32, pages ...DirtyPage) []byte {
	size := LogHeaderSize
	for _, p := range pages {
		size += LogRecordHeaderSize + len(p.Data)
	}
	b := make([]byte, size)
	copy(b, LogSignature)
	binary.LittleEndian.PutUint32(b[LogStartSeqOffset:], start)
	binary.LittleEndian.PutUint32(b[LogEndSeqOffset:], end)
	binary.LittleEndian.PutUint32(b[LogPageCountOffset:], uint32(len(pages)))
	binary.LittleEndian.PutUint32(b[LogSizeOffset:], uint32(size))
	off := LogHeaderSize
	for _, p := range pages {
		binary.LittleEndian.PutUint32(b[off+LogRecordOffField:], p.HiveOffset)
		binary.LittleEndian.PutUint32(b[off+LogRecordSizeField:], uint32(len(p.Data)))
		binary.LittleEndian.PutUint32(b[off+LogRecordSumField:], PageChecksum(p.Data))
		copy(b[off+LogRecordHeaderSize:], p.Data)
		off += LogRecordHeaderSize + len(p.Data)
	}
	return b
}

func TestParseLogHeader(t *testing.T) {
	b := logFixture(3, 5)
	h, err := ParseLogHeader(b)
	if err != nil {
		t.Fatalf("ParseLogHeader: %v", err)
	}
	if h.StartSequence != 3 || h.EndSequence != 5 || h.PageCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
	if h.Size != LogHeaderSize {
		t.Fatalf("Size = %d", h.Size)
	}
}

func TestParseLogHeaderErrors(t *testing.T) {
	if _, err := ParseLogHeader(make([]byte, 100)); !errors.Is(err, ErrTruncated) {
		t.Fatalf("short header: %v", err)
	}

	b := logFixture(3, 5)
	copy(b, DirtVectorSignature)
	if _, err := ParseLogHeader(b); !errors.Is(err, ErrLegacyLog) {
		t.Fatalf("dirty vector: %v", err)
	}

	copy(b, []byte("XXXX"))
	if _, err := ParseLogHeader(b); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("bad signature: %v", err)
	}

	b = logFixture(3, 5)
	binary.LittleEndian.PutUint32(b[LogSizeOffset:], uint32(len(b)+100))
	if _, err := ParseLogHeader(b); !errors.Is(err, ErrTruncated) {
		t.Fatalf("declared size past file: %v", err)
	}

	b = logFixture(5, 3)
	if _, err := ParseLogHeader(b); err == nil {
		t.Fatalf("expected rejection of backwards sequence")
	}
}

func TestNextDirtyPage(t *testing.T) {
	p1 := DirtyPage{HiveOffset: 0, Data: bytes.Repeat([]byte{0xAA}, 16)}
	p2 := DirtyPage{HiveOffset: 0x1000, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	b := logFixture(3, 4, p1, p2)

	got1, next, err := NextDirtyPage(b, LogHeaderSize)
	if err != nil {
		t.Fatalf("NextDirtyPage: %v", err)
	}
	if got1.HiveOffset != 0 || got1.Size != 16 || !bytes.Equal(got1.Data, p1.Data) {
		t.Fatalf("first page: %+v", got1)
	}
	if err := got1.VerifyChecksum(); err != nil {
		t.Fatalf("VerifyChecksum: %v", err)
	}

	got2, _, err := NextDirtyPage(b, next)
	if err != nil {
		t.Fatalf("NextDirtyPage second: %v", err)
	}
	if got2.HiveOffset != 0x1000 || !bytes.Equal(got2.Data, p2.Data) {
		t.Fatalf("second page: %+v", got2)
	}
}

func TestNextDirtyPageErrors(t *testing.T) {
	b := logFixture(3, 4, DirtyPage{Data: []byte{1, 2, 3, 4}})

	if _, _, err := NextDirtyPage(b, len(b)-4); !errors.Is(err, ErrTruncated) {
		t.Fatalf("header truncation: %v", err)
	}

	bad := append([]byte(nil), b...)
	binary.LittleEndian.PutUint32(bad[LogHeaderSize+LogRecordSizeField:], 0)
	if _, _, err := NextDirtyPage(bad, LogHeaderSize); !errors.Is(err, ErrSanityLimit) {
		t.Fatalf("zero size: %v", err)
	}

	bad = append([]byte(nil), b...)
	binary.LittleEndian.PutUint32(bad[LogHeaderSize+LogRecordSizeField:], MaxPageExtension+1)
	if _, _, err := NextDirtyPage(bad, LogHeaderSize); !errors.Is(err, ErrSanityLimit) {
		t.Fatalf("oversized page: %v", err)
	}

	bad = append([]byte(nil), b...)
	binary.LittleEndian.PutUint32(bad[LogHeaderSize+LogRecordSizeField:], 100)
	if _, _, err := NextDirtyPage(bad, LogHeaderSize); !errors.Is(err, ErrTruncated) {
		t.Fatalf("payload truncation: %v", err)
	}
}

func TestPageChecksumZeroPaddedTail(t *testing.T) {
	// 6 bytes: one full dword plus a 2-byte tail padded with zeros.
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	want := binary.LittleEndian.Uint32(data) ^ binary.LittleEndian.Uint32([]byte{0x05, 0x06, 0, 0})
	if got := PageChecksum(data); got != want {
		t.Fatalf("PageChecksum = 0x%08x, want 0x%08x", got, want)
	}
}

func TestVerifyChecksumMismatch(t *testing.T) {
	p := DirtyPage{Data: []byte{1, 2, 3, 4}, Checksum: 0xDEADBEEF}
	if err := p.VerifyChecksum(); !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
}
