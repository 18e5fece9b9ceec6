package format

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/hivetap/hivetap/internal/buf"
)

// ErrLegacyLog marks a transaction log in the pre-Vista dirty-vector format
// ("DIRT"). Those logs carry no per-record checksums and are reported to the
// caller rather than replayed.
var ErrLegacyLog = errors.New("format: legacy dirty-vector log")

// LogHeader is the 512-byte header of a transaction log file. StartSequence
// names the hive secondary sequence the log extends; a log only applies when
// that matches the working image. EndSequence is the sequence reached after
// full application.
type LogHeader struct {
	StartSequence uint32
	EndSequence   uint32
	PageCount     uint32
	Size          uint32
}

// ParseLogHeader validates the log signature and extracts the header fields.
func ParseLogHeader(b []byte) (LogHeader, error) {
	if len(b) < LogHeaderSize {
		return LogHeader{}, fmt.Errorf("log header: %w", ErrTruncated)
	}
	switch {
	case bytes.Equal(b[:len(LogSignature)], LogSignature):
	case bytes.Equal(b[:len(DirtVectorSignature)], DirtVectorSignature):
		return LogHeader{}, fmt.Errorf("log header: %w", ErrLegacyLog)
	default:
		return LogHeader{}, fmt.Errorf("log header: %w", ErrSignatureMismatch)
	}
	h := LogHeader{
		StartSequence: buf.U32LE(b[LogStartSeqOffset:]),
		EndSequence:   buf.U32LE(b[LogEndSeqOffset:]),
		PageCount:     buf.U32LE(b[LogPageCountOffset:]),
		Size:          buf.U32LE(b[LogSizeOffset:]),
	}
	if h.Size != 0 && int(h.Size) > len(b) {
		return LogHeader{}, fmt.Errorf("log header: declared size %d exceeds file (%d): %w",
			h.Size, len(b), ErrTruncated)
	}
	if h.EndSequence < h.StartSequence {
		return LogHeader{}, fmt.Errorf("log header: sequence runs backwards (%d -> %d)",
			h.StartSequence, h.EndSequence)
	}
	return h, nil
}

// DirtyPage is one checksummed write record in a transaction log: a byte
// range of the hive file plus the payload that replaces it.
type DirtyPage struct {
	HiveOffset uint32
	Size       uint32
	Checksum   uint32
	Data       []byte
}

// NextDirtyPage decodes the record at off and returns it together with the
// offset of the following record. Records are packed back to back after the
// log header.
func NextDirtyPage(b []byte, off int) (DirtyPage, int, error) {
	hdr, ok := buf.Slice(b, off, LogRecordHeaderSize)
	if !ok {
		return DirtyPage{}, 0, fmt.Errorf("dirty page at %d: %w", off, ErrTruncated)
	}
	size := buf.U32LE(hdr[LogRecordSizeField:])
	if size == 0 || size > MaxPageExtension {
		return DirtyPage{}, 0, fmt.Errorf("dirty page at %d: size %d: %w", off, size, ErrSanityLimit)
	}
	data, ok := buf.Slice(b, off+LogRecordHeaderSize, int(size))
	if !ok {
		return DirtyPage{}, 0, fmt.Errorf("dirty page at %d: payload: %w", off, ErrTruncated)
	}
	return DirtyPage{
		HiveOffset: buf.U32LE(hdr[LogRecordOffField:]),
		Size:       size,
		Checksum:   buf.U32LE(hdr[LogRecordSumField:]),
		Data:       data,
	}, off + LogRecordHeaderSize + int(size), nil
}

// PageChecksum computes the dirty page checksum: XOR of the payload read as
// little-endian dwords, with a short tail zero padded.
func PageChecksum(data []byte) uint32 {
	var sum uint32
	i := 0
	for ; i+4 <= len(data); i += 4 {
		sum ^= buf.U32LE(data[i:])
	}
	if i < len(data) {
		var tail [4]byte
		copy(tail[:], data[i:])
		sum ^= buf.U32LE(tail[:])
	}
	return sum
}

// VerifyChecksum recomputes the payload checksum and compares it to the
// stored one.
func (p DirtyPage) VerifyChecksum() error {
	if got := PageChecksum(p.Data); got != p.Checksum {
		return fmt.Errorf("dirty page at hive offset %#x: stored 0x%08x, computed 0x%08x: %w",
			p.HiveOffset, p.Checksum, got, ErrChecksum)
	}
	return nil
}
