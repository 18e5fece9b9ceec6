package format

import (
	"encoding/binary"
	"fmt"
)

// Sanity limits applied while decoding records. These are far beyond anything
// Windows produces; exceeding them means corruption or a crafted hive, and
// failing early keeps downstream allocations bounded.
const (
	MaxSubkeyCount  = 1 << 24  // 16M subkeys per key
	MaxValueCount   = 1 << 24  // 16M values per key
	MaxNameLen      = 1 << 16  // 64 KiB of raw name bytes
	MaxClassLen     = 1 << 16  // 64 KiB of class bytes
	MaxValueDataLen = 1 << 30  // 1 GiB, the db format's ceiling
)

// CheckedReadU16 reads a little-endian uint16 at off, failing on short buffers.
func CheckedReadU16(b []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(b) {
		return 0, fmt.Errorf("read u16 at %d: %w (len %d)", off, ErrTruncated, len(b))
	}
	return binary.LittleEndian.Uint16(b[off:]), nil
}

// CheckedReadU32 reads a little-endian uint32 at off, failing on short buffers.
func CheckedReadU32(b []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(b) {
		return 0, fmt.Errorf("read u32 at %d: %w (len %d)", off, ErrTruncated, len(b))
	}
	return binary.LittleEndian.Uint32(b[off:]), nil
}

// CheckedReadU64 reads a little-endian uint64 at off, failing on short buffers.
func CheckedReadU64(b []byte, off int) (uint64, error) {
	if off < 0 || off+8 > len(b) {
		return 0, fmt.Errorf("read u64 at %d: %w (len %d)", off, ErrTruncated, len(b))
	}
	return binary.LittleEndian.Uint64(b[off:]), nil
}
