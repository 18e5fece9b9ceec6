package format

import (
	"bytes"
	"fmt"

	"github.com/hivetap/hivetap/internal/buf"
)

// DBRecord represents a "db" (big data) record used when a value's payload
// exceeds one cell's capacity. The record points at a blocklist cell, which
// holds an ordered array of block cell offsets; concatenating the blocks in
// list order and truncating to the VK's declared length reconstructs the
// value.
//
//	Offset  Size  Field
//	0x00    2     'd' 'b'
//	0x02    2     Number of blocks (valid: 2..65535)
//	0x04    4     Blocklist cell offset
//	0x08    4     Unused
type DBRecord struct {
	NumBlocks       uint16
	BlocklistOffset uint32
}

// DecodeDB decodes a big data record from a cell payload.
func DecodeDB(b []byte) (DBRecord, error) {
	if len(b) < DBMinSize {
		return DBRecord{}, fmt.Errorf("db: %w (need %d bytes, have %d)", ErrTruncated, DBMinSize, len(b))
	}
	if !bytes.Equal(b[:SignatureSize], DBSignature) {
		return DBRecord{}, fmt.Errorf("db: %w", ErrSignatureMismatch)
	}
	numBlocks := buf.U16LE(b[DBNumBlocksOffset:])
	if numBlocks < DBMinBlockCount {
		return DBRecord{}, fmt.Errorf("db: block count %d below minimum %d: %w",
			numBlocks, DBMinBlockCount, ErrSanityLimit)
	}
	return DBRecord{
		NumBlocks:       numBlocks,
		BlocklistOffset: buf.U32LE(b[DBBlocklistOffset:]),
	}, nil
}

// IsDBRecord reports whether the cell payload starts with the "db" tag.
func IsDBRecord(b []byte) bool {
	return len(b) >= SignatureSize && bytes.Equal(b[:SignatureSize], DBSignature)
}
