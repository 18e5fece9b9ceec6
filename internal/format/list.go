package format

import (
	"bytes"
	"fmt"

	"github.com/hivetap/hivetap/internal/buf"
)

// DecodeSubkeyList extracts NK offsets from leaf list records (LI, LF, LH).
// LF/LH entries carry a name hint next to each offset; the hint is advisory
// and skipped here because higher layers compare decoded names.
func DecodeSubkeyList(b []byte, expected uint32) ([]uint32, error) {
	if len(b) < ListHeaderSize {
		return nil, fmt.Errorf("subkey list: %w", ErrTruncated)
	}
	sig := b[:SignatureSize]
	count := uint32(buf.U16LE(b[IdxCountOffset:ListHeaderSize]))
	if expected != 0 && expected < count {
		count = expected
	}
	switch {
	case bytes.Equal(sig, LISignature):
		return decodeOffsetArray(b[ListHeaderSize:], count, LIEntrySize, "li list")
	case bytes.Equal(sig, LFSignature), bytes.Equal(sig, LHSignature):
		return decodeOffsetArray(b[ListHeaderSize:], count, LFEntrySize, "lf list")
	default:
		return nil, fmt.Errorf("subkey list %q: %w", sig, ErrSignatureMismatch)
	}
}

func decodeOffsetArray(b []byte, count uint32, stride int, what string) ([]uint32, error) {
	if _, err := buf.CheckListBounds(len(b), 0, int(count), stride); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", what, ErrTruncated, err)
	}
	out := make([]uint32, count)
	for i := uint32(0); i < count; i++ {
		out[i] = buf.U32LE(b[int(i)*stride:])
	}
	return out, nil
}

// IsRIList reports whether b starts with the RI (index root) tag. RI lists
// appear on keys with large fan-out and hold offsets to LF/LH/LI leaves
// rather than NK cells.
func IsRIList(b []byte) bool {
	return len(b) >= SignatureSize && bytes.Equal(b[:SignatureSize], RISignature)
}

// DecodeRIList decodes an RI record and returns the offsets of its leaf
// lists. The caller fetches and decodes each leaf, recursing if a leaf is
// itself an RI.
func DecodeRIList(b []byte) ([]uint32, error) {
	if len(b) < ListHeaderSize {
		return nil, fmt.Errorf("ri list: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:SignatureSize], RISignature) {
		return nil, fmt.Errorf("ri list: %w", ErrSignatureMismatch)
	}
	count := uint32(buf.U16LE(b[IdxCountOffset:ListHeaderSize]))
	return decodeOffsetArray(b[ListHeaderSize:], count, OffsetFieldSize, "ri list")
}

// DecodeValueList decodes a value list cell: a flat array of VK offsets with
// no header. The count comes from the owning NK record.
func DecodeValueList(b []byte, count uint32) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	return decodeOffsetArray(b, count, OffsetFieldSize, "value list")
}
