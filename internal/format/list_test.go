package format

import (
	"encoding/binary"
	"errors"
	"testing"
)

func leafList(sig []byte, stride int, offsets ...uint32) []byte {
	b := make([]byte, ListHeaderSize+len(offsets)*stride)
	copy(b, sig)
	binary.LittleEndian.PutUint16(b[IdxCountOffset:], uint16(len(offsets)))
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(b[ListHeaderSize+i*stride:], off)
	}
	return b
}

func TestDecodeSubkeyListLF(t *testing.T) {
	b := leafList(LFSignature, LFEntrySize, 0x20, 0x80, 0xE0)
	offs, err := DecodeSubkeyList(b, 3)
	if err != nil {
		t.Fatalf("DecodeSubkeyList: %v", err)
	}
	if len(offs) != 3 || offs[0] != 0x20 || offs[2] != 0xE0 {
		t.Fatalf("offsets = %#v", offs)
	}
}

func TestDecodeSubkeyListLI(t *testing.T) {
	b := leafList(LISignature, LIEntrySize, 0x20, 0x80)
	offs, err := DecodeSubkeyList(b, 2)
	if err != nil {
		t.Fatalf("DecodeSubkeyList: %v", err)
	}
	if len(offs) != 2 || offs[1] != 0x80 {
		t.Fatalf("offsets = %#v", offs)
	}
}

func TestDecodeSubkeyListExpectedClamp(t *testing.T) {
	// The NK's subkey count wins when the list claims more entries.
	b := leafList(LHSignature, LFEntrySize, 0x20, 0x80, 0xE0)
	offs, err := DecodeSubkeyList(b, 2)
	if err != nil {
		t.Fatalf("DecodeSubkeyList: %v", err)
	}
	if len(offs) != 2 {
		t.Fatalf("expected clamp to 2 entries, got %d", len(offs))
	}
}

func TestDecodeSubkeyListErrors(t *testing.T) {
	if _, err := DecodeSubkeyList([]byte{'l', 'f'}, 1); !errors.Is(err, ErrTruncated) {
		t.Fatalf("short list: %v", err)
	}
	b := leafList([]byte{'z', 'z'}, LFEntrySize, 0x20)
	if _, err := DecodeSubkeyList(b, 1); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("bad signature: %v", err)
	}
	b = leafList(LFSignature, LFEntrySize, 0x20)
	binary.LittleEndian.PutUint16(b[IdxCountOffset:], 10)
	if _, err := DecodeSubkeyList(b, 0); !errors.Is(err, ErrTruncated) {
		t.Fatalf("count overrun: %v", err)
	}
}

func TestDecodeRIList(t *testing.T) {
	b := leafList(RISignature, OffsetFieldSize, 0x1000, 0x2000)
	if !IsRIList(b) {
		t.Fatalf("IsRIList = false")
	}
	offs, err := DecodeRIList(b)
	if err != nil {
		t.Fatalf("DecodeRIList: %v", err)
	}
	if len(offs) != 2 || offs[0] != 0x1000 || offs[1] != 0x2000 {
		t.Fatalf("offsets = %#v", offs)
	}

	lf := leafList(LFSignature, LFEntrySize, 0x20)
	if IsRIList(lf) {
		t.Fatalf("lf should not classify as ri")
	}
	if _, err := DecodeRIList(lf); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("ri signature check: %v", err)
	}
}

func TestDecodeValueList(t *testing.T) {
	b := make([]byte, 3*OffsetFieldSize)
	binary.LittleEndian.PutUint32(b[0:], 0x20)
	binary.LittleEndian.PutUint32(b[4:], 0x80)
	binary.LittleEndian.PutUint32(b[8:], 0xE0)

	offs, err := DecodeValueList(b, 3)
	if err != nil {
		t.Fatalf("DecodeValueList: %v", err)
	}
	if len(offs) != 3 || offs[1] != 0x80 {
		t.Fatalf("offsets = %#v", offs)
	}

	if offs, err := DecodeValueList(nil, 0); err != nil || offs != nil {
		t.Fatalf("zero count should decode to nil, nil")
	}
	if _, err := DecodeValueList(b, 4); !errors.Is(err, ErrTruncated) {
		t.Fatalf("count overrun: %v", err)
	}
}
