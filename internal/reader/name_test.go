package reader

import (
	"testing"

	"github.com/hivetap/hivetap/internal/format"
)

func TestDecodeKeyName(t *testing.T) {
	// Windows-1252 with a non-ASCII byte (0xE9 = é).
	nk := format.NKRecord{
		Flags:      format.NKFlagCompressedName,
		NameLength: 4,
		NameRaw:    []byte{'c', 'a', 'f', 0xE9},
	}
	name, err := DecodeKeyName(nk)
	if err != nil {
		t.Fatalf("DecodeKeyName: %v", err)
	}
	if name != "café" {
		t.Fatalf("name = %q", name)
	}

	// UTF-16LE.
	nk = format.NKRecord{
		NameLength: 6,
		NameRaw:    []byte{'S', 0, 0xF6, 0, 'B', 0},
	}
	name, err = DecodeKeyName(nk)
	if err != nil {
		t.Fatalf("DecodeKeyName utf16: %v", err)
	}
	if name != "SöB" {
		t.Fatalf("utf16 name = %q", name)
	}

	// Odd-length UTF-16 names are malformed.
	nk = format.NKRecord{NameLength: 3, NameRaw: []byte{'S', 0, 'x'}}
	if _, err := DecodeKeyName(nk); err == nil {
		t.Fatalf("expected odd-length error")
	}

	// Empty names decode to "".
	if name, err := DecodeKeyName(format.NKRecord{}); err != nil || name != "" {
		t.Fatalf("empty name = %q, %v", name, err)
	}
}

func TestDecodeValueName(t *testing.T) {
	vk := format.VKRecord{
		Flags:      format.VKFlagASCIIName,
		NameLength: 5,
		NameRaw:    []byte("Start"),
	}
	name, err := DecodeValueName(vk)
	if err != nil || name != "Start" {
		t.Fatalf("DecodeValueName = %q, %v", name, err)
	}

	// The default value has an empty name.
	if name, err := DecodeValueName(format.VKRecord{}); err != nil || name != "" {
		t.Fatalf("default value name = %q, %v", name, err)
	}
}

func TestDecodeUTF16(t *testing.T) {
	// Terminator is trimmed.
	s, err := DecodeUTF16([]byte{'h', 0, 'i', 0, 0, 0})
	if err != nil || s != "hi" {
		t.Fatalf("DecodeUTF16 = %q, %v", s, err)
	}
	// Unterminated strings are accepted as-is.
	s, err = DecodeUTF16([]byte{'h', 0, 'i', 0})
	if err != nil || s != "hi" {
		t.Fatalf("unterminated = %q, %v", s, err)
	}
	if _, err := DecodeUTF16([]byte{'h', 0, 'i'}); err == nil {
		t.Fatalf("expected odd-length error")
	}
	if s, err := DecodeUTF16(nil); err != nil || s != "" {
		t.Fatalf("empty = %q, %v", s, err)
	}
}

func TestDecodeMultiString(t *testing.T) {
	data := []byte{'a', 0, 0, 0, 'b', 0, 'c', 0, 0, 0, 0, 0}
	list, err := DecodeMultiString(data)
	if err != nil {
		t.Fatalf("DecodeMultiString: %v", err)
	}
	if len(list) != 2 || list[0] != "a" || list[1] != "bc" {
		t.Fatalf("list = %v", list)
	}

	if _, err := DecodeMultiString([]byte{'a', 0, 'b', 0}); err == nil {
		t.Fatalf("expected missing-terminator error")
	}
	if _, err := DecodeMultiString([]byte{'a', 0, 0}); err == nil {
		t.Fatalf("expected odd-length error")
	}
}

func TestDecodeUTF16LESurrogates(t *testing.T) {
	// U+1F600 encoded as the surrogate pair D83D DE00.
	got := decodeUTF16LE([]byte{0x3D, 0xD8, 0x00, 0xDE})
	if got != "\U0001F600" {
		t.Fatalf("surrogate decode = %q", got)
	}
	// A lone high surrogate becomes the replacement character.
	got = decodeUTF16LE([]byte{0x3D, 0xD8})
	if got != "�" {
		t.Fatalf("lone surrogate = %q", got)
	}
}
