package format

import (
	"bytes"
	"fmt"

	"github.com/hivetap/hivetap/internal/buf"
)

// SKRecord exposes a security descriptor cell. The descriptor itself is
// SECURITY_DESCRIPTOR_RELATIVE data which forensic consumers usually copy
// verbatim, so it is surfaced raw without ACL parsing.
//
//	Offset  Size  Description
//	0x00    2     's' 'k'
//	0x04    4     Flink - forward link in the hive's descriptor list
//	0x08    4     Blink - backward link
//	0x0C    4     Reference count (key nodes sharing this descriptor)
//	0x10    4     Descriptor length in bytes
//	0x14    ...   Descriptor bytes, inline
type SKRecord struct {
	Flink          uint32
	Blink          uint32
	ReferenceCount uint32
	Descriptor     []byte
}

// DecodeSK decodes a security descriptor cell payload.
func DecodeSK(b []byte) (SKRecord, error) {
	if len(b) < SKMinSize {
		return SKRecord{}, fmt.Errorf("sk: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:SignatureSize], SKSignature) {
		return SKRecord{}, fmt.Errorf("sk: %w", ErrSignatureMismatch)
	}
	length := int(buf.U32LE(b[SKDescriptorLengthOffset:]))
	desc, ok := buf.Slice(b, SKDescriptorOffset, length)
	if !ok {
		return SKRecord{}, fmt.Errorf("sk descriptor: %w (need %d bytes)", ErrTruncated, length)
	}
	return SKRecord{
		Flink:          buf.U32LE(b[SKFlinkOffset:]),
		Blink:          buf.U32LE(b[SKBlinkOffset:]),
		ReferenceCount: buf.U32LE(b[SKReferenceCountOffset:]),
		Descriptor:     desc,
	}, nil
}
