package format

import "encoding/binary"

// Decoding goes through internal/buf; PutU32 exists for the places that
// mutate an image, the replay sequence and checksum rewrites.

// PutU32 writes v at off in little-endian form.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}
