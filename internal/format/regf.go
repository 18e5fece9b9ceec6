package format

import (
	"bytes"
	"fmt"

	"github.com/hivetap/hivetap/internal/buf"
)

// Header captures the subset of the REGF base block required to traverse a
// hive and to reason about its consistency.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x000   4    'r' 'e' 'g' 'f'
//	 0x004   4    Primary sequence number
//	 0x008   4    Secondary sequence number
//	 0x00C   8    Last write timestamp (FILETIME)
//	 0x014   4    Major version
//	 0x018   4    Minor version
//	 0x01C   4    File type (0 = primary, 1/2 = log)
//	 0x020   4    File format (1 = direct memory load)
//	 0x024   4    Offset (relative to first HBIN) of the root cell (NK)
//	 0x028   4    Total size of HBIN data
//	 0x02C   4    Clustering factor
//	 0x030  64    Embedded file name, UTF-16LE
//	 0x1FC   4    Checksum over 0x000..0x1FB
//
// All fields are little-endian.
type Header struct {
	PrimarySequence   uint32
	SecondarySequence uint32
	LastWriteRaw      uint64
	MajorVersion      uint32
	MinorVersion      uint32
	Type              uint32
	Format            uint32
	RootCellOffset    uint32
	HiveBinsDataSize  uint32
	ClusteringFactor  uint32
	FileNameRaw       []byte // UTF-16LE, zero padded
	Checksum          uint32 // stored value at 0x1FC
}

// ParseHeader validates the signature and extracts the base block fields.
// Checksum and version verification are separate so callers can decide the
// failure policy.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("regf header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:REGFSignatureSize], REGFSignature) {
		return Header{}, fmt.Errorf("regf header: %w", ErrSignatureMismatch)
	}
	return Header{
		PrimarySequence:   buf.U32LE(b[REGFPrimarySeqOffset:]),
		SecondarySequence: buf.U32LE(b[REGFSecondarySeqOffset:]),
		LastWriteRaw:      buf.U64LE(b[REGFTimeStampOffset:]),
		MajorVersion:      buf.U32LE(b[REGFMajorVersionOffset:]),
		MinorVersion:      buf.U32LE(b[REGFMinorVersionOffset:]),
		Type:              buf.U32LE(b[REGFTypeOffset:]),
		Format:            buf.U32LE(b[REGFFormatOffset:]),
		RootCellOffset:    buf.U32LE(b[REGFRootCellOffset:]),
		HiveBinsDataSize:  buf.U32LE(b[REGFDataSizeOffset:]),
		ClusteringFactor:  buf.U32LE(b[REGFClusterOffset:]),
		FileNameRaw:       b[REGFFileNameOffset : REGFFileNameOffset+REGFFileNameSize],
		Checksum:          buf.U32LE(b[REGFCheckSumOffset:]),
	}, nil
}

// IsConsistent reports whether the hive was flushed cleanly. Unequal sequence
// numbers mean a write was in flight and logs must be replayed to catch up.
func (h Header) IsConsistent() bool {
	return h.PrimarySequence == h.SecondarySequence
}

// VersionSupported reports whether the format version uses the cell layout we
// decode. Unknown minor versions are a warning upstream, not a hard failure.
func (h Header) VersionSupported() bool {
	return h.MajorVersion == MajorVersionSupported &&
		h.MinorVersion >= MinorVersionMin && h.MinorVersion <= MinorVersionMax
}

// HeaderChecksum computes the base block checksum: XOR of the first 127
// little-endian dwords. Stored values of 0 and 0xFFFFFFFF are reserved, so
// the computed value is nudged the way the kernel does it.
func HeaderChecksum(b []byte) (uint32, error) {
	if len(b) < REGFChecksumRegionLen {
		return 0, fmt.Errorf("regf checksum: %w", ErrTruncated)
	}
	var sum uint32
	for i := 0; i < REGFChecksumDwords; i++ {
		sum ^= buf.U32LE(b[i*4:])
	}
	switch sum {
	case 0:
		sum = 1
	case 0xFFFFFFFF:
		sum = 0xFFFFFFFE
	}
	return sum, nil
}

// VerifyHeaderChecksum recomputes the checksum and compares it against the
// stored value. Real-world hives frequently carry stale checksums, so the
// caller decides whether a mismatch is fatal.
func VerifyHeaderChecksum(b []byte) error {
	want, err := HeaderChecksum(b)
	if err != nil {
		return err
	}
	if got := buf.U32LE(b[REGFCheckSumOffset:]); got != want {
		return fmt.Errorf("regf checksum: stored 0x%08x, computed 0x%08x: %w", got, want, ErrChecksum)
	}
	return nil
}

// UpdateHeaderChecksum recomputes the checksum over b and stores it at 0x1FC.
// Used after log replay mutates the header.
func UpdateHeaderChecksum(b []byte) error {
	sum, err := HeaderChecksum(b)
	if err != nil {
		return err
	}
	if len(b) < REGFCheckSumOffset+4 {
		return fmt.Errorf("regf checksum: %w", ErrTruncated)
	}
	PutU32(b, REGFCheckSumOffset, sum)
	return nil
}
