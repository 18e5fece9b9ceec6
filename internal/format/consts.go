// Package format houses low-level decoders for the Windows Registry hive
// binary format and its transaction logs. Decoders are pure functions over
// byte slices; higher-level packages own offset resolution and traversal.
package format

var (
	// REGFSignature is the four-byte signature at the start of every hive file.
	REGFSignature = []byte{'r', 'e', 'g', 'f'}

	// HBINSignature is the four-byte signature at the beginning of each hive bin.
	HBINSignature = []byte{'h', 'b', 'i', 'n'}

	// NKSignature identifies an NK (key node) cell payload.
	NKSignature = []byte{'n', 'k'}

	// VKSignature identifies a VK (value key) cell payload.
	VKSignature = []byte{'v', 'k'}

	// LFSignature, LHSignature, and LISignature identify subkey list variants.
	// LF/LH carry name hints alongside each offset, LI is offsets only.
	LFSignature = []byte{'l', 'f'}
	LHSignature = []byte{'l', 'h'}
	LISignature = []byte{'l', 'i'}

	// RISignature identifies an RI (index root) list pointing at LF/LH/LI leaves.
	RISignature = []byte{'r', 'i'}

	// SKSignature identifies a security descriptor (SK) cell.
	SKSignature = []byte{'s', 'k'}

	// DBSignature identifies a big data (DB) record for large registry values.
	DBSignature = []byte{'d', 'b'}

	// LogSignature is the signature of a transaction log entry stream ("HvLE").
	LogSignature = []byte{'H', 'v', 'L', 'E'}

	// DirtVectorSignature marks the legacy dirty-vector log format. Logs in
	// this format are detected and reported, not replayed.
	DirtVectorSignature = []byte{'D', 'I', 'R', 'T'}
)

const (
	// HeaderSize is the size of the REGF base block in bytes.
	HeaderSize = 4096

	// HBINHeaderSize is the size of the HBIN header in bytes.
	HBINHeaderSize = 0x20

	// CellHeaderSize is the number of bytes used by the size header preceding
	// every allocation (free or in-use) within an HBIN.
	CellHeaderSize = 4

	// HiveDataBase is where the hive data starts (first HBIN).
	HiveDataBase = 0x1000

	// HBINAlignment is the required alignment of hive bins.
	HBINAlignment = 0x1000

	// CellAlignment is the required alignment of cells within HBINs.
	CellAlignment = 8

	// CellAlignmentMask is used for rounding to 8-byte boundaries.
	CellAlignmentMask = CellAlignment - 1

	// HBINAlignmentMask is used for rounding to 4 KiB boundaries.
	HBINAlignmentMask = HBINAlignment - 1

	// HBIN field offsets.
	HBINSignatureSize   = 4
	HBINFileOffsetField = 0x04 // offset of this bin relative to the data start
	HBINSizeOffset      = 0x08 // total bin size, multiple of 0x1000

	// InvalidOffset marks unused offset fields (no referenced cell).
	InvalidOffset = 0xFFFFFFFF

	// SignatureSize is the tag size for NK/VK/SK/DB/list records.
	SignatureSize = 2

	// UTF16ASCIIThreshold is the first non-ASCII code unit in UTF-16LE.
	UTF16ASCIIThreshold = 0x80
)

// REGF base block field offsets.
const (
	REGFSignatureOffset     = 0x000
	REGFSignatureSize       = 4
	REGFPrimarySeqOffset    = 0x004 // Sequence1 (uint32)
	REGFSecondarySeqOffset  = 0x008 // Sequence2 (uint32)
	REGFTimeStampOffset     = 0x00C // FILETIME (uint64 LE)
	REGFMajorVersionOffset  = 0x014
	REGFMinorVersionOffset  = 0x018
	REGFTypeOffset          = 0x01C // 0 = primary, 1/2 = transaction log
	REGFFormatOffset        = 0x020 // 1 = direct memory load
	REGFRootCellOffset      = 0x024 // cell index relative to 0x1000
	REGFDataSizeOffset      = 0x028 // sum of HBIN sizes
	REGFClusterOffset       = 0x02C
	REGFFileNameOffset      = 0x030 // UTF-16LE, last 32 chars of the hive path
	REGFFileNameSize        = 64
	REGFCheckSumOffset      = 0x1FC // XOR of the first 508 bytes as LE dwords
)

// Header checksum covers the first 508 bytes (0x000..0x1FB), i.e. 127 dwords.
const (
	REGFChecksumRegionLen = 508
	REGFChecksumDwords    = 127
)

// Base block file types.
const (
	FileTypePrimary = 0
	FileTypeLog1    = 1
	FileTypeLog2    = 2
)

// Supported format versions. 1.3 through 1.6 share the cell layout we decode.
const (
	MajorVersionSupported = 1
	MinorVersionMin       = 3
	MinorVersionMax       = 6
)

// NK record field offsets (payload starts at the "nk" tag).
const (
	NKSignatureOffset      = 0x00 // "nk"
	NKFlagsOffset          = 0x02
	NKLastWriteOffset      = 0x04 // FILETIME
	NKAccessBitsOffset     = 0x0C // spare before Win8, ignored
	NKParentOffset         = 0x10
	NKSubkeyCountOffset    = 0x14
	NKVolSubkeyCountOffset = 0x18 // volatile, never persisted, ignored
	NKSubkeyListOffset     = 0x1C
	NKVolSubkeyListOffset  = 0x20 // ignored
	NKValueCountOffset     = 0x24
	NKValueListOffset      = 0x28
	NKSecurityOffset       = 0x2C
	NKClassNameOffset      = 0x30
	NKMaxNameLenOffset     = 0x34
	NKMaxClassLenOffset    = 0x38
	NKMaxValueNameOffset   = 0x3C
	NKMaxValueDataOffset   = 0x40
	NKWorkVarOffset        = 0x44 // scratch, ignored
	NKNameLenOffset        = 0x48 // bytes, not characters
	NKClassLenOffset       = 0x4A
	NKNameOffset           = 0x4C
)

// NK flags.
const (
	NKFlagCompressedName = 0x20 // KEY_COMP_NAME: name stored as 8-bit Windows-1252
)

const (
	NKFixedHeaderSize = NKNameOffset // 0x4C
	NKMinSize         = NKFixedHeaderSize
)

// VK record field offsets.
const (
	VKSignatureOffset = 0x00 // "vk"
	VKNameLenOffset   = 0x02
	VKDataLenOffset   = 0x04 // high bit set => data inline in the offset field
	VKDataOffOffset   = 0x08
	VKTypeOffset      = 0x0C
	VKFlagsOffset     = 0x10
	VKSpareOffset     = 0x12
	VKNameOffset      = 0x14

	VKFlagASCIIName  = 0x0001     // name stored as Windows-1252 rather than UTF-16LE
	VKDataInlineBit  = 0x80000000 // DataLength sign bit is a flag, not magnitude
	VKDataLengthMask = 0x7FFFFFFF

	VKFixedHeaderSize = 0x14
	VKMinSize         = VKFixedHeaderSize
)

// Subkey list header layout, common to LI/LF/LH/RI.
const (
	IdxSignatureOffset = 0x00 // 2 bytes
	IdxCountOffset     = 0x02 // 2 bytes
	IdxListOffset      = 0x04 // start of variable-length array

	ListHeaderSize = IdxListOffset

	// OffsetFieldSize is the size of a cell offset field (uint32).
	OffsetFieldSize = 4

	// LIEntrySize is one uint32 cell index.
	LIEntrySize = 4

	// LFEntrySize covers {offset uint32, hint/hash uint32}. The hint is
	// advisory only; name comparison decides matches.
	LFEntrySize = 8
)

// DB (big data) record layout.
const (
	DBSignatureOffset = 0x00 // "db"
	DBNumBlocksOffset = 0x02 // uint16, valid counts are 2..65535
	DBBlocklistOffset = 0x04 // cell index of the block offset array

	DBHeaderSize = 0x0C
	DBMinSize    = DBHeaderSize

	// DBChunkSize is the data capacity of one big-data block. Values longer
	// than this are split into chunks of exactly this size except the last.
	DBChunkSize = 16344

	// DBMinBlockCount: 0 or 1 blocks means the value should have used inline
	// or direct storage, so such records are structurally invalid.
	DBMinBlockCount = 2
	DBMaxBlockCount = 65535

	// DBBlockPadding is trailing bytes in each block cell that belong to the
	// next cell header and must be trimmed during assembly.
	DBBlockPadding = 4

	// DBSegmentOffsetMask clears the high bit some writers set on block
	// offsets in the blocklist.
	DBSegmentOffsetMask = 0x7FFFFFFF
)

// SK (security descriptor) record layout.
const (
	SKSignatureOffset        = 0x00 // "sk"
	SKReservedOffset         = 0x02
	SKFlinkOffset            = 0x04
	SKBlinkOffset            = 0x08
	SKReferenceCountOffset   = 0x0C
	SKDescriptorLengthOffset = 0x10
	SKDescriptorOffset       = 0x14 // SECURITY_DESCRIPTOR_RELATIVE bytes, inline

	SKHeaderSize = SKDescriptorOffset
	SKMinSize    = SKHeaderSize
)

// Registry value data sizes.
const (
	DWORDSize = 4
	QWORDSize = 8
)

// Transaction log layout. A log file carries a 512-byte header followed by
// checksummed dirty page records.
//
//	Header:
//	0x000   4   'H' 'v' 'L' 'E'
//	0x004   4   Starting sequence (the hive secondary sequence this log extends)
//	0x008   4   Ending sequence after full application
//	0x00C   4   Dirty page record count
//	0x010   4   Total log size in bytes, header included
//
//	Record (packed back to back from 0x200):
//	0x00    4   Hive file offset the payload overwrites
//	0x04    4   Payload size
//	0x08    4   Checksum: XOR of the payload as LE dwords, short tail zero padded
//	0x0C    n   Payload
const (
	LogHeaderSize = 512

	LogStartSeqOffset  = 0x04
	LogEndSeqOffset    = 0x08
	LogPageCountOffset = 0x0C
	LogSizeOffset      = 0x10

	LogRecordHeaderSize = 12
	LogRecordOffField   = 0x00
	LogRecordSizeField  = 0x04
	LogRecordSumField   = 0x08

	// MaxHiveSize bounds the image a replay may produce.
	MaxHiveSize = 512 << 20

	// MaxPageExtension bounds how far a single dirty page may grow the image.
	MaxPageExtension = 16 << 20
)
