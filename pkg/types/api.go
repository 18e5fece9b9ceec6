// Package types defines the public surface shared by the hive reader, the
// log replay engine, and their consumers: typed errors, record handles,
// metadata structs, and the Reader interface.
package types

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	// ErrKindInvalidFormat: the file is not a hive (bad "regf" magic). Fatal
	// to open.
	ErrKindInvalidFormat ErrKind = iota
	// ErrKindCorruptHeader: the base block checksum does not match. Surfaced
	// as a warning unless OpenOptions.StrictChecksum is set.
	ErrKindCorruptHeader
	// ErrKindMisalignedBin: a bin's recorded offset disagrees with its file
	// position. Indexing truncates at that point.
	ErrKindMisalignedBin
	// ErrKindInvalidCellReference: an offset points outside the indexed data
	// area or at a free cell.
	ErrKindInvalidCellReference
	// ErrKindInvalidRecord: a cell payload failed record decoding (bad tag,
	// impossible counts, cycles). Callers may skip the subtree.
	ErrKindInvalidRecord
	// ErrKindTruncatedData: value data shorter than declared. Tolerant mode
	// returns the partial bytes with the condition flagged.
	ErrKindTruncatedData
	// ErrKindStaleLog: a transaction log's starting sequence does not match
	// the working image. The log is skipped.
	ErrKindStaleLog
	// ErrKindLogChecksum: a dirty page record failed its checksum. Replay of
	// that log stops at the record.
	ErrKindLogChecksum
	// ErrKindNotFound: missing key, value, or path.
	ErrKindNotFound
	// ErrKindType: requested decode doesn't match the value's RegType.
	ErrKindType
	// ErrKindState: invalid operation for the current state (e.g. closed).
	ErrKindState
	// ErrKindIO: the underlying file could not be read or mapped.
	ErrKindIO
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindInvalidFormat:
		return "InvalidFormat"
	case ErrKindCorruptHeader:
		return "CorruptHeader"
	case ErrKindMisalignedBin:
		return "MisalignedBin"
	case ErrKindInvalidCellReference:
		return "InvalidCellReference"
	case ErrKindInvalidRecord:
		return "InvalidRecord"
	case ErrKindTruncatedData:
		return "TruncatedData"
	case ErrKindStaleLog:
		return "StaleLog"
	case ErrKindLogChecksum:
		return "LogChecksumMismatch"
	case ErrKindNotFound:
		return "NotFound"
	case ErrKindType:
		return "TypeMismatch"
	case ErrKindState:
		return "State"
	case ErrKindIO:
		return "IO"
	default:
		return fmt.Sprintf("ErrKind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two typed errors by kind, so sentinel comparisons
// work across wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels commonly returned by implementations.
var (
	// ErrNotHive indicates the file lacks a valid "regf" header.
	ErrNotHive = &Error{Kind: ErrKindInvalidFormat, Msg: "not a registry hive (bad regf header)"}
	// ErrCorruptHeader indicates the base block checksum did not verify.
	ErrCorruptHeader = &Error{Kind: ErrKindCorruptHeader, Msg: "base block checksum mismatch"}
	// ErrMisalignedBin indicates a bin out of place in the data area.
	ErrMisalignedBin = &Error{Kind: ErrKindMisalignedBin, Msg: "misaligned hive bin"}
	// ErrInvalidCell indicates a cell reference outside the indexed image.
	ErrInvalidCell = &Error{Kind: ErrKindInvalidCellReference, Msg: "invalid cell reference"}
	// ErrInvalidRecord indicates a cell payload that failed record decoding.
	ErrInvalidRecord = &Error{Kind: ErrKindInvalidRecord, Msg: "invalid record"}
	// ErrTruncatedData indicates value data shorter than declared.
	ErrTruncatedData = &Error{Kind: ErrKindTruncatedData, Msg: "value data truncated"}
	// ErrStaleLog indicates a log whose sequence does not chain to the hive.
	ErrStaleLog = &Error{Kind: ErrKindStaleLog, Msg: "stale transaction log"}
	// ErrLogChecksum indicates a dirty page that failed its checksum.
	ErrLogChecksum = &Error{Kind: ErrKindLogChecksum, Msg: "transaction log checksum mismatch"}
	// ErrNotFound indicates a missing key/value/path.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrTypeMismatch indicates the requested decode doesn't match the value type.
	ErrTypeMismatch = &Error{Kind: ErrKindType, Msg: "registry value has different type"}
)

// -----------------------------------------------------------------------------
// Core Identifiers & Metadata
// -----------------------------------------------------------------------------

// NodeID and ValueID are small, copyable handles referring to NK/VK records.
// They encode data-relative cell offsets into the backing image, which keeps
// traversals allocation-light: the tree is never materialized, only walked.
type (
	NodeID  uint32
	ValueID uint32
)

// RegType enumerates Windows registry value types. The numbers align with
// the Windows definitions.
type RegType uint32

const (
	REG_NONE                       RegType = 0
	REG_SZ                         RegType = 1
	REG_EXPAND_SZ                  RegType = 2
	REG_BINARY                     RegType = 3
	REG_DWORD                      RegType = 4
	REG_DWORD_BE                   RegType = 5
	REG_LINK                       RegType = 6
	REG_MULTI_SZ                   RegType = 7
	REG_RESOURCE_LIST              RegType = 8
	REG_FULL_RESOURCE_DESCRIPTOR   RegType = 9
	REG_RESOURCE_REQUIREMENTS_LIST RegType = 10
	REG_QWORD                      RegType = 11
)

func (t RegType) String() string {
	switch t {
	case REG_NONE:
		return "REG_NONE"
	case REG_SZ:
		return "REG_SZ"
	case REG_EXPAND_SZ:
		return "REG_EXPAND_SZ"
	case REG_BINARY:
		return "REG_BINARY"
	case REG_DWORD:
		return "REG_DWORD"
	case REG_DWORD_BE:
		return "REG_DWORD_BE"
	case REG_LINK:
		return "REG_LINK"
	case REG_MULTI_SZ:
		return "REG_MULTI_SZ"
	case REG_RESOURCE_LIST:
		return "REG_RESOURCE_LIST"
	case REG_FULL_RESOURCE_DESCRIPTOR:
		return "REG_FULL_RESOURCE_DESCRIPTOR"
	case REG_RESOURCE_REQUIREMENTS_LIST:
		return "REG_RESOURCE_REQUIREMENTS_LIST"
	case REG_QWORD:
		return "REG_QWORD"
	default:
		return fmt.Sprintf("UNKNOWN_TYPE_%d", int32(t))
	}
}

// ValueMeta describes a value without forcing data decoding. Filled from the
// VK header only.
type ValueMeta struct {
	Name           string  // value name ("" for the default value)
	Type           RegType // declared registry type
	Size           int     // logical payload size from the VK record
	Inline         bool    // data embedded in the VK offset field
	Truncated      bool    // backing data shorter than Size (Tolerant mode)
	NameCompressed bool    // name stored as Windows-1252 rather than UTF-16LE
}

// KeyMeta exposes cheap NK-level information for listings.
type KeyMeta struct {
	Name           string
	LastWrite      time.Time
	SubkeyN        int
	ValueN         int
	HasSecDesc     bool
	NameCompressed bool
}

// KeyDetail exposes full NK record metadata for forensics.
type KeyDetail struct {
	KeyMeta
	Flags              uint16
	ParentOffset       uint32
	SubkeyListOffset   uint32
	ValueListOffset    uint32
	SecurityOffset     uint32
	ClassNameOffset    uint32
	MaxNameLength      uint32
	MaxClassLength     uint32
	MaxValueNameLength uint32
	MaxValueDataLength uint32
	ClassName          string
}

// SecurityInfo exposes a key's security descriptor cell. Descriptor holds
// raw SECURITY_DESCRIPTOR_RELATIVE bytes.
type SecurityInfo struct {
	ReferenceCount uint32
	Descriptor     []byte
}

// HiveInfo exposes base block metadata.
type HiveInfo struct {
	PrimarySequence   uint32
	SecondarySequence uint32
	LastWrite         time.Time
	MajorVersion      uint32
	MinorVersion      uint32
	Type              uint32 // 0 = primary, 1/2 = log
	RootCellOffset    uint32
	HiveBinsDataSize  uint32
	ClusteringFactor  uint32
	FileName          string // embedded hive path tail, decoded from UTF-16LE
}

// Consistent reports whether the hive was flushed cleanly. When false, the
// image needs log replay to reach its most recent consistent state.
func (h HiveInfo) Consistent() bool {
	return h.PrimarySequence == h.SecondarySequence
}

// HBinInfo describes one hive bin in the indexed data area.
type HBinInfo struct {
	Offset uint32 // data-relative offset
	Size   uint32
}

// Diagnostic records a recoverable condition encountered during open or
// traversal: skipped subtrees, truncated data, stale checksums. Forensic
// consumers need these surfaced, never swallowed.
type Diagnostic struct {
	Kind    ErrKind
	Offset  uint32 // data-relative offset of the affected structure, if known
	Message string
}

// -----------------------------------------------------------------------------
// Open Options & Read Options
// -----------------------------------------------------------------------------

// OpenOptions controls safety/robustness tradeoffs for constructing a Reader.
type OpenOptions struct {
	// ZeroCopy allows returned slices to alias the underlying mapped buffer
	// when safe. Callers must treat them as read-only and not retain them
	// past Close.
	ZeroCopy bool

	// Tolerant enables best-effort traversal on mild inconsistencies:
	// truncated value data comes back partial and flagged instead of
	// failing. Bounds are still enforced.
	Tolerant bool

	// StrictChecksum makes a base block checksum mismatch fatal to open.
	// The default is warn-and-continue, since stale checksums are common in
	// hives captured from live systems.
	StrictChecksum bool

	// MaxCellSize guards against absurd cell sizes. Zero selects a
	// conservative default.
	MaxCellSize int

	// CollectDiagnostics records recoverable conditions during traversal
	// for retrieval via Reader.Diagnostics. Nil-cost when disabled.
	CollectDiagnostics bool

	// Limits bounds counts and sizes during traversal. Zero value selects
	// DefaultLimits.
	Limits Limits
}

// ReadOptions let callers request per-call behavior.
type ReadOptions struct {
	// CopyData forces a heap copy even if ZeroCopy is enabled globally.
	CopyData bool
}

// -----------------------------------------------------------------------------
// Read-Only API
// -----------------------------------------------------------------------------

// Reader is a read-only view over a registry hive. Implementations are safe
// for concurrent use once opened: the backing image is immutable.
type Reader interface {
	// Close releases resources (e.g. unmaps the file). Previously returned
	// zero-copy slices are invalid afterwards.
	Close() error

	// Info returns base block metadata.
	Info() HiveInfo

	// HBins returns the bins indexed at open, in file order. A hive whose
	// bin chain was truncated by corruption reports only the sound prefix.
	HBins() []HBinInfo

	// ReplayReport returns the transaction log replay report when the
	// reader was opened with logs, nil otherwise.
	ReplayReport() *ReplayReport

	// Diagnostics returns conditions recorded during open and traversal.
	// Nil unless OpenOptions.CollectDiagnostics was set.
	Diagnostics() []Diagnostic

	// Root returns the root key node.
	Root() (NodeID, error)

	// StatKey returns cheap NK metadata.
	StatKey(NodeID) (KeyMeta, error)

	// DetailKey returns full NK record metadata.
	DetailKey(NodeID) (KeyDetail, error)

	// KeyName returns just the key name.
	KeyName(NodeID) (string, error)

	// KeyTimestamp returns the key's last-write time without name decoding.
	KeyTimestamp(NodeID) (time.Time, error)

	// KeyClass returns the key's class name, "" when absent.
	KeyClass(NodeID) (string, error)

	// KeySecurity returns the key's security descriptor.
	KeySecurity(NodeID) (SecurityInfo, error)

	// Subkeys lists direct child keys. For very large fan-outs prefer
	// Scanner.
	Subkeys(NodeID) ([]NodeID, error)

	// Values lists value handles for a key.
	Values(NodeID) ([]ValueID, error)

	// Parent returns the parent key. ErrNotFound for the root.
	Parent(NodeID) (NodeID, error)

	// GetChild finds a direct child by name, case-insensitively.
	GetChild(parent NodeID, name string) (NodeID, error)

	// GetValue finds a value by name, case-insensitively. The default value
	// is named "".
	GetValue(node NodeID, name string) (ValueID, error)

	// StatValue returns cheap VK metadata.
	StatValue(ValueID) (ValueMeta, error)

	// ValueName returns the value's name.
	ValueName(ValueID) (string, error)

	// ValueType returns the declared type without name decoding.
	ValueType(ValueID) (RegType, error)

	// ValueBytes returns raw value bytes, resolving inline, single-cell and
	// big-data storage. In Tolerant mode short data comes back partial; use
	// StatValue to observe the Truncated flag.
	ValueBytes(ValueID, ReadOptions) ([]byte, error)

	// Typed decoders:
	ValueString(ValueID, ReadOptions) (string, error)    // REG_SZ / REG_EXPAND_SZ
	ValueStrings(ValueID, ReadOptions) ([]string, error) // REG_MULTI_SZ
	ValueDWORD(ValueID) (uint32, error)                  // REG_DWORD (LE/BE)
	ValueQWORD(ValueID) (uint64, error)                  // REG_QWORD

	// Find resolves a Windows-style path ("HKLM\\Software\\Vendor").
	Find(path string) (NodeID, error)

	// Walk performs pre-order traversal from n. A non-nil callback error
	// aborts the traversal.
	Walk(n NodeID, fn func(NodeID) error) error
}

// -----------------------------------------------------------------------------
// Allocation-Light Iteration (for huge fan-out trees)
// -----------------------------------------------------------------------------

// NodeIter scans subkeys without allocating large slices. Iterators are
// finite and restartable: obtaining a fresh iterator re-decodes the list.
type NodeIter interface {
	Next() bool
	Err() error
	Node() NodeID
}

// ValueIter scans values on demand.
type ValueIter interface {
	Next() bool
	Err() error
	Value() ValueID
}

// Scanner constructs iterators.
type Scanner interface {
	ScanSubkeys(NodeID) (NodeIter, error)
	ScanValues(NodeID) (ValueIter, error)
}
