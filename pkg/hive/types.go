package hive

import "github.com/hivetap/hivetap/pkg/types"

// Re-export commonly used types from pkg/types so users only need to import
// pkg/hive.

// Core handles.
type (
	NodeID  = types.NodeID
	ValueID = types.ValueID
)

// Metadata types.
type (
	ValueMeta    = types.ValueMeta
	KeyMeta      = types.KeyMeta
	KeyDetail    = types.KeyDetail
	HiveInfo     = types.HiveInfo
	HBinInfo     = types.HBinInfo
	SecurityInfo = types.SecurityInfo
	Diagnostic   = types.Diagnostic
)

// Replay types.
type (
	ReplayReport = types.ReplayReport
	LogReport    = types.LogReport
	LogState     = types.LogState
)

// Replay log states.
const (
	LogUnopened         = types.LogUnopened
	LogValidated        = types.LogValidated
	LogSkipped          = types.LogSkipped
	LogReplaying        = types.LogReplaying
	LogPartiallyApplied = types.LogPartiallyApplied
	LogApplied          = types.LogApplied
)

// Options.
type (
	OpenOptions = types.OpenOptions
	ReadOptions = types.ReadOptions
	Limits      = types.Limits
)

// Limit presets.
var (
	DefaultLimits = types.DefaultLimits
	StrictLimits  = types.StrictLimits
)

// RegType enumerates Windows registry value types.
type RegType = types.RegType

// Registry type constants.
const (
	REG_NONE                       = types.REG_NONE
	REG_SZ                         = types.REG_SZ
	REG_EXPAND_SZ                  = types.REG_EXPAND_SZ
	REG_BINARY                     = types.REG_BINARY
	REG_DWORD                      = types.REG_DWORD
	REG_DWORD_BE                   = types.REG_DWORD_BE
	REG_LINK                       = types.REG_LINK
	REG_MULTI_SZ                   = types.REG_MULTI_SZ
	REG_RESOURCE_LIST              = types.REG_RESOURCE_LIST
	REG_FULL_RESOURCE_DESCRIPTOR   = types.REG_FULL_RESOURCE_DESCRIPTOR
	REG_RESOURCE_REQUIREMENTS_LIST = types.REG_RESOURCE_REQUIREMENTS_LIST
	REG_QWORD                      = types.REG_QWORD
)

// Interface re-exports for advanced users.
type (
	Reader  = types.Reader
	Scanner = types.Scanner
)

// Error types.
type (
	Error   = types.Error
	ErrKind = types.ErrKind
)

// Error kind constants.
const (
	ErrKindInvalidFormat        = types.ErrKindInvalidFormat
	ErrKindCorruptHeader        = types.ErrKindCorruptHeader
	ErrKindMisalignedBin        = types.ErrKindMisalignedBin
	ErrKindInvalidCellReference = types.ErrKindInvalidCellReference
	ErrKindInvalidRecord        = types.ErrKindInvalidRecord
	ErrKindTruncatedData        = types.ErrKindTruncatedData
	ErrKindStaleLog             = types.ErrKindStaleLog
	ErrKindLogChecksum          = types.ErrKindLogChecksum
	ErrKindNotFound             = types.ErrKindNotFound
	ErrKindType                 = types.ErrKindType
	ErrKindState                = types.ErrKindState
	ErrKindIO                   = types.ErrKindIO
)

// Common error sentinels.
var (
	ErrNotHive       = types.ErrNotHive
	ErrCorruptHeader = types.ErrCorruptHeader
	ErrMisalignedBin = types.ErrMisalignedBin
	ErrInvalidCell   = types.ErrInvalidCell
	ErrInvalidRecord = types.ErrInvalidRecord
	ErrTruncatedData = types.ErrTruncatedData
	ErrStaleLog      = types.ErrStaleLog
	ErrLogChecksum   = types.ErrLogChecksum
	ErrNotFound      = types.ErrNotFound
	ErrTypeMismatch  = types.ErrTypeMismatch
)
