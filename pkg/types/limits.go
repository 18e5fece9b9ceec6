package types

// Documented Windows registry bounds. Real hives stay far inside these;
// traversal uses them to refuse structures that could only come from
// corruption or crafted input.
const (
	// WindowsMaxSubkeys is the absolute subkey count under a single key.
	WindowsMaxSubkeys = 65535

	// WindowsMaxValues is the hard limit for values per key.
	WindowsMaxValues = 16384

	// WindowsMaxValueSize is the standard maximum for one value's data (1 MiB).
	WindowsMaxValueSize = 1 << 20

	// WindowsMaxValueSizeRelaxed admits large binary blobs stored via big
	// data chains (1 GiB, the db format's ceiling).
	WindowsMaxValueSizeRelaxed = 1 << 30

	// WindowsMaxKeyNameLen is the key name limit in characters.
	WindowsMaxKeyNameLen = 255

	// WindowsMaxValueNameLen is the value name limit in characters.
	WindowsMaxValueNameLen = 16383

	// MaxTreeDepthDefault bounds recursion during traversal and doubles as
	// the cycle guard's depth limit. Windows has no hard limit; depths past
	// this only occur in crafted hives.
	MaxTreeDepthDefault = 512

	// MaxHiveSizeDefault is the largest image the reader will index (512 MiB,
	// matching the replay engine's growth ceiling).
	MaxHiveSizeDefault = 512 << 20
)

// Limits bounds counts and sizes during traversal to prevent resource
// exhaustion on corrupt or hostile hives.
type Limits struct {
	MaxSubkeys      int
	MaxValues       int
	MaxValueSize    int
	MaxKeyNameLen   int
	MaxValueNameLen int
	MaxTreeDepth    int
	MaxTotalSize    int64
}

// DefaultLimits returns bounds that admit every real-world hive.
func DefaultLimits() Limits {
	return Limits{
		MaxSubkeys:      WindowsMaxSubkeys,
		MaxValues:       WindowsMaxValues,
		MaxValueSize:    WindowsMaxValueSizeRelaxed,
		MaxKeyNameLen:   WindowsMaxKeyNameLen,
		MaxValueNameLen: WindowsMaxValueNameLen,
		MaxTreeDepth:    MaxTreeDepthDefault,
		MaxTotalSize:    MaxHiveSizeDefault,
	}
}

// StrictLimits returns conservative bounds for constrained environments.
func StrictLimits() Limits {
	return Limits{
		MaxSubkeys:      WindowsMaxSubkeys / 2,
		MaxValues:       WindowsMaxValues / 16,
		MaxValueSize:    WindowsMaxValueSize,
		MaxKeyNameLen:   WindowsMaxKeyNameLen,
		MaxValueNameLen: 255,
		MaxTreeDepth:    128,
		MaxTotalSize:    100 << 20,
	}
}

// orDefault fills zero fields from DefaultLimits.
func (l Limits) orDefault() Limits {
	d := DefaultLimits()
	if l.MaxSubkeys <= 0 {
		l.MaxSubkeys = d.MaxSubkeys
	}
	if l.MaxValues <= 0 {
		l.MaxValues = d.MaxValues
	}
	if l.MaxValueSize <= 0 {
		l.MaxValueSize = d.MaxValueSize
	}
	if l.MaxKeyNameLen <= 0 {
		l.MaxKeyNameLen = d.MaxKeyNameLen
	}
	if l.MaxValueNameLen <= 0 {
		l.MaxValueNameLen = d.MaxValueNameLen
	}
	if l.MaxTreeDepth <= 0 {
		l.MaxTreeDepth = d.MaxTreeDepth
	}
	if l.MaxTotalSize <= 0 {
		l.MaxTotalSize = d.MaxTotalSize
	}
	return l
}

// Normalized returns l with zero fields replaced by defaults.
func (l Limits) Normalized() Limits { return l.orDefault() }
