// Package reader implements the concrete types.Reader over a hive image.
// The public pkg/hive wrapper and the CLI obtain readers through Open and
// friends without touching the parsing machinery directly.
package reader

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hivetap/hivetap/internal/format"
	"github.com/hivetap/hivetap/internal/mmfile"
	"github.com/hivetap/hivetap/pkg/types"
)

// Open maps the hive at path and returns an implementation of types.Reader.
func Open(path string, opts types.OpenOptions) (types.Reader, error) {
	data, unmap, err := mmfile.Map(path)
	if err != nil {
		return nil, wrapIOErr(fmt.Errorf("open hive: %w", err))
	}
	r, err := newReader(data, unmap, nil, opts)
	if err != nil {
		if unmap != nil {
			_ = unmap()
		}
		return nil, err
	}
	return r, nil
}

// OpenBytes creates a reader backed by the provided buffer.
func OpenBytes(buf []byte, opts types.OpenOptions) (types.Reader, error) {
	return newReader(buf, nil, nil, opts)
}

// OpenReplayed creates a reader over an image produced by log replay and
// attaches the replay report so it is retrievable from the reader.
func OpenReplayed(buf []byte, report *types.ReplayReport, opts types.OpenOptions) (types.Reader, error) {
	return newReader(buf, nil, report, opts)
}

type reader struct {
	buf       []byte
	unmap     func() error
	opts      types.OpenOptions
	limits    types.Limits
	head      format.Header
	closed    bool
	hbins     []types.HBinInfo // sound prefix of the bin chain, file order
	hbinIndex []hbinIndexEntry // absolute-offset index for cell lookups
	replay    *types.ReplayReport
	diag      *diagCollector // nil unless CollectDiagnostics
}

// hbinIndexEntry locates one bin by absolute file offset.
type hbinIndexEntry struct {
	offset int // absolute offset, base block included
	size   int // total bin size including header
}

func newReader(buf []byte, unmap func() error, report *types.ReplayReport, opts types.OpenOptions) (types.Reader, error) {
	head, err := format.ParseHeader(buf)
	if err != nil {
		if errors.Is(err, format.ErrSignatureMismatch) {
			return nil, types.ErrNotHive
		}
		return nil, &types.Error{Kind: types.ErrKindInvalidFormat, Msg: "bad base block", Err: err}
	}
	if opts.MaxCellSize <= 0 {
		opts.MaxCellSize = 64 << 20
	}
	limits := opts.Limits.Normalized()
	if int64(len(buf)) > limits.MaxTotalSize {
		return nil, &types.Error{
			Kind: types.ErrKindInvalidFormat,
			Msg:  fmt.Sprintf("hive is %d bytes, limit %d", len(buf), limits.MaxTotalSize),
		}
	}
	if !head.VersionSupported() {
		return nil, &types.Error{
			Kind: types.ErrKindInvalidFormat,
			Msg:  fmt.Sprintf("unsupported hive version %d.%d", head.MajorVersion, head.MinorVersion),
		}
	}

	r := &reader{
		buf:    buf,
		unmap:  unmap,
		opts:   opts,
		limits: limits,
		head:   head,
		replay: report,
	}
	if opts.CollectDiagnostics {
		r.diag = &diagCollector{}
	}

	if err := format.VerifyHeaderChecksum(buf); err != nil {
		if opts.StrictChecksum {
			return nil, &types.Error{Kind: types.ErrKindCorruptHeader, Msg: "base block checksum mismatch", Err: err}
		}
		// Stale checksums are routine in hives pulled from live systems.
		r.recordDiag(types.Diagnostic{
			Kind:    types.ErrKindCorruptHeader,
			Message: err.Error(),
		})
	}
	if head.Type != format.FileTypePrimary {
		r.recordDiag(types.Diagnostic{
			Kind:    types.ErrKindInvalidFormat,
			Message: fmt.Sprintf("file type %d is not a primary hive", head.Type),
		})
	}

	if err := r.indexHBINs(); err != nil {
		return nil, err
	}
	return r, nil
}

// indexHBINs walks the bin chain once at open. The chain must tile the data
// area exactly; a bin whose recorded offset disagrees with the walk cursor,
// or that fails to parse past the first bin, truncates the index there so
// traversal only ever touches sound bins.
func (r *reader) indexHBINs() error {
	dataEnd := format.HeaderSize + int(r.head.HiveBinsDataSize)
	if dataEnd > len(r.buf) {
		r.recordDiag(types.Diagnostic{
			Kind:    types.ErrKindTruncatedData,
			Message: fmt.Sprintf("declared data size %d exceeds file, clamping", r.head.HiveBinsDataSize),
		})
		dataEnd = len(r.buf)
	}

	r.hbinIndex = make([]hbinIndexEntry, 0, 4)
	offset := format.HeaderSize
	cursor := 0
	for offset < dataEnd {
		hbin, next, err := format.NextHBIN(r.buf, offset, cursor)
		if err != nil {
			if len(r.hbinIndex) == 0 {
				if errors.Is(err, format.ErrMisaligned) {
					return &types.Error{Kind: types.ErrKindMisalignedBin, Msg: "first hive bin misaligned", Err: err}
				}
				return &types.Error{Kind: types.ErrKindInvalidFormat, Msg: "first hive bin unreadable", Err: err}
			}
			kind := types.ErrKindInvalidFormat
			if errors.Is(err, format.ErrMisaligned) {
				kind = types.ErrKindMisalignedBin
			}
			r.recordDiag(types.Diagnostic{
				Kind:    kind,
				Offset:  uint32(cursor),
				Message: fmt.Sprintf("bin chain truncated: %v", err),
			})
			break
		}
		r.hbins = append(r.hbins, types.HBinInfo{Offset: hbin.FileOffset, Size: hbin.Size})
		r.hbinIndex = append(r.hbinIndex, hbinIndexEntry{offset: offset, size: int(hbin.Size)})
		offset = next
		cursor += int(hbin.Size)
	}
	if len(r.hbinIndex) == 0 {
		return &types.Error{Kind: types.ErrKindInvalidFormat, Msg: "hive has no bins"}
	}
	return nil
}

// Close releases resources (unmaps the buffer if necessary).
func (r *reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.unmap != nil {
		return r.unmap()
	}
	return nil
}

func (r *reader) ensureOpen() error {
	if r.closed {
		return &types.Error{Kind: types.ErrKindState, Msg: "reader is closed"}
	}
	return nil
}

func (r *reader) Info() types.HiveInfo {
	return types.HiveInfo{
		PrimarySequence:   r.head.PrimarySequence,
		SecondarySequence: r.head.SecondarySequence,
		LastWrite:         format.FiletimeToTime(r.head.LastWriteRaw),
		MajorVersion:      r.head.MajorVersion,
		MinorVersion:      r.head.MinorVersion,
		Type:              r.head.Type,
		RootCellOffset:    r.head.RootCellOffset,
		HiveBinsDataSize:  r.head.HiveBinsDataSize,
		ClusteringFactor:  r.head.ClusteringFactor,
		FileName:          decodeEmbeddedFileName(r.head.FileNameRaw),
	}
}

func (r *reader) HBins() []types.HBinInfo {
	out := make([]types.HBinInfo, len(r.hbins))
	copy(out, r.hbins)
	return out
}

func (r *reader) ReplayReport() *types.ReplayReport { return r.replay }

func (r *reader) Root() (types.NodeID, error) {
	if err := r.ensureOpen(); err != nil {
		return 0, err
	}
	id := types.NodeID(r.head.RootCellOffset)
	// The root must resolve to an NK inside the indexed area.
	if _, err := r.nk(id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *reader) StatKey(id types.NodeID) (types.KeyMeta, error) {
	if err := r.ensureOpen(); err != nil {
		return types.KeyMeta{}, err
	}
	nk, err := r.nk(id)
	if err != nil {
		return types.KeyMeta{}, err
	}
	name, err := DecodeKeyName(nk)
	if err != nil {
		return types.KeyMeta{}, wrapFormatErr(err)
	}
	return types.KeyMeta{
		Name:           name,
		LastWrite:      format.FiletimeToTime(nk.LastWriteRaw),
		SubkeyN:        int(nk.SubkeyCount),
		ValueN:         int(nk.ValueCount),
		HasSecDesc:     nk.SecurityOffset != format.InvalidOffset,
		NameCompressed: nk.NameIsCompressed(),
	}, nil
}

func (r *reader) DetailKey(id types.NodeID) (types.KeyDetail, error) {
	if err := r.ensureOpen(); err != nil {
		return types.KeyDetail{}, err
	}
	nk, err := r.nk(id)
	if err != nil {
		return types.KeyDetail{}, err
	}
	name, err := DecodeKeyName(nk)
	if err != nil {
		return types.KeyDetail{}, wrapFormatErr(err)
	}
	className, _ := r.className(nk)

	return types.KeyDetail{
		KeyMeta: types.KeyMeta{
			Name:           name,
			LastWrite:      format.FiletimeToTime(nk.LastWriteRaw),
			SubkeyN:        int(nk.SubkeyCount),
			ValueN:         int(nk.ValueCount),
			HasSecDesc:     nk.SecurityOffset != format.InvalidOffset,
			NameCompressed: nk.NameIsCompressed(),
		},
		Flags:              nk.Flags,
		ParentOffset:       nk.ParentOffset,
		SubkeyListOffset:   nk.SubkeyListOffset,
		ValueListOffset:    nk.ValueListOffset,
		SecurityOffset:     nk.SecurityOffset,
		ClassNameOffset:    nk.ClassNameOffset,
		MaxNameLength:      nk.MaxNameLength,
		MaxClassLength:     nk.MaxClassLength,
		MaxValueNameLength: nk.MaxValueNameLength,
		MaxValueDataLength: nk.MaxValueDataLength,
		ClassName:          className,
	}, nil
}

// KeyName returns just the key name without building the full metadata struct.
func (r *reader) KeyName(id types.NodeID) (string, error) {
	if err := r.ensureOpen(); err != nil {
		return "", err
	}
	nk, err := r.nk(id)
	if err != nil {
		return "", err
	}
	name, err := DecodeKeyName(nk)
	if err != nil {
		return "", wrapFormatErr(err)
	}
	return name, nil
}

// KeyTimestamp returns the key's last-write time without decoding the name.
func (r *reader) KeyTimestamp(id types.NodeID) (time.Time, error) {
	if err := r.ensureOpen(); err != nil {
		return time.Time{}, err
	}
	nk, err := r.nk(id)
	if err != nil {
		return time.Time{}, err
	}
	return format.FiletimeToTime(nk.LastWriteRaw), nil
}

func (r *reader) KeyClass(id types.NodeID) (string, error) {
	if err := r.ensureOpen(); err != nil {
		return "", err
	}
	nk, err := r.nk(id)
	if err != nil {
		return "", err
	}
	return r.className(nk)
}

// className decodes the UTF-16LE class name cell, "" when the key has none.
func (r *reader) className(nk format.NKRecord) (string, error) {
	if nk.ClassLength == 0 || nk.ClassNameOffset == format.InvalidOffset {
		return "", nil
	}
	cell, err := r.cell(nk.ClassNameOffset)
	if err != nil {
		return "", err
	}
	raw := cell.Data
	if len(raw) > int(nk.ClassLength) {
		raw = raw[:nk.ClassLength]
	}
	if len(raw)%2 != 0 {
		return "", &types.Error{Kind: types.ErrKindInvalidRecord, Msg: "class name has odd length"}
	}
	return decodeUTF16LE(raw), nil
}

func (r *reader) KeySecurity(id types.NodeID) (types.SecurityInfo, error) {
	if err := r.ensureOpen(); err != nil {
		return types.SecurityInfo{}, err
	}
	nk, err := r.nk(id)
	if err != nil {
		return types.SecurityInfo{}, err
	}
	if nk.SecurityOffset == format.InvalidOffset {
		return types.SecurityInfo{}, types.ErrNotFound
	}
	cell, err := r.cell(nk.SecurityOffset)
	if err != nil {
		return types.SecurityInfo{}, err
	}
	sk, err := format.DecodeSK(cell.Data)
	if err != nil {
		return types.SecurityInfo{}, wrapFormatErr(err)
	}
	desc := make([]byte, len(sk.Descriptor))
	copy(desc, sk.Descriptor)
	return types.SecurityInfo{
		ReferenceCount: sk.ReferenceCount,
		Descriptor:     desc,
	}, nil
}

func (r *reader) Subkeys(id types.NodeID) ([]types.NodeID, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	nk, err := r.nk(id)
	if err != nil {
		return nil, err
	}
	if nk.SubkeyCount == 0 || nk.SubkeyListOffset == format.InvalidOffset {
		return nil, nil
	}
	list, err := r.subkeyList(nk.SubkeyListOffset, nk.SubkeyCount)
	if err != nil {
		return nil, err
	}
	out := make([]types.NodeID, len(list))
	for i, off := range list {
		out[i] = types.NodeID(off)
	}
	return out, nil
}

func (r *reader) Values(id types.NodeID) ([]types.ValueID, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	nk, err := r.nk(id)
	if err != nil {
		return nil, err
	}
	if nk.ValueCount == 0 || nk.ValueListOffset == format.InvalidOffset {
		return nil, nil
	}
	return r.valueList(nk.ValueListOffset, nk.ValueCount)
}

func (r *reader) Parent(id types.NodeID) (types.NodeID, error) {
	if err := r.ensureOpen(); err != nil {
		return 0, err
	}
	if id == types.NodeID(r.head.RootCellOffset) {
		return 0, types.ErrNotFound
	}
	nk, err := r.nk(id)
	if err != nil {
		return 0, err
	}
	return types.NodeID(nk.ParentOffset), nil
}

func (r *reader) GetChild(parent types.NodeID, name string) (types.NodeID, error) {
	if err := r.ensureOpen(); err != nil {
		return 0, err
	}
	children, err := r.Subkeys(parent)
	if err != nil {
		return 0, err
	}
	for _, child := range children {
		childName, err := r.KeyName(child)
		if err != nil {
			continue // unreadable children don't block the search
		}
		if strings.EqualFold(childName, name) {
			return child, nil
		}
	}
	return 0, types.ErrNotFound
}

func (r *reader) GetValue(node types.NodeID, name string) (types.ValueID, error) {
	if err := r.ensureOpen(); err != nil {
		return 0, err
	}
	values, err := r.Values(node)
	if err != nil {
		return 0, err
	}
	for _, valueID := range values {
		valueName, err := r.ValueName(valueID)
		if err != nil {
			continue
		}
		if strings.EqualFold(valueName, name) {
			return valueID, nil
		}
	}
	return 0, types.ErrNotFound
}

func (r *reader) StatValue(id types.ValueID) (types.ValueMeta, error) {
	if err := r.ensureOpen(); err != nil {
		return types.ValueMeta{}, err
	}
	vk, err := r.vkOnly(uint32(id))
	if err != nil {
		return types.ValueMeta{}, err
	}
	name, err := DecodeValueName(vk)
	if err != nil {
		return types.ValueMeta{}, wrapFormatErr(err)
	}

	size := vk.DeclaredLength()
	inline := vk.DataInline()
	if inline && size > format.OffsetFieldSize {
		size = format.OffsetFieldSize
	}
	return types.ValueMeta{
		Name:           name,
		Type:           types.RegType(vk.Type),
		Size:           size,
		Inline:         inline,
		Truncated:      r.dataTruncated(vk),
		NameCompressed: vk.NameIsASCII(),
	}, nil
}

// dataTruncated reports whether the backing store is shorter than the VK's
// declared length. Big-data chains are checked during assembly, not here.
func (r *reader) dataTruncated(vk format.VKRecord) bool {
	if vk.DataInline() || vk.DeclaredLength() == 0 {
		return false
	}
	cell, err := r.cell(vk.DataOffset)
	if err != nil {
		return true
	}
	if format.IsDBRecord(cell.Data) {
		return false
	}
	return len(cell.Data) < vk.DeclaredLength()
}

// ValueType returns the registry type without name decoding.
func (r *reader) ValueType(id types.ValueID) (types.RegType, error) {
	if err := r.ensureOpen(); err != nil {
		return 0, err
	}
	vk, err := r.vkOnly(uint32(id))
	if err != nil {
		return 0, err
	}
	return types.RegType(vk.Type), nil
}

// ValueName returns the value's name without building full metadata.
func (r *reader) ValueName(id types.ValueID) (string, error) {
	if err := r.ensureOpen(); err != nil {
		return "", err
	}
	vk, err := r.vkOnly(uint32(id))
	if err != nil {
		return "", err
	}
	name, err := DecodeValueName(vk)
	if err != nil {
		return "", wrapFormatErr(err)
	}
	return name, nil
}

func (r *reader) ValueBytes(id types.ValueID, ro types.ReadOptions) ([]byte, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	vk, data, err := r.value(uint32(id))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	if vk.DataInline() || ro.CopyData || !r.opts.ZeroCopy {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	return data, nil
}

func (r *reader) ValueString(id types.ValueID, ro types.ReadOptions) (string, error) {
	if err := r.ensureOpen(); err != nil {
		return "", err
	}
	vk, data, err := r.value(uint32(id))
	if err != nil {
		return "", err
	}
	switch types.RegType(vk.Type) {
	case types.REG_SZ, types.REG_EXPAND_SZ:
		return DecodeUTF16(data)
	default:
		return "", types.ErrTypeMismatch
	}
}

func (r *reader) ValueStrings(id types.ValueID, ro types.ReadOptions) ([]string, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	vk, data, err := r.value(uint32(id))
	if err != nil {
		return nil, err
	}
	if types.RegType(vk.Type) != types.REG_MULTI_SZ {
		return nil, types.ErrTypeMismatch
	}
	return DecodeMultiString(data)
}

func (r *reader) ValueDWORD(id types.ValueID) (uint32, error) {
	if err := r.ensureOpen(); err != nil {
		return 0, err
	}
	vk, data, err := r.value(uint32(id))
	if err != nil {
		return 0, err
	}
	regType := types.RegType(vk.Type)
	if regType != types.REG_DWORD && regType != types.REG_DWORD_BE {
		return 0, types.ErrTypeMismatch
	}
	if len(data) < format.DWORDSize {
		return 0, &types.Error{Kind: types.ErrKindTruncatedData, Msg: "value too short for DWORD"}
	}
	if regType == types.REG_DWORD_BE {
		return uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]), nil
	}
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24, nil
}

func (r *reader) ValueQWORD(id types.ValueID) (uint64, error) {
	if err := r.ensureOpen(); err != nil {
		return 0, err
	}
	vk, data, err := r.value(uint32(id))
	if err != nil {
		return 0, err
	}
	if types.RegType(vk.Type) != types.REG_QWORD {
		return 0, types.ErrTypeMismatch
	}
	if len(data) < format.QWORDSize {
		return 0, &types.Error{Kind: types.ErrKindTruncatedData, Msg: "value too short for QWORD"}
	}
	var v uint64
	for i := format.QWORDSize - 1; i >= 0; i-- {
		v = v<<8 | uint64(data[i])
	}
	return v, nil
}

// Internal helpers ----------------------------------------------------------

func (r *reader) nk(id types.NodeID) (format.NKRecord, error) {
	cell, err := r.cell(uint32(id))
	if err != nil {
		return format.NKRecord{}, err
	}
	nk, err := format.DecodeNK(cell.Data)
	if err != nil {
		return format.NKRecord{}, wrapFormatErr(err)
	}
	return nk, nil
}

func (r *reader) subkeyList(offset uint32, expected uint32) ([]uint32, error) {
	return r.subkeyListDepth(offset, expected, 0)
}

// subkeyListDepth resolves leaf and RI lists. RI nesting is bounded: writers
// emit at most one level, so anything deeper is a cycle.
func (r *reader) subkeyListDepth(offset uint32, expected uint32, depth int) ([]uint32, error) {
	const maxRIDepth = 4
	if depth > maxRIDepth {
		return nil, &types.Error{Kind: types.ErrKindInvalidRecord, Msg: "subkey list nesting exceeds limit"}
	}
	cell, err := r.cell(offset)
	if err != nil {
		return nil, err
	}

	if format.IsRIList(cell.Data) {
		leaves, err := format.DecodeRIList(cell.Data)
		if err != nil {
			return nil, wrapFormatErr(err)
		}
		capacity := len(leaves) * 16
		if expected > 0 && int(expected) < capacity {
			capacity = int(expected)
		}
		result := make([]uint32, 0, capacity)
		for _, leaf := range leaves {
			sub, err := r.subkeyListDepth(leaf, 0, depth+1)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		}
		return result, nil
	}

	list, err := format.DecodeSubkeyList(cell.Data, expected)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	return list, nil
}

func (r *reader) valueList(offset uint32, count uint32) ([]types.ValueID, error) {
	if int(count) > r.limits.MaxValues {
		return nil, &types.Error{
			Kind: types.ErrKindInvalidRecord,
			Msg:  fmt.Sprintf("value count %d exceeds limit %d", count, r.limits.MaxValues),
		}
	}
	cell, err := r.cell(offset)
	if err != nil {
		return nil, err
	}
	list, err := format.DecodeValueList(cell.Data, count)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	out := make([]types.ValueID, len(list))
	for i, off := range list {
		out[i] = types.ValueID(off)
	}
	return out, nil
}

// vkOnly reads just the VK record without touching the data.
func (r *reader) vkOnly(offset uint32) (format.VKRecord, error) {
	cell, err := r.cell(offset)
	if err != nil {
		return format.VKRecord{}, err
	}
	vk, err := format.DecodeVK(cell.Data)
	if err != nil {
		return format.VKRecord{}, wrapFormatErr(err)
	}
	return vk, nil
}

// value resolves a VK's payload across the three storage shapes: inline in
// the offset field, a single data cell, or a db chain for large values.
func (r *reader) value(offset uint32) (format.VKRecord, []byte, error) {
	vk, err := r.vkOnly(offset)
	if err != nil {
		return format.VKRecord{}, nil, err
	}
	length := vk.DeclaredLength()
	if length > r.limits.MaxValueSize {
		return format.VKRecord{}, nil, &types.Error{
			Kind: types.ErrKindInvalidRecord,
			Msg:  fmt.Sprintf("value data length %d exceeds limit %d", length, r.limits.MaxValueSize),
		}
	}
	if vk.DataInline() {
		var field [format.OffsetFieldSize]byte
		field[0] = byte(vk.DataOffset)
		field[1] = byte(vk.DataOffset >> 8)
		field[2] = byte(vk.DataOffset >> 16)
		field[3] = byte(vk.DataOffset >> 24)
		if length > len(field) {
			return format.VKRecord{}, nil, &types.Error{
				Kind: types.ErrKindInvalidRecord,
				Msg:  "inline length exceeds offset field",
			}
		}
		data := make([]byte, length)
		copy(data, field[:length])
		return vk, data, nil
	}
	if length == 0 {
		return vk, nil, nil
	}
	dataCell, err := r.cell(vk.DataOffset)
	if err != nil {
		return format.VKRecord{}, nil, err
	}

	if format.IsDBRecord(dataCell.Data) {
		return r.valueDB(vk, dataCell.Data, length)
	}

	if len(dataCell.Data) < length {
		r.recordDiag(types.Diagnostic{
			Kind:    types.ErrKindTruncatedData,
			Offset:  vk.DataOffset,
			Message: fmt.Sprintf("value data: declared %d bytes, cell holds %d", length, len(dataCell.Data)),
		})
		if !r.opts.Tolerant {
			return format.VKRecord{}, nil, &types.Error{
				Kind: types.ErrKindTruncatedData,
				Msg:  fmt.Sprintf("value data: declared %d bytes, cell holds %d", length, len(dataCell.Data)),
			}
		}
		length = len(dataCell.Data)
	}
	return vk, dataCell.Data[:length], nil
}

// valueDB assembles a big-data value. The db record points at a blocklist of
// cell offsets; each block contributes up to DBChunkSize bytes after its
// trailing padding is trimmed.
func (r *reader) valueDB(vk format.VKRecord, dbData []byte, expectedLen int) (format.VKRecord, []byte, error) {
	db, err := format.DecodeDB(dbData)
	if err != nil {
		return format.VKRecord{}, nil, wrapFormatErr(err)
	}

	blocklistCell, err := r.cell(db.BlocklistOffset)
	if err != nil {
		return format.VKRecord{}, nil, err
	}
	need := int(db.NumBlocks) * format.OffsetFieldSize
	if len(blocklistCell.Data) < need {
		return format.VKRecord{}, nil, &types.Error{
			Kind: types.ErrKindInvalidRecord,
			Msg: fmt.Sprintf("db blocklist: need %d bytes for %d blocks, have %d",
				need, db.NumBlocks, len(blocklistCell.Data)),
		}
	}

	result := make([]byte, expectedLen)
	bytesRead := 0
	for i := 0; i < int(db.NumBlocks); i++ {
		raw := blocklistCell.Data[i*format.OffsetFieldSize:]
		blockOffset := (uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24) &
			format.DBSegmentOffsetMask

		blockCell, err := r.cell(blockOffset)
		if err != nil {
			return format.VKRecord{}, nil, err
		}
		blockData := blockCell.Data
		// The last DBBlockPadding bytes of each block cell belong to the next
		// cell's header and never carry value data.
		if len(blockData) > format.DBBlockPadding {
			blockData = blockData[:len(blockData)-format.DBBlockPadding]
		}
		if remaining := expectedLen - bytesRead; len(blockData) > remaining {
			blockData = blockData[:remaining]
		}
		copy(result[bytesRead:], blockData)
		bytesRead += len(blockData)
		if bytesRead >= expectedLen {
			break
		}
	}

	if bytesRead != expectedLen {
		r.recordDiag(types.Diagnostic{
			Kind:    types.ErrKindTruncatedData,
			Offset:  vk.DataOffset,
			Message: fmt.Sprintf("big data: declared %d bytes, assembled %d", expectedLen, bytesRead),
		})
		if !r.opts.Tolerant {
			return format.VKRecord{}, nil, &types.Error{
				Kind: types.ErrKindTruncatedData,
				Msg:  fmt.Sprintf("big data: declared %d bytes, assembled %d", expectedLen, bytesRead),
			}
		}
		return vk, result[:bytesRead], nil
	}
	return vk, result, nil
}

// cell translates a data-relative offset into a parsed cell. The offset must
// land inside an indexed bin; cells spanning bin boundaries are reassembled
// with the interior bin headers skipped.
func (r *reader) cell(offset uint32) (format.Cell, error) {
	if offset == format.InvalidOffset {
		return format.Cell{}, types.ErrInvalidCell
	}
	abs := format.HeaderSize + int(offset)
	if abs < format.HeaderSize || abs >= len(r.buf) {
		return format.Cell{}, &types.Error{
			Kind: types.ErrKindInvalidCellReference,
			Msg:  fmt.Sprintf("cell offset %#x out of range", offset),
		}
	}

	cellData, err := r.cellBytes(abs)
	if err != nil {
		return format.Cell{}, err
	}
	cell, err := format.ParseCell(cellData)
	if err != nil {
		return format.Cell{}, wrapFormatErr(err)
	}
	if cell.Free {
		return format.Cell{}, &types.Error{
			Kind: types.ErrKindInvalidCellReference,
			Msg:  fmt.Sprintf("cell at %#x is free", offset),
		}
	}
	if cell.Size > r.opts.MaxCellSize {
		return format.Cell{}, &types.Error{
			Kind: types.ErrKindInvalidRecord,
			Msg:  fmt.Sprintf("cell size %d exceeds limit %d", cell.Size, r.opts.MaxCellSize),
		}
	}
	cell.Offset = abs - format.HeaderSize
	return cell, nil
}

// findHBIN locates the indexed bin containing the absolute offset.
func (r *reader) findHBIN(absOffset int) (start, end int, err error) {
	for _, entry := range r.hbinIndex {
		if absOffset >= entry.offset && absOffset < entry.offset+entry.size {
			return entry.offset, entry.offset + entry.size, nil
		}
	}
	return 0, 0, &types.Error{
		Kind: types.ErrKindInvalidCellReference,
		Msg:  fmt.Sprintf("offset %#x not inside any indexed bin", absOffset),
	}
}

// cellBytes returns the raw cell starting at absOffset, copying across bin
// boundaries when the declared size runs past the containing bin.
func (r *reader) cellBytes(absOffset int) ([]byte, error) {
	if absOffset+format.CellHeaderSize > len(r.buf) {
		return nil, &types.Error{Kind: types.ErrKindInvalidCellReference, Msg: "cell header out of bounds"}
	}
	raw := int32(uint32(r.buf[absOffset]) | uint32(r.buf[absOffset+1])<<8 |
		uint32(r.buf[absOffset+2])<<16 | uint32(r.buf[absOffset+3])<<24)
	cellSize := int(raw)
	if raw < 0 {
		cellSize = -cellSize
	}
	if cellSize < format.CellHeaderSize {
		return nil, &types.Error{Kind: types.ErrKindInvalidRecord, Msg: "cell size too small"}
	}
	if cellSize > r.opts.MaxCellSize {
		return nil, &types.Error{
			Kind: types.ErrKindInvalidRecord,
			Msg:  fmt.Sprintf("cell size %d exceeds limit %d", cellSize, r.opts.MaxCellSize),
		}
	}

	_, hbinEnd, err := r.findHBIN(absOffset)
	if err != nil {
		return nil, err
	}
	if absOffset+cellSize <= hbinEnd {
		return r.buf[absOffset : absOffset+cellSize], nil
	}

	// Slow path: reassemble, skipping the header of each interior bin.
	result := make([]byte, cellSize)
	copied := 0
	current := absOffset
	for copied < cellSize {
		_, end, err := r.findHBIN(current)
		if err != nil {
			return nil, err
		}
		toCopy := end - current
		if need := cellSize - copied; toCopy > need {
			toCopy = need
		}
		if toCopy <= 0 || current+toCopy > len(r.buf) {
			return nil, &types.Error{Kind: types.ErrKindInvalidCellReference, Msg: "cell data out of bounds"}
		}
		copy(result[copied:], r.buf[current:current+toCopy])
		copied += toCopy
		current += toCopy
		if copied < cellSize && current >= end {
			current = end + format.HBINHeaderSize
		}
	}
	return result, nil
}

// decodeEmbeddedFileName extracts the UTF-16LE path tail stored in the base
// block, stopping at the first NUL code unit.
func decodeEmbeddedFileName(raw []byte) string {
	end := len(raw)
	for i := 0; i+1 < len(raw); i += 2 {
		if raw[i] == 0 && raw[i+1] == 0 {
			end = i
			break
		}
	}
	return decodeUTF16LE(raw[:end])
}

// Error helpers --------------------------------------------------------------

func wrapIOErr(err error) error {
	return &types.Error{Kind: types.ErrKindIO, Msg: "hive io", Err: err}
}

func wrapFormatErr(err error) error {
	switch {
	case errors.Is(err, format.ErrSignatureMismatch):
		return &types.Error{Kind: types.ErrKindInvalidRecord, Msg: "record signature mismatch", Err: err}
	case errors.Is(err, format.ErrTruncated):
		return &types.Error{Kind: types.ErrKindTruncatedData, Msg: "structure truncated", Err: err}
	case errors.Is(err, format.ErrFreeCell):
		return &types.Error{Kind: types.ErrKindInvalidCellReference, Msg: "cell marked free", Err: err}
	case errors.Is(err, format.ErrSanityLimit):
		return &types.Error{Kind: types.ErrKindInvalidRecord, Msg: "record exceeds sanity limits", Err: err}
	case errors.Is(err, format.ErrMisaligned):
		return &types.Error{Kind: types.ErrKindMisalignedBin, Msg: "misaligned hive bin", Err: err}
	case errors.Is(err, format.ErrChecksum):
		return &types.Error{Kind: types.ErrKindCorruptHeader, Msg: "checksum mismatch", Err: err}
	default:
		return &types.Error{Kind: types.ErrKindInvalidRecord, Msg: err.Error(), Err: err}
	}
}

// Ensure reader implements the desired interfaces.
var (
	_ types.Reader  = (*reader)(nil)
	_ types.Scanner = (*reader)(nil)
)
