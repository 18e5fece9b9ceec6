// Package acceptance exercises the public hive API end to end against
// synthetic hive images and transaction logs built in-process.
package acceptance

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hivetap/hivetap/internal/format"
	"github.com/hivetap/hivetap/pkg/hive"
)

// builder assembles a one-bin hive image cell by cell.
type builder struct {
	t    *testing.T
	buf  []byte
	next int
}

func newBuilder(t *testing.T, sequence uint32) *builder {
	t.Helper()
	b := make([]byte, format.HeaderSize+format.HBINAlignment)
	copy(b, format.REGFSignature)
	binary.LittleEndian.PutUint32(b[format.REGFPrimarySeqOffset:], sequence)
	binary.LittleEndian.PutUint32(b[format.REGFSecondarySeqOffset:], sequence)
	binary.LittleEndian.PutUint32(b[format.REGFMajorVersionOffset:], 1)
	binary.LittleEndian.PutUint32(b[format.REGFMinorVersionOffset:], 5)
	binary.LittleEndian.PutUint32(b[format.REGFTypeOffset:], format.FileTypePrimary)
	binary.LittleEndian.PutUint32(b[format.REGFDataSizeOffset:], format.HBINAlignment)
	for i, c := range "SOFTWARE" {
		b[format.REGFFileNameOffset+i*2] = byte(c)
	}
	copy(b[format.HeaderSize:], format.HBINSignature)
	binary.LittleEndian.PutUint32(b[format.HeaderSize+format.HBINFileOffsetField:], 0)
	binary.LittleEndian.PutUint32(b[format.HeaderSize+format.HBINSizeOffset:], format.HBINAlignment)
	return &builder{t: t, buf: b, next: format.HeaderSize + format.HBINHeaderSize}
}

func (b *builder) alloc(payloadLen int) uint32 {
	b.t.Helper()
	size := format.Align8(format.CellHeaderSize + payloadLen)
	require.LessOrEqual(b.t, b.next+size, len(b.buf), "fixture bin overflow")
	off := b.next
	binary.LittleEndian.PutUint32(b.buf[off:], uint32(-size))
	b.next += size
	return uint32(off - format.HeaderSize)
}

func (b *builder) set(off uint32, payload []byte) {
	copy(b.buf[format.HeaderSize+int(off)+format.CellHeaderSize:], payload)
}

func (b *builder) add(payload []byte) uint32 {
	off := b.alloc(len(payload))
	b.set(off, payload)
	return off
}

func (b *builder) finish(root uint32) []byte {
	b.t.Helper()
	binary.LittleEndian.PutUint32(b.buf[format.REGFRootCellOffset:], root)
	require.NoError(b.t, format.UpdateHeaderChecksum(b.buf))
	return b.buf
}

func nkCell(name string, parent, subkeyCount, subkeyList, valueCount, valueList uint32) []byte {
	b := make([]byte, format.NKFixedHeaderSize+len(name))
	copy(b, format.NKSignature)
	binary.LittleEndian.PutUint16(b[format.NKFlagsOffset:], format.NKFlagCompressedName)
	binary.LittleEndian.PutUint64(b[format.NKLastWriteOffset:], 0x01d9000000000000)
	binary.LittleEndian.PutUint32(b[format.NKParentOffset:], parent)
	binary.LittleEndian.PutUint32(b[format.NKSubkeyCountOffset:], subkeyCount)
	binary.LittleEndian.PutUint32(b[format.NKSubkeyListOffset:], subkeyList)
	binary.LittleEndian.PutUint32(b[format.NKValueCountOffset:], valueCount)
	binary.LittleEndian.PutUint32(b[format.NKValueListOffset:], valueList)
	binary.LittleEndian.PutUint32(b[format.NKSecurityOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint32(b[format.NKClassNameOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint16(b[format.NKNameLenOffset:], uint16(len(name)))
	copy(b[format.NKNameOffset:], name)
	return b
}

func vkCell(name string, dataLen, dataOff uint32, typ hive.RegType) []byte {
	b := make([]byte, format.VKFixedHeaderSize+len(name))
	copy(b, format.VKSignature)
	binary.LittleEndian.PutUint16(b[format.VKNameLenOffset:], uint16(len(name)))
	binary.LittleEndian.PutUint32(b[format.VKDataLenOffset:], dataLen)
	binary.LittleEndian.PutUint32(b[format.VKDataOffOffset:], dataOff)
	binary.LittleEndian.PutUint32(b[format.VKTypeOffset:], uint32(typ))
	binary.LittleEndian.PutUint16(b[format.VKFlagsOffset:], format.VKFlagASCIIName)
	copy(b[format.VKNameOffset:], name)
	return b
}

func lfCell(offsets ...uint32) []byte {
	b := make([]byte, format.ListHeaderSize+len(offsets)*format.LFEntrySize)
	copy(b, format.LFSignature)
	binary.LittleEndian.PutUint16(b[format.IdxCountOffset:], uint16(len(offsets)))
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(b[format.ListHeaderSize+i*format.LFEntrySize:], off)
	}
	return b
}

func offsetList(offsets ...uint32) []byte {
	b := make([]byte, len(offsets)*format.OffsetFieldSize)
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(b[i*4:], off)
	}
	return b
}

func utf16z(s string) []byte {
	var b []byte
	for _, r := range s {
		b = append(b, byte(r), byte(r>>8))
	}
	return append(b, 0, 0)
}

// buildHive produces the standard acceptance fixture:
//
//	ROOT
//	└── Services
//	    └── Tcpip  (Start=REG_DWORD 2, ImagePath=REG_SZ, Depends=REG_MULTI_SZ)
func buildHive(t *testing.T, sequence uint32) []byte {
	t.Helper()
	b := newBuilder(t, sequence)
	inv := uint32(format.InvalidOffset)

	rootOff := b.alloc(format.NKFixedHeaderSize + len("ROOT"))
	servicesOff := b.alloc(format.NKFixedHeaderSize + len("Services"))

	startVK := b.add(vkCell("Start", format.VKDataInlineBit|4, 2, hive.REG_DWORD))
	imagePath := utf16z(`\SystemRoot\drivers\tcpip.sys`)
	imageVK := b.add(vkCell("ImagePath", uint32(len(imagePath)), b.add(imagePath), hive.REG_SZ))
	depends := append(utf16z("NetBT"), utf16z("AFD")...)
	depends = append(depends, 0, 0)
	dependsVK := b.add(vkCell("Depends", uint32(len(depends)), b.add(depends), hive.REG_MULTI_SZ))
	tcpipValues := b.add(offsetList(startVK, imageVK, dependsVK))

	tcpipOff := b.add(nkCell("Tcpip", servicesOff, 0, inv, 3, tcpipValues))
	b.set(servicesOff, nkCell("Services", rootOff, 1, b.add(lfCell(tcpipOff)), 0, inv))
	b.set(rootOff, nkCell("ROOT", inv, 1, b.add(lfCell(servicesOff)), 0, inv))

	return b.finish(rootOff)
}

// buildLog packs dirty pages into a transaction log advancing start -> end.
func buildLog(t *testing.T, start, end uint32, pages map[uint32][]byte) []byte {
	t.Helper()
	size := format.LogHeaderSize
	for _, data := range pages {
		size += format.LogRecordHeaderSize + len(data)
	}
	b := make([]byte, size)
	copy(b, format.LogSignature)
	binary.LittleEndian.PutUint32(b[format.LogStartSeqOffset:], start)
	binary.LittleEndian.PutUint32(b[format.LogEndSeqOffset:], end)
	binary.LittleEndian.PutUint32(b[format.LogPageCountOffset:], uint32(len(pages)))
	binary.LittleEndian.PutUint32(b[format.LogSizeOffset:], uint32(size))
	off := format.LogHeaderSize
	for hiveOff, data := range pages {
		binary.LittleEndian.PutUint32(b[off+format.LogRecordOffField:], hiveOff)
		binary.LittleEndian.PutUint32(b[off+format.LogRecordSizeField:], uint32(len(data)))
		binary.LittleEndian.PutUint32(b[off+format.LogRecordSumField:], format.PageChecksum(data))
		copy(b[off+format.LogRecordHeaderSize:], data)
		off += format.LogRecordHeaderSize + len(data)
	}
	return b
}

// writeHive writes the image to a temp file and returns its path.
func writeHive(t *testing.T, image []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "SOFTWARE")
	require.NoError(t, os.WriteFile(path, image, 0o644))
	return path
}
