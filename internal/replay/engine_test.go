package replay

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hivetap/hivetap/internal/format"
	"github.com/hivetap/hivetap/pkg/types"
)

// baseImage builds a minimal hive: a valid base block at the given sequence
// pair plus one empty bin so replayed pages have somewhere to land.
func baseImage(t *testing.T, primary, secondary uint32) []byte {
	t.Helper()
	b := make([]byte, format.HeaderSize+format.HBINAlignment)
	copy(b, format.REGFSignature)
	binary.LittleEndian.PutUint32(b[format.REGFPrimarySeqOffset:], primary)
	binary.LittleEndian.PutUint32(b[format.REGFSecondarySeqOffset:], secondary)
	binary.LittleEndian.PutUint32(b[format.REGFMajorVersionOffset:], 1)
	binary.LittleEndian.PutUint32(b[format.REGFMinorVersionOffset:], 5)
	binary.LittleEndian.PutUint32(b[format.REGFTypeOffset:], format.FileTypePrimary)
	binary.LittleEndian.PutUint32(b[format.REGFRootCellOffset:], 0x20)
	binary.LittleEndian.PutUint32(b[format.REGFDataSizeOffset:], format.HBINAlignment)
	if err := format.UpdateHeaderChecksum(b); err != nil {
		t.Fatalf("UpdateHeaderChecksum: %v", err)
	}
	copy(b[format.HeaderSize:], format.HBINSignature)
	binary.LittleEndian.PutUint32(b[format.HeaderSize+format.HBINFileOffsetField:], 0)
	binary.LittleEndian.PutUint32(b[format.HeaderSize+format.HBINSizeOffset:], format.HBINAlignment)
	return b
}

type page struct {
	hiveOffset uint32
	data       []byte
	badSum     bool
}

func logImage(t *testing.T, start, end uint32, pages ...page) []byte {
	t.Helper()
	size := format.LogHeaderSize
	for _, p := range pages {
		size += format.LogRecordHeaderSize + len(p.data)
	}
	b := make([]byte, size)
	copy(b, format.LogSignature)
	binary.LittleEndian.PutUint32(b[format.LogStartSeqOffset:], start)
	binary.LittleEndian.PutUint32(b[format.LogEndSeqOffset:], end)
	binary.LittleEndian.PutUint32(b[format.LogPageCountOffset:], uint32(len(pages)))
	binary.LittleEndian.PutUint32(b[format.LogSizeOffset:], uint32(size))
	off := format.LogHeaderSize
	for _, p := range pages {
		sum := format.PageChecksum(p.data)
		if p.badSum {
			sum ^= 0xFFFF
		}
		binary.LittleEndian.PutUint32(b[off+format.LogRecordOffField:], p.hiveOffset)
		binary.LittleEndian.PutUint32(b[off+format.LogRecordSizeField:], uint32(len(p.data)))
		binary.LittleEndian.PutUint32(b[off+format.LogRecordSumField:], sum)
		copy(b[off+format.LogRecordHeaderSize:], p.data)
		off += format.LogRecordHeaderSize + len(p.data)
	}
	return b
}

func TestApplyChainedLogs(t *testing.T) {
	// Dirty hive at 5/3; LOG1 advances 3->4, LOG2 4->5.
	base := baseImage(t, 5, 3)
	payload1 := bytes.Repeat([]byte{0x11}, 64)
	payload2 := bytes.Repeat([]byte{0x22}, 32)
	log1 := logImage(t, 3, 4, page{hiveOffset: format.HeaderSize + 0x40, data: payload1})
	log2 := logImage(t, 4, 5, page{hiveOffset: format.HeaderSize + 0x80, data: payload2})

	image, report, err := New(Options{}).Apply(base, log1, log2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Logs[0].State != types.LogApplied || report.Logs[1].State != types.LogApplied {
		t.Fatalf("states = %v, %v", report.Logs[0].State, report.Logs[1].State)
	}
	if report.PagesApplied != 2 {
		t.Fatalf("PagesApplied = %d", report.PagesApplied)
	}
	if report.FinalPrimary != 5 || report.FinalSecondary != 5 {
		t.Fatalf("final sequence %d/%d, want 5/5", report.FinalPrimary, report.FinalSecondary)
	}
	if !report.ChecksumRewritten {
		t.Fatalf("expected checksum rewrite")
	}
	if !bytes.Equal(image[format.HeaderSize+0x40:format.HeaderSize+0x40+64], payload1) {
		t.Fatalf("first page not applied")
	}
	if !bytes.Equal(image[format.HeaderSize+0x80:format.HeaderSize+0x80+32], payload2) {
		t.Fatalf("second page not applied")
	}

	// The rewritten header must carry matching sequences and a valid checksum.
	head, err := format.ParseHeader(image)
	if err != nil {
		t.Fatalf("ParseHeader on merged image: %v", err)
	}
	if head.PrimarySequence != 5 || head.SecondarySequence != 5 {
		t.Fatalf("merged sequences %d/%d", head.PrimarySequence, head.SecondarySequence)
	}
	if err := format.VerifyHeaderChecksum(image); err != nil {
		t.Fatalf("merged checksum: %v", err)
	}

	// The input image is untouched.
	if binary.LittleEndian.Uint32(base[format.REGFSecondarySeqOffset:]) != 3 {
		t.Fatalf("base image mutated")
	}
}

func TestApplyStaleSecondLog(t *testing.T) {
	base := baseImage(t, 4, 3)
	log1 := logImage(t, 3, 4, page{hiveOffset: format.HeaderSize, data: []byte{1, 2, 3, 4}})
	log2 := logImage(t, 9, 10, page{hiveOffset: format.HeaderSize, data: []byte{5, 6, 7, 8}})

	_, report, err := New(Options{}).Apply(base, log1, log2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Logs[0].State != types.LogApplied {
		t.Fatalf("LOG1 state = %v", report.Logs[0].State)
	}
	if report.Logs[1].State != types.LogSkipped {
		t.Fatalf("LOG2 state = %v", report.Logs[1].State)
	}
	if report.Logs[1].Reason == "" {
		t.Fatalf("skip without reason")
	}
	if !errors.Is(report.Logs[1].Err, types.ErrStaleLog) {
		t.Fatalf("LOG2 err = %v, want ErrStaleLog", report.Logs[1].Err)
	}
	if report.FinalPrimary != 4 || report.FinalSecondary != 4 {
		t.Fatalf("final sequence %d/%d, want 4/4", report.FinalPrimary, report.FinalSecondary)
	}
}

func TestApplyNoLogs(t *testing.T) {
	base := baseImage(t, 3, 3)
	image, report, err := New(Options{}).Apply(base, nil, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Logs[0].State != types.LogUnopened || report.Logs[1].State != types.LogUnopened {
		t.Fatalf("states = %v, %v", report.Logs[0].State, report.Logs[1].State)
	}
	if report.PagesApplied != 0 || report.ChecksumRewritten {
		t.Fatalf("unexpected modification: %+v", report)
	}
	if !bytes.Equal(image, base) {
		t.Fatalf("image should be byte-identical without logs")
	}
}

func TestApplyBadPageChecksum(t *testing.T) {
	base := baseImage(t, 5, 3)
	log1 := logImage(t, 3, 4,
		page{hiveOffset: format.HeaderSize, data: []byte{1, 2, 3, 4}},
		page{hiveOffset: format.HeaderSize + 8, data: []byte{5, 6, 7, 8}, badSum: true},
	)
	log2 := logImage(t, 4, 5, page{hiveOffset: format.HeaderSize, data: []byte{9, 9, 9, 9}})

	image, report, err := New(Options{}).Apply(base, log1, log2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Logs[0].State != types.LogPartiallyApplied {
		t.Fatalf("LOG1 state = %v", report.Logs[0].State)
	}
	if report.Logs[0].PagesApplied != 1 {
		t.Fatalf("LOG1 pages = %d, want 1", report.Logs[0].PagesApplied)
	}
	if !errors.Is(report.Logs[0].Err, types.ErrLogChecksum) {
		t.Fatalf("LOG1 err = %v, want ErrLogChecksum", report.Logs[0].Err)
	}
	// A partial LOG1 never advances the sequence, so LOG2 is stale.
	if report.Logs[1].State != types.LogSkipped {
		t.Fatalf("LOG2 state = %v", report.Logs[1].State)
	}
	if !bytes.Equal(image[format.HeaderSize:format.HeaderSize+4], []byte{1, 2, 3, 4}) {
		t.Fatalf("sound prefix of LOG1 should still be applied")
	}
}

func TestApplyZeroPageLog(t *testing.T) {
	// A log may record a sequence transition with no dirty pages. The header
	// still moves to the log's ending sequence.
	base := baseImage(t, 4, 3)
	log1 := logImage(t, 3, 4)

	image, report, err := New(Options{}).Apply(base, log1)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Logs[0].State != types.LogApplied {
		t.Fatalf("state = %v", report.Logs[0].State)
	}
	if report.PagesApplied != 0 || report.Applied() {
		t.Fatalf("no pages should have landed")
	}
	if report.FinalPrimary != 4 || report.FinalSecondary != 4 {
		t.Fatalf("final sequence %d/%d, want 4/4", report.FinalPrimary, report.FinalSecondary)
	}
	if !report.ChecksumRewritten {
		t.Fatalf("expected checksum rewrite")
	}
	head, err := format.ParseHeader(image)
	if err != nil {
		t.Fatalf("ParseHeader on merged image: %v", err)
	}
	if head.PrimarySequence != 4 || head.SecondarySequence != 4 {
		t.Fatalf("merged sequences %d/%d", head.PrimarySequence, head.SecondarySequence)
	}
	if err := format.VerifyHeaderChecksum(image); err != nil {
		t.Fatalf("merged checksum: %v", err)
	}
}

func TestApplyLegacyDirtLog(t *testing.T) {
	base := baseImage(t, 3, 3)
	legacy := make([]byte, format.LogHeaderSize)
	copy(legacy, format.DirtVectorSignature)

	_, report, err := New(Options{}).Apply(base, legacy)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Logs[0].State != types.LogSkipped {
		t.Fatalf("state = %v", report.Logs[0].State)
	}
	if report.Logs[0].Reason != "legacy dirty-vector format" {
		t.Fatalf("reason = %q", report.Logs[0].Reason)
	}
}

func TestApplyPageGrowsImage(t *testing.T) {
	base := baseImage(t, 4, 3)
	grow := uint32(len(base)) // page lands exactly at the current end
	log1 := logImage(t, 3, 4, page{hiveOffset: grow, data: bytes.Repeat([]byte{0xCC}, 0x100)})

	image, report, err := New(Options{}).Apply(base, log1)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Logs[0].State != types.LogApplied {
		t.Fatalf("state = %v (%s)", report.Logs[0].State, report.Logs[0].Reason)
	}
	if len(image) != len(base)+0x100 {
		t.Fatalf("image length = %d, want %d", len(image), len(base)+0x100)
	}
	if !bytes.Equal(image[grow:], bytes.Repeat([]byte{0xCC}, 0x100)) {
		t.Fatalf("extension payload missing")
	}
}

func TestApplyPageBeyondHiveLimit(t *testing.T) {
	base := baseImage(t, 4, 3)
	log1 := logImage(t, 3, 4, page{hiveOffset: format.MaxHiveSize - 2, data: []byte{1, 2, 3, 4}})

	_, report, err := New(Options{}).Apply(base, log1)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Logs[0].State != types.LogPartiallyApplied {
		t.Fatalf("state = %v", report.Logs[0].State)
	}
	if report.Logs[0].PagesApplied != 0 {
		t.Fatalf("no page should have applied")
	}
}

func TestApplyIdempotent(t *testing.T) {
	// Replaying a merged image against the same logs is a no-op: every log
	// is stale relative to the advanced sequence.
	base := baseImage(t, 5, 3)
	log1 := logImage(t, 3, 4, page{hiveOffset: format.HeaderSize, data: []byte{1, 2, 3, 4}})
	log2 := logImage(t, 4, 5, page{hiveOffset: format.HeaderSize + 8, data: []byte{5, 6, 7, 8}})

	engine := New(Options{})
	merged, _, err := engine.Apply(base, log1, log2)
	if err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	again, report, err := engine.Apply(merged, log1, log2)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if report.Logs[0].State != types.LogSkipped || report.Logs[1].State != types.LogSkipped {
		t.Fatalf("states = %v, %v", report.Logs[0].State, report.Logs[1].State)
	}
	if !bytes.Equal(again, merged) {
		t.Fatalf("second replay changed the image")
	}
}

func TestApplyRejectsNonHiveBase(t *testing.T) {
	_, _, err := New(Options{}).Apply(make([]byte, format.HeaderSize))
	if !errors.Is(err, types.ErrNotHive) {
		t.Fatalf("expected ErrNotHive, got %v", err)
	}
}

func TestApplyFiles(t *testing.T) {
	dir := t.TempDir()
	base := baseImage(t, 4, 3)
	log1Path := filepath.Join(dir, "SYSTEM.LOG1")
	payload := []byte{0xAB, 0xCD, 0xEF, 0x01}
	if err := os.WriteFile(log1Path, logImage(t, 3, 4, page{hiveOffset: format.HeaderSize, data: payload}), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	image, report, err := New(Options{}).ApplyFiles(base, log1Path, filepath.Join(dir, "SYSTEM.LOG2"))
	if err != nil {
		t.Fatalf("ApplyFiles: %v", err)
	}
	if report.Logs[0].State != types.LogApplied {
		t.Fatalf("LOG1 state = %v (%s)", report.Logs[0].State, report.Logs[0].Reason)
	}
	if report.Logs[0].Path != log1Path {
		t.Fatalf("LOG1 path = %q", report.Logs[0].Path)
	}
	// The missing LOG2 is reported, not an error.
	if report.Logs[1].State != types.LogUnopened {
		t.Fatalf("LOG2 state = %v", report.Logs[1].State)
	}
	if !bytes.Equal(image[format.HeaderSize:format.HeaderSize+4], payload) {
		t.Fatalf("page not applied")
	}
}
