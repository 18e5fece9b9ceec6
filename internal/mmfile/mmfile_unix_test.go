//go:build unix

package mmfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hive.bin")
	want := []byte{'r', 'e', 'g', 'f', 0x01, 0x00}
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, unmap, err := Map(path)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer func() {
		if err := unmap(); err != nil {
			t.Fatalf("unmap: %v", err)
		}
	}()
	if len(data) != len(want) {
		t.Fatalf("len mismatch: got %d want %d", len(data), len(want))
	}
	for i, b := range want {
		if data[i] != b {
			t.Fatalf("byte %d mismatch: got 0x%x want 0x%x", i, data[i], b)
		}
	}
}

func TestMapEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, unmap, err := Map(path)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty mapping, got %d bytes", len(data))
	}
	if unmap == nil {
		t.Fatalf("expected unmap function")
	}
	if err := unmap(); err != nil {
		t.Fatalf("unmap: %v", err)
	}
}

func TestMapDoubleUnmap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hive.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3, 4}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, unmap, err := Map(path)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if err := unmap(); err != nil {
		t.Fatalf("first unmap: %v", err)
	}
	if err := unmap(); err != nil {
		t.Fatalf("second unmap should be a no-op: %v", err)
	}
}
