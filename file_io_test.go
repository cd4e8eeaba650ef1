package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileMemory_LoadChar2Byte(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "rfile.txt")
	content := []byte("Hello, AXI!")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	bus := NewMachineBus()
	mem := NewFileMemory("rfile", SYS_RFILE_RAM_BASE, SYS_RFILE_RAM_SIZE)
	mem.Map(bus)
	if err := mem.Load(path, FORMAT_CHAR2BYTE); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := make([]byte, len(content)+1)
	for i := range got {
		got[i] = bus.Read8(SYS_RFILE_RAM_BASE + uint32(i))
	}
	if !bytes.Equal(got[:len(content)], content) {
		t.Errorf("expected %q, got %q", content, got[:len(content)])
	}
	if got[len(content)] != 0 {
		t.Errorf("byte after contents = 0x%02X, expected NUL", got[len(content)])
	}
	if w := bus.Read32(SYS_RFILE_RAM_BASE); w != 0x6C6C6548 {
		t.Errorf("Read32 = 0x%08X, expected 0x6C6C6548", w)
	}
}

func TestFileMemory_NumbersRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "rwnum.txt")
	out := filepath.Join(tmpDir, "rwnum.out")
	if err := os.WriteFile(in, []byte("1 2 3\n0x10\n4294967295\n"), 0644); err != nil {
		t.Fatal(err)
	}

	bus := NewMachineBus()
	mem := NewFileMemory("rwnum", SYS_RWNUM_RAM_BASE, SYS_RWNUM_RAM_SIZE)
	mem.Map(bus)
	if err := mem.Load(in, FORMAT_STR2UINT); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := bus.Read32(SYS_RWNUM_RAM_BASE + 12); got != 0x10 {
		t.Fatalf("word 3 = 0x%X, expected 0x10", got)
	}

	bus.Write32(SYS_RWNUM_RAM_BASE, 7)
	if err := mem.Store(out, FORMAT_UINT2STR, 5); err != nil {
		t.Fatalf("Store: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if want := "7\n2\n3\n16\n4294967295\n"; string(data) != want {
		t.Errorf("expected %q, got %q", want, data)
	}
}

func TestFileMemory_BadNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rwnum.txt")
	if err := os.WriteFile(path, []byte("12 twelve"), 0644); err != nil {
		t.Fatal(err)
	}
	mem := NewFileMemory("rwnum", SYS_RWNUM_RAM_BASE, SYS_RWNUM_RAM_SIZE)
	if err := mem.Load(path, FORMAT_STR2UINT); !errors.Is(err, ErrFileFormat) {
		t.Fatalf("Load = %v, expected ErrFileFormat", err)
	}
}

func TestFileMemory_StoreByte2Char(t *testing.T) {
	bus := NewMachineBus()
	mem := NewFileMemory("wfile", SYS_WFILE_RAM_BASE, SYS_WFILE_RAM_SIZE)
	mem.Map(bus)
	for i, b := range []byte("done") {
		bus.Write8(SYS_WFILE_RAM_BASE+uint32(i), b)
	}

	out := filepath.Join(t.TempDir(), "wfile.out")
	if err := mem.Store(out, FORMAT_BYTE2CHAR, 0); err != nil {
		t.Fatalf("Store: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "done" {
		t.Errorf("expected %q, got %q", "done", data)
	}
}

func TestFileMemory_MissingFile(t *testing.T) {
	mem := NewFileMemory("rfile", SYS_RFILE_RAM_BASE, SYS_RFILE_RAM_SIZE)
	if err := mem.Load(filepath.Join(t.TempDir(), "nope.txt"), FORMAT_CHAR2BYTE); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load = %v, expected ErrNotExist", err)
	}
}
