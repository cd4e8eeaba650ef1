package main

import (
	"encoding/binary"
	"sync"
	"testing"
)

// TestMachineBus_RAM verifies that MachineBus exposes its RAM via GetMemory().
func TestMachineBus_RAM(t *testing.T) {
	bus := NewMachineBus()
	mem := bus.GetMemory()
	if len(mem) != DEFAULT_MEMORY_SIZE {
		t.Fatalf("GetMemory() length %d, expected %d", len(mem), DEFAULT_MEMORY_SIZE)
	}

	bus.Write32(0x1000, 0x12345678)
	got := binary.LittleEndian.Uint32(mem[0x1000:])
	if got != 0x12345678 {
		t.Fatalf("Direct memory read 0x%08X, expected 0x12345678", got)
	}
	if b := bus.Read8(0x1001); b != 0x56 {
		t.Fatalf("Read8(0x1001) = 0x%02X, expected 0x56", b)
	}
}

type recordedWrite struct {
	addr, value uint32
	strobe      uint8
}

func TestMachineBus_IORouting(t *testing.T) {
	bus := NewMachineBus()
	var writes []recordedWrite
	bus.MapIO("dev", 0xB0000000, 0xB00003FF,
		func(addr uint32) uint32 { return addr ^ 0xB0000000 | 0x11223300 },
		func(addr, value uint32, strobe uint8) {
			writes = append(writes, recordedWrite{addr, value, strobe})
		})

	bus.Write32(0xB0000010, 0xCAFEBABE)
	bus.Write8(0xB0000012, 0x5A)

	want := []recordedWrite{
		{0xB0000010, 0xCAFEBABE, STRB_WORD},
		{0xB0000010, 0x005A0000, 0x4},
	}
	if len(writes) != len(want) {
		t.Fatalf("%d writes routed, expected %d", len(writes), len(want))
	}
	for i := range want {
		if writes[i] != want[i] {
			t.Fatalf("write %d = %+v, expected %+v", i, writes[i], want[i])
		}
	}

	if got := bus.Read32(0xB0000020); got != 0x11223320 {
		t.Fatalf("Read32 = 0x%08X, expected 0x11223320", got)
	}
	if got := bus.Read8(0xB0000022); got != 0x22 {
		t.Fatalf("Read8 lane 2 = 0x%02X, expected 0x22", got)
	}
}

func TestMachineBus_RegionSpansPages(t *testing.T) {
	bus := NewMachineBus()
	hits := 0
	bus.MapIO("wide", 0x6000FFF0, 0x6002000F, func(uint32) uint32 { hits++; return 1 }, nil)

	for _, addr := range []uint32{0x6000FFF0, 0x60010000, 0x6002000C} {
		if bus.Read32(addr) != 1 {
			t.Fatalf("Read32(0x%08X) missed the region", addr)
		}
	}
	if hits != 3 {
		t.Fatalf("%d handler calls, expected 3", hits)
	}
	if got := bus.Read32(0x60020010); got != 0 {
		t.Fatalf("Read32 past the region = 0x%X, expected 0", got)
	}
}

func TestMachineBus_UnalignedIOIsDropped(t *testing.T) {
	bus := NewMachineBus()
	called := false
	bus.MapIO("dev", 0xB0000000, 0xB00000FF, nil, func(uint32, uint32, uint8) { called = true })
	bus.Write32(0xB0000002, 1)
	if called {
		t.Fatal("unaligned Write32 reached the device")
	}
}

func TestMachineBus_Reset(t *testing.T) {
	bus := NewMachineBus()
	bus.Write32(0x100, 0xFFFFFFFF)
	bus.Reset()
	if got := bus.Read32(0x100); got != 0 {
		t.Fatalf("Read32 after Reset = 0x%08X, expected 0", got)
	}
}

// TestConcurrentAccess exercises RAM from several goroutines at once.
func TestConcurrentAccess(t *testing.T) {
	bus := NewMachineBus()
	const iterations = 1000
	var wg sync.WaitGroup

	for g := range 4 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			base := uint32(id * 0x10000)
			for i := range iterations {
				bus.Write32(base+uint32(i*4), uint32(i))
			}
		}(g)
	}
	wg.Wait()

	for g := range 4 {
		base := uint32(g * 0x10000)
		if got := bus.Read32(base + 4*(iterations-1)); got != iterations-1 {
			t.Fatalf("goroutine %d: last word 0x%X, expected 0x%X", g, got, iterations-1)
		}
	}
}

// =============================================================================
// Benchmarks for memory bus operations
// =============================================================================

// BenchmarkRead32_NonIO measures read performance for RAM addresses
func BenchmarkRead32_NonIO(b *testing.B) {
	bus := NewMachineBus()
	bus.Write32(0x1000, 0x12345678)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Read32(0x1000)
	}
}

// BenchmarkRead32_IORegion measures read performance for I/O-mapped addresses
func BenchmarkRead32_IORegion(b *testing.B) {
	bus := NewMachineBus()
	bus.MapIO("bench", 0xF0000000, 0xF00000FF, func(addr uint32) uint32 { return 0x42 }, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bus.Read32(0xF0000000)
	}
}

// BenchmarkWrite32_IORegion measures write performance for I/O-mapped addresses
func BenchmarkWrite32_IORegion(b *testing.B) {
	bus := NewMachineBus()
	bus.MapIO("bench", 0xF0000000, 0xF00000FF, nil, func(addr uint32, value uint32, strobe uint8) {})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Write32(0xF0000000, uint32(i))
	}
}
