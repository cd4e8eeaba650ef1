// machine_bus.go - System bus of the simulated processor subsystem

/*
License: GPLv3 or later
*/

/*
machine_bus.go - System bus

The processor side of the simulation sees a flat 32-bit little-endian address
space. A block of RAM sits at the bottom of the map; everything else is
memory-mapped I/O registered with MapIO: the AXI window, the interrupt
controller, the debug console and the file-backed memories.

I/O regions are indexed by page (PAGE_MASK/PAGE_SIZE) so a lookup only scans
the few regions that share a page. Handlers see word-aligned addresses and a
byte-lane strobe, the same way the AXI bus presents a write, so byte and word
accesses reach a device without it having to guess the access size.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

const (
	DEFAULT_MEMORY_SIZE = 1024 * 1024
	PAGE_SIZE           = 0x10000
	PAGE_MASK           = 0xFFFF0000

	STRB_WORD = 0xF
)

// ------------------------------------------------------------------------------
// System memory map (processor side)
// ------------------------------------------------------------------------------
const (
	SYS_MEM_BASE = 0x00000000

	SYS_IRQC_BASE = 0x17000000
	SYS_IRQC_SIZE = 0x0000FFFF

	SYS_CONS_BASE = 0x40000000
	SYS_CONS_SIZE = 0x00000FFF

	SYS_RFILE_RAM_BASE = 0xB0000000
	SYS_RFILE_RAM_SIZE = 0x100
	SYS_WFILE_RAM_BASE = 0xB1000000
	SYS_WFILE_RAM_SIZE = 0x100
	SYS_RWNUM_RAM_BASE = 0xB2000000
	SYS_RWNUM_RAM_SIZE = 10

	SYS_AXI_BASE = 0x60000000
	SYS_AXI_SIZE = 0x1FFFFFFF
)

// Bus32 is the processor's view of the bus.
type Bus32 interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, value uint8)
	Read32(addr uint32) uint32
	Write32(addr uint32, value uint32)
	Reset()
}

// IORegion is a memory-mapped device window, both ends inclusive.
type IORegion struct {
	name    string
	start   uint32
	end     uint32
	onRead  func(addr uint32) uint32
	onWrite func(addr uint32, value uint32, strobe uint8)
}

type MachineBus struct {
	memory  []byte
	mapping map[uint32][]IORegion
	regions []IORegion

	// Sealed once the application starts; the mapping is read without locks.
	sealed atomic.Bool
}

func NewMachineBus() *MachineBus {
	return NewMachineBusSize(DEFAULT_MEMORY_SIZE)
}

// NewMachineBusSize allocates size bytes of RAM at SYS_MEM_BASE.
func NewMachineBusSize(size int) *MachineBus {
	return &MachineBus{
		memory:  make([]byte, size),
		mapping: make(map[uint32][]IORegion),
	}
}

func (bus *MachineBus) GetMemory() []byte {
	return bus.memory
}

// SealMappings prevents further MapIO calls.
func (bus *MachineBus) SealMappings() {
	bus.sealed.CompareAndSwap(false, true)
}

// MapIO registers a device over [start, end]. Overlapping an existing region
// or RAM is a programming error.
func (bus *MachineBus) MapIO(name string, start, end uint32, onRead func(addr uint32) uint32, onWrite func(addr uint32, value uint32, strobe uint8)) {
	if bus.sealed.Load() {
		panic(fmt.Sprintf("MapIO called after execution started (mapping %s $%08X-$%08X)", name, start, end))
	}
	if end < start {
		panic(fmt.Sprintf("MapIO %s: end $%08X before start $%08X", name, end, start))
	}
	if uint64(start) < uint64(len(bus.memory)) {
		panic(fmt.Sprintf("MapIO %s: $%08X overlaps RAM", name, start))
	}
	for _, r := range bus.regions {
		if start <= r.end && r.start <= end {
			panic(fmt.Sprintf("MapIO %s: $%08X-$%08X overlaps %s", name, start, end, r.name))
		}
	}
	region := IORegion{
		name:    name,
		start:   start,
		end:     end,
		onRead:  onRead,
		onWrite: onWrite,
	}
	bus.regions = append(bus.regions, region)

	firstPage := start & PAGE_MASK
	lastPage := end & PAGE_MASK
	for page := firstPage; ; page += PAGE_SIZE {
		bus.mapping[page] = append(bus.mapping[page], region)
		if page == lastPage {
			break
		}
	}
}

// Regions lists the mapped devices in registration order.
func (bus *MachineBus) Regions() []IORegion {
	return append([]IORegion(nil), bus.regions...)
}

func (bus *MachineBus) findIORegion(addr uint32) *IORegion {
	if regions, exists := bus.mapping[addr&PAGE_MASK]; exists {
		for i := range regions {
			if addr >= regions[i].start && addr <= regions[i].end {
				return &regions[i]
			}
		}
	}
	return nil
}

func (bus *MachineBus) Write32(addr uint32, value uint32) {
	if uint64(addr)+4 <= uint64(len(bus.memory)) {
		binary.LittleEndian.PutUint32(bus.memory[addr:addr+4], value)
		return
	}
	region := bus.findIORegion(addr)
	if region == nil {
		fmt.Printf("Warning: Write32 to unmapped address 0x%08X\n", addr)
		return
	}
	if addr&3 != 0 {
		fmt.Printf("Warning: unaligned Write32 to %s at 0x%08X\n", region.name, addr)
		return
	}
	if region.onWrite != nil {
		region.onWrite(addr, value, STRB_WORD)
	}
}

func (bus *MachineBus) Read32(addr uint32) uint32 {
	if uint64(addr)+4 <= uint64(len(bus.memory)) {
		return binary.LittleEndian.Uint32(bus.memory[addr : addr+4])
	}
	region := bus.findIORegion(addr)
	if region == nil {
		fmt.Printf("Warning: Read32 from unmapped address 0x%08X\n", addr)
		return 0
	}
	if addr&3 != 0 {
		fmt.Printf("Warning: unaligned Read32 from %s at 0x%08X\n", region.name, addr)
		return 0
	}
	if region.onRead == nil {
		return 0
	}
	return region.onRead(addr)
}

func (bus *MachineBus) Write8(addr uint32, value uint8) {
	if uint64(addr) < uint64(len(bus.memory)) {
		bus.memory[addr] = value
		return
	}
	region := bus.findIORegion(addr)
	if region == nil {
		fmt.Printf("Warning: Write8 to unmapped address 0x%08X\n", addr)
		return
	}
	if region.onWrite != nil {
		lane := addr & 3
		region.onWrite(addr&^3, uint32(value)<<(8*lane), 1<<lane)
	}
}

func (bus *MachineBus) Read8(addr uint32) uint8 {
	if uint64(addr) < uint64(len(bus.memory)) {
		return bus.memory[addr]
	}
	region := bus.findIORegion(addr)
	if region == nil {
		fmt.Printf("Warning: Read8 from unmapped address 0x%08X\n", addr)
		return 0
	}
	if region.onRead == nil {
		return 0
	}
	return uint8(region.onRead(addr&^3) >> (8 * (addr & 3)))
}

// Reset clears RAM. Devices are reset by their owners.
func (bus *MachineBus) Reset() {
	clear(bus.memory)
}
