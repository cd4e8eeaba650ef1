// config.go - Address map and behavioural configuration of the slave

/*
License: GPLv3 or later
*/

package axilite

import (
	"errors"
	"fmt"
	"math/bits"
)

// Default memory map of the peripheral (SYS_AXI_* and the IP port offsets
// used by the embedded application).
const (
	DEFAULT_AXI_BASE     = 0x60000000
	DEFAULT_AXI_SIZE     = 0x1FFFFFFF
	DEFAULT_RFILE_SIZE   = 0x100
	DEFAULT_WFILE_SIZE   = 0x100
	DEFAULT_IPIN_OFFSET  = 0x10000
	DEFAULT_IPOUT_OFFSET = 0x40000
	DEFAULT_RUN_BIT      = 0x80
	DEFAULT_RESET_TICKS  = 2
)

const (
	NUM_REGISTERS = 16
	PROT_WIDTH    = 3
	RESP_WIDTH    = 2

	AXI_RESP_OKAY   = 0 // 0b00
	AXI_RESP_DECERR = 3 // 0b11, defined but never driven

	STRB_ALL  = 0xFF
	STRB_NONE = 0x0
)

// Translation selects how a bus address is turned into a device-local one.
type Translation int

const (
	// TranslateAuto picks XOR when Base >= Size, SUBTRACT otherwise.
	TranslateAuto Translation = iota
	// TranslateXOR clears the base bits with an XOR; only valid when the
	// base has no bits inside the window.
	TranslateXOR
	// TranslateSubtract subtracts the base.
	TranslateSubtract
)

func (t Translation) String() string {
	switch t {
	case TranslateAuto:
		return "auto"
	case TranslateXOR:
		return "xor"
	case TranslateSubtract:
		return "subtract"
	}
	return fmt.Sprintf("Translation(%d)", int(t))
}

// Region is the result of decoding a device-local address.
type Region int

const (
	RegionUnmapped Region = iota
	RegionRegisters
	RegionInput
	RegionOutput
)

func (r Region) String() string {
	switch r {
	case RegionRegisters:
		return "registers"
	case RegionInput:
		return "input"
	case RegionOutput:
		return "output"
	}
	return "unmapped"
}

var ErrInvalidConfig = errors.New("invalid slave configuration")

// Config describes the bus widths, the peripheral's window in the system
// address map and the layout of its local address space.
type Config struct {
	AddrWidth int
	DataWidth int

	Base uint64
	Size uint64

	InOffset  uint64
	InSize    uint64
	OutOffset uint64
	OutSize   uint64

	// RunBit is the register-0 control bit that starts the computation.
	RunBit uint64

	Translation Translation

	// ClearOnReset zeroes the register file and both buffers on reset.
	// When false they keep their contents across a reset.
	ClearOnReset bool

	// ResetTicks is how long the reset generator holds resetn low.
	ResetTicks int

	// Watchdog bounds Simulator.Write/Read/WaitIRQ in ticks; 0 disables it.
	Watchdog uint64
}

func DefaultConfig() Config {
	return Config{
		AddrWidth:    32,
		DataWidth:    32,
		Base:         DEFAULT_AXI_BASE,
		Size:         DEFAULT_AXI_SIZE,
		InOffset:     DEFAULT_IPIN_OFFSET,
		InSize:       DEFAULT_RFILE_SIZE,
		OutOffset:    DEFAULT_IPOUT_OFFSET,
		OutSize:      DEFAULT_WFILE_SIZE,
		RunBit:       DEFAULT_RUN_BIT,
		Translation:  TranslateAuto,
		ClearOnReset: true,
		ResetTicks:   DEFAULT_RESET_TICKS,
		Watchdog:     1 << 20,
	}
}

// WordBytes is the number of byte lanes on the data bus.
func (c Config) WordBytes() uint64 { return uint64(c.DataWidth / 8) }

// StrobeMask is the all-lanes strobe for the configured data width.
func (c Config) StrobeMask() uint64 { return (uint64(1) << c.WordBytes()) - 1 }

func (c Config) dataMask() uint64 {
	if c.DataWidth >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << c.DataWidth) - 1
}

func (c Config) addrMask() uint64 {
	if c.AddrWidth >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << c.AddrWidth) - 1
}

// Policy resolves TranslateAuto against the configured base and size.
func (c Config) Policy() Translation {
	if c.Translation != TranslateAuto {
		return c.Translation
	}
	if c.Base >= c.Size {
		return TranslateXOR
	}
	return TranslateSubtract
}

// Translate converts a raw bus address into a device-local address.
func (c Config) Translate(raw uint64) uint64 {
	if c.Policy() == TranslateXOR {
		return (raw ^ c.Base) & c.addrMask()
	}
	return (raw - c.Base) & c.addrMask()
}

// RegisterSpan is the size in bytes of the register bank.
func (c Config) RegisterSpan() uint64 { return NUM_REGISTERS * c.WordBytes() }

// Decode maps a device-local address onto a region and an element index.
// Every address maps to exactly one region.
func (c Config) Decode(local uint64) (Region, uint64) {
	wb := c.WordBytes()
	switch {
	case local < c.RegisterSpan():
		return RegionRegisters, local / wb
	case local >= c.InOffset && local-c.InOffset < c.InSize*wb:
		return RegionInput, (local - c.InOffset) / wb
	case local >= c.OutOffset && local-c.OutOffset < c.OutSize*wb:
		return RegionOutput, (local - c.OutOffset) / wb
	}
	return RegionUnmapped, 0
}

// Validate checks widths, region overlap and the translation policy.
func (c Config) Validate() error {
	if c.AddrWidth != 32 && c.AddrWidth != 64 {
		return fmt.Errorf("%w: address width %d (want 32 or 64)", ErrInvalidConfig, c.AddrWidth)
	}
	if c.DataWidth != 32 && c.DataWidth != 64 {
		return fmt.Errorf("%w: data width %d (want 32 or 64)", ErrInvalidConfig, c.DataWidth)
	}
	if c.InSize == 0 || c.OutSize == 0 {
		return fmt.Errorf("%w: buffer sizes must be non-zero", ErrInvalidConfig)
	}
	if c.RunBit == 0 || c.RunBit&^c.dataMask() != 0 {
		return fmt.Errorf("%w: run bit 0x%X outside the data bus", ErrInvalidConfig, c.RunBit)
	}
	if c.Base&^c.addrMask() != 0 {
		return fmt.Errorf("%w: base 0x%X wider than the address bus", ErrInvalidConfig, c.Base)
	}
	if c.Translation == TranslateXOR && c.Base < c.Size {
		return fmt.Errorf("%w: xor translation needs base 0x%X >= size 0x%X", ErrInvalidConfig, c.Base, c.Size)
	}
	if c.ResetTicks < 1 {
		return fmt.Errorf("%w: reset must last at least one tick", ErrInvalidConfig)
	}

	wb := c.WordBytes()
	type span struct {
		name       string
		start, end uint64
	}
	inEnd, ok := spanEnd(c.InOffset, c.InSize, wb)
	if !ok {
		return fmt.Errorf("%w: input buffer of %d words at 0x%X overflows the address space", ErrInvalidConfig, c.InSize, c.InOffset)
	}
	outEnd, ok := spanEnd(c.OutOffset, c.OutSize, wb)
	if !ok {
		return fmt.Errorf("%w: output buffer of %d words at 0x%X overflows the address space", ErrInvalidConfig, c.OutSize, c.OutOffset)
	}
	spans := []span{
		{"registers", 0, c.RegisterSpan()},
		{"input buffer", c.InOffset, inEnd},
		{"output buffer", c.OutOffset, outEnd},
	}
	for i, a := range spans {
		if a.start%wb != 0 {
			return fmt.Errorf("%w: %s offset 0x%X not word aligned", ErrInvalidConfig, a.name, a.start)
		}
		if a.end-1 > c.Size {
			return fmt.Errorf("%w: %s ends at 0x%X beyond window size 0x%X", ErrInvalidConfig, a.name, a.end-1, c.Size)
		}
		for _, b := range spans[i+1:] {
			if a.start < b.end && b.start < a.end {
				return fmt.Errorf("%w: %s overlaps %s", ErrInvalidConfig, a.name, b.name)
			}
		}
	}
	return nil
}

// spanEnd returns offset+words*wb, or false if it does not fit in 64 bits.
func spanEnd(offset, words, wb uint64) (uint64, bool) {
	hi, n := bits.Mul64(words, wb)
	end, carry := bits.Add64(offset, n, 0)
	return end, hi == 0 && carry == 0
}
