package axilite

import (
	"errors"
	"testing"
)

func TestConfig_TranslationPolicy(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Policy() != TranslateXOR {
		t.Fatalf("default policy %v, expected xor", cfg.Policy())
	}
	if got := cfg.Translate(DEFAULT_AXI_BASE + 0x10); got != 0x10 {
		t.Fatalf("xor Translate = 0x%X, expected 0x10", got)
	}

	cfg.Base = 0x1000
	cfg.Size = 0x80000
	if cfg.Policy() != TranslateSubtract {
		t.Fatalf("policy %v with base < size, expected subtract", cfg.Policy())
	}
	if got := cfg.Translate(0x1010); got != 0x10 {
		t.Fatalf("subtract Translate = 0x%X, expected 0x10", got)
	}

	cfg.Translation = TranslateSubtract
	cfg.Base = DEFAULT_AXI_BASE
	cfg.Size = DEFAULT_AXI_SIZE
	if got := cfg.Translate(DEFAULT_AXI_BASE + DEFAULT_IPIN_OFFSET); got != DEFAULT_IPIN_OFFSET {
		t.Fatalf("forced subtract Translate = 0x%X, expected 0x%X", got, DEFAULT_IPIN_OFFSET)
	}
}

func TestConfig_DecodeIsTotal(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		addr   uint64
		region Region
		index  uint64
	}{
		{0x00, RegionRegisters, 0},
		{0x04, RegionRegisters, 1},
		{0x3C, RegionRegisters, 15},
		{0x3F, RegionRegisters, 15},
		{0x40, RegionUnmapped, 0},
		{DEFAULT_IPIN_OFFSET - 4, RegionUnmapped, 0},
		{DEFAULT_IPIN_OFFSET, RegionInput, 0},
		{DEFAULT_IPIN_OFFSET + 4*(DEFAULT_RFILE_SIZE-1), RegionInput, DEFAULT_RFILE_SIZE - 1},
		{DEFAULT_IPIN_OFFSET + 4*DEFAULT_RFILE_SIZE, RegionUnmapped, 0},
		{DEFAULT_IPOUT_OFFSET, RegionOutput, 0},
		{DEFAULT_IPOUT_OFFSET + 8, RegionOutput, 2},
		{DEFAULT_IPOUT_OFFSET + 4*DEFAULT_WFILE_SIZE, RegionUnmapped, 0},
		{0x1FFFFFFC, RegionUnmapped, 0},
	}
	for _, tc := range tests {
		r, idx := cfg.Decode(tc.addr)
		if r != tc.region || idx != tc.index {
			t.Errorf("Decode(0x%X) = %v/%d, expected %v/%d", tc.addr, r, idx, tc.region, tc.index)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"data width", func(c *Config) { c.DataWidth = 16 }},
		{"addr width", func(c *Config) { c.AddrWidth = 24 }},
		{"empty input", func(c *Config) { c.InSize = 0 }},
		{"run bit", func(c *Config) { c.RunBit = 0 }},
		{"overlap registers", func(c *Config) { c.InOffset = 0x20 }},
		{"overlap buffers", func(c *Config) { c.OutOffset = c.InOffset + 4 }},
		{"unaligned", func(c *Config) { c.OutOffset = DEFAULT_IPOUT_OFFSET + 1 }},
		{"beyond window", func(c *Config) { c.Size = 0x100 }},
		{"xor below size", func(c *Config) { c.Translation = TranslateXOR; c.Base = 0x100; c.Size = 0x80000 }},
		{"no reset", func(c *Config) { c.ResetTicks = 0 }},
		{"input size wraps", func(c *Config) { c.InSize = 1 << 62 }},
		{"output size wraps", func(c *Config) { c.OutSize = 1 << 63 }},
		{"output offset wraps", func(c *Config) { c.OutOffset = ^uint64(0) - 3 }},
	}
	for _, tc := range tests {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: Validate() = %v, expected ErrInvalidConfig", tc.name, err)
		}
	}
}

func TestMergeStrobe(t *testing.T) {
	for strobe := uint64(0); strobe < 16; strobe++ {
		got := MergeStrobe(0xAABBCCDD, 0x11223344, strobe, 4)
		var want uint64
		for lane := uint64(0); lane < 4; lane++ {
			src := uint64(0xAABBCCDD)
			if strobe&(1<<lane) != 0 {
				src = 0x11223344
			}
			want |= src & (0xFF << (8 * lane))
		}
		if got != want {
			t.Errorf("MergeStrobe(strobe=0x%X) = 0x%08X, expected 0x%08X", strobe, got, want)
		}
	}
}
