// config_file.go - JSON slave configuration files

/*
License: GPLv3 or later
*/

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/intuitionamiga/axislave/axilite"
)

// hexUint accepts either a JSON number or a string such as "0x60000000".
type hexUint uint64

func (h *hexUint) UnmarshalJSON(b []byte) error {
	var n uint64
	if err := json.Unmarshal(b, &n); err == nil {
		*h = hexUint(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("want a number or a string, got %s", b)
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return err
	}
	*h = hexUint(v)
	return nil
}

// configFile mirrors axilite.Config. Absent fields keep their defaults.
type configFile struct {
	AddrWidth    *int     `json:"addr_width"`
	DataWidth    *int     `json:"data_width"`
	Base         *hexUint `json:"base"`
	Size         *hexUint `json:"size"`
	InOffset     *hexUint `json:"in_offset"`
	InSize       *hexUint `json:"in_size"`
	OutOffset    *hexUint `json:"out_offset"`
	OutSize      *hexUint `json:"out_size"`
	RunBit       *hexUint `json:"run_bit"`
	Translation  *string  `json:"translation"`
	ClearOnReset *bool    `json:"clear_on_reset"`
	ResetTicks   *int     `json:"reset_ticks"`
	Watchdog     *hexUint `json:"watchdog"`
}

func parseTranslation(s string) (axilite.Translation, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return axilite.TranslateAuto, nil
	case "xor":
		return axilite.TranslateXOR, nil
	case "subtract", "sub":
		return axilite.TranslateSubtract, nil
	}
	return 0, fmt.Errorf("unknown translation %q (want auto, xor or subtract)", s)
}

// loadConfigFile overlays the JSON file at path onto cfg.
func loadConfigFile(path string, cfg *axilite.Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var f configFile
	if err := dec.Decode(&f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.apply(cfg)
}

func (f configFile) apply(cfg *axilite.Config) error {
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setUint := func(dst *uint64, src *hexUint) {
		if src != nil {
			*dst = uint64(*src)
		}
	}
	setInt(&cfg.AddrWidth, f.AddrWidth)
	setInt(&cfg.DataWidth, f.DataWidth)
	setInt(&cfg.ResetTicks, f.ResetTicks)
	setUint(&cfg.Base, f.Base)
	setUint(&cfg.Size, f.Size)
	setUint(&cfg.InOffset, f.InOffset)
	setUint(&cfg.InSize, f.InSize)
	setUint(&cfg.OutOffset, f.OutOffset)
	setUint(&cfg.OutSize, f.OutSize)
	setUint(&cfg.RunBit, f.RunBit)
	setUint(&cfg.Watchdog, f.Watchdog)
	if f.ClearOnReset != nil {
		cfg.ClearOnReset = *f.ClearOnReset
	}
	if f.Translation != nil {
		t, err := parseTranslation(*f.Translation)
		if err != nil {
			return err
		}
		cfg.Translation = t
	}
	return nil
}
