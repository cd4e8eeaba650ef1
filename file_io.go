// file_io.go - File-backed memories mapped onto the system bus

/*
License: GPLv3 or later
*/

package main

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/intuitionamiga/axislave/axilite"
)

// FileFormat selects how a file is converted to and from memory contents.
type FileFormat int

const (
	// FORMAT_CHAR2BYTE loads each character of a text file into one byte.
	FORMAT_CHAR2BYTE FileFormat = iota
	// FORMAT_STR2UINT loads whitespace separated unsigned numbers, one per word.
	FORMAT_STR2UINT
	// FORMAT_BYTE2CHAR writes bytes up to the first NUL as text.
	FORMAT_BYTE2CHAR
	// FORMAT_UINT2STR writes one decimal number per line.
	FORMAT_UINT2STR
)

var ErrFileFormat = errors.New("bad file contents")

// FileMemory is a block of memory that can be loaded from and stored to a
// file. Its span on the bus is always size*4 bytes.
type FileMemory struct {
	name string
	base uint32
	data []byte
}

// NewFileMemory creates a memory of size 32-bit words at base.
func NewFileMemory(name string, base uint32, words int) *FileMemory {
	return &FileMemory{
		name: name,
		base: base,
		data: make([]byte, words*4),
	}
}

func (m *FileMemory) End() uint32 { return m.base + uint32(len(m.data)) - 1 }
func (m *FileMemory) Bytes() []byte {
	return append([]byte(nil), m.data...)
}

// Map registers the memory on bus.
func (m *FileMemory) Map(bus *MachineBus) {
	bus.MapIO(m.name, m.base, m.End(), m.HandleRead, m.HandleWrite)
}

func (m *FileMemory) HandleRead(addr uint32) uint32 {
	off := addr - m.base
	if int(off)+4 > len(m.data) {
		return 0
	}
	return binary.LittleEndian.Uint32(m.data[off:])
}

func (m *FileMemory) HandleWrite(addr uint32, value uint32, strobe uint8) {
	off := addr - m.base
	if int(off)+4 > len(m.data) {
		return
	}
	old := binary.LittleEndian.Uint32(m.data[off:])
	merged := axilite.MergeStrobe(uint64(old), uint64(value), uint64(strobe), 4)
	binary.LittleEndian.PutUint32(m.data[off:], uint32(merged))
}

// Load reads path in the given format. Missing trailing contents are zero;
// contents beyond the memory are ignored with a warning.
func (m *FileMemory) Load(path string, format FileFormat) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", m.name, err)
	}
	m.Reset()
	switch format {
	case FORMAT_CHAR2BYTE:
		n := copy(m.data, raw)
		if n < len(raw) {
			fmt.Printf("Warning: %s: %s truncated to %d bytes\n", m.name, path, n)
		}
	case FORMAT_STR2UINT:
		words := len(m.data) / 4
		for i, field := range strings.Fields(string(raw)) {
			if i >= words {
				fmt.Printf("Warning: %s: %s has more than %d numbers\n", m.name, path, words)
				break
			}
			v, err := strconv.ParseUint(field, 0, 32)
			if err != nil {
				return fmt.Errorf("%s: %s item %d: %w: %v", m.name, path, i, ErrFileFormat, err)
			}
			binary.LittleEndian.PutUint32(m.data[i*4:], uint32(v))
		}
	default:
		return fmt.Errorf("%s: format %d cannot be loaded", m.name, format)
	}
	return nil
}

// Store writes the first elems elements to path (0 = all of them).
func (m *FileMemory) Store(path string, format FileFormat, elems int) error {
	var buf bytes.Buffer
	switch format {
	case FORMAT_BYTE2CHAR:
		data := m.data
		if elems > 0 && elems < len(data) {
			data = data[:elems]
		}
		if i := bytes.IndexByte(data, 0); i >= 0 {
			data = data[:i]
		}
		buf.Write(data)
	case FORMAT_UINT2STR:
		words := len(m.data) / 4
		if elems > 0 && elems < words {
			words = elems
		}
		w := bufio.NewWriter(&buf)
		for i := range words {
			fmt.Fprintf(w, "%d\n", binary.LittleEndian.Uint32(m.data[i*4:]))
		}
		w.Flush()
	default:
		return fmt.Errorf("%s: format %d cannot be stored", m.name, format)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%s: %w", m.name, err)
	}
	return nil
}
