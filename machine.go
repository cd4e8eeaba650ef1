// machine.go - Processor subsystem around the AXI4-Lite slave

/*
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/intuitionamiga/axislave/axilite"
)

// MachineOptions names the files behind the file-backed memories. Empty
// paths leave a memory zeroed (input) or unsaved (output).
type MachineOptions struct {
	RFile    string
	WFile    string
	WFileLen int
	RWNum    string
	RWNumOut string

	Out io.Writer
}

// Machine is the simulated system: RAM, interrupt controller, console,
// file-backed memories and the AXI window with the slave behind it.
type Machine struct {
	Config axilite.Config

	Sim     *axilite.Simulator
	Bus     *MachineBus
	Bridge  *AXIBridge
	IRQC    *InterruptController
	Console *Console

	RFile *FileMemory
	WFile *FileMemory
	RWNum *FileMemory

	opts MachineOptions
}

func NewMachine(cfg axilite.Config, opts MachineOptions) (*Machine, error) {
	if cfg.Base+cfg.Size > 0xFFFFFFFF {
		return nil, fmt.Errorf("%w: AXI window 0x%X+0x%X beyond 4GB", axilite.ErrInvalidConfig, cfg.Base, cfg.Size)
	}
	sim, err := axilite.NewSimulator(cfg)
	if err != nil {
		return nil, err
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	m := &Machine{
		Config: cfg,
		Sim:    sim,
		Bus:    NewMachineBus(),
		Bridge: NewAXIBridge(sim),
		IRQC:   NewInterruptController(),
		RFile:  NewFileMemory("rfile", SYS_RFILE_RAM_BASE, SYS_RFILE_RAM_SIZE),
		WFile:  NewFileMemory("wfile", SYS_WFILE_RAM_BASE, SYS_WFILE_RAM_SIZE),
		RWNum:  NewFileMemory("rwnum", SYS_RWNUM_RAM_BASE, SYS_RWNUM_RAM_SIZE),
		opts:   opts,
	}
	out := opts.Out
	m.Console = NewConsole(func(b byte) { out.Write([]byte{b}) })

	m.IRQC.Attach(sim)
	if err := m.mapDevices(); err != nil {
		return nil, err
	}
	if err := m.LoadFiles(); err != nil {
		return nil, err
	}
	return m, nil
}

// mapDevices builds the system memory map. A configured AXI window that
// collides with another device comes back as an error instead of a panic.
func (m *Machine) mapDevices() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", axilite.ErrInvalidConfig, r)
		}
	}()
	m.Bus.MapIO("irqc", SYS_IRQC_BASE, SYS_IRQC_BASE+SYS_IRQC_SIZE, m.IRQC.HandleRead, m.IRQC.HandleWrite)
	m.Bus.MapIO("console", SYS_CONS_BASE, SYS_CONS_BASE+SYS_CONS_SIZE, nil, m.Console.HandleWrite)
	m.Bridge.Map(m.Bus)
	m.RFile.Map(m.Bus)
	m.WFile.Map(m.Bus)
	m.RWNum.Map(m.Bus)
	m.Bus.SealMappings()
	return nil
}

// LoadFiles fills the input memories from their files.
func (m *Machine) LoadFiles() error {
	if m.opts.RFile != "" {
		if err := m.RFile.Load(m.opts.RFile, FORMAT_CHAR2BYTE); err != nil {
			return err
		}
	}
	if m.opts.RWNum != "" {
		if err := m.RWNum.Load(m.opts.RWNum, FORMAT_STR2UINT); err != nil {
			return err
		}
	}
	return nil
}

// StoreFiles writes the output memories at the end of a run.
func (m *Machine) StoreFiles() error {
	if m.opts.WFile != "" {
		if err := m.WFile.Store(m.opts.WFile, FORMAT_BYTE2CHAR, m.opts.WFileLen); err != nil {
			return err
		}
	}
	if m.opts.RWNumOut != "" {
		if err := m.RWNum.Store(m.opts.RWNumOut, FORMAT_UINT2STR, 0); err != nil {
			return err
		}
	}
	return nil
}

// Out is where the application and the console print.
func (m *Machine) Out() io.Writer { return m.opts.Out }
