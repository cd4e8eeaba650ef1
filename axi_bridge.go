// axi_bridge.go - Bridge from the system bus into the AXI4-Lite slave

/*
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"sync"

	"github.com/intuitionamiga/axislave/axilite"
)

// Interrupt controller registers (offsets from SYS_IRQC_BASE)
const (
	IRQC_STATUS = 0x00 // R: bit 0 = AXI interrupt pending
	IRQC_ENABLE = 0x04 // R/W: bit 0 = deliver AXI interrupt
	IRQC_ACK    = 0x08 // W: clear pending bits written as 1
	IRQC_LINE   = 0x0C // R: current level of the interrupt line

	IRQ_AXI = 1 << 0
)

// Debug console registers (offsets from SYS_CONS_BASE)
const (
	CONS_TX   = 0x00 // W: print one character
	CONS_HALT = 0x04 // W: any value stops the application
)

// TransactionSink receives every transaction the bridge puts on the AXI bus.
type TransactionSink interface {
	WriteTransaction(addr, data uint32)
	ReadTransaction(addr, data uint32)
}

// AXIBridge turns processor bus accesses inside the AXI window into
// transactions on the simulated AXI4-Lite bus.
type AXIBridge struct {
	sim   *axilite.Simulator
	base  uint32
	end   uint32
	sinks []TransactionSink

	mu      sync.Mutex
	err     error
	writes  uint64
	reads   uint64
	verbose bool
}

func NewAXIBridge(sim *axilite.Simulator) *AXIBridge {
	cfg := sim.Config()
	return &AXIBridge{
		sim:  sim,
		base: uint32(cfg.Base),
		end:  uint32(cfg.Base + cfg.Size),
	}
}

// Map registers the AXI window on bus.
func (br *AXIBridge) Map(bus *MachineBus) {
	bus.MapIO("axi", br.base, br.end, br.HandleRead, br.HandleWrite)
}

func (br *AXIBridge) AddSink(s TransactionSink) { br.sinks = append(br.sinks, s) }
func (br *AXIBridge) SetVerbose(v bool)         { br.verbose = v }

// Err returns the first transaction failure, if any.
func (br *AXIBridge) Err() error {
	br.mu.Lock()
	defer br.mu.Unlock()
	return br.err
}

func (br *AXIBridge) fail(err error) {
	fmt.Printf("axi_bridge: %v\n", err)
	br.mu.Lock()
	if br.err == nil {
		br.err = err
	}
	br.mu.Unlock()
}

// laneShift is the byte offset of a 32-bit system word inside a wider AXI
// data word.
func (br *AXIBridge) laneShift(addr uint32) uint32 {
	wb := uint32(br.sim.Config().WordBytes())
	return addr & (wb - 1) &^ 3
}

func (br *AXIBridge) HandleWrite(addr uint32, value uint32, strobe uint8) {
	if br.Err() != nil {
		return
	}
	shift := br.laneShift(addr)
	data := uint64(value) << (8 * shift)
	strb := uint64(strobe) << shift
	res, err := br.sim.Write(uint64(addr&^shift), data, strb)
	if err != nil {
		br.fail(err)
		return
	}
	br.writes++
	if br.verbose {
		fmt.Printf("axi_bridge: W 0x%08X <= 0x%08X strb %X (%d..%d)\n", addr, value, strobe, res.Start, res.End)
	}
	for _, s := range br.sinks {
		s.WriteTransaction(addr, value)
	}
}

func (br *AXIBridge) HandleRead(addr uint32) uint32 {
	if br.Err() != nil {
		return 0
	}
	shift := br.laneShift(addr)
	res, err := br.sim.Read(uint64(addr &^ shift))
	if err != nil {
		br.fail(err)
		return 0
	}
	br.reads++
	value := uint32(res.Data >> (8 * shift))
	if br.verbose {
		fmt.Printf("axi_bridge: R 0x%08X => 0x%08X (%d..%d)\n", addr, value, res.Start, res.End)
	}
	for _, s := range br.sinks {
		s.ReadTransaction(addr, value)
	}
	return value
}

// Counts reports how many writes and reads went through the bridge.
func (br *AXIBridge) Counts() (writes, reads uint64) { return br.writes, br.reads }

// InterruptController latches rising edges of the AXI interrupt line and
// exposes them to the application through a small register block.
type InterruptController struct {
	mu      sync.Mutex
	line    bool
	pending uint32
	enable  uint32
	edges   uint64

	onRise []func()
}

func NewInterruptController() *InterruptController {
	return &InterruptController{}
}

// Attach samples the slave's interrupt output after every tick.
func (ic *InterruptController) Attach(sim *axilite.Simulator) {
	sim.OnTick(func(_ uint64, s *axilite.Signals) {
		ic.Sample(s.IRQ.Read())
	})
}

// OnRise registers fn to run on each rising edge of the line.
func (ic *InterruptController) OnRise(fn func()) {
	ic.onRise = append(ic.onRise, fn)
}

// Sample updates the line level and latches a rising edge.
func (ic *InterruptController) Sample(level bool) {
	ic.mu.Lock()
	rise := level && !ic.line
	ic.line = level
	if rise {
		ic.pending |= IRQ_AXI
		ic.edges++
	}
	ic.mu.Unlock()
	if rise {
		for _, fn := range ic.onRise {
			fn()
		}
	}
}

// Pending reports whether an enabled interrupt is waiting for delivery.
func (ic *InterruptController) Pending() bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.pending&ic.enable != 0
}

// Ack clears the given pending bits.
func (ic *InterruptController) Ack(bits uint32) {
	ic.mu.Lock()
	ic.pending &^= bits
	ic.mu.Unlock()
}

func (ic *InterruptController) SetEnabled(on bool) {
	ic.mu.Lock()
	if on {
		ic.enable |= IRQ_AXI
	} else {
		ic.enable &^= IRQ_AXI
	}
	ic.mu.Unlock()
}

// Edges is the number of rising edges seen since the last reset.
func (ic *InterruptController) Edges() uint64 {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.edges
}

func (ic *InterruptController) HandleRead(addr uint32) uint32 {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	switch addr - SYS_IRQC_BASE {
	case IRQC_STATUS:
		return ic.pending
	case IRQC_ENABLE:
		return ic.enable
	case IRQC_LINE:
		if ic.line {
			return 1
		}
	}
	return 0
}

func (ic *InterruptController) HandleWrite(addr uint32, value uint32, strobe uint8) {
	if strobe&1 == 0 {
		return
	}
	switch addr - SYS_IRQC_BASE {
	case IRQC_ENABLE:
		ic.SetEnabled(value&IRQ_AXI != 0)
	case IRQC_ACK:
		ic.Ack(value)
	}
}

// Console is the debug console: a character sink and a halt register.
type Console struct {
	out    func(b byte)
	halted bool
}

func NewConsole(out func(b byte)) *Console {
	return &Console{out: out}
}

func (c *Console) Halted() bool { return c.halted }

func (c *Console) HandleWrite(addr uint32, value uint32, strobe uint8) {
	switch addr - SYS_CONS_BASE {
	case CONS_TX:
		if strobe&1 != 0 && c.out != nil {
			c.out(byte(value))
		}
	case CONS_HALT:
		c.halted = true
	}
}
