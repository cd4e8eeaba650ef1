// simulator.go - Tick scheduler, reset generator and transaction helpers

/*
License: GPLv3 or later
*/

package axilite

import (
	"errors"
	"fmt"
)

// maxDeltaCycles bounds combinational settling within one tick.
const maxDeltaCycles = 16

var (
	ErrWatchdog = errors.New("watchdog expired")
	ErrBusy     = errors.New("master busy")
)

// ResetGenerator drives resetn low for a number of ticks and then releases
// it. It is the only process that is not itself reset.
type ResetGenerator struct {
	remaining int
}

func (g *ResetGenerator) Name() string { return "reset_gen" }

// Assert holds resetn low for the next n ticks.
func (g *ResetGenerator) Assert(n int) { g.remaining = n }

// Active reports whether the generator is still holding reset.
func (g *ResetGenerator) Active() bool { return g.remaining > 0 }

func (g *ResetGenerator) Step(s *Signals) {
	if g.remaining > 0 {
		g.remaining--
		s.ResetN.Write(false)
		return
	}
	s.ResetN.Write(true)
}

// Simulator advances the slave, the reference master and the reset
// generator in lockstep, one tick at a time.
type Simulator struct {
	cfg    Config
	sig    *Signals
	slave  *Slave
	master *Master
	resetg *ResetGenerator

	procs   []Process
	methods []Method

	tick      uint64
	observers []func(tick uint64, s *Signals)
	accesses  []func(tick uint64, a Access)
}

// NewSimulator validates cfg, builds the system and runs the power-on reset.
func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sim := &Simulator{
		cfg:    cfg,
		sig:    NewSignals(cfg),
		slave:  NewSlave(cfg),
		master: NewMaster(),
		resetg: &ResetGenerator{},
	}
	sim.procs = append(sim.slave.Processes(), sim.master)
	sim.methods = sim.slave.Methods()
	sim.slave.Device.Trace = func(a Access) {
		for _, fn := range sim.accesses {
			fn(sim.tick, a)
		}
	}
	if err := sim.Reset(); err != nil {
		return nil, err
	}
	return sim, nil
}

func (sim *Simulator) Config() Config     { return sim.cfg }
func (sim *Simulator) Signals() *Signals  { return sim.sig }
func (sim *Simulator) Slave() *Slave      { return sim.slave }
func (sim *Simulator) Device() *Device    { return sim.slave.Device }
func (sim *Simulator) Master() *Master    { return sim.master }
func (sim *Simulator) IRQ() bool          { return sim.sig.IRQ.Read() }
func (sim *Simulator) Now() uint64        { return sim.tick }
func (sim *Simulator) InReset() bool      { return !sim.sig.ResetN.Read() }

// Processes lists the clocked processes in evaluation order.
func (sim *Simulator) Processes() []Process { return sim.procs }

// OnTick registers fn to run after every tick with the values that become
// visible on the following tick.
func (sim *Simulator) OnTick(fn func(tick uint64, s *Signals)) {
	sim.observers = append(sim.observers, fn)
}

// OnAccess registers fn to run whenever the device performs an access.
func (sim *Simulator) OnAccess(fn func(tick uint64, a Access)) {
	sim.accesses = append(sim.accesses, fn)
}

// Tick advances the clock by one edge.
func (sim *Simulator) Tick() {
	s := sim.sig
	inReset := !s.ResetN.Read()

	sim.resetg.Step(s)
	for _, p := range sim.procs {
		if inReset {
			p.Reset(s)
		} else {
			p.Step(s)
		}
	}
	s.commit()
	sim.settle()

	for _, fn := range sim.observers {
		fn(sim.tick, s)
	}
	sim.tick++
}

// settle evaluates combinational methods until no signal changes.
func (sim *Simulator) settle() {
	for range maxDeltaCycles {
		for _, m := range sim.methods {
			m.Eval(sim.sig)
		}
		if !sim.sig.commit() {
			return
		}
	}
}

// Run advances n ticks.
func (sim *Simulator) Run(n int) {
	for range n {
		sim.Tick()
	}
}

// Reset holds resetn low for the configured number of ticks and returns
// once it has been released.
func (sim *Simulator) Reset() error {
	sim.resetg.Assert(sim.cfg.ResetTicks)
	return sim.until(func() bool {
		return !sim.resetg.Active() && sim.sig.ResetN.Read()
	}, uint64(sim.cfg.ResetTicks)+2)
}

// until ticks until cond holds, giving up after limit ticks (0 = never).
func (sim *Simulator) until(cond func() bool, limit uint64) error {
	start := sim.tick
	for !cond() {
		if limit != 0 && sim.tick-start >= limit {
			return fmt.Errorf("%w after %d ticks", ErrWatchdog, sim.tick-start)
		}
		sim.Tick()
	}
	return nil
}

// Do runs txn to completion.
func (sim *Simulator) Do(txn Transaction) (Result, error) {
	if err := sim.master.Start(txn); err != nil {
		return Result{}, err
	}
	start := sim.tick
	if err := sim.until(func() bool { return !sim.master.Busy() }, sim.cfg.Watchdog); err != nil {
		return Result{}, fmt.Errorf("%s 0x%08X: %w", txn.Dir, txn.Addr, err)
	}
	res := sim.master.Result()
	res.Start = start
	res.End = sim.tick
	return res, nil
}

// Write performs a single write with the given strobe.
func (sim *Simulator) Write(addr, data, strobe uint64) (Result, error) {
	return sim.Do(Transaction{Dir: Write, Addr: addr, Data: data, Strobe: strobe})
}

// Read performs a single read.
func (sim *Simulator) Read(addr uint64) (Result, error) {
	return sim.Do(Transaction{Dir: Read, Addr: addr})
}

// WaitIRQ ticks until the interrupt line is high, at most max ticks
// (0 falls back to the configured watchdog).
func (sim *Simulator) WaitIRQ(max uint64) error {
	if max == 0 {
		max = sim.cfg.Watchdog
	}
	return sim.until(sim.IRQ, max)
}

// Settle ticks until the device has finished its pending write, so a
// following back-door inspection of the device sees it.
func (sim *Simulator) Settle() error {
	return sim.until(func() bool {
		s := sim.sig
		return !s.AWValidAux.Read() && !s.WValidAux.Read() && !s.IPWValid.Read() &&
			!s.IPWReady.Read() && !s.IPRReady.Read() && !s.IPRValid.Read()
	}, sim.cfg.Watchdog)
}
