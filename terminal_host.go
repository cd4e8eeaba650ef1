package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/intuitionamiga/axislave/axilite"
	"golang.org/x/term"
)

// StepMonitor stops the simulation after every tick and waits for a key:
// space or enter steps, c continues, v toggles bridge logging and q quits.
// Only instantiated in main.go for interactive use, and by tests with a
// plain reader.
type StepMonitor struct {
	in     io.Reader
	out    io.Writer
	keys   chan byte
	cancel context.CancelFunc

	free    atomic.Bool
	done    chan struct{} // closed once the monitor stops pausing
	release sync.Once
	verbose atomic.Bool
	onVerb  func(bool)

	stopped      sync.Once
	fd           int
	oldTermState *term.State
}

func NewStepMonitor(in io.Reader, out io.Writer, cancel context.CancelFunc) *StepMonitor {
	return &StepMonitor{
		in:     in,
		out:    out,
		keys:   make(chan byte, 16),
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// run lets the simulation go without pausing again.
func (h *StepMonitor) run() {
	h.free.Store(true)
	h.release.Do(func() { close(h.done) })
}

// freeKey handles a key read while the simulation runs freely. Raw mode
// swallows SIGINT, so q and Ctrl-C still have to quit.
func (h *StepMonitor) freeKey(b byte) {
	if (b == 'q' || b == 0x03) && h.cancel != nil {
		h.cancel()
	}
}

// OnVerbose registers fn to be told when logging is toggled.
func (h *StepMonitor) OnVerbose(fn func(bool)) { h.onVerb = fn }

// Start puts a terminal stdin in raw mode and begins reading keys.
func (h *StepMonitor) Start() {
	if f, ok := h.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		h.fd = int(f.Fd())
		oldState, err := term.MakeRaw(h.fd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "terminal_host: failed to set raw mode: %v\n", err)
		} else {
			h.oldTermState = oldState
		}
	}

	go func() {
		defer close(h.keys)
		buf := make([]byte, 1)
		for {
			n, err := h.in.Read(buf)
			if n > 0 {
				if h.free.Load() {
					h.freeKey(buf[0])
				} else {
					select {
					case h.keys <- buf[0]:
					case <-h.done:
						h.freeKey(buf[0])
					}
				}
			}
			if err != nil {
				return
			}
		}
	}()
}

// Stop restores the terminal.
func (h *StepMonitor) Stop() {
	h.run()
	h.stopped.Do(func() {
		if h.oldTermState != nil {
			_ = term.Restore(h.fd, h.oldTermState)
			h.oldTermState = nil
		}
	})
}

// Attach hooks the monitor into sim.
func (h *StepMonitor) Attach(sim *axilite.Simulator) {
	sim.OnTick(func(tick uint64, s *axilite.Signals) {
		h.pause(sim, tick+1, s)
	})
}

func (h *StepMonitor) status(sim *axilite.Simulator, tick uint64, s *axilite.Signals) {
	sl := sim.Slave()
	fmt.Fprintf(h.out, "tick %6d  aw %-18s w %-18s ar %-18s bvalid %d rvalid %d irq %d\r\n",
		tick, sl.AW.State(), sl.W.State(), sl.AR.State(),
		s.BValid.Bits(), s.RValid.Bits(), s.IRQ.Bits())
}

func (h *StepMonitor) pause(sim *axilite.Simulator, tick uint64, s *axilite.Signals) {
	if h.free.Load() {
		return
	}
	h.status(sim, tick, s)
	for {
		b, ok := <-h.keys
		if !ok {
			h.run()
			return
		}
		switch b {
		case ' ', '\r', '\n', 's':
			return
		case 'c':
			h.run()
			return
		case 'v':
			on := !h.verbose.Load()
			h.verbose.Store(on)
			if h.onVerb != nil {
				h.onVerb(on)
			}
			fmt.Fprintf(h.out, "verbose %v\r\n", on)
		case 'q', 0x03:
			h.run()
			if h.cancel != nil {
				h.cancel()
			}
			return
		}
	}
}
