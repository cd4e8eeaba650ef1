// session.go - One run of the application against the machine

/*
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/intuitionamiga/axislave/axilite"
)

// SessionOptions selects the application and the dumps produced by a run.
type SessionOptions struct {
	Script    string // empty runs the built-in application
	VCDPath   string
	TBPath    string
	Verbose   bool
	OnSummary func(Summary)
}

// Summary is what a run did.
type Summary struct {
	Ticks      uint64
	Writes     uint64
	Reads      uint64
	Interrupts uint64
	Halted     bool
}

func (s Summary) String() string {
	return fmt.Sprintf("%d ticks, %d writes, %d reads, %d interrupts", s.Ticks, s.Writes, s.Reads, s.Interrupts)
}

// Session runs the application, possibly several times. Dumps are attached
// once to the simulator and pointed at fresh files on every run.
type Session struct {
	m    *Machine
	opts SessionOptions

	mu     sync.Mutex
	vcd    *VCDWriter
	origin uint64 // first tick of the current dump
	tb     *TestbenchWriter
}

func NewSession(m *Machine, opts SessionOptions) *Session {
	s := &Session{m: m, opts: opts}
	m.Sim.OnTick(func(tick uint64, _ *axilite.Signals) {
		if s.vcd != nil {
			s.vcd.Sample(tick - s.origin)
		}
	})
	m.Bridge.AddSink(s)
	m.Bridge.SetVerbose(opts.Verbose)
	return s
}

func (s *Session) WriteTransaction(addr, data uint32) {
	if s.tb != nil {
		s.tb.WriteTransaction(addr, data)
	}
}

func (s *Session) ReadTransaction(addr, data uint32) {
	if s.tb != nil {
		s.tb.ReadTransaction(addr, data)
	}
}

// Run resets the machine and runs the application once. Concurrent calls
// are serialised. The dumps cover the run from the end of the reset
// sequence, with the value change dump starting at time 0.
func (s *Session) Run(ctx context.Context) (sum Summary, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.m.Reset(); err != nil {
		return sum, err
	}

	// Dumps start from the power-on state, so every run writes the same bytes.
	closers, err := s.openDumps()
	if err != nil {
		return sum, err
	}
	defer func() {
		s.vcd, s.tb = nil, nil
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	start := s.m.Sim.Now()
	w0, r0 := s.m.Bridge.Counts()

	host := NewAppHost(s.m)
	defer host.Close()
	runErr := host.RunFile(ctx, s.opts.Script)

	w1, r1 := s.m.Bridge.Counts()
	sum = Summary{
		Ticks:      s.m.Sim.Now() - start,
		Writes:     w1 - w0,
		Reads:      r1 - r0,
		Interrupts: s.m.IRQC.Edges(),
		Halted:     s.m.Console.Halted(),
	}
	if s.opts.OnSummary != nil {
		s.opts.OnSummary(sum)
	}
	if runErr != nil {
		return sum, runErr
	}
	return sum, s.m.StoreFiles()
}

type flushCloser struct {
	flush func() error
	f     *os.File
}

func (c flushCloser) Close() error {
	err := c.flush()
	if cerr := c.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Session) openDumps() ([]io.Closer, error) {
	var closers []io.Closer
	fail := func(err error) ([]io.Closer, error) {
		for _, c := range closers {
			c.Close()
		}
		s.vcd, s.tb = nil, nil
		return nil, err
	}
	if s.opts.VCDPath != "" {
		f, err := os.Create(s.opts.VCDPath)
		if err != nil {
			return fail(err)
		}
		s.origin = s.m.Sim.Now()
		s.vcd = NewVCDWriter(f, s.m.Sim.Signals().All())
		closers = append(closers, flushCloser{flush: s.vcd.Close, f: f})
	}
	if s.opts.TBPath != "" {
		f, err := os.Create(s.opts.TBPath)
		if err != nil {
			return fail(err)
		}
		s.tb = NewTestbenchWriter(f, uint32(s.m.Config.Base), uint32(s.m.Config.RunBit))
		closers = append(closers, flushCloser{flush: s.tb.Close, f: f})
	}
	return closers, nil
}

// isCancel reports whether err only says the run was interrupted.
func isCancel(err error) bool {
	return errors.Is(err, context.Canceled)
}
