// vcd.go - Value change dump writer and in-memory trace recorder

/*
License: GPLv3 or later
*/

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/intuitionamiga/axislave/axilite"
)

const (
	VCD_TIMESCALE_NS = 1
	CLOCK_PERIOD_NS  = 10
)

// VCDWriter dumps every signal of a simulator in value change dump format.
// The header carries no $date, so the same run always dumps the same bytes.
// Time advances CLOCK_PERIOD_NS per tick; the values recorded after tick n
// are those visible during tick n+1.
type VCDWriter struct {
	w       *bufio.Writer
	signals []axilite.Tracer
	ids     []string
	last    []uint64
	started bool
}

func NewVCDWriter(w io.Writer, signals []axilite.Tracer) *VCDWriter {
	v := &VCDWriter{
		w:       bufio.NewWriter(w),
		signals: signals,
		ids:     make([]string, len(signals)),
		last:    make([]uint64, len(signals)),
	}
	for i := range signals {
		v.ids[i] = vcdIdentifier(i)
	}
	return v
}

// vcdIdentifier encodes i in the printable range '!'..'~'.
func vcdIdentifier(i int) string {
	const first, span = '!', '~' - '!' + 1
	var b []byte
	for {
		b = append(b, byte(first+i%span))
		i /= span
		if i == 0 {
			return string(b)
		}
		i--
	}
}

// Attach records every tick of sim.
func (v *VCDWriter) Attach(sim *axilite.Simulator) {
	sim.OnTick(func(tick uint64, _ *axilite.Signals) {
		v.Sample(tick + 1)
	})
}

func (v *VCDWriter) header() {
	fmt.Fprintf(v.w, "$version axislave $end\n")
	fmt.Fprintf(v.w, "$timescale %dns $end\n", VCD_TIMESCALE_NS)
	fmt.Fprintf(v.w, "$scope module tr $end\n")
	fmt.Fprintf(v.w, "$var wire 1 %s clk $end\n", v.clockID())
	for i, s := range v.signals {
		fmt.Fprintf(v.w, "$var wire %d %s %s $end\n", s.Width(), v.ids[i], s.Name())
	}
	fmt.Fprintf(v.w, "$upscope $end\n$enddefinitions $end\n")
}

func (v *VCDWriter) clockID() string { return vcdIdentifier(len(v.signals)) }

func (v *VCDWriter) value(i int, bits uint64) {
	if v.signals[i].Width() == 1 {
		fmt.Fprintf(v.w, "%d%s\n", bits&1, v.ids[i])
		return
	}
	fmt.Fprintf(v.w, "b%s %s\n", strconv.FormatUint(bits, 2), v.ids[i])
}

// Sample emits the changes at the given tick.
func (v *VCDWriter) Sample(tick uint64) {
	t := tick * CLOCK_PERIOD_NS
	if !v.started {
		v.header()
		fmt.Fprintf(v.w, "#%d\n$dumpvars\n1%s\n", t, v.clockID())
		for i, s := range v.signals {
			v.last[i] = s.Bits()
			v.value(i, v.last[i])
		}
		fmt.Fprintf(v.w, "$end\n")
		v.started = true
	} else {
		fmt.Fprintf(v.w, "#%d\n1%s\n", t, v.clockID())
		for i, s := range v.signals {
			if b := s.Bits(); b != v.last[i] {
				v.last[i] = b
				v.value(i, b)
			}
		}
	}
	fmt.Fprintf(v.w, "#%d\n0%s\n", t+CLOCK_PERIOD_NS/2, v.clockID())
}

// Close flushes the dump. Write errors are sticky in the buffered writer
// and surface here.
func (v *VCDWriter) Close() error {
	return v.w.Flush()
}

// TraceRecorder keeps the values of a set of signals for every tick so the
// waveform viewer can draw them.
type TraceRecorder struct {
	mu      sync.RWMutex
	signals []axilite.Tracer
	ticks   []uint64
	rows    [][]uint64
	limit   int
	irqs    []uint64
}

// NewTraceRecorder keeps at most limit ticks (0 = unlimited).
func NewTraceRecorder(signals []axilite.Tracer, limit int) *TraceRecorder {
	return &TraceRecorder{signals: signals, limit: limit}
}

func (r *TraceRecorder) Attach(sim *axilite.Simulator) {
	sim.OnTick(func(tick uint64, _ *axilite.Signals) {
		r.Sample(tick + 1)
	})
}

func (r *TraceRecorder) Sample(tick uint64) {
	row := make([]uint64, len(r.signals))
	for i, s := range r.signals {
		row[i] = s.Bits()
	}
	r.mu.Lock()
	r.ticks = append(r.ticks, tick)
	r.rows = append(r.rows, row)
	if r.limit > 0 && len(r.rows) > r.limit {
		drop := len(r.rows) - r.limit
		r.ticks = r.ticks[drop:]
		r.rows = r.rows[drop:]
	}
	r.mu.Unlock()
}

// MarkIRQ records an interrupt edge at tick.
func (r *TraceRecorder) MarkIRQ(tick uint64) {
	r.mu.Lock()
	r.irqs = append(r.irqs, tick)
	r.mu.Unlock()
}

// Clear drops all recorded samples.
func (r *TraceRecorder) Clear() {
	r.mu.Lock()
	r.ticks, r.rows, r.irqs = nil, nil, nil
	r.mu.Unlock()
}

// TraceSnapshot is a consistent copy of the recorded window.
type TraceSnapshot struct {
	Names  []string
	Widths []int
	Ticks  []uint64
	Rows   [][]uint64
	IRQs   []uint64
}

func (r *TraceRecorder) Snapshot() TraceSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := TraceSnapshot{
		Names:  make([]string, len(r.signals)),
		Widths: make([]int, len(r.signals)),
		Ticks:  append([]uint64(nil), r.ticks...),
		Rows:   append([][]uint64(nil), r.rows...),
		IRQs:   append([]uint64(nil), r.irqs...),
	}
	for i, s := range r.signals {
		snap.Names[i] = s.Name()
		snap.Widths[i] = s.Width()
	}
	return snap
}

// WriteVCD replays the snapshot as a value change dump.
func (snap TraceSnapshot) WriteVCD(w io.Writer) error {
	sigs := make([]axilite.Tracer, len(snap.Names))
	vals := make([]uint64, len(snap.Names))
	for i := range sigs {
		sigs[i] = replaySignal{name: snap.Names[i], width: snap.Widths[i], val: &vals[i]}
	}
	v := NewVCDWriter(w, sigs)
	for n, tick := range snap.Ticks {
		copy(vals, snap.Rows[n])
		v.Sample(tick)
	}
	return v.Close()
}

type replaySignal struct {
	name  string
	width int
	val   *uint64
}

func (s replaySignal) Name() string { return s.name }
func (s replaySignal) Width() int   { return s.width }
func (s replaySignal) Bits() uint64 { return *s.val }
