// signal.go - Two-phase signals shared between the channel processes

/*
License: GPLv3 or later
*/

package axilite

// Tracer is the read-only view of a signal used by waveform writers.
type Tracer interface {
	Name() string
	Width() int
	Bits() uint64
}

type committer interface {
	Tracer
	update() bool
}

// Signal holds the value visible in the current tick and the value staged
// for the next one. Writes made during a tick are invisible until update().
type Signal[T bool | uint64] struct {
	name  string
	width int
	cur   T
	next  T
	dirty bool
}

func newSignal[T bool | uint64](name string, width int) *Signal[T] {
	return &Signal[T]{name: name, width: width}
}

func (s *Signal[T]) Name() string { return s.name }
func (s *Signal[T]) Width() int   { return s.width }

// Read returns the value committed at the end of the previous tick.
func (s *Signal[T]) Read() T { return s.cur }

// Write stages v; the last write in a tick wins.
func (s *Signal[T]) Write(v T) {
	s.next = s.mask(v)
	s.dirty = true
}

// Bits returns the committed value as an unsigned integer.
func (s *Signal[T]) Bits() uint64 {
	switch v := any(s.cur).(type) {
	case bool:
		if v {
			return 1
		}
	case uint64:
		return v
	}
	return 0
}

func (s *Signal[T]) mask(v T) T {
	if u, ok := any(v).(uint64); ok && s.width < 64 {
		u &= (uint64(1) << s.width) - 1
		return any(u).(T)
	}
	return v
}

func (s *Signal[T]) update() bool {
	if !s.dirty {
		return false
	}
	s.dirty = false
	changed := s.cur != s.next
	s.cur = s.next
	return changed
}

// Signals is the full set of wires between the bus master, the five channel
// processes and the device. Every process receives the same *Signals.
type Signals struct {
	ResetN *Signal[bool]

	// Write address channel
	AWAddr  *Signal[uint64]
	AWProt  *Signal[uint64]
	AWValid *Signal[bool]
	AWReady *Signal[bool]

	// Write data channel
	WData  *Signal[uint64]
	WStrb  *Signal[uint64]
	WValid *Signal[bool]
	WReady *Signal[bool]

	// Write response channel
	BResp  *Signal[uint64]
	BValid *Signal[bool]
	BReady *Signal[bool]

	// Read address channel
	ARAddr  *Signal[uint64]
	ARProt  *Signal[uint64]
	ARValid *Signal[bool]
	ARReady *Signal[bool]

	// Read data channel
	RData  *Signal[uint64]
	RResp  *Signal[uint64]
	RValid *Signal[bool]
	RReady *Signal[bool]

	IRQ *Signal[bool]

	// Simplified device-side interface
	IPWAddr  *Signal[uint64]
	IPWProt  *Signal[uint64]
	IPWData  *Signal[uint64]
	IPWStrb  *Signal[uint64]
	IPWValid *Signal[bool]
	IPWReady *Signal[bool]
	IPRAddr  *Signal[uint64]
	IPRProt  *Signal[uint64]
	IPRData  *Signal[uint64]
	IPRValid *Signal[bool]
	IPRReady *Signal[bool]

	// Per-channel "captured and waiting for the device" flags feeding the
	// write-valid combiner.
	AWValidAux *Signal[bool]
	WValidAux  *Signal[bool]

	all []committer
}

// NewSignals allocates every signal with the widths of cfg.
func NewSignals(cfg Config) *Signals {
	s := &Signals{}
	aw, dw, sw := cfg.AddrWidth, cfg.DataWidth, cfg.DataWidth/8

	s.ResetN = addBool(s, "resetn")

	s.AWAddr = addWord(s, "s_axi_awaddr", aw)
	s.AWProt = addWord(s, "s_axi_awprot", PROT_WIDTH)
	s.AWValid = addBool(s, "s_axi_awvalid")
	s.AWReady = addBool(s, "s_axi_awready")

	s.WData = addWord(s, "s_axi_wdata", dw)
	s.WStrb = addWord(s, "s_axi_wstrb", sw)
	s.WValid = addBool(s, "s_axi_wvalid")
	s.WReady = addBool(s, "s_axi_wready")

	s.BResp = addWord(s, "s_axi_bresp", RESP_WIDTH)
	s.BValid = addBool(s, "s_axi_bvalid")
	s.BReady = addBool(s, "s_axi_bready")

	s.ARAddr = addWord(s, "s_axi_araddr", aw)
	s.ARProt = addWord(s, "s_axi_arprot", PROT_WIDTH)
	s.ARValid = addBool(s, "s_axi_arvalid")
	s.ARReady = addBool(s, "s_axi_arready")

	s.RData = addWord(s, "s_axi_rdata", dw)
	s.RResp = addWord(s, "s_axi_rresp", RESP_WIDTH)
	s.RValid = addBool(s, "s_axi_rvalid")
	s.RReady = addBool(s, "s_axi_rready")

	s.IRQ = addBool(s, "interrupt_request")

	s.IPWAddr = addWord(s, "s_ip_waddr", aw)
	s.IPWProt = addWord(s, "s_ip_wprot", PROT_WIDTH)
	s.IPWData = addWord(s, "s_ip_wdata", dw)
	s.IPWStrb = addWord(s, "s_ip_wstrb", sw)
	s.IPWValid = addBool(s, "s_ip_wvalid")
	s.IPWReady = addBool(s, "s_ip_wready")
	s.IPRAddr = addWord(s, "s_ip_raddr", aw)
	s.IPRProt = addWord(s, "s_ip_rprot", PROT_WIDTH)
	s.IPRData = addWord(s, "s_ip_rdata", dw)
	s.IPRValid = addBool(s, "s_ip_rvalid")
	s.IPRReady = addBool(s, "s_ip_rready")

	s.AWValidAux = addBool(s, "s_ip_awvalid_aux")
	s.WValidAux = addBool(s, "s_ip_wvalid_aux")
	return s
}

func addBool(s *Signals, name string) *Signal[bool] {
	sig := newSignal[bool](name, 1)
	s.all = append(s.all, sig)
	return sig
}

func addWord(s *Signals, name string, width int) *Signal[uint64] {
	sig := newSignal[uint64](name, width)
	s.all = append(s.all, sig)
	return sig
}

// commit makes every staged write visible and reports whether any committed
// value changed.
func (s *Signals) commit() bool {
	changed := false
	for _, sig := range s.all {
		if sig.update() {
			changed = true
		}
	}
	return changed
}

// All returns every signal in declaration order.
func (s *Signals) All() []Tracer {
	out := make([]Tracer, len(s.all))
	for i, sig := range s.all {
		out[i] = sig
	}
	return out
}

// Lookup finds a signal by name.
func (s *Signals) Lookup(name string) (Tracer, bool) {
	for _, sig := range s.all {
		if sig.Name() == name {
			return sig, true
		}
	}
	return nil, false
}
