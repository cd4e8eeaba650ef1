// master.go - Reference AXI4-Lite bus master used to drive the slave

/*
License: GPLv3 or later
*/

package axilite

// Transaction is one bus read or write. AddrDelay and DataDelay hold the
// address and data valids back by that many ticks so the two write
// channels can complete in any order.
type Transaction struct {
	Dir    Direction
	Addr   uint64
	Data   uint64
	Strobe uint64
	Prot   uint64

	AddrDelay int
	DataDelay int
}

// Result is what the master observed once the transaction completed.
type Result struct {
	Txn   Transaction
	Data  uint64
	Resp  uint64
	Start uint64 // tick the transaction was started
	End   uint64 // tick the last handshake completed
}

type beat uint8

const (
	beatDelay beat = iota
	beatValid
	beatDone
)

// Master drives the bus side of the five channels, one transaction at a
// time, following the handshake rules: a valid stays high until the tick in
// which ready is also seen high.
type Master struct {
	txn  Transaction
	busy bool

	addr    beat
	data    beat
	resp    beat
	aDelay  int
	dDelay  int
	started bool

	result Result
}

func NewMaster() *Master {
	return &Master{}
}

func (m *Master) Name() string { return "master" }

// Busy reports whether a transaction is in flight.
func (m *Master) Busy() bool { return m.busy }

// Result returns the outcome of the last completed transaction.
func (m *Master) Result() Result { return m.result }

// Start queues txn; the signals are driven from the next Step.
func (m *Master) Start(txn Transaction) error {
	if m.busy {
		return ErrBusy
	}
	m.txn = txn
	m.busy = true
	m.started = false
	m.addr, m.data, m.resp = beatDelay, beatDelay, beatValid
	m.aDelay, m.dDelay = txn.AddrDelay, txn.DataDelay
	if txn.Dir == Read {
		m.data = beatDone
	}
	m.result = Result{Txn: txn}
	return nil
}

func (m *Master) Reset(s *Signals) {
	s.AWValid.Write(false)
	s.WValid.Write(false)
	s.BReady.Write(false)
	s.ARValid.Write(false)
	s.RReady.Write(false)
	s.AWAddr.Write(0)
	s.AWProt.Write(0)
	s.WData.Write(0)
	s.WStrb.Write(0)
	s.ARAddr.Write(0)
	s.ARProt.Write(0)
	m.busy = false
}

func (m *Master) Step(s *Signals) {
	if !m.busy {
		return
	}
	if !m.started {
		// Responses are accepted as soon as they appear.
		if m.txn.Dir == Write {
			s.BReady.Write(true)
		} else {
			s.RReady.Write(true)
		}
		m.started = true
	}

	if m.txn.Dir == Write {
		m.stepWriteAddr(s)
		m.stepWriteData(s)
		if m.resp == beatValid && s.BValid.Read() && s.BReady.Read() {
			m.result.Resp = s.BResp.Read()
			s.BReady.Write(false)
			m.resp = beatDone
		}
	} else {
		m.stepReadAddr(s)
		if m.resp == beatValid && s.RValid.Read() && s.RReady.Read() {
			m.result.Data = s.RData.Read()
			m.result.Resp = s.RResp.Read()
			s.RReady.Write(false)
			m.resp = beatDone
		}
	}

	if m.addr == beatDone && m.data == beatDone && m.resp == beatDone {
		m.busy = false
	}
}

func (m *Master) stepWriteAddr(s *Signals) {
	switch m.addr {
	case beatDelay:
		if m.aDelay > 0 {
			m.aDelay--
			return
		}
		s.AWAddr.Write(m.txn.Addr)
		s.AWProt.Write(m.txn.Prot)
		s.AWValid.Write(true)
		m.addr = beatValid
	case beatValid:
		if s.AWValid.Read() && s.AWReady.Read() {
			s.AWValid.Write(false)
			m.addr = beatDone
		}
	}
}

func (m *Master) stepWriteData(s *Signals) {
	switch m.data {
	case beatDelay:
		if m.dDelay > 0 {
			m.dDelay--
			return
		}
		s.WData.Write(m.txn.Data)
		s.WStrb.Write(m.txn.Strobe)
		s.WValid.Write(true)
		m.data = beatValid
	case beatValid:
		if s.WValid.Read() && s.WReady.Read() {
			s.WValid.Write(false)
			m.data = beatDone
		}
	}
}

func (m *Master) stepReadAddr(s *Signals) {
	switch m.addr {
	case beatDelay:
		if m.aDelay > 0 {
			m.aDelay--
			return
		}
		s.ARAddr.Write(m.txn.Addr)
		s.ARProt.Write(m.txn.Prot)
		s.ARValid.Write(true)
		m.addr = beatValid
	case beatValid:
		if s.ARValid.Read() && s.ARReady.Read() {
			s.ARValid.Write(false)
			m.addr = beatDone
		}
	}
}
