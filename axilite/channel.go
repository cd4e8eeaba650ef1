// channel.go - Address and write-data channel state machines

/*
License: GPLv3 or later
*/

package axilite

// Process is a clocked state machine. Step runs once per tick with the
// values committed at the end of the previous tick; Reset runs instead of
// Step while resetn is low.
type Process interface {
	Name() string
	Reset(s *Signals)
	Step(s *Signals)
}

// Method is combinational logic re-evaluated after every commit.
type Method interface {
	Name() string
	Eval(s *Signals)
}

type captureState uint8

const (
	// READY_HIGH: first tick after reset, raise ready.
	captureReadyHigh captureState = iota
	// AWAIT_VALID: ready has been visible for at least one tick.
	captureAwaitValid
	// CAPTURE: value registered, waiting for the device to drop its
	// acknowledgement before notifying it.
	captureHeld
	// AWAIT_DEVICE_READY: notify asserted until the device acknowledges.
	captureAwaitDevice
)

func (st captureState) String() string {
	switch st {
	case captureReadyHigh:
		return "READY_HIGH"
	case captureAwaitValid:
		return "AWAIT_VALID"
	case captureHeld:
		return "CAPTURE"
	case captureAwaitDevice:
		return "AWAIT_DEVICE_READY"
	}
	return "?"
}

// captureChannel is the slow-slave handshake shared by the write address,
// write data and read address channels. A transfer needs at least two
// ticks: ready stays high for one full tick before valid is sampled and is
// dropped for at least one tick after the capture.
type captureChannel struct {
	name    string
	valid   func(*Signals) *Signal[bool]
	ready   func(*Signals) *Signal[bool]
	notify  func(*Signals) *Signal[bool]
	ack     func(*Signals) *Signal[bool]
	capture func(*Signals)
	clear   func(*Signals)

	state    captureState
	captures uint64
}

func (c *captureChannel) Name() string { return c.name }

// State reports the current state name.
func (c *captureChannel) State() string { return c.state.String() }

// Captures is the number of values accepted since construction.
func (c *captureChannel) Captures() uint64 { return c.captures }

func (c *captureChannel) Reset(s *Signals) {
	c.clear(s)
	c.ready(s).Write(false)
	c.notify(s).Write(false)
	c.state = captureReadyHigh
}

func (c *captureChannel) Step(s *Signals) {
	switch c.state {
	case captureReadyHigh:
		c.ready(s).Write(true)
		c.state = captureAwaitValid

	case captureAwaitValid:
		if !c.valid(s).Read() {
			return
		}
		c.ready(s).Write(false)
		c.capture(s)
		c.captures++
		c.state = captureHeld

	case captureHeld:
		// The device may still be acknowledging the previous transaction.
		if c.ack(s).Read() {
			return
		}
		c.notify(s).Write(true)
		c.state = captureAwaitDevice

	case captureAwaitDevice:
		if !c.ack(s).Read() {
			return
		}
		c.notify(s).Write(false)
		c.ready(s).Write(true)
		c.state = captureAwaitValid
	}
}

// AddressChannel registers a bus address, translated to the device-local
// space, together with its protection bits.
type AddressChannel struct {
	captureChannel
}

// NewWriteAddressChannel builds the AW channel. It notifies the device
// through the write-valid combiner and waits for s_ip_wready.
func NewWriteAddressChannel(cfg Config) *AddressChannel {
	return &AddressChannel{captureChannel{
		name:   "aw",
		valid:  func(s *Signals) *Signal[bool] { return s.AWValid },
		ready:  func(s *Signals) *Signal[bool] { return s.AWReady },
		notify: func(s *Signals) *Signal[bool] { return s.AWValidAux },
		ack:    func(s *Signals) *Signal[bool] { return s.IPWReady },
		capture: func(s *Signals) {
			s.IPWAddr.Write(cfg.Translate(s.AWAddr.Read()))
			s.IPWProt.Write(s.AWProt.Read())
		},
		clear: func(s *Signals) {
			s.IPWAddr.Write(0)
			s.IPWProt.Write(0)
		},
	}}
}

// NewReadAddressChannel builds the AR channel. Its notification is the
// device read request s_ip_rready, acknowledged by s_ip_rvalid.
func NewReadAddressChannel(cfg Config) *AddressChannel {
	return &AddressChannel{captureChannel{
		name:   "ar",
		valid:  func(s *Signals) *Signal[bool] { return s.ARValid },
		ready:  func(s *Signals) *Signal[bool] { return s.ARReady },
		notify: func(s *Signals) *Signal[bool] { return s.IPRReady },
		ack:    func(s *Signals) *Signal[bool] { return s.IPRValid },
		capture: func(s *Signals) {
			s.IPRAddr.Write(cfg.Translate(s.ARAddr.Read()))
			s.IPRProt.Write(s.ARProt.Read())
		},
		clear: func(s *Signals) {
			s.IPRAddr.Write(0)
			s.IPRProt.Write(0)
		},
	}}
}

// WriteDataChannel registers write data and its byte strobe together.
type WriteDataChannel struct {
	captureChannel
}

func NewWriteDataChannel() *WriteDataChannel {
	return &WriteDataChannel{captureChannel{
		name:   "w",
		valid:  func(s *Signals) *Signal[bool] { return s.WValid },
		ready:  func(s *Signals) *Signal[bool] { return s.WReady },
		notify: func(s *Signals) *Signal[bool] { return s.WValidAux },
		ack:    func(s *Signals) *Signal[bool] { return s.IPWReady },
		capture: func(s *Signals) {
			s.IPWData.Write(s.WData.Read())
			s.IPWStrb.Write(s.WStrb.Read())
		},
		clear: func(s *Signals) {
			s.IPWData.Write(0)
			s.IPWStrb.Write(STRB_NONE)
		},
	}}
}

// WriteValidCombiner drives the device's single write-valid from the two
// aux flags. It holds no state.
type WriteValidCombiner struct{}

func (WriteValidCombiner) Name() string { return "write_method" }

func (WriteValidCombiner) Eval(s *Signals) {
	s.IPWValid.Write(CombineWriteValid(s.AWValidAux.Read(), s.WValidAux.Read()))
}

// CombineWriteValid is the AND gate between the address and data aux flags.
func CombineWriteValid(addrAux, dataAux bool) bool {
	return addrAux && dataAux
}
