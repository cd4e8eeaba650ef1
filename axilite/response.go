// response.go - Write response and read data channel state machines

/*
License: GPLv3 or later
*/

package axilite

type respState uint8

const (
	respTop respState = iota
	respLatch
	respAwaitReady
)

// WriteResponseChannel issues one OKAY response per write. It waits until
// awvalid, awready, wvalid and wready have each been seen high, not
// necessarily on the same tick. The four flags are sticky: they are only
// re-sampled at the top of the channel's loop, after the previous response
// has been accepted.
type WriteResponseChannel struct {
	awValid bool
	awReady bool
	wValid  bool
	wReady  bool

	state     respState
	responses uint64
}

func NewWriteResponseChannel() *WriteResponseChannel {
	return &WriteResponseChannel{}
}

func (c *WriteResponseChannel) Name() string { return "b" }

// Responses is the number of responses accepted by the master.
func (c *WriteResponseChannel) Responses() uint64 { return c.responses }

// Flags exposes the sticky flags in awvalid, awready, wvalid, wready order.
func (c *WriteResponseChannel) Flags() [4]bool {
	return [4]bool{c.awValid, c.awReady, c.wValid, c.wReady}
}

func (c *WriteResponseChannel) Reset(s *Signals) {
	s.BValid.Write(false)
	s.BResp.Write(AXI_RESP_OKAY)
	c.awValid, c.awReady, c.wValid, c.wReady = false, false, false, false
	c.state = respTop
}

func (c *WriteResponseChannel) Step(s *Signals) {
	switch c.state {
	case respTop:
		c.top(s)

	case respLatch:
		if s.AWValid.Read() {
			c.awValid = true
		}
		if s.AWReady.Read() {
			c.awReady = true
		}
		if s.WValid.Read() {
			c.wValid = true
		}
		if s.WReady.Read() {
			c.wReady = true
		}
		if c.complete() {
			c.respond(s)
		}

	case respAwaitReady:
		if !s.BReady.Read() {
			return
		}
		s.BValid.Write(false)
		c.responses++
		c.top(s)
	}
}

// top is the single point where the sticky flags are reset: they are
// overwritten with the signals as they are now.
func (c *WriteResponseChannel) top(s *Signals) {
	c.awValid = s.AWValid.Read()
	c.awReady = s.AWReady.Read()
	c.wValid = s.WValid.Read()
	c.wReady = s.WReady.Read()
	if c.complete() {
		c.respond(s)
		return
	}
	c.state = respLatch
}

func (c *WriteResponseChannel) complete() bool {
	return c.awValid && c.awReady && c.wValid && c.wReady
}

func (c *WriteResponseChannel) respond(s *Signals) {
	s.BValid.Write(true)
	s.BResp.Write(AXI_RESP_OKAY)
	c.state = respAwaitReady
}

type readState uint8

const (
	readIdle readState = iota
	readValid
	readDrain
)

// ReadDataChannel copies the device's read data onto the bus and holds
// rvalid until the master takes it. It then waits for the device to drop
// its own valid so a request is never served twice.
type ReadDataChannel struct {
	state readState
	reads uint64
}

func NewReadDataChannel() *ReadDataChannel {
	return &ReadDataChannel{}
}

func (c *ReadDataChannel) Name() string { return "r" }

// Reads is the number of read beats accepted by the master.
func (c *ReadDataChannel) Reads() uint64 { return c.reads }

func (c *ReadDataChannel) Reset(s *Signals) {
	s.RResp.Write(AXI_RESP_OKAY)
	s.RValid.Write(false)
	s.RData.Write(0)
	c.state = readIdle
}

func (c *ReadDataChannel) Step(s *Signals) {
	switch c.state {
	case readIdle:
		if !s.IPRValid.Read() {
			return
		}
		s.RData.Write(s.IPRData.Read())
		s.RResp.Write(AXI_RESP_OKAY)
		s.RValid.Write(true)
		c.state = readValid

	case readValid:
		if !s.RReady.Read() {
			return
		}
		s.RValid.Write(false)
		c.reads++
		if s.IPRValid.Read() {
			c.state = readDrain
			return
		}
		c.state = readIdle

	case readDrain:
		if s.IPRValid.Read() {
			return
		}
		c.state = readIdle
	}
}
