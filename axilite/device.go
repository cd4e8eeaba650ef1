// device.go - Register bank, I/O buffers and interrupt of the peripheral

/*
License: GPLv3 or later
*/

package axilite

// Direction of a bus transaction.
type Direction int

const (
	Read Direction = iota
	Write
)

func (d Direction) String() string {
	if d == Write {
		return "write"
	}
	return "read"
}

// Access describes one device-side access once it has been performed.
type Access struct {
	Dir    Direction
	Addr   uint64 // device-local address
	Region Region
	Index  uint64
	Value  uint64 // value stored or returned
	Strobe uint64
	// Compute is set on a register-0 write that started the computation.
	Compute bool
}

type devWriteState uint8

const (
	devWriteAwaitValid devWriteState = iota
	devWriteCompute
	devWriteAck
)

type devReadState uint8

const (
	devReadAwaitRequest devReadState = iota
	devReadAck
)

// Device is the peripheral behind the simplified interface. It owns the
// register file, both buffers and the interrupt line; nothing else mutates
// them. The write and read procedures are independent state machines.
type Device struct {
	cfg Config

	regs [NUM_REGISTERS]uint64
	in   []byte
	out  []byte

	wstate devWriteState
	rstate devReadState

	writes uint64
	reads  uint64

	// Trace, when set, is called after every completed access.
	Trace func(Access)
}

func NewDevice(cfg Config) *Device {
	return &Device{
		cfg: cfg,
		in:  make([]byte, cfg.InSize),
		out: make([]byte, cfg.OutSize),
	}
}

// WriteProcess and ReadProcess expose the two device procedures so they can
// be scheduled as separate clocked processes.
func (d *Device) WriteProcess() Process { return deviceWriter{d} }
func (d *Device) ReadProcess() Process  { return deviceReader{d} }

// Register returns register i without side effects.
func (d *Device) Register(i int) uint64 { return d.regs[i] }

// Registers returns a snapshot of the register file.
func (d *Device) Registers() [NUM_REGISTERS]uint64 { return d.regs }

// InputBuffer returns a copy of the input buffer.
func (d *Device) InputBuffer() []byte { return append([]byte(nil), d.in...) }

// OutputBuffer returns a copy of the output buffer.
func (d *Device) OutputBuffer() []byte { return append([]byte(nil), d.out...) }

// Writes and Reads count performed accesses, mapped or not.
func (d *Device) Writes() uint64 { return d.writes }
func (d *Device) Reads() uint64  { return d.reads }

// clearState zeroes the register file and buffers.
func (d *Device) clearState() {
	d.regs = [NUM_REGISTERS]uint64{}
	clear(d.in)
	clear(d.out)
}

// laneMask expands a strobe into a byte-lane bit mask.
func laneMask(strobe uint64, lanes uint64) uint64 {
	var m uint64
	for i := uint64(0); i < lanes; i++ {
		if strobe&(1<<i) != 0 {
			m |= 0xFF << (8 * i)
		}
	}
	return m
}

// MergeStrobe replaces the strobed byte lanes of old with those of data.
func MergeStrobe(old, data, strobe uint64, lanes uint64) uint64 {
	m := laneMask(strobe, lanes)
	return (old &^ m) | (data & m)
}

// compute is the device's computation: copy the input buffer to the output.
func (d *Device) compute() {
	copy(d.out, d.in)
}

// write performs the access and reports whether it started the computation
// and, if it touched register 0 without doing so, that the IRQ must drop.
func (d *Device) write(addr, data, strobe uint64) (start, stop bool) {
	lanes := d.cfg.WordBytes()
	region, idx := d.cfg.Decode(addr)
	a := Access{Dir: Write, Addr: addr, Region: region, Index: idx, Strobe: strobe}

	switch region {
	case RegionRegisters:
		v := MergeStrobe(d.regs[idx], data, strobe, lanes) & d.cfg.dataMask()
		d.regs[idx] = v
		a.Value = v
		if idx == 0 {
			if v&d.cfg.RunBit != 0 {
				d.compute()
				start = true
			} else {
				stop = true
			}
		}
	case RegionInput:
		b := byte(MergeStrobe(uint64(d.in[idx]), data, strobe, 1))
		d.in[idx] = b
		a.Value = uint64(b)
	case RegionOutput, RegionUnmapped:
		// Read-only or unmapped: accepted as a no-op.
	}

	a.Compute = start
	d.writes++
	if d.Trace != nil {
		d.Trace(a)
	}
	return start, stop
}

func (d *Device) read(addr uint64) uint64 {
	region, idx := d.cfg.Decode(addr)
	var v uint64
	switch region {
	case RegionRegisters:
		v = d.regs[idx]
	case RegionOutput:
		v = uint64(d.out[idx])
	}
	d.reads++
	if d.Trace != nil {
		d.Trace(Access{Dir: Read, Addr: addr, Region: region, Index: idx, Value: v})
	}
	return v
}

type deviceWriter struct{ d *Device }

func (w deviceWriter) Name() string { return "ip_write" }

func (w deviceWriter) Reset(s *Signals) {
	s.IPWReady.Write(false)
	s.IRQ.Write(false)
	if w.d.cfg.ClearOnReset {
		w.d.clearState()
	}
	w.d.wstate = devWriteAwaitValid
}

func (w deviceWriter) Step(s *Signals) {
	d := w.d
	switch d.wstate {
	case devWriteAwaitValid:
		s.IPWReady.Write(false)
		if !s.IPWValid.Read() {
			return
		}
		start, stop := d.write(s.IPWAddr.Read(), s.IPWData.Read(), s.IPWStrb.Read())
		if start {
			// The computed values settle for one tick before the IRQ rises.
			d.wstate = devWriteCompute
			return
		}
		if stop {
			s.IRQ.Write(false)
		}
		s.IPWReady.Write(true)
		d.wstate = devWriteAck

	case devWriteCompute:
		s.IRQ.Write(true)
		s.IPWReady.Write(true)
		d.wstate = devWriteAck

	case devWriteAck:
		if s.IPWValid.Read() {
			return
		}
		s.IPWReady.Write(false)
		d.wstate = devWriteAwaitValid
	}
}

type deviceReader struct{ d *Device }

func (r deviceReader) Name() string { return "ip_read" }

func (r deviceReader) Reset(s *Signals) {
	s.IPRValid.Write(false)
	s.IPRData.Write(0)
	r.d.rstate = devReadAwaitRequest
}

func (r deviceReader) Step(s *Signals) {
	d := r.d
	switch d.rstate {
	case devReadAwaitRequest:
		s.IPRValid.Write(false)
		if !s.IPRReady.Read() {
			return
		}
		s.IPRData.Write(d.read(s.IPRAddr.Read()))
		s.IPRValid.Write(true)
		d.rstate = devReadAck

	case devReadAck:
		if s.IPRReady.Read() {
			return
		}
		s.IPRValid.Write(false)
		d.rstate = devReadAwaitRequest
	}
}
