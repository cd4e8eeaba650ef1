// slave.go - AXI4-Lite slave: the five channels, the combiner and the device

/*
License: GPLv3 or later
*/

package axilite

// Slave wires the channel processes to the device. All of them share the
// simulator's *Signals; the slave itself holds no signal state.
type Slave struct {
	AW       *AddressChannel
	W        *WriteDataChannel
	B        *WriteResponseChannel
	AR       *AddressChannel
	R        *ReadDataChannel
	Combiner WriteValidCombiner
	Device   *Device
}

func NewSlave(cfg Config) *Slave {
	return &Slave{
		AW:     NewWriteAddressChannel(cfg),
		W:      NewWriteDataChannel(),
		B:      NewWriteResponseChannel(),
		AR:     NewReadAddressChannel(cfg),
		R:      NewReadDataChannel(),
		Device: NewDevice(cfg),
	}
}

// Processes lists the clocked processes in no particular order; the
// two-phase signal update makes their evaluation order irrelevant.
func (sl *Slave) Processes() []Process {
	return []Process{
		sl.AW,
		sl.W,
		sl.B,
		sl.AR,
		sl.R,
		sl.Device.WriteProcess(),
		sl.Device.ReadProcess(),
	}
}

// Methods lists the combinational logic.
func (sl *Slave) Methods() []Method {
	return []Method{sl.Combiner}
}
