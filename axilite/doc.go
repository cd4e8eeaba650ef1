// doc.go - Package documentation for the AXI4-Lite slave model

/*
License: GPLv3 or later
*/

/*
Package axilite models a simplified AXI4-Lite slave interface in front of a
memory-mapped peripheral: a bank of sixteen registers, an input and an output
byte buffer, and an interrupt line raised when the peripheral finishes its
computation.

The model is clock synchronous. Every clocked process (the five channel state
machines, the two device procedures and the reference bus master) is advanced
once per tick by the Simulator. Signal writes are staged and only become
visible to other processes on the following tick, the classic two-phase
update of a hardware simulator:

	sim, err := axilite.NewSimulator(axilite.DefaultConfig())
	if err != nil {
		return err
	}
	sim.Write(axilite.DEFAULT_AXI_BASE+axilite.DEFAULT_IPIN_OFFSET, 'A', axilite.STRB_ALL)
	sim.Write(axilite.DEFAULT_AXI_BASE, 0x80, axilite.STRB_ALL)
	sim.WaitIRQ(16)

Combinational logic (the write-valid AND gate) settles after the clocked
processes have committed, in the same tick, like a SystemC method sensitive
to its inputs.

The processes never time out and never return errors. A transaction that
violates the handshake rules simply stalls; the Simulator offers a watchdog
so that a stalled testbench run is reported instead of hanging forever.
*/
package axilite
