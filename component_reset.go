// component_reset.go - Reset() methods for the machine and its devices

/*
License: GPLv3 or later
*/

package main

// AXIBridge.Reset forgets a failed transaction so a rerun can use the bus.
func (br *AXIBridge) Reset() {
	br.mu.Lock()
	br.err = nil
	br.mu.Unlock()
	br.writes = 0
	br.reads = 0
}

// InterruptController.Reset masks and clears everything.
func (ic *InterruptController) Reset() {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	ic.line = false
	ic.pending = 0
	ic.enable = 0
	ic.edges = 0
}

// Console.Reset clears the halt request.
func (c *Console) Reset() {
	c.halted = false
}

// FileMemory.Reset zeroes the memory.
func (m *FileMemory) Reset() {
	clear(m.data)
}

// Machine.Reset restores the whole system to its power-on state: RAM and
// memories cleared, input files reloaded, devices reset and the slave taken
// through its reset sequence.
// Preserves: bus mappings, OnTick observers, transaction sinks.
func (m *Machine) Reset() error {
	m.Bus.Reset()
	m.RFile.Reset()
	m.WFile.Reset()
	m.RWNum.Reset()
	m.Console.Reset()
	m.Bridge.Reset()

	if err := m.LoadFiles(); err != nil {
		return err
	}
	if err := m.Sim.Reset(); err != nil {
		return err
	}
	// The first reset tick still samples the old interrupt line.
	m.IRQC.Reset()
	return nil
}
