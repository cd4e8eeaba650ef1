package axilite

import "testing"

// A device that keeps rvalid high after the beat was taken must not get the
// same request served a second time.
func TestReadDataChannel_WaitsForDeviceToDrop(t *testing.T) {
	s := NewSignals(DefaultConfig())
	c := NewReadDataChannel()
	c.Reset(s)
	s.commit()
	step := func() {
		c.Step(s)
		s.commit()
	}

	s.IPRValid.Write(true)
	s.IPRData.Write(0x5A)
	s.RReady.Write(true)
	s.commit()

	step()
	if !s.RValid.Read() || s.RData.Read() != 0x5A {
		t.Fatalf("rvalid=%v rdata=0x%X, expected the device data on the bus", s.RValid.Read(), s.RData.Read())
	}
	step()
	if s.RValid.Read() {
		t.Fatal("rvalid still high after the master took the beat")
	}
	if c.Reads() != 1 {
		t.Fatalf("%d beats taken, expected 1", c.Reads())
	}

	for i := range 5 {
		step()
		if s.RValid.Read() {
			t.Fatalf("beat served again %d ticks after handshake while device rvalid stayed high", i+1)
		}
	}

	s.IPRValid.Write(false)
	s.commit()
	step()

	s.IPRValid.Write(true)
	s.IPRData.Write(0x33)
	s.commit()
	step()
	if !s.RValid.Read() || s.RData.Read() != 0x33 {
		t.Fatalf("rvalid=%v rdata=0x%X, expected the next request served once the device dropped rvalid", s.RValid.Read(), s.RData.Read())
	}
	if c.Reads() != 1 {
		t.Fatalf("%d beats taken, expected 1 before the second handshake", c.Reads())
	}
}
