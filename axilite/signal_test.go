package axilite

import "testing"

func TestSignal_WriteInvisibleUntilCommit(t *testing.T) {
	sig := newSignal[bool]("x", 1)
	sig.Write(true)
	if sig.Read() {
		t.Fatal("write visible before commit")
	}
	if !sig.update() {
		t.Fatal("update reported no change")
	}
	if !sig.Read() {
		t.Fatal("write not visible after commit")
	}
	if sig.update() {
		t.Fatal("second update without write reported a change")
	}
}

func TestSignal_LastWriteWins(t *testing.T) {
	sig := newSignal[uint64]("v", 32)
	sig.Write(1)
	sig.Write(2)
	sig.update()
	if got := sig.Read(); got != 2 {
		t.Fatalf("Read() = %d, expected 2", got)
	}
}

func TestSignal_WidthMask(t *testing.T) {
	sig := newSignal[uint64]("strb", 4)
	sig.Write(0xFF)
	sig.update()
	if got := sig.Bits(); got != 0xF {
		t.Fatalf("Bits() = 0x%X, expected 0xF", got)
	}
}

func TestSignals_LookupAndAll(t *testing.T) {
	s := NewSignals(DefaultConfig())
	tr, ok := s.Lookup("s_axi_wstrb")
	if !ok {
		t.Fatal("s_axi_wstrb not registered")
	}
	if tr.Width() != 4 {
		t.Fatalf("s_axi_wstrb width %d, expected 4", tr.Width())
	}
	seen := make(map[string]bool)
	for _, sig := range s.All() {
		if seen[sig.Name()] {
			t.Fatalf("duplicate signal %q", sig.Name())
		}
		seen[sig.Name()] = true
	}
	if _, ok := s.Lookup("nope"); ok {
		t.Fatal("Lookup found an unknown signal")
	}
}

func TestCombineWriteValid(t *testing.T) {
	tests := []struct {
		addr, data, want bool
	}{
		{false, false, false},
		{true, false, false},
		{false, true, false},
		{true, true, true},
	}
	for _, tc := range tests {
		if got := CombineWriteValid(tc.addr, tc.data); got != tc.want {
			t.Errorf("CombineWriteValid(%v, %v) = %v, expected %v", tc.addr, tc.data, got, tc.want)
		}
	}
}

// The combiner output must follow its inputs within the same tick.
func TestCombiner_SettlesInSameTick(t *testing.T) {
	s := NewSignals(DefaultConfig())
	s.AWValidAux.Write(true)
	s.WValidAux.Write(true)
	s.commit()
	WriteValidCombiner{}.Eval(s)
	s.commit()
	if !s.IPWValid.Read() {
		t.Fatal("s_ip_wvalid not raised after both aux flags")
	}
	s.WValidAux.Write(false)
	s.commit()
	WriteValidCombiner{}.Eval(s)
	s.commit()
	if s.IPWValid.Read() {
		t.Fatal("s_ip_wvalid still high with one aux flag low")
	}
}
