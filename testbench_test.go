package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestTestbenchWriter_Transactions(t *testing.T) {
	var buf bytes.Buffer
	tb := NewTestbenchWriter(&buf, SYS_AXI_BASE, 0x80)

	tb.WriteTransaction(SYS_AXI_BASE+0x10000, 'H')
	tb.WriteTransaction(SYS_AXI_BASE, 0x80)
	tb.ReadTransaction(SYS_AXI_BASE+0x40000, 'H')
	if err := tb.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"entity tb_axislave is",
		"address    <= X\"60010000\";\n\t\twrite_data <= X\"00000048\";\n\t\trnw        <= '0';",
		"address    <= X\"60040000\";\n\t\twrite_data <= X\"00000000\";\n\t\trnw        <= '1';",
		"wait until interrupt_request = '1';",
		"entity work.axi_lite_master",
		"end behavior;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("testbench lacks %q", want)
		}
	}
	if n := strings.Count(out, "IP starts"); n != 1 {
		t.Fatalf("%d run blocks, expected 1", n)
	}
	if strings.Index(out, "IP starts") > strings.Index(out, "X\"60040000\"") {
		t.Fatal("run block not emitted after the run write")
	}
	if strings.Count(out, "-- Generate a write transaction") != 2 || strings.Count(out, "-- Generate a read transaction") != 1 {
		t.Fatal("wrong number of transactions")
	}
}

func TestTestbenchWriter_StopWriteHasNoWait(t *testing.T) {
	var buf bytes.Buffer
	tb := NewTestbenchWriter(&buf, SYS_AXI_BASE, 0x80)
	tb.WriteTransaction(SYS_AXI_BASE, 0)
	tb.WriteTransaction(SYS_AXI_BASE+4, 0x80)
	tb.Close()

	if strings.Contains(buf.String(), "interrupt_request = '1'") {
		t.Fatal("non-run writes produced an interrupt wait")
	}
}

func TestTestbenchWriter_EmptyIsComplete(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTestbenchWriter(&buf, SYS_AXI_BASE, 0x80).Close(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "library ieee;") || !strings.HasSuffix(out, "end behavior;\n") {
		t.Fatalf("incomplete testbench:\n%s", out)
	}
}
