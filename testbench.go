// testbench.go - RTL testbench generation from the bridge's transactions

/*
License: GPLv3 or later
*/

package main

import (
	"bufio"
	"fmt"
	"io"
)

// TestbenchWriter records every AXI transaction as VHDL stimulus so the
// same traffic can be replayed against the RTL of the slave.
type TestbenchWriter struct {
	w      *bufio.Writer
	runBit uint32
	base   uint32
	opened bool
}

func NewTestbenchWriter(w io.Writer, base, runBit uint32) *TestbenchWriter {
	return &TestbenchWriter{w: bufio.NewWriter(w), base: base, runBit: runBit}
}

func (tb *TestbenchWriter) head() {
	fmt.Fprint(tb.w, `library ieee;
use ieee.std_logic_1164.all;
use ieee.numeric_std.all;
use std.textio.all;

entity tb_axislave is
end tb_axislave;

architecture behavior of tb_axislave is
	constant AXI_ACLK_period     : time := 10 ns;
	constant simulation_interval : time := 20 ns;

	signal axi_aclk    : std_logic := '0';
	signal axi_aresetn : std_logic := '0';
	signal address     : std_logic_vector(31 downto 0) := (others => '0');
	signal write_data  : std_logic_vector(31 downto 0) := (others => '0');
	signal read_data   : std_logic_vector(31 downto 0);
	signal rnw         : std_logic := '0';
	signal go          : std_logic := '0';
	signal done        : std_logic;
	signal busy        : std_logic;
	signal interrupt_request : std_logic;
begin
	axi_aclk <= not axi_aclk after AXI_ACLK_period / 2;

	stimulus : process
		variable my_line : line;
	begin
		axi_aresetn <= '0';
		wait for AXI_ACLK_period * 2;
		axi_aresetn <= '1';
		wait for AXI_ACLK_period;
`)
	tb.opened = true
}

func (tb *TestbenchWriter) stimulus(addr, data uint32, rnw byte) {
	if !tb.opened {
		tb.head()
	}
	kind := "write"
	if rnw == '1' {
		kind = "read"
	}
	fmt.Fprintf(tb.w, "\n\t\t-- Generate a %s transaction\n", kind)
	fmt.Fprintf(tb.w, "\t\taddress    <= X\"%08x\";\n", addr)
	fmt.Fprintf(tb.w, "\t\twrite_data <= X\"%08x\";\n", data)
	fmt.Fprintf(tb.w, "\t\trnw        <= '%c';\n", rnw)
	fmt.Fprintf(tb.w, "\t\tgo         <= '1';\n")
	fmt.Fprintf(tb.w, "\t\twait for AXI_ACLK_period;\n")
	fmt.Fprintf(tb.w, "\t\twait until done = '1';\n")
	fmt.Fprintf(tb.w, "\t\tgo         <= '0';\n")
	fmt.Fprintf(tb.w, "\t\twait for AXI_ACLK_period;\n")
	fmt.Fprintf(tb.w, "\t\taddress    <= X\"00000000\";\n\n")
	fmt.Fprintf(tb.w, "\t\twait for AXI_ACLK_period;\n")
	fmt.Fprintf(tb.w, "\t\twait for simulation_interval;\n")
}

func (tb *TestbenchWriter) message(msg string) {
	fmt.Fprintf(tb.w, "\t\twrite(my_line, string'(\"%s\"));\n", msg)
	fmt.Fprintf(tb.w, "\t\twriteline(output, my_line);\n")
}

func (tb *TestbenchWriter) WriteTransaction(addr, data uint32) {
	tb.stimulus(addr, data, '0')
	if addr == tb.base && data&tb.runBit != 0 {
		fmt.Fprintln(tb.w)
		tb.message("IP starts")
		fmt.Fprintf(tb.w, "\n\t\twait until interrupt_request = '1';\n")
		tb.message("IP finished")
	}
}

// ReadTransaction records the request only; the RTL provides the data.
func (tb *TestbenchWriter) ReadTransaction(addr, _ uint32) {
	tb.stimulus(addr, 0, '1')
}

// Close writes the tail and flushes.
func (tb *TestbenchWriter) Close() error {
	if !tb.opened {
		tb.head()
	}
	fmt.Fprintln(tb.w)
	tb.message("Simulation ends")
	fmt.Fprint(tb.w, `
		-- end of stimuli. give some time to finish up.
		wait for simulation_interval * 5;

		wait;
	end process stimulus;

	ibridge : entity work.axi_lite_master
		port map(
			axi_aclk          => axi_aclk,
			axi_aresetn       => axi_aresetn,
			address           => address,
			write_data        => write_data,
			read_data         => read_data,
			rnw               => rnw,
			go                => go,
			done              => done,
			busy              => busy,
			interrupt_request => interrupt_request
		);
end behavior;
`)
	return tb.w.Flush()
}
