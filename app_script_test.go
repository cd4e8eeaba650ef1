package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/intuitionamiga/axislave/axilite"
)

func runScript(t *testing.T, m *Machine, src string) error {
	t.Helper()
	host := NewAppHost(m)
	defer host.Close()
	return host.Run(context.Background(), "test.lua", src)
}

func TestAppHost_DefaultApplication(t *testing.T) {
	for _, width := range []int{32, 64} {
		t.Run(map[int]string{32: "32bit", 64: "64bit"}[width], func(t *testing.T) {
			var out bytes.Buffer
			m := newTestMachine(t, MachineOptions{
				RFile: writeTestFile(t, "rfile.txt", "Hello world!"),
				RWNum: writeTestFile(t, "rwnum.txt", "1\n2\n3\n"),
				Out:   &out,
			}, func(c *axilite.Config) { c.DataWidth = width })

			host := NewAppHost(m)
			defer host.Close()
			if err := host.RunFile(context.Background(), ""); err != nil {
				t.Fatalf("RunFile: %v\noutput:\n%s", err, out.String())
			}

			if !m.Console.Halted() {
				t.Fatal("application did not halt")
			}
			if got := string(m.WFile.Bytes()[:13]); got != "Hello world!\x00" {
				t.Fatalf("wfile = %q, expected \"Hello world!\\x00\"", got)
			}
			for i, want := range []uint32{3, 6, 9, 0} {
				if got := m.Bus.Read32(SYS_RWNUM_RAM_BASE + uint32(4*i)); got != want {
					t.Errorf("rwnum[%d] = %d, expected %d", i, got, want)
				}
			}
			if m.IRQC.Edges() != 1 {
				t.Fatalf("%d interrupt edges, expected 1", m.IRQC.Edges())
			}
			if m.Sim.IRQ() {
				t.Fatal("interrupt still raised after the handler stopped the IP")
			}
			for _, want := range []string{
				"Software begins",
				"Hello world!",
				"Found end of line at i = 12",
				"IRQ received",
				"EVERYTHING IS DONE",
			} {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output lacks %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestAppHost_HaltEndsScript(t *testing.T) {
	m := newTestMachine(t, MachineOptions{})
	err := runScript(t, m, `
		halt()
		error("unreachable")
	`)
	if err != nil {
		t.Fatalf("Run = %v, expected nil", err)
	}
	if !m.Console.Halted() {
		t.Fatal("console not halted")
	}
}

func TestAppHost_ScriptError(t *testing.T) {
	m := newTestMachine(t, MachineOptions{})
	err := runScript(t, m, `error("boom")`)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Run = %v, expected an error mentioning boom", err)
	}
	if !strings.HasPrefix(err.Error(), "test.lua") {
		t.Fatalf("error %q does not name the script", err)
	}
}

func TestAppHost_InterruptHandler(t *testing.T) {
	m := newTestMachine(t, MachineOptions{})
	err := runScript(t, m, `
		local calls = 0
		on_irq(function()
			calls = calls + 1
			write32(mmap.SYS_AXI_BASE, 0)
		end)
		enable_irq()
		write32(mmap.SYS_AXI_BASE, mmap.RUN_BIT)
		assert(wait_irq(50), "no interrupt")
		tick(20)
		assert(calls == 1, "handler ran " .. calls .. " times")
		assert(read32(mmap.SYS_IRQC_BASE + mmap.IRQC_STATUS) == 0, "interrupt left pending")
	`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestAppHost_DisabledInterruptStaysPending(t *testing.T) {
	m := newTestMachine(t, MachineOptions{})
	err := runScript(t, m, `
		local calls = 0
		on_irq(function() calls = calls + 1 end)
		write32(mmap.SYS_AXI_BASE, mmap.RUN_BIT)
		assert(wait_irq(30) == false, "wait_irq returned with interrupts disabled")
		assert(calls == 0, "handler ran while disabled")
		assert(read32(mmap.SYS_IRQC_BASE + mmap.IRQC_STATUS) == 1, "edge not latched")
		enable_irq()
		assert(calls == 1, "handler did not run once enabled")
	`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestAppHost_MemoryMapTable(t *testing.T) {
	m := newTestMachine(t, MachineOptions{})
	err := runScript(t, m, `
		assert(mmap.SYS_AXI_BASE == 0x60000000)
		assert(mmap.IPIN_OFFSET == 0x10000)
		assert(mmap.IPOUT_OFFSET == 0x40000)
		assert(mmap.WORD_BYTES == 4)
		assert(mmap.RFILE_SIZE == 256)
		assert(mmap.SYS_RWNUM_RAM_SIZE == 10)
	`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestAppHost_TickAndNow(t *testing.T) {
	m := newTestMachine(t, MachineOptions{})
	err := runScript(t, m, `
		local t0 = now()
		tick(7)
		assert(now() - t0 == 7, "tick(7) advanced " .. (now() - t0))
		tick()
		assert(now() - t0 == 8)
	`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestAppHost_BusFailureAbortsScript(t *testing.T) {
	m := newTestMachine(t, MachineOptions{}, func(c *axilite.Config) { c.Watchdog = 2 })
	err := runScript(t, m, `
		write32(mmap.SYS_AXI_BASE, 1)
		error("kept running")
	`)
	if err == nil || !strings.Contains(err.Error(), "watchdog") {
		t.Fatalf("Run = %v, expected a watchdog error", err)
	}
}

func TestAppHost_Cancel(t *testing.T) {
	m := newTestMachine(t, MachineOptions{})
	host := NewAppHost(m)
	defer host.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := host.Run(ctx, "spin.lua", `while true do end`)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, expected context.Canceled", err)
	}
}

func TestAppHost_SandboxedLibraries(t *testing.T) {
	m := newTestMachine(t, MachineOptions{})
	err := runScript(t, m, `
		assert(os == nil, "os library loaded")
		assert(io == nil, "io library loaded")
		for _, name in ipairs({"dofile", "loadfile", "load", "loadstring", "require", "module", "package"}) do
			assert(_G[name] == nil, name .. " reachable")
		end
		assert(string.format("%d", 3) == "3")
	`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}
