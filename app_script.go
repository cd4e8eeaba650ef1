// app_script.go - Lua host for the embedded test application

/*
License: GPLv3 or later
*/

package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

//go:embed app.lua
var defaultApp string

const appHaltMessage = "application halted"

// AppHost runs an application script against the machine. Scripts see the
// processor side of the system: bus accesses, the interrupt controller and
// the debug console. Interrupts are delivered between bus operations, the
// way a CPU takes them between instructions.
type AppHost struct {
	m       *Machine
	bus     Bus32
	L       *lua.LState
	handler *lua.LFunction
	inIRQ   bool
}

func NewAppHost(m *Machine) *AppHost {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.fn), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			panic(err)
		}
	}
	// No way back to the host filesystem.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "package"} {
		L.SetGlobal(name, lua.LNil)
	}
	h := &AppHost{m: m, bus: m.Bus, L: L}
	h.register()
	return h
}

func (h *AppHost) Close() { h.L.Close() }

func (h *AppHost) register() {
	L := h.L
	fns := map[string]lua.LGFunction{
		"write32":     h.luaWrite32,
		"read32":      h.luaRead32,
		"write8":      h.luaWrite8,
		"read8":       h.luaRead8,
		"tick":        h.luaTick,
		"now":         h.luaNow,
		"wait_irq":    h.luaWaitIRQ,
		"on_irq":      h.luaOnIRQ,
		"enable_irq":  h.luaEnableIRQ,
		"disable_irq": h.luaDisableIRQ,
		"print":       h.luaPrint,
		"puts":        h.luaPuts,
		"halt":        h.luaHalt,
	}
	for name, fn := range fns {
		L.SetGlobal(name, L.NewFunction(fn))
	}
	L.SetGlobal("mmap", h.memoryMap())
}

func (h *AppHost) memoryMap() *lua.LTable {
	cfg := h.m.Config
	t := h.L.NewTable()
	for name, v := range map[string]uint64{
		"SYS_MEM_BASE":       SYS_MEM_BASE,
		"SYS_IRQC_BASE":      SYS_IRQC_BASE,
		"SYS_CONS_BASE":      SYS_CONS_BASE,
		"SYS_RFILE_RAM_BASE": SYS_RFILE_RAM_BASE,
		"SYS_RFILE_RAM_SIZE": SYS_RFILE_RAM_SIZE,
		"SYS_WFILE_RAM_BASE": SYS_WFILE_RAM_BASE,
		"SYS_WFILE_RAM_SIZE": SYS_WFILE_RAM_SIZE,
		"SYS_RWNUM_RAM_BASE": SYS_RWNUM_RAM_BASE,
		"SYS_RWNUM_RAM_SIZE": SYS_RWNUM_RAM_SIZE,
		"IRQC_STATUS":        IRQC_STATUS,
		"IRQC_ENABLE":        IRQC_ENABLE,
		"IRQC_ACK":           IRQC_ACK,
		"IRQC_LINE":          IRQC_LINE,
		"SYS_AXI_BASE":       cfg.Base,
		"SYS_AXI_SIZE":       cfg.Size,
		"IPIN_OFFSET":        cfg.InOffset,
		"IPOUT_OFFSET":       cfg.OutOffset,
		"RFILE_SIZE":         cfg.InSize,
		"WFILE_SIZE":         cfg.OutSize,
		"RUN_BIT":            cfg.RunBit,
		"WORD_BYTES":         cfg.WordBytes(),
	} {
		t.RawSetString(name, lua.LNumber(v))
	}
	return t
}

// Run executes src until it returns, halts or fails. A halt through the
// debug console is a normal end.
func (h *AppHost) Run(ctx context.Context, name, src string) error {
	h.L.SetContext(ctx)
	defer h.L.RemoveContext()

	err := h.L.DoString(src)
	if err == nil || h.m.Console.Halted() {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", name, strings.TrimSpace(apiErr.Object.String()))
	}
	return fmt.Errorf("%s: %w", name, err)
}

// RunFile runs the script at path, or the built-in application when path
// is empty.
func (h *AppHost) RunFile(ctx context.Context, path string) error {
	if path == "" {
		return h.Run(ctx, "app.lua", defaultApp)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return h.Run(ctx, path, string(src))
}

// poll runs after every operation that lets simulated time pass.
func (h *AppHost) poll(L *lua.LState) {
	if err := h.m.Bridge.Err(); err != nil {
		L.RaiseError("%v", err)
	}
	if h.m.Console.Halted() {
		L.RaiseError(appHaltMessage)
	}
	if h.handler == nil || h.inIRQ || !h.m.IRQC.Pending() {
		return
	}
	h.m.IRQC.Ack(IRQ_AXI)
	h.inIRQ = true
	err := L.CallByParam(lua.P{Fn: h.handler, NRet: 0, Protect: true})
	h.inIRQ = false
	if err != nil {
		L.RaiseError("interrupt handler: %v", err)
	}
}

func checkAddr(L *lua.LState, n int) uint32 {
	return uint32(L.CheckInt64(n))
}

func (h *AppHost) luaWrite32(L *lua.LState) int {
	h.bus.Write32(checkAddr(L, 1), uint32(L.CheckInt64(2)))
	h.poll(L)
	return 0
}

func (h *AppHost) luaRead32(L *lua.LState) int {
	v := h.bus.Read32(checkAddr(L, 1))
	h.poll(L)
	L.Push(lua.LNumber(v))
	return 1
}

func (h *AppHost) luaWrite8(L *lua.LState) int {
	h.bus.Write8(checkAddr(L, 1), uint8(L.CheckInt64(2)))
	h.poll(L)
	return 0
}

func (h *AppHost) luaRead8(L *lua.LState) int {
	v := h.bus.Read8(checkAddr(L, 1))
	h.poll(L)
	L.Push(lua.LNumber(v))
	return 1
}

func (h *AppHost) luaTick(L *lua.LState) int {
	n := L.OptInt(1, 1)
	if n < 0 {
		L.ArgError(1, "negative tick count")
	}
	h.m.Sim.Run(n)
	h.poll(L)
	return 0
}

func (h *AppHost) luaNow(L *lua.LState) int {
	L.Push(lua.LNumber(h.m.Sim.Now()))
	return 1
}

// wait_irq([max]) ticks until an enabled interrupt is pending. It returns
// false if max ticks (the watchdog by default) pass first.
func (h *AppHost) luaWaitIRQ(L *lua.LState) int {
	limit := uint64(L.OptInt64(1, int64(h.m.Config.Watchdog)))
	ctx := L.Context()
	for n := uint64(0); !h.m.IRQC.Pending(); n++ {
		if limit > 0 && n >= limit {
			L.Push(lua.LFalse)
			return 1
		}
		if ctx != nil && ctx.Err() != nil {
			L.RaiseError("%v", ctx.Err())
		}
		h.m.Sim.Tick()
	}
	h.poll(L)
	L.Push(lua.LTrue)
	return 1
}

func (h *AppHost) luaOnIRQ(L *lua.LState) int {
	if L.Get(1) == lua.LNil {
		h.handler = nil
		return 0
	}
	h.handler = L.CheckFunction(1)
	return 0
}

func (h *AppHost) luaEnableIRQ(L *lua.LState) int {
	h.bus.Write32(SYS_IRQC_BASE+IRQC_ENABLE, IRQ_AXI)
	h.poll(L)
	return 0
}

func (h *AppHost) luaDisableIRQ(L *lua.LState) int {
	h.bus.Write32(SYS_IRQC_BASE+IRQC_ENABLE, 0)
	return 0
}

// console sends s through the debug console one character at a time.
func (h *AppHost) console(s string) {
	for i := 0; i < len(s); i++ {
		h.bus.Write8(SYS_CONS_BASE+CONS_TX, s[i])
	}
}

func (h *AppHost) luaPrint(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	h.console(strings.Join(parts, "\t") + "\n")
	return 0
}

func (h *AppHost) luaPuts(L *lua.LState) int {
	for i := 1; i <= L.GetTop(); i++ {
		h.console(L.ToStringMeta(L.Get(i)).String())
	}
	return 0
}

func (h *AppHost) luaHalt(L *lua.LState) int {
	h.bus.Write32(SYS_CONS_BASE+CONS_HALT, 1)
	h.poll(L)
	return 0
}
