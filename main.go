// main.go - Command line front end of the AXI4-Lite slave simulator

/*
License: GPLv3 or later
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/intuitionamiga/axislave/axilite"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

func boilerPlate() {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println("\n\033[38;2;255;20;147maxislave\033[0m \033[38;2;255;200;147m- cycle-level AXI4-Lite slave simulator\033[0m")
	} else {
		fmt.Println("\naxislave - cycle-level AXI4-Lite slave simulator")
	}
	fmt.Println("License: GPLv3 or later")
}

type cliOptions struct {
	script     string
	configPath string
	rfile      string
	wfile      string
	wfileLen   int
	rwnum      string
	rwnumOut   string
	vcdPath    string
	tbPath     string
	base       string
	size       string
	dataWidth  int
	addrWidth  int
	watchdog   uint64
	resetTicks int
	xlate      string
	keepState  bool
	view       bool
	beep       bool
	step       bool
	verbose    bool
	traceLimit int
	version    bool
}

func main() {
	boilerPlate()

	var opts cliOptions
	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.script, "script", "", "Lua application to run (default: built-in app)")
	flagSet.StringVar(&opts.configPath, "config", "", "JSON slave configuration file")
	flagSet.StringVar(&opts.rfile, "rfile", DEFAULT_RFILE_PATH, "text file loaded into the rfile memory")
	flagSet.StringVar(&opts.wfile, "wfile", DEFAULT_WFILE_PATH, "text file written from the wfile memory")
	flagSet.IntVar(&opts.wfileLen, "wfile-len", DEFAULT_WFILE_LEN, "bytes of wfile to write (0 = up to the first NUL)")
	flagSet.StringVar(&opts.rwnum, "rwnum", "", "numbers file loaded into the rwnum memory")
	flagSet.StringVar(&opts.rwnumOut, "rwnum-out", "", "numbers file written from the rwnum memory")
	flagSet.StringVar(&opts.vcdPath, "vcd", "", "write a value change dump of every signal")
	flagSet.StringVar(&opts.tbPath, "tb", "", "write a VHDL testbench replaying the transactions")
	flagSet.StringVar(&opts.base, "base", "", "AXI window base address (hex or decimal)")
	flagSet.StringVar(&opts.size, "size", "", "AXI window size (hex or decimal)")
	flagSet.IntVar(&opts.dataWidth, "data-width", 0, "data bus width, 32 or 64")
	flagSet.IntVar(&opts.addrWidth, "addr-width", 0, "address bus width, 32 or 64")
	flagSet.Uint64Var(&opts.watchdog, "watchdog", 0, "ticks before a transaction is abandoned (0 = config default)")
	flagSet.IntVar(&opts.resetTicks, "reset-ticks", 0, "ticks resetn is held low")
	flagSet.StringVar(&opts.xlate, "translation", "", "address translation: auto, xor or subtract")
	flagSet.BoolVar(&opts.keepState, "keep-state", false, "keep registers and buffers across reset")
	flagSet.BoolVar(&opts.view, "view", false, "open the waveform viewer")
	flagSet.BoolVar(&opts.beep, "beep", false, "beep on every interrupt")
	flagSet.BoolVar(&opts.step, "step", false, "single-step the clock from the terminal")
	flagSet.BoolVar(&opts.verbose, "v", false, "log every bus transaction and device access")
	flagSet.IntVar(&opts.traceLimit, "trace-limit", DEFAULT_TRACE_MAX, "ticks kept by the waveform viewer")
	flagSet.BoolVar(&opts.version, "version", false, "print version and compiled features")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./axislave [-script app.lua] [-config slave.json] [-vcd tr.vcd] [-tb tb.vhd] [-view] [-step]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if opts.version {
		printFeatures(os.Stdout)
		return
	}
	if flagSet.NArg() > 0 && opts.script == "" {
		opts.script = flagSet.Arg(0)
	}

	cfg, err := buildConfig(flagSet, opts)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	machine, err := NewMachine(cfg, MachineOptions{
		RFile:    optionalFile(flagSet, "rfile", opts.rfile),
		WFile:    opts.wfile,
		WFileLen: opts.wfileLen,
		RWNum:    opts.rwnum,
		RWNumOut: opts.rwnumOut,
		Out:      os.Stdout,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.verbose {
		for _, r := range machine.Bus.Regions() {
			fmt.Fprintf(machine.Out(), "map: %-8s $%08X-$%08X\n", r.name, r.start, r.end)
		}
		machine.Sim.OnAccess(func(tick uint64, a axilite.Access) {
			fmt.Printf("ip: %8d %-5s %-9s [%d] 0x%X strb %X\n", tick, a.Dir, a.Region, a.Index, a.Value, a.Strobe)
		})
	}

	if opts.beep {
		beeper, err := NewIRQBeeper()
		if err != nil {
			fmt.Printf("Failed to initialize sound: %v\n", err)
		} else {
			defer beeper.Close()
			machine.IRQC.OnRise(beeper.Beep)
			beeper.Start()
		}
	}

	if opts.step {
		monitor := NewStepMonitor(os.Stdin, os.Stdout, stop)
		monitor.OnVerbose(machine.Bridge.SetVerbose)
		monitor.Attach(machine.Sim)
		monitor.Start()
		defer monitor.Stop()
		fmt.Print("space/enter: step  c: continue  v: verbose  q: quit\r\n")
	}

	session := NewSession(machine, SessionOptions{
		Script:  opts.script,
		VCDPath: opts.vcdPath,
		TBPath:  opts.tbPath,
		Verbose: opts.verbose,
		OnSummary: func(s Summary) {
			fmt.Printf("\nSimulation finished at tick %d: %v\n", machine.Sim.Now(), s)
		},
	})

	if !opts.view {
		if _, err := session.Run(ctx); err != nil && !isCancel(err) {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	rec := NewTraceRecorder(machine.Sim.Signals().All(), opts.traceLimit)
	rec.Attach(machine.Sim)
	machine.IRQC.OnRise(func() { rec.MarkIRQ(machine.Sim.Now() + 1) })

	var now atomic.Uint64
	var irq atomic.Bool
	machine.Sim.OnTick(func(tick uint64, s *axilite.Signals) {
		now.Store(tick + 1)
		irq.Store(s.IRQ.Read())
	})

	viewer := NewWaveformViewer(rec)
	viewer.SetStatus(func() string {
		return fmt.Sprintf("tick %d  irq %v", now.Load(), irq.Load())
	})
	viewer.SetResetHandler(func() {
		rec.Clear()
		if _, err := session.Run(ctx); err != nil && !isCancel(err) {
			fmt.Printf("Error: %v\n", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := session.Run(gctx)
		return err
	})
	if err := viewer.Run(); err != nil {
		fmt.Printf("Warning: %v\n", err)
	} else {
		stop()
	}
	if err := g.Wait(); err != nil && !isCancel(err) {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// buildConfig layers the defaults, the -config file and the explicit flags.
func buildConfig(flagSet *flag.FlagSet, opts cliOptions) (axilite.Config, error) {
	cfg := axilite.DefaultConfig()
	if opts.configPath != "" {
		if err := loadConfigFile(opts.configPath, &cfg); err != nil {
			return cfg, err
		}
	}

	var err error
	flagSet.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "base":
			cfg.Base, err = parseUint32Flag(opts.base)
		case "size":
			cfg.Size, err = parseUint32Flag(opts.size)
		case "data-width":
			cfg.DataWidth = opts.dataWidth
		case "addr-width":
			cfg.AddrWidth = opts.addrWidth
		case "watchdog":
			cfg.Watchdog = opts.watchdog
		case "reset-ticks":
			cfg.ResetTicks = opts.resetTicks
		case "translation":
			cfg.Translation, err = parseTranslation(opts.xlate)
		case "keep-state":
			cfg.ClearOnReset = !opts.keepState
		}
		if err != nil {
			err = fmt.Errorf("invalid -%s: %w", f.Name, err)
		}
	})
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// optionalFile drops the default rfile when it does not exist, so a bare
// run works in an empty directory.
func optionalFile(flagSet *flag.FlagSet, name, path string) string {
	explicit := false
	flagSet.Visit(func(f *flag.Flag) {
		if f.Name == name {
			explicit = true
		}
	})
	if explicit {
		return path
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func parseUint32Flag(value string) (uint64, error) {
	parsed, err := strconv.ParseUint(value, 0, 32)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
