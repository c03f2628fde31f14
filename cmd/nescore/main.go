package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/nevisdale/nescore/internal/cpu"
	"github.com/nevisdale/nescore/internal/monitor"
	"github.com/nevisdale/nescore/internal/nes"
	"github.com/nevisdale/nescore/internal/ui"
	"github.com/pkg/profile"
)

var (
	romFile     = flag.String("rom", "", "Path to the iNES ROM to run.")
	startAddr   = flag.String("start", "", "Hex start address overriding the reset vector, e.g. C000.")
	mode        = flag.String("mode", "ui", "How to run the console: ui, monitor or headless.")
	steps       = flag.Uint64("steps", 0, "Instructions to execute in headless mode, 0 runs until stopped.")
	trace       = flag.Bool("trace", false, "Print every executed instruction.")
	dump        = flag.Bool("dump", false, "Dump the mounted memory when a headless run ends.")
	profileMode = flag.String("profile", "", "Write a cpu or mem profile to the current directory.")
)

func main() {
	flag.Parse()

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		log.Fatalf("unknown profile mode %q", *profileMode)
	}

	if *romFile == "" {
		log.Fatal("-rom is required")
	}
	cart, err := nes.NewCartFromFile(*romFile)
	if err != nil {
		log.Fatalf("couldn't load %q: %s", *romFile, err)
	}
	log.Printf("loaded %s: %s", *romFile, cart)

	console, err := nes.NewConsole(cart)
	if err != nil {
		log.Fatalf("couldn't build the console: %s", err)
	}
	if *startAddr != "" {
		pc, err := strconv.ParseUint(strings.TrimPrefix(*startAddr, "$"), 16, 16)
		if err != nil {
			log.Fatalf("bad start address %q: %s", *startAddr, err)
		}
		console.SetStart(uint16(pc))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch *mode {
	case "ui":
		err = ui.RunUI(ui.New(console))
	case "monitor":
		m := monitor.New(console, os.Stdin, os.Stdout)
		if *trace {
			m.SetTrace(os.Stdout)
		}
		err = m.Run(ctx)
	case "headless":
		err = runHeadless(ctx, console)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Printf("nescore: %s", err)
		// deferred calls do not run after os.Exit
		stop()
		os.Exit(1)
	}
}

func runHeadless(ctx context.Context, console *nes.Console) error {
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	var traceOut io.Writer
	if *trace {
		traceOut = out
	}

	var err error
	if *steps == 0 {
		err = console.Run(ctx, nil, traceOut)
	} else {
		err = runSteps(ctx, console, *steps, traceOut)
	}

	r := console.Registers()
	log.Printf("stopped after %d steps at PC:%04X A:%02X X:%02X Y:%02X P:%s SP:%02X",
		console.Steps(), r.PC, r.A, r.X, r.Y, r.P, r.SP)

	if *dump {
		if dumpErr := console.Dump(out); dumpErr != nil {
			return errors.Join(err, dumpErr)
		}
	}
	return err
}

func runSteps(ctx context.Context, console *nes.Console, n uint64, traceOut io.Writer) error {
	for i := uint64(0); i < n; i++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := console.Step()
		if errors.Is(err, cpu.ErrAddressSpaceExhausted) {
			return nil
		}
		if err != nil {
			return err
		}
		if traceOut != nil {
			fmt.Fprintln(traceOut, line)
		}
	}
	return nil
}
