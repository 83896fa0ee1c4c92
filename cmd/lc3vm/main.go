package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/emulator"
)

// parseAddress accepts x3000, 0x3000, and plain hex.
func parseAddress(text string) (addr uint16, err error) {
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "x")
	value, err := strconv.ParseUint(text, 16, 16)
	if err != nil {
		return
	}
	return uint16(value), nil
}

func main() {
	var entry string
	var throttle int
	var verbose bool

	flag.StringVar(&entry, "e", "x3000", "Entry point address")
	flag.IntVar(&throttle, "throttle", 0, "Delay between cycles in milliseconds")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatalf("%v: expected one or more object files", os.Args[0])
	}

	entryPoint, err := parseAddress(entry)
	if err != nil {
		log.Fatalf("%v: %v", entry, err)
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Throttle = time.Duration(throttle) * time.Millisecond
	emu.Display.Output = os.Stdout

	for _, filename := range flag.Args() {
		data, rerr := os.ReadFile(filename)
		if rerr != nil {
			log.Fatalf("%v: %v", filename, rerr)
		}
		prog, perr := cpu.LoadProgram(data)
		if perr != nil {
			log.Fatalf("%v: %v", filename, perr)
		}
		emu.Load(prog)
	}

	emu.Registers()[cpu.REG_PC] = entryPoint

	// Raw mode delivers keystrokes without waiting for a newline.
	stdin := int(os.Stdin.Fd())
	if term.IsTerminal(stdin) {
		oldState, terr := term.MakeRaw(stdin)
		if terr != nil {
			log.Fatalf("stdin: %v", terr)
		}
		defer term.Restore(stdin, oldState)
	}
	emu.Keyboard.ReadFrom(os.Stdin)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	err = emu.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}

	if verbose {
		elapsed := time.Since(start)
		log.Printf("lc3: %v cycles in %v", emu.Ticks, elapsed)
	}
}
