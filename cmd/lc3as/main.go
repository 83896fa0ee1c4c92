package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ezrec/lc3/cpu"
)

func main() {
	var output string
	var listing bool
	var verbose bool

	flag.StringVar(&output, "o", "", "Output object file (default: input with .obj)")
	flag.BoolVar(&listing, "l", false, "Print an assembly listing")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("%v: expected one assembly source file", os.Args[0])
	}
	input := flag.Arg(0)

	if output == "" {
		output = strings.TrimSuffix(input, ".asm") + ".obj"
	}

	inf, err := os.Open(input)
	if err != nil {
		log.Fatalf("%v: %v", input, err)
	}
	defer inf.Close()

	asm := &cpu.Assembler{Verbose: verbose}
	prog, err := asm.Assemble(inf)
	if err != nil {
		log.Fatalf("%v: %v", input, err)
	}

	if listing {
		addr := prog.Origin
		for n, word := range prog.Words {
			fmt.Printf("x%04X: x%04X ; line %v\n", addr, word, prog.Lines[n])
			addr++
		}
	}

	err = os.WriteFile(output, prog.Binary(), 0o644)
	if err != nil {
		log.Fatalf("%v: %v", output, err)
	}
}
