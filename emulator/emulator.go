// Package emulator composes the LC-3 processor with its peripherals
// and drives the cycle loop. It also exposes the stepping API a
// debugger front end consumes: Tick, Running, Resume, and the register
// and memory accessors.
package emulator

import (
	"context"
	"time"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/io"
)

// Emulator is the machine: CPU state plus the standard display and
// keyboard peripherals.
type Emulator struct {
	Verbose bool // If set, enables verbose logging.
	*cpu.Cpu

	Display  *io.Display
	Keyboard *io.Keyboard

	// Throttle pauses between cycles. It never reorders anything;
	// cycles stay atomic.
	Throttle time.Duration

	Program *cpu.Program // Most recently loaded program, for diagnostics.

	peripherals []io.Peripheral
}

// NewEmulator creates an emulator with the display and keyboard
// attached, in that order.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:      cpu.NewCpu(),
		Display:  &io.Display{},
		Keyboard: io.NewKeyboard(),
	}

	emu.Attach(emu.Display)
	emu.Attach(emu.Keyboard)

	return
}

// Attach registers a peripheral. Peripherals tick once per cycle in
// registration order.
func (emu *Emulator) Attach(p io.Peripheral) {
	emu.peripherals = append(emu.peripherals, p)
}

// Load places a program image into memory and remembers it for
// source-line diagnostics.
func (emu *Emulator) Load(prog *cpu.Program) {
	emu.Program = prog
	emu.Cpu.Load(prog)
}

// Registers exposes the register file to a debugger front end.
func (emu *Emulator) Registers() *[cpu.REGISTER_COUNT]uint16 {
	return &emu.Cpu.Reg
}

// Memory exposes the machine memory to a debugger front end.
func (emu *Emulator) Memory() *cpu.Memory {
	return emu.Cpu.Mem
}

// Tick performs a single machine cycle followed by one tick of every
// peripheral. It reports done once the run bit clears. Errors are
// fatal to the run and carry the faulting PC.
func (emu *Emulator) Tick() (done bool, err error) {
	if !emu.Cpu.Running() {
		return true, nil
	}

	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Reg[cpu.REG_PC]
	err = emu.Cpu.Tick()
	if err != nil {
		err = &ErrRuntime{Addr: pc, Line: emu.lineAt(pc), Err: err}
		return true, err
	}

	for _, p := range emu.peripherals {
		p.Tick(emu.Cpu.Mem)
	}

	return !emu.Cpu.Running(), nil
}

// Run ticks until the machine halts or fails. Cancellation is
// cooperative: the context is polled once per cycle boundary, never
// preempting an instruction.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		done, err := emu.Tick()
		if done || err != nil {
			return err
		}

		if emu.Throttle > 0 {
			time.Sleep(emu.Throttle)
		}
	}
}

// lineAt maps an address back to a source line of the loaded program.
func (emu *Emulator) lineAt(addr uint16) int {
	if emu.Program == nil {
		return 0
	}
	return emu.Program.LineAt(addr)
}
