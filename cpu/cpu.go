package cpu

import (
	"fmt"
	"log"
	"strings"
)

// SSP_BASE is the initial supervisor stack pointer. The stack grows
// down from the top of the operating system segment; the ISA leaves
// its initialization to the machine, since no user instruction can
// reach the SSP register.
const SSP_BASE = uint16(0x3000)

// INTERRUPT_QUEUE is the capacity of the pending-interrupt queue.
const INTERRUPT_QUEUE = 8

// Cpu is the execution engine: the register file, memory, and the
// pending interrupt queue. All instruction semantics are synchronous;
// the queue exists only so an input source on another goroutine can
// request delivery, and it is drained at most once per cycle.
type Cpu struct {
	Verbose bool // Set to enable verbose execution tracing.

	Reg [REGISTER_COUNT]uint16
	Mem *Memory

	Ticks int // Cycle counter.

	interrupts chan uint16
}

// NewCpu creates a machine with the run bit set and the supervisor
// stack pointer initialized.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{
		Mem:        NewMemory(),
		interrupts: make(chan uint16, INTERRUPT_QUEUE),
	}
	cpu.Reg[REG_SSP] = SSP_BASE
	return
}

// String returns the current register state.
func (cpu *Cpu) String() string {
	var b strings.Builder
	for r := REG_R0; r < REGISTER_COUNT; r++ {
		fmt.Fprintf(&b, "%4v: x%04X\n", r, cpu.Reg[r])
	}
	return b.String()
}

// Load copies the program image into memory at its origin and returns
// the origin.
func (cpu *Cpu) Load(prog *Program) uint16 {
	cpu.Mem.LoadImage(prog.Origin, prog.Words)
	return prog.Origin
}

// Running reports the machine-control run bit.
func (cpu *Cpu) Running() bool {
	return cpu.Mem.Running()
}

// Resume re-arms the run bit after a HALT. The PC already points past
// the halting TRAP, so execution continues with the next instruction.
func (cpu *Cpu) Resume() {
	cpu.Mem.Resume()
}

// RequestInterrupt queues an interrupt vector for delivery at the next
// cycle boundary. It never blocks; a full queue drops the request and
// reports false.
func (cpu *Cpu) RequestInterrupt(vector uint16) bool {
	select {
	case cpu.interrupts <- vector:
		return true
	default:
		return false
	}
}

// Tick runs one machine cycle: deliver at most one pending interrupt,
// else fetch, decode, and execute the instruction at PC. The per-cycle
// memory access record is reset first.
func (cpu *Cpu) Tick() (err error) {
	cpu.Mem.ResetTouched()
	cpu.Ticks++

	select {
	case vector := <-cpu.interrupts:
		cpu.interrupt(vector)
		return
	default:
	}

	pc := cpu.Reg[REG_PC]
	word := cpu.Mem.Read(pc)

	inst, err := Decode(word)
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("lc3: x%04X: %v", pc, inst)
	}

	return cpu.execute(inst)
}

// setCC recomputes the PSR condition codes from the signed
// interpretation of value. Exactly one of N/Z/P ends up set.
func (cpu *Cpu) setCC(value uint16) {
	psr := cpu.Reg[REG_PSR] &^ FLAG_MASK
	switch {
	case int16(value) < 0:
		psr |= FLAG_NEGATIVE
	case value == 0:
		psr |= FLAG_ZERO
	default:
		psr |= FLAG_POSITIVE
	}
	cpu.Reg[REG_PSR] = psr
}

// interrupt enters the handler for vector: save the user state on the
// supervisor stack, switch to supervisor mode, and transfer through
// the interrupt vector table. The entry consumes the cycle.
func (cpu *Cpu) interrupt(vector uint16) {
	oldPSR := cpu.Reg[REG_PSR]

	cpu.Reg[REG_USP] = cpu.Reg[REG_R6]

	ssp := cpu.Reg[REG_SSP]
	cpu.Mem.Write(ssp-1, oldPSR)
	cpu.Mem.Write(ssp-2, cpu.Reg[REG_PC])
	cpu.Reg[REG_R6] = ssp - 2

	cpu.Reg[REG_PSR] = oldPSR | PSR_SUPERVISOR
	cpu.Reg[REG_PC] = cpu.Mem.Read(INT_TABLE + vector)

	if cpu.Verbose {
		log.Printf("lc3: interrupt x%02X -> x%04X", vector, cpu.Reg[REG_PC])
	}
}
