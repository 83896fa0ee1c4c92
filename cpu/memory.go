package cpu

import (
	"sync"
)

// MEM_SIZE is the number of addressable words. Addresses wrap modulo
// this size by virtue of being uint16.
const MEM_SIZE = 1 << 16

// Memory-mapped device registers.
const (
	ADDR_KBSR = uint16(0xFE00) // keyboard status
	ADDR_KBDR = uint16(0xFE02) // keyboard data
	ADDR_DSR  = uint16(0xFE04) // display status
	ADDR_DDR  = uint16(0xFE06) // display data
	ADDR_MCR  = uint16(0xFFFE) // machine control
)

// DEV_READY is the ready bit of the keyboard and display status
// registers.
const DEV_READY = uint16(1 << 15)

// MCR_RUN gates the execution loop; clearing it halts the machine.
const MCR_RUN = uint16(1 << 15)

// Vector table bases.
const (
	TRAP_TABLE = uint16(0x0000)
	INT_TABLE  = uint16(0x0100)
)

// Standard trap vectors.
const (
	TRAP_GETC  = uint16(0x20)
	TRAP_OUT   = uint16(0x21)
	TRAP_PUTS  = uint16(0x22)
	TRAP_IN    = uint16(0x23)
	TRAP_PUTSP = uint16(0x24)
	TRAP_HALT  = uint16(0x25)
)

// Memory is the flat word-addressed store shared by the execution
// engine and the peripherals. Every Read and Write records the address
// touched during the current cycle so a peripheral can implement the
// status/data handshake; the record is cleared at the start of each
// cycle.
//
// One mutex guards the whole array. A single-threaded run never
// contends on it, but an external monitor may observe memory from
// another goroutine.
type Memory struct {
	mu      sync.Mutex
	cells   [MEM_SIZE]uint16
	touched map[uint16]bool
}

// NewMemory creates a zeroed memory with the machine control run bit
// set.
func NewMemory() (mem *Memory) {
	mem = &Memory{
		touched: make(map[uint16]bool, 8),
	}
	mem.cells[ADDR_MCR] = MCR_RUN
	return
}

// Read returns the word at addr and records the access.
func (mem *Memory) Read(addr uint16) uint16 {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	mem.touched[addr] = true
	return mem.cells[addr]
}

// Write stores value at addr and records the access.
func (mem *Memory) Write(addr uint16, value uint16) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	mem.touched[addr] = true
	mem.cells[addr] = value
}

// Touched reports whether addr was read or written since the last
// ResetTouched.
func (mem *Memory) Touched(addr uint16) bool {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	return mem.touched[addr]
}

// ResetTouched clears the per-cycle access record.
func (mem *Memory) ResetTouched() {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	clear(mem.touched)
}

// LoadImage copies words into memory starting at origin, without
// recording accesses.
func (mem *Memory) LoadImage(origin uint16, words []uint16) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	addr := origin
	for _, word := range words {
		mem.cells[addr] = word
		addr++
	}
}

// Running reports the machine control run bit.
func (mem *Memory) Running() bool {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	return (mem.cells[ADDR_MCR] & MCR_RUN) != 0
}

// Halt clears the machine control run bit.
func (mem *Memory) Halt() {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	mem.cells[ADDR_MCR] &^= MCR_RUN
}

// Resume re-arms the machine control run bit after a halt.
func (mem *Memory) Resume() {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	mem.cells[ADDR_MCR] |= MCR_RUN
}
