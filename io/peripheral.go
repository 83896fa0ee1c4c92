// Package io provides the memory-mapped peripherals of the LC-3
// machine: the display and the keyboard. Peripherals never run on
// their own schedule; the machine ticks each one once per cycle, in
// registration order, against shared memory. The per-cycle access
// record kept by the memory lets a device implement the status/data
// handshake without a cycle-accurate bus.
package io

import (
	"github.com/ezrec/lc3/cpu"
)

// Peripheral is a memory-mapped device ticked once per machine cycle.
type Peripheral interface {
	Tick(mem *cpu.Memory)
}
