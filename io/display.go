package io

import (
	"io"

	"github.com/ezrec/lc3/cpu"
)

// Display drains the display data register into an io.Writer. The
// status register's ready bit is raised whenever the device is idle;
// a non-zero byte in the data register is emitted, cleared, and the
// ready bit raised again. Running in sync with the machine, the
// display is always done printing before the next instruction.
type Display struct {
	Output io.Writer
}

var _ Peripheral = (*Display)(nil)

func (d *Display) Tick(mem *cpu.Memory) {
	mem.Write(cpu.ADDR_DSR, cpu.DEV_READY)

	character := byte(mem.Read(cpu.ADDR_DDR) & 0xFF)
	if character == 0 {
		return
	}

	if d.Output != nil {
		d.Output.Write([]byte{character})
	}
	mem.Write(cpu.ADDR_DDR, 0)
}
