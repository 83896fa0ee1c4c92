package io

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/cpu"
)

func TestDisplay(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	d := &Display{Output: &out}
	mem := cpu.NewMemory()

	// Idle: the ready bit is raised, nothing is emitted.
	d.Tick(mem)
	assert.Equal(cpu.DEV_READY, mem.Read(cpu.ADDR_DSR))
	assert.Zero(out.Len())

	mem.Write(cpu.ADDR_DDR, uint16('A'))
	d.Tick(mem)
	assert.Equal("A", out.String())
	assert.Zero(mem.Read(cpu.ADDR_DDR))
	assert.Equal(cpu.DEV_READY, mem.Read(cpu.ADDR_DSR))
}

// cycle emulates the per-cycle access record reset the execution engine
// performs before a peripheral runs.
func cycle(mem *cpu.Memory, k *Keyboard) {
	mem.ResetTouched()
	k.Tick(mem)
}

func TestKeyboard(t *testing.T) {
	assert := assert.New(t)

	k := NewKeyboard()
	mem := cpu.NewMemory()

	// Nothing queued: the status register stays clear.
	cycle(mem, k)
	assert.Zero(mem.Read(cpu.ADDR_KBSR))

	assert.True(k.Push('x'))
	cycle(mem, k)
	assert.Equal(uint16('x'), mem.Read(cpu.ADDR_KBDR))
	assert.Equal(cpu.DEV_READY, mem.Read(cpu.ADDR_KBSR))

	// An unconsumed character stays offered.
	cycle(mem, k)
	assert.Equal(uint16('x'), mem.Read(cpu.ADDR_KBDR))
	assert.Equal(cpu.DEV_READY, mem.Read(cpu.ADDR_KBSR))

	// Reading the data register consumes it; the next tick drops the
	// ready bit.
	mem.ResetTouched()
	assert.Equal(uint16('x'), mem.Read(cpu.ADDR_KBDR))
	k.Tick(mem)
	assert.Zero(mem.Read(cpu.ADDR_KBSR))

	assert.True(k.Push('y'))
	cycle(mem, k)
	assert.Equal(uint16('y'), mem.Read(cpu.ADDR_KBDR))
}

func TestKeyboardDelay(t *testing.T) {
	assert := assert.New(t)

	k := NewKeyboard()
	k.Delay = 2
	mem := cpu.NewMemory()

	k.Push('a')
	k.Push('b')

	cycle(mem, k)
	assert.Equal(uint16('a'), mem.Read(cpu.ADDR_KBDR))

	// Consume, then wait out the throttle before 'b' appears.
	mem.ResetTouched()
	mem.Read(cpu.ADDR_KBDR)
	k.Tick(mem)
	assert.Zero(mem.Read(cpu.ADDR_KBSR))

	cycle(mem, k)
	assert.Zero(mem.Read(cpu.ADDR_KBSR))
	cycle(mem, k)
	assert.Zero(mem.Read(cpu.ADDR_KBSR))

	cycle(mem, k)
	assert.Equal(uint16('b'), mem.Read(cpu.ADDR_KBDR))
	assert.Equal(cpu.DEV_READY, mem.Read(cpu.ADDR_KBSR))
}

func TestKeyboardQueueFull(t *testing.T) {
	assert := assert.New(t)

	k := NewKeyboard()
	for n := 0; n < KEYBOARD_QUEUE; n++ {
		assert.True(k.Push(byte(n)))
	}
	assert.False(k.Push(0xFF))
}
