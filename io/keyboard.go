package io

import (
	"io"

	"github.com/ezrec/lc3/cpu"
)

// KEYBOARD_QUEUE is the capacity of the input byte queue.
const KEYBOARD_QUEUE = 64

// Keyboard feeds input bytes through the keyboard status/data
// handshake. When the data register was accessed during the previous
// cycle the status register is cleared; otherwise, once the throttle
// delay has elapsed, the next queued byte is placed in the data
// register and the ready bit raised.
//
// The queue is single-producer/single-consumer: one source goroutine
// (ReadFrom, or a test calling Push) feeds it, and only Tick drains
// it, at most one byte per cycle. Instruction semantics stay
// deterministic for any given arrival order.
type Keyboard struct {
	// Delay is the number of cycles to wait between characters.
	// Zero offers a new character every cycle.
	Delay int

	queue     chan byte
	countdown int
}

var _ Peripheral = (*Keyboard)(nil)

// NewKeyboard creates a keyboard with an empty input queue.
func NewKeyboard() (k *Keyboard) {
	return &Keyboard{
		queue: make(chan byte, KEYBOARD_QUEUE),
	}
}

// Push queues one input byte without blocking. A full queue drops the
// byte and reports false.
func (k *Keyboard) Push(value byte) bool {
	select {
	case k.queue <- value:
		return true
	default:
		return false
	}
}

// ReadFrom feeds the queue from a reader on its own goroutine, so a
// blocking source (a terminal) never stalls the machine. The goroutine
// exits on read error or EOF.
func (k *Keyboard) ReadFrom(input io.Reader) {
	go func() {
		var one [1]byte
		for {
			_, err := input.Read(one[:])
			if err != nil {
				return
			}
			k.queue <- one[0]
		}
	}()
}

func (k *Keyboard) Tick(mem *cpu.Memory) {
	// Reading the data register consumes the character.
	if mem.Touched(cpu.ADDR_KBDR) {
		mem.Write(cpu.ADDR_KBSR, 0)
		return
	}

	if mem.Read(cpu.ADDR_KBSR)&cpu.DEV_READY != 0 {
		return
	}

	if k.countdown > 0 {
		k.countdown--
		return
	}

	select {
	case value := <-k.queue:
		mem.Write(cpu.ADDR_KBDR, uint16(value))
		mem.Write(cpu.ADDR_KBSR, cpu.DEV_READY)
		k.countdown = k.Delay
	default:
	}
}
