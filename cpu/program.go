package cpu

import (
	"encoding/binary"
)

// Program is an assembled object: a load origin, the emitted words in
// source order, and an address-to-source-line map for diagnostics.
type Program struct {
	Origin uint16
	Words  []uint16
	Lines  []int // source line per word; empty for loaded objects
}

// Binary serializes the program in the object format: big-endian
// words, the origin first.
func (prog *Program) Binary() (out []byte) {
	out = make([]byte, 0, 2*(len(prog.Words)+1))
	out = binary.BigEndian.AppendUint16(out, prog.Origin)
	for _, word := range prog.Words {
		out = binary.BigEndian.AppendUint16(out, word)
	}
	return
}

// LoadProgram pairs raw bytes into big-endian words, taking word 0 as
// the load origin.
func LoadProgram(data []byte) (prog *Program, err error) {
	if len(data)%2 != 0 {
		return nil, ErrObjectOdd
	}
	if len(data) < 2 {
		return nil, ErrObjectEmpty
	}

	prog = &Program{
		Origin: binary.BigEndian.Uint16(data[0:2]),
	}
	for n := 2; n < len(data); n += 2 {
		prog.Words = append(prog.Words, binary.BigEndian.Uint16(data[n:n+2]))
	}
	return
}

// LineAt returns the source line that emitted the word at addr, or 0
// when unknown.
func (prog *Program) LineAt(addr uint16) int {
	index := int(addr) - int(prog.Origin)
	if index < 0 || index >= len(prog.Lines) {
		return 0
	}
	return prog.Lines[index]
}
