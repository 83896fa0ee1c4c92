package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgramBinary(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Origin: 0x3000,
		Words:  []uint16{0x1027, 0xF025},
	}
	data := prog.Binary()
	assert.Equal([]byte{0x30, 0x00, 0x10, 0x27, 0xF0, 0x25}, data)

	loaded, err := LoadProgram(data)
	assert.NoError(err)
	assert.Equal(prog.Origin, loaded.Origin)
	assert.Equal(prog.Words, loaded.Words)
}

func TestLoadProgramErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := LoadProgram([]byte{0x30, 0x00, 0x10})
	assert.ErrorIs(err, ErrObjectOdd)

	_, err = LoadProgram([]byte{})
	assert.ErrorIs(err, ErrObjectEmpty)
}

func TestProgramLineAt(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := asm.Assemble(strings.NewReader(
		".ORIG x3000\nADD R0, R0, #1\nHALT\n.END\n"))
	assert.NoError(err)

	assert.Equal(2, prog.LineAt(0x3000))
	assert.Equal(3, prog.LineAt(0x3001))
	assert.Equal(0, prog.LineAt(0x2FFF))
	assert.Equal(0, prog.LineAt(0x3002))
}
