package emulator

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/cpu"
)

func mustAssemble(t *testing.T, source string) *cpu.Program {
	t.Helper()

	asm := &cpu.Assembler{}
	prog, err := asm.Assemble(strings.NewReader(source))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return prog
}

// putsHandler is a PUTS service routine: print the NUL-terminated
// string at R0 through the display handshake.
const putsHandler = `
	.ORIG x0400
	LOOP    LDR R1, R0, #0
	        BRz DONE
	WAIT    LDI R2, SDSR
	        BRzp WAIT
	        STI R1, SDDR
	        ADD R0, R0, #1
	        BRnzp LOOP
	DONE    RET
	SDSR    .FILL DSR
	SDDR    .FILL DDR
	.END
`

// getcHandler is a GETC service routine: poll the keyboard and return
// the character in R0.
const getcHandler = `
	.ORIG x0500
	KWAIT   LDI R0, SKBSR
	        BRzp KWAIT
	        LDI R0, SKBDR
	        RET
	SKBSR   .FILL KBSR
	SKBDR   .FILL KBDR
	.END
`

func TestEmulatorRun(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Load(mustAssemble(t, `
		.ORIG x3000
		AND R2, R2, #0
		ADD R2, R2, #7
		ADD R2, R2, R2
		HALT
		.END
	`))
	emu.Registers()[cpu.REG_PC] = 0x3000

	assert.NoError(emu.Run(context.Background()))
	assert.Equal(uint16(14), emu.Registers()[cpu.REG_R2])
	assert.False(emu.Running())
}

func TestEmulatorOutput(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	var out bytes.Buffer
	emu.Display.Output = &out

	emu.Load(mustAssemble(t, putsHandler))
	emu.Load(mustAssemble(t, ".ORIG x0022\n.FILL x0400\n.END\n"))
	emu.Load(mustAssemble(t, `
		.ORIG x3000
		        LEA R0, MSG
		        PUTS
		        HALT
		MSG     .STRINGZ "Hi!"
		.END
	`))
	emu.Registers()[cpu.REG_PC] = 0x3000

	assert.NoError(emu.Run(context.Background()))
	assert.Equal("Hi!", out.String())
}

func TestEmulatorInput(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Load(mustAssemble(t, getcHandler))
	emu.Load(mustAssemble(t, ".ORIG x0020\n.FILL x0500\n.END\n"))
	emu.Load(mustAssemble(t, ".ORIG x3000\nGETC\nHALT\n.END\n"))
	emu.Registers()[cpu.REG_PC] = 0x3000

	assert.True(emu.Keyboard.Push('q'))

	assert.NoError(emu.Run(context.Background()))
	assert.Equal(uint16('q'), emu.Registers()[cpu.REG_R0])
}

func TestEmulatorCancel(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Load(mustAssemble(t, ".ORIG x3000\nHERE BRnzp HERE\n.END\n"))
	emu.Registers()[cpu.REG_PC] = 0x3000

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := emu.Run(ctx)
	assert.ErrorIs(err, context.DeadlineExceeded)
	assert.True(emu.Running())
}

func TestEmulatorStep(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Load(mustAssemble(t, ".ORIG x3000\nADD R0, R0, #1\nHALT\nADD R0, R0, #1\nHALT\n.END\n"))
	emu.Registers()[cpu.REG_PC] = 0x3000

	done, err := emu.Tick()
	assert.NoError(err)
	assert.False(done)
	assert.Equal(uint16(1), emu.Registers()[cpu.REG_R0])

	done, err = emu.Tick()
	assert.NoError(err)
	assert.True(done)

	// Ticking a halted machine is a no-op.
	done, err = emu.Tick()
	assert.NoError(err)
	assert.True(done)
	assert.Equal(uint16(1), emu.Registers()[cpu.REG_R0])

	// Resume continues past the halting TRAP.
	emu.Resume()
	done, err = emu.Tick()
	assert.NoError(err)
	assert.False(done)
	assert.Equal(uint16(2), emu.Registers()[cpu.REG_R0])
}

func TestEmulatorRuntimeError(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Load(mustAssemble(t, ".ORIG x3000\n.FILL xD000\n.END\n"))
	emu.Registers()[cpu.REG_PC] = 0x3000

	err := emu.Run(context.Background())
	assert.Error(err)
	assert.ErrorIs(err, cpu.ErrReservedOpcode(0))

	var re *ErrRuntime
	assert.ErrorAs(err, &re)
	assert.Equal(uint16(0x3000), re.Addr)
	assert.Equal(2, re.Line)
	assert.Contains(err.Error(), "x3000")
}
