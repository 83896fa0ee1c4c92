package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assemble(t *testing.T, source string) (*Assembler, *Program, error) {
	t.Helper()
	asm := &Assembler{}
	prog, err := asm.Assemble(strings.NewReader(source))
	return asm, prog, err
}

func TestAssembleBasic(t *testing.T) {
	assert := assert.New(t)

	_, prog, err := assemble(t, `
		.ORIG x3000
		ADD R0, R0, #7   ; R0 = 7
		ADD R1, R1, #7   ; R1 = 7
		ADD R2, R1, R2
		HALT
		.END
	`)
	assert.NoError(err)
	assert.Equal(uint16(0x3000), prog.Origin)
	assert.Equal([]uint16{0x1027, 0x1267, 0x1442, 0xF025}, prog.Words)
	assert.Equal([]int{3, 4, 5, 6}, prog.Lines)
}

func TestAssembleLabels(t *testing.T) {
	assert := assert.New(t)

	asm, prog, err := assemble(t, `
		.ORIG x3000
		        LD R0, DATA
		        BRz DONE
		LOOP    ADD R0, R0, #-1
		        BRp LOOP
		DONE    HALT
		DATA    .FILL #3
		.END
	`)
	assert.NoError(err)
	assert.Equal(map[string]uint16{
		"LOOP": 0x3002,
		"DONE": 0x3004,
		"DATA": 0x3005,
	}, asm.Label)
	assert.Equal([]uint16{
		0x2004, // LD R0, DATA
		0x0402, // BRz DONE
		0x103F, // ADD R0, R0, #-1
		0x03FE, // BRp LOOP
		0xF025,
		0x0003,
	}, prog.Words)
}

func TestAssembleFloatingLabel(t *testing.T) {
	assert := assert.New(t)

	asm, prog, err := assemble(t, `
		.ORIG x3000
		START:
		        ADD R0, R0, #1
		        BRnzp START
		LAST
		.END
	`)
	assert.NoError(err)
	assert.Equal(uint16(0x3000), asm.Label["START"])
	// A trailing label binds to the address past the last word.
	assert.Equal(uint16(0x3002), asm.Label["LAST"])
	assert.Equal([]uint16{0x1021, 0x0FFE}, prog.Words)
}

func TestAssembleDataDirectives(t *testing.T) {
	assert := assert.New(t)

	_, prog, err := assemble(t, `
		.ORIG x4000
		MSG   .STRINGZ "Hi!"
		BLK   .BLKW #2
		PTR   .FILL MSG
		.END
	`)
	assert.NoError(err)
	assert.Equal([]uint16{
		uint16('H'), uint16('i'), uint16('!'), 0,
		0, 0,
		0x4000,
	}, prog.Words)
}

func TestAssembleEquates(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("BIAS", "#2")
	prog, err := asm.Assemble(strings.NewReader(`
		.EQU COUNT #5
		.ORIG x3000
		ADD R0, R0, #$(COUNT - BIAS)
		.FILL DSR
		.END
	`))
	assert.NoError(err)
	assert.Equal([]uint16{0x1023, 0xFE04}, prog.Words)
}

func TestAssembleOffsetRange(t *testing.T) {
	assert := assert.New(t)

	// 255 words between the branch and its target is the largest
	// forward offset the 9-bit field can hold.
	_, prog, err := assemble(t, `
		.ORIG x3000
		        BRnzp TARGET
		        .BLKW #255
		TARGET  HALT
		.END
	`)
	assert.NoError(err)
	assert.Equal(uint16(0x0EFF), prog.Words[0])

	_, _, err = assemble(t, `
		.ORIG x3000
		        BRnzp TARGET
		        .BLKW #256
		TARGET  HALT
		.END
	`)
	assert.Error(err)

	var fr *ErrFieldRange
	assert.ErrorAs(err, &fr)
	assert.Equal("TARGET", fr.What)
	assert.Equal(256, fr.Value)

	var syn *ErrSyntax
	assert.ErrorAs(err, &syn)
	assert.Equal(3, syn.LineNo)
}

func TestAssembleErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		source string
		want   error
	}){
		{"no_origin", "ADD R0, R0, #1\n.END\n", ErrOriginMissing},
		{"no_end", ".ORIG x3000\nHALT\n", ErrEndMissing},
		{"empty", ".ORIG x3000\n.END\n", ErrEmptyProgram},
		{"dup_origin", ".ORIG x3000\nHALT\n.ORIG x4000\n.END\n", ErrOriginDuplicate},
		{"dup_label", ".ORIG x3000\nA HALT\nA HALT\n.END\n", ErrDuplicateLabel("")},
		{"label_is_opcode", ".ORIG x3000\nADD: HALT\n.END\n", ErrLabelIsOpcode("")},
		{"label_is_register", ".ORIG x3000\nR3: HALT\n.END\n", ErrLabelIsOpcode("")},
		{"missing_label", ".ORIG x3000\nLD R0, NOWHERE\n.END\n", ErrLabelMissing("")},
		{"unknown_opcode", ".ORIG x3000\nX: FROB R1\n.END\n", ErrUnknownOpcode("")},
		{"bad_arity", ".ORIG x3000\nADD R0, R0\n.END\n", &ErrOperand{}},
		{"bad_number", ".ORIG x3000\nADD R0, R0, #zap\n.END\n", ErrParseNumber("")},
		{"bad_blkw", ".ORIG x3000\n.BLKW #0\n.END\n", &ErrOperand{}},
		{"bad_expr", ".ORIG x3000\nADD R0, R0, #$(1 +)\n.END\n", ErrParseExpression("")},
		{"dup_equate", ".EQU DSR x1234\n.ORIG x3000\nHALT\n.END\n", ErrEquateDuplicate},
	}

	for _, entry := range table {
		_, prog, err := assemble(t, entry.source)
		assert.Nil(prog, entry.name)
		if op, ok := entry.want.(*ErrOperand); ok {
			assert.ErrorAs(err, &op, entry.name)
		} else {
			assert.ErrorIs(err, entry.want, entry.name)
		}
	}
}

func TestAssembleCollectsErrors(t *testing.T) {
	assert := assert.New(t)

	_, prog, err := assemble(t, `
		.ORIG x3000
		ADD R0, R0
		LD R0, #bad
		HALT
		.END
	`)
	assert.Nil(prog)

	var op *ErrOperand
	assert.ErrorAs(err, &op)
	assert.ErrorIs(err, ErrParseNumber(""))
}

func TestAssembleBRVariants(t *testing.T) {
	assert := assert.New(t)

	_, prog, err := assemble(t, `
		.ORIG x3000
		HERE    BR HERE
		        BRn HERE
		        BRzp HERE
		        BRnzp HERE
		        NOP
		        RET
		        JSRR R4
		        JMP R2
		        STR R1, R6, #-1
		        TRAP x23
		.END
	`)
	assert.NoError(err)
	assert.Equal([]uint16{
		0x0FFF, // bare BR branches always
		0x09FE,
		0x07FD,
		0x0FFC,
		0x0000,
		0xC1C0,
		0x4100,
		0xC080,
		0x73BF,
		0xF023,
	}, prog.Words)
}
