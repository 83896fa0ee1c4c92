package cpu

// Register is an index into the machine register file.
type Register int

const (
	REG_R0 = Register(0) // r0
	REG_R1 = Register(1) // r1
	REG_R2 = Register(2) // r2
	REG_R3 = Register(3) // r3
	REG_R4 = Register(4) // r4
	REG_R5 = Register(5) // r5
	REG_R6 = Register(6) // r6
	REG_R7 = Register(7) // r7

	// Internal registers. These are never the target of a decoded user
	// instruction; the decoder only ever produces R0-R7.
	REG_PC  = Register(8)  // pc
	REG_PSR = Register(9)  // psr
	REG_SSP = Register(10) // ssp
	REG_USP = Register(11) // usp

	REGISTER_COUNT = 12
)

var registerNames = [REGISTER_COUNT]string{
	"R0", "R1", "R2", "R3", "R4", "R5", "R6", "R7",
	"PC", "PSR", "SSP", "USP",
}

func (r Register) String() string {
	if r < 0 || int(r) >= len(registerNames) {
		return "R?"
	}
	return registerNames[r]
}

// PSR condition code bits. Exactly one is set at any time after the
// first register write.
const (
	FLAG_POSITIVE = uint16(1 << 0)
	FLAG_ZERO     = uint16(1 << 1)
	FLAG_NEGATIVE = uint16(1 << 2)

	FLAG_MASK = FLAG_POSITIVE | FLAG_ZERO | FLAG_NEGATIVE
)

// PSR_SUPERVISOR is the privilege bit; set while servicing an interrupt
// or otherwise running in supervisor mode.
const PSR_SUPERVISOR = uint16(1 << 15)

// PSR priority field, bits 10:8.
const (
	PSR_PRIORITY_SHIFT = 8
	PSR_PRIORITY_MASK  = uint16(0x7 << PSR_PRIORITY_SHIFT)
)
