package cpu

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Assembler errors
	ErrOriginMissing   = errors.New(f(".ORIG missing"))
	ErrOriginDuplicate = errors.New(f("only one .ORIG section is allowed"))
	ErrEndMissing      = errors.New(f(".END missing"))
	ErrEquateSyntax    = errors.New(f(".EQU syntax"))
	ErrEquateDuplicate = errors.New(f(".EQU duplicated"))
	ErrEmptyProgram    = errors.New(f("no instructions between .ORIG and .END"))

	// Loader errors
	ErrObjectOdd   = errors.New(f("object file has an odd byte count"))
	ErrObjectEmpty = errors.New(f("object file has no origin word"))
)

// ErrReservedOpcode is a word whose opcode bits name the reserved
// opcode.
type ErrReservedOpcode uint16

func (err ErrReservedOpcode) Error() string {
	return f("reserved opcode in word x%04X", uint16(err))
}

func (err ErrReservedOpcode) Is(other error) (ok bool) {
	_, ok = other.(ErrReservedOpcode)
	return
}

// ErrIllegalEncoding is a word with bits set that the opcode's layout
// requires clear (or vice versa).
type ErrIllegalEncoding uint16

func (err ErrIllegalEncoding) Error() string {
	return f("illegal encoding x%04X", uint16(err))
}

func (err ErrIllegalEncoding) Is(other error) (ok bool) {
	_, ok = other.(ErrIllegalEncoding)
	return
}

// ErrFieldRange is a value that does not fit its instruction field.
// What names the offending label or literal when known.
type ErrFieldRange struct {
	What  string
	Value int
	Min   int
	Max   int
}

func (err *ErrFieldRange) Error() string {
	if err.What != "" {
		return f("'%v' resolves to %v, outside [%v, %v]", err.What, err.Value, err.Min, err.Max)
	}
	return f("value %v is outside [%v, %v]", err.Value, err.Min, err.Max)
}

// ErrUnknownOpcode is an unrecognized mnemonic.
type ErrUnknownOpcode string

func (err ErrUnknownOpcode) Error() string {
	return f("unknown opcode '%v'", string(err))
}

func (err ErrUnknownOpcode) Is(other error) (ok bool) {
	_, ok = other.(ErrUnknownOpcode)
	return
}

// ErrDuplicateLabel is a label defined more than once.
type ErrDuplicateLabel string

func (err ErrDuplicateLabel) Error() string {
	return f("label '%v' defined twice", string(err))
}

func (err ErrDuplicateLabel) Is(other error) (ok bool) {
	_, ok = other.(ErrDuplicateLabel)
	return
}

// ErrLabelMissing is a reference to a label that is never defined.
type ErrLabelMissing string

func (err ErrLabelMissing) Error() string {
	return f("label '%v' missing", string(err))
}

func (err ErrLabelMissing) Is(other error) (ok bool) {
	_, ok = other.(ErrLabelMissing)
	return
}

// ErrLabelIsOpcode is a label that collides with a mnemonic.
type ErrLabelIsOpcode string

func (err ErrLabelIsOpcode) Error() string {
	return f("label '%v' collides with an opcode", string(err))
}

func (err ErrLabelIsOpcode) Is(other error) (ok bool) {
	_, ok = other.(ErrLabelIsOpcode)
	return
}

// ErrOperand is a wrong operand count or kind for an opcode.
type ErrOperand struct {
	Opcode string
	Want   string
}

func (err *ErrOperand) Error() string {
	return f("%v expects %v", err.Opcode, err.Want)
}

// ErrParseNumber is a malformed numeric literal.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

func (err ErrParseNumber) Is(other error) (ok bool) {
	_, ok = other.(ErrParseNumber)
	return
}

// ErrParseExpression is a malformed $(...) expression.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

func (err ErrParseExpression) Is(other error) (ok bool) {
	_, ok = other.(ErrParseExpression)
	return
}

// ErrSyntax locates an assembly error in the source text.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v': %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrPrivilege is an RTI executed in user mode. Fatal to the run.
var ErrPrivilege = errors.New(f("RTI in user mode"))
