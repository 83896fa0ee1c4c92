package emulator

import (
	"github.com/ezrec/lc3/translate"
)

var f = translate.From

// ErrRuntime locates a runtime error at the faulting PC, plus the
// source line when the program carries one.
type ErrRuntime struct {
	Addr uint16
	Line int
	Err  error
}

func (err *ErrRuntime) Error() string {
	if err.Line > 0 {
		return f("pc x%04X (line %d): %v", err.Addr, err.Line, err.Err)
	}
	return f("pc x%04X: %v", err.Addr, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
