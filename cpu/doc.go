// Package cpu implements the LC-3 processor and its two-pass assembler.
//
// The processor has eight 16-bit general purpose registers (R0-R7), a
// program counter, a processor status register packing the condition
// codes with the privilege and priority bits, and supervisor/user stack
// pointers. Memory is a flat array of 65536 words with a handful of
// high addresses reserved for memory-mapped device registers.
//
// The instruction encoder used by the assembler and the decoder used by
// the execution engine are exact inverses over one shared field-layout
// table, so decode(encode(inst)) == inst holds for every instruction.
package cpu
