// Package cpu implements the LS-8 microprocessor, its program loader and
// its assembler.
//
// The CPU consists of a program counter (PC), eight 8-bit general-purpose
// registers (R0-R7, with R7 doubling as the stack pointer), 256 bytes of
// memory, and the equal/greater/less flags set by CMP.
//
// Instructions are a single opcode byte followed by zero, one, or two
// operand bytes. The operand count is held in the top two bits of the
// opcode.
//
// Programs are loaded from a listing of one base-2 byte per line, or
// assembled from LS-8 mnemonics with labels, equates, and compile-time
// expression evaluation.
package cpu
