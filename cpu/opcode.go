package cpu

import (
	"fmt"
	"strings"
)

// Opcode is an LS-8 instruction byte.
type Opcode uint8

//go:generate go tool stringer -type=Opcode
const (
	NOP  = Opcode(0b00000000)
	HLT  = Opcode(0b00000001)
	RET  = Opcode(0b00010001)
	PUSH = Opcode(0b01000101)
	POP  = Opcode(0b01000110)
	PRN  = Opcode(0b01000111)
	CALL = Opcode(0b01010000)
	JMP  = Opcode(0b01010100)
	JEQ  = Opcode(0b01010101)
	JNE  = Opcode(0b01010110)
	INC  = Opcode(0b01100101)
	DEC  = Opcode(0b01100110)
	NOT  = Opcode(0b01101001)
	LDI  = Opcode(0b10000010)
	ADD  = Opcode(0b10100000)
	SUB  = Opcode(0b10100001)
	MUL  = Opcode(0b10100010)
	DIV  = Opcode(0b10100011)
	MOD  = Opcode(0b10100100)
	CMP  = Opcode(0b10100111)
	AND  = Opcode(0b10101000)
	OR   = Opcode(0b10101010)
	XOR  = Opcode(0b10101011)
	SHL  = Opcode(0b10101100)
	SHR  = Opcode(0b10101101)
)

// Opcode field layout.
const (
	OPCODE_ARGS_SHIFT = 6
	OPCODE_ARGS_MASK  = Opcode(0b11 << OPCODE_ARGS_SHIFT)
)

// Opcodes lists the instruction set, in encoding order.
var Opcodes = []Opcode{
	NOP, HLT, RET,
	PUSH, POP, PRN, CALL, JMP, JEQ, JNE, INC, DEC, NOT,
	LDI, ADD, SUB, MUL, DIV, MOD, CMP, AND, OR, XOR, SHL, SHR,
}

// Operands returns the number of operand bytes that follow the opcode.
func (op Opcode) Operands() int {
	return int((op & OPCODE_ARGS_MASK) >> OPCODE_ARGS_SHIFT)
}

// Size returns the number of bytes the instruction occupies in memory.
func (op Opcode) Size() int {
	return 1 + op.Operands()
}

// Valid returns true if the opcode has a handler.
func (op Opcode) Valid() bool {
	switch op {
	case NOP, HLT, RET,
		PUSH, POP, PRN, CALL, JMP, JEQ, JNE, INC, DEC, NOT,
		LDI, ADD, SUB, MUL, DIV, MOD, CMP, AND, OR, XOR, SHL, SHR:
		return true
	}
	return false
}

// Immediate returns true if the second operand is a literal rather
// than a register index.
func (op Opcode) Immediate() bool {
	return op == LDI
}

// OpcodeOf looks up an opcode by mnemonic, ignoring case.
func OpcodeOf(mnemonic string) (op Opcode, ok bool) {
	mnemonic = strings.ToUpper(mnemonic)
	for _, op = range Opcodes {
		if op.String() == mnemonic {
			ok = true
			return
		}
	}

	return
}

// Code is a decoded instruction: an opcode and its operands.
type Code struct {
	Opcode   Opcode
	Operands []byte
}

// Bytes returns the encoded instruction.
func (code Code) Bytes() (data []byte) {
	data = append(data, byte(code.Opcode))
	data = append(data, code.Operands...)
	return
}

// Size returns the number of bytes the instruction occupies in memory.
func (code Code) Size() int {
	return code.Opcode.Size()
}

// String returns the assembly language representation of this instruction.
func (code Code) String() string {
	if !code.Opcode.Valid() {
		return fmt.Sprintf(".db 0x%02x", uint8(code.Opcode))
	}

	var args []string
	for n, arg := range code.Operands {
		if n == 1 && code.Opcode.Immediate() {
			args = append(args, fmt.Sprintf("%d", arg))
		} else {
			args = append(args, fmt.Sprintf("R%d", arg))
		}
	}

	if len(args) == 0 {
		return code.Opcode.String()
	}

	return code.Opcode.String() + " " + strings.Join(args, ",")
}
