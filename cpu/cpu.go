package cpu

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

const (
	REGISTER_COUNT = 8 // Number of general purpose registers.
)

// Cpu is the simulation context for the LS-8 processor.
type Cpu struct {
	Verbose bool      // Set to enable verbose logging.
	Output  io.Writer // Destination of PRN output.

	Memory   Memory                // Main memory.
	Register [REGISTER_COUNT]uint8 // Register bank. R7 is the stack pointer.
	Pc       int                   // Address of the next instruction.
	Flags    Flags                 // Result of the last CMP.
	Halted   bool                  // Set once HLT has executed.

	Ticks int // Instructions executed since reset.
}

// NewCpu creates a new CPU in its reset state, printing to stdout.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{
		Output: os.Stdout,
	}

	cpu.Reset()

	return
}

// Reset the CPU state.
// - Clears memory and the registers.
// - Sets the stack pointer to SP_INIT.
// - Clears the flags, and the halt state.
// - Zeros the tick counter.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Memory.Reset()
	clear(cpu.Register[:])
	cpu.Register[REG_SP] = SP_INIT
	cpu.Pc = 0
	cpu.Flags = 0
	cpu.Halted = false
	cpu.Ticks = 0
}

// Load copies a memory image into memory, starting at address 0.
func (cpu *Cpu) Load(image []byte) (err error) {
	if len(image) > len(cpu.Memory) {
		err = ErrProgramTooLarge
		return
	}

	copy(cpu.Memory[:], image)

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes", len(image))
	}

	return
}

// GetRegister returns the value of a register.
// Panics if the register index is out of range.
func (cpu *Cpu) GetRegister(index int) uint8 {
	if index < 0 || index >= len(cpu.Register) {
		panic(fmt.Sprintf("cpu: register %d out of range", index))
	}
	return cpu.Register[index]
}

// SetRegister sets the value of a register.
// Panics if the register index is out of range.
func (cpu *Cpu) SetRegister(index int, value uint8) {
	if index < 0 || index >= len(cpu.Register) {
		panic(fmt.Sprintf("cpu: register %d out of range", index))
	}
	cpu.Register[index] = value
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("% 5s: %02X\n", "pc", cpu.Pc)
	text += fmt.Sprintf("% 5s: %v\n", "fl", cpu.Flags)
	for n, val := range cpu.Register {
		reg := fmt.Sprintf("r%d", n)
		if n == REG_SP {
			reg = "sp"
		}
		text += fmt.Sprintf("% 5s: %02X\n", reg, val)
	}

	var stack string
	val, err := cpu.Peek()
	if err == nil && cpu.Register[REG_SP] != SP_INIT {
		stack = fmt.Sprintf("%02X", val)
	} else {
		stack = "--"
	}
	text += fmt.Sprintf("% 5s: %v\n", "stack", stack)

	return
}

// Trace returns a single line of the PC, the next three bytes of memory,
// and the register bank.
func (cpu *Cpu) Trace() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "TRACE: %02X |", cpu.Pc)
	for n := range 3 {
		val, err := cpu.Memory.Read(cpu.Pc + n)
		if err != nil {
			sb.WriteString(" --")
		} else {
			fmt.Fprintf(&sb, " %02X", val)
		}
	}
	sb.WriteString(" |")
	for _, val := range cpu.Register {
		fmt.Fprintf(&sb, " %02X", val)
	}

	return sb.String()
}

// FetchCode fetches the instruction at the PC, and the operands its
// opcode calls for.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	op, err := cpu.Memory.Read(cpu.Pc)
	if err != nil {
		return
	}

	code.Opcode = Opcode(op)
	if !code.Opcode.Valid() {
		// Nothing to decode.
		return
	}

	for n := range code.Opcode.Operands() {
		var arg uint8
		arg, err = cpu.Memory.Read(cpu.Pc + 1 + n)
		if err != nil {
			return
		}
		code.Operands = append(code.Operands, arg)
	}

	return
}

// Tick executes a single CPU instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	if cpu.Halted {
		err = ErrHalted
		return
	}

	if cpu.Verbose {
		log.Print(cpu.Trace())
	}

	code, err := cpu.FetchCode()
	if err != nil {
		err = errors.Join(ErrOpcode{Pc: cpu.Pc, Code: code}, err)
		return
	}

	err = cpu.Execute(code)

	return
}

// Run ticks the CPU until it halts, or fails.
func (cpu *Cpu) Run() (err error) {
	for !cpu.Halted {
		err = cpu.Tick()
		if err != nil {
			return
		}
	}

	return
}

// register returns the register index held by an operand.
func (code Code) register(n int) (index int, err error) {
	index = int(code.Operands[n])
	if index >= REGISTER_COUNT {
		err = ErrRegisterInvalid
	}
	return
}

// Execute executes a single decoded instruction.
//
// The PC advances past the instruction, unless the instruction is a
// control flow instruction that sets the PC itself. On error, the CPU
// state is unchanged.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode{Pc: cpu.Pc, Code: code}, err)
		}
	}()
	if cpu.Verbose {
		log.Printf("%02x: %v", cpu.Pc, code)
	}

	op := code.Opcode
	if !op.Valid() {
		err = ErrIllegalOpcode
		return
	}

	switch {
	case len(code.Operands) < op.Operands():
		err = ErrOpcodeValueMissing
		return
	case len(code.Operands) > op.Operands():
		err = ErrOpcodeExtraArgs
		return
	}

	// Decode register operands.
	var a, b int
	if op.Operands() > 0 {
		a, err = code.register(0)
		if err != nil {
			err = errors.Join(ErrOpcodeArg1, err)
			return
		}
	}
	if op.Operands() > 1 && !op.Immediate() {
		b, err = code.register(1)
		if err != nil {
			err = errors.Join(ErrOpcodeArg2, err)
			return
		}
	}

	reg := &cpu.Register

	next_pc := cpu.Pc + code.Size()

	switch op {
	case NOP:
		// pass
	case HLT:
		cpu.Halted = true
		next_pc = cpu.Pc
	case LDI:
		reg[a] = code.Operands[1]
	case PRN:
		_, err = fmt.Fprintf(cpu.Output, "%d\n", reg[a])
		if err != nil {
			return
		}
	case PUSH:
		err = cpu.Push(reg[a])
		if err != nil {
			return
		}
	case POP:
		var value uint8
		value, err = cpu.Pop()
		if err != nil {
			return
		}
		reg[a] = value
	case ADD, SUB, MUL, DIV, MOD, AND, OR, XOR, SHL, SHR:
		var value uint8
		value, err = cpu.doAlu(op, reg[a], reg[b])
		if err != nil {
			return
		}
		reg[a] = value
	case NOT:
		reg[a] = ^reg[a]
	case INC:
		reg[a]++
	case DEC:
		reg[a]--
	case CMP:
		cpu.Flags.Compare(reg[a], reg[b])
	case JMP:
		next_pc = int(reg[a])
	case JEQ:
		if cpu.Flags.Equal() {
			next_pc = int(reg[a])
		}
	case JNE:
		if !cpu.Flags.Equal() {
			next_pc = int(reg[a])
		}
	case CALL:
		if next_pc >= MEMORY_SIZE {
			err = ErrAddressRange
			return
		}
		err = cpu.Push(uint8(next_pc))
		if err != nil {
			return
		}
		next_pc = int(reg[a])
	case RET:
		var value uint8
		value, err = cpu.Pop()
		if err != nil {
			return
		}
		next_pc = int(value)
	}

	cpu.Pc = next_pc
	cpu.Ticks++

	return
}

// doAlu performs the requested ALU action, and returns the output value.
// All results are truncated to the 8-bit word.
func (cpu *Cpu) doAlu(op Opcode, input uint8, value uint8) (output uint8, err error) {
	switch op {
	case ADD:
		output = input + value
	case SUB:
		output = input - value
	case MUL:
		output = input * value
	case DIV:
		if value == 0 {
			err = ErrDivideByZero
			return
		}
		output = input / value
	case MOD:
		if value == 0 {
			err = ErrDivideByZero
			return
		}
		output = input % value
	case AND:
		output = input & value
	case OR:
		output = input | value
	case XOR:
		output = input ^ value
	case SHL:
		output = uint8((uint16(input) << value) & 0xff)
	case SHR:
		output = input >> value
	default:
		err = ErrIllegalOpcode
	}

	return
}
