package cpu

import (
	"errors"
)

const (
	REG_SP  = 7    // Register used as the stack pointer.
	SP_INIT = 0xf4 // Stack pointer at reset.
	SP_LAST = 0xff // Stack pointer at which a pop would overflow the register.
)

// Push decrements the stack pointer, and stores value at the new top of stack.
func (cpu *Cpu) Push(value uint8) (err error) {
	sp := int(cpu.Register[REG_SP]) - 1
	err = cpu.Memory.Write(sp, value)
	if err != nil {
		err = errors.Join(ErrStackFull, err)
		return
	}

	cpu.Register[REG_SP] = uint8(sp)
	return
}

// Pop returns the top of stack, and increments the stack pointer.
func (cpu *Cpu) Pop() (value uint8, err error) {
	if cpu.Register[REG_SP] == SP_LAST {
		err = errors.Join(ErrStackEmpty, ErrAddressRange)
		return
	}

	value, err = cpu.Peek()
	if err != nil {
		return
	}

	cpu.Register[REG_SP]++
	return
}

// Peek returns the top of stack.
func (cpu *Cpu) Peek() (value uint8, err error) {
	return cpu.Memory.Read(int(cpu.Register[REG_SP]))
}
