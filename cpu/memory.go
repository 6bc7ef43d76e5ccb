package cpu

const (
	MEMORY_SIZE = 256 // Bytes of addressable memory.
)

// Memory is the flat, byte addressable LS-8 memory.
type Memory [MEMORY_SIZE]byte

// Read returns the byte at address.
func (mem *Memory) Read(address int) (value byte, err error) {
	if address < 0 || address >= len(mem) {
		err = ErrAddressRange
		return
	}

	value = mem[address]
	return
}

// Write stores value at address.
func (mem *Memory) Write(address int, value byte) (err error) {
	if address < 0 || address >= len(mem) {
		err = ErrAddressRange
		return
	}

	mem[address] = value
	return
}

// Reset zeros all of memory.
func (mem *Memory) Reset() {
	clear(mem[:])
}
