package cpu

// Flags holds the result of the most recent CMP.
type Flags uint8

// Flag bits, laid out as 0b00000LGE.
const (
	FLAG_EQUAL   = Flags(1 << 0)
	FLAG_GREATER = Flags(1 << 1)
	FLAG_LESS    = Flags(1 << 2)
)

// Compare sets exactly one of the equal, greater or less flags.
func (fl *Flags) Compare(a, b uint8) {
	switch {
	case a == b:
		*fl = FLAG_EQUAL
	case a > b:
		*fl = FLAG_GREATER
	default:
		*fl = FLAG_LESS
	}
}

// Equal is set when the operands of the last CMP were equal.
func (fl Flags) Equal() bool {
	return fl&FLAG_EQUAL != 0
}

// Greater is set when the first operand of the last CMP was greater.
func (fl Flags) Greater() bool {
	return fl&FLAG_GREATER != 0
}

// Less is set when the first operand of the last CMP was less.
func (fl Flags) Less() bool {
	return fl&FLAG_LESS != 0
}

// String returns the flags as "LGE", with '-' for each clear flag.
func (fl Flags) String() string {
	out := []byte("---")
	if fl.Less() {
		out[0] = 'L'
	}
	if fl.Greater() {
		out[1] = 'G'
	}
	if fl.Equal() {
		out[2] = 'E'
	}
	return string(out)
}
