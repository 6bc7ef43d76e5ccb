package cpu

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"log"
	"strconv"
	"strings"
)

// Line is a single byte of a program, and the source it came from.
type Line struct {
	LineNo  int    // Source line number, 1 based.
	Address int    // Memory address of the byte.
	Text    string // Source text, without the comment.
	Value   byte   // Memory contents.
}

// Program is a memory image, annotated with its source lines.
type Program struct {
	Lines []Line
}

// Debug locates the source line of an instruction.
type Debug struct {
	*Line
	Code Code
}

// Loader reads program listings: one base-2 byte per line, with '#'
// comments. Lines that do not start with a base-2 byte are skipped.
type Loader struct {
	Verbose bool // If set, logs skipped lines.
}

// LoadProgram parses a program listing.
func LoadProgram(input io.Reader) (prog *Program, err error) {
	loader := &Loader{}
	return loader.Load(input)
}

// Load parses a program listing into a Program.
func (ld *Loader) Load(input io.Reader) (prog *Program, err error) {
	prog = &Program{}

	reader := bufio.NewReader(input)

	var lineno int
	for {
		var text string
		text, err = reader.ReadString('\n')
		if err == io.EOF {
			if len(text) == 0 {
				err = nil
				break
			}
			err = nil
		} else if err != nil {
			return
		}
		lineno++

		source := strings.TrimRight(text, "\r\n")
		code, _, _ := strings.Cut(source, "#")
		words := strings.Fields(code)
		if len(words) == 0 {
			continue
		}

		value, perr := strconv.ParseUint(words[0], 2, 8)
		if perr != nil {
			if ld.Verbose {
				log.Printf("load: line %d: skipped %d bytes", lineno, len(source))
			}
			continue
		}

		if len(prog.Lines) == MEMORY_SIZE {
			err = &ErrSyntax{LineNo: lineno, Line: source, Err: ErrProgramTooLarge}
			return
		}

		prog.Lines = append(prog.Lines, Line{
			LineNo:  lineno,
			Address: len(prog.Lines),
			Text:    strings.TrimSpace(code),
			Value:   byte(value),
		})
	}

	return
}

// Binary returns the memory image of the program.
func (prog *Program) Binary() (image []byte) {
	for _, line := range prog.Lines {
		image = append(image, line.Value)
	}

	return
}

// Codes iterates over the instructions of the program, in memory order.
// Operands missing from the end of the program decode as zero.
func (prog *Program) Codes() iter.Seq2[int, Code] {
	return func(yield func(address int, code Code) bool) {
		image := prog.Binary()
		for address := 0; address < len(image); {
			code := Code{Opcode: Opcode(image[address])}
			if code.Opcode.Valid() {
				for n := range code.Opcode.Operands() {
					var arg byte
					if address+1+n < len(image) {
						arg = image[address+1+n]
					}
					code.Operands = append(code.Operands, arg)
				}
			}
			if !yield(address, code) {
				return
			}
			address += len(code.Operands) + 1
		}
	}
}

// Debug returns the source of the instruction at an address.
func (prog *Program) Debug(address int) (dbg Debug) {
	for n := range prog.Lines {
		if prog.Lines[n].Address == address {
			dbg.Line = &prog.Lines[n]
			break
		}
	}

	if dbg.Line == nil {
		return
	}

	for at, code := range prog.Codes() {
		if at == address {
			dbg.Code = code
			break
		}
	}

	return
}

// WriteListing writes the program as a listing that LoadProgram accepts.
func (prog *Program) WriteListing(output io.Writer) (err error) {
	for n, line := range prog.Lines {
		if n > 0 && prog.Lines[n-1].LineNo == line.LineNo {
			_, err = fmt.Fprintf(output, "%08b\n", line.Value)
		} else {
			_, err = fmt.Fprintf(output, "%08b # %02X: %v\n", line.Value, line.Address, line.Text)
		}
		if err != nil {
			return
		}
	}

	return
}
