package cpu

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assemble(t *testing.T, program []string) (prog *Program, err error) {
	asm := &Assembler{}
	return asm.Parse(strings.NewReader(strings.Join(program, "\n")))
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Lines))

	assert.Equal(fmt.Sprintf("%d", REG_SP), asm.Equate["REG_SP"])
	assert.Equal(fmt.Sprintf("%#x", SP_INIT), asm.Equate["SP_INIT"])
	assert.Equal(fmt.Sprintf("%d", MEMORY_SIZE), asm.Equate["MEMORY_SIZE"])
	assert.Equal(fmt.Sprintf("%d", REGISTER_COUNT), asm.Equate["REGISTER_COUNT"])
}

func TestAssembler_Print8(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"; print8: Print the number 8 on the screen",
		"",
		"LDI R0,8",
		"PRN R0",
		"HLT",
	}

	prog, err := assemble(t, program)
	assert.NoError(err)
	assert.Equal([]byte{0x82, 0x00, 0x08, 0x47, 0x00, 0x01}, prog.Binary())

	assert.Equal(Line{LineNo: 3, Address: 0, Text: "LDI R0,8", Value: 0x82}, prog.Lines[0])
	assert.Equal(Line{LineNo: 3, Address: 2, Text: "LDI R0,8", Value: 0x08}, prog.Lines[2])
	assert.Equal(Line{LineNo: 5, Address: 5, Text: "HLT", Value: 0x01}, prog.Lines[5])
}

func TestAssembler_Syntax(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"  ldi   r1 , 0x10   ; lower case, spaces",
		"LDI R2 -1",
		"LDI SP, 0b1111_0000",
		"LDI R3,'A'",
		"add r1,r2",
	}

	prog, err := assemble(t, program)
	assert.NoError(err)
	assert.Equal([]byte{
		0x82, 1, 0x10,
		0x82, 2, 0xff,
		0x82, 7, 0xf0,
		0x82, 3, 'A',
		0xa0, 1, 2,
	}, prog.Binary())
}

func TestAssembler_Character(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		line  string
		value byte
	}){
		{"LDI R0,'A'", 'A'},
		{"LDI R0,' '", ' '},
		{"LDI R0,','", ','},
		{"LDI R0,';'", ';'},
		{"LDI R0,';' ; comment ';'", ';'},
		{"LDI R0 , '\t'", '\t'},
		{"LDI R0,$(ord(';'))", ';'},
	}

	for _, entry := range table {
		prog, err := assemble(t, []string{entry.line})
		if !assert.NoError(err, entry.line) {
			continue
		}
		assert.Equal([]byte{0x82, 0, entry.value}, prog.Binary(), entry.line)
	}

	prog, err := assemble(t, []string{".db ' ', ',', ';', 'x' ; data"})
	assert.NoError(err)
	assert.Equal([]byte{' ', ',', ';', 'x'}, prog.Binary())
}

func TestAssembler_Labels(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"        LDI R1,Sub     ; forward reference",
		"        CALL R1",
		"        HLT",
		"Sub:",
		"Again:  INC R0",
		"        RET",
	}

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	assert.Equal(6, asm.Label["Sub"])
	assert.Equal(6, asm.Label["Again"])
	assert.Equal([]byte{
		0x82, 1, 6,
		0x50, 1,
		0x01,
		0x65, 0,
		0x11,
	}, prog.Binary())
}

func TestAssembler_Equate(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".equ COUNT 10",
		".equ LIMIT $(COUNT * 2 + End)",
		".equ TMP R4",
		"LDI TMP,COUNT",
		"LDI R5,LIMIT",
		"LDI R6,$(SP_INIT - 1)",
		"LDI R0,$(Data - 1)",
		"End: HLT",
		"Data: .db 1, 2, $(0x80 | 1)",
	}

	prog, err := assemble(t, program)
	assert.NoError(err)
	assert.Equal([]byte{
		0x82, 4, 10,
		0x82, 5, 32,
		0x82, 6, 0xf3,
		0x82, 0, 12,
		0x01,
		1, 2, 0x81,
	}, prog.Binary())
}

func TestAssembler_Predefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("VALUE", "42")
	asm.Predefine("OUT", "R2")

	prog, err := asm.Parse(strings.NewReader("LDI OUT,VALUE\nPRN OUT\n"))
	assert.NoError(err)
	assert.Equal([]byte{0x82, 2, 42, 0x47, 2}, prog.Binary())
}

func TestAssembler_Errors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		program []string
		lineno  int
		err     error
	}){
		{[]string{"MOV R0,R1"}, 1, ErrInstructionInvalid},
		{[]string{"NOP", "LDI R0"}, 2, ErrOpcodeValueMissing},
		{[]string{"PRN R0,R1"}, 1, ErrOpcodeExtraArgs},
		{[]string{".db"}, 1, ErrOpcodeValueMissing},
		{[]string{"PRN R8"}, 1, ErrRegisterInvalid},
		{[]string{"LDI 1,2"}, 1, ErrRegisterInvalid},
		{[]string{"LDI R0,256"}, 1, ErrParseNumber("256")},
		{[]string{"LDI R0,0x1g"}, 1, ErrParseNumber("0x1g")},
		{[]string{"LDI R0,R1"}, 1, ErrLabelMissing("R1")},
		{[]string{"LDI R0,-129"}, 1, ErrParseNumber("-129")},
		{[]string{"LDI R0,Nowhere"}, 1, ErrLabelMissing("Nowhere")},
		{[]string{"LDI R0,$(1 +)"}, 1, ErrParseExpression("1 +")},
		{[]string{"LDI R0,$('a')"}, 1, ErrParseExpression("'a'")},
		{[]string{"A: NOP", "A: NOP"}, 2, ErrLabelDuplicate},
		{[]string{".equ A 1", "A: NOP"}, 2, ErrLabelDuplicate},
		{[]string{".equ A 1", ".equ A 2"}, 2, ErrEquateDuplicate},
		{[]string{".equ A"}, 1, ErrEquateSyntax},
		{[]string{".equ A A", "LDI R0,A"}, 2, ErrParseNumber("A")},
		{[]string{strings.Repeat(".db 0, 0, 0, 0\n", 64) + "NOP"}, 65, ErrProgramTooLarge},
	}

	for _, entry := range table {
		prog, err := assemble(t, entry.program)
		assert.Nil(prog, entry.program)
		assert.ErrorIs(err, entry.err, entry.program)

		var se *ErrSyntax
		if assert.True(errors.As(err, &se), entry.program) {
			assert.Equal(entry.lineno, se.LineNo, entry.program)
		}
	}
}

func TestAssembler_Run(t *testing.T) {
	assert := assert.New(t)

	// Multiply two numbers by repeated addition.
	program := []string{
		"        LDI R0,0        ; result",
		"        LDI R1,6",
		"        LDI R2,7        ; counter",
		"        LDI R3,0",
		"        LDI R4,Loop",
		"        LDI R5,Done",
		"Loop:   CMP R2,R3",
		"        JEQ R5",
		"        ADD R0,R1",
		"        DEC R2",
		"        JMP R4",
		"Done:   PRN R0",
		"        HLT",
	}

	prog, err := assemble(t, program)
	assert.NoError(err)

	cpu := NewCpu()
	output := &bytes.Buffer{}
	cpu.Output = output
	assert.NoError(cpu.Load(prog.Binary()))
	assert.NoError(cpu.Run())
	assert.Equal("42\n", output.String())
}

func TestSplitWords(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"LDI", "R0", "8"}, splitWords("LDI R0,8"))
	assert.Equal([]string{"LDI", "R0", "$(1, 2)[0]"}, splitWords("LDI R0, $(1, 2)[0]"))
	assert.Equal([]string{"A:", "B:", "NOP"}, splitWords("A: B:\tNOP"))
	assert.Empty(splitWords("  ,  "))
	assert.Equal([]string{".db", "' '", "','", "'a'"}, splitWords(".db ' ', ',','a'"))
	assert.Equal([]string{"LDI", "R0", "'"}, splitWords("LDI R0,'"))

	assert.Equal("LDI R0,';' ", cutComment("LDI R0,';' ; c"))
	assert.Equal("LDI R0,1", cutComment("LDI R0,1"))
	assert.Equal("", cutComment("; all comment"))
}
