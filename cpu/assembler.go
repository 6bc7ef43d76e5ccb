package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/ls8/internal"
)

// Predefined system equates
var sysEquate = map[string]string{
	"REG_SP":         fmt.Sprintf("%d", REG_SP),
	"SP_INIT":        fmt.Sprintf("%#x", SP_INIT),
	"MEMORY_SIZE":    fmt.Sprintf("%d", MEMORY_SIZE),
	"REGISTER_COUNT": fmt.Sprintf("%d", REGISTER_COUNT),
}

// regMap is a map of register names to register indexes.
var regMap = map[string]uint8{
	"R0": 0,
	"R1": 1,
	"R2": 2,
	"R3": 3,
	"R4": 4,
	"R5": 5,
	"R6": 6,
	"R7": 7,
	"SP": REG_SP,
}

// identRegexp matches the names an expression may refer to.
var identRegexp = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// maxEquateDepth bounds equates defined in terms of other equates.
const maxEquateDepth = 16

// statement is a single instruction or data line, placed in memory.
type statement struct {
	LineNo  int
	Line    string
	Words   []string
	Address int
}

// Assembler is a two pass assembler for LS-8 mnemonics.
//
// Source lines have the form:
//
//	[LABEL:]... [MNEMONIC [OPERAND[, OPERAND]]] [; comment]
//
// Operands are registers (R0-R7, SP), or values. A value is a number
// (in any Go literal base), a 'c' character, an equate, a label, or a
// $(...) expression evaluated at compile time.
//
// Directives are '.equ NAME VALUE' and '.db VALUE[, VALUE]...'.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of labels to addresses.
	Equate    map[string]string // Map of equates.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// quoteAt returns the length of a 'c' character literal at runes[n],
// or 0 if there is none.
func quoteAt(runes []rune, n int) int {
	if runes[n] == '\'' && n+2 < len(runes) && runes[n+2] == '\'' {
		return 3
	}
	return 0
}

// cutComment removes a ';' comment from a line. A ';' character
// literal does not start a comment.
func cutComment(line string) string {
	runes := []rune(line)
	for n := 0; n < len(runes); n++ {
		if size := quoteAt(runes, n); size > 0 {
			n += size - 1
			continue
		}
		if runes[n] == ';' {
			return string(runes[:n])
		}
	}
	return line
}

// splitWords splits a line on whitespace and commas, keeping
// parenthesised expressions and character literals intact.
func splitWords(line string) (words []string) {
	var word strings.Builder
	depth := 0

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	runes := []rune(line)
	for n := 0; n < len(runes); n++ {
		r := runes[n]
		if size := quoteAt(runes, n); size > 0 {
			word.WriteString(string(runes[n : n+size]))
			n += size - 1
			continue
		}
		switch {
		case r == '(':
			depth++
			word.WriteRune(r)
		case r == ')':
			if depth > 0 {
				depth--
			}
			word.WriteRune(r)
		case depth == 0 && (r == ',' || unicode.IsSpace(r)):
			flush()
		default:
			word.WriteRune(r)
		}
	}
	flush()

	return
}

// intOf returns the integer value of a word.
func (asm *Assembler) intOf(word string, depth int) (value int64, err error) {
	if depth > maxEquateDepth {
		err = ErrParseNumber(word)
		return
	}

	if equate, ok := asm.Equate[word]; ok {
		return asm.intOf(equate, depth+1)
	}

	if address, ok := asm.Label[word]; ok {
		value = int64(address)
		return
	}

	if strings.HasPrefix(word, "$(") && strings.HasSuffix(word, ")") {
		return asm.parenEval(word[2:len(word)-1], depth+1)
	}

	if len(word) == 3 && word[0] == '\'' && word[2] == '\'' {
		value = int64(word[1])
		return
	}

	value, err = strconv.ParseInt(word, 0, 64)
	if err != nil {
		if identRegexp.FindString(word) == word {
			err = ErrLabelMissing(word)
		} else {
			err = ErrParseNumber(word)
		}
		return
	}

	return
}

// valueOf returns the byte value of a word. Negative values down to
// -128 are stored as two's complement.
func (asm *Assembler) valueOf(word string) (value uint8, err error) {
	v64, err := asm.intOf(word, 0)
	if err != nil {
		return
	}

	if v64 < -0x80 || v64 > 0xff {
		err = ErrParseNumber(word)
		return
	}

	value = uint8(v64)
	return
}

// registerOf returns the register index named by a word.
func (asm *Assembler) registerOf(word string) (reg uint8, err error) {
	for range maxEquateDepth {
		var ok bool
		reg, ok = regMap[strings.ToUpper(word)]
		if ok {
			return
		}

		equate, ok := asm.Equate[word]
		if !ok {
			break
		}
		word = equate
	}

	err = ErrRegisterInvalid
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string, depth int) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	names := map[string]bool{}
	for _, name := range identRegexp.FindAllString(expr, -1) {
		names[name] = true
	}
	for key, str := range asm.Equate {
		if !names[key] {
			continue
		}
		var equate int64
		equate, err = asm.intOf(str, depth+1)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(equate)
	}
	for key, address := range asm.Label {
		if names[key] {
			pred[key] = starlark.MakeInt(address)
		}
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// place assigns labels and equates on a line, and returns the statement
// that places the line's instruction or data in memory.
func (asm *Assembler) place(words []string, address int) (stmt *statement, size int, err error) {
	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, is_label := asm.Label[label]
		_, is_equate := asm.Equate[label]
		if len(label) == 0 || is_label || is_equate {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = address
		words = words[1:]
	}

	if len(words) == 0 {
		return
	}

	switch strings.ToLower(words[0]) {
	case ".equ":
		// .equ CONST VALUE
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, is_label := asm.Label[words[1]]
		_, is_equate := asm.Equate[words[1]]
		if is_label || is_equate {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		return
	case ".db":
		// .db VALUE...
		size = len(words) - 1
		if size == 0 {
			err = ErrOpcodeValueMissing
			return
		}
	default:
		op, ok := OpcodeOf(words[0])
		if !ok {
			err = ErrInstructionInvalid
			return
		}
		args := len(words) - 1
		if args < op.Operands() {
			err = ErrOpcodeValueMissing
			return
		}
		if args > op.Operands() {
			err = ErrOpcodeExtraArgs
			return
		}
		size = op.Size()
	}

	stmt = &statement{Words: words, Address: address}

	return
}

// encode returns the memory contents of a placed statement.
func (asm *Assembler) encode(stmt *statement) (data []byte, err error) {
	words := stmt.Words

	if strings.ToLower(words[0]) == ".db" {
		for _, word := range words[1:] {
			var value uint8
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			data = append(data, value)
		}
		return
	}

	op, _ := OpcodeOf(words[0])
	code := Code{Opcode: op}
	for n, word := range words[1:] {
		var value uint8
		if n == 1 && op.Immediate() {
			value, err = asm.valueOf(word)
		} else {
			value, err = asm.registerOf(word)
		}
		if err != nil {
			return
		}
		code.Operands = append(code.Operands, value)
	}

	data = code.Bytes()
	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]int, 16)
	asm.Equate = maps.Collect(internal.Concat2(maps.All(sysEquate), maps.All(asm.predefine)))

	// First pass: place labels, equates, and statements.
	var stmts []*statement
	var address int
	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(cutComment(text))

		var stmt *statement
		var size int
		stmt, size, err = asm.place(splitWords(line), address)
		if err != nil {
			return
		}
		if stmt == nil {
			continue
		}

		stmt.LineNo = lineno
		stmt.Line = line
		stmts = append(stmts, stmt)

		address += size
		if address > MEMORY_SIZE {
			err = ErrProgramTooLarge
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Second pass: encode, now that all labels are known.
	prog = &Program{}
	for _, stmt := range stmts {
		lineno = stmt.LineNo
		line = stmt.Line

		var data []byte
		data, err = asm.encode(stmt)
		if err != nil {
			prog = nil
			return
		}

		for n, value := range data {
			prog.Lines = append(prog.Lines, Line{
				LineNo:  stmt.LineNo,
				Address: stmt.Address + n,
				Text:    stmt.Line,
				Value:   value,
			})
		}

		if asm.Verbose {
			log.Printf("%02x: % x ; %v", stmt.Address, data, stmt.Line)
		}
	}

	return
}
