// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/emulator"
	"github.com/ezrec/ls8/translate"
)

const defaultProgram = "examples/call.ls8"

func main() {
	var assemble bool
	var listing bool
	var output string
	var verbose bool

	asm := &cpu.Assembler{}

	flag.BoolVar(&assemble, "a", false, "Program is assembler source, not a binary listing")
	flag.BoolVar(&listing, "l", false, "Write the binary listing, do not execute")
	flag.StringVar(&output, "o", "-", "Output for PRN, or the listing")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.Func("D", "Assembler equate, as NAME=VALUE", func(define string) (err error) {
		name, value, ok := strings.Cut(define, "=")
		if !ok || len(name) == 0 {
			err = cpu.ErrEquateSyntax
			return
		}
		asm.Predefine(name, value)
		return
	})

	flag.Parse()

	var source string
	switch flag.NArg() {
	case 0:
		source = defaultProgram
	case 1:
		source = flag.Arg(0)
	default:
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args()[1:])
	}

	inf, err := os.Open(source)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}
	defer inf.Close()

	var prog *cpu.Program
	if assemble {
		asm.Verbose = verbose
		prog, err = asm.Parse(inf)
	} else {
		loader := &cpu.Loader{Verbose: verbose}
		prog, err = loader.Load(inf)
	}
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	var ouf io.Writer = os.Stdout
	if output != "-" {
		file, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer file.Close()
		ouf = file
	}

	if listing {
		err = prog.WriteListing(ouf)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	emu := emulator.NewEmulator()
	emu.Program = prog
	emu.Verbose = verbose
	emu.Cpu.Output = ouf

	err = emu.Reset()
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	err = emu.Run()
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	if verbose {
		translate.Fprintf(os.Stderr, "%v: halted after %d instructions\n", source, emu.Cpu.Ticks)
	}
}
