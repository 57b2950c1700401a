package main

import (
	"flag"
	"log"
	"os"

	"github.com/ezrec/umips/cpu"
	"github.com/ezrec/umips/emulator"
)

func main() {
	var compile string
	var text string
	var data string
	var save bool
	var input string
	var output string
	var limit int
	var verbose bool

	flag.StringVar(&compile, "c", "", ".s file to assemble")
	flag.StringVar(&text, "t", "", "text image file (input, or output with -s)")
	flag.StringVar(&data, "d", "", "data image file (input, or output with -s)")
	flag.BoolVar(&save, "s", false, "Save assembled images, do not execute")
	flag.StringVar(&input, "i", "-", "Console input")
	flag.StringVar(&output, "o", "-", "Console output")
	flag.IntVar(&limit, "n", emulator.TICK_LIMIT, "Instruction count ceiling")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Limit = limit

	prog := &cpu.Program{}

	switch {
	case len(compile) != 0:
		// Assemble a new program image.
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{}
		for attr, val := range emu.Defines() {
			asm.Predefine(attr, val)
		}
		prog, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	case len(text) != 0 && !save:
		// Load a binary program image.
		tf, err := os.Open(text)
		if err != nil {
			log.Fatalf("%v: %v", text, err)
		}
		defer tf.Close()

		var df *os.File
		if len(data) != 0 {
			df, err = os.Open(data)
			if err != nil {
				log.Fatalf("%v: %v", data, err)
			}
			defer df.Close()
		}

		if df != nil {
			prog, err = cpu.ReadImage(tf, df)
		} else {
			prog, err = cpu.ReadImage(tf, nil)
		}
		if err != nil {
			log.Fatalf("%v: %v", text, err)
		}
	default:
		log.Fatalf("%v: Nothing to assemble or run", os.Args[0])
	}

	if save {
		if len(text) == 0 {
			log.Fatalf("%v: -s requires -t", os.Args[0])
		}
		tf, err := os.Create(text)
		if err != nil {
			log.Fatalf("%v: %v", text, err)
		}
		defer tf.Close()

		var df *os.File
		if len(data) != 0 {
			df, err = os.Create(data)
			if err != nil {
				log.Fatalf("%v: %v", data, err)
			}
			defer df.Close()
		}

		if df != nil {
			err = prog.WriteImage(tf, df)
		} else {
			err = prog.WriteImage(tf, nil)
		}
		if err != nil {
			log.Fatalf("%v: %v", text, err)
		}
		return
	}

	emu.Program = prog

	if input == "-" {
		emu.Console.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.Console.Input = inf
	}

	if output == "-" {
		emu.Console.Output = os.Stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
		emu.Console.Output = ouf
	}

	err := emu.Reset()
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}

	err = emu.Run()
	if err != nil {
		// A fatal simulator error exits with a status distinct
		// from load and usage failures.
		log.Print(err)
		os.Exit(2)
	}
}
