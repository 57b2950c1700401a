package emulator

import (
	"errors"
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/umips/cpu"
	"github.com/ezrec/umips/internal"
	"github.com/ezrec/umips/io"
)

const (
	TICK_LIMIT = 1_000_000 // Default instruction-count safety ceiling.
)

var _emulator_defines = map[string]string{
	"TICK_LIMIT": fmt.Sprintf("%v", TICK_LIMIT),
}

// Emulator state. CPU + program image + console.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently loaded program.

	Console io.Console // Console device wired to the syscall handler.

	Limit int // Instruction-count ceiling, TICK_LIMIT if zero.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(cpu.MEMORY_SIZE),
		Program: &cpu.Program{},
	}

	emu.Cpu.Console = &emu.Console

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset resets the CPU and deposits the program image: the text
// stream contiguously from TEXT_BASE and the data stream contiguously
// from DATA_BASE. The program counter starts at TEXT_BASE with $gp
// and $sp preset to their layout constants.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()

	for ip, ins := range emu.Program.Text() {
		err = emu.Cpu.Memory.SetWord(cpu.TEXT_BASE+uint32(ip)*4, ins.Word)
		if err != nil {
			err = errors.Join(cpu.ErrImageLarge, err)
			return
		}
	}

	for n, word := range emu.Program.Data {
		err = emu.Cpu.Memory.SetWord(cpu.DATA_BASE+uint32(n)*4, word)
		if err != nil {
			err = errors.Join(cpu.ErrImageLarge, err)
			return
		}
	}

	return
}

// Ticks returns the total instructions executed since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// LineNo returns the current source line number for the executing
// instruction, when the program carries a listing.
func (emu *Emulator) LineNo() int {
	if emu.Cpu.Pc < cpu.TEXT_BASE {
		return 0
	}

	dbg := emu.Program.Debug(int(emu.Cpu.Pc-cpu.TEXT_BASE) / 4)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.Opcode.LineNo
}

// Tick performs a single step of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrHalt) {
		err = nil
		done = true
	}

	return
}

// Run steps the emulator until the program exits or the instruction
// ceiling is reached. Exceeding the ceiling terminates the run
// cleanly, as a safety bound rather than an error.
func (emu *Emulator) Run() (err error) {
	limit := emu.Limit
	if limit == 0 {
		limit = TICK_LIMIT
	}

	for emu.Cpu.Ticks < limit {
		var done bool
		done, err = emu.Tick()
		if done || err != nil {
			return
		}
	}

	return
}
