package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/umips/io"
)

// Console is the character I/O device used by the syscall handler.
type Console = io.Console

var _cpu_defines = map[string]string{
	"MEMORY_SIZE": fmt.Sprintf("0x%x", MEMORY_SIZE),
	"TEXT_BASE":   fmt.Sprintf("0x%x", TEXT_BASE),
	"DATA_BASE":   fmt.Sprintf("0x%x", DATA_BASE),
	"GP_BASE":     fmt.Sprintf("0x%x", GP_BASE),
	"STACK_TOP":   fmt.Sprintf("0x%x", STACK_TOP),
}

// Cpu is the simulation context: 32 general purpose registers, the
// word-addressable memory, the program counter, and the transient
// jump-pending flag consumed by the delay-slot rule.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Register [32]uint32 // Register bank. Index 0 is hardwired to zero.
	Memory   *Memory    // Simulated memory.
	Pc       uint32     // Current program counter, a word-aligned byte address.
	Console  *Console   // Console device for the syscall handler.

	Ticks int // Executed instruction counter, delay slots included.

	jumped bool // Set by a taken branch or jump for the current step only.
}

// NewCpu creates a new CPU with a specifically sized memory.
func NewCpu(size uint32) (cpu *Cpu) {
	cpu = &Cpu{
		Memory:  NewMemory(size),
		Console: &Console{},
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Clears the registers and memory.
// - Zeros the tick counter.
// - Presets the global pointer and stack pointer registers.
// - Points the program counter at the text base.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Memory.Reset()
	cpu.Register[REG_GP] = GP_BASE
	cpu.Register[REG_SP] = STACK_TOP
	cpu.Pc = TEXT_BASE
	cpu.Ticks = 0
	cpu.jumped = false
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text = fmt.Sprintf("   pc: %08x\n", cpu.Pc)
	for n, value := range cpu.Register {
		text += fmt.Sprintf("% 5s: %08x\n", regName[n], value)
	}

	return
}

// ReadRegister reads a register. Register 0 always yields zero.
func (cpu *Cpu) ReadRegister(index int) uint32 {
	return cpu.Register[index]
}

// WriteRegister writes a register. Writes to register 0 are no-ops.
func (cpu *Cpu) WriteRegister(index int, value uint32) {
	if index == REG_ZERO {
		return
	}

	cpu.Register[index] = value
}

// Tick executes a single fetch/decode/execute step. A zero word is
// skipped without dispatch, guaranteeing forward progress. After the
// step the program counter advances by one word unless the executed
// instruction committed a jump.
func (cpu *Cpu) Tick() (err error) {
	word, err := cpu.Memory.Word(cpu.Pc)
	if err != nil {
		return
	}

	cpu.Ticks += 1

	if word == 0 {
		cpu.Pc += 4
		return
	}

	ins := Ins{Word: word}
	if cpu.Verbose {
		log.Printf("%08x: %v", cpu.Pc, ins)
	}

	err = cpu.Execute(ins)
	if err != nil {
		return
	}

	if cpu.jumped {
		cpu.jumped = false
	} else {
		cpu.Pc += 4
	}

	return
}

// Execute executes a single decoded instruction against the CPU state.
func (cpu *Cpu) Execute(ins Ins) (err error) {
	defer func() {
		if err != nil && !errors.Is(err, ErrHalt) {
			err = errors.Join(ErrIns(ins), err)
		}
	}()

	switch ins.Format() {
	case FORMAT_R:
		err = cpu.executeR(ins)
	case FORMAT_J:
		err = cpu.executeJ(ins)
	default:
		err = cpu.executeI(ins)
	}

	return
}

// jumpTo executes the delay-slot instruction at pc+4 to completion
// against the current state, then commits the program counter to its
// target and raises the jump-pending flag. The instruction following
// a branch or jump always executes, taken or not; callers only reach
// here for the taken case, the not-taken case falls through to the
// ordinary advance. A further control-flow instruction in the delay
// slot is a fatal error.
func (cpu *Cpu) jumpTo(target uint32) (err error) {
	word, err := cpu.Memory.Word(cpu.Pc + 4)
	if err != nil {
		return
	}

	if word != 0 {
		slot := Ins{Word: word}
		if slot.Jumps() {
			err = errors.Join(ErrDelaySlot, ErrIns(slot))
			return
		}
		if cpu.Verbose {
			log.Printf("%08x: %v (delay slot)", cpu.Pc+4, slot)
		}
		cpu.Ticks += 1
		err = cpu.Execute(slot)
		if err != nil {
			return
		}
	}

	cpu.Pc = target
	cpu.jumped = true
	return
}

// executeR executes a register-format instruction. All arithmetic is
// on 32-bit words with wraparound, matching two's-complement hardware.
func (cpu *Cpu) executeR(ins Ins) (err error) {
	rs, rt, rd, shamt, funct := ins.RDecode()
	a := cpu.Register[rs]
	b := cpu.Register[rt]

	switch funct {
	case FUNCT_ADD, FUNCT_ADDU:
		cpu.WriteRegister(rd, a+b)
	case FUNCT_SUB:
		cpu.WriteRegister(rd, a-b)
	case FUNCT_AND:
		cpu.WriteRegister(rd, a&b)
	case FUNCT_OR:
		cpu.WriteRegister(rd, a|b)
	case FUNCT_XOR:
		cpu.WriteRegister(rd, a^b)
	case FUNCT_NOR:
		cpu.WriteRegister(rd, ^(a | b))
	case FUNCT_SLT:
		// Signed compare.
		var value uint32
		if int32(a) < int32(b) {
			value = 1
		}
		cpu.WriteRegister(rd, value)
	case FUNCT_SLL:
		cpu.WriteRegister(rd, b<<shamt)
	case FUNCT_SRL:
		cpu.WriteRegister(rd, b>>shamt)
	case FUNCT_SRA:
		cpu.WriteRegister(rd, uint32(int32(b)>>shamt))
	case FUNCT_JR:
		err = cpu.jumpTo(a)
	case FUNCT_JALR:
		// Return address is past the delay slot.
		cpu.WriteRegister(rd, cpu.Pc+8)
		err = cpu.jumpTo(a)
	case FUNCT_SYSCALL:
		err = cpu.syscall()
	default:
		err = ErrFunctUnknown
	}

	return
}

// executeI executes an immediate-format instruction. The 16-bit
// immediate arrives sign-extended from the decoder; andi and ori mask
// it back to the zero-extended bit pattern.
func (cpu *Cpu) executeI(ins Ins) (err error) {
	op, rs, rt, imm := ins.IDecode()
	a := cpu.Register[rs]

	switch op {
	case OP_ADDI, OP_ADDIU:
		cpu.WriteRegister(rt, a+uint32(imm))
	case OP_ANDI:
		cpu.WriteRegister(rt, a&(uint32(imm)&0xffff))
	case OP_ORI:
		cpu.WriteRegister(rt, a|(uint32(imm)&0xffff))
	case OP_SLTI:
		// Signed compare against the sign-extended immediate.
		var value uint32
		if int32(a) < imm {
			value = 1
		}
		cpu.WriteRegister(rt, value)
	case OP_LUI:
		cpu.WriteRegister(rt, (uint32(imm)&0xffff)<<16)
	case OP_BEQ:
		if a == cpu.Register[rt] {
			err = cpu.jumpTo(cpu.Pc + uint32(imm<<2))
		}
	case OP_BNE:
		if a != cpu.Register[rt] {
			err = cpu.jumpTo(cpu.Pc + uint32(imm<<2))
		}
	case OP_BGEZ:
		// Compares rs against zero, not rt.
		if int32(a) >= 0 {
			err = cpu.jumpTo(cpu.Pc + uint32(imm<<2))
		}
	case OP_BLEZ:
		if int32(a) <= 0 {
			err = cpu.jumpTo(cpu.Pc + uint32(imm<<2))
		}
	case OP_LB:
		var value uint8
		value, err = cpu.Memory.Byte(a + uint32(imm))
		if err != nil {
			return
		}
		cpu.WriteRegister(rt, uint32(value))
	case OP_LH:
		var value uint16
		value, err = cpu.Memory.Halfword(a + uint32(imm))
		if err != nil {
			return
		}
		cpu.WriteRegister(rt, uint32(int32(int16(value))))
	case OP_LHU:
		var value uint16
		value, err = cpu.Memory.Halfword(a + uint32(imm))
		if err != nil {
			return
		}
		cpu.WriteRegister(rt, uint32(value))
	case OP_LW:
		var value uint32
		value, err = cpu.Memory.Word(a + uint32(imm))
		if err != nil {
			return
		}
		cpu.WriteRegister(rt, value)
	case OP_SW:
		err = cpu.Memory.SetWord(a+uint32(imm), cpu.Register[rt])
	default:
		err = ErrOpcodeUnknown
	}

	return
}

// executeJ executes a jump-format instruction. The target composes
// the upper 4 bits of the jump's own address with the 26-bit address
// field shifted into word units.
func (cpu *Cpu) executeJ(ins Ins) (err error) {
	op, address := ins.JDecode()
	target := (cpu.Pc & 0xf0000000) | (address << 2)

	switch op {
	case OP_J:
		err = cpu.jumpTo(target)
	case OP_JAL:
		// Return address is past the delay slot.
		cpu.WriteRegister(REG_RA, cpu.Pc+8)
		err = cpu.jumpTo(target)
	default:
		err = ErrOpcodeUnknown
	}

	return
}
