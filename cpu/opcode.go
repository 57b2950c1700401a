package cpu

import (
	"fmt"
)

// Format is an instruction encoding format.
type Format int

const (
	FORMAT_R = Format(0) // R
	FORMAT_I = Format(1) // I
	FORMAT_J = Format(2) // J
)

// RFunct is the function code of a register-format instruction
// (the low 6 bits of an opcode-zero word).
type RFunct int

const (
	FUNCT_SLL     = RFunct(0x00)
	FUNCT_SRL     = RFunct(0x02)
	FUNCT_SRA     = RFunct(0x03)
	FUNCT_JR      = RFunct(0x08)
	FUNCT_JALR    = RFunct(0x09)
	FUNCT_SYSCALL = RFunct(0x0c)
	FUNCT_ADD     = RFunct(0x20)
	FUNCT_ADDU    = RFunct(0x21)
	FUNCT_SUB     = RFunct(0x22)
	FUNCT_AND     = RFunct(0x24)
	FUNCT_OR      = RFunct(0x25)
	FUNCT_XOR     = RFunct(0x26)
	FUNCT_NOR     = RFunct(0x27)
	FUNCT_SLT     = RFunct(0x2a)
)

// rFunctName is the static funct to operation name table.
var rFunctName = map[RFunct]string{
	FUNCT_SLL:     "sll",
	FUNCT_SRL:     "srl",
	FUNCT_SRA:     "sra",
	FUNCT_JR:      "jr",
	FUNCT_JALR:    "jalr",
	FUNCT_SYSCALL: "syscall",
	FUNCT_ADD:     "add",
	FUNCT_ADDU:    "addu",
	FUNCT_SUB:     "sub",
	FUNCT_AND:     "and",
	FUNCT_OR:      "or",
	FUNCT_XOR:     "xor",
	FUNCT_NOR:     "nor",
	FUNCT_SLT:     "slt",
}

// Known returns true if the funct names a recognized operation.
func (fn RFunct) Known() bool {
	_, ok := rFunctName[fn]
	return ok
}

func (fn RFunct) String() string {
	name, ok := rFunctName[fn]
	if !ok {
		name = fmt.Sprintf("unknown(0x%02x)", int(fn))
	}
	return name
}

// IOp is the opcode of an immediate-format instruction. The opcode
// also selects the operation; there is no separate function code.
type IOp int

const (
	OP_BGEZ  = IOp(0x01)
	OP_BEQ   = IOp(0x04)
	OP_BNE   = IOp(0x05)
	OP_BLEZ  = IOp(0x06)
	OP_ADDI  = IOp(0x08)
	OP_ADDIU = IOp(0x09)
	OP_SLTI  = IOp(0x0a)
	OP_ANDI  = IOp(0x0c)
	OP_ORI   = IOp(0x0d)
	OP_LUI   = IOp(0x0f)
	OP_LB    = IOp(0x20)
	OP_LH    = IOp(0x21)
	OP_LW    = IOp(0x23)
	OP_LHU   = IOp(0x25)
	OP_SW    = IOp(0x2b)
)

// iOpName is the static opcode to operation name table.
var iOpName = map[IOp]string{
	OP_BGEZ:  "bgez",
	OP_BEQ:   "beq",
	OP_BNE:   "bne",
	OP_BLEZ:  "blez",
	OP_ADDI:  "addi",
	OP_ADDIU: "addiu",
	OP_SLTI:  "slti",
	OP_ANDI:  "andi",
	OP_ORI:   "ori",
	OP_LUI:   "lui",
	OP_LB:    "lb",
	OP_LH:    "lh",
	OP_LW:    "lw",
	OP_LHU:   "lhu",
	OP_SW:    "sw",
}

// Known returns true if the opcode names a recognized operation.
func (op IOp) Known() bool {
	_, ok := iOpName[op]
	return ok
}

func (op IOp) String() string {
	name, ok := iOpName[op]
	if !ok {
		name = fmt.Sprintf("unknown(0x%02x)", int(op))
	}
	return name
}

// JOp is the opcode of a jump-format instruction.
type JOp int

const (
	OP_J   = JOp(0x02)
	OP_JAL = JOp(0x03)
)

var jOpName = map[JOp]string{
	OP_J:   "j",
	OP_JAL: "jal",
}

func (op JOp) String() string {
	name, ok := jOpName[op]
	if !ok {
		name = fmt.Sprintf("unknown(0x%02x)", int(op))
	}
	return name
}

// Register indexes with an architectural or ABI role.
const (
	REG_ZERO = 0  // Hardwired zero.
	REG_V0   = 2  // Syscall service selector and result.
	REG_A0   = 4  // Syscall argument.
	REG_GP   = 28 // Global pointer.
	REG_SP   = 29 // Stack pointer.
	REG_RA   = 31 // Return address.
)

// regName is the conventional ABI register name table, indexed by
// register number. Used by the disassembler and the assembler.
var regName = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// Ins is a single 32-bit instruction word. Decoding is total: the
// accessor for the word's format always yields field values, and
// unrecognized codes carry a named unknown operation. Field
// extraction and the MakeIns builders are exact inverses.
type Ins struct {
	Word uint32
}

// Opcode returns the top 6 bits of the instruction word.
func (ins Ins) Opcode() uint32 {
	return ins.Word >> 26
}

// Format returns the encoding format selected by the opcode.
// Opcode 0 is register-format, opcodes 2 and 3 are jump-format,
// and everything else is immediate-format.
func (ins Ins) Format() Format {
	switch ins.Opcode() {
	case 0:
		return FORMAT_R
	case uint32(OP_J), uint32(OP_JAL):
		return FORMAT_J
	default:
		return FORMAT_I
	}
}

// Jumps returns true if executing the instruction may transfer
// control. Such an instruction is not permitted in a delay slot.
func (ins Ins) Jumps() bool {
	switch ins.Format() {
	case FORMAT_R:
		_, _, _, _, funct := ins.RDecode()
		return funct == FUNCT_JR || funct == FUNCT_JALR
	case FORMAT_J:
		return true
	default:
		op, _, _, _ := ins.IDecode()
		switch op {
		case OP_BEQ, OP_BNE, OP_BGEZ, OP_BLEZ:
			return true
		}
	}
	return false
}

// RDecode decodes and returns the register-format fields.
func (ins Ins) RDecode() (rs, rt, rd, shamt int, funct RFunct) {
	rs = int((ins.Word >> 21) & 0x1f)
	rt = int((ins.Word >> 16) & 0x1f)
	rd = int((ins.Word >> 11) & 0x1f)
	shamt = int((ins.Word >> 6) & 0x1f)
	funct = RFunct(ins.Word & 0x3f)
	return
}

// IDecode decodes and returns the immediate-format fields. The
// 16-bit immediate is returned sign-extended to 32 bits; logical
// operations mask it back to its zero-extended bit pattern.
func (ins Ins) IDecode() (op IOp, rs, rt int, imm int32) {
	op = IOp(ins.Opcode())
	rs = int((ins.Word >> 21) & 0x1f)
	rt = int((ins.Word >> 16) & 0x1f)
	imm = int32(int16(ins.Word & 0xffff))
	return
}

// JDecode decodes and returns the jump-format fields.
func (ins Ins) JDecode() (op JOp, address uint32) {
	op = JOp(ins.Opcode())
	address = ins.Word & 0x3ffffff
	return
}

// MakeInsR creates a register-format instruction word.
func MakeInsR(rs, rt, rd, shamt int, funct RFunct) Ins {
	word := (uint32(rs&0x1f) << 21) |
		(uint32(rt&0x1f) << 16) |
		(uint32(rd&0x1f) << 11) |
		(uint32(shamt&0x1f) << 6) |
		uint32(int(funct)&0x3f)
	return Ins{Word: word}
}

// MakeInsI creates an immediate-format instruction word. The
// immediate is the raw two's-complement 16-bit pattern.
func MakeInsI(op IOp, rs, rt int, imm uint16) Ins {
	word := (uint32(int(op)&0x3f) << 26) |
		(uint32(rs&0x1f) << 21) |
		(uint32(rt&0x1f) << 16) |
		uint32(imm)
	return Ins{Word: word}
}

// MakeInsJ creates a jump-format instruction word.
func MakeInsJ(op JOp, address uint32) Ins {
	word := (uint32(int(op)&0x3f) << 26) | (address & 0x3ffffff)
	return Ins{Word: word}
}

// String returns the assembly language representation of this instruction.
func (ins Ins) String() (out string) {
	if ins.Word == 0 {
		return "nop"
	}

	switch ins.Format() {
	case FORMAT_R:
		rs, rt, rd, shamt, funct := ins.RDecode()
		switch funct {
		case FUNCT_SLL, FUNCT_SRL, FUNCT_SRA:
			out = fmt.Sprintf("%v $%v, $%v, %v", funct, regName[rd], regName[rt], shamt)
		case FUNCT_JR:
			out = fmt.Sprintf("%v $%v", funct, regName[rs])
		case FUNCT_JALR:
			out = fmt.Sprintf("%v $%v, $%v", funct, regName[rd], regName[rs])
		case FUNCT_SYSCALL:
			out = funct.String()
		default:
			out = fmt.Sprintf("%v $%v, $%v, $%v", funct, regName[rd], regName[rs], regName[rt])
		}
	case FORMAT_J:
		op, address := ins.JDecode()
		out = fmt.Sprintf("%v 0x%07x", op, address)
	default:
		op, rs, rt, imm := ins.IDecode()
		switch op {
		case OP_LUI:
			out = fmt.Sprintf("%v $%v, 0x%04x", op, regName[rt], uint32(imm)&0xffff)
		case OP_LB, OP_LH, OP_LHU, OP_LW, OP_SW:
			out = fmt.Sprintf("%v $%v, %v($%v)", op, regName[rt], imm, regName[rs])
		case OP_BGEZ, OP_BLEZ:
			out = fmt.Sprintf("%v $%v, %v", op, regName[rs], imm)
		case OP_BEQ, OP_BNE:
			out = fmt.Sprintf("%v $%v, $%v, %v", op, regName[rs], regName[rt], imm)
		default:
			out = fmt.Sprintf("%v $%v, $%v, %v", op, regName[rt], regName[rs], imm)
		}
	}

	return
}
