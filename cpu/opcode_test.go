package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsFormat(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		word   uint32
		format Format
	}){
		{"r_zero", 0x00000000, FORMAT_R},
		{"r_add", MakeInsR(2, 3, 4, 0, FUNCT_ADD).Word, FORMAT_R},
		{"j", MakeInsJ(OP_J, 0x100).Word, FORMAT_J},
		{"jal", MakeInsJ(OP_JAL, 0x100).Word, FORMAT_J},
		{"i_addi", MakeInsI(OP_ADDI, 1, 2, 5).Word, FORMAT_I},
		{"i_sw", MakeInsI(OP_SW, 1, 2, 5).Word, FORMAT_I},
		{"i_unknown", uint32(0x3f) << 26, FORMAT_I},
	}

	for _, entry := range table {
		ins := Ins{Word: entry.word}
		assert.Equal(entry.format, ins.Format(), entry.name)
	}
}

func TestInsRDecode(t *testing.T) {
	assert := assert.New(t)

	ins := MakeInsR(2, 3, 4, 0, FUNCT_ADD)
	assert.Equal(uint32(0x00432020), ins.Word)

	rs, rt, rd, shamt, funct := ins.RDecode()
	assert.Equal(2, rs)
	assert.Equal(3, rt)
	assert.Equal(4, rd)
	assert.Equal(0, shamt)
	assert.Equal(FUNCT_ADD, funct)
}

func TestInsIDecode(t *testing.T) {
	assert := assert.New(t)

	ins := MakeInsI(OP_ADDI, 2, 3, 20)
	op, rs, rt, imm := ins.IDecode()
	assert.Equal(OP_ADDI, op)
	assert.Equal(2, rs)
	assert.Equal(3, rt)
	assert.Equal(int32(20), imm)

	// Negative immediates arrive sign-extended.
	ins = MakeInsI(OP_ADDI, 2, 3, 0xfff6)
	_, _, _, imm = ins.IDecode()
	assert.Equal(int32(-10), imm)
}

func TestInsJDecode(t *testing.T) {
	assert := assert.New(t)

	ins := MakeInsJ(OP_JAL, 0x3ffffff)
	op, address := ins.JDecode()
	assert.Equal(OP_JAL, op)
	assert.Equal(uint32(0x3ffffff), address)
}

func TestInsRoundTrip(t *testing.T) {
	assert := assert.New(t)

	// Decoding a word and re-encoding its fields reproduces the
	// original bit pattern.
	word := uint32(0) | (9 << 21) | (10 << 16) | (11 << 11) | (3 << 6) | 0x20
	ins := Ins{Word: word}
	rs, rt, rd, shamt, funct := ins.RDecode()
	assert.Equal(word, MakeInsR(rs, rt, rd, shamt, funct).Word)

	word = (uint32(OP_BNE) << 26) | (7 << 21) | (8 << 16) | 0xfffe
	ins = Ins{Word: word}
	op, rs, rt, imm := ins.IDecode()
	assert.Equal(word, MakeInsI(op, rs, rt, uint16(imm)).Word)

	word = (uint32(OP_J) << 26) | 0x155aa55
	ins = Ins{Word: word}
	jop, address := ins.JDecode()
	assert.Equal(word, MakeInsJ(jop, address).Word)
}

func TestInsJumps(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		ins   Ins
		jumps bool
	}){
		{"add", MakeInsR(1, 2, 3, 0, FUNCT_ADD), false},
		{"jr", MakeInsR(31, 0, 0, 0, FUNCT_JR), true},
		{"jalr", MakeInsR(8, 0, 31, 0, FUNCT_JALR), true},
		{"syscall", MakeInsR(0, 0, 0, 0, FUNCT_SYSCALL), false},
		{"beq", MakeInsI(OP_BEQ, 1, 2, 4), true},
		{"bne", MakeInsI(OP_BNE, 1, 2, 4), true},
		{"bgez", MakeInsI(OP_BGEZ, 1, 0, 4), true},
		{"blez", MakeInsI(OP_BLEZ, 1, 0, 4), true},
		{"lw", MakeInsI(OP_LW, 1, 2, 4), false},
		{"j", MakeInsJ(OP_J, 0x100), true},
		{"jal", MakeInsJ(OP_JAL, 0x100), true},
	}

	for _, entry := range table {
		assert.Equal(entry.jumps, entry.ins.Jumps(), entry.name)
	}
}

func TestInsString(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		ins  Ins
		text string
	}){
		{"nop", Ins{Word: 0}, "nop"},
		{"add", MakeInsR(2, 3, 4, 0, FUNCT_ADD), "add $a0, $v0, $v1"},
		{"sll", MakeInsR(0, 8, 9, 2, FUNCT_SLL), "sll $t1, $t0, 2"},
		{"jr", MakeInsR(31, 0, 0, 0, FUNCT_JR), "jr $ra"},
		{"syscall", MakeInsR(0, 0, 0, 0, FUNCT_SYSCALL), "syscall"},
		{"addi", MakeInsI(OP_ADDI, 0, 8, 0xfff6), "addi $t0, $zero, -10"},
		{"lw", MakeInsI(OP_LW, 28, 8, 4), "lw $t0, 4($gp)"},
		{"beq", MakeInsI(OP_BEQ, 8, 9, 3), "beq $t0, $t1, 3"},
		{"bgez", MakeInsI(OP_BGEZ, 8, 0, 3), "bgez $t0, 3"},
		{"lui", MakeInsI(OP_LUI, 0, 8, 0x1234), "lui $t0, 0x1234"},
		{"j", MakeInsJ(OP_J, 0x1000), "j 0x0001000"},
	}

	for _, entry := range table {
		assert.Equal(entry.text, entry.ins.String(), entry.name)
	}
}

func TestNameUnknown(t *testing.T) {
	assert := assert.New(t)

	assert.False(RFunct(0x3f).Known())
	assert.Contains(RFunct(0x3f).String(), "unknown")
	assert.False(IOp(0x3e).Known())
	assert.Contains(IOp(0x3e).String(), "unknown")
	assert.Contains(JOp(0x3d).String(), "unknown")
	assert.True(FUNCT_ADD.Known())
	assert.True(OP_ADDI.Known())
}
