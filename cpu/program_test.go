package cpu

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgramDebug(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Ip: 0, Ins: []Ins{{Word: 1}, {Word: 2}}},
			{LineNo: 3, Ip: 2, Ins: []Ins{{Word: 3}}},
		},
	}

	dbg := prog.Debug(1)
	assert.Equal(1, dbg.LineNo)
	assert.Equal(1, dbg.Index)

	dbg = prog.Debug(2)
	assert.Equal(3, dbg.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(5)
	assert.Nil(dbg.Opcode)
}

func TestProgramText(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, `
.data
	.word 0x11223344
.text
	nop
	addi $t0 $zero 1
`)

	var ips []int
	for ip := range prog.Text() {
		ips = append(ips, ip)
	}
	assert.Equal([]int{0, 1}, ips)
	assert.Equal([]uint32{0x11223344}, prog.Data)
}

func TestImageRoundTrip(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, `
.data
	.word 7, 8
.text
	addi $t0 $zero 1
	syscall
`)

	var text, data bytes.Buffer
	err := prog.WriteImage(&text, &data)
	assert.NoError(err)
	assert.Len(text.Bytes(), 8)

	// Little-endian: the addi opcode byte 0x20 lands last.
	assert.Equal(byte(0x20), text.Bytes()[3])

	loaded, err := ReadImage(&text, &data)
	assert.NoError(err)
	assert.Equal(prog.TextWords(), loaded.TextWords())
	assert.Equal(prog.Data, loaded.Data)
}

func TestImageNoData(t *testing.T) {
	assert := assert.New(t)

	prog, err := ReadImage(strings.NewReader("\x01\x00\x00\x00"), nil)
	assert.NoError(err)
	assert.Equal([]uint32{1}, prog.TextWords())
	assert.Empty(prog.Data)
}

func TestImageShort(t *testing.T) {
	assert := assert.New(t)

	_, err := ReadImage(strings.NewReader("abc"), nil)
	assert.ErrorIs(err, ErrImageShort)
}
