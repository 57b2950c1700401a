package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryWord(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(64)
	assert.Len(mem.Data, 16)

	value, err := mem.Word(0)
	assert.NoError(err)
	assert.Equal(uint32(0), value)

	err = mem.SetWord(60, 0xdeadbeef)
	assert.NoError(err)

	value, err = mem.Word(60)
	assert.NoError(err)
	assert.Equal(uint32(0xdeadbeef), value)
}

func TestMemoryBounds(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(64)

	_, err := mem.Word(64)
	assert.ErrorIs(err, ErrAddress(64))

	err = mem.SetWord(1024, 1)
	assert.ErrorIs(err, ErrAddress(1024))

	_, err = mem.Byte(64)
	assert.ErrorIs(err, ErrAddress(64))
}

func TestMemoryAlign(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(64)

	_, err := mem.Word(2)
	assert.ErrorIs(err, ErrAlign(2))

	err = mem.SetWord(5, 1)
	assert.ErrorIs(err, ErrAlign(5))

	_, err = mem.Halfword(3)
	assert.ErrorIs(err, ErrAlign(3))
}

func TestMemoryByte(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(64)

	// Bytes are extracted least-significant first from the
	// containing word.
	err := mem.SetWord(0, 0x44332211)
	assert.NoError(err)

	for n, expect := range []uint8{0x11, 0x22, 0x33, 0x44} {
		value, err := mem.Byte(uint32(n))
		assert.NoError(err)
		assert.Equal(expect, value)
	}

	err = mem.SetByte(1, 0xaa)
	assert.NoError(err)

	word, err := mem.Word(0)
	assert.NoError(err)
	assert.Equal(uint32(0x4433aa11), word)
}

func TestMemoryHalfword(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(64)

	err := mem.SetWord(4, 0x44332211)
	assert.NoError(err)

	value, err := mem.Halfword(4)
	assert.NoError(err)
	assert.Equal(uint16(0x2211), value)

	value, err = mem.Halfword(6)
	assert.NoError(err)
	assert.Equal(uint16(0x4433), value)
}

func TestMemoryReset(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory(64)

	err := mem.SetWord(8, 0x12345678)
	assert.NoError(err)

	mem.Reset()

	value, err := mem.Word(8)
	assert.NoError(err)
	assert.Equal(uint32(0), value)
}
