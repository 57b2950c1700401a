package cpu

// Memory is a flat, word-addressable store, zero-filled at creation.
// Words are held whole; byte and halfword reads extract from the
// containing word, least-significant byte first.
type Memory struct {
	Data []uint32
}

// NewMemory creates a zero-filled memory covering size bytes.
func NewMemory(size uint32) (mem *Memory) {
	mem = &Memory{
		Data: make([]uint32, size/4),
	}

	return
}

// Reset zero-fills the memory.
func (mem *Memory) Reset() {
	clear(mem.Data)
}

// index converts a byte address to a word index, checking bounds and
// word alignment.
func (mem *Memory) index(address uint32) (index int, err error) {
	if address&3 != 0 {
		err = ErrAlign(address)
		return
	}

	index = int(address >> 2)
	if index >= len(mem.Data) {
		err = ErrAddress(address)
		return
	}

	return
}

// Word reads the 32-bit word at a word-aligned byte address.
func (mem *Memory) Word(address uint32) (value uint32, err error) {
	index, err := mem.index(address)
	if err != nil {
		return
	}

	value = mem.Data[index]
	return
}

// SetWord writes the 32-bit word at a word-aligned byte address.
func (mem *Memory) SetWord(address uint32, value uint32) (err error) {
	index, err := mem.index(address)
	if err != nil {
		return
	}

	mem.Data[index] = value
	return
}

// Byte reads the byte at any byte address, extracted from within the
// containing word by its offset.
func (mem *Memory) Byte(address uint32) (value uint8, err error) {
	word, err := mem.Word(address &^ 3)
	if err != nil {
		return
	}

	value = uint8(word >> (8 * (address & 3)))
	return
}

// SetByte writes the byte at any byte address within its containing word.
func (mem *Memory) SetByte(address uint32, value uint8) (err error) {
	index, err := mem.index(address &^ 3)
	if err != nil {
		return
	}

	shift := 8 * (address & 3)
	mem.Data[index] = (mem.Data[index] &^ (0xff << shift)) | (uint32(value) << shift)
	return
}

// Halfword reads the 16-bit halfword at a halfword-aligned byte address.
func (mem *Memory) Halfword(address uint32) (value uint16, err error) {
	if address&1 != 0 {
		err = ErrAlign(address)
		return
	}

	word, err := mem.Word(address &^ 3)
	if err != nil {
		return
	}

	value = uint16(word >> (8 * (address & 2)))
	return
}
