package cpu

import (
	"encoding/binary"
	"io"
	"iter"
)

// Opcode represents a line of assembled code with its source location
// and generated instructions.
type Opcode struct {
	LineNo    int      // Source line number, zero for loaded images.
	Ip        int      // Word index within the text region.
	Words     []string // Source tokens.
	Ins       []Ins    // Generated instruction words.
	LinkLabel string   // Label to resolve in the final link pass.
}

// Program is an assembled or loaded program image: an ordered text
// stream of instructions and an ordered data stream of words. The
// loader contract is two contiguous regions deposited at TEXT_BASE
// and DATA_BASE; the program does not interpret their content.
type Program struct {
	Opcodes []Opcode
	Data    []uint32
}

// Debug locates the opcode and intra-opcode index for a text word index.
type Debug struct {
	*Opcode
	Index int
}

// Debug returns the source listing record covering a text word index.
func (prog *Program) Debug(ip int) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if ip >= op.Ip && ip < op.Ip+len(op.Ins) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  ip - op.Ip,
			}
			break
		}
	}

	return
}

// Text iterates the instruction stream as (word index, instruction).
func (prog *Program) Text() iter.Seq2[int, Ins] {
	return func(yield func(ip int, ins Ins) bool) {
		for _, op := range prog.Opcodes {
			for n, ins := range op.Ins {
				if !yield(op.Ip+n, ins) {
					return
				}
			}
		}
	}
}

// TextWords flattens the instruction stream to raw words.
func (prog *Program) TextWords() (words []uint32) {
	for _, ins := range prog.Text() {
		words = append(words, ins.Word)
	}

	return
}

// readWords reads a stream of little-endian 32-bit words to end of input.
func readWords(input io.Reader) (words []uint32, err error) {
	raw, err := io.ReadAll(input)
	if err != nil {
		return
	}

	if len(raw)%4 != 0 {
		err = ErrImageShort
		return
	}

	for n := 0; n < len(raw); n += 4 {
		words = append(words, binary.LittleEndian.Uint32(raw[n:]))
	}

	return
}

// ReadImage loads a program from its binary image: a text stream and
// an optional data stream of little-endian 32-bit words.
func ReadImage(text io.Reader, data io.Reader) (prog *Program, err error) {
	words, err := readWords(text)
	if err != nil {
		return
	}

	prog = &Program{}
	for n, word := range words {
		prog.Opcodes = append(prog.Opcodes, Opcode{
			Ip:  n,
			Ins: []Ins{{Word: word}},
		})
	}

	if data != nil {
		prog.Data, err = readWords(data)
		if err != nil {
			prog = nil
			return
		}
	}

	return
}

// WriteImage saves the program as its binary image streams.
func (prog *Program) WriteImage(text io.Writer, data io.Writer) (err error) {
	err = binary.Write(text, binary.LittleEndian, prog.TextWords())
	if err != nil {
		return
	}

	if data != nil && len(prog.Data) != 0 {
		err = binary.Write(data, binary.LittleEndian, prog.Data)
	}

	return
}
