package cpu

import (
	"errors"

	"github.com/ezrec/umips/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalt          = errors.New(f("halt"))
	ErrFunctUnknown  = errors.New(f("funct unknown"))
	ErrOpcodeUnknown = errors.New(f("opcode unknown"))
	ErrDelaySlot     = errors.New(f("control flow in delay slot"))

	// Program image errors
	ErrImageShort = errors.New(f("short image"))
	ErrImageLarge = errors.New(f("image exceeds memory"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrDirectiveSyntax    = errors.New(f("directive syntax"))
	ErrDirectiveSection   = errors.New(f("directive outside its section"))
	ErrOpcodeMissing      = errors.New(f("opcode missing"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrBranchRange        = errors.New(f("branch target out of range"))
	ErrImmediateRange     = errors.New(f("immediate out of range"))
)

// ErrAddress is a fatal out-of-bounds memory access, reported with
// the offending address.
type ErrAddress uint32

func (err ErrAddress) Error() string {
	return f("address 0x%08x out of bounds", uint32(err))
}

// ErrAlign is a fatal misaligned memory access.
type ErrAlign uint32

func (err ErrAlign) Error() string {
	return f("address 0x%08x misaligned", uint32(err))
}

// ErrIns identifies the instruction word an execution error occurred in.
type ErrIns Ins

func (err ErrIns) Error() string {
	return f("instruction 0x%08x (%v)", Ins(err).Word, Ins(err).String())
}

func (err ErrIns) Is(target error) (ok bool) {
	_, ok = target.(ErrIns)
	return
}

type ErrLabelMissing string

func (err ErrLabelMissing) Error() string {
	return f("label %v missing", string(err))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseRegister string

func (err ErrParseRegister) Error() string {
	return f("'%v' is not a register", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}
